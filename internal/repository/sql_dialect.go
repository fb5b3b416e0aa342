package repository

import (
	"strings"

	"gorm.io/gorm"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return dialectSQLite
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	switch name {
	case "":
		return dialectSQLite
	case "postgresql":
		return dialectPostgres
	default:
		return name
	}
}

// likeOperator 返回当前方言下的模糊匹配运算符（postgres 不区分大小写）。
func likeOperator(db *gorm.DB) string {
	if dbDialectName(db) == dialectPostgres {
		return "ILIKE"
	}
	return "LIKE"
}
