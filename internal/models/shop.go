package models

import (
	"time"

	"gorm.io/gorm"
)

// Shop 店铺表
type Shop struct {
	ID          uint           `gorm:"primarykey" json:"id"`                   // 主键
	OwnerUserID uint           `gorm:"index;not null" json:"owner_user_id"`    // 店主用户ID
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`       // 唯一标识
	Name        string         `gorm:"not null" json:"name"`                   // 店铺名称
	Status      string         `gorm:"index;default:'active'" json:"status"`   // 状态（active/suspended）
	Currency    string         `gorm:"not null;default:'USD'" json:"currency"` // 结算币种
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                         // 软删除时间
}

// TableName 指定表名
func (Shop) TableName() string {
	return "shops"
}
