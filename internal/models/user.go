package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（买家与卖家共用账号体系）
type User struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                      // 主键
	Email              string         `gorm:"uniqueIndex;not null" json:"email"`                         // 邮箱
	PasswordHash       string         `gorm:"not null" json:"-"`                                         // 密码哈希（不返回给前端）
	DisplayName        string         `gorm:"default:''" json:"display_name"`                            // 昵称
	Status             string         `gorm:"default:'active'" json:"status"`                            // 账号状态
	StoreCreditCents   int64          `gorm:"not null;default:0" json:"store_credit_cents"`              // 信用额度缓存余额（分），以流水实时汇总为准
	ReferralCode       string         `gorm:"uniqueIndex;type:varchar(32)" json:"referral_code"`         // 推荐码
	ReferredByUserID   *uint          `gorm:"index" json:"referred_by_user_id,omitempty"`                // 推荐人用户ID
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                               // Token 版本（用于全量失效）
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                                            // 该时间点前签发的 Token 失效
	LastLoginAt        *time.Time     `json:"last_login_at"`                                             // 最后登录时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
