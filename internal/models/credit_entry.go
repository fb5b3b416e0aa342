package models

import (
	"time"
)

// CreditEntry 信用额度流水（仅追加，不更新不删除）
// AmountCents 为正表示发放，为负表示消费；发放记录可携带过期时间。
type CreditEntry struct {
	ID           uint       `gorm:"primarykey" json:"id"`                          // 主键
	UserID       uint       `gorm:"index;not null" json:"user_id"`                 // 用户ID
	AmountCents  int64      `gorm:"not null" json:"amount_cents"`                  // 金额（分，正为发放负为消费）
	Reason       string     `gorm:"index;not null" json:"reason"`                  // 原因（promo/refund/referral_reward/goodwill/admin_adjust/order_payment）
	FunderType   string     `gorm:"not null;default:'platform'" json:"funder_type"` // 出资方（platform/seller）
	FunderShopID *uint      `gorm:"index" json:"funder_shop_id,omitempty"`         // 出资店铺ID（seller 出资时）
	OrderID      *uint      `gorm:"index" json:"order_id,omitempty"`               // 关联订单ID
	Reference    string     `gorm:"uniqueIndex;not null" json:"reference"`         // 业务引用（幂等键）
	ExpiresAt    *time.Time `gorm:"index" json:"expires_at,omitempty"`             // 过期时间（仅发放记录）
	Note         string     `gorm:"type:varchar(255);default:''" json:"note"`      // 备注
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                       // 创建时间
}

// TableName 指定表名
func (CreditEntry) TableName() string {
	return "credit_entries"
}
