package models

import (
	"time"
)

// DealRedemption 优惠核销记录（支付确认时写入，一单一条）
type DealRedemption struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                              // 主键
	DealID        uint      `gorm:"uniqueIndex:idx_redemptions_deal_order,priority:1;not null" json:"deal_id"` // 优惠ID
	OrderID       uint      `gorm:"uniqueIndex:idx_redemptions_deal_order,priority:2;not null" json:"order_id"` // 订单ID
	UserID        uint      `gorm:"index;not null" json:"user_id"`                                     // 买家用户ID
	DiscountCents int64     `gorm:"not null;default:0" json:"discount_cents"`                          // 实际优惠金额（分）
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                           // 创建时间
}

// TableName 指定表名
func (DealRedemption) TableName() string {
	return "deal_redemptions"
}
