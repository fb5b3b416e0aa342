package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
// 费用字段在下单时按当时费率一次性计算写入，支付后不再变更。
type Order struct {
	ID                   uint           `gorm:"primarykey" json:"id"`                               // 主键
	OrderNo              string         `gorm:"uniqueIndex;not null" json:"order_no"`               // 订单编号
	ShopID               uint           `gorm:"index;not null" json:"shop_id"`                      // 店铺ID
	BuyerUserID          uint           `gorm:"index;not null" json:"buyer_user_id"`                // 买家用户ID
	ListingID            uint           `gorm:"index;not null" json:"listing_id"`                   // 商品ID
	Quantity             int            `gorm:"not null;default:1" json:"quantity"`                 // 购买数量
	Status               string         `gorm:"index;not null" json:"status"`                       // 订单状态
	Currency             string         `gorm:"not null;default:'USD'" json:"currency"`             // 币种
	SubtotalCents        int64          `gorm:"not null;default:0" json:"subtotal_cents"`           // 商品小计（分）
	DiscountCents        int64          `gorm:"not null;default:0" json:"discount_cents"`           // 优惠金额（分）
	StoreCreditUsedCents int64          `gorm:"not null;default:0" json:"store_credit_used_cents"`  // 抵扣的信用额度（分）
	TotalCents           int64          `gorm:"not null;default:0" json:"total_cents"`              // 实付金额（分）
	RefundedCents        int64          `gorm:"not null;default:0" json:"refunded_cents"`           // 已退款金额（分，退入信用额度）
	PlatformFeeCents     int64          `gorm:"not null;default:0" json:"platform_fee_cents"`       // 平台交易费（分）
	ProcessingFeeCents   int64          `gorm:"not null;default:0" json:"processing_fee_cents"`     // 支付处理费（分）
	AdFeeCents           int64          `gorm:"not null;default:0" json:"ad_fee_cents"`             // 广告成交费（分）
	DealID               *uint          `gorm:"index" json:"deal_id,omitempty"`                     // 使用的优惠ID
	ExpiresAt            *time.Time     `gorm:"index" json:"expires_at"`                            // 支付过期时间
	PaidAt               *time.Time     `gorm:"index" json:"paid_at"`                               // 支付时间
	CanceledAt           *time.Time     `gorm:"index" json:"canceled_at"`                           // 取消时间
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt            time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
