package models

import (
	"time"
)

// PayoutStatement 店铺月度结算单（由月度汇总生成的快照）
// NetPayoutCents 允许为负：费用超过营收时店铺欠平台费用。
type PayoutStatement struct {
	ID                 uint      `gorm:"primarykey" json:"id"`                                                    // 主键
	ShopID             uint      `gorm:"uniqueIndex:idx_statements_period,priority:1;not null" json:"shop_id"`    // 店铺ID
	Year               int       `gorm:"uniqueIndex:idx_statements_period,priority:2;not null" json:"year"`      // 账期年份
	Month              int       `gorm:"uniqueIndex:idx_statements_period,priority:3;not null" json:"month"`     // 账期月份（1-12）
	OrdersCount        int64     `gorm:"not null;default:0" json:"orders_count"`                                 // 已支付订单数
	RevenueCents       int64     `gorm:"not null;default:0" json:"revenue_cents"`                                // 营收小计（分）
	PlatformFeeCents   int64     `gorm:"not null;default:0" json:"platform_fee_cents"`                           // 平台交易费合计（分）
	ProcessingFeeCents int64     `gorm:"not null;default:0" json:"processing_fee_cents"`                         // 支付处理费合计（分）
	AdFeeCents         int64     `gorm:"not null;default:0" json:"ad_fee_cents"`                                 // 广告成交费合计（分）
	ListingFeeCents    int64     `gorm:"not null;default:0" json:"listing_fee_cents"`                            // 上架费合计（分）
	TotalFeeCents      int64     `gorm:"not null;default:0" json:"total_fee_cents"`                              // 费用总计（分）
	NetPayoutCents     int64     `gorm:"not null;default:0" json:"net_payout_cents"`                             // 应结算净额（分，可为负）
	Status             string    `gorm:"index;not null;default:'generated'" json:"status"`                       // 状态（generated/settled）
	GeneratedAt        time.Time `gorm:"not null" json:"generated_at"`                                           // 生成时间
	CreatedAt          time.Time `gorm:"index" json:"created_at"`                                                // 创建时间
	UpdatedAt          time.Time `gorm:"index" json:"updated_at"`                                                // 更新时间
}

// TableName 指定表名
func (PayoutStatement) TableName() string {
	return "payout_statements"
}
