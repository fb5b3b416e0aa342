package models

import (
	"time"
)

// ListingFee 上架费记录（按店铺、账期归档）
type ListingFee struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                            // 主键
	ShopID      uint      `gorm:"index:idx_listing_fees_period,priority:1;not null" json:"shop_id"` // 店铺ID
	ListingID   uint      `gorm:"index;not null" json:"listing_id"`                                // 商品ID
	AmountCents int64     `gorm:"not null;default:0" json:"amount_cents"`                          // 费用金额（分）
	Year        int       `gorm:"index:idx_listing_fees_period,priority:2;not null" json:"year"`   // 账期年份
	Month       int       `gorm:"index:idx_listing_fees_period,priority:3;not null" json:"month"`  // 账期月份（1-12）
	Reason      string    `gorm:"not null;default:'initial'" json:"reason"`                        // 类型（initial/renewal）
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                                         // 创建时间
}

// TableName 指定表名
func (ListingFee) TableName() string {
	return "listing_fees"
}
