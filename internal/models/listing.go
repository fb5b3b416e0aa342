package models

import (
	"time"

	"gorm.io/gorm"
)

// Listing 商品表
type Listing struct {
	ID         uint           `gorm:"primarykey" json:"id"`                              // 主键
	ShopID     uint           `gorm:"index;not null" json:"shop_id"`                     // 所属店铺ID
	Slug       string         `gorm:"uniqueIndex;not null" json:"slug"`                  // 唯一标识
	Title      string         `gorm:"not null" json:"title"`                             // 商品标题
	PriceCents int64          `gorm:"not null;default:0" json:"price_cents"`             // 单价（分）
	Status     string         `gorm:"index;default:'active'" json:"status"`              // 状态（active/inactive）
	AdBoosted  bool           `gorm:"not null;default:false;index" json:"ad_boosted"`    // 是否参与站外广告投放（成交收取广告费）
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt  time.Time      `gorm:"index" json:"updated_at"`                           // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                                    // 软删除时间
}

// TableName 指定表名
func (Listing) TableName() string {
	return "listings"
}
