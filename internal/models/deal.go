package models

import (
	"time"

	"gorm.io/gorm"
)

// Deal 优惠活动
// Value 语义随 Type 变化：percent 类型为百分比（0-100），fixed 类型为固定金额（分）。
type Deal struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                  // 主键
	ShopID           uint           `gorm:"uniqueIndex:idx_deals_shop_code,priority:1;not null" json:"shop_id"` // 所属店铺ID
	ListingID        *uint          `gorm:"index" json:"listing_id,omitempty"`                     // 限定商品ID（空表示全店通用）
	Code             string         `gorm:"uniqueIndex:idx_deals_shop_code,priority:2;not null" json:"code"` // 优惠码（店铺内唯一）
	Name             string         `gorm:"default:''" json:"name"`                                // 活动名称
	Type             string         `gorm:"not null" json:"type"`                                  // 类型（fixed/percent）
	Value            int64          `gorm:"not null;default:0" json:"value"`                       // 数值（百分比或分）
	MinPurchaseCents int64          `gorm:"not null;default:0" json:"min_purchase_cents"`          // 最低消费门槛（分，0 表示不限制）
	MaxUses          int            `gorm:"not null;default:0" json:"max_uses"`                    // 总使用上限（0 表示不限制）
	CurrentUses      int            `gorm:"not null;default:0" json:"current_uses"`                // 已使用次数
	StartsAt         *time.Time     `gorm:"index" json:"starts_at"`                                // 生效时间
	EndsAt           *time.Time     `gorm:"index" json:"ends_at"`                                  // 失效时间
	IsActive         bool           `gorm:"not null;default:true" json:"is_active"`                // 是否启用
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                               // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (Deal) TableName() string {
	return "deals"
}
