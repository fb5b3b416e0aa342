package repository

import (
	"time"

	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/models"

	"gorm.io/gorm"
)

// PayoutRepository 结算聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type PayoutRepository interface {
	SumPaidOrders(shopID uint, from, to time.Time) (PaidOrderSumRow, error)
	SumListingFees(shopID uint, year, month int) (int64, error)
}

// PaidOrderSumRow 已支付订单聚合结果（均为分）
type PaidOrderSumRow struct {
	OrdersCount        int64
	SubtotalCents      int64
	DiscountCents      int64
	PlatformFeeCents   int64
	ProcessingFeeCents int64
	AdFeeCents         int64
}

// GormPayoutRepository GORM 结算聚合实现
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository 创建结算聚合仓库
func NewPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// SumPaidOrders 汇总店铺区间内已支付订单的营收与各项费用
func (r *GormPayoutRepository) SumPaidOrders(shopID uint, from, to time.Time) (PaidOrderSumRow, error) {
	row := PaidOrderSumRow{}
	err := r.db.Model(&models.Order{}).
		Select(
			"COUNT(*) AS orders_count, " +
				"COALESCE(SUM(subtotal_cents), 0) AS subtotal_cents, " +
				"COALESCE(SUM(discount_cents), 0) AS discount_cents, " +
				"COALESCE(SUM(platform_fee_cents), 0) AS platform_fee_cents, " +
				"COALESCE(SUM(processing_fee_cents), 0) AS processing_fee_cents, " +
				"COALESCE(SUM(ad_fee_cents), 0) AS ad_fee_cents",
		).
		Where("shop_id = ?", shopID).
		Where("status = ?", constants.OrderStatusPaid).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Scan(&row).Error
	if err != nil {
		return PaidOrderSumRow{}, err
	}
	return row, nil
}

// SumListingFees 汇总店铺账期内的上架费
func (r *GormPayoutRepository) SumListingFees(shopID uint, year, month int) (int64, error) {
	var sum int64
	err := r.db.Model(&models.ListingFee{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("shop_id = ? AND year = ? AND month = ?", shopID, year, month).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}
