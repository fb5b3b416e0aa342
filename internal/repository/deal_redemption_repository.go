package repository

import (
	"errors"

	"github.com/makerplace/makerplace/internal/models"

	"gorm.io/gorm"
)

// DealRedemptionRepository 优惠核销记录数据访问接口
type DealRedemptionRepository interface {
	Create(redemption *models.DealRedemption) error
	GetByDealAndOrder(dealID, orderID uint) (*models.DealRedemption, error)
	CountByDeal(dealID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormDealRedemptionRepository
}

// GormDealRedemptionRepository GORM 实现
type GormDealRedemptionRepository struct {
	db *gorm.DB
}

// NewDealRedemptionRepository 创建核销记录仓库
func NewDealRedemptionRepository(db *gorm.DB) *GormDealRedemptionRepository {
	return &GormDealRedemptionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDealRedemptionRepository) WithTx(tx *gorm.DB) *GormDealRedemptionRepository {
	if tx == nil {
		return r
	}
	return &GormDealRedemptionRepository{db: tx}
}

// Create 创建核销记录
func (r *GormDealRedemptionRepository) Create(redemption *models.DealRedemption) error {
	return r.db.Create(redemption).Error
}

// GetByDealAndOrder 按优惠与订单查询核销记录（幂等判断）
func (r *GormDealRedemptionRepository) GetByDealAndOrder(dealID, orderID uint) (*models.DealRedemption, error) {
	if dealID == 0 || orderID == 0 {
		return nil, nil
	}
	var redemption models.DealRedemption
	if err := r.db.Where("deal_id = ? AND order_id = ?", dealID, orderID).First(&redemption).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}

// CountByDeal 统计优惠的核销次数
func (r *GormDealRedemptionRepository) CountByDeal(dealID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.DealRedemption{}).Where("deal_id = ?", dealID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
