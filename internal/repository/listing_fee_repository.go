package repository

import (
	"github.com/makerplace/makerplace/internal/models"

	"gorm.io/gorm"
)

// ListingFeeRepository 上架费数据访问接口
type ListingFeeRepository interface {
	Create(fee *models.ListingFee) error
	List(filter ListingFeeListFilter) ([]models.ListingFee, int64, error)
	WithTx(tx *gorm.DB) *GormListingFeeRepository
}

// GormListingFeeRepository GORM 实现
type GormListingFeeRepository struct {
	db *gorm.DB
}

// NewListingFeeRepository 创建上架费仓库
func NewListingFeeRepository(db *gorm.DB) *GormListingFeeRepository {
	return &GormListingFeeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormListingFeeRepository) WithTx(tx *gorm.DB) *GormListingFeeRepository {
	if tx == nil {
		return r
	}
	return &GormListingFeeRepository{db: tx}
}

// Create 写入上架费记录
func (r *GormListingFeeRepository) Create(fee *models.ListingFee) error {
	return r.db.Create(fee).Error
}

// List 分页查询上架费记录
func (r *GormListingFeeRepository) List(filter ListingFeeListFilter) ([]models.ListingFee, int64, error) {
	query := r.db.Model(&models.ListingFee{})
	if filter.ShopID != 0 {
		query = query.Where("shop_id = ?", filter.ShopID)
	}
	if filter.Year != 0 {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.Month != 0 {
		query = query.Where("month = ?", filter.Month)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var fees []models.ListingFee
	if err := query.Order("id desc").Find(&fees).Error; err != nil {
		return nil, 0, err
	}
	return fees, total, nil
}
