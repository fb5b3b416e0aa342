package repository

import (
	"errors"
	"strings"

	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/models"

	"gorm.io/gorm"
)

// ListingRepository 商品数据访问接口
type ListingRepository interface {
	GetByID(id uint) (*models.Listing, error)
	GetBySlug(slug string) (*models.Listing, error)
	Create(listing *models.Listing) error
	Update(listing *models.Listing) error
	Delete(id uint) error
	List(filter ListingListFilter) ([]models.Listing, int64, error)
	WithTx(tx *gorm.DB) *GormListingRepository
}

// GormListingRepository GORM 实现
type GormListingRepository struct {
	db *gorm.DB
}

// NewListingRepository 创建商品仓库
func NewListingRepository(db *gorm.DB) *GormListingRepository {
	return &GormListingRepository{db: db}
}

// WithTx 绑定事务
func (r *GormListingRepository) WithTx(tx *gorm.DB) *GormListingRepository {
	if tx == nil {
		return r
	}
	return &GormListingRepository{db: tx}
}

// GetByID 根据ID获取商品
func (r *GormListingRepository) GetByID(id uint) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

// GetBySlug 根据 slug 获取商品
func (r *GormListingRepository) GetBySlug(slug string) (*models.Listing, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	var listing models.Listing
	if err := r.db.Where("slug = ?", slug).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

// Create 创建商品
func (r *GormListingRepository) Create(listing *models.Listing) error {
	return r.db.Create(listing).Error
}

// Update 更新商品
func (r *GormListingRepository) Update(listing *models.Listing) error {
	return r.db.Save(listing).Error
}

// Delete 删除商品
func (r *GormListingRepository) Delete(id uint) error {
	return r.db.Delete(&models.Listing{}, id).Error
}

// List 分页查询商品
func (r *GormListingRepository) List(filter ListingListFilter) ([]models.Listing, int64, error) {
	query := r.db.Model(&models.Listing{})
	if filter.ShopID != 0 {
		query = query.Where("shop_id = ?", filter.ShopID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OnlyActive {
		query = query.Where("status = ?", constants.ListingStatusActive)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		op := likeOperator(r.db)
		query = query.Where("title "+op+" ? OR slug "+op+" ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var listings []models.Listing
	if err := query.Order("id desc").Find(&listings).Error; err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}
