package repository

import (
	"errors"
	"strings"

	"github.com/makerplace/makerplace/internal/models"

	"gorm.io/gorm"
)

// ShopRepository 店铺数据访问接口
type ShopRepository interface {
	GetByID(id uint) (*models.Shop, error)
	GetBySlug(slug string) (*models.Shop, error)
	GetByOwner(ownerUserID uint) (*models.Shop, error)
	Create(shop *models.Shop) error
	Update(shop *models.Shop) error
	List(filter ShopListFilter) ([]models.Shop, int64, error)
	WithTx(tx *gorm.DB) *GormShopRepository
}

// GormShopRepository GORM 实现
type GormShopRepository struct {
	db *gorm.DB
}

// NewShopRepository 创建店铺仓库
func NewShopRepository(db *gorm.DB) *GormShopRepository {
	return &GormShopRepository{db: db}
}

// WithTx 绑定事务
func (r *GormShopRepository) WithTx(tx *gorm.DB) *GormShopRepository {
	if tx == nil {
		return r
	}
	return &GormShopRepository{db: tx}
}

// GetByID 根据ID获取店铺
func (r *GormShopRepository) GetByID(id uint) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.First(&shop, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}

// GetBySlug 根据 slug 获取店铺
func (r *GormShopRepository) GetBySlug(slug string) (*models.Shop, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	var shop models.Shop
	if err := r.db.Where("slug = ?", slug).First(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}

// GetByOwner 根据店主获取店铺（一人一店）
func (r *GormShopRepository) GetByOwner(ownerUserID uint) (*models.Shop, error) {
	if ownerUserID == 0 {
		return nil, nil
	}
	var shop models.Shop
	if err := r.db.Where("owner_user_id = ?", ownerUserID).First(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}

// Create 创建店铺
func (r *GormShopRepository) Create(shop *models.Shop) error {
	return r.db.Create(shop).Error
}

// Update 更新店铺
func (r *GormShopRepository) Update(shop *models.Shop) error {
	return r.db.Save(shop).Error
}

// List 分页查询店铺
func (r *GormShopRepository) List(filter ShopListFilter) ([]models.Shop, int64, error) {
	query := r.db.Model(&models.Shop{})
	if filter.OwnerUserID != 0 {
		query = query.Where("owner_user_id = ?", filter.OwnerUserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		op := likeOperator(r.db)
		query = query.Where("name "+op+" ? OR slug "+op+" ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var shops []models.Shop
	if err := query.Order("id desc").Find(&shops).Error; err != nil {
		return nil, 0, err
	}
	return shops, total, nil
}
