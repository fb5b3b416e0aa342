package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/makerplace/makerplace/internal/models"

	"gorm.io/gorm"
)

// DealRepository 优惠数据访问接口
type DealRepository interface {
	GetByID(id uint) (*models.Deal, error)
	GetByShopAndCode(shopID uint, code string) (*models.Deal, error)
	ListActiveForListing(shopID, listingID uint, now time.Time) ([]models.Deal, error)
	Create(deal *models.Deal) error
	Update(deal *models.Deal) error
	Delete(id uint) error
	List(filter DealListFilter) ([]models.Deal, int64, error)
	IncrementCurrentUses(id uint) (bool, error)
	DecrementCurrentUses(id uint) error
	WithTx(tx *gorm.DB) *GormDealRepository
}

// GormDealRepository GORM 实现
type GormDealRepository struct {
	db *gorm.DB
}

// NewDealRepository 创建优惠仓库
func NewDealRepository(db *gorm.DB) *GormDealRepository {
	return &GormDealRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDealRepository) WithTx(tx *gorm.DB) *GormDealRepository {
	if tx == nil {
		return r
	}
	return &GormDealRepository{db: tx}
}

// GetByID 根据ID获取优惠
func (r *GormDealRepository) GetByID(id uint) (*models.Deal, error) {
	var deal models.Deal
	if err := r.db.First(&deal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deal, nil
}

// GetByShopAndCode 根据店铺与优惠码获取优惠
func (r *GormDealRepository) GetByShopAndCode(shopID uint, code string) (*models.Deal, error) {
	code = strings.TrimSpace(code)
	if shopID == 0 || code == "" {
		return nil, nil
	}
	var deal models.Deal
	if err := r.db.Where("shop_id = ? AND code = ?", shopID, code).First(&deal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deal, nil
}

// ListActiveForListing 获取商品当前可用的优惠（含全店通用），按创建顺序倒序
func (r *GormDealRepository) ListActiveForListing(shopID, listingID uint, now time.Time) ([]models.Deal, error) {
	if shopID == 0 {
		return []models.Deal{}, nil
	}
	var deals []models.Deal
	query := r.db.
		Where("shop_id = ?", shopID).
		Where("is_active = ?", true).
		Where("(listing_id IS NULL OR listing_id = ?)", listingID).
		Where("(starts_at IS NULL OR starts_at <= ?)", now).
		Where("(ends_at IS NULL OR ends_at >= ?)", now).
		Order("id desc")
	if err := query.Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

// Create 创建优惠
func (r *GormDealRepository) Create(deal *models.Deal) error {
	return r.db.Create(deal).Error
}

// Update 更新优惠
func (r *GormDealRepository) Update(deal *models.Deal) error {
	return r.db.Save(deal).Error
}

// Delete 删除优惠
func (r *GormDealRepository) Delete(id uint) error {
	return r.db.Delete(&models.Deal{}, id).Error
}

// List 获取优惠列表
func (r *GormDealRepository) List(filter DealListFilter) ([]models.Deal, int64, error) {
	var deals []models.Deal
	query := r.db.Model(&models.Deal{})

	if filter.ShopID > 0 {
		query = query.Where("shop_id = ?", filter.ShopID)
	}
	if filter.ListingID > 0 {
		query = query.Where("(listing_id IS NULL OR listing_id = ?)", filter.ListingID)
	}
	if filter.Code != "" {
		query = query.Where("code = ?", filter.Code)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("id desc").Find(&deals).Error; err != nil {
		return nil, 0, err
	}
	return deals, total, nil
}

// IncrementCurrentUses 核销一次使用次数
// 条件更新保证并发下不会超过 max_uses；返回 false 表示名额已被占完。
func (r *GormDealRepository) IncrementCurrentUses(id uint) (bool, error) {
	result := r.db.Model(&models.Deal{}).
		Where("id = ?", id).
		Where("max_uses = 0 OR current_uses < max_uses").
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DecrementCurrentUses 回退一次使用次数（订单退款等场景）
func (r *GormDealRepository) DecrementCurrentUses(id uint) error {
	return r.db.Model(&models.Deal{}).
		Where("id = ?", id).
		Where("current_uses > 0").
		UpdateColumn("current_uses", gorm.Expr("current_uses - 1")).Error
}
