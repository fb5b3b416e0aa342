package service

import (
	"strings"

	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"
)

// ShopService 店铺服务
type ShopService struct {
	shopRepo repository.ShopRepository
	userRepo repository.UserRepository
}

// NewShopService 创建店铺服务
func NewShopService(shopRepo repository.ShopRepository, userRepo repository.UserRepository) *ShopService {
	return &ShopService{shopRepo: shopRepo, userRepo: userRepo}
}

// CreateShopInput 创建店铺输入
type CreateShopInput struct {
	OwnerUserID uint
	Slug        string
	Name        string
	Currency    string
}

// CreateShop 创建店铺
func (s *ShopService) CreateShop(input CreateShopInput) (*models.Shop, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	name := strings.TrimSpace(input.Name)
	if input.OwnerUserID == 0 || slug == "" || name == "" {
		return nil, ErrInvalidAmount
	}

	owner, err := s.userRepo.GetByID(input.OwnerUserID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrUserNotFound
	}
	if owner.Status == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	existing, err := s.shopRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrShopExists
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = constants.SiteCurrencyDefault
	}
	shop := &models.Shop{
		OwnerUserID: input.OwnerUserID,
		Slug:        slug,
		Name:        name,
		Status:      constants.ShopStatusActive,
		Currency:    currency,
	}
	if err := s.shopRepo.Create(shop); err != nil {
		return nil, err
	}

	logger.Infow("shop_created", "shop_id", shop.ID, "slug", shop.Slug, "owner_user_id", shop.OwnerUserID)
	return shop, nil
}

// UpdateShopName 更新店铺名称
func (s *ShopService) UpdateShopName(shopID uint, name string) (*models.Shop, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidAmount
	}
	shop, err := s.mustGetShop(shopID)
	if err != nil {
		return nil, err
	}
	shop.Name = name
	if err := s.shopRepo.Update(shop); err != nil {
		return nil, err
	}
	return shop, nil
}

// SuspendShop 冻结店铺（冻结期间不可下单、不可上新）
func (s *ShopService) SuspendShop(shopID uint) (*models.Shop, error) {
	return s.setStatus(shopID, constants.ShopStatusSuspended)
}

// ReinstateShop 恢复店铺
func (s *ShopService) ReinstateShop(shopID uint) (*models.Shop, error) {
	return s.setStatus(shopID, constants.ShopStatusActive)
}

func (s *ShopService) setStatus(shopID uint, status string) (*models.Shop, error) {
	shop, err := s.mustGetShop(shopID)
	if err != nil {
		return nil, err
	}
	if shop.Status == status {
		return shop, nil
	}
	shop.Status = status
	if err := s.shopRepo.Update(shop); err != nil {
		return nil, err
	}
	logger.Infow("shop_status_changed", "shop_id", shop.ID, "status", status)
	return shop, nil
}

// GetShop 获取店铺
func (s *ShopService) GetShop(shopID uint) (*models.Shop, error) {
	return s.mustGetShop(shopID)
}

// GetShopBySlug 根据标识获取店铺
func (s *ShopService) GetShopBySlug(slug string) (*models.Shop, error) {
	shop, err := s.shopRepo.GetBySlug(strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	return shop, nil
}

// GetShopByOwner 获取用户名下店铺
func (s *ShopService) GetShopByOwner(ownerUserID uint) (*models.Shop, error) {
	shop, err := s.shopRepo.GetByOwner(ownerUserID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	return shop, nil
}

// ListShops 分页查询店铺
func (s *ShopService) ListShops(filter repository.ShopListFilter) ([]models.Shop, int64, error) {
	return s.shopRepo.List(filter)
}

func (s *ShopService) mustGetShop(shopID uint) (*models.Shop, error) {
	shop, err := s.shopRepo.GetByID(shopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	return shop, nil
}
