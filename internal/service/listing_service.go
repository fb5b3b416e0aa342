package service

import (
	"strings"
	"time"

	"github.com/makerplace/makerplace/internal/config"
	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"

	"gorm.io/gorm"
)

// ListingService 商品服务
// 上架与续期在同一事务内写入商品与上架费记录，费用归入当期账单。
type ListingService struct {
	db             *gorm.DB
	listingRepo    repository.ListingRepository
	shopRepo       repository.ShopRepository
	listingFeeRepo repository.ListingFeeRepository
	billing        config.BillingConfig
}

// NewListingService 创建商品服务
func NewListingService(
	db *gorm.DB,
	listingRepo repository.ListingRepository,
	shopRepo repository.ShopRepository,
	listingFeeRepo repository.ListingFeeRepository,
	billing config.BillingConfig,
) *ListingService {
	return &ListingService{
		db:             db,
		listingRepo:    listingRepo,
		shopRepo:       shopRepo,
		listingFeeRepo: listingFeeRepo,
		billing:        billing,
	}
}

// CreateListingInput 创建商品输入
type CreateListingInput struct {
	ShopID     uint
	Slug       string
	Title      string
	PriceCents int64
	AdBoosted  bool
}

// CreateListing 上架商品（收取一次上架费）
func (s *ListingService) CreateListing(input CreateListingInput) (*models.Listing, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	title := strings.TrimSpace(input.Title)
	if input.ShopID == 0 || slug == "" || title == "" {
		return nil, ErrInvalidAmount
	}
	if input.PriceCents <= 0 {
		return nil, ErrInvalidAmount
	}

	shop, err := s.shopRepo.GetByID(input.ShopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	if shop.Status != constants.ShopStatusActive {
		return nil, ErrShopSuspended
	}

	existing, err := s.listingRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrListingExists
	}

	listing := &models.Listing{
		ShopID:     input.ShopID,
		Slug:       slug,
		Title:      title,
		PriceCents: input.PriceCents,
		Status:     constants.ListingStatusActive,
		AdBoosted:  input.AdBoosted,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if txErr := s.listingRepo.WithTx(tx).Create(listing); txErr != nil {
			return txErr
		}
		return s.chargeListingFee(tx, listing, constants.ListingFeeReasonInitial)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("listing_created",
		"listing_id", listing.ID,
		"shop_id", listing.ShopID,
		"slug", listing.Slug,
		"price_cents", listing.PriceCents,
	)
	return listing, nil
}

// RenewListing 商品续期（收取续期上架费并重新激活）
func (s *ListingService) RenewListing(listingID uint) (*models.Listing, error) {
	listing, err := s.mustGetListing(listingID)
	if err != nil {
		return nil, err
	}
	shop, err := s.shopRepo.GetByID(listing.ShopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	if shop.Status != constants.ShopStatusActive {
		return nil, ErrShopSuspended
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		listing.Status = constants.ListingStatusActive
		if txErr := s.listingRepo.WithTx(tx).Update(listing); txErr != nil {
			return txErr
		}
		return s.chargeListingFee(tx, listing, constants.ListingFeeReasonRenewal)
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *ListingService) chargeListingFee(tx *gorm.DB, listing *models.Listing, reason string) error {
	if s.billing.ListingFeeCents <= 0 {
		return nil
	}
	now := time.Now()
	return s.listingFeeRepo.WithTx(tx).Create(&models.ListingFee{
		ShopID:      listing.ShopID,
		ListingID:   listing.ID,
		AmountCents: s.billing.ListingFeeCents,
		Year:        now.Year(),
		Month:       int(now.Month()),
		Reason:      reason,
	})
}

// UpdateListingInput 更新商品输入
type UpdateListingInput struct {
	Title      string
	PriceCents int64
	AdBoosted  *bool
}

// UpdateListing 更新商品信息
func (s *ListingService) UpdateListing(listingID uint, input UpdateListingInput) (*models.Listing, error) {
	listing, err := s.mustGetListing(listingID)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		listing.Title = title
	}
	if input.PriceCents > 0 {
		listing.PriceCents = input.PriceCents
	}
	if input.AdBoosted != nil {
		listing.AdBoosted = *input.AdBoosted
	}
	if err := s.listingRepo.Update(listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// DeactivateListing 下架商品
func (s *ListingService) DeactivateListing(listingID uint) (*models.Listing, error) {
	listing, err := s.mustGetListing(listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status == constants.ListingStatusInactive {
		return listing, nil
	}
	listing.Status = constants.ListingStatusInactive
	if err := s.listingRepo.Update(listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// GetListing 获取商品
func (s *ListingService) GetListing(listingID uint) (*models.Listing, error) {
	return s.mustGetListing(listingID)
}

// GetListingBySlug 根据标识获取商品
func (s *ListingService) GetListingBySlug(slug string) (*models.Listing, error) {
	listing, err := s.listingRepo.GetBySlug(strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	return listing, nil
}

// ListListings 分页查询商品
func (s *ListingService) ListListings(filter repository.ListingListFilter) ([]models.Listing, int64, error) {
	return s.listingRepo.List(filter)
}

// ListListingFees 分页查询上架费记录
func (s *ListingService) ListListingFees(filter repository.ListingFeeListFilter) ([]models.ListingFee, int64, error) {
	return s.listingFeeRepo.List(filter)
}

func (s *ListingService) mustGetListing(listingID uint) (*models.Listing, error) {
	listing, err := s.listingRepo.GetByID(listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	return listing, nil
}
