package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/makerplace/makerplace/internal/cache"
	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"

	"gorm.io/gorm"
)

const bestDealCacheTTL = 2 * time.Minute

// DealQuote 优惠试算结果（只读，不产生任何副作用）
type DealQuote struct {
	Deal          *models.Deal `json:"deal"`
	DiscountCents int64        `json:"discount_cents"`
	PayableCents  int64        `json:"payable_cents"`
}

// DealService 优惠服务
type DealService struct {
	dealRepo       repository.DealRepository
	redemptionRepo repository.DealRedemptionRepository
	shopRepo       repository.ShopRepository
}

// NewDealService 创建优惠服务
func NewDealService(
	dealRepo repository.DealRepository,
	redemptionRepo repository.DealRedemptionRepository,
	shopRepo repository.ShopRepository,
) *DealService {
	return &DealService{
		dealRepo:       dealRepo,
		redemptionRepo: redemptionRepo,
		shopRepo:       shopRepo,
	}
}

// ResolveByID 按ID试算优惠
func (s *DealService) ResolveByID(dealID uint, subtotalCents int64) (*DealQuote, error) {
	if subtotalCents < 0 {
		return nil, ErrInvalidAmount
	}
	deal, err := s.dealRepo.GetByID(dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}
	return s.quote(deal, subtotalCents, time.Now())
}

// ResolveByCode 按店铺与优惠码试算优惠
func (s *DealService) ResolveByCode(shopID uint, code string, subtotalCents int64) (*DealQuote, error) {
	if subtotalCents < 0 {
		return nil, ErrInvalidAmount
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, ErrDealNotFound
	}
	deal, err := s.dealRepo.GetByShopAndCode(shopID, trimmed)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}
	return s.quote(deal, subtotalCents, time.Now())
}

// ResolveBestForListing 自动选择商品当前最优的可用优惠
// 逐一校验候选优惠并试算，折扣最大者胜出；没有可用优惠时返回 nil。
func (s *DealService) ResolveBestForListing(shopID, listingID uint, subtotalCents int64) (*DealQuote, error) {
	if subtotalCents < 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now()
	deals, err := s.listActiveForListing(shopID, listingID, now)
	if err != nil {
		return nil, err
	}

	var best *DealQuote
	for i := range deals {
		deal := deals[i]
		q, err := s.quote(&deal, subtotalCents, now)
		if err != nil {
			// 校验未通过的候选直接跳过（门槛不足、名额用尽等）
			continue
		}
		if best == nil || q.DiscountCents > best.DiscountCents {
			best = q
		}
	}
	return best, nil
}

// 候选列表走缓存，优惠变更时失效；缓存只存候选，校验与试算始终实时执行。
func (s *DealService) listActiveForListing(shopID, listingID uint, now time.Time) ([]models.Deal, error) {
	ctx := context.Background()
	key := bestDealCacheKey(shopID, listingID)

	var cached []models.Deal
	if hit, err := cache.GetJSON(ctx, key, &cached); err != nil {
		logger.Warnw("deal_candidates_cache_read_failed", "error", err, "shop_id", shopID, "listing_id", listingID)
	} else if hit {
		return cached, nil
	}

	deals, err := s.dealRepo.ListActiveForListing(shopID, listingID, now)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, key, deals, bestDealCacheTTL); err != nil {
		logger.Warnw("deal_candidates_cache_write_failed", "error", err, "shop_id", shopID, "listing_id", listingID)
	}
	return deals, nil
}

// quote 校验优惠可用性并计算折扣；校验失败时返回对应业务错误。
func (s *DealService) quote(deal *models.Deal, subtotalCents int64, now time.Time) (*DealQuote, error) {
	if err := s.validate(deal, subtotalCents, now); err != nil {
		return nil, err
	}
	discount, err := s.calculateDiscount(deal, subtotalCents)
	if err != nil {
		return nil, err
	}
	return &DealQuote{
		Deal:          deal,
		DiscountCents: discount,
		PayableCents:  subtotalCents - discount,
	}, nil
}

func (s *DealService) validate(deal *models.Deal, subtotalCents int64, now time.Time) error {
	if !deal.IsActive {
		return ErrDealInactive
	}
	if deal.StartsAt != nil && now.Before(*deal.StartsAt) {
		return ErrDealNotStarted
	}
	if deal.EndsAt != nil && now.After(*deal.EndsAt) {
		return ErrDealExpired
	}
	if deal.MaxUses > 0 && deal.CurrentUses >= deal.MaxUses {
		return ErrDealUsageExceeded
	}
	if deal.MinPurchaseCents > 0 && subtotalCents < deal.MinPurchaseCents {
		return &MinimumNotMetError{MinimumCents: deal.MinPurchaseCents}
	}
	return nil
}

func (s *DealService) calculateDiscount(deal *models.Deal, subtotalCents int64) (int64, error) {
	if deal.Value <= 0 {
		return 0, ErrDealInvalid
	}
	var discount int64
	switch strings.ToLower(strings.TrimSpace(deal.Type)) {
	case constants.DealTypePercent:
		discount = models.PercentOf(subtotalCents, deal.Value)
	case constants.DealTypeFixed:
		discount = deal.Value
	default:
		return 0, ErrDealInvalid
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	return discount, nil
}

// RedeemInTx 在事务内核销优惠：条件自增名额 + 写入核销记录
// 同一订单重复确认支付时幂等返回；名额被并发占完时返回 ErrDealUsageExceeded。
func (s *DealService) RedeemInTx(tx *gorm.DB, deal *models.Deal, order *models.Order, discountCents int64) error {
	redemptionRepo := s.redemptionRepo.WithTx(tx)
	existing, err := redemptionRepo.GetByDealAndOrder(deal.ID, order.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	ok, err := s.dealRepo.WithTx(tx).IncrementCurrentUses(deal.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDealUsageExceeded
	}

	return redemptionRepo.Create(&models.DealRedemption{
		DealID:        deal.ID,
		OrderID:       order.ID,
		UserID:        order.BuyerUserID,
		DiscountCents: discountCents,
	})
}

// ReleaseInTx 在事务内回退一次核销名额（退款场景）
func (s *DealService) ReleaseInTx(tx *gorm.DB, dealID uint) error {
	return s.dealRepo.WithTx(tx).DecrementCurrentUses(dealID)
}

// CreateDeal 创建优惠（卖家/管理端）
func (s *DealService) CreateDeal(deal *models.Deal) error {
	if err := s.checkDealConfig(deal); err != nil {
		return err
	}
	shop, err := s.shopRepo.GetByID(deal.ShopID)
	if err != nil {
		return err
	}
	if shop == nil {
		return ErrShopNotFound
	}

	deal.Code = strings.TrimSpace(deal.Code)
	existing, err := s.dealRepo.GetByShopAndCode(deal.ShopID, deal.Code)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDealCodeExists
	}

	if err := s.dealRepo.Create(deal); err != nil {
		return err
	}
	s.invalidateCandidates(deal)
	return nil
}

// UpdateDeal 更新优惠
func (s *DealService) UpdateDeal(deal *models.Deal) error {
	if err := s.checkDealConfig(deal); err != nil {
		return err
	}
	current, err := s.dealRepo.GetByID(deal.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrDealNotFound
	}

	deal.Code = strings.TrimSpace(deal.Code)
	if deal.Code != current.Code {
		existing, err := s.dealRepo.GetByShopAndCode(deal.ShopID, deal.Code)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != deal.ID {
			return ErrDealCodeExists
		}
	}

	// 已核销次数不允许被外部改写
	deal.CurrentUses = current.CurrentUses
	if err := s.dealRepo.Update(deal); err != nil {
		return err
	}
	s.invalidateCandidates(current)
	s.invalidateCandidates(deal)
	return nil
}

// DeleteDeal 删除优惠
func (s *DealService) DeleteDeal(id uint) error {
	deal, err := s.dealRepo.GetByID(id)
	if err != nil {
		return err
	}
	if deal == nil {
		return ErrDealNotFound
	}
	if err := s.dealRepo.Delete(id); err != nil {
		return err
	}
	s.invalidateCandidates(deal)
	return nil
}

// GetDeal 获取优惠详情
func (s *DealService) GetDeal(id uint) (*models.Deal, error) {
	deal, err := s.dealRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}
	return deal, nil
}

// ListDeals 分页查询优惠
func (s *DealService) ListDeals(filter repository.DealListFilter) ([]models.Deal, int64, error) {
	return s.dealRepo.List(filter)
}

func (s *DealService) checkDealConfig(deal *models.Deal) error {
	if deal == nil || deal.ShopID == 0 || strings.TrimSpace(deal.Code) == "" {
		return ErrDealInvalid
	}
	switch strings.ToLower(strings.TrimSpace(deal.Type)) {
	case constants.DealTypePercent:
		if deal.Value <= 0 || deal.Value > 100 {
			return ErrDealInvalid
		}
	case constants.DealTypeFixed:
		if deal.Value <= 0 {
			return ErrDealInvalid
		}
	default:
		return ErrDealInvalid
	}
	if deal.MinPurchaseCents < 0 || deal.MaxUses < 0 {
		return ErrDealInvalid
	}
	if deal.StartsAt != nil && deal.EndsAt != nil && deal.EndsAt.Before(*deal.StartsAt) {
		return ErrDealInvalid
	}
	return nil
}

func (s *DealService) invalidateCandidates(deal *models.Deal) {
	if deal == nil {
		return
	}
	ctx := context.Background()
	listingID := uint(0)
	if deal.ListingID != nil {
		listingID = *deal.ListingID
	}
	if err := cache.Del(ctx, bestDealCacheKey(deal.ShopID, listingID)); err != nil {
		logger.Warnw("deal_candidates_cache_invalidate_failed", "error", err, "shop_id", deal.ShopID)
	}
}

func bestDealCacheKey(shopID, listingID uint) string {
	return fmt.Sprintf("deal:candidates:%d:%d", shopID, listingID)
}
