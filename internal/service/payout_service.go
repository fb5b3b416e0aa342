package service

import (
	"time"

	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"
)

// MonthlySummary 店铺月度结算汇总（只读计算结果）
type MonthlySummary struct {
	ShopID             uint  `json:"shop_id"`
	Year               int   `json:"year"`
	Month              int   `json:"month"`
	OrdersCount        int64 `json:"orders_count"`
	RevenueCents       int64 `json:"revenue_cents"`
	PlatformFeeCents   int64 `json:"platform_fee_cents"`
	ProcessingFeeCents int64 `json:"processing_fee_cents"`
	AdFeeCents         int64 `json:"ad_fee_cents"`
	ListingFeeCents    int64 `json:"listing_fee_cents"`
	TotalFeeCents      int64 `json:"total_fee_cents"`
	NetPayoutCents     int64 `json:"net_payout_cents"`
}

// PayoutService 店铺结算服务
type PayoutService struct {
	payoutRepo    repository.PayoutRepository
	statementRepo repository.PayoutStatementRepository
	shopRepo      repository.ShopRepository
}

// NewPayoutService 创建结算服务
func NewPayoutService(
	payoutRepo repository.PayoutRepository,
	statementRepo repository.PayoutStatementRepository,
	shopRepo repository.ShopRepository,
) *PayoutService {
	return &PayoutService{
		payoutRepo:    payoutRepo,
		statementRepo: statementRepo,
		shopRepo:      shopRepo,
	}
}

// Summarize 计算店铺指定账期的结算汇总
// 纯读取，不落库，同一账期重复调用结果一致；净额可为负。
func (s *PayoutService) Summarize(shopID uint, year, month int) (*MonthlySummary, error) {
	if month < 1 || month > 12 || year < 2000 {
		return nil, ErrStatementPeriodInvalid
	}
	shop, err := s.shopRepo.GetByID(shopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}

	from, to := monthBounds(year, month)
	orders, err := s.payoutRepo.SumPaidOrders(shopID, from, to)
	if err != nil {
		return nil, err
	}
	listingFees, err := s.payoutRepo.SumListingFees(shopID, year, month)
	if err != nil {
		return nil, err
	}

	totalFees := orders.PlatformFeeCents + orders.ProcessingFeeCents + orders.AdFeeCents + listingFees
	return &MonthlySummary{
		ShopID:             shopID,
		Year:               year,
		Month:              month,
		OrdersCount:        orders.OrdersCount,
		RevenueCents:       orders.SubtotalCents,
		PlatformFeeCents:   orders.PlatformFeeCents,
		ProcessingFeeCents: orders.ProcessingFeeCents,
		AdFeeCents:         orders.AdFeeCents,
		ListingFeeCents:    listingFees,
		TotalFeeCents:      totalFees,
		NetPayoutCents:     orders.SubtotalCents - totalFees,
	}, nil
}

// SummarizeCurrent 计算店铺本月结算汇总
func (s *PayoutService) SummarizeCurrent(shopID uint) (*MonthlySummary, error) {
	now := time.Now()
	return s.Summarize(shopID, now.Year(), int(now.Month()))
}

// GenerateStatement 生成店铺月度结算单快照（账单任务调用）
// 同一账期重复生成时按最新汇总覆盖，已结清的结算单不再改动。
func (s *PayoutService) GenerateStatement(shopID uint, year, month int) (*models.PayoutStatement, error) {
	summary, err := s.Summarize(shopID, year, month)
	if err != nil {
		return nil, err
	}

	existing, err := s.statementRepo.GetByPeriod(shopID, year, month)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == constants.StatementStatusSettled {
		return existing, nil
	}

	now := time.Now()
	statement := existing
	if statement == nil {
		statement = &models.PayoutStatement{
			ShopID: shopID,
			Year:   year,
			Month:  month,
			Status: constants.StatementStatusGenerated,
		}
	}
	statement.OrdersCount = summary.OrdersCount
	statement.RevenueCents = summary.RevenueCents
	statement.PlatformFeeCents = summary.PlatformFeeCents
	statement.ProcessingFeeCents = summary.ProcessingFeeCents
	statement.AdFeeCents = summary.AdFeeCents
	statement.ListingFeeCents = summary.ListingFeeCents
	statement.TotalFeeCents = summary.TotalFeeCents
	statement.NetPayoutCents = summary.NetPayoutCents
	statement.GeneratedAt = now

	if existing == nil {
		err = s.statementRepo.Create(statement)
	} else {
		err = s.statementRepo.Update(statement)
	}
	if err != nil {
		return nil, err
	}

	logger.Infow("payout_statement_generated",
		"shop_id", shopID,
		"year", year,
		"month", month,
		"orders_count", statement.OrdersCount,
		"net_payout_cents", statement.NetPayoutCents,
	)
	return statement, nil
}

// MarkStatementSettled 将结算单标记为已结清
func (s *PayoutService) MarkStatementSettled(shopID uint, year, month int) (*models.PayoutStatement, error) {
	statement, err := s.statementRepo.GetByPeriod(shopID, year, month)
	if err != nil {
		return nil, err
	}
	if statement == nil {
		return nil, ErrStatementPeriodInvalid
	}
	if statement.Status == constants.StatementStatusSettled {
		return statement, nil
	}
	statement.Status = constants.StatementStatusSettled
	if err := s.statementRepo.Update(statement); err != nil {
		return nil, err
	}
	return statement, nil
}

// ListStatements 查询结算单
func (s *PayoutService) ListStatements(filter repository.StatementListFilter) ([]models.PayoutStatement, int64, error) {
	return s.statementRepo.List(filter)
}

// monthBounds 返回账期首末时刻（闭区间）
func monthBounds(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return from, to
}
