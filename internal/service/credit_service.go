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

// GrantInput 发放信用额度的输入
type GrantInput struct {
	UserID       uint
	AmountCents  int64
	Reason       string
	FunderType   string
	FunderShopID *uint
	OrderID      *uint
	Reference    string
	ExpiresAt    *time.Time
	Note         string
}

// DebitInput 扣减信用额度的输入
type DebitInput struct {
	UserID      uint
	AmountCents int64
	Reason      string
	OrderID     *uint
	Reference   string
	Note        string
}

// CreditService 信用额度服务
// 余额以流水实时汇总为准，users.store_credit_cents 仅作冗余计数，
// 扣减时通过条件更新兜住并发，发现偏差按流水修正。
type CreditService struct {
	db         *gorm.DB
	creditRepo repository.CreditRepository
	userRepo   repository.UserRepository
	cfg        config.CreditConfig
}

// NewCreditService 创建信用额度服务
func NewCreditService(db *gorm.DB, creditRepo repository.CreditRepository, userRepo repository.UserRepository, cfg config.CreditConfig) *CreditService {
	return &CreditService{
		db:         db,
		creditRepo: creditRepo,
		userRepo:   userRepo,
		cfg:        cfg,
	}
}

// Balance 查询用户当前可用余额（实时汇总，过期发放不计入）
func (s *CreditService) Balance(userID uint) (int64, error) {
	summary, err := s.BalanceSummary(userID)
	if err != nil {
		return 0, err
	}
	return summary.AvailableCents, nil
}

// CreditBalanceSummary 余额视图：可用余额、累计发放与当前已过期不可用金额
type CreditBalanceSummary struct {
	AvailableCents int64 `json:"available_cents"`
	GrantedCents   int64 `json:"granted_cents"`
	ExpiredCents   int64 `json:"expired_cents"`
}

// BalanceSummary 查询余额视图（实时汇总，冗余计数偏差仅告警）
func (s *CreditService) BalanceSummary(userID uint) (*CreditBalanceSummary, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	row, err := s.creditRepo.SumBalance(userID, time.Now())
	if err != nil {
		return nil, err
	}
	if row.AvailableCents != user.StoreCreditCents {
		logger.Warnw("store_credit_counter_mismatch",
			"user_id", userID,
			"counter_cents", user.StoreCreditCents,
			"ledger_cents", row.AvailableCents,
		)
	}
	return &CreditBalanceSummary{
		AvailableCents: row.AvailableCents,
		GrantedCents:   row.GrantedCents,
		ExpiredCents:   row.ExpiredCents,
	}, nil
}

// ListEntries 查询信用额度流水
func (s *CreditService) ListEntries(filter repository.CreditEntryListFilter) ([]models.CreditEntry, int64, error) {
	return s.creditRepo.ListEntries(filter)
}

// Grant 发放信用额度
func (s *CreditService) Grant(input GrantInput) (*models.CreditEntry, error) {
	var entry *models.CreditEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = s.GrantInTx(tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GrantInTx 在事务内发放信用额度（同一 Reference 幂等）
func (s *CreditService) GrantInTx(tx *gorm.DB, input GrantInput) (*models.CreditEntry, error) {
	if input.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, ErrInvalidAmount
	}

	creditRepo := s.creditRepo.WithTx(tx)
	userRepo := s.userRepo.WithTx(tx)

	existing, err := creditRepo.GetEntryByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	user, err := userRepo.GetByIDForUpdate(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	entry := &models.CreditEntry{
		UserID:       input.UserID,
		AmountCents:  input.AmountCents,
		Reason:       input.Reason,
		FunderType:   input.FunderType,
		FunderShopID: input.FunderShopID,
		OrderID:      input.OrderID,
		Reference:    reference,
		ExpiresAt:    s.grantExpiry(input),
		Note:         input.Note,
	}
	if entry.FunderType == "" {
		entry.FunderType = constants.CreditFunderPlatform
	}
	if err := creditRepo.CreateEntry(entry); err != nil {
		return nil, err
	}
	if err := userRepo.AddStoreCredit(input.UserID, input.AmountCents); err != nil {
		return nil, err
	}

	logger.Infow("store_credit_granted",
		"user_id", input.UserID,
		"amount_cents", input.AmountCents,
		"reason", entry.Reason,
		"reference", reference,
	)
	return entry, nil
}

// 退款入账不设过期时间，其余发放未指定时按默认天数过期。
func (s *CreditService) grantExpiry(input GrantInput) *time.Time {
	if input.ExpiresAt != nil {
		return input.ExpiresAt
	}
	if input.Reason == constants.CreditReasonRefund {
		return nil
	}
	if s.cfg.DefaultExpireDays <= 0 {
		return nil
	}
	expires := time.Now().AddDate(0, 0, s.cfg.DefaultExpireDays)
	return &expires
}

// Debit 扣减信用额度
func (s *CreditService) Debit(input DebitInput) (*models.CreditEntry, error) {
	var entry *models.CreditEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = s.DebitInTx(tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DebitInTx 在事务内扣减信用额度（同一 Reference 幂等）
// 实时汇总校验可用余额后，对冗余计数做条件扣减闭合并发窗口。
func (s *CreditService) DebitInTx(tx *gorm.DB, input DebitInput) (*models.CreditEntry, error) {
	if input.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, ErrInvalidAmount
	}

	creditRepo := s.creditRepo.WithTx(tx)
	userRepo := s.userRepo.WithTx(tx)

	existing, err := creditRepo.GetEntryByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	user, err := userRepo.GetByIDForUpdate(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	now := time.Now()
	available, err := creditRepo.SumAvailable(input.UserID, now)
	if err != nil {
		return nil, err
	}
	if available < input.AmountCents {
		return nil, &InsufficientBalanceError{
			AvailableCents: available,
			RequestedCents: input.AmountCents,
		}
	}

	ok, err := userRepo.DeductStoreCredit(input.UserID, input.AmountCents)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 冗余计数落后于流水（如过期清理未跑），按流水修正后重试一次
		logger.Warnw("store_credit_counter_behind_ledger",
			"user_id", input.UserID,
			"counter_cents", user.StoreCreditCents,
			"ledger_cents", available,
		)
		if err := userRepo.SetStoreCredit(input.UserID, available); err != nil {
			return nil, err
		}
		ok, err = userRepo.DeductStoreCredit(input.UserID, input.AmountCents)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &InsufficientBalanceError{
				AvailableCents: available,
				RequestedCents: input.AmountCents,
			}
		}
	}

	reason := input.Reason
	if reason == "" {
		reason = constants.CreditReasonOrderPayment
	}
	entry := &models.CreditEntry{
		UserID:      input.UserID,
		AmountCents: -input.AmountCents,
		Reason:      reason,
		FunderType:  constants.CreditFunderPlatform,
		OrderID:     input.OrderID,
		Reference:   reference,
		Note:        input.Note,
	}
	if err := creditRepo.CreateEntry(entry); err != nil {
		return nil, err
	}

	logger.Infow("store_credit_debited",
		"user_id", input.UserID,
		"amount_cents", input.AmountCents,
		"reference", reference,
	)
	return entry, nil
}

// ReconcileCounter 将冗余计数修正为流水汇总值，返回修正前后的差额
func (s *CreditService) ReconcileCounter(userID uint) (int64, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	available, err := s.creditRepo.SumAvailable(userID, time.Now())
	if err != nil {
		return 0, err
	}
	drift := user.StoreCreditCents - available
	if drift == 0 {
		return 0, nil
	}
	if err := s.userRepo.SetStoreCredit(userID, available); err != nil {
		return 0, err
	}
	logger.Infow("store_credit_counter_reconciled",
		"user_id", userID,
		"drift_cents", drift,
		"ledger_cents", available,
	)
	return drift, nil
}

// ExpiringGrants 查询即将过期的发放记录（过期提醒任务使用）
func (s *CreditService) ExpiringGrants(now time.Time) ([]models.CreditEntry, error) {
	days := s.cfg.ExpiryNoticeDays
	if days <= 0 {
		days = 14
	}
	return s.creditRepo.ListExpiringGrants(now, now.AddDate(0, 0, days))
}
