package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/makerplace/makerplace/internal/config"
	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupCreditServiceTest(t *testing.T) (*CreditService, *gorm.DB, *models.User) {
	t.Helper()
	dsn := fmt.Sprintf("file:credit_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.CreditEntry{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	user := &models.User{Email: "buyer@example.com", PasswordHash: "x", Status: constants.UserStatusActive}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	svc := NewCreditService(db,
		repository.NewCreditRepository(db),
		repository.NewUserRepository(db),
		config.CreditConfig{DefaultExpireDays: 365, ExpiryNoticeDays: 14},
	)
	return svc, db, user
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	return &user
}

func TestCreditServiceGrantUpdatesCounter(t *testing.T) {
	svc, db, user := setupCreditServiceTest(t)

	entry, err := svc.Grant(GrantInput{
		UserID:      user.ID,
		AmountCents: 1500,
		Reason:      constants.CreditReasonPromo,
		Reference:   "promo:launch:1",
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if entry.AmountCents != 1500 {
		t.Fatalf("entry amount = %d, want 1500", entry.AmountCents)
	}
	if entry.ExpiresAt == nil {
		t.Fatal("promo grant should carry default expiry")
	}
	if got := reloadUser(t, db, user.ID).StoreCreditCents; got != 1500 {
		t.Fatalf("counter = %d, want 1500", got)
	}
}

func TestCreditServiceGrantIdempotentByReference(t *testing.T) {
	svc, db, user := setupCreditServiceTest(t)
	input := GrantInput{UserID: user.ID, AmountCents: 500, Reason: constants.CreditReasonGoodwill, Reference: "goodwill:ticket-42"}

	first, err := svc.Grant(input)
	if err != nil {
		t.Fatalf("first grant failed: %v", err)
	}
	second, err := svc.Grant(input)
	if err != nil {
		t.Fatalf("second grant failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second grant created new entry %d, want %d", second.ID, first.ID)
	}
	if got := reloadUser(t, db, user.ID).StoreCreditCents; got != 500 {
		t.Fatalf("counter = %d, want 500 (no double grant)", got)
	}
}

func TestCreditServiceGrantRefundHasNoExpiry(t *testing.T) {
	svc, _, user := setupCreditServiceTest(t)
	entry, err := svc.Grant(GrantInput{
		UserID:      user.ID,
		AmountCents: 800,
		Reason:      constants.CreditReasonRefund,
		Reference:   "refund:order-9",
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if entry.ExpiresAt != nil {
		t.Fatalf("refund grant expires_at = %v, want nil", entry.ExpiresAt)
	}
}

func TestCreditServiceGrantRejectsBadInput(t *testing.T) {
	svc, _, user := setupCreditServiceTest(t)

	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: 0, Reason: constants.CreditReasonPromo, Reference: "x"}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: -100, Reason: constants.CreditReasonPromo, Reference: "y"}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative amount err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Grant(GrantInput{UserID: 9999, AmountCents: 100, Reason: constants.CreditReasonPromo, Reference: "z"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user err = %v, want ErrUserNotFound", err)
	}
}

func TestCreditServiceDebit(t *testing.T) {
	svc, db, user := setupCreditServiceTest(t)
	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: 2000, Reason: constants.CreditReasonPromo, Reference: "promo:1"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	orderID := uint(77)
	entry, err := svc.Debit(DebitInput{UserID: user.ID, AmountCents: 1200, OrderID: &orderID, Reference: "order:77:credit"})
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if entry.AmountCents != -1200 {
		t.Fatalf("entry amount = %d, want -1200", entry.AmountCents)
	}
	if entry.Reason != constants.CreditReasonOrderPayment {
		t.Fatalf("entry reason = %s, want order_payment", entry.Reason)
	}
	if got := reloadUser(t, db, user.ID).StoreCreditCents; got != 800 {
		t.Fatalf("counter = %d, want 800", got)
	}

	balance, err := svc.Balance(user.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 800 {
		t.Fatalf("balance = %d, want 800", balance)
	}
}

func TestCreditServiceDebitInsufficientBalance(t *testing.T) {
	svc, _, user := setupCreditServiceTest(t)
	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: 300, Reason: constants.CreditReasonPromo, Reference: "promo:small"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	_, err := svc.Debit(DebitInput{UserID: user.ID, AmountCents: 500, Reference: "order:1:credit"})
	if !errors.Is(err, ErrCreditInsufficient) {
		t.Fatalf("err = %v, want ErrCreditInsufficient", err)
	}
	var insErr *InsufficientBalanceError
	if !errors.As(err, &insErr) {
		t.Fatalf("err = %v, want *InsufficientBalanceError", err)
	}
	if insErr.AvailableCents != 300 || insErr.RequestedCents != 500 {
		t.Fatalf("payload = %d/%d, want 300/500", insErr.AvailableCents, insErr.RequestedCents)
	}
}

func TestCreditServiceDebitIdempotentByReference(t *testing.T) {
	svc, db, user := setupCreditServiceTest(t)
	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: 1000, Reason: constants.CreditReasonPromo, Reference: "promo:1"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	input := DebitInput{UserID: user.ID, AmountCents: 400, Reference: "order:5:credit"}
	if _, err := svc.Debit(input); err != nil {
		t.Fatalf("first debit failed: %v", err)
	}
	if _, err := svc.Debit(input); err != nil {
		t.Fatalf("second debit failed: %v", err)
	}
	if got := reloadUser(t, db, user.ID).StoreCreditCents; got != 600 {
		t.Fatalf("counter = %d, want 600 (single debit)", got)
	}
}

func TestCreditServiceExpiredGrantsCannotBeSpent(t *testing.T) {
	svc, db, user := setupCreditServiceTest(t)
	expired := time.Now().Add(-time.Hour)
	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: 2000, Reason: constants.CreditReasonPromo, Reference: "promo:old", ExpiresAt: &expired}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	// 冗余计数仍含已过期的 2000，流水汇总才是权威
	if got := reloadUser(t, db, user.ID).StoreCreditCents; got != 2000 {
		t.Fatalf("counter = %d, want 2000", got)
	}

	_, err := svc.Debit(DebitInput{UserID: user.ID, AmountCents: 100, Reference: "order:8:credit"})
	var insErr *InsufficientBalanceError
	if !errors.As(err, &insErr) {
		t.Fatalf("err = %v, want *InsufficientBalanceError", err)
	}
	if insErr.AvailableCents != 0 {
		t.Fatalf("available = %d, want 0 (grant expired)", insErr.AvailableCents)
	}
}

func TestCreditServiceDebitRepairsLaggingCounter(t *testing.T) {
	svc, db, user := setupCreditServiceTest(t)
	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: 1000, Reason: constants.CreditReasonPromo, Reference: "promo:1"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	// 模拟冗余计数落后于流水
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("store_credit_cents", 100).Error; err != nil {
		t.Fatalf("force counter failed: %v", err)
	}

	if _, err := svc.Debit(DebitInput{UserID: user.ID, AmountCents: 600, Reference: "order:3:credit"}); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if got := reloadUser(t, db, user.ID).StoreCreditCents; got != 400 {
		t.Fatalf("counter = %d, want 400 (repaired then debited)", got)
	}
}

func TestCreditServiceBalanceSummary(t *testing.T) {
	svc, _, user := setupCreditServiceTest(t)
	expired := time.Now().Add(-time.Hour)
	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: 1000, Reason: constants.CreditReasonPromo, Reference: "promo:live"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: 900, Reason: constants.CreditReasonPromo, Reference: "promo:old", ExpiresAt: &expired}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if _, err := svc.Debit(DebitInput{UserID: user.ID, AmountCents: 400, Reference: "order:12:credit"}); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	summary, err := svc.BalanceSummary(user.ID)
	if err != nil {
		t.Fatalf("balance summary failed: %v", err)
	}
	if summary.AvailableCents != 600 {
		t.Fatalf("available = %d, want 600", summary.AvailableCents)
	}
	if summary.GrantedCents != 1900 {
		t.Fatalf("granted = %d, want 1900", summary.GrantedCents)
	}
	if summary.ExpiredCents != 900 {
		t.Fatalf("expired = %d, want 900", summary.ExpiredCents)
	}
}

func TestCreditServiceDebitsCannotJointlyOverdraw(t *testing.T) {
	svc, db, user := setupCreditServiceTest(t)
	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: 1000, Reason: constants.CreditReasonPromo, Reference: "promo:1"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	// 两笔各 700 的扣减单独看都够扣，合计超出余额，只允许成功一笔
	if _, err := svc.Debit(DebitInput{UserID: user.ID, AmountCents: 700, Reference: "order:21:credit"}); err != nil {
		t.Fatalf("first debit failed: %v", err)
	}
	// 模拟第二个写入方仍持有扣减前的旧计数
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("store_credit_cents", 1000).Error; err != nil {
		t.Fatalf("force stale counter failed: %v", err)
	}

	_, err := svc.Debit(DebitInput{UserID: user.ID, AmountCents: 700, Reference: "order:22:credit"})
	var insErr *InsufficientBalanceError
	if !errors.As(err, &insErr) {
		t.Fatalf("second debit err = %v, want *InsufficientBalanceError", err)
	}
	if insErr.AvailableCents != 300 || insErr.RequestedCents != 700 {
		t.Fatalf("payload = %d/%d, want 300/700", insErr.AvailableCents, insErr.RequestedCents)
	}

	balance, err := svc.Balance(user.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 300 {
		t.Fatalf("balance = %d, want 300 (single debit applied)", balance)
	}
	var usageCount int64
	if err := db.Model(&models.CreditEntry{}).Where("user_id = ? AND amount_cents < 0", user.ID).Count(&usageCount).Error; err != nil {
		t.Fatalf("count usage entries failed: %v", err)
	}
	if usageCount != 1 {
		t.Fatalf("usage entries = %d, want 1", usageCount)
	}
}

func TestCreditServiceReconcileCounter(t *testing.T) {
	svc, db, user := setupCreditServiceTest(t)
	expired := time.Now().Add(-time.Hour)
	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: 900, Reason: constants.CreditReasonPromo, Reference: "promo:old", ExpiresAt: &expired}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if _, err := svc.Grant(GrantInput{UserID: user.ID, AmountCents: 250, Reason: constants.CreditReasonGoodwill, Reference: "goodwill:1"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	drift, err := svc.ReconcileCounter(user.ID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if drift != 900 {
		t.Fatalf("drift = %d, want 900 (expired grant)", drift)
	}
	if got := reloadUser(t, db, user.ID).StoreCreditCents; got != 250 {
		t.Fatalf("counter = %d, want 250", got)
	}
}
