package service

import (
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

type referralTestEnv struct {
	db       *gorm.DB
	svc      *ReferralService
	credit   *CreditService
	referrer *models.User
	referred *models.User
}

func setupReferralServiceTest(t *testing.T) *referralTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:referral_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Order{}, &models.CreditEntry{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	referrer := &models.User{Email: "referrer@example.com", PasswordHash: "x", Status: constants.UserStatusActive, ReferralCode: "REF123"}
	if err := db.Create(referrer).Error; err != nil {
		t.Fatalf("create referrer failed: %v", err)
	}
	referred := &models.User{Email: "newbie@example.com", PasswordHash: "x", Status: constants.UserStatusActive, ReferralCode: "NEW456", ReferredByUserID: &referrer.ID}
	if err := db.Create(referred).Error; err != nil {
		t.Fatalf("create referred failed: %v", err)
	}

	creditSvc := NewCreditService(db,
		repository.NewCreditRepository(db),
		repository.NewUserRepository(db),
		config.CreditConfig{},
	)
	svc := NewReferralService(
		repository.NewUserRepository(db),
		repository.NewOrderRepository(db),
		creditSvc,
		config.ReferralConfig{Enabled: true, RewardCents: 500, RewardExpireDays: 90},
	)
	return &referralTestEnv{db: db, svc: svc, credit: creditSvc, referrer: referrer, referred: referred}
}

func seedPaidBuyerOrder(t *testing.T, db *gorm.DB, buyerID uint, n int) *models.Order {
	t.Helper()
	now := time.Now()
	order := &models.Order{
		OrderNo:       fmt.Sprintf("MP-ref-%d-%d", buyerID, n),
		ShopID:        1,
		BuyerUserID:   buyerID,
		ListingID:     1,
		Quantity:      1,
		Status:        constants.OrderStatusPaid,
		SubtotalCents: 2000,
		TotalCents:    2000,
		PaidAt:        &now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order failed: %v", err)
	}
	return order
}

func TestReferralServiceRewardsFirstPaidOrder(t *testing.T) {
	env := setupReferralServiceTest(t)
	order := seedPaidBuyerOrder(t, env.db, env.referred.ID, 1)

	if err := env.svc.RewardForOrder(order.ID); err != nil {
		t.Fatalf("reward failed: %v", err)
	}

	balance, err := env.credit.Balance(env.referrer.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 500 {
		t.Fatalf("referrer balance = %d, want 500", balance)
	}

	var entry models.CreditEntry
	if err := env.db.Where("user_id = ?", env.referrer.ID).First(&entry).Error; err != nil {
		t.Fatalf("load entry failed: %v", err)
	}
	if entry.Reason != constants.CreditReasonReferralReward {
		t.Fatalf("reason = %s, want referral_reward", entry.Reason)
	}
	if entry.ExpiresAt == nil {
		t.Fatal("reward should carry expiry")
	}
}

func TestReferralServiceRewardIdempotent(t *testing.T) {
	env := setupReferralServiceTest(t)
	order := seedPaidBuyerOrder(t, env.db, env.referred.ID, 1)

	for i := 0; i < 3; i++ {
		if err := env.svc.RewardForOrder(order.ID); err != nil {
			t.Fatalf("reward %d failed: %v", i, err)
		}
	}
	balance, _ := env.credit.Balance(env.referrer.ID)
	if balance != 500 {
		t.Fatalf("balance = %d, want 500 (single reward)", balance)
	}
}

func TestReferralServiceNoRewardForSecondOrder(t *testing.T) {
	env := setupReferralServiceTest(t)
	seedPaidBuyerOrder(t, env.db, env.referred.ID, 1)
	second := seedPaidBuyerOrder(t, env.db, env.referred.ID, 2)

	if err := env.svc.RewardForOrder(second.ID); err != nil {
		t.Fatalf("reward failed: %v", err)
	}
	balance, _ := env.credit.Balance(env.referrer.ID)
	if balance != 0 {
		t.Fatalf("balance = %d, want 0 (not first order)", balance)
	}
}

func TestReferralServiceNoRewardWithoutReferrer(t *testing.T) {
	env := setupReferralServiceTest(t)
	organic := &models.User{Email: "organic@example.com", PasswordHash: "x", Status: constants.UserStatusActive, ReferralCode: "ORG789"}
	if err := env.db.Create(organic).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	order := seedPaidBuyerOrder(t, env.db, organic.ID, 1)

	if err := env.svc.RewardForOrder(order.ID); err != nil {
		t.Fatalf("reward failed: %v", err)
	}
	balance, _ := env.credit.Balance(env.referrer.ID)
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestReferralServiceDisabled(t *testing.T) {
	env := setupReferralServiceTest(t)
	env.svc.cfg.Enabled = false
	order := seedPaidBuyerOrder(t, env.db, env.referred.ID, 1)

	if err := env.svc.RewardForOrder(order.ID); err != nil {
		t.Fatalf("reward failed: %v", err)
	}
	balance, _ := env.credit.Balance(env.referrer.ID)
	if balance != 0 {
		t.Fatalf("balance = %d, want 0 when disabled", balance)
	}
}

func TestReferralServiceBindReferrer(t *testing.T) {
	env := setupReferralServiceTest(t)
	user := &models.User{Email: "late@example.com", PasswordHash: "x", ReferralCode: "LATE1"}

	if err := env.svc.BindReferrer(user, "REF123"); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if user.ReferredByUserID == nil || *user.ReferredByUserID != env.referrer.ID {
		t.Fatalf("referred_by = %v, want %d", user.ReferredByUserID, env.referrer.ID)
	}

	// 未知推荐码与自我推荐都静默忽略
	other := &models.User{Email: "o@example.com", PasswordHash: "x", ReferralCode: "OTH1"}
	if err := env.svc.BindReferrer(other, "NOPE"); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if other.ReferredByUserID != nil {
		t.Fatal("unknown code should not bind")
	}
}
