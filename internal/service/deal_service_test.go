package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupDealServiceTest(t *testing.T) (*DealService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:deal_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Shop{}, &models.Deal{}, &models.DealRedemption{}, &models.Order{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	svc := NewDealService(
		repository.NewDealRepository(db),
		repository.NewDealRedemptionRepository(db),
		repository.NewShopRepository(db),
	)
	return svc, db
}

func createTestDeal(t *testing.T, db *gorm.DB, deal *models.Deal) *models.Deal {
	t.Helper()
	if err := db.Create(deal).Error; err != nil {
		t.Fatalf("create deal failed: %v", err)
	}
	return deal
}

func TestDealServiceResolveByCodePercent(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	createTestDeal(t, db, &models.Deal{
		ShopID: 1, Code: "SPRING10", Type: constants.DealTypePercent, Value: 10, IsActive: true,
	})

	quote, err := svc.ResolveByCode(1, " SPRING10 ", 2550)
	if err != nil {
		t.Fatalf("resolve by code failed: %v", err)
	}
	// round(2550 * 10 / 100) = 255
	if quote.DiscountCents != 255 {
		t.Fatalf("discount = %d, want 255", quote.DiscountCents)
	}
	if quote.PayableCents != 2295 {
		t.Fatalf("payable = %d, want 2295", quote.PayableCents)
	}
}

func TestDealServiceResolveByCodePercentRounding(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	createTestDeal(t, db, &models.Deal{
		ShopID: 1, Code: "HALF15", Type: constants.DealTypePercent, Value: 15, IsActive: true,
	})

	// 15% of 1010 = 151.5，四舍五入到 152
	quote, err := svc.ResolveByCode(1, "HALF15", 1010)
	if err != nil {
		t.Fatalf("resolve by code failed: %v", err)
	}
	if quote.DiscountCents != 152 {
		t.Fatalf("discount = %d, want 152", quote.DiscountCents)
	}
}

func TestDealServiceResolveFixedClampedToSubtotal(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	deal := createTestDeal(t, db, &models.Deal{
		ShopID: 1, Code: "FLAT5", Type: constants.DealTypeFixed, Value: 500, IsActive: true,
	})

	quote, err := svc.ResolveByID(deal.ID, 300)
	if err != nil {
		t.Fatalf("resolve by id failed: %v", err)
	}
	if quote.DiscountCents != 300 {
		t.Fatalf("discount = %d, want 300 (clamped)", quote.DiscountCents)
	}
	if quote.PayableCents != 0 {
		t.Fatalf("payable = %d, want 0", quote.PayableCents)
	}
}

func TestDealServiceResolveValidation(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	cases := []struct {
		name    string
		deal    models.Deal
		wantErr error
	}{
		{"inactive", models.Deal{ShopID: 1, Code: "OFF", Type: constants.DealTypeFixed, Value: 100, IsActive: false}, ErrDealInactive},
		{"not started", models.Deal{ShopID: 1, Code: "SOON", Type: constants.DealTypeFixed, Value: 100, IsActive: true, StartsAt: &future}, ErrDealNotStarted},
		{"expired", models.Deal{ShopID: 1, Code: "GONE", Type: constants.DealTypeFixed, Value: 100, IsActive: true, EndsAt: &past}, ErrDealExpired},
		{"usage exceeded", models.Deal{ShopID: 1, Code: "FULL", Type: constants.DealTypeFixed, Value: 100, IsActive: true, MaxUses: 3, CurrentUses: 3}, ErrDealUsageExceeded},
		{"minimum not met", models.Deal{ShopID: 1, Code: "BIG", Type: constants.DealTypeFixed, Value: 100, IsActive: true, MinPurchaseCents: 5000}, ErrDealMinimumNotMet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			createTestDeal(t, db, &tc.deal)
			_, err := svc.ResolveByID(tc.deal.ID, 1000)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestDealServiceMinimumNotMetMessageStatesThreshold(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	deal := createTestDeal(t, db, &models.Deal{
		ShopID: 1, Code: "MIN10", Type: constants.DealTypeFixed, Value: 200, IsActive: true, MinPurchaseCents: 1000,
	})

	_, err := svc.ResolveByID(deal.ID, 999)
	var minErr *MinimumNotMetError
	if !errors.As(err, &minErr) {
		t.Fatalf("err = %v, want *MinimumNotMetError", err)
	}
	if minErr.MinimumCents != 1000 {
		t.Fatalf("minimum = %d, want 1000", minErr.MinimumCents)
	}
	if want := "$10.00"; !strings.Contains(minErr.Error(), want) {
		t.Fatalf("message %q does not contain %q", minErr.Error(), want)
	}
}

func TestDealServiceResolveByCodeNotFound(t *testing.T) {
	svc, _ := setupDealServiceTest(t)
	_, err := svc.ResolveByCode(1, "NOPE", 1000)
	if !errors.Is(err, ErrDealNotFound) {
		t.Fatalf("err = %v, want ErrDealNotFound", err)
	}
}

func TestDealServiceResolveCodeScopedToShop(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	createTestDeal(t, db, &models.Deal{
		ShopID: 2, Code: "OTHER", Type: constants.DealTypeFixed, Value: 100, IsActive: true,
	})

	_, err := svc.ResolveByCode(1, "OTHER", 1000)
	if !errors.Is(err, ErrDealNotFound) {
		t.Fatalf("err = %v, want ErrDealNotFound", err)
	}
}

func TestDealServiceResolveBestForListingPicksLargestDiscount(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	listingID := uint(9)

	createTestDeal(t, db, &models.Deal{ShopID: 1, Code: "SHOPWIDE", Type: constants.DealTypePercent, Value: 5, IsActive: true})
	createTestDeal(t, db, &models.Deal{ShopID: 1, ListingID: &listingID, Code: "FORTHIS", Type: constants.DealTypeFixed, Value: 400, IsActive: true})
	// 门槛不满足的候选应被跳过，即便折扣更大
	createTestDeal(t, db, &models.Deal{ShopID: 1, ListingID: &listingID, Code: "TOOBIG", Type: constants.DealTypeFixed, Value: 900, IsActive: true, MinPurchaseCents: 99999})

	quote, err := svc.ResolveBestForListing(1, listingID, 2000)
	if err != nil {
		t.Fatalf("resolve best failed: %v", err)
	}
	if quote == nil {
		t.Fatal("quote is nil, want best deal")
	}
	// 5% of 2000 = 100 < 400
	if quote.Deal.Code != "FORTHIS" || quote.DiscountCents != 400 {
		t.Fatalf("best = %s/%d, want FORTHIS/400", quote.Deal.Code, quote.DiscountCents)
	}
}

func TestDealServiceResolveBestForListingNoneAvailable(t *testing.T) {
	svc, _ := setupDealServiceTest(t)
	quote, err := svc.ResolveBestForListing(1, 9, 2000)
	if err != nil {
		t.Fatalf("resolve best failed: %v", err)
	}
	if quote != nil {
		t.Fatalf("quote = %+v, want nil", quote)
	}
}

func TestDealServiceResolveIsSideEffectFree(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	deal := createTestDeal(t, db, &models.Deal{
		ShopID: 1, Code: "PURE", Type: constants.DealTypeFixed, Value: 100, IsActive: true, MaxUses: 5,
	})

	for i := 0; i < 3; i++ {
		if _, err := svc.ResolveByID(deal.ID, 1000); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
	}

	var reloaded models.Deal
	if err := db.First(&reloaded, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if reloaded.CurrentUses != 0 {
		t.Fatalf("current_uses = %d, want 0 after resolution only", reloaded.CurrentUses)
	}
}

func TestDealServiceRedeemInTxIdempotent(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	deal := createTestDeal(t, db, &models.Deal{
		ShopID: 1, Code: "ONCE", Type: constants.DealTypeFixed, Value: 100, IsActive: true, MaxUses: 10,
	})
	order := &models.Order{OrderNo: "MP-1", ShopID: 1, BuyerUserID: 3, ListingID: 9, Quantity: 1, Status: constants.OrderStatusPendingPayment, SubtotalCents: 1000, TotalCents: 900}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.RedeemInTx(tx, deal, order, 100)
		})
		if err != nil {
			t.Fatalf("redeem %d failed: %v", i, err)
		}
	}

	var reloaded models.Deal
	if err := db.First(&reloaded, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if reloaded.CurrentUses != 1 {
		t.Fatalf("current_uses = %d, want 1 (idempotent redeem)", reloaded.CurrentUses)
	}

	var count int64
	if err := db.Model(&models.DealRedemption{}).Where("deal_id = ?", deal.ID).Count(&count).Error; err != nil {
		t.Fatalf("count redemptions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("redemptions = %d, want 1", count)
	}
}

func TestDealServiceRedeemInTxUsageExceeded(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	deal := createTestDeal(t, db, &models.Deal{
		ShopID: 1, Code: "LAST", Type: constants.DealTypeFixed, Value: 100, IsActive: true, MaxUses: 1, CurrentUses: 1,
	})
	order := &models.Order{OrderNo: "MP-2", ShopID: 1, BuyerUserID: 3, ListingID: 9, Quantity: 1, Status: constants.OrderStatusPendingPayment, SubtotalCents: 1000, TotalCents: 900}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.RedeemInTx(tx, deal, order, 100)
	})
	if !errors.Is(err, ErrDealUsageExceeded) {
		t.Fatalf("err = %v, want ErrDealUsageExceeded", err)
	}
}

func TestDealServiceCreateDealDuplicateCode(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	shop := &models.Shop{OwnerUserID: 1, Slug: "pots", Name: "Pots", Status: constants.ShopStatusActive, Currency: "USD"}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("create shop failed: %v", err)
	}

	first := &models.Deal{ShopID: shop.ID, Code: "DUP", Type: constants.DealTypeFixed, Value: 100, IsActive: true}
	if err := svc.CreateDeal(first); err != nil {
		t.Fatalf("create first deal failed: %v", err)
	}

	dup := &models.Deal{ShopID: shop.ID, Code: "DUP", Type: constants.DealTypeFixed, Value: 200, IsActive: true}
	if err := svc.CreateDeal(dup); !errors.Is(err, ErrDealCodeExists) {
		t.Fatalf("err = %v, want ErrDealCodeExists", err)
	}
}

func TestDealServiceCreateDealRejectsBadConfig(t *testing.T) {
	svc, db := setupDealServiceTest(t)
	shop := &models.Shop{OwnerUserID: 1, Slug: "mugs", Name: "Mugs", Status: constants.ShopStatusActive, Currency: "USD"}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("create shop failed: %v", err)
	}

	cases := []struct {
		name string
		deal models.Deal
	}{
		{"percent over 100", models.Deal{ShopID: shop.ID, Code: "P200", Type: constants.DealTypePercent, Value: 200}},
		{"zero value", models.Deal{ShopID: shop.ID, Code: "ZERO", Type: constants.DealTypeFixed, Value: 0}},
		{"unknown type", models.Deal{ShopID: shop.ID, Code: "WAT", Type: "bogo", Value: 100}},
		{"empty code", models.Deal{ShopID: shop.ID, Code: "  ", Type: constants.DealTypeFixed, Value: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.CreateDeal(&tc.deal); !errors.Is(err, ErrDealInvalid) {
				t.Fatalf("err = %v, want ErrDealInvalid", err)
			}
		})
	}
}
