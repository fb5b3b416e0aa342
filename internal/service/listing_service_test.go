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

func setupListingServiceTest(t *testing.T) (*ListingService, *gorm.DB, *models.Shop) {
	t.Helper()
	dsn := fmt.Sprintf("file:listing_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Shop{}, &models.Listing{}, &models.ListingFee{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	shop := &models.Shop{OwnerUserID: 1, Slug: "woodshop", Name: "Woodshop", Status: constants.ShopStatusActive, Currency: "USD"}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("create shop failed: %v", err)
	}
	svc := NewListingService(db,
		repository.NewListingRepository(db),
		repository.NewShopRepository(db),
		repository.NewListingFeeRepository(db),
		config.BillingConfig{ListingFeeCents: 20},
	)
	return svc, db, shop
}

func TestListingServiceCreateChargesInitialFee(t *testing.T) {
	svc, db, shop := setupListingServiceTest(t)

	listing, err := svc.CreateListing(CreateListingInput{
		ShopID:     shop.ID,
		Slug:       "Walnut-Board",
		Title:      "Walnut cutting board",
		PriceCents: 4500,
	})
	if err != nil {
		t.Fatalf("create listing failed: %v", err)
	}
	if listing.Slug != "walnut-board" {
		t.Fatalf("slug = %s, want walnut-board (normalized)", listing.Slug)
	}

	var fee models.ListingFee
	if err := db.Where("listing_id = ?", listing.ID).First(&fee).Error; err != nil {
		t.Fatalf("load fee failed: %v", err)
	}
	if fee.AmountCents != 20 || fee.Reason != constants.ListingFeeReasonInitial {
		t.Fatalf("fee = %d/%s, want 20/initial", fee.AmountCents, fee.Reason)
	}
	now := time.Now()
	if fee.Year != now.Year() || fee.Month != int(now.Month()) {
		t.Fatalf("fee period = %d-%d, want current month", fee.Year, fee.Month)
	}
}

func TestListingServiceCreateValidation(t *testing.T) {
	svc, _, shop := setupListingServiceTest(t)

	if _, err := svc.CreateListing(CreateListingInput{ShopID: shop.ID, Slug: "x", Title: "X", PriceCents: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero price err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.CreateListing(CreateListingInput{ShopID: 9999, Slug: "x", Title: "X", PriceCents: 100}); !errors.Is(err, ErrShopNotFound) {
		t.Fatalf("missing shop err = %v, want ErrShopNotFound", err)
	}

	if _, err := svc.CreateListing(CreateListingInput{ShopID: shop.ID, Slug: "dup", Title: "A", PriceCents: 100}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.CreateListing(CreateListingInput{ShopID: shop.ID, Slug: "DUP", Title: "B", PriceCents: 200}); !errors.Is(err, ErrListingExists) {
		t.Fatalf("duplicate slug err = %v, want ErrListingExists", err)
	}
}

func TestListingServiceCreateRejectedForSuspendedShop(t *testing.T) {
	svc, db, shop := setupListingServiceTest(t)
	if err := db.Model(&models.Shop{}).Where("id = ?", shop.ID).UpdateColumn("status", constants.ShopStatusSuspended).Error; err != nil {
		t.Fatalf("suspend shop failed: %v", err)
	}

	_, err := svc.CreateListing(CreateListingInput{ShopID: shop.ID, Slug: "x", Title: "X", PriceCents: 100})
	if !errors.Is(err, ErrShopSuspended) {
		t.Fatalf("err = %v, want ErrShopSuspended", err)
	}
}

func TestListingServiceRenewChargesRenewalFee(t *testing.T) {
	svc, db, shop := setupListingServiceTest(t)
	listing, err := svc.CreateListing(CreateListingInput{ShopID: shop.ID, Slug: "stool", Title: "Stool", PriceCents: 8000})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.DeactivateListing(listing.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	renewed, err := svc.RenewListing(listing.ID)
	if err != nil {
		t.Fatalf("renew failed: %v", err)
	}
	if renewed.Status != constants.ListingStatusActive {
		t.Fatalf("status = %s, want active", renewed.Status)
	}

	var count int64
	if err := db.Model(&models.ListingFee{}).Where("listing_id = ?", listing.ID).Count(&count).Error; err != nil {
		t.Fatalf("count fees failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("fee rows = %d, want 2 (initial + renewal)", count)
	}
	var renewal models.ListingFee
	if err := db.Where("listing_id = ? AND reason = ?", listing.ID, constants.ListingFeeReasonRenewal).First(&renewal).Error; err != nil {
		t.Fatalf("load renewal fee failed: %v", err)
	}
	if renewal.AmountCents != 20 {
		t.Fatalf("renewal fee = %d, want 20", renewal.AmountCents)
	}
}

func TestListingServiceUpdateAdBoost(t *testing.T) {
	svc, _, shop := setupListingServiceTest(t)
	listing, err := svc.CreateListing(CreateListingInput{ShopID: shop.ID, Slug: "lamp", Title: "Lamp", PriceCents: 3000})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if listing.AdBoosted {
		t.Fatal("ad_boosted should default false")
	}

	boosted := true
	updated, err := svc.UpdateListing(listing.ID, UpdateListingInput{AdBoosted: &boosted})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.AdBoosted {
		t.Fatal("ad_boosted not updated")
	}
}

func setupShopServiceTest(t *testing.T) (*ShopService, *gorm.DB, *models.User) {
	t.Helper()
	dsn := fmt.Sprintf("file:shop_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Shop{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	owner := &models.User{Email: "maker@example.com", PasswordHash: "x", Status: constants.UserStatusActive, ReferralCode: "MAKER1"}
	if err := db.Create(owner).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	svc := NewShopService(repository.NewShopRepository(db), repository.NewUserRepository(db))
	return svc, db, owner
}

func TestShopServiceCreateShop(t *testing.T) {
	svc, _, owner := setupShopServiceTest(t)

	shop, err := svc.CreateShop(CreateShopInput{OwnerUserID: owner.ID, Slug: "Pottery-Lane", Name: "Pottery Lane"})
	if err != nil {
		t.Fatalf("create shop failed: %v", err)
	}
	if shop.Slug != "pottery-lane" {
		t.Fatalf("slug = %s, want pottery-lane", shop.Slug)
	}
	if shop.Currency != constants.SiteCurrencyDefault {
		t.Fatalf("currency = %s, want %s", shop.Currency, constants.SiteCurrencyDefault)
	}
	if shop.Status != constants.ShopStatusActive {
		t.Fatalf("status = %s, want active", shop.Status)
	}

	if _, err := svc.CreateShop(CreateShopInput{OwnerUserID: owner.ID, Slug: "pottery-lane", Name: "Copycat"}); !errors.Is(err, ErrShopExists) {
		t.Fatalf("duplicate slug err = %v, want ErrShopExists", err)
	}
}

func TestShopServiceSuspendAndReinstate(t *testing.T) {
	svc, _, owner := setupShopServiceTest(t)
	shop, err := svc.CreateShop(CreateShopInput{OwnerUserID: owner.ID, Slug: "shed", Name: "Shed"})
	if err != nil {
		t.Fatalf("create shop failed: %v", err)
	}

	suspended, err := svc.SuspendShop(shop.ID)
	if err != nil {
		t.Fatalf("suspend failed: %v", err)
	}
	if suspended.Status != constants.ShopStatusSuspended {
		t.Fatalf("status = %s, want suspended", suspended.Status)
	}

	restored, err := svc.ReinstateShop(shop.ID)
	if err != nil {
		t.Fatalf("reinstate failed: %v", err)
	}
	if restored.Status != constants.ShopStatusActive {
		t.Fatalf("status = %s, want active", restored.Status)
	}
}
