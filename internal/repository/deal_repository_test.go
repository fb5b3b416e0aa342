package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupDealRepositoryTest(t *testing.T) (*GormDealRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:deal_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Deal{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewDealRepository(db), db
}

func TestDealRepositoryIncrementCurrentUsesRespectsLimit(t *testing.T) {
	repo, db := setupDealRepositoryTest(t)

	deal := models.Deal{
		ShopID:   1,
		Code:     "SPRING10",
		Type:     constants.DealTypePercent,
		Value:    10,
		MaxUses:  2,
		IsActive: true,
	}
	if err := db.Create(&deal).Error; err != nil {
		t.Fatalf("create deal failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		ok, err := repo.IncrementCurrentUses(deal.ID)
		if err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
		if !ok {
			t.Fatalf("increment %d should succeed", i)
		}
	}

	ok, err := repo.IncrementCurrentUses(deal.ID)
	if err != nil {
		t.Fatalf("increment over limit failed: %v", err)
	}
	if ok {
		t.Fatalf("increment beyond max_uses should be rejected")
	}

	var got models.Deal
	if err := db.First(&got, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if got.CurrentUses != 2 {
		t.Fatalf("current_uses want 2 got %d", got.CurrentUses)
	}
}

func TestDealRepositoryIncrementCurrentUsesUnlimited(t *testing.T) {
	repo, db := setupDealRepositoryTest(t)

	deal := models.Deal{
		ShopID:   1,
		Code:     "FOREVER",
		Type:     constants.DealTypeFixed,
		Value:    500,
		MaxUses:  0,
		IsActive: true,
	}
	if err := db.Create(&deal).Error; err != nil {
		t.Fatalf("create deal failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		ok, err := repo.IncrementCurrentUses(deal.ID)
		if err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
		if !ok {
			t.Fatalf("unlimited deal increment %d should succeed", i)
		}
	}
}

func TestDealRepositoryListActiveForListing(t *testing.T) {
	repo, db := setupDealRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	listingID := uint(42)
	otherListing := uint(99)

	deals := []models.Deal{
		{ShopID: 1, Code: "SHOPWIDE", Type: constants.DealTypePercent, Value: 5, IsActive: true},
		{ShopID: 1, Code: "FORTHIS", Type: constants.DealTypePercent, Value: 15, ListingID: &listingID, IsActive: true},
		{ShopID: 1, Code: "OTHER", Type: constants.DealTypePercent, Value: 20, ListingID: &otherListing, IsActive: true},
		{ShopID: 1, Code: "DISABLED", Type: constants.DealTypePercent, Value: 30, IsActive: false},
		{ShopID: 1, Code: "NOTYET", Type: constants.DealTypePercent, Value: 40, StartsAt: &future, IsActive: true},
		{ShopID: 1, Code: "EXPIRED", Type: constants.DealTypePercent, Value: 50, EndsAt: &past, IsActive: true},
		{ShopID: 2, Code: "ELSEWHERE", Type: constants.DealTypePercent, Value: 60, IsActive: true},
	}
	if err := db.Create(&deals).Error; err != nil {
		t.Fatalf("create deals failed: %v", err)
	}

	got, err := repo.ListActiveForListing(1, listingID, now)
	if err != nil {
		t.Fatalf("list active for listing failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("active deals want 2 got %d", len(got))
	}
	codes := map[string]bool{}
	for _, d := range got {
		codes[d.Code] = true
	}
	if !codes["SHOPWIDE"] || !codes["FORTHIS"] {
		t.Fatalf("unexpected active deal codes: %v", codes)
	}
}
