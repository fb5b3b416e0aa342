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

func setupPayoutRepositoryTest(t *testing.T) (*GormPayoutRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payout_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.ListingFee{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewPayoutRepository(db), db
}

func TestPayoutRepositorySumPaidOrders(t *testing.T) {
	repo, db := setupPayoutRepositoryTest(t)

	jan15 := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	jan20 := time.Date(2026, time.January, 20, 9, 30, 0, 0, time.UTC)
	feb01 := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

	orders := []models.Order{
		{
			OrderNo: "MP-1", ShopID: 1, BuyerUserID: 10, ListingID: 5, Quantity: 1,
			Status: constants.OrderStatusPaid, SubtotalCents: 10000,
			PlatformFeeCents: 650, ProcessingFeeCents: 325, AdFeeCents: 0,
			PaidAt: &jan15, CreatedAt: jan15,
		},
		{
			OrderNo: "MP-2", ShopID: 1, BuyerUserID: 12, ListingID: 6, Quantity: 1,
			Status: constants.OrderStatusPaid, SubtotalCents: 4000,
			PlatformFeeCents: 260, ProcessingFeeCents: 145, AdFeeCents: 480,
			PaidAt: &jan20, CreatedAt: jan20,
		},
		// 已退款订单不计入
		{
			OrderNo: "MP-3", ShopID: 1, BuyerUserID: 11, ListingID: 5, Quantity: 2,
			Status: constants.OrderStatusRefunded, SubtotalCents: 6000,
			PlatformFeeCents: 390, ProcessingFeeCents: 210, AdFeeCents: 720,
			PaidAt: &jan20, CreatedAt: jan20,
		},
		// 下月订单不计入
		{
			OrderNo: "MP-4", ShopID: 1, BuyerUserID: 10, ListingID: 5, Quantity: 1,
			Status: constants.OrderStatusPaid, SubtotalCents: 7777,
			PlatformFeeCents: 505, PaidAt: &feb01, CreatedAt: feb01,
		},
		// 未支付订单不计入
		{
			OrderNo: "MP-5", ShopID: 1, BuyerUserID: 10, ListingID: 5, Quantity: 1,
			Status: constants.OrderStatusPendingPayment, SubtotalCents: 5000, CreatedAt: jan15,
		},
		// 其他店铺不计入
		{
			OrderNo: "MP-6", ShopID: 2, BuyerUserID: 10, ListingID: 9, Quantity: 1,
			Status: constants.OrderStatusPaid, SubtotalCents: 8888, PaidAt: &jan15, CreatedAt: jan15,
		},
	}
	if err := db.Create(&orders).Error; err != nil {
		t.Fatalf("create orders failed: %v", err)
	}

	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.January, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	row, err := repo.SumPaidOrders(1, from, to)
	if err != nil {
		t.Fatalf("sum paid orders failed: %v", err)
	}
	if row.OrdersCount != 2 {
		t.Fatalf("orders count want 2 got %d", row.OrdersCount)
	}
	if row.SubtotalCents != 14000 {
		t.Fatalf("subtotal want 14000 got %d", row.SubtotalCents)
	}
	if row.PlatformFeeCents != 910 {
		t.Fatalf("platform fee want 910 got %d", row.PlatformFeeCents)
	}
	if row.ProcessingFeeCents != 470 {
		t.Fatalf("processing fee want 470 got %d", row.ProcessingFeeCents)
	}
	if row.AdFeeCents != 480 {
		t.Fatalf("ad fee want 480 got %d", row.AdFeeCents)
	}
}

func TestPayoutRepositorySumPaidOrdersEmptyPeriod(t *testing.T) {
	repo, _ := setupPayoutRepositoryTest(t)

	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 31, 23, 59, 59, 0, time.UTC)
	row, err := repo.SumPaidOrders(1, from, to)
	if err != nil {
		t.Fatalf("sum paid orders failed: %v", err)
	}
	if row.OrdersCount != 0 || row.SubtotalCents != 0 || row.PlatformFeeCents != 0 {
		t.Fatalf("expected zero sums, got %+v", row)
	}
}

func TestPayoutRepositorySumListingFees(t *testing.T) {
	repo, db := setupPayoutRepositoryTest(t)

	fees := []models.ListingFee{
		{ShopID: 1, ListingID: 5, AmountCents: 20, Year: 2026, Month: 1, Reason: constants.ListingFeeReasonInitial},
		{ShopID: 1, ListingID: 6, AmountCents: 20, Year: 2026, Month: 1, Reason: constants.ListingFeeReasonRenewal},
		{ShopID: 1, ListingID: 5, AmountCents: 20, Year: 2026, Month: 2, Reason: constants.ListingFeeReasonRenewal},
		{ShopID: 2, ListingID: 9, AmountCents: 20, Year: 2026, Month: 1, Reason: constants.ListingFeeReasonInitial},
	}
	if err := db.Create(&fees).Error; err != nil {
		t.Fatalf("create listing fees failed: %v", err)
	}

	sum, err := repo.SumListingFees(1, 2026, 1)
	if err != nil {
		t.Fatalf("sum listing fees failed: %v", err)
	}
	if sum != 40 {
		t.Fatalf("listing fee sum want 40 got %d", sum)
	}
}
