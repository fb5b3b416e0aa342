package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/makerplace/makerplace/internal/config"
	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/queue"
	"github.com/makerplace/makerplace/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type orderTestEnv struct {
	db       *gorm.DB
	orderSvc *OrderService
	dealSvc  *DealService
	credit   *CreditService
	buyer    *models.User
	shop     *models.Shop
	listing  *models.Listing
}

func setupOrderServiceTest(t *testing.T) *orderTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Shop{}, &models.Listing{},
		&models.Deal{}, &models.DealRedemption{},
		&models.Order{}, &models.CreditEntry{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	buyer := &models.User{Email: "buyer@example.com", PasswordHash: "x", Status: constants.UserStatusActive, ReferralCode: "BUYER1"}
	seller := &models.User{Email: "seller@example.com", PasswordHash: "x", Status: constants.UserStatusActive, ReferralCode: "SELLER1"}
	if err := db.Create([]*models.User{buyer, seller}).Error; err != nil {
		t.Fatalf("create users failed: %v", err)
	}
	shop := &models.Shop{OwnerUserID: seller.ID, Slug: "glassworks", Name: "Glassworks", Status: constants.ShopStatusActive, Currency: "USD"}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("create shop failed: %v", err)
	}
	listing := &models.Listing{ShopID: shop.ID, Slug: "vase", Title: "Blown glass vase", PriceCents: 2500, Status: constants.ListingStatusActive, AdBoosted: true}
	if err := db.Create(listing).Error; err != nil {
		t.Fatalf("create listing failed: %v", err)
	}

	dealSvc := NewDealService(
		repository.NewDealRepository(db),
		repository.NewDealRedemptionRepository(db),
		repository.NewShopRepository(db),
	)
	creditSvc := NewCreditService(db,
		repository.NewCreditRepository(db),
		repository.NewUserRepository(db),
		config.CreditConfig{DefaultExpireDays: 365},
	)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("queue client failed: %v", err)
	}
	billing := config.BillingConfig{
		PlatformFeeBps:       650,
		ProcessingFeeBps:     300,
		AdFeeBps:             400,
		ProcessingFeeFixed:   25,
		ListingFeeCents:      20,
		PaymentExpireMinutes: 15,
	}
	orderSvc := NewOrderService(db,
		repository.NewOrderRepository(db),
		repository.NewListingRepository(db),
		repository.NewShopRepository(db),
		repository.NewUserRepository(db),
		dealSvc, creditSvc, queueClient, billing,
	)
	return &orderTestEnv{db: db, orderSvc: orderSvc, dealSvc: dealSvc, credit: creditSvc, buyer: buyer, shop: shop, listing: listing}
}

func TestOrderServiceCreateOrderStampsFees(t *testing.T) {
	env := setupOrderServiceTest(t)

	order, err := env.orderSvc.CreateOrder(CreateOrderInput{
		BuyerUserID: env.buyer.ID,
		ListingID:   env.listing.ID,
		Quantity:    2,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.SubtotalCents != 5000 {
		t.Fatalf("subtotal = %d, want 5000", order.SubtotalCents)
	}
	if order.TotalCents != 5000 {
		t.Fatalf("total = %d, want 5000", order.TotalCents)
	}
	// 650bp of 5000 = 325
	if order.PlatformFeeCents != 325 {
		t.Fatalf("platform fee = %d, want 325", order.PlatformFeeCents)
	}
	// 300bp of 5000 = 150, 加每单固定 25
	if order.ProcessingFeeCents != 175 {
		t.Fatalf("processing fee = %d, want 175", order.ProcessingFeeCents)
	}
	// 广告投放商品按 400bp 收取成交费
	if order.AdFeeCents != 200 {
		t.Fatalf("ad fee = %d, want 200", order.AdFeeCents)
	}
	if order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("status = %s, want pending_payment", order.Status)
	}
	if order.ExpiresAt == nil {
		t.Fatal("expires_at not set")
	}
}

func TestOrderServiceCreateOrderNoAdFeeWithoutBoost(t *testing.T) {
	env := setupOrderServiceTest(t)
	plain := &models.Listing{ShopID: env.shop.ID, Slug: "bowl", Title: "Bowl", PriceCents: 1000, Status: constants.ListingStatusActive}
	if err := env.db.Create(plain).Error; err != nil {
		t.Fatalf("create listing failed: %v", err)
	}

	order, err := env.orderSvc.CreateOrder(CreateOrderInput{BuyerUserID: env.buyer.ID, ListingID: plain.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.AdFeeCents != 0 {
		t.Fatalf("ad fee = %d, want 0", order.AdFeeCents)
	}
}

func TestOrderServiceCreateOrderWithDealCode(t *testing.T) {
	env := setupOrderServiceTest(t)
	if err := env.db.Create(&models.Deal{ShopID: env.shop.ID, Code: "TEN", Type: constants.DealTypePercent, Value: 10, IsActive: true}).Error; err != nil {
		t.Fatalf("create deal failed: %v", err)
	}

	order, err := env.orderSvc.CreateOrder(CreateOrderInput{
		BuyerUserID: env.buyer.ID,
		ListingID:   env.listing.ID,
		Quantity:    2,
		DealCode:    "TEN",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.DiscountCents != 500 {
		t.Fatalf("discount = %d, want 500", order.DiscountCents)
	}
	if order.TotalCents != 4500 {
		t.Fatalf("total = %d, want 4500", order.TotalCents)
	}
	if order.DealID == nil {
		t.Fatal("deal_id not stamped")
	}
	// 处理费按实付计：300bp of 4500 = 135 + 25
	if order.ProcessingFeeCents != 160 {
		t.Fatalf("processing fee = %d, want 160", order.ProcessingFeeCents)
	}
	// 平台费与广告费按小计计，不受优惠影响
	if order.PlatformFeeCents != 325 || order.AdFeeCents != 200 {
		t.Fatalf("platform/ad = %d/%d, want 325/200", order.PlatformFeeCents, order.AdFeeCents)
	}
}

func TestOrderServiceCreateOrderMinimumNotMet(t *testing.T) {
	env := setupOrderServiceTest(t)
	if err := env.db.Create(&models.Deal{ShopID: env.shop.ID, Code: "BIGMIN", Type: constants.DealTypeFixed, Value: 300, IsActive: true, MinPurchaseCents: 99999}).Error; err != nil {
		t.Fatalf("create deal failed: %v", err)
	}

	_, err := env.orderSvc.CreateOrder(CreateOrderInput{
		BuyerUserID: env.buyer.ID,
		ListingID:   env.listing.ID,
		Quantity:    1,
		DealCode:    "BIGMIN",
	})
	if !errors.Is(err, ErrDealMinimumNotMet) {
		t.Fatalf("err = %v, want ErrDealMinimumNotMet", err)
	}
}

func TestOrderServiceCreateOrderAutoAppliesBestDeal(t *testing.T) {
	env := setupOrderServiceTest(t)
	deals := []models.Deal{
		{ShopID: env.shop.ID, Code: "FIVE", Type: constants.DealTypePercent, Value: 5, IsActive: true},
		{ShopID: env.shop.ID, Code: "FLAT600", Type: constants.DealTypeFixed, Value: 600, IsActive: true},
	}
	if err := env.db.Create(&deals).Error; err != nil {
		t.Fatalf("create deals failed: %v", err)
	}

	order, err := env.orderSvc.CreateOrder(CreateOrderInput{BuyerUserID: env.buyer.ID, ListingID: env.listing.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	// 5% of 5000 = 250 < 600，自动选择固定优惠
	if order.DiscountCents != 600 {
		t.Fatalf("discount = %d, want 600", order.DiscountCents)
	}
}

func TestOrderServiceCreateOrderCreditCappedAndChecked(t *testing.T) {
	env := setupOrderServiceTest(t)
	if _, err := env.credit.Grant(GrantInput{UserID: env.buyer.ID, AmountCents: 10000, Reason: constants.CreditReasonPromo, Reference: "promo:1"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	order, err := env.orderSvc.CreateOrder(CreateOrderInput{
		BuyerUserID: env.buyer.ID,
		ListingID:   env.listing.ID,
		Quantity:    1,
		CreditCents: 99999,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	// 抵扣上限为应付金额
	if order.StoreCreditUsedCents != 2500 {
		t.Fatalf("credit used = %d, want 2500", order.StoreCreditUsedCents)
	}
	if order.TotalCents != 0 {
		t.Fatalf("total = %d, want 0", order.TotalCents)
	}
	if order.ProcessingFeeCents != 0 {
		t.Fatalf("processing fee = %d, want 0 for zero-due order", order.ProcessingFeeCents)
	}
}

func TestOrderServiceCreateOrderCreditInsufficient(t *testing.T) {
	env := setupOrderServiceTest(t)
	if _, err := env.credit.Grant(GrantInput{UserID: env.buyer.ID, AmountCents: 100, Reason: constants.CreditReasonPromo, Reference: "promo:1"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	_, err := env.orderSvc.CreateOrder(CreateOrderInput{
		BuyerUserID: env.buyer.ID,
		ListingID:   env.listing.ID,
		Quantity:    1,
		CreditCents: 500,
	})
	var insErr *InsufficientBalanceError
	if !errors.As(err, &insErr) {
		t.Fatalf("err = %v, want *InsufficientBalanceError", err)
	}
	if insErr.AvailableCents != 100 || insErr.RequestedCents != 500 {
		t.Fatalf("payload = %d/%d, want 100/500", insErr.AvailableCents, insErr.RequestedCents)
	}
}

func TestOrderServiceMarkPaidRedeemsDealAndDebitsCredit(t *testing.T) {
	env := setupOrderServiceTest(t)
	deal := &models.Deal{ShopID: env.shop.ID, Code: "TEN", Type: constants.DealTypePercent, Value: 10, IsActive: true, MaxUses: 5}
	if err := env.db.Create(deal).Error; err != nil {
		t.Fatalf("create deal failed: %v", err)
	}
	if _, err := env.credit.Grant(GrantInput{UserID: env.buyer.ID, AmountCents: 3000, Reason: constants.CreditReasonPromo, Reference: "promo:1"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	order, err := env.orderSvc.CreateOrder(CreateOrderInput{
		BuyerUserID: env.buyer.ID,
		ListingID:   env.listing.ID,
		Quantity:    2,
		DealCode:    "TEN",
		CreditCents: 1000,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	paid, err := env.orderSvc.MarkPaid(order.ID)
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if paid.Status != constants.OrderStatusPaid || paid.PaidAt == nil {
		t.Fatalf("status = %s paid_at = %v", paid.Status, paid.PaidAt)
	}

	var reloadedDeal models.Deal
	if err := env.db.First(&reloadedDeal, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if reloadedDeal.CurrentUses != 1 {
		t.Fatalf("current_uses = %d, want 1", reloadedDeal.CurrentUses)
	}

	balance, err := env.credit.Balance(env.buyer.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 2000 {
		t.Fatalf("balance = %d, want 2000", balance)
	}

	// 重复确认幂等：名额与余额不再变化
	if _, err := env.orderSvc.MarkPaid(order.ID); err != nil {
		t.Fatalf("second mark paid failed: %v", err)
	}
	if err := env.db.First(&reloadedDeal, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if reloadedDeal.CurrentUses != 1 {
		t.Fatalf("current_uses after repeat = %d, want 1", reloadedDeal.CurrentUses)
	}
	if balance, _ = env.credit.Balance(env.buyer.ID); balance != 2000 {
		t.Fatalf("balance after repeat = %d, want 2000", balance)
	}
}

func TestOrderServiceMarkPaidRejectsCanceledOrder(t *testing.T) {
	env := setupOrderServiceTest(t)
	order, err := env.orderSvc.CreateOrder(CreateOrderInput{BuyerUserID: env.buyer.ID, ListingID: env.listing.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := env.orderSvc.CancelOrder(order.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := env.orderSvc.MarkPaid(order.ID); !errors.Is(err, ErrOrderStateInvalid) {
		t.Fatalf("err = %v, want ErrOrderStateInvalid", err)
	}
}

func TestOrderServiceRefundToCredit(t *testing.T) {
	env := setupOrderServiceTest(t)
	deal := &models.Deal{ShopID: env.shop.ID, Code: "TEN", Type: constants.DealTypePercent, Value: 10, IsActive: true, MaxUses: 5}
	if err := env.db.Create(deal).Error; err != nil {
		t.Fatalf("create deal failed: %v", err)
	}

	order, err := env.orderSvc.CreateOrder(CreateOrderInput{BuyerUserID: env.buyer.ID, ListingID: env.listing.ID, Quantity: 2, DealCode: "TEN"})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := env.orderSvc.MarkPaid(order.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	// 部分退款
	partial, err := env.orderSvc.RefundToCredit(order.ID, 1500, "chipped rim")
	if err != nil {
		t.Fatalf("partial refund failed: %v", err)
	}
	if partial.Status != constants.OrderStatusPaid {
		t.Fatalf("status = %s, want paid after partial refund", partial.Status)
	}

	balance, err := env.credit.Balance(env.buyer.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 1500 {
		t.Fatalf("balance = %d, want 1500", balance)
	}

	// 超额退款被拒绝
	if _, err := env.orderSvc.RefundToCredit(order.ID, 99999, ""); !errors.Is(err, ErrRefundExceeds) {
		t.Fatalf("err = %v, want ErrRefundExceeds", err)
	}

	// 退满转为已退款并回退优惠名额
	full, err := env.orderSvc.RefundToCredit(order.ID, 3000, "")
	if err != nil {
		t.Fatalf("full refund failed: %v", err)
	}
	if full.Status != constants.OrderStatusRefunded {
		t.Fatalf("status = %s, want refunded", full.Status)
	}
	var reloadedDeal models.Deal
	if err := env.db.First(&reloadedDeal, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if reloadedDeal.CurrentUses != 0 {
		t.Fatalf("current_uses = %d, want 0 after release", reloadedDeal.CurrentUses)
	}

	// 退款流水由卖家出资
	var entry models.CreditEntry
	if err := env.db.Where("reason = ? AND user_id = ?", constants.CreditReasonRefund, env.buyer.ID).First(&entry).Error; err != nil {
		t.Fatalf("load refund entry failed: %v", err)
	}
	if entry.FunderType != constants.CreditFunderSeller {
		t.Fatalf("funder = %s, want seller", entry.FunderType)
	}
	if entry.ExpiresAt != nil {
		t.Fatal("refund credit should not expire")
	}
}

func TestOrderServiceCancelIfExpired(t *testing.T) {
	env := setupOrderServiceTest(t)
	order, err := env.orderSvc.CreateOrder(CreateOrderInput{BuyerUserID: env.buyer.ID, ListingID: env.listing.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 未过期订单保持待支付
	if err := env.orderSvc.CancelIfExpired(order.ID); err != nil {
		t.Fatalf("cancel if expired failed: %v", err)
	}
	fresh, _ := env.orderSvc.GetOrder(order.ID)
	if fresh.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("status = %s, want pending_payment", fresh.Status)
	}

	past := time.Now().Add(-time.Minute)
	if err := env.db.Model(&models.Order{}).Where("id = ?", order.ID).UpdateColumn("expires_at", past).Error; err != nil {
		t.Fatalf("force expire failed: %v", err)
	}
	if err := env.orderSvc.CancelIfExpired(order.ID); err != nil {
		t.Fatalf("cancel if expired failed: %v", err)
	}
	expired, _ := env.orderSvc.GetOrder(order.ID)
	if expired.Status != constants.OrderStatusCanceled {
		t.Fatalf("status = %s, want canceled", expired.Status)
	}
}
