package main

import (
	"log"
	"time"

	"github.com/makerplace/makerplace/internal/config"
	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/models"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 演示账号（卖家 + 买家）
	seller := seedUser(stdLog, "seller@example.com", "卖家小王", "SELLER01")
	buyer := seedUser(stdLog, "buyer@example.com", "买家小李", "BUYER001")
	if seller == nil || buyer == nil {
		stdLog.Fatalf("Failed to seed demo users")
	}

	// 演示店铺
	shop := seedShop(stdLog, seller.ID, "handmade-leather", "手作皮具工坊")
	if shop == nil {
		stdLog.Fatalf("Failed to seed demo shop")
	}

	// 演示商品
	listings := []models.Listing{
		{ShopID: shop.ID, Slug: "leather-wallet", Title: "手工植鞣革钱包", PriceCents: 12800, Status: constants.ListingStatusActive, AdBoosted: true},
		{ShopID: shop.ID, Slug: "leather-belt", Title: "手工牛皮腰带", PriceCents: 9900, Status: constants.ListingStatusActive},
		{ShopID: shop.ID, Slug: "key-holder", Title: "钥匙收纳包", PriceCents: 4500, Status: constants.ListingStatusActive},
	}
	now := time.Now()
	for i := range listings {
		listing := seedListing(stdLog, &listings[i])
		if listing == nil {
			continue
		}
		// 上架费入账（当期）
		var feeCount int64
		models.DB.Model(&models.ListingFee{}).
			Where("listing_id = ? AND year = ? AND month = ?", listing.ID, now.Year(), int(now.Month())).
			Count(&feeCount)
		if feeCount == 0 {
			fee := models.ListingFee{
				ShopID:      shop.ID,
				ListingID:   listing.ID,
				AmountCents: cfg.Billing.ListingFeeCents,
				Year:        now.Year(),
				Month:       int(now.Month()),
				Reason:      constants.ListingFeeReasonInitial,
			}
			if err := models.DB.Create(&fee).Error; err != nil {
				stdLog.Printf("Failed to create listing fee for %s: %v", listing.Slug, err)
			}
		}
	}

	// 演示优惠活动
	endsAt := now.AddDate(0, 1, 0)
	deals := []models.Deal{
		{ShopID: shop.ID, Code: "WELCOME10", Name: "新客九折", Type: constants.DealTypePercent, Value: 10, EndsAt: &endsAt, IsActive: true},
		{ShopID: shop.ID, Code: "SAVE20", Name: "满减 20 元", Type: constants.DealTypeFixed, Value: 2000, MinPurchaseCents: 10000, EndsAt: &endsAt, IsActive: true},
	}
	for i := range deals {
		seedDeal(stdLog, &deals[i])
	}

	// 演示信用额度发放
	var grantCount int64
	models.DB.Model(&models.CreditEntry{}).
		Where("user_id = ? AND reference = ?", buyer.ID, "seed:welcome_credit").
		Count(&grantCount)
	if grantCount == 0 {
		expires := now.AddDate(0, 0, 90)
		entry := models.CreditEntry{
			UserID:      buyer.ID,
			AmountCents: 500,
			Reason:      constants.CreditReasonPromo,
			FunderType:  constants.CreditFunderPlatform,
			Reference:   "seed:welcome_credit",
			ExpiresAt:   &expires,
			Note:        "新手礼包",
		}
		if err := models.DB.Create(&entry).Error; err != nil {
			stdLog.Printf("Failed to grant welcome credit: %v", err)
		} else {
			models.DB.Model(&models.User{}).Where("id = ?", buyer.ID).
				Update("store_credit_cents", entry.AmountCents)
			stdLog.Printf("Granted welcome credit to %s", buyer.Email)
		}
	}

	stdLog.Println("Seed data created successfully!")
	stdLog.Println("Demo seller: seller@example.com / password123")
	stdLog.Println("Demo buyer:  buyer@example.com / password123")
}

func seedUser(stdLog *log.Logger, email, displayName, referralCode string) *models.User {
	var existing models.User
	if err := models.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		stdLog.Printf("User already exists: %s", email)
		return &existing
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Printf("Failed to hash password for %s: %v", email, err)
		return nil
	}
	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Status:       constants.UserStatusActive,
		ReferralCode: referralCode,
	}
	if err := models.DB.Create(&user).Error; err != nil {
		stdLog.Printf("Failed to create user %s: %v", email, err)
		return nil
	}
	stdLog.Printf("Created user: %s", email)
	return &user
}

func seedShop(stdLog *log.Logger, ownerID uint, slug, name string) *models.Shop {
	var existing models.Shop
	if err := models.DB.Where("slug = ?", slug).First(&existing).Error; err == nil {
		stdLog.Printf("Shop already exists: %s", slug)
		return &existing
	}
	shop := models.Shop{
		OwnerUserID: ownerID,
		Slug:        slug,
		Name:        name,
		Status:      constants.ShopStatusActive,
		Currency:    "USD",
	}
	if err := models.DB.Create(&shop).Error; err != nil {
		stdLog.Printf("Failed to create shop %s: %v", slug, err)
		return nil
	}
	stdLog.Printf("Created shop: %s", slug)
	return &shop
}

func seedListing(stdLog *log.Logger, listing *models.Listing) *models.Listing {
	var existing models.Listing
	if err := models.DB.Where("slug = ?", listing.Slug).First(&existing).Error; err == nil {
		stdLog.Printf("Listing already exists: %s", listing.Slug)
		return &existing
	}
	if err := models.DB.Create(listing).Error; err != nil {
		stdLog.Printf("Failed to create listing %s: %v", listing.Slug, err)
		return nil
	}
	stdLog.Printf("Created listing: %s", listing.Slug)
	return listing
}

func seedDeal(stdLog *log.Logger, deal *models.Deal) {
	var existing models.Deal
	if err := models.DB.Where("shop_id = ? AND code = ?", deal.ShopID, deal.Code).First(&existing).Error; err == nil {
		stdLog.Printf("Deal already exists: %s", deal.Code)
		return
	}
	if err := models.DB.Create(deal).Error; err != nil {
		stdLog.Printf("Failed to create deal %s: %v", deal.Code, err)
		return
	}
	stdLog.Printf("Created deal: %s", deal.Code)
}
