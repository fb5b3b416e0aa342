package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/makerplace/makerplace/internal/authz"
	"github.com/makerplace/makerplace/internal/cache"
	"github.com/makerplace/makerplace/internal/config"
	adminhandlers "github.com/makerplace/makerplace/internal/http/handlers/admin"
	publichandlers "github.com/makerplace/makerplace/internal/http/handlers/public"
	"github.com/makerplace/makerplace/internal/http/response"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "mp"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/listings", publicHandler.ListingBrowse)
			public.GET("/listings/:slug", publicHandler.ListingDetail)
			public.GET("/shops/:slug", publicHandler.ShopDetail)
		}

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.UserProfile)
			user.PUT("/me/password", publicHandler.UserChangePassword)

			user.POST("/deals/quote", publicHandler.DealQuote)

			user.POST("/orders", publicHandler.OrderCreate)
			user.GET("/orders", publicHandler.OrderList)
			user.GET("/orders/:id", publicHandler.OrderDetail)
			user.POST("/orders/:id/pay", publicHandler.OrderPay)
			user.POST("/orders/:id/cancel", publicHandler.OrderCancel)

			user.GET("/credit/balance", publicHandler.CreditBalance)
			user.GET("/credit/entries", publicHandler.CreditEntryList)

			// 卖家店铺管理
			user.POST("/shop", publicHandler.ShopCreate)
			user.GET("/shop", publicHandler.ShopMine)
			user.PUT("/shop", publicHandler.ShopUpdate)
			user.GET("/shop/orders", publicHandler.ShopOrderList)
			user.POST("/shop/orders/:id/refund", publicHandler.ShopOrderRefund)
			user.GET("/shop/payouts/summary", publicHandler.ShopPayoutSummary)
			user.GET("/shop/statements", publicHandler.ShopStatementList)

			user.POST("/shop/listings", publicHandler.ShopListingCreate)
			user.GET("/shop/listings", publicHandler.ShopListingList)
			user.PUT("/shop/listings/:listing_id", publicHandler.ShopListingUpdate)
			user.POST("/shop/listings/:listing_id/renew", publicHandler.ShopListingRenew)
			user.POST("/shop/listings/:listing_id/deactivate", publicHandler.ShopListingDeactivate)
			user.GET("/shop/listing-fees", publicHandler.ShopListingFeeList)

			user.POST("/shop/deals", publicHandler.ShopDealCreate)
			user.GET("/shop/deals", publicHandler.ShopDealList)
			user.PUT("/shop/deals/:deal_id", publicHandler.ShopDealUpdate)
			user.DELETE("/shop/deals/:deal_id", publicHandler.ShopDealDelete)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.POST("/authz/admins", adminHandler.CreateAuthzAdmin)
				authorized.PUT("/authz/admins/:id", adminHandler.UpdateAuthzAdmin)
				authorized.DELETE("/authz/admins/:id", adminHandler.DeleteAuthzAdmin)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)

				// 用户管理
				authorized.GET("/users", adminHandler.GetAdminUsers)
				authorized.GET("/user-login-logs", adminHandler.GetUserLoginLogs)
				authorized.PUT("/users/batch-status", adminHandler.BatchUpdateUserStatus)
				authorized.GET("/users/:id", adminHandler.GetAdminUser)
				authorized.POST("/users/:id/credit/grant", adminHandler.AdminCreditGrant)
				authorized.GET("/users/:id/credit/entries", adminHandler.AdminCreditEntries)
				authorized.POST("/users/:id/credit/reconcile", adminHandler.AdminCreditReconcile)

				// 订单管理
				authorized.GET("/orders", adminHandler.AdminListOrders)
				authorized.GET("/orders/:id", adminHandler.AdminGetOrder)
				authorized.POST("/orders/:id/mark-paid", adminHandler.AdminMarkOrderPaid)
				authorized.POST("/orders/:id/cancel", adminHandler.AdminCancelOrder)
				authorized.POST("/orders/:id/refund", adminHandler.AdminRefundOrder)
				authorized.POST("/orders/sweep-expired", adminHandler.AdminSweepExpiredOrders)

				// 店铺管理
				authorized.GET("/shops", adminHandler.AdminListShops)
				authorized.GET("/shops/:id", adminHandler.AdminGetShop)
				authorized.POST("/shops/:id/suspend", adminHandler.AdminSuspendShop)
				authorized.POST("/shops/:id/reinstate", adminHandler.AdminReinstateShop)

				// 结算管理
				authorized.GET("/shops/:id/payouts/summary", adminHandler.AdminPayoutSummary)
				authorized.POST("/shops/:id/statements", adminHandler.AdminGenerateStatement)
				authorized.POST("/shops/:id/statements/settle", adminHandler.AdminSettleStatement)
				authorized.GET("/statements", adminHandler.AdminListStatements)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
