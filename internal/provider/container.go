package provider

import (
	"github.com/makerplace/makerplace/internal/authz"
	"github.com/makerplace/makerplace/internal/cache"
	"github.com/makerplace/makerplace/internal/config"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/queue"
	"github.com/makerplace/makerplace/internal/repository"
	"github.com/makerplace/makerplace/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo           repository.AdminRepository
	UserRepo            repository.UserRepository
	ShopRepo            repository.ShopRepository
	ListingRepo         repository.ListingRepository
	ListingFeeRepo      repository.ListingFeeRepository
	DealRepo            repository.DealRepository
	DealRedemptionRepo  repository.DealRedemptionRepository
	OrderRepo           repository.OrderRepository
	CreditRepo          repository.CreditRepository
	PayoutRepo          repository.PayoutRepository
	PayoutStatementRepo repository.PayoutStatementRepository
	UserLoginLogRepo    repository.UserLoginLogRepository
	AuthzAuditLogRepo   repository.AuthzAuditLogRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	UserAuthService     *service.UserAuthService
	ShopService         *service.ShopService
	ListingService      *service.ListingService
	DealService         *service.DealService
	CreditService       *service.CreditService
	OrderService        *service.OrderService
	PayoutService       *service.PayoutService
	ReferralService     *service.ReferralService
	UserLoginLogService *service.UserLoginLogService
	AuthzAuditService   *service.AuthzAuditService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ShopRepo = repository.NewShopRepository(db)
	c.ListingRepo = repository.NewListingRepository(db)
	c.ListingFeeRepo = repository.NewListingFeeRepository(db)
	c.DealRepo = repository.NewDealRepository(db)
	c.DealRedemptionRepo = repository.NewDealRedemptionRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.CreditRepo = repository.NewCreditRepository(db)
	c.PayoutRepo = repository.NewPayoutRepository(db)
	c.PayoutStatementRepo = repository.NewPayoutStatementRepository(db)
	c.UserLoginLogRepo = repository.NewUserLoginLogRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	db := models.DB
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.ShopService = service.NewShopService(c.ShopRepo, c.UserRepo)
	c.ListingService = service.NewListingService(db, c.ListingRepo, c.ShopRepo, c.ListingFeeRepo, c.Config.Billing)
	c.DealService = service.NewDealService(c.DealRepo, c.DealRedemptionRepo, c.ShopRepo)
	c.CreditService = service.NewCreditService(db, c.CreditRepo, c.UserRepo, c.Config.Credit)
	c.ReferralService = service.NewReferralService(c.UserRepo, c.OrderRepo, c.CreditService, c.Config.Referral)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo, c.UserLoginLogRepo, c.ReferralService)
	c.OrderService = service.NewOrderService(db, c.OrderRepo, c.ListingRepo, c.ShopRepo, c.UserRepo, c.DealService, c.CreditService, c.QueueClient, c.Config.Billing)
	c.PayoutService = service.NewPayoutService(c.PayoutRepo, c.PayoutStatementRepo, c.ShopRepo)
	c.UserLoginLogService = service.NewUserLoginLogService(c.UserLoginLogRepo)
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)
}
