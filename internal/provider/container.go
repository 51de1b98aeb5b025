package provider

import (
	"time"

	"github.com/tastemap/internal/authz"
	"github.com/tastemap/internal/cache"
	"github.com/tastemap/internal/config"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/queue"
	"github.com/tastemap/internal/repository"
	"github.com/tastemap/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client

	// Repositories
	UserRepo       repository.UserRepository
	RestaurantRepo repository.RestaurantRepository
	VisitRepo      repository.VisitRepository
	ReviewRepo     repository.ReviewRepository
	PointsRepo     repository.PointsRepository
	ReferralRepo   repository.ReferralRepository
	CouponRepo     repository.CouponRepository
	UserCouponRepo repository.UserCouponRepository

	// Services
	AuthzService        *authz.Service
	CaptchaService      *service.CaptchaService
	NotificationService *service.NotificationService
	PointsService       *service.PointsService
	ReferralService     *service.ReferralService
	ConditionEvaluator  *service.ConditionEvaluator
	CouponService       *service.CouponService
	CouponAdminService  *service.CouponAdminService
	ActivityService     *service.ActivityService
	UserAuthService     *service.UserAuthService
}

// NewContainer 初始化容器（连接 Redis 与队列，使用全局数据库）
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

	c, err := Build(cfg, models.DB, queueClient)
	if err != nil {
		logger.Errorw("provider_init_failed", "error", err)
		panic(err)
	}
	return c
}

// Build 基于给定数据库与队列客户端装配容器
func Build(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) (*Container, error) {
	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	db := c.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.RestaurantRepo = repository.NewRestaurantRepository(db)
	c.VisitRepo = repository.NewVisitRepository(db)
	c.ReviewRepo = repository.NewReviewRepository(db)
	c.PointsRepo = repository.NewPointsRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.UserCouponRepo = repository.NewUserCouponRepository(db)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return err
	}

	cfg := c.Config
	c.NotificationService = service.NewNotificationService(c.QueueClient)
	c.PointsService = service.NewPointsService(c.PointsRepo, c.NotificationService)
	c.ReferralService = service.NewReferralService(c.ReferralRepo, c.PointsService, cfg.Loyalty.Referral, c.NotificationService)
	c.ConditionEvaluator = service.NewConditionEvaluator(c.PointsRepo, c.ReferralRepo, c.VisitRepo)
	c.CouponService = service.NewCouponService(c.CouponRepo, c.UserCouponRepo, c.RestaurantRepo, c.PointsService, c.ConditionEvaluator, cfg.Coupon, c.NotificationService)
	c.CouponAdminService = service.NewCouponAdminService(c.CouponRepo, c.RestaurantRepo, c.UserRepo)
	c.ActivityService = service.NewActivityService(c.VisitRepo, c.ReviewRepo, c.RestaurantRepo, c.UserRepo, c.PointsService, c.ReferralService, cfg.Loyalty, cfg.UserJWT.SecretKey)
	c.CaptchaService = service.NewCaptchaService(cfg.Captcha, cache.NewCaptchaStore(time.Duration(cfg.Captcha.Image.ExpireSeconds)*time.Second))
	c.UserAuthService = service.NewUserAuthService(cfg, c.UserRepo, c.ReferralService)
	return nil
}
