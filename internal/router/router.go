package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tastemap/internal/authz"
	"github.com/tastemap/internal/cache"
	"github.com/tastemap/internal/config"
	adminhandlers "github.com/tastemap/internal/http/handlers/admin"
	publichandlers "github.com/tastemap/internal/http/handlers/public"
	"github.com/tastemap/internal/http/response"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/metrics"
	"github.com/tastemap/internal/provider"

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
		redisPrefix = "tm"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxRequests,
		MessageKey:    "error.login_too_many",
	}
	claimRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:claim", redisPrefix),
		WindowSeconds: cfg.Security.ClaimRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClaimRateLimit.MaxRequests,
	}
	redeemRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:redeem", redisPrefix),
		WindowSeconds: cfg.Security.RedeemRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RedeemRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/captcha/image", publicHandler.GetImageCaptcha)

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", RateLimitMiddleware(redisClient, loginRule, KeyByIP), publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.POST("/me/logout", publicHandler.UserLogout)

			user.GET("/points/me", publicHandler.GetMyPoints)
			user.GET("/points/transactions", publicHandler.ListMyPointsTransactions)

			user.GET("/referrals/my-code", publicHandler.GetMyReferralCode)
			user.GET("/referrals/my-referrals", publicHandler.ListMyReferrals)
			user.GET("/referrals/my-rewards", publicHandler.ListMyReferralRewards)
			user.POST("/referrals/apply", publicHandler.ApplyReferralCode)

			user.GET("/coupons", publicHandler.ListCoupons)
			user.POST("/coupons/claim", RateLimitMiddleware(redisClient, claimRule, KeyByUser), publicHandler.ClaimCoupon)
			user.GET("/coupons/mine", publicHandler.ListMyCoupons)
			user.GET("/coupons/:userCouponId", publicHandler.GetMyCoupon)
			user.GET("/coupons/:userCouponId/qr", publicHandler.GetMyCouponQR)

			user.POST("/restaurants/:id/coupons/redeem", RateLimitMiddleware(redisClient, redeemRule, KeyByUser), publicHandler.RedeemCoupon)
			user.GET("/restaurants/:id/visit-qr", publicHandler.IssueVisitQR)
			user.POST("/restaurants/:id/visits/qr", publicHandler.RecordQRVisit)
			user.POST("/restaurants/:id/reservations/:reservationId/arrive", publicHandler.ConfirmReservationArrival)
			user.GET("/restaurants/:id/reviews", publicHandler.ListRestaurantReviews)
			user.POST("/restaurants/:id/reviews", publicHandler.SubmitReview)
		}

		// 管理端接口（用户 JWT + RBAC）
		admin := apiV1.Group("/admin")
		admin.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo), AdminRBACMiddleware(c.AuthzService))
		{
			admin.GET("/coupons", adminHandler.ListCoupons)
			admin.POST("/coupons", adminHandler.CreateCoupon)
			admin.GET("/coupons/:id", adminHandler.GetCoupon)
			admin.PUT("/coupons/:id", adminHandler.UpdateCoupon)
			admin.DELETE("/coupons/:id", adminHandler.DeleteCoupon)
			admin.PATCH("/coupons/:id/status", adminHandler.UpdateCouponStatus)

			admin.GET("/restaurants/:id/staff", adminHandler.ListRestaurantStaff)
			admin.POST("/restaurants/:id/staff", adminHandler.AssignRestaurantStaff)
			admin.DELETE("/restaurants/:id/staff", adminHandler.RemoveRestaurantStaff)

			admin.GET("/points/:userId/audit", adminHandler.AuditUserPoints)
			admin.POST("/points/:userId/adjust", adminHandler.AdjustUserPoints)
			admin.POST("/points/:userId/achievements", adminHandler.GrantUserAchievement)

			admin.GET("/authz/me", adminHandler.GetAuthzMe)
			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.PUT("/authz/users/:userId/roles", adminHandler.SetUserRoles)
			admin.POST("/authz/roles/:role/policies", adminHandler.GrantRolePolicy)
			admin.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	// Prometheus 指标
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

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
