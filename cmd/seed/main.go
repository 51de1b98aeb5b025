package main

import (
	"errors"
	"time"

	"github.com/tastemap/internal/config"
	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/provider"
	"github.com/tastemap/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const seedPassword = "password123"

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	log := logger.S()
	defer logger.Sync()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.LogMode, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		log.Fatalw("seed_database_init_failed", "error", err)
	}
	if err := models.Migrate(models.DB); err != nil {
		log.Fatalw("seed_database_migrate_failed", "error", err)
	}

	// 种子数据不投递异步通知
	c, err := provider.Build(cfg, models.DB, nil)
	if err != nil {
		log.Fatalw("seed_container_build_failed", "error", err)
	}

	// 餐厅
	restaurants := []models.Restaurant{
		{Name: "Lao Zhang Noodles", City: "Shanghai", Address: "88 Huaihai Rd"},
		{Name: "Harbor Dumplings", City: "Shanghai", Address: "12 Bund Ave"},
		{Name: "Sichuan Garden", City: "Chengdu", Address: "3 Jinli St"},
	}
	for i := range restaurants {
		restaurants[i].Status = constants.RestaurantStatusActive
		if err := models.DB.Where("name = ?", restaurants[i].Name).FirstOrCreate(&restaurants[i]).Error; err != nil {
			log.Fatalw("seed_restaurant_failed", "name", restaurants[i].Name, "error", err)
		}
		log.Infow("seed_restaurant_ready", "restaurant_id", restaurants[i].ID, "name", restaurants[i].Name)
	}

	// 用户：alice 邀请 bob，carol 为门店收银员
	alice := seedUser(c, "alice@tastemap.local", "Alice", "")
	code, err := c.ReferralService.GetOrCreateCode(alice.ID)
	if err != nil {
		log.Fatalw("seed_referral_code_failed", "error", err)
	}
	bob := seedUser(c, "bob@tastemap.local", "Bob", code.Code)
	carol := seedUser(c, "carol@tastemap.local", "Carol", "")

	if _, err := c.CouponAdminService.AssignStaff(restaurants[0].ID, carol.ID, constants.StaffRoleCashier); err != nil {
		log.Fatalw("seed_staff_failed", "error", err)
	}

	// carol 出示到店码，bob 扫码首次到店完成推荐
	visitQR, err := c.ActivityService.IssueVisitQR(carol.ID, restaurants[0].ID)
	if err != nil {
		log.Fatalw("seed_visit_qr_failed", "error", err)
	}
	if _, err := c.ActivityService.RecordQRVisit(bob.ID, restaurants[0].ID, visitQR.Token); err != nil && !errors.Is(err, service.ErrVisitAlreadyRecorded) {
		log.Fatalw("seed_visit_failed", "error", err)
	}
	if _, err := c.ActivityService.SubmitReview(service.ReviewInput{
		UserID:       bob.ID,
		RestaurantID: restaurants[0].ID,
		Content:      "Hand-pulled noodles with a rich beef broth, worth the queue.",
	}); err != nil && !errors.Is(err, service.ErrReviewAlreadyRewarded) {
		log.Fatalw("seed_review_failed", "error", err)
	}

	// 优惠券
	limit := 100
	expires := time.Now().AddDate(0, 3, 0)
	shopID := restaurants[0].ID
	coupons := []service.CouponInput{
		{
			Source:         constants.CouponSourcePlatform,
			Type:           constants.CouponTypeRewardItem,
			Title:          "Free dessert for 100 points",
			RewardItemName: "Mango pudding",
			TotalLimit:     &limit,
			PerUserLimit:   1,
			Status:         string(constants.CouponStatusActive),
			ConditionKind:  constants.CouponConditionPointsAtLeast,
			ConditionValue: 100,
		},
		{
			Source:                constants.CouponSourceRestaurant,
			RestaurantID:          &shopID,
			Type:                  constants.CouponTypePercentDiscount,
			Title:                 "15% off for regulars",
			DiscountPercent:       15,
			ExpiresAt:             &expires,
			PerUserLimit:          1,
			Status:                string(constants.CouponStatusActive),
			ConditionKind:         constants.CouponConditionVisitsSameRestaurantAtLeast,
			ConditionValue:        3,
			ConditionRestaurantID: &shopID,
		},
		{
			Source:         constants.CouponSourcePlatform,
			Type:           constants.CouponTypeFixedDiscount,
			Title:          "Explorer: 20 off",
			DiscountAmount: models.NewMoney(decimal.NewFromInt(20)),
			TotalLimit:     &limit,
			PerUserLimit:   1,
			Status:         string(constants.CouponStatusActive),
			ConditionKind:  constants.CouponConditionVisitsCitiesAtLeast,
			ConditionValue: 2,
		},
	}
	for _, input := range coupons {
		var existing models.Coupon
		err := models.DB.Where("title = ?", input.Title).First(&existing).Error
		if err == nil {
			log.Infow("seed_coupon_exists", "coupon_id", existing.ID, "title", existing.Title)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalw("seed_coupon_lookup_failed", "error", err)
		}
		coupon, err := c.CouponAdminService.Create(input)
		if err != nil {
			log.Fatalw("seed_coupon_failed", "title", input.Title, "error", err)
		}
		log.Infow("seed_coupon_created", "coupon_id", coupon.ID, "title", coupon.Title)
	}

	log.Infow("seed_completed", "password", seedPassword)
}

func seedUser(c *provider.Container, email, name, referralCode string) *models.User {
	existing, err := c.UserRepo.GetByEmail(email)
	if err != nil {
		logger.S().Fatalw("seed_user_lookup_failed", "email", email, "error", err)
	}
	if existing != nil {
		return existing
	}
	result, err := c.UserAuthService.Register(service.RegisterInput{
		Email:        email,
		Password:     seedPassword,
		DisplayName:  name,
		Locale:       constants.LocaleEnUS,
		ReferralCode: referralCode,
	})
	if err != nil {
		logger.S().Fatalw("seed_user_failed", "email", email, "error", err)
	}
	logger.Infow("seed_user_created", "user_id", result.User.ID, "email", email)
	return result.User
}
