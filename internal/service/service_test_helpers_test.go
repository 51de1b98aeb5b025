package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/tastemap/internal/config"
	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type loyaltyTestEnv struct {
	db          *gorm.DB
	cfg         *config.Config
	points      *PointsService
	referrals   *ReferralService
	evaluator   *ConditionEvaluator
	coupons     *CouponService
	couponAdmin *CouponAdminService
	activity    *ActivityService
	auth        *UserAuthService
}

func setupLoyaltyServiceTest(t *testing.T) *loyaltyTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:loyalty_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	cfg := config.Default()
	cfg.UserJWT.SecretKey = "test-secret"

	pointsRepo := repository.NewPointsRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	userCouponRepo := repository.NewUserCouponRepository(db)
	restaurantRepo := repository.NewRestaurantRepository(db)
	userRepo := repository.NewUserRepository(db)

	notifier := NewNotificationService(nil)
	points := NewPointsService(pointsRepo, notifier)
	referrals := NewReferralService(referralRepo, points, cfg.Loyalty.Referral, notifier)
	evaluator := NewConditionEvaluator(pointsRepo, referralRepo, visitRepo)

	return &loyaltyTestEnv{
		db:          db,
		cfg:         cfg,
		points:      points,
		referrals:   referrals,
		evaluator:   evaluator,
		coupons:     NewCouponService(couponRepo, userCouponRepo, restaurantRepo, points, evaluator, cfg.Coupon, notifier),
		couponAdmin: NewCouponAdminService(couponRepo, restaurantRepo, userRepo),
		activity:    NewActivityService(visitRepo, repository.NewReviewRepository(db), restaurantRepo, userRepo, points, referrals, cfg.Loyalty, cfg.UserJWT.SecretKey),
		auth:        NewUserAuthService(cfg, userRepo, referrals),
	}
}

func createLoyaltyTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()

	row := models.User{
		Email:        email,
		PasswordHash: "hash",
		DisplayName:  "tester",
		Status:       constants.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return row
}

func createLoyaltyTestRestaurant(t *testing.T, db *gorm.DB, name, city string) models.Restaurant {
	t.Helper()

	row := models.Restaurant{
		Name:   name,
		City:   city,
		Status: constants.RestaurantStatusActive,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create restaurant failed: %v", err)
	}
	return row
}

func createLoyaltyTestStaff(t *testing.T, db *gorm.DB, restaurantID, userID uint) {
	t.Helper()

	row := models.RestaurantStaff{RestaurantID: restaurantID, UserID: userID, Role: constants.StaffRoleCashier}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create staff failed: %v", err)
	}
}

func createLoyaltyTestCoupon(t *testing.T, db *gorm.DB, mutate func(*models.Coupon)) models.Coupon {
	t.Helper()

	limit := 100
	row := models.Coupon{
		Source:         constants.CouponSourcePlatform,
		Type:           constants.CouponTypeRewardItem,
		Title:          "Free dessert",
		RewardItemName: "Dessert",
		TotalLimit:     &limit,
		PerUserLimit:   1,
		Status:         constants.CouponStatusActive,
	}
	if mutate != nil {
		mutate(&row)
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return row
}

func awardLoyaltyTestPoints(t *testing.T, env *loyaltyTestEnv, userID uint, points int64) {
	t.Helper()

	if _, err := env.points.Award(AwardInput{
		UserID:      userID,
		ActionType:  constants.PointsActionAchievementUnlocked,
		Points:      points,
		ReferenceID: "test",
	}); err != nil {
		t.Fatalf("award points failed: %v", err)
	}
}

func requireLoyaltyBalance(t *testing.T, env *loyaltyTestEnv, userID uint, expected int64) {
	t.Helper()

	audit, err := env.points.VerifyBalance(userID)
	if err != nil {
		t.Fatalf("verify balance failed: %v", err)
	}
	if !audit.Consistent {
		t.Fatalf("ledger inconsistent for user %d: balance=%d sum=%d", userID, audit.TotalPoints, audit.EntrySum)
	}
	if audit.TotalPoints != expected {
		t.Fatalf("expected balance %d for user %d, got %d", expected, userID, audit.TotalPoints)
	}
}
