//go:build integration

package service

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/tastemap/internal/config"
	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresLoyaltyTest 连接 TEST_POSTGRES_DSN 指向的库，未设置时跳过
func setupPostgresLoyaltyTest(t *testing.T) *loyaltyTestEnv {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(16)
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

	notifier := NewNotificationService(nil)
	points := NewPointsService(pointsRepo, notifier)
	referrals := NewReferralService(referralRepo, points, cfg.Loyalty.Referral, notifier)
	evaluator := NewConditionEvaluator(pointsRepo, referralRepo, visitRepo)
	return &loyaltyTestEnv{
		db:        db,
		cfg:       cfg,
		points:    points,
		referrals: referrals,
		evaluator: evaluator,
		coupons:   NewCouponService(couponRepo, userCouponRepo, restaurantRepo, points, evaluator, cfg.Coupon, notifier),
	}
}

func TestPostgresConcurrentClaimsRespectTotalLimit(t *testing.T) {
	env := setupPostgresLoyaltyTest(t)
	suffix := time.Now().UnixNano()
	limit := 4
	coupon := createLoyaltyTestCoupon(t, env.db, func(c *models.Coupon) {
		c.TotalLimit = &limit
		c.Title = fmt.Sprintf("pg-limit-%d", suffix)
	})

	const claimers = 10
	users := make([]models.User, 0, claimers)
	for i := 0; i < claimers; i++ {
		users = append(users, createLoyaltyTestUser(t, env.db, fmt.Sprintf("pg-claim-%d-%d@example.com", suffix, i)))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	success, limited := 0, 0
	for _, user := range users {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := env.coupons.Claim(userID, coupon.ID, constants.LocaleEnUS)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrCouponLimitReached):
				limited++
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}(user.ID)
	}
	wg.Wait()

	if success != limit || limited != claimers-limit {
		t.Fatalf("expected %d successes and %d limit errors, got %d/%d", limit, claimers-limit, success, limited)
	}
	var reloaded models.Coupon
	if err := env.db.First(&reloaded, coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if reloaded.ClaimedCount != limit {
		t.Fatalf("expected claimed_count %d, got %d", limit, reloaded.ClaimedCount)
	}
}

func TestPostgresConcurrentSpendNeverOverdraws(t *testing.T) {
	env := setupPostgresLoyaltyTest(t)
	user := createLoyaltyTestUser(t, env.db, fmt.Sprintf("pg-spend-%d@example.com", time.Now().UnixNano()))
	awardLoyaltyTestPoints(t, env, user.ID, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.points.Spend(SpendInput{
				UserID:      user.ID,
				ActionType:  constants.PointsActionSpentCoupon,
				Points:      30,
				ReferenceID: fmt.Sprintf("pg-spend-%d", i),
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrPointsInsufficient) {
				t.Errorf("unexpected spend error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if success != 3 {
		t.Fatalf("expected 3 successful spends, got %d", success)
	}
	requireLoyaltyBalance(t, env, user.ID, 10)
}

func TestPostgresConcurrentApplyCreatesSingleReferral(t *testing.T) {
	env := setupPostgresLoyaltyTest(t)
	suffix := time.Now().UnixNano()
	referred := createLoyaltyTestUser(t, env.db, fmt.Sprintf("pg-referred-%d@example.com", suffix))

	const referrers = 8
	codes := make([]string, 0, referrers)
	referrerIDs := make([]uint, 0, referrers)
	for i := 0; i < referrers; i++ {
		user := createLoyaltyTestUser(t, env.db, fmt.Sprintf("pg-referrer-%d-%d@example.com", suffix, i))
		code, err := env.referrals.GetOrCreateCode(user.ID)
		if err != nil {
			t.Fatalf("create code failed: %v", err)
		}
		codes = append(codes, code.Code)
		referrerIDs = append(referrerIDs, user.ID)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	success, rejected := 0, 0
	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			_, err := env.referrals.Apply(code, referred.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrAlreadyReferred):
				rejected++
			default:
				t.Errorf("unexpected apply error: %v", err)
			}
		}(code)
	}
	wg.Wait()

	if success != 1 || rejected != referrers-1 {
		t.Fatalf("expected one success and %d rejections, got %d/%d", referrers-1, success, rejected)
	}
	var referrals int64
	if err := env.db.Model(&models.Referral{}).Where("referred_user_id = ?", referred.ID).Count(&referrals).Error; err != nil {
		t.Fatalf("count referrals failed: %v", err)
	}
	if referrals != 1 {
		t.Fatalf("expected one referral row, got %d", referrals)
	}
	var rewards int64
	if err := env.db.Model(&models.ReferralReward{}).Where("user_id IN ?", append(referrerIDs, referred.ID)).Count(&rewards).Error; err != nil {
		t.Fatalf("count rewards failed: %v", err)
	}
	if rewards != 2 {
		t.Fatalf("expected two reward rows, got %d", rewards)
	}
	requireLoyaltyBalance(t, env, referred.ID, env.cfg.Loyalty.Referral.RegistrationReferredBonus)
}
