package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"

	"gorm.io/gorm"
)

func TestReferralCodeIsCreatedLazilyAndStable(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	user := createLoyaltyTestUser(t, env.db, "referral-code@example.com")

	first, err := env.referrals.GetOrCreateCode(user.ID)
	if err != nil {
		t.Fatalf("get or create code failed: %v", err)
	}
	if len(first.Code) != referralCodeLength {
		t.Fatalf("expected %d-character code, got %q", referralCodeLength, first.Code)
	}
	for _, ch := range first.Code {
		if !strings.ContainsRune(referralCodeAlphabet, ch) {
			t.Fatalf("code %q contains character outside alphabet", first.Code)
		}
	}
	second, err := env.referrals.GetOrCreateCode(user.ID)
	if err != nil {
		t.Fatalf("second get or create code failed: %v", err)
	}
	if second.ID != first.ID || second.Code != first.Code {
		t.Fatalf("expected stable code, got %q then %q", first.Code, second.Code)
	}
}

func TestReferralLifecycleAwardsBothPartiesThenReferrer(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	referrer := createLoyaltyTestUser(t, env.db, "referrer@example.com")
	referred := createLoyaltyTestUser(t, env.db, "referred@example.com")
	restaurant := createLoyaltyTestRestaurant(t, env.db, "Noodle Bar", "Shanghai")

	code, err := env.referrals.GetOrCreateCode(referrer.ID)
	if err != nil {
		t.Fatalf("create code failed: %v", err)
	}
	payout, err := env.referrals.Apply(strings.ToLower(" "+code.Code+" "), referred.ID)
	if err != nil {
		t.Fatalf("apply referral failed: %v", err)
	}
	if payout.Referral.Status != constants.ReferralStatusRegistered {
		t.Fatalf("expected REGISTERED, got %s", payout.Referral.Status)
	}
	if len(payout.Entries) != 2 || len(payout.Rewards) != 2 {
		t.Fatalf("expected two registration payouts, got entries=%d rewards=%d", len(payout.Entries), len(payout.Rewards))
	}
	requireLoyaltyBalance(t, env, referrer.ID, 10)
	requireLoyaltyBalance(t, env, referred.ID, 10)

	visit, err := env.referrals.HandleFirstVisit(referred.ID, restaurant.ID)
	if err != nil {
		t.Fatalf("handle first visit failed: %v", err)
	}
	if visit == nil || visit.Referral.Status != constants.ReferralStatusCompleted {
		t.Fatalf("expected COMPLETED referral, got %+v", visit)
	}
	requireLoyaltyBalance(t, env, referrer.ID, 20)
	requireLoyaltyBalance(t, env, referred.ID, 10)

	again, err := env.referrals.HandleFirstVisit(referred.ID, restaurant.ID+1)
	if err != nil {
		t.Fatalf("second first visit failed: %v", err)
	}
	if again != nil {
		t.Fatalf("expected no-op on second first visit, got %+v", again)
	}
	requireLoyaltyBalance(t, env, referrer.ID, 20)

	var stored models.Referral
	if err := env.db.Where("referred_user_id = ?", referred.ID).First(&stored).Error; err != nil {
		t.Fatalf("load referral failed: %v", err)
	}
	if stored.Status != constants.ReferralStatusCompleted || stored.CompletedAt == nil || stored.FirstVisitAt == nil {
		t.Fatalf("unexpected stored referral: %+v", stored)
	}
	if stored.FirstVisitRestaurantID == nil || *stored.FirstVisitRestaurantID != restaurant.ID {
		t.Fatalf("expected first visit restaurant %d, got %+v", restaurant.ID, stored.FirstVisitRestaurantID)
	}
	if stored.RewardAmount != 20 {
		t.Fatalf("expected reward amount 20, got %d", stored.RewardAmount)
	}

	stats, err := env.referrals.GetStats(referrer.ID)
	if err != nil {
		t.Fatalf("get stats failed: %v", err)
	}
	if stats.TotalReferrals != 1 || stats.TotalRewards != 20 || stats.Completed != 1 || stats.Registered != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	rewards, total, err := env.referrals.ListMyRewards(referrer.ID, constants.ReferralBonusTypeFirstVisit, 1, 20)
	if err != nil {
		t.Fatalf("list rewards failed: %v", err)
	}
	if total != 1 || len(rewards) != 1 || rewards[0].ActionType != constants.PointsActionReferralVisitReferrer {
		t.Fatalf("expected one first visit reward, got total=%d rows=%+v", total, rewards)
	}

	referrals, total, err := env.referrals.ListMyReferrals(referrer.ID, "", 1, 20)
	if err != nil {
		t.Fatalf("list referrals failed: %v", err)
	}
	if total != 1 || len(referrals) != 1 || referrals[0].ReferredUserID != referred.ID {
		t.Fatalf("unexpected referrals: total=%d rows=%+v", total, referrals)
	}
}

func TestReferralApplyRejections(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	referrer := createLoyaltyTestUser(t, env.db, "reject-referrer@example.com")
	referred := createLoyaltyTestUser(t, env.db, "reject-referred@example.com")
	other := createLoyaltyTestUser(t, env.db, "reject-other@example.com")

	code, err := env.referrals.GetOrCreateCode(referrer.ID)
	if err != nil {
		t.Fatalf("create code failed: %v", err)
	}

	if _, err := env.referrals.Apply("", referred.ID); !errors.Is(err, ErrInvalidReferralCode) {
		t.Fatalf("expected ErrInvalidReferralCode for empty code, got %v", err)
	}
	if _, err := env.referrals.Apply("ZZZZZZZZ", referred.ID); !errors.Is(err, ErrInvalidReferralCode) {
		t.Fatalf("expected ErrInvalidReferralCode for unknown code, got %v", err)
	}
	if _, err := env.referrals.Apply(code.Code, referrer.ID); !errors.Is(err, ErrSelfReferralRejected) {
		t.Fatalf("expected ErrSelfReferralRejected, got %v", err)
	}
	requireLoyaltyBalance(t, env, referrer.ID, 0)

	if _, err := env.referrals.Apply(code.Code, referred.ID); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	otherCode, err := env.referrals.GetOrCreateCode(other.ID)
	if err != nil {
		t.Fatalf("create other code failed: %v", err)
	}
	if _, err := env.referrals.Apply(otherCode.Code, referred.ID); !errors.Is(err, ErrAlreadyReferred) {
		t.Fatalf("expected ErrAlreadyReferred, got %v", err)
	}
	requireLoyaltyBalance(t, env, other.ID, 0)
	requireLoyaltyBalance(t, env, referred.ID, 10)

	if err := env.db.Model(&models.ReferralCode{}).Where("id = ?", otherCode.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate code failed: %v", err)
	}
	fresh := createLoyaltyTestUser(t, env.db, "reject-fresh@example.com")
	if _, err := env.referrals.Apply(otherCode.Code, fresh.ID); !errors.Is(err, ErrInvalidReferralCode) {
		t.Fatalf("expected ErrInvalidReferralCode for inactive code, got %v", err)
	}

	var count int64
	if err := env.db.Model(&models.Referral{}).Count(&count).Error; err != nil {
		t.Fatalf("count referrals failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one referral, got %d", count)
	}
}

func TestReferralConcurrentApplyCreatesSingleReferral(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	referred := createLoyaltyTestUser(t, env.db, "race-referred@example.com")

	const referrers = 6
	codes := make([]string, 0, referrers)
	for i := 0; i < referrers; i++ {
		user := createLoyaltyTestUser(t, env.db, fmt.Sprintf("race-referrer-%d@example.com", i))
		code, err := env.referrals.GetOrCreateCode(user.ID)
		if err != nil {
			t.Fatalf("create code failed: %v", err)
		}
		codes = append(codes, code.Code)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			_, err := env.referrals.Apply(code, referred.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyReferred):
				rejected++
			default:
				t.Errorf("unexpected apply error: %v", err)
			}
		}(code)
	}
	wg.Wait()

	if successes != 1 || rejected != referrers-1 {
		t.Fatalf("expected one success, got %d successes and %d rejections", successes, rejected)
	}
	requireLoyaltyBalance(t, env, referred.ID, 10)

	var rewardTotal int64
	if err := env.db.Model(&models.ReferralReward{}).Count(&rewardTotal).Error; err != nil {
		t.Fatalf("count rewards failed: %v", err)
	}
	if rewardTotal != 2 {
		t.Fatalf("expected two reward rows, got %d", rewardTotal)
	}
}

func TestReferralFirstVisitWithoutReferralIsNoop(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	user := createLoyaltyTestUser(t, env.db, "no-referral@example.com")

	payout, err := env.referrals.HandleFirstVisit(user.ID, 1)
	if err != nil {
		t.Fatalf("handle first visit failed: %v", err)
	}
	if payout != nil {
		t.Fatalf("expected nil payout, got %+v", payout)
	}
}

func TestReferralFirstVisitIgnoresPendingReferral(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	referrer := createLoyaltyTestUser(t, env.db, "pending-referrer@example.com")
	referred := createLoyaltyTestUser(t, env.db, "pending-referred@example.com")
	code, err := env.referrals.GetOrCreateCode(referrer.ID)
	if err != nil {
		t.Fatalf("create code failed: %v", err)
	}
	pending := models.Referral{
		ReferrerID:     referrer.ID,
		ReferredUserID: referred.ID,
		ReferralCodeID: code.ID,
		Status:         constants.ReferralStatusPending,
		RewardType:     constants.ReferralRewardTypePoints,
	}
	if err := env.db.Create(&pending).Error; err != nil {
		t.Fatalf("create pending referral failed: %v", err)
	}

	payout, err := env.referrals.HandleFirstVisit(referred.ID, 1)
	if err != nil {
		t.Fatalf("pending referral should be skipped without error, got %v", err)
	}
	if payout != nil {
		t.Fatalf("expected nil payout, got %+v", payout)
	}
	var stored models.Referral
	if err := env.db.First(&stored, pending.ID).Error; err != nil {
		t.Fatalf("reload referral failed: %v", err)
	}
	if stored.Status != constants.ReferralStatusPending || stored.CompletedAt != nil {
		t.Fatalf("pending referral must stay untouched, got %+v", stored)
	}
	requireLoyaltyBalance(t, env, referrer.ID, 0)
}

// staleReferralLookupRepo 查不到已有推荐关系，只能由唯一索引拦截重复写入
type staleReferralLookupRepo struct {
	repository.ReferralRepository
}

func (r staleReferralLookupRepo) WithTx(tx *gorm.DB) repository.ReferralRepository {
	return staleReferralLookupRepo{ReferralRepository: r.ReferralRepository.WithTx(tx)}
}

func (r staleReferralLookupRepo) GetReferralByReferredUserID(uint) (*models.Referral, error) {
	return nil, nil
}

func TestReferralApplyMapsUniqueViolationToAlreadyReferred(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	first := createLoyaltyTestUser(t, env.db, "unique-first@example.com")
	second := createLoyaltyTestUser(t, env.db, "unique-second@example.com")
	referred := createLoyaltyTestUser(t, env.db, "unique-referred@example.com")

	firstCode, err := env.referrals.GetOrCreateCode(first.ID)
	if err != nil {
		t.Fatalf("create first code failed: %v", err)
	}
	secondCode, err := env.referrals.GetOrCreateCode(second.ID)
	if err != nil {
		t.Fatalf("create second code failed: %v", err)
	}
	if _, err := env.referrals.Apply(firstCode.Code, referred.ID); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}

	stale := NewReferralService(
		staleReferralLookupRepo{ReferralRepository: repository.NewReferralRepository(env.db)},
		env.points,
		env.cfg.Loyalty.Referral,
		NewNotificationService(nil),
	)
	if _, err := stale.Apply(secondCode.Code, referred.ID); !errors.Is(err, ErrAlreadyReferred) {
		t.Fatalf("expected ErrAlreadyReferred from unique index, got %v", err)
	}

	requireLoyaltyBalance(t, env, second.ID, 0)
	requireLoyaltyBalance(t, env, referred.ID, 10)
	var reloaded models.ReferralCode
	if err := env.db.First(&reloaded, secondCode.ID).Error; err != nil {
		t.Fatalf("reload code failed: %v", err)
	}
	if reloaded.TotalReferrals != 0 {
		t.Fatalf("rolled back apply must not count, got %d", reloaded.TotalReferrals)
	}
}

func TestReferralTransitionTable(t *testing.T) {
	if err := validateReferralTransition(constants.ReferralStatusPending, constants.ReferralStatusRegistered); err != nil {
		t.Fatalf("PENDING -> REGISTERED should be allowed: %v", err)
	}
	if err := validateReferralTransition(constants.ReferralStatusRegistered, constants.ReferralStatusCompleted); err != nil {
		t.Fatalf("REGISTERED -> COMPLETED should be allowed: %v", err)
	}
	rejected := [][2]constants.ReferralStatus{
		{constants.ReferralStatusPending, constants.ReferralStatusCompleted},
		{constants.ReferralStatusCompleted, constants.ReferralStatusRegistered},
		{constants.ReferralStatusRegistered, constants.ReferralStatusPending},
	}
	for _, pair := range rejected {
		if err := validateReferralTransition(pair[0], pair[1]); !errors.Is(err, ErrReferralTransitionInvalid) {
			t.Fatalf("%s -> %s should be rejected, got %v", pair[0], pair[1], err)
		}
	}
}
