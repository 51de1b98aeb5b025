package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRepositoryTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repository_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func TestPointsRepositoryConditionalDecrement(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewPointsRepository(db)

	if err := repo.EnsureAccount(1); err != nil {
		t.Fatalf("ensure account failed: %v", err)
	}
	if err := repo.EnsureAccount(1); err != nil {
		t.Fatalf("ensure account twice failed: %v", err)
	}
	if err := repo.IncrementBalance(1, 60); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	ok, err := repo.DecrementBalanceIfSufficient(1, 100)
	if err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if ok {
		t.Fatalf("decrement should fail on insufficient balance")
	}
	ok, err = repo.DecrementBalanceIfSufficient(1, 60)
	if err != nil || !ok {
		t.Fatalf("decrement exact balance failed: ok=%v err=%v", ok, err)
	}

	account, err := repo.GetAccountByUserID(1)
	if err != nil || account == nil {
		t.Fatalf("get account failed: %v", err)
	}
	if account.TotalPoints != 0 {
		t.Fatalf("expected 0 points, got %d", account.TotalPoints)
	}
}

func TestPointsRepositoryBalanceCheckConstraint(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewPointsRepository(db)
	if err := repo.EnsureAccount(2); err != nil {
		t.Fatalf("ensure account failed: %v", err)
	}
	if err := repo.IncrementBalance(2, -1); err == nil {
		t.Fatalf("negative balance should violate check constraint")
	}
}

func TestPointsRepositoryListAndSumEntries(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewPointsRepository(db)

	entries := []models.PointsLedgerEntry{
		{UserID: 3, ActionType: constants.PointsActionVisitQR, Points: 20, BalanceAfter: 20},
		{UserID: 3, ActionType: constants.PointsActionReviewAdd, Points: 10, BalanceAfter: 30},
		{UserID: 3, ActionType: constants.PointsActionSpentCoupon, Points: -25, BalanceAfter: 5},
		{UserID: 4, ActionType: constants.PointsActionVisitQR, Points: 20, BalanceAfter: 20},
	}
	for i := range entries {
		if err := repo.CreateEntry(&entries[i]); err != nil {
			t.Fatalf("create entry failed: %v", err)
		}
	}

	sum, count, err := repo.SumEntries(3)
	if err != nil {
		t.Fatalf("sum entries failed: %v", err)
	}
	if sum != 5 || count != 3 {
		t.Fatalf("unexpected sum=%d count=%d", sum, count)
	}

	spent, total, err := repo.ListEntries(PointsEntryListFilter{UserID: 3, Direction: "spend", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	if total != 1 || len(spent) != 1 || spent[0].Points != -25 {
		t.Fatalf("unexpected spend entries: total=%d rows=%+v", total, spent)
	}
}

func TestPointsRepositoryIdempotencyKeyUnique(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewPointsRepository(db)
	key := "review:9:review_add"

	first := models.PointsLedgerEntry{UserID: 5, ActionType: constants.PointsActionReviewAdd, Points: 10, BalanceAfter: 10, IdempotencyKey: &key}
	if err := repo.CreateEntry(&first); err != nil {
		t.Fatalf("create entry failed: %v", err)
	}
	second := models.PointsLedgerEntry{UserID: 5, ActionType: constants.PointsActionReviewAdd, Points: 10, BalanceAfter: 20, IdempotencyKey: &key}
	err := repo.CreateEntry(&second)
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	found, err := repo.GetEntryByIdempotencyKey(key)
	if err != nil || found == nil || found.ID != first.ID {
		t.Fatalf("lookup by key failed: %+v err=%v", found, err)
	}
}

func TestVisitRepositoryDistinctCounts(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewVisitRepository(db)
	base := time.Now().UTC().Add(-48 * time.Hour)

	visits := []models.Visit{
		{UserID: 1, RestaurantID: 10, City: "Shanghai", Source: constants.VisitSourceQR, ReferenceID: "10:d1", VisitedAt: base.Add(time.Hour)},
		{UserID: 1, RestaurantID: 10, City: "Shanghai", Source: constants.VisitSourceQR, ReferenceID: "10:d2", VisitedAt: base.Add(25 * time.Hour)},
		{UserID: 1, RestaurantID: 11, City: "Hangzhou", Source: constants.VisitSourceReservation, ReferenceID: "r-1", VisitedAt: base.Add(26 * time.Hour)},
		{UserID: 1, RestaurantID: 12, City: "Hangzhou", Source: constants.VisitSourceQR, ReferenceID: "12:d0", VisitedAt: base.Add(-time.Hour)},
	}
	for i := range visits {
		if err := repo.Create(&visits[i]); err != nil {
			t.Fatalf("create visit failed: %v", err)
		}
	}

	dup := models.Visit{UserID: 1, RestaurantID: 10, City: "Shanghai", Source: constants.VisitSourceQR, ReferenceID: "10:d1", VisitedAt: base}
	if err := repo.Create(&dup); !IsUniqueViolation(err) {
		t.Fatalf("duplicate visit should violate unique index, got %v", err)
	}

	same, err := repo.CountAtRestaurantSince(1, 10, base)
	if err != nil || same != 2 {
		t.Fatalf("same restaurant count want 2 got %d err=%v", same, err)
	}
	restaurants, err := repo.CountDistinctRestaurantsSince(1, base)
	if err != nil || restaurants != 2 {
		t.Fatalf("distinct restaurants want 2 got %d err=%v", restaurants, err)
	}
	cities, err := repo.CountDistinctCitiesSince(1, base)
	if err != nil || cities != 2 {
		t.Fatalf("distinct cities want 2 got %d err=%v", cities, err)
	}
	allCities, err := repo.CountDistinctCitiesSince(1, base.Add(-2*time.Hour))
	if err != nil || allCities != 2 {
		t.Fatalf("distinct cities including older visit want 2 got %d err=%v", allCities, err)
	}
}

func TestCouponRepositoryIncrementClaimedCountRespectsLimit(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewCouponRepository(db)
	limit := 2
	coupon := &models.Coupon{
		Source:       constants.CouponSourcePlatform,
		Type:         constants.CouponTypeRewardItem,
		Title:        "Free dessert",
		TotalLimit:   &limit,
		PerUserLimit: 1,
		Status:       constants.CouponStatusActive,
	}
	if err := repo.Create(coupon); err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		ok, err := repo.IncrementClaimedCount(coupon.ID)
		if err != nil || !ok {
			t.Fatalf("increment %d failed: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := repo.IncrementClaimedCount(coupon.ID)
	if err != nil {
		t.Fatalf("increment beyond limit errored: %v", err)
	}
	if ok {
		t.Fatalf("increment beyond limit should not apply")
	}

	if err := repo.Delete(coupon.ID); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}
	if got, _ := repo.GetByID(coupon.ID); got != nil {
		t.Fatalf("soft deleted coupon should be hidden")
	}
	got, err := repo.GetByIDUnscoped(coupon.ID)
	if err != nil || got == nil || got.ClaimedCount != 2 {
		t.Fatalf("unscoped read failed: %+v err=%v", got, err)
	}
}

func TestUserCouponRepositoryListByUserStatusFilter(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewUserCouponRepository(db)
	now := time.Now().UTC()

	rows := []models.UserCoupon{
		{CouponID: 1, UserID: 7, ClaimedAt: now, ExpiresAt: now.Add(time.Hour), Status: constants.UserCouponStatusClaimed},
		{CouponID: 1, UserID: 7, ClaimedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour), Status: constants.UserCouponStatusClaimed},
		{CouponID: 2, UserID: 7, ClaimedAt: now, ExpiresAt: now.Add(time.Hour), Status: constants.UserCouponStatusRedeemed},
	}
	for i := range rows {
		if err := repo.Create(&rows[i]); err != nil {
			t.Fatalf("create user coupon failed: %v", err)
		}
	}

	cases := map[string]int64{
		constants.UserCouponFilterActive:   1,
		constants.UserCouponFilterExpired:  1,
		constants.UserCouponFilterRedeemed: 1,
		"":                                 3,
	}
	for status, want := range cases {
		_, total, err := repo.ListByUser(UserCouponListFilter{UserID: 7, Status: status, Now: now, Page: 1, PageSize: 20})
		if err != nil {
			t.Fatalf("list %q failed: %v", status, err)
		}
		if total != want {
			t.Fatalf("status %q want %d got %d", status, want, total)
		}
	}

	counts, err := repo.CountByUserForCoupons(7, []uint{1, 2, 3})
	if err != nil {
		t.Fatalf("count by coupons failed: %v", err)
	}
	if counts[1] != 2 || counts[2] != 1 || counts[3] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestReferralRepositoryUniqueIndexes(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewReferralRepository(db)

	users := make([]models.User, 3)
	for i := range users {
		users[i] = models.User{
			Email:        fmt.Sprintf("referral-unique-%d@example.com", i),
			PasswordHash: "hash",
			Status:       constants.UserStatusActive,
		}
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("create user failed: %v", err)
		}
	}
	referrerA, referrerB, referred := users[0], users[1], users[2]
	codeA := models.ReferralCode{UserID: referrerA.ID, Code: "UNIQA001", IsActive: true}
	codeB := models.ReferralCode{UserID: referrerB.ID, Code: "UNIQB001", IsActive: true}
	for _, code := range []*models.ReferralCode{&codeA, &codeB} {
		if err := repo.CreateCode(code); err != nil {
			t.Fatalf("create code failed: %v", err)
		}
	}

	first := models.Referral{
		ReferrerID:     referrerA.ID,
		ReferredUserID: referred.ID,
		ReferralCodeID: codeA.ID,
		Status:         constants.ReferralStatusRegistered,
	}
	if err := repo.CreateReferral(&first); err != nil {
		t.Fatalf("create referral failed: %v", err)
	}
	second := models.Referral{
		ReferrerID:     referrerB.ID,
		ReferredUserID: referred.ID,
		ReferralCodeID: codeB.ID,
		Status:         constants.ReferralStatusRegistered,
	}
	if err := repo.CreateReferral(&second); !IsUniqueViolation(err) {
		t.Fatalf("second referral for the same user should violate unique index, got %v", err)
	}

	reward := models.ReferralReward{
		UserID:        referrerA.ID,
		ReferralID:    first.ID,
		ActionType:    constants.PointsActionReferralVisitReferrer,
		Points:        10,
		LedgerEntryID: 1,
	}
	if err := repo.CreateReward(&reward); err != nil {
		t.Fatalf("create reward failed: %v", err)
	}
	dup := reward
	dup.ID = 0
	dup.LedgerEntryID = 2
	if err := repo.CreateReward(&dup); !IsUniqueViolation(err) {
		t.Fatalf("duplicate reward should violate unique index, got %v", err)
	}
	other := reward
	other.ID = 0
	other.ActionType = constants.PointsActionReferralRegistrationReferrer
	if err := repo.CreateReward(&other); err != nil {
		t.Fatalf("reward for another action should be allowed: %v", err)
	}

	var total int64
	if err := db.Model(&models.ReferralReward{}).Count(&total).Error; err != nil {
		t.Fatalf("count rewards failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected two reward rows, got %d", total)
	}
}

func TestUserCouponRepositoryExpiryBoundary(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewUserCouponRepository(db)
	now := time.Now().UTC()

	edge := models.UserCoupon{CouponID: 1, UserID: 8, ClaimedAt: now.Add(-time.Hour), ExpiresAt: now, Status: constants.UserCouponStatusClaimed}
	if err := repo.Create(&edge); err != nil {
		t.Fatalf("create user coupon failed: %v", err)
	}
	if got := edge.EffectiveStatus(now); got != constants.UserCouponStatusClaimed {
		t.Fatalf("coupon expiring now should still be claimed, got %s", got)
	}

	list := func(status string, at time.Time) int64 {
		_, total, err := repo.ListByUser(UserCouponListFilter{UserID: 8, Status: status, Now: at, Page: 1, PageSize: 20})
		if err != nil {
			t.Fatalf("list %q failed: %v", status, err)
		}
		return total
	}
	if active, expired := list(constants.UserCouponFilterActive, now), list(constants.UserCouponFilterExpired, now); active != 1 || expired != 0 {
		t.Fatalf("at expires_at want active=1 expired=0, got active=%d expired=%d", active, expired)
	}

	later := now.Add(time.Millisecond)
	if got := edge.EffectiveStatus(later); got != constants.UserCouponStatusExpired {
		t.Fatalf("coupon past expires_at should be expired, got %s", got)
	}
	if active, expired := list(constants.UserCouponFilterActive, later), list(constants.UserCouponFilterExpired, later); active != 0 || expired != 1 {
		t.Fatalf("after expires_at want active=0 expired=1, got active=%d expired=%d", active, expired)
	}
}
