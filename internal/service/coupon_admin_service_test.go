package service

import (
	"errors"
	"testing"
	"time"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"

	"github.com/shopspring/decimal"
)

func validCouponInput() CouponInput {
	limit := 50
	return CouponInput{
		Source:         constants.CouponSourcePlatform,
		Type:           constants.CouponTypeRewardItem,
		Title:          "Free drink",
		RewardItemName: "Lemon tea",
		TotalLimit:     &limit,
	}
}

func TestCouponAdminCreateValidation(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	restaurant := createLoyaltyTestRestaurant(t, env.db, "Validation", "Xiamen")
	missingRestaurant := restaurant.ID + 100
	zero := 0
	start := time.Now()
	end := start.Add(-time.Hour)

	cases := []struct {
		name   string
		mutate func(*CouponInput)
		want   error
	}{
		{name: "no limit and no window", mutate: func(in *CouponInput) { in.TotalLimit = nil }, want: ErrCouponValidityRequired},
		{name: "zero limit", mutate: func(in *CouponInput) { in.TotalLimit = &zero }, want: ErrCouponValidityRequired},
		{name: "unknown type", mutate: func(in *CouponInput) { in.Type = "CASHBACK" }, want: ErrCouponTypeInvalid},
		{name: "reward item without name", mutate: func(in *CouponInput) { in.RewardItemName = "" }, want: ErrCouponRewardInvalid},
		{name: "percent out of range", mutate: func(in *CouponInput) {
			in.Type = constants.CouponTypePercentDiscount
			in.DiscountPercent = 120
		}, want: ErrCouponRewardInvalid},
		{name: "fixed without amount", mutate: func(in *CouponInput) { in.Type = constants.CouponTypeFixedDiscount }, want: ErrCouponRewardInvalid},
		{name: "restaurant source without restaurant", mutate: func(in *CouponInput) { in.Source = constants.CouponSourceRestaurant }, want: ErrCouponScopeInvalid},
		{name: "restaurant source with missing restaurant", mutate: func(in *CouponInput) {
			in.Source = constants.CouponSourceRestaurant
			in.RestaurantID = &missingRestaurant
		}, want: ErrRestaurantNotFound},
		{name: "inverted window", mutate: func(in *CouponInput) {
			in.StartsAt = &start
			in.ExpiresAt = &end
		}, want: ErrCouponWindowInvalid},
		{name: "unknown condition", mutate: func(in *CouponInput) {
			in.ConditionKind = "BIRTHDAY"
			in.ConditionValue = 1
		}, want: ErrCouponConditionInvalid},
		{name: "same restaurant condition without scope", mutate: func(in *CouponInput) {
			in.ConditionKind = constants.CouponConditionVisitsSameRestaurantAtLeast
			in.ConditionValue = 3
		}, want: ErrCouponConditionInvalid},
		{name: "initial status paused", mutate: func(in *CouponInput) { in.Status = "PAUSED" }, want: ErrCouponStatusInvalid},
	}
	for _, tc := range cases {
		input := validCouponInput()
		tc.mutate(&input)
		if _, err := env.couponAdmin.Create(input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	var count int64
	if err := env.db.Model(&models.Coupon{}).Count(&count).Error; err != nil {
		t.Fatalf("count coupons failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected validation to reject before writing, found %d coupons", count)
	}
}

func TestCouponAdminCreateNormalizesInput(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	restaurant := createLoyaltyTestRestaurant(t, env.db, "Scoped", "Qingdao")
	restaurantID := restaurant.ID

	input := validCouponInput()
	input.Source = " Restaurant "
	input.RestaurantID = &restaurantID
	input.Type = "fixed_discount"
	input.DiscountAmount = models.NewMoney(decimal.RequireFromString("12.345"))
	input.ConditionKind = "visits_same_restaurant_at_least"
	input.ConditionValue = 2
	input.Status = "active"

	coupon, err := env.couponAdmin.Create(input)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if coupon.Source != constants.CouponSourceRestaurant || coupon.Type != constants.CouponTypeFixedDiscount {
		t.Fatalf("unexpected normalized coupon: %+v", coupon)
	}
	if coupon.DiscountAmount.String() != "12.35" {
		t.Fatalf("expected amount rounded to 12.35, got %s", coupon.DiscountAmount.String())
	}
	if coupon.ConditionRestaurantID == nil || *coupon.ConditionRestaurantID != restaurant.ID {
		t.Fatalf("expected condition scoped to coupon restaurant, got %+v", coupon.ConditionRestaurantID)
	}
	if coupon.Status != constants.CouponStatusActive || coupon.PerUserLimit != 1 {
		t.Fatalf("unexpected status/per-user limit: %s %d", coupon.Status, coupon.PerUserLimit)
	}

	windowOnly := validCouponInput()
	windowOnly.TotalLimit = nil
	ends := time.Now().Add(24 * time.Hour)
	windowOnly.ExpiresAt = &ends
	created, err := env.couponAdmin.Create(windowOnly)
	if err != nil {
		t.Fatalf("create window-only coupon failed: %v", err)
	}
	if created.Status != constants.CouponStatusDraft || created.TotalLimit != nil {
		t.Fatalf("unexpected window-only coupon: %+v", created)
	}
}

func TestCouponAdminStatusTransitions(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	coupon, err := env.couponAdmin.Create(validCouponInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	steps := []struct {
		to   constants.CouponStatus
		want error
	}{
		{to: constants.CouponStatusPaused, want: ErrCouponStatusInvalid},
		{to: constants.CouponStatusActive},
		{to: constants.CouponStatusPaused},
		{to: constants.CouponStatusActive},
		{to: constants.CouponStatusExpired},
		{to: constants.CouponStatusActive, want: ErrCouponStatusInvalid},
	}
	for _, step := range steps {
		updated, err := env.couponAdmin.UpdateStatus(coupon.ID, string(step.to))
		if step.want != nil {
			if !errors.Is(err, step.want) {
				t.Fatalf("-> %s: expected %v, got %v", step.to, step.want, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("-> %s failed: %v", step.to, err)
		}
		if updated.Status != step.to {
			t.Fatalf("expected status %s, got %s", step.to, updated.Status)
		}
	}
}

func TestCouponAdminUpdateRejectsLimitBelowClaimed(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	user := createLoyaltyTestUser(t, env.db, "admin-update@example.com")
	other := createLoyaltyTestUser(t, env.db, "admin-update-2@example.com")

	input := validCouponInput()
	input.Status = string(constants.CouponStatusActive)
	coupon, err := env.couponAdmin.Create(input)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for _, userID := range []uint{user.ID, other.ID} {
		if _, err := env.coupons.Claim(userID, coupon.ID, ""); err != nil {
			t.Fatalf("claim failed: %v", err)
		}
	}

	one := 1
	update := validCouponInput()
	update.TotalLimit = &one
	if _, err := env.couponAdmin.Update(coupon.ID, update); !errors.Is(err, ErrCouponLimitBelowClaimed) {
		t.Fatalf("expected ErrCouponLimitBelowClaimed, got %v", err)
	}

	two := 2
	update.TotalLimit = &two
	update.Title = "Renamed"
	updated, err := env.couponAdmin.Update(coupon.ID, update)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Title != "Renamed" || updated.ClaimedCount != 2 || updated.Status != constants.CouponStatusActive {
		t.Fatalf("unexpected updated coupon: %+v", updated)
	}

	if _, err := env.couponAdmin.Update(coupon.ID+99, update); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestCouponAdminDeleteAndList(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	first, err := env.couponAdmin.Create(validCouponInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := env.couponAdmin.Create(validCouponInput()); err != nil {
		t.Fatalf("create second failed: %v", err)
	}
	if err := env.couponAdmin.Delete(first.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := env.couponAdmin.Delete(first.ID); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound on second delete, got %v", err)
	}
	if _, err := env.couponAdmin.Get(first.ID); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected deleted coupon hidden, got %v", err)
	}
	rows, total, err := env.couponAdmin.List(repository.CouponListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("expected one visible coupon, got total=%d len=%d", total, len(rows))
	}
}

func TestCouponAdminStaffAssignment(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	restaurant := createLoyaltyTestRestaurant(t, env.db, "Staffed", "Wuhan")
	user := createLoyaltyTestUser(t, env.db, "staff-assign@example.com")

	staff, err := env.couponAdmin.AssignStaff(restaurant.ID, user.ID, "MANAGER")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if staff.Role != constants.StaffRoleManager {
		t.Fatalf("expected manager role, got %s", staff.Role)
	}
	again, err := env.couponAdmin.AssignStaff(restaurant.ID, user.ID, "")
	if err != nil {
		t.Fatalf("second assign failed: %v", err)
	}
	if again.ID != staff.ID {
		t.Fatalf("expected existing assignment, got %+v", again)
	}
	if _, err := env.couponAdmin.AssignStaff(restaurant.ID+50, user.ID, ""); !errors.Is(err, ErrRestaurantNotFound) {
		t.Fatalf("expected ErrRestaurantNotFound, got %v", err)
	}
	if _, err := env.couponAdmin.AssignStaff(restaurant.ID, user.ID+50, ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := env.couponAdmin.RemoveStaff(restaurant.ID, user.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := env.couponAdmin.RemoveStaff(restaurant.ID, user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}
