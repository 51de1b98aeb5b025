package service

import (
	"strings"
	"time"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/i18n"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"

	"gorm.io/gorm"
)

// CouponCondition 领取条件
type CouponCondition struct {
	Kind         string `json:"kind"`
	Value        int64  `json:"value"`
	RestaurantID *uint  `json:"restaurant_id,omitempty"`
}

// ConditionProgress 条件进度
type ConditionProgress struct {
	Kind      string `json:"kind"`
	Current   int64  `json:"current"`
	Required  int64  `json:"required"`
	Remaining int64  `json:"remaining"`
	Message   string `json:"message"`
}

// ConditionResult 条件判定结果
type ConditionResult struct {
	Allowed  bool              `json:"allowed"`
	Progress ConditionProgress `json:"progress"`
}

// ConditionFromCoupon 从优惠券模板提取领取条件，未配置时返回 nil
func ConditionFromCoupon(coupon *models.Coupon) *CouponCondition {
	if coupon == nil || strings.TrimSpace(coupon.ConditionKind) == "" {
		return nil
	}
	return &CouponCondition{
		Kind:         strings.TrimSpace(coupon.ConditionKind),
		Value:        coupon.ConditionValue,
		RestaurantID: coupon.ConditionRestaurantID,
	}
}

// IsKnownConditionKind 是否为支持的条件类型
func IsKnownConditionKind(kind string) bool {
	switch kind {
	case constants.CouponConditionPointsAtLeast,
		constants.CouponConditionReferralsAtLeast,
		constants.CouponConditionVisitsSameRestaurantAtLeast,
		constants.CouponConditionVisitsDifferentRestaurantsLeast,
		constants.CouponConditionVisitsCitiesAtLeast:
		return true
	}
	return false
}

// ConditionEvaluator 领取条件判定，只读不写
type ConditionEvaluator struct {
	points    repository.PointsRepository
	referrals repository.ReferralRepository
	visits    repository.VisitRepository
}

// NewConditionEvaluator 创建条件判定器
func NewConditionEvaluator(points repository.PointsRepository, referrals repository.ReferralRepository, visits repository.VisitRepository) *ConditionEvaluator {
	return &ConditionEvaluator{
		points:    points,
		referrals: referrals,
		visits:    visits,
	}
}

// WithTx 绑定事务，领取流程在锁内判定
func (e *ConditionEvaluator) WithTx(tx *gorm.DB) *ConditionEvaluator {
	if tx == nil {
		return e
	}
	return &ConditionEvaluator{
		points:    e.points.WithTx(tx),
		referrals: e.referrals.WithTx(tx),
		visits:    e.visits.WithTx(tx),
	}
}

// Evaluate 判定用户是否满足条件；since 之前的历史不计入（积分余额除外）
// 未知条件返回 allowed=false，不返回错误
func (e *ConditionEvaluator) Evaluate(userID uint, cond CouponCondition, since time.Time, locale string) (*ConditionResult, error) {
	required := cond.Value
	if required < 0 {
		required = 0
	}

	var (
		current    int64
		messageKey string
		err        error
	)
	switch cond.Kind {
	case constants.CouponConditionPointsAtLeast:
		messageKey = "condition.points_at_least"
		current, err = e.currentPoints(userID)
	case constants.CouponConditionReferralsAtLeast:
		messageKey = "condition.referrals_at_least"
		current, err = e.referrals.CountCompletedSince(userID, since)
	case constants.CouponConditionVisitsSameRestaurantAtLeast:
		if cond.RestaurantID == nil || *cond.RestaurantID == 0 {
			return unknownConditionResult(cond.Kind, required, locale), nil
		}
		messageKey = "condition.visits_same_restaurant"
		current, err = e.visits.CountAtRestaurantSince(userID, *cond.RestaurantID, since)
	case constants.CouponConditionVisitsDifferentRestaurantsLeast:
		messageKey = "condition.visits_different_restaurants"
		current, err = e.visits.CountDistinctRestaurantsSince(userID, since)
	case constants.CouponConditionVisitsCitiesAtLeast:
		messageKey = "condition.visits_cities"
		current, err = e.visits.CountDistinctCitiesSince(userID, since)
	default:
		return unknownConditionResult(cond.Kind, required, locale), nil
	}
	if err != nil {
		return nil, err
	}

	remaining := required - current
	if remaining < 0 {
		remaining = 0
	}
	result := &ConditionResult{
		Allowed: current >= required,
		Progress: ConditionProgress{
			Kind:      cond.Kind,
			Current:   current,
			Required:  required,
			Remaining: remaining,
		},
	}
	if result.Allowed {
		result.Progress.Message = i18n.T(locale, "condition.met")
	} else {
		result.Progress.Message = i18n.Sprintf(locale, messageKey, remaining)
	}
	return result, nil
}

func (e *ConditionEvaluator) currentPoints(userID uint) (int64, error) {
	account, err := e.points.GetAccountByUserID(userID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, nil
	}
	return account.TotalPoints, nil
}

func unknownConditionResult(kind string, required int64, locale string) *ConditionResult {
	return &ConditionResult{
		Allowed: false,
		Progress: ConditionProgress{
			Kind:      kind,
			Required:  required,
			Remaining: required,
			Message:   i18n.T(locale, "condition.unknown"),
		},
	}
}
