package service

import "errors"

// 通用错误
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrRestaurantNotFound = errors.New("restaurant not found")
)

// 积分账本错误
var (
	ErrPointsInsufficient   = errors.New("insufficient points")
	ErrPointsInvalidAmount  = errors.New("points must be positive")
	ErrPointsDuplicateAward = errors.New("points already awarded for this key")
	ErrPointsActionInvalid  = errors.New("invalid points action type")
)

// 推荐错误
var (
	ErrInvalidReferralCode       = errors.New("invalid referral code")
	ErrSelfReferralRejected      = errors.New("self referral rejected")
	ErrAlreadyReferred           = errors.New("user already referred")
	ErrReferralTransitionInvalid = errors.New("invalid referral status transition")
	ErrReferralCodeGenerate      = errors.New("referral code generation exhausted")
)

// 优惠券领取与核销错误
var (
	ErrCouponNotFound            = errors.New("coupon not found")
	ErrCouponNotActive           = errors.New("coupon not active")
	ErrCouponOutOfWindow         = errors.New("coupon outside claim window")
	ErrCouponLimitReached        = errors.New("coupon total limit reached")
	ErrCouponPerUserLimitReached = errors.New("coupon per-user limit reached")
	ErrCouponConditionNotMet     = errors.New("coupon condition not met")
	ErrCouponNotClaimable        = errors.New("user coupon not usable")
	ErrCouponInvalidOrExpired    = errors.New("coupon invalid or expired")
	ErrCouponWrongRestaurant     = errors.New("coupon not valid at this restaurant")
	ErrStaffNotAuthorized        = errors.New("staff not authorized for restaurant")
	ErrUserCouponTransition      = errors.New("invalid user coupon status transition")
)

// 优惠券管理错误
var (
	ErrCouponValidityRequired  = errors.New("total limit or validity window required")
	ErrCouponTypeInvalid       = errors.New("invalid coupon type")
	ErrCouponRewardInvalid     = errors.New("invalid coupon reward")
	ErrCouponConditionInvalid  = errors.New("invalid coupon condition")
	ErrCouponScopeInvalid      = errors.New("invalid coupon scope")
	ErrCouponWindowInvalid     = errors.New("invalid coupon window")
	ErrCouponLimitBelowClaimed = errors.New("total limit below claimed count")
	ErrCouponStatusInvalid     = errors.New("invalid coupon status transition")
)

// 活动触发错误
var (
	ErrVisitAlreadyRecorded  = errors.New("visit already recorded")
	ErrVisitTokenInvalid     = errors.New("visit qr token invalid or expired")
	ErrReviewAlreadyRewarded = errors.New("review already rewarded")
	ErrReviewVisitRequired   = errors.New("review requires a recorded visit")
	ErrReviewContentInvalid  = errors.New("review content invalid")
	ErrReviewPhotosInvalid   = errors.New("review photos invalid")
)

// 验证码错误
var (
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
)

// ConditionNotMetError 领取条件未满足，携带进度
type ConditionNotMetError struct {
	Progress ConditionProgress
}

func (e *ConditionNotMetError) Error() string {
	return ErrCouponConditionNotMet.Error()
}

// Unwrap 支持 errors.Is(err, ErrCouponConditionNotMet)
func (e *ConditionNotMetError) Unwrap() error {
	return ErrCouponConditionNotMet
}
