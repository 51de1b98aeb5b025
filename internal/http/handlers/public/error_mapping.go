package public

import (
	"errors"

	handlershared "github.com/tastemap/internal/http/handlers/shared"
	"github.com/tastemap/internal/http/response"
	"github.com/tastemap/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	var notMet *service.ConditionNotMetError
	if errors.As(err, &notMet) {
		handlershared.RespondErrorWithData(c, response.CodeBadRequest, "error.coupon_condition_not_met", nil, gin.H{
			"progress": notMet.Progress,
		})
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var registerErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest, key: "error.email_invalid"},
	{target: service.ErrEmailExists, code: response.CodeConflict, key: "error.email_exists"},
	{target: service.ErrPasswordTooShort, code: response.CodeBadRequest, key: "error.password_too_short"},
	{target: service.ErrInvalidReferralCode, code: response.CodeBadRequest, key: "error.referral_code_invalid"},
	{target: service.ErrSelfReferralRejected, code: response.CodeBadRequest, key: "error.self_referral"},
	{target: service.ErrAlreadyReferred, code: response.CodeConflict, key: "error.already_referred"},
}

var referralApplyErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidReferralCode, code: response.CodeBadRequest, key: "error.referral_code_invalid"},
	{target: service.ErrSelfReferralRejected, code: response.CodeBadRequest, key: "error.self_referral"},
	{target: service.ErrAlreadyReferred, code: response.CodeConflict, key: "error.already_referred"},
}

var loginErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeUnauthorized, key: "error.invalid_credentials"},
	{target: service.ErrInvalidCredentials, code: response.CodeUnauthorized, key: "error.invalid_credentials"},
	{target: service.ErrUserDisabled, code: response.CodeUnauthorized, key: "error.user_disabled"},
}

var claimErrorRules = []mappedHandlerError{
	{target: service.ErrCouponNotFound, code: response.CodeNotFound, key: "error.coupon_not_found"},
	{target: service.ErrCouponNotActive, code: response.CodeBadRequest, key: "error.coupon_not_active"},
	{target: service.ErrCouponOutOfWindow, code: response.CodeBadRequest, key: "error.coupon_out_of_window"},
	{target: service.ErrCouponLimitReached, code: response.CodeConflict, key: "error.coupon_limit_reached"},
	{target: service.ErrCouponPerUserLimitReached, code: response.CodeConflict, key: "error.coupon_per_user_limit"},
	{target: service.ErrPointsInsufficient, code: response.CodeBadRequest, key: "error.points_insufficient"},
}

var qrErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.not_found"},
	{target: service.ErrCouponNotClaimable, code: response.CodeBadRequest, key: "error.coupon_not_claimable"},
}

var redeemErrorRules = []mappedHandlerError{
	{target: service.ErrStaffNotAuthorized, code: response.CodeForbidden, key: "error.staff_not_authorized"},
	{target: service.ErrCouponInvalidOrExpired, code: response.CodeBadRequest, key: "error.coupon_invalid_or_expired"},
	{target: service.ErrCouponWrongRestaurant, code: response.CodeBadRequest, key: "error.coupon_wrong_restaurant"},
	{target: service.ErrRestaurantNotFound, code: response.CodeNotFound, key: "error.restaurant_not_found"},
}

var activityErrorRules = []mappedHandlerError{
	{target: service.ErrRestaurantNotFound, code: response.CodeNotFound, key: "error.restaurant_not_found"},
	{target: service.ErrStaffNotAuthorized, code: response.CodeForbidden, key: "error.staff_not_authorized"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
	{target: service.ErrVisitAlreadyRecorded, code: response.CodeConflict, key: "error.visit_duplicate"},
	{target: service.ErrVisitTokenInvalid, code: response.CodeBadRequest, key: "error.visit_token_invalid"},
	{target: service.ErrReviewAlreadyRewarded, code: response.CodeConflict, key: "error.review_duplicate"},
	{target: service.ErrReviewVisitRequired, code: response.CodeForbidden, key: "error.review_visit_required"},
	{target: service.ErrReviewContentInvalid, code: response.CodeBadRequest, key: "error.review_content_invalid"},
	{target: service.ErrReviewPhotosInvalid, code: response.CodeBadRequest, key: "error.review_photos_invalid"},
	{target: service.ErrPointsDuplicateAward, code: response.CodeConflict, key: "error.points_duplicate_award"},
	{target: service.ErrPointsActionInvalid, code: response.CodeBadRequest, key: "error.points_action_invalid"},
	{target: service.ErrPointsInvalidAmount, code: response.CodeBadRequest, key: "error.points_invalid_amount"},
}

var captchaErrorRules = []mappedHandlerError{
	{target: service.ErrCaptchaRequired, code: response.CodeBadRequest, key: "error.captcha_required"},
	{target: service.ErrCaptchaInvalid, code: response.CodeBadRequest, key: "error.captcha_invalid"},
	{target: service.ErrCaptchaConfigInvalid, code: response.CodeBadRequest, key: "error.captcha_unavailable"},
}
