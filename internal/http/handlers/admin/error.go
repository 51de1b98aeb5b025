package admin

import (
	"errors"

	handlershared "github.com/tastemap/internal/http/handlers/shared"
	"github.com/tastemap/internal/http/response"
	"github.com/tastemap/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

type mappedAdminError struct {
	target error
	code   int
	key    string
}

var couponAdminErrorRules = []mappedAdminError{
	{target: service.ErrCouponNotFound, code: response.CodeNotFound, key: "error.coupon_not_found"},
	{target: service.ErrCouponValidityRequired, code: response.CodeBadRequest, key: "error.coupon_validity_required"},
	{target: service.ErrCouponTypeInvalid, code: response.CodeBadRequest, key: "error.coupon_type_invalid"},
	{target: service.ErrCouponRewardInvalid, code: response.CodeBadRequest, key: "error.coupon_reward_invalid"},
	{target: service.ErrCouponConditionInvalid, code: response.CodeBadRequest, key: "error.coupon_condition_invalid"},
	{target: service.ErrCouponScopeInvalid, code: response.CodeBadRequest, key: "error.coupon_scope_invalid"},
	{target: service.ErrCouponWindowInvalid, code: response.CodeBadRequest, key: "error.coupon_window_invalid"},
	{target: service.ErrCouponLimitBelowClaimed, code: response.CodeConflict, key: "error.coupon_limit_below_claimed"},
	{target: service.ErrCouponStatusInvalid, code: response.CodeConflict, key: "error.coupon_status_invalid"},
	{target: service.ErrRestaurantNotFound, code: response.CodeNotFound, key: "error.restaurant_not_found"},
}

var staffErrorRules = []mappedAdminError{
	{target: service.ErrRestaurantNotFound, code: response.CodeNotFound, key: "error.restaurant_not_found"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.not_found"},
}

var pointsAdminErrorRules = []mappedAdminError{
	{target: service.ErrPointsInsufficient, code: response.CodeBadRequest, key: "error.points_insufficient"},
	{target: service.ErrPointsInvalidAmount, code: response.CodeBadRequest, key: "error.points_invalid_amount"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
	{target: service.ErrPointsDuplicateAward, code: response.CodeConflict, key: "error.points_duplicate_award"},
	{target: service.ErrPointsActionInvalid, code: response.CodeBadRequest, key: "error.points_action_invalid"},
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedAdminError) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, response.CodeInternal, "error.internal_error", err)
}
