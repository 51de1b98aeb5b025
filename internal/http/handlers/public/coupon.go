package public

import (
	"strings"

	handlershared "github.com/tastemap/internal/http/handlers/shared"
	"github.com/tastemap/internal/http/response"
	"github.com/tastemap/internal/i18n"
	"github.com/tastemap/internal/repository"
	"github.com/tastemap/internal/service"

	"github.com/gin-gonic/gin"
)

// ListCoupons 可领取优惠券列表（含条件进度）
func (h *Handler) ListCoupons(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.CouponListFilter{
		Page:         page,
		PageSize:     pageSize,
		Source:       strings.ToLower(strings.TrimSpace(c.Query("source"))),
		RestaurantID: handlershared.ParseUintQuery(c, "restaurant_id"),
	}
	items, total, err := h.CouponService.ListAvailable(userID, filter, i18n.ResolveLocale(c))
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// ClaimCouponRequest 领券请求
type ClaimCouponRequest struct {
	CouponID uint `json:"coupon_id" binding:"required"`
}

// ClaimCoupon 领取优惠券
func (h *Handler) ClaimCoupon(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req ClaimCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.CouponService.Claim(userID, req.CouponID, i18n.ResolveLocale(c))
	if err != nil {
		respondWithMappedError(c, err, claimErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.Success(c, result)
}

// ListMyCoupons 我的优惠券
func (h *Handler) ListMyCoupons(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.CouponService.ListMine(userID, c.Query("status"), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// GetMyCouponQR 生成核销二维码，旧二维码失效
func (h *Handler) GetMyCouponQR(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	userCouponID, ok := handlershared.ParseUintParam(c, "userCouponId")
	if !ok {
		return
	}
	result, err := h.CouponService.GenerateQR(userID, userCouponID)
	if err != nil {
		respondWithMappedError(c, err, qrErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.Success(c, result)
}

// GetMyCoupon 获取单张我的优惠券
func (h *Handler) GetMyCoupon(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	userCouponID, ok := handlershared.ParseUintParam(c, "userCouponId")
	if !ok {
		return
	}
	mine, err := h.CouponService.GetMine(userID, userCouponID)
	if err != nil {
		respondWithMappedError(c, err, qrErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.Success(c, mine)
}

// RedeemCouponRequest 核销请求，二维码令牌与用户券 ID 二选一
type RedeemCouponRequest struct {
	QRToken      string `json:"qr_token"`
	UserCouponID uint   `json:"user_coupon_id"`
}

// RedeemCoupon 员工在门店核销优惠券
func (h *Handler) RedeemCoupon(c *gin.Context) {
	staffUserID, ok := getUserID(c)
	if !ok {
		return
	}
	restaurantID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req RedeemCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if strings.TrimSpace(req.QRToken) == "" && req.UserCouponID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	redemption, err := h.CouponService.Redeem(service.RedeemInput{
		StaffUserID:  staffUserID,
		RestaurantID: restaurantID,
		QRToken:      req.QRToken,
		UserCouponID: req.UserCouponID,
	})
	if err != nil {
		requestLog(c).Infow("coupon_redeem_rejected",
			"restaurant_id", restaurantID,
			"staff_user_id", staffUserID,
			"reason", err.Error(),
		)
		respondWithMappedError(c, err, redeemErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.Success(c, redemption)
}
