package admin

import (
	"strings"
	"time"

	handlershared "github.com/tastemap/internal/http/handlers/shared"
	"github.com/tastemap/internal/http/response"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"
	"github.com/tastemap/internal/service"

	"github.com/gin-gonic/gin"
)

// CouponRequest 创建/更新优惠券请求
type CouponRequest struct {
	Source                string `json:"source" binding:"required"`
	RestaurantID          *uint  `json:"restaurant_id"`
	Type                  string `json:"type" binding:"required"`
	Title                 string `json:"title" binding:"required"`
	Description           string `json:"description"`
	RewardItemName        string `json:"reward_item_name"`
	DiscountPercent       int    `json:"discount_percent"`
	DiscountAmount        string `json:"discount_amount"`
	TotalLimit            *int   `json:"total_limit"`
	PerUserLimit          int    `json:"per_user_limit"`
	StartsAt              string `json:"starts_at"`
	ExpiresAt             string `json:"expires_at"`
	Status                string `json:"status"`
	ConditionKind         string `json:"condition_kind"`
	ConditionValue        int64  `json:"condition_value"`
	ConditionRestaurantID *uint  `json:"condition_restaurant_id"`
}

func (req CouponRequest) toInput() (service.CouponInput, error) {
	startsAt, err := parseTimeNullable(req.StartsAt)
	if err != nil {
		return service.CouponInput{}, err
	}
	expiresAt, err := parseTimeNullable(req.ExpiresAt)
	if err != nil {
		return service.CouponInput{}, err
	}
	var amount models.Money
	if raw := strings.TrimSpace(req.DiscountAmount); raw != "" {
		amount, err = models.ParseMoney(raw)
		if err != nil {
			return service.CouponInput{}, err
		}
	}
	return service.CouponInput{
		Source:                req.Source,
		RestaurantID:          req.RestaurantID,
		Type:                  req.Type,
		Title:                 req.Title,
		Description:           req.Description,
		RewardItemName:        req.RewardItemName,
		DiscountPercent:       req.DiscountPercent,
		DiscountAmount:        amount,
		TotalLimit:            req.TotalLimit,
		PerUserLimit:          req.PerUserLimit,
		StartsAt:              startsAt,
		ExpiresAt:             expiresAt,
		Status:                req.Status,
		ConditionKind:         req.ConditionKind,
		ConditionValue:        req.ConditionValue,
		ConditionRestaurantID: req.ConditionRestaurantID,
	}, nil
}

// CreateCoupon 创建优惠券
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponAdminService.Create(input)
	if err != nil {
		respondWithMappedError(c, err, couponAdminErrorRules)
		return
	}
	response.Success(c, coupon)
}

// UpdateCoupon 更新优惠券
func (h *Handler) UpdateCoupon(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponAdminService.Update(id, input)
	if err != nil {
		respondWithMappedError(c, err, couponAdminErrorRules)
		return
	}
	response.Success(c, coupon)
}

// CouponStatusRequest 优惠券状态变更请求
type CouponStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateCouponStatus 上架/暂停/归档优惠券
func (h *Handler) UpdateCouponStatus(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req CouponStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponAdminService.UpdateStatus(id, req.Status)
	if err != nil {
		respondWithMappedError(c, err, couponAdminErrorRules)
		return
	}
	if operatorID, exists := c.Get("user_id"); exists {
		requestLog(c).Infow("admin_coupon_status_updated",
			"coupon_id", id,
			"status", coupon.Status,
			"operator_id", operatorID,
		)
	}
	response.Success(c, coupon)
}

// DeleteCoupon 删除优惠券
func (h *Handler) DeleteCoupon(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.CouponAdminService.Delete(id); err != nil {
		respondWithMappedError(c, err, couponAdminErrorRules)
		return
	}
	response.Success(c, nil)
}

// GetCoupon 获取优惠券详情
func (h *Handler) GetCoupon(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	coupon, err := h.CouponAdminService.Get(id)
	if err != nil {
		respondWithMappedError(c, err, couponAdminErrorRules)
		return
	}
	response.Success(c, coupon)
}

// ListCoupons 优惠券列表
func (h *Handler) ListCoupons(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	coupons, total, err := h.CouponAdminService.List(repository.CouponListFilter{
		Page:         page,
		PageSize:     pageSize,
		Source:       strings.ToLower(strings.TrimSpace(c.Query("source"))),
		RestaurantID: handlershared.ParseUintQuery(c, "restaurant_id"),
		Status:       strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Keyword:      strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithPage(c, coupons, response.BuildPagination(page, pageSize, total))
}

func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
