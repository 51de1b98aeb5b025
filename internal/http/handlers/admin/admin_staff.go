package admin

import (
	handlershared "github.com/tastemap/internal/http/handlers/shared"
	"github.com/tastemap/internal/http/response"

	"github.com/gin-gonic/gin"
)

// StaffRequest 绑定/解绑员工请求
type StaffRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

// ListRestaurantStaff 餐厅员工列表
func (h *Handler) ListRestaurantStaff(c *gin.Context) {
	restaurantID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	rows, err := h.CouponAdminService.ListStaff(restaurantID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, rows)
}

// AssignRestaurantStaff 绑定餐厅员工
func (h *Handler) AssignRestaurantStaff(c *gin.Context) {
	restaurantID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req StaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	staff, err := h.CouponAdminService.AssignStaff(restaurantID, req.UserID, req.Role)
	if err != nil {
		respondWithMappedError(c, err, staffErrorRules)
		return
	}
	response.Success(c, staff)
}

// RemoveRestaurantStaff 解绑餐厅员工
func (h *Handler) RemoveRestaurantStaff(c *gin.Context) {
	restaurantID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req StaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.CouponAdminService.RemoveStaff(restaurantID, req.UserID); err != nil {
		respondWithMappedError(c, err, staffErrorRules)
		return
	}
	response.Success(c, nil)
}
