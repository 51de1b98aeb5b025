package public

import (
	"strings"

	handlershared "github.com/tastemap/internal/http/handlers/shared"
	"github.com/tastemap/internal/http/response"
	"github.com/tastemap/internal/service"

	"github.com/gin-gonic/gin"
)

func activityPayload(result *service.ActivityResult) gin.H {
	payload := gin.H{
		"entries":      result.Entries,
		"total_points": result.TotalPoints(),
	}
	if result.Visit != nil {
		payload["visit"] = result.Visit
	}
	if result.Review != nil {
		payload["review"] = result.Review
	}
	if result.Referral != nil {
		payload["referral"] = result.Referral.Referral
	}
	return payload
}

// IssueVisitQR 门店员工生成到店码
func (h *Handler) IssueVisitQR(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	restaurantID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	token, err := h.ActivityService.IssueVisitQR(userID, restaurantID)
	if err != nil {
		respondWithMappedError(c, err, activityErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.Success(c, token)
}

// QRVisitRequest 扫码到店请求
type QRVisitRequest struct {
	Token string `json:"token" binding:"required"`
}

// RecordQRVisit 扫码到店
func (h *Handler) RecordQRVisit(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	restaurantID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req QRVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.ActivityService.RecordQRVisit(userID, restaurantID, req.Token)
	if err != nil {
		respondWithMappedError(c, err, activityErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.Success(c, activityPayload(result))
}

// ReservationArrivalRequest 预订到店确认请求
type ReservationArrivalRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// ConfirmReservationArrival 门店员工确认顾客预订到店
func (h *Handler) ConfirmReservationArrival(c *gin.Context) {
	staffUserID, ok := getUserID(c)
	if !ok {
		return
	}
	restaurantID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	reservationID := strings.TrimSpace(c.Param("reservationId"))
	if reservationID == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req ReservationArrivalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.ActivityService.ConfirmReservationArrival(staffUserID, req.UserID, restaurantID, reservationID)
	if err != nil {
		respondWithMappedError(c, err, activityErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.Success(c, activityPayload(result))
}

// SubmitReviewRequest 发表点评请求
type SubmitReviewRequest struct {
	Content   string   `json:"content" binding:"required"`
	PhotoURLs []string `json:"photo_urls"`
}

// SubmitReview 发表点评并发放积分
func (h *Handler) SubmitReview(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	restaurantID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.ActivityService.SubmitReview(service.ReviewInput{
		UserID:       userID,
		RestaurantID: restaurantID,
		Content:      req.Content,
		PhotoURLs:    req.PhotoURLs,
	})
	if err != nil {
		respondWithMappedError(c, err, activityErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.Success(c, activityPayload(result))
}

// ListRestaurantReviews 餐厅点评列表
func (h *Handler) ListRestaurantReviews(c *gin.Context) {
	restaurantID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.ActivityService.ListRestaurantReviews(restaurantID, page, pageSize)
	if err != nil {
		respondWithMappedError(c, err, activityErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}
