package public

import (
	"strings"

	handlershared "github.com/tastemap/internal/http/handlers/shared"
	"github.com/tastemap/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetMyReferralCode 我的推荐码与统计，首次访问时生成
func (h *Handler) GetMyReferralCode(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	if _, err := h.ReferralService.GetOrCreateCode(userID); err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	stats, err := h.ReferralService.GetStats(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, stats)
}

// ListMyReferrals 我邀请的用户
func (h *Handler) ListMyReferrals(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	rows, total, err := h.ReferralService.ListMyReferrals(userID, status, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ListMyReferralRewards 我的推荐奖励
func (h *Handler) ListMyReferralRewards(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	rows, total, err := h.ReferralService.ListMyRewards(userID, strings.TrimSpace(c.Query("bonus_type")), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ApplyReferralCodeRequest 补填推荐码请求
type ApplyReferralCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyReferralCode 注册时未填写推荐码的用户补填
func (h *Handler) ApplyReferralCode(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req ApplyReferralCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	payout, err := h.ReferralService.Apply(req.Code, userID)
	if err != nil {
		respondWithMappedError(c, err, referralApplyErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.Success(c, gin.H{
		"referral": payout.Referral,
		"rewards":  payout.Rewards,
	})
}
