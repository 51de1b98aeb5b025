package admin

import (
	handlershared "github.com/tastemap/internal/http/handlers/shared"
	"github.com/tastemap/internal/http/response"

	"github.com/gin-gonic/gin"
)

// AuditUserPoints 核对账户余额与流水合计
func (h *Handler) AuditUserPoints(c *gin.Context) {
	userID, ok := handlershared.ParseUintParam(c, "userId")
	if !ok {
		return
	}
	audit, err := h.PointsService.VerifyBalance(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	if !audit.Consistent {
		requestLog(c).Warnw("admin_points_audit_inconsistent",
			"user_id", userID,
			"total_points", audit.TotalPoints,
			"entry_sum", audit.EntrySum,
		)
	}
	response.Success(c, audit)
}

// AdjustPointsRequest 积分调整请求
type AdjustPointsRequest struct {
	Delta  int64  `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// AdjustUserPoints 管理员手工调整积分
func (h *Handler) AdjustUserPoints(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	userID, ok := handlershared.ParseUintParam(c, "userId")
	if !ok {
		return
	}
	var req AdjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		return
	}
	entry, err := h.PointsService.AdminAdjust(userID, req.Delta, req.Reason, operatorID)
	if err != nil {
		respondWithMappedError(c, err, pointsAdminErrorRules)
		return
	}
	requestLog(c).Infow("admin_points_adjusted",
		"user_id", userID,
		"delta", req.Delta,
		"operator_id", operatorID,
	)
	response.Success(c, entry)
}

// GrantAchievementRequest 成就奖励请求
type GrantAchievementRequest struct {
	AchievementKey string `json:"achievement_key" binding:"required"`
	Points         int64  `json:"points" binding:"required"`
}

// GrantUserAchievement 为用户发放成就积分，同一成就只发放一次
func (h *Handler) GrantUserAchievement(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	userID, ok := handlershared.ParseUintParam(c, "userId")
	if !ok {
		return
	}
	var req GrantAchievementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		return
	}
	entry, err := h.ActivityService.UnlockAchievement(userID, req.AchievementKey, req.Points)
	if err != nil {
		respondWithMappedError(c, err, pointsAdminErrorRules)
		return
	}
	requestLog(c).Infow("admin_achievement_granted",
		"user_id", userID,
		"achievement_key", req.AchievementKey,
		"points", req.Points,
		"operator_id", operatorID,
	)
	response.Success(c, entry)
}
