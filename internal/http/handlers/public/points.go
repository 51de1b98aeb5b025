package public

import (
	"strings"

	handlershared "github.com/tastemap/internal/http/handlers/shared"
	"github.com/tastemap/internal/http/response"
	"github.com/tastemap/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetMyPoints 积分余额与等级
func (h *Handler) GetMyPoints(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	summary, err := h.PointsService.GetSummary(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, summary)
}

// ListMyPointsTransactions 积分流水
func (h *Handler) ListMyPointsTransactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	rows, total, err := h.PointsService.ListEntries(repository.PointsEntryListFilter{
		Page:       page,
		PageSize:   pageSize,
		UserID:     userID,
		ActionType: strings.TrimSpace(c.Query("action_type")),
		Direction:  strings.ToLower(strings.TrimSpace(c.Query("direction"))),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
