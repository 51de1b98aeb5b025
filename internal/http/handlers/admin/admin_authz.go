package admin

import (
	"strings"

	"github.com/tastemap/internal/authz"
	handlershared "github.com/tastemap/internal/http/handlers/shared"
	"github.com/tastemap/internal/http/response"

	"github.com/gin-gonic/gin"
)

type authzSetUserRolesPayload struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 获取当前操作人的角色
func (h *Handler) GetAuthzMe(c *gin.Context) {
	userID, ok := getOperatorID(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetUserRoles(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	effective, err := h.AuthzService.EffectiveRoles(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, gin.H{
		"user_id":         userID,
		"roles":           roles,
		"effective_roles": effective,
	})
}

// ListAuthzRoles 角色矩阵：继承关系与权限
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.DescribeRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, roles)
}

// SetUserRoles 覆盖用户的后台角色
func (h *Handler) SetUserRoles(c *gin.Context) {
	userID, ok := handlershared.ParseUintParam(c, "userId")
	if !ok {
		return
	}
	var req authzSetUserRolesPayload
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
	if err := h.AuthzService.SetUserRoles(userID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	roles, err := h.AuthzService.GetUserRoles(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	if operatorID, exists := c.Get("user_id"); exists {
		requestLog(c).Infow("admin_user_roles_updated",
			"user_id", userID,
			"roles", roles,
			"operator_id", operatorID,
		)
	}
	response.Success(c, gin.H{
		"user_id": userID,
		"roles":   roles,
	})
}

type authzGrantPolicyPayload struct {
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// GrantRolePolicy 为角色追加接口权限
func (h *Handler) GrantRolePolicy(c *gin.Context) {
	role := strings.TrimSpace(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req authzGrantPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	requestLog(c).Infow("admin_role_policy_granted",
		"role", role,
		"object", authz.NormalizeObject(req.Object),
		"action", authz.NormalizeAction(req.Action),
	)
	response.Success(c, gin.H{
		"role":   role,
		"object": authz.NormalizeObject(req.Object),
		"action": authz.NormalizeAction(req.Action),
	})
}
