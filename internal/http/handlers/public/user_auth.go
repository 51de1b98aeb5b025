package public

import (
	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/http/response"
	"github.com/tastemap/internal/i18n"
	"github.com/tastemap/internal/service"

	"github.com/gin-gonic/gin"
)

// UserRegisterRequest 注册请求
type UserRegisterRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	DisplayName  string `json:"display_name"`
	Locale       string `json:"locale"`
	ReferralCode string `json:"referral_code"`

	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// UserRegister 用户注册，可携带推荐码
func (h *Handler) UserRegister(c *gin.Context) {
	var req UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !h.verifyCaptcha(c, constants.CaptchaSceneRegister, req.CaptchaPayload) {
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = i18n.ResolveLocale(c)
	}

	result, err := h.UserAuthService.Register(service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		DisplayName:  req.DisplayName,
		Locale:       locale,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		respondWithMappedError(c, err, registerErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.Success(c, result)
}

// UserLoginRequest 登录请求
type UserLoginRequest struct {
	Email          string                `json:"email" binding:"required"`
	Password       string                `json:"password" binding:"required"`
	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// UserLogin 用户登录
func (h *Handler) UserLogin(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !h.verifyCaptcha(c, constants.CaptchaSceneLogin, req.CaptchaPayload) {
		return
	}
	result, err := h.UserAuthService.Login(req.Email, req.Password)
	if err != nil {
		respondWithMappedError(c, err, loginErrorRules, response.CodeInternal, "error.internal_error")
		return
	}
	response.Success(c, result)
}

// UserLogout 注销当前用户的全部登录会话
func (h *Handler) UserLogout(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.UserAuthService.RevokeSessions(userID); err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, nil)
}

// GetCurrentUser 当前用户信息与积分概览
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.UserAuthService.GetUserByID(userID)
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{target: service.ErrUserNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
		}, response.CodeInternal, "error.internal_error")
		return
	}
	summary, err := h.PointsService.GetSummary(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, gin.H{
		"user":   user,
		"points": summary,
	})
}
