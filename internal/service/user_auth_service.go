package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/tastemap/internal/cache"
	"github.com/tastemap/internal/config"
	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/i18n"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserAuthService 用户认证服务
type UserAuthService struct {
	cfg       *config.Config
	userRepo  repository.UserRepository
	referrals *ReferralService
}

// NewUserAuthService 创建用户认证服务
func NewUserAuthService(cfg *config.Config, userRepo repository.UserRepository, referrals *ReferralService) *UserAuthService {
	return &UserAuthService{
		cfg:       cfg,
		userRepo:  userRepo,
		referrals: referrals,
	}
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// RegisterInput 注册参数
type RegisterInput struct {
	Email        string
	Password     string
	DisplayName  string
	Locale       string
	ReferralCode string
}

// AuthResult 注册/登录结果
type AuthResult struct {
	User      *models.User     `json:"user"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Referral  *models.Referral `json:"referral,omitempty"`
}

// GenerateUserJWT 生成用户 JWT Token
func (s *UserAuthService) GenerateUserJWT(user *models.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(resolveUserJWTExpireHours(s.cfg.UserJWT)) * time.Hour)
	claims := UserJWTClaims{
		UserID:       user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.UserJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseUserJWT 使用给定密钥解析用户 JWT Token
func ParseUserJWT(secretKey, tokenString string) (*UserJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*UserJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// Register 用户注册；填写推荐码时与建号在同一事务内生效，推荐失败则回滚建号
func (s *UserAuthService) Register(input RegisterInput) (*AuthResult, error) {
	normalized, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(s.cfg.Security.PasswordMinLen, input.Password); err != nil {
		return nil, err
	}

	exist, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = resolveNicknameFromEmail(normalized)
	}
	user := &models.User{
		Email:        normalized,
		PasswordHash: string(hashedPassword),
		DisplayName:  displayName,
		Locale:       i18n.NormalizeLocale(input.Locale),
		Status:       constants.UserStatusActive,
		LastLoginAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var payout *ReferralPayout
	code := NormalizeReferralCode(input.ReferralCode)
	err = s.userRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).Create(user); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrEmailExists
			}
			return err
		}
		if code == "" || s.referrals == nil {
			return nil
		}
		result, err := s.referrals.ApplyTx(tx, code, user.ID)
		if err != nil {
			return err
		}
		payout = result
		return nil
	})
	if err != nil {
		if code != "" {
			logger.Warnw("user_register_referral_rejected",
				"email", normalized,
				"referral_code", code,
				"error", err,
			)
		}
		return nil, err
	}
	if s.referrals != nil {
		s.referrals.Committed(payout)
	}

	token, expiresAt, err := s.GenerateUserJWT(user)
	if err != nil {
		return nil, err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))

	result := &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}
	if payout != nil {
		result.Referral = payout.Referral
	}
	logger.Infow("user_registered",
		"user_id", user.ID,
		"referred", payout != nil,
	)
	return result, nil
}

// Login 用户登录
func (s *UserAuthService) Login(email, password string) (*AuthResult, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if strings.ToLower(user.Status) != constants.UserStatusActive {
		return nil, ErrUserDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.GenerateUserJWT(user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.UpdateLastLogin(user.ID, now); err != nil {
		return nil, err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))

	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// RevokeSessions 注销用户全部会话
func (s *UserAuthService) RevokeSessions(userID uint) error {
	if err := s.userRepo.BumpTokenVersion(userID); err != nil {
		return err
	}
	if err := cache.DelUserAuthState(context.Background(), userID); err != nil {
		logger.Warnw("user_auth_state_evict_failed", "user_id", userID, "error", err)
	}
	return nil
}

// GetUserByID 获取用户
func (s *UserAuthService) GetUserByID(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

func validatePassword(minLength int, password string) error {
	if minLength <= 0 {
		minLength = 8
	}
	if len([]rune(password)) < minLength {
		return ErrPasswordTooShort
	}
	return nil
}

func resolveUserJWTExpireHours(cfg config.JWTConfig) int {
	if cfg.ExpireHours <= 0 {
		return 24
	}
	return cfg.ExpireHours
}

func resolveNicknameFromEmail(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) == 2 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}
