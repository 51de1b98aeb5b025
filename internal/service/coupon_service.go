package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tastemap/internal/config"
	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/metrics"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"

	"gorm.io/gorm"
)

const qrTokenBytes = 32

// CouponService 优惠券领取与核销
type CouponService struct {
	couponRepo     repository.CouponRepository
	userCouponRepo repository.UserCouponRepository
	restaurantRepo repository.RestaurantRepository
	points         *PointsService
	evaluator      *ConditionEvaluator
	cfg            config.CouponConfig
	notifier       *NotificationService
}

// NewCouponService 创建优惠券服务
func NewCouponService(
	couponRepo repository.CouponRepository,
	userCouponRepo repository.UserCouponRepository,
	restaurantRepo repository.RestaurantRepository,
	points *PointsService,
	evaluator *ConditionEvaluator,
	cfg config.CouponConfig,
	notifier *NotificationService,
) *CouponService {
	return &CouponService{
		couponRepo:     couponRepo,
		userCouponRepo: userCouponRepo,
		restaurantRepo: restaurantRepo,
		points:         points,
		evaluator:      evaluator,
		cfg:            cfg,
		notifier:       notifier,
	}
}

// ClaimResult 领取结果，QRToken 仅在此返回一次
type ClaimResult struct {
	UserCoupon  *models.UserCoupon        `json:"user_coupon"`
	QRToken     string                    `json:"qr_token"`
	QRPayload   string                    `json:"qr_payload"`
	PointsSpent int64                     `json:"points_spent"`
	SpendEntry  *models.PointsLedgerEntry `json:"-"`
}

// QRCodeResult 核销二维码
type QRCodeResult struct {
	UserCouponID uint      `json:"user_coupon_id"`
	QRToken      string    `json:"qr_token"`
	QRPayload    string    `json:"qr_payload"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RedeemInput 核销参数，QRToken 与 UserCouponID 二选一
type RedeemInput struct {
	StaffUserID  uint
	RestaurantID uint
	QRToken      string
	UserCouponID uint
}

// AvailableCoupon 可领取优惠券及进度
type AvailableCoupon struct {
	Coupon       models.Coupon      `json:"coupon"`
	ClaimedByMe  int64              `json:"claimed_by_me"`
	CanClaim     bool               `json:"can_claim"`
	Condition    *CouponCondition   `json:"condition,omitempty"`
	Progress     *ConditionProgress `json:"progress,omitempty"`
	BlockedByKey string             `json:"blocked_by,omitempty"`
}

// MyCoupon 我的优惠券，附带券模板（含已删除模板）与核销记录
type MyCoupon struct {
	models.UserCoupon
	EffectiveStatus constants.UserCouponStatus `json:"effective_status"`
	Redemption      *models.CouponRedemption   `json:"redemption,omitempty"`
}

// Claim 领取优惠券：校验、扣积分、发放令牌在同一事务内完成
func (s *CouponService) Claim(userID, couponID uint, locale string) (*ClaimResult, error) {
	started := time.Now()
	result, err := s.claim(userID, couponID, locale)
	metrics.L().RecordClaim(claimResultLabel(err), started)
	if err != nil {
		return nil, err
	}

	s.points.Committed(result.SpendEntry)
	s.notifier.CouponClaimed(result.UserCoupon)
	logger.Infow("coupon_claimed",
		"user_id", userID,
		"coupon_id", couponID,
		"user_coupon_id", result.UserCoupon.ID,
		"points_spent", result.PointsSpent,
	)
	return result, nil
}

func (s *CouponService) claim(userID, couponID uint, locale string) (*ClaimResult, error) {
	if userID == 0 {
		return nil, ErrUserNotFound
	}
	if couponID == 0 {
		return nil, ErrCouponNotFound
	}

	var result *ClaimResult
	err := s.couponRepo.Transaction(func(tx *gorm.DB) error {
		couponRepo := s.couponRepo.WithTx(tx)
		userCouponRepo := s.userCouponRepo.WithTx(tx)
		now := time.Now()

		coupon, err := couponRepo.GetByIDForUpdate(couponID)
		if err != nil {
			return err
		}
		if coupon == nil {
			return ErrCouponNotFound
		}
		if coupon.Status != constants.CouponStatusActive {
			return ErrCouponNotActive
		}
		if coupon.HasWindow() && !coupon.InWindow(now) {
			return ErrCouponOutOfWindow
		}
		if coupon.TotalLimit != nil && coupon.ClaimedCount >= *coupon.TotalLimit {
			return ErrCouponLimitReached
		}

		owned, err := userCouponRepo.CountByUserAndCoupon(userID, coupon.ID)
		if err != nil {
			return err
		}
		if owned >= int64(coupon.PerUserLimit) {
			return ErrCouponPerUserLimitReached
		}

		cond := ConditionFromCoupon(coupon)
		if cond != nil {
			evaluation, err := s.evaluator.WithTx(tx).Evaluate(userID, *cond, coupon.CreatedAt, locale)
			if err != nil {
				return err
			}
			if !evaluation.Allowed {
				return &ConditionNotMetError{Progress: evaluation.Progress}
			}
		}

		token, hash, err := newQRToken()
		if err != nil {
			return err
		}
		userCoupon := &models.UserCoupon{
			CouponID:        coupon.ID,
			UserID:          userID,
			ClaimedAt:       now,
			ExpiresAt:       now.AddDate(0, 0, s.claimValidityDays()),
			Status:          constants.UserCouponStatusClaimed,
			QRTokenHash:     &hash,
			QRTokenIssuedAt: &now,
		}
		if err := userCouponRepo.Create(userCoupon); err != nil {
			return err
		}
		incremented, err := couponRepo.IncrementClaimedCount(coupon.ID)
		if err != nil {
			return err
		}
		if !incremented {
			return ErrCouponLimitReached
		}

		result = &ClaimResult{
			UserCoupon: userCoupon,
			QRToken:    token,
			QRPayload:  s.qrPayload(token),
		}
		if cond != nil && cond.Kind == constants.CouponConditionPointsAtLeast && cond.Value > 0 {
			entry, err := s.points.SpendTx(tx, SpendInput{
				UserID:       userID,
				ActionType:   constants.PointsActionSpentCoupon,
				Points:       cond.Value,
				ReferenceID:  fmt.Sprintf("coupon:%d", coupon.ID),
				RestaurantID: coupon.RestaurantID,
				Metadata: map[string]interface{}{
					"coupon_id":      coupon.ID,
					"user_coupon_id": userCoupon.ID,
				},
			})
			if err != nil {
				return err
			}
			result.PointsSpent = cond.Value
			result.SpendEntry = entry
		}
		coupon.ClaimedCount++
		userCoupon.Coupon = coupon
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateQR 为未使用且未过期的用户券轮换令牌，旧令牌随即失效
func (s *CouponService) GenerateQR(userID, userCouponID uint) (*QRCodeResult, error) {
	var result *QRCodeResult
	err := s.couponRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.userCouponRepo.WithTx(tx)
		userCoupon, err := repo.GetByIDForUpdate(userCouponID)
		if err != nil {
			return err
		}
		now := time.Now()
		if userCoupon == nil || userCoupon.UserID != userID ||
			userCoupon.EffectiveStatus(now) != constants.UserCouponStatusClaimed {
			return ErrCouponNotClaimable
		}
		token, hash, err := newQRToken()
		if err != nil {
			return err
		}
		rotated, err := repo.RotateToken(userCoupon.ID, hash, now)
		if err != nil {
			return err
		}
		if !rotated {
			return ErrCouponNotClaimable
		}
		result = &QRCodeResult{
			UserCouponID: userCoupon.ID,
			QRToken:      token,
			QRPayload:    s.qrPayload(token),
			IssuedAt:     now,
			ExpiresAt:    userCoupon.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Redeem 员工核销用户券，每张券只能核销一次
func (s *CouponService) Redeem(input RedeemInput) (*models.CouponRedemption, error) {
	started := time.Now()
	redemption, err := s.redeem(input)
	metrics.L().RecordRedeem(redeemResultLabel(err), started)
	if err != nil {
		return nil, err
	}
	s.notifier.CouponRedeemed(redemption)
	logger.Infow("coupon_redeemed",
		"user_coupon_id", redemption.UserCouponID,
		"coupon_id", redemption.CouponID,
		"restaurant_id", redemption.RestaurantID,
		"staff_user_id", redemption.RedeemedBy,
	)
	return redemption, nil
}

func (s *CouponService) redeem(input RedeemInput) (*models.CouponRedemption, error) {
	token := strings.TrimSpace(input.QRToken)
	if token == "" && input.UserCouponID == 0 {
		return nil, ErrCouponInvalidOrExpired
	}

	var redemption *models.CouponRedemption
	err := s.couponRepo.Transaction(func(tx *gorm.DB) error {
		isStaff, err := s.restaurantRepo.WithTx(tx).IsStaff(input.RestaurantID, input.StaffUserID)
		if err != nil {
			return err
		}
		if !isStaff {
			return ErrStaffNotAuthorized
		}

		repo := s.userCouponRepo.WithTx(tx)
		var userCoupon *models.UserCoupon
		if token != "" {
			userCoupon, err = repo.GetClaimedByTokenHashForUpdate(hashQRToken(token))
		} else {
			userCoupon, err = repo.GetClaimedByIDForUpdate(input.UserCouponID)
		}
		if err != nil {
			return err
		}
		now := time.Now()
		if userCoupon == nil || userCoupon.EffectiveStatus(now) != constants.UserCouponStatusClaimed {
			return ErrCouponInvalidOrExpired
		}
		if err := validateUserCouponTransition(userCoupon.Status, constants.UserCouponStatusRedeemed); err != nil {
			return ErrCouponInvalidOrExpired
		}

		coupon, err := s.couponRepo.WithTx(tx).GetByIDUnscoped(userCoupon.CouponID)
		if err != nil {
			return err
		}
		if coupon == nil {
			return ErrCouponInvalidOrExpired
		}
		if coupon.Source == constants.CouponSourceRestaurant &&
			(coupon.RestaurantID == nil || *coupon.RestaurantID != input.RestaurantID) {
			return ErrCouponWrongRestaurant
		}

		marked, err := repo.MarkRedeemed(userCoupon.ID, now)
		if err != nil {
			return err
		}
		if !marked {
			return ErrCouponInvalidOrExpired
		}
		redemption = &models.CouponRedemption{
			UserCouponID: userCoupon.ID,
			CouponID:     userCoupon.CouponID,
			UserID:       userCoupon.UserID,
			RestaurantID: input.RestaurantID,
			RedeemedBy:   input.StaffUserID,
			RedeemedAt:   now,
		}
		if err := repo.CreateRedemption(redemption); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrCouponInvalidOrExpired
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redemption, nil
}

// ListAvailable 可领取优惠券列表，附带条件进度与领取资格
func (s *CouponService) ListAvailable(userID uint, filter repository.CouponListFilter, locale string) ([]AvailableCoupon, int64, error) {
	now := time.Now()
	filter.ClaimableAt = &now
	filter.Status = ""
	coupons, total, err := s.couponRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}

	claimed := map[uint]int64{}
	if userID != 0 && len(coupons) > 0 {
		ids := make([]uint, 0, len(coupons))
		for _, coupon := range coupons {
			ids = append(ids, coupon.ID)
		}
		claimed, err = s.userCouponRepo.CountByUserForCoupons(userID, ids)
		if err != nil {
			return nil, 0, err
		}
	}

	items := make([]AvailableCoupon, 0, len(coupons))
	for i := range coupons {
		coupon := coupons[i]
		item := AvailableCoupon{
			Coupon:      coupon,
			ClaimedByMe: claimed[coupon.ID],
			Condition:   ConditionFromCoupon(&coupon),
		}
		item.BlockedByKey = claimBlocker(&coupon, item.ClaimedByMe, now)
		if item.Condition != nil && userID != 0 {
			evaluation, err := s.evaluator.Evaluate(userID, *item.Condition, coupon.CreatedAt, locale)
			if err != nil {
				return nil, 0, err
			}
			item.Progress = &evaluation.Progress
			if item.BlockedByKey == "" && !evaluation.Allowed {
				item.BlockedByKey = "error.coupon_condition_not_met"
			}
		}
		item.CanClaim = userID != 0 && item.BlockedByKey == ""
		items = append(items, item)
	}
	return items, total, nil
}

// ListMine 我的优惠券，过期状态在读取时计算
func (s *CouponService) ListMine(userID uint, status string, page, pageSize int) ([]MyCoupon, int64, error) {
	now := time.Now()
	rows, total, err := s.userCouponRepo.ListByUser(repository.UserCouponListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   strings.ToLower(strings.TrimSpace(status)),
		Now:      now,
	})
	if err != nil {
		return nil, 0, err
	}
	couponIDs := make([]uint, 0, len(rows))
	seen := make(map[uint]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.CouponID]; ok {
			continue
		}
		seen[row.CouponID] = struct{}{}
		couponIDs = append(couponIDs, row.CouponID)
	}
	templates, err := s.couponRepo.ListByIDsUnscoped(couponIDs)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[uint]*models.Coupon, len(templates))
	for i := range templates {
		byID[templates[i].ID] = &templates[i]
	}

	items := make([]MyCoupon, 0, len(rows))
	for _, row := range rows {
		row.Coupon = byID[row.CouponID]
		items = append(items, MyCoupon{
			UserCoupon:      row,
			EffectiveStatus: row.EffectiveStatus(now),
		})
	}
	return items, total, nil
}

// GetMine 获取单张我的优惠券
func (s *CouponService) GetMine(userID, userCouponID uint) (*MyCoupon, error) {
	row, err := s.userCouponRepo.GetByID(userCouponID)
	if err != nil {
		return nil, err
	}
	if row == nil || row.UserID != userID {
		return nil, ErrNotFound
	}
	mine := &MyCoupon{UserCoupon: *row, EffectiveStatus: row.EffectiveStatus(time.Now())}
	if row.Status == constants.UserCouponStatusRedeemed {
		redemption, err := s.userCouponRepo.GetRedemptionByUserCouponID(row.ID)
		if err != nil {
			return nil, err
		}
		mine.Redemption = redemption
	}
	return mine, nil
}

func (s *CouponService) claimValidityDays() int {
	if s.cfg.ClaimValidityDays > 0 {
		return s.cfg.ClaimValidityDays
	}
	return 365
}

func (s *CouponService) qrPayload(token string) string {
	return s.cfg.QRPayloadPrefix + token
}

// claimBlocker 返回不依赖历史活动的领取阻断原因（i18n key）
func claimBlocker(coupon *models.Coupon, claimedByMe int64, now time.Time) string {
	switch {
	case coupon.Status != constants.CouponStatusActive:
		return "error.coupon_not_active"
	case coupon.HasWindow() && !coupon.InWindow(now):
		return "error.coupon_out_of_window"
	case coupon.TotalLimit != nil && coupon.ClaimedCount >= *coupon.TotalLimit:
		return "error.coupon_limit_reached"
	case claimedByMe >= int64(coupon.PerUserLimit):
		return "error.coupon_per_user_limit"
	}
	return ""
}

func newQRToken() (string, string, error) {
	buf := make([]byte, qrTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, hashQRToken(token), nil
}

func hashQRToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

func claimResultLabel(err error) string {
	var notMet *ConditionNotMetError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &notMet):
		return "condition_not_met"
	case errors.Is(err, ErrCouponLimitReached):
		return "limit_reached"
	case errors.Is(err, ErrCouponPerUserLimitReached):
		return "per_user_limit"
	case errors.Is(err, ErrPointsInsufficient):
		return "insufficient_points"
	case errors.Is(err, ErrCouponNotFound), errors.Is(err, ErrCouponNotActive), errors.Is(err, ErrCouponOutOfWindow):
		return "unavailable"
	}
	return "error"
}

func redeemResultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrStaffNotAuthorized):
		return "unauthorized"
	case errors.Is(err, ErrCouponInvalidOrExpired):
		return "invalid_or_expired"
	case errors.Is(err, ErrCouponWrongRestaurant):
		return "wrong_restaurant"
	}
	return "error"
}
