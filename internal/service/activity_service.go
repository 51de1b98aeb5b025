package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tastemap/internal/config"
	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityService 用户行为触发积分与推荐流转（点评、扫码到店、预约到店、成就）
type ActivityService struct {
	visitRepo      repository.VisitRepository
	reviewRepo     repository.ReviewRepository
	restaurantRepo repository.RestaurantRepository
	userRepo       repository.UserRepository
	points         *PointsService
	referrals      *ReferralService
	rules          config.LoyaltyConfig
	visitQRSecret  string
}

// NewActivityService 创建行为触发服务，到店码未单独配置密钥时使用 fallbackSecret
func NewActivityService(
	visitRepo repository.VisitRepository,
	reviewRepo repository.ReviewRepository,
	restaurantRepo repository.RestaurantRepository,
	userRepo repository.UserRepository,
	points *PointsService,
	referrals *ReferralService,
	rules config.LoyaltyConfig,
	fallbackSecret string,
) *ActivityService {
	secret := strings.TrimSpace(rules.VisitQR.Secret)
	if secret == "" {
		secret = fallbackSecret
	}
	return &ActivityService{
		visitRepo:      visitRepo,
		reviewRepo:     reviewRepo,
		restaurantRepo: restaurantRepo,
		userRepo:       userRepo,
		points:         points,
		referrals:      referrals,
		rules:          rules,
		visitQRSecret:  secret,
	}
}

// ReviewInput 发表点评参数
type ReviewInput struct {
	UserID       uint
	RestaurantID uint
	Content      string
	PhotoURLs    []string
}

// ActivityResult 行为触发结果
type ActivityResult struct {
	Entries  []*models.PointsLedgerEntry `json:"entries"`
	Visit    *models.Visit               `json:"visit,omitempty"`
	Review   *models.Review              `json:"review,omitempty"`
	Referral *ReferralPayout             `json:"-"`
}

// TotalPoints 本次获得的积分
func (r *ActivityResult) TotalPoints() int64 {
	var total int64
	for _, entry := range r.Entries {
		total += entry.Points
	}
	return total
}

// SubmitReview 发表点评并发放奖励：基础分、长评加分、带图加分
// 需在该餐厅有过到店记录，同一餐厅只能点评一次，字数由服务端计算
func (s *ActivityService) SubmitReview(input ReviewInput) (*ActivityResult, error) {
	if input.UserID == 0 {
		return nil, ErrUserNotFound
	}
	content := strings.TrimSpace(input.Content)
	contentLength := utf8.RuneCountInString(content)
	if contentLength == 0 || (s.rules.Review.MaxContentLength > 0 && contentLength > s.rules.Review.MaxContentLength) {
		return nil, ErrReviewContentInvalid
	}
	photos, err := normalizePhotoURLs(input.PhotoURLs, s.rules.Review.MaxPhotos)
	if err != nil {
		return nil, err
	}
	restaurantID := input.RestaurantID

	result := &ActivityResult{}
	err = s.visitRepo.Transaction(func(tx *gorm.DB) error {
		if _, err := s.requireRestaurant(tx, restaurantID); err != nil {
			return err
		}
		visits, err := s.visitRepo.WithTx(tx).CountAtRestaurantSince(input.UserID, restaurantID, time.Time{})
		if err != nil {
			return err
		}
		if visits == 0 {
			return ErrReviewVisitRequired
		}
		reviewRepo := s.reviewRepo.WithTx(tx)
		existing, err := reviewRepo.GetByUserAndRestaurant(input.UserID, restaurantID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrReviewAlreadyRewarded
		}
		review := &models.Review{
			UserID:        input.UserID,
			RestaurantID:  restaurantID,
			Content:       content,
			ContentLength: contentLength,
			PhotoURLs:     datatypes.NewJSONSlice(photos),
		}
		if err := reviewRepo.Create(review); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrReviewAlreadyRewarded
			}
			return err
		}
		result.Review = review

		awards := []struct {
			action string
			points int64
			active bool
		}{
			{action: constants.PointsActionReviewAdd, points: s.rules.Points.ReviewAdd, active: true},
			{action: constants.PointsActionReviewLong, points: s.rules.Points.ReviewLong, active: s.rules.Points.ReviewLongMinLength > 0 && contentLength >= s.rules.Points.ReviewLongMinLength},
			{action: constants.PointsActionReviewWithPhoto, points: s.rules.Points.ReviewWithPhoto, active: len(photos) > 0},
		}
		for _, award := range awards {
			if !award.active || award.points <= 0 {
				continue
			}
			entry, err := s.points.AwardTx(tx, AwardInput{
				UserID:         input.UserID,
				ActionType:     award.action,
				Points:         award.points,
				ReferenceID:    fmt.Sprintf("review:%d", review.ID),
				RestaurantID:   &restaurantID,
				IdempotencyKey: fmt.Sprintf("review:%d:%d:%s", input.UserID, restaurantID, award.action),
				Metadata: map[string]interface{}{
					"content_length": contentLength,
					"photo_count":    len(photos),
				},
			})
			if err != nil {
				if errors.Is(err, ErrPointsDuplicateAward) {
					return ErrReviewAlreadyRewarded
				}
				return err
			}
			result.Entries = append(result.Entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(result)
	logger.Infow("review_points_awarded",
		"user_id", input.UserID,
		"restaurant_id", restaurantID,
		"review_id", result.Review.ID,
		"content_length", contentLength,
		"points", result.TotalPoints(),
	)
	return result, nil
}

// ListRestaurantReviews 餐厅点评列表
func (s *ActivityService) ListRestaurantReviews(restaurantID uint, page, pageSize int) ([]models.Review, int64, error) {
	if _, err := s.requireRestaurant(nil, restaurantID); err != nil {
		return nil, 0, err
	}
	return s.reviewRepo.ListByRestaurant(restaurantID, page, pageSize)
}

// IssueVisitQR 门店员工生成短时到店码
func (s *ActivityService) IssueVisitQR(staffUserID, restaurantID uint) (*VisitQRToken, error) {
	if _, err := s.requireRestaurant(nil, restaurantID); err != nil {
		return nil, err
	}
	if err := s.requireStaff(restaurantID, staffUserID); err != nil {
		return nil, err
	}
	token, err := signVisitQRToken(s.visitQRSecret, restaurantID, staffUserID, s.visitQRTTL(), time.Now())
	if err != nil {
		return nil, err
	}
	logger.Infow("visit_qr_issued",
		"restaurant_id", restaurantID,
		"staff_user_id", staffUserID,
		"expires_at", token.ExpiresAt,
	)
	return token, nil
}

// RecordQRVisit 扫描门店到店码登记到店，同一用户同一餐厅每天计一次
func (s *ActivityService) RecordQRVisit(userID, restaurantID uint, token string) (*ActivityResult, error) {
	claims, err := parseVisitQRToken(s.visitQRSecret, token)
	if err != nil {
		return nil, err
	}
	if claims.RestaurantID != restaurantID || claims.StaffUserID == userID {
		return nil, ErrVisitTokenInvalid
	}
	now := time.Now()
	dayKey := fmt.Sprintf("%d:%s", restaurantID, now.Format("2006-01-02"))
	return s.recordVisit(visitParams{
		userID:         userID,
		restaurantID:   restaurantID,
		source:         constants.VisitSourceQR,
		referenceID:    dayKey,
		actionType:     constants.PointsActionVisitQR,
		points:         s.rules.Points.VisitQR,
		idempotencyKey: fmt.Sprintf("visit:qr:%d:%s", userID, dayKey),
		at:             now,
	})
}

// ConfirmReservationArrival 门店员工确认顾客预约到店，每个预约计一次
func (s *ActivityService) ConfirmReservationArrival(staffUserID, guestUserID, restaurantID uint, reservationID string) (*ActivityResult, error) {
	reservationID = strings.TrimSpace(reservationID)
	if reservationID == "" {
		return nil, ErrNotFound
	}
	if err := s.requireStaff(restaurantID, staffUserID); err != nil {
		return nil, err
	}
	if guestUserID == staffUserID {
		return nil, ErrStaffNotAuthorized
	}
	guest, err := s.userRepo.GetByID(guestUserID)
	if err != nil {
		return nil, err
	}
	if guest == nil {
		return nil, ErrUserNotFound
	}
	return s.recordVisit(visitParams{
		userID:         guest.ID,
		restaurantID:   restaurantID,
		source:         constants.VisitSourceReservation,
		referenceID:    fmt.Sprintf("%d:%s", restaurantID, reservationID),
		actionType:     constants.PointsActionReservationVisit,
		points:         s.rules.Points.ReservationVisit,
		idempotencyKey: fmt.Sprintf("visit:reservation:%d:%d:%s", guest.ID, restaurantID, reservationID),
		at:             time.Now(),
		confirmedBy:    staffUserID,
	})
}

// UnlockAchievement 成就解锁奖励，同一成就只奖励一次
func (s *ActivityService) UnlockAchievement(userID uint, achievementKey string, points int64) (*models.PointsLedgerEntry, error) {
	achievementKey = strings.TrimSpace(achievementKey)
	if achievementKey == "" {
		return nil, ErrPointsActionInvalid
	}
	return s.points.Award(AwardInput{
		UserID:         userID,
		ActionType:     constants.PointsActionAchievementUnlocked,
		Points:         points,
		ReferenceID:    "achievement:" + achievementKey,
		IdempotencyKey: fmt.Sprintf("achievement:%d:%s", userID, achievementKey),
	})
}

type visitParams struct {
	userID         uint
	restaurantID   uint
	source         string
	referenceID    string
	actionType     string
	points         int64
	idempotencyKey string
	at             time.Time
	confirmedBy    uint
}

func (s *ActivityService) recordVisit(params visitParams) (*ActivityResult, error) {
	if params.userID == 0 {
		return nil, ErrUserNotFound
	}
	result := &ActivityResult{}
	err := s.visitRepo.Transaction(func(tx *gorm.DB) error {
		restaurant, err := s.requireRestaurant(tx, params.restaurantID)
		if err != nil {
			return err
		}
		visitRepo := s.visitRepo.WithTx(tx)
		exists, err := visitRepo.ExistsByReference(params.userID, params.source, params.referenceID)
		if err != nil {
			return err
		}
		if exists {
			return ErrVisitAlreadyRecorded
		}
		visit := &models.Visit{
			UserID:       params.userID,
			RestaurantID: restaurant.ID,
			City:         strings.TrimSpace(restaurant.City),
			Source:       params.source,
			ReferenceID:  params.referenceID,
			VisitedAt:    params.at,
		}
		if err := visitRepo.Create(visit); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrVisitAlreadyRecorded
			}
			return err
		}
		result.Visit = visit

		if params.points > 0 {
			restaurantID := restaurant.ID
			entry, err := s.points.AwardTx(tx, AwardInput{
				UserID:         params.userID,
				ActionType:     params.actionType,
				Points:         params.points,
				ReferenceID:    fmt.Sprintf("visit:%d", visit.ID),
				RestaurantID:   &restaurantID,
				IdempotencyKey: params.idempotencyKey,
			})
			if err != nil {
				if errors.Is(err, ErrPointsDuplicateAward) {
					return ErrVisitAlreadyRecorded
				}
				return err
			}
			result.Entries = append(result.Entries, entry)
		}

		payout, err := s.referrals.HandleFirstVisitTx(tx, params.userID, restaurant.ID)
		if err != nil {
			return err
		}
		result.Referral = payout
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(result)
	logger.Infow("visit_recorded",
		"user_id", params.userID,
		"restaurant_id", params.restaurantID,
		"source", params.source,
		"reference_id", params.referenceID,
		"confirmed_by", params.confirmedBy,
		"points", result.TotalPoints(),
	)
	return result, nil
}

func (s *ActivityService) requireStaff(restaurantID, staffUserID uint) error {
	ok, err := s.restaurantRepo.IsStaff(restaurantID, staffUserID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaffNotAuthorized
	}
	return nil
}

func (s *ActivityService) visitQRTTL() time.Duration {
	minutes := s.rules.VisitQR.TTLMinutes
	if minutes <= 0 {
		minutes = 10
	}
	return time.Duration(minutes) * time.Minute
}

// normalizePhotoURLs 去空白、校验 http(s) 地址与张数上限
func normalizePhotoURLs(raw []string, limit int) ([]string, error) {
	photos := make([]string, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parsed, err := url.Parse(item)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, ErrReviewPhotosInvalid
		}
		photos = append(photos, item)
	}
	if limit > 0 && len(photos) > limit {
		return nil, ErrReviewPhotosInvalid
	}
	return photos, nil
}

func (s *ActivityService) requireRestaurant(tx *gorm.DB, restaurantID uint) (*models.Restaurant, error) {
	restaurant, err := s.restaurantRepo.WithTx(tx).GetByID(restaurantID)
	if err != nil {
		return nil, err
	}
	if restaurant == nil || restaurant.Status != constants.RestaurantStatusActive {
		return nil, ErrRestaurantNotFound
	}
	return restaurant, nil
}

func (s *ActivityService) committed(result *ActivityResult) {
	s.points.Committed(result.Entries...)
	s.referrals.Committed(result.Referral)
}
