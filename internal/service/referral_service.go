package service

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/tastemap/internal/config"
	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/metrics"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	referralCodeLength   = 8
	referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referralCodeMaxRetry = 8
)

// ReferralService 推荐状态机：PENDING -> REGISTERED -> COMPLETED，每次流转同步发放积分
type ReferralService struct {
	repo     repository.ReferralRepository
	points   *PointsService
	rules    config.ReferralRuleConfig
	notifier *NotificationService
}

// NewReferralService 创建推荐服务
func NewReferralService(repo repository.ReferralRepository, points *PointsService, rules config.ReferralRuleConfig, notifier *NotificationService) *ReferralService {
	return &ReferralService{
		repo:     repo,
		points:   points,
		rules:    rules,
		notifier: notifier,
	}
}

// ReferralPayout 一次推荐奖励发放结果
type ReferralPayout struct {
	Referral *models.Referral
	Entries  []*models.PointsLedgerEntry
	Rewards  []*models.ReferralReward
}

// ReferralStats 推荐统计
type ReferralStats struct {
	Code           string `json:"code"`
	TotalReferrals int    `json:"total_referrals"`
	TotalRewards   int64  `json:"total_rewards"`
	Pending        int64  `json:"pending"`
	Registered     int64  `json:"registered"`
	Completed      int64  `json:"completed"`
}

// GetOrCreateCode 获取用户推荐码，不存在时生成
func (s *ReferralService) GetOrCreateCode(userID uint) (*models.ReferralCode, error) {
	if userID == 0 {
		return nil, ErrUserNotFound
	}
	existing, err := s.repo.GetCodeByUserID(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	for i := 0; i < referralCodeMaxRetry; i++ {
		code, err := generateReferralCode()
		if err != nil {
			return nil, err
		}
		row := &models.ReferralCode{UserID: userID, Code: code, IsActive: true}
		if err := s.repo.CreateCode(row); err != nil {
			if !repository.IsUniqueViolation(err) {
				return nil, err
			}
			// 并发创建时另一请求已写入该用户的推荐码
			created, getErr := s.repo.GetCodeByUserID(userID)
			if getErr != nil {
				return nil, getErr
			}
			if created != nil {
				return created, nil
			}
			continue
		}
		return row, nil
	}
	return nil, ErrReferralCodeGenerate
}

// Apply 新用户使用推荐码（独立事务）
func (s *ReferralService) Apply(rawCode string, newUserID uint) (*ReferralPayout, error) {
	var payout *ReferralPayout
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		result, err := s.ApplyTx(tx, rawCode, newUserID)
		if err != nil {
			return err
		}
		payout = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Committed(payout)
	return payout, nil
}

// ApplyTx 在调用方事务内建立推荐关系并为双方发放注册奖励
func (s *ReferralService) ApplyTx(tx *gorm.DB, rawCode string, newUserID uint) (*ReferralPayout, error) {
	code := NormalizeReferralCode(rawCode)
	if code == "" {
		return nil, ErrInvalidReferralCode
	}
	repo := s.repo.WithTx(tx)

	codeRow, err := repo.GetCodeByCode(code)
	if err != nil {
		return nil, err
	}
	if codeRow == nil || !codeRow.IsActive {
		return nil, ErrInvalidReferralCode
	}
	if codeRow.UserID == newUserID {
		return nil, ErrSelfReferralRejected
	}

	existing, err := repo.GetReferralByReferredUserID(newUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyReferred
	}

	if err := validateReferralTransition(constants.ReferralStatusPending, constants.ReferralStatusRegistered); err != nil {
		return nil, err
	}
	now := time.Now()
	referral := &models.Referral{
		ReferrerID:     codeRow.UserID,
		ReferredUserID: newUserID,
		ReferralCodeID: codeRow.ID,
		Status:         constants.ReferralStatusRegistered,
		RegisteredAt:   &now,
		RewardAmount:   s.rules.RegistrationReferrerBonus,
		RewardType:     constants.ReferralRewardTypePoints,
	}
	if err := repo.CreateReferral(referral); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrAlreadyReferred
		}
		return nil, err
	}
	if err := repo.IncrementCodeCounters(codeRow.ID, 1, s.rules.RegistrationReferrerBonus); err != nil {
		return nil, err
	}

	payout := &ReferralPayout{Referral: referral}
	grants := []struct {
		userID uint
		action string
		points int64
	}{
		{userID: codeRow.UserID, action: constants.PointsActionReferralRegistrationReferrer, points: s.rules.RegistrationReferrerBonus},
		{userID: newUserID, action: constants.PointsActionReferralRegistrationReferred, points: s.rules.RegistrationReferredBonus},
	}
	for _, grant := range grants {
		if err := s.grantBonus(tx, payout, grant.userID, grant.action, grant.points, constants.ReferralBonusTypeRegistration, nil); err != nil {
			return nil, err
		}
	}
	return payout, nil
}

// HandleFirstVisit 被推荐人首次到店：REGISTERED -> COMPLETED 并奖励推荐人，重复调用为空操作
func (s *ReferralService) HandleFirstVisit(userID, restaurantID uint) (*ReferralPayout, error) {
	var payout *ReferralPayout
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		result, err := s.HandleFirstVisitTx(tx, userID, restaurantID)
		if err != nil {
			return err
		}
		payout = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Committed(payout)
	return payout, nil
}

// HandleFirstVisitTx 在调用方事务内处理首次到店，未命中时返回 nil
func (s *ReferralService) HandleFirstVisitTx(tx *gorm.DB, userID, restaurantID uint) (*ReferralPayout, error) {
	repo := s.repo.WithTx(tx)
	referral, err := repo.GetReferralByReferredUserID(userID)
	if err != nil {
		return nil, err
	}
	// 只有 REGISTERED 能被到店推进，PENDING 与 COMPLETED 均不触发
	if referral == nil || referral.Status != constants.ReferralStatusRegistered {
		return nil, nil
	}

	now := time.Now()
	matched, err := repo.CompleteReferral(userID, restaurantID, now)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, nil
	}
	referral.Status = constants.ReferralStatusCompleted
	referral.FirstVisitAt = &now
	referral.CompletedAt = &now
	if restaurantID != 0 {
		rid := restaurantID
		referral.FirstVisitRestaurantID = &rid
	}

	bonus := s.rules.FirstVisitReferrerBonus
	payout := &ReferralPayout{Referral: referral}
	if bonus <= 0 {
		return payout, nil
	}
	var restaurantRef *uint
	if restaurantID != 0 {
		restaurantRef = &restaurantID
	}
	if err := s.grantBonus(tx, payout, referral.ReferrerID, constants.PointsActionReferralVisitReferrer, bonus, constants.ReferralBonusTypeFirstVisit, restaurantRef); err != nil {
		return nil, err
	}
	if err := repo.IncrementCodeCounters(referral.ReferralCodeID, 0, bonus); err != nil {
		return nil, err
	}
	if err := repo.IncrementReferralReward(referral.ID, bonus); err != nil {
		return nil, err
	}
	referral.RewardAmount += bonus
	return payout, nil
}

// Committed 事务提交后记录指标并通知
func (s *ReferralService) Committed(payout *ReferralPayout) {
	if payout == nil || payout.Referral == nil {
		return
	}
	for _, reward := range payout.Rewards {
		metrics.L().RecordReferralBonus(rewardBonusType(reward))
	}
	for _, entry := range payout.Entries {
		metrics.L().RecordLedgerEntry(entry.ActionType, entry.Points)
		s.notifier.ReferralBonus(payout.Referral.ID, entry)
	}
	logger.Infow("referral_payout_committed",
		"referral_id", payout.Referral.ID,
		"referrer_id", payout.Referral.ReferrerID,
		"referred_user_id", payout.Referral.ReferredUserID,
		"status", payout.Referral.Status,
		"entries", len(payout.Entries),
	)
}

func (s *ReferralService) grantBonus(tx *gorm.DB, payout *ReferralPayout, userID uint, action string, points int64, bonusType string, restaurantID *uint) error {
	if points <= 0 {
		return nil
	}
	referralID := payout.Referral.ID
	entry, err := s.points.AwardTx(tx, AwardInput{
		UserID:         userID,
		ActionType:     action,
		Points:         points,
		ReferenceID:    fmt.Sprintf("referral:%d", referralID),
		RestaurantID:   restaurantID,
		IdempotencyKey: fmt.Sprintf("referral:%d:%s", referralID, action),
		Metadata:       map[string]interface{}{"bonus_type": bonusType},
	})
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(map[string]string{"bonus_type": bonusType})
	if err != nil {
		return err
	}
	reward := &models.ReferralReward{
		UserID:        userID,
		ReferralID:    referralID,
		ActionType:    action,
		Points:        points,
		LedgerEntryID: entry.ID,
		Metadata:      datatypes.JSON(metadata),
	}
	if err := s.repo.WithTx(tx).CreateReward(reward); err != nil {
		if repository.IsUniqueViolation(err) {
			return ErrPointsDuplicateAward
		}
		return err
	}
	payout.Entries = append(payout.Entries, entry)
	payout.Rewards = append(payout.Rewards, reward)
	return nil
}

// ListMyReferrals 我推荐的用户
func (s *ReferralService) ListMyReferrals(userID uint, status string, page, pageSize int) ([]models.Referral, int64, error) {
	return s.repo.ListReferrals(repository.ReferralListFilter{
		ReferrerID: userID,
		Status:     status,
		Page:       page,
		PageSize:   pageSize,
	})
}

// ListMyRewards 我获得的推荐奖励
func (s *ReferralService) ListMyRewards(userID uint, bonusType string, page, pageSize int) ([]models.ReferralReward, int64, error) {
	return s.repo.ListRewards(repository.ReferralRewardListFilter{
		UserID:    userID,
		BonusType: bonusType,
		Page:      page,
		PageSize:  pageSize,
	})
}

// GetStats 推荐统计
func (s *ReferralService) GetStats(userID uint) (*ReferralStats, error) {
	code, err := s.GetOrCreateCode(userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(userID)
	if err != nil {
		return nil, err
	}
	stats := &ReferralStats{
		Code:           code.Code,
		TotalReferrals: code.TotalReferrals,
		TotalRewards:   code.TotalRewards,
	}
	for _, row := range counts {
		switch constants.ReferralStatus(row.Status) {
		case constants.ReferralStatusPending:
			stats.Pending = row.Total
		case constants.ReferralStatusRegistered:
			stats.Registered = row.Total
		case constants.ReferralStatusCompleted:
			stats.Completed = row.Total
		}
	}
	return stats, nil
}

// NormalizeReferralCode 统一推荐码格式
func NormalizeReferralCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func generateReferralCode() (string, error) {
	var builder strings.Builder
	builder.Grow(referralCodeLength)
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(referralCodeAlphabet[n.Int64()])
	}
	return builder.String(), nil
}

func rewardBonusType(reward *models.ReferralReward) string {
	if reward == nil {
		return ""
	}
	var meta map[string]string
	if err := json.Unmarshal(reward.Metadata, &meta); err != nil {
		return ""
	}
	return meta["bonus_type"]
}
