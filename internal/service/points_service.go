package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/metrics"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PointsService 积分账本服务：流水只追加，余额与流水在同一事务内变更
type PointsService struct {
	repo     repository.PointsRepository
	notifier *NotificationService
}

// NewPointsService 创建积分账本服务
func NewPointsService(repo repository.PointsRepository, notifier *NotificationService) *PointsService {
	return &PointsService{repo: repo, notifier: notifier}
}

// AwardInput 发放积分参数
type AwardInput struct {
	UserID         uint
	ActionType     string
	Points         int64
	ReferenceID    string
	RestaurantID   *uint
	IdempotencyKey string // 非空时同一键只发放一次
	Metadata       map[string]interface{}
}

// SpendInput 扣减积分参数
type SpendInput struct {
	UserID       uint
	ActionType   string
	Points       int64
	ReferenceID  string
	RestaurantID *uint
	Metadata     map[string]interface{}
}

// PointsSummary 积分概览
type PointsSummary struct {
	UserID            uint  `json:"user_id"`
	TotalPoints       int64 `json:"total_points"`
	Level             int   `json:"level"`
	NextLevelAt       int64 `json:"next_level_at"`
	PointsToNextLevel int64 `json:"points_to_next_level"`
}

// BalanceAudit 余额核对结果
type BalanceAudit struct {
	UserID      uint  `json:"user_id"`
	TotalPoints int64 `json:"total_points"`
	EntrySum    int64 `json:"entry_sum"`
	EntryCount  int64 `json:"entry_count"`
	Consistent  bool  `json:"consistent"`
}

// Award 发放积分（独立事务）
func (s *PointsService) Award(input AwardInput) (*models.PointsLedgerEntry, error) {
	var entry *models.PointsLedgerEntry
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		created, err := s.AwardTx(tx, input)
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Committed(entry)
	return entry, nil
}

// AwardTx 在调用方事务内发放积分
func (s *PointsService) AwardTx(tx *gorm.DB, input AwardInput) (*models.PointsLedgerEntry, error) {
	if err := validateLedgerInput(input.UserID, input.ActionType, input.Points); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" {
		existing, err := repo.GetEntryByIdempotencyKey(key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrPointsDuplicateAward
		}
	}

	if err := repo.EnsureAccount(input.UserID); err != nil {
		return nil, err
	}
	if err := repo.IncrementBalance(input.UserID, input.Points); err != nil {
		return nil, err
	}
	return s.appendEntry(repo, ledgerEntryParams{
		userID:         input.UserID,
		actionType:     input.ActionType,
		points:         input.Points,
		referenceID:    input.ReferenceID,
		restaurantID:   input.RestaurantID,
		idempotencyKey: key,
		metadata:       input.Metadata,
	})
}

// Spend 扣减积分（独立事务），余额不足时不写入任何数据
func (s *PointsService) Spend(input SpendInput) (*models.PointsLedgerEntry, error) {
	var entry *models.PointsLedgerEntry
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		created, err := s.SpendTx(tx, input)
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Committed(entry)
	return entry, nil
}

// SpendTx 在调用方事务内扣减积分
func (s *PointsService) SpendTx(tx *gorm.DB, input SpendInput) (*models.PointsLedgerEntry, error) {
	if err := validateLedgerInput(input.UserID, input.ActionType, input.Points); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.DecrementBalanceIfSufficient(input.UserID, input.Points)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPointsInsufficient
	}
	return s.appendEntry(repo, ledgerEntryParams{
		userID:       input.UserID,
		actionType:   input.ActionType,
		points:       -input.Points,
		referenceID:  input.ReferenceID,
		restaurantID: input.RestaurantID,
		metadata:     input.Metadata,
	})
}

// AdminAdjust 管理员调整积分，正数发放，负数扣减
func (s *PointsService) AdminAdjust(userID uint, delta int64, reason string, operatorID uint) (*models.PointsLedgerEntry, error) {
	metadata := map[string]interface{}{
		"reason":      strings.TrimSpace(reason),
		"operator_id": operatorID,
	}
	reference := fmt.Sprintf("admin:%d", operatorID)
	if delta > 0 {
		return s.Award(AwardInput{
			UserID:      userID,
			ActionType:  constants.PointsActionAdminAdjust,
			Points:      delta,
			ReferenceID: reference,
			Metadata:    metadata,
		})
	}
	return s.Spend(SpendInput{
		UserID:      userID,
		ActionType:  constants.PointsActionAdminAdjust,
		Points:      -delta,
		ReferenceID: reference,
		Metadata:    metadata,
	})
}

// Committed 事务提交后记录指标并投递通知
func (s *PointsService) Committed(entries ...*models.PointsLedgerEntry) {
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		metrics.L().RecordLedgerEntry(entry.ActionType, entry.Points)
		logger.Infow("points_ledger_entry_committed",
			"user_id", entry.UserID,
			"action_type", entry.ActionType,
			"points", entry.Points,
			"balance_after", entry.BalanceAfter,
		)
		s.notifier.PointsAwarded(entry)
	}
}

// GetAccount 获取积分账户，不存在时返回零值账户
func (s *PointsService) GetAccount(userID uint) (*models.PointsAccount, error) {
	account, err := s.repo.GetAccountByUserID(userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return &models.PointsAccount{UserID: userID, TotalPoints: 0, Level: LevelForPoints(0)}, nil
	}
	return account, nil
}

// GetSummary 获取积分概览
func (s *PointsService) GetSummary(userID uint) (*PointsSummary, error) {
	account, err := s.GetAccount(userID)
	if err != nil {
		return nil, err
	}
	summary := &PointsSummary{
		UserID:      userID,
		TotalPoints: account.TotalPoints,
		Level:       account.Level,
		NextLevelAt: NextLevelThreshold(account.TotalPoints),
	}
	if summary.NextLevelAt > 0 {
		summary.PointsToNextLevel = summary.NextLevelAt - account.TotalPoints
	}
	return summary, nil
}

// ListEntries 查询积分流水
func (s *PointsService) ListEntries(filter repository.PointsEntryListFilter) ([]models.PointsLedgerEntry, int64, error) {
	return s.repo.ListEntries(filter)
}

// VerifyBalance 核对余额与流水合计
func (s *PointsService) VerifyBalance(userID uint) (*BalanceAudit, error) {
	account, err := s.GetAccount(userID)
	if err != nil {
		return nil, err
	}
	sum, count, err := s.repo.SumEntries(userID)
	if err != nil {
		return nil, err
	}
	audit := &BalanceAudit{
		UserID:      userID,
		TotalPoints: account.TotalPoints,
		EntrySum:    sum,
		EntryCount:  count,
		Consistent:  sum == account.TotalPoints,
	}
	if !audit.Consistent {
		logger.Errorw("points_balance_inconsistent",
			"user_id", userID,
			"total_points", account.TotalPoints,
			"entry_sum", sum,
		)
	}
	return audit, nil
}

type ledgerEntryParams struct {
	userID         uint
	actionType     string
	points         int64
	referenceID    string
	restaurantID   *uint
	idempotencyKey string
	metadata       map[string]interface{}
}

// appendEntry 余额已在同一事务内更新，读回新余额后重算等级并写入流水
func (s *PointsService) appendEntry(repo repository.PointsRepository, params ledgerEntryParams) (*models.PointsLedgerEntry, error) {
	account, err := repo.GetAccountByUserID(params.userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errors.New("points account missing after balance update")
	}
	if level := LevelForPoints(account.TotalPoints); level != account.Level {
		if err := repo.UpdateLevel(params.userID, level); err != nil {
			return nil, err
		}
	}

	entry := &models.PointsLedgerEntry{
		UserID:       params.userID,
		ActionType:   params.actionType,
		Points:       params.points,
		ReferenceID:  strings.TrimSpace(params.referenceID),
		RestaurantID: params.restaurantID,
		BalanceAfter: account.TotalPoints,
	}
	if params.idempotencyKey != "" {
		key := params.idempotencyKey
		entry.IdempotencyKey = &key
	}
	if len(params.metadata) > 0 {
		raw, err := json.Marshal(params.metadata)
		if err != nil {
			return nil, err
		}
		entry.Metadata = datatypes.JSON(raw)
	}
	if err := repo.CreateEntry(entry); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrPointsDuplicateAward
		}
		return nil, err
	}
	return entry, nil
}

func validateLedgerInput(userID uint, actionType string, points int64) error {
	if userID == 0 {
		return ErrUserNotFound
	}
	if strings.TrimSpace(actionType) == "" {
		return ErrPointsActionInvalid
	}
	if points <= 0 {
		return ErrPointsInvalidAmount
	}
	return nil
}
