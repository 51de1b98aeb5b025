package repository

import (
	"errors"
	"strings"

	"github.com/tastemap/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PointsRepository 积分账户与流水数据访问接口
type PointsRepository interface {
	WithTx(tx *gorm.DB) PointsRepository
	Transaction(fn func(tx *gorm.DB) error) error
	EnsureAccount(userID uint) error
	GetAccountByUserID(userID uint) (*models.PointsAccount, error)
	IncrementBalance(userID uint, delta int64) error
	DecrementBalanceIfSufficient(userID uint, amount int64) (bool, error)
	UpdateLevel(userID uint, level int) error
	CreateEntry(entry *models.PointsLedgerEntry) error
	GetEntryByIdempotencyKey(key string) (*models.PointsLedgerEntry, error)
	ListEntries(filter PointsEntryListFilter) ([]models.PointsLedgerEntry, int64, error)
	SumEntries(userID uint) (int64, int64, error)
}

// GormPointsRepository GORM 积分仓储实现
type GormPointsRepository struct {
	db *gorm.DB
}

// NewPointsRepository 创建积分仓储
func NewPointsRepository(db *gorm.DB) *GormPointsRepository {
	return &GormPointsRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPointsRepository) WithTx(tx *gorm.DB) PointsRepository {
	if tx == nil {
		return r
	}
	return &GormPointsRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPointsRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// EnsureAccount 账户不存在时以 0 积分创建
func (r *GormPointsRepository) EnsureAccount(userID uint) error {
	account := models.PointsAccount{UserID: userID, TotalPoints: 0, Level: 1}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&account).Error
}

// GetAccountByUserID 按用户获取积分账户
func (r *GormPointsRepository) GetAccountByUserID(userID uint) (*models.PointsAccount, error) {
	if userID == 0 {
		return nil, nil
	}
	var account models.PointsAccount
	if err := r.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// IncrementBalance 原地增加积分
func (r *GormPointsRepository) IncrementBalance(userID uint, delta int64) error {
	return r.db.Model(&models.PointsAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"total_points": gorm.Expr("total_points + ?", delta),
		}).Error
}

// DecrementBalanceIfSufficient 余额充足时原地扣减，返回是否扣减成功
func (r *GormPointsRepository) DecrementBalanceIfSufficient(userID uint, amount int64) (bool, error) {
	result := r.db.Model(&models.PointsAccount{}).
		Where("user_id = ? AND total_points >= ?", userID, amount).
		Updates(map[string]interface{}{
			"total_points": gorm.Expr("total_points - ?", amount),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateLevel 更新等级
func (r *GormPointsRepository) UpdateLevel(userID uint, level int) error {
	return r.db.Model(&models.PointsAccount{}).
		Where("user_id = ? AND level <> ?", userID, level).
		Update("level", level).Error
}

// CreateEntry 写入积分流水
func (r *GormPointsRepository) CreateEntry(entry *models.PointsLedgerEntry) error {
	return r.db.Create(entry).Error
}

// GetEntryByIdempotencyKey 按幂等键查询流水
func (r *GormPointsRepository) GetEntryByIdempotencyKey(key string) (*models.PointsLedgerEntry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var entry models.PointsLedgerEntry
	if err := r.db.Where("idempotency_key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListEntries 分页查询积分流水
func (r *GormPointsRepository) ListEntries(filter PointsEntryListFilter) ([]models.PointsLedgerEntry, int64, error) {
	query := r.db.Model(&models.PointsLedgerEntry{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if actionType := strings.TrimSpace(filter.ActionType); actionType != "" {
		query = query.Where("action_type = ?", actionType)
	}
	switch strings.ToLower(strings.TrimSpace(filter.Direction)) {
	case "earn":
		query = query.Where("points > 0")
	case "spend":
		query = query.Where("points < 0")
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var entries []models.PointsLedgerEntry
	if err := query.Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// SumEntries 汇总用户全部流水，返回积分和与条数
func (r *GormPointsRepository) SumEntries(userID uint) (int64, int64, error) {
	var row struct {
		Total int64
		Count int64
	}
	if err := r.db.Model(&models.PointsLedgerEntry{}).
		Select("COALESCE(SUM(points), 0) AS total, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return row.Total, row.Count, nil
}
