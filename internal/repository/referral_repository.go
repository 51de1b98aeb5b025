package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/models"

	"gorm.io/gorm"
)

// ReferralRepository 推荐码、推荐关系与奖励数据访问接口
type ReferralRepository interface {
	WithTx(tx *gorm.DB) ReferralRepository
	Transaction(fn func(tx *gorm.DB) error) error

	GetCodeByUserID(userID uint) (*models.ReferralCode, error)
	GetCodeByCode(code string) (*models.ReferralCode, error)
	CreateCode(code *models.ReferralCode) error
	IncrementCodeCounters(codeID uint, referrals int, rewards int64) error

	GetReferralByReferredUserID(userID uint) (*models.Referral, error)
	CreateReferral(referral *models.Referral) error
	CompleteReferral(referredUserID, restaurantID uint, at time.Time) (bool, error)
	IncrementReferralReward(referralID uint, amount int64) error
	ListReferrals(filter ReferralListFilter) ([]models.Referral, int64, error)
	CountByStatus(referrerID uint) ([]ReferralStatusCount, error)
	CountCompletedSince(referrerID uint, since time.Time) (int64, error)

	CreateReward(reward *models.ReferralReward) error
	ListRewards(filter ReferralRewardListFilter) ([]models.ReferralReward, int64, error)
}

// GormReferralRepository GORM 推荐仓储实现
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐仓储
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) ReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Transaction 执行事务
func (r *GormReferralRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetCodeByUserID 获取用户推荐码
func (r *GormReferralRepository) GetCodeByUserID(userID uint) (*models.ReferralCode, error) {
	if userID == 0 {
		return nil, nil
	}
	var code models.ReferralCode
	if err := r.db.Where("user_id = ?", userID).First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetCodeByCode 按推荐码查询
func (r *GormReferralRepository) GetCodeByCode(code string) (*models.ReferralCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var row models.ReferralCode
	if err := r.db.Where("code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// CreateCode 创建推荐码
func (r *GormReferralRepository) CreateCode(code *models.ReferralCode) error {
	return r.db.Create(code).Error
}

// IncrementCodeCounters 原地累加推荐人数与奖励
func (r *GormReferralRepository) IncrementCodeCounters(codeID uint, referrals int, rewards int64) error {
	if referrals == 0 && rewards == 0 {
		return nil
	}
	return r.db.Model(&models.ReferralCode{}).
		Where("id = ?", codeID).
		Updates(map[string]interface{}{
			"total_referrals": gorm.Expr("total_referrals + ?", referrals),
			"total_rewards":   gorm.Expr("total_rewards + ?", rewards),
		}).Error
}

// GetReferralByReferredUserID 按被推荐人查询推荐关系
func (r *GormReferralRepository) GetReferralByReferredUserID(userID uint) (*models.Referral, error) {
	if userID == 0 {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.Where("referred_user_id = ?", userID).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// CreateReferral 创建推荐关系
func (r *GormReferralRepository) CreateReferral(referral *models.Referral) error {
	return r.db.Create(referral).Error
}

// CompleteReferral 条件更新 REGISTERED -> COMPLETED，返回是否命中
func (r *GormReferralRepository) CompleteReferral(referredUserID, restaurantID uint, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":         constants.ReferralStatusCompleted,
		"first_visit_at": at,
		"completed_at":   at,
		"updated_at":     at,
	}
	if restaurantID != 0 {
		updates["first_visit_restaurant_id"] = restaurantID
	}
	result := r.db.Model(&models.Referral{}).
		Where("referred_user_id = ? AND status = ?", referredUserID, constants.ReferralStatusRegistered).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementReferralReward 累加推荐人在该推荐关系上获得的奖励
func (r *GormReferralRepository) IncrementReferralReward(referralID uint, amount int64) error {
	return r.db.Model(&models.Referral{}).
		Where("id = ?", referralID).
		Update("reward_amount", gorm.Expr("reward_amount + ?", amount)).Error
}

// ListReferrals 分页查询推荐关系
func (r *GormReferralRepository) ListReferrals(filter ReferralListFilter) ([]models.Referral, int64, error) {
	query := r.db.Model(&models.Referral{})
	if filter.ReferrerID != 0 {
		query = query.Where("referrer_id = ?", filter.ReferrerID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", strings.ToUpper(status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var referrals []models.Referral
	if err := query.Preload("ReferredUser").Order("id DESC").Find(&referrals).Error; err != nil {
		return nil, 0, err
	}
	return referrals, total, nil
}

// CountByStatus 按状态统计推荐人名下的推荐关系
func (r *GormReferralRepository) CountByStatus(referrerID uint) ([]ReferralStatusCount, error) {
	var rows []ReferralStatusCount
	if err := r.db.Model(&models.Referral{}).
		Select("status, COUNT(*) AS total").
		Where("referrer_id = ?", referrerID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountCompletedSince 统计某时间点后完成的推荐
func (r *GormReferralRepository) CountCompletedSince(referrerID uint, since time.Time) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Referral{}).
		Where("referrer_id = ? AND status = ? AND completed_at >= ?", referrerID, constants.ReferralStatusCompleted, since).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CreateReward 写入推荐奖励
func (r *GormReferralRepository) CreateReward(reward *models.ReferralReward) error {
	return r.db.Create(reward).Error
}

// ListRewards 分页查询推荐奖励
func (r *GormReferralRepository) ListRewards(filter ReferralRewardListFilter) ([]models.ReferralReward, int64, error) {
	query := r.db.Model(&models.ReferralReward{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if bonusType := strings.TrimSpace(filter.BonusType); bonusType != "" {
		query = query.Where(jsonTextExpr(r.db, "metadata", "bonus_type")+" = ?", bonusType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var rewards []models.ReferralReward
	if err := query.Order("id DESC").Find(&rewards).Error; err != nil {
		return nil, 0, err
	}
	return rewards, total, nil
}
