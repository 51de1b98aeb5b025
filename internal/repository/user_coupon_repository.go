package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserCouponRepository 用户券与核销记录数据访问接口
type UserCouponRepository interface {
	WithTx(tx *gorm.DB) UserCouponRepository
	Create(userCoupon *models.UserCoupon) error
	GetByID(id uint) (*models.UserCoupon, error)
	GetByIDForUpdate(id uint) (*models.UserCoupon, error)
	GetClaimedByTokenHashForUpdate(hash string) (*models.UserCoupon, error)
	GetClaimedByIDForUpdate(id uint) (*models.UserCoupon, error)
	CountByUserAndCoupon(userID, couponID uint) (int64, error)
	CountByUserForCoupons(userID uint, couponIDs []uint) (map[uint]int64, error)
	RotateToken(id uint, hash string, issuedAt time.Time) (bool, error)
	MarkRedeemed(id uint, at time.Time) (bool, error)
	CreateRedemption(redemption *models.CouponRedemption) error
	GetRedemptionByUserCouponID(userCouponID uint) (*models.CouponRedemption, error)
	ListByUser(filter UserCouponListFilter) ([]models.UserCoupon, int64, error)
}

// GormUserCouponRepository GORM 实现
type GormUserCouponRepository struct {
	db *gorm.DB
}

// NewUserCouponRepository 创建用户券仓库
func NewUserCouponRepository(db *gorm.DB) *GormUserCouponRepository {
	return &GormUserCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserCouponRepository) WithTx(tx *gorm.DB) UserCouponRepository {
	if tx == nil {
		return r
	}
	return &GormUserCouponRepository{db: tx}
}

// Create 创建用户券
func (r *GormUserCouponRepository) Create(userCoupon *models.UserCoupon) error {
	return r.db.Omit(clause.Associations).Create(userCoupon).Error
}

// GetByID 获取用户券（附带优惠券模板，含已删除模板）
func (r *GormUserCouponRepository) GetByID(id uint) (*models.UserCoupon, error) {
	if id == 0 {
		return nil, nil
	}
	var userCoupon models.UserCoupon
	if err := r.db.Preload("Coupon", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	}).First(&userCoupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &userCoupon, nil
}

// GetByIDForUpdate 加锁获取用户券
func (r *GormUserCouponRepository) GetByIDForUpdate(id uint) (*models.UserCoupon, error) {
	if id == 0 {
		return nil, nil
	}
	return r.firstForUpdate(r.db.Where("id = ?", id))
}

// GetClaimedByTokenHashForUpdate 按令牌哈希加锁获取待核销的用户券
func (r *GormUserCouponRepository) GetClaimedByTokenHashForUpdate(hash string) (*models.UserCoupon, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, nil
	}
	return r.firstForUpdate(r.db.Where("qr_token_hash = ? AND status = ?", hash, constants.UserCouponStatusClaimed))
}

// GetClaimedByIDForUpdate 按ID加锁获取待核销的用户券
func (r *GormUserCouponRepository) GetClaimedByIDForUpdate(id uint) (*models.UserCoupon, error) {
	if id == 0 {
		return nil, nil
	}
	return r.firstForUpdate(r.db.Where("id = ? AND status = ?", id, constants.UserCouponStatusClaimed))
}

func (r *GormUserCouponRepository) firstForUpdate(query *gorm.DB) (*models.UserCoupon, error) {
	var userCoupon models.UserCoupon
	if err := query.Clauses(clause.Locking{Strength: "UPDATE"}).First(&userCoupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &userCoupon, nil
}

// CountByUserAndCoupon 统计用户已领取某券的次数
func (r *GormUserCouponRepository) CountByUserAndCoupon(userID, couponID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.UserCoupon{}).
		Where("user_id = ? AND coupon_id = ?", userID, couponID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountByUserForCoupons 批量统计用户对多张券的领取次数
func (r *GormUserCouponRepository) CountByUserForCoupons(userID uint, couponIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(couponIDs))
	if userID == 0 || len(couponIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		CouponID uint
		Total    int64
	}
	if err := r.db.Model(&models.UserCoupon{}).
		Select("coupon_id, COUNT(*) AS total").
		Where("user_id = ? AND coupon_id IN ?", userID, couponIDs).
		Group("coupon_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.CouponID] = row.Total
	}
	return result, nil
}

// RotateToken 替换核销令牌哈希，仅对 CLAIMED 状态生效
func (r *GormUserCouponRepository) RotateToken(id uint, hash string, issuedAt time.Time) (bool, error) {
	result := r.db.Model(&models.UserCoupon{}).
		Where("id = ? AND status = ?", id, constants.UserCouponStatusClaimed).
		Updates(map[string]interface{}{
			"qr_token_hash":      hash,
			"qr_token_issued_at": issuedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkRedeemed 条件更新 CLAIMED -> REDEEMED，返回是否命中
func (r *GormUserCouponRepository) MarkRedeemed(id uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.UserCoupon{}).
		Where("id = ? AND status = ?", id, constants.UserCouponStatusClaimed).
		Updates(map[string]interface{}{
			"status":      constants.UserCouponStatusRedeemed,
			"redeemed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateRedemption 写入核销记录
func (r *GormUserCouponRepository) CreateRedemption(redemption *models.CouponRedemption) error {
	return r.db.Create(redemption).Error
}

// GetRedemptionByUserCouponID 查询核销记录
func (r *GormUserCouponRepository) GetRedemptionByUserCouponID(userCouponID uint) (*models.CouponRedemption, error) {
	var redemption models.CouponRedemption
	if err := r.db.Where("user_coupon_id = ?", userCouponID).First(&redemption).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}

// ListByUser 分页查询用户券，状态按读取时刻计算，expires_at 当刻仍有效
func (r *GormUserCouponRepository) ListByUser(filter UserCouponListFilter) ([]models.UserCoupon, int64, error) {
	query := r.db.Model(&models.UserCoupon{}).Where("user_id = ?", filter.UserID)
	now := filter.Now
	if now.IsZero() {
		now = time.Now()
	}
	switch strings.ToLower(strings.TrimSpace(filter.Status)) {
	case constants.UserCouponFilterActive:
		query = query.Where("status = ? AND expires_at >= ?", constants.UserCouponStatusClaimed, now)
	case constants.UserCouponFilterRedeemed:
		query = query.Where("status = ?", constants.UserCouponStatusRedeemed)
	case constants.UserCouponFilterExpired:
		query = query.Where("status = ? OR (status = ? AND expires_at < ?)",
			constants.UserCouponStatusExpired, constants.UserCouponStatusClaimed, now)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var userCoupons []models.UserCoupon
	if err := query.Order("id DESC").Find(&userCoupons).Error; err != nil {
		return nil, 0, err
	}
	return userCoupons, total, nil
}
