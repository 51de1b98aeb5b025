package repository

import (
	"errors"
	"strings"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponRepository 优惠券模板数据访问接口
type CouponRepository interface {
	WithTx(tx *gorm.DB) CouponRepository
	Transaction(fn func(tx *gorm.DB) error) error
	GetByID(id uint) (*models.Coupon, error)
	GetByIDUnscoped(id uint) (*models.Coupon, error)
	GetByIDForUpdate(id uint) (*models.Coupon, error)
	ListByIDsUnscoped(ids []uint) ([]models.Coupon, error)
	Create(coupon *models.Coupon) error
	Update(coupon *models.Coupon) error
	Delete(id uint) error
	List(filter CouponListFilter) ([]models.Coupon, int64, error)
	IncrementClaimedCount(id uint) (bool, error)
	UpdateStatus(id uint, from, to constants.CouponStatus) (bool, error)
}

// GormCouponRepository GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓库
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRepository) WithTx(tx *gorm.DB) CouponRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCouponRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 根据ID获取优惠券（不含已删除）
func (r *GormCouponRepository) GetByID(id uint) (*models.Coupon, error) {
	return r.first(r.db, id)
}

// GetByIDUnscoped 根据ID获取优惠券（含已删除，用于历史记录）
func (r *GormCouponRepository) GetByIDUnscoped(id uint) (*models.Coupon, error) {
	return r.first(r.db.Unscoped(), id)
}

// GetByIDForUpdate 加锁获取优惠券
func (r *GormCouponRepository) GetByIDForUpdate(id uint) (*models.Coupon, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormCouponRepository) first(query *gorm.DB, id uint) (*models.Coupon, error) {
	if id == 0 {
		return nil, nil
	}
	var coupon models.Coupon
	if err := query.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// ListByIDsUnscoped 批量获取优惠券（含已删除）
func (r *GormCouponRepository) ListByIDsUnscoped(ids []uint) ([]models.Coupon, error) {
	if len(ids) == 0 {
		return []models.Coupon{}, nil
	}
	var coupons []models.Coupon
	if err := r.db.Unscoped().Where("id IN ?", ids).Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

// Create 创建优惠券
func (r *GormCouponRepository) Create(coupon *models.Coupon) error {
	return r.db.Create(coupon).Error
}

// Update 更新优惠券
func (r *GormCouponRepository) Update(coupon *models.Coupon) error {
	return r.db.Save(coupon).Error
}

// Delete 软删除优惠券
func (r *GormCouponRepository) Delete(id uint) error {
	return r.db.Delete(&models.Coupon{}, id).Error
}

// List 优惠券列表
func (r *GormCouponRepository) List(filter CouponListFilter) ([]models.Coupon, int64, error) {
	query := r.db.Model(&models.Coupon{})
	if source := strings.TrimSpace(filter.Source); source != "" {
		query = query.Where("source = ?", source)
	}
	if filter.RestaurantID != 0 {
		query = query.Where("restaurant_id = ?", filter.RestaurantID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", strings.ToUpper(status))
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, count := likeCondition(r.db, "title", "description", "reward_item_name")
		query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", count)...)
	}
	if filter.ClaimableAt != nil {
		query = query.Where("status = ?", constants.CouponStatusActive).
			Where("expires_at IS NULL OR expires_at > ?", *filter.ClaimableAt)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var coupons []models.Coupon
	if err := query.Order("id DESC").Find(&coupons).Error; err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

// IncrementClaimedCount 在未达总量上限时原地加一，返回是否成功
func (r *GormCouponRepository) IncrementClaimedCount(id uint) (bool, error) {
	result := r.db.Model(&models.Coupon{}).
		Where("id = ?", id).
		Where("total_limit IS NULL OR claimed_count < total_limit").
		Update("claimed_count", gorm.Expr("claimed_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateStatus 条件更新模板状态，返回是否命中
func (r *GormCouponRepository) UpdateStatus(id uint, from, to constants.CouponStatus) (bool, error) {
	result := r.db.Model(&models.Coupon{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
