package repository

import (
	"time"

	"github.com/tastemap/internal/models"

	"gorm.io/gorm"
)

// VisitRepository 到店记录数据访问接口
type VisitRepository interface {
	WithTx(tx *gorm.DB) VisitRepository
	Transaction(fn func(tx *gorm.DB) error) error
	Create(visit *models.Visit) error
	ExistsByReference(userID uint, source, referenceID string) (bool, error)
	CountAtRestaurantSince(userID, restaurantID uint, since time.Time) (int64, error)
	CountDistinctRestaurantsSince(userID uint, since time.Time) (int64, error)
	CountDistinctCitiesSince(userID uint, since time.Time) (int64, error)
}

// GormVisitRepository GORM 实现
type GormVisitRepository struct {
	db *gorm.DB
}

// NewVisitRepository 创建到店记录仓库
func NewVisitRepository(db *gorm.DB) *GormVisitRepository {
	return &GormVisitRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVisitRepository) WithTx(tx *gorm.DB) VisitRepository {
	if tx == nil {
		return r
	}
	return &GormVisitRepository{db: tx}
}

// Transaction 执行事务
func (r *GormVisitRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 写入到店记录
func (r *GormVisitRepository) Create(visit *models.Visit) error {
	return r.db.Create(visit).Error
}

// ExistsByReference 判断同一来源引用是否已记录
func (r *GormVisitRepository) ExistsByReference(userID uint, source, referenceID string) (bool, error) {
	var total int64
	if err := r.db.Model(&models.Visit{}).
		Where("user_id = ? AND source = ? AND reference_id = ?", userID, source, referenceID).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// CountAtRestaurantSince 统计某餐厅的到店次数
func (r *GormVisitRepository) CountAtRestaurantSince(userID, restaurantID uint, since time.Time) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Visit{}).
		Where("user_id = ? AND restaurant_id = ? AND visited_at >= ?", userID, restaurantID, since).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountDistinctRestaurantsSince 统计到访过的不同餐厅数
func (r *GormVisitRepository) CountDistinctRestaurantsSince(userID uint, since time.Time) (int64, error) {
	return r.countDistinct("restaurant_id", "restaurant_id <> 0", userID, since)
}

// CountDistinctCitiesSince 统计到访过的不同城市数
func (r *GormVisitRepository) CountDistinctCitiesSince(userID uint, since time.Time) (int64, error) {
	return r.countDistinct("city", "city <> ''", userID, since)
}

func (r *GormVisitRepository) countDistinct(column, nonEmpty string, userID uint, since time.Time) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Visit{}).
		Where("user_id = ? AND visited_at >= ?", userID, since).
		Where(nonEmpty).
		Distinct(column).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
