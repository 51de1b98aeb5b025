package repository

import (
	"errors"

	"github.com/tastemap/internal/models"

	"gorm.io/gorm"
)

// ReviewRepository 点评数据访问接口
type ReviewRepository interface {
	WithTx(tx *gorm.DB) ReviewRepository
	Create(review *models.Review) error
	GetByUserAndRestaurant(userID, restaurantID uint) (*models.Review, error)
	ListByRestaurant(restaurantID uint, page, pageSize int) ([]models.Review, int64, error)
}

// GormReviewRepository GORM 实现
type GormReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository 创建点评仓库
func NewReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReviewRepository) WithTx(tx *gorm.DB) ReviewRepository {
	if tx == nil {
		return r
	}
	return &GormReviewRepository{db: tx}
}

// Create 写入点评
func (r *GormReviewRepository) Create(review *models.Review) error {
	return r.db.Create(review).Error
}

// GetByUserAndRestaurant 获取用户在某餐厅的点评
func (r *GormReviewRepository) GetByUserAndRestaurant(userID, restaurantID uint) (*models.Review, error) {
	var review models.Review
	if err := r.db.Where("user_id = ? AND restaurant_id = ?", userID, restaurantID).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

// ListByRestaurant 餐厅点评列表，按时间倒序
func (r *GormReviewRepository) ListByRestaurant(restaurantID uint, page, pageSize int) ([]models.Review, int64, error) {
	query := r.db.Model(&models.Review{}).Where("restaurant_id = ?", restaurantID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var reviews []models.Review
	if err := applyPagination(query, page, pageSize).Order("id desc").Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}
