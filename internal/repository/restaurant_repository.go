package repository

import (
	"errors"
	"strings"

	"github.com/tastemap/internal/models"

	"gorm.io/gorm"
)

// RestaurantRepository 餐厅与员工数据访问接口
type RestaurantRepository interface {
	WithTx(tx *gorm.DB) RestaurantRepository
	GetByID(id uint) (*models.Restaurant, error)
	Create(restaurant *models.Restaurant) error
	List(filter RestaurantListFilter) ([]models.Restaurant, int64, error)
	IsStaff(restaurantID, userID uint) (bool, error)
	AddStaff(staff *models.RestaurantStaff) error
	RemoveStaff(restaurantID, userID uint) (bool, error)
	ListStaff(restaurantID uint) ([]models.RestaurantStaff, error)
}

// GormRestaurantRepository GORM 实现
type GormRestaurantRepository struct {
	db *gorm.DB
}

// NewRestaurantRepository 创建餐厅仓库
func NewRestaurantRepository(db *gorm.DB) *GormRestaurantRepository {
	return &GormRestaurantRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRestaurantRepository) WithTx(tx *gorm.DB) RestaurantRepository {
	if tx == nil {
		return r
	}
	return &GormRestaurantRepository{db: tx}
}

// GetByID 获取餐厅
func (r *GormRestaurantRepository) GetByID(id uint) (*models.Restaurant, error) {
	if id == 0 {
		return nil, nil
	}
	var restaurant models.Restaurant
	if err := r.db.First(&restaurant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &restaurant, nil
}

// Create 创建餐厅
func (r *GormRestaurantRepository) Create(restaurant *models.Restaurant) error {
	return r.db.Create(restaurant).Error
}

// List 餐厅列表
func (r *GormRestaurantRepository) List(filter RestaurantListFilter) ([]models.Restaurant, int64, error) {
	query := r.db.Model(&models.Restaurant{})
	if city := strings.TrimSpace(filter.City); city != "" {
		query = query.Where("city = ?", city)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, count := likeCondition(r.db, "name", "address")
		query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", count)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var restaurants []models.Restaurant
	if err := query.Order("id DESC").Find(&restaurants).Error; err != nil {
		return nil, 0, err
	}
	return restaurants, total, nil
}

// IsStaff 判断用户是否为餐厅员工
func (r *GormRestaurantRepository) IsStaff(restaurantID, userID uint) (bool, error) {
	if restaurantID == 0 || userID == 0 {
		return false, nil
	}
	var total int64
	if err := r.db.Model(&models.RestaurantStaff{}).
		Where("restaurant_id = ? AND user_id = ?", restaurantID, userID).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// AddStaff 添加员工
func (r *GormRestaurantRepository) AddStaff(staff *models.RestaurantStaff) error {
	return r.db.Create(staff).Error
}

// RemoveStaff 移除员工，返回是否存在
func (r *GormRestaurantRepository) RemoveStaff(restaurantID, userID uint) (bool, error) {
	result := r.db.Where("restaurant_id = ? AND user_id = ?", restaurantID, userID).Delete(&models.RestaurantStaff{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListStaff 餐厅员工列表
func (r *GormRestaurantRepository) ListStaff(restaurantID uint) ([]models.RestaurantStaff, error) {
	var staff []models.RestaurantStaff
	if err := r.db.Where("restaurant_id = ?", restaurantID).Order("id ASC").Find(&staff).Error; err != nil {
		return nil, err
	}
	return staff, nil
}
