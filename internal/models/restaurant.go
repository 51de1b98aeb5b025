package models

import (
	"time"

	"gorm.io/gorm"
)

// Restaurant 餐厅
type Restaurant struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                           // 主键
	Name      string         `gorm:"type:varchar(128);not null" json:"name"`                         // 名称
	City      string         `gorm:"type:varchar(64);not null;index" json:"city"`                    // 所在城市
	Address   string         `gorm:"type:varchar(255);default:''" json:"address"`                    // 地址
	Status    string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status"` // 状态
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                                        // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                                 // 软删除时间
}

// TableName 指定表名
func (Restaurant) TableName() string {
	return "restaurants"
}

// RestaurantStaff 餐厅员工（可核销本店优惠券）
type RestaurantStaff struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	RestaurantID uint      `gorm:"not null;uniqueIndex:idx_restaurant_staff_pair,priority:1" json:"restaurant_id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_restaurant_staff_pair,priority:2;index" json:"user_id"`
	Role         string    `gorm:"type:varchar(20);not null;default:'cashier'" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (RestaurantStaff) TableName() string {
	return "restaurant_staff"
}
