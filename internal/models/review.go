package models

import (
	"time"

	"gorm.io/datatypes"
)

// Review 用户对餐厅的点评，同一用户同一餐厅仅一条
type Review struct {
	ID            uint                        `gorm:"primarykey" json:"id"`
	UserID        uint                        `gorm:"not null;uniqueIndex:idx_reviews_user_restaurant,priority:1" json:"user_id"`
	RestaurantID  uint                        `gorm:"not null;uniqueIndex:idx_reviews_user_restaurant,priority:2;index" json:"restaurant_id"`
	Content       string                      `gorm:"type:text;not null" json:"content"`
	ContentLength int                         `gorm:"not null;default:0" json:"content_length"` // 按字符计
	PhotoURLs     datatypes.JSONSlice[string] `json:"photo_urls"`
	CreatedAt     time.Time                   `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Review) TableName() string {
	return "reviews"
}
