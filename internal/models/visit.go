package models

import "time"

// Visit 到店记录，同一来源引用只计一次
type Visit struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_visits_user_source_ref,priority:1;index:idx_visits_user_time,priority:1" json:"user_id"`
	RestaurantID uint      `gorm:"not null;index" json:"restaurant_id"`
	City         string    `gorm:"type:varchar(64);not null;default:''" json:"city"`                                          // 到店时餐厅所在城市快照
	Source       string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_visits_user_source_ref,priority:2" json:"source"` // qr / reservation
	ReferenceID  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_visits_user_source_ref,priority:3" json:"reference_id"`
	VisitedAt    time.Time `gorm:"not null;index:idx_visits_user_time,priority:2" json:"visited_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (Visit) TableName() string {
	return "visits"
}
