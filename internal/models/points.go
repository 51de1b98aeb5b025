package models

import (
	"time"

	"gorm.io/datatypes"
)

// PointsAccount 用户积分账户（物化余额）
type PointsAccount struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                                                     // 主键
	UserID      uint      `gorm:"not null;uniqueIndex" json:"user_id"`                                                      // 用户ID
	TotalPoints int64     `gorm:"not null;default:0;check:chk_points_accounts_total,total_points >= 0" json:"total_points"` // 当前积分
	Level       int       `gorm:"not null;default:1" json:"level"`                                                          // 等级
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                                                                  // 创建时间
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`                                                                  // 更新时间
}

// TableName 指定表名
func (PointsAccount) TableName() string {
	return "points_accounts"
}

// PointsLedgerEntry 积分流水，写入后不可修改
type PointsLedgerEntry struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                                     // 主键
	UserID         uint           `gorm:"not null;index:idx_points_entries_user_created,priority:1" json:"user_id"` // 用户ID
	ActionType     string         `gorm:"type:varchar(64);not null;index" json:"action_type"`                       // 动作类型
	Points         int64          `gorm:"not null" json:"points"`                                                   // 变动积分（支出为负）
	ReferenceID    string         `gorm:"type:varchar(64);not null;default:''" json:"reference_id"`                 // 业务引用
	RestaurantID   *uint          `gorm:"index" json:"restaurant_id,omitempty"`                                     // 关联餐厅
	BalanceAfter   int64          `gorm:"not null" json:"balance_after"`                                            // 变动后余额
	IdempotencyKey *string        `gorm:"type:varchar(128);uniqueIndex" json:"-"`                                   // 幂等键
	Metadata       datatypes.JSON `json:"metadata,omitempty"`                                                       // 附加信息
	CreatedAt      time.Time      `gorm:"index:idx_points_entries_user_created,priority:2" json:"created_at"`       // 创建时间
}

// TableName 指定表名
func (PointsLedgerEntry) TableName() string {
	return "points_ledger_entries"
}
