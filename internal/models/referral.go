package models

import (
	"time"

	"github.com/tastemap/internal/constants"

	"gorm.io/datatypes"
)

// ReferralCode 用户推荐码，每人一个
type ReferralCode struct {
	ID             uint      `gorm:"primarykey" json:"id"`                              // 主键
	UserID         uint      `gorm:"not null;uniqueIndex" json:"user_id"`               // 所属用户
	Code           string    `gorm:"type:varchar(16);not null;uniqueIndex" json:"code"` // 推荐码
	TotalReferrals int       `gorm:"not null;default:0" json:"total_referrals"`         // 累计推荐人数
	TotalRewards   int64     `gorm:"not null;default:0" json:"total_rewards"`           // 累计获得奖励积分
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`            // 是否可用
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt      time.Time `gorm:"index" json:"updated_at"`                           // 更新时间
}

// TableName 指定表名
func (ReferralCode) TableName() string {
	return "referral_codes"
}

// Referral 推荐关系，被推荐人唯一
type Referral struct {
	ID                     uint                     `gorm:"primarykey" json:"id"`
	ReferrerID             uint                     `gorm:"not null;index:idx_referrals_referrer_status,priority:1" json:"referrer_id"`
	ReferredUserID         uint                     `gorm:"not null;uniqueIndex" json:"referred_user_id"`
	ReferralCodeID         uint                     `gorm:"not null;index" json:"referral_code_id"`
	Status                 constants.ReferralStatus `gorm:"type:varchar(20);not null;index:idx_referrals_referrer_status,priority:2" json:"status"`
	RegisteredAt           *time.Time               `json:"registered_at"`
	FirstVisitAt           *time.Time               `json:"first_visit_at"`
	CompletedAt            *time.Time               `gorm:"index" json:"completed_at"`
	FirstVisitRestaurantID *uint                    `json:"first_visit_restaurant_id"`
	RewardAmount           int64                    `gorm:"not null;default:0" json:"reward_amount"`
	RewardType             string                   `gorm:"type:varchar(20);not null;default:'points'" json:"reward_type"`
	CreatedAt              time.Time                `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time                `json:"updated_at"`

	ReferredUser *User `gorm:"foreignKey:ReferredUserID" json:"referred_user,omitempty"`
}

// TableName 指定表名
func (Referral) TableName() string {
	return "referrals"
}

// ReferralReward 推荐奖励发放记录，(user_id, referral_id, action_type) 唯一
type ReferralReward struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	UserID        uint           `gorm:"not null;uniqueIndex:idx_referral_rewards_once,priority:1" json:"user_id"`
	ReferralID    uint           `gorm:"not null;uniqueIndex:idx_referral_rewards_once,priority:2;index" json:"referral_id"`
	ActionType    string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_referral_rewards_once,priority:3" json:"action_type"`
	Points        int64          `gorm:"not null" json:"points"`
	LedgerEntryID uint           `gorm:"not null" json:"ledger_entry_id"`
	Metadata      datatypes.JSON `json:"metadata"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ReferralReward) TableName() string {
	return "referral_rewards"
}
