package models

import (
	"time"

	"github.com/tastemap/internal/constants"

	"gorm.io/gorm"
)

// Coupon 优惠券模板
type Coupon struct {
	ID                    uint                   `gorm:"primarykey" json:"id"`                                                                                                  // 主键
	Source                string                 `gorm:"type:varchar(20);not null;index" json:"source"`                                                                         // 来源（platform/restaurant）
	RestaurantID          *uint                  `gorm:"index" json:"restaurant_id"`                                                                                            // 餐厅券所属餐厅
	Type                  string                 `gorm:"type:varchar(32);not null" json:"type"`                                                                                 // 类型
	Title                 string                 `gorm:"type:varchar(128);not null" json:"title"`                                                                               // 标题
	Description           string                 `gorm:"type:text" json:"description"`                                                                                          // 描述
	RewardItemName        string                 `gorm:"type:varchar(128);default:''" json:"reward_item_name"`                                                                  // 赠品名称
	DiscountPercent       int                    `gorm:"not null;default:0" json:"discount_percent"`                                                                            // 折扣百分比
	DiscountAmount        Money                  `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`                                                          // 立减金额
	TotalLimit            *int                   `json:"total_limit"`                                                                                                           // 总量上限（空为不限）
	PerUserLimit          int                    `gorm:"not null;default:1;check:chk_coupons_per_user,per_user_limit >= 1" json:"per_user_limit"`                               // 每人上限
	StartsAt              *time.Time             `gorm:"index" json:"starts_at"`                                                                                                // 开始时间
	ExpiresAt             *time.Time             `gorm:"index" json:"expires_at"`                                                                                               // 结束时间
	Status                constants.CouponStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`                                                         // 状态
	ClaimedCount          int                    `gorm:"not null;default:0;check:chk_coupons_claimed,total_limit IS NULL OR claimed_count <= total_limit" json:"claimed_count"` // 已领取数量
	ConditionKind         string                 `gorm:"type:varchar(64);default:''" json:"condition_kind"`                                                                     // 领取条件
	ConditionValue        int64                  `gorm:"not null;default:0" json:"condition_value"`                                                                             // 条件阈值
	ConditionRestaurantID *uint                  `json:"condition_restaurant_id"`                                                                                               // 条件关联餐厅
	CreatedAt             time.Time              `gorm:"index" json:"created_at"`                                                                                               // 创建时间
	UpdatedAt             time.Time              `gorm:"index" json:"updated_at"`                                                                                               // 更新时间
	DeletedAt             gorm.DeletedAt         `gorm:"index" json:"-"`                                                                                                        // 软删除时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// HasWindow 是否配置了时间窗口
func (c *Coupon) HasWindow() bool {
	return c.StartsAt != nil || c.ExpiresAt != nil
}

// InWindow 判断 now 是否处于 [starts_at, expires_at)
func (c *Coupon) InWindow(now time.Time) bool {
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false
	}
	return true
}

// UserCoupon 用户领取的优惠券
type UserCoupon struct {
	ID              uint                       `gorm:"primarykey" json:"id"`
	CouponID        uint                       `gorm:"not null;index:idx_user_coupons_coupon_user,priority:1" json:"coupon_id"`
	UserID          uint                       `gorm:"not null;index:idx_user_coupons_coupon_user,priority:2;index" json:"user_id"`
	ClaimedAt       time.Time                  `gorm:"not null" json:"claimed_at"`
	ExpiresAt       time.Time                  `gorm:"not null;index" json:"expires_at"`
	Status          constants.UserCouponStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	QRTokenHash     *string                    `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	QRTokenIssuedAt *time.Time                 `json:"qr_token_issued_at"`
	RedeemedAt      *time.Time                 `json:"redeemed_at"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`

	Coupon *Coupon `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
}

// TableName 指定表名
func (UserCoupon) TableName() string {
	return "user_coupons"
}

// EffectiveStatus 读取时计算的状态：晚于 expires_at 的 CLAIMED 视为 EXPIRED
func (uc *UserCoupon) EffectiveStatus(now time.Time) constants.UserCouponStatus {
	if uc.Status == constants.UserCouponStatusClaimed && now.After(uc.ExpiresAt) {
		return constants.UserCouponStatusExpired
	}
	return uc.Status
}

// CouponRedemption 核销记录，每张用户券至多一条
type CouponRedemption struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserCouponID uint      `gorm:"not null;uniqueIndex" json:"user_coupon_id"`
	CouponID     uint      `gorm:"not null;index" json:"coupon_id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	RestaurantID uint      `gorm:"not null;index" json:"restaurant_id"`
	RedeemedBy   uint      `gorm:"not null" json:"redeemed_by"`
	RedeemedAt   time.Time `gorm:"not null;index" json:"redeemed_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (CouponRedemption) TableName() string {
	return "coupon_redemptions"
}
