package repository

import "time"

// PointsEntryListFilter 积分流水查询条件
type PointsEntryListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	ActionType  string
	Direction   string // earn / spend
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ReferralListFilter 推荐关系查询条件
type ReferralListFilter struct {
	Page       int
	PageSize   int
	ReferrerID uint
	Status     string
}

// ReferralRewardListFilter 推荐奖励查询条件
type ReferralRewardListFilter struct {
	Page      int
	PageSize  int
	UserID    uint
	BonusType string
}

// CouponListFilter 优惠券模板查询条件
type CouponListFilter struct {
	Page         int
	PageSize     int
	Source       string
	RestaurantID uint
	Status       string
	Keyword      string
	ClaimableAt  *time.Time // 非空时仅返回 ACTIVE 且未过结束时间的券
}

// UserCouponListFilter 用户券查询条件
type UserCouponListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Status   string // active / redeemed / expired，空为全部
	Now      time.Time
}

// RestaurantListFilter 餐厅查询条件
type RestaurantListFilter struct {
	Page     int
	PageSize int
	City     string
	Keyword  string
}

// ReferralStatusCount 推荐状态聚合
type ReferralStatusCount struct {
	Status string
	Total  int64
}
