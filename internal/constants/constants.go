package constants

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 餐厅状态常量
const (
	RestaurantStatusActive = "active"
	RestaurantStatusClosed = "closed"
)

// 积分流水动作类型
const (
	PointsActionReviewAdd                    = "review_add"
	PointsActionReviewLong                   = "review_long"
	PointsActionReviewWithPhoto              = "review_with_photo"
	PointsActionVisitQR                      = "visit_qr"
	PointsActionReservationVisit             = "reservation_visit"
	PointsActionAchievementUnlocked          = "achievement_unlocked"
	PointsActionReferralRegistrationReferrer = "referral_registration_referrer"
	PointsActionReferralRegistrationReferred = "referral_registration_referred"
	PointsActionReferralVisitReferrer        = "referral_visit_referrer"
	PointsActionSpentCoupon                  = "points_spent_coupon"
	PointsActionAdminAdjust                  = "admin_adjust"
)

// ReferralStatus 推荐关系状态
type ReferralStatus string

// 推荐关系状态常量
const (
	ReferralStatusPending    ReferralStatus = "PENDING"
	ReferralStatusRegistered ReferralStatus = "REGISTERED"
	ReferralStatusCompleted  ReferralStatus = "COMPLETED"
)

// 推荐奖励类型
const (
	ReferralRewardTypePoints = "points"
)

// 推荐奖励元数据中的 bonus_type
const (
	ReferralBonusTypeRegistration = "registration"
	ReferralBonusTypeFirstVisit   = "first_visit"
)

// 优惠券来源
const (
	CouponSourcePlatform   = "platform"
	CouponSourceRestaurant = "restaurant"
)

// 优惠券类型
const (
	CouponTypeRewardItem      = "REWARD_ITEM"
	CouponTypePercentDiscount = "PERCENT_DISCOUNT"
	CouponTypeFixedDiscount   = "FIXED_DISCOUNT"
)

// CouponStatus 优惠券模板状态
type CouponStatus string

// 优惠券模板状态常量
const (
	CouponStatusDraft   CouponStatus = "DRAFT"
	CouponStatusActive  CouponStatus = "ACTIVE"
	CouponStatusPaused  CouponStatus = "PAUSED"
	CouponStatusExpired CouponStatus = "EXPIRED"
)

// 优惠券领取条件
const (
	CouponConditionPointsAtLeast                   = "POINTS_AT_LEAST"
	CouponConditionReferralsAtLeast                = "REFERRALS_AT_LEAST"
	CouponConditionVisitsSameRestaurantAtLeast     = "VISITS_SAME_RESTAURANT_AT_LEAST"
	CouponConditionVisitsDifferentRestaurantsLeast = "VISITS_DIFFERENT_RESTAURANTS_AT_LEAST"
	CouponConditionVisitsCitiesAtLeast             = "VISITS_CITIES_AT_LEAST"
)

// UserCouponStatus 用户券状态
type UserCouponStatus string

// 用户券状态常量
const (
	UserCouponStatusClaimed  UserCouponStatus = "CLAIMED"
	UserCouponStatusRedeemed UserCouponStatus = "REDEEMED"
	UserCouponStatusExpired  UserCouponStatus = "EXPIRED"
)

// 用户券列表筛选
const (
	UserCouponFilterActive   = "active"
	UserCouponFilterRedeemed = "redeemed"
	UserCouponFilterExpired  = "expired"
)

// 到店记录来源
const (
	VisitSourceQR          = "qr"
	VisitSourceReservation = "reservation"
)

// 餐厅员工角色
const (
	StaffRoleManager = "manager"
	StaffRoleCashier = "cashier"
)

// 验证码
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"

	CaptchaSceneLogin    = "login"
	CaptchaSceneRegister = "register"
)

// 语言
const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"
)

// 队列与任务常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"

	TaskLoyaltyNotify = "loyalty:notify"
)

// 通知事件类型
const (
	NotifyEventPointsAwarded   = "points_awarded"
	NotifyEventReferralBonus   = "referral_bonus"
	NotifyEventCouponClaimed   = "coupon_claimed"
	NotifyEventCouponRedeemed  = "coupon_redeemed"
	NotifyEventReferralApplied = "referral_applied"
)
