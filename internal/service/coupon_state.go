package service

import "github.com/tastemap/internal/constants"

// userCouponTransitions 用户券状态流转，EXPIRED 由读取时按 expires_at 推导
var userCouponTransitions = map[constants.UserCouponStatus][]constants.UserCouponStatus{
	constants.UserCouponStatusClaimed:  {constants.UserCouponStatusRedeemed, constants.UserCouponStatusExpired},
	constants.UserCouponStatusRedeemed: {},
	constants.UserCouponStatusExpired:  {},
}

// couponTransitions 优惠券模板状态流转
var couponTransitions = map[constants.CouponStatus][]constants.CouponStatus{
	constants.CouponStatusDraft:   {constants.CouponStatusActive, constants.CouponStatusExpired},
	constants.CouponStatusActive:  {constants.CouponStatusPaused, constants.CouponStatusExpired},
	constants.CouponStatusPaused:  {constants.CouponStatusActive, constants.CouponStatusExpired},
	constants.CouponStatusExpired: {},
}

func validateUserCouponTransition(from, to constants.UserCouponStatus) error {
	for _, next := range userCouponTransitions[from] {
		if next == to {
			return nil
		}
	}
	return ErrUserCouponTransition
}

func validateCouponTransition(from, to constants.CouponStatus) error {
	for _, next := range couponTransitions[from] {
		if next == to {
			return nil
		}
	}
	return ErrCouponStatusInvalid
}
