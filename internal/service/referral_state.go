package service

import "github.com/tastemap/internal/constants"

// referralTransitions 推荐关系允许的状态流转
var referralTransitions = map[constants.ReferralStatus][]constants.ReferralStatus{
	constants.ReferralStatusPending:    {constants.ReferralStatusRegistered},
	constants.ReferralStatusRegistered: {constants.ReferralStatusCompleted},
	constants.ReferralStatusCompleted:  {},
}

func validateReferralTransition(from, to constants.ReferralStatus) error {
	for _, next := range referralTransitions[from] {
		if next == to {
			return nil
		}
	}
	return ErrReferralTransitionInvalid
}
