package queue

import (
	"encoding/json"

	"github.com/tastemap/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskLoyaltyNotify 积分/优惠券/推荐事件通知任务
	TaskLoyaltyNotify = constants.TaskLoyaltyNotify
)

// LoyaltyNotifyPayload 通知任务载荷
type LoyaltyNotifyPayload struct {
	Event        string `json:"event"`
	UserID       uint   `json:"user_id"`
	Points       int64  `json:"points,omitempty"`
	Balance      int64  `json:"balance,omitempty"`
	ActionType   string `json:"action_type,omitempty"`
	CouponID     uint   `json:"coupon_id,omitempty"`
	UserCouponID uint   `json:"user_coupon_id,omitempty"`
	ReferralID   uint   `json:"referral_id,omitempty"`
	RestaurantID uint   `json:"restaurant_id,omitempty"`
	OccurredAt   int64  `json:"occurred_at"`
}

// NewLoyaltyNotifyTask 创建通知任务
func NewLoyaltyNotifyTask(payload LoyaltyNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoyaltyNotify, body), nil
}

// ParseLoyaltyNotifyPayload 解析通知任务载荷
func ParseLoyaltyNotifyPayload(task *asynq.Task) (LoyaltyNotifyPayload, error) {
	var payload LoyaltyNotifyPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
