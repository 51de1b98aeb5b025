package worker

import (
	"context"
	"strings"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/i18n"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/provider"
	"github.com/tastemap/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskLoyaltyNotify, c.handleLoyaltyNotify)
}

func (c *Consumer) handleLoyaltyNotify(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_loyalty_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseLoyaltyNotifyPayload(task)
	if err != nil {
		logger.Warnw("worker_loyalty_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 || strings.TrimSpace(payload.Event) == "" {
		logger.Debugw("worker_loyalty_notify_skip_invalid_payload", "user_id", payload.UserID, "event", payload.Event)
		return nil
	}

	locale := i18n.DefaultLocale
	if c.Container != nil && c.UserRepo != nil {
		user, err := c.UserRepo.GetByID(payload.UserID)
		if err != nil {
			logger.Warnw("worker_loyalty_notify_fetch_user_failed", "user_id", payload.UserID, "error", err)
			return err
		}
		if user == nil {
			logger.Debugw("worker_loyalty_notify_skip_user_not_found", "user_id", payload.UserID)
			return nil
		}
		locale = user.Locale
	}

	message, ok := buildNotifyMessage(locale, payload)
	if !ok {
		logger.Debugw("worker_loyalty_notify_skip_unknown_event", "user_id", payload.UserID, "event", payload.Event)
		return nil
	}
	logger.Infow("worker_loyalty_notify_delivered",
		"user_id", payload.UserID,
		"event", payload.Event,
		"locale", i18n.NormalizeLocale(locale),
		"message", message,
	)
	return nil
}

// buildNotifyMessage 按用户语言渲染通知文案
func buildNotifyMessage(locale string, payload queue.LoyaltyNotifyPayload) (string, bool) {
	switch payload.Event {
	case constants.NotifyEventPointsAwarded:
		return i18n.Sprintf(locale, "notify.points_awarded", payload.Points, payload.Balance), true
	case constants.NotifyEventReferralBonus:
		return i18n.Sprintf(locale, "notify.referral_bonus", payload.Points, payload.Balance), true
	case constants.NotifyEventCouponClaimed:
		return i18n.Sprintf(locale, "notify.coupon_claimed", payload.CouponID), true
	case constants.NotifyEventCouponRedeemed:
		return i18n.Sprintf(locale, "notify.coupon_redeemed", payload.CouponID, payload.RestaurantID), true
	case constants.NotifyEventReferralApplied:
		return i18n.T(locale, "notify.referral_applied"), true
	default:
		return "", false
	}
}
