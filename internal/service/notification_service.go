package service

import (
	"time"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/queue"
)

// NotificationService 事务提交后投递用户通知，失败只记录日志
type NotificationService struct {
	queueClient *queue.Client
}

// NewNotificationService 创建通知服务
func NewNotificationService(queueClient *queue.Client) *NotificationService {
	return &NotificationService{queueClient: queueClient}
}

// Dispatch 投递通知
func (s *NotificationService) Dispatch(payload queue.LoyaltyNotifyPayload) {
	if s == nil || s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if payload.OccurredAt == 0 {
		payload.OccurredAt = time.Now().Unix()
	}
	if err := s.queueClient.EnqueueLoyaltyNotify(payload); err != nil {
		logger.Warnw("loyalty_notify_enqueue_failed",
			"event", payload.Event,
			"user_id", payload.UserID,
			"error", err,
		)
	}
}

// PointsAwarded 积分变动通知
func (s *NotificationService) PointsAwarded(entry *models.PointsLedgerEntry) {
	if entry == nil {
		return
	}
	payload := queue.LoyaltyNotifyPayload{
		Event:      constants.NotifyEventPointsAwarded,
		UserID:     entry.UserID,
		Points:     entry.Points,
		Balance:    entry.BalanceAfter,
		ActionType: entry.ActionType,
	}
	if entry.RestaurantID != nil {
		payload.RestaurantID = *entry.RestaurantID
	}
	s.Dispatch(payload)
}

// ReferralBonus 推荐奖励通知
func (s *NotificationService) ReferralBonus(referralID uint, entry *models.PointsLedgerEntry) {
	if entry == nil {
		return
	}
	s.Dispatch(queue.LoyaltyNotifyPayload{
		Event:      constants.NotifyEventReferralBonus,
		UserID:     entry.UserID,
		Points:     entry.Points,
		Balance:    entry.BalanceAfter,
		ActionType: entry.ActionType,
		ReferralID: referralID,
	})
}

// CouponClaimed 领券通知
func (s *NotificationService) CouponClaimed(userCoupon *models.UserCoupon) {
	if userCoupon == nil {
		return
	}
	s.Dispatch(queue.LoyaltyNotifyPayload{
		Event:        constants.NotifyEventCouponClaimed,
		UserID:       userCoupon.UserID,
		CouponID:     userCoupon.CouponID,
		UserCouponID: userCoupon.ID,
	})
}

// CouponRedeemed 核销通知
func (s *NotificationService) CouponRedeemed(redemption *models.CouponRedemption) {
	if redemption == nil {
		return
	}
	s.Dispatch(queue.LoyaltyNotifyPayload{
		Event:        constants.NotifyEventCouponRedeemed,
		UserID:       redemption.UserID,
		CouponID:     redemption.CouponID,
		UserCouponID: redemption.UserCouponID,
		RestaurantID: redemption.RestaurantID,
	})
}
