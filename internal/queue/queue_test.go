package queue

import (
	"testing"

	"github.com/tastemap/internal/config"
)

func TestLoyaltyNotifyTaskRoundTrip(t *testing.T) {
	task, err := NewLoyaltyNotifyTask(LoyaltyNotifyPayload{Event: "coupon_claimed", UserID: 3, UserCouponID: 9})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskLoyaltyNotify {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	payload, err := ParseLoyaltyNotifyPayload(task)
	if err != nil {
		t.Fatalf("parse payload failed: %v", err)
	}
	if payload.UserID != 3 || payload.UserCouponID != 9 || payload.Event != "coupon_claimed" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDisabledClientEnqueueIsNoop(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueLoyaltyNotify(LoyaltyNotifyPayload{UserID: 1}); err != nil {
		t.Fatalf("disabled enqueue should not fail: %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected addr: %s", opt.Addr)
	}
	if cfg.Concurrency != 10 || cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}
