package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeService struct {
	name     string
	startErr error
	block    bool
	mu       *sync.Mutex
	stopped  *[]string
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Start(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return nil
	}
	return f.startErr
}

func (f *fakeService) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.stopped = append(*f.stopped, f.name)
	return nil
}

func TestRunnerStopsInReverseOrderOnFailure(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	boom := errors.New("boom")
	runner := NewRunner(
		&fakeService{name: "resources", block: true, mu: &mu, stopped: &stopped},
		&fakeService{name: "http", block: true, mu: &mu, stopped: &stopped},
		&fakeService{name: "worker", startErr: boom, mu: &mu, stopped: &stopped},
	)

	err := runner.Run(context.Background(), time.Second, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected worker error, got %v", err)
	}
	want := []string{"worker", "http", "resources"}
	if len(stopped) != len(want) {
		t.Fatalf("stopped want %v got %v", want, stopped)
	}
	for i := range want {
		if stopped[i] != want[i] {
			t.Fatalf("stopped want %v got %v", want, stopped)
		}
	}
}

func TestRunnerCancelledContextIsCleanExit(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	runner := NewRunner(&fakeService{name: "http", block: true, mu: &mu, stopped: &stopped})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := runner.Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if len(stopped) != 1 {
		t.Fatalf("expected service stopped once, got %v", stopped)
	}
}

func TestNormalizeOptions(t *testing.T) {
	opts := normalizeOptions(Options{Mode: " API "})
	if opts.Mode != ModeAPI {
		t.Fatalf("mode want api got %q", opts.Mode)
	}
	if opts.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected shutdown timeout %v", opts.ShutdownTimeout)
	}
	if IsValidMode("cron") {
		t.Fatalf("unknown mode should be rejected")
	}
}
