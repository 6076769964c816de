package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, cfg), mr
}

func TestCheckUnderBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 3, Cooldown: time.Minute})
	ctx := context.Background()

	if err := l.Check(ctx, "bob@x.com", ""); err != nil {
		t.Errorf("fresh identifier: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := l.RecordFailure(ctx, "bob@x.com", ""); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if err := l.Check(ctx, "bob@x.com", ""); err != nil {
		t.Errorf("under budget: %v", err)
	}
}

func TestCheckExhaustedBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 3, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.RecordFailure(ctx, "bob@x.com", ""); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if err := l.Check(ctx, "bob@x.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Errorf("got %v, want ErrRateLimited", err)
	}
}

func TestIPThrottleIndependentOfIdentifier(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 2, Cooldown: time.Minute, EnableIPThrottle: true})
	ctx := context.Background()

	// Different identifiers, same source address.
	if err := l.RecordFailure(ctx, "a@x.com", "10.0.0.9"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if err := l.RecordFailure(ctx, "b@x.com", "10.0.0.9"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	if err := l.Check(ctx, "c@x.com", "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("ip budget: got %v, want ErrRateLimited", err)
	}
	if err := l.Check(ctx, "c@x.com", "10.0.0.10"); err != nil {
		t.Errorf("other ip blocked: %v", err)
	}
}

func TestResetClearsCounters(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 1, Cooldown: time.Minute})
	ctx := context.Background()

	if err := l.RecordFailure(ctx, "bob@x.com", ""); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if err := l.Check(ctx, "bob@x.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}

	if err := l.Reset(ctx, "bob@x.com", ""); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := l.Check(ctx, "bob@x.com", ""); err != nil {
		t.Errorf("post-reset: %v", err)
	}
}

func TestCountersExpireAfterCooldown(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 1, Cooldown: time.Minute})
	ctx := context.Background()

	if err := l.RecordFailure(ctx, "bob@x.com", ""); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if err := l.Check(ctx, "bob@x.com", ""); err != nil {
		t.Errorf("expired counter still blocks: %v", err)
	}
}

func TestUnavailableBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := New(client, Config{MaxAttempts: 3, Cooldown: time.Minute})
	mr.Close()

	if err := l.Check(context.Background(), "bob@x.com", ""); !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}
