// Package rate enforces the optional login attempt throttle with Redis
// counters, so the budget is shared across engine instances.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimited signals an exhausted attempt budget.
var ErrRateLimited = errors.New("rate limited")

// ErrUnavailable wraps Redis transport failures.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Config holds throttle tuning.
type Config struct {
	MaxAttempts      int
	Cooldown         time.Duration
	EnableIPThrottle bool
}

// Limiter counts failed login attempts per identifier and, optionally,
// per client IP. Counters expire after the cooldown.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, config: cfg}
}

// Check reports ErrRateLimited when the identifier or IP has exhausted
// its attempt budget.
func (l *Limiter) Check(ctx context.Context, identifier, ip string) error {
	if err := l.check(ctx, identifierKey(identifier)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.check(ctx, ipKey(ip))
	}
	return nil
}

// RecordFailure counts one failed attempt against the identifier and IP.
func (l *Limiter) RecordFailure(ctx context.Context, identifier, ip string) error {
	if err := l.increment(ctx, identifierKey(identifier)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.increment(ctx, ipKey(ip))
	}
	return nil
}

// Reset clears the counters after a successful login.
func (l *Limiter) Reset(ctx context.Context, identifier, ip string) error {
	keys := []string{identifierKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, ipKey(ip))
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (l *Limiter) check(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) increment(ctx context.Context, key string) error {
	pipe := l.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.config.Cooldown)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if incr.Val() > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func identifierKey(identifier string) string {
	return "ac:login:id:" + identifier
}

func ipKey(ip string) string {
	return "ac:login:ip:" + ip
}
