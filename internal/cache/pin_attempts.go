package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PinLimiter tracks failed PIN attempts per account in a sliding window and
// locks the account out once the threshold is crossed. It blunts brute-force
// attempts without a permanent server-side lock.
type PinLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
}

func NewPinLimiter(client *redis.Client, maxAttempts int, window, lockout time.Duration) *PinLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}
	return &PinLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
		lockout:     lockout,
	}
}

func attemptsKey(accountID uuid.UUID) string {
	return "pin_attempts:" + accountID.String()
}

func lockKey(accountID uuid.UUID) string {
	return "pin_lock:" + accountID.String()
}

// Allowed reports whether the account may attempt a PIN check.
func (l *PinLimiter) Allowed(ctx context.Context, accountID uuid.UUID) (bool, error) {
	locked, err := l.client.Exists(ctx, lockKey(accountID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check PIN lock: %w", err)
	}
	return locked == 0, nil
}

// RecordFailure counts one failed attempt; crossing the threshold within the
// window arms the lockout.
func (l *PinLimiter) RecordFailure(ctx context.Context, accountID uuid.UUID) error {
	key := attemptsKey(accountID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to record PIN failure: %w", err)
	}
	if count == 1 {
		_ = l.client.Expire(ctx, key, l.window).Err()
	}

	if count >= int64(l.maxAttempts) {
		if err := l.client.Set(ctx, lockKey(accountID), "1", l.lockout).Err(); err != nil {
			return fmt.Errorf("failed to arm PIN lockout: %w", err)
		}
	}

	return nil
}

// Reset clears the attempt counter and any active lockout, after a
// successful check or a PIN change.
func (l *PinLimiter) Reset(ctx context.Context, accountID uuid.UUID) error {
	return l.client.Del(ctx, attemptsKey(accountID), lockKey(accountID)).Err()
}
