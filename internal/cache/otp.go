package cache

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OTPStore keeps one-time confirmation codes for pending transfers. Codes
// share the transfer request's lifetime and are consumed on first use.
type OTPStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

func otpKey(transferID uuid.UUID) string {
	return "transfer_otp:" + transferID.String()
}

// Issue generates a 6-digit code for the transfer and stores it with the
// given TTL, replacing any previous code.
func (s *OTPStore) Issue(ctx context.Context, transferID uuid.UUID, ttl time.Duration) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	if err := s.client.Set(ctx, otpKey(transferID), code, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store OTP: %w", err)
	}

	return code, nil
}

// Verify checks the code and consumes it on success.
func (s *OTPStore) Verify(ctx context.Context, transferID uuid.UUID, code string) (bool, error) {
	stored, err := s.client.Get(ctx, otpKey(transferID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read OTP: %w", err)
	}

	if stored != code {
		return false, nil
	}

	_ = s.client.Del(ctx, otpKey(transferID)).Err()
	return true, nil
}
