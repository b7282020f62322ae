package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

// OTPStore keeps short-lived login codes in Redis. Expiry is enforced by
// the key TTL, and consumption is a GETDEL so a code can be redeemed once.
type OTPStore struct {
	client *redis.Client
}

// NewOTPStore constructs the store.
func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

func loginCodeKey(phone string) string {
	return "login_otp:" + phone
}

// SaveLoginCode stores a code under the phone number for ttl. A request
// inside the resend window, while a previous code is still fresh, is
// rejected so the delivery channel is not spammed.
func (s *OTPStore) SaveLoginCode(ctx context.Context, phone, code string, ttl, resendWindow time.Duration) error {
	key := loginCodeKey(phone)
	if resendWindow > 0 {
		remaining, err := s.client.TTL(ctx, key).Result()
		if err == nil && remaining > ttl-resendWindow {
			return appErrors.Clone(appErrors.ErrConflict, "code recently sent, try again shortly")
		}
	}
	if err := s.client.Set(ctx, key, code, ttl).Err(); err != nil {
		return fmt.Errorf("store login code for %s: %w", phone, err)
	}
	return nil
}

// GetLoginCode fetches the stored code without consuming it, so a mistyped
// attempt does not burn a still-valid code. A missing key means the code
// expired or was never requested.
func (s *OTPStore) GetLoginCode(ctx context.Context, phone string) (string, error) {
	code, err := s.client.Get(ctx, loginCodeKey(phone)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", appErrors.ErrOTPExpired
		}
		return "", fmt.Errorf("get login code for %s: %w", phone, err)
	}
	return code, nil
}

// DeleteLoginCode consumes the code after a successful verification.
func (s *OTPStore) DeleteLoginCode(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, loginCodeKey(phone)).Err(); err != nil {
		return fmt.Errorf("delete login code for %s: %w", phone, err)
	}
	return nil
}
