package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

// GenerateOTP returns a 6-digit code drawn uniformly from [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// VerifyOTP checks a candidate code against the stored value and expiry.
// A mismatched code is rejected as invalid regardless of expiry; a matching
// code past its window is rejected as expired, so the guard sees the right
// message either way.
func VerifyOTP(candidate string, stored *string, expiresAt *time.Time, now time.Time) error {
	if stored == nil || *stored == "" || candidate != *stored {
		return appErrors.ErrOTPInvalid
	}
	if expiresAt == nil || !now.Before(*expiresAt) {
		return appErrors.ErrOTPExpired
	}
	return nil
}
