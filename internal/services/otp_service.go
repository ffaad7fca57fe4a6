package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
)

const (
	otpMin   = 100000
	otpRange = 900000
)

// OTPServiceImpl implements domain.OTPService over a keyed store. Codes are
// six digits without a leading zero.
type OTPServiceImpl struct {
	store  domain.OtpStore
	config OTPConfig
}

type OTPConfig struct {
	TTL time.Duration
}

// NewOTPService creates a new OTP service
func NewOTPService(store domain.OtpStore, config OTPConfig) domain.OTPService {
	return &OTPServiceImpl{
		store:  store,
		config: config,
	}
}

// Issue implements domain.OTPService. Any unconsumed code for userID is replaced.
func (s *OTPServiceImpl) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	code, err := generateSecureCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP code: %w", err)
	}

	if err := s.store.Put(ctx, userID.String(), code, s.config.TTL); err != nil {
		return "", fmt.Errorf("failed to store OTP: %w", err)
	}
	return code, nil
}

// Validate implements domain.OTPService. A matching code is consumed.
func (s *OTPServiceImpl) Validate(ctx context.Context, userID uuid.UUID, code string) error {
	ok, err := s.store.TakeIfMatch(ctx, userID.String(), code)
	if err != nil {
		return fmt.Errorf("failed to validate OTP: %w", err)
	}
	if !ok {
		return domain.ErrInvalidOtp
	}
	return nil
}

// generateSecureCode draws uniformly from 100000-999999
func generateSecureCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
