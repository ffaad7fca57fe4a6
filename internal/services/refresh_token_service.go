package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/metrics"
)

const refreshTokenBytes = 32

type RefreshTokenConfig struct {
	TTL time.Duration
}

// RefreshTokenServiceImpl implements domain.RefreshTokenService. A user owns
// at most one token; issuing always deletes before creating.
type RefreshTokenServiceImpl struct {
	repo    domain.RefreshTokenRepository
	tx      domain.Transactor
	clock   domain.Clock
	config  RefreshTokenConfig
	metrics *metrics.Metrics
}

// NewRefreshTokenService creates a new refresh token service
func NewRefreshTokenService(repo domain.RefreshTokenRepository, tx domain.Transactor, clock domain.Clock, config RefreshTokenConfig, m *metrics.Metrics) domain.RefreshTokenService {
	return &RefreshTokenServiceImpl{
		repo:    repo,
		tx:      tx,
		clock:   clock,
		config:  config,
		metrics: m,
	}
}

// Issue implements domain.RefreshTokenService. A concurrent issue for the same
// user can win the insert; that case is retried once.
func (s *RefreshTokenServiceImpl) Issue(ctx context.Context, user *domain.User) (*domain.RefreshToken, error) {
	var token *domain.RefreshToken
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		token, err = s.issueOnce(ctx, user.ID)
		if !errors.Is(err, domain.ErrRefreshTokenConflict) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RefreshTokensIssued.Inc()
	}
	return token, nil
}

func (s *RefreshTokenServiceImpl) issueOnce(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error) {
	value, err := generateOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	token := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hashToken(value),
		Value:     value,
		ExpiresAt: now.Add(s.config.TTL),
		CreatedAt: now,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		return s.repo.Save(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Validate implements domain.RefreshTokenService
func (s *RefreshTokenServiceImpl) Validate(ctx context.Context, value string) (*domain.RefreshToken, error) {
	if value == "" {
		return nil, domain.ErrRefreshTokenNotFound
	}
	return s.repo.FindByTokenHash(ctx, hashToken(value))
}

// VerifyNotExpired implements domain.RefreshTokenService. An expired token is
// deleted before the error is returned.
func (s *RefreshTokenServiceImpl) VerifyNotExpired(ctx context.Context, token *domain.RefreshToken) error {
	if !token.Expired(s.clock.Now()) {
		return nil
	}
	if err := s.repo.Delete(ctx, token.ID); err != nil {
		return fmt.Errorf("failed to delete expired refresh token: %w", err)
	}
	return domain.ErrRefreshTokenExpired
}

// Revoke implements domain.RefreshTokenService
func (s *RefreshTokenServiceImpl) Revoke(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteByUserID(ctx, userID)
}

// RevokeByValue implements domain.RefreshTokenService. Unknown values are ignored.
func (s *RefreshTokenServiceImpl) RevokeByValue(ctx context.Context, value string) error {
	token, err := s.Validate(ctx, value)
	if errors.Is(err, domain.ErrRefreshTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, token.ID)
}

// generateOpaqueToken returns 256 random bits, base64url encoded
func generateOpaqueToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
