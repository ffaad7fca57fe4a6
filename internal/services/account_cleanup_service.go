package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/metrics"
)

type CleanupConfig struct {
	PendingMaxAge  time.Duration
	DisabledMaxAge time.Duration
	BatchSize      int
}

// AccountCleanupServiceImpl implements domain.AccountCleanupService
type AccountCleanupServiceImpl struct {
	users   domain.UserRepository
	tokens  domain.RefreshTokenRepository
	tx      domain.Transactor
	audit   domain.AuditLogger
	clock   domain.Clock
	log     *zap.Logger
	metrics *metrics.Metrics
	config  CleanupConfig
}

// NewAccountCleanupService creates a new account cleanup service
func NewAccountCleanupService(
	users domain.UserRepository,
	tokens domain.RefreshTokenRepository,
	tx domain.Transactor,
	audit domain.AuditLogger,
	clock domain.Clock,
	log *zap.Logger,
	m *metrics.Metrics,
	config CleanupConfig,
) domain.AccountCleanupService {
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	return &AccountCleanupServiceImpl{
		users:   users,
		tokens:  tokens,
		tx:      tx,
		audit:   audit,
		clock:   clock,
		log:     log.With(zap.String("service", "cleanup")),
		metrics: m,
		config:  config,
	}
}

// PurgeStalePending implements domain.AccountCleanupService
func (s *AccountCleanupServiceImpl) PurgeStalePending(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.config.PendingMaxAge)
	candidates, err := s.users.FindByStatusCreatedBefore(ctx, domain.StatusPendingVerification, cutoff, s.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to select stale pending accounts: %w", err)
	}
	return s.purge(ctx, domain.StatusPendingVerification, candidates)
}

// PurgeStaleDisabled implements domain.AccountCleanupService
func (s *AccountCleanupServiceImpl) PurgeStaleDisabled(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.config.DisabledMaxAge)
	candidates, err := s.users.FindByStatusUpdatedBefore(ctx, domain.StatusDisabled, cutoff, s.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to select stale disabled accounts: %w", err)
	}
	return s.purge(ctx, domain.StatusDisabled, candidates)
}

// purge deletes candidates that still have status, then their refresh tokens.
// Rows that changed status since selection are left alone.
func (s *AccountCleanupServiceImpl) purge(ctx context.Context, status domain.AccountStatus, candidates []*domain.User) (int64, error) {
	if len(candidates) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, len(candidates))
	for i, u := range candidates {
		ids[i] = u.ID
	}

	var deleted, tokens int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.users.DeleteAllWithStatus(ctx, ids, status)
		if err != nil {
			return err
		}
		tokens, err = s.tokens.DeleteOrphaned(ctx, ids)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s accounts: %w", status, err)
	}

	if deleted > 0 {
		s.log.Info("purged accounts",
			zap.String("status", status.String()),
			zap.Int64("accounts", deleted),
			zap.Int64("refresh_tokens", tokens))
		if s.metrics != nil {
			s.metrics.AccountsPurged.WithLabelValues(status.String()).Add(float64(deleted))
		}
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.AccountsPurgedEvent, uuid.Nil).
			WithMetadata("status", status.String()).
			WithMetadata("accounts", deleted).
			WithMetadata("refresh_tokens", tokens))
	}
	return deleted, nil
}
