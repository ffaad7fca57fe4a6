package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
)

// MockRefreshTokenService implements domain.RefreshTokenService for testing
type MockRefreshTokenService struct {
	IssueFunc            func(ctx context.Context, user *domain.User) (*domain.RefreshToken, error)
	ValidateFunc         func(ctx context.Context, value string) (*domain.RefreshToken, error)
	VerifyNotExpiredFunc func(ctx context.Context, token *domain.RefreshToken) error
	RevokeFunc           func(ctx context.Context, userID uuid.UUID) error
	RevokeByValueFunc    func(ctx context.Context, value string) error
}

// Compile-time interface compliance verification
var _ domain.RefreshTokenService = (*MockRefreshTokenService)(nil)

// NewMockRefreshTokenService creates a new MockRefreshTokenService
func NewMockRefreshTokenService() *MockRefreshTokenService {
	return &MockRefreshTokenService{}
}

func (m *MockRefreshTokenService) Issue(ctx context.Context, user *domain.User) (*domain.RefreshToken, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, user)
	}
	now := time.Now()
	return &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Value:     "refresh_" + user.ID.String(),
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
	}, nil
}

func (m *MockRefreshTokenService) Validate(ctx context.Context, value string) (*domain.RefreshToken, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, value)
	}
	return nil, domain.ErrRefreshTokenNotFound
}

func (m *MockRefreshTokenService) VerifyNotExpired(ctx context.Context, token *domain.RefreshToken) error {
	if m.VerifyNotExpiredFunc != nil {
		return m.VerifyNotExpiredFunc(ctx, token)
	}
	return nil
}

func (m *MockRefreshTokenService) Revoke(ctx context.Context, userID uuid.UUID) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, userID)
	}
	return nil
}

func (m *MockRefreshTokenService) RevokeByValue(ctx context.Context, value string) error {
	if m.RevokeByValueFunc != nil {
		return m.RevokeByValueFunc(ctx, value)
	}
	return nil
}
