package mocks

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	IssueAccessTokenFunc    func(userID uuid.UUID, role string) (string, time.Time, error)
	ValidateAccessTokenFunc func(token string) (*domain.TokenClaims, error)
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// IssueAccessToken generates an access token for the user
func (m *MockTokenService) IssueAccessToken(userID uuid.UUID, role string) (string, time.Time, error) {
	if m.IssueAccessTokenFunc != nil {
		return m.IssueAccessTokenFunc(userID, role)
	}
	// Default behavior: access_<id>_<role>, valid for 15 minutes
	return "access_" + userID.String() + "_" + role, time.Now().Add(15 * time.Minute), nil
}

// ValidateAccessToken validates an access token and returns claims
func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	// Default behavior: accept tokens produced by the default IssueAccessToken
	parts := strings.SplitN(strings.TrimPrefix(token, "access_"), "_", 2)
	if !strings.HasPrefix(token, "access_") || len(parts) != 2 {
		return nil, domain.ErrTokenInvalid
	}
	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return nil, domain.ErrTokenMalformed
	}
	now := time.Now()
	return &domain.TokenClaims{
		UserID:    userID,
		Role:      parts[1],
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(15 * time.Minute).Unix(),
	}, nil
}
