package mocks

import (
	"context"

	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	IssueFunc    func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateFunc func(ctx context.Context, userID uuid.UUID, code string) error
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// Issue generates a new code for userID
func (m *MockOTPService) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, userID)
	}
	// Default behavior: fixed code
	return "123456", nil
}

// Validate checks code for userID
func (m *MockOTPService) Validate(ctx context.Context, userID uuid.UUID, code string) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, userID, code)
	}
	// Default behavior: accept the fixed code
	if code == "123456" {
		return nil
	}
	return domain.ErrInvalidOtp
}
