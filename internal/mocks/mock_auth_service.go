package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	SignupFunc                   func(ctx context.Context, client domain.ClientContext, username, fullName, phone, password string) (*domain.SignupResult, error)
	ResendCodeFunc               func(ctx context.Context, client domain.ClientContext, sessionID string) error
	VerifyAccountFunc            func(ctx context.Context, client domain.ClientContext, sessionID, code string) (*domain.AuthResult, error)
	LoginFunc                    func(ctx context.Context, client domain.ClientContext, username, password string) (*domain.AuthResult, error)
	LogoutFunc                   func(ctx context.Context, client domain.ClientContext, refreshToken string) error
	RefreshFunc                  func(ctx context.Context, client domain.ClientContext, refreshToken string) (*domain.AuthResult, error)
	ForgotPasswordFunc           func(ctx context.Context, client domain.ClientContext, phone string) (string, error)
	ValidatePasswordResetOtpFunc func(ctx context.Context, client domain.ClientContext, sessionID, code string) (string, error)
	ResetPasswordFunc            func(ctx context.Context, client domain.ClientContext, resetToken, newPassword string) error
	ChangePasswordFunc           func(ctx context.Context, client domain.ClientContext, userID uuid.UUID, currentPassword, newPassword string) error
	InitiatePhoneChangeFunc      func(ctx context.Context, client domain.ClientContext, userID uuid.UUID, newPhone string) error
	CompletePhoneChangeFunc      func(ctx context.Context, client domain.ClientContext, userID uuid.UUID, code string) error
	GetUserProfileFunc           func(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// LastClient is the client context of the most recent call
	LastClient domain.ClientContext
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

// MockAuthResult builds a successful result for user (test helper)
func MockAuthResult(user *domain.User) *domain.AuthResult {
	now := time.Now()
	return &domain.AuthResult{
		User:             user,
		AccessToken:      "access_" + user.ID.String() + "_" + user.Role,
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshToken:     "refresh_" + user.ID.String(),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func (m *MockAuthService) Signup(ctx context.Context, client domain.ClientContext, username, fullName, phone, password string) (*domain.SignupResult, error) {
	m.LastClient = client
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, client, username, fullName, phone, password)
	}
	return &domain.SignupResult{UserID: uuid.New(), SessionID: "session"}, nil
}

func (m *MockAuthService) ResendCode(ctx context.Context, client domain.ClientContext, sessionID string) error {
	m.LastClient = client
	if m.ResendCodeFunc != nil {
		return m.ResendCodeFunc(ctx, client, sessionID)
	}
	return nil
}

func (m *MockAuthService) VerifyAccount(ctx context.Context, client domain.ClientContext, sessionID, code string) (*domain.AuthResult, error) {
	m.LastClient = client
	if m.VerifyAccountFunc != nil {
		return m.VerifyAccountFunc(ctx, client, sessionID, code)
	}
	return nil, domain.ErrOtpSessionNotFound
}

func (m *MockAuthService) Login(ctx context.Context, client domain.ClientContext, username, password string) (*domain.AuthResult, error) {
	m.LastClient = client
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, client, username, password)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *MockAuthService) Logout(ctx context.Context, client domain.ClientContext, refreshToken string) error {
	m.LastClient = client
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, client, refreshToken)
	}
	return nil
}

func (m *MockAuthService) Refresh(ctx context.Context, client domain.ClientContext, refreshToken string) (*domain.AuthResult, error) {
	m.LastClient = client
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, client, refreshToken)
	}
	return nil, domain.ErrRefreshTokenNotFound
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, client domain.ClientContext, phone string) (string, error) {
	m.LastClient = client
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, client, phone)
	}
	return "session", nil
}

func (m *MockAuthService) ValidatePasswordResetOtp(ctx context.Context, client domain.ClientContext, sessionID, code string) (string, error) {
	m.LastClient = client
	if m.ValidatePasswordResetOtpFunc != nil {
		return m.ValidatePasswordResetOtpFunc(ctx, client, sessionID, code)
	}
	return "reset-token", nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, client domain.ClientContext, resetToken, newPassword string) error {
	m.LastClient = client
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, client, resetToken, newPassword)
	}
	return nil
}

func (m *MockAuthService) ChangePassword(ctx context.Context, client domain.ClientContext, userID uuid.UUID, currentPassword, newPassword string) error {
	m.LastClient = client
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, client, userID, currentPassword, newPassword)
	}
	return nil
}

func (m *MockAuthService) InitiatePhoneChange(ctx context.Context, client domain.ClientContext, userID uuid.UUID, newPhone string) error {
	m.LastClient = client
	if m.InitiatePhoneChangeFunc != nil {
		return m.InitiatePhoneChangeFunc(ctx, client, userID, newPhone)
	}
	return nil
}

func (m *MockAuthService) CompletePhoneChange(ctx context.Context, client domain.ClientContext, userID uuid.UUID, code string) error {
	m.LastClient = client
	if m.CompletePhoneChangeFunc != nil {
		return m.CompletePhoneChangeFunc(ctx, client, userID, code)
	}
	return nil
}

func (m *MockAuthService) GetUserProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.GetUserProfileFunc != nil {
		return m.GetUserProfileFunc(ctx, userID)
	}
	return nil, domain.ErrUserNotFound
}
