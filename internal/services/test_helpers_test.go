package services

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/metrics"
	"github.com/you/accountsvc/internal/mocks"
)

var smsCodePattern = regexp.MustCompile(`\b(\d{6})\b`)

// authHarness wires the real OTP, refresh token and notifier services over
// in-memory stores so flows can be driven end to end.
type authHarness struct {
	svc       domain.AuthService
	users     *mocks.MockUserRepository
	tokens    *mocks.MockRefreshTokenRepository
	otpStore  *mocks.MockOtpStore
	sessions  *mocks.MockOtpSessionStore
	pending   *mocks.MockPendingPhoneStore
	resets    *mocks.MockPasswordResetStore
	sms       *mocks.MockSMSSender
	limiter   *mocks.MockRateLimiter
	audit     *mocks.MockAuditLogger
	clock     *mocks.MockClock
	tx        *mocks.MockTransactor
	passwords *mocks.MockPasswordService
	metrics   *metrics.Metrics
}

var testClient = domain.ClientContext{IdentityKey: "10.0.0.1", IPAddress: "10.0.0.1", UserAgent: "go-test"}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()

	h := &authHarness{
		users:     mocks.NewMockUserRepository(),
		tokens:    mocks.NewMockRefreshTokenRepository(),
		otpStore:  mocks.NewMockOtpStore(),
		sessions:  mocks.NewMockOtpSessionStore(),
		pending:   mocks.NewMockPendingPhoneStore(),
		resets:    mocks.NewMockPasswordResetStore(),
		sms:       mocks.NewMockSMSSender(),
		limiter:   mocks.NewMockRateLimiter(),
		audit:     mocks.NewMockAuditLogger(),
		clock:     mocks.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		tx:        mocks.NewMockTransactor(),
		passwords: mocks.NewMockPasswordService(),
		metrics:   metrics.NewMetrics(prometheus.NewRegistry()),
	}
	h.tokens.Users = h.users

	otpSvc := NewOTPService(h.otpStore, OTPConfig{TTL: 5 * time.Minute})
	refreshSvc := NewRefreshTokenService(h.tokens, h.tx, h.clock, RefreshTokenConfig{TTL: 7 * 24 * time.Hour}, h.metrics)

	h.svc = NewAuthService(AuthDeps{
		Users:         h.users,
		Tx:            h.tx,
		Passwords:     h.passwords,
		Tokens:        mocks.NewMockTokenService(),
		OTP:           otpSvc,
		RefreshTokens: refreshSvc,
		Sessions:      h.sessions,
		PendingPhones: h.pending,
		ResetTokens:   h.resets,
		Notifier:      NewSMSVerificationNotifier(otpSvc, h.sms, 5*time.Minute),
		Limiter:       h.limiter,
		Audit:         h.audit,
		Clock:         h.clock,
		Logger:        zap.NewNop(),
		Metrics:       h.metrics,
	}, AuthConfig{
		OtpSessionTTL:    15 * time.Minute,
		PendingPhoneTTL:  5 * time.Minute,
		PasswordResetTTL: 10 * time.Minute,
	})
	return h
}

// lastCode returns the code in the most recent SMS to phone
func (h *authHarness) lastCode(t *testing.T, phone string) string {
	t.Helper()
	sent := h.sms.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].To != phone {
			continue
		}
		m := smsCodePattern.FindStringSubmatch(sent[i].Message)
		if m == nil {
			t.Fatalf("no code in message %q", sent[i].Message)
		}
		return m[1]
	}
	t.Fatalf("no sms sent to %s", phone)
	return ""
}

// seedUser stores a user with password "Secr3t!1" in status
func (h *authHarness) seedUser(t *testing.T, username, phone string, status domain.AccountStatus) *domain.User {
	t.Helper()
	hash, _ := h.passwords.Hash("Secr3t!1")
	user, err := domain.NewUser(username, "Test User", phone, hash, h.clock.Now())
	if err != nil {
		t.Fatalf("failed to build user: %v", err)
	}
	user.Status = status
	h.users.Put(user)
	return user
}

// createValidUser creates a valid active user entity for testing
func createValidUser(t *testing.T) *domain.User {
	t.Helper()

	now := time.Now()
	return &domain.User{
		ID:           uuid.New(),
		Username:     "alice_01",
		FullName:     "Alice",
		Phone:        "+15551234567",
		PasswordHash: "hashed_Secr3t!1",
		Status:       domain.StatusActive,
		Role:         domain.DefaultRole,
		CreatedAt:    now.Add(-24 * time.Hour),
		UpdatedAt:    now.Add(-1 * time.Hour),
	}
}
