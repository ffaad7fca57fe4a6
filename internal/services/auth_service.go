package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/metrics"
)

// Rate limited operation names
const (
	OpSignup              = "signup"
	OpResendCode          = "resend-code"
	OpVerifyAccount       = "verify-account"
	OpLogin               = "login"
	OpRefresh             = "refresh"
	OpForgotPassword      = "forgot-password"
	OpValidateResetOtp    = "validate-reset-otp"
	OpResetPassword       = "reset-password"
	OpChangePassword      = "change-password"
	OpInitiatePhoneChange = "initiate-phone-change"
	OpCompletePhoneChange = "complete-phone-change"
)

// AuthConfig holds the lifetimes of the short lived records the flows create
type AuthConfig struct {
	OtpSessionTTL    time.Duration
	PendingPhoneTTL  time.Duration
	PasswordResetTTL time.Duration
}

// AuthDeps are the collaborators of AuthServiceImpl
type AuthDeps struct {
	Users         domain.UserRepository
	Tx            domain.Transactor
	Passwords     domain.PasswordService
	Tokens        domain.TokenService
	OTP           domain.OTPService
	RefreshTokens domain.RefreshTokenService
	Sessions      domain.OtpSessionStore
	PendingPhones domain.PendingPhoneChangeStore
	ResetTokens   domain.PasswordResetStore
	Notifier      domain.VerificationNotifier
	Limiter       domain.RateLimiter
	Audit         domain.AuditLogger
	Clock         domain.Clock
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	userRepo      domain.UserRepository
	tx            domain.Transactor
	passwordSvc   domain.PasswordService
	tokenSvc      domain.TokenService
	otpSvc        domain.OTPService
	refreshSvc    domain.RefreshTokenService
	sessions      domain.OtpSessionStore
	pendingPhones domain.PendingPhoneChangeStore
	resetTokens   domain.PasswordResetStore
	notifier      domain.VerificationNotifier
	limiter       domain.RateLimiter
	audit         domain.AuditLogger
	clock         domain.Clock
	log           *zap.Logger
	metrics       *metrics.Metrics
	config        AuthConfig
}

// NewAuthService creates a new auth service
func NewAuthService(deps AuthDeps, config AuthConfig) domain.AuthService {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &AuthServiceImpl{
		userRepo:      deps.Users,
		tx:            deps.Tx,
		passwordSvc:   deps.Passwords,
		tokenSvc:      deps.Tokens,
		otpSvc:        deps.OTP,
		refreshSvc:    deps.RefreshTokens,
		sessions:      deps.Sessions,
		pendingPhones: deps.PendingPhones,
		resetTokens:   deps.ResetTokens,
		notifier:      deps.Notifier,
		limiter:       deps.Limiter,
		audit:         deps.Audit,
		clock:         clock,
		log:           log.With(zap.String("service", "auth")),
		metrics:       deps.Metrics,
		config:        config,
	}
}

// Signup implements domain.AuthService
func (s *AuthServiceImpl) Signup(ctx context.Context, client domain.ClientContext, username, fullName, phone, password string) (_ *domain.SignupResult, err error) {
	defer s.observe(OpSignup, &err)
	if err := s.acquire(ctx, OpSignup, client); err != nil {
		return nil, err
	}

	// fast path only, the unique indexes decide races
	if taken, err := s.userRepo.ExistsByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if taken {
		return nil, domain.ErrUserAlreadyExists
	}
	if taken, err := s.userRepo.ExistsByPhone(ctx, phone); err != nil {
		return nil, fmt.Errorf("failed to check phone: %w", err)
	} else if taken {
		return nil, domain.ErrUserAlreadyExists
	}

	hashedPassword, err := s.passwordSvc.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := domain.NewUser(username, fullName, phone, hashedPassword, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	sessionID, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserSignupEvent, user.ID).
		WithUsername(user.Username).
		WithPhone(user.Phone).
		WithClientContext(client))
	s.notify(ctx, client, user, user.Phone)

	return &domain.SignupResult{UserID: user.ID, SessionID: sessionID}, nil
}

// ResendCode implements domain.AuthService. Unknown sessions and users are
// silently ignored.
func (s *AuthServiceImpl) ResendCode(ctx context.Context, client domain.ClientContext, sessionID string) (err error) {
	defer s.observe(OpResendCode, &err)
	if err := s.acquire(ctx, OpResendCode, client); err != nil {
		return err
	}

	userID, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to resolve otp session: %w", err)
	}
	if userID == uuid.Nil {
		s.log.Debug("resend for unknown session ignored")
		return nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := user.EnsureCanRequestOtp(); err != nil {
		return err
	}

	s.notify(ctx, client, user, user.Phone)
	return nil
}

// VerifyAccount implements domain.AuthService
func (s *AuthServiceImpl) VerifyAccount(ctx context.Context, client domain.ClientContext, sessionID, code string) (_ *domain.AuthResult, err error) {
	defer s.observe(OpVerifyAccount, &err)
	if err := s.acquire(ctx, OpVerifyAccount, client); err != nil {
		return nil, err
	}

	user, err := s.userForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.otpSvc.Validate(ctx, user.ID, code); err != nil {
		return nil, err
	}

	var refresh *domain.RefreshToken
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := user.ConfirmVerification(s.clock.Now()); err != nil {
			return err
		}
		if err := s.userRepo.Save(ctx, user); err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		var err error
		refresh, err = s.refreshSvc.Issue(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	result, err := s.withAccessToken(user, refresh)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.log.Warn("failed to delete otp session", zap.Error(err))
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.AccountVerifiedEvent, user.ID).
		WithUsername(user.Username).
		WithClientContext(client))
	return result, nil
}

// Login implements domain.AuthService. A successful login replaces the
// user's previous refresh token.
func (s *AuthServiceImpl) Login(ctx context.Context, client domain.ClientContext, username, password string) (_ *domain.AuthResult, err error) {
	defer s.observe(OpLogin, &err)
	if err := s.acquire(ctx, OpLogin, client); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.auditLoginFailure(ctx, client, uuid.Nil, username, domain.ErrInvalidCredentials)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := user.EnsureAccountEnabled(); err != nil {
		s.auditLoginFailure(ctx, client, user.ID, username, err)
		return nil, err
	}

	if !s.passwordSvc.Verify(user.PasswordHash, password) {
		s.auditLoginFailure(ctx, client, user.ID, username, domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLoginEvent, user.ID).
		WithUsername(user.Username).
		WithClientContext(client))
	return result, nil
}

// Logout implements domain.AuthService. A blank token is a no-op.
func (s *AuthServiceImpl) Logout(ctx context.Context, client domain.ClientContext, refreshToken string) (err error) {
	defer s.observe("logout", &err)
	if refreshToken == "" {
		return nil
	}

	token, err := s.refreshSvc.Validate(ctx, refreshToken)
	if errors.Is(err, domain.ErrRefreshTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.refreshSvc.RevokeByValue(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLogoutEvent, token.UserID).
		WithClientContext(client))
	return nil
}

// Refresh implements domain.AuthService. The presented token is always
// replaced by a new one.
func (s *AuthServiceImpl) Refresh(ctx context.Context, client domain.ClientContext, refreshToken string) (_ *domain.AuthResult, err error) {
	defer s.observe(OpRefresh, &err)
	if err := s.acquire(ctx, OpRefresh, client); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, domain.ErrRefreshTokenNotFound
	}

	token, err := s.refreshSvc.Validate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, err
	}
	if err := user.EnsureAccountEnabled(); err != nil {
		return nil, err
	}
	if err := s.refreshSvc.VerifyNotExpired(ctx, token); err != nil {
		return nil, err
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.TokenRefreshEvent, user.ID).
		WithClientContext(client))
	return result, nil
}

// ForgotPassword implements domain.AuthService. An unknown phone gets a decoy
// session id; an account that is not enabled fails with its state error.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, client domain.ClientContext, phone string) (_ string, err error) {
	defer s.observe(OpForgotPassword, &err)
	if err := s.acquire(ctx, OpForgotPassword, client); err != nil {
		return "", err
	}

	user, err := s.userRepo.FindByPhone(ctx, phone)
	if errors.Is(err, domain.ErrUserNotFound) {
		return decoySessionID()
	}
	if err != nil {
		return "", err
	}
	if err := user.EnsureAccountEnabled(); err != nil {
		return "", err
	}

	sessionID, err := s.openSession(ctx, user.ID)
	if err != nil {
		return "", err
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.PasswordResetRequestedEvent, user.ID).
		WithClientContext(client))
	s.notify(ctx, client, user, user.Phone)
	return sessionID, nil
}

// ValidatePasswordResetOtp implements domain.AuthService and returns a single
// use reset token. A session that resolves to nothing fails like a wrong code,
// so decoy ids from ForgotPassword are indistinguishable from real ones.
func (s *AuthServiceImpl) ValidatePasswordResetOtp(ctx context.Context, client domain.ClientContext, sessionID, code string) (_ string, err error) {
	defer s.observe(OpValidateResetOtp, &err)
	if err := s.acquire(ctx, OpValidateResetOtp, client); err != nil {
		return "", err
	}

	user, err := s.userForSession(ctx, sessionID)
	if errors.Is(err, domain.ErrOtpSessionNotFound) || errors.Is(err, domain.ErrUserNotFound) {
		return "", domain.ErrInvalidOtp
	}
	if err != nil {
		return "", err
	}
	if err := user.EnsureAccountEnabled(); err != nil {
		return "", err
	}
	if err := s.otpSvc.Validate(ctx, user.ID, code); err != nil {
		return "", err
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.log.Warn("failed to delete otp session", zap.Error(err))
	}

	resetToken, err := generateOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := s.resetTokens.Put(ctx, resetToken, user.ID, s.config.PasswordResetTTL); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}
	return resetToken, nil
}

// ResetPassword implements domain.AuthService. The reset token is consumed
// by the lookup even when a later step fails.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, client domain.ClientContext, resetToken, newPassword string) (err error) {
	defer s.observe(OpResetPassword, &err)
	if err := s.acquire(ctx, OpResetPassword, client); err != nil {
		return err
	}

	userID, err := s.resetTokens.Take(ctx, resetToken)
	if err != nil {
		return fmt.Errorf("failed to resolve reset token: %w", err)
	}
	if userID == uuid.Nil {
		return domain.ErrInvalidPasswordResetToken
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	hashedPassword, err := s.passwordSvc.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.ChangePassword(hashedPassword, s.clock.Now())

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Save(ctx, user); err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		return s.refreshSvc.Revoke(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.PasswordResetEvent, user.ID).
		WithClientContext(client))
	return nil
}

// ChangePassword implements domain.AuthService
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, client domain.ClientContext, userID uuid.UUID, currentPassword, newPassword string) (err error) {
	defer s.observe(OpChangePassword, &err)
	if err := s.acquire(ctx, OpChangePassword, client); err != nil {
		return err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.passwordSvc.Verify(user.PasswordHash, currentPassword) {
		return domain.ErrIncorrectPassword
	}

	hashedPassword, err := s.passwordSvc.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.ChangePassword(hashedPassword, s.clock.Now())
	if err := s.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.PasswordChangedEvent, user.ID).
		WithClientContext(client))
	return nil
}

// InitiatePhoneChange implements domain.AuthService. The code goes to the
// new phone.
func (s *AuthServiceImpl) InitiatePhoneChange(ctx context.Context, client domain.ClientContext, userID uuid.UUID, newPhone string) (err error) {
	defer s.observe(OpInitiatePhoneChange, &err)
	if err := s.acquire(ctx, OpInitiatePhoneChange, client); err != nil {
		return err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.EnsureAccountEnabled(); err != nil {
		return err
	}
	if !domain.ValidPhone(newPhone) {
		return domain.ErrInvalidPhone
	}

	taken, err := s.userRepo.ExistsByPhone(ctx, newPhone)
	if err != nil {
		return fmt.Errorf("failed to check phone: %w", err)
	}
	if taken {
		return domain.ErrPhoneAlreadyInUse
	}

	if err := s.pendingPhones.Put(ctx, user.ID, newPhone, s.config.PendingPhoneTTL); err != nil {
		return fmt.Errorf("failed to store pending phone: %w", err)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.PhoneChangeRequestedEvent, user.ID).
		WithPhone(newPhone).
		WithClientContext(client))
	s.notify(ctx, client, user, newPhone)
	return nil
}

// CompletePhoneChange implements domain.AuthService. The code is checked
// against userID, the account that holds the pending change.
func (s *AuthServiceImpl) CompletePhoneChange(ctx context.Context, client domain.ClientContext, userID uuid.UUID, code string) (err error) {
	defer s.observe(OpCompletePhoneChange, &err)
	if err := s.acquire(ctx, OpCompletePhoneChange, client); err != nil {
		return err
	}

	newPhone, err := s.pendingPhones.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load pending phone: %w", err)
	}
	if newPhone == "" {
		return domain.ErrPhoneChangeNotInitiated
	}

	if err := s.otpSvc.Validate(ctx, userID, code); err != nil {
		return err
	}
	if err := s.pendingPhones.Delete(ctx, userID); err != nil {
		s.log.Warn("failed to delete pending phone", zap.Error(err))
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.ChangePhone(newPhone, s.clock.Now()); err != nil {
		return err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, domain.ErrPhoneAlreadyInUse) {
			return err
		}
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.PhoneChangedEvent, user.ID).
		WithPhone(newPhone).
		WithClientContext(client))
	return nil
}

// GetUserProfile implements domain.AuthService
func (s *AuthServiceImpl) GetUserProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// acquire consumes a rate limit token for op
func (s *AuthServiceImpl) acquire(ctx context.Context, op string, client domain.ClientContext) error {
	if s.limiter.TryAcquire(ctx, op, client.IdentityKey) {
		return nil
	}
	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.RateLimitedEvent, uuid.Nil).
		WithMetadata("operation", op).
		WithClientContext(client).
		WithError(domain.ErrTooManyRequests))
	return domain.ErrTooManyRequests
}

// notify sends a verification code. Failures never reach the caller.
func (s *AuthServiceImpl) notify(ctx context.Context, client domain.ClientContext, user *domain.User, targetPhone string) {
	err := s.notifier.NotifyVerificationRequired(ctx, user, targetPhone)
	if err == nil {
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.VerificationRequestedEvent, user.ID).
			WithPhone(targetPhone).
			WithClientContext(client))
		return
	}

	s.log.Warn("verification delivery failed",
		zap.String("user_id", user.ID.String()), zap.Error(err))
	if s.metrics != nil {
		s.metrics.NotificationFailures.Inc()
	}
	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.VerificationDeliveryFailure, user.ID).
		WithPhone(targetPhone).
		WithClientContext(client).
		WithError(err))
}

func (s *AuthServiceImpl) openSession(ctx context.Context, userID uuid.UUID) (string, error) {
	sessionID, err := generateOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Put(ctx, sessionID, userID, s.config.OtpSessionTTL); err != nil {
		return "", fmt.Errorf("failed to store otp session: %w", err)
	}
	return sessionID, nil
}

func (s *AuthServiceImpl) userForSession(ctx context.Context, sessionID string) (*domain.User, error) {
	userID, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve otp session: %w", err)
	}
	if userID == uuid.Nil {
		return nil, domain.ErrOtpSessionNotFound
	}
	return s.userRepo.FindByID(ctx, userID)
}

func (s *AuthServiceImpl) issueSession(ctx context.Context, user *domain.User) (*domain.AuthResult, error) {
	refresh, err := s.refreshSvc.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.withAccessToken(user, refresh)
}

func (s *AuthServiceImpl) withAccessToken(user *domain.User, refresh *domain.RefreshToken) (*domain.AuthResult, error) {
	accessToken, accessExpiresAt, err := s.tokenSvc.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &domain.AuthResult{
		User:             user,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refresh.Value,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

func (s *AuthServiceImpl) auditLoginFailure(ctx context.Context, client domain.ClientContext, userID uuid.UUID, username string, err error) {
	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLoginEvent, userID).
		WithUsername(username).
		WithClientContext(client).
		WithError(err))
}

func (s *AuthServiceImpl) observe(flow string, err *error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if *err != nil {
		outcome = domain.KindOf(*err).String()
	}
	s.metrics.FlowOutcomes.WithLabelValues(flow, outcome).Inc()
}

// decoySessionID looks like a real session id but resolves to nothing
func decoySessionID() (string, error) {
	return generateOpaqueToken()
}
