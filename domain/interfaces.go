package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines user data access operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	// FindByStatusCreatedBefore and FindByStatusUpdatedBefore return at most
	// limit users, oldest first.
	FindByStatusCreatedBefore(ctx context.Context, status AccountStatus, cutoff time.Time, limit int) ([]*User, error)
	FindByStatusUpdatedBefore(ctx context.Context, status AccountStatus, cutoff time.Time, limit int) ([]*User, error)
	// DeleteAllWithStatus deletes the given users that still have status and
	// returns how many rows went away.
	DeleteAllWithStatus(ctx context.Context, ids []uuid.UUID, status AccountStatus) (int64, error)
}

// RefreshTokenRepository defines refresh token data access operations
type RefreshTokenRepository interface {
	// Save returns ErrRefreshTokenConflict when the user already owns a token
	Save(ctx context.Context, token *RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*RefreshToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	// DeleteOrphaned removes tokens owned by any of ids whose user row no longer exists
	DeleteOrphaned(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// Transactor scopes persistence writes made through ctx to one transaction
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// OtpStore keeps at most one live code per key
type OtpStore interface {
	Put(ctx context.Context, key, code string, ttl time.Duration) error
	// TakeIfMatch atomically deletes the code under key when it equals
	// expected and reports whether it did.
	TakeIfMatch(ctx context.Context, key, expected string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// OtpSessionStore maps opaque session ids to user ids
type OtpSessionStore interface {
	Put(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error
	// Get returns uuid.Nil and no error when the session does not exist
	Get(ctx context.Context, sessionID string) (uuid.UUID, error)
	Delete(ctx context.Context, sessionID string) error
}

// PendingPhoneChangeStore holds one requested phone number per user
type PendingPhoneChangeStore interface {
	Put(ctx context.Context, userID uuid.UUID, phone string, ttl time.Duration) error
	// Get returns "" and no error when nothing is pending
	Get(ctx context.Context, userID uuid.UUID) (string, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// PasswordResetStore holds single-use password reset tokens
type PasswordResetStore interface {
	Put(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	// Take returns the owning user and deletes the token; uuid.Nil when absent
	Take(ctx context.Context, token string) (uuid.UUID, error)
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// SMSSender delivers text messages
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// TokenService issues and validates access credentials
type TokenService interface {
	IssueAccessToken(userID uuid.UUID, role string) (string, time.Time, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// RateLimiter gates operations per identity key without blocking
type RateLimiter interface {
	TryAcquire(ctx context.Context, operation, identityKey string) bool
}

// VerificationNotifier issues a code for user and delivers it to targetPhone
type VerificationNotifier interface {
	NotifyVerificationRequired(ctx context.Context, user *User, targetPhone string) error
}

// OTPService defines one-time code operations
type OTPService interface {
	Issue(ctx context.Context, userID uuid.UUID) (string, error)
	Validate(ctx context.Context, userID uuid.UUID, code string) error
}

// RefreshTokenService defines refresh token lifecycle operations
type RefreshTokenService interface {
	Issue(ctx context.Context, user *User) (*RefreshToken, error)
	Validate(ctx context.Context, value string) (*RefreshToken, error)
	VerifyNotExpired(ctx context.Context, token *RefreshToken) error
	Revoke(ctx context.Context, userID uuid.UUID) error
	RevokeByValue(ctx context.Context, value string) error
}

// AuthService defines the user facing authentication flows
type AuthService interface {
	Signup(ctx context.Context, client ClientContext, username, fullName, phone, password string) (*SignupResult, error)
	ResendCode(ctx context.Context, client ClientContext, sessionID string) error
	VerifyAccount(ctx context.Context, client ClientContext, sessionID, code string) (*AuthResult, error)
	Login(ctx context.Context, client ClientContext, username, password string) (*AuthResult, error)
	Logout(ctx context.Context, client ClientContext, refreshToken string) error
	Refresh(ctx context.Context, client ClientContext, refreshToken string) (*AuthResult, error)
	ForgotPassword(ctx context.Context, client ClientContext, phone string) (string, error)
	ValidatePasswordResetOtp(ctx context.Context, client ClientContext, sessionID, code string) (string, error)
	ResetPassword(ctx context.Context, client ClientContext, resetToken, newPassword string) error
	ChangePassword(ctx context.Context, client ClientContext, userID uuid.UUID, currentPassword, newPassword string) error
	InitiatePhoneChange(ctx context.Context, client ClientContext, userID uuid.UUID, newPhone string) error
	CompletePhoneChange(ctx context.Context, client ClientContext, userID uuid.UUID, code string) error
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*User, error)
}

// AccountCleanupService removes accounts whose terminal conditions aged out
type AccountCleanupService interface {
	PurgeStalePending(ctx context.Context) (int64, error)
	PurgeStaleDisabled(ctx context.Context) (int64, error)
}

// PolicyRule grants role the action on resource
type PolicyRule struct {
	Role     string
	Resource string
	Action   string
}

// PolicyService defines route authorization for flat roles
type PolicyService interface {
	EnsurePolicies(rules []PolicyRule) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
	SavePolicy() error
}

// Clock abstracts time for deterministic tests
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
