package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// DefaultRole is the flat role label given to every new account
const DefaultRole = "ROLE_USER"

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)
	phonePattern    = regexp.MustCompile(`^\+[1-9][0-9]{1,14}$`)
)

// User represents an account in the system
type User struct {
	ID           uuid.UUID
	Username     string
	FullName     string
	Phone        string
	PasswordHash string
	Status       AccountStatus
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a user awaiting phone verification
func NewUser(username, fullName, phone, passwordHash string, now time.Time) (*User, error) {
	return ReconstituteUser(uuid.New(), username, fullName, phone, passwordHash, StatusPendingVerification, DefaultRole, now, now)
}

// ReconstituteUser rebuilds a user from persisted state, enforcing the same
// invariants as NewUser.
func ReconstituteUser(id uuid.UUID, username, fullName, phone, passwordHash string, status AccountStatus, role string, createdAt, updatedAt time.Time) (*User, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	if !ValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	if !ValidPhone(phone) {
		return nil, ErrInvalidPhone
	}
	if passwordHash == "" {
		return nil, ErrInvalidPasswordHash
	}
	if !status.Valid() {
		return nil, ErrInvalidAccountStatus
	}
	if role == "" {
		role = DefaultRole
	}
	return &User{
		ID:           id,
		Username:     username,
		FullName:     fullName,
		Phone:        phone,
		PasswordHash: passwordHash,
		Status:       status,
		Role:         role,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// ValidUsername reports whether s is 3-50 alphanumeric or underscore characters
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// ValidPhone reports whether s is an E.164 phone number
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ChangePassword replaces the stored password hash
func (u *User) ChangePassword(passwordHash string, now time.Time) {
	u.PasswordHash = passwordHash
	u.UpdatedAt = now
}

// ChangePhone moves the account to a new phone number
func (u *User) ChangePhone(phone string, now time.Time) error {
	if !ValidPhone(phone) {
		return ErrInvalidPhone
	}
	u.Phone = phone
	u.UpdatedAt = now
	return nil
}

// RefreshToken is the single long-lived session credential owned by a user.
// Value is only populated when the token is issued; storage keeps the hash.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	Value     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is unusable at now
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// AuthResult represents authentication outcome
type AuthResult struct {
	User             *User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SignupResult identifies a freshly created account awaiting verification
type SignupResult struct {
	UserID    uuid.UUID
	SessionID string
}

// TokenClaims represents access credential claims
type TokenClaims struct {
	UserID    uuid.UUID `json:"sub"`
	Role      string    `json:"role"`
	IssuedAt  int64     `json:"iat"`
	ExpiresAt int64     `json:"exp"`
}
