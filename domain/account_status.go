package domain

import "time"

// AccountStatus is the coarse lifecycle flag gating what a user may do
type AccountStatus string

const (
	StatusPendingVerification AccountStatus = "PENDING_VERIFICATION"
	StatusActive              AccountStatus = "ACTIVE"
	StatusLocked              AccountStatus = "LOCKED"
	StatusDisabled            AccountStatus = "DISABLED"
)

// Valid reports whether s is a known status
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusPendingVerification, StatusActive, StatusLocked, StatusDisabled:
		return true
	}
	return false
}

func (s AccountStatus) String() string { return string(s) }

// EnsureAccountEnabled fails unless the account is ACTIVE
func (u *User) EnsureAccountEnabled() error {
	if u.Status != StatusActive {
		return &AccountStateError{Status: u.Status}
	}
	return nil
}

// EnsureCanRequestOtp fails for LOCKED and DISABLED accounts. Pending and
// active accounts may both legitimately ask for a code.
func (u *User) EnsureCanRequestOtp() error {
	switch u.Status {
	case StatusPendingVerification, StatusActive:
		return nil
	}
	return &AccountStateError{Status: u.Status}
}

// ConfirmVerification moves a pending account to ACTIVE
func (u *User) ConfirmVerification(now time.Time) error {
	switch u.Status {
	case StatusPendingVerification:
		u.Status = StatusActive
		u.UpdatedAt = now
		return nil
	case StatusActive:
		return ErrAccountAlreadyVerified
	}
	return &AccountStateError{Status: u.Status}
}

// Disable moves any non-disabled account to DISABLED
func (u *User) Disable(now time.Time) error {
	if u.Status == StatusDisabled {
		return ErrAccountAlreadyDisabled
	}
	u.Status = StatusDisabled
	u.UpdatedAt = now
	return nil
}
