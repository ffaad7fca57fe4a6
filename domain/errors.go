package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that need to map it onto a transport
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindConflict
	KindUnauthorized
	KindTooManyRequests
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindTooManyRequests:
		return "too_many_requests"
	}
	return "internal"
}

// Error is a classified domain failure
type Error struct {
	kind Kind
	msg  string
}

// NewError creates a classified error
func NewError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind returns the error classification
func (e *Error) Kind() Kind { return e.kind }

// Account errors
var (
	ErrUserNotFound           = NewError(KindNotFound, "user not found")
	ErrInvalidCredentials     = NewError(KindUnauthorized, "invalid credentials")
	ErrIncorrectPassword      = NewError(KindUnauthorized, "incorrect password")
	ErrUserAlreadyExists      = NewError(KindConflict, "user already exists")
	ErrAccountStateConflict   = NewError(KindConflict, "account state conflict")
	ErrAccountAlreadyVerified = NewError(KindInvalidInput, "account already verified")
	ErrAccountAlreadyDisabled = NewError(KindInvalidInput, "account already disabled")
)

// Validation errors
var (
	ErrInvalidUserID        = NewError(KindInvalidInput, "invalid user id")
	ErrInvalidUsername      = NewError(KindInvalidInput, "username must be 3-50 letters, digits or underscores")
	ErrInvalidPhone         = NewError(KindInvalidInput, "phone must be in E.164 format")
	ErrInvalidPasswordHash  = NewError(KindInvalidInput, "password hash must not be empty")
	ErrPasswordTooLong      = NewError(KindInvalidInput, "password must be at most 72 bytes")
	ErrInvalidAccountStatus = NewError(KindInvalidInput, "invalid account status")
)

// OTP errors
var (
	ErrInvalidOtp         = NewError(KindUnauthorized, "invalid or expired otp")
	ErrOtpSessionNotFound = NewError(KindNotFound, "otp session not found")
)

// Token errors
var (
	ErrRefreshTokenNotFound      = NewError(KindUnauthorized, "refresh token not found")
	ErrRefreshTokenExpired       = NewError(KindUnauthorized, "refresh token expired")
	ErrInvalidPasswordResetToken = NewError(KindUnauthorized, "invalid password reset token")
	ErrTokenInvalid              = NewError(KindUnauthorized, "invalid token")
	ErrTokenExpired              = NewError(KindUnauthorized, "token has expired")
	ErrTokenMalformed            = NewError(KindUnauthorized, "malformed token")
	ErrRefreshTokenConflict      = NewError(KindConflict, "refresh token already issued for user")
)

// Phone change errors
var (
	ErrPhoneAlreadyInUse       = NewError(KindConflict, "phone number already in use")
	ErrPhoneChangeNotInitiated = NewError(KindNotFound, "phone change not initiated")
)

// Throttling errors
var (
	ErrTooManyRequests = NewError(KindTooManyRequests, "too many requests")
)

// AccountStateError reports an operation attempted from a status that does
// not allow it.
type AccountStateError struct {
	Status AccountStatus
}

func (e *AccountStateError) Error() string {
	return fmt.Sprintf("account state conflict: %s", e.Status)
}

// Is makes errors.Is(err, ErrAccountStateConflict) hold for every status
func (e *AccountStateError) Is(target error) bool {
	return target == ErrAccountStateConflict
}

// KindOf classifies err, defaulting to KindInternal
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var stateErr *AccountStateError
	if errors.As(err, &stateErr) {
		return KindConflict
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.kind
	}
	return KindInternal
}
