package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Signup and verification events
	UserSignupEvent             AuditEventType = "USER_SIGNUP"
	VerificationRequestedEvent  AuditEventType = "VERIFICATION_REQUESTED"
	VerificationDeliveryFailure AuditEventType = "VERIFICATION_DELIVERY_FAILED"
	AccountVerifiedEvent        AuditEventType = "ACCOUNT_VERIFIED"

	// Session events
	UserLoginEvent    AuditEventType = "USER_LOGIN"
	UserLogoutEvent   AuditEventType = "USER_LOGOUT"
	TokenRefreshEvent AuditEventType = "TOKEN_REFRESHED"
	RateLimitedEvent  AuditEventType = "RATE_LIMITED"

	// Credential events
	PasswordResetRequestedEvent AuditEventType = "PASSWORD_RESET_REQUESTED"
	PasswordResetEvent          AuditEventType = "PASSWORD_RESET"
	PasswordChangedEvent        AuditEventType = "PASSWORD_CHANGED"
	PhoneChangeRequestedEvent   AuditEventType = "PHONE_CHANGE_REQUESTED"
	PhoneChangedEvent           AuditEventType = "PHONE_CHANGED"

	// Cleanup events
	AccountsPurgedEvent AuditEventType = "ACCOUNTS_PURGED"
)

// AuditEvent represents a business event that occurred in the system
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	UserID    uuid.UUID              `json:"user_id"`
	Username  string                 `json:"username,omitempty"`
	Phone     string                 `json:"phone,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger records audit events. Implementations must not fail the
// calling flow.
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent)
}

// ClientContext represents client information extracted from HTTP request.
// IdentityKey is what rate limiting buckets are keyed on.
type ClientContext struct {
	IdentityKey string
	IPAddress   string
	UserAgent   string
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, userID uuid.UUID) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithUsername sets the username field
func (e *AuditEvent) WithUsername(username string) *AuditEvent {
	e.Username = username
	return e
}

// WithPhone sets the phone field
func (e *AuditEvent) WithPhone(phone string) *AuditEvent {
	e.Phone = phone
	return e
}

// WithClientContext sets client context information
func (e *AuditEvent) WithClientContext(client ClientContext) *AuditEvent {
	e.IPAddress = client.IPAddress
	e.UserAgent = client.UserAgent
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}
