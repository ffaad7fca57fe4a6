package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockRateLimiter implements domain.RateLimiter. The default allows everything.
type MockRateLimiter struct {
	TryAcquireFunc func(ctx context.Context, operation, identityKey string) bool

	mu       sync.Mutex
	Acquired []string
}

var _ domain.RateLimiter = (*MockRateLimiter)(nil)

func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{}
}

func (m *MockRateLimiter) TryAcquire(ctx context.Context, operation, identityKey string) bool {
	m.mu.Lock()
	m.Acquired = append(m.Acquired, operation)
	m.mu.Unlock()
	if m.TryAcquireFunc != nil {
		return m.TryAcquireFunc(ctx, operation, identityKey)
	}
	return true
}

// NotifyCall is one recorded verification request
type NotifyCall struct {
	User        domain.User
	TargetPhone string
}

// MockVerificationNotifier implements domain.VerificationNotifier
type MockVerificationNotifier struct {
	NotifyFunc func(ctx context.Context, user *domain.User, targetPhone string) error

	mu    sync.Mutex
	Calls []NotifyCall
}

var _ domain.VerificationNotifier = (*MockVerificationNotifier)(nil)

func NewMockVerificationNotifier() *MockVerificationNotifier {
	return &MockVerificationNotifier{}
}

func (m *MockVerificationNotifier) NotifyVerificationRequired(ctx context.Context, user *domain.User, targetPhone string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, NotifyCall{User: *user, TargetPhone: targetPhone})
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, user, targetPhone)
	}
	return nil
}

// MockAuditLogger implements domain.AuditLogger and keeps every event
type MockAuditLogger struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

var _ domain.AuditLogger = (*MockAuditLogger)(nil)

func NewMockAuditLogger() *MockAuditLogger {
	return &MockAuditLogger{}
}

func (m *MockAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
}

// EventsOfType returns the recorded events of type t (test helper)
func (m *MockAuditLogger) EventsOfType(t domain.AuditEventType) []domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEvent
	for _, e := range m.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

// MockClock implements domain.Clock with a settable time
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ domain.Clock = (*MockClock)(nil)

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockAccountCleanupService implements domain.AccountCleanupService
type MockAccountCleanupService struct {
	PurgeStalePendingFunc  func(ctx context.Context) (int64, error)
	PurgeStaleDisabledFunc func(ctx context.Context) (int64, error)
}

var _ domain.AccountCleanupService = (*MockAccountCleanupService)(nil)

func NewMockAccountCleanupService() *MockAccountCleanupService {
	return &MockAccountCleanupService{}
}

func (m *MockAccountCleanupService) PurgeStalePending(ctx context.Context) (int64, error) {
	if m.PurgeStalePendingFunc != nil {
		return m.PurgeStalePendingFunc(ctx)
	}
	return 0, nil
}

func (m *MockAccountCleanupService) PurgeStaleDisabled(ctx context.Context) (int64, error) {
	if m.PurgeStaleDisabledFunc != nil {
		return m.PurgeStaleDisabledFunc(ctx)
	}
	return 0, nil
}
