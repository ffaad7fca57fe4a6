package mocks

import (
	"context"
	"sync"

	"github.com/you/accountsvc/domain"
)

// SentSMS is one message captured by MockSMSSender
type SentSMS struct {
	To      string
	Message string
}

// MockSMSSender implements domain.SMSSender interface for testing
type MockSMSSender struct {
	SendSMSFunc func(ctx context.Context, to, message string) error

	mu   sync.Mutex
	sent []SentSMS
}

// Compile-time interface compliance verification
var _ domain.SMSSender = (*MockSMSSender)(nil)

// NewMockSMSSender creates a new MockSMSSender with default behaviors
func NewMockSMSSender() *MockSMSSender {
	return &MockSMSSender{}
}

// SendSMS records the message
func (m *MockSMSSender) SendSMS(ctx context.Context, to, message string) error {
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(ctx, to, message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentSMS{To: to, Message: message})
	return nil
}

// Sent returns the captured messages (test helper)
func (m *MockSMSSender) Sent() []SentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentSMS(nil), m.sent...)
}
