package mocks

import (
	"context"

	"github.com/you/accountsvc/domain"
)

// MockTransactor implements domain.Transactor. The default runs fn directly.
type MockTransactor struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
	Calls               int
}

// Compile-time interface compliance verification
var _ domain.Transactor = (*MockTransactor)(nil)

// NewMockTransactor creates a new MockTransactor
func NewMockTransactor() *MockTransactor {
	return &MockTransactor{}
}

// WithTransaction runs fn
func (m *MockTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}
