package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
)

// MockOtpStore implements domain.OtpStore in memory. TTLs are recorded, not enforced.
type MockOtpStore struct {
	PutFunc         func(ctx context.Context, key, code string, ttl time.Duration) error
	TakeIfMatchFunc func(ctx context.Context, key, expected string) (bool, error)
	DeleteFunc      func(ctx context.Context, key string) error

	mu    sync.Mutex
	codes map[string]string
	TTLs  map[string]time.Duration
}

var _ domain.OtpStore = (*MockOtpStore)(nil)

func NewMockOtpStore() *MockOtpStore {
	return &MockOtpStore{codes: make(map[string]string), TTLs: make(map[string]time.Duration)}
}

// Code returns the live code under key (test helper)
func (m *MockOtpStore) Code(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[key]
	return code, ok
}

func (m *MockOtpStore) Put(ctx context.Context, key, code string, ttl time.Duration) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, code, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[key] = code
	m.TTLs[key] = ttl
	return nil
}

func (m *MockOtpStore) TakeIfMatch(ctx context.Context, key, expected string) (bool, error) {
	if m.TakeIfMatchFunc != nil {
		return m.TakeIfMatchFunc(ctx, key, expected)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if code, ok := m.codes[key]; ok && code == expected {
		delete(m.codes, key)
		return true, nil
	}
	return false, nil
}

func (m *MockOtpStore) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, key)
	return nil
}

// MockOtpSessionStore implements domain.OtpSessionStore in memory
type MockOtpSessionStore struct {
	PutFunc    func(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error
	GetFunc    func(ctx context.Context, sessionID string) (uuid.UUID, error)
	DeleteFunc func(ctx context.Context, sessionID string) error

	mu       sync.Mutex
	sessions map[string]uuid.UUID
}

var _ domain.OtpSessionStore = (*MockOtpSessionStore)(nil)

func NewMockOtpSessionStore() *MockOtpSessionStore {
	return &MockOtpSessionStore{sessions: make(map[string]uuid.UUID)}
}

// Len returns the number of live sessions (test helper)
func (m *MockOtpSessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MockOtpSessionStore) Put(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, sessionID, userID, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = userID
	return nil
}

func (m *MockOtpSessionStore) Get(ctx context.Context, sessionID string) (uuid.UUID, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID], nil
}

func (m *MockOtpSessionStore) Delete(ctx context.Context, sessionID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// MockPendingPhoneStore implements domain.PendingPhoneChangeStore in memory
type MockPendingPhoneStore struct {
	PutFunc    func(ctx context.Context, userID uuid.UUID, phone string, ttl time.Duration) error
	GetFunc    func(ctx context.Context, userID uuid.UUID) (string, error)
	DeleteFunc func(ctx context.Context, userID uuid.UUID) error

	mu     sync.Mutex
	phones map[uuid.UUID]string
}

var _ domain.PendingPhoneChangeStore = (*MockPendingPhoneStore)(nil)

func NewMockPendingPhoneStore() *MockPendingPhoneStore {
	return &MockPendingPhoneStore{phones: make(map[uuid.UUID]string)}
}

func (m *MockPendingPhoneStore) Put(ctx context.Context, userID uuid.UUID, phone string, ttl time.Duration) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, userID, phone, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phones[userID] = phone
	return nil
}

func (m *MockPendingPhoneStore) Get(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phones[userID], nil
}

func (m *MockPendingPhoneStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.phones, userID)
	return nil
}

// MockPasswordResetStore implements domain.PasswordResetStore in memory
type MockPasswordResetStore struct {
	PutFunc  func(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	TakeFunc func(ctx context.Context, token string) (uuid.UUID, error)

	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

var _ domain.PasswordResetStore = (*MockPasswordResetStore)(nil)

func NewMockPasswordResetStore() *MockPasswordResetStore {
	return &MockPasswordResetStore{tokens: make(map[string]uuid.UUID)}
}

func (m *MockPasswordResetStore) Put(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, token, userID, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = userID
	return nil
}

func (m *MockPasswordResetStore) Take(ctx context.Context, token string) (uuid.UUID, error) {
	if m.TakeFunc != nil {
		return m.TakeFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	userID := m.tokens[token]
	delete(m.tokens, token)
	return userID, nil
}
