package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
)

// MockRefreshTokenRepository implements domain.RefreshTokenRepository for
// testing. Default behavior keeps tokens in memory with one token per user.
type MockRefreshTokenRepository struct {
	SaveFunc            func(ctx context.Context, token *domain.RefreshToken) error
	FindByTokenHashFunc func(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	FindByUserIDFunc    func(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error)
	DeleteFunc          func(ctx context.Context, id uuid.UUID) error
	DeleteByUserIDFunc  func(ctx context.Context, userID uuid.UUID) error
	DeleteOrphanedFunc  func(ctx context.Context, ids []uuid.UUID) (int64, error)

	// Users, when set, decides which owners still exist for DeleteOrphaned
	Users *MockUserRepository

	mu     sync.Mutex
	tokens map[uuid.UUID]domain.RefreshToken
}

// Compile-time interface compliance verification
var _ domain.RefreshTokenRepository = (*MockRefreshTokenRepository)(nil)

// NewMockRefreshTokenRepository creates a new MockRefreshTokenRepository
func NewMockRefreshTokenRepository() *MockRefreshTokenRepository {
	return &MockRefreshTokenRepository{tokens: make(map[uuid.UUID]domain.RefreshToken)}
}

// CountForUser returns how many tokens userID owns (test helper)
func (m *MockRefreshTokenRepository) CountForUser(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// Save stores a token
func (m *MockRefreshTokenRepository) Save(ctx context.Context, token *domain.RefreshToken) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == token.UserID {
			return domain.ErrRefreshTokenConflict
		}
	}
	stored := *token
	stored.Value = ""
	m.tokens[token.ID] = stored
	return nil
}

// FindByTokenHash finds a token by hash
func (m *MockRefreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	if m.FindByTokenHashFunc != nil {
		return m.FindByTokenHashFunc(ctx, tokenHash)
	}
	return m.find(func(t domain.RefreshToken) bool { return t.TokenHash == tokenHash })
}

// FindByUserID finds the token owned by userID
func (m *MockRefreshTokenRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error) {
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(ctx, userID)
	}
	return m.find(func(t domain.RefreshToken) bool { return t.UserID == userID })
}

// Delete removes a token by id
func (m *MockRefreshTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, id)
	return nil
}

// DeleteByUserID removes the token owned by userID
func (m *MockRefreshTokenRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if m.DeleteByUserIDFunc != nil {
		return m.DeleteByUserIDFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, id)
		}
	}
	return nil
}

// DeleteOrphaned removes tokens of the listed users that no longer exist
func (m *MockRefreshTokenRepository) DeleteOrphaned(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if m.DeleteOrphanedFunc != nil {
		return m.DeleteOrphanedFunc(ctx, ids)
	}
	var n int64
	for _, userID := range ids {
		if m.Users != nil {
			if _, err := m.Users.FindByID(ctx, userID); err == nil {
				continue
			}
		}
		m.mu.Lock()
		for id, t := range m.tokens {
			if t.UserID == userID {
				delete(m.tokens, id)
				n++
			}
		}
		m.mu.Unlock()
	}
	return n, nil
}

func (m *MockRefreshTokenRepository) find(match func(domain.RefreshToken) bool) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if match(t) {
			found := t
			return &found, nil
		}
	}
	return nil, domain.ErrRefreshTokenNotFound
}
