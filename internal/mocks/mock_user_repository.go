package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
)

// MockUserRepository implements domain.UserRepository interface for testing.
// Without overrides it behaves like an in-memory table with unique username
// and phone.
type MockUserRepository struct {
	CreateFunc                    func(ctx context.Context, user *domain.User) error
	SaveFunc                      func(ctx context.Context, user *domain.User) error
	FindByIDFunc                  func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByUsernameFunc            func(ctx context.Context, username string) (*domain.User, error)
	FindByPhoneFunc               func(ctx context.Context, phone string) (*domain.User, error)
	ExistsByUsernameFunc          func(ctx context.Context, username string) (bool, error)
	ExistsByPhoneFunc             func(ctx context.Context, phone string) (bool, error)
	FindByStatusCreatedBeforeFunc func(ctx context.Context, status domain.AccountStatus, cutoff time.Time, limit int) ([]*domain.User, error)
	FindByStatusUpdatedBeforeFunc func(ctx context.Context, status domain.AccountStatus, cutoff time.Time, limit int) ([]*domain.User, error)
	DeleteAllWithStatusFunc       func(ctx context.Context, ids []uuid.UUID, status domain.AccountStatus) (int64, error)

	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

// Compile-time interface compliance verification
var _ domain.UserRepository = (*MockUserRepository)(nil)

// NewMockUserRepository creates a new MockUserRepository with default behaviors
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uuid.UUID]domain.User)}
}

// Put stores a copy of user, bypassing uniqueness checks (test helper)
func (m *MockUserRepository) Put(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
}

// Count returns the number of stored users (test helper)
func (m *MockUserRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// Create stores a new user
func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username || u.Phone == user.Phone {
			return domain.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = *user
	return nil
}

// Save updates an existing user
func (m *MockUserRepository) Save(ctx context.Context, user *domain.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for id, u := range m.users {
		if id != user.ID && u.Phone == user.Phone {
			return domain.ErrPhoneAlreadyInUse
		}
	}
	m.users[user.ID] = *user
	return nil
}

// FindByID finds a user by ID
func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return m.find(func(u domain.User) bool { return u.ID == id })
}

// FindByUsername finds a user by username
func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, username)
	}
	return m.find(func(u domain.User) bool { return u.Username == username })
}

// FindByPhone finds a user by phone number
func (m *MockUserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if m.FindByPhoneFunc != nil {
		return m.FindByPhoneFunc(ctx, phone)
	}
	return m.find(func(u domain.User) bool { return u.Phone == phone })
}

// ExistsByUsername reports whether username is taken
func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.ExistsByUsernameFunc != nil {
		return m.ExistsByUsernameFunc(ctx, username)
	}
	_, err := m.FindByUsername(ctx, username)
	return err == nil, nil
}

// ExistsByPhone reports whether phone is taken
func (m *MockUserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	if m.ExistsByPhoneFunc != nil {
		return m.ExistsByPhoneFunc(ctx, phone)
	}
	_, err := m.FindByPhone(ctx, phone)
	return err == nil, nil
}

// FindByStatusCreatedBefore returns aged users by creation time
func (m *MockUserRepository) FindByStatusCreatedBefore(ctx context.Context, status domain.AccountStatus, cutoff time.Time, limit int) ([]*domain.User, error) {
	if m.FindByStatusCreatedBeforeFunc != nil {
		return m.FindByStatusCreatedBeforeFunc(ctx, status, cutoff, limit)
	}
	return m.aged(status, limit, func(u domain.User) time.Time { return u.CreatedAt }, cutoff), nil
}

// FindByStatusUpdatedBefore returns aged users by last update
func (m *MockUserRepository) FindByStatusUpdatedBefore(ctx context.Context, status domain.AccountStatus, cutoff time.Time, limit int) ([]*domain.User, error) {
	if m.FindByStatusUpdatedBeforeFunc != nil {
		return m.FindByStatusUpdatedBeforeFunc(ctx, status, cutoff, limit)
	}
	return m.aged(status, limit, func(u domain.User) time.Time { return u.UpdatedAt }, cutoff), nil
}

// DeleteAllWithStatus deletes the listed users that still have status
func (m *MockUserRepository) DeleteAllWithStatus(ctx context.Context, ids []uuid.UUID, status domain.AccountStatus) (int64, error) {
	if m.DeleteAllWithStatusFunc != nil {
		return m.DeleteAllWithStatusFunc(ctx, ids, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if u, ok := m.users[id]; ok && u.Status == status {
			delete(m.users, id)
			n++
		}
	}
	return n, nil
}

func (m *MockUserRepository) find(match func(domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) aged(status domain.AccountStatus, limit int, at func(domain.User) time.Time, cutoff time.Time) []*domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, u := range m.users {
		if u.Status == status && at(u).Before(cutoff) {
			found := u
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return at(*out[i]).Before(at(*out[j])) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
