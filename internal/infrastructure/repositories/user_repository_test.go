package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/accountsvc/domain"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	// every pooled connection to :memory: is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&DBUser{}, &DBRefreshToken{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func newTestUser(t *testing.T, username, phone string, status domain.AccountStatus, createdAt time.Time) *domain.User {
	t.Helper()
	user, err := domain.NewUser(username, "Test User", phone, "hashed_password", createdAt)
	if err != nil {
		t.Fatalf("failed to build user: %v", err)
	}
	user.Status = status
	return user
}

func TestUserRepositoryImpl_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	user := newTestUser(t, "alice_01", "+15551234567", domain.StatusPendingVerification, now)
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	tests := []struct {
		name   string
		lookup func() (*domain.User, error)
	}{
		{name: "by id", lookup: func() (*domain.User, error) { return repo.FindByID(ctx, user.ID) }},
		{name: "by username", lookup: func() (*domain.User, error) { return repo.FindByUsername(ctx, "alice_01") }},
		{name: "by phone", lookup: func() (*domain.User, error) { return repo.FindByPhone(ctx, "+15551234567") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := tt.lookup()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if found.ID != user.ID {
				t.Errorf("expected id %s, got %s", user.ID, found.ID)
			}
			if found.Status != domain.StatusPendingVerification {
				t.Errorf("expected status %s, got %s", domain.StatusPendingVerification, found.Status)
			}
			if found.Role != domain.DefaultRole {
				t.Errorf("expected role %s, got %s", domain.DefaultRole, found.Role)
			}
			if !found.CreatedAt.Equal(now) {
				t.Errorf("expected created_at %v, got %v", now, found.CreatedAt)
			}
		})
	}

	if _, err := repo.FindByUsername(ctx, "nobody"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.FindByID(ctx, uuid.New()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryImpl_Exists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser(t, "bob_99", "+15550000001", domain.StatusActive, time.Now())
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if ok, err := repo.ExistsByUsername(ctx, "bob_99"); err != nil || !ok {
		t.Errorf("expected username to exist, got %v, %v", ok, err)
	}
	if ok, err := repo.ExistsByUsername(ctx, "carol"); err != nil || ok {
		t.Errorf("expected username to be free, got %v, %v", ok, err)
	}
	if ok, err := repo.ExistsByPhone(ctx, "+15550000001"); err != nil || !ok {
		t.Errorf("expected phone to exist, got %v, %v", ok, err)
	}
}

func TestUserRepositoryImpl_UniqueConstraints(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	now := time.Now()

	first := newTestUser(t, "alice_01", "+15551234567", domain.StatusActive, now)
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	sameUsername := newTestUser(t, "alice_01", "+15557654321", domain.StatusPendingVerification, now)
	if err := repo.Create(ctx, sameUsername); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("expected ErrUserAlreadyExists for username race, got %v", err)
	}

	samePhone := newTestUser(t, "alice_02", "+15551234567", domain.StatusPendingVerification, now)
	if err := repo.Create(ctx, samePhone); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("expected ErrUserAlreadyExists for phone race, got %v", err)
	}

	second := newTestUser(t, "bob_99", "+15550000001", domain.StatusActive, now)
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := second.ChangePhone("+15551234567", now); err != nil {
		t.Fatalf("change phone failed: %v", err)
	}
	if err := repo.Save(ctx, second); !errors.Is(err, domain.ErrPhoneAlreadyInUse) {
		t.Errorf("expected ErrPhoneAlreadyInUse, got %v", err)
	}
}

func TestUserRepositoryImpl_Save(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	user := newTestUser(t, "alice_01", "+15551234567", domain.StatusPendingVerification, created)
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	later := created.Add(time.Hour)
	if err := user.ConfirmVerification(later); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	user.ChangePassword("new_hash", later)
	if err := repo.Save(ctx, user); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	found, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.Status != domain.StatusActive || found.PasswordHash != "new_hash" {
		t.Errorf("expected saved changes, got status %s hash %s", found.Status, found.PasswordHash)
	}
	if !found.CreatedAt.Equal(created) {
		t.Errorf("created_at must be preserved, got %v", found.CreatedAt)
	}
}

func TestUserRepositoryImpl_SaveDoesNotResurrectDeletedUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	user := newTestUser(t, "alice_01", "+15551234567", domain.StatusPendingVerification, created)
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	deleted, err := repo.DeleteAllWithStatus(ctx, []uuid.UUID{user.ID}, domain.StatusPendingVerification)
	if err != nil || deleted != 1 {
		t.Fatalf("delete failed: deleted=%d err=%v", deleted, err)
	}

	if err := user.ConfirmVerification(created.Add(time.Hour)); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if err := repo.Save(ctx, user); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.FindByID(ctx, user.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("save must not re-create the row, got %v", err)
	}
}

func TestUserRepositoryImpl_AgedQueriesAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	old1 := newTestUser(t, "old_one", "+15550000001", domain.StatusPendingVerification, now.Add(-72*time.Hour))
	old2 := newTestUser(t, "old_two", "+15550000002", domain.StatusPendingVerification, now.Add(-48*time.Hour))
	fresh := newTestUser(t, "fresh", "+15550000003", domain.StatusPendingVerification, now.Add(-time.Hour))
	activeOld := newTestUser(t, "active_old", "+15550000004", domain.StatusActive, now.Add(-72*time.Hour))
	for _, u := range []*domain.User{old1, old2, fresh, activeOld} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("create %s failed: %v", u.Username, err)
		}
	}

	cutoff := now.Add(-24 * time.Hour)
	users, err := repo.FindByStatusCreatedBefore(ctx, domain.StatusPendingVerification, cutoff, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(users) != 2 || users[0].ID != old1.ID || users[1].ID != old2.ID {
		t.Fatalf("expected the two stale pending users oldest first, got %d", len(users))
	}

	limited, err := repo.FindByStatusCreatedBefore(ctx, domain.StatusPendingVerification, cutoff, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d, %v", len(limited), err)
	}

	// activeOld was passed in but no longer matches the status
	deleted, err := repo.DeleteAllWithStatus(ctx, []uuid.UUID{old1.ID, old2.ID, activeOld.ID}, domain.StatusPendingVerification)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 rows deleted, got %d", deleted)
	}
	if _, err := repo.FindByID(ctx, activeOld.ID); err != nil {
		t.Errorf("active user must survive, got %v", err)
	}

	if n, err := repo.DeleteAllWithStatus(ctx, nil, domain.StatusPendingVerification); err != nil || n != 0 {
		t.Errorf("expected empty delete to be a no-op, got %d, %v", n, err)
	}
}

func TestGormTransactor_RollsBack(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	tx := NewTransactor(db)
	ctx := context.Background()
	boom := errors.New("boom")

	user := newTestUser(t, "alice_01", "+15551234567", domain.StatusPendingVerification, time.Now())
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, user); err != nil {
			return err
		}
		// nested call joins the outer transaction
		return tx.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := repo.FindByID(ctx, user.ID); err != nil {
				t.Errorf("expected to read own write, got %v", err)
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := repo.FindByID(ctx, user.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected rollback, got %v", err)
	}
}
