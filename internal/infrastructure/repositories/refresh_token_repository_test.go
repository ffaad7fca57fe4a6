package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
)

func newTestToken(userID uuid.UUID, hash string, now time.Time) *domain.RefreshToken {
	return &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
	}
}

func TestRefreshTokenRepositoryImpl_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	userID := uuid.New()

	token := newTestToken(userID, "hash-1", now)
	if err := repo.Save(ctx, token); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	found, err := repo.FindByTokenHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.ID != token.ID || found.UserID != userID || !found.ExpiresAt.Equal(token.ExpiresAt) {
		t.Errorf("unexpected token %+v", found)
	}
	if found.Value != "" {
		t.Error("raw value must never come back from storage")
	}

	if err := repo.Save(ctx, newTestToken(userID, "hash-2", now)); !errors.Is(err, domain.ErrRefreshTokenConflict) {
		t.Errorf("expected ErrRefreshTokenConflict for second token, got %v", err)
	}

	if err := repo.Delete(ctx, token.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.FindByUserID(ctx, userID); !errors.Is(err, domain.ErrRefreshTokenNotFound) {
		t.Errorf("expected ErrRefreshTokenNotFound, got %v", err)
	}

	if err := repo.Save(ctx, newTestToken(userID, "hash-3", now)); err != nil {
		t.Fatalf("save after delete failed: %v", err)
	}
	if err := repo.DeleteByUserID(ctx, userID); err != nil {
		t.Fatalf("delete by user failed: %v", err)
	}
	if _, err := repo.FindByTokenHash(ctx, "hash-3"); !errors.Is(err, domain.ErrRefreshTokenNotFound) {
		t.Errorf("expected ErrRefreshTokenNotFound, got %v", err)
	}
}

func TestRefreshTokenRepositoryImpl_DeleteOrphaned(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	tokens := NewRefreshTokenRepository(db)
	ctx := context.Background()
	now := time.Now()

	live := newTestUser(t, "live_user", "+15550000001", domain.StatusActive, now)
	if err := users.Create(ctx, live); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	goneID := uuid.New()

	for _, tok := range []*domain.RefreshToken{newTestToken(live.ID, "live", now), newTestToken(goneID, "gone", now)} {
		if err := tokens.Save(ctx, tok); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	n, err := tokens.DeleteOrphaned(ctx, []uuid.UUID{live.ID, goneID})
	if err != nil {
		t.Fatalf("delete orphaned failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one orphan removed, got %d", n)
	}
	if _, err := tokens.FindByUserID(ctx, live.ID); err != nil {
		t.Errorf("live user's token must survive, got %v", err)
	}
	if _, err := tokens.FindByUserID(ctx, goneID); !errors.Is(err, domain.ErrRefreshTokenNotFound) {
		t.Errorf("expected orphan to be gone, got %v", err)
	}
}
