package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/you/accountsvc/domain"
)

// RefreshTokenRepositoryImpl implements domain.RefreshTokenRepository using GORM
type RefreshTokenRepositoryImpl struct {
	db *gorm.DB
}

// DBRefreshToken is the persisted refresh token. Only the hash of the token
// value is stored.
type DBRefreshToken struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"uniqueIndex;size:36;not null"`
	TokenHash string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (DBRefreshToken) TableName() string {
	return "refresh_tokens"
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db *gorm.DB) domain.RefreshTokenRepository {
	return &RefreshTokenRepositoryImpl{db: db}
}

// Save implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) Save(ctx context.Context, token *domain.RefreshToken) error {
	err := conn(ctx, r.db).Create(&DBRefreshToken{
		ID:        token.ID.String(),
		UserID:    token.UserID.String(),
		TokenHash: token.TokenHash,
		ExpiresAt: token.ExpiresAt.UTC(),
		CreatedAt: token.CreatedAt.UTC(),
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrRefreshTokenConflict
	}
	return err
}

// FindByTokenHash implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	return r.findOne(ctx, "token_hash = ?", tokenHash)
}

// FindByUserID implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error) {
	return r.findOne(ctx, "user_id = ?", userID.String())
}

// Delete implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Where("id = ?", id.String()).Delete(&DBRefreshToken{}).Error
}

// DeleteByUserID implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return conn(ctx, r.db).Where("user_id = ?", userID.String()).Delete(&DBRefreshToken{}).Error
}

// DeleteOrphaned implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) DeleteOrphaned(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := conn(ctx, r.db)
	owners := db.Session(&gorm.Session{NewDB: true}).Model(&DBUser{}).Select("id")
	res := db.
		Where("user_id IN ?", idStrings(ids)).
		Where("user_id NOT IN (?)", owners).
		Delete(&DBRefreshToken{})
	return res.RowsAffected, res.Error
}

func (r *RefreshTokenRepositoryImpl) findOne(ctx context.Context, query string, arg any) (*domain.RefreshToken, error) {
	var row DBRefreshToken
	err := conn(ctx, r.db).Where(query, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, err
	}

	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh token row %q: %w", row.ID, err)
	}
	userID, err := uuid.Parse(row.UserID)
	if err != nil {
		return nil, fmt.Errorf("refresh token row %s owner %q: %w", row.ID, row.UserID, err)
	}
	return &domain.RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: row.TokenHash,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}, nil
}
