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

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBUser represents the database model for User (with GORM tags).
// Timestamps come from the domain aggregate, not from GORM.
type DBUser struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Username     string    `gorm:"uniqueIndex;size:50;not null"`
	FullName     string    `gorm:"size:255"`
	Phone        string    `gorm:"uniqueIndex;size:16;not null"`
	PasswordHash string    `gorm:"column:password;not null"`
	Status       string    `gorm:"index;size:32;not null"`
	Role         string    `gorm:"size:64"`
	CreatedAt    time.Time `gorm:"index;autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"index;autoUpdateTime:false"`
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	err := conn(ctx, r.db).Create(r.domainToDB(user)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrUserAlreadyExists
	}
	return err
}

// Save implements domain.UserRepository. It only updates; a row that has been
// deleted in the meantime yields ErrUserNotFound rather than being re-created.
// The only unique column a saved user can collide on is the phone.
func (r *UserRepositoryImpl) Save(ctx context.Context, user *domain.User) error {
	row := r.domainToDB(user)
	res := conn(ctx, r.db).Model(&DBUser{}).Where("id = ?", row.ID).Updates(map[string]any{
		"username":   row.Username,
		"full_name":  row.FullName,
		"phone":      row.Phone,
		"password":   row.PasswordHash,
		"status":     row.Status,
		"role":       row.Role,
		"updated_at": row.UpdatedAt,
	})
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return domain.ErrPhoneAlreadyInUse
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id.String())
}

// FindByUsername implements domain.UserRepository
func (r *UserRepositoryImpl) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

// FindByPhone implements domain.UserRepository
func (r *UserRepositoryImpl) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.findOne(ctx, "phone = ?", phone)
}

// ExistsByUsername implements domain.UserRepository
func (r *UserRepositoryImpl) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

// ExistsByPhone implements domain.UserRepository
func (r *UserRepositoryImpl) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, "phone = ?", phone)
}

// FindByStatusCreatedBefore implements domain.UserRepository
func (r *UserRepositoryImpl) FindByStatusCreatedBefore(ctx context.Context, status domain.AccountStatus, cutoff time.Time, limit int) ([]*domain.User, error) {
	return r.findAged(ctx, "created_at", status, cutoff, limit)
}

// FindByStatusUpdatedBefore implements domain.UserRepository
func (r *UserRepositoryImpl) FindByStatusUpdatedBefore(ctx context.Context, status domain.AccountStatus, cutoff time.Time, limit int) ([]*domain.User, error) {
	return r.findAged(ctx, "updated_at", status, cutoff, limit)
}

// DeleteAllWithStatus implements domain.UserRepository
func (r *UserRepositoryImpl) DeleteAllWithStatus(ctx context.Context, ids []uuid.UUID, status domain.AccountStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := conn(ctx, r.db).
		Where("id IN ? AND status = ?", idStrings(ids), string(status)).
		Delete(&DBUser{})
	return res.RowsAffected, res.Error
}

func (r *UserRepositoryImpl) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var dbUser DBUser
	err := conn(ctx, r.db).Where(query, arg).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser)
}

func (r *UserRepositoryImpl) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&DBUser{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepositoryImpl) findAged(ctx context.Context, column string, status domain.AccountStatus, cutoff time.Time, limit int) ([]*domain.User, error) {
	var rows []DBUser
	err := conn(ctx, r.db).
		Where("status = ? AND "+column+" < ?", string(status), cutoff.UTC()).
		Order(column + " ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(rows))
	for i := range rows {
		user, err := r.dbToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// domainToDB converts domain user to database user
func (r *UserRepositoryImpl) domainToDB(user *domain.User) *DBUser {
	return &DBUser{
		ID:           user.ID.String(),
		Username:     user.Username,
		FullName:     user.FullName,
		Phone:        user.Phone,
		PasswordHash: user.PasswordHash,
		Status:       string(user.Status),
		Role:         user.Role,
		CreatedAt:    user.CreatedAt.UTC(),
		UpdatedAt:    user.UpdatedAt.UTC(),
	}
}

// dbToDomain converts database user to domain user
func (r *UserRepositoryImpl) dbToDomain(dbUser *DBUser) (*domain.User, error) {
	id, err := uuid.Parse(dbUser.ID)
	if err != nil {
		return nil, fmt.Errorf("user row %q: %w", dbUser.ID, domain.ErrInvalidUserID)
	}
	user, err := domain.ReconstituteUser(id, dbUser.Username, dbUser.FullName, dbUser.Phone,
		dbUser.PasswordHash, domain.AccountStatus(dbUser.Status), dbUser.Role, dbUser.CreatedAt, dbUser.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("user row %s: %w", dbUser.ID, err)
	}
	return user, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
