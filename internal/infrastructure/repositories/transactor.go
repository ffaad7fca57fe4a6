package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/you/accountsvc/domain"
)

type txKey struct{}

// GormTransactor implements domain.Transactor. Repositories built on the same
// *gorm.DB pick the transaction up from ctx.
type GormTransactor struct {
	db *gorm.DB
}

// NewTransactor creates a new gorm backed transactor
func NewTransactor(db *gorm.DB) domain.Transactor {
	return &GormTransactor{db: db}
}

// WithTransaction runs fn in a transaction, joining one already carried by ctx
func (t *GormTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction carried by ctx, else db
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
