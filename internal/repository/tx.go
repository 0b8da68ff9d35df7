package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor opens the atomic unit that every top-level core operation runs in.
// Repository methods suffixed Tx must receive the tx handed to fn.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTransactor struct{ db *gorm.DB }

func NewTransactor(db *gorm.DB) Transactor { return &gormTransactor{db: db} }

// Transaction executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil.
func (t *gormTransactor) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if t.db == nil {
		return fn(nil)
	}
	return t.db.WithContext(ctx).Transaction(fn)
}

// conn returns tx when a transaction is in progress and the base handle otherwise.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func pageBounds(page, limit, def, max int) (offset, l int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > max {
		limit = def
	}
	return (page - 1) * limit, limit
}
