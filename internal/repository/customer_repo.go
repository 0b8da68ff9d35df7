package repository

import (
	"context"

	"retailpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	Create(ctx context.Context, c *model.Customer) error
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Customer, error)
	// LockTx row-locks the customer so debt and loyalty deltas serialize.
	LockTx(ctx context.Context, tx *gorm.DB, businessID, id uuid.UUID) (*model.Customer, error)
	UpdateBalancesTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, debt, points decimal.Decimal) error
	ListIDs(ctx context.Context, businessID uuid.UUID) ([]uuid.UUID, error)
}

type customerRepo struct{ db *gorm.DB }

func NewCustomerRepository(db *gorm.DB) CustomerRepository { return &customerRepo{db: db} }

func (r *customerRepo) Create(ctx context.Context, c *model.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *customerRepo) FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&c).Error
	return &c, err
}

func (r *customerRepo) LockTx(ctx context.Context, tx *gorm.DB, businessID, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&c).Error
	return &c, err
}

func (r *customerRepo) UpdateBalancesTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, debt, points decimal.Decimal) error {
	return conn(ctx, r.db, tx).Model(&model.Customer{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_debt":   debt,
			"loyalty_points": points,
		}).Error
}

func (r *customerRepo) ListIDs(ctx context.Context, businessID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Customer{}).
		Where("business_id = ?", businessID).
		Pluck("id", &ids).Error
	return ids, err
}
