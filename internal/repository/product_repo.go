package repository

import (
	"context"

	"retailpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing with an in-memory store.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Product, error)

	// LockTx loads and row-locks the given products of a business, VAT category
	// preloaded. Missing or foreign ids are simply absent from the result.
	LockTx(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, ids []uuid.UUID) ([]model.Product, error)

	// UpdateStockTx applies a relative delta to the cached counter.
	UpdateStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) error
	// SetStockTx overwrites the cached counter; only used by ledger rebuilds.
	SetStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error

	ListIDs(ctx context.Context, businessID uuid.UUID) ([]uuid.UUID, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Preload("VATCategory").
		Where("id = ? AND business_id = ?", id, businessID).
		First(&p).Error
	return &p, err
}

func (r *productRepo) LockTx(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	// Ordering by id keeps lock acquisition order stable across concurrent sales.
	err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("VATCategory").
		Where("business_id = ? AND id IN ?", businessID, ids).
		Order("id").
		Find(&products).Error
	return products, err
}

func (r *productRepo) UpdateStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) error {
	return conn(ctx, r.db, tx).Model(&model.Product{}).Where("id = ?", id).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta)).Error
}

func (r *productRepo) SetStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error {
	return conn(ctx, r.db, tx).Model(&model.Product{}).Where("id = ?", id).
		Update("stock_quantity", qty).Error
}

func (r *productRepo) ListIDs(ctx context.Context, businessID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("business_id = ?", businessID).
		Order("name ASC").
		Pluck("id", &ids).Error
	return ids, err
}
