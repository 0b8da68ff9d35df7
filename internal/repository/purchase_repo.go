package repository

import (
	"context"

	"retailpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository interface {
	CreateSupplier(ctx context.Context, s *model.Supplier) error
	FindSupplier(ctx context.Context, businessID, id uuid.UUID) (*model.Supplier, error)

	CreateTx(ctx context.Context, tx *gorm.DB, p *model.Purchase) error
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Purchase, error)
	LockTx(ctx context.Context, tx *gorm.DB, businessID, id uuid.UUID) (*model.Purchase, error)
	UpdateReceivedTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, received int) error
	UpdateStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
}

type purchaseRepo struct{ db *gorm.DB }

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository { return &purchaseRepo{db: db} }

func (r *purchaseRepo) CreateSupplier(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *purchaseRepo) FindSupplier(ctx context.Context, businessID, id uuid.UUID) (*model.Supplier, error) {
	var s model.Supplier
	err := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&s).Error
	return &s, err
}

func (r *purchaseRepo) CreateTx(ctx context.Context, tx *gorm.DB, p *model.Purchase) error {
	return conn(ctx, r.db, tx).Create(p).Error
}

func (r *purchaseRepo) FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Purchase, error) {
	var p model.Purchase
	err := r.db.WithContext(ctx).Preload("Items").
		Where("id = ? AND business_id = ?", id, businessID).
		First(&p).Error
	return &p, err
}

func (r *purchaseRepo) LockTx(ctx context.Context, tx *gorm.DB, businessID, id uuid.UUID) (*model.Purchase, error) {
	var p model.Purchase
	err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("id = ? AND business_id = ?", id, businessID).
		First(&p).Error
	return &p, err
}

func (r *purchaseRepo) UpdateReceivedTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, received int) error {
	return conn(ctx, r.db, tx).Model(&model.PurchaseItem{}).Where("id = ?", itemID).
		Update("received_quantity", received).Error
}

func (r *purchaseRepo) UpdateStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	return conn(ctx, r.db, tx).Model(&model.Purchase{}).Where("id = ?", id).Update("status", status).Error
}
