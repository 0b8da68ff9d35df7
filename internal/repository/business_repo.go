package repository

import (
	"context"

	"retailpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BusinessRepository interface {
	Create(ctx context.Context, b *model.Business) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Business, error)
	FindVATCategory(ctx context.Context, businessID, id uuid.UUID) (*model.VATCategory, error)
}

type businessRepo struct{ db *gorm.DB }

func NewBusinessRepository(db *gorm.DB) BusinessRepository { return &businessRepo{db: db} }

func (r *businessRepo) Create(ctx context.Context, b *model.Business) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *businessRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	var b model.Business
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	return &b, err
}

func (r *businessRepo) FindVATCategory(ctx context.Context, businessID, id uuid.UUID) (*model.VATCategory, error) {
	var c model.VATCategory
	err := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&c).Error
	return &c, err
}
