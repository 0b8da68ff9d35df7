package repository

import (
	"context"

	"retailpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementFilter defines filters for listing inventory movements.
type MovementFilter struct {
	ProductID *uuid.UUID
	Type      string
	Page      int
	Limit     int
}

// MovementRepository only ever appends. There is no update or delete.
type MovementRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, m *model.InventoryMovement) error
	SumByProductTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error)
	// ReturnedTx sums return movements per sale item for the given items.
	ReturnedTx(ctx context.Context, tx *gorm.DB, saleItemIDs []uuid.UUID) (map[uuid.UUID]int, error)
	List(ctx context.Context, businessID uuid.UUID, filter MovementFilter) ([]model.InventoryMovement, int64, error)
}

type movementRepo struct{ db *gorm.DB }

func NewMovementRepository(db *gorm.DB) MovementRepository { return &movementRepo{db: db} }

func (r *movementRepo) CreateTx(ctx context.Context, tx *gorm.DB, m *model.InventoryMovement) error {
	return conn(ctx, r.db, tx).Create(m).Error
}

func (r *movementRepo) SumByProductTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error) {
	var sum int
	err := conn(ctx, r.db, tx).Model(&model.InventoryMovement{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *movementRepo) ReturnedTx(ctx context.Context, tx *gorm.DB, saleItemIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(saleItemIDs))
	if len(saleItemIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		SaleItemID uuid.UUID
		Qty        int
	}
	err := conn(ctx, r.db, tx).Model(&model.InventoryMovement{}).
		Select("sale_item_id, COALESCE(SUM(quantity), 0) AS qty").
		Where("sale_item_id IN ? AND transaction_type = ?", saleItemIDs, model.MoveReturn).
		Group("sale_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SaleItemID] = row.Qty
	}
	return out, nil
}

func (r *movementRepo) List(ctx context.Context, businessID uuid.UUID, filter MovementFilter) ([]model.InventoryMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryMovement{}).
		Where("business_id = ?", businessID)
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != "" {
		q = q.Where("transaction_type = ?", filter.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := pageBounds(filter.Page, filter.Limit, 100, 500)

	var movements []model.InventoryMovement
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movements).Error
	return movements, total, err
}
