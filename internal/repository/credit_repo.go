package repository

import (
	"context"

	"retailpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditRepository stores debt payments and credit notes. Both are append-only.
type CreditRepository interface {
	CreatePaymentTx(ctx context.Context, tx *gorm.DB, p *model.DebtPayment) error
	CreateCreditNoteTx(ctx context.Context, tx *gorm.DB, n *model.CreditNote) error

	// PaidTx sums debt payments per sale.
	PaidTx(ctx context.Context, tx *gorm.DB, saleIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	// CreditedTx sums the debt-reducing part of credit notes per sale.
	CreditedTx(ctx context.Context, tx *gorm.DB, saleIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	// RefundedTotalTx sums the total of every credit note issued against a sale.
	RefundedTotalTx(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (decimal.Decimal, error)

	ListPayments(ctx context.Context, businessID, customerID uuid.UUID) ([]model.DebtPayment, error)
}

type creditRepo struct{ db *gorm.DB }

func NewCreditRepository(db *gorm.DB) CreditRepository { return &creditRepo{db: db} }

func (r *creditRepo) CreatePaymentTx(ctx context.Context, tx *gorm.DB, p *model.DebtPayment) error {
	return conn(ctx, r.db, tx).Create(p).Error
}

func (r *creditRepo) CreateCreditNoteTx(ctx context.Context, tx *gorm.DB, n *model.CreditNote) error {
	return conn(ctx, r.db, tx).Create(n).Error
}

type saleSum struct {
	SaleID uuid.UUID
	Total  decimal.Decimal
}

func (r *creditRepo) PaidTx(ctx context.Context, tx *gorm.DB, saleIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	if len(saleIDs) == 0 {
		return map[uuid.UUID]decimal.Decimal{}, nil
	}
	var rows []saleSum
	err := conn(ctx, r.db, tx).Model(&model.DebtPayment{}).
		Select("sale_id, COALESCE(SUM(amount), 0) AS total").
		Where("sale_id IN ?", saleIDs).
		Group("sale_id").
		Scan(&rows).Error
	return sums(rows), err
}

func (r *creditRepo) CreditedTx(ctx context.Context, tx *gorm.DB, saleIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	if len(saleIDs) == 0 {
		return map[uuid.UUID]decimal.Decimal{}, nil
	}
	var rows []saleSum
	err := conn(ctx, r.db, tx).Model(&model.CreditNote{}).
		Select("original_sale_id AS sale_id, COALESCE(SUM(applied_amount), 0) AS total").
		Where("original_sale_id IN ? AND is_applied = true", saleIDs).
		Group("original_sale_id").
		Scan(&rows).Error
	return sums(rows), err
}

func (r *creditRepo) RefundedTotalTx(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := conn(ctx, r.db, tx).Model(&model.CreditNote{}).
		Where("original_sale_id = ?", saleID).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&total).Error
	return total, err
}

func sums(rows []saleSum) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.SaleID] = row.Total
	}
	return out
}

func (r *creditRepo) ListPayments(ctx context.Context, businessID, customerID uuid.UUID) ([]model.DebtPayment, error) {
	var payments []model.DebtPayment
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND customer_id = ?", businessID, customerID).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}
