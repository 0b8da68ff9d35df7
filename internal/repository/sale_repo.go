package repository

import (
	"context"

	"retailpos/internal/dto"
	"retailpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceSequence is created by infra.RunMigrations.
const InvoiceSequence = "sales_invoice_seq"

type SaleRepository interface {
	// CreateTx inserts the sale and its items in one statement batch.
	CreateTx(ctx context.Context, tx *gorm.DB, s *model.Sale) error
	NextInvoiceNumberTx(ctx context.Context, tx *gorm.DB) (int64, error)
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Sale, error)
	LockTx(ctx context.Context, tx *gorm.DB, businessID, id uuid.UUID) (*model.Sale, error)
	UpdateStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error

	// CreditSalesTx returns the customer's credit sales in the given statuses,
	// oldest first. Rows are locked when tx is non-nil.
	CreditSalesTx(ctx context.Context, tx *gorm.DB, businessID, customerID uuid.UUID, statuses []string) ([]model.Sale, error)

	List(ctx context.Context, businessID uuid.UUID, filter dto.SaleFilter) ([]model.Sale, int64, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) CreateTx(ctx context.Context, tx *gorm.DB, s *model.Sale) error {
	return conn(ctx, r.db, tx).Create(s).Error
}

func (r *saleRepo) NextInvoiceNumberTx(ctx context.Context, tx *gorm.DB) (int64, error) {
	// A PostgreSQL sequence never hands out the same value twice, even across rollbacks.
	var num int64
	err := conn(ctx, r.db, tx).Raw("SELECT nextval('" + InvoiceSequence + "')").Scan(&num).Error
	return num, err
}

func (r *saleRepo) FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Preload("Items").
		Where("id = ? AND business_id = ?", id, businessID).
		First(&s).Error
	return &s, err
}

func (r *saleRepo) LockTx(ctx context.Context, tx *gorm.DB, businessID, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("id = ? AND business_id = ?", id, businessID).
		First(&s).Error
	return &s, err
}

func (r *saleRepo) UpdateStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	return conn(ctx, r.db, tx).Model(&model.Sale{}).Where("id = ?", id).Update("status", status).Error
}

func (r *saleRepo) CreditSalesTx(ctx context.Context, tx *gorm.DB, businessID, customerID uuid.UUID, statuses []string) ([]model.Sale, error) {
	q := conn(ctx, r.db, tx).
		Where("business_id = ? AND customer_id = ? AND payment_method = ?", businessID, customerID, model.PayCredit)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if tx != nil {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var sales []model.Sale
	err := q.Order("created_at ASC, invoice_number ASC").Find(&sales).Error
	return sales, err
}

func (r *saleRepo) List(ctx context.Context, businessID uuid.UUID, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Sale{}).Where("business_id = ?", businessID)
	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := pageBounds(filter.Page, filter.Limit, 50, 200)
	err := q.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&sales).Error
	return sales, total, err
}
