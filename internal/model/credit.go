package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtPayment is money received against a customer's debt.
// SaleID nil marks an unallocated payment.
type DebtPayment struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleID           *uuid.UUID      `gorm:"type:uuid;index"`
	PaymentReference string          `gorm:"type:varchar(50);uniqueIndex;not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentType      string          `gorm:"type:varchar(20);not null;default:'cash'"`
	Reference        *string         `gorm:"type:varchar(50)"` // receipt or transfer reference supplied by the caller
	Notes            *string
	CreatedBy        uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt        time.Time
}

const (
	CreditRefund     = "refund"
	CreditReturn     = "return"
	CreditAdjustment = "adjustment"
	CreditDiscount   = "discount"
)

// CreditNote documents value returned to a customer by a reversal.
// AppliedAmount is the part that reduced the customer's debt.
type CreditNote struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID       *uuid.UUID      `gorm:"type:uuid;index"`
	OriginalSaleID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	CreditNoteNumber string          `gorm:"type:varchar(50);uniqueIndex;not null"`
	CreditType       string          `gorm:"type:varchar(20);not null;default:'refund'"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null"` // net of VAT
	VATAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AppliedAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	IsApplied        bool            `gorm:"not null;default:false"`
	Reason           string          `gorm:"not null"`
	CreatedBy        uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt        time.Time
}
