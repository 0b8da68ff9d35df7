package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SaleCompleted         = "completed"
	SalePartiallyRefunded = "partially_refunded"
	SaleRefunded          = "refunded"
	SaleCancelled         = "cancelled"
)

const (
	PayCash          = "cash"
	PayCard          = "card"
	PayBankTransfer  = "bank_transfer"
	PayMobile        = "mobile_payment"
	PayLoyaltyPoints = "loyalty_points"
	PayCredit        = "credit"
	PayMixed         = "mixed"
)

// Sale is one committed transaction. Only Status changes after creation.
// Invariant: TotalAmount == Subtotal - DiscountAmount + TaxAmount.
type Sale struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceNumber       string          `gorm:"type:varchar(50);uniqueIndex;not null"`
	CustomerID          *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedBy           uuid.UUID       `gorm:"type:uuid;not null"`
	Subtotal            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxAmount           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DiscountAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod       string          `gorm:"type:varchar(20);not null;default:'cash'"`
	PaymentReference    *string         `gorm:"type:varchar(100)"`
	Status              string          `gorm:"type:varchar(20);not null;default:'completed';index"`
	Notes               *string
	LoyaltyPointsEarned decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	LoyaltyPointsUsed   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt           time.Time       `gorm:"index"`
	UpdatedAt           time.Time

	Items []SaleItem `gorm:"foreignKey:SaleID"`
}

func (s Sale) IsCredit() bool { return s.PaymentMethod == PayCredit }

// SaleItem freezes the price and VAT at the time of sale.
// UnitPrice is the VAT-exclusive unit price and VATAmount the per-unit VAT,
// so the price the customer paid per unit is UnitPrice + VATAmount.
type SaleItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName     string          `gorm:"not null"`
	Quantity        int             `gorm:"not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	VATAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	VATCategoryCode *string         `gorm:"type:varchar(10)"`
	VATCategoryName *string
	VATRate         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
}

// GrossUnit is the VAT-inclusive unit price.
func (i SaleItem) GrossUnit() decimal.Decimal { return i.UnitPrice.Add(i.VATAmount) }
