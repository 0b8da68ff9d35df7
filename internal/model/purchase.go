package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Supplier represents a vendor that purchases are ordered from.
type Supplier struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name          string    `gorm:"not null"`
	ContactPerson *string
	Email         *string
	Phone         *string
	Address       *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	PurchasePending           = "pending"
	PurchasePartiallyReceived = "partially_received"
	PurchaseReceived          = "received"
	PurchaseCancelled         = "cancelled"
)

// Purchase is an order placed with a supplier. Stock only moves on receipt.
type Purchase struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReferenceNumber string          `gorm:"type:varchar(50);not null"`
	Status          string          `gorm:"type:varchar(20);not null;default:'pending'"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Notes           *string
	CreatedBy       uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Supplier *Supplier     `gorm:"foreignKey:SupplierID"`
	Items    []PurchaseItem `gorm:"foreignKey:PurchaseID"`
}

type PurchaseItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PurchaseID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity         int             `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ReceivedQuantity int             `gorm:"not null;default:0"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// Remaining is the quantity still expected from the supplier.
func (i PurchaseItem) Remaining() int { return i.Quantity - i.ReceivedQuantity }
