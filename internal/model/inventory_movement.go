package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MovePurchase   = "purchase"
	MoveSale       = "sale"
	MoveReturn     = "return"
	MoveAdjustment = "adjustment"
	MoveDamaged    = "damaged"
	MoveTransfer   = "transfer"
)

// InventoryMovement records one signed stock change.
// Rows are append-only: corrections are new offsetting movements.
type InventoryMovement struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null;index"`
	TransactionType string    `gorm:"type:varchar(20);not null"`
	Quantity        int       `gorm:"not null"` // positive = in, negative = out
	StockBefore     int       `gorm:"not null"`
	StockAfter      int       `gorm:"not null"`
	Reference       string    `gorm:"type:varchar(100);index"`
	// SaleItemID ties return movements to the line they reverse.
	SaleItemID *uuid.UUID `gorm:"type:uuid;index"`
	Notes      *string
	CreatedBy  *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
