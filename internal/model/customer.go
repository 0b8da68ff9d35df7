package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer carries the cached credit and loyalty balances.
// CurrentDebt is repaired from sales and payments by the sync-debt maintenance command.
type Customer struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID    uuid.UUID `gorm:"type:uuid;not null;index"`
	FirstName     string    `gorm:"not null"`
	LastName      string    `gorm:"not null"`
	Email         *string
	Phone         *string
	CreditLimit   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CurrentDebt   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	LoyaltyPoints decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (c Customer) FullName() string { return c.FirstName + " " + c.LastName }

// AvailableCredit may be negative after an override sale.
func (c Customer) AvailableCredit() decimal.Decimal { return c.CreditLimit.Sub(c.CurrentDebt) }
