package model

import (
	"time"

	"retailpos/internal/vat"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Business is the tenant every other record is scoped to.
type Business struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	Email     *string   // recipient for low-stock alerts
	Phone     *string
	Address   *string
	Currency  string   `gorm:"type:varchar(5);not null;default:'$'"`
	Settings  Settings `gorm:"embedded;embeddedPrefix:setting_"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settings holds the per-business policy knobs consulted by the core.
type Settings struct {
	EnableVAT           bool   `gorm:"not null;default:true"`
	VATInclusivePricing bool   `gorm:"not null;default:true"`
	VATRounding         string `gorm:"type:varchar(10);not null;default:'round'"` // "round" | "floor" | "ceil"

	EnableLowStockAlerts bool `gorm:"not null;default:true"`
	LowStockThreshold    int  `gorm:"not null;default:10"`

	EnableCustomerLoyalty bool            `gorm:"not null;default:false"`
	PointsPerPurchase     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:1"`
	PointsValue           decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0.01"`

	// EnforceNonNegativeStock rejects outgoing movements that would leave stock below zero.
	EnforceNonNegativeStock bool `gorm:"not null;default:false"`
}

// DefaultSettings mirrors the column defaults.
func DefaultSettings() Settings {
	return Settings{
		EnableVAT:            true,
		VATInclusivePricing:  true,
		VATRounding:          string(vat.RoundHalfUp),
		EnableLowStockAlerts: true,
		LowStockThreshold:    10,
		PointsPerPurchase:    decimal.NewFromInt(1),
		PointsValue:          decimal.RequireFromString("0.01"),
	}
}

// VATPolicy converts the stored settings into a calculator policy.
// An unknown rounding value falls back to half-up.
func (s Settings) VATPolicy() vat.Policy {
	r, err := vat.ParseRounding(s.VATRounding)
	if err != nil {
		r = vat.RoundHalfUp
	}
	return vat.Policy{Enabled: s.EnableVAT, Inclusive: s.VATInclusivePricing, Rounding: r}
}

func (Business) TableName() string { return "businesses" }
