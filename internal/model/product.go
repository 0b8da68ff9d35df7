package model

import (
	"time"

	"retailpos/internal/vat"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VATCategory is a tax classification applied per product.
// Type: "standard" | "zero" | "exempt" | "reduced"
type VATCategory struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_vat_categories_business_code"`
	Code        string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_vat_categories_business_code"`
	Name        string          `gorm:"not null"`
	Type        string          `gorm:"type:varchar(20);not null;default:'standard'"`
	Rate        decimal.Decimal `gorm:"type:decimal(5,2);not null;default:16"`
	Description *string
	IsActive    bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (VATCategory) TableName() string { return "vat_categories" }

// Calc returns the calculator view of the category. Safe on a nil receiver.
func (c *VATCategory) Calc() *vat.Category {
	if c == nil {
		return nil
	}
	return &vat.Category{Code: c.Code, Name: c.Name, Type: vat.Type(c.Type), Rate: c.Rate}
}

// Product is a sellable item. StockQuantity is a cache of the signed sum of
// the product's inventory movements and is only written by the ledger.
type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_products_business_barcode"`
	Name          string    `gorm:"index;not null"`
	Description   *string
	SKU           *string         `gorm:"column:sku"`
	Barcode       *string         `gorm:"uniqueIndex:idx_products_business_barcode"`
	VATCategoryID *uuid.UUID      `gorm:"type:uuid;column:vat_category_id"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	StockQuantity int             `gorm:"not null;default:0"`
	Unit          string          `gorm:"type:varchar(10);not null;default:'pcs'"`
	IsActive      bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	VATCategory *VATCategory `gorm:"foreignKey:VATCategoryID"`
}
