package dto

import (
	"retailpos/internal/vat"

	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// SaleFilter is bound from the query string of GET /v1/sales.
type SaleFilter struct {
	Status     string `form:"status"`      // completed | partially_refunded | refunded | cancelled | empty = all
	CustomerID string `form:"customer_id"` // optional
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SaleItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"   validate:"required,min=1"`
	// UnitPrice overrides the catalog price for this line; nil uses Product.UnitPrice.
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type ProcessSaleRequest struct {
	CustomerID        *string           `json:"customer_id"         validate:"omitempty,uuid"`
	Items             []SaleItemRequest `json:"items"               validate:"required,min=1,dive"`
	PaymentMethod     string            `json:"payment_method"      validate:"required,oneof=cash card bank_transfer mobile_payment loyalty_points credit mixed"`
	PaymentReference  *string           `json:"payment_reference"   validate:"omitempty,max=100"`
	DiscountAmount    decimal.Decimal   `json:"discount_amount"     validate:"min=0"`
	LoyaltyPointsUsed decimal.Decimal   `json:"loyalty_points_used" validate:"min=0"`
	// CreditOverride lets a credit sale exceed the customer's limit after the cashier confirmed it.
	CreditOverride bool    `json:"credit_override_confirmed"`
	Notes          *string `json:"notes"`
}

type VoidSaleRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

type RefundItemRequest struct {
	SaleItemID string `json:"sale_item_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity"     validate:"min=0"`
}

type RefundRequest struct {
	Kind   string              `json:"kind"   validate:"required,oneof=full partial"`
	Items  []RefundItemRequest `json:"items"  validate:"omitempty,dive"`
	Reason string              `json:"reason" validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleItemResponse struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Quantity         int             `json:"quantity"`
	ReturnedQuantity int             `json:"returned_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	VATAmount        decimal.Decimal `json:"vat_amount"`
	GrossUnitPrice   decimal.Decimal `json:"gross_unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
}

type SaleResponse struct {
	ID                  string             `json:"id"`
	InvoiceNumber       string             `json:"invoice_number"`
	Status              string             `json:"status"`
	CustomerID          *string            `json:"customer_id"`
	PaymentMethod       string             `json:"payment_method"`
	Subtotal            decimal.Decimal    `json:"subtotal"`
	TaxAmount           decimal.Decimal    `json:"tax_amount"`
	DiscountAmount      decimal.Decimal    `json:"discount_amount"`
	TotalAmount         decimal.Decimal    `json:"total_amount"`
	LoyaltyPointsEarned decimal.Decimal    `json:"loyalty_points_earned"`
	LoyaltyPointsUsed   decimal.Decimal    `json:"loyalty_points_used"`
	Items               []SaleItemResponse `json:"items"`
	VATBreakdown        []vat.Entry        `json:"vat_breakdown"`
	// CustomerDebt is the customer's debt after the operation, when a customer is attached.
	CustomerDebt *decimal.Decimal `json:"customer_debt,omitempty"`
	CreatedAt    string           `json:"created_at"`
}

type CreditNoteResponse struct {
	ID               string          `json:"id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	CreditType       string          `json:"credit_type"`
	Amount           decimal.Decimal `json:"amount"`
	VATAmount        decimal.Decimal `json:"vat_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	AppliedAmount    decimal.Decimal `json:"applied_amount"`
	IsApplied        bool            `json:"is_applied"`
}

type RefundResponse struct {
	Sale       SaleResponse       `json:"sale"`
	CreditNote CreditNoteResponse `json:"credit_note"`
	Movements  []MovementResponse `json:"movements"`
}
