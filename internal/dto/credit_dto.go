package dto

import "github.com/shopspring/decimal"

type ReceivePaymentRequest struct {
	CustomerID string          `json:"customer_id"  validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount"       validate:"gt=0"`
	// SaleID targets one invoice; the part above its remaining balance is allocated FIFO.
	SaleID      *string `json:"sale_id"      validate:"omitempty,uuid"`
	PaymentType string  `json:"payment_type" validate:"required,oneof=cash card bank_transfer mobile_payment credit_note"`
	Reference   *string `json:"reference"    validate:"omitempty,max=50"`
	Notes       *string `json:"notes"`
}

type DebtPaymentResponse struct {
	ID               string          `json:"id"`
	PaymentReference string          `json:"payment_reference"`
	SaleID           *string         `json:"sale_id"`
	Reference        *string         `json:"reference"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentType      string          `json:"payment_type"`
	CreatedAt        string          `json:"created_at"`
}

type PaymentResponse struct {
	CustomerID  string                `json:"customer_id"`
	NewDebt     decimal.Decimal       `json:"new_debt"`
	Unallocated decimal.Decimal       `json:"unallocated"`
	Payments    []DebtPaymentResponse `json:"payments"`
}

type SyncDebtResponse struct {
	CustomerID  string          `json:"customer_id"`
	CurrentDebt decimal.Decimal `json:"current_debt"`
}

// StatementInvoice is one outstanding or settled credit invoice of a customer.
type StatementInvoice struct {
	SaleID        string          `json:"sale_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	Credited      decimal.Decimal `json:"credited"`
	Remaining     decimal.Decimal `json:"remaining"`
	CreatedAt     string          `json:"created_at"`
}

type CustomerStatement struct {
	CustomerID      string             `json:"customer_id"`
	Name            string             `json:"name"`
	CreditLimit     decimal.Decimal    `json:"credit_limit"`
	CurrentDebt     decimal.Decimal    `json:"current_debt"`
	ComputedDebt    decimal.Decimal    `json:"computed_debt"`
	AvailableCredit decimal.Decimal    `json:"available_credit"`
	LoyaltyPoints   decimal.Decimal    `json:"loyalty_points"`
	Invoices        []StatementInvoice `json:"invoices"`
}
