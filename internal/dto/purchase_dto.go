package dto

import "github.com/shopspring/decimal"

type PurchaseItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity"   validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"min=0"`
}

type CreatePurchaseRequest struct {
	SupplierID      string                `json:"supplier_id"      validate:"required,uuid"`
	ReferenceNumber string                `json:"reference_number" validate:"required,max=50"`
	Items           []PurchaseItemRequest `json:"items"            validate:"required,min=1,dive"`
	Notes           *string               `json:"notes"`
}

type ReceiveItemRequest struct {
	PurchaseItemID string `json:"purchase_item_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity"         validate:"min=0"`
}

type ReceivePurchaseRequest struct {
	Items []ReceiveItemRequest `json:"items" validate:"required,min=1,dive"`
}

type PurchaseItemResponse struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	Quantity         int             `json:"quantity"`
	ReceivedQuantity int             `json:"received_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
}

type PurchaseResponse struct {
	ID              string                 `json:"id"`
	SupplierID      string                 `json:"supplier_id"`
	ReferenceNumber string                 `json:"reference_number"`
	Status          string                 `json:"status"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	Items           []PurchaseItemResponse `json:"items"`
	CreatedAt       string                 `json:"created_at"`
}
