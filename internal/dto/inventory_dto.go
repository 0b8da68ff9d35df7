package dto

type AdjustInventoryRequest struct {
	ProductID       string  `json:"product_id"       validate:"required,uuid"`
	Quantity        int     `json:"quantity"         validate:"required,ne=0"`
	TransactionType string  `json:"transaction_type" validate:"required,oneof=purchase sale return adjustment damaged transfer"`
	Reference       string  `json:"reference"        validate:"max=100"`
	Notes           *string `json:"notes"`
}

// MovementFilter is bound from the query string of GET /v1/inventory/movements.
type MovementFilter struct {
	ProductID string `form:"product_id"`
	Type      string `form:"type"`
	Page      int    `form:"page,default=1"    validate:"min=1"`
	Limit     int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type MovementResponse struct {
	ID              string  `json:"id"`
	ProductID       string  `json:"product_id"`
	TransactionType string  `json:"transaction_type"`
	Quantity        int     `json:"quantity"`
	StockBefore     int     `json:"stock_before"`
	StockAfter      int     `json:"stock_after"`
	Reference       string  `json:"reference"`
	SaleItemID      *string `json:"sale_item_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type RebuildStockResponse struct {
	ProductID string `json:"product_id"`
	Previous  int    `json:"previous_stock"`
	Stock     int    `json:"stock_quantity"`
}
