package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// StockAlertPayload describes one product that fell to or below the
// business's low-stock threshold.
type StockAlertPayload struct {
	BusinessID   string `json:"business_id"`
	BusinessName string `json:"business_name"`
	To           string `json:"to"`
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	Stock        int    `json:"stock"`
	Threshold    int    `json:"threshold"`
}

// StockAlertWorker turns stock alerts into emails to the business address.
type StockAlertWorker struct {
	mail *EmailWorker
}

func NewStockAlertWorker(mail *EmailWorker) *StockAlertWorker {
	return &StockAlertWorker{mail: mail}
}

func (w *StockAlertWorker) Process(_ context.Context, raw json.RawMessage) error {
	var p StockAlertPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("stock_alert_worker: invalid payload: %v: %w", err, ErrPermanent)
	}
	if p.To == "" {
		return nil
	}
	subject, body := stockAlertMessage(p)
	if err := w.mail.send(p.To, subject, body); err != nil {
		return fmt.Errorf("stock_alert_worker: %w", err)
	}
	log.Info().
		Str("business_id", p.BusinessID).
		Str("product_id", p.ProductID).
		Int("stock", p.Stock).
		Msg("low stock alert sent")
	return nil
}

func stockAlertMessage(p StockAlertPayload) (string, string) {
	subject := fmt.Sprintf("[%s] Low stock: %s", p.BusinessName, p.ProductName)
	if p.Stock <= 0 {
		subject = fmt.Sprintf("[%s] Out of stock: %s", p.BusinessName, p.ProductName)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s (%s)\n", p.ProductName, p.ProductID)
	fmt.Fprintf(&b, "Current stock: %d\n", p.Stock)
	fmt.Fprintf(&b, "Alert threshold: %d\n", p.Threshold)
	b.WriteString("\nRaise a purchase order to restock this product.\n")
	return subject, b.String()
}
