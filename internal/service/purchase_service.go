package service

import (
	"context"
	"fmt"
	"time"

	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseService orders stock from suppliers and books received goods into the ledger.
type PurchaseService interface {
	CreatePurchase(ctx context.Context, businessID, actorID uuid.UUID, req dto.CreatePurchaseRequest) (*dto.PurchaseResponse, error)
	ReceivePurchase(ctx context.Context, businessID, actorID, purchaseID uuid.UUID, req dto.ReceivePurchaseRequest) (*dto.PurchaseResponse, error)
	CancelPurchase(ctx context.Context, businessID, purchaseID uuid.UUID) (*dto.PurchaseResponse, error)
	GetPurchase(ctx context.Context, businessID, purchaseID uuid.UUID) (*dto.PurchaseResponse, error)
}

type purchaseService struct {
	tx        repository.Transactor
	purchases repository.PurchaseRepository
	products  repository.ProductRepository
	inventory InventoryService
}

func NewPurchaseService(
	tx repository.Transactor,
	purchases repository.PurchaseRepository,
	products repository.ProductRepository,
	inventory InventoryService,
) PurchaseService {
	return &purchaseService{tx: tx, purchases: purchases, products: products, inventory: inventory}
}

func (s *purchaseService) CreatePurchase(ctx context.Context, businessID, actorID uuid.UUID, req dto.CreatePurchaseRequest) (*dto.PurchaseResponse, error) {
	supplierID, err := parseID("supplier_id", req.SupplierID)
	if err != nil {
		return nil, err
	}
	if req.ReferenceNumber == "" {
		return nil, invalid("reference_number", "required")
	}
	if len(req.Items) == 0 {
		return nil, invalid("items", "purchase has no items")
	}
	if _, err := s.purchases.FindSupplier(ctx, businessID, supplierID); err != nil {
		return nil, lookupErr(err, "supplier", supplierID)
	}

	p := model.Purchase{
		ID:              uuid.New(),
		BusinessID:      businessID,
		SupplierID:      supplierID,
		ReferenceNumber: req.ReferenceNumber,
		Status:          model.PurchasePending,
		Notes:           req.Notes,
		CreatedBy:       actorID,
	}
	ids := make([]uuid.UUID, 0, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		pid, err := parseID(fmt.Sprintf("items[%d].product_id", i), item.ProductID)
		if err != nil {
			return nil, err
		}
		if item.Quantity <= 0 {
			return nil, invalid(fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
		}
		if item.UnitPrice.IsNegative() {
			return nil, invalid(fmt.Sprintf("items[%d].unit_price", i), "must not be negative")
		}
		sub := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(sub)
		ids = append(ids, pid)
		p.Items = append(p.Items, model.PurchaseItem{
			ID:         uuid.New(),
			PurchaseID: p.ID,
			ProductID:  pid,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Subtotal:   sub,
		})
	}
	p.TotalAmount = total

	txErr := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		found, err := s.products.LockTx(ctx, tx, businessID, ids)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		have := make(map[uuid.UUID]bool, len(found))
		for _, f := range found {
			have[f.ID] = true
		}
		for _, id := range ids {
			if !have[id] {
				return &NotFoundError{Entity: "product", ID: id.String()}
			}
		}
		return s.purchases.CreateTx(ctx, tx, &p)
	})
	if txErr != nil {
		return nil, txErr
	}
	return purchaseToResponse(&p), nil
}

// ── ReceivePurchase ─────────────────────────────────────────────────────────
// Each received quantity is capped at what is still outstanding on its line.
// Every line with a positive quantity books one purchase movement.

func (s *purchaseService) ReceivePurchase(ctx context.Context, businessID, actorID, purchaseID uuid.UUID, req dto.ReceivePurchaseRequest) (*dto.PurchaseResponse, error) {
	want := make(map[uuid.UUID]int, len(req.Items))
	for i, item := range req.Items {
		id, err := parseID(fmt.Sprintf("items[%d].purchase_item_id", i), item.PurchaseItemID)
		if err != nil {
			return nil, err
		}
		if item.Quantity < 0 {
			return nil, invalid(fmt.Sprintf("items[%d].quantity", i), "must not be negative")
		}
		want[id] += item.Quantity
	}

	var purchase *model.Purchase
	txErr := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		p, err := s.purchases.LockTx(ctx, tx, businessID, purchaseID)
		if err != nil {
			return lookupErr(err, "purchase", purchaseID)
		}
		if p.Status != model.PurchasePending && p.Status != model.PurchasePartiallyReceived {
			return &TransitionError{Entity: "purchase " + p.ReferenceNumber, From: p.Status, Action: "receive"}
		}

		known := make(map[uuid.UUID]bool, len(p.Items))
		var productIDs []uuid.UUID
		for _, it := range p.Items {
			known[it.ID] = true
			if want[it.ID] > 0 {
				productIDs = append(productIDs, it.ProductID)
			}
		}
		for id := range want {
			if !known[id] {
				return invalid("items", "purchase item %s does not belong to purchase %s", id, p.ReferenceNumber)
			}
		}

		locked, err := s.products.LockTx(ctx, tx, businessID, productIDs)
		if err != nil {
			return fmt.Errorf("lock products: %w", err)
		}
		byID := make(map[uuid.UUID]*model.Product, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}

		actor := actorID
		booked := false
		allReceived := true
		for i := range p.Items {
			it := &p.Items[i]
			q := want[it.ID]
			if q > it.Remaining() {
				q = it.Remaining()
			}
			if q > 0 {
				prod, ok := byID[it.ProductID]
				if !ok {
					return &NotFoundError{Entity: "product", ID: it.ProductID.String()}
				}
				if _, err := s.inventory.ApplyMovementTx(ctx, tx, prod, Movement{
					Type:      model.MovePurchase,
					Quantity:  q,
					Reference: "PO:" + p.ReferenceNumber,
					ActorID:   &actor,
				}); err != nil {
					return err
				}
				it.ReceivedQuantity += q
				if err := s.purchases.UpdateReceivedTx(ctx, tx, it.ID, it.ReceivedQuantity); err != nil {
					return fmt.Errorf("update received quantity: %w", err)
				}
				booked = true
			}
			if it.Remaining() > 0 {
				allReceived = false
			}
		}
		if !booked {
			return ErrNoItemsSelected
		}

		p.Status = model.PurchasePartiallyReceived
		if allReceived {
			p.Status = model.PurchaseReceived
		}
		if err := s.purchases.UpdateStatusTx(ctx, tx, p.ID, p.Status); err != nil {
			return fmt.Errorf("update purchase status: %w", err)
		}
		purchase = p
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("business_id", businessID.String()).
		Str("purchase", purchase.ReferenceNumber).
		Str("status", purchase.Status).
		Msg("purchase received")
	return purchaseToResponse(purchase), nil
}

func (s *purchaseService) CancelPurchase(ctx context.Context, businessID, purchaseID uuid.UUID) (*dto.PurchaseResponse, error) {
	var purchase *model.Purchase
	txErr := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		p, err := s.purchases.LockTx(ctx, tx, businessID, purchaseID)
		if err != nil {
			return lookupErr(err, "purchase", purchaseID)
		}
		if p.Status != model.PurchasePending {
			return &TransitionError{Entity: "purchase " + p.ReferenceNumber, From: p.Status, Action: "cancel"}
		}
		p.Status = model.PurchaseCancelled
		purchase = p
		return s.purchases.UpdateStatusTx(ctx, tx, p.ID, p.Status)
	})
	if txErr != nil {
		return nil, txErr
	}
	return purchaseToResponse(purchase), nil
}

func (s *purchaseService) GetPurchase(ctx context.Context, businessID, purchaseID uuid.UUID) (*dto.PurchaseResponse, error) {
	p, err := s.purchases.FindByID(ctx, businessID, purchaseID)
	if err != nil {
		return nil, lookupErr(err, "purchase", purchaseID)
	}
	return purchaseToResponse(p), nil
}

func purchaseToResponse(p *model.Purchase) *dto.PurchaseResponse {
	resp := &dto.PurchaseResponse{
		ID:              p.ID.String(),
		SupplierID:      p.SupplierID.String(),
		ReferenceNumber: p.ReferenceNumber,
		Status:          p.Status,
		TotalAmount:     p.TotalAmount,
		Items:           make([]dto.PurchaseItemResponse, 0, len(p.Items)),
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
	for _, it := range p.Items {
		resp.Items = append(resp.Items, dto.PurchaseItemResponse{
			ID:               it.ID.String(),
			ProductID:        it.ProductID.String(),
			Quantity:         it.Quantity,
			ReceivedQuantity: it.ReceivedQuantity,
			UnitPrice:        it.UnitPrice,
			Subtotal:         it.Subtotal,
		})
	}
	return resp
}
