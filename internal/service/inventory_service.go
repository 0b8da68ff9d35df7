package service

import (
	"context"
	"fmt"
	"time"

	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"
	"retailpos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Movement describes one ledger entry to append.
type Movement struct {
	Type       string
	Quantity   int
	Reference  string
	SaleItemID *uuid.UUID
	Notes      *string
	ActorID    *uuid.UUID
	// NonNegative rejects outgoing movements that would leave stock below zero.
	NonNegative bool
}

// InventoryService is the inventory ledger: the only writer of Product.StockQuantity.
type InventoryService interface {
	// ApplyMovementTx appends a movement and moves the cached counter by the same
	// delta. p must be the row locked in tx; its StockQuantity is updated in place
	// so several lines for the same product see each other.
	ApplyMovementTx(ctx context.Context, tx *gorm.DB, p *model.Product, m Movement) (*model.InventoryMovement, error)

	AdjustInventory(ctx context.Context, businessID, actorID uuid.UUID, req dto.AdjustInventoryRequest) (*dto.MovementResponse, error)
	// RebuildStock overwrites the cached counter with the signed sum of the product's movements.
	RebuildStock(ctx context.Context, businessID, productID uuid.UUID) (*dto.RebuildStockResponse, error)
	ListMovements(ctx context.Context, businessID uuid.UUID, filter dto.MovementFilter) (*dto.MovementListResponse, error)
}

type inventoryService struct {
	tx         repository.Transactor
	products   repository.ProductRepository
	movements  repository.MovementRepository
	businesses repository.BusinessRepository
	dispatcher *worker.Dispatcher
}

func NewInventoryService(
	tx repository.Transactor,
	products repository.ProductRepository,
	movements repository.MovementRepository,
	businesses repository.BusinessRepository,
	dispatcher *worker.Dispatcher,
) InventoryService {
	return &inventoryService{
		tx:         tx,
		products:   products,
		movements:  movements,
		businesses: businesses,
		dispatcher: dispatcher,
	}
}

func (s *inventoryService) ApplyMovementTx(ctx context.Context, tx *gorm.DB, p *model.Product, m Movement) (*model.InventoryMovement, error) {
	if m.Quantity == 0 {
		return nil, invalid("quantity", "must not be zero")
	}
	before := p.StockQuantity
	after := before + m.Quantity
	if m.NonNegative && m.Quantity < 0 && after < 0 {
		return nil, &StockError{ProductID: p.ID, Product: p.Name, Available: before, Requested: -m.Quantity}
	}

	mv := &model.InventoryMovement{
		ID:              uuid.New(),
		BusinessID:      p.BusinessID,
		ProductID:       p.ID,
		TransactionType: m.Type,
		Quantity:        m.Quantity,
		StockBefore:     before,
		StockAfter:      after,
		Reference:       m.Reference,
		SaleItemID:      m.SaleItemID,
		Notes:           m.Notes,
		CreatedBy:       m.ActorID,
	}
	if err := s.movements.CreateTx(ctx, tx, mv); err != nil {
		return nil, fmt.Errorf("append movement for %s: %w", p.Name, err)
	}
	if err := s.products.UpdateStockTx(ctx, tx, p.ID, m.Quantity); err != nil {
		return nil, fmt.Errorf("update stock for %s: %w", p.Name, err)
	}
	p.StockQuantity = after
	return mv, nil
}

// ── AdjustInventory ─────────────────────────────────────────────────────────

// checkSign enforces the direction implied by the movement type.
func checkSign(kind string, qty int) error {
	switch kind {
	case model.MoveSale, model.MoveDamaged:
		if qty > 0 {
			return invalid("quantity", "%s movements must be negative", kind)
		}
	case model.MovePurchase, model.MoveReturn:
		if qty < 0 {
			return invalid("quantity", "%s movements must be positive", kind)
		}
	case model.MoveAdjustment, model.MoveTransfer:
	default:
		return invalid("transaction_type", "unknown movement type %q", kind)
	}
	return nil
}

func (s *inventoryService) AdjustInventory(ctx context.Context, businessID, actorID uuid.UUID, req dto.AdjustInventoryRequest) (*dto.MovementResponse, error) {
	productID, err := parseID("product_id", req.ProductID)
	if err != nil {
		return nil, err
	}
	if req.Quantity == 0 {
		return nil, invalid("quantity", "must not be zero")
	}
	if err := checkSign(req.TransactionType, req.Quantity); err != nil {
		return nil, err
	}

	business, err := s.businesses.FindByID(ctx, businessID)
	if err != nil {
		return nil, lookupErr(err, "business", businessID)
	}

	var (
		mv      *model.InventoryMovement
		product model.Product
	)
	txErr := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		locked, err := s.products.LockTx(ctx, tx, businessID, []uuid.UUID{productID})
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}
		if len(locked) == 0 {
			return &NotFoundError{Entity: "product", ID: productID.String()}
		}
		product = locked[0]
		actor := actorID
		mv, err = s.ApplyMovementTx(ctx, tx, &product, Movement{
			Type:        req.TransactionType,
			Quantity:    req.Quantity,
			Reference:   req.Reference,
			Notes:       req.Notes,
			ActorID:     &actor,
			NonNegative: business.Settings.EnforceNonNegativeStock,
		})
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("business_id", businessID.String()).
		Str("product_id", productID.String()).
		Str("type", req.TransactionType).
		Int("quantity", req.Quantity).
		Int("stock", product.StockQuantity).
		Msg("inventory adjusted")

	notifyLowStock(ctx, s.dispatcher, business, []model.Product{product})

	resp := movementToResponse(mv)
	return &resp, nil
}

// ── RebuildStock ────────────────────────────────────────────────────────────

func (s *inventoryService) RebuildStock(ctx context.Context, businessID, productID uuid.UUID) (*dto.RebuildStockResponse, error) {
	var previous, sum int
	txErr := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		locked, err := s.products.LockTx(ctx, tx, businessID, []uuid.UUID{productID})
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}
		if len(locked) == 0 {
			return &NotFoundError{Entity: "product", ID: productID.String()}
		}
		previous = locked[0].StockQuantity
		sum, err = s.movements.SumByProductTx(ctx, tx, productID)
		if err != nil {
			return fmt.Errorf("sum movements: %w", err)
		}
		if sum == previous {
			return nil
		}
		return s.products.SetStockTx(ctx, tx, productID, sum)
	})
	if txErr != nil {
		return nil, txErr
	}
	if sum != previous {
		log.Warn().
			Str("product_id", productID.String()).
			Int("cached", previous).
			Int("ledger", sum).
			Msg("stock drift repaired")
	}
	return &dto.RebuildStockResponse{ProductID: productID.String(), Previous: previous, Stock: sum}, nil
}

// ── ListMovements ───────────────────────────────────────────────────────────

func (s *inventoryService) ListMovements(ctx context.Context, businessID uuid.UUID, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	f := repository.MovementFilter{Type: filter.Type, Page: filter.Page, Limit: filter.Limit}
	if filter.ProductID != "" {
		pid, err := parseID("product_id", filter.ProductID)
		if err != nil {
			return nil, err
		}
		f.ProductID = &pid
	}
	movements, total, err := s.movements.List(ctx, businessID, f)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	out := &dto.MovementListResponse{
		Data:  make([]dto.MovementResponse, 0, len(movements)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range movements {
		out.Data = append(out.Data, movementToResponse(&movements[i]))
	}
	return out, nil
}

func movementToResponse(m *model.InventoryMovement) dto.MovementResponse {
	resp := dto.MovementResponse{
		ID:              m.ID.String(),
		ProductID:       m.ProductID.String(),
		TransactionType: m.TransactionType,
		Quantity:        m.Quantity,
		StockBefore:     m.StockBefore,
		StockAfter:      m.StockAfter,
		Reference:       m.Reference,
		CreatedAt:       m.CreatedAt.Format(time.RFC3339),
	}
	if m.SaleItemID != nil {
		id := m.SaleItemID.String()
		resp.SaleItemID = &id
	}
	return resp
}

// notifyLowStock enqueues one alert per product at or below the business
// threshold. Best-effort: failures are logged and never surface to the caller.
func notifyLowStock(ctx context.Context, d *worker.Dispatcher, b *model.Business, products []model.Product) {
	if d == nil || b == nil || !b.Settings.EnableLowStockAlerts || b.Email == nil || *b.Email == "" {
		return
	}
	for _, p := range products {
		if p.StockQuantity > b.Settings.LowStockThreshold {
			continue
		}
		err := d.EnqueueStockAlert(ctx, worker.StockAlertPayload{
			BusinessID:   b.ID.String(),
			BusinessName: b.Name,
			To:           *b.Email,
			ProductID:    p.ID.String(),
			ProductName:  p.Name,
			Stock:        p.StockQuantity,
			Threshold:    b.Settings.LowStockThreshold,
		})
		if err != nil {
			log.Warn().Err(err).Str("product_id", p.ID.String()).Msg("enqueue stock alert failed")
		}
	}
}
