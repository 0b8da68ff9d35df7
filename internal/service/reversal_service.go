package service

import (
	"context"
	"fmt"
	"strings"

	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RefundFull    = "full"
	RefundPartial = "partial"
)

// ReversalService voids and refunds committed sales. It only appends
// movements and credit notes; the sale itself changes status only.
type ReversalService interface {
	VoidSale(ctx context.Context, businessID, actorID, saleID uuid.UUID, reason string) (*dto.SaleResponse, error)
	RefundSale(ctx context.Context, businessID, actorID, saleID uuid.UUID, req dto.RefundRequest) (*dto.RefundResponse, error)
}

type reversalService struct {
	tx        repository.Transactor
	sales     repository.SaleRepository
	products  repository.ProductRepository
	customers repository.CustomerRepository
	movements repository.MovementRepository
	credit    repository.CreditRepository
	inventory InventoryService
}

func NewReversalService(
	tx repository.Transactor,
	sales repository.SaleRepository,
	products repository.ProductRepository,
	customers repository.CustomerRepository,
	movements repository.MovementRepository,
	credit repository.CreditRepository,
	inventory InventoryService,
) ReversalService {
	return &reversalService{
		tx:        tx,
		sales:     sales,
		products:  products,
		customers: customers,
		movements: movements,
		credit:    credit,
		inventory: inventory,
	}
}

// reversal is the resolved plan for one void or refund.
type reversal struct {
	action     string // "void" | "refund" | "partial-refund"
	reason     string
	quantities map[uuid.UUID]int // requested per sale item, partial only
}

type reversalResult struct {
	sale      model.Sale
	note      *model.CreditNote
	movements []model.InventoryMovement
	returned  map[uuid.UUID]int
	debt      *decimal.Decimal
}

func creditNoteNumber() string {
	return "CN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// ── VoidSale ────────────────────────────────────────────────────────────────

func (s *reversalService) VoidSale(ctx context.Context, businessID, actorID, saleID uuid.UUID, reason string) (*dto.SaleResponse, error) {
	res, err := s.reverse(ctx, businessID, actorID, saleID, reversal{action: "void", reason: reason})
	if err != nil {
		return nil, err
	}
	resp := saleToResponse(&res.sale, res.returned)
	resp.CustomerDebt = res.debt
	return resp, nil
}

// ── RefundSale ──────────────────────────────────────────────────────────────

func (s *reversalService) RefundSale(ctx context.Context, businessID, actorID, saleID uuid.UUID, req dto.RefundRequest) (*dto.RefundResponse, error) {
	plan := reversal{reason: req.Reason}
	switch req.Kind {
	case RefundFull:
		plan.action = "refund"
	case RefundPartial:
		plan.action = "partial-refund"
		plan.quantities = make(map[uuid.UUID]int, len(req.Items))
		for i, item := range req.Items {
			id, err := parseID(fmt.Sprintf("items[%d].sale_item_id", i), item.SaleItemID)
			if err != nil {
				return nil, err
			}
			if item.Quantity < 0 {
				return nil, invalid(fmt.Sprintf("items[%d].quantity", i), "must not be negative")
			}
			plan.quantities[id] += item.Quantity
		}
	default:
		return nil, invalid("kind", "must be %q or %q", RefundFull, RefundPartial)
	}

	res, err := s.reverse(ctx, businessID, actorID, saleID, plan)
	if err != nil {
		return nil, err
	}
	sale := saleToResponse(&res.sale, res.returned)
	sale.CustomerDebt = res.debt
	out := &dto.RefundResponse{
		Sale:      *sale,
		Movements: make([]dto.MovementResponse, 0, len(res.movements)),
	}
	if res.note != nil {
		out.CreditNote = creditNoteToResponse(res.note)
	}
	for i := range res.movements {
		out.Movements = append(out.Movements, movementToResponse(&res.movements[i]))
	}
	return out, nil
}

// ── reverse ─────────────────────────────────────────────────────────────────
// Shared by void, full and partial refund:
//   1. Peek the sale to learn the customer, then lock customer -> sale -> products
//   2. Check the status transition and resolve per-line quantities
//   3. Append one positive return movement per line
//   4. Value the reversal, reduce credit debt, adjust loyalty, append a credit note
//   5. Move the sale to its new status

func (s *reversalService) reverse(ctx context.Context, businessID, actorID, saleID uuid.UUID, plan reversal) (*reversalResult, error) {
	peek, err := s.sales.FindByID(ctx, businessID, saleID)
	if err != nil {
		return nil, lookupErr(err, "sale", saleID)
	}

	res := &reversalResult{}
	txErr := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		var customer *model.Customer
		if peek.CustomerID != nil {
			c, err := s.customers.LockTx(ctx, tx, businessID, *peek.CustomerID)
			if err != nil {
				return lookupErr(err, "customer", *peek.CustomerID)
			}
			customer = c
		}

		sale, err := s.sales.LockTx(ctx, tx, businessID, saleID)
		if err != nil {
			return lookupErr(err, "sale", saleID)
		}

		// 2. Transitions: void and full refund only from completed; partial
		// refunds may repeat until nothing is left.
		switch plan.action {
		case "void", "refund":
			if sale.Status != model.SaleCompleted {
				return &TransitionError{Entity: "sale " + sale.InvoiceNumber, From: sale.Status, Action: plan.action}
			}
		default:
			if sale.Status != model.SaleCompleted && sale.Status != model.SalePartiallyRefunded {
				return &TransitionError{Entity: "sale " + sale.InvoiceNumber, From: sale.Status, Action: "refund"}
			}
		}

		returned, err := s.movements.ReturnedTx(ctx, tx, itemIDs(sale.Items))
		if err != nil {
			return fmt.Errorf("load returned quantities: %w", err)
		}

		qty := make(map[uuid.UUID]int, len(sale.Items))
		if plan.quantities == nil {
			for _, it := range sale.Items {
				qty[it.ID] = it.Quantity - returned[it.ID]
			}
		} else {
			known := make(map[uuid.UUID]bool, len(sale.Items))
			for _, it := range sale.Items {
				known[it.ID] = true
			}
			for id := range plan.quantities {
				if !known[id] {
					return invalid("items", "sale item %s does not belong to sale %s", id, sale.InvoiceNumber)
				}
			}
			selected := false
			for _, it := range sale.Items {
				q := plan.quantities[it.ID]
				// Capped at what is still refundable on the line.
				if left := it.Quantity - returned[it.ID]; q > left {
					q = left
				}
				if q > 0 {
					qty[it.ID] = q
					selected = true
				}
			}
			if !selected {
				return ErrNoItemsSelected
			}
		}

		// 3. Inventory.
		var productIDs []uuid.UUID
		seen := make(map[uuid.UUID]bool)
		for _, it := range sale.Items {
			if qty[it.ID] > 0 && !seen[it.ProductID] {
				seen[it.ProductID] = true
				productIDs = append(productIDs, it.ProductID)
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

		reference := plan.action + ":" + sale.InvoiceNumber
		actor := actorID
		gross, vatSum := decimal.Zero, decimal.Zero
		complete := true
		for _, it := range sale.Items {
			q := qty[it.ID]
			if q > 0 {
				p, ok := byID[it.ProductID]
				if !ok {
					return &NotFoundError{Entity: "product", ID: it.ProductID.String()}
				}
				itemID := it.ID
				mv, err := s.inventory.ApplyMovementTx(ctx, tx, p, Movement{
					Type:       model.MoveReturn,
					Quantity:   q,
					Reference:  reference,
					SaleItemID: &itemID,
					ActorID:    &actor,
				})
				if err != nil {
					return err
				}
				res.movements = append(res.movements, *mv)
				returned[it.ID] += q

				n := decimal.NewFromInt(int64(q))
				gross = gross.Add(it.GrossUnit().Mul(n))
				vatSum = vatSum.Add(it.VATAmount.Mul(n))
			}
			if returned[it.ID] < it.Quantity {
				complete = false
			}
		}

		// 4. Value: the sale discount is shared pro rata by gross line value. The
		// reversal that empties the sale takes whatever is left, so refunds always
		// add up to the sale total.
		var value decimal.Decimal
		if complete {
			prior, err := s.credit.RefundedTotalTx(ctx, tx, sale.ID)
			if err != nil {
				return fmt.Errorf("sum prior refunds: %w", err)
			}
			value = decimal.Max(decimal.Zero, sale.TotalAmount.Sub(prior))
		} else {
			saleGross := sale.Subtotal.Add(sale.TaxAmount)
			value = gross
			if saleGross.IsPositive() && sale.DiscountAmount.IsPositive() {
				value = gross.Sub(sale.DiscountAmount.Mul(gross).Div(saleGross)).Round(2)
			}
		}

		var applied decimal.Decimal
		if customer != nil {
			debt, points := customer.CurrentDebt, customer.LoyaltyPoints
			if sale.IsCredit() {
				bal, err := balances(ctx, tx, s.credit, []model.Sale{*sale})
				if err != nil {
					return err
				}
				applied = bal[sale.ID].Remaining
				if plan.action == "partial-refund" && !complete {
					applied = decimal.Min(value, applied)
				}
				debt = decimal.Max(decimal.Zero, debt.Sub(applied))
			}
			if plan.action != "partial-refund" {
				points = decimal.Max(decimal.Zero, points.Add(sale.LoyaltyPointsUsed).Sub(sale.LoyaltyPointsEarned))
			}
			if err := s.customers.UpdateBalancesTx(ctx, tx, customer.ID, debt, points); err != nil {
				return fmt.Errorf("update customer balances: %w", err)
			}
			res.debt = &debt
		}

		if plan.action != "void" || sale.IsCredit() {
			noteType := model.CreditRefund
			if plan.action == "void" {
				noteType = model.CreditAdjustment
			}
			noteVAT := decimal.Min(vatSum, value)
			note := &model.CreditNote{
				ID:               uuid.New(),
				BusinessID:       businessID,
				CustomerID:       sale.CustomerID,
				OriginalSaleID:   sale.ID,
				CreditNoteNumber: creditNoteNumber(),
				CreditType:       noteType,
				Amount:           value.Sub(noteVAT),
				VATAmount:        noteVAT,
				TotalAmount:      value,
				AppliedAmount:    applied,
				IsApplied:        applied.IsPositive(),
				Reason:           plan.reason,
				CreatedBy:        actorID,
			}
			if err := s.credit.CreateCreditNoteTx(ctx, tx, note); err != nil {
				return fmt.Errorf("create credit note: %w", err)
			}
			res.note = note
		}

		// 5. Status.
		switch {
		case plan.action == "void":
			sale.Status = model.SaleCancelled
		case complete:
			sale.Status = model.SaleRefunded
		default:
			sale.Status = model.SalePartiallyRefunded
		}
		if err := s.sales.UpdateStatusTx(ctx, tx, sale.ID, sale.Status); err != nil {
			return fmt.Errorf("update sale status: %w", err)
		}

		res.sale = *sale
		res.returned = returned
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	ev := log.Info().
		Str("business_id", businessID.String()).
		Str("invoice", res.sale.InvoiceNumber).
		Str("action", plan.action).
		Str("status", res.sale.Status).
		Int("movements", len(res.movements))
	if res.note != nil {
		ev = ev.Str("credit_note", res.note.CreditNoteNumber).Str("amount", res.note.TotalAmount.StringFixed(2))
	}
	ev.Msg("sale reversed")
	return res, nil
}

func creditNoteToResponse(n *model.CreditNote) dto.CreditNoteResponse {
	return dto.CreditNoteResponse{
		ID:               n.ID.String(),
		CreditNoteNumber: n.CreditNoteNumber,
		CreditType:       n.CreditType,
		Amount:           n.Amount,
		VATAmount:        n.VATAmount,
		TotalAmount:      n.TotalAmount,
		AppliedAmount:    n.AppliedAmount,
		IsApplied:        n.IsApplied,
	}
}
