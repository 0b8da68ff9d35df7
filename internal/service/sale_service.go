package service

import (
	"context"
	"fmt"
	"time"

	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"
	"retailpos/internal/vat"
	"retailpos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleService interface {
	ProcessSale(ctx context.Context, businessID, actorID uuid.UUID, req dto.ProcessSaleRequest) (*dto.SaleResponse, error)
	GetSale(ctx context.Context, businessID, saleID uuid.UUID) (*dto.SaleResponse, error)
	ListSales(ctx context.Context, businessID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error)
}

type saleService struct {
	tx         repository.Transactor
	sales      repository.SaleRepository
	products   repository.ProductRepository
	customers  repository.CustomerRepository
	movements  repository.MovementRepository
	businesses repository.BusinessRepository
	inventory  InventoryService
	dispatcher *worker.Dispatcher
}

func NewSaleService(
	tx repository.Transactor,
	sales repository.SaleRepository,
	products repository.ProductRepository,
	customers repository.CustomerRepository,
	movements repository.MovementRepository,
	businesses repository.BusinessRepository,
	inventory InventoryService,
	dispatcher *worker.Dispatcher,
) SaleService {
	return &saleService{
		tx:         tx,
		sales:      sales,
		products:   products,
		customers:  customers,
		movements:  movements,
		businesses: businesses,
		inventory:  inventory,
		dispatcher: dispatcher,
	}
}

var paymentMethods = map[string]bool{
	model.PayCash:          true,
	model.PayCard:          true,
	model.PayBankTransfer:  true,
	model.PayMobile:        true,
	model.PayLoyaltyPoints: true,
	model.PayCredit:        true,
	model.PayMixed:         true,
}

func invoiceNumber(n int64) string { return fmt.Sprintf("INV-%08d", n) }

type cartLine struct {
	productID uuid.UUID
	quantity  int
	price     *decimal.Decimal
}

// ── ProcessSale ─────────────────────────────────────────────────────────────
// One atomic unit:
//   1. Validate the cart (outside TX)
//   2. BEGIN TX: lock customer, lock products, price lines via the VAT calculator
//   3. Credit limit and loyalty checks against the locked customer row
//   4. nextval invoice, insert sale+items, one negative movement per line, customer balances
//   5. COMMIT
//   6. (async) low-stock alerts, best-effort

func (s *saleService) ProcessSale(ctx context.Context, businessID, actorID uuid.UUID, req dto.ProcessSaleRequest) (*dto.SaleResponse, error) {
	// 1. Validation
	if len(req.Items) == 0 {
		return nil, invalid("items", "cart is empty")
	}
	if !paymentMethods[req.PaymentMethod] {
		return nil, invalid("payment_method", "unknown payment method %q", req.PaymentMethod)
	}
	if req.DiscountAmount.IsNegative() {
		return nil, invalid("discount_amount", "must not be negative")
	}
	if req.LoyaltyPointsUsed.IsNegative() {
		return nil, invalid("loyalty_points_used", "must not be negative")
	}

	lines := make([]cartLine, 0, len(req.Items))
	ids := make([]uuid.UUID, 0, len(req.Items))
	seen := make(map[uuid.UUID]bool)
	for i, item := range req.Items {
		pid, err := parseID(fmt.Sprintf("items[%d].product_id", i), item.ProductID)
		if err != nil {
			return nil, err
		}
		if item.Quantity <= 0 {
			return nil, invalid(fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return nil, invalid(fmt.Sprintf("items[%d].unit_price", i), "must not be negative")
		}
		lines = append(lines, cartLine{productID: pid, quantity: item.Quantity, price: item.UnitPrice})
		if !seen[pid] {
			seen[pid] = true
			ids = append(ids, pid)
		}
	}

	var customerID *uuid.UUID
	if req.CustomerID != nil && *req.CustomerID != "" {
		cid, err := parseID("customer_id", *req.CustomerID)
		if err != nil {
			return nil, err
		}
		customerID = &cid
	}
	if req.PaymentMethod == model.PayCredit && customerID == nil {
		return nil, ErrCreditCustomerRequired
	}
	if req.LoyaltyPointsUsed.IsPositive() && customerID == nil {
		return nil, invalid("loyalty_points_used", "redeeming points requires a customer")
	}

	business, err := s.businesses.FindByID(ctx, businessID)
	if err != nil {
		return nil, lookupErr(err, "business", businessID)
	}
	settings := business.Settings
	if req.LoyaltyPointsUsed.IsPositive() && !settings.EnableCustomerLoyalty {
		return nil, invalid("loyalty_points_used", "customer loyalty is disabled")
	}
	policy := settings.VATPolicy()

	var (
		sale     model.Sale
		customer *model.Customer
		touched  []model.Product
	)

	txErr := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		// 2. Locks: customer first, then products, matching the reversal path.
		if customerID != nil {
			c, err := s.customers.LockTx(ctx, tx, businessID, *customerID)
			if err != nil {
				return lookupErr(err, "customer", *customerID)
			}
			customer = c
		}

		locked, err := s.products.LockTx(ctx, tx, businessID, ids)
		if err != nil {
			return fmt.Errorf("lock products: %w", err)
		}
		byID := make(map[uuid.UUID]*model.Product, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}

		sale = model.Sale{
			ID:                uuid.New(),
			BusinessID:        businessID,
			CustomerID:        customerID,
			CreatedBy:         actorID,
			PaymentMethod:     req.PaymentMethod,
			PaymentReference:  req.PaymentReference,
			Status:            model.SaleCompleted,
			Notes:             req.Notes,
			DiscountAmount:    req.DiscountAmount,
			LoyaltyPointsUsed: req.LoyaltyPointsUsed,
		}

		subtotal, tax := decimal.Zero, decimal.Zero
		for _, l := range lines {
			p, ok := byID[l.productID]
			if !ok || !p.IsActive {
				return &NotFoundError{Entity: "product", ID: l.productID.String()}
			}
			price := p.UnitPrice
			if l.price != nil {
				price = *l.price
			}
			unit := policy.Unit(price, p.VATCategory.Calc())
			qty := decimal.NewFromInt(int64(l.quantity))

			item := model.SaleItem{
				ID:          uuid.New(),
				SaleID:      sale.ID,
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    l.quantity,
				UnitPrice:   unit.Excl,
				VATAmount:   unit.VAT,
				Subtotal:    unit.Excl.Mul(qty),
			}
			if p.VATCategory != nil && policy.Enabled {
				code, name := p.VATCategory.Code, p.VATCategory.Name
				item.VATCategoryCode = &code
				item.VATCategoryName = &name
				item.VATRate = p.VATCategory.Rate
			}
			subtotal = subtotal.Add(item.Subtotal)
			tax = tax.Add(unit.VAT.Mul(qty))
			sale.Items = append(sale.Items, item)
		}

		// Discount applies after VAT: it reduces the payable total only.
		if req.DiscountAmount.GreaterThan(subtotal.Add(tax)) {
			return invalid("discount_amount", "exceeds sale total %s", subtotal.Add(tax).StringFixed(2))
		}
		sale.Subtotal = subtotal
		sale.TaxAmount = tax
		sale.TotalAmount = subtotal.Sub(req.DiscountAmount).Add(tax)

		// 3. Credit and loyalty against the locked customer.
		if customer != nil {
			debt := customer.CurrentDebt
			points := customer.LoyaltyPoints
			if sale.IsCredit() {
				wouldBe := debt.Add(sale.TotalAmount)
				if wouldBe.GreaterThan(customer.CreditLimit) && !req.CreditOverride {
					return &CreditLimitError{
						Limit:       customer.CreditLimit,
						CurrentDebt: debt,
						WouldBeDebt: wouldBe,
						Excess:      wouldBe.Sub(customer.CreditLimit),
					}
				}
				debt = wouldBe
			}
			if req.LoyaltyPointsUsed.GreaterThan(points) {
				return fmt.Errorf("%w: balance %s, requested %s",
					ErrInsufficientLoyaltyPoints, points.StringFixed(2), req.LoyaltyPointsUsed.StringFixed(2))
			}
			if settings.EnableCustomerLoyalty {
				sale.LoyaltyPointsEarned = sale.TotalAmount.Mul(settings.PointsPerPurchase).Round(2)
			}
			points = points.Add(sale.LoyaltyPointsEarned).Sub(sale.LoyaltyPointsUsed)
			customer.CurrentDebt = debt
			customer.LoyaltyPoints = points
		}

		// 4. Persist.
		n, err := s.sales.NextInvoiceNumberTx(ctx, tx)
		if err != nil {
			return fmt.Errorf("next invoice number: %w", err)
		}
		sale.InvoiceNumber = invoiceNumber(n)

		if err := s.sales.CreateTx(ctx, tx, &sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		actor := actorID
		for i := range sale.Items {
			item := &sale.Items[i]
			itemID := item.ID
			if _, err := s.inventory.ApplyMovementTx(ctx, tx, byID[item.ProductID], Movement{
				Type:        model.MoveSale,
				Quantity:    -item.Quantity,
				Reference:   sale.InvoiceNumber,
				SaleItemID:  &itemID,
				ActorID:     &actor,
				NonNegative: settings.EnforceNonNegativeStock,
			}); err != nil {
				return err
			}
		}

		if customer != nil {
			if err := s.customers.UpdateBalancesTx(ctx, tx, customer.ID, customer.CurrentDebt, customer.LoyaltyPoints); err != nil {
				return fmt.Errorf("update customer balances: %w", err)
			}
		}

		for _, id := range ids {
			touched = append(touched, *byID[id])
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("business_id", businessID.String()).
		Str("invoice", sale.InvoiceNumber).
		Str("payment_method", sale.PaymentMethod).
		Str("total", sale.TotalAmount.StringFixed(2)).
		Int("items", len(sale.Items)).
		Msg("sale committed")

	// 6. Low-stock alerts (best-effort, fire & forget)
	notifyLowStock(ctx, s.dispatcher, business, touched)

	resp := saleToResponse(&sale, nil)
	if customer != nil {
		debt := customer.CurrentDebt
		resp.CustomerDebt = &debt
	}
	return resp, nil
}

// ── Queries ─────────────────────────────────────────────────────────────────

func (s *saleService) GetSale(ctx context.Context, businessID, saleID uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, businessID, saleID)
	if err != nil {
		return nil, lookupErr(err, "sale", saleID)
	}
	returned, err := s.movements.ReturnedTx(ctx, nil, itemIDs(sale.Items))
	if err != nil {
		return nil, fmt.Errorf("load returned quantities: %w", err)
	}
	return saleToResponse(sale, returned), nil
}

func (s *saleService) ListSales(ctx context.Context, businessID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	if filter.CustomerID != "" {
		if _, err := parseID("customer_id", filter.CustomerID); err != nil {
			return nil, err
		}
	}
	sales, total, err := s.sales.List(ctx, businessID, filter)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	out := &dto.SaleListResponse{
		Data:  make([]dto.SaleResponse, 0, len(sales)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range sales {
		out.Data = append(out.Data, *saleToResponse(&sales[i], nil))
	}
	return out, nil
}

func itemIDs(items []model.SaleItem) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// breakdown rebuilds the per-category VAT summary from the frozen item data.
func breakdown(items []model.SaleItem) []vat.Entry {
	lines := make([]vat.Line, 0, len(items))
	for _, it := range items {
		if it.VATCategoryCode == nil {
			continue
		}
		cat := &vat.Category{Code: *it.VATCategoryCode, Rate: it.VATRate, Type: vat.Standard}
		if it.VATCategoryName != nil {
			cat.Name = *it.VATCategoryName
		}
		lines = append(lines, vat.Line{Category: cat, Quantity: it.Quantity, UnitExcl: it.UnitPrice, UnitVAT: it.VATAmount})
	}
	return vat.Breakdown(lines)
}

func saleToResponse(s *model.Sale, returned map[uuid.UUID]int) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:                  s.ID.String(),
		InvoiceNumber:       s.InvoiceNumber,
		Status:              s.Status,
		PaymentMethod:       s.PaymentMethod,
		Subtotal:            s.Subtotal,
		TaxAmount:           s.TaxAmount,
		DiscountAmount:      s.DiscountAmount,
		TotalAmount:         s.TotalAmount,
		LoyaltyPointsEarned: s.LoyaltyPointsEarned,
		LoyaltyPointsUsed:   s.LoyaltyPointsUsed,
		Items:               make([]dto.SaleItemResponse, 0, len(s.Items)),
		VATBreakdown:        breakdown(s.Items),
		CreatedAt:           s.CreatedAt.Format(time.RFC3339),
	}
	if s.CustomerID != nil {
		id := s.CustomerID.String()
		resp.CustomerID = &id
	}
	for _, it := range s.Items {
		resp.Items = append(resp.Items, dto.SaleItemResponse{
			ID:               it.ID.String(),
			ProductID:        it.ProductID.String(),
			ProductName:      it.ProductName,
			Quantity:         it.Quantity,
			ReturnedQuantity: returned[it.ID],
			UnitPrice:        it.UnitPrice,
			VATAmount:        it.VATAmount,
			GrossUnitPrice:   it.GrossUnit(),
			Subtotal:         it.Subtotal,
		})
	}
	return resp
}
