package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Locker serializes work on one key across API instances.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// CreditService owns customer debt: payment allocation, reconciliation and statements.
type CreditService interface {
	ReceivePayment(ctx context.Context, businessID, actorID uuid.UUID, req dto.ReceivePaymentRequest) (*dto.PaymentResponse, error)
	// SyncDebt recomputes current_debt from sales, payments and credit notes and
	// overwrites the cached value. It is a maintenance operation only.
	SyncDebt(ctx context.Context, businessID, customerID uuid.UUID) (decimal.Decimal, error)
	Statement(ctx context.Context, businessID, customerID uuid.UUID) (*dto.CustomerStatement, error)
}

type creditService struct {
	tx        repository.Transactor
	customers repository.CustomerRepository
	sales     repository.SaleRepository
	credit    repository.CreditRepository
	locker    Locker
}

// NewCreditService builds the credit subsystem. locker may be nil, in which
// case only database row locks serialize concurrent payments.
func NewCreditService(
	tx repository.Transactor,
	customers repository.CustomerRepository,
	sales repository.SaleRepository,
	credit repository.CreditRepository,
	locker Locker,
) CreditService {
	return &creditService{tx: tx, customers: customers, sales: sales, credit: credit, locker: locker}
}

// outstandingStatuses are the sale statuses that can still carry debt.
var outstandingStatuses = []string{model.SaleCompleted, model.SalePartiallyRefunded}

func isOutstanding(status string) bool {
	return status == model.SaleCompleted || status == model.SalePartiallyRefunded
}

var debtPaymentTypes = map[string]bool{
	model.PayCash:         true,
	model.PayCard:         true,
	model.PayBankTransfer: true,
	model.PayMobile:       true,
	"credit_note":         true,
}

// balance is the settlement state of one credit sale.
type balance struct {
	Paid      decimal.Decimal
	Credited  decimal.Decimal
	Remaining decimal.Decimal
}

// balances computes remaining = max(0, total - paid - credited) per sale.
func balances(ctx context.Context, tx *gorm.DB, credit repository.CreditRepository, sales []model.Sale) (map[uuid.UUID]balance, error) {
	ids := make([]uuid.UUID, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
	}
	paid, err := credit.PaidTx(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	credited, err := credit.CreditedTx(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("sum credit notes: %w", err)
	}
	out := make(map[uuid.UUID]balance, len(sales))
	for _, s := range sales {
		b := balance{Paid: paid[s.ID], Credited: credited[s.ID]}
		b.Remaining = decimal.Max(decimal.Zero, s.TotalAmount.Sub(b.Paid).Sub(b.Credited))
		out[s.ID] = b
	}
	return out, nil
}

func paymentReference() string {
	return "DP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// ── ReceivePayment ──────────────────────────────────────────────────────────
// Allocation order:
//   1. the targeted sale, capped at its remaining balance
//   2. FIFO over the other outstanding credit sales, oldest first
//   3. whatever is left is recorded unallocated

func (s *creditService) ReceivePayment(ctx context.Context, businessID, actorID uuid.UUID, req dto.ReceivePaymentRequest) (*dto.PaymentResponse, error) {
	customerID, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}
	if !debtPaymentTypes[req.PaymentType] {
		return nil, invalid("payment_type", "unknown payment type %q", req.PaymentType)
	}
	var target *uuid.UUID
	if req.SaleID != nil && *req.SaleID != "" {
		id, err := parseID("sale_id", *req.SaleID)
		if err != nil {
			return nil, err
		}
		target = &id
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, "lock:customer:"+customerID.String())
		if err != nil {
			return nil, fmt.Errorf("lock customer: %w", err)
		}
		defer unlock()
	}

	var (
		created  []model.DebtPayment
		newDebt  decimal.Decimal
		leftover decimal.Decimal
	)
	txErr := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		customer, err := s.customers.LockTx(ctx, tx, businessID, customerID)
		if err != nil {
			return lookupErr(err, "customer", customerID)
		}
		debt := customer.CurrentDebt
		if debt.IsPositive() && req.Amount.GreaterThan(debt) {
			return fmt.Errorf("%w: payment %s, debt %s",
				ErrPaymentExceedsDebt, req.Amount.StringFixed(2), debt.StringFixed(2))
		}

		// Read the outstanding set under lock in the same tx that writes payments.
		open, err := s.sales.CreditSalesTx(ctx, tx, businessID, customerID, outstandingStatuses)
		if err != nil {
			return fmt.Errorf("load outstanding sales: %w", err)
		}
		bal, err := balances(ctx, tx, s.credit, open)
		if err != nil {
			return err
		}

		if target != nil {
			found := false
			for _, sale := range open {
				if sale.ID == *target {
					found = true
					break
				}
			}
			if !found {
				// Settled or reversed invoices take nothing; the whole amount spills to FIFO.
				sale, err := s.sales.FindByID(ctx, businessID, *target)
				if err != nil {
					return lookupErr(err, "sale", *target)
				}
				if sale.CustomerID == nil || *sale.CustomerID != customerID || !sale.IsCredit() {
					return &NotFoundError{Entity: "credit sale", ID: target.String()}
				}
			}
		}

		left := req.Amount
		record := func(saleID *uuid.UUID, amount decimal.Decimal) error {
			p := model.DebtPayment{
				ID:               uuid.New(),
				BusinessID:       businessID,
				CustomerID:       customerID,
				SaleID:           saleID,
				PaymentReference: paymentReference(),
				Amount:           amount,
				PaymentType:      req.PaymentType,
				Reference:        req.Reference,
				Notes:            req.Notes,
				CreatedBy:        actorID,
			}
			if err := s.credit.CreatePaymentTx(ctx, tx, &p); err != nil {
				return fmt.Errorf("create debt payment: %w", err)
			}
			created = append(created, p)
			left = left.Sub(amount)
			return nil
		}

		if target != nil {
			if rem := bal[*target].Remaining; rem.IsPositive() {
				id := *target
				if err := record(&id, decimal.Min(left, rem)); err != nil {
					return err
				}
			}
		}
		for _, sale := range open {
			if !left.IsPositive() {
				break
			}
			if target != nil && sale.ID == *target {
				continue
			}
			rem := bal[sale.ID].Remaining
			if !rem.IsPositive() {
				continue
			}
			id := sale.ID
			if err := record(&id, decimal.Min(left, rem)); err != nil {
				return err
			}
		}
		leftover = left
		if left.IsPositive() {
			if err := record(nil, left); err != nil {
				return err
			}
		}

		newDebt = decimal.Max(decimal.Zero, debt.Sub(req.Amount))
		return s.customers.UpdateBalancesTx(ctx, tx, customerID, newDebt, customer.LoyaltyPoints)
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("business_id", businessID.String()).
		Str("customer_id", customerID.String()).
		Str("amount", req.Amount.StringFixed(2)).
		Int("allocations", len(created)).
		Str("new_debt", newDebt.StringFixed(2)).
		Msg("debt payment received")

	resp := &dto.PaymentResponse{
		CustomerID:  customerID.String(),
		NewDebt:     newDebt,
		Unallocated: leftover,
		Payments:    make([]dto.DebtPaymentResponse, 0, len(created)),
	}
	for _, p := range created {
		resp.Payments = append(resp.Payments, paymentToResponse(p))
	}
	return resp, nil
}

// ── SyncDebt ────────────────────────────────────────────────────────────────

func (s *creditService) SyncDebt(ctx context.Context, businessID, customerID uuid.UUID) (decimal.Decimal, error) {
	var previous, computed decimal.Decimal
	txErr := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		customer, err := s.customers.LockTx(ctx, tx, businessID, customerID)
		if err != nil {
			return lookupErr(err, "customer", customerID)
		}
		open, err := s.sales.CreditSalesTx(ctx, tx, businessID, customerID, outstandingStatuses)
		if err != nil {
			return fmt.Errorf("load outstanding sales: %w", err)
		}
		bal, err := balances(ctx, tx, s.credit, open)
		if err != nil {
			return err
		}
		computed = decimal.Zero
		for _, b := range bal {
			computed = computed.Add(b.Remaining)
		}
		previous = customer.CurrentDebt
		if previous.Equal(computed) {
			return nil
		}
		return s.customers.UpdateBalancesTx(ctx, tx, customerID, computed, customer.LoyaltyPoints)
	})
	if txErr != nil {
		return decimal.Zero, txErr
	}
	if !previous.Equal(computed) {
		log.Warn().
			Str("customer_id", customerID.String()).
			Str("cached", previous.StringFixed(2)).
			Str("computed", computed.StringFixed(2)).
			Msg("customer debt drift repaired")
	}
	return computed, nil
}

// ── Statement ───────────────────────────────────────────────────────────────

func (s *creditService) Statement(ctx context.Context, businessID, customerID uuid.UUID) (*dto.CustomerStatement, error) {
	customer, err := s.customers.FindByID(ctx, businessID, customerID)
	if err != nil {
		return nil, lookupErr(err, "customer", customerID)
	}
	sales, err := s.sales.CreditSalesTx(ctx, nil, businessID, customerID, nil)
	if err != nil {
		return nil, fmt.Errorf("load credit sales: %w", err)
	}
	bal, err := balances(ctx, nil, s.credit, sales)
	if err != nil {
		return nil, err
	}

	st := &dto.CustomerStatement{
		CustomerID:      customer.ID.String(),
		Name:            customer.FullName(),
		CreditLimit:     customer.CreditLimit,
		CurrentDebt:     customer.CurrentDebt,
		ComputedDebt:    decimal.Zero,
		AvailableCredit: customer.AvailableCredit(),
		LoyaltyPoints:   customer.LoyaltyPoints,
		Invoices:        make([]dto.StatementInvoice, 0, len(sales)),
	}
	for _, sale := range sales {
		b := bal[sale.ID]
		remaining := decimal.Zero
		if isOutstanding(sale.Status) {
			remaining = b.Remaining
		}
		st.ComputedDebt = st.ComputedDebt.Add(remaining)
		st.Invoices = append(st.Invoices, dto.StatementInvoice{
			SaleID:        sale.ID.String(),
			InvoiceNumber: sale.InvoiceNumber,
			Status:        sale.Status,
			Total:         sale.TotalAmount,
			Paid:          b.Paid,
			Credited:      b.Credited,
			Remaining:     remaining,
			CreatedAt:     sale.CreatedAt.Format(time.RFC3339),
		})
	}
	return st, nil
}

func paymentToResponse(p model.DebtPayment) dto.DebtPaymentResponse {
	resp := dto.DebtPaymentResponse{
		ID:               p.ID.String(),
		PaymentReference: p.PaymentReference,
		Reference:        p.Reference,
		Amount:           p.Amount,
		PaymentType:      p.PaymentType,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
	}
	if p.SaleID != nil {
		id := p.SaleID.String()
		resp.SaleID = &id
	}
	return resp
}
