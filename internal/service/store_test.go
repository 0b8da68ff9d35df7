package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memStore is an in-memory double for every repository. Transaction snapshots
// the whole state and restores it when fn fails, so rollback is observable.
type memStore struct {
	mu sync.Mutex

	clock   time.Time
	invoice int64
	fail    map[string]error

	data memData
}

type memData struct {
	businesses  map[uuid.UUID]model.Business
	categories  map[uuid.UUID]model.VATCategory
	products    map[uuid.UUID]model.Product
	customers   map[uuid.UUID]model.Customer
	sales       map[uuid.UUID]model.Sale
	movements   []model.InventoryMovement
	payments    []model.DebtPayment
	creditNotes []model.CreditNote
	suppliers   map[uuid.UUID]model.Supplier
	purchases   map[uuid.UUID]model.Purchase
}

func newMemStore() *memStore {
	return &memStore{
		clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		fail:  map[string]error{},
		data: memData{
			businesses: map[uuid.UUID]model.Business{},
			categories: map[uuid.UUID]model.VATCategory{},
			products:   map[uuid.UUID]model.Product{},
			customers:  map[uuid.UUID]model.Customer{},
			sales:      map[uuid.UUID]model.Sale{},
			suppliers:  map[uuid.UUID]model.Supplier{},
			purchases:  map[uuid.UUID]model.Purchase{},
		},
	}
}

func (m *memStore) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) failing(op string) error { return m.fail[op] }

func (d memData) clone() memData {
	out := memData{
		businesses:  make(map[uuid.UUID]model.Business, len(d.businesses)),
		categories:  make(map[uuid.UUID]model.VATCategory, len(d.categories)),
		products:    make(map[uuid.UUID]model.Product, len(d.products)),
		customers:   make(map[uuid.UUID]model.Customer, len(d.customers)),
		sales:       make(map[uuid.UUID]model.Sale, len(d.sales)),
		movements:   append([]model.InventoryMovement(nil), d.movements...),
		payments:    append([]model.DebtPayment(nil), d.payments...),
		creditNotes: append([]model.CreditNote(nil), d.creditNotes...),
		suppliers:   make(map[uuid.UUID]model.Supplier, len(d.suppliers)),
		purchases:   make(map[uuid.UUID]model.Purchase, len(d.purchases)),
	}
	for k, v := range d.businesses {
		out.businesses[k] = v
	}
	for k, v := range d.categories {
		out.categories[k] = v
	}
	for k, v := range d.products {
		out.products[k] = v
	}
	for k, v := range d.customers {
		out.customers[k] = v
	}
	for k, v := range d.sales {
		out.sales[k] = copySale(v)
	}
	for k, v := range d.suppliers {
		out.suppliers[k] = v
	}
	for k, v := range d.purchases {
		out.purchases[k] = copyPurchase(v)
	}
	return out
}

func copySale(s model.Sale) model.Sale {
	s.Items = append([]model.SaleItem(nil), s.Items...)
	return s
}

func copyPurchase(p model.Purchase) model.Purchase {
	p.Items = append([]model.PurchaseItem(nil), p.Items...)
	return p
}

// ── Transactor ────────────────────────────────────────────────────────────────

type memTx struct{ *memStore }

func (t memTx) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	t.mu.Lock()
	snapshot := t.data.clone()
	t.mu.Unlock()

	if err := fn(nil); err != nil {
		t.mu.Lock()
		t.data = snapshot
		t.mu.Unlock()
		return err
	}
	return nil
}

// ── Businesses ────────────────────────────────────────────────────────────────

type memBusinesses struct{ *memStore }

func (r memBusinesses) Create(_ context.Context, b *model.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.CreatedAt = r.now()
	r.data.businesses[b.ID] = *b
	return nil
}

func (r memBusinesses) FindByID(_ context.Context, id uuid.UUID) (*model.Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.data.businesses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r memBusinesses) FindVATCategory(_ context.Context, businessID, id uuid.UUID) (*model.VATCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data.categories[id]
	if !ok || c.BusinessID != businessID {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

// ── Products ──────────────────────────────────────────────────────────────────

type memProducts struct{ *memStore }

func (r memProducts) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.CreatedAt = r.now()
	stored := *p
	stored.VATCategory = nil
	r.data.products[p.ID] = stored
	return nil
}

// load must be called under lock.
func (r memProducts) load(p model.Product) model.Product {
	if p.VATCategoryID != nil {
		if c, ok := r.data.categories[*p.VATCategoryID]; ok {
			p.VATCategory = &c
		}
	}
	return p
}

func (r memProducts) FindByID(_ context.Context, businessID, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data.products[id]
	if !ok || p.BusinessID != businessID {
		return nil, gorm.ErrRecordNotFound
	}
	p = r.load(p)
	return &p, nil
}

func (r memProducts) LockTx(_ context.Context, _ *gorm.DB, businessID uuid.UUID, ids []uuid.UUID) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("products.LockTx"); err != nil {
		return nil, err
	}
	var out []model.Product
	for _, id := range ids {
		if p, ok := r.data.products[id]; ok && p.BusinessID == businessID {
			out = append(out, r.load(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r memProducts) UpdateStockTx(_ context.Context, _ *gorm.DB, id uuid.UUID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.data.products[id]
	p.StockQuantity += delta
	r.data.products[id] = p
	return nil
}

func (r memProducts) SetStockTx(_ context.Context, _ *gorm.DB, id uuid.UUID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.data.products[id]
	p.StockQuantity = qty
	r.data.products[id] = p
	return nil
}

func (r memProducts) ListIDs(_ context.Context, businessID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, p := range r.data.products {
		if p.BusinessID == businessID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ── Customers ─────────────────────────────────────────────────────────────────

type memCustomers struct{ *memStore }

func (r memCustomers) Create(_ context.Context, c *model.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.CreatedAt = r.now()
	r.data.customers[c.ID] = *c
	return nil
}

func (r memCustomers) FindByID(_ context.Context, businessID, id uuid.UUID) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data.customers[id]
	if !ok || c.BusinessID != businessID {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r memCustomers) LockTx(ctx context.Context, _ *gorm.DB, businessID, id uuid.UUID) (*model.Customer, error) {
	return r.FindByID(ctx, businessID, id)
}

func (r memCustomers) UpdateBalancesTx(_ context.Context, _ *gorm.DB, id uuid.UUID, debt, points decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("customers.UpdateBalancesTx"); err != nil {
		return err
	}
	c := r.data.customers[id]
	c.CurrentDebt = debt
	c.LoyaltyPoints = points
	r.data.customers[id] = c
	return nil
}

func (r memCustomers) ListIDs(_ context.Context, businessID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, c := range r.data.customers {
		if c.BusinessID == businessID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ── Sales ─────────────────────────────────────────────────────────────────────

type memSales struct{ *memStore }

func (r memSales) CreateTx(_ context.Context, _ *gorm.DB, s *model.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("sales.CreateTx"); err != nil {
		return err
	}
	for _, other := range r.data.sales {
		if other.InvoiceNumber == s.InvoiceNumber {
			return errors.New("duplicate invoice number")
		}
	}
	s.CreatedAt = r.now()
	s.UpdatedAt = s.CreatedAt
	r.data.sales[s.ID] = copySale(*s)
	return nil
}

func (r memSales) NextInvoiceNumberTx(context.Context, *gorm.DB) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Sequences are not transactional, matching nextval.
	r.invoice++
	return r.invoice, nil
}

func (r memSales) FindByID(_ context.Context, businessID, id uuid.UUID) (*model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data.sales[id]
	if !ok || s.BusinessID != businessID {
		return nil, gorm.ErrRecordNotFound
	}
	s = copySale(s)
	return &s, nil
}

func (r memSales) LockTx(ctx context.Context, _ *gorm.DB, businessID, id uuid.UUID) (*model.Sale, error) {
	return r.FindByID(ctx, businessID, id)
}

func (r memSales) UpdateStatusTx(_ context.Context, _ *gorm.DB, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("sales.UpdateStatusTx"); err != nil {
		return err
	}
	s := r.data.sales[id]
	s.Status = status
	r.data.sales[id] = s
	return nil
}

func (r memSales) CreditSalesTx(_ context.Context, _ *gorm.DB, businessID, customerID uuid.UUID, statuses []string) ([]model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := map[string]bool{}
	for _, st := range statuses {
		allowed[st] = true
	}
	var out []model.Sale
	for _, s := range r.data.sales {
		if s.BusinessID != businessID || s.CustomerID == nil || *s.CustomerID != customerID || !s.IsCredit() {
			continue
		}
		if len(statuses) > 0 && !allowed[s.Status] {
			continue
		}
		out = append(out, copySale(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].InvoiceNumber < out[j].InvoiceNumber
	})
	return out, nil
}

func (r memSales) List(_ context.Context, businessID uuid.UUID, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Sale
	for _, s := range r.data.sales {
		if s.BusinessID != businessID || (filter.Status != "" && s.Status != filter.Status) {
			continue
		}
		if filter.CustomerID != "" && (s.CustomerID == nil || s.CustomerID.String() != filter.CustomerID) {
			continue
		}
		out = append(out, copySale(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

// ── Movements ─────────────────────────────────────────────────────────────────

type memMovements struct{ *memStore }

func (r memMovements) CreateTx(_ context.Context, _ *gorm.DB, mv *model.InventoryMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("movements.CreateTx"); err != nil {
		return err
	}
	mv.CreatedAt = r.now()
	r.data.movements = append(r.data.movements, *mv)
	return nil
}

func (r memMovements) SumByProductTx(_ context.Context, _ *gorm.DB, productID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, mv := range r.data.movements {
		if mv.ProductID == productID {
			sum += mv.Quantity
		}
	}
	return sum, nil
}

func (r memMovements) ReturnedTx(_ context.Context, _ *gorm.DB, saleItemIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range saleItemIDs {
		want[id] = true
	}
	out := map[uuid.UUID]int{}
	for _, mv := range r.data.movements {
		if mv.TransactionType == model.MoveReturn && mv.SaleItemID != nil && want[*mv.SaleItemID] {
			out[*mv.SaleItemID] += mv.Quantity
		}
	}
	return out, nil
}

func (r memMovements) List(_ context.Context, businessID uuid.UUID, f repository.MovementFilter) ([]model.InventoryMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.InventoryMovement
	for _, mv := range r.data.movements {
		if mv.BusinessID != businessID {
			continue
		}
		if f.ProductID != nil && mv.ProductID != *f.ProductID {
			continue
		}
		if f.Type != "" && mv.TransactionType != f.Type {
			continue
		}
		out = append(out, mv)
	}
	return out, int64(len(out)), nil
}

// movementsFor must not be called while the store is locked.
func (m *memStore) movementsFor(productID uuid.UUID) []model.InventoryMovement {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.InventoryMovement
	for _, mv := range m.data.movements {
		if mv.ProductID == productID {
			out = append(out, mv)
		}
	}
	return out
}

// ── Credit ────────────────────────────────────────────────────────────────────

type memCredit struct{ *memStore }

func (r memCredit) CreatePaymentTx(_ context.Context, _ *gorm.DB, p *model.DebtPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("credit.CreatePaymentTx"); err != nil {
		return err
	}
	p.CreatedAt = r.now()
	r.data.payments = append(r.data.payments, *p)
	return nil
}

func (r memCredit) CreateCreditNoteTx(_ context.Context, _ *gorm.DB, n *model.CreditNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("credit.CreateCreditNoteTx"); err != nil {
		return err
	}
	n.CreatedAt = r.now()
	r.data.creditNotes = append(r.data.creditNotes, *n)
	return nil
}

func (r memCredit) PaidTx(_ context.Context, _ *gorm.DB, saleIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := toSet(saleIDs)
	out := map[uuid.UUID]decimal.Decimal{}
	for _, p := range r.data.payments {
		if p.SaleID != nil && want[*p.SaleID] {
			out[*p.SaleID] = out[*p.SaleID].Add(p.Amount)
		}
	}
	return out, nil
}

func (r memCredit) CreditedTx(_ context.Context, _ *gorm.DB, saleIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := toSet(saleIDs)
	out := map[uuid.UUID]decimal.Decimal{}
	for _, n := range r.data.creditNotes {
		if n.IsApplied && want[n.OriginalSaleID] {
			out[n.OriginalSaleID] = out[n.OriginalSaleID].Add(n.AppliedAmount)
		}
	}
	return out, nil
}

func (r memCredit) RefundedTotalTx(_ context.Context, _ *gorm.DB, saleID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, n := range r.data.creditNotes {
		if n.OriginalSaleID == saleID {
			total = total.Add(n.TotalAmount)
		}
	}
	return total, nil
}

func (r memCredit) ListPayments(_ context.Context, businessID, customerID uuid.UUID) ([]model.DebtPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.DebtPayment
	for _, p := range r.data.payments {
		if p.BusinessID == businessID && p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func toSet(ids []uuid.UUID) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// ── Purchases ─────────────────────────────────────────────────────────────────

type memPurchases struct{ *memStore }

func (r memPurchases) CreateSupplier(_ context.Context, s *model.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.CreatedAt = r.now()
	r.data.suppliers[s.ID] = *s
	return nil
}

func (r memPurchases) FindSupplier(_ context.Context, businessID, id uuid.UUID) (*model.Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data.suppliers[id]
	if !ok || s.BusinessID != businessID {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r memPurchases) CreateTx(_ context.Context, _ *gorm.DB, p *model.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.CreatedAt = r.now()
	r.data.purchases[p.ID] = copyPurchase(*p)
	return nil
}

func (r memPurchases) FindByID(_ context.Context, businessID, id uuid.UUID) (*model.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data.purchases[id]
	if !ok || p.BusinessID != businessID {
		return nil, gorm.ErrRecordNotFound
	}
	p = copyPurchase(p)
	return &p, nil
}

func (r memPurchases) LockTx(ctx context.Context, _ *gorm.DB, businessID, id uuid.UUID) (*model.Purchase, error) {
	return r.FindByID(ctx, businessID, id)
}

func (r memPurchases) UpdateReceivedTx(_ context.Context, _ *gorm.DB, itemID uuid.UUID, received int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.data.purchases {
		for i := range p.Items {
			if p.Items[i].ID == itemID {
				p.Items[i].ReceivedQuantity = received
				r.data.purchases[id] = p
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (r memPurchases) UpdateStatusTx(_ context.Context, _ *gorm.DB, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.data.purchases[id]
	p.Status = status
	r.data.purchases[id] = p
	return nil
}
