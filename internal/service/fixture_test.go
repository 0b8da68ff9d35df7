package service_test

import (
	"context"
	"testing"

	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"
	"retailpos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	_ repository.Transactor         = memTx{}
	_ repository.BusinessRepository = memBusinesses{}
	_ repository.ProductRepository  = memProducts{}
	_ repository.CustomerRepository = memCustomers{}
	_ repository.SaleRepository     = memSales{}
	_ repository.MovementRepository = memMovements{}
	_ repository.CreditRepository   = memCredit{}
	_ repository.PurchaseRepository = memPurchases{}
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

type env struct {
	t     *testing.T
	ctx   context.Context
	store *memStore

	businessID uuid.UUID
	actorID    uuid.UUID
	standard   model.VATCategory

	sales     service.SaleService
	reversal  service.ReversalService
	credit    service.CreditService
	inventory service.InventoryService
	purchases service.PurchaseService
}

func newEnv(t *testing.T, tweak ...func(*model.Settings)) *env {
	t.Helper()
	st := newMemStore()
	e := &env{
		t:          t,
		ctx:        context.Background(),
		store:      st,
		businessID: uuid.New(),
		actorID:    uuid.New(),
	}

	settings := model.DefaultSettings()
	settings.EnableLowStockAlerts = false
	for _, fn := range tweak {
		fn(&settings)
	}
	require.NoError(t, memBusinesses{st}.Create(e.ctx, &model.Business{
		ID:       e.businessID,
		Name:     "Corner Shop",
		Currency: "KES",
		Settings: settings,
	}))

	e.standard = model.VATCategory{
		ID:         uuid.New(),
		BusinessID: e.businessID,
		Code:       "S",
		Name:       "Standard",
		Type:       "standard",
		Rate:       d("16"),
		IsActive:   true,
	}
	st.data.categories[e.standard.ID] = e.standard

	tx := memTx{st}
	inv := service.NewInventoryService(tx, memProducts{st}, memMovements{st}, memBusinesses{st}, nil)
	e.inventory = inv
	e.sales = service.NewSaleService(tx, memSales{st}, memProducts{st}, memCustomers{st}, memMovements{st}, memBusinesses{st}, inv, nil)
	e.reversal = service.NewReversalService(tx, memSales{st}, memProducts{st}, memCustomers{st}, memMovements{st}, memCredit{st}, inv)
	e.credit = service.NewCreditService(tx, memCustomers{st}, memSales{st}, memCredit{st}, nil)
	e.purchases = service.NewPurchaseService(tx, memPurchases{st}, memProducts{st}, inv)
	return e
}

// product seeds a product whose opening stock is booked as a purchase movement
// so the cached counter always equals the ledger sum.
func (e *env) product(name, price string, stock int, category *model.VATCategory) model.Product {
	e.t.Helper()
	p := model.Product{
		ID:         uuid.New(),
		BusinessID: e.businessID,
		Name:       name,
		UnitPrice:  d(price),
		Unit:       "pcs",
		IsActive:   true,
	}
	if category != nil {
		p.VATCategoryID = &category.ID
	}
	require.NoError(e.t, memProducts{e.store}.Create(e.ctx, &p))
	if stock != 0 {
		_, err := e.inventory.AdjustInventory(e.ctx, e.businessID, e.actorID, dto.AdjustInventoryRequest{
			ProductID:       p.ID.String(),
			Quantity:        stock,
			TransactionType: model.MoveAdjustment,
			Reference:       "opening",
		})
		require.NoError(e.t, err)
	}
	return p
}

func (e *env) customer(limit string) model.Customer {
	e.t.Helper()
	c := model.Customer{
		ID:          uuid.New(),
		BusinessID:  e.businessID,
		FirstName:   "Wanjiru",
		LastName:    "Kamau",
		CreditLimit: d(limit),
	}
	require.NoError(e.t, memCustomers{e.store}.Create(e.ctx, &c))
	return c
}

func (e *env) stock(id uuid.UUID) int {
	e.t.Helper()
	p, err := memProducts{e.store}.FindByID(e.ctx, e.businessID, id)
	require.NoError(e.t, err)
	return p.StockQuantity
}

func (e *env) ledgerSum(id uuid.UUID) int {
	sum := 0
	for _, mv := range e.store.movementsFor(id) {
		sum += mv.Quantity
	}
	return sum
}

func (e *env) debt(id uuid.UUID) decimal.Decimal {
	e.t.Helper()
	c, err := memCustomers{e.store}.FindByID(e.ctx, e.businessID, id)
	require.NoError(e.t, err)
	return c.CurrentDebt
}

func (e *env) points(id uuid.UUID) decimal.Decimal {
	e.t.Helper()
	c, err := memCustomers{e.store}.FindByID(e.ctx, e.businessID, id)
	require.NoError(e.t, err)
	return c.LoyaltyPoints
}

func (e *env) setPoints(id uuid.UUID, pts string) {
	e.t.Helper()
	c, err := memCustomers{e.store}.FindByID(e.ctx, e.businessID, id)
	require.NoError(e.t, err)
	require.NoError(e.t, memCustomers{e.store}.UpdateBalancesTx(e.ctx, nil, id, c.CurrentDebt, d(pts)))
}

type line struct {
	product model.Product
	qty     int
}

func (e *env) saleReq(method string, customer *model.Customer, lines ...line) dto.ProcessSaleRequest {
	req := dto.ProcessSaleRequest{PaymentMethod: method}
	if customer != nil {
		req.CustomerID = ptr(customer.ID.String())
	}
	for _, l := range lines {
		req.Items = append(req.Items, dto.SaleItemRequest{ProductID: l.product.ID.String(), Quantity: l.qty})
	}
	return req
}

func (e *env) mustSell(req dto.ProcessSaleRequest) *dto.SaleResponse {
	e.t.Helper()
	resp, err := e.sales.ProcessSale(e.ctx, e.businessID, e.actorID, req)
	require.NoError(e.t, err)
	return resp
}

func (e *env) counts() (sales, movements, payments, notes int) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return len(e.store.data.sales), len(e.store.data.movements), len(e.store.data.payments), len(e.store.data.creditNotes)
}

func saleID(t *testing.T, resp *dto.SaleResponse) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(resp.ID)
	require.NoError(t, err)
	return id
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Equal(t, d(want).StringFixed(2), got.StringFixed(2), msgAndArgs...)
}
