package service_test

import (
	"errors"
	"testing"

	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessSale_TotalsVATAndStock(t *testing.T) {
	e := newEnv(t)
	soda := e.product("Soda 500ml", "116", 10, &e.standard)
	bread := e.product("Bread", "50", 5, nil)

	req := e.saleReq(model.PayCash, nil, line{soda, 2}, line{bread, 1})
	req.DiscountAmount = d("10")
	resp := e.mustSell(req)

	assert.Equal(t, "INV-00000001", resp.InvoiceNumber)
	assert.Equal(t, model.SaleCompleted, resp.Status)
	assertMoney(t, "250", resp.Subtotal)
	assertMoney(t, "32", resp.TaxAmount)
	assertMoney(t, "10", resp.DiscountAmount)
	assertMoney(t, "272", resp.TotalAmount)
	assert.True(t, resp.TotalAmount.Equal(resp.Subtotal.Sub(resp.DiscountAmount).Add(resp.TaxAmount)))

	require.Len(t, resp.Items, 2)
	assertMoney(t, "100", resp.Items[0].UnitPrice)
	assertMoney(t, "16", resp.Items[0].VATAmount)
	assertMoney(t, "116", resp.Items[0].GrossUnitPrice)

	require.Len(t, resp.VATBreakdown, 1)
	assert.Equal(t, "S", resp.VATBreakdown[0].Code)
	assertMoney(t, "32", resp.VATBreakdown[0].VAT)

	assert.Equal(t, 8, e.stock(soda.ID))
	assert.Equal(t, 4, e.stock(bread.ID))
	assert.Equal(t, e.ledgerSum(soda.ID), e.stock(soda.ID))
	assert.Equal(t, e.ledgerSum(bread.ID), e.stock(bread.ID))

	moves := e.store.movementsFor(soda.ID)
	last := moves[len(moves)-1]
	assert.Equal(t, model.MoveSale, last.TransactionType)
	assert.Equal(t, -2, last.Quantity)
	assert.Equal(t, resp.InvoiceNumber, last.Reference)
	require.NotNil(t, last.SaleItemID)
	assert.Equal(t, resp.Items[0].ID, last.SaleItemID.String())
}

func TestProcessSale_InvoiceNumbersIncrease(t *testing.T) {
	e := newEnv(t)
	p := e.product("Pen", "20", 10, nil)
	first := e.mustSell(e.saleReq(model.PayCash, nil, line{p, 1}))
	second := e.mustSell(e.saleReq(model.PayCard, nil, line{p, 1}))
	assert.Equal(t, "INV-00000001", first.InvoiceNumber)
	assert.Equal(t, "INV-00000002", second.InvoiceNumber)
}

func TestProcessSale_SameProductTwice(t *testing.T) {
	e := newEnv(t)
	p := e.product("Pen", "20", 10, nil)
	e.mustSell(e.saleReq(model.PayCash, nil, line{p, 2}, line{p, 3}))

	moves := e.store.movementsFor(p.ID)
	require.Len(t, moves, 3)
	assert.Equal(t, 10, moves[1].StockBefore)
	assert.Equal(t, 8, moves[1].StockAfter)
	assert.Equal(t, 8, moves[2].StockBefore)
	assert.Equal(t, 5, moves[2].StockAfter)
	assert.Equal(t, 5, e.stock(p.ID))
}

func TestProcessSale_VATDisabled(t *testing.T) {
	e := newEnv(t, func(s *model.Settings) { s.EnableVAT = false })
	soda := e.product("Soda 500ml", "116", 10, &e.standard)
	resp := e.mustSell(e.saleReq(model.PayCash, nil, line{soda, 1}))
	assertMoney(t, "116", resp.Subtotal)
	assertMoney(t, "0", resp.TaxAmount)
	assert.Empty(t, resp.VATBreakdown)
}

func TestProcessSale_ExclusivePricing(t *testing.T) {
	e := newEnv(t, func(s *model.Settings) { s.VATInclusivePricing = false })
	soda := e.product("Soda 500ml", "100", 10, &e.standard)
	resp := e.mustSell(e.saleReq(model.PayCash, nil, line{soda, 1}))
	assertMoney(t, "100", resp.Subtotal)
	assertMoney(t, "16", resp.TaxAmount)
	assertMoney(t, "116", resp.TotalAmount)
}

func TestProcessSale_CreditLimitBoundary(t *testing.T) {
	e := newEnv(t)
	soda := e.product("Soda 500ml", "116", 100, &e.standard)

	t.Run("exactly at the limit is accepted", func(t *testing.T) {
		c := e.customer("232")
		resp := e.mustSell(e.saleReq(model.PayCredit, &c, line{soda, 2}))
		require.NotNil(t, resp.CustomerDebt)
		assertMoney(t, "232", *resp.CustomerDebt)
		assertMoney(t, "232", e.debt(c.ID))
	})

	t.Run("one over the limit is rejected with the excess", func(t *testing.T) {
		c := e.customer("231")
		_, err := e.sales.ProcessSale(e.ctx, e.businessID, e.actorID, e.saleReq(model.PayCredit, &c, line{soda, 2}))
		require.ErrorIs(t, err, service.ErrCreditLimitExceeded)
		var limitErr *service.CreditLimitError
		require.True(t, errors.As(err, &limitErr))
		assertMoney(t, "1", limitErr.Excess)
		assertMoney(t, "232", limitErr.WouldBeDebt)
		assertMoney(t, "0", e.debt(c.ID))
	})

	t.Run("override accepts the sale", func(t *testing.T) {
		c := e.customer("231")
		req := e.saleReq(model.PayCredit, &c, line{soda, 2})
		req.CreditOverride = true
		e.mustSell(req)
		assertMoney(t, "232", e.debt(c.ID))
	})
}

func TestProcessSale_CreditRequiresCustomer(t *testing.T) {
	e := newEnv(t)
	p := e.product("Pen", "20", 10, nil)
	_, err := e.sales.ProcessSale(e.ctx, e.businessID, e.actorID, e.saleReq(model.PayCredit, nil, line{p, 1}))
	assert.ErrorIs(t, err, service.ErrCreditCustomerRequired)
}

func TestProcessSale_CashSaleLeavesDebtAlone(t *testing.T) {
	e := newEnv(t)
	p := e.product("Pen", "20", 10, nil)
	c := e.customer("0")
	resp := e.mustSell(e.saleReq(model.PayCash, &c, line{p, 1}))
	assertMoney(t, "0", *resp.CustomerDebt)
	assertMoney(t, "0", e.debt(c.ID))
}

func TestProcessSale_RollbackLeavesNothingBehind(t *testing.T) {
	e := newEnv(t)
	p := e.product("Pen", "20", 10, nil)
	c := e.customer("1000")
	sales, moves, _, _ := e.counts()

	e.store.fail["customers.UpdateBalancesTx"] = errors.New("connection reset")
	_, err := e.sales.ProcessSale(e.ctx, e.businessID, e.actorID, e.saleReq(model.PayCredit, &c, line{p, 3}))
	require.Error(t, err)

	afterSales, afterMoves, _, _ := e.counts()
	assert.Equal(t, sales, afterSales)
	assert.Equal(t, moves, afterMoves)
	assert.Equal(t, 10, e.stock(p.ID))
	assertMoney(t, "0", e.debt(c.ID))
}

func TestProcessSale_Validation(t *testing.T) {
	e := newEnv(t)
	p := e.product("Pen", "20", 10, nil)

	cases := []struct {
		name   string
		mutate func(*dto.ProcessSaleRequest)
		want   error
	}{
		{"empty cart", func(r *dto.ProcessSaleRequest) { r.Items = nil }, service.ErrValidation},
		{"zero quantity", func(r *dto.ProcessSaleRequest) { r.Items[0].Quantity = 0 }, service.ErrValidation},
		{"bad product id", func(r *dto.ProcessSaleRequest) { r.Items[0].ProductID = "nope" }, service.ErrValidation},
		{"unknown product", func(r *dto.ProcessSaleRequest) { r.Items[0].ProductID = "5b1f6a0e-0000-4000-8000-000000000000" }, service.ErrNotFound},
		{"unknown method", func(r *dto.ProcessSaleRequest) { r.PaymentMethod = "barter" }, service.ErrValidation},
		{"negative price override", func(r *dto.ProcessSaleRequest) { r.Items[0].UnitPrice = ptr(d("-1")) }, service.ErrValidation},
		{"discount above total", func(r *dto.ProcessSaleRequest) { r.DiscountAmount = d("20.01") }, service.ErrValidation},
		{"negative discount", func(r *dto.ProcessSaleRequest) { r.DiscountAmount = d("-1") }, service.ErrValidation},
		{"points without customer", func(r *dto.ProcessSaleRequest) { r.LoyaltyPointsUsed = d("1") }, service.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := e.saleReq(model.PayCash, nil, line{p, 1})
			tc.mutate(&req)
			_, err := e.sales.ProcessSale(e.ctx, e.businessID, e.actorID, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, 10, e.stock(p.ID))
}

func TestProcessSale_DiscountEqualToTotal(t *testing.T) {
	e := newEnv(t)
	p := e.product("Pen", "20", 10, nil)
	req := e.saleReq(model.PayCash, nil, line{p, 1})
	req.DiscountAmount = d("20")
	resp := e.mustSell(req)
	assertMoney(t, "0", resp.TotalAmount)
}

func TestProcessSale_PriceOverride(t *testing.T) {
	e := newEnv(t)
	soda := e.product("Soda 500ml", "116", 10, &e.standard)
	req := e.saleReq(model.PayCash, nil, line{soda, 1})
	req.Items[0].UnitPrice = ptr(d("58"))
	resp := e.mustSell(req)
	assertMoney(t, "50", resp.Subtotal)
	assertMoney(t, "8", resp.TaxAmount)
}

func TestProcessSale_NegativeStockPolicy(t *testing.T) {
	t.Run("permissive by default", func(t *testing.T) {
		e := newEnv(t)
		p := e.product("Pen", "20", 1, nil)
		e.mustSell(e.saleReq(model.PayCash, nil, line{p, 2}))
		assert.Equal(t, -1, e.stock(p.ID))
		assert.Equal(t, e.ledgerSum(p.ID), e.stock(p.ID))
	})

	t.Run("enforced", func(t *testing.T) {
		e := newEnv(t, func(s *model.Settings) { s.EnforceNonNegativeStock = true })
		p := e.product("Pen", "20", 1, nil)
		_, err := e.sales.ProcessSale(e.ctx, e.businessID, e.actorID, e.saleReq(model.PayCash, nil, line{p, 2}))
		require.ErrorIs(t, err, service.ErrInsufficientStock)
		var stockErr *service.StockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, 1, stockErr.Available)
		assert.Equal(t, 1, e.stock(p.ID))
		sales, _, _, _ := e.counts()
		assert.Zero(t, sales)
	})
}

func TestProcessSale_Loyalty(t *testing.T) {
	loyal := func(s *model.Settings) {
		s.EnableCustomerLoyalty = true
		s.PointsPerPurchase = d("0.1")
	}

	t.Run("earn and redeem", func(t *testing.T) {
		e := newEnv(t, loyal)
		soda := e.product("Soda 500ml", "116", 10, &e.standard)
		c := e.customer("0")
		e.setPoints(c.ID, "5")

		req := e.saleReq(model.PayCash, &c, line{soda, 1})
		req.LoyaltyPointsUsed = d("2")
		resp := e.mustSell(req)

		assertMoney(t, "11.6", resp.LoyaltyPointsEarned)
		assertMoney(t, "2", resp.LoyaltyPointsUsed)
		assertMoney(t, "14.6", e.points(c.ID))
	})

	t.Run("redeeming more than the balance", func(t *testing.T) {
		e := newEnv(t, loyal)
		p := e.product("Pen", "20", 10, nil)
		c := e.customer("0")
		e.setPoints(c.ID, "1")
		req := e.saleReq(model.PayCash, &c, line{p, 1})
		req.LoyaltyPointsUsed = d("1.01")
		_, err := e.sales.ProcessSale(e.ctx, e.businessID, e.actorID, req)
		assert.ErrorIs(t, err, service.ErrInsufficientLoyaltyPoints)
		assertMoney(t, "1", e.points(c.ID))
	})

	t.Run("program disabled", func(t *testing.T) {
		e := newEnv(t)
		p := e.product("Pen", "20", 10, nil)
		c := e.customer("0")
		req := e.saleReq(model.PayCash, &c, line{p, 1})
		req.LoyaltyPointsUsed = d("1")
		_, err := e.sales.ProcessSale(e.ctx, e.businessID, e.actorID, req)
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("no points earned when disabled", func(t *testing.T) {
		e := newEnv(t)
		p := e.product("Pen", "20", 10, nil)
		c := e.customer("0")
		resp := e.mustSell(e.saleReq(model.PayCash, &c, line{p, 1}))
		assertMoney(t, "0", resp.LoyaltyPointsEarned)
		assertMoney(t, "0", e.points(c.ID))
	})
}

func TestGetAndListSales(t *testing.T) {
	e := newEnv(t)
	p := e.product("Pen", "20", 10, nil)
	c := e.customer("500")
	cash := e.mustSell(e.saleReq(model.PayCash, nil, line{p, 1}))
	e.mustSell(e.saleReq(model.PayCredit, &c, line{p, 2}))

	got, err := e.sales.GetSale(e.ctx, e.businessID, saleID(t, cash))
	require.NoError(t, err)
	assert.Equal(t, cash.InvoiceNumber, got.InvoiceNumber)
	assert.Zero(t, got.Items[0].ReturnedQuantity)

	_, err = e.sales.GetSale(e.ctx, e.businessID, e.actorID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	list, err := e.sales.ListSales(e.ctx, e.businessID, dto.SaleFilter{CustomerID: c.ID.String(), Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, model.PayCredit, list.Data[0].PaymentMethod)

	_, err = e.sales.ListSales(e.ctx, e.businessID, dto.SaleFilter{CustomerID: "x", Page: 1, Limit: 50})
	assert.ErrorIs(t, err, service.ErrValidation)
}
