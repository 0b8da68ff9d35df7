package handler

import (
	"net/http"

	"retailpos/internal/dto"
	"retailpos/internal/service"

	"github.com/gin-gonic/gin"
)

type CreditHandler struct{ svc service.CreditService }

func NewCreditHandler(svc service.CreditService) *CreditHandler { return &CreditHandler{svc: svc} }

// ReceivePayment godoc
// @Summary      Receive a debt payment
// @Description  Allocates the amount to the targeted invoice first, then FIFO over the customer's other outstanding credit invoices.
// @Tags         credit
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.ReceivePaymentRequest true "Payment"
// @Success      201  {object} dto.PaymentResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/credit/payments [post]
func (h *CreditHandler) ReceivePayment(c *gin.Context) {
	var req dto.ReceivePaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	businessID, actorID := identity(c)
	resp, err := h.svc.ReceivePayment(c.Request.Context(), businessID, actorID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Statement godoc
// @Summary      Customer credit statement
// @Tags         credit
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Customer ID"
// @Success      200 {object} dto.CustomerStatement
// @Router       /v1/customers/{id}/statement [get]
func (h *CreditHandler) Statement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	businessID, _ := identity(c)
	resp, err := h.svc.Statement(c.Request.Context(), businessID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SyncDebt godoc
// @Summary      Recompute customer debt
// @Description  Maintenance: overwrites the cached debt with the value derived from invoices, payments and credit notes.
// @Tags         credit
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Customer ID"
// @Success      200 {object} dto.SyncDebtResponse
// @Router       /v1/customers/{id}/sync-debt [post]
func (h *CreditHandler) SyncDebt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	businessID, _ := identity(c)
	debt, err := h.svc.SyncDebt(c.Request.Context(), businessID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SyncDebtResponse{CustomerID: id.String(), CurrentDebt: debt})
}
