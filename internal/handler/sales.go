package handler

import (
	"net/http"

	"retailpos/internal/apierror"
	"retailpos/internal/dto"
	"retailpos/internal/middleware"
	"retailpos/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct {
	sales    service.SaleService
	reversal service.ReversalService
}

func NewSalesHandler(sales service.SaleService, reversal service.ReversalService) *SalesHandler {
	return &SalesHandler{sales: sales, reversal: reversal}
}

// ProcessSale godoc
// @Summary      Process a sale
// @Description  Commits a sale atomically: prices and VAT are frozen, stock is decremented through the ledger and credit sales raise customer debt.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.ProcessSaleRequest true "Cart"
// @Success      201  {object} dto.SaleResponse
// @Failure      400  {object} apierror.APIError
// @Failure      409  {object} apierror.CreditLimitError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/sales [post]
func (h *SalesHandler) ProcessSale(c *gin.Context) {
	var req dto.ProcessSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.CreditOverride && !middleware.Can(middleware.Role(middleware.GetClaims(c).Role), middleware.CapCreditOverride) {
		c.JSON(http.StatusForbidden, apierror.New("credit limit override requires a manager"))
		return
	}
	businessID, actorID := identity(c)

	resp, err := h.sales.ProcessSale(c.Request.Context(), businessID, actorID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetSale godoc
// @Summary      Get a sale
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Sale ID"
// @Success      200 {object} dto.SaleResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/sales/{id} [get]
func (h *SalesHandler) GetSale(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	businessID, _ := identity(c)
	resp, err := h.sales.GetSale(c.Request.Context(), businessID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListSales godoc
// @Summary      List sales
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        status      query    string false "Sale status"
// @Param        customer_id query    string false "Customer ID"
// @Param        page        query    int    false "Page"
// @Param        limit       query    int    false "Page size"
// @Success      200         {object} dto.SaleListResponse
// @Router       /v1/sales [get]
func (h *SalesHandler) ListSales(c *gin.Context) {
	var filter dto.SaleFilter
	if !bindQuery(c, &filter) {
		return
	}
	businessID, _ := identity(c)
	resp, err := h.sales.ListSales(c.Request.Context(), businessID, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VoidSale godoc
// @Summary      Void a sale
// @Description  Cancels a completed sale: every line is returned to stock and a credit sale's outstanding debt is released.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string              true "Sale ID"
// @Param        body body     dto.VoidSaleRequest true "Reason"
// @Success      200  {object} dto.SaleResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/sales/{id}/void [post]
func (h *SalesHandler) VoidSale(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.VoidSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	businessID, actorID := identity(c)
	resp, err := h.reversal.VoidSale(c.Request.Context(), businessID, actorID, id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RefundSale godoc
// @Summary      Refund a sale
// @Description  Full refund returns every remaining unit; partial refund returns the listed quantities and issues a credit note.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string            true "Sale ID"
// @Param        body body     dto.RefundRequest true "Refund"
// @Success      200  {object} dto.RefundResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/sales/{id}/refund [post]
func (h *SalesHandler) RefundSale(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RefundRequest
	if !bindAndValidate(c, &req) {
		return
	}
	businessID, actorID := identity(c)
	resp, err := h.reversal.RefundSale(c.Request.Context(), businessID, actorID, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
