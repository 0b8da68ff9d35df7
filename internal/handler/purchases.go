package handler

import (
	"net/http"

	"retailpos/internal/dto"
	"retailpos/internal/service"

	"github.com/gin-gonic/gin"
)

type PurchasesHandler struct{ svc service.PurchaseService }

func NewPurchasesHandler(svc service.PurchaseService) *PurchasesHandler {
	return &PurchasesHandler{svc: svc}
}

// Create godoc
// @Summary      Create a purchase order
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CreatePurchaseRequest true "Purchase order"
// @Success      201  {object} dto.PurchaseResponse
// @Router       /v1/purchases [post]
func (h *PurchasesHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	businessID, actorID := identity(c)
	resp, err := h.svc.CreatePurchase(c.Request.Context(), businessID, actorID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// @Summary      Get a purchase order
// @Tags         purchases
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Purchase ID"
// @Success      200 {object} dto.PurchaseResponse
// @Router       /v1/purchases/{id} [get]
func (h *PurchasesHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	businessID, _ := identity(c)
	resp, err := h.svc.GetPurchase(c.Request.Context(), businessID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Receive godoc
// @Summary      Receive goods
// @Description  Books received quantities into stock, capped at what is still outstanding per line.
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                     true "Purchase ID"
// @Param        body body     dto.ReceivePurchaseRequest true "Received quantities"
// @Success      200  {object} dto.PurchaseResponse
// @Failure      422  {object} apierror.APIError
// @Router       /v1/purchases/{id}/receive [post]
func (h *PurchasesHandler) Receive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReceivePurchaseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	businessID, actorID := identity(c)
	resp, err := h.svc.ReceivePurchase(c.Request.Context(), businessID, actorID, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary      Cancel a pending purchase order
// @Tags         purchases
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Purchase ID"
// @Success      200 {object} dto.PurchaseResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/purchases/{id}/cancel [post]
func (h *PurchasesHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	businessID, _ := identity(c)
	resp, err := h.svc.CancelPurchase(c.Request.Context(), businessID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
