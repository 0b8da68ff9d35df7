package handler

import (
	"net/http"

	"retailpos/internal/dto"
	"retailpos/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// AdjustInventory godoc
// @Summary      Record a stock movement
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.AdjustInventoryRequest true "Movement"
// @Success      201  {object} dto.MovementResponse
// @Failure      422  {object} apierror.APIError
// @Router       /v1/inventory/adjustments [post]
func (h *InventoryHandler) AdjustInventory(c *gin.Context) {
	var req dto.AdjustInventoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	businessID, actorID := identity(c)
	resp, err := h.svc.AdjustInventory(c.Request.Context(), businessID, actorID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListMovements godoc
// @Summary      List stock movements
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        product_id query    string false "Product ID"
// @Param        type       query    string false "Movement type"
// @Param        page       query    int    false "Page"
// @Param        limit      query    int    false "Page size"
// @Success      200        {object} dto.MovementListResponse
// @Router       /v1/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	businessID, _ := identity(c)
	resp, err := h.svc.ListMovements(c.Request.Context(), businessID, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RebuildStock godoc
// @Summary      Rebuild cached stock from the ledger
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Product ID"
// @Success      200 {object} dto.RebuildStockResponse
// @Router       /v1/products/{id}/rebuild-stock [post]
func (h *InventoryHandler) RebuildStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	businessID, _ := identity(c)
	resp, err := h.svc.RebuildStock(c.Request.Context(), businessID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
