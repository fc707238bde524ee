package handler

import (
	"net/http"

	inventoryapp "github.com/erp/invoicing/internal/application/inventory"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// InventoryHandler handles inventory item endpoints
type InventoryHandler struct {
	inventory InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventory InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// Create godoc
// @ID           createInventoryItem
// @Summary      Create an inventory item
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.CreateInventoryItemRequest true "Item"
// @Success      201 {object} APIResponse[inventoryapp.InventoryItemResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory [post]
func (h *InventoryHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req inventoryapp.CreateInventoryItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.inventory.Create(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, item)
}

// List godoc
// @ID           listInventoryItems
// @Summary      List inventory items
// @Tags         inventory
// @Produce      json
// @Param        search    query string false "Name or description"
// @Param        category  query string false "Exact category"
// @Param        in_stock  query bool   false "Only items with stock left"
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        order_by  query string false "Sort field"
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]inventoryapp.InventoryItemResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var filter inventoryapp.InventoryListFilter
	if !bindQuery(c, &filter) {
		return
	}
	filter.Page, filter.PageSize = dto.NormalizePage(filter.Page, filter.PageSize)

	result, err := h.inventory.List(c.Request.Context(), actor, filter)
	if err != nil {
		fail(c, err)
		return
	}
	respondPage(c, result.Items, result.Total, filter.Page, filter.PageSize)
}

// Get godoc
// @ID           getInventoryItem
// @Summary      Get an inventory item
// @Tags         inventory
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.InventoryItemResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/{id} [get]
func (h *InventoryHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := h.inventory.Get(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}
