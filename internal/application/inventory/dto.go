package inventory

import (
	"time"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInventoryItemRequest represents a request to add a catalog entry
type CreateInventoryItemRequest struct {
	Name              string          `json:"name" binding:"required,min=1,max=200"`
	Description       string          `json:"description" binding:"max=2000"`
	Category          string          `json:"category" binding:"max=100"`
	UnitPrice         decimal.Decimal `json:"unit_price" binding:"required"`
	AvailableQuantity int64           `json:"available_quantity" binding:"min=0"`
}

// InventoryListFilter represents filter options for the item picker
type InventoryListFilter struct {
	Search   string `form:"search"`
	Category string `form:"category" binding:"max=100"`
	InStock  bool   `form:"in_stock"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// InventoryItemResponse represents an inventory item in API responses
type InventoryItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	AvailableQuantity int64           `json:"available_quantity"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// InventoryListResult is one page of items with the total match count
type InventoryListResult struct {
	Items []InventoryItemResponse `json:"items"`
	Total int64                   `json:"total"`
}

// ToInventoryItemResponse converts a domain item to a response
func ToInventoryItemResponse(item *inventory.InventoryItem) InventoryItemResponse {
	return InventoryItemResponse{
		ID:                item.ID,
		TenantID:          item.TenantID,
		Name:              item.Name,
		Description:       item.Description,
		Category:          item.Category,
		UnitPrice:         item.UnitPrice,
		AvailableQuantity: item.AvailableQuantity,
		Version:           item.Version,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}

// ToInventoryItemResponses converts a slice of items
func ToInventoryItemResponses(items []inventory.InventoryItem) []InventoryItemResponse {
	responses := make([]InventoryItemResponse, len(items))
	for i := range items {
		responses[i] = ToInventoryItemResponse(&items[i])
	}
	return responses
}
