package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LookupCache is a read-through cache for picker and detail lookups.
// Stock checks during submission never go through it.
type LookupCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// InventoryService handles catalog operations
type InventoryService struct {
	inventoryRepo  inventory.InventoryItemRepository
	cache          LookupCache
	cacheTTL       time.Duration
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(inventoryRepo inventory.InventoryItemRepository, logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		inventoryRepo: inventoryRepo,
		logger:        logger,
	}
}

// SetLookupCache enables caching of Get and List results for ttl
func (s *InventoryService) SetLookupCache(cache LookupCache, ttl time.Duration) {
	s.cache = cache
	s.cacheTTL = ttl
}

// SetEventPublisher sets the publisher for ItemCreated events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// TenantCachePrefix is the key prefix of every cached lookup for a tenant
func TenantCachePrefix(tenantID uuid.UUID) string {
	return "inventory:" + tenantID.String() + ":"
}

func itemCacheKey(tenantID, id uuid.UUID) string {
	return TenantCachePrefix(tenantID) + "item:" + id.String()
}

func listCacheKey(tenantID uuid.UUID, f shared.Filter) string {
	return fmt.Sprintf("%slist:%d:%d:%s:%s:%q:%v:%v",
		TenantCachePrefix(tenantID), f.Page, f.PageSize, f.OrderBy, f.OrderDir, f.Search,
		f.Filters["category"], f.Filters["in_stock"])
}

// Create adds a catalog entry with its opening stock
func (s *InventoryService) Create(ctx context.Context, actor shared.AuthContext, req CreateInventoryItemRequest) (*InventoryItemResponse, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}

	item, err := inventory.NewInventoryItem(actor, req.Name, req.UnitPrice, req.AvailableQuantity)
	if err != nil {
		return nil, err
	}
	if req.Description != "" || req.Category != "" {
		item.SetDetails(req.Description, req.Category)
	}

	if err := s.inventoryRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, actor.TenantID)

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, item.GetDomainEvents()...); err != nil {
			s.logger.Warn("failed to publish inventory events", zap.Error(err))
		}
	}
	item.ClearDomainEvents()

	s.logger.Info("inventory item created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("inventory_item_id", item.ID.String()),
		zap.Int64("available_quantity", item.AvailableQuantity),
	)

	response := ToInventoryItemResponse(item)
	return &response, nil
}

// Get retrieves an item by ID
func (s *InventoryService) Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*InventoryItemResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	key := itemCacheKey(actor.TenantID, id)
	var cached InventoryItemResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	item, err := s.inventoryRepo.FindByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	response := ToInventoryItemResponse(item)
	s.cacheSet(ctx, key, response)
	return &response, nil
}

// List returns a page of items for the picker
func (s *InventoryService) List(ctx context.Context, actor shared.AuthContext, filter InventoryListFilter) (*InventoryListResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	domainFilter.OrderBy = "name"
	domainFilter.OrderDir = "asc"
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search
	if filter.Category != "" {
		domainFilter.Filters["category"] = filter.Category
	}
	if filter.InStock {
		domainFilter.Filters["in_stock"] = true
	}

	key := listCacheKey(actor.TenantID, domainFilter)
	var cached InventoryListResult
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	items, err := s.inventoryRepo.FindAll(ctx, actor, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.inventoryRepo.Count(ctx, actor, domainFilter)
	if err != nil {
		return nil, err
	}

	result := &InventoryListResult{Items: ToInventoryItemResponses(items), Total: total}
	s.cacheSet(ctx, key, result)
	return result, nil
}

// Invalidate drops every cached lookup for the tenant
func (s *InventoryService) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, TenantCachePrefix(tenantID)); err != nil {
		s.logger.Warn("failed to invalidate inventory cache",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}

// cache failures degrade to a database read
func (s *InventoryService) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("inventory cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

func (s *InventoryService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("inventory cache write failed", zap.String("key", key), zap.Error(err))
	}
}
