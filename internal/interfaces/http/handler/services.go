package handler

import (
	"context"

	"github.com/erp/invoicing/internal/application/browser"
	"github.com/erp/invoicing/internal/application/document"
	eventapp "github.com/erp/invoicing/internal/application/event"
	"github.com/erp/invoicing/internal/application/identity"
	inventoryapp "github.com/erp/invoicing/internal/application/inventory"
	invoiceapp "github.com/erp/invoicing/internal/application/invoice"
	partnerapp "github.com/erp/invoicing/internal/application/partner"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
)

// The handlers depend on these narrow views of the application services.

// RecordBrowser is implemented by *browser.Service
type RecordBrowser interface {
	Tables() []browser.TableSchema
	Browse(ctx context.Context, actor shared.AuthContext, table string, q browser.BrowseQuery) (*browser.RenderedTable, error)
}

// InvoiceService is implemented by *invoiceapp.InvoiceService
type InvoiceService interface {
	Create(ctx context.Context, actor shared.AuthContext, req invoiceapp.CreateInvoiceRequest) (*invoiceapp.InvoiceResponse, error)
	UpdateHeader(ctx context.Context, actor shared.AuthContext, id uuid.UUID, req invoiceapp.UpdateInvoiceRequest) (*invoiceapp.InvoiceResponse, error)
	Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*invoiceapp.InvoiceResponse, error)
	GetItems(ctx context.Context, actor shared.AuthContext, id uuid.UUID) ([]invoiceapp.LineItemResponse, error)
	List(ctx context.Context, actor shared.AuthContext, filter invoiceapp.InvoiceListFilter) ([]invoiceapp.InvoiceResponse, int64, error)
	Preview(ctx context.Context, actor shared.AuthContext, req invoiceapp.PreviewInvoiceRequest) (*invoiceapp.EditorStateResponse, error)
}

// DocumentService is implemented by *document.DocumentService
type DocumentService interface {
	Render(ctx context.Context, actor shared.AuthContext, invoiceID uuid.UUID, format document.Format) (*document.RenderedDocument, error)
	Archive(ctx context.Context, actor shared.AuthContext, invoiceID uuid.UUID) (*document.ArchiveResult, error)
}

// ClientService is implemented by *partnerapp.ClientService
type ClientService interface {
	Create(ctx context.Context, actor shared.AuthContext, req partnerapp.CreateClientRequest) (*partnerapp.ClientResponse, error)
	Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*partnerapp.ClientResponse, error)
	List(ctx context.Context, actor shared.AuthContext, filter partnerapp.ClientListFilter) ([]partnerapp.ClientResponse, int64, error)
}

// ProfileService is implemented by *partnerapp.ProfileService
type ProfileService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req partnerapp.CreateProfileRequest) (*partnerapp.ProfileResponse, error)
	Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*partnerapp.ProfileResponse, error)
	Me(ctx context.Context, actor shared.AuthContext) (*partnerapp.ProfileResponse, error)
	List(ctx context.Context, actor shared.AuthContext, filter partnerapp.ProfileListFilter) ([]partnerapp.ProfileResponse, error)
}

// InventoryService is implemented by *inventoryapp.InventoryService
type InventoryService interface {
	Create(ctx context.Context, actor shared.AuthContext, req inventoryapp.CreateInventoryItemRequest) (*inventoryapp.InventoryItemResponse, error)
	Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*inventoryapp.InventoryItemResponse, error)
	List(ctx context.Context, actor shared.AuthContext, filter inventoryapp.InventoryListFilter) (*inventoryapp.InventoryListResult, error)
}

// AuthService is implemented by *identity.AuthService
type AuthService interface {
	Login(ctx context.Context, input identity.LoginInput) (*identity.LoginResult, error)
	Logout(ctx context.Context, input identity.LogoutInput) error
}

// OutboxService is implemented by *eventapp.OutboxService
type OutboxService interface {
	ListDead(ctx context.Context, actor shared.AuthContext, filter eventapp.OutboxFilter) (*eventapp.OutboxListResult, error)
	Entry(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*eventapp.OutboxEntryDTO, error)
	Requeue(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*eventapp.OutboxEntryDTO, error)
	RequeueAll(ctx context.Context, actor shared.AuthContext) (int64, error)
	Stats(ctx context.Context, actor shared.AuthContext) (*eventapp.OutboxStatsDTO, error)
}

var (
	_ RecordBrowser    = (*browser.Service)(nil)
	_ InvoiceService   = (*invoiceapp.InvoiceService)(nil)
	_ DocumentService  = (*document.DocumentService)(nil)
	_ ClientService    = (*partnerapp.ClientService)(nil)
	_ ProfileService   = (*partnerapp.ProfileService)(nil)
	_ InventoryService = (*inventoryapp.InventoryService)(nil)
	_ AuthService      = (*identity.AuthService)(nil)
	_ OutboxService    = (*eventapp.OutboxService)(nil)
)
