package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/erp/invoicing/internal/application/browser"
	"github.com/erp/invoicing/internal/application/document"
	eventapp "github.com/erp/invoicing/internal/application/event"
	"github.com/erp/invoicing/internal/application/identity"
	inventoryapp "github.com/erp/invoicing/internal/application/inventory"
	invoiceapp "github.com/erp/invoicing/internal/application/invoice"
	partnerapp "github.com/erp/invoicing/internal/application/partner"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// newRouter builds an engine with request IDs, validator tag names and a
// fixed caller in place of JWT authentication
func newRouter(actor *shared.AuthContext) *gin.Engine {
	middleware.SetupValidator()
	r := gin.New()
	r.Use(middleware.RequestID())
	if actor != nil {
		r.Use(withActor(*actor))
	}
	return r
}

func doJSON(r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type mockRecordBrowser struct{ mock.Mock }

func (m *mockRecordBrowser) Tables() []browser.TableSchema {
	return m.Called().Get(0).([]browser.TableSchema)
}

func (m *mockRecordBrowser) Browse(ctx context.Context, actor shared.AuthContext, table string, q browser.BrowseQuery) (*browser.RenderedTable, error) {
	args := m.Called(ctx, actor, table, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*browser.RenderedTable), args.Error(1)
}

type mockInvoiceService struct{ mock.Mock }

func (m *mockInvoiceService) Create(ctx context.Context, actor shared.AuthContext, req invoiceapp.CreateInvoiceRequest) (*invoiceapp.InvoiceResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoiceapp.InvoiceResponse), args.Error(1)
}

func (m *mockInvoiceService) UpdateHeader(ctx context.Context, actor shared.AuthContext, id uuid.UUID, req invoiceapp.UpdateInvoiceRequest) (*invoiceapp.InvoiceResponse, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoiceapp.InvoiceResponse), args.Error(1)
}

func (m *mockInvoiceService) Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*invoiceapp.InvoiceResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoiceapp.InvoiceResponse), args.Error(1)
}

func (m *mockInvoiceService) GetItems(ctx context.Context, actor shared.AuthContext, id uuid.UUID) ([]invoiceapp.LineItemResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoiceapp.LineItemResponse), args.Error(1)
}

func (m *mockInvoiceService) List(ctx context.Context, actor shared.AuthContext, filter invoiceapp.InvoiceListFilter) ([]invoiceapp.InvoiceResponse, int64, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]invoiceapp.InvoiceResponse), args.Get(1).(int64), args.Error(2)
}

func (m *mockInvoiceService) Preview(ctx context.Context, actor shared.AuthContext, req invoiceapp.PreviewInvoiceRequest) (*invoiceapp.EditorStateResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoiceapp.EditorStateResponse), args.Error(1)
}

type mockDocumentService struct{ mock.Mock }

func (m *mockDocumentService) Render(ctx context.Context, actor shared.AuthContext, id uuid.UUID, format document.Format) (*document.RenderedDocument, error) {
	args := m.Called(ctx, actor, id, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.RenderedDocument), args.Error(1)
}

func (m *mockDocumentService) Archive(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*document.ArchiveResult, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.ArchiveResult), args.Error(1)
}

type mockClientService struct{ mock.Mock }

func (m *mockClientService) Create(ctx context.Context, actor shared.AuthContext, req partnerapp.CreateClientRequest) (*partnerapp.ClientResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partnerapp.ClientResponse), args.Error(1)
}

func (m *mockClientService) Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*partnerapp.ClientResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partnerapp.ClientResponse), args.Error(1)
}

func (m *mockClientService) List(ctx context.Context, actor shared.AuthContext, filter partnerapp.ClientListFilter) ([]partnerapp.ClientResponse, int64, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]partnerapp.ClientResponse), args.Get(1).(int64), args.Error(2)
}

type mockProfileService struct{ mock.Mock }

func (m *mockProfileService) Create(ctx context.Context, tenantID uuid.UUID, req partnerapp.CreateProfileRequest) (*partnerapp.ProfileResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partnerapp.ProfileResponse), args.Error(1)
}

func (m *mockProfileService) Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*partnerapp.ProfileResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partnerapp.ProfileResponse), args.Error(1)
}

func (m *mockProfileService) Me(ctx context.Context, actor shared.AuthContext) (*partnerapp.ProfileResponse, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partnerapp.ProfileResponse), args.Error(1)
}

func (m *mockProfileService) List(ctx context.Context, actor shared.AuthContext, filter partnerapp.ProfileListFilter) ([]partnerapp.ProfileResponse, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]partnerapp.ProfileResponse), args.Error(1)
}

type mockInventoryService struct{ mock.Mock }

func (m *mockInventoryService) Create(ctx context.Context, actor shared.AuthContext, req inventoryapp.CreateInventoryItemRequest) (*inventoryapp.InventoryItemResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.InventoryItemResponse), args.Error(1)
}

func (m *mockInventoryService) Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*inventoryapp.InventoryItemResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.InventoryItemResponse), args.Error(1)
}

func (m *mockInventoryService) List(ctx context.Context, actor shared.AuthContext, filter inventoryapp.InventoryListFilter) (*inventoryapp.InventoryListResult, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.InventoryListResult), args.Error(1)
}

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Login(ctx context.Context, input identity.LoginInput) (*identity.LoginResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.LoginResult), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, input identity.LogoutInput) error {
	return m.Called(ctx, input).Error(0)
}

type mockOutboxService struct{ mock.Mock }

func (m *mockOutboxService) ListDead(ctx context.Context, actor shared.AuthContext, filter eventapp.OutboxFilter) (*eventapp.OutboxListResult, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventapp.OutboxListResult), args.Error(1)
}

func (m *mockOutboxService) Entry(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*eventapp.OutboxEntryDTO, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventapp.OutboxEntryDTO), args.Error(1)
}

func (m *mockOutboxService) Requeue(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*eventapp.OutboxEntryDTO, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventapp.OutboxEntryDTO), args.Error(1)
}

func (m *mockOutboxService) RequeueAll(ctx context.Context, actor shared.AuthContext) (int64, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutboxService) Stats(ctx context.Context, actor shared.AuthContext) (*eventapp.OutboxStatsDTO, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventapp.OutboxStatsDTO), args.Error(1)
}
