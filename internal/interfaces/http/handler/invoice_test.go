package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/erp/invoicing/internal/application/document"
	invoiceapp "github.com/erp/invoicing/internal/application/invoice"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func invoiceRouter(invoices InvoiceService, documents DocumentService) *gin.Engine {
	actor := testActor()
	r := newRouter(&actor)
	h := NewInvoiceHandler(invoices, documents)
	g := r.Group("/api/v1/invoices")
	g.POST("/preview", h.Preview)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.GET("/:id/items", h.GetItems)
	g.GET("/:id/document", h.Document)
	g.POST("/:id/archive", h.Archive)
	return r
}

func sampleInvoice() *invoiceapp.InvoiceResponse {
	return &invoiceapp.InvoiceResponse{
		ID:            uuid.New(),
		TenantID:      testActor().TenantID,
		ClientID:      uuid.New(),
		InvoiceNumber: "INV-000042",
		IssueDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:        "draft",
		Subtotal:      decimal.RequireFromString("400"),
		TotalAmount:   decimal.RequireFromString("400"),
		Version:       1,
	}
}

func TestInvoiceHandler_Create(t *testing.T) {
	svc := new(mockInvoiceService)
	created := sampleInvoice()
	itemID := uuid.New()
	svc.On("Create", mock.Anything, testActor(), mock.MatchedBy(func(req invoiceapp.CreateInvoiceRequest) bool {
		return req.IdempotencyKey == "retry-7" &&
			req.ClientID == created.ClientID &&
			len(req.Items) == 1 && req.Items[0].InventoryItemID != nil &&
			*req.Items[0].InventoryItemID == itemID && req.Items[0].Quantity == 2
	})).Return(created, nil)

	body := map[string]any{
		"client_id":  created.ClientID,
		"issue_date": "2026-03-01T00:00:00Z",
		"items":      []map[string]any{{"inventory_item_id": itemID, "quantity": 2}},
	}
	w := doJSON(invoiceRouter(svc, nil), http.MethodPost, "/api/v1/invoices", body, IdempotencyKeyHeader, " retry-7 ")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "INV-000042", resp.Data.(map[string]any)["invoice_number"])
	svc.AssertExpectations(t)
}

func TestInvoiceHandler_Create_BindingErrors(t *testing.T) {
	svc := new(mockInvoiceService)
	router := invoiceRouter(svc, nil)

	w := doJSON(router, http.MethodPost, "/api/v1/invoices", map[string]any{
		"client_id":  uuid.New(),
		"issue_date": "2026-03-01T00:00:00Z",
		"items":      []any{},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.NotEmpty(t, resp.Error.Details)
	assert.Equal(t, "items", resp.Error.Details[0].Field)

	w = doJSON(router, http.MethodPost, "/api/v1/invoices", `{"client_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidJSON, decodeResponse(t, w).Error.Code)

	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoiceHandler_LineCountIsBounded(t *testing.T) {
	svc := new(mockInvoiceService)
	router := invoiceRouter(svc, nil)

	itemID := uuid.New()
	items := make([]map[string]any, 101)
	for i := range items {
		items[i] = map[string]any{"inventory_item_id": itemID, "quantity": 1}
	}

	w := doJSON(router, http.MethodPost, "/api/v1/invoices", map[string]any{
		"client_id":  uuid.New(),
		"issue_date": "2026-03-01T00:00:00Z",
		"items":      items,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotEmpty(t, resp.Error.Details)
	assert.Equal(t, "items", resp.Error.Details[0].Field)

	w = doJSON(router, http.MethodPost, "/api/v1/invoices/preview", map[string]any{"lines": items})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp = decodeResponse(t, w)
	require.NotEmpty(t, resp.Error.Details)
	assert.Equal(t, "lines", resp.Error.Details[0].Field)

	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	svc.AssertNotCalled(t, "Preview", mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoiceHandler_Create_OversizedIdempotencyKey(t *testing.T) {
	svc := new(mockInvoiceService)
	key := make([]byte, maxIdempotencyKeyLength+1)
	for i := range key {
		key[i] = 'k'
	}
	w := doJSON(invoiceRouter(svc, nil), http.MethodPost, "/api/v1/invoices", map[string]any{
		"client_id":  uuid.New(),
		"issue_date": "2026-03-01T00:00:00Z",
		"items":      []map[string]any{{"quantity": 1}},
	}, IdempotencyKeyHeader, string(key))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoiceHandler_Create_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"insufficient stock", shared.NewDomainError("INSUFFICIENT_STOCK", "Only 5 units of Steel Beam available"), http.StatusUnprocessableEntity, dto.ErrCodeInsufficientStock},
		{"duplicate request", shared.ErrDuplicateRequest, http.StatusConflict, dto.ErrCodeDuplicateRequest},
		{"missing client", shared.NewDomainError("INVALID_CLIENT", "Selected client does not exist"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"storage failure", errors.New("pq: deadlock detected"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockInvoiceService)
			svc.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			w := doJSON(invoiceRouter(svc, nil), http.MethodPost, "/api/v1/invoices", map[string]any{
				"client_id":  uuid.New(),
				"issue_date": "2026-03-01T00:00:00Z",
				"items":      []map[string]any{{"inventory_item_id": uuid.New(), "quantity": 9}},
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, resp.Error.Message, "deadlock")
			}
		})
	}
}

func TestInvoiceHandler_Preview(t *testing.T) {
	svc := new(mockInvoiceService)
	itemID := uuid.New()
	state := &invoiceapp.EditorStateResponse{
		Lines: []invoiceapp.LineDraftResponse{{
			InventoryItemID: &itemID,
			Description:     "Steel Beam",
			Quantity:        5,
			UnitPrice:       decimal.RequireFromString("100"),
			LineTotal:       decimal.RequireFromString("500"),
		}},
		Subtotal:    decimal.RequireFromString("500"),
		TotalAmount: decimal.RequireFromString("500"),
		Warnings:    []invoiceapp.Notification{{Message: "Only 5 units of Steel Beam available"}},
		Valid:       true,
	}
	svc.On("Preview", mock.Anything, testActor(), mock.MatchedBy(func(req invoiceapp.PreviewInvoiceRequest) bool {
		return len(req.Lines) == 1 && req.Lines[0].Quantity != nil && *req.Lines[0].Quantity == 10
	})).Return(state, nil)

	w := doJSON(invoiceRouter(svc, nil), http.MethodPost, "/api/v1/invoices/preview", map[string]any{
		"lines": []map[string]any{{"inventory_item_id": itemID, "quantity": 10}},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"quantity":5`)
	assert.Contains(t, w.Body.String(), "Only 5 units of Steel Beam available")
}

func TestInvoiceHandler_Update(t *testing.T) {
	svc := new(mockInvoiceService)
	inv := sampleInvoice()
	svc.On("UpdateHeader", mock.Anything, testActor(), inv.ID, mock.MatchedBy(func(req invoiceapp.UpdateInvoiceRequest) bool {
		return req.Status != nil && *req.Status == "paid" && req.Version != nil && *req.Version == 1
	})).Return(inv, nil)

	w := doJSON(invoiceRouter(svc, nil), http.MethodPut, "/api/v1/invoices/"+inv.ID.String(),
		map[string]any{"status": "paid", "version": 1})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(invoiceRouter(svc, nil), http.MethodPut, "/api/v1/invoices/"+inv.ID.String(),
		map[string]any{"status": "void"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(invoiceRouter(svc, nil), http.MethodPut, "/api/v1/invoices/nope", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandler_Update_Conflict(t *testing.T) {
	svc := new(mockInvoiceService)
	id := uuid.New()
	svc.On("UpdateHeader", mock.Anything, mock.Anything, id, mock.Anything).Return(nil, shared.ErrConcurrencyConflict)

	w := doJSON(invoiceRouter(svc, nil), http.MethodPut, "/api/v1/invoices/"+id.String(), map[string]any{"notes": "x"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeConcurrencyConflict, decodeResponse(t, w).Error.Code)
}

func TestInvoiceHandler_List(t *testing.T) {
	svc := new(mockInvoiceService)
	clientID := uuid.New()
	svc.On("List", mock.Anything, testActor(), mock.MatchedBy(func(f invoiceapp.InvoiceListFilter) bool {
		return f.Page == 2 && f.PageSize == 20 && f.Status == "pending" && f.Mine &&
			f.ClientID == clientID.String() &&
			f.IssuedFrom != nil && f.IssuedFrom.Format(time.DateOnly) == "2026-01-01"
	})).Return([]invoiceapp.InvoiceResponse{*sampleInvoice()}, int64(21), nil)

	w := doJSON(invoiceRouter(svc, nil), http.MethodGet,
		"/api/v1/invoices?page=2&status=pending&mine=true&issued_from=2026-01-01&client_id="+clientID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(21), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
}

func TestInvoiceHandler_List_InvalidQuery(t *testing.T) {
	svc := new(mockInvoiceService)
	router := invoiceRouter(svc, nil)

	for _, query := range []string{"status=void", "page_size=1000", "order_dir=sideways", "client_id=42"} {
		w := doJSON(router, http.MethodGet, "/api/v1/invoices?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoiceHandler_GetAndItems(t *testing.T) {
	svc := new(mockInvoiceService)
	inv := sampleInvoice()
	svc.On("Get", mock.Anything, testActor(), inv.ID).Return(inv, nil)
	svc.On("GetItems", mock.Anything, testActor(), inv.ID).Return([]invoiceapp.LineItemResponse{{
		InvoiceID:   inv.ID,
		Description: "Steel Beam",
		Quantity:    4,
		UnitPrice:   decimal.RequireFromString("100"),
		LineTotal:   decimal.RequireFromString("400"),
	}}, nil)
	missing := uuid.New()
	svc.On("Get", mock.Anything, testActor(), missing).Return(nil, shared.ErrNotFound)
	router := invoiceRouter(svc, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/invoices/"+inv.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/invoices/"+inv.ID.String()+"/items", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Steel Beam")

	w = doJSON(router, http.MethodGet, "/api/v1/invoices/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceHandler_Document(t *testing.T) {
	svc := new(mockInvoiceService)
	docs := new(mockDocumentService)
	id := uuid.New()
	docs.On("Render", mock.Anything, testActor(), id, document.FormatPDF).Return(&document.RenderedDocument{
		Filename:    "INV-000042.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4"),
	}, nil)
	docs.On("Render", mock.Anything, testActor(), id, document.FormatHTML).Return(&document.RenderedDocument{
		Filename:    "INV-000042.html",
		ContentType: "text/html; charset=utf-8",
		Data:        []byte("<html></html>"),
	}, nil)
	router := invoiceRouter(svc, docs)

	w := doJSON(router, http.MethodGet, "/api/v1/invoices/"+id.String()+"/document", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=INV-000042.pdf`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", w.Body.String())

	w = doJSON(router, http.MethodGet, "/api/v1/invoices/"+id.String()+"/document?format=html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `inline; filename=INV-000042.html`, w.Header().Get("Content-Disposition"))

	w = doJSON(router, http.MethodGet, "/api/v1/invoices/"+id.String()+"/document?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	docs.AssertNumberOfCalls(t, "Render", 2)
}

func TestInvoiceHandler_DocumentsNotConfigured(t *testing.T) {
	router := invoiceRouter(new(mockInvoiceService), nil)
	id := uuid.New().String()

	w := doJSON(router, http.MethodGet, "/api/v1/invoices/"+id+"/document", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/invoices/"+id+"/archive", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.ErrCodeServiceUnavailable, decodeResponse(t, w).Error.Code)
}

func TestInvoiceHandler_Archive(t *testing.T) {
	docs := new(mockDocumentService)
	id := uuid.New()
	docs.On("Archive", mock.Anything, testActor(), id).Return(&document.ArchiveResult{
		StorageKey:  "invoices/tenant/INV-000042.pdf",
		DownloadURL: "https://storage.example.com/signed",
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil)
	unavailable := uuid.New()
	docs.On("Archive", mock.Anything, testActor(), unavailable).
		Return(nil, shared.NewDomainError("ARCHIVE_UNAVAILABLE", "Object storage is not configured"))
	router := invoiceRouter(new(mockInvoiceService), docs)

	w := doJSON(router, http.MethodPost, "/api/v1/invoices/"+id.String()+"/archive", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "https://storage.example.com/signed")

	w = doJSON(router, http.MethodPost, "/api/v1/invoices/"+unavailable.String()+"/archive", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
