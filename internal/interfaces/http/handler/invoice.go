package handler

import (
	"mime"
	"net/http"
	"strings"

	"github.com/erp/invoicing/internal/application/document"
	invoiceapp "github.com/erp/invoicing/internal/application/invoice"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader carries the client's retry key on invoice creation
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds client-supplied idempotency keys
const maxIdempotencyKeyLength = 255

// InvoiceHandler serves the invoice editor, invoice reads and document export
type InvoiceHandler struct {
	invoices  InvoiceService
	documents DocumentService
}

// NewInvoiceHandler creates a new InvoiceHandler. documents may be nil when
// document export is not configured; its routes then answer 503.
func NewInvoiceHandler(invoices InvoiceService, documents DocumentService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, documents: documents}
}

// Preview godoc
// @ID           previewInvoice
// @Summary      Preview an invoice draft
// @Description  Replays editor lines against current inventory and returns clamped quantities, totals and warnings. Nothing is written.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body invoiceapp.PreviewInvoiceRequest true "Editor draft"
// @Success      200 {object} APIResponse[invoiceapp.EditorStateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/preview [post]
func (h *InvoiceHandler) Preview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req invoiceapp.PreviewInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}

	state, err := h.invoices.Preview(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, state)
}

// Create godoc
// @ID           createInvoice
// @Summary      Submit a new invoice
// @Description  Validates the lines, then writes the invoice and its line items and decrements stock as one unit
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Retry key; a repeated key within its TTL is rejected"
// @Param        request body invoiceapp.CreateInvoiceRequest true "Invoice"
// @Success      201 {object} APIResponse[invoiceapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req invoiceapp.CreateInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		invalid(c, dto.ValidationDetail{
			Field:   IdempotencyKeyHeader,
			Message: "Must be at most 255 characters",
			Tag:     "max",
		})
		return
	}

	inv, err := h.invoices.Create(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, inv)
}

// Update godoc
// @ID           updateInvoice
// @Summary      Edit an invoice header
// @Description  Changes client, dates, notes or status. Line items cannot be edited after submission.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body invoiceapp.UpdateInvoiceRequest true "Header changes"
// @Success      200 {object} APIResponse[invoiceapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id} [put]
func (h *InvoiceHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req invoiceapp.UpdateInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.invoices.UpdateHeader(c.Request.Context(), actor, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, inv)
}

// List godoc
// @ID           listInvoices
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Param        search      query string false "Invoice number or notes"
// @Param        client_id   query string false "Client ID" format(uuid)
// @Param        status      query string false "Status" Enums(draft, pending, paid, overdue)
// @Param        issued_from query string false "Issued on or after (YYYY-MM-DD)"
// @Param        issued_to   query string false "Issued on or before (YYYY-MM-DD)"
// @Param        mine        query bool   false "Only invoices created by the caller"
// @Param        page        query int    false "Page number" default(1)
// @Param        page_size   query int    false "Page size" default(20)
// @Param        order_by    query string false "Sort field"
// @Param        order_dir   query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]invoiceapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var filter invoiceapp.InvoiceListFilter
	if !bindQuery(c, &filter) {
		return
	}
	filter.Page, filter.PageSize = dto.NormalizePage(filter.Page, filter.PageSize)

	invoices, total, err := h.invoices.List(c.Request.Context(), actor, filter)
	if err != nil {
		fail(c, err)
		return
	}
	respondPage(c, invoices, total, filter.Page, filter.PageSize)
}

// Get godoc
// @ID           getInvoice
// @Summary      Get an invoice with its line items
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[invoiceapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.Get(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, inv)
}

// GetItems godoc
// @ID           getInvoiceItems
// @Summary      List an invoice's line items
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[[]invoiceapp.LineItemResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id}/items [get]
func (h *InvoiceHandler) GetItems(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	items, err := h.invoices.GetItems(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

// Document godoc
// @ID           getInvoiceDocument
// @Summary      Download an invoice document
// @Description  Renders the invoice as a printable HTML page or a PDF
// @Tags         invoices
// @Produce      html
// @Produce      application/pdf
// @Param        id     path  string true  "Invoice ID" format(uuid)
// @Param        format query string false "Output format" Enums(pdf, html) default(pdf)
// @Success      200 {file} binary
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id}/document [get]
func (h *InvoiceHandler) Document(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	format, err := document.ParseFormat(c.Query("format"))
	if err != nil {
		fail(c, err)
		return
	}
	if h.documents == nil {
		h.documentsUnavailable(c)
		return
	}

	doc, err := h.documents.Render(c.Request.Context(), actor, id, format)
	if err != nil {
		fail(c, err)
		return
	}
	disposition := "attachment"
	if format == document.FormatHTML {
		disposition = "inline"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": doc.Filename}))
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// Archive godoc
// @ID           archiveInvoice
// @Summary      Archive an invoice PDF
// @Description  Uploads the rendered PDF to object storage and returns a time-limited download link
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      201 {object} APIResponse[document.ArchiveResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id}/archive [post]
func (h *InvoiceHandler) Archive(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if h.documents == nil {
		h.documentsUnavailable(c)
		return
	}

	result, err := h.documents.Archive(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, result)
}

func (h *InvoiceHandler) documentsUnavailable(c *gin.Context) {
	abort(c, dto.GetHTTPStatus(dto.ErrCodeServiceUnavailable), dto.ErrCodeServiceUnavailable, "Document export is not configured")
}
