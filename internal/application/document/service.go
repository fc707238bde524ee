package document

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/erp/invoicing/internal/application/browser"
	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/erp/invoicing/internal/domain/partner"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Format is an output format for Render
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts html or pdf; empty means pdf
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", shared.NewDomainError("INVALID_FORMAT", "Format must be html or pdf")
	}
}

// PDFRenderer produces a PDF for an invoice. html is the rendered HTML page
// for engines that print it; native engines draw from doc directly.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, doc *InvoiceDocument, html []byte) ([]byte, error)
	Close() error
}

// ObjectStorage stores archived documents
type ObjectStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// RenderedDocument is a generated file
type RenderedDocument struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ArchiveResult points to an archived PDF
type ArchiveResult struct {
	StorageKey  string    `json:"storage_key"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DocumentService renders invoices for download and archives them
type DocumentService struct {
	invoiceRepo invoice.InvoiceRepository
	clientRepo  partner.ClientRepository
	html        *HTMLRenderer
	pdf         PDFRenderer
	storage     ObjectStorage
	money       *browser.Renderer
	companyName string
	logger      *zap.Logger
	now         func() time.Time
}

// NewDocumentService creates a DocumentService. pdf and storage may be nil;
// the matching operations then fail with a domain error.
func NewDocumentService(
	invoiceRepo invoice.InvoiceRepository,
	clientRepo partner.ClientRepository,
	html *HTMLRenderer,
	pdf PDFRenderer,
	storage ObjectStorage,
	money *browser.Renderer,
	companyName string,
	logger *zap.Logger,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if money == nil {
		money = browser.NewRenderer(time.UTC)
	}
	if companyName == "" {
		companyName = "Invoicing"
	}
	return &DocumentService{
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		html:        html,
		pdf:         pdf,
		storage:     storage,
		money:       money,
		companyName: companyName,
		logger:      logger,
		now:         time.Now,
	}
}

// Render builds the invoice document in the requested format
func (s *DocumentService) Render(ctx context.Context, actor shared.AuthContext, invoiceID uuid.UUID, format Format) (_ *RenderedDocument, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "render",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, invoiceID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrFormat, string(format)))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if err := actor.Validate(); err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, actor, invoiceID)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceNumber, doc.InvoiceNumber)

	page, err := s.html.Render(ctx, doc)
	if err != nil {
		return nil, err
	}
	if format == FormatHTML {
		return &RenderedDocument{
			Filename:    doc.InvoiceNumber + ".html",
			ContentType: "text/html; charset=utf-8",
			Data:        page,
		}, nil
	}

	if s.pdf == nil {
		return nil, shared.NewDomainError("PDF_UNAVAILABLE", "PDF rendering is not configured")
	}
	start := time.Now()
	data, err := s.pdf.RenderPDF(ctx, doc, page)
	if err != nil {
		s.logger.Error("invoice PDF rendering failed",
			zap.String("invoice_number", doc.InvoiceNumber),
			zap.Error(err))
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	s.logger.Debug("invoice PDF rendered",
		zap.String("invoice_number", doc.InvoiceNumber),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)))

	return &RenderedDocument{
		Filename:    doc.InvoiceNumber + ".pdf",
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

// Archive renders the PDF, stores it and returns a presigned download URL
func (s *DocumentService) Archive(ctx context.Context, actor shared.AuthContext, invoiceID uuid.UUID) (_ *ArchiveResult, err error) {
	if s.storage == nil {
		return nil, shared.NewDomainError("ARCHIVE_UNAVAILABLE", "Document storage is not configured")
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "archive",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, invoiceID.String()))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	rendered, err := s.Render(ctx, actor, invoiceID, FormatPDF)
	if err != nil {
		return nil, err
	}

	key := ArchiveKey(actor.TenantID, invoiceID, rendered.Filename, s.now())
	if err := s.storage.Upload(ctx, key, rendered.Data, rendered.ContentType); err != nil {
		s.logger.Error("invoice archive upload failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("archive invoice: %w", err)
	}
	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, key, 0)
	if err != nil {
		return nil, fmt.Errorf("presign archive: %w", err)
	}

	s.logger.Info("invoice archived",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("key", key))

	return &ArchiveResult{StorageKey: key, DownloadURL: url, ExpiresAt: expiresAt}, nil
}

// ArchiveKey is the object key of an archived invoice: one folder per tenant and
// invoice, one timestamped file per archive run.
func ArchiveKey(tenantID, invoiceID uuid.UUID, filename string, at time.Time) string {
	return path.Join("invoices", tenantID.String(), invoiceID.String(),
		at.UTC().Format("20060102T150405Z")+"-"+filename)
}

func (s *DocumentService) load(ctx context.Context, actor shared.AuthContext, invoiceID uuid.UUID) (*InvoiceDocument, error) {
	inv, err := s.invoiceRepo.FindByIDWithItems(ctx, actor, invoiceID)
	if err != nil {
		return nil, err
	}
	client, err := s.clientRepo.FindByID(ctx, actor, inv.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load client %s: %w", inv.ClientID, err)
	}
	return BuildInvoiceDocument(s.companyName, inv, client, s.money, s.now()), nil
}
