package printing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/erp/invoicing/internal/application/document"
	"go.uber.org/zap"
)

// ChromeConfig contains configuration for the Chrome renderer
type ChromeConfig struct {
	// DefaultTimeout bounds one render including browser start-up
	DefaultTimeout time.Duration
	// RemoteURL of a running Chrome DevTools endpoint; empty launches a local browser
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	Page      PageSize
	Margins   Margins
	Logger    *zap.Logger
}

// ChromeRenderer prints the invoice HTML page to PDF through Chrome DevTools
type ChromeRenderer struct {
	config      *ChromeConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer creates the allocator. No browser is started until the
// first render.
func NewChromeRenderer(config *ChromeConfig) (*ChromeRenderer, error) {
	if config == nil {
		config = &ChromeConfig{}
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = defaultRenderTimeout
	}
	if config.Page.Width == 0 || config.Page.Height == 0 {
		config.Page = PageA4
	}
	if config.Margins == (Margins{}) {
		config.Margins = DefaultMargins()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ChromeRenderer{config: config, logger: logger}
	r.initAllocator()
	return r, nil
}

func (r *ChromeRenderer) initAllocator() {
	if r.config.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), r.config.RemoteURL)
		return
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
}

// RenderPDF loads html into a blank tab and prints it. doc is only used for logging.
func (r *ChromeRenderer) RenderPDF(ctx context.Context, doc *document.InvoiceDocument, html []byte) ([]byte, error) {
	if strings.TrimSpace(string(html)) == "" {
		return nil, NewRenderError(ErrCodeInvalidInput, "HTML content is empty", nil)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.config.DefaultTimeout)
	defer cancel()

	// tab lifetime follows the request, the browser outlives it
	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	params := r.printParams()
	var pdfData []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := params.Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("PDF rendering timed out after %v", r.config.DefaultTimeout), err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, NewRenderError(ErrCodeRenderTimeout, "PDF rendering was cancelled", err)
		}
		r.logger.Error("chrome rendering failed", zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "chrome execution failed", err)
	}
	if len(pdfData) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	fields := []zap.Field{zap.Int("bytes", len(pdfData)), zap.Duration("duration", time.Since(start))}
	if doc != nil {
		fields = append(fields, zap.String("invoice_number", doc.InvoiceNumber))
	}
	r.logger.Info("PDF rendered via chrome", fields...)
	return pdfData, nil
}

// printParams converts page size and margins to Chrome's inch-based parameters
func (r *ChromeRenderer) printParams() *page.PrintToPDFParams {
	m := r.config.Margins
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(mmToInches(r.config.Page.Width)).
		WithPaperHeight(mmToInches(r.config.Page.Height)).
		WithMarginTop(mmToInches(m.Top)).
		WithMarginRight(mmToInches(m.Right)).
		WithMarginBottom(mmToInches(m.Bottom)).
		WithMarginLeft(mmToInches(m.Left)).
		WithPreferCSSPageSize(false)
}

// Close shuts the browser down
func (r *ChromeRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

var _ document.PDFRenderer = (*ChromeRenderer)(nil)
