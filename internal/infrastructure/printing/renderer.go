package printing

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/invoicing/internal/application/document"
	"github.com/erp/invoicing/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	EngineNative = "native"
	EngineChrome = "chrome"

	defaultRenderTimeout = 30 * time.Second
)

// PageSize is a paper size in millimetres
type PageSize struct {
	Name   string
	Width  float64
	Height float64
}

var (
	PageA4     = PageSize{Name: "A4", Width: 210, Height: 297}
	PageLetter = PageSize{Name: "Letter", Width: 215.9, Height: 279.4}
)

// Margins in millimetres
type Margins struct {
	Top, Right, Bottom, Left float64
}

// DefaultMargins are used by both engines
func DefaultMargins() Margins {
	return Margins{Top: 15, Right: 15, Bottom: 15, Left: 15}
}

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewPDFRenderer builds the engine named by cfg.Engine. Empty means native.
func NewPDFRenderer(cfg config.DocumentConfig, logger *zap.Logger) (document.PDFRenderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EngineNative:
		return NewNativeRenderer(PageA4, DefaultMargins()), nil
	case EngineChrome:
		return NewChromeRenderer(&ChromeConfig{
			RemoteURL:      cfg.ChromeURL,
			DefaultTimeout: cfg.RenderTimeout,
			NoSandbox:      true,
			Logger:         logger,
		})
	default:
		return nil, fmt.Errorf("unknown document engine %q", cfg.Engine)
	}
}

// mmToInches converts millimeters to inches
func mmToInches(mm float64) float64 {
	return mm / 25.4
}
