package printing

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/erp/invoicing/internal/application/document"
	"github.com/jung-kurt/gofpdf"
)

const (
	fontFamily = "Helvetica"
	lineHeight = 6.0
)

// column widths as fractions of the printable width
var lineColumns = []struct {
	title string
	share float64
	align string
}{
	{"Description", 0.52, "L"},
	{"Qty", 0.12, "R"},
	{"Unit Price", 0.18, "R"},
	{"Total", 0.18, "R"},
}

// NativeRenderer draws invoices with gofpdf using the core Helvetica font.
// Text outside cp1252 is transliterated by gofpdf's translator.
type NativeRenderer struct {
	page     PageSize
	margins  Margins
	compress bool
}

// NewNativeRenderer creates a NativeRenderer
func NewNativeRenderer(size PageSize, margins Margins) *NativeRenderer {
	if size.Width == 0 || size.Height == 0 {
		size = PageA4
	}
	return &NativeRenderer{page: size, margins: margins, compress: true}
}

// RenderPDF draws doc. The HTML page is ignored.
func (r *NativeRenderer) RenderPDF(ctx context.Context, doc *document.InvoiceDocument, _ []byte) ([]byte, error) {
	if doc == nil {
		return nil, NewRenderError(ErrCodeInvalidInput, "document is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeRenderTimeout, "PDF rendering was cancelled", err)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: r.page.Width, Ht: r.page.Height},
	})
	pdf.SetCompression(r.compress)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(r.margins.Left, r.margins.Top, r.margins.Right)
	pdf.SetAutoPageBreak(true, r.margins.Bottom)
	pdf.SetTitle(doc.InvoiceNumber, true)
	pdf.SetCreator(doc.CompanyName, true)
	if !doc.GeneratedAt.IsZero() {
		pdf.SetCreationDate(doc.GeneratedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width := r.page.Width - r.margins.Left - r.margins.Right

	pdf.SetFooterFunc(func() {
		pdf.SetY(-r.margins.Bottom + 4)
		pdf.SetFont(fontFamily, "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 4, tr(doc.InvoiceNumber)+"  page "+strconv.Itoa(pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	r.drawHeader(pdf, tr, doc, width)
	r.drawBillTo(pdf, tr, doc)
	r.drawLines(pdf, tr, doc, width)
	r.drawTotals(pdf, doc, width)
	if strings.TrimSpace(doc.Notes) != "" {
		pdf.Ln(lineHeight)
		pdf.SetFont(fontFamily, "B", 10)
		pdf.CellFormat(0, lineHeight, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 9)
		pdf.MultiCell(0, 5, tr(doc.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "gofpdf output failed", err)
	}
	return buf.Bytes(), nil
}

func (r *NativeRenderer) drawHeader(pdf *gofpdf.Fpdf, tr func(string) string, doc *document.InvoiceDocument, width float64) {
	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(width/2, 10, tr(doc.CompanyName), "", 0, "L", false, 0, "")
	pdf.SetFont(fontFamily, "B", 14)
	pdf.CellFormat(width/2, 10, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont(fontFamily, "", 10)
	meta := []string{doc.InvoiceNumber, "Status: " + strings.ToUpper(doc.Status), "Issued " + doc.IssueDate}
	if doc.DueDate != "" {
		meta = append(meta, "Due "+doc.DueDate)
	}
	for _, m := range meta {
		pdf.CellFormat(width, 5, tr(m), "", 1, "R", false, 0, "")
	}
	pdf.Ln(lineHeight)
}

func (r *NativeRenderer) drawBillTo(pdf *gofpdf.Fpdf, tr func(string) string, doc *document.InvoiceDocument) {
	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(0, lineHeight, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	c := doc.Client
	for _, s := range []string{c.CompanyName, c.ContactName, c.Email, c.Phone} {
		if s != "" {
			pdf.CellFormat(0, 5, tr(s), "", 1, "L", false, 0, "")
		}
	}
	if c.Address != "" {
		pdf.MultiCell(0, 5, tr(c.Address), "", "L", false)
	}
	pdf.Ln(lineHeight)
}

func (r *NativeRenderer) drawLines(pdf *gofpdf.Fpdf, tr func(string) string, doc *document.InvoiceDocument, width float64) {
	pdf.SetFont(fontFamily, "B", 10)
	pdf.SetFillColor(240, 240, 240)
	for i, col := range lineColumns {
		ln := 0
		if i == len(lineColumns)-1 {
			ln = 1
		}
		pdf.CellFormat(width*col.share, 7, col.title, "B", ln, col.align, true, 0, "")
	}

	pdf.SetFont(fontFamily, "", 10)
	for _, line := range doc.Lines {
		cells := []string{tr(line.Description), strconv.FormatInt(line.Quantity, 10), line.UnitPrice, line.LineTotal}
		for i, col := range lineColumns {
			ln := 0
			if i == len(lineColumns)-1 {
				ln = 1
			}
			pdf.CellFormat(width*col.share, 7, cells[i], "B", ln, col.align, false, 0, "")
		}
	}
	if len(doc.Lines) == 0 {
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(width, 7, "No line items", "B", 1, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
}

func (r *NativeRenderer) drawTotals(pdf *gofpdf.Fpdf, doc *document.InvoiceDocument, width float64) {
	pdf.Ln(2)
	labelWidth := width * 0.82
	rows := []struct {
		label, value string
		bold         bool
	}{
		{"Subtotal", doc.Subtotal, false},
		{"Tax", doc.TaxAmount, false},
		{"Total", doc.TotalAmount, true},
	}
	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont(fontFamily, style, 10)
		pdf.CellFormat(labelWidth, lineHeight, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(width-labelWidth, lineHeight, row.value, "", 1, "R", false, 0, "")
	}
}

// Close is a no-op; the native engine holds no resources
func (r *NativeRenderer) Close() error {
	return nil
}

var _ document.PDFRenderer = (*NativeRenderer)(nil)
