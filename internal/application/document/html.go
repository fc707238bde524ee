package document

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

const invoiceTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Invoice {{.Doc.InvoiceNumber}}</title>
<style>
  body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; margin: 0; }
  header { display: flex; justify-content: space-between; margin-bottom: 24px; }
  h1 { font-size: 22px; margin: 0 0 4px 0; }
  .muted { color: #666; }
  .badge { display: inline-block; padding: 2px 8px; border-radius: 10px; font-size: 11px; text-transform: uppercase; }
  .badge-paid { background: #dcfce7; color: #166534; }
  .badge-pending { background: #fef9c3; color: #854d0e; }
  .badge-overdue { background: #fee2e2; color: #991b1b; }
  .badge-draft { background: #f3f4f6; color: #374151; }
  table { width: 100%; border-collapse: collapse; margin-top: 16px; }
  th, td { padding: 6px 8px; border-bottom: 1px solid #e5e7eb; text-align: left; }
  td.num, th.num { text-align: right; }
  .totals td { border: none; }
  .totals tr:last-child td { font-weight: bold; font-size: 14px; }
  .notes { margin-top: 24px; }
</style>
</head>
<body>
<header>
  <div>
    <h1>{{.Doc.CompanyName}}</h1>
    <div class="muted">Invoice {{.Doc.InvoiceNumber}}</div>
  </div>
  <div>
    <span class="badge badge-{{.Doc.Status}}">{{.Doc.Status}}</span>
    <div>Issued {{.Doc.IssueDate}}</div>
    {{with .Doc.DueDate}}<div>Due {{.}}</div>{{end}}
  </div>
</header>
<section>
  <div class="muted">Bill to</div>
  <strong>{{.Doc.Client.CompanyName}}</strong>
  {{with .Doc.Client.ContactName}}<div>{{.}}</div>{{end}}
  {{with .Doc.Client.Address}}<div>{{.}}</div>{{end}}
  {{with .Doc.Client.Email}}<div>{{.}}</div>{{end}}
  {{with .Doc.Client.Phone}}<div>{{.}}</div>{{end}}
</section>
<table>
  <thead><tr><th>Description</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Amount</th></tr></thead>
  <tbody>
  {{range .Doc.Lines}}<tr><td>{{.Description}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.UnitPrice}}</td><td class="num">{{.LineTotal}}</td></tr>
  {{end}}</tbody>
</table>
<table class="totals">
  <tr><td></td><td class="num">Subtotal</td><td class="num">{{.Doc.Subtotal}}</td></tr>
  <tr><td></td><td class="num">Tax</td><td class="num">{{.Doc.TaxAmount}}</td></tr>
  <tr><td></td><td class="num">Total</td><td class="num">{{.Doc.TotalAmount}}</td></tr>
</table>
{{if .Notes}}<div class="notes"><div class="muted">Notes</div>{{.Notes}}</div>{{end}}
</body>
</html>
`

// HTMLRenderer renders the invoice print model to a standalone HTML page
type HTMLRenderer struct {
	tmpl  *template.Template
	notes *NotesFormatter
}

// NewHTMLRenderer parses the built-in invoice template
func NewHTMLRenderer(notes *NotesFormatter) (*HTMLRenderer, error) {
	tmpl, err := template.New("invoice").Parse(invoiceTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	if notes == nil {
		notes = NewNotesFormatter()
	}
	return &HTMLRenderer{tmpl: tmpl, notes: notes}, nil
}

// Render executes the template
func (r *HTMLRenderer) Render(_ context.Context, doc *InvoiceDocument) ([]byte, error) {
	notes, err := r.notes.Format(doc.Notes)
	if err != nil {
		return nil, fmt.Errorf("format notes: %w", err)
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, struct {
		Doc   *InvoiceDocument
		Notes template.HTML
	}{Doc: doc, Notes: notes}); err != nil {
		return nil, fmt.Errorf("render invoice template: %w", err)
	}
	return buf.Bytes(), nil
}
