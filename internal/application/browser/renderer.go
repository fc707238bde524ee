package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DateTimeLayout is the US display layout for timestamps
const DateTimeLayout = "1/2/2006, 3:04:05 PM"

// CellStyle is a presentation hint for front ends
type CellStyle string

const (
	StylePlain     CellStyle = "plain"
	StyleMonoMuted CellStyle = "mono-muted"
	StyleBadge     CellStyle = "badge"
)

// BadgeColor is the colour of a status badge
type BadgeColor string

const (
	BadgeGreen  BadgeColor = "green"
	BadgeYellow BadgeColor = "yellow"
	BadgeRed    BadgeColor = "red"
	BadgeGray   BadgeColor = "gray"
)

// Badge decorates a status cell
type Badge struct {
	Label string     `json:"label"`
	Color BadgeColor `json:"color"`
}

// Cell is one rendered value
type Cell struct {
	Kind  ColumnKind `json:"kind"`
	Text  string     `json:"text"`
	Style CellStyle  `json:"style"`
	Badge *Badge     `json:"badge,omitempty"`
}

// Row is one rendered record
type Row struct {
	ID    string `json:"id,omitempty"`
	Cells []Cell `json:"cells"`
}

// RenderedTable is a schema plus its rendered rows
type RenderedTable struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
	Total   int      `json:"total"`
	Matched int      `json:"matched"`
}

// Renderer formats raw records according to a table schema
type Renderer struct {
	location *time.Location
	printer  *message.Printer
}

// NewRenderer creates a Renderer that shows timestamps in loc.
// A nil loc means UTC.
func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{
		location: loc,
		printer:  message.NewPrinter(language.AmericanEnglish),
	}
}

// Render produces one cell per column per record
func (r *Renderer) Render(schema TableSchema, records []Record) RenderedTable {
	table := RenderedTable{
		Name:    schema.Name,
		Label:   schema.Label,
		Columns: schema.Columns,
		Rows:    make([]Row, len(records)),
		Total:   len(records),
		Matched: len(records),
	}
	for i, record := range records {
		row := Row{ID: Stringify(record["id"]), Cells: make([]Cell, len(schema.Columns))}
		for j, col := range schema.Columns {
			row.Cells[j] = r.RenderCell(col, record[col.Key])
		}
		table.Rows[i] = row
	}
	return table
}

// RenderCell formats a single value for its column. Values that do not
// parse as the column's kind fall back to plain text.
func (r *Renderer) RenderCell(col Column, value any) Cell {
	cell := Cell{Kind: col.Kind, Style: StylePlain}
	if value == nil {
		return cell
	}

	switch col.Kind {
	case KindMoney:
		if d, ok := toDecimal(value); ok {
			cell.Text = r.FormatMoney(d)
			return cell
		}
	case KindDateTime:
		if t, ok := toTime(value); ok {
			cell.Text = t.In(r.location).Format(DateTimeLayout)
			return cell
		}
	case KindStatus:
		label := Stringify(value)
		cell.Text = label
		cell.Style = StyleBadge
		cell.Badge = &Badge{Label: label, Color: StatusColor(label)}
		return cell
	case KindIdentity:
		cell.Text = Stringify(value)
		cell.Style = StyleMonoMuted
		return cell
	}

	cell.Text = Stringify(value)
	return cell
}

// FormatMoney renders d as US currency: $1,234.50 and -$12.00
func (r *Renderer) FormatMoney(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()
	return sign + "$" + r.printer.Sprintf("%d", whole.IntPart()) + fmt.Sprintf(".%02d", cents)
}

// StatusColor maps an invoice status to its badge colour
func StatusColor(status string) BadgeColor {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid":
		return BadgeGreen
	case "pending":
		return BadgeYellow
	case "overdue":
		return BadgeRed
	}
	return BadgeGray
}
