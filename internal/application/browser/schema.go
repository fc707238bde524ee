package browser

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ColumnKind tags how a column's values are rendered
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindIdentity
	KindMoney
	KindDateTime
	KindStatus
)

var kindNames = map[ColumnKind]string{
	KindText:     "text",
	KindIdentity: "identity",
	KindMoney:    "money",
	KindDateTime: "datetime",
	KindStatus:   "status",
}

func (k ColumnKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "text"
}

// MarshalText renders the kind by name in JSON
func (k ColumnKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Column is one displayed field of a table
type Column struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Kind  ColumnKind `json:"kind"`
}

// TableSchema is the ordered column layout of one browsable table
type TableSchema struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Columns []Column `json:"columns"`
}

// Keys returns the column keys in display order
func (s TableSchema) Keys() []string {
	keys := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		keys[i] = c.Key
	}
	return keys
}

// InferKind derives a column kind from its name. Used for tables registered
// by key list only.
func InferKind(name string) ColumnKind {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "amount"), strings.Contains(n, "price"), strings.Contains(n, "total"):
		return KindMoney
	case strings.Contains(n, "date"), strings.HasSuffix(n, "_at"):
		return KindDateTime
	case n == "status":
		return KindStatus
	case n == "id":
		return KindIdentity
	}
	return KindText
}

var titleCaser = cases.Title(language.AmericanEnglish)

// LabelFor turns a snake_case key into a display label
func LabelFor(key string) string {
	if strings.EqualFold(key, "id") {
		return "ID"
	}
	label := titleCaser.String(strings.ReplaceAll(key, "_", " "))
	if strings.HasSuffix(label, " Id") {
		label = strings.TrimSuffix(label, " Id") + " ID"
	}
	return label
}

// Registry maps table names to schemas and remembers registration order
type Registry struct {
	order  []string
	tables map[string]TableSchema
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]TableSchema)}
}

// Register adds or replaces a schema
func (r *Registry) Register(schema TableSchema) {
	if _, exists := r.tables[schema.Name]; !exists {
		r.order = append(r.order, schema.Name)
	}
	r.tables[schema.Name] = schema
}

// RegisterKeys registers a table from bare column keys, inferring each kind
func (r *Registry) RegisterKeys(name, label string, keys ...string) {
	columns := make([]Column, len(keys))
	for i, key := range keys {
		columns[i] = Column{Key: key, Label: LabelFor(key), Kind: InferKind(key)}
	}
	r.Register(TableSchema{Name: name, Label: label, Columns: columns})
}

// Lookup returns the schema for a table name
func (r *Registry) Lookup(name string) (TableSchema, bool) {
	schema, ok := r.tables[name]
	return schema, ok
}

// Tables returns all schemas in registration order
func (r *Registry) Tables() []TableSchema {
	out := make([]TableSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tables[name])
	}
	return out
}

// DefaultRegistry registers the four browsable tables. Password hashes are
// never part of the profiles layout.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TableSchema{
		Name:  "invoices",
		Label: "Invoices",
		Columns: []Column{
			{Key: "id", Label: "ID", Kind: KindIdentity},
			{Key: "invoice_number", Label: "Invoice Number", Kind: KindText},
			{Key: "client_id", Label: "Client ID", Kind: KindText},
			{Key: "issue_date", Label: "Issue Date", Kind: KindDateTime},
			{Key: "due_date", Label: "Due Date", Kind: KindDateTime},
			{Key: "status", Label: "Status", Kind: KindStatus},
			{Key: "subtotal", Label: "Subtotal", Kind: KindMoney},
			{Key: "tax_amount", Label: "Tax Amount", Kind: KindMoney},
			{Key: "total_amount", Label: "Total Amount", Kind: KindMoney},
			{Key: "notes", Label: "Notes", Kind: KindText},
			{Key: "created_at", Label: "Created At", Kind: KindDateTime},
		},
	})
	r.Register(TableSchema{
		Name:  "clients",
		Label: "Clients",
		Columns: []Column{
			{Key: "id", Label: "ID", Kind: KindIdentity},
			{Key: "company_name", Label: "Company Name", Kind: KindText},
			{Key: "contact_name", Label: "Contact Name", Kind: KindText},
			{Key: "email", Label: "Email", Kind: KindText},
			{Key: "phone", Label: "Phone", Kind: KindText},
			{Key: "address", Label: "Address", Kind: KindText},
			{Key: "created_at", Label: "Created At", Kind: KindDateTime},
		},
	})
	r.Register(TableSchema{
		Name:  "profiles",
		Label: "Profiles",
		Columns: []Column{
			{Key: "id", Label: "ID", Kind: KindIdentity},
			{Key: "full_name", Label: "Full Name", Kind: KindText},
			{Key: "email", Label: "Email", Kind: KindText},
			{Key: "role", Label: "Role", Kind: KindText},
			{Key: "created_at", Label: "Created At", Kind: KindDateTime},
		},
	})
	r.Register(TableSchema{
		Name:  "invoice_line_items",
		Label: "Invoice Line Items",
		Columns: []Column{
			{Key: "id", Label: "ID", Kind: KindIdentity},
			{Key: "invoice_id", Label: "Invoice ID", Kind: KindText},
			{Key: "inventory_item_id", Label: "Inventory Item ID", Kind: KindText},
			{Key: "description", Label: "Description", Kind: KindText},
			{Key: "quantity", Label: "Quantity", Kind: KindText},
			{Key: "unit_price", Label: "Unit Price", Kind: KindMoney},
			{Key: "line_total", Label: "Line Total", Kind: KindMoney},
			{Key: "created_at", Label: "Created At", Kind: KindDateTime},
		},
	})
	return r
}
