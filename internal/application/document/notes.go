package document

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// NotesFormatter renders invoice notes written in Markdown to safe HTML
type NotesFormatter struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewNotesFormatter creates a formatter supporting GitHub-flavoured tables and strikethrough
func NewNotesFormatter() *NotesFormatter {
	return &NotesFormatter{
		md:     goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify)),
		policy: bluemonday.UGCPolicy(),
	}
}

// Format converts notes to sanitized HTML. Raw HTML in the source is stripped.
func (f *NotesFormatter) Format(notes string) (template.HTML, error) {
	if strings.TrimSpace(notes) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := f.md.Convert([]byte(notes), &buf); err != nil {
		return "", err
	}
	// sanitized output is safe to embed unescaped
	return template.HTML(f.policy.SanitizeBytes(buf.Bytes())), nil
}
