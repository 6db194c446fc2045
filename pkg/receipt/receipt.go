// Package receipt renders the read-only order summaries shown at preview and
// after completion. File values are excluded from the human-readable rows but
// remain in the draft for submission.
package receipt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
	gotemplate "github.com/goliatone/go-template"

	"github.com/goliatone/go-orderflow/pkg/order"
	"github.com/goliatone/go-orderflow/pkg/pricing"
	"github.com/goliatone/go-orderflow/pkg/schema"
)

const previewTemplate = `{{ title }}
{% for row in rows %}{{ row.Label }}: {{ row.Value }}
{% endfor %}`

const receiptTemplate = `{{ title }}
Reference: {{ reference }}
{% for row in rows %}{{ row.Label }}: {{ row.Value }}
{% endfor %}{{ footer }}`

// Row is one label/value line in a summary.
type Row struct {
	Label string
	Value string
}

// Summary is the render-ready view of a draft: pricing breakdown first, then
// the scalar dynamic field values in declaration order.
type Summary struct {
	Title     string
	Reference string
	Rows      []Row
}

// Option customises a Renderer.
type Option func(*config)

type config struct {
	previewSource string
	receiptSource string
}

// WithPreviewTemplate overrides the built-in preview template.
func WithPreviewTemplate(source string) Option {
	return func(cfg *config) {
		if strings.TrimSpace(source) != "" {
			cfg.previewSource = source
		}
	}
}

// WithReceiptTemplate overrides the built-in receipt template.
func WithReceiptTemplate(source string) Option {
	return func(cfg *config) {
		if strings.TrimSpace(source) != "" {
			cfg.receiptSource = source
		}
	}
}

// WithEngineOptions exists for backward compatibility with callers that
// configured the go-template engine directly and is currently a no-op.
func WithEngineOptions(_ ...gotemplate.Option) Option {
	return func(*config) {}
}

// Renderer renders summaries through a pongo2 template set.
type Renderer struct {
	preview *pongo2.Template
	receipt *pongo2.Template
}

// NewRenderer compiles the summary templates.
func NewRenderer(options ...Option) (*Renderer, error) {
	cfg := &config{
		previewSource: previewTemplate,
		receiptSource: receiptTemplate,
	}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	preview, err := pongo2.FromString(cfg.previewSource)
	if err != nil {
		return nil, fmt.Errorf("receipt: compile preview template: %w", err)
	}
	receipt, err := pongo2.FromString(cfg.receiptSource)
	if err != nil {
		return nil, fmt.Errorf("receipt: compile receipt template: %w", err)
	}
	return &Renderer{preview: preview, receipt: receipt}, nil
}

// Preview renders the pre-authorization summary.
func (r *Renderer) Preview(s Summary) (string, error) {
	out, err := r.preview.Execute(pongo2.Context{
		"title": s.Title,
		"rows":  s.Rows,
	})
	if err != nil {
		return "", fmt.Errorf("receipt: render preview: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// Receipt renders the post-completion summary.
func (r *Renderer) Receipt(s Summary, footer string) (string, error) {
	out, err := r.receipt.Execute(pongo2.Context{
		"title":     s.Title,
		"reference": s.Reference,
		"rows":      s.Rows,
		"footer":    footer,
	})
	if err != nil {
		return "", fmt.Errorf("receipt: render receipt: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// BuildSummary assembles the summary rows for a draft snapshot: amount and
// quote breakdown first, then each scalar dynamic value under its humanized
// label. File values never appear.
func BuildSummary(product order.Product, snap order.Snapshot, fields []schema.FieldDefinition, currency string) (Summary, error) {
	if snap.Quote == nil {
		return Summary{}, errors.New("receipt: snapshot has no quote")
	}

	verb := "Buy"
	if snap.Quote.Direction == pricing.Sell {
		verb = "Sell"
	}

	rows := []Row{
		{Label: "Amount", Value: snap.Amount + " " + product.Symbol},
		{Label: "Local Amount", Value: FormatAmount(snap.Quote.LocalAmount) + " " + currency},
		{Label: "Transaction Fee", Value: FormatAmount(snap.Quote.FeeAmount) + " " + currency},
		{Label: "Total", Value: FormatAmount(snap.Quote.TotalAmount) + " " + currency},
	}

	for _, fd := range fields {
		if fd.Type == schema.FieldTypeFile {
			continue
		}
		value, ok := snap.Values[fd.ID()]
		if !ok || value == nil {
			continue
		}
		text, ok := value.(string)
		if !ok || text == "" {
			continue
		}
		rows = append(rows, Row{
			Label: HumanizeKey(fd.ID()),
			Value: HumanizeValue(text),
		})
	}

	return Summary{
		Title:     fmt.Sprintf("%s %s", verb, product.Name),
		Reference: snap.Reference,
		Rows:      rows,
	}, nil
}
