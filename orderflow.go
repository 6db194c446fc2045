// Package orderflow assembles the transaction order pipeline from a product
// page: schema compilation, debounced pricing, the order state machine, PIN
// authorization, and multipart submission. The subpackages carry the pieces;
// this package wires them for the common case.
package orderflow

import (
	"context"
	"time"

	"github.com/goliatone/go-orderflow/pkg/authorize"
	"github.com/goliatone/go-orderflow/pkg/backend"
	"github.com/goliatone/go-orderflow/pkg/order"
	"github.com/goliatone/go-orderflow/pkg/pricing"
	"github.com/goliatone/go-orderflow/pkg/schema"
)

// Pipeline drives one order draft through input, preview, authorization, and
// submission.
type Pipeline = order.Pipeline

// Config parameterizes a pipeline instance.
type Config = order.Config

// Product identifies what is being transacted.
type Product = order.Product

// Result is what the backend reports for a submitted order.
type Result = order.Result

// Hooks let UI collaborators react to pipeline transitions.
type Hooks = order.Hooks

// Snapshot is a read-only copy of the draft state.
type Snapshot = order.Snapshot

// Quote is a computed price breakdown for the current amount.
type Quote = pricing.Quote

// FieldDefinition describes one dynamic form field from the product page.
type FieldDefinition = schema.FieldDefinition

// Direction distinguishes buy orders from sell orders.
type Direction = pricing.Direction

const (
	Buy  = pricing.Buy
	Sell = pricing.Sell
)

// Option adjusts the pipeline built by Load.
type Option func(*order.Config)

// WithDebounce overrides the quote recomputation debounce.
func WithDebounce(d time.Duration) Option {
	return func(cfg *order.Config) {
		cfg.Debounce = d
	}
}

// WithHooks installs stage, quote, and success callbacks.
func WithHooks(hooks Hooks) Option {
	return func(cfg *order.Config) {
		cfg.Hooks = hooks
	}
}

// WithStrategy replaces the remote PIN verification strategy. Useful for
// development builds that authorize against a static PIN.
func WithStrategy(strategy authorize.Strategy) Option {
	return func(cfg *order.Config) {
		cfg.Strategy = strategy
	}
}

// WithQuoteFunc delegates pricing to the backend instead of computing
// locally from the product page rate and fee.
func WithQuoteFunc(fn pricing.QuoteFunc) Option {
	return func(cfg *order.Config) {
		cfg.QuoteFunc = fn
	}
}

// Load fetches the product page and opens a pipeline configured from it. The
// returned page carries the limits and display metadata the caller's screen
// needs; the pipeline owns everything transactional.
func Load(ctx context.Context, client *backend.Client, productID string, direction Direction, opts ...Option) (*Pipeline, *backend.ProductPage, error) {
	page, err := client.ProductPage(ctx, productID)
	if err != nil {
		return nil, nil, err
	}

	cfg := order.Config{
		Product: order.Product{
			ID:     page.Product.ID,
			Name:   page.Product.Name,
			Symbol: page.Product.Symbol,
		},
		Rate:      page.Rate,
		Fee:       pricing.FeeSchedule{Percent: page.Fee.Percent, Fixed: page.Fee.Fixed},
		Direction: direction,
		Fields:    page.FormFields,
		Submitter: client,
		Strategy:  authorize.NewRemote(client),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	pipeline, err := order.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, page, nil
}
