// Package tui walks a user through an order pipeline on the terminal:
// amount entry, dynamic fields, preview confirmation, PIN authorization, and
// submission, with the pipeline's guards deciding every advance.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-orderflow/pkg/authorize"
	"github.com/goliatone/go-orderflow/pkg/order"
	"github.com/goliatone/go-orderflow/pkg/pricing"
	"github.com/goliatone/go-orderflow/pkg/receipt"
	"github.com/goliatone/go-orderflow/pkg/schema"
)

// Options configures one walkthrough run.
type Options struct {
	Driver   PromptDriver
	Pipeline *order.Pipeline
	Product  order.Product
	// Currency is the local currency code shown next to computed amounts.
	Currency string
	// Renderer defaults to receipt.NewRenderer().
	Renderer *receipt.Renderer
}

// Walkthrough drives one pipeline interactively.
type Walkthrough struct {
	driver   PromptDriver
	pipeline *order.Pipeline
	product  order.Product
	currency string
	renderer *receipt.Renderer
}

// New validates the options and builds a Walkthrough.
func New(opts Options) (*Walkthrough, error) {
	if opts.Driver == nil {
		return nil, ErrDriverRequired
	}
	if opts.Pipeline == nil {
		return nil, errors.New("tui: pipeline is required")
	}
	renderer := opts.Renderer
	if renderer == nil {
		var err error
		renderer, err = receipt.NewRenderer()
		if err != nil {
			return nil, err
		}
	}
	currency := opts.Currency
	if currency == "" {
		currency = "NGN"
	}
	return &Walkthrough{
		driver:   opts.Driver,
		pipeline: opts.Pipeline,
		product:  opts.Product,
		currency: currency,
		renderer: renderer,
	}, nil
}

// Run drives the pipeline to completion or abort. It returns the backend
// result on success; ErrAborted when the user bails out.
func (w *Walkthrough) Run(ctx context.Context) (order.Result, error) {
	for {
		if err := w.collectInput(ctx); err != nil {
			return order.Result{}, err
		}

		proceed, err := w.confirmPreview(ctx)
		if err != nil {
			return order.Result{}, err
		}
		if !proceed {
			if err := w.pipeline.BackToInput(); err != nil {
				return order.Result{}, err
			}
			continue
		}

		result, retry, err := w.authorizeAndSubmit(ctx)
		if err != nil {
			return order.Result{}, err
		}
		if retry {
			continue
		}
		return result, nil
	}
}

// collectInput loops on amount and field entry until the preview gate admits
// the draft.
func (w *Walkthrough) collectInput(ctx context.Context) error {
	for {
		if err := w.promptAmount(ctx); err != nil {
			return err
		}
		if err := w.promptFields(ctx); err != nil {
			return err
		}

		err := w.pipeline.ContinueToPreview()
		if err == nil {
			return nil
		}

		var failure *order.ValidationFailure
		var quoteErr *pricing.QuoteError
		switch {
		case errors.As(err, &failure):
			for _, msg := range failure.Fields {
				if infoErr := w.driver.Info(ctx, msg); infoErr != nil {
					return infoErr
				}
			}
		case errors.As(err, &quoteErr), errors.Is(err, order.ErrQuoteMissing), errors.Is(err, order.ErrQuoteStale):
			if infoErr := w.driver.Info(ctx, "The quote is not ready yet, please re-enter the amount"); infoErr != nil {
				return infoErr
			}
		default:
			return err
		}
	}
}

func (w *Walkthrough) promptAmount(ctx context.Context) error {
	for {
		snap := w.pipeline.Snapshot()
		amount, err := w.driver.Input(ctx, InputConfig{
			Message: fmt.Sprintf("Amount of %s", w.product.Name),
			Default: snap.Amount,
		})
		if err != nil {
			return err
		}
		if err := w.pipeline.SetAmount(amount); err != nil {
			return err
		}

		quote, err := w.pipeline.RefreshQuote(ctx)
		if err != nil {
			var quoteErr *pricing.QuoteError
			if errors.As(err, &quoteErr) {
				if infoErr := w.driver.Info(ctx, quoteErr.Message); infoErr != nil {
					return infoErr
				}
				continue
			}
			return err
		}
		if quote == nil {
			continue
		}
		return w.driver.Info(ctx, fmt.Sprintf("You pay %s %s (fee %s %s)",
			receipt.FormatAmount(quote.TotalAmount), w.currency,
			receipt.FormatAmount(quote.FeeAmount), w.currency))
	}
}

func (w *Walkthrough) promptFields(ctx context.Context) error {
	compiled := w.pipeline.Schema()
	snap := w.pipeline.Snapshot()

	for _, fd := range compiled.Fields() {
		id := fd.ID()
		current, _ := snap.Values[id].(string)

		message := fd.Label
		if fd.Type == schema.FieldTypeFile {
			message = fd.Label + " (file path)"
		}

		rule, _ := compiled.Rule(id)
		value, err := w.driver.Input(ctx, InputConfig{
			Message: message,
			Default: current,
			Validator: func(raw string) error {
				if raw == "" && !fd.Required {
					return nil
				}
				return rule.Validate(fd.Label, raw, raw != "")
			},
		})
		if err != nil {
			return err
		}
		if value == "" && !fd.Required {
			continue
		}
		if err := w.pipeline.SetField(id, value); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walkthrough) confirmPreview(ctx context.Context) (bool, error) {
	summary, err := receipt.BuildSummary(w.product, w.pipeline.Snapshot(), w.pipeline.Schema().Fields(), w.currency)
	if err != nil {
		return false, err
	}
	rendered, err := w.renderer.Preview(summary)
	if err != nil {
		return false, err
	}
	if err := w.driver.Info(ctx, rendered); err != nil {
		return false, err
	}
	return w.driver.Confirm(ctx, ConfirmConfig{Message: "Proceed with this order?", Default: true})
}

// authorizeAndSubmit runs the PIN gate and submission. The bool result asks
// the caller to restart from input after a declined retry or preview edit.
func (w *Walkthrough) authorizeAndSubmit(ctx context.Context) (order.Result, bool, error) {
	for {
		pin, err := w.driver.Password(ctx, InputConfig{Message: "Enter your transaction PIN"})
		if err != nil {
			return order.Result{}, false, err
		}

		err = w.pipeline.Authorize(ctx, pin)
		if err == nil {
			break
		}
		var authErr *authorize.Error
		if errors.As(err, &authErr) {
			if infoErr := w.driver.Info(ctx, authErr.Message); infoErr != nil {
				return order.Result{}, false, infoErr
			}
			continue
		}
		return order.Result{}, false, err
	}

	result, err := w.pipeline.Submit(ctx)
	if err == nil {
		if renderErr := w.showReceipt(ctx, result); renderErr != nil {
			return order.Result{}, false, renderErr
		}
		return result, false, nil
	}

	if infoErr := w.driver.Info(ctx, submitFailureMessage(err)); infoErr != nil {
		return order.Result{}, false, infoErr
	}
	retry, confirmErr := w.driver.Confirm(ctx, ConfirmConfig{Message: "Retry this order?", Default: false})
	if confirmErr != nil {
		return order.Result{}, false, confirmErr
	}
	if !retry {
		return order.Result{}, false, ErrAborted
	}
	if err := w.pipeline.Retry(); err != nil {
		return order.Result{}, false, err
	}

	proceed, err := w.confirmPreview(ctx)
	if err != nil {
		return order.Result{}, false, err
	}
	if !proceed {
		if err := w.pipeline.BackToInput(); err != nil {
			return order.Result{}, false, err
		}
		return order.Result{}, true, nil
	}
	return w.authorizeAndSubmit(ctx)
}

func (w *Walkthrough) showReceipt(ctx context.Context, result order.Result) error {
	summary, err := receipt.BuildSummary(w.product, w.pipeline.Snapshot(), w.pipeline.Schema().Fields(), w.currency)
	if err != nil {
		return err
	}
	footer := result.Message
	if footer == "" {
		footer = "Your order has been completed!"
	}
	rendered, err := w.renderer.Receipt(summary, footer)
	if err != nil {
		return err
	}
	return w.driver.Info(ctx, rendered)
}

func submitFailureMessage(err error) string {
	type messaged interface {
		UserMessage() string
	}
	var m messaged
	if errors.As(err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}
	return "Something went wrong. Please try again"
}
