// Package order owns the transaction order state machine. One Pipeline is
// instantiated per screen visit with a product configuration and walks a
// single draft from input through preview, authorization, and submission.
// The same parameterized pipeline serves currency exchange, crypto, billing,
// and gift card orders.
package order

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-orderflow/pkg/authorize"
	"github.com/goliatone/go-orderflow/pkg/payload"
	"github.com/goliatone/go-orderflow/pkg/pricing"
	"github.com/goliatone/go-orderflow/pkg/schema"
)

// Product identifies what is being transacted.
type Product struct {
	ID     string
	Name   string
	Symbol string
}

// Result is what the backend reports for a submitted order.
type Result struct {
	Reference string
	Message   string
}

// Submitter executes an encoded order against the backend.
type Submitter interface {
	Submit(ctx context.Context, p *payload.Payload) (Result, error)
}

// Hooks let navigation and UI collaborators react to the pipeline without
// the pipeline knowing about screens. All hooks run outside internal locks.
type Hooks struct {
	// OnStageChange fires on every stage transition.
	OnStageChange func(Stage)
	// OnQuote fires when a debounced recomputation lands, with either a
	// fresh quote or the error that cleared it.
	OnQuote func(quote *pricing.Quote, err error)
	// OnSuccess fires exactly once when the backend accepts the order.
	OnSuccess func(Result)
}

// Config parameterizes one pipeline instance.
type Config struct {
	Product   Product
	Rate      decimal.Decimal
	Fee       pricing.FeeSchedule
	Direction pricing.Direction
	Fields    []schema.FieldDefinition

	Submitter Submitter
	Strategy  authorize.Strategy

	// Encoder defaults to payload.NewEncoder().
	Encoder *payload.Encoder
	// QuoteFunc defaults to local pricing from Rate, Fee, and Direction.
	// Supply a remote implementation when the backend owns pricing; its
	// quotes are then checked against the drafted amount and Direction
	// only, since the live rate may drift from the product-page Rate.
	QuoteFunc pricing.QuoteFunc
	// Debounce defaults to pricing.DefaultDebounce.
	Debounce time.Duration

	Hooks Hooks
}

type draft struct {
	reference string
	amount    string
	values    map[string]any
	quote     *pricing.Quote
	stage     Stage
}

// Snapshot is a read-only copy of the draft state.
type Snapshot struct {
	Reference string
	Amount    string
	Values    map[string]any
	Quote     *pricing.Quote
	Stage     Stage
}

// Pipeline drives one order draft through the stage machine. It is owned by
// the screen instance that created it and is safe for concurrent use, though
// UI callers typically drive it from a single loop.
type Pipeline struct {
	mu            sync.Mutex
	cfg           Config
	compiled      *schema.Compiled
	draft         draft
	recomputer    *pricing.Recomputer
	gate          *authorize.Gate
	encoder       *payload.Encoder
	submitting    bool
	succeeded     bool
	closed        bool
	remotePricing bool
}

// New compiles the product's form schema and opens a fresh draft. A schema
// compilation failure is fatal to the screen, not to a field.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Product.ID == "" {
		return nil, errors.New("order: product id is required")
	}
	if cfg.Submitter == nil {
		return nil, errors.New("order: submitter is required")
	}
	if cfg.Strategy == nil {
		return nil, errors.New("order: authorization strategy is required")
	}

	compiled, err := schema.Compile(cfg.Fields)
	if err != nil {
		return nil, err
	}

	encoder := cfg.Encoder
	if encoder == nil {
		encoder = payload.NewEncoder()
	}

	p := &Pipeline{
		cfg:      cfg,
		compiled: compiled,
		encoder:  encoder,
		gate:     authorize.NewGate(cfg.Strategy),
		draft: draft{
			reference: uuid.NewString(),
			values:    make(map[string]any),
			stage:     StageInput,
		},
	}

	quoteFn := cfg.QuoteFunc
	if quoteFn == nil {
		quoteFn = pricing.LocalQuoteFunc(cfg.Rate, cfg.Fee, cfg.Direction)
	} else {
		p.remotePricing = true
	}
	var recomputerOpts []pricing.RecomputerOption
	if cfg.Debounce > 0 {
		recomputerOpts = append(recomputerOpts, pricing.WithDebounce(cfg.Debounce))
	}
	p.recomputer = pricing.NewRecomputer(quoteFn, p.applyQuote, recomputerOpts...)

	return p, nil
}

// Schema exposes the compiled ruleset so UIs can render inline errors from
// the same source the preview gate consults.
func (p *Pipeline) Schema() *schema.Compiled {
	return p.compiled
}

// Stage returns the current stage.
func (p *Pipeline) Stage() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft.stage
}

// Snapshot copies the current draft state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	values := make(map[string]any, len(p.draft.values))
	for id, value := range p.draft.values {
		values[id] = value
	}
	return Snapshot{
		Reference: p.draft.reference,
		Amount:    p.draft.amount,
		Values:    values,
		Quote:     p.draft.quote,
		Stage:     p.draft.stage,
	}
}

// SetAmount records an amount keystroke. The visible value updates
// immediately; quote recomputation runs after the debounce quiet period.
func (p *Pipeline) SetAmount(amount string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.draft.stage != StageInput {
		stage := p.draft.stage
		p.mu.Unlock()
		return &StageError{Op: "edit the amount", Stage: stage}
	}
	p.draft.amount = amount
	p.draft.quote = nil
	p.mu.Unlock()

	p.recomputer.Update(amount)
	return nil
}

// SetField records a dynamic field value under its sanitized identifier.
func (p *Pipeline) SetField(id string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.draft.stage != StageInput {
		return &StageError{Op: "edit fields", Stage: p.draft.stage}
	}
	if _, ok := p.compiled.Rule(id); !ok {
		return &schema.Error{ID: id, Message: "unknown field identifier " + id}
	}
	p.draft.values[id] = value
	return nil
}

// FieldErrors validates the current values through the compiled schema and
// returns per-identifier messages. This is the same check the preview gate
// runs; the two can never diverge.
func (p *Pipeline) FieldErrors() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.compiled.Validate(p.draft.values)
}

// RefreshQuote recomputes the quote immediately with the current amount,
// bypassing the debounce quiet period.
func (p *Pipeline) RefreshQuote(ctx context.Context) (*pricing.Quote, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.mu.Unlock()
	return p.recomputer.Flush(ctx)
}

// Quote returns the last applied quote, or nil while none is current.
func (p *Pipeline) Quote() *pricing.Quote {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft.quote
}

// ContinueToPreview runs the preview gate: the amount must be a valid
// positive number, the quote must exist and match the exact current inputs,
// and every required field must pass validation. Any failure keeps the draft
// in the input stage.
func (p *Pipeline) ContinueToPreview() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.draft.stage != StageInput {
		stage := p.draft.stage
		p.mu.Unlock()
		return &StageError{Op: "continue to preview", Stage: stage}
	}
	if err := p.previewGuardLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	p.draft.stage = StagePreview
	p.mu.Unlock()

	p.stageChanged(StagePreview)
	return nil
}

// BackToInput cancels the preview, preserving the draft.
func (p *Pipeline) BackToInput() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.draft.stage != StagePreview {
		stage := p.draft.stage
		p.mu.Unlock()
		return &StageError{Op: "return to input", Stage: stage}
	}
	p.draft.stage = StageInput
	p.mu.Unlock()

	p.stageChanged(StageInput)
	return nil
}

// Authorize runs one PIN attempt through the gate. Success advances the
// draft to the submitting stage; failure returns it to preview with the rest
// of the draft untouched, so the user may retry with another PIN.
func (p *Pipeline) Authorize(ctx context.Context, pin string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.draft.stage != StagePreview {
		stage := p.draft.stage
		p.mu.Unlock()
		return &StageError{Op: "authorize", Stage: stage}
	}
	p.draft.stage = StageAuthorize
	p.mu.Unlock()
	p.stageChanged(StageAuthorize)

	err := p.gate.Authorize(ctx, pin)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		p.draft.stage = StagePreview
		p.mu.Unlock()
		p.stageChanged(StagePreview)
		return err
	}
	p.draft.stage = StageSubmitting
	p.mu.Unlock()
	p.stageChanged(StageSubmitting)
	return nil
}

// Submit encodes the draft and sends it. A second call while one submission
// is outstanding is rejected with ErrSubmissionInFlight. Backend acceptance
// finishes the draft; rejection moves it to the recoverable failed stage
// with amount and field values intact.
func (p *Pipeline) Submit(ctx context.Context) (Result, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Result{}, ErrClosed
	}
	if p.draft.stage != StageSubmitting {
		stage := p.draft.stage
		p.mu.Unlock()
		return Result{}, &StageError{Op: "submit", Stage: stage}
	}
	if p.submitting {
		p.mu.Unlock()
		return Result{}, ErrSubmissionInFlight
	}
	p.submitting = true
	in := payload.Input{
		ProductID: p.cfg.Product.ID,
		Amount:    p.draft.amount,
		Fields:    p.compiled.Fields(),
		Values:    p.draft.values,
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.submitting = false
		p.mu.Unlock()
	}()

	encoded, err := p.encoder.Encode(ctx, in)
	if err != nil {
		p.fail()
		return Result{}, err
	}

	result, err := p.cfg.Submitter.Submit(ctx, encoded)
	if err != nil {
		p.fail()
		return Result{}, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Result{}, ErrClosed
	}
	p.draft.stage = StageSuccess
	fireSuccess := !p.succeeded
	p.succeeded = true
	p.mu.Unlock()

	p.stageChanged(StageSuccess)
	if fireSuccess && p.cfg.Hooks.OnSuccess != nil {
		p.cfg.Hooks.OnSuccess(result)
	}
	return result, nil
}

// Retry moves a failed draft back to preview through the same guard the
// original input → preview transition used. Submission retries are always
// user-initiated; the pipeline never resubmits on its own.
func (p *Pipeline) Retry() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.draft.stage != StageFailed {
		stage := p.draft.stage
		p.mu.Unlock()
		return &StageError{Op: "retry", Stage: stage}
	}
	if err := p.previewGuardLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	p.draft.stage = StagePreview
	p.mu.Unlock()

	p.stageChanged(StagePreview)
	return nil
}

// Close tears the pipeline down: the debounce timer is cancelled, in-flight
// quote requests are aborted, and no state update lands afterwards.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.recomputer.Close()
}

// previewGuardLocked is the single validation path admitting a draft to
// preview. Callers hold p.mu.
func (p *Pipeline) previewGuardLocked() error {
	if _, err := pricing.ParseAmount(p.draft.amount); err != nil {
		return err
	}
	if p.draft.quote == nil {
		return ErrQuoteMissing
	}
	if p.remotePricing {
		// A remote pricer owns the rate and fee; only the inputs the
		// draft controls can make its quote stale.
		if !p.draft.quote.MatchesAmount(p.draft.amount, p.cfg.Direction) {
			return ErrQuoteStale
		}
	} else if !p.draft.quote.Matches(p.draft.amount, p.cfg.Rate, p.cfg.Fee, p.cfg.Direction) {
		return ErrQuoteStale
	}
	if problems := p.compiled.Validate(p.draft.values); len(problems) > 0 {
		return &ValidationFailure{Fields: problems}
	}
	return nil
}

func (p *Pipeline) applyQuote(amount string, quote *pricing.Quote, err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if amount != p.draft.amount {
		// A keystroke landed between scheduling and completion; the
		// recomputer will deliver a fresh quote for it.
		p.mu.Unlock()
		return
	}
	if err != nil || quote == nil {
		p.draft.quote = nil
	} else {
		p.draft.quote = quote
	}
	p.mu.Unlock()

	if p.cfg.Hooks.OnQuote != nil {
		p.cfg.Hooks.OnQuote(quote, err)
	}
}

func (p *Pipeline) fail() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.draft.stage = StageFailed
	p.mu.Unlock()
	p.stageChanged(StageFailed)
}

func (p *Pipeline) stageChanged(stage Stage) {
	if p.cfg.Hooks.OnStageChange != nil {
		p.cfg.Hooks.OnStageChange(stage)
	}
}
