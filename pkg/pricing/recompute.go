package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDebounce is the quiet period applied between the last amount
// keystroke and quote recomputation.
const DefaultDebounce = time.Second

// QuoteFunc produces a quote for an amount. Implementations may price locally
// via Compute or call a remote pricing endpoint; either way the Recomputer
// discards results that arrive after a newer amount superseded the request.
type QuoteFunc func(ctx context.Context, amount string) (*Quote, error)

// ApplyFunc receives the outcome of a recomputation that survived both the
// debounce window and the stale-response check.
type ApplyFunc func(amount string, quote *Quote, err error)

// RecomputerOption customises a Recomputer.
type RecomputerOption func(*Recomputer)

// WithDebounce overrides the default quiet period.
func WithDebounce(d time.Duration) RecomputerOption {
	return func(r *Recomputer) {
		if d > 0 {
			r.delay = d
		}
	}
}

// Recomputer debounces amount changes and recomputes quotes with
// last-writer-wins semantics. Every Update supersedes earlier scheduled or
// in-flight recomputations via a monotonically increasing token, so a late
// response for an old amount can never overwrite a newer quote. Safe for
// concurrent use.
type Recomputer struct {
	mu       sync.Mutex
	delay    time.Duration
	quote    QuoteFunc
	apply    ApplyFunc
	timer    *time.Timer
	token    uint64
	pending  string
	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool
	inFlight sync.WaitGroup
}

// NewRecomputer builds a Recomputer around a quote source and an apply sink.
func NewRecomputer(quote QuoteFunc, apply ApplyFunc, options ...RecomputerOption) *Recomputer {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Recomputer{
		delay:  DefaultDebounce,
		quote:  quote,
		apply:  apply,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Update records a new amount keystroke. The recomputation is scheduled after
// the quiet period; any earlier pending or in-flight recomputation is
// superseded.
func (r *Recomputer) Update(amount string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.pending = amount
	r.token++
	token := r.token
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.delay, func() {
		r.fire(token)
	})
}

// Flush recomputes immediately with the latest amount, cancelling any pending
// debounce. Used when the caller needs a fresh quote now (for example the
// preview gate) rather than after the quiet period.
func (r *Recomputer) Flush(ctx context.Context) (*Quote, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ctx.Err()
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.token++
	token := r.token
	amount := r.pending
	r.inFlight.Add(1)
	r.mu.Unlock()
	defer r.inFlight.Done()

	quote, err := r.quote(ctx, amount)

	r.mu.Lock()
	stale := r.closed || token != r.token
	r.mu.Unlock()
	if stale {
		return nil, context.Canceled
	}
	if r.apply != nil {
		r.apply(amount, quote, err)
	}
	return quote, err
}

// Invalidate supersedes any pending or in-flight recomputation without
// scheduling a new one. Callers use it when a non-amount pricing input (rate,
// fee schedule) changes underneath a scheduled quote.
func (r *Recomputer) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.token++
}

// Close cancels the pending timer, aborts in-flight quote requests, and
// waits for any recomputation already past its staleness check to finish.
// No apply callback runs after Close returns.
func (r *Recomputer) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()
	r.cancel()
	r.inFlight.Wait()
}

func (r *Recomputer) fire(token uint64) {
	r.mu.Lock()
	if r.closed || token != r.token {
		r.mu.Unlock()
		return
	}
	amount := r.pending
	ctx := r.ctx
	r.inFlight.Add(1)
	r.mu.Unlock()
	defer r.inFlight.Done()

	quote, err := r.quote(ctx, amount)

	r.mu.Lock()
	stale := r.closed || token != r.token
	r.mu.Unlock()
	if stale {
		return
	}
	if r.apply != nil {
		r.apply(amount, quote, err)
	}
}

// LocalQuoteFunc adapts Compute into a QuoteFunc with fixed rate, fee, and
// direction. It mirrors the screens that price entirely client-side.
func LocalQuoteFunc(rate decimal.Decimal, fee FeeSchedule, direction Direction) QuoteFunc {
	return func(ctx context.Context, amount string) (*Quote, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Compute(amount, rate, fee, direction)
	}
}
