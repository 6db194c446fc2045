// Package authorize gates order submission behind a transaction PIN. The
// verification mechanism is an injectable Strategy so production wires the
// remote verifier while tests and development builds supply a static stub;
// there is no ambient bypass value.
package authorize

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
)

// ErrAttemptInFlight is returned when an authorization attempt starts while
// an earlier one is still outstanding.
var ErrAttemptInFlight = errors.New("authorize: attempt already in flight")

// Error reports a failed authorization with a user-facing message. The order
// draft is untouched; the caller returns to PIN entry and may retry.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return "authorize: " + e.Message
}

// Strategy decides whether a transaction PIN authorizes an order.
type Strategy interface {
	Authorize(ctx context.Context, pin string) error
}

// Verifier is the backend seam used by the remote strategy.
type Verifier interface {
	VerifyPIN(ctx context.Context, pin string) (bool, error)
}

type remote struct {
	verifier Verifier
}

// NewRemote builds the production strategy: the PIN is checked against the
// backend, and any mismatch or service failure surfaces as an Error with the
// backend's message when one is available.
func NewRemote(verifier Verifier) Strategy {
	return &remote{verifier: verifier}
}

func (r *remote) Authorize(ctx context.Context, pin string) error {
	if pin == "" {
		return &Error{Message: "enter your transaction PIN"}
	}
	valid, err := r.verifier.VerifyPIN(ctx, pin)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &Error{Message: userMessage(err)}
	}
	if !valid {
		return &Error{Message: "You entered an invalid PIN, please try again"}
	}
	return nil
}

func userMessage(err error) string {
	type messaged interface {
		UserMessage() string
	}
	var m messaged
	if errors.As(err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}
	return "Could not verify your PIN. Please try again"
}

type static struct {
	pin string
}

// NewStatic builds a strategy that authorizes exactly one fixed PIN without a
// remote check. Intended for tests and development wiring only.
func NewStatic(pin string) Strategy {
	return &static{pin: pin}
}

func (s *static) Authorize(_ context.Context, pin string) error {
	if subtle.ConstantTimeCompare([]byte(s.pin), []byte(pin)) != 1 {
		return &Error{Message: "You entered an invalid PIN, please try again"}
	}
	return nil
}

// Gate serializes authorization attempts: a second attempt while one is
// outstanding is rejected rather than queued, mirroring the non-reentrant
// submission rule.
type Gate struct {
	mu       sync.Mutex
	inFlight bool
	strategy Strategy
}

// NewGate wraps a strategy with single-flight semantics.
func NewGate(strategy Strategy) *Gate {
	return &Gate{strategy: strategy}
}

// Authorize runs one attempt through the configured strategy.
func (g *Gate) Authorize(ctx context.Context, pin string) error {
	g.mu.Lock()
	if g.inFlight {
		g.mu.Unlock()
		return ErrAttemptInFlight
	}
	g.inFlight = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inFlight = false
		g.mu.Unlock()
	}()

	if g.strategy == nil {
		return &Error{Message: "no authorization strategy configured"}
	}
	return g.strategy.Authorize(ctx, pin)
}
