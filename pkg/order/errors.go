package order

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("order: pipeline is closed")
	// ErrSubmissionInFlight rejects a second submission while one is
	// outstanding; duplicates are refused, never queued.
	ErrSubmissionInFlight = errors.New("order: submission already in flight")
	// ErrQuoteStale blocks preview when the displayed quote no longer matches
	// the current amount, rate, and fee schedule.
	ErrQuoteStale = errors.New("order: quote does not match the current inputs")
	// ErrQuoteMissing blocks preview while no quote has been computed yet.
	ErrQuoteMissing = errors.New("order: no quote for the current amount")
)

// StageError reports an operation invoked from the wrong stage.
type StageError struct {
	Op    string
	Stage Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("order: cannot %s from the %s stage", e.Op, e.Stage)
}

// ValidationFailure aggregates the per-field messages that block the
// input → preview transition. Fields is keyed by sanitized identifier.
type ValidationFailure struct {
	Fields map[string]string
}

func (e *ValidationFailure) Error() string {
	ids := make([]string, 0, len(e.Fields))
	for id := range e.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("order: %d field(s) failed validation: %s", len(ids), strings.Join(ids, ", "))
}
