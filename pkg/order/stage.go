package order

import "fmt"

// Stage is where a draft sits in the input → preview → authorize →
// submitting → success/failed walk.
type Stage int

const (
	StageInput Stage = iota
	StagePreview
	StageAuthorize
	StageSubmitting
	StageSuccess
	StageFailed
)

// String returns the stage name used in diagnostics and hooks.
func (s Stage) String() string {
	switch s {
	case StageInput:
		return "input"
	case StagePreview:
		return "preview"
	case StageAuthorize:
		return "authorize"
	case StageSubmitting:
		return "submitting"
	case StageSuccess:
		return "success"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Terminal reports whether the draft is finished. Failed drafts remain
// recoverable via Retry; Success requires a fresh draft for the next order.
func (s Stage) Terminal() bool {
	return s == StageSuccess
}
