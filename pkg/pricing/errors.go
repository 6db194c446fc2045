package pricing

// Reason classifies why a quote could not be produced.
type Reason string

const (
	ReasonEmptyAmount   Reason = "empty-amount"
	ReasonInvalidAmount Reason = "invalid-amount"
	ReasonInvalidRate   Reason = "invalid-rate"
)

// QuoteError reports an input that prevents pricing. It is recoverable: the
// displayed quote is cleared and the draft stays in the input stage.
type QuoteError struct {
	Reason  Reason
	Message string
}

func (e *QuoteError) Error() string {
	return "pricing: " + e.Message
}
