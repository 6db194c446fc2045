package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Direction distinguishes purchases from sales. Fees are added to the local
// amount on a buy and subtracted on a sell.
type Direction int

const (
	Buy Direction = iota
	Sell
)

// String returns the lowercase direction name.
func (d Direction) String() string {
	if d == Sell {
		return "sell"
	}
	return "buy"
}

// FeeSchedule describes how a product derives its transaction fee. Percent
// applies to the converted local amount; Fixed is an absolute local-currency
// amount. Either or both components may be zero.
type FeeSchedule struct {
	Percent decimal.Decimal
	Fixed   decimal.Decimal
}

// Amount computes the fee for a converted local amount.
func (f FeeSchedule) Amount(local decimal.Decimal) decimal.Decimal {
	pct := local.Mul(f.Percent).Div(decimal.NewFromInt(100))
	return pct.Add(f.Fixed)
}

// Equal reports whether two schedules produce identical fees.
func (f FeeSchedule) Equal(other FeeSchedule) bool {
	return f.Percent.Equal(other.Percent) && f.Fixed.Equal(other.Fixed)
}

// Quote is the priced breakdown for one exact (amount, rate, fee, direction)
// input set. Any change to any input invalidates the quote.
type Quote struct {
	Amount      decimal.Decimal
	Rate        decimal.Decimal
	Fee         FeeSchedule
	Direction   Direction
	LocalAmount decimal.Decimal
	FeeAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// Matches reports whether the quote was produced from exactly these inputs.
// The order pipeline uses this to refuse advancing on a stale quote.
func (q *Quote) Matches(amount string, rate decimal.Decimal, fee FeeSchedule, direction Direction) bool {
	if q == nil {
		return false
	}
	parsed, err := ParseAmount(amount)
	if err != nil {
		return false
	}
	return q.Amount.Equal(parsed) &&
		q.Rate.Equal(rate) &&
		q.Fee.Equal(fee) &&
		q.Direction == direction
}

// MatchesAmount reports whether the quote was produced for this amount and
// direction, without pinning rate or fee. Remote pricers own those inputs,
// so a drifted live rate does not make their quote stale.
func (q *Quote) MatchesAmount(amount string, direction Direction) bool {
	if q == nil {
		return false
	}
	parsed, err := ParseAmount(amount)
	if err != nil {
		return false
	}
	return q.Amount.Equal(parsed) && q.Direction == direction
}

// ParseAmount parses a user-entered amount string. It fails for empty,
// non-numeric, and non-positive input.
func ParseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, &QuoteError{Reason: ReasonEmptyAmount, Message: "amount is empty"}
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, &QuoteError{Reason: ReasonInvalidAmount, Message: "amount is not a number"}
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, &QuoteError{Reason: ReasonInvalidAmount, Message: "amount must be greater than zero"}
	}
	return amount, nil
}

// Compute prices an amount. It returns (nil, nil) for empty input, a
// QuoteError for invalid amounts or rates, and a fresh Quote otherwise.
// Computation is referentially transparent: the same inputs always produce
// the same quote.
func Compute(amount string, rate decimal.Decimal, fee FeeSchedule, direction Direction) (*Quote, error) {
	if strings.TrimSpace(amount) == "" {
		return nil, nil
	}
	parsed, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	if rate.Sign() <= 0 {
		return nil, &QuoteError{Reason: ReasonInvalidRate, Message: "rate is not valid"}
	}

	local := parsed.Mul(rate)
	feeAmount := fee.Amount(local)
	total := local.Add(feeAmount)
	if direction == Sell {
		total = local.Sub(feeAmount)
	}

	return &Quote{
		Amount:      parsed,
		Rate:        rate,
		Fee:         fee,
		Direction:   direction,
		LocalAmount: local,
		FeeAmount:   feeAmount,
		TotalAmount: total,
	}, nil
}
