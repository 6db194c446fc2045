package backend

import (
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-orderflow/pkg/schema"
)

// Product identifies the thing being transacted: a currency, a crypto asset,
// a billing package, a gift card denomination.
type Product struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Logo   string `json:"logo_url"`
}

// FeeInfo is the backend's fee declaration for a product. Percent applies to
// the converted local amount; Fixed is an absolute local-currency amount.
type FeeInfo struct {
	Percent decimal.Decimal `json:"percent"`
	Fixed   decimal.Decimal `json:"fixed"`
}

// Limits bounds the amount a single order may carry. Zero values mean
// unbounded.
type Limits struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// ProductPage is the order-page payload for one product: the product itself,
// its pricing inputs, and the dynamic form fields the backend wants filled.
type ProductPage struct {
	Product    Product                  `json:"product"`
	Rate       decimal.Decimal          `json:"rate"`
	Fee        FeeInfo                  `json:"fee"`
	Limits     Limits                   `json:"limits"`
	FormFields []schema.FieldDefinition `json:"form_fields"`
}

type pinVerifyResponse struct {
	Valid bool `json:"valid"`
}

type submitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
	} `json:"data"`
}
