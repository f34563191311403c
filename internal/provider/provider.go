package provider

import (
	"context"

	"github.com/shopspring/decimal"

	"stockprices/internal/currency"
)

// Quote is the normalized shape returned by all fetchers.
// Price is a decimal to avoid float rounding in financial math downstream.
type Quote struct {
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Currency currency.Code   `json:"currency"`
	Source   string          `json:"source"`
}

// Fetcher is one upstream price source for a single symbol.
// A nil quote with a nil error means the source had no data; an error is
// any transport, HTTP-status, or payload failure. Either way the chain
// moves on to the next tier, so a Fetcher call is strictly one-shot.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (*Quote, error)
}
