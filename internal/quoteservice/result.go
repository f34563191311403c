package quoteservice

import (
	"time"

	"github.com/shopspring/decimal"

	"stockprices/internal/currency"
)

// PriceQuote is a resolved price for one symbol.
//
// FromCache covers both a fresh cache hit and a stale fallback after total
// provider failure; callers cannot currently tell the two apart.
type PriceQuote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Currency  currency.Code   `json:"currency"`
	Timestamp time.Time       `json:"timestamp"`
	FromCache bool            `json:"fromCache"`
}

// PriceError is the only user-visible failure shape. Message is stable and
// generic; provider diagnostics stay in the logs.
type PriceError struct {
	Symbol  string `json:"symbol"`
	Message string `json:"error"`
}

// Result is a tagged union: exactly one of Quote or Error is set.
type Result struct {
	Quote *PriceQuote `json:"quote,omitempty"`
	Error *PriceError `json:"error,omitempty"`
}

func (r Result) IsError() bool { return r.Error != nil }

func quoteResult(q PriceQuote) Result { return Result{Quote: &q} }

func errorResult(sym, msg string) Result {
	return Result{Error: &PriceError{Symbol: sym, Message: msg}}
}
