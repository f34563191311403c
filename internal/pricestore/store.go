package pricestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Domain errors surfaced by Store implementations before any I/O.
var (
	ErrEmptySymbol  = errors.New("symbol must not be empty")
	ErrInvalidPrice = errors.New("price must be positive")
)

// Record is one observed price for a symbol. The table is an append log:
// refreshes insert new rows and the newest timestamp per symbol wins on
// read, so no row is ever updated in place.
type Record struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Timestamp time.Time       `json:"timestamp" db:"ts"`
}

// Store reads and appends price records.
//
// Latest returns nil (not an error) when a symbol has no history.
// LatestBatch returns only symbols that have at least one record; absent
// symbols are simply missing from the map.
type Store interface {
	Latest(ctx context.Context, symbol string) (*Record, error)
	LatestBatch(ctx context.Context, symbols []string) (map[string]Record, error)
	Append(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error
}

// Normalize upper-cases and trims a symbol. Stored symbols are always
// normalized so cache reads for "aapl" and "AAPL" hit the same rows.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func validate(symbol string, price decimal.Decimal) error {
	if Normalize(symbol) == "" {
		return ErrEmptySymbol
	}
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}
