package pricestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Postgres implements Store against a single append-only table.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the price_records table and the index the
// latest-per-symbol reads rely on.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS price_records (
			id     UUID PRIMARY KEY,
			symbol TEXT NOT NULL,
			price  NUMERIC NOT NULL CHECK (price > 0),
			ts     TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS price_records_symbol_ts_idx
			ON price_records (symbol, ts DESC);
	`
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) Latest(ctx context.Context, symbol string) (*Record, error) {
	sym := Normalize(symbol)
	if sym == "" {
		return nil, ErrEmptySymbol
	}

	query := `
		SELECT id, symbol, price, ts
		FROM price_records
		WHERE symbol = $1
		ORDER BY ts DESC
		LIMIT 1
	`

	var rec Record
	err := s.db.QueryRow(ctx, query, sym).Scan(&rec.ID, &rec.Symbol, &rec.Price, &rec.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	return &rec, nil
}

func (s *Postgres) LatestBatch(ctx context.Context, symbols []string) (map[string]Record, error) {
	syms := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		if sym := Normalize(raw); sym != "" {
			syms = append(syms, sym)
		}
	}
	out := make(map[string]Record, len(syms))
	if len(syms) == 0 {
		return out, nil
	}

	query := `
		SELECT DISTINCT ON (symbol) id, symbol, price, ts
		FROM price_records
		WHERE symbol = ANY($1)
		ORDER BY symbol, ts DESC
	`

	rows, err := s.db.Query(ctx, query, syms)
	if err != nil {
		return nil, fmt.Errorf("query latest batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Price, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out[rec.Symbol] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func (s *Postgres) Append(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error {
	if err := validate(symbol, price); err != nil {
		return err
	}

	query := `
		INSERT INTO price_records (id, symbol, price, ts)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.Exec(ctx, query, uuid.New(), Normalize(symbol), price, ts)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}
