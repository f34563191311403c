package pricestore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Memory is an in-process Store used by tests and DB-less runs.
// It keeps the full append log per symbol, same as the table would.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]Record // key: normalized symbol, append order
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string][]Record)}
}

func (m *Memory) Latest(_ context.Context, symbol string) (*Record, error) {
	sym := Normalize(symbol)
	if sym == "" {
		return nil, ErrEmptySymbol
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := latestOf(m.records[sym])
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) LatestBatch(_ context.Context, symbols []string) (map[string]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Record, len(symbols))
	for _, raw := range symbols {
		sym := Normalize(raw)
		if sym == "" {
			continue
		}
		if rec, ok := latestOf(m.records[sym]); ok {
			out[sym] = rec
		}
	}
	return out, nil
}

func (m *Memory) Append(_ context.Context, symbol string, price decimal.Decimal, ts time.Time) error {
	if err := validate(symbol, price); err != nil {
		return err
	}
	sym := Normalize(symbol)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[sym] = append(m.records[sym], Record{
		ID:        uuid.New(),
		Symbol:    sym,
		Price:     price,
		Timestamp: ts,
	})
	return nil
}

// Count reports how many rows exist for a symbol. Test helper.
func (m *Memory) Count(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[Normalize(symbol)])
}

// latestOf picks the max-timestamp row; ties resolve to the later insert.
func latestOf(recs []Record) (Record, bool) {
	if len(recs) == 0 {
		return Record{}, false
	}
	best := recs[0]
	for _, r := range recs[1:] {
		if !r.Timestamp.Before(best.Timestamp) {
			best = r
		}
	}
	return best, true
}
