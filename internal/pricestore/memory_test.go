package pricestore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMemory_LatestPicksNewestRow(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	t1 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)

	require.NoError(t, m.Append(ctx, "AAPL", decimal.RequireFromString("150.50"), t1))
	require.NoError(t, m.Append(ctx, "AAPL", decimal.RequireFromString("151.25"), t2))

	rec, err := m.Latest(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.True(t, rec.Price.Equal(decimal.RequireFromString("151.25")))
	require.True(t, rec.Timestamp.Equal(t2))
	require.Equal(t, 2, m.Count("AAPL"), "append must not replace prior rows")
}

func TestMemory_LatestNormalizesSymbol(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Append(ctx, "aapl", decimal.NewFromInt(100), time.Now()))

	rec, err := m.Latest(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "AAPL", rec.Symbol)
}

func TestMemory_LatestMissingSymbol(t *testing.T) {
	m := NewMemory()
	rec, err := m.Latest(context.Background(), "MSFT")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestMemory_LatestBatch(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	t1 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, m.Append(ctx, "AAPL", decimal.NewFromInt(150), t1))
	require.NoError(t, m.Append(ctx, "AAPL", decimal.NewFromInt(152), t1.Add(time.Hour)))
	require.NoError(t, m.Append(ctx, "MSFT", decimal.NewFromInt(380), t1))

	got, err := m.LatestBatch(ctx, []string{"aapl", "MSFT", "NVDA"})
	require.NoError(t, err)
	require.Len(t, got, 2, "symbols with no history are absent, not errors")
	require.True(t, got["AAPL"].Price.Equal(decimal.NewFromInt(152)))
	require.True(t, got["MSFT"].Price.Equal(decimal.NewFromInt(380)))
	_, ok := got["NVDA"]
	require.False(t, ok)
}

func TestMemory_AppendRejectsBadInput(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.ErrorIs(t, m.Append(ctx, "  ", decimal.NewFromInt(1), time.Now()), ErrEmptySymbol)
	require.ErrorIs(t, m.Append(ctx, "AAPL", decimal.Zero, time.Now()), ErrInvalidPrice)
	require.ErrorIs(t, m.Append(ctx, "AAPL", decimal.NewFromInt(-3), time.Now()), ErrInvalidPrice)
}
