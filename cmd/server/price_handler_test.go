package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockprices/internal/currency"
	"stockprices/internal/pricestore"
	"stockprices/internal/provider"
	"stockprices/internal/quoteservice"
)

type fakeFetcher struct {
	quote *provider.Quote
	calls int
}

func (f *fakeFetcher) Name() string { return "fake" }
func (f *fakeFetcher) Fetch(_ context.Context, _ string) (*provider.Quote, error) {
	f.calls++
	return f.quote, nil
}

func newHandler(t *testing.T, store *pricestore.Memory, f provider.Fetcher) *priceHandler {
	t.Helper()
	chain := provider.NewChain(zerolog.Nop(), f)
	svc := quoteservice.New(store, chain, quoteservice.Config{Logger: zerolog.Nop()})
	return &priceHandler{svc: svc}
}

func TestGetPrice_CachedSymbol(t *testing.T) {
	store := pricestore.NewMemory()
	require.NoError(t, store.Append(context.Background(), "AAPL",
		decimal.RequireFromString("150.50"), time.Now().Add(-time.Hour)))
	fetcher := &fakeFetcher{}
	h := newHandler(t, store, fetcher)

	rr := httptest.NewRecorder()
	h.getPrice(rr, httptest.NewRequest("GET", "/api/price?symbol=aapl", nil))
	require.Equal(t, 200, rr.Code, rr.Body.String())

	var res quoteservice.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.False(t, res.IsError())
	require.Equal(t, "AAPL", res.Quote.Symbol)
	require.True(t, res.Quote.FromCache)
	require.Equal(t, 0, fetcher.calls)
}

func TestGetPrice_TotalMissIs502(t *testing.T) {
	h := newHandler(t, pricestore.NewMemory(), &fakeFetcher{})

	rr := httptest.NewRecorder()
	h.getPrice(rr, httptest.NewRequest("GET", "/api/price?symbol=GONE", nil))
	require.Equal(t, 502, rr.Code)

	var res quoteservice.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.True(t, res.IsError())
	require.Equal(t, "GONE", res.Error.Symbol)
	require.NotEmpty(t, res.Error.Message)
}

func TestGetPrice_MissingSymbolParam(t *testing.T) {
	h := newHandler(t, pricestore.NewMemory(), &fakeFetcher{})
	rr := httptest.NewRecorder()
	h.getPrice(rr, httptest.NewRequest("GET", "/api/price", nil))
	require.Equal(t, 400, rr.Code)
}

func TestGetPrices_GETAndPOST(t *testing.T) {
	store := pricestore.NewMemory()
	require.NoError(t, store.Append(context.Background(), "AAPL",
		decimal.RequireFromString("150.50"), time.Now().Add(-time.Hour)))
	fetcher := &fakeFetcher{quote: &provider.Quote{
		Symbol: "MSFT", Price: decimal.RequireFromString("380.50"), Currency: currency.USD, Source: "fake",
	}}
	h := newHandler(t, store, fetcher)

	rr := httptest.NewRecorder()
	h.getPrices(rr, httptest.NewRequest("GET", "/api/prices?symbols=AAPL,aapl,MSFT", nil))
	require.Equal(t, 200, rr.Code, rr.Body.String())

	var resp pricesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Prices, 2)
	require.True(t, resp.Prices["AAPL"].Quote.FromCache)
	require.False(t, resp.Prices["MSFT"].Quote.FromCache)
	require.Equal(t, 1, fetcher.calls)

	rr = httptest.NewRecorder()
	body := strings.NewReader(`{"symbols":["AAPL"]}`)
	h.getPrices(rr, httptest.NewRequest("POST", "/api/prices", body))
	require.Equal(t, 200, rr.Code, rr.Body.String())
}

func TestGetPrices_BadRequests(t *testing.T) {
	h := newHandler(t, pricestore.NewMemory(), &fakeFetcher{})

	rr := httptest.NewRecorder()
	h.getPrices(rr, httptest.NewRequest("GET", "/api/prices", nil))
	require.Equal(t, 400, rr.Code)

	rr = httptest.NewRecorder()
	h.getPrices(rr, httptest.NewRequest("POST", "/api/prices", strings.NewReader(`{bad`)))
	require.Equal(t, 400, rr.Code)
}

func TestForceRefresh_BypassesCache(t *testing.T) {
	store := pricestore.NewMemory()
	require.NoError(t, store.Append(context.Background(), "AAPL",
		decimal.RequireFromString("150.50"), time.Now().Add(-time.Minute)))
	fetcher := &fakeFetcher{quote: &provider.Quote{
		Symbol: "AAPL", Price: decimal.RequireFromString("151.00"), Currency: currency.USD, Source: "fake",
	}}
	h := newHandler(t, store, fetcher)

	rr := httptest.NewRecorder()
	h.forceRefresh(rr, httptest.NewRequest("POST", "/api/price/refresh?symbol=AAPL", nil))
	require.Equal(t, 200, rr.Code, rr.Body.String())
	require.Equal(t, 1, fetcher.calls)

	var res quoteservice.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.False(t, res.Quote.FromCache)

	rr = httptest.NewRecorder()
	h.forceRefresh(rr, httptest.NewRequest("GET", "/api/price/refresh?symbol=AAPL", nil))
	require.Equal(t, 405, rr.Code)
}

func TestPeekLatest(t *testing.T) {
	store := pricestore.NewMemory()
	require.NoError(t, store.Append(context.Background(), "AAPL",
		decimal.RequireFromString("140.00"), time.Now().Add(-48*time.Hour)))
	fetcher := &fakeFetcher{}
	h := newHandler(t, store, fetcher)

	rr := httptest.NewRecorder()
	h.peekLatest(rr, httptest.NewRequest("GET", "/api/price/peek?symbol=AAPL", nil))
	require.Equal(t, 200, rr.Code, rr.Body.String())
	require.Equal(t, 0, fetcher.calls, "peek must not fetch even for stale data")

	var q quoteservice.PriceQuote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	require.True(t, q.FromCache)

	rr = httptest.NewRecorder()
	h.peekLatest(rr, httptest.NewRequest("GET", "/api/price/peek?symbol=NONE", nil))
	require.Equal(t, 404, rr.Code)
}
