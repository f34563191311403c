package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"stockprices/internal/currency"
	"stockprices/internal/pricestore"
	"stockprices/internal/provider"
)

type Config struct {
	Name    string
	BaseURL string
	// APIKey is required; wiring skips this tier entirely when it is empty
	// so no request is ever sent without a credential.
	APIKey string
}

// Fetcher is the key-gated secondary tier. The quote endpoint reports no
// currency, so quotes it produces are labeled USD.
type Fetcher struct {
	cfg    Config
	client provider.HTTPClient
}

func New(cfg Config, hc provider.HTTPClient) *Fetcher {
	if cfg.Name == "" {
		cfg.Name = "AlphaVantage"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.alphavantage.co/query"
	}
	return &Fetcher{cfg: cfg, client: hc}
}

func (f *Fetcher) Name() string { return f.cfg.Name }

func (f *Fetcher) Fetch(ctx context.Context, symbol string) (*provider.Quote, error) {
	if f.cfg.APIKey == "" {
		return nil, fmt.Errorf("alphavantage: missing API key")
	}
	sym := pricestore.Normalize(symbol)

	u, err := url.Parse(f.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", sym)
	q.Set("apikey", f.cfg.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s -> %d", f.cfg.BaseURL, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	// Rate limiting and unknown symbols both arrive as HTTP 200 with the
	// "Global Quote" object absent or empty.
	if body.GlobalQuote == nil || body.GlobalQuote.Price == "" {
		return nil, nil
	}
	price, err := decimal.NewFromString(body.GlobalQuote.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", body.GlobalQuote.Price, err)
	}
	if !price.IsPositive() {
		return nil, nil
	}

	return &provider.Quote{Symbol: sym, Price: price, Currency: currency.USD, Source: f.cfg.Name}, nil
}

type apiResponse struct {
	GlobalQuote *globalQuote `json:"Global Quote"`
}

// The quote endpoint reports every field as a string.
type globalQuote struct {
	Symbol string `json:"01. symbol"`
	Price  string `json:"05. price"`
}
