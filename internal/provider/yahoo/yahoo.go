package yahoo

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
	Name string
	// BaseURL is the chart endpoint root; the symbol is appended to the path.
	BaseURL string
	// UserAgent is required by the upstream service; requests without one
	// get rejected.
	UserAgent string
}

// Fetcher is the keyless primary tier. It calls the public chart endpoint
// and reads the regular market price out of the result metadata.
type Fetcher struct {
	cfg    Config
	client provider.HTTPClient
}

func New(cfg Config, hc provider.HTTPClient) *Fetcher {
	if cfg.Name == "" {
		cfg.Name = "Yahoo"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; stockprices/1.0)"
	}
	return &Fetcher{cfg: cfg, client: hc}
}

func (f *Fetcher) Name() string { return f.cfg.Name }

func (f *Fetcher) Fetch(ctx context.Context, symbol string) (*provider.Quote, error) {
	sym := pricestore.Normalize(symbol)
	reqURL := fmt.Sprintf("%s/%s", f.cfg.BaseURL, url.PathEscape(sym))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s -> %d", reqURL, resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var body apiResponse
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	// The provider signals failures inside a 200 body too.
	if body.Chart.Error != nil {
		return nil, fmt.Errorf("provider error: code=%q description=%q",
			body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 {
		return nil, nil
	}

	meta := body.Chart.Result[0].Meta
	if meta.RegularMarketPrice == "" {
		// Successful payload without a price: unknown symbol, no data.
		return nil, nil
	}
	price, err := decimal.NewFromString(meta.RegularMarketPrice.String())
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", meta.RegularMarketPrice, err)
	}
	if !price.IsPositive() {
		return nil, nil
	}

	ccy := currency.Code(meta.Currency)
	if ccy == "" {
		ccy = currency.USD
	}
	return &provider.Quote{Symbol: sym, Price: price, Currency: ccy, Source: f.cfg.Name}, nil
}

type apiResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice json.Number `json:"regularMarketPrice"`
				Currency           string      `json:"currency"`
			} `json:"meta"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
