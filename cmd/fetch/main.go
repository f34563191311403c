package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockprices/internal/config"
	"stockprices/internal/httpx"
	"stockprices/internal/pricestore"
	"stockprices/internal/provider"
	"stockprices/internal/provider/alphavantage"
	"stockprices/internal/provider/ratelimit"
	"stockprices/internal/provider/yahoo"
	"stockprices/internal/quoteservice"
)

// One-shot price lookup for ops and debugging. Runs against the in-memory
// store, so every lookup is a live fetch unless -force repeats a symbol.
func main() {
	var symbolsCSV string
	var force bool
	var timeout int
	var configPath string

	flag.StringVar(&symbolsCSV, "symbols", os.Getenv("SYMBOLS"), "comma-separated ticker symbols")
	flag.BoolVar(&force, "force", false, "use ForceRefresh instead of GetPrices")
	flag.IntVar(&timeout, "timeout", 30, "overall timeout seconds")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		log.Fatal().Msg("no symbols provided; use -symbols AAPL,MSFT")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	fetchers := []provider.Fetcher{
		yahoo.New(yahoo.Config{BaseURL: cfg.Yahoo.Endpoint, UserAgent: cfg.Yahoo.UserAgent}, httpClient),
	}
	if cfg.AlphaVantage.APIKey != "" {
		fetchers = append(fetchers, alphavantage.New(alphavantage.Config{
			BaseURL: cfg.AlphaVantage.Endpoint,
			APIKey:  cfg.AlphaVantage.APIKey,
		}, httpClient))
	}

	svc := quoteservice.New(pricestore.NewMemory(), provider.NewChain(log.Logger, fetchers...), quoteservice.Config{
		Limiter: &ratelimit.MinInterval{Interval: time.Duration(cfg.RateLimit.BatchDelayMS) * time.Millisecond},
		Logger:  log.Logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	var results map[string]quoteservice.Result
	if force {
		results = make(map[string]quoteservice.Result, len(symbols))
		for _, sym := range symbols {
			res := svc.ForceRefresh(ctx, sym)
			key := sym
			if res.Quote != nil {
				key = res.Quote.Symbol
			} else if res.Error != nil {
				key = res.Error.Symbol
			}
			results[key] = res
		}
	} else {
		results = svc.GetPrices(ctx, symbols)
	}

	failed := 0
	for _, res := range results {
		if res.IsError() {
			failed++
		}
	}
	log.Info().Int("resolved", len(results)-failed).Int("failed", failed).Msg("lookup done")

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
	if failed == len(results) {
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
