package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Chain walks an ordered list of fetchers and returns the first quote.
// Every failure mode below it (network error, bad status, provider error
// payload, missing price) is logged and folded into "no data"; Fetch
// returns nil only when all tiers came up empty.
type Chain struct {
	fetchers       []Fetcher
	attemptTimeout time.Duration
	log            zerolog.Logger
}

// DefaultAttemptTimeout bounds a single fetcher call so a stalled upstream
// cannot hang the whole chain.
const DefaultAttemptTimeout = 10 * time.Second

func NewChain(log zerolog.Logger, fetchers ...Fetcher) *Chain {
	return &Chain{fetchers: fetchers, attemptTimeout: DefaultAttemptTimeout, log: log}
}

// WithAttemptTimeout overrides the per-attempt timeout.
func (c *Chain) WithAttemptTimeout(d time.Duration) *Chain {
	if d > 0 {
		c.attemptTimeout = d
	}
	return c
}

// Len reports how many tiers are installed.
func (c *Chain) Len() int { return len(c.fetchers) }

// Fetch tries each tier in order and stops at the first quote.
func (c *Chain) Fetch(ctx context.Context, symbol string) *Quote {
	for _, f := range c.fetchers {
		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		q, err := f.Fetch(attemptCtx, symbol)
		cancel()
		if err != nil {
			c.log.Warn().Err(err).Str("provider", f.Name()).Str("symbol", symbol).
				Msg("provider fetch failed")
			continue
		}
		if q == nil {
			c.log.Debug().Str("provider", f.Name()).Str("symbol", symbol).
				Msg("provider returned no data")
			continue
		}
		return q
	}
	return nil
}
