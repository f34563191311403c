package quoteservice

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"stockprices/internal/currency"
	"stockprices/internal/pricestore"
	"stockprices/internal/provider"
	"stockprices/internal/provider/ratelimit"
)

// CacheTTL is the validity window for a stored price: a record younger
// than this is served without touching the providers, an older one
// triggers a refresh attempt.
const CacheTTL = 6 * time.Hour

// ErrUnavailableMessage is the one message callers ever see. Provider
// details never leak past the service boundary.
const ErrUnavailableMessage = "Unable to fetch stock price. Please try again later."

type Config struct {
	// TTL overrides CacheTTL; zero keeps the default.
	TTL time.Duration
	// Limiter paces provider-touching calls inside GetPrices. Nil means
	// no pacing.
	Limiter ratelimit.Limiter
	// Now is the clock, overridable in tests. Nil means time.Now.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Service resolves prices: cache first, then the provider chain, then
// stale cache, and only then an error.
type Service struct {
	store   pricestore.Store
	chain   *provider.Chain
	limiter ratelimit.Limiter
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger

	// sf coalesces concurrent refreshes of one symbol in this process.
	// Duplicate inserts across processes remain possible and harmless:
	// the store is append-only and reads take the max timestamp.
	sf singleflight.Group
}

func New(store pricestore.Store, chain *provider.Chain, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = CacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:   store,
		chain:   chain,
		limiter: cfg.Limiter,
		ttl:     cfg.TTL,
		now:     cfg.Now,
		log:     cfg.Logger,
	}
}

// GetPrice resolves one symbol. It never returns a Go error: every failure
// below the service boundary folds into the Result union.
func (s *Service) GetPrice(ctx context.Context, symbol string) Result {
	sym := pricestore.Normalize(symbol)
	if sym == "" {
		return errorResult(sym, pricestore.ErrEmptySymbol.Error())
	}

	rec, err := s.store.Latest(ctx, sym)
	if err != nil {
		// A failing cache read degrades to a miss; the chain may still
		// produce a price.
		s.log.Warn().Err(err).Str("symbol", sym).Msg("cache read failed")
	}
	if rec != nil && s.fresh(*rec) {
		return quoteResult(s.quoteFromRecord(*rec))
	}

	return s.refresh(ctx, sym)
}

// ForceRefresh bypasses the validity check and always walks the provider
// chain first, still falling back to stale cache on total failure. Used by
// scheduled refresh jobs.
func (s *Service) ForceRefresh(ctx context.Context, symbol string) Result {
	sym := pricestore.Normalize(symbol)
	if sym == "" {
		return errorResult(sym, pricestore.ErrEmptySymbol.Error())
	}
	return s.refresh(ctx, sym)
}

// PeekLatest returns the most recent record unconditionally, ignoring the
// validity window and never touching the providers. Callers use it to show
// a possibly-stale value with a warning instead of triggering a fetch.
func (s *Service) PeekLatest(ctx context.Context, symbol string) (*PriceQuote, error) {
	sym := pricestore.Normalize(symbol)
	if sym == "" {
		return nil, pricestore.ErrEmptySymbol
	}
	rec, err := s.store.Latest(ctx, sym)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	q := s.quoteFromRecord(*rec)
	return &q, nil
}

// GetPrices resolves a batch. Symbols are de-duplicated case-insensitively,
// the cache is read in one round trip, and only expired/absent symbols go
// through per-symbol resolution — sequentially, paced by the limiter, so
// a batch never bursts the upstream APIs. One symbol's failure never
// affects the others.
func (s *Service) GetPrices(ctx context.Context, symbols []string) map[string]Result {
	ordered := dedupNormalized(symbols)
	results := make(map[string]Result, len(ordered))
	if len(ordered) == 0 {
		return results
	}

	cached, err := s.store.LatestBatch(ctx, ordered)
	if err != nil {
		s.log.Warn().Err(err).Int("symbols", len(ordered)).Msg("batch cache read failed")
		cached = map[string]pricestore.Record{}
	}

	queued := make([]string, 0, len(ordered))
	for _, sym := range ordered {
		if rec, ok := cached[sym]; ok && s.fresh(rec) {
			results[sym] = quoteResult(s.quoteFromRecord(rec))
			continue
		}
		queued = append(queued, sym)
	}

	for _, sym := range queued {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				s.log.Debug().Err(err).Str("symbol", sym).Msg("limiter wait interrupted")
			}
		}
		// GetPrice repeats its own cache check; the batch read already
		// proved the record expired or absent, so the recheck is cheap
		// and occasionally saves a fetch another caller just did.
		results[sym] = s.GetPrice(ctx, sym)
	}
	return results
}

// refresh walks the provider chain and persists a success; on total
// failure it serves whatever the cache has, regardless of age.
func (s *Service) refresh(ctx context.Context, sym string) Result {
	v, _, _ := s.sf.Do(sym, func() (any, error) {
		return s.refreshOnce(ctx, sym), nil
	})
	return v.(Result)
}

func (s *Service) refreshOnce(ctx context.Context, sym string) Result {
	if q := s.chain.Fetch(ctx, sym); q != nil {
		now := s.now()
		if err := s.store.Append(ctx, sym, q.Price, now); err != nil {
			// The caller still gets the live price; only the cache misses out.
			s.log.Error().Err(err).Str("symbol", sym).Msg("persist fetched price failed")
		}
		return quoteResult(PriceQuote{
			Symbol:    sym,
			Price:     q.Price,
			Currency:  q.Currency,
			Timestamp: now,
			FromCache: false,
		})
	}

	rec, err := s.store.Latest(ctx, sym)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", sym).Msg("stale fallback read failed")
	}
	if rec != nil {
		// Staleness is preferred over no data.
		s.log.Info().Str("symbol", sym).Time("as_of", rec.Timestamp).
			Msg("all providers failed, serving stale price")
		return quoteResult(s.quoteFromRecord(*rec))
	}

	s.log.Error().Str("symbol", sym).Msg("all providers failed and no cached price exists")
	return errorResult(sym, ErrUnavailableMessage)
}

func (s *Service) fresh(rec pricestore.Record) bool {
	return s.now().Sub(rec.Timestamp) < s.ttl
}

// quoteFromRecord rebuilds a quote from a stored row. Rows carry no
// currency, so it is re-inferred from the symbol suffix on every read —
// even when the original fetch reported a provider currency. That value
// is returned once at fetch time and then silently overridden here; kept
// for compatibility with the existing callers.
func (s *Service) quoteFromRecord(rec pricestore.Record) PriceQuote {
	return PriceQuote{
		Symbol:    rec.Symbol,
		Price:     rec.Price,
		Currency:  currency.Infer(rec.Symbol),
		Timestamp: rec.Timestamp,
		FromCache: true,
	}
}

func dedupNormalized(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, raw := range symbols {
		sym := pricestore.Normalize(raw)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
