package main

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"stockprices/internal/config"
	"stockprices/internal/httpx"
	"stockprices/internal/logging"
	"stockprices/internal/pricestore"
	"stockprices/internal/provider"
	"stockprices/internal/provider/alphavantage"
	"stockprices/internal/provider/ratelimit"
	"stockprices/internal/provider/yahoo"
	"stockprices/internal/quoteservice"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if err := logging.Init(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		FileEnabled: cfg.Logging.FileEnabled,
		FilePath:    cfg.Logging.FilePath,
		RotationMB:  50,
		MaxAgeDays:  14,
		Service:     "stockprices",
	}); err != nil {
		log.Fatal().Err(err).Msg("logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}
	defer cleanup()

	svc := buildService(cfg, store)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	h := &priceHandler{svc: svc}
	mux.HandleFunc("/api/price", h.getPrice)
	mux.HandleFunc("/api/prices", h.getPrices)
	mux.HandleFunc("/api/price/refresh", h.forceRefresh)
	mux.HandleFunc("/api/price/peek", h.peekLatest)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("server stopped")
}

// openStore prefers Postgres; without DATABASE_URL it degrades to the
// in-memory store so the service still runs locally.
func openStore(ctx context.Context, cfg config.Config) (pricestore.Store, func(), error) {
	if cfg.Database.URL == "" {
		log.Warn().Msg("DATABASE_URL not set; using in-memory price store")
		return pricestore.NewMemory(), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	pg := pricestore.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}

func buildService(cfg config.Config, store pricestore.Store) *quoteservice.Service {
	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	fetchers := []provider.Fetcher{
		yahoo.New(yahoo.Config{
			BaseURL:   cfg.Yahoo.Endpoint,
			UserAgent: cfg.Yahoo.UserAgent,
		}, httpClient),
	}
	if cfg.AlphaVantage.APIKey != "" {
		fetchers = append(fetchers, alphavantage.New(alphavantage.Config{
			BaseURL: cfg.AlphaVantage.Endpoint,
			APIKey:  cfg.AlphaVantage.APIKey,
		}, httpClient))
	} else {
		log.Info().Msg("ALPHAVANTAGE_API_KEY not set; secondary provider disabled")
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.MaxRequestsPerMinute > 0 {
		rate := float64(cfg.RateLimit.MaxRequestsPerMinute) / 60.0
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = ratelimit.NewTokenBucket(rate, burst)
	} else if cfg.RateLimit.BatchDelayMS > 0 {
		limiter = &ratelimit.MinInterval{Interval: time.Duration(cfg.RateLimit.BatchDelayMS) * time.Millisecond}
	}

	chain := provider.NewChain(log.Logger, fetchers...).
		WithAttemptTimeout(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	return quoteservice.New(store, chain, quoteservice.Config{
		TTL:     time.Duration(cfg.Cache.TTLHours) * time.Hour,
		Limiter: limiter,
		Logger:  log.Logger,
	})
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses the response when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
