package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Database struct {
	// URL is the Postgres connection string. Empty means the server runs
	// on the in-memory store (prices are lost on restart).
	URL string `json:"url"`
}

type Cache struct {
	TTLHours int `json:"ttl_hours"`
}

type Yahoo struct {
	Endpoint  string `json:"endpoint"`
	UserAgent string `json:"user_agent"`
}

type AlphaVantage struct {
	Endpoint string `json:"endpoint"`
	// APIKey gates the whole tier: empty means the fetcher is not wired
	// at all and no request is ever sent to this provider.
	APIKey string `json:"api_key"`
}

type RateLimit struct {
	// BatchDelayMS is the courtesy gap between provider-touching calls
	// within one batch resolution.
	BatchDelayMS int `json:"batch_delay_ms"`
	// MaxRequestsPerMinute switches the pacing to a token bucket when set.
	MaxRequestsPerMinute int `json:"max_requests_per_minute"`
	Burst                int `json:"burst"`
}

type Logging struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	FileEnabled bool   `json:"file_enabled"`
	FilePath    string `json:"file_path"`
}

type Config struct {
	Server       Server       `json:"server"`
	Database     Database     `json:"database"`
	Cache        Cache        `json:"cache"`
	Yahoo        Yahoo        `json:"yahoo"`
	AlphaVantage AlphaVantage `json:"alphavantage"`
	RateLimit    RateLimit    `json:"ratelimit"`
	Logging      Logging      `json:"logging"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 15},
		Cache:  Cache{TTLHours: 6},
		Yahoo: Yahoo{
			Endpoint:  "https://query1.finance.yahoo.com/v8/finance/chart",
			UserAgent: "Mozilla/5.0 (compatible; stockprices/1.0)",
		},
		AlphaVantage: AlphaVantage{
			Endpoint: "https://www.alphavantage.co/query",
		},
		RateLimit: RateLimit{BatchDelayMS: 250},
		Logging:   Logging{Level: "info", Format: "json", FilePath: "logs"},
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. A .env file and environment variables
// override select fields so credentials stay out of the config file.
func Load(path string) (Config, error) {
	cfg := Default()
	_ = godotenv.Load()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("CACHE_TTL_HOURS"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Cache.TTLHours = x
		}
	}
	if v := os.Getenv("YAHOO_ENDPOINT"); v != "" {
		cfg.Yahoo.Endpoint = v
	}
	if v := os.Getenv("YAHOO_USER_AGENT"); v != "" {
		cfg.Yahoo.UserAgent = v
	}
	if v := os.Getenv("ALPHAVANTAGE_ENDPOINT"); v != "" {
		cfg.AlphaVantage.Endpoint = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("BATCH_DELAY_MS"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.RateLimit.BatchDelayMS = x
		}
	}
	if v := os.Getenv("MAX_RPM"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.RateLimit.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.RateLimit.Burst = x
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LOG_FILE_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Logging.FileEnabled = true
		case "0", "false", "no", "n":
			cfg.Logging.FileEnabled = false
		}
	}
	if v := os.Getenv("LOG_FILE_PATH"); v != "" {
		cfg.Logging.FilePath = v
	}
}

func atoi(s string) int {
	var x int
	_, _ = fmt.Sscanf(s, "%d", &x)
	return x
}
