package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DemoAPIKey is Alpha Vantage's public key. It only serves a few sample
// symbols, but lets the service start without credentials.
const DemoAPIKey = "demo"

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type Log struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

type AlphaVantage struct {
	APIKey   string `json:"api_key" yaml:"api_key"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

type CoinGecko struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

type Alpaca struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	APIKey    string `json:"api_key" yaml:"api_key"`
	APISecret string `json:"api_secret" yaml:"api_secret"`
	BaseURL   string `json:"base_url" yaml:"base_url"`
}

type Market struct {
	PopularSymbols []string `json:"popular_symbols" yaml:"popular_symbols"`
	// SnapshotStockLimit caps how many PopularSymbols a snapshot quotes,
	// keeping the free equities quota intact.
	SnapshotStockLimit int      `json:"snapshot_stock_limit" yaml:"snapshot_stock_limit"`
	DefaultCoins       []string `json:"default_coins" yaml:"default_coins"`
	ForexFrom          string   `json:"forex_from" yaml:"forex_from"`
	ForexTo            string   `json:"forex_to" yaml:"forex_to"`
}

type Cache struct {
	// TTLSeconds <= 0 disables caching entirely.
	TTLSeconds    int    `json:"ttl_sec" yaml:"ttl_sec"`
	Backend       string `json:"backend" yaml:"backend"` // memory | redis
	MaxItems      int    `json:"max_items" yaml:"max_items"`
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`
}

type Config struct {
	Server       Server       `json:"server" yaml:"server"`
	Log          Log          `json:"log" yaml:"log"`
	AlphaVantage AlphaVantage `json:"alphavantage" yaml:"alphavantage"`
	CoinGecko    CoinGecko    `json:"coingecko" yaml:"coingecko"`
	Alpaca       Alpaca       `json:"alpaca" yaml:"alpaca"`
	Market       Market       `json:"market" yaml:"market"`
	Cache        Cache        `json:"cache" yaml:"cache"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "5000", RequestTimeoutSec: 10},
		Log:    Log{Level: "info", Pretty: true},
		AlphaVantage: AlphaVantage{
			APIKey:   DemoAPIKey,
			Endpoint: "https://www.alphavantage.co/query",
		},
		CoinGecko: CoinGecko{Endpoint: "https://api.coingecko.com/api/v3"},
		Alpaca:    Alpaca{Enabled: false, BaseURL: "https://data.alpaca.markets"},
		Market: Market{
			PopularSymbols:     []string{"AAPL", "GOOGL", "MSFT", "TSLA", "AMZN"},
			SnapshotStockLimit: 2,
			DefaultCoins:       []string{"bitcoin", "ethereum", "binancecoin", "cardano", "solana"},
			ForexFrom:          "USD",
			ForexTo:            "INR",
		},
		Cache: Cache{
			TTLSeconds: 0,
			Backend:    "memory",
			MaxItems:   1000,
			RedisAddr:  "localhost:6379",
		},
	}
}

// Load reads a JSON or YAML config from path (chosen by extension). If path is
// empty, config.json or config.yaml in the working directory is used when
// present; otherwise defaults apply. A .env file, if any, is loaded into the
// process environment and environment variables then override select fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, candidate := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	_ = godotenv.Load()
	applyEnv(&cfg)
	if strings.TrimSpace(cfg.AlphaVantage.APIKey) == "" {
		cfg.AlphaVantage.APIKey = DemoAPIKey
	}
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x > 0 {
		cfg.Server.RequestTimeoutSec = x
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if b, ok := envBool("LOG_PRETTY"); ok {
		cfg.Log.Pretty = b
	}

	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		cfg.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_ENDPOINT"); v != "" {
		cfg.AlphaVantage.Endpoint = v
	}
	if v := os.Getenv("COINGECKO_ENDPOINT"); v != "" {
		cfg.CoinGecko.Endpoint = v
	}

	if b, ok := envBool("ALPACA_ENABLED"); ok {
		cfg.Alpaca.Enabled = b
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("POPULAR_SYMBOLS"); v != "" {
		cfg.Market.PopularSymbols = SplitCSV(v)
	}
	if x, ok := envInt("SNAPSHOT_STOCK_LIMIT"); ok && x >= 0 {
		cfg.Market.SnapshotStockLimit = x
	}
	if v := os.Getenv("DEFAULT_COINS"); v != "" {
		cfg.Market.DefaultCoins = SplitCSV(v)
	}
	if v := os.Getenv("FOREX_FROM"); v != "" {
		cfg.Market.ForexFrom = strings.ToUpper(v)
	}
	if v := os.Getenv("FOREX_TO"); v != "" {
		cfg.Market.ForexTo = strings.ToUpper(v)
	}

	if x, ok := envInt("CACHE_TTL_SEC"); ok && x >= 0 {
		cfg.Cache.TTLSeconds = x
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if x, ok := envInt("CACHE_MAX_ITEMS"); ok && x > 0 {
		cfg.Cache.MaxItems = x
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if x, ok := envInt("REDIS_DB"); ok && x >= 0 {
		cfg.Cache.RedisDB = x
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	var x int
	if _, err := fmt.Sscanf(v, "%d", &x); err != nil {
		return 0, false
	}
	return x, true
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empty parts.
func SplitCSV(s string) []string {
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
