package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yourorg/catalog-api/internal/canon"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Source    string          `mapstructure:"source"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	GeoIP     GeoIPConfig     `mapstructure:"geoip"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Hydrator  HydratorConfig  `mapstructure:"hydrator"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Port        int    `mapstructure:"port"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type PostgresConfig struct {
	DSN     string `mapstructure:"dsn"`
	MaxOpen int    `mapstructure:"max_open"`
	MaxIdle int    `mapstructure:"max_idle"`
	Migrate bool   `mapstructure:"migrate"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SnapshotConfig struct {
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	RefreshWorkers int           `mapstructure:"refresh_workers"`
	RefreshQueue   int           `mapstructure:"refresh_queue"`
	// PerCity loads a city's own snapshot for city-filtered queries instead
	// of filtering the all-cities snapshot.
	PerCity bool `mapstructure:"per_city"`
}

type CatalogConfig struct {
	PageSize     int     `mapstructure:"page_size"`
	MaxPageSize  int     `mapstructure:"max_page_size"`
	CarouselSize int     `mapstructure:"carousel_size"`
	RadiusKm     float64 `mapstructure:"radius_km"`
}

type GeoIPConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type HydratorConfig struct {
	Cities         []string      `mapstructure:"cities"`
	Interval       time.Duration `mapstructure:"interval"`
	Pause          time.Duration `mapstructure:"pause"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RunOnce        bool          `mapstructure:"run_once"`
}

const (
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
)

var defaults = map[string]any{
	"app.name":                       "catalog-api",
	"app.environment":                "development",
	"app.port":                       4002,
	"logging.level":                  "info",
	"logging.format":                 "json",
	"source":                         SourcePostgres,
	"postgres.dsn":                   "",
	"postgres.max_open":              10,
	"postgres.max_idle":              5,
	"postgres.migrate":               false,
	"redis.address":                  "",
	"redis.password":                 "",
	"redis.db":                       0,
	"redis.channel":                  "catalog:snapshot:refreshed",
	"upstream.base_url":              "",
	"upstream.api_key":               "",
	"upstream.timeout":               "10s",
	"snapshot.cache_ttl":             "1h",
	"snapshot.stale_after":           "5m",
	"snapshot.fetch_timeout":         "15s",
	"snapshot.refresh_workers":       2,
	"snapshot.refresh_queue":         64,
	"snapshot.per_city":              false,
	"catalog.page_size":              30,
	"catalog.max_page_size":          100,
	"catalog.carousel_size":          5,
	"catalog.radius_km":              10.0,
	"geoip.enabled":                  false,
	"geoip.base_url":                 "https://ipapi.co",
	"geoip.requests_per_minute":      30,
	"geoip.timeout":                  "3s",
	"rate_limit.requests_per_minute": 120,
	"hydrator.cities":                []string{},
	"hydrator.interval":              "10m",
	"hydrator.pause":                 "1500ms",
	"hydrator.request_timeout":       "30s",
	"hydrator.run_once":              false,
}

// aliases are environment names accepted in addition to the derived ones
// (app.port -> APP_PORT).
var aliases = map[string][]string{
	"app.port":      {"PORT"},
	"postgres.dsn":  {"PG_DSN", "DATABASE_URL"},
	"redis.address": {"REDIS_ADDR"},
}

// Load reads .env (if present), then config.yaml from path or the usual
// locations, then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, names := range aliases {
		_ = v.BindEnv(append([]string{key, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)...)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Hydrator.Cities = canon.SplitList(cfg.Hydrator.Cities...)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Source {
	case SourcePostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres source"))
		}
	case SourceHTTP:
		if c.Upstream.BaseURL == "" {
			errs = append(errs, errors.New("upstream.base_url is required for the http source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("app.port %d out of range", c.App.Port))
	}
	if c.Catalog.PageSize <= 0 || c.Catalog.MaxPageSize <= 0 || c.Catalog.CarouselSize <= 0 {
		errs = append(errs, errors.New("catalog sizes must be positive"))
	}
	if c.Catalog.RadiusKm <= 0 {
		errs = append(errs, errors.New("catalog.radius_km must be positive"))
	}
	if c.Snapshot.CacheTTL <= 0 || c.Snapshot.StaleAfter <= 0 {
		errs = append(errs, errors.New("snapshot durations must be positive"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("rate_limit.requests_per_minute must be positive"))
	}
	return errors.Join(errs...)
}
