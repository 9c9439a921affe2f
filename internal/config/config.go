package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/utafrali/AppStoreGo/internal/ranking"
	pkgconfig "github.com/utafrali/AppStoreGo/pkg/config"
	"github.com/utafrali/AppStoreGo/pkg/database"
	"github.com/utafrali/AppStoreGo/pkg/middleware"
	"github.com/utafrali/AppStoreGo/pkg/tracing"
)

// Catalog sources.
const (
	SourceJSON     = "json"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceRemote   = "remote"
)

// Engagement stores.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all configuration for the catalog-search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CATALOG_HTTP_PORT" envDefault:"8010"`

	// Catalog source selection (json, sqlite, postgres or remote)
	CatalogSource   string        `env:"CATALOG_SOURCE" envDefault:"json"`
	JSONPath        string        `env:"CATALOG_JSON_PATH" envDefault:"data/apps_data.json"`
	SQLitePath      string        `env:"CATALOG_SQLITE_PATH" envDefault:"data/appstore.db"`
	RemoteURL       string        `env:"CATALOG_REMOTE_URL" envDefault:"http://localhost:8011"`
	RefreshInterval time.Duration `env:"CATALOG_REFRESH_INTERVAL" envDefault:"5m"`

	// PostgreSQL. POSTGRES_URL overrides the individual settings.
	PostgresURL      string        `env:"POSTGRES_URL" envDefault:""`
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"appstore"`
	PostgresPassword string        `env:"POSTGRES_PASSWORD" envDefault:"appstore"`
	PostgresDB       string        `env:"POSTGRES_DB" envDefault:"appstore"`
	PostgresSSLMode  string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	PostgresMaxConns int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	SlowQuery        time.Duration `env:"POSTGRES_SLOW_QUERY" envDefault:"200ms"`

	// Engagement store selection (memory or redis)
	EngagementStore     string        `env:"ENGAGEMENT_STORE" envDefault:"memory"`
	EngagementRetention time.Duration `env:"ENGAGEMENT_RETENTION" envDefault:"768h"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"catalog-search"`

	// Tracing
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint    string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampleRate float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`

	// Per-client limit on engagement and review writes; 0 disables it
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// Ranking
	FuzzyMetric string `env:"FUZZY_METRIC" envDefault:"jaccard"`
	Weights     Weights
}

// Weights holds the relevance weight table.
type Weights struct {
	ExactName     float64 `env:"WEIGHT_EXACT_NAME" envDefault:"100"`
	NamePrefix    float64 `env:"WEIGHT_NAME_PREFIX" envDefault:"80"`
	NameSubstring float64 `env:"WEIGHT_NAME_SUBSTRING" envDefault:"60"`
	Developer     float64 `env:"WEIGHT_DEVELOPER" envDefault:"30"`
	Category      float64 `env:"WEIGHT_CATEGORY" envDefault:"20"`
	Description   float64 `env:"WEIGHT_DESCRIPTION" envDefault:"10"`
	Tag           float64 `env:"WEIGHT_TAG" envDefault:"0"`
	Featured      float64 `env:"WEIGHT_FEATURED" envDefault:"5"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog-search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from the given variables instead of the
// process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, environ); err != nil {
		return nil, fmt.Errorf("load catalog-search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.CatalogSource {
	case SourceJSON:
		if strings.TrimSpace(c.JSONPath) == "" {
			return errors.New("CATALOG_JSON_PATH is required for the json source")
		}
	case SourceSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("CATALOG_SQLITE_PATH is required for the sqlite source")
		}
	case SourcePostgres:
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("invalid postgres port: %d", c.PostgresPort)
		}
	case SourceRemote:
		if strings.TrimSpace(c.RemoteURL) == "" {
			return errors.New("CATALOG_REMOTE_URL is required for the remote source")
		}
	default:
		return fmt.Errorf("invalid CATALOG_SOURCE %q: must be one of json, sqlite, postgres, remote", c.CatalogSource)
	}

	switch c.EngagementStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisPort < 1 || c.RedisPort > 65535 {
			return fmt.Errorf("invalid redis port: %d", c.RedisPort)
		}
	default:
		return fmt.Errorf("invalid ENGAGEMENT_STORE %q: must be memory or redis", c.EngagementStore)
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("invalid CATALOG_REFRESH_INTERVAL: %s", c.RefreshInterval)
	}
	if c.RateLimitRPS < 0 || (c.RateLimitRPS > 0 && c.RateLimitBurst < 1) {
		return fmt.Errorf("invalid RATE_LIMIT_RPS/RATE_LIMIT_BURST: %g/%d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if _, err := ranking.MetricByName(c.FuzzyMetric); err != nil {
		return fmt.Errorf("invalid FUZZY_METRIC: %w", err)
	}
	if err := c.Weights.validate(); err != nil {
		return err
	}
	return nil
}

func (w Weights) validate() error {
	named := map[string]float64{
		"WEIGHT_EXACT_NAME":     w.ExactName,
		"WEIGHT_NAME_PREFIX":    w.NamePrefix,
		"WEIGHT_NAME_SUBSTRING": w.NameSubstring,
		"WEIGHT_DEVELOPER":      w.Developer,
		"WEIGHT_CATEGORY":       w.Category,
		"WEIGHT_DESCRIPTION":    w.Description,
		"WEIGHT_TAG":            w.Tag,
		"WEIGHT_FEATURED":       w.Featured,
	}
	for key, v := range named {
		if v < 0 {
			return fmt.Errorf("%s must not be negative: %g", key, v)
		}
	}
	return nil
}

// Relevance returns the relevance weight table with the stock popularity
// bands.
func (c *Config) Relevance() ranking.RelevanceWeights {
	return ranking.RelevanceWeights{
		ExactName:     c.Weights.ExactName,
		NamePrefix:    c.Weights.NamePrefix,
		NameSubstring: c.Weights.NameSubstring,
		Developer:     c.Weights.Developer,
		Category:      c.Weights.Category,
		Description:   c.Weights.Description,
		Tag:           c.Weights.Tag,
		Featured:      c.Weights.Featured,
		Popularity:    ranking.DefaultPopularityBands(),
	}
}

// Postgres returns the pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.URL = c.PostgresURL
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	pg.MaxConns = c.PostgresMaxConns
	return pg
}

// Redis returns the client settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// RateLimit returns the write endpoint limiter settings.
func (c *Config) RateLimit() middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	rl.RPS = c.RateLimitRPS
	rl.Burst = c.RateLimitBurst
	return rl
}

// Tracing returns the tracer settings for serviceName.
func (c *Config) Tracing(serviceName string) tracing.Config {
	tc := tracing.DefaultConfig(serviceName)
	tc.Environment = c.Environment
	tc.OTLPEndpoint = c.OTLPEndpoint
	tc.SampleRate = c.TraceSampleRate
	tc.Enabled = c.TracingEnabled
	return tc
}
