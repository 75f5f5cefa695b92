package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	MarketData  MarketDataConfig `mapstructure:"market_data"`
	Scoring     ScoringConfig    `mapstructure:"scoring"`
	House       HouseConfig      `mapstructure:"house"`
	Contest     ContestConfig    `mapstructure:"contest"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
	Telegram    TelegramConfig   `mapstructure:"telegram"`
	Security    SecurityConfig   `mapstructure:"security"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	DatabaseURL  string `mapstructure:"database_url"`
	MaxConns     int    `mapstructure:"max_conns"`
	QueryTimeout string `mapstructure:"query_timeout"`
}

// DSN returns DatabaseURL when set, otherwise a keyword/value connection string.
func (c DatabaseConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetQueryTimeout returns the per-query timeout, falling back to 5s.
func (c DatabaseConfig) GetQueryTimeout() time.Duration {
	return durationOr(c.QueryTimeout, 5*time.Second)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MarketDataConfig configures the quote provider client and its cache.
type MarketDataConfig struct {
	ProviderURL     string `mapstructure:"provider_url"`
	Timeout         string `mapstructure:"timeout"`
	HistoryInterval string `mapstructure:"history_interval"`
	HistoryRange    string `mapstructure:"history_range"`
	MaxConcurrency  int    `mapstructure:"max_concurrency"`
	MaxRetries      int    `mapstructure:"max_retries"`
	QuoteCacheTTL   string `mapstructure:"quote_cache_ttl"`
}

// GetTimeout returns the provider call timeout.
func (c MarketDataConfig) GetTimeout() time.Duration {
	return durationOr(c.Timeout, 10*time.Second)
}

// GetQuoteCacheTTL returns how long cached quotes stay valid.
func (c MarketDataConfig) GetQuoteCacheTTL() time.Duration {
	return durationOr(c.QuoteCacheTTL, 30*time.Second)
}

// ScoringConfig holds the accuracy band used when resolving contests.
type ScoringConfig struct {
	Tolerance    float64 `mapstructure:"tolerance"`
	MaxErrorBand float64 `mapstructure:"max_error_band"`
}

// HouseConfig configures the algorithmic predictor.
type HouseConfig struct {
	ModelRevision   string `mapstructure:"model_revision"`
	OverwritePolicy string `mapstructure:"overwrite_policy"`
}

// ContestConfig holds resolution settings.
type ContestConfig struct {
	ResolutionLeaseTTL string `mapstructure:"resolution_lease_ttl"`
}

// GetResolutionLeaseTTL returns the lease TTL held while a contest resolves.
func (c ContestConfig) GetResolutionLeaseTTL() time.Duration {
	return durationOr(c.ResolutionLeaseTTL, 2*time.Minute)
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

// TelegramConfig holds the broadcast bot settings. Empty token disables it.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// SecurityConfig holds auth secrets.
type SecurityConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
	AdminAPIKey string `mapstructure:"admin_api_key" json:"-" yaml:"-"`
}

// Load reads configuration from .env, config.yaml and the environment, in
// increasing order of precedence.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}
	if err := v.BindEnv("security.admin_api_key", "ADMIN_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind ADMIN_API_KEY environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	if c.Environment != "development" && c.Security.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required in non-development environments")
	}

	tolerance := decimal.NewFromFloat(c.Scoring.Tolerance)
	band := decimal.NewFromFloat(c.Scoring.MaxErrorBand)
	if tolerance.IsNegative() || !tolerance.LessThan(band) {
		return fmt.Errorf("scoring tolerance (%v) must be non-negative and below max_error_band (%v)",
			c.Scoring.Tolerance, c.Scoring.MaxErrorBand)
	}

	switch c.House.OverwritePolicy {
	case "overwrite", "keep_first":
	default:
		return fmt.Errorf("house.overwrite_policy must be overwrite or keep_first, got %q", c.House.OverwritePolicy)
	}

	durations := map[string]string{
		"database.query_timeout":       c.Database.QueryTimeout,
		"market_data.timeout":          c.MarketData.Timeout,
		"market_data.quote_cache_ttl":  c.MarketData.QuoteCacheTTL,
		"contest.resolution_lease_ttl": c.Contest.ResolutionLeaseTTL,
	}
	for key, raw := range durations {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid %s duration: %w", key, err)
		}
	}

	if c.MarketData.MaxConcurrency < 1 {
		return fmt.Errorf("market_data.max_concurrency must be at least 1, got %d", c.MarketData.MaxConcurrency)
	}
	if c.MarketData.MaxRetries < 0 {
		return fmt.Errorf("market_data.max_retries must be non-negative, got %d", c.MarketData.MaxRetries)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "predictarena")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database_url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.query_timeout", "5s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("market_data.provider_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market_data.timeout", "10s")
	v.SetDefault("market_data.history_interval", "1d")
	v.SetDefault("market_data.history_range", "3mo")
	v.SetDefault("market_data.max_concurrency", 8)
	v.SetDefault("market_data.max_retries", 2)
	v.SetDefault("market_data.quote_cache_ttl", "30s")

	v.SetDefault("scoring.tolerance", 0.02)
	v.SetDefault("scoring.max_error_band", 0.10)

	v.SetDefault("house.model_revision", "rules-v1")
	v.SetDefault("house.overwrite_policy", "overwrite")

	v.SetDefault("contest.resolution_lease_ttl", "2m")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "predictarena")
	v.SetDefault("telemetry.service_version", "dev")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.admin_api_key", "")
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
