// Package config provides configuration management for the researcher profile service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "SCHOLARMAP"

// Config holds all configuration for the researcher profile service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Sources contains bibliographic source API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
	// VenueRank contains venue ranking table settings.
	VenueRank VenueRankConfig `mapstructure:"venue_rank"`
	// Citations contains citation resolution settings.
	Citations CitationsConfig `mapstructure:"citations"`
	// Keywords contains keyword-extraction service settings.
	Keywords KeywordsConfig `mapstructure:"keywords"`
	// LLM contains text-generation service settings for descriptions.
	LLM LLMConfig `mapstructure:"llm"`
	// Compare contains comparison session store settings.
	Compare CompareConfig `mapstructure:"compare"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// SourcesConfig holds configuration for all bibliographic source APIs.
type SourcesConfig struct {
	// DBLP contains DBLP API settings.
	DBLP SourceConfig `mapstructure:"dblp"`
	// SemanticScholar contains Semantic Scholar API settings.
	SemanticScholar SourceConfig `mapstructure:"semantic_scholar"`
	// OpenAlex contains OpenAlex API settings.
	OpenAlex SourceConfig `mapstructure:"openalex"`
	// GitHub contains GitHub API settings.
	GitHub SourceConfig `mapstructure:"github"`
	// HuggingFace contains Hugging Face Hub API settings.
	HuggingFace SourceConfig `mapstructure:"huggingface"`
}

// SourceConfig holds configuration for a single source API.
type SourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key or token (loaded from environment variable,
	// e.g. SCHOLARMAP_SOURCES_SEMANTIC_SCHOLAR_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// VenueRankConfig holds venue ranking table settings.
type VenueRankConfig struct {
	// CSVPath is the path to the venue ranking CSV file.
	CSVPath string `mapstructure:"csv_path"`
	// MatchThreshold is the minimum fuzzy match score (0-100) for a rank hit.
	MatchThreshold int `mapstructure:"match_threshold"`
}

// CitationsConfig holds citation resolution settings.
type CitationsConfig struct {
	// Enabled controls whether bibliometrics are computed on profile reads.
	Enabled bool `mapstructure:"enabled"`
	// RateLimit is the maximum citation lookups per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// CacheTTL is how long computed bibliometric snapshots are cached.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// KeywordsConfig holds keyword-extraction service settings.
type KeywordsConfig struct {
	// Enabled controls whether topic extraction runs.
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the extraction service URL.
	Endpoint string `mapstructure:"endpoint"`
	// TopN is how many keywords to request per text.
	TopN int `mapstructure:"top_n"`
	// Timeout is the timeout for extraction calls.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LLMConfig holds text-generation service settings.
type LLMConfig struct {
	// Enabled controls whether researcher descriptions are generated.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the generation service base URL.
	BaseURL string `mapstructure:"base_url"`
	// Model is the model name.
	Model string `mapstructure:"model"`
	// Timeout is the timeout for generation calls.
	Timeout time.Duration `mapstructure:"timeout"`
}

// CompareConfig holds comparison session store settings.
type CompareConfig struct {
	// TTL is how long an idle comparison session survives.
	TTL time.Duration `mapstructure:"ttl"`
	// MaxItems bounds how many researchers one session can compare.
	MaxItems int `mapstructure:"max_items"`
	// SweepInterval is how often expired sessions are purged.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/researcher-profile-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Sources.DBLP.APIKey = os.Getenv("SCHOLARMAP_SOURCES_DBLP_API_KEY")
	cfg.Sources.SemanticScholar.APIKey = os.Getenv("SCHOLARMAP_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Sources.OpenAlex.APIKey = os.Getenv("SCHOLARMAP_SOURCES_OPENALEX_API_KEY")
	cfg.Sources.GitHub.APIKey = os.Getenv("SCHOLARMAP_SOURCES_GITHUB_TOKEN")
	cfg.Sources.HuggingFace.APIKey = os.Getenv("SCHOLARMAP_SOURCES_HUGGINGFACE_TOKEN")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "scholarmap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "researcher_profile_service")
	// Default to "require" for production security. Use SCHOLARMAP_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Sources defaults - DBLP
	v.SetDefault("sources.dblp.enabled", true)
	v.SetDefault("sources.dblp.base_url", "https://dblp.org")
	v.SetDefault("sources.dblp.timeout", "30s")
	v.SetDefault("sources.dblp.rate_limit", 2.0)

	// Sources defaults - Semantic Scholar
	v.SetDefault("sources.semantic_scholar.enabled", true)
	v.SetDefault("sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("sources.semantic_scholar.timeout", "30s")
	v.SetDefault("sources.semantic_scholar.rate_limit", 5.0)

	// Sources defaults - OpenAlex
	v.SetDefault("sources.openalex.enabled", true)
	v.SetDefault("sources.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("sources.openalex.timeout", "30s")
	v.SetDefault("sources.openalex.rate_limit", 1.0)

	// Sources defaults - GitHub
	v.SetDefault("sources.github.enabled", true)
	v.SetDefault("sources.github.base_url", "https://api.github.com/")
	v.SetDefault("sources.github.timeout", "30s")
	v.SetDefault("sources.github.rate_limit", 5.0)

	// Sources defaults - Hugging Face
	v.SetDefault("sources.huggingface.enabled", true)
	v.SetDefault("sources.huggingface.base_url", "https://huggingface.co")
	v.SetDefault("sources.huggingface.timeout", "30s")
	v.SetDefault("sources.huggingface.rate_limit", 5.0)

	// Venue ranking defaults
	v.SetDefault("venue_rank.csv_path", "data/core_rankings.csv")
	v.SetDefault("venue_rank.match_threshold", 80)

	// Citation resolution defaults
	v.SetDefault("citations.enabled", true)
	v.SetDefault("citations.rate_limit", 5.0)
	v.SetDefault("citations.cache_ttl", "24h")

	// Keyword extraction defaults
	v.SetDefault("keywords.enabled", false)
	v.SetDefault("keywords.endpoint", "http://localhost:8090/extract")
	v.SetDefault("keywords.top_n", 5)
	v.SetDefault("keywords.timeout", "15s")

	// LLM defaults
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "gemma2:9b")
	v.SetDefault("llm.timeout", "2m")

	// Compare defaults
	v.SetDefault("compare.ttl", "1h")
	v.SetDefault("compare.max_items", 10)
	v.SetDefault("compare.sweep_interval", "5m")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if !c.Sources.DBLP.Enabled {
		return fmt.Errorf("dblp source cannot be disabled: it is the primary bibliographic source")
	}

	if c.VenueRank.MatchThreshold < 0 || c.VenueRank.MatchThreshold > 100 {
		return fmt.Errorf("venue rank match threshold must be between 0 and 100")
	}

	if c.Keywords.Enabled && c.Keywords.Endpoint == "" {
		return fmt.Errorf("keywords endpoint is required when keyword extraction is enabled")
	}
	if c.LLM.Enabled && c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base_url is required when description generation is enabled")
	}

	return nil
}
