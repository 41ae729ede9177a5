// Package config loads the list-pages service configuration from YAML, .env files
// and environment variables.
package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the list-pages service.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Sources       SourcesConfig       `yaml:"sources"`
	ListPages     ListPagesConfig     `yaml:"list_pages"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	CORS          CORSConfig          `yaml:"cors"`
}

// ServiceConfig holds service-level configuration. RateLimitRPS bounds visitor
// searches per second; 0 disables the limit.
type ServiceConfig struct {
	Name           string        `yaml:"name"`
	Version        string        `yaml:"version"`
	Port           int           `yaml:"port"             env:"LIST_PAGES_PORT"`
	Debug          bool          `yaml:"debug"            env:"LIST_PAGES_DEBUG"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"   env:"LIST_PAGES_RATE_LIMIT_RPS"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
}

// ElasticsearchConfig holds Elasticsearch connection settings.
type ElasticsearchConfig struct {
	URL         string        `yaml:"url"          env:"ELASTICSEARCH_URL"`
	Username    string        `yaml:"username"     env:"ELASTICSEARCH_USERNAME"`
	Password    string        `yaml:"password"     env:"ELASTICSEARCH_PASSWORD"` //nolint:gosec // connection config
	APIKey      string        `yaml:"api_key"      env:"ELASTICSEARCH_API_KEY"`
	MaxRetries  int           `yaml:"max_retries"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
}

// DatabaseConfig holds PostgreSQL settings for list page configuration storage.
type DatabaseConfig struct {
	Host                  string        `yaml:"host"                    env:"POSTGRES_LIST_PAGES_HOST"`
	Port                  int           `yaml:"port"                    env:"POSTGRES_LIST_PAGES_PORT"`
	User                  string        `yaml:"user"                    env:"POSTGRES_LIST_PAGES_USER"`
	Password              string        `yaml:"password"                env:"POSTGRES_LIST_PAGES_PASSWORD"` //nolint:gosec // connection config
	Database              string        `yaml:"database"                env:"POSTGRES_LIST_PAGES_DB"`
	SSLMode               string        `yaml:"sslmode"                 env:"POSTGRES_LIST_PAGES_SSLMODE"`
	MaxConnections        int           `yaml:"max_connections"`
	MaxIdleConns          int           `yaml:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the postgres:// URL form used by golang-migrate.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis settings for configuration change events.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"  env:"REDIS_EVENTS_ENABLED"`
	Address  string `yaml:"address"  env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"` //nolint:gosec // connection config
	DB       int    `yaml:"db"       env:"REDIS_DB"`
	Stream   string `yaml:"stream"`
}

// SourcesConfig points at the index/facet definitions file.
type SourcesConfig struct {
	Path  string `yaml:"path"  env:"LIST_PAGES_SOURCES_PATH"`
	Watch bool   `yaml:"watch" env:"LIST_PAGES_SOURCES_WATCH"`
}

// ListPagesConfig holds list page defaults. MaxResultWindow must not exceed
// the index.max_result_window of the searched indexes.
type ListPagesConfig struct {
	DefaultEntityType string `yaml:"default_entity_type"`
	DefaultLimit      int    `yaml:"default_limit"`
	MaxLimit          int    `yaml:"max_limit"`
	MaxResultWindow   int    `yaml:"max_result_window"`
	Timezone          string `yaml:"timezone"`
	LinkBaseURL       string `yaml:"link_base_url" env:"LIST_PAGES_LINK_BASE_URL"`
}

// AuthConfig holds the JWT secret protecting configuration writes.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"` //nolint:gosec // secret loaded from env
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins" env:"CORS_ORIGINS"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// Load loads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path, setDefaults)
	if err != nil {
		return nil, err
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "list-pages"
	}
	if cfg.Service.Version == "" {
		cfg.Service.Version = "1.0.0"
	}
	if cfg.Service.Port == 0 {
		cfg.Service.Port = 8096
	}
	if cfg.Service.QueryTimeout == 0 {
		cfg.Service.QueryTimeout = 5 * time.Second
	}

	if cfg.Elasticsearch.URL == "" {
		cfg.Elasticsearch.URL = "http://localhost:9200"
	}
	if cfg.Elasticsearch.MaxRetries == 0 {
		cfg.Elasticsearch.MaxRetries = 3
	}
	if cfg.Elasticsearch.PingTimeout == 0 {
		cfg.Elasticsearch.PingTimeout = 5 * time.Second
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = "list_pages"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConnections == 0 {
		cfg.Database.MaxConnections = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnectionMaxLifetime == 0 {
		cfg.Database.ConnectionMaxLifetime = time.Hour
	}

	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}
	if cfg.Redis.Stream == "" {
		cfg.Redis.Stream = "list-pages:events"
	}

	if cfg.Sources.Path == "" {
		cfg.Sources.Path = "sources.yml"
	}

	if cfg.ListPages.DefaultEntityType == "" {
		cfg.ListPages.DefaultEntityType = "node"
	}
	if cfg.ListPages.DefaultLimit == 0 {
		cfg.ListPages.DefaultLimit = 10
	}
	if cfg.ListPages.MaxLimit == 0 {
		cfg.ListPages.MaxLimit = 100
	}
	if cfg.ListPages.MaxResultWindow == 0 {
		cfg.ListPages.MaxResultWindow = 10000
	}
	if cfg.ListPages.Timezone == "" {
		cfg.ListPages.Timezone = "UTC"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.CORS.AllowedMethods) == 0 {
		cfg.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.CORS.AllowedHeaders) == 0 {
		cfg.CORS.AllowedHeaders = []string{"Content-Type", "Authorization"}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return &ValidationError{Field: "service.port", Message: fmt.Sprintf("invalid port: %d", c.Service.Port)}
	}
	if c.Elasticsearch.URL == "" {
		return &ValidationError{Field: "elasticsearch.url", Message: "is required"}
	}
	if c.Sources.Path == "" {
		return &ValidationError{Field: "sources.path", Message: "is required"}
	}
	if c.ListPages.DefaultLimit < 1 || c.ListPages.DefaultLimit > c.ListPages.MaxLimit {
		return &ValidationError{
			Field:   "list_pages.default_limit",
			Message: fmt.Sprintf("must be between 1 and %d", c.ListPages.MaxLimit),
		}
	}
	if _, err := time.LoadLocation(c.ListPages.Timezone); err != nil {
		return &ValidationError{Field: "list_pages.timezone", Message: err.Error()}
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return &ValidationError{Field: "redis.address", Message: "is required when redis is enabled"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error, fatal"}
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return &ValidationError{Field: "logging.format", Message: "must be one of: json, console"}
	}
	return nil
}
