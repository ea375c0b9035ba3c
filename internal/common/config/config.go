// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Search   SearchConfig   `mapstructure:"search"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses        []string `mapstructure:"addresses"`
	Username         string   `mapstructure:"username"`
	Password         string   `mapstructure:"password"`
	SuggestionsIndex string   `mapstructure:"suggestions_index"`
	Enabled          bool     `mapstructure:"enabled"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FeedConfig holds the feed pipeline tunables.
type FeedConfig struct {
	PageSize               int    `mapstructure:"page_size"`
	QueryTimeout           int    `mapstructure:"query_timeout"`  // milliseconds
	DebounceDelay          int    `mapstructure:"debounce_delay"` // milliseconds
	CarouselSize           int    `mapstructure:"carousel_size"`
	CarouselTTL            int    `mapstructure:"carousel_ttl"`      // seconds
	CarouselRefreshSpec    string `mapstructure:"carousel_refresh"`  // cron expression
	SessionCacheTTL        int    `mapstructure:"session_cache_ttl"` // seconds
	DropWithoutCoordinates *bool  `mapstructure:"drop_without_coordinates"`
	BannerEnabled          bool   `mapstructure:"banner_enabled"`
}

// GeocoderConfig holds settings for the geocoding collaborator.
type GeocoderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// SearchConfig holds settings for suggestion retrieval and search analytics.
type SearchConfig struct {
	MaxSuggestions int  `mapstructure:"max_suggestions"`
	RecordSearches bool `mapstructure:"record_searches"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
