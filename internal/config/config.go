// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	DB        DBConfig        `mapstructure:"db"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the observation HTTP server. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DirectoryConfig holds credentials and filter parameters for the node
// directory service (instances.social style).
type DirectoryConfig struct {
	APIURL         string `mapstructure:"api_url"`
	APIKey         string `mapstructure:"api_key"`
	Count          int    `mapstructure:"count"`
	MinActiveUsers int    `mapstructure:"min_active_users"`
	MinVersion     string `mapstructure:"min_version"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CrawlerConfig governs the crawl pipeline.
type CrawlerConfig struct {
	Parallelism int    `mapstructure:"parallelism"`
	ChunkSize   int    `mapstructure:"chunk_size"`
	UserAgent   string `mapstructure:"user_agent"`
}

// HTTPConfig configures per-node request behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store, which is only useful for local runs.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	Table           string `mapstructure:"table"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BLOCKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("directory.api_url", "https://instances.social/api/1.0/instances/list")
	v.SetDefault("directory.count", 0)
	v.SetDefault("directory.min_active_users", 0)
	v.SetDefault("directory.min_version", "4.0")
	v.SetDefault("directory.timeout_seconds", 30)
	v.SetDefault("crawler.parallelism", 8)
	v.SetDefault("crawler.chunk_size", 1000)
	v.SetDefault("crawler.user_agent", "blockwatch-bot/0.1")
	v.SetDefault("http.timeout_seconds", 5)
	v.SetDefault("db.table", "block_rules")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port < 0 {
		return fmt.Errorf("server.port must be >= 0")
	}
	if c.Directory.APIURL == "" {
		return fmt.Errorf("directory.api_url is required")
	}
	if c.Crawler.Parallelism <= 0 {
		return fmt.Errorf("crawler.parallelism must be > 0")
	}
	if c.Crawler.ChunkSize <= 0 {
		return fmt.Errorf("crawler.chunk_size must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Directory.TimeoutSeconds <= 0 {
		return fmt.Errorf("directory.timeout_seconds must be > 0")
	}
	return nil
}

// ProbeTimeout converts the per-node HTTP timeout config into a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// DirectoryTimeout converts the directory timeout config into a duration.
func (c Config) DirectoryTimeout() time.Duration {
	return time.Duration(c.Directory.TimeoutSeconds) * time.Second
}

// ConnLifetime converts the pooled connection lifetime config into a duration.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.MaxConnLifetime) * time.Second
}
