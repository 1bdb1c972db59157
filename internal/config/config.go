// Package config loads and validates gatehouse configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/sevler/gatehouse/internal/domain"
)

// envPrefix is stripped from environment variables before merging. Double
// underscore separates nesting levels so single underscores survive inside
// key names, e.g. GATEHOUSE_QUEUE__MAX_BATCH=5 overrides queue.max_batch.
const envPrefix = "GATEHOUSE_"

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig    `koanf:"server"`
	Log        LogConfig       `koanf:"log"`
	Database   DatabaseConfig  `koanf:"database"`
	Queue      QueueConfig     `koanf:"queue"`
	Directory  DirectoryConfig `koanf:"directory"`
	Gateway    GatewayConfig   `koanf:"gateway"`
	SkipTokens SkipTokenConfig `koanf:"skip_tokens"`
	Updates    UpdatesConfig   `koanf:"updates"`
	Telemetry  TelemetryConfig `koanf:"telemetry"`
	DataDir    string          `koanf:"data_dir"`
}

// ServerConfig contains HTTP server settings. TokenFile is resolved
// relative to the data directory unless absolute.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	TokenFile         string        `koanf:"token_file"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DatabaseConfig contains PostgreSQL connection settings. The database is
// only required when the directory lookup or skip tokens are enabled.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// QueueConfig contains the scheduling core settings.
type QueueConfig struct {
	Targets        []string      `koanf:"targets"`
	Lobby          string        `koanf:"lobby"`
	Weights        TierWeights   `koanf:"weights"`
	SoftbanMinWait time.Duration `koanf:"softban_min_wait"`
	TickInterval   time.Duration `koanf:"tick_interval"`
	MaxBatch       int           `koanf:"max_batch"`
	NotifyCooldown time.Duration `koanf:"notify_cooldown"`
	ProbeTimeout   time.Duration `koanf:"probe_timeout"`
}

// TierWeights holds the dequeue weights for the three primary tiers.
// Softban has no weight: it only advances when all primary tiers are empty.
type TierWeights struct {
	Premium int `koanf:"premium"`
	Vip     int `koanf:"vip"`
	Default int `koanf:"default"`
}

// DirectoryConfig contains group classification settings.
type DirectoryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	PremiumGroup string `koanf:"premium_group"`
	VipGroup     string `koanf:"vip_group"`
	SoftbanGroup string `koanf:"softban_group"`
}

// GatewayConfig contains proxy control API client settings.
type GatewayConfig struct {
	BaseURL   string        `koanf:"base_url"`
	AuthToken string        `koanf:"auth_token"`
	Timeout   time.Duration `koanf:"timeout"`
}

// SkipTokenConfig contains the skip-token subsystem settings.
type SkipTokenConfig struct {
	Enabled       bool          `koanf:"enabled"`
	DefaultTTL    time.Duration `koanf:"default_ttl"`
	RateLimit     float64       `koanf:"rate_limit"`
	RateBurst     int           `koanf:"rate_burst"`
	PurgeInterval time.Duration `koanf:"purge_interval"`
}

// UpdatesConfig contains update checker settings.
type UpdatesConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Endpoint string        `koanf:"endpoint"`
	Interval time.Duration `koanf:"interval"`
}

// TelemetryConfig contains telemetry reporting settings.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
}

// Default returns the configuration defaults. Values from file and
// environment are merged on top.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			TokenFile:         "api-token",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Queue: QueueConfig{
			Lobby:          "lobby",
			Weights:        TierWeights{Premium: 5, Vip: 3, Default: 1},
			SoftbanMinWait: 5 * time.Minute,
			TickInterval:   5 * time.Second,
			MaxBatch:       3,
			NotifyCooldown: 10 * time.Second,
			ProbeTimeout:   1500 * time.Millisecond,
		},
		Directory: DirectoryConfig{
			PremiumGroup: domain.GroupPremium,
			VipGroup:     domain.GroupVip,
			SoftbanGroup: domain.GroupSoftban,
		},
		Gateway: GatewayConfig{
			Timeout: 5 * time.Second,
		},
		SkipTokens: SkipTokenConfig{
			DefaultTTL:    30 * time.Minute,
			RateLimit:     10,
			RateBurst:     20,
			PurgeInterval: time.Hour,
		},
		Updates: UpdatesConfig{
			Interval: 6 * time.Hour,
		},
		DataDir: "data",
	}
}

// Load reads configuration from the given YAML file, applies environment
// overrides and validates the result. The file is optional: a missing file
// leaves the defaults in place.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for fatal errors. The scheduler refuses
// to start with undefined weighting rather than degrade silently.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Queue.Targets) == 0 {
		errs = append(errs, errors.New("queue.targets must not be empty"))
	}
	if c.Queue.Lobby == "" {
		errs = append(errs, errors.New("queue.lobby must be set"))
	}
	if c.Queue.Weights.Premium <= 0 || c.Queue.Weights.Vip <= 0 || c.Queue.Weights.Default <= 0 {
		errs = append(errs, errors.New("queue.weights must all be positive"))
	}
	if c.Queue.MaxBatch <= 0 {
		errs = append(errs, errors.New("queue.max_batch must be positive"))
	}
	if c.Queue.TickInterval <= 0 {
		errs = append(errs, errors.New("queue.tick_interval must be positive"))
	}
	if c.Queue.NotifyCooldown <= 0 {
		errs = append(errs, errors.New("queue.notify_cooldown must be positive"))
	}
	if c.Queue.SoftbanMinWait < 0 {
		errs = append(errs, errors.New("queue.softban_min_wait must not be negative"))
	}
	if c.Queue.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("queue.probe_timeout must be positive"))
	}
	if (c.Directory.Enabled || c.SkipTokens.Enabled) && c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required when directory or skip tokens are enabled"))
	}
	if c.Gateway.BaseURL == "" {
		errs = append(errs, errors.New("gateway.base_url must be set"))
	}

	return errors.Join(errs...)
}
