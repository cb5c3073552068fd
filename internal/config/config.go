// Package config loads application configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SLAWATCH_"

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	CORS          CORSConfig          `koanf:"cors"`
	SLA           SLAConfig           `koanf:"sla"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	MigrationsPath  string        `koanf:"migrations_path"`
	MigrateOnStart  bool          `koanf:"migrate_on_start"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// SLAConfig contains evaluation settings for the escalation scheduler and
// the compliance read side.
type SLAConfig struct {
	// ScanInterval is how often the scheduler re-evaluates open tickets.
	// It should not exceed the smallest configured escalation grace period.
	ScanInterval time.Duration `koanf:"scan_interval"`
	// RiskWindow is the lookahead within which an unbreached ticket counts
	// as at risk.
	RiskWindow          time.Duration `koanf:"risk_window"`
	ComplianceWindow    time.Duration `koanf:"compliance_window"`
	RecentBreachesLimit int           `koanf:"recent_breaches_limit"`
	ScanBatchSize       int           `koanf:"scan_batch_size"`
}

// NotificationsConfig contains notification dispatch settings.
type NotificationsConfig struct {
	Enabled bool          `koanf:"enabled"`
	Email   EmailConfig   `koanf:"email"`
	Webhook WebhookConfig `koanf:"webhook"`
	Worker  WorkerConfig  `koanf:"worker"`
	Retry   RetryConfig   `koanf:"retry"`
}

// EmailConfig contains SMTP sender settings.
type EmailConfig struct {
	Enabled      bool   `koanf:"enabled"`
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	FromAddress  string `koanf:"from_address"`
}

// WebhookConfig contains webhook sender settings.
type WebhookConfig struct {
	Enabled   bool          `koanf:"enabled"`
	URL       string        `koanf:"url"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
}

// WorkerConfig contains notification worker settings.
type WorkerConfig struct {
	BatchSize    int           `koanf:"batch_size"`
	PollInterval time.Duration `koanf:"poll_interval"`
	NumWorkers   int           `koanf:"num_workers"`
}

// RetryConfig contains notification retry settings.
type RetryConfig struct {
	MaxAttempts       int           `koanf:"max_attempts"`
	InitialBackoff    time.Duration `koanf:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			MigrationsPath:  "migrations",
			MigrateOnStart:  true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		SLA: SLAConfig{
			ScanInterval:        60 * time.Second,
			RiskWindow:          30 * time.Minute,
			ComplianceWindow:    30 * 24 * time.Hour,
			RecentBreachesLimit: 20,
			ScanBatchSize:       500,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Email: EmailConfig{
				SMTPPort:    587,
				FromAddress: "slawatch@localhost",
			},
			Webhook: WebhookConfig{
				Timeout:   10 * time.Second,
				RateLimit: 5,
			},
			Worker: WorkerConfig{
				BatchSize:    100,
				PollInterval: 5 * time.Second,
				NumWorkers:   3,
			},
			Retry: RetryConfig{
				MaxAttempts:       3,
				InitialBackoff:    time.Second,
				MaxBackoff:        5 * time.Minute,
				BackoffMultiplier: 2.0,
			},
		},
	}
}

// Load reads configuration from an optional YAML file and SLAWATCH_*
// environment variables. Environment variables take precedence; nested keys
// use double underscores (SLAWATCH_DATABASE__URL).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// Unmarshal on top of defaults so unset keys keep their default values.
	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.SLA.ScanInterval <= 0 {
		return fmt.Errorf("sla.scan_interval must be positive")
	}
	if c.SLA.RiskWindow <= 0 {
		return fmt.Errorf("sla.risk_window must be positive")
	}
	if c.SLA.ComplianceWindow <= 0 {
		return fmt.Errorf("sla.compliance_window must be positive")
	}
	return nil
}
