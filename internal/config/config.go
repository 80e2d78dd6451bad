package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Operational constants fixed by design rather than configuration.
const (
	// LivenessInterval is how often the push subscription is probed.
	LivenessInterval = 30 * time.Second
	// StartupRetries is the number of database connection attempts at boot.
	StartupRetries = 10
	// StartupRetryDelay separates startup connection attempts.
	StartupRetryDelay = 5 * time.Second
)

type DBConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ReloadConfig struct {
	Container string `yaml:"container"` // CoreDNS container to signal; empty disables the trigger
}

type SOAConfig struct {
	Primary    string `yaml:"primary"`    // MNAME, may include {zone}
	Hostmaster string `yaml:"hostmaster"` // RNAME, may include {zone}
}

type LogConfig struct {
	Level    string `yaml:"level"`
	SQLDebug bool   `yaml:"sql_debug"`
}

type Config struct {
	DB              DBConfig     `yaml:"db"`
	ZonesDir        string       `yaml:"zones_dir"`
	Reload          ReloadConfig `yaml:"reload"`
	NotifyChannel   string       `yaml:"notify_channel"`
	PollIntervalSec int          `yaml:"poll_interval_sec"`
	DefaultTTL      uint32       `yaml:"default_ttl"`
	SOA             SOAConfig    `yaml:"soa"`
	RESTListen      string       `yaml:"rest_listen"`    // empty disables the ops API
	APIToken        string       `yaml:"api_token"`      // plain text token (deprecated, use api_token_hash)
	APITokenHash    string       `yaml:"api_token_hash"` // bcrypt hash of token (recommended)
	Log             LogConfig    `yaml:"log"`
}

// Load reads the YAML config at path, applies environment overrides and
// defaults, and validates the result. A missing file is not an error: the
// daemon can run from environment variables alone.
func Load(path string) (*Config, error) {
	var cfg Config

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case os.IsNotExist(err):
		// env-only configuration
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()

	// Apply defaults
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.DB.Driver == "postgres" && cfg.DB.DSN == "" {
		cfg.DB.DSN = postgresDSNFromEnv()
	}
	if cfg.ZonesDir == "" {
		cfg.ZonesDir = "/etc/coredns/zones"
	}
	if cfg.NotifyChannel == "" {
		cfg.NotifyChannel = "dns_records_changed"
	}
	if cfg.PollIntervalSec == 0 {
		cfg.PollIntervalSec = 5
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 300
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// applyEnv overrides file values with environment variables. The keys match
// the env-only deployments this daemon replaced, so existing compose files
// keep working.
func (c *Config) applyEnv() {
	setIfEnv(&c.DB.Driver, "DB_DRIVER")
	setIfEnv(&c.DB.DSN, "DB_DSN")
	setIfEnv(&c.ZonesDir, "ZONES_DIRECTORY")
	setIfEnv(&c.Reload.Container, "COREDNS_CONTAINER")
	setIfEnv(&c.NotifyChannel, "NOTIFY_CHANNEL")
	setIfEnv(&c.RESTListen, "REST_LISTEN")
	setIfEnv(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= time.Second {
			c.PollIntervalSec = int(d / time.Second)
		}
	}
}

func postgresDSNFromEnv() string {
	host := getEnv("POSTGRES_HOST", "postgres")
	dbname := getEnv("POSTGRES_DB", "coredns")
	user := getEnv("POSTGRES_USER", "coredns")
	password := os.Getenv("POSTGRES_PASSWORD")
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable TimeZone=UTC",
		host, user, password, dbname,
	)
}

// Validate checks configuration for correctness
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	case "":
		return fmt.Errorf("db.driver is required")
	default:
		return fmt.Errorf("unsupported db.driver %q (postgres or sqlite)", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.ZonesDir == "" {
		return fmt.Errorf("zones_dir is required")
	}
	if c.PollIntervalSec <= 0 {
		return fmt.Errorf("poll_interval_sec must be > 0")
	}
	if c.APIToken != "" && c.APITokenHash != "" {
		return fmt.Errorf("cannot specify both api_token and api_token_hash, use only api_token_hash (recommended)")
	}
	return nil
}

// PollInterval returns the poll ticker period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// PushEnabled reports whether the LISTEN/NOTIFY subscription can be used;
// only the postgres driver carries a notification channel.
func (c *Config) PushEnabled() bool {
	return c.DB.Driver == "postgres"
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
