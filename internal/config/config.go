package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	GoogleFit GoogleFitConfig `yaml:"google_fit"`
	Session   SessionConfig   `yaml:"session"`
	Redis     RedisConfig     `yaml:"redis"`
	Tokens    TokensConfig    `yaml:"tokens"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	// Timezone names the IANA zone days are bucketed in. Defaults to UTC.
	Timezone string `yaml:"timezone"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig is optional; persistence is disabled when Host is empty.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type GoogleFitConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	// FallbackToDemo fills metrics Google Fit could not supply with demo samples.
	FallbackToDemo    *bool   `yaml:"fallback_to_demo"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type SessionConfig struct {
	Secret string `yaml:"secret"`
	Secure bool   `yaml:"secure"`
}

// RedisConfig is optional; caching is disabled when Addr is empty.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type TokensConfig struct {
	StateDir string `yaml:"state_dir"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Enabled reports whether a Redis cache is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// Fallback reports whether demo fallback is on. It defaults to true.
func (g GoogleFitConfig) Fallback() bool { return g.FallbackToDemo == nil || *g.FallbackToDemo }

// Location resolves Timezone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix CALMTRACK_ and underscore-separated paths:
//
//	CALMTRACK_SERVER_HOST, CALMTRACK_SERVER_PORT,
//	CALMTRACK_DB_HOST, CALMTRACK_DB_PORT, CALMTRACK_DB_NAME,
//	CALMTRACK_DB_USER, CALMTRACK_DB_PASSWORD, CALMTRACK_DB_SSLMODE,
//	CALMTRACK_GOOGLE_CLIENT_ID, CALMTRACK_GOOGLE_CLIENT_SECRET,
//	CALMTRACK_GOOGLE_REDIRECT_URL, CALMTRACK_GOOGLE_FALLBACK_TO_DEMO,
//	CALMTRACK_SESSION_SECRET, CALMTRACK_REDIS_ADDR, CALMTRACK_REDIS_PASSWORD,
//	CALMTRACK_REDIS_DB, CALMTRACK_TOKENS_STATE_DIR,
//	CALMTRACK_TAILSCALE_ENABLED, CALMTRACK_TAILSCALE_HOSTNAME, CALMTRACK_TIMEZONE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Host, "CALMTRACK_SERVER_HOST")
	setInt(&cfg.Server.Port, "CALMTRACK_SERVER_PORT")

	setString(&cfg.Database.Host, "CALMTRACK_DB_HOST")
	setInt(&cfg.Database.Port, "CALMTRACK_DB_PORT")
	setString(&cfg.Database.Name, "CALMTRACK_DB_NAME")
	setString(&cfg.Database.User, "CALMTRACK_DB_USER")
	setString(&cfg.Database.Password, "CALMTRACK_DB_PASSWORD")
	setString(&cfg.Database.SSLMode, "CALMTRACK_DB_SSLMODE")

	setString(&cfg.GoogleFit.ClientID, "CALMTRACK_GOOGLE_CLIENT_ID")
	setString(&cfg.GoogleFit.ClientSecret, "CALMTRACK_GOOGLE_CLIENT_SECRET")
	setString(&cfg.GoogleFit.RedirectURL, "CALMTRACK_GOOGLE_REDIRECT_URL")
	if v := os.Getenv("CALMTRACK_GOOGLE_FALLBACK_TO_DEMO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.GoogleFit.FallbackToDemo = &b
		}
	}

	setString(&cfg.Session.Secret, "CALMTRACK_SESSION_SECRET")

	setString(&cfg.Redis.Addr, "CALMTRACK_REDIS_ADDR")
	setString(&cfg.Redis.Password, "CALMTRACK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CALMTRACK_REDIS_DB")

	setString(&cfg.Tokens.StateDir, "CALMTRACK_TOKENS_STATE_DIR")

	setBool(&cfg.Tailscale.Enabled, "CALMTRACK_TAILSCALE_ENABLED")
	setString(&cfg.Tailscale.Hostname, "CALMTRACK_TAILSCALE_HOSTNAME")

	setString(&cfg.Timezone, "CALMTRACK_TIMEZONE")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Database.Enabled() && c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 15 * time.Minute
	}
	if c.Tokens.StateDir == "" {
		c.Tokens.StateDir = "state"
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "calmtrack"
	}
	if c.Tailscale.StateDir == "" {
		c.Tailscale.StateDir = "tsnet-state"
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Enabled() {
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	}
	if c.GoogleFit.ClientID == "" {
		return fmt.Errorf("google_fit.client_id is required")
	}
	if c.GoogleFit.ClientSecret == "" {
		return fmt.Errorf("google_fit.client_secret is required")
	}
	if c.GoogleFit.RedirectURL == "" {
		return fmt.Errorf("google_fit.redirect_url is required")
	}
	if c.GoogleFit.RequestsPerSecond < 0 {
		return fmt.Errorf("google_fit.requests_per_second must not be negative")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret is required")
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must not be negative")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	return nil
}
