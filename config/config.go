package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Collector  CollectorConfig  `yaml:"collector"`
	Engagement EngagementConfig `yaml:"engagement"`
	Affiliate  AffiliateConfig  `yaml:"affiliate"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// CollectorConfig points at the remote form collector.
type CollectorConfig struct {
	URL       string `yaml:"url"`
	HTTPProxy string `yaml:"http_proxy"`
}

// EngagementConfig tunes the interest interstitial scheduler.
type EngagementConfig struct {
	DelaySeconds  int           `yaml:"delay_seconds"`
	CooldownHours int           `yaml:"cooldown_hours"`
	Delay         time.Duration `yaml:"-"`
	Cooldown      time.Duration `yaml:"-"`
}

// AffiliateConfig is where verified booking leads are sent.
type AffiliateConfig struct {
	BookingURL string `yaml:"booking_url"` // listing id is appended as ?listing=
}

// SessionsConfig bounds how long idle visitor sessions are kept.
type SessionsConfig struct {
	IdleMinutes int           `yaml:"idle_minutes"`
	IdleTTL     time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for operator lead alerts.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the alert worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset fields and derives the duration fields.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "havens.db"
	}

	if cfg.Engagement.DelaySeconds <= 0 {
		cfg.Engagement.DelaySeconds = 5
	}
	cfg.Engagement.Delay = time.Duration(cfg.Engagement.DelaySeconds) * time.Second
	if cfg.Engagement.CooldownHours <= 0 {
		cfg.Engagement.CooldownHours = 24
	}
	cfg.Engagement.Cooldown = time.Duration(cfg.Engagement.CooldownHours) * time.Hour

	if cfg.Sessions.IdleMinutes <= 0 {
		cfg.Sessions.IdleMinutes = 30
	}
	cfg.Sessions.IdleTTL = time.Duration(cfg.Sessions.IdleMinutes) * time.Minute

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
