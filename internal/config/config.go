package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling | webhook (future)
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // update handler workers
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type QueueConfig struct {
	Tick        time.Duration `yaml:"tick"`         // scheduler poll interval
	CallTimeout time.Duration `yaml:"call_timeout"` // per collaborator call
	LeaderTTL   time.Duration `yaml:"leader_ttl"`   // scheduler leader lock
}

type ReconcileConfig struct {
	Interval time.Duration `yaml:"interval"` // 0 disables the timer; startup run always happens
	Grace    time.Duration `yaml:"grace"`    // how overdue the earliest item must be
	PageSize int           `yaml:"page_size"`
}

type DigestConfig struct {
	Interval    time.Duration `yaml:"interval"`     // per-user refresh loop
	RenewAfter  time.Duration `yaml:"renew_after"`  // recreate message past this age
	EditWindow  time.Duration `yaml:"edit_window"`  // platform stops allowing edits past this age
	ClaimPoll   time.Duration `yaml:"claim_poll"`   // poll step while another caller holds the claim
	ClaimStale  time.Duration `yaml:"claim_stale"`  // take over a claim whose holder went quiet this long
	SyncTimeout time.Duration `yaml:"sync_timeout"` // per-user bound during a full refresh pass
	WindowSize  int           `yaml:"window_size"`  // entries shown per section
}

type PacingConfig struct {
	Spacing time.Duration `yaml:"spacing"` // gap between one user's scheduled jobs
}

type DownloaderConfig struct {
	Enabled bool `yaml:"enabled"`
}

type UploaderConfig struct {
	Enabled bool `yaml:"enabled"`
}

type AdminConfig struct {
	Port       int           `yaml:"port"`
	JWTSecret  string        `yaml:"jwt_secret"`
	Password   string        `yaml:"password"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type SecretsConfig struct {
	Path string `yaml:"path"` // optional directory with yaml secret files
}

type Config struct {
	Bot        BotConfig        `yaml:"bot"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Queue      QueueConfig      `yaml:"queue"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
	Digest     DigestConfig     `yaml:"digest"`
	Pacing     PacingConfig     `yaml:"pacing"`
	Downloader DownloaderConfig `yaml:"downloader"`
	Uploader   UploaderConfig   `yaml:"uploader"`
	Admin      AdminConfig      `yaml:"admin"`
	Secrets    SecretsConfig    `yaml:"secrets"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Bot.Token == "" && cfg.Secrets.Path == "" {
		return nil, errors.New("bot.token or secrets.path is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Queue.Tick <= 0 {
		cfg.Queue.Tick = time.Minute
	}
	if cfg.Queue.CallTimeout <= 0 {
		cfg.Queue.CallTimeout = 5 * time.Minute
	}
	if cfg.Queue.LeaderTTL <= 0 {
		cfg.Queue.LeaderTTL = 3 * cfg.Queue.Tick
	}
	if cfg.Reconcile.Grace <= 0 {
		cfg.Reconcile.Grace = 10 * time.Minute
	}
	if cfg.Reconcile.PageSize <= 0 {
		cfg.Reconcile.PageSize = 1000
	}
	if cfg.Digest.Interval <= 0 {
		cfg.Digest.Interval = time.Minute
	}
	if cfg.Digest.RenewAfter <= 0 {
		cfg.Digest.RenewAfter = 24 * time.Hour
	}
	if cfg.Digest.EditWindow <= 0 {
		cfg.Digest.EditWindow = 48 * time.Hour
	}
	if cfg.Digest.ClaimPoll <= 0 {
		cfg.Digest.ClaimPoll = time.Second
	}
	if cfg.Digest.ClaimStale <= 0 {
		cfg.Digest.ClaimStale = 5 * time.Minute
	}
	if cfg.Digest.SyncTimeout <= 0 {
		cfg.Digest.SyncTimeout = time.Minute
	}
	if cfg.Digest.WindowSize <= 0 {
		cfg.Digest.WindowSize = 5
	}
	if cfg.Pacing.Spacing <= 0 {
		cfg.Pacing.Spacing = 2 * time.Minute
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
}
