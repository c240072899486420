package config

import (
	"os"
	"time"

	"saraban/pkg/config"
)

type UploadConfig struct {
	Dir          string `yaml:"dir"`
	PublicPrefix string `yaml:"public_prefix"`
	MaxBytes     int64  `yaml:"max_bytes"`
}

type AuditConfig struct {
	// Strict makes audit write failures fail the originating request. The
	// mutation is already stored when that happens.
	Strict bool `yaml:"strict"`
}

type NotificationsConfig struct {
	DefaultLimit int           `yaml:"default_limit"`
	MaxLimit     int           `yaml:"max_limit"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

type RelayConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int64         `yaml:"max_retries"`
	DedupTTL   time.Duration `yaml:"dedup_ttl"`
}

// AdminConfig seeds an administrator account at startup when both fields
// are set. An existing user with that name is left untouched.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Config struct {
	// Env is the CONFIG_ENV layer this config was loaded with.
	Env string `yaml:"-"`

	DB            config.DBConfig     `yaml:"db"`
	MQ            config.MQConfig     `yaml:"mq"`
	Redis         config.RedisConfig  `yaml:"redis"`
	JWT           config.JWTConfig    `yaml:"jwt"`
	Server        config.ServerConfig `yaml:"server"`
	OTel          config.OTelConfig   `yaml:"otel"`
	Upload        UploadConfig        `yaml:"upload"`
	Audit         AuditConfig         `yaml:"audit"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Outbox        OutboxConfig        `yaml:"outbox"`
	Relay         RelayConfig         `yaml:"relay"`
	Admin         AdminConfig         `yaml:"admin"`
}

// Default returns the values used when a key is absent from every layer.
func Default() Config {
	return Config{
		DB: config.DBConfig{
			Host:      "localhost",
			Port:      5432,
			User:      "saraban",
			Name:      "saraban",
			MaxConns:  10,
			SlowQuery: 100 * time.Millisecond,
		},
		JWT:    config.JWTConfig{TTL: 24 * time.Hour},
		Server: config.ServerConfig{Port: ":8080", ShutdownTimeout: 30 * time.Second},
		Upload: UploadConfig{
			Dir:          "./uploads",
			PublicPrefix: "/uploads",
			MaxBytes:     10 << 20,
		},
		Notifications: NotificationsConfig{DefaultLimit: 50, MaxLimit: 200, CacheTTL: 30 * time.Second},
		Outbox:        OutboxConfig{Interval: time.Second, BatchSize: 100, MaxRetries: 5},
		Relay: RelayConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 3,
			DedupTTL:   time.Hour,
		},
	}
}

// Load reads config/<CONFIG_ENV>.yaml over config/base.yaml and applies
// environment overrides last.
func Load() (*Config, error) {
	cfg := Default()

	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")
	if err := config.Decode(env, configDir, &cfg); err != nil {
		return nil, err
	}
	cfg.Env = env

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		cfg.Upload.Dir = dir
	}
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		cfg.Relay.WebhookURL = url
	}
	if u := os.Getenv("ADMIN_USERNAME"); u != "" {
		cfg.Admin.Username = u
	}
	if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
		cfg.Admin.Password = pw
	}

	return &cfg, nil
}
