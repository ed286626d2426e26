package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Feed     FeedConfig     `yaml:"feed"`
	Sync     SyncConfig     `yaml:"sync"`
	HTTP     HTTPConfig     `yaml:"http"`
	LogLevel string         `yaml:"log_level"`
}

// RabbitMQConfig configures listing event publishing. An empty URL disables it.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// RedisConfig configures the per-source lease. An empty URL disables it.
type RedisConfig struct {
	URL       string        `yaml:"url"`
	KeyPrefix string        `yaml:"key_prefix"`
	LeaseTTL  time.Duration `yaml:"lease_ttl"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the database address in the form golang-migrate expects.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type FeedConfig struct {
	BaseURL        string        `yaml:"base_url"`
	ExternalSource string        `yaml:"external_source"`
	PerPage        int           `yaml:"per_page"`
	UserAgent      string        `yaml:"user_agent"`
	HomeCountry    string        `yaml:"home_country"`
	Timeout        time.Duration `yaml:"timeout"`
	Retry          RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type SyncConfig struct {
	Schedule      string        `yaml:"schedule"`
	RunTimeout    time.Duration `yaml:"run_timeout"`
	CutoffMonths  int           `yaml:"cutoff_months"`
	RetentionDays int           `yaml:"retention_days"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "vacancy_syncer:lease:"
	}
	if c.Redis.LeaseTTL == 0 {
		c.Redis.LeaseTTL = 15 * time.Minute
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "vacancy_syncer"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "listings"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "listing_events"
	}
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://api.hh.ru"
	}
	if c.Feed.ExternalSource == "" {
		c.Feed.ExternalSource = "hh"
	}
	if c.Feed.PerPage == 0 {
		c.Feed.PerPage = 100
	}
	if c.Feed.UserAgent == "" {
		c.Feed.UserAgent = "VacancySyncer/1.0"
	}
	if c.Feed.HomeCountry == "" {
		c.Feed.HomeCountry = "RU"
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 30 * time.Second
	}
	if c.Feed.Retry.MaxAttempts == 0 {
		c.Feed.Retry.MaxAttempts = 3
	}
	if c.Feed.Retry.InitialBackoff == 0 {
		c.Feed.Retry.InitialBackoff = 1 * time.Second
	}
	if c.Feed.Retry.MaxBackoff == 0 {
		c.Feed.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Sync.Schedule == "" {
		c.Sync.Schedule = "@every 1h"
	}
	if c.Sync.RunTimeout == 0 {
		c.Sync.RunTimeout = 10 * time.Minute
	}
	if c.Sync.CutoffMonths == 0 {
		c.Sync.CutoffMonths = 1
	}
	if c.Sync.RetentionDays == 0 {
		c.Sync.RetentionDays = 60
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database.dbname is required")
	}
	if c.Feed.PerPage < 1 || c.Feed.PerPage > 100 {
		return fmt.Errorf("feed.per_page must be between 1 and 100, got %d", c.Feed.PerPage)
	}
	if c.Sync.CutoffMonths < 0 || c.Sync.RetentionDays < 0 {
		return fmt.Errorf("sync windows must not be negative")
	}
	return nil
}

// Retention returns the age after which closed listings are purged.
func (s SyncConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}
