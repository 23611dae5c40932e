package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/medbook/booking-api/internal/gateway"
	"github.com/medbook/booking-api/internal/scheduler"
	"github.com/medbook/booking-api/pkg/messaging/redis"
	"github.com/medbook/booking-api/pkg/worker"
)

type ServerConfig struct {
	Port           int           `mapstructure:"port" envconfig:"SERVER_PORT"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" envconfig:"SERVER_REQUEST_TIMEOUT"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host" envconfig:"DB_HOST"`
	Port         int    `mapstructure:"port" envconfig:"DB_PORT"`
	User         string `mapstructure:"user" envconfig:"DB_USER"`
	Password     string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name         string `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode      string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
	MaxOpenConns int    `mapstructure:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"REDIS_URL"`
	MaxRetries   int           `mapstructure:"max_retries" envconfig:"REDIS_MAX_RETRIES"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" envconfig:"REDIS_RETRY_BACKOFF"`
	PoolSize     int           `mapstructure:"pool_size" envconfig:"REDIS_POOL_SIZE"`
	MinIdleConns int           `mapstructure:"min_idle_conns" envconfig:"REDIS_MIN_IDLE_CONNS"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size" envconfig:"OUTBOX_BATCH_SIZE"`
	PollInterval  time.Duration `mapstructure:"poll_interval" envconfig:"OUTBOX_POLL_INTERVAL"`
	RetryAttempts int           `mapstructure:"retry_attempts" envconfig:"OUTBOX_RETRY_ATTEMPTS"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" envconfig:"OUTBOX_RETRY_DELAY"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" envconfig:"SCHEDULER_POLL_INTERVAL"`
	BatchSize    int           `mapstructure:"batch_size" envconfig:"SCHEDULER_BATCH_SIZE"`
	RunTimeout   time.Duration `mapstructure:"run_timeout" envconfig:"SCHEDULER_RUN_TIMEOUT"`
}

type BookingConfig struct {
	// ClinicUTCOffset is the wall-clock offset bookings arrive in,
	// e.g. "+05:30".
	ClinicUTCOffset string        `mapstructure:"clinic_utc_offset" envconfig:"CLINIC_UTC_OFFSET"`
	FeedbackOffset  time.Duration `mapstructure:"feedback_offset" envconfig:"FEEDBACK_OFFSET"`
	StoreTimeout    time.Duration `mapstructure:"store_timeout" envconfig:"STORE_TIMEOUT"`
}

type WhatsAppConfig struct {
	AccountSID string        `mapstructure:"account_sid" envconfig:"WHATSAPP_ACCOUNT_SID"`
	AuthToken  string        `mapstructure:"auth_token" envconfig:"WHATSAPP_AUTH_TOKEN"`
	FromNumber string        `mapstructure:"from_number" envconfig:"WHATSAPP_FROM_NUMBER"`
	BaseURL    string        `mapstructure:"base_url" envconfig:"WHATSAPP_BASE_URL"`
	Timeout    time.Duration `mapstructure:"timeout" envconfig:"WHATSAPP_TIMEOUT"`
}

type EmailConfig struct {
	Host     string `mapstructure:"host" envconfig:"SMTP_HOST"`
	Port     int    `mapstructure:"port" envconfig:"SMTP_PORT"`
	Username string `mapstructure:"username" envconfig:"SMTP_USERNAME"`
	Password string `mapstructure:"password" envconfig:"SMTP_PASSWORD"`
	From     string `mapstructure:"from" envconfig:"SMTP_FROM"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"RATE_LIMIT_RPS"`
	Burst             int     `mapstructure:"burst" envconfig:"RATE_LIMIT_BURST"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Booking   BookingConfig   `mapstructure:"booking"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Email     EmailConfig     `mapstructure:"email"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// LoadConfig reads config.yaml and applies environment overrides on
// top, so deployment secrets never have to live in the file.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Outbox.BatchSize <= 0 {
		c.Outbox.BatchSize = 50
	}
	if c.Outbox.PollInterval <= 0 {
		c.Outbox.PollInterval = 5 * time.Second
	}
	if c.Outbox.RetryAttempts <= 0 {
		c.Outbox.RetryAttempts = 3
	}
	if c.Outbox.RetryDelay <= 0 {
		c.Outbox.RetryDelay = time.Second
	}
	if c.Scheduler.PollInterval <= 0 {
		c.Scheduler.PollInterval = 30 * time.Second
	}
	if c.Scheduler.BatchSize <= 0 {
		c.Scheduler.BatchSize = 20
	}
	if c.Scheduler.RunTimeout <= 0 {
		c.Scheduler.RunTimeout = 30 * time.Second
	}
	if c.Booking.ClinicUTCOffset == "" {
		c.Booking.ClinicUTCOffset = "+05:30"
	}
	if c.Booking.FeedbackOffset <= 0 {
		c.Booking.FeedbackOffset = 60 * time.Minute
	}
	if c.Booking.StoreTimeout <= 0 {
		c.Booking.StoreTimeout = 5 * time.Second
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 100
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 200
	}
}

// Validate fails fast on the settings the process cannot run without.
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
		return fmt.Errorf("database host, user and name are required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis url is required")
	}
	if c.WhatsApp.AccountSID == "" || c.WhatsApp.AuthToken == "" || c.WhatsApp.FromNumber == "" || c.WhatsApp.BaseURL == "" {
		return fmt.Errorf("whatsapp account sid, auth token, from number and base url are required")
	}
	return nil
}

func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *SchedulerConfig) ToRunnerConfig() scheduler.RunnerConfig {
	return scheduler.RunnerConfig{
		PollInterval: c.PollInterval,
		BatchSize:    c.BatchSize,
		RunTimeout:   c.RunTimeout,
	}
}

func (c *WhatsAppConfig) ToGatewayConfig() gateway.WhatsAppConfig {
	return gateway.WhatsAppConfig{
		AccountSID: c.AccountSID,
		AuthToken:  c.AuthToken,
		FromNumber: c.FromNumber,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
	}
}

func (c *EmailConfig) ToGatewayConfig() gateway.EmailConfig {
	return gateway.EmailConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
	}
}
