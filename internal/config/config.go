package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freelanceops/billing/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment" validate:"required"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Logging    LoggingConfig    `mapstructure:"logging" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler" validate:"required"`
	LateFee    LateFeeConfig    `mapstructure:"late_fee"`
	Reminders  RemindersConfig  `mapstructure:"reminders"`
	Retention  RetentionConfig  `mapstructure:"retention" validate:"required"`
	Webhook    Webhook          `mapstructure:"webhook" validate:"required"`
	Email      EmailConfig      `mapstructure:"email"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Profiling  ProfilingConfig  `mapstructure:"profiling"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type DatabaseConfig struct {
	Driver          types.DatabaseDriver `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	SQLitePath      string               `mapstructure:"sqlite_path"`
	Postgres        PostgresConfig       `mapstructure:"postgres"`
	MaxOpenConns    int                  `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int                  `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration        `mapstructure:"conn_max_lifetime"`
	TxMaxRetries    int                  `mapstructure:"tx_max_retries" validate:"min=0"`
	AutoMigrate     bool                 `mapstructure:"auto_migrate"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Interval drives the full daily run, FastInterval only reminders and webhook retries
	Interval     time.Duration `mapstructure:"interval" validate:"required"`
	FastInterval time.Duration `mapstructure:"fast_interval"`
	// fast runs hold their own lock so they never push back a daily run
	LockName     string        `mapstructure:"lock_name" validate:"required"`
	FastLockName string        `mapstructure:"fast_lock_name" validate:"required,nefield=LockName"`
	LockLease    time.Duration `mapstructure:"lock_lease" validate:"required"`
	// SkippedRetryDelay is how long the daily loop waits before retrying a skipped run
	SkippedRetryDelay time.Duration `mapstructure:"skipped_retry_delay"`
	CatchUpLimit      int           `mapstructure:"catch_up_limit" validate:"min=1"`
	RunOnStart        bool          `mapstructure:"run_on_start"`
}

type LateFeeConfig struct {
	DefaultPolicy types.LateFeePolicyType `mapstructure:"default_policy"`
	DefaultValue  string                  `mapstructure:"default_value"`
	GraceDays     int                     `mapstructure:"grace_days" validate:"min=0"`
}

type RemindersConfig struct {
	Enabled bool  `mapstructure:"enabled"`
	Offsets []int `mapstructure:"offsets"`
	// MaxAttempts bounds how many runs try a failing reminder before it stays failed
	MaxAttempts int `mapstructure:"max_attempts" validate:"min=1"`
}

type RetentionConfig struct {
	SoftDeleteDays int `mapstructure:"soft_delete_days" validate:"min=1"`
	AnalyticsDays  int `mapstructure:"analytics_days" validate:"min=1"`
}

type EmailConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	SendgridAPIKey string  `mapstructure:"sendgrid_api_key"`
	FromAddress    string  `mapstructure:"from_address"`
	FromName       string  `mapstructure:"from_name"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateBurst      int     `mapstructure:"rate_burst"`
	// MaxAttempts bounds the attempts of one email when the provider fails transiently
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"min=1"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
}

type SecretsConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TriggerTTL time.Duration `mapstructure:"trigger_ttl"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type ProfilingConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ServerAddress   string `mapstructure:"server_address" validate:"required_if=Enabled true"`
	ApplicationName string `mapstructure:"application_name"`
	BasicAuthUser   string `mapstructure:"basic_auth_user"`
	BasicAuthPass   string `mapstructure:"basic_auth_password"`
	SampleRate      uint32 `mapstructure:"sample_rate"`
}

type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional and only used for local development
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/billing")

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override it without a config file
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.sqlite_path", d.Database.SQLitePath)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "billing")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "billing")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.tx_max_retries", d.Database.TxMaxRetries)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)
	v.SetDefault("scheduler.enabled", d.Scheduler.Enabled)
	v.SetDefault("scheduler.interval", d.Scheduler.Interval)
	v.SetDefault("scheduler.fast_interval", d.Scheduler.FastInterval)
	v.SetDefault("scheduler.lock_name", d.Scheduler.LockName)
	v.SetDefault("scheduler.fast_lock_name", d.Scheduler.FastLockName)
	v.SetDefault("scheduler.lock_lease", d.Scheduler.LockLease)
	v.SetDefault("scheduler.skipped_retry_delay", d.Scheduler.SkippedRetryDelay)
	v.SetDefault("scheduler.catch_up_limit", d.Scheduler.CatchUpLimit)
	v.SetDefault("scheduler.run_on_start", d.Scheduler.RunOnStart)
	v.SetDefault("late_fee.default_policy", d.LateFee.DefaultPolicy)
	v.SetDefault("late_fee.default_value", d.LateFee.DefaultValue)
	v.SetDefault("late_fee.grace_days", d.LateFee.GraceDays)
	v.SetDefault("reminders.enabled", d.Reminders.Enabled)
	v.SetDefault("reminders.offsets", d.Reminders.Offsets)
	v.SetDefault("reminders.max_attempts", d.Reminders.MaxAttempts)
	v.SetDefault("retention.soft_delete_days", d.Retention.SoftDeleteDays)
	v.SetDefault("retention.analytics_days", d.Retention.AnalyticsDays)
	v.SetDefault("webhook.enabled", d.Webhook.Enabled)
	v.SetDefault("webhook.topic", d.Webhook.Topic)
	v.SetDefault("webhook.pubsub", d.Webhook.PubSub)
	v.SetDefault("webhook.timeout", d.Webhook.Timeout)
	v.SetDefault("webhook.max_attempts", d.Webhook.MaxAttempts)
	v.SetDefault("webhook.retry_max", d.Webhook.RetryMax)
	v.SetDefault("webhook.retry_wait_min", d.Webhook.RetryWaitMin)
	v.SetDefault("webhook.retry_wait_max", d.Webhook.RetryWaitMax)
	v.SetDefault("webhook.retry_delay", d.Webhook.RetryDelay)
	v.SetDefault("webhook.claim_lease", d.Webhook.ClaimLease)
	v.SetDefault("webhook.output_buffer", d.Webhook.OutputBuffer)
	v.SetDefault("webhook.concurrency", d.Webhook.Concurrency)
	v.SetDefault("email.enabled", d.Email.Enabled)
	v.SetDefault("email.sendgrid_api_key", "")
	v.SetDefault("email.from_address", d.Email.FromAddress)
	v.SetDefault("email.from_name", d.Email.FromName)
	v.SetDefault("email.rate_limit", d.Email.RateLimit)
	v.SetDefault("email.rate_burst", d.Email.RateBurst)
	v.SetDefault("email.max_attempts", d.Email.MaxAttempts)
	v.SetDefault("email.retry_wait_min", d.Email.RetryWaitMin)
	v.SetDefault("email.retry_wait_max", d.Email.RetryWaitMax)
	v.SetDefault("secrets.encryption_key", "")
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.trigger_ttl", d.Cache.TriggerTTL)
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("profiling.enabled", false)
	v.SetDefault("profiling.server_address", "")
	v.SetDefault("profiling.application_name", d.Profiling.ApplicationName)
	v.SetDefault("profiling.basic_auth_user", "")
	v.SetDefault("profiling.basic_auth_password", "")
	v.SetDefault("profiling.sample_rate", d.Profiling.SampleRate)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts, the CLI and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Database: DatabaseConfig{
			Driver:          types.DatabaseDriverSQLite,
			SQLitePath:      "billing.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Hour,
			TxMaxRetries:    5,
			AutoMigrate:     true,
		},
		Scheduler: SchedulerConfig{
			Enabled:           true,
			Interval:          24 * time.Hour,
			FastInterval:      15 * time.Minute,
			LockName:          "billing_scheduler",
			FastLockName:      "billing_scheduler_fast",
			LockLease:         30 * time.Minute,
			SkippedRetryDelay: 5 * time.Minute,
			CatchUpLimit:      12,
		},
		LateFee: LateFeeConfig{
			DefaultPolicy: types.LateFeePolicyNone,
			GraceDays:     0,
		},
		Reminders: RemindersConfig{
			Enabled:     true,
			Offsets:     []int{-3, 1, 7, 14},
			MaxAttempts: 5,
		},
		Retention: RetentionConfig{
			SoftDeleteDays: 30,
			AnalyticsDays:  90,
		},
		Webhook: Webhook{
			Enabled:      true,
			Topic:        "workflow_webhooks",
			PubSub:       types.MemoryPubSub,
			Timeout:      10 * time.Second,
			MaxAttempts:  8,
			RetryMax:     2,
			RetryWaitMin: 500 * time.Millisecond,
			RetryWaitMax: 5 * time.Second,
			RetryDelay:   10 * time.Minute,
			ClaimLease:   5 * time.Minute,
			OutputBuffer: 100,
			Concurrency:  4,
		},
		Email: EmailConfig{
			FromAddress:  "billing@example.com",
			FromName:     "Billing",
			RateLimit:    5,
			RateBurst:    5,
			MaxAttempts:  3,
			RetryWaitMin: time.Second,
			RetryWaitMax: 10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TriggerTTL: 5 * time.Minute,
		},
		Profiling: ProfilingConfig{
			ApplicationName: "billing",
			SampleRate:      100,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
