package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/outreach-engine/internal/service/allocation"
	"github.com/ignite/outreach-engine/internal/service/ingest"
	"github.com/ignite/outreach-engine/internal/service/schedule"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Allocation  allocation.Config `yaml:"allocation"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Queue       QueueConfig       `yaml:"queue"`
	Delivery    DeliveryConfig    `yaml:"delivery"`
	Unsubscribe UnsubscribeConfig `yaml:"unsubscribe"`
	Alerts      AlertsConfig      `yaml:"alerts"`
	Archive     ArchiveConfig     `yaml:"archive"`
	API         APIConfig         `yaml:"api"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection used by the queue and locks
type RedisConfig struct {
	URL string `yaml:"url"`
}

// ScheduleConfig holds the daily trigger and time-spreading settings.
// A negative max_offset_minutes or retries disables jitter or retries.
type ScheduleConfig struct {
	Cron               string `yaml:"cron"`
	Timezone           string `yaml:"timezone"`
	StartHour          int    `yaml:"start_hour"`
	EndHour            int    `yaml:"end_hour"`
	MaxOffsetMinutes   int    `yaml:"max_offset_minutes"`
	BatchSize          int    `yaml:"batch_size"`
	Retries            int    `yaml:"retries"`
	FailureCallbackURL string `yaml:"failure_callback_url"`
	LockTTLMinutes     int    `yaml:"lock_ttl_minutes"`
}

// MaxOffset returns the jitter bound as a duration
func (c ScheduleConfig) MaxOffset() time.Duration {
	return time.Duration(c.MaxOffsetMinutes) * time.Minute
}

// LockTTL returns how long the daily run lock is held at most
func (c ScheduleConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

// IngestConfig holds the court register feed that fills recipients.
// The feed runs on its own cron, ahead of the scheduling tick.
type IngestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	BaseURL string `yaml:"base_url"`
	// MinRegistrationDate (YYYY-MM-DD) drops older companies. Empty uses
	// the bulletin day.
	MinRegistrationDate string `yaml:"min_registration_date"`
	BatchSize           int    `yaml:"batch_size"`
	Concurrency         int    `yaml:"concurrency"`
	BatchPauseMillis    int    `yaml:"batch_pause_millis"`
	MaxRetries          int    `yaml:"max_retries"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
}

// MinDate parses MinRegistrationDate. Empty yields the zero time.
func (c IngestConfig) MinDate() (time.Time, error) {
	if c.MinRegistrationDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", c.MinRegistrationDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("ingest.min_registration_date: %w", err)
	}
	return t, nil
}

// Timeout returns the per-request timeout for register calls
func (c IngestConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// QueueConfig holds dispatch queue settings
type QueueConfig struct {
	Prefix                   string `yaml:"prefix"`
	VisibilityTimeoutSeconds int    `yaml:"visibility_timeout_seconds"`
	PollIntervalMillis       int    `yaml:"poll_interval_millis"`
	ClaimBatch               int    `yaml:"claim_batch"`
	Concurrency              int    `yaml:"concurrency"`
	RetryBackoffSeconds      int    `yaml:"retry_backoff_seconds"`
	RecoveryIntervalSeconds  int    `yaml:"recovery_interval_seconds"`
	CallbackSecret           string `yaml:"callback_secret"`
}

// VisibilityTimeout returns how long a claimed message stays invisible
func (c QueueConfig) VisibilityTimeout() time.Duration {
	return time.Duration(c.VisibilityTimeoutSeconds) * time.Second
}

// PollInterval returns the consumer poll period
func (c QueueConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

// RetryBackoff returns the base delay between delivery attempts
func (c QueueConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds) * time.Second
}

// RecoveryInterval returns the period of the stuck-message sweep
func (c QueueConfig) RecoveryInterval() time.Duration {
	return time.Duration(c.RecoveryIntervalSeconds) * time.Second
}

// DeliveryConfig holds mail provider settings
type DeliveryConfig struct {
	Provider            string       `yaml:"provider"` // gmail or ses
	AppURL              string       `yaml:"app_url"`
	SenderRatePerMinute float64      `yaml:"sender_rate_per_minute"`
	SenderBurst         int          `yaml:"sender_burst"`
	Google              GoogleConfig `yaml:"google"`
	SES                 SESConfig    `yaml:"ses"`
}

// GoogleConfig holds the OAuth client used to refresh sender tokens
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	ConfigurationSet string `yaml:"configuration_set"`
}

// UnsubscribeConfig holds unsubscribe token settings
type UnsubscribeConfig struct {
	Secret  string `yaml:"secret"`
	TTLDays int    `yaml:"ttl_days"`
}

// TTL returns the token lifetime
func (c UnsubscribeConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// AlertsConfig holds SMTP alerting settings
type AlertsConfig struct {
	Enabled  bool     `yaml:"enabled"`
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// ArchiveConfig holds run report storage settings
type ArchiveConfig struct {
	Enabled       bool   `yaml:"enabled"`
	S3Bucket      string `yaml:"s3_bucket"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain
	LocalPath     string `yaml:"local_path"`  // Used when no bucket or table is set
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c ArchiveConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// APIConfig holds HTTP API settings
type APIConfig struct {
	Token          string   `yaml:"token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Console   bool   `yaml:"console"`
	RedactPII bool   `yaml:"redact_pii"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, for running
// without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
	}

	cfg.Allocation = cfg.Allocation.WithDefaults()

	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "0 7 * * 1-5"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = schedule.DefaultLocation
	}
	if cfg.Schedule.StartHour == 0 && cfg.Schedule.EndHour == 0 {
		cfg.Schedule.StartHour = schedule.DefaultStartHour
		cfg.Schedule.EndHour = schedule.DefaultEndHour
	}
	if cfg.Schedule.MaxOffsetMinutes == 0 {
		cfg.Schedule.MaxOffsetMinutes = int(schedule.DefaultMaxOffset / time.Minute)
	}
	if cfg.Schedule.BatchSize == 0 {
		cfg.Schedule.BatchSize = schedule.DefaultBatchSize
	}
	if cfg.Schedule.Retries == 0 {
		cfg.Schedule.Retries = schedule.DefaultRetries
	}
	if cfg.Schedule.LockTTLMinutes == 0 {
		cfg.Schedule.LockTTLMinutes = 30
	}

	if cfg.Ingest.Cron == "" {
		cfg.Ingest.Cron = "0 6 * * *"
	}
	if cfg.Ingest.BaseURL == "" {
		cfg.Ingest.BaseURL = ingest.DefaultBaseURL
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = ingest.DefaultBatchSize
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = ingest.DefaultConcurrency
	}
	if cfg.Ingest.BatchPauseMillis == 0 {
		cfg.Ingest.BatchPauseMillis = int(ingest.DefaultBatchPause / time.Millisecond)
	}
	if cfg.Ingest.MaxRetries == 0 {
		cfg.Ingest.MaxRetries = 3
	}
	if cfg.Ingest.TimeoutSeconds == 0 {
		cfg.Ingest.TimeoutSeconds = 30
	}

	if cfg.Queue.Prefix == "" {
		cfg.Queue.Prefix = "outreach:dispatch"
	}
	if cfg.Queue.VisibilityTimeoutSeconds == 0 {
		cfg.Queue.VisibilityTimeoutSeconds = 120
	}
	if cfg.Queue.PollIntervalMillis == 0 {
		cfg.Queue.PollIntervalMillis = 1000
	}
	if cfg.Queue.ClaimBatch == 0 {
		cfg.Queue.ClaimBatch = 20
	}
	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = 4
	}
	if cfg.Queue.RetryBackoffSeconds == 0 {
		cfg.Queue.RetryBackoffSeconds = 60
	}
	if cfg.Queue.RecoveryIntervalSeconds == 0 {
		cfg.Queue.RecoveryIntervalSeconds = 60
	}

	if cfg.Delivery.Provider == "" {
		cfg.Delivery.Provider = "gmail"
	}
	if cfg.Delivery.AppURL == "" {
		cfg.Delivery.AppURL = "http://localhost:3000"
	}
	if cfg.Delivery.SenderRatePerMinute == 0 {
		cfg.Delivery.SenderRatePerMinute = 2
	}
	if cfg.Delivery.SenderBurst == 0 {
		cfg.Delivery.SenderBurst = 1
	}
	if cfg.Delivery.SES.Region == "" {
		cfg.Delivery.SES.Region = "us-west-2"
	}

	if cfg.Unsubscribe.TTLDays == 0 {
		cfg.Unsubscribe.TTLDays = 30
	}

	if cfg.Alerts.SMTPPort == 0 {
		cfg.Alerts.SMTPPort = 587
	}
	if cfg.Archive.AWSRegion == "" {
		cfg.Archive.AWSRegion = "us-west-2"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
// An empty path skips the YAML file and starts from defaults.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	overrideString(&cfg.Database.URL, "DATABASE_URL")
	overrideString(&cfg.Redis.URL, "REDIS_URL")
	overrideString(&cfg.Queue.CallbackSecret, "CALLBACK_SECRET")
	overrideString(&cfg.Schedule.FailureCallbackURL, "FAILURE_CALLBACK_URL")
	overrideString(&cfg.Schedule.Timezone, "BUSINESS_TIMEZONE")
	overrideString(&cfg.Delivery.Provider, "MAIL_PROVIDER")
	overrideString(&cfg.Delivery.AppURL, "APP_URL")
	overrideString(&cfg.Delivery.Google.ClientID, "GOOGLE_CLIENT_ID")
	overrideString(&cfg.Delivery.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	overrideString(&cfg.Delivery.SES.AccessKey, "AWS_SES_ACCESS_KEY")
	overrideString(&cfg.Delivery.SES.SecretKey, "AWS_SES_SECRET_KEY")
	overrideString(&cfg.Delivery.SES.Region, "AWS_SES_REGION")
	overrideString(&cfg.Unsubscribe.Secret, "UNSUBSCRIBE_SECRET")
	overrideString(&cfg.Alerts.Password, "SMTP_PASSWORD")
	overrideString(&cfg.Archive.S3Bucket, "ARCHIVE_S3_BUCKET")
	overrideString(&cfg.Archive.DynamoDBTable, "ARCHIVE_DYNAMODB_TABLE")
	overrideString(&cfg.API.Token, "API_TOKEN")
	overrideString(&cfg.Logging.Level, "LOG_LEVEL")
	overrideString(&cfg.Ingest.BaseURL, "KRS_API_URL")
	overrideString(&cfg.Ingest.MinRegistrationDate, "MIN_COMPANY_REGISTRATION_DATE")

	if v := os.Getenv("INGEST_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("INGEST_ENABLED: %w", err)
		}
		cfg.Ingest.Enabled = b
	}

	if v := os.Getenv("MAX_EXPOSURE_PER_RECIPIENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("MAX_EXPOSURE_PER_RECIPIENT: %w", err)
		}
		cfg.Allocation.MaxExposurePerRecipient = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (cfg *Config) Validate() error {
	if err := cfg.Allocation.Validate(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if cfg.Schedule.StartHour < 0 || cfg.Schedule.EndHour > 24 || cfg.Schedule.StartHour >= cfg.Schedule.EndHour {
		return fmt.Errorf("schedule: invalid window %d-%d", cfg.Schedule.StartHour, cfg.Schedule.EndHour)
	}
	if _, err := cfg.Ingest.MinDate(); err != nil {
		return err
	}
	switch cfg.Delivery.Provider {
	case "gmail", "ses":
	default:
		return fmt.Errorf("delivery.provider: unknown provider %q", cfg.Delivery.Provider)
	}
	return nil
}

// PlannerConfig converts the schedule section into the planner's config.
func (cfg *Config) PlannerConfig() schedule.Config {
	return schedule.Config{
		StartHour:       cfg.Schedule.StartHour,
		EndHour:         cfg.Schedule.EndHour,
		Location:        cfg.Schedule.Timezone,
		MaxOffset:       cfg.Schedule.MaxOffset(),
		BatchSize:       cfg.Schedule.BatchSize,
		Retries:         cfg.Schedule.Retries,
		FailureCallback: cfg.Schedule.FailureCallbackURL,
		Allocation:      cfg.Allocation,
	}
}

// IngestOptions converts the ingest section into the feed's options.
// "Yesterday" is evaluated in the business timezone.
func (cfg *Config) IngestOptions() (ingest.Options, error) {
	minDate, err := cfg.Ingest.MinDate()
	if err != nil {
		return ingest.Options{}, err
	}
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return ingest.Options{}, fmt.Errorf("schedule.timezone: %w", err)
	}
	return ingest.Options{
		MinRegistrationDate: minDate,
		BatchSize:           cfg.Ingest.BatchSize,
		Concurrency:         cfg.Ingest.Concurrency,
		BatchPause:          time.Duration(cfg.Ingest.BatchPauseMillis) * time.Millisecond,
		Location:            loc,
	}, nil
}
