package config

import (
	"strings"
	"time"

	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration is the full application configuration, loaded from
// config files and BILLFLOW_* environment variables.
type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Billing    BillingConfig    `mapstructure:"billing"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
}

type DeploymentMode string

const (
	ModeLocal     DeploymentMode = "local"
	ModeScheduler DeploymentMode = "scheduler"
)

type DeploymentConfig struct {
	Mode DeploymentMode `mapstructure:"mode" default:"local"`
}

type LoggingConfig struct {
	Level          string `mapstructure:"level" default:"info"`
	FluentdEnabled bool   `mapstructure:"fluentd_enabled" default:"false"`
	FluentdHost    string `mapstructure:"fluentd_host"`
	FluentdPort    int    `mapstructure:"fluentd_port"`
}

type BillingConfig struct {
	// DefaultTaxRate is applied on renewal invoices when the plan carries no
	// tax rate override. Product has not yet confirmed zero-rating rules for
	// SEZ/overseas customers; until then the flat default applies to all.
	DefaultTaxRate        float64 `mapstructure:"default_tax_rate" default:"18"`
	DueDateDays           int     `mapstructure:"due_date_days" default:"7"`
	InvoiceNumberPrefix   string  `mapstructure:"invoice_number_prefix" default:"INV"`
	RenewalLookaheadHours int     `mapstructure:"renewal_lookahead_hours" default:"24"`
}

type SchedulerConfig struct {
	RenewalInterval      time.Duration `mapstructure:"renewal_interval" default:"15m"`
	TrialExpiryInterval  time.Duration `mapstructure:"trial_expiry_interval" default:"15m"`
	OverdueInterval      time.Duration `mapstructure:"overdue_interval" default:"1h"`
	WebhookRetryInterval time.Duration `mapstructure:"webhook_retry_interval" default:"1m"`
	BatchWorkers         int           `mapstructure:"batch_workers" default:"4"`
}

type WebhookConfig struct {
	Enabled        bool          `mapstructure:"enabled" default:"true"`
	Topic          string        `mapstructure:"topic" default:"webhook_events"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout" default:"10s"`
	MaxRetries     int           `mapstructure:"max_retries" default:"5"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" default:"5m"`
	UserAgent      string        `mapstructure:"user_agent" default:"billflow-webhooks/1.0"`
}

// NewConfig loads configuration from ./config/config.yaml (optional) and
// the environment.
func NewConfig() (*Configuration, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("BILLFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read config file").
				Mark(ierr.ErrValidation)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to unmarshal configuration").
			Mark(ierr.ErrValidation)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(ModeLocal))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.fluentd_enabled", false)
	v.SetDefault("billing.default_tax_rate", 18.0)
	v.SetDefault("billing.due_date_days", 7)
	v.SetDefault("billing.invoice_number_prefix", "INV")
	v.SetDefault("billing.renewal_lookahead_hours", 24)
	v.SetDefault("scheduler.renewal_interval", "15m")
	v.SetDefault("scheduler.trial_expiry_interval", "15m")
	v.SetDefault("scheduler.overdue_interval", "1h")
	v.SetDefault("scheduler.webhook_retry_interval", "1m")
	v.SetDefault("scheduler.batch_workers", 4)
	v.SetDefault("webhook.enabled", true)
	v.SetDefault("webhook.topic", "webhook_events")
	v.SetDefault("webhook.default_timeout", "10s")
	v.SetDefault("webhook.max_retries", 5)
	v.SetDefault("webhook.retry_base_delay", "5m")
	v.SetDefault("webhook.user_agent", "billflow-webhooks/1.0")
}

// GetDefaultConfig returns a configuration suitable for tests and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: ModeLocal},
		Logging:    LoggingConfig{Level: "debug"},
		Billing: BillingConfig{
			DefaultTaxRate:        18,
			DueDateDays:           7,
			InvoiceNumberPrefix:   "INV",
			RenewalLookaheadHours: 24,
		},
		Scheduler: SchedulerConfig{
			RenewalInterval:      15 * time.Minute,
			TrialExpiryInterval:  15 * time.Minute,
			OverdueInterval:      time.Hour,
			WebhookRetryInterval: time.Minute,
			BatchWorkers:         4,
		},
		Webhook: WebhookConfig{
			Enabled:        true,
			Topic:          "webhook_events",
			DefaultTimeout: 10 * time.Second,
			MaxRetries:     5,
			RetryBaseDelay: 5 * time.Minute,
			UserAgent:      "billflow-webhooks/1.0",
		},
	}
}
