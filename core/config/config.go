package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// TrialConfig controls the free-trial window and premium gating.
// The free window is measured in elapsed days since registration.
type TrialConfig struct {
	FreeDays           int  `yaml:"free_days" envconfig:"TRIAL_FREE_DAYS"`
	SosRequiresPremium bool `yaml:"sos_requires_premium" envconfig:"TRIAL_SOS_REQUIRES_PREMIUM"`
}

// PaymentConfig holds YooKassa credentials and the subscription price.
type PaymentConfig struct {
	ShopID       string `yaml:"shop_id" envconfig:"YOOKASSA_SHOP_ID"`
	SecretKey    string `yaml:"secret_key" envconfig:"YOOKASSA_SECRET_KEY"`
	AmountRub    string `yaml:"amount_rub" envconfig:"PAYMENT_AMOUNT_RUB"`
	ReturnURL    string `yaml:"return_url" envconfig:"PAYMENT_RETURN_URL"`
	PeriodMonths int    `yaml:"period_months" envconfig:"PAYMENT_PERIOD_MONTHS"`
}

// SessionsConfig selects the session backend for dialog state.
type SessionsConfig struct {
	Backend   string `yaml:"backend" envconfig:"SESSIONS_BACKEND"`
	RedisAddr string `yaml:"redis_addr" envconfig:"SESSIONS_REDIS_ADDR"`
	RedisDB   int    `yaml:"redis_db" envconfig:"SESSIONS_REDIS_DB"`
}

// RemindersConfig controls the background subscription-expiry scan.
type RemindersConfig struct {
	Enabled      bool `yaml:"enabled" envconfig:"REMINDERS_ENABLED"`
	ExpiryDays   int  `yaml:"expiry_days" envconfig:"REMINDERS_EXPIRY_DAYS"`
	IntervalMins int  `yaml:"interval_mins" envconfig:"REMINDERS_INTERVAL_MINS"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"

	// SessionsMemory keeps dialog state in process memory.
	SessionsMemory = "memory"
	// SessionsRedis keeps dialog state in Redis.
	SessionsRedis = "redis"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Timezone fixes the zone for all day-boundary and streak math,
	// regardless of user locale.
	Timezone string `yaml:"timezone" envconfig:"APP_TIMEZONE"`
	// DayBoundaryHour is the hour-of-day at which a new slip-counting
	// day begins. The streak keeps using plain calendar days.
	DayBoundaryHour int `yaml:"day_boundary_hour" envconfig:"DAY_BOUNDARY_HOUR"`

	Trial     TrialConfig     `yaml:"trial"`
	Payment   PaymentConfig   `yaml:"payment"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Reminders RemindersConfig `yaml:"reminders"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = "Europe/Moscow"
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.DayBoundaryHour == 0 {
		cfg.DayBoundaryHour = 7
	}
	if cfg.DayBoundaryHour < 0 || cfg.DayBoundaryHour > 23 {
		return fmt.Errorf("day_boundary_hour must be within [0, 23], got %d", cfg.DayBoundaryHour)
	}

	if cfg.Trial.FreeDays <= 0 {
		cfg.Trial.FreeDays = 3
	}

	if strings.TrimSpace(cfg.Payment.AmountRub) == "" {
		cfg.Payment.AmountRub = "149.00"
	}
	if cfg.Payment.PeriodMonths <= 0 {
		cfg.Payment.PeriodMonths = 1
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Sessions.Backend))
	if backend == "" {
		backend = SessionsMemory
	}
	switch backend {
	case SessionsMemory:
	case SessionsRedis:
		if strings.TrimSpace(cfg.Sessions.RedisAddr) == "" {
			return fmt.Errorf("sessions.redis_addr is required when sessions.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid sessions.backend %q; allowed: memory, redis", cfg.Sessions.Backend)
	}
	cfg.Sessions.Backend = backend

	if cfg.Reminders.ExpiryDays <= 0 {
		cfg.Reminders.ExpiryDays = 2
	}
	if cfg.Reminders.IntervalMins <= 0 {
		cfg.Reminders.IntervalMins = 24 * 60
	}

	return nil
}

// Location resolves the configured time zone. Normalize guarantees validity.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
