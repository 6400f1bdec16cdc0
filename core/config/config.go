package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// AdminID restricts the bot to a single operator when non-zero.
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
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// LedgerConfig points at the client ledger document.
type LedgerConfig struct {
	Path string `yaml:"path" envconfig:"LEDGER_PATH"`
}

// ReportsConfig controls the daily reminder and the monthly report.
type ReportsConfig struct {
	// ChatID receives reminders and reports; 0 disables delivery.
	ChatID    int64 `yaml:"chat_id" envconfig:"ADMIN_CHAT_ID"`
	Threshold *int  `yaml:"threshold" envconfig:"REMINDER_THRESHOLD"`
	Hour      *int  `yaml:"hour" envconfig:"REPORT_HOUR"`
	Minute    *int  `yaml:"minute" envconfig:"REPORT_MINUTE"`
	// Timezone is an IANA name; empty means the process local zone.
	Timezone string `yaml:"timezone" envconfig:"REPORT_TIMEZONE"`
	// IntervalSeconds is the scheduler wake-up period, 1..60 so that no
	// wall-clock minute is skipped.
	IntervalSeconds int `yaml:"interval_seconds" envconfig:"REPORT_INTERVAL_SECONDS"`
}

// KeepAliveConfig configures the liveness HTTP server. It is on unless
// enabled is explicitly false.
type KeepAliveConfig struct {
	Enabled *bool  `yaml:"enabled" envconfig:"KEEPALIVE_ENABLED"`
	Listen  string `yaml:"listen" envconfig:"KEEPALIVE_LISTEN"`
}

// BotConfig holds presentation settings.
type BotConfig struct {
	Title string `yaml:"title" envconfig:"BOT_TITLE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// Defaults applied by Normalize.
const (
	DefaultLedgerPath      = "clients.json"
	DefaultThreshold       = 1
	DefaultReportHour      = 10
	DefaultReportMinute    = 0
	DefaultIntervalSeconds = 60
	MaxIntervalSeconds     = 60
	DefaultKeepAliveListen = ":8080"
	DefaultTitle           = "👯‍♀️ Учет занятий Чирлидинг (4+)"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the whole application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Reports   ReportsConfig   `yaml:"reports"`
	KeepAlive KeepAliveConfig `yaml:"keepalive"`
	Bot       BotConfig       `yaml:"bot"`

	location *time.Location
}

// Load reads .env, an optional YAML file and environment variables, in that
// order of increasing precedence.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads configuration sources without validating them.
func Read(path string) (*Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	return &cfg, nil
}

// Normalize performs validation of required configuration fields and adjusts defaults.
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

	if err := normalizeDomain(cfg); err != nil {
		return err
	}
	return nil
}

// NormalizeOffline applies defaults and validation for commands that never
// talk to Telegram, so the token is not required.
func NormalizeOffline(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	return normalizeDomain(cfg)
}

func normalizeDomain(cfg *Config) error {
	cfg.Ledger.Path = strings.TrimSpace(cfg.Ledger.Path)
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath
	}

	r := &cfg.Reports
	if r.Threshold == nil {
		r.Threshold = intPtr(DefaultThreshold)
	}
	if *r.Threshold < 0 {
		return fmt.Errorf("reports.threshold must be >= 0")
	}
	if r.Hour == nil {
		r.Hour = intPtr(DefaultReportHour)
	}
	if *r.Hour < 0 || *r.Hour > 23 {
		return fmt.Errorf("reports.hour must be within 0..23, got %d", *r.Hour)
	}
	if r.Minute == nil {
		r.Minute = intPtr(DefaultReportMinute)
	}
	if *r.Minute < 0 || *r.Minute > 59 {
		return fmt.Errorf("reports.minute must be within 0..59, got %d", *r.Minute)
	}
	if r.IntervalSeconds == 0 {
		r.IntervalSeconds = DefaultIntervalSeconds
	}
	if r.IntervalSeconds < 0 || r.IntervalSeconds > MaxIntervalSeconds {
		return fmt.Errorf("reports.interval_seconds must be within 1..%d, got %d", MaxIntervalSeconds, r.IntervalSeconds)
	}
	r.Timezone = strings.TrimSpace(r.Timezone)
	cfg.location = time.Local
	if r.Timezone != "" {
		loc, err := time.LoadLocation(r.Timezone)
		if err != nil {
			return fmt.Errorf("invalid reports.timezone %q: %w", r.Timezone, err)
		}
		cfg.location = loc
	}

	if cfg.KeepAlive.Enabled == nil {
		enabled := true
		cfg.KeepAlive.Enabled = &enabled
	}
	if strings.TrimSpace(cfg.KeepAlive.Listen) == "" {
		cfg.KeepAlive.Listen = DefaultKeepAliveListen
	}
	if strings.TrimSpace(cfg.Bot.Title) == "" {
		cfg.Bot.Title = DefaultTitle
	}
	return nil
}

// Location returns the zone the report time is read in.
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.Local
	}
	return c.location
}

// ThresholdValue returns the reminder threshold after defaults.
func (r ReportsConfig) ThresholdValue() int {
	if r.Threshold == nil {
		return DefaultThreshold
	}
	return *r.Threshold
}

// HourValue returns the report hour after defaults.
func (r ReportsConfig) HourValue() int {
	if r.Hour == nil {
		return DefaultReportHour
	}
	return *r.Hour
}

// MinuteValue returns the report minute after defaults.
func (r ReportsConfig) MinuteValue() int {
	if r.Minute == nil {
		return DefaultReportMinute
	}
	return *r.Minute
}

// Interval returns the scheduler wake-up period.
func (r ReportsConfig) Interval() time.Duration {
	if r.IntervalSeconds <= 0 || r.IntervalSeconds > MaxIntervalSeconds {
		return DefaultIntervalSeconds * time.Second
	}
	return time.Duration(r.IntervalSeconds) * time.Second
}

// EnabledValue reports whether the liveness server should run.
func (k KeepAliveConfig) EnabledValue() bool {
	return k.Enabled == nil || *k.Enabled
}

func intPtr(v int) *int { return &v }
