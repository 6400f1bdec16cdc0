package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	require.Equal(t, DefaultLedgerPath, cfg.Ledger.Path)
	require.Equal(t, 1, cfg.Reports.ThresholdValue())
	require.Equal(t, 10, cfg.Reports.HourValue())
	require.Equal(t, 0, cfg.Reports.MinuteValue())
	require.Equal(t, time.Minute, cfg.Reports.Interval())
	require.Equal(t, time.Local, cfg.Location())
	require.Equal(t, DefaultKeepAliveListen, cfg.KeepAlive.Listen)
	require.True(t, cfg.KeepAlive.EnabledValue())
	require.Equal(t, DefaultTitle, cfg.Bot.Title)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, `
telegram:
  token: from-yaml
ledger:
  path: data/yaml.json
reports:
  chat_id: 42
  hour: 0
  minute: 30
  timezone: Europe/Moscow
keepalive:
  enabled: false
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("LEDGER_PATH", "data/env.json")
	t.Setenv("ADMIN_CHAT_ID", "777")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "from-env", cfg.Telegram.Token)
	require.Equal(t, "data/env.json", cfg.Ledger.Path)
	require.Equal(t, int64(777), cfg.Reports.ChatID)
	require.Equal(t, 0, cfg.Reports.HourValue(), "explicit zero hour must survive defaults")
	require.Equal(t, 30, cfg.Reports.MinuteValue())
	require.Equal(t, "Europe/Moscow", cfg.Location().String())
	require.False(t, cfg.KeepAlive.EnabledValue(), "explicit false must survive defaults")
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	_, err := Load("")
	require.ErrorContains(t, err, "token is required")
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	_, err := Load(writeYAML(t, "telegram: [unclosed"))
	require.ErrorContains(t, err, "failed to parse YAML config")
}

func TestNormalizeValidation(t *testing.T) {
	hour, minute, negative := 24, 60, -1
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"hour", func(c *Config) { c.Reports.Hour = &hour }, "reports.hour"},
		{"minute", func(c *Config) { c.Reports.Minute = &minute }, "reports.minute"},
		{"threshold", func(c *Config) { c.Reports.Threshold = &negative }, "reports.threshold"},
		{"interval", func(c *Config) { c.Reports.IntervalSeconds = -5 }, "interval_seconds"},
		{"interval too long", func(c *Config) { c.Reports.IntervalSeconds = 61 }, "within 1..60"},
		{"timezone", func(c *Config) { c.Reports.Timezone = "Mars/Olympus" }, "reports.timezone"},
		{"run mode", func(c *Config) { c.Telegram.RunMode = "carrier-pigeon" }, "run_mode"},
		{"webhook", func(c *Config) { c.Telegram.RunMode = RunModeWebhook }, "webhook.url"},
		{"rate limit", func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"inline_query"} }, "exclude_updates"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Telegram: TelegramConfig{Token: "t"}}
			tc.mut(cfg)
			require.ErrorContains(t, Normalize(cfg), tc.want)
		})
	}
}

func TestNormalizeAcceptsPollingAlias(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t", RunMode: " Polling "},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback ", ""}},
	}
	require.NoError(t, Normalize(cfg))
	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	require.Equal(t, UpdateCallback, cfg.RateLimit.ExcludeUpdates[0])
}

func TestNormalizeOfflineSkipsToken(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, NormalizeOffline(cfg))
	require.Equal(t, DefaultLedgerPath, cfg.Ledger.Path)
	require.Error(t, Normalize(&Config{}))
}
