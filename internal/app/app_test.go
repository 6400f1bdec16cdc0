package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/studiobot/core/config"
	"github.com/m3rciful/studiobot/internal/ledger"
)

func newTestApp(t *testing.T, mutate ...func(*coreconfig.Config)) *App {
	t.Helper()
	cfg := &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{Token: "123:abc"},
		Ledger:   coreconfig.LedgerConfig{Path: filepath.Join(t.TempDir(), "clients.json")},
	}
	for _, m := range mutate {
		m(cfg)
	}
	require.NoError(t, coreconfig.Normalize(cfg))

	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local))
	a, err := New(cfg, WithClock(clock))
	require.NoError(t, err)
	return a
}

func TestNewWiresComponents(t *testing.T) {
	a := newTestApp(t)
	require.NotNil(t, a.Ledger)
	require.NotNil(t, a.Scheduler)
	require.NotNil(t, a.KeepAlive, "liveness server is on by default")
	require.NotEmpty(t, a.Registry.ListCallbacks())

	disabled := false
	withoutKeepAlive := newTestApp(t, func(c *coreconfig.Config) {
		c.KeepAlive.Enabled = &disabled
	})
	require.Nil(t, withoutKeepAlive.KeepAlive)
}

func TestBootStepsCreateLedger(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	for _, step := range a.BootSteps() {
		require.NoError(t, step.Run(ctx), step.Name)
	}
	data, err := os.ReadFile(a.Store.Path())
	require.NoError(t, err)
	require.Equal(t, "{}", strings.TrimSpace(string(data)))
}

func TestTelegramRunOptions(t *testing.T) {
	a := newTestApp(t, func(c *coreconfig.Config) {
		c.Telegram.AdminID = 5
		c.RateLimit.IntervalMS = 300
	})
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	require.Same(t, a.Registry, opts.Registry)
	// three commands, the callback route and the text route
	require.Len(t, opts.Routes, 5)

	var names []string
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	require.Equal(t, []string{"recover", "rate_limit", "admin_only", "logger", "metrics"}, names)
	require.NotNil(t, opts.OnStart)
	require.NotNil(t, opts.OnStop)
}

func TestRenderReport(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, a.RenderReport(ctx, &buf, false))
	require.Empty(t, buf.String())

	_, err := a.Ledger.AddSessions(ctx, "Bob", 1, ledger.Contact{})
	require.NoError(t, err)
	_, err = a.Ledger.AddSessions(ctx, "Ann", 6, ledger.Contact{})
	require.NoError(t, err)

	require.NoError(t, a.RenderReport(ctx, &buf, false))
	require.Contains(t, buf.String(), "Bob")
	require.NotContains(t, buf.String(), "Ann")

	buf.Reset()
	require.NoError(t, a.RenderReport(ctx, &buf, true))
	require.Contains(t, buf.String(), "7")
}

func TestUpgradeLedgerRefusesMalformedDocument(t *testing.T) {
	a := newTestApp(t)
	broken := `{"Anna": 5, "Bob": 3,`
	require.NoError(t, os.WriteFile(a.Store.Path(), []byte(broken), 0o644))

	n, err := a.UpgradeLedger(context.Background())
	require.ErrorIs(t, err, ledger.ErrMalformed)
	require.Zero(t, n)

	data, err := os.ReadFile(a.Store.Path())
	require.NoError(t, err)
	require.Equal(t, broken, string(data))
}

func TestUpgradeLedgerRewritesLegacyRecords(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, os.WriteFile(a.Store.Path(), []byte(`{"Alice": 5, "Борис": {"sessions": 2, "last_payment_date": "2025-05-01T10:00:00"}}`), 0o644))

	n, err := a.UpgradeLedger(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	data, err := os.ReadFile(a.Store.Path())
	require.NoError(t, err)
	require.Contains(t, string(data), `"Борис"`)
	require.Contains(t, string(data), `"sessions": 5`)
	require.Contains(t, string(data), `"last_payment_date"`)
}
