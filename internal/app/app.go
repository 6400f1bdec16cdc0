// Package app assembles the studio bot from configuration: the ledger, the
// scheduler, the keep-alive server and the chat handlers.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/m3rciful/studiobot/core/bootstrap"
	coreconfig "github.com/m3rciful/studiobot/core/config"
	"github.com/m3rciful/studiobot/core/logger"
	tg "github.com/m3rciful/studiobot/core/telegram"
	"github.com/m3rciful/studiobot/core/telegram/router"
	"github.com/m3rciful/studiobot/internal/bot"
	"github.com/m3rciful/studiobot/internal/keepalive"
	"github.com/m3rciful/studiobot/internal/ledger"
	"github.com/m3rciful/studiobot/internal/metrics"
	"github.com/m3rciful/studiobot/internal/notify"
	"github.com/m3rciful/studiobot/internal/scheduler"
)

// App is the wired application.
type App struct {
	cfg   *coreconfig.Config
	clock clockwork.Clock

	Metrics   *metrics.Recorder
	Store     *ledger.Store
	Ledger    *ledger.Service
	Notifier  *bot.AdminNotifier
	Scheduler *scheduler.Scheduler
	KeepAlive *keepalive.Server
	Bot       *bot.Bot
	Registry  *tg.Registry
}

// Option customises New.
type Option func(*App)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(a *App) {
		if c != nil {
			a.clock = c
		}
	}
}

// New wires every component from a normalized configuration. Nothing is
// started and no file is touched.
func New(cfg *coreconfig.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	a := &App{cfg: cfg, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(a)
	}

	a.Metrics = metrics.NewRecorder(prom.NewRegistry())
	a.Store = ledger.NewStore(cfg.Ledger.Path,
		ledger.WithClock(a.clock),
		ledger.WithRecorder(a.Metrics),
	)
	a.Ledger = ledger.NewService(a.Store,
		ledger.WithClock(a.clock),
		ledger.WithRecorder(a.Metrics),
	)
	a.Notifier = bot.NewAdminNotifier(cfg.Reports.ChatID)
	a.Scheduler = scheduler.New(scheduler.Config{
		Hour:      cfg.Reports.HourValue(),
		Minute:    cfg.Reports.MinuteValue(),
		Threshold: cfg.Reports.ThresholdValue(),
		Location:  cfg.Location(),
		Interval:  cfg.Reports.Interval(),
	}, a.Ledger, a.Notifier,
		scheduler.WithClock(a.clock),
		scheduler.WithRecorder(a.Metrics),
	)
	if cfg.KeepAlive.EnabledValue() {
		a.KeepAlive = keepalive.New(cfg.KeepAlive.Listen, a.Metrics.Handler())
	}

	a.Bot = bot.New(a.Ledger, a.Scheduler, bot.Options{
		Title:     cfg.Bot.Title,
		Threshold: cfg.Reports.ThresholdValue(),
		Clock:     a.clock,
	})
	a.Registry = tg.NewRegistry()
	if err := a.Bot.Register(a.Registry); err != nil {
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}
	return a, nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() *coreconfig.Config { return a.cfg }

// BootSteps are run by the bootstrap pipeline once the logger is ready.
func (a *App) BootSteps() []bootstrap.Step {
	return []bootstrap.Step{
		{Name: "ledger.ensure", Run: func(ctx context.Context) error {
			_, err := a.Store.EnsureExists(ctx)
			return err
		}},
		{Name: "banner", Run: func(ctx context.Context) error {
			a.logBanner(ctx)
			return nil
		}},
	}
}

func (a *App) logBanner(ctx context.Context) {
	r := a.cfg.Reports
	logger.Info(ctx, "app", "startup",
		slog.String("status", "ok"),
		slog.String("ledger", a.Store.Path()),
		slog.Int("threshold", r.ThresholdValue()),
		slog.String("report_at", fmt.Sprintf("%02d:%02d", r.HourValue(), r.MinuteValue())),
		slog.String("tz", a.cfg.Location().String()),
		slog.Bool("admin_chat", r.ChatID != 0),
		slog.Bool("operator_only", a.cfg.Telegram.AdminID != 0),
		slog.Bool("keepalive", a.KeepAlive != nil),
	)
}

// Bootstrap initializes logging and runs the boot steps.
func (a *App) Bootstrap(ctx context.Context) error {
	return bootstrap.Run(ctx, bootstrap.Options{
		Config: a.cfg,
		Steps:  a.BootSteps(),
	})
}

// TelegramRunOptions wires handlers, middlewares and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.Registry, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: a.Bot.Rejected,
		Observer:      a.Metrics,
	})
	routes = append(routes, router.CallbackRoute(a.Registry, router.CallbackOptions{
		Observer: a.Metrics,
	}))
	routes = append(routes, router.TextRoutes(a.Bot.Dialogs(), a.Registry, router.TextOptions{
		Observer: a.Metrics,
	})...)

	return tg.RunOptions{
		Config:   a.cfg,
		Registry: a.Registry,
		Middlewares: tg.DefaultMiddlewares(a.cfg, tg.MiddlewareHooks{
			OnLimited:  a.Bot.Limited,
			OnRejected: a.Bot.Rejected,
		}),
		Routes:  routes,
		OnStart: a.onStart,
		OnStop:  a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	a.Notifier.Attach(rt.Bot, rt.Dispatcher)
	if a.KeepAlive != nil {
		if err := a.KeepAlive.Start(ctx); err != nil {
			return err
		}
	}
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	return nil
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	var firstErr error
	if err := a.Scheduler.Stop(); err != nil {
		firstErr = err
	}
	if a.KeepAlive != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.KeepAlive.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RenderReport writes the reminder, or the monthly report when monthly is
// set, for the current ledger to w without sending anything.
func (a *App) RenderReport(ctx context.Context, w io.Writer, monthly bool) error {
	snap, err := a.Ledger.Snapshot(ctx)
	if err != nil {
		return err
	}
	threshold := a.cfg.Reports.ThresholdValue()
	var text string
	if monthly {
		text = notify.RenderMonthlyReport(notify.Summarize(snap, threshold, a.clock.Now()))
	} else {
		text = notify.RenderReminder(notify.ThresholdClients(snap, threshold), threshold)
	}
	if text == "" {
		return nil
	}
	_, err = fmt.Fprintln(w, text)
	return err
}

// UpgradeLedger rewrites the ledger document in the current record shape and
// returns how many clients it holds. A document that does not parse is left
// untouched and reported as ledger.ErrMalformed.
func (a *App) UpgradeLedger(ctx context.Context) (int, error) {
	led, err := a.Store.LoadStrict(ctx)
	if err != nil {
		return 0, err
	}
	if err := a.Store.Save(ctx, led); err != nil {
		return 0, err
	}
	logger.Info(ctx, "app", "ledger.rewrite",
		slog.String("status", "ok"),
		slog.String("path", a.Store.Path()),
		slog.Int("clients", len(led)),
	)
	return len(led), nil
}
