// Package scheduler sends the daily reminder and the monthly report to the
// administrator at the configured time of day.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/m3rciful/studiobot/core/logger"
	"github.com/m3rciful/studiobot/internal/ledger"
	"github.com/m3rciful/studiobot/internal/notify"
)

const component = "scheduler"

// Outcome describes what a single wake-up did.
type Outcome string

// Tick outcomes.
const (
	OutcomeNotDue      Outcome = "not_due"
	OutcomeAlreadySent Outcome = "already_sent"
	OutcomeDaily       Outcome = "daily"
	OutcomeMonthly     Outcome = "monthly"
)

// Notification kinds reported to the Recorder.
const (
	KindReminder = "reminder"
	KindReport   = "report"
)

// DefaultInterval is how often the scheduler wakes up.
const DefaultInterval = time.Minute

// Snapshotter provides a fresh ledger read.
type Snapshotter interface {
	Snapshot(ctx context.Context) (ledger.Ledger, error)
}

// Notifier delivers a text to the administrator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Recorder receives scheduler instrumentation.
type Recorder interface {
	IncNotification(kind string, err error)
	IncTick(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) IncNotification(string, error) {}
func (nopRecorder) IncTick(string)                {}

// Config holds the report time and reminder rule.
type Config struct {
	Hour      int
	Minute    int
	Threshold int
	// Location is the zone Hour and Minute are read in; nil means time.Local.
	Location *time.Location
	Interval time.Duration
}

// Scheduler evaluates the reminder rules on every wake-up. The date of the
// last run is kept in memory only, so a restart inside the report minute
// sends again.
type Scheduler struct {
	cfg      Config
	clock    clockwork.Clock
	ledger   Snapshotter
	notifier Notifier
	recorder Recorder

	mu         sync.Mutex
	lastReport string

	cron gocron.Scheduler
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRecorder wires instrumentation.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New builds a Scheduler. It does nothing until Start or Tick is called.
func New(cfg Config, snap Snapshotter, n Notifier, opts ...Option) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	s := &Scheduler{
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		ledger:   snap,
		notifier: n,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Tick runs one evaluation of the schedule. At the report time, once per
// calendar day, it sends the monthly report when due and then the daily
// reminder. Delivery failures are logged and do not change the outcome.
func (s *Scheduler) Tick(ctx context.Context) Outcome {
	now := s.clock.Now().In(s.cfg.Location)
	outcome := s.claim(now)
	s.recorder.IncTick(string(outcome))
	if outcome == OutcomeNotDue || outcome == OutcomeAlreadySent {
		return outcome
	}

	ctx = logger.WithRID(ctx, uuid.NewString())
	logger.Info(ctx, component, "tick.due",
		slog.String("outcome", string(outcome)),
		slog.String("date", now.Format(time.DateOnly)),
	)
	if outcome == OutcomeMonthly {
		_ = s.SendMonthlyReport(ctx)
	}
	_, _ = s.SendReminders(ctx)
	return outcome
}

// claim decides the outcome for now and marks the day as handled.
func (s *Scheduler) claim(now time.Time) Outcome {
	if now.Hour() != s.cfg.Hour || now.Minute() != s.cfg.Minute {
		return OutcomeNotDue
	}
	today := now.Format(time.DateOnly)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == today {
		return OutcomeAlreadySent
	}
	s.lastReport = today
	if notify.IsMonthlyReportDay(now) {
		return OutcomeMonthly
	}
	return OutcomeDaily
}

// SendReminders sends the reminder for threshold clients and returns how
// many clients it covered. Nothing is sent when there are none.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	snap, err := s.ledger.Snapshot(ctx)
	if err != nil {
		s.logFailure(ctx, KindReminder, err)
		return 0, err
	}
	names := notify.ThresholdClients(snap, s.cfg.Threshold)
	text := notify.RenderReminder(names, s.cfg.Threshold)
	if text == "" {
		logger.Debug(ctx, component, "reminder.send",
			slog.String("status", "skip"),
			slog.Int("threshold", s.cfg.Threshold),
		)
		return 0, nil
	}
	if err := s.deliver(ctx, KindReminder, text); err != nil {
		return 0, err
	}
	preview, truncated := logger.SummarizeStrings(names, 6)
	logger.Info(ctx, component, "reminder.send",
		slog.String("status", "ok"),
		slog.Int("count", len(names)),
		slog.String("clients_preview", preview),
		slog.Bool("clients_truncated", truncated),
	)
	return len(names), nil
}

// SendMonthlyReport sends the monthly summary.
func (s *Scheduler) SendMonthlyReport(ctx context.Context) error {
	snap, err := s.ledger.Snapshot(ctx)
	if err != nil {
		s.logFailure(ctx, KindReport, err)
		return err
	}
	summary := notify.Summarize(snap, s.cfg.Threshold, s.clock.Now())
	if err := s.deliver(ctx, KindReport, notify.RenderMonthlyReport(summary)); err != nil {
		return err
	}
	logger.Info(ctx, component, "report.send",
		slog.String("status", "ok"),
		slog.Int("clients", summary.TotalClients),
		slog.Int("sessions", summary.TotalSessions),
	)
	return nil
}

func (s *Scheduler) deliver(ctx context.Context, kind, text string) error {
	err := s.notifier.Notify(ctx, text)
	s.recorder.IncNotification(kind, err)
	if err != nil {
		s.logFailure(ctx, kind, err)
		return fmt.Errorf("scheduler: send %s: %w", kind, err)
	}
	return nil
}

func (s *Scheduler) logFailure(ctx context.Context, kind string, err error) {
	attrs := []slog.Attr{
		slog.String("status", "fail"),
		slog.String("kind", kind),
		slog.String("err", err.Error()),
	}
	if errors.Is(err, notify.ErrNoRecipient) {
		logger.Warn(ctx, component, kind+".send", append(attrs, slog.String("reason", "no_recipient"))...)
		return
	}
	logger.Error(ctx, component, kind+".send", attrs...)
}

// Start runs Tick every interval on a gocron scheduler until ctx is done or
// Stop is called. The first tick happens immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	cron, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLocation(s.cfg.Location),
	)
	if err != nil {
		return fmt.Errorf("scheduler: create: %w", err)
	}
	job, err := cron.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() { s.Tick(ctx) }),
		gocron.WithName("report-check"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = cron.Shutdown()
		return fmt.Errorf("scheduler: add job: %w", err)
	}

	s.mu.Lock()
	s.cron = cron
	s.mu.Unlock()
	cron.Start()

	logger.Info(ctx, component, "scheduler.start",
		slog.String("status", "ok"),
		slog.String("job", job.Name()),
		slog.String("at", fmt.Sprintf("%02d:%02d", s.cfg.Hour, s.cfg.Minute)),
		slog.String("tz", s.cfg.Location.String()),
		slog.Int("threshold", s.cfg.Threshold),
		slog.Duration("interval", s.cfg.Interval),
	)

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()
	return nil
}

// Stop shuts the gocron scheduler down. It is safe to call more than once.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cron := s.cron
	s.cron = nil
	s.mu.Unlock()
	if cron == nil {
		return nil
	}
	if err := cron.Shutdown(); err != nil {
		return fmt.Errorf("scheduler: shutdown: %w", err)
	}
	logger.Info(context.Background(), component, "scheduler.stop", slog.String("status", "ok"))
	return nil
}
