package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/studiobot/core/config"
	"github.com/m3rciful/studiobot/core/logger"
)

// Step is one named stage of the startup pipeline.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Options control the generic bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	// Steps run in order after the logger is ready; the first failure stops
	// the pipeline.
	Steps []Step
}

// Run initializes the logger and then executes every step in order.
func Run(ctx context.Context, opts Options) error {
	if opts.Config == nil {
		return fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	for _, step := range opts.Steps {
		if step.Run == nil {
			continue
		}
		start := time.Now()
		if err := step.Run(ctx); err != nil {
			logger.Error(ctx, "app", "bootstrap.step",
				slog.String("status", "fail"),
				slog.String("step", step.Name),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("bootstrap: %s failed: %w", step.Name, err)
		}
		logger.Debug(ctx, "app", "bootstrap.step",
			slog.String("status", "ok"),
			slog.String("step", step.Name),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return nil
}
