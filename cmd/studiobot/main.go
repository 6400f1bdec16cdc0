// Command studiobot runs the studio session-pack bot.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/m3rciful/studiobot/core/buildinfo"
	corecmd "github.com/m3rciful/studiobot/core/cmd"
	coreconfig "github.com/m3rciful/studiobot/core/config"
	"github.com/m3rciful/studiobot/core/logger"
	"github.com/m3rciful/studiobot/internal/app"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

// CLI is the command line of the bot.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (falls back to $CONFIG_PATH, then config.yaml)"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run     RunCmd     `cmd:"" default:"1" help:"Run the bot (default)"`
	Report  ReportCmd  `cmd:"" help:"Print the reminder or the monthly report for the current ledger"`
	Upgrade UpgradeCmd `cmd:"" help:"Rewrite the ledger with legacy records upgraded"`
}

func (c *CLI) runnerOptions() corecmd.Options {
	return corecmd.Options{
		ConfigPath:        c.Config,
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
	}
}

// loadOffline reads configuration for commands that never reach Telegram.
func (c *CLI) loadOffline() (*coreconfig.Config, error) {
	cfg, err := coreconfig.Read(corecmd.ResolveConfigPath(c.runnerOptions()))
	if err != nil {
		return nil, err
	}
	if err := coreconfig.NormalizeOffline(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunCmd starts the bot.
type RunCmd struct{}

// Run loads configuration, bootstraps the app and serves updates until a
// termination signal arrives.
func (r *RunCmd) Run(cli *CLI) error {
	opts := cli.runnerOptions()
	opts.LoadConfig = coreconfig.Load
	opts.Bootstrap = func(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
		a, err := app.New(cfg)
		if err != nil {
			return nil, err
		}
		if err := a.Bootstrap(ctx); err != nil {
			return nil, err
		}
		return a, nil
	}
	return corecmd.Run(opts)
}

// ReportCmd prints a notification text without sending it.
type ReportCmd struct {
	Monthly bool `help:"Print the monthly report instead of the daily reminder"`
}

// Run renders the requested text to stdout.
func (r *ReportCmd) Run(cli *CLI) error {
	cfg, err := cli.loadOffline()
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	return a.RenderReport(context.Background(), os.Stdout, r.Monthly)
}

// UpgradeCmd rewrites the ledger document.
type UpgradeCmd struct{}

// Run loads and saves the ledger so legacy records are stored in full.
func (u *UpgradeCmd) Run(cli *CLI) error {
	cfg, err := cli.loadOffline()
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg); err != nil {
		return err
	}
	defer func() { _ = logger.Shutdown() }()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	n, err := a.UpgradeLedger(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("ledger %s rewritten, %d clients\n", cfg.Ledger.Path, n)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("studiobot"),
		kong.Description("Session-pack bookkeeping bot for a dance studio."),
		kong.Vars{"version": buildinfo.String()},
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
