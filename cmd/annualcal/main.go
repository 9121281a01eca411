package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"annualcal/internal/catalog"
	"annualcal/internal/config"
	appLog "annualcal/internal/log"
)

const version = "0.1.0"

// timeNow is the clock used by commands that compute the year window
// outside the emitter.
var timeNow = time.Now

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		appLog.Error("annualcal failed", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "annualcal",
		Usage:   "Render a subscribable iCalendar feed of annual events.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to YAML config file (defaults apply when empty or missing)",
				EnvVars: []string{config.EnvConfigPath},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error (overrides config)",
				EnvVars: []string{config.EnvLogLevel},
			},
		},
		Commands: []*cli.Command{
			emitCommand(),
			serveCommand(),
			publishCommand(),
			checkCommand(),
			verifyCommand(),
			initConfigCommand(),
		},
	}
}

// env bundles what every subcommand needs: effective config and the parsed
// catalog. The catalog is parsed here so errors surface before any output.
type env struct {
	conf    *config.Config
	catalog *catalog.Catalog
}

func setup(c *cli.Context) (*env, error) {
	conf, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	level := conf.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	cat, err := catalog.Load(conf.Catalog)
	if err != nil {
		return nil, err
	}
	appLog.Debug("catalog loaded", "events", cat.Len(), "source", catalogSource(conf.Catalog))
	return &env{conf: conf, catalog: cat}, nil
}

func catalogSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
