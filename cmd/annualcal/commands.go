package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"annualcal/internal/config"
	"annualcal/internal/ics"
	appLog "annualcal/internal/log"
	"annualcal/internal/model"
	"annualcal/internal/publish"
	"annualcal/internal/resolve"
	"annualcal/internal/web"
)

func emitCommand() *cli.Command {
	return &cli.Command{
		Name:  "emit",
		Usage: "Write the calendar to stdout or a file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to `FILE` instead of stdout"},
			&cli.BoolFlag{Name: "lf", Usage: "Terminate lines with LF instead of CRLF"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			if c.Bool("lf") {
				e.conf.LineEnding = config.LineEndingLF
			}
			emitter := ics.NewEmitter(e.catalog, e.conf.EmitterOptions()...)

			out := c.String("output")
			if out == "" {
				return emitter.Write(c.App.Writer)
			}
			// Render fully before touching the destination so a failure never
			// leaves a truncated calendar behind.
			var buf bytes.Buffer
			if err := emitter.Write(&buf); err != nil {
				return err
			}
			if err := config.WriteFileAtomic(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			appLog.Info("calendar written", "path", out, "bytes", buf.Len())
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the calendar over HTTP, re-rendering on the refresh schedule.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config if set)"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			if l := c.String("listen"); l != "" {
				e.conf.Listen = l
			}
			appLog.Info("effective config",
				"listen", e.conf.Listen,
				"refresh", e.conf.RefreshCron,
				"catalog", catalogSource(e.conf.Catalog),
				"years_before", e.conf.YearsBefore,
				"years_after", e.conf.YearsAfter,
				"line_ending", e.conf.LineEnding,
			)
			err = web.NewServer(e.conf, e.catalog).Run(c.Context)
			appLog.Info("annualcal exiting")
			return err
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Render the calendar and upload it to S3.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bucket", Usage: "S3 bucket (overrides config)"},
			&cli.StringFlag{Name: "key", Usage: "S3 object key (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			if b := c.String("bucket"); b != "" {
				e.conf.S3.Bucket = b
			}
			if k := c.String("key"); k != "" {
				e.conf.S3.Key = k
			}
			p, err := publish.NewFromEnvironment(c.Context, e.conf.S3)
			if err != nil {
				return err
			}
			res, err := p.Publish(c.Context, ics.NewEmitter(e.catalog, e.conf.EmitterOptions()...))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "published s3://%s/%s (%d bytes)\n", res.Bucket, res.Key, res.Bytes)
			return nil
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Parse the catalog and cross-check every event against its RRULE expansion.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "from", Value: resolve.MinYear, Usage: "First year to check"},
			&cli.IntFlag{Name: "to", Value: resolve.MaxYear, Usage: "Last year to check (inclusive)"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			from, to := c.Int("from"), c.Int("to")
			failed := 0
			for _, entry := range e.catalog.Events() {
				if err := resolve.CrossCheck(entry.Descriptor, from, to); err != nil {
					failed++
					appLog.Error("cross check failed", err, "summary", entry.Summary, "descriptor", entry.Descriptor)
					continue
				}
				appLog.Debug("cross check ok", "summary", entry.Summary, "descriptor", entry.Descriptor)
			}
			fmt.Fprintf(c.App.Writer, "checked %d events for %d..%d: %d failed\n", e.catalog.Len(), from, to, failed)
			if failed > 0 {
				return cli.Exit("catalog check failed", 1)
			}
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Compare a previously published feed with what this build would emit.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "against", Required: true, Usage: "Published calendar `FILE`"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			f, err := os.Open(c.String("against"))
			if err != nil {
				return err
			}
			defer f.Close()
			published, err := ics.ParseDocument(f)
			if err != nil {
				return err
			}

			emitter := ics.NewEmitter(e.catalog, e.conf.EmitterOptions()...)
			win := emitter.Window(timeNow())
			current, err := ics.Expand(e.catalog, win)
			if err != nil {
				return err
			}
			drift := ics.Compare(published, current, win)
			for _, ev := range drift.Unknown {
				fmt.Fprintf(c.App.Writer, "unknown uid %s (%q on %s)\n", ev.UID, ev.Summary, model.ISODate(ev.Start))
			}
			for _, mv := range drift.Moved {
				fmt.Fprintf(c.App.Writer, "moved %q: %s -> %s\n", mv.Current.Summary, model.ISODate(mv.Published.Start), model.ISODate(mv.Current.Date))
			}
			fmt.Fprintf(c.App.Writer, "checked %d published events in %d..%d: %d unknown, %d moved\n",
				drift.Checked, win.From, win.To-1, len(drift.Unknown), len(drift.Moved))
			if !drift.Empty() {
				return cli.Exit("published feed has drifted", 1)
			}
			return nil
		},
	}
}

func initConfigCommand() *cli.Command {
	return &cli.Command{
		Name:      "init-config",
		Usage:     "Write a default config file.",
		ArgsUsage: "PATH",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("init-config: PATH is required", 2)
			}
			if _, err := os.Stat(path); err == nil {
				return cli.Exit(fmt.Sprintf("init-config: %s already exists", path), 1)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			appLog.Info("default config written", "path", path)
			return nil
		},
	}
}
