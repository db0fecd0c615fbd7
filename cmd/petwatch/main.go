// Package main is the petwatch command: the notification server and its maintenance tools.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"petwatch/internal/app"
	"petwatch/internal/config"
	"petwatch/internal/logger"
)

const (
	flagEnvFile = "env-file"
	flagInput   = "input"
	flagNoDB    = "no-db"
)

func main() {
	cliApp := &cli.App{
		Name:  "petwatch",
		Usage: "notify when pets or people show up on camera",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagEnvFile,
				Aliases: []string{"e"},
				Value:   ".env",
				Usage:   "load environment variables from `FILE` when it exists",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server and deliver notifications",
				Action: serveAction,
			},
			{
				Name:  "replay",
				Usage: "feed a JSON-lines detection log through the notification pipeline",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagInput,
						Aliases:  []string{"i"},
						Usage:    "read frames from `FILE` (- for stdin)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  flagNoDB,
						Usage: "do not record snapshots or notifications in the database",
					},
				},
				Action: replayAction,
			},
			{
				Name:   "reindex",
				Usage:  "add snapshots found on disk to the database",
				Action: reindexAction,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "petwatch: %v\n", err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(c.String(flagEnvFile))
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func serveAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Close()

	a, err := app.NewApp(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := a.Run(ctx)
	log.Info("Shutting down")
	if err := a.Close(); err != nil {
		log.Warning("Shutdown incomplete: %v", err)
	}
	return runErr
}

func replayAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Close()

	in := os.Stdin
	if name := c.String(flagInput); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("failed to open replay log: %w", err)
		}
		defer f.Close()
		in = f
	}

	mock := app.NewReplayClock()
	opts := []app.Option{app.WithClock(mock)}
	if c.Bool(flagNoDB) {
		opts = append(opts, app.WithoutDatabase())
	}
	a, err := app.NewApp(cfg, log, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.Start(ctx)

	result, replayErr := a.Replay(ctx, in, mock)
	closeErr := a.Close()

	fmt.Fprintf(c.App.Writer, "✅ Replayed %d frame(s), %d notification(s)\n", result.Frames, result.Notifications)
	if replayErr != nil {
		return replayErr
	}
	return closeErr
}

func reindexAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Close()

	if cfg.DatabasePath == "" {
		return fmt.Errorf("DB_PATH is not set")
	}

	a, err := app.NewApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(c.App.Writer, "Indexing snapshots from %s into %s\n", a.Store().Dir(), cfg.DatabasePath)
	result, err := a.Store().Reindex()
	if err != nil {
		return fmt.Errorf("failed to reindex snapshots: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "✅ Indexed %d snapshot(s), %d already present\n", result.Indexed, result.Present)
	if result.Skipped > 0 {
		fmt.Fprintf(c.App.Writer, "⚠️  Skipped %d file(s) (invalid name or errors)\n", result.Skipped)
	}
	return nil
}
