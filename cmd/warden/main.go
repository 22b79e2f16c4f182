package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hearthchat/moderation/pkg/env"
	"github.com/hearthchat/moderation/pkg/metrics"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "warden",
		Usage:   "chat content moderation daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"WARDEN_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.IntFlag{
			Name:    "max-metadb-connections",
			EnvVars: []string{"MAX_METADB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		checkRulesCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database for moderation records; empty keeps everything in process memory",
			Value:   "sqlite://data/warden/moderation.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis for counters, flags and caches; empty keeps them in process memory",
			EnvVars: []string{"WARDEN_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "sets-json-path",
			Usage:   "file path of JSON file containing static word and domain sets",
			EnvVars: []string{"WARDEN_SETS_JSON_PATH"},
		},
		&cli.StringFlag{
			Name:    "rules-json-path",
			Usage:   "file path of JSON file with adaptive rules, merged over the built-in seed rules",
			EnvVars: []string{"WARDEN_RULES_JSON_PATH"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "full URL of slack webhook for critical decisions",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.IntFlag{
			Name:    "quota-perm-ban-day",
			Usage:   "automated permanent bans allowed per day before decisions fall back to human review",
			Value:   20,
			EnvVars: []string{"WARDEN_QUOTA_PERM_BAN_DAY"},
		},
		&cli.DurationFlag{
			Name:    "analysis-timeout",
			Usage:   "upper bound on content analysis per message",
			Value:   5 * time.Second,
			EnvVars: []string{"WARDEN_ANALYSIS_TIMEOUT"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3909",
			EnvVars: []string{"WARDEN_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3908",
			EnvVars: []string{"WARDEN_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		logger := configLogger(cctx, os.Stdout)
		env.Version = versioninfo.Short()

		shutdownOTEL := configOTEL("warden")
		defer shutdownOTEL()

		srv, err := NewServer(Config{
			Logger:           logger,
			DatabaseURL:      cctx.String("database-url"),
			MaxDBConnections: cctx.Int("max-metadb-connections"),
			RedisURL:         cctx.String("redis-url"),
			SetsFileJSON:     cctx.String("sets-json-path"),
			RulesFileJSON:    cctx.String("rules-json-path"),
			SlackWebhookURL:  cctx.String("slack-webhook-url"),
			QuotaPermBanDay:  cctx.Int("quota-perm-ban-day"),
			AnalysisTimeout:  cctx.Duration("analysis-timeout"),
			Bind:             cctx.String("bind"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := metrics.RunServer(ctx, cancel, cctx.String("metrics-listen"), srv.Ready); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cctx.String("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	})).With("service", "warden", "version", versioninfo.Short())
	slog.SetDefault(logger)
	return logger
}
