package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/opencivic/dispofix/internal/config"
	"github.com/opencivic/dispofix/internal/remediate"
	"github.com/opencivic/dispofix/internal/repository/postgres"
	"github.com/opencivic/dispofix/internal/storage"
	"github.com/opencivic/dispofix/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "dispofix",
		Usage: "Rewrite Content-Type and Content-Disposition metadata on every stored blob, in place",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "bucket",
				Usage:   "Object-store bucket holding the blobs",
				EnvVars: []string{"STORAGE_BUCKET"},
			},
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "S3-compatible endpoint",
				EnvVars: []string{"STORAGE_ENDPOINT"},
			},
			&cli.StringFlag{
				Name:    "region",
				Usage:   "Object-store region",
				EnvVars: []string{"STORAGE_REGION"},
			},
			&cli.StringFlag{
				Name:    "access-key",
				Usage:   "Object-store access key",
				EnvVars: []string{"AWS_ACCESS_KEY_ID"},
			},
			&cli.StringFlag{
				Name:    "secret-key",
				Usage:   "Object-store secret key",
				EnvVars: []string{"AWS_SECRET_ACCESS_KEY"},
			},
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Database connection string",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Preview the first few blobs without touching the object store",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of copy operations in flight at once",
			},
			&cli.StringFlag{
				Name:    "log-dir",
				Usage:   "Directory for the append-only run log",
				EnvVars: []string{"RUN_LOG_DIR"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (trace, debug, info, warn, error)",
				EnvVars: []string{"RUN_LOG_LEVEL"},
			},
		},
		Action: run,
	}

	// Per-object failures never surface here; only configuration,
	// enumeration and cancellation errors make the process exit non-zero.
	if err := app.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := loadConfig(c)

	logger.SetLevel(cfg.Run.LogLevel)

	// Pre-flight: a bad configuration must fail before any side effect.
	if err := cfg.Validate(); err != nil {
		return err
	}

	logPath, logFile, err := logger.AttachFileSink(cfg.Run.LogDir)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger.Log.Info().Str("log_file", logPath).Msg("run log opened")

	db, err := postgres.NewDB(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return err
	}

	// Interrupt stops dispatching new work; in-flight copies finish so no
	// object is left with half-rewritten metadata.
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := remediate.NewRunner(cfg, postgres.NewBlobRepository(db), store)
	_, err = runner.Run(ctx)
	return err
}

// loadConfig reads configuration from the environment and overrides it with
// any command-line flags. Flags win over environment variables.
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.Load()

	if v := c.String("bucket"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := c.String("endpoint"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := c.String("region"); v != "" {
		cfg.Storage.Region = v
	}
	if v := c.String("access-key"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := c.String("secret-key"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := c.String("db-url"); v != "" {
		cfg.Database.URL = v
	}
	if c.Bool("dry-run") {
		cfg.Run.DryRun = true
	}
	if c.IsSet("concurrency") {
		cfg.Run.Concurrency = c.Int("concurrency")
	}
	if v := c.String("log-dir"); v != "" {
		cfg.Run.LogDir = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Run.LogLevel = v
	}

	return cfg
}
