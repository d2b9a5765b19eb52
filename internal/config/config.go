package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalidConfig marks a pre-flight configuration failure. The process must
// exit non-zero without touching the datastore or the object store.
var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Run      RunConfig
}

type DatabaseConfig struct {
	URL string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

// RunConfig holds the knobs of a single remediation run. Immutable once the
// run starts.
type RunConfig struct {
	DryRun      bool
	Concurrency int
	BatchSize   int
	SampleSize  int
	PaceEvery   int
	PaceDelay   time.Duration
	ReportEvery int
	LogDir      string
	LogLevel    string
}

// Load builds a Config from the environment (plus .env if present). Identity
// settings (bucket, credentials, database URL) have no defaults on purpose:
// they must come from the environment or be overridden by CLI flags.
func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Set default values
	viper.SetDefault("STORAGE_ENDPOINT", "s3.amazonaws.com")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("RUN_CONCURRENCY", 8)
	viper.SetDefault("RUN_BATCH_SIZE", 500)
	viper.SetDefault("RUN_SAMPLE_SIZE", 5)
	viper.SetDefault("RUN_PACE_EVERY", 50)
	viper.SetDefault("RUN_PACE_DELAY_MS", 500)
	viper.SetDefault("RUN_REPORT_EVERY", 100)
	viper.SetDefault("RUN_LOG_DIR", "./log")
	viper.SetDefault("RUN_LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	return &Config{
		Database: DatabaseConfig{
			URL: viper.GetString("DATABASE_URL"),
		},
		Storage: StorageConfig{
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey: viper.GetString("AWS_SECRET_ACCESS_KEY"),
			Region:    viper.GetString("STORAGE_REGION"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
		},
		Run: RunConfig{
			Concurrency: viper.GetInt("RUN_CONCURRENCY"),
			BatchSize:   viper.GetInt("RUN_BATCH_SIZE"),
			SampleSize:  viper.GetInt("RUN_SAMPLE_SIZE"),
			PaceEvery:   viper.GetInt("RUN_PACE_EVERY"),
			PaceDelay:   time.Duration(viper.GetInt("RUN_PACE_DELAY_MS")) * time.Millisecond,
			ReportEvery: viper.GetInt("RUN_REPORT_EVERY"),
			LogDir:      viper.GetString("RUN_LOG_DIR"),
			LogLevel:    viper.GetString("RUN_LOG_LEVEL"),
		},
	}
}

// Validate performs the pre-flight check. A failure here means nothing was
// attempted yet: no datastore query, no object-store call.
func (c *Config) Validate() error {
	if c.Storage.Bucket == "" {
		return fmt.Errorf("%w: storage bucket is required (--bucket or STORAGE_BUCKET)", ErrInvalidConfig)
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		return fmt.Errorf("%w: storage credentials are required (AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY)", ErrInvalidConfig)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("%w: database URL is required (--db-url or DATABASE_URL)", ErrInvalidConfig)
	}
	if c.Run.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.Run.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1", ErrInvalidConfig)
	}
	if c.Run.SampleSize < 1 {
		return fmt.Errorf("%w: sample size must be at least 1", ErrInvalidConfig)
	}
	if c.Run.ReportEvery < 1 {
		return fmt.Errorf("%w: report cadence must be at least 1", ErrInvalidConfig)
	}
	return nil
}
