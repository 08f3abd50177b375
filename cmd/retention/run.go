package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/imedwei/backup-retention/internal/config"
	"github.com/imedwei/backup-retention/internal/health"
	"github.com/imedwei/backup-retention/internal/metrics"
	"github.com/imedwei/backup-retention/internal/server"
	"github.com/imedwei/backup-retention/internal/storage"
	"github.com/imedwei/backup-retention/internal/sweeper"
)

// CLI holds the command-line flags.
type CLI struct {
	ID       string `name:"id" help:"S3 access key id." env:"AWS_ACCESS_KEY_ID"`
	Secret   string `name:"secret" help:"S3 secret access key." env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint string `help:"S3 endpoint URL." env:"S3_ENDPOINT"`
	Region   string `help:"S3 region." env:"S3_REGION"`

	Config  string `short:"c" type:"path" help:"rclone-style credential file, read when --id or --secret is missing (default: the user's rclone.conf)." env:"RCLONE_CONFIG"`
	Section string `help:"Section of the credential file to use." default:"c3g-prod"`

	Bucket    string `short:"b" help:"Bucket holding the backups." default:"DB_backups" env:"S3_BUCKET"`
	Prefix    string `help:"Only consider keys under this prefix." env:"BACKUP_FILE_PREFIX"`
	NotDryRun bool   `short:"r" help:"Run the cleanup. Without this flag nothing is deleted."`

	Provider                 string `help:"Storage provider." enum:"s3,gcs" default:"s3" env:"STORAGE_PROVIDER"`
	GoogleServiceAccountJSON string `name:"google-service-account-json" help:"Google service account key (JSON)." env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	PageSize                 int    `help:"Listing page size, 0 uses the provider default."`

	Format         string `help:"Report format." enum:"text,json" default:"text"`
	MetricsPort    int    `help:"Serve /metrics and /health on this port and keep running until interrupted." env:"METRICS_PORT"`
	PushgatewayURL string `help:"Push sweep metrics to this Prometheus Pushgateway." env:"PUSHGATEWAY_URL"`
	LogLevel       string `help:"Log level." enum:"debug,info,warn,error" default:"info" env:"LOG_LEVEL"`
}

// BuildConfig turns flags into a validated configuration, reading the
// credential file when the key pair was not given explicitly.
func (c *CLI) BuildConfig() (*config.Config, error) {
	cfg := &config.Config{
		StorageProvider:          c.Provider,
		AccessKeyID:              c.ID,
		SecretAccessKey:          c.Secret,
		Endpoint:                 config.NormalizeEndpoint(c.Endpoint),
		Region:                   c.Region,
		GoogleServiceAccountJSON: c.GoogleServiceAccountJSON,
		Bucket:                   c.Bucket,
		Prefix:                   c.Prefix,
		DryRun:                   !c.NotDryRun,
		PageSize:                 c.PageSize,
		OutputFormat:             c.Format,
		MetricsPort:              c.MetricsPort,
		PushgatewayURL:           c.PushgatewayURL,
	}

	if cfg.StorageProvider == config.ProviderS3 && (c.Config != "" || !cfg.HasExplicitCredentials()) {
		path := c.Config
		if path == "" {
			var err error
			if path, err = config.DefaultCredentialsPath(); err != nil {
				return nil, err
			}
		}
		creds, err := config.ReadCredentials(path, c.Section)
		if err != nil {
			return nil, err
		}
		cfg.MergeCredentials(creds)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newStorage is swapped in tests.
var newStorage = storage.NewStorage

func run(ctx context.Context, cli *CLI, out io.Writer, logger *slog.Logger) error {
	cfg, err := cli.BuildConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("Configuration loaded",
		"storage_provider", cfg.StorageProvider,
		"endpoint", cfg.Endpoint,
		"bucket", cfg.Bucket,
		"prefix", cfg.Prefix,
		"dry_run", cfg.DryRun,
	)
	metrics.Info.WithLabelValues(version, cfg.StorageProvider, cfg.Bucket).Set(1)

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage provider: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}()
	}

	var reporter sweeper.Reporter = &sweeper.TextReporter{Out: out}
	if cfg.OutputFormat == config.FormatJSON {
		reporter = &sweeper.JSONReporter{Out: out}
	}

	tracker := &health.SweepTracker{}
	var httpServer *server.Server
	var wg sync.WaitGroup
	if cfg.MetricsPort > 0 {
		checker := health.NewChecker()
		checker.RegisterCheck("storage", health.StorageCheck(store, cfg.Bucket, cfg.Prefix, 10*time.Second))
		checker.RegisterCheck("sweep", tracker.Check)

		serverConfig := server.DefaultConfig()
		serverConfig.Port = cfg.MetricsPort
		httpServer = server.New(serverConfig, checker, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := httpServer.Start(); err != nil {
				logger.Error("HTTP server failed", "error", err)
			}
		}()
	}

	sw := sweeper.New(store, reporter, logger)
	sw.Prefix = cfg.Prefix

	result, sweepErr := sw.Sweep(ctx, cfg.Bucket, cfg.DryRun)
	kept, deleted := 0, 0
	if result != nil {
		kept, deleted = len(result.Kept), len(result.Deleted)
	}
	tracker.Record(kept, deleted, sweepErr)

	if cfg.PushgatewayURL != "" {
		instance, _ := os.Hostname()
		if err := metrics.Push(cfg.PushgatewayURL, instance); err != nil {
			logger.Warn("Failed to push metrics", "error", err)
		}
	}

	if httpServer != nil {
		logger.Info("Sweep finished, serving metrics until interrupted", "port", cfg.MetricsPort)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultConfig().ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
		wg.Wait()
	}

	return sweepErr
}
