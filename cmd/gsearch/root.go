package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Rul1an/Gsearch/internal/config"
	"github.com/Rul1an/Gsearch/internal/fingerprint"
	"github.com/Rul1an/Gsearch/internal/scraper"
	"github.com/Rul1an/Gsearch/internal/storage"
	"github.com/Rul1an/Gsearch/internal/storage/csvbackend"
	"github.com/Rul1an/Gsearch/internal/storage/jsonbackend"
	"github.com/Rul1an/Gsearch/internal/storage/postgres"
	"github.com/Rul1an/Gsearch/internal/storage/sqlite"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "gsearch",
		Short:         "Resilient search result scraper",
		Long:          "gsearch fetches search engine result pages with request pacing, proxy and user-agent rotation, exponential backoff, and anti-bot detection.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newSearchCommand(opts))
	root.AddCommand(newReportCommand(opts))

	return root
}

// load reads the configuration and builds the logger the rest of the process
// uses. A --log-level flag beats the config file.
func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(o.configPath, bootstrap)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLevel(level),
	}))
	return cfg, logger, nil
}

func scraperConfig(cfg *config.Config) scraper.Config {
	return scraper.Config{
		BaseURL:              cfg.BaseURL,
		Delay:                cfg.Delay,
		MaxBackoff:           cfg.MaxBackoff,
		Jitter:               cfg.Jitter,
		Proxies:              cfg.Proxies,
		UserAgents:           cfg.UserAgents,
		MaxRequestsPerMinute: cfg.MaxRequestsPerMinute,
		Timeout:              cfg.Timeout,
		MaxRedirects:         cfg.MaxRedirects,
		UseCookieJar:         cfg.UseCookieJar,
		Fingerprint:          fingerprint.Profile(cfg.Fingerprint),
	}
}

// openBackend builds the configured search history backend. The "none"
// backend returns nil, which disables persistence.
func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case "", "none":
		return nil, nil
	case "sqlite":
		path := cfg.StoragePath
		if path == "" {
			path = "gsearch.db"
		}
		return sqlite.New(path)
	case "postgres":
		if cfg.StorageDSN == "" {
			return nil, fmt.Errorf("storage backend postgres requires storage.dsn")
		}
		return postgres.New(ctx, cfg.StorageDSN)
	case "json":
		path := cfg.StoragePath
		if path == "" {
			path = "gsearch-history.ndjson"
		}
		return jsonbackend.New(path)
	case "csv":
		path := cfg.StoragePath
		if path == "" {
			path = "gsearch-history.csv"
		}
		return csvbackend.New(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
