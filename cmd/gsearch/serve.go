package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Rul1an/Gsearch/internal/api"
	"github.com/Rul1an/Gsearch/internal/metrics"
	"github.com/Rul1an/Gsearch/internal/scraper"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the search API server",
		Example: "gsearch serve --config gsearch.yaml",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			backend, err := openBackend(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open storage backend: %w", err)
			}
			if backend != nil {
				defer backend.Close()
				logger.Info("search history enabled", "backend", cfg.StorageBackend)
			}

			engine, err := scraper.New(scraperConfig(cfg), logger)
			if err != nil {
				return fmt.Errorf("failed to build scraper: %w", err)
			}
			logger.Info("scraper ready",
				"proxies", engine.ProxyCount(),
				"fingerprint", cfg.Fingerprint,
				"max_requests_per_minute", cfg.MaxRequestsPerMinute)

			apiServer := api.New(engine, backend, logger)
			httpServer := &http.Server{
				Addr:    cfg.Listen,
				Handler: apiServer.Handler(),
			}

			metricsServer := metrics.Start(cfg.MetricsPort)

			group, groupCtx := errgroup.WithContext(ctx)
			group.Go(func() error {
				logger.Info("api server listening", "addr", cfg.Listen)
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			group.Go(func() error {
				<-groupCtx.Done()
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logger.Error("api shutdown failed", "err", err)
				}
				return metricsServer.Stop(shutdownCtx)
			})

			return group.Wait()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address for the API server (overrides config)")
	return cmd
}
