package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsearch_searches_total",
			Help: "Total number of search calls by terminal status",
		},
		[]string{"status"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gsearch_search_duration_seconds",
			Help:    "End-to-end duration of search calls in seconds, waits included",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsearch_attempts_total",
			Help: "Total number of fetch attempts by outcome",
		},
		[]string{"outcome"},
	)

	BlockDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsearch_block_detections_total",
			Help: "Total number of CAPTCHA/consent pages detected, by indicator family",
		},
		[]string{"family"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsearch_proxy_failures_total",
			Help: "Total number of proxy failures during fetch attempts",
		},
		[]string{"proxy_url"},
	)
)

// RecordSearch updates the per-search metrics for one terminal status.
func RecordSearch(status string, duration time.Duration) {
	SearchesTotal.WithLabelValues(status).Inc()
	SearchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
