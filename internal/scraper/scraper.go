package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Rul1an/Gsearch/internal/detect"
	"github.com/Rul1an/Gsearch/internal/extract"
	"github.com/Rul1an/Gsearch/internal/fingerprint"
	"github.com/Rul1an/Gsearch/internal/metrics"
	"github.com/Rul1an/Gsearch/pkg/backoff"
	"github.com/Rul1an/Gsearch/pkg/ratelimit"
	"github.com/Rul1an/Gsearch/pkg/rotation"
	"github.com/google/uuid"
)

// DefaultBaseURL is the search endpoint queried when none is configured.
const DefaultBaseURL = "https://www.google.com/search"

const defaultNumResults = 10

// Status is the terminal state of one search call.
type Status string

const (
	// StatusOK: a response passed detection and was extracted.
	StatusOK Status = "ok"
	// StatusExhausted: every attempt failed at the transport or status level.
	// A recoverable, silent outcome: the caller gets zero results, no error.
	StatusExhausted Status = "exhausted"
	// StatusBlocked: every attempt was answered with a CAPTCHA/consent
	// interstitial. The one outcome callers must surface explicitly.
	StatusBlocked Status = "blocked"
)

// AttemptOutcome classifies a single fetch try.
type AttemptOutcome string

const (
	AttemptSuccess      AttemptOutcome = "success"
	AttemptNetworkError AttemptOutcome = "network_error"
	AttemptBlocked      AttemptOutcome = "blocked"
)

// Attempt records one fetch try for observability and storage.
type Attempt struct {
	Number    int
	Proxy     string // empty when direct
	UserAgent string
	Outcome   AttemptOutcome
}

// Outcome is the typed result of a search call. Callers branch on Status
// instead of distinguishing error types: only Status carries the
// success/exhausted/blocked decision.
type Outcome struct {
	ID       string
	Query    string
	Results  []extract.Result
	Status   Status
	Family   detect.Family // indicator family of the last block, when blocked
	Attempts []Attempt
	Duration time.Duration
}

// Config assembles a Scraper. It is built once at startup and passed in
// explicitly; nothing here is read from the environment at import time.
type Config struct {
	// BaseURL of the search endpoint. Defaults to DefaultBaseURL.
	BaseURL string
	// Delay is the base pacing delay: slept after every successful search
	// and doubled per attempt as the backoff base. Zero disables both.
	Delay time.Duration
	// MaxBackoff caps backoff sleeps. Zero or negative means uncapped.
	MaxBackoff time.Duration
	// Jitter is the upper bound of the random addition to backoff sleeps.
	Jitter time.Duration
	// Proxies to rotate through, one attempt each. Empty means one direct
	// attempt per search.
	Proxies []string
	// UserAgents to rotate through, one per search call. Empty means
	// DefaultUserAgent on every call.
	UserAgents []string
	// MaxRequestsPerMinute caps outbound requests over the trailing minute.
	// Zero or negative means unlimited.
	MaxRequestsPerMinute int

	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	Fingerprint  fingerprint.Profile

	// Indicators overrides the anti-bot indicator table. Nil uses the
	// default table.
	Indicators []detect.Indicator
}

// Scraper is the search orchestrator: it paces itself, rotates proxies and
// user-agents, fetches one result page per attempt, classifies it, and
// extracts results. One Scraper serves many Search calls; it is safe for
// concurrent use.
type Scraper struct {
	cfg      Config
	fetcher  *Fetcher
	proxies  *rotation.Pool[*url.URL]
	agents   *rotation.Pool[string]
	limiter  *ratelimit.Limiter
	backoff  backoff.Policy
	detector *detect.Detector
	logger   *slog.Logger
}

// New builds a Scraper from the given configuration.
func New(cfg Config, logger *slog.Logger) (*Scraper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.MaxBackoff < 0 {
		cfg.MaxBackoff = 0
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}

	proxyURLs, err := parseProxies(cfg.Proxies)
	if err != nil {
		return nil, err
	}

	fetcher, err := NewFetcher(FetcherConfig{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Fingerprint:  cfg.Fingerprint,
	})
	if err != nil {
		return nil, err
	}

	return &Scraper{
		cfg:     cfg,
		fetcher: fetcher,
		proxies: rotation.NewPool(proxyURLs),
		agents:  rotation.NewPool(cleanStrings(cfg.UserAgents)),
		limiter: ratelimit.NewLimiter(cfg.MaxRequestsPerMinute),
		backoff: backoff.Policy{
			Base:   cfg.Delay,
			Max:    cfg.MaxBackoff,
			Jitter: cfg.Jitter,
		},
		detector: detect.New(cfg.Indicators),
		logger:   logger,
	}, nil
}

// Search fetches one result page for query and extracts up to numResults
// results. The returned Outcome is always non-nil on a nil error; its Status
// tells the caller whether results are real, attempts were exhausted, or the
// target blocked us. The error return covers invalid input and context
// cancellation only.
func (s *Scraper) Search(ctx context.Context, query string, numResults int) (*Outcome, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query cannot be empty")
	}
	if numResults <= 0 {
		numResults = defaultNumResults
	}

	start := time.Now()
	outcome := &Outcome{
		ID:    uuid.New().String(),
		Query: query,
	}

	targetURL := fmt.Sprintf("%s?q=%s&num=%d", s.cfg.BaseURL, url.QueryEscape(query), numResults)

	// One user-agent per search call; proxies rotate per attempt below.
	userAgent, ok := s.agents.Next()
	if !ok {
		userAgent = DefaultUserAgent
	}

	maxAttempts := s.proxies.Len()
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	s.logger.Info("starting search", "query", query, "num_results", numResults, "max_attempts", maxAttempts)

	attempt := 0
	for attempt < maxAttempts {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		rc := RequestContext{UserAgent: userAgent}
		proxyLabel := ""
		if proxy, ok := s.proxies.Next(); ok {
			rc.Proxy = proxy
			proxyLabel = proxy.String()
		}

		s.logger.Debug("search attempt",
			"attempt", attempt+1, "max_attempts", maxAttempts,
			"proxy", proxyLabel, "user_agent", userAgent)

		page, err := s.fetcher.Fetch(ctx, targetURL, rc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			attempt++
			outcome.Attempts = append(outcome.Attempts, Attempt{attempt, proxyLabel, userAgent, AttemptNetworkError})
			metrics.AttemptsTotal.WithLabelValues(string(AttemptNetworkError)).Inc()
			if proxyLabel != "" {
				metrics.ProxyFailures.WithLabelValues(proxyLabel).Inc()
			}
			s.logger.Error("attempt failed", "attempt", attempt, "proxy", proxyLabel, "err", err)

			if attempt >= maxAttempts {
				return s.finish(outcome, StatusExhausted, start), nil
			}
			if err := s.backoff.Sleep(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		// Detection runs before status validation: a block page may itself
		// carry an error status.
		if blocked, family := s.detector.Classify(string(page.Body)); blocked {
			attempt++
			outcome.Family = family
			outcome.Attempts = append(outcome.Attempts, Attempt{attempt, proxyLabel, userAgent, AttemptBlocked})
			metrics.AttemptsTotal.WithLabelValues(string(AttemptBlocked)).Inc()
			metrics.BlockDetections.WithLabelValues(string(family)).Inc()
			s.logger.Warn("block page detected", "query", query, "family", family, "proxy", proxyLabel)

			if attempt >= maxAttempts {
				return s.finish(outcome, StatusBlocked, start), nil
			}
			if err := s.backoff.Sleep(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if page.StatusCode >= 400 {
			attempt++
			outcome.Attempts = append(outcome.Attempts, Attempt{attempt, proxyLabel, userAgent, AttemptNetworkError})
			metrics.AttemptsTotal.WithLabelValues(string(AttemptNetworkError)).Inc()
			s.logger.Error("bad status", "attempt", attempt, "status", page.StatusCode, "proxy", proxyLabel)

			if attempt >= maxAttempts {
				return s.finish(outcome, StatusExhausted, start), nil
			}
			if err := s.backoff.Sleep(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		outcome.Attempts = append(outcome.Attempts, Attempt{attempt + 1, proxyLabel, userAgent, AttemptSuccess})
		metrics.AttemptsTotal.WithLabelValues(string(AttemptSuccess)).Inc()

		outcome.Results = extract.Results(page.Body, numResults)
		s.logger.Info("search complete", "query", query, "results", len(outcome.Results), "attempts", attempt+1)

		// Post-request pacing: the plain base delay, independent of the
		// limiter and backoff.
		if s.cfg.Delay > 0 {
			timer := time.NewTimer(s.cfg.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		return s.finish(outcome, StatusOK, start), nil
	}

	// Unreachable: the loop always returns. Kept for the compiler.
	return s.finish(outcome, StatusExhausted, start), nil
}

// ProxyCount reports how many proxies are configured.
func (s *Scraper) ProxyCount() int {
	return s.proxies.Len()
}

func (s *Scraper) finish(outcome *Outcome, status Status, start time.Time) *Outcome {
	outcome.Status = status
	outcome.Duration = time.Since(start)
	metrics.RecordSearch(string(status), outcome.Duration)
	if status != StatusOK {
		s.logger.Warn("search ended without results",
			"query", outcome.Query, "status", status, "attempts", len(outcome.Attempts))
	}
	return outcome
}

// parseProxies parses the raw proxy list, dropping empty entries and
// defaulting to http when the scheme is missing.
func parseProxies(raw []string) ([]*url.URL, error) {
	var urls []*url.URL
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "://") {
			entry = "http://" + entry
		}
		u, err := url.Parse(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", entry, err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func cleanStrings(raw []string) []string {
	var out []string
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
