package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Rul1an/Gsearch/internal/fingerprint"
	"github.com/Rul1an/Gsearch/pkg/httpclient"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// DefaultUserAgent is sent when no user-agent pool is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// RequestContext carries everything one attempt needs that varies between
// attempts: the rotated proxy and user-agent. It is passed into Fetch instead
// of being mutated onto a shared session, so rotation state and transport
// stay decoupled.
type RequestContext struct {
	Proxy     *url.URL // nil means direct
	UserAgent string
}

// Page is the transport-level result of one successful fetch. "Successful"
// here means a response arrived; the status code may still be an error and
// the body may still be a block page.
type Page struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// FetcherConfig configures the long-lived fetch client.
type FetcherConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	Fingerprint  fingerprint.Profile
}

// Fetcher executes single GET requests through a persistent client. One
// Fetcher lives for the whole process so connections, cookies and the TLS
// fingerprint persist across searches.
type Fetcher struct {
	client *httpclient.Client
}

// NewFetcher initializes a Fetcher. The transport's proxy function reads the
// proxy URL from the request context, which lets each attempt use a different
// proxy without rebuilding the transport.
func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}

	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		// No proxy chosen for this attempt: go direct. Environment proxies
		// are deliberately ignored; rotation owns proxy selection.
		return nil, nil
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("setting up transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return &Fetcher{client: client}, nil
}

// Fetch executes one GET attempt against targetURL using the attempt's proxy
// and user-agent. A non-nil error is a transport-level failure; response
// status codes are the caller's concern.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string, rc RequestContext) (*Page, error) {
	start := time.Now()

	if rc.Proxy != nil {
		ctx = context.WithValue(ctx, proxyKey, rc.Proxy)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	ua := rc.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return &Page{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}
