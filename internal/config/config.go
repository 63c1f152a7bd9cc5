package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries every tunable of the service. All values come from an
// optional YAML file, GSEARCH_* environment variables, or defaults, in
// ascending precedence for env over file.
type Config struct {
	// Scraper behavior.
	BaseURL              string
	Delay                time.Duration
	MaxBackoff           time.Duration
	Jitter               time.Duration
	Proxies              []string
	UserAgents           []string
	MaxRequestsPerMinute int
	Timeout              time.Duration
	MaxRedirects         int
	UseCookieJar         bool
	Fingerprint          string

	// Service surfaces.
	Listen      string
	MetricsPort int
	LogLevel    string

	// Search history.
	StorageBackend string
	StorageDSN     string
	StoragePath    string
}

const (
	defaultDelaySeconds      = 1.0
	defaultMaxBackoffSeconds = 30.0
	defaultJitterSeconds     = 0.5
	defaultTimeoutSeconds    = 30.0
	defaultListen            = ":8080"
	defaultMetricsPort       = 9090
	defaultFingerprint       = "chrome"
	defaultLogLevel          = "info"
)

// Load reads configuration from the given YAML file (empty path skips the
// file layer) and the GSEARCH_ environment. A malformed numeric value falls
// back to its default with a warning instead of failing startup.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	v.SetEnvPrefix("GSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_url", "")
	v.SetDefault("delay", defaultDelaySeconds)
	v.SetDefault("max_backoff_seconds", defaultMaxBackoffSeconds)
	v.SetDefault("backoff_jitter", defaultJitterSeconds)
	v.SetDefault("proxies", "")
	v.SetDefault("user_agents", "")
	v.SetDefault("max_requests_per_minute", 0)
	v.SetDefault("timeout_seconds", defaultTimeoutSeconds)
	v.SetDefault("max_redirects", 10)
	v.SetDefault("use_cookie_jar", true)
	v.SetDefault("fingerprint", defaultFingerprint)
	v.SetDefault("listen", defaultListen)
	v.SetDefault("metrics_port", defaultMetricsPort)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("storage.backend", "none")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.path", "")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		BaseURL:              v.GetString("base_url"),
		Delay:                secondsDuration(v, logger, "delay", defaultDelaySeconds),
		MaxBackoff:           secondsDuration(v, logger, "max_backoff_seconds", defaultMaxBackoffSeconds),
		Jitter:               secondsDuration(v, logger, "backoff_jitter", defaultJitterSeconds),
		Proxies:              splitList(v.GetString("proxies")),
		UserAgents:           splitList(v.GetString("user_agents")),
		MaxRequestsPerMinute: intValue(v, logger, "max_requests_per_minute", 0),
		Timeout:              secondsDuration(v, logger, "timeout_seconds", defaultTimeoutSeconds),
		MaxRedirects:         intValue(v, logger, "max_redirects", 10),
		UseCookieJar:         v.GetBool("use_cookie_jar"),
		Fingerprint:          v.GetString("fingerprint"),
		Listen:               v.GetString("listen"),
		MetricsPort:          intValue(v, logger, "metrics_port", defaultMetricsPort),
		LogLevel:             v.GetString("log_level"),
		StorageBackend:       v.GetString("storage.backend"),
		StorageDSN:           v.GetString("storage.dsn"),
		StoragePath:          v.GetString("storage.path"),
	}

	if cfg.Delay < 0 {
		logger.Warn("negative delay, using 0", "key", "delay")
		cfg.Delay = 0
	}
	return cfg, nil
}

// secondsDuration reads a float number of seconds. Viper hands env values
// back as strings, so parse by hand and warn on garbage rather than letting
// a typo zero out a pacing knob.
func secondsDuration(v *viper.Viper, logger *slog.Logger, key string, fallback float64) time.Duration {
	raw := v.GetString(key)
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Warn("malformed numeric config value, using default",
			"key", key, "value", raw, "default", fallback)
		seconds = fallback
	}
	return time.Duration(seconds * float64(time.Second))
}

func intValue(v *viper.Viper, logger *slog.Logger, key string, fallback int) int {
	raw := v.GetString(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("malformed numeric config value, using default",
			"key", key, "value", raw, "default", fallback)
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ParseLevel maps the log_level setting onto slog levels. Unknown values
// fall back to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
