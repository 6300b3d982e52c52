package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Collector CollectorConfig
	Extractor ExtractorConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Store     StoreConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser the harness drives.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all page loads.
	Proxy string

	// Stealth injects anti-bot-detection evasions before each navigation.
	Stealth bool // default: false

	// BlockedResourceTypes lists resource types never loaded. Stylesheets
	// and images are left alone by default because rulesets measure layout.
	BlockedResourceTypes []string // default: ["Media"]

	// DOMStableWait is the quiet period that counts as "rendered".
	DOMStableWait time.Duration // default: 300ms
}

// CollectorConfig controls the vectorization engine.
type CollectorConfig struct {
	// OutputDir receives vectors.json for command-line runs.
	OutputDir string // default: "."

	// RetryBackoff is the fixed pause after a failed vectorization attempt.
	RetryBackoff time.Duration // default: 1s
}

// ExtractorConfig selects and configures the extraction-service transport.
type ExtractorConfig struct {
	// Mode is "http" (remote service) or "page" (ruleset evaluated in the tab).
	Mode string // default: "http"

	// Endpoint is the base URL of the remote service.
	Endpoint string // default: "http://127.0.0.1:8377"

	// Timeout bounds a single round-trip.
	Timeout time.Duration // default: 60s

	// RequestsPerSecond paces messages to the service; 0 means unpaced.
	RequestsPerSecond float64 // default: 0
	Burst             int     // default: 1

	// TraineesFile is a JSON object of trainee id to trainee, for page mode.
	TraineesFile string

	// RulesetScript is a JS bundle installed in every page in page mode.
	RulesetScript string

	// EntryPoint is the global function the bundle defines.
	EntryPoint string // default: "__fathomVectorize"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// WebhookConfig sends page statuses and reports to an endpoint when URL is set.
type WebhookConfig struct {
	URL    string
	Secret string
}

// StoreConfig controls the in-memory run registry.
type StoreConfig struct {
	MaxRuns int           // default: 100
	TTL     time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("CORPUS_HOST", "0.0.0.0"),
			Port: envIntOr("CORPUS_PORT", 8080),
			Mode: envOr("CORPUS_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:             envBoolOr("CORPUS_HEADLESS", true),
			NoSandbox:            envBoolOr("CORPUS_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("CORPUS_BROWSER_BIN"),
			Proxy:                os.Getenv("CORPUS_PROXY"),
			Stealth:              envBoolOr("CORPUS_STEALTH", false),
			BlockedResourceTypes: envSliceOr("CORPUS_BLOCKED_RESOURCES", []string{"Media"}),
			DOMStableWait:        envDurationOr("CORPUS_DOM_STABLE_WAIT", 300*time.Millisecond),
		},
		Collector: CollectorConfig{
			OutputDir:    envOr("CORPUS_OUTPUT_DIR", "."),
			RetryBackoff: envDurationOr("CORPUS_RETRY_BACKOFF", 1*time.Second),
		},
		Extractor: ExtractorConfig{
			Mode:              envOr("CORPUS_EXTRACTOR_MODE", "http"),
			Endpoint:          envOr("CORPUS_EXTRACTOR_URL", "http://127.0.0.1:8377"),
			Timeout:           envDurationOr("CORPUS_EXTRACTOR_TIMEOUT", 60*time.Second),
			RequestsPerSecond: envFloatOr("CORPUS_EXTRACTOR_RPS", 0),
			Burst:             envIntOr("CORPUS_EXTRACTOR_BURST", 1),
			TraineesFile:      os.Getenv("CORPUS_TRAINEES_FILE"),
			RulesetScript:     os.Getenv("CORPUS_RULESET_SCRIPT"),
			EntryPoint:        envOr("CORPUS_ENTRY_POINT", "__fathomVectorize"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("CORPUS_AUTH_ENABLED", true),
			APIKeys: envSliceOr("CORPUS_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("CORPUS_RATE_RPS", 5.0),
			Burst:             envIntOr("CORPUS_RATE_BURST", 10),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("CORPUS_WEBHOOK_URL"),
			Secret: os.Getenv("CORPUS_WEBHOOK_SECRET"),
		},
		Store: StoreConfig{
			MaxRuns: envIntOr("CORPUS_STORE_MAX_RUNS", 100),
			TTL:     envDurationOr("CORPUS_STORE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("CORPUS_LOG_LEVEL", "info"),
			Format: envOr("CORPUS_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
