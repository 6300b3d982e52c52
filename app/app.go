// Package app wires the collector's components from configuration.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/use-agent/corpus/collector"
	"github.com/use-agent/corpus/config"
	"github.com/use-agent/corpus/extractor"
	"github.com/use-agent/corpus/harness"
	"github.com/use-agent/corpus/vectorize"
)

// App holds the long-lived parts shared by every run: the browser, the
// extraction service client and the vectorization client.
type App struct {
	Browser *harness.Browser
	Service *extractor.Service
	Client  *vectorize.Client
	Harness *harness.Harness
}

// New launches the browser and builds the transport selected by cfg.
func New(cfg *config.Config) (*App, error) {
	var (
		transport extractor.Transport
		registry  harness.Registry
		script    string
	)

	switch cfg.Extractor.Mode {
	case "http":
		transport = extractor.NewHTTPTransport(
			cfg.Extractor.Endpoint,
			cfg.Extractor.Timeout,
			cfg.Extractor.RequestsPerSecond,
			cfg.Extractor.Burst,
		)
	case "page":
		if cfg.Extractor.TraineesFile == "" {
			return nil, fmt.Errorf("page mode requires CORPUS_TRAINEES_FILE")
		}
		trainees, err := extractor.LoadTrainees(cfg.Extractor.TraineesFile)
		if err != nil {
			return nil, err
		}
		if cfg.Extractor.RulesetScript != "" {
			data, err := os.ReadFile(cfg.Extractor.RulesetScript)
			if err != nil {
				return nil, fmt.Errorf("read ruleset script: %w", err)
			}
			script = string(data)
		}
		pt := extractor.NewPageTransport(trainees, cfg.Extractor.EntryPoint)
		transport, registry = pt, pt
	default:
		return nil, fmt.Errorf("unknown extractor mode %q", cfg.Extractor.Mode)
	}

	browser, err := harness.Launch(cfg.Browser)
	if err != nil {
		return nil, err
	}

	svc := extractor.NewService(transport)
	return &App{
		Browser: browser,
		Service: svc,
		Client:  vectorize.NewClient(svc, vectorize.WithBackoff(cfg.Collector.RetryBackoff)),
		Harness: harness.New(browser, registry, script),
	}, nil
}

// NewSession builds a fresh controller for one run, reporting to status and
// sink, and the driver that walks its pages through the browser.
func (a *App) NewSession(status collector.StatusChannel, sink collector.Sink) (*collector.Controller, collector.DriverFunc) {
	ctrl := collector.NewController(a.Service, a.Client, status, sink)
	return ctrl, a.Harness.Drive
}

// Close shuts the browser down.
func (a *App) Close() {
	a.Browser.Close()
}

// InitLogger configures slog based on the LogConfig. The text format is
// rendered with tint for terminals.
func InitLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(handler))
}
