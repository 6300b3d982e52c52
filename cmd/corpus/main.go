package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/corpus/api"
	"github.com/use-agent/corpus/app"
	"github.com/use-agent/corpus/config"
	"github.com/use-agent/corpus/runner"
	"github.com/use-agent/corpus/store"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	app.InitLogger(cfg.Log)
	slog.Info("corpus starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"extractor", cfg.Extractor.Mode,
	)

	// ── 3. Launch browser and extraction client ─────────────────────
	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialise collector", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// ── 4. Run registry and background runner ───────────────────────
	ctx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	st := store.New(cfg.Store.MaxRuns, cfg.Store.TTL)
	defer st.Stop()
	rn := runner.New(ctx, st, a.NewSession, cfg.Webhook)

	// ── 5. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(rn, st, cfg, time.Now()),
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// An in-flight run stops at its current page and still writes its report.
	cancelRuns()
	rn.Wait()
	slog.Info("corpus stopped")
}
