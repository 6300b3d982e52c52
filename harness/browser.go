// Package harness drives a headless browser through the pages of a run,
// one page at a time, and hands each loaded tab to the run controller.
package harness

import (
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/corpus/config"
	"github.com/use-agent/corpus/models"
)

// Browser is a launched Chromium instance.
type Browser struct {
	rod *rod.Browser
	cfg config.BrowserConfig
}

// Launch starts a browser per cfg and connects to it.
func Launch(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// Keep background tabs rendering at full speed; rulesets read layout.
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("no-first-run"))
	if cfg.Stealth {
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCollectError(models.ErrCodeBrowser, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewCollectError(models.ErrCodeBrowser, "failed to connect to browser", err)
	}
	return &Browser{rod: b, cfg: cfg}, nil
}

// Close kills the browser process.
func (b *Browser) Close() {
	if err := b.rod.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
		return
	}
	slog.Info("browser closed")
}
