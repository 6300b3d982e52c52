package harness

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/corpus/collector"
	"github.com/use-agent/corpus/models"
)

// Controller is the part of collector.Controller the harness drives.
type Controller interface {
	Progress(pageIndex int, message string)
	ProcessPage(ctx context.Context, pageIndex int, tabID string)
	OnPageResult(pageIndex int, vec *models.FeatureVector, err error)
	Stopped() <-chan struct{}
	Trainee() *models.Trainee
}

// Registry makes a loaded tab reachable by the extraction transport.
type Registry interface {
	Register(tabID string, page *rod.Page)
	Unregister(tabID string)
}

// Harness visits the pages of a run in order.
type Harness struct {
	browser  *Browser
	registry Registry
	script   string
}

// New creates a Harness. registry may be nil when the extraction service
// reaches tabs on its own; script, if set, is installed in every page
// before navigation.
func New(b *Browser, registry Registry, script string) *Harness {
	return &Harness{browser: b, registry: registry, script: script}
}

// Run visits every page of cfg, strictly one after another. Each page
// reaches its final status before the next is opened. Run returns early
// when the controller signals a stop or ctx is done.
func (h *Harness) Run(ctx context.Context, ctrl Controller, cfg models.RunConfig) error {
	for i, page := range cfg.Pages {
		select {
		case <-ctrl.Stopped():
			slog.Info("run stopped, skipping remaining pages",
				"next", i,
				"skipped", len(cfg.Pages)-i,
			)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		h.visit(ctx, ctrl, i, page, cfg.Timeout())
	}
	return nil
}

// visit loads one page in a fresh tab and has the controller vectorize it.
//
// Steps 2-4 must happen before navigation: viewport, stealth JS, the
// ruleset bundle and resource blocking only apply to loads started after
// they are installed.
func (h *Harness) visit(ctx context.Context, ctrl Controller, idx int, desc models.PageDescriptor, timeout time.Duration) {
	ctrl.Progress(idx, "loading")

	// ── 1. Open tab ──────────────────────────────────────────────────
	page, err := h.browser.rod.Page(proto.TargetCreateTarget{})
	if err != nil {
		ctrl.OnPageResult(idx, nil, models.NewCollectError(models.ErrCodeBrowser, "failed to open tab", err))
		return
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to close tab", "page", idx, "error", closeErr)
		}
	}()
	tabID := string(page.TargetID)

	// ── 2. Viewport from the trainee ─────────────────────────────────
	if vp := viewportOf(ctrl.Trainee()); vp != nil {
		if vpErr := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             vp.Width,
			Height:            vp.Height,
			DeviceScaleFactor: 1,
		}); vpErr != nil {
			slog.Warn("failed to set viewport", "page", idx, "error", vpErr)
		}
	}

	// ── 3. Stealth + ruleset bundle ──────────────────────────────────
	if h.browser.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}
	if h.script != "" {
		if _, evalErr := page.EvalOnNewDocument(h.script); evalErr != nil {
			ctrl.OnPageResult(idx, nil, models.NewCollectError(models.ErrCodeBrowser, "failed to install ruleset", evalErr))
			return
		}
	}

	// ── 4. Resource blocking ─────────────────────────────────────────
	if router := blockResources(page, h.browser.cfg.BlockedResourceTypes); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 5. Navigate and let the DOM settle ───────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p := page.Context(navCtx)

	if navErr := p.Navigate(desc.URL); navErr != nil {
		ctrl.OnPageResult(idx, nil, categorizeError(navErr, "navigation failed"))
		return
	}
	if stableErr := p.WaitDOMStable(h.browser.cfg.DOMStableWait, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"page", idx,
			"error", stableErr,
		)
	}

	// ── 6. Vectorize ─────────────────────────────────────────────────
	if h.registry != nil {
		h.registry.Register(tabID, page)
		defer h.registry.Unregister(tabID)
	}
	ctrl.Progress(idx, "vectorizing")
	ctrl.ProcessPage(ctx, idx, tabID)
}

func viewportOf(t *models.Trainee) *models.Viewport {
	if t == nil || t.ViewportSize == nil || t.ViewportSize.Width <= 0 || t.ViewportSize.Height <= 0 {
		return nil
	}
	return t.ViewportSize
}

// categorizeError wraps navigation errors into coded errors.
func categorizeError(err error, msg string) *models.CollectError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCollectError(models.ErrCodeNavigation, "page load timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewCollectError(models.ErrCodeNavigation, "page load canceled", err)
	default:
		return models.NewCollectError(models.ErrCodeNavigation, msg, err)
	}
}

// Drive adapts Run to collector.DriverFunc.
func (h *Harness) Drive(ctx context.Context, ctrl *collector.Controller, cfg models.RunConfig) error {
	return h.Run(ctx, ctrl, cfg)
}
