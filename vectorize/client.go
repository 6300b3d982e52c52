// Package vectorize requests feature vectors for loaded pages and checks
// them for missing values.
package vectorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/corpus/models"
)

const (
	// retryAttempts is the attempt budget per page when retries are enabled.
	retryAttempts = 10

	// DefaultBackoff is the fixed pause after a failed attempt.
	DefaultBackoff = 1 * time.Second
)

// Vectorizer is the part of the extraction service the client needs.
type Vectorizer interface {
	VectorizeTab(ctx context.Context, tabID, traineeID string) (*models.FeatureVector, error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client issues one vectorization request per page with a bounded number of
// attempts. It only retries transport failures; a vector that arrives is
// returned even if some of its features are missing.
type Client struct {
	svc     Vectorizer
	sleep   SleepFunc
	backoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithSleep replaces the sleep function (tests use a recorder).
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithBackoff replaces the fixed backoff between failed attempts.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// NewClient creates a Client.
func NewClient(svc Vectorizer, opts ...Option) *Client {
	c := &Client{svc: svc, sleep: Sleep, backoff: DefaultBackoff}
	for _, o := range opts {
		o(c)
	}
	return c
}

// MaxTries is the attempt budget for one page under cfg.
func MaxTries(cfg models.RunConfig) int {
	if cfg.RetryOnError {
		return retryAttempts
	}
	return 1
}

// Request vectorizes the page loaded in tabID.
//
// Every attempt is preceded by the configured settle delay, since the page
// may still be rendering. A failed attempt is followed by a fixed backoff;
// the intermittent "no receiver" failures of the channel clear up after a
// short pause. When the budget is spent the last transport error is
// returned as a TRANSPORT_ERROR.
func (c *Client) Request(ctx context.Context, tabID, traineeID string, cfg models.RunConfig) (*models.FeatureVector, error) {
	maxTries := MaxTries(cfg)

	for attempt := 1; ; attempt++ {
		if err := c.sleep(ctx, cfg.Wait()); err != nil {
			return nil, err
		}

		vec, err := c.svc.VectorizeTab(ctx, tabID, traineeID)
		if err == nil {
			slog.Debug("page vectorized", "tab", tabID, "attempt", attempt, "nodes", len(vec.Nodes))
			return vec, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		if attempt >= maxTries {
			slog.Warn("vectorization attempts exhausted",
				"tab", tabID,
				"attempts", attempt,
				"error", err,
			)
			return nil, models.NewCollectError(
				models.ErrCodeTransport,
				fmt.Sprintf("vectorization failed after %d attempt(s)", attempt),
				err,
			)
		}

		slog.Debug("vectorization attempt failed, retrying",
			"tab", tabID,
			"attempt", attempt,
			"maxTries", maxTries,
			"error", err,
		)
		if err := c.sleep(ctx, c.backoff); err != nil {
			return nil, err
		}
	}
}
