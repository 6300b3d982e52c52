package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/corpus/models"
)

// Event types.
const (
	EventPageStatus = "page.status"
	EventRunDone    = "run.done"
	EventRunReport  = "run.report"
)

// SignatureHeader carries the HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-Corpus-Signature"

// retryDelays is the delivery schedule: one immediate attempt, then 3 retries.
var retryDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	RunID     string `json:"run_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends a webhook event synchronously.
// Header: X-Corpus-Signature: sha256=<hex>
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Corpus-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(secret, body))
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// deliverWithRetry walks retryDelays until one attempt succeeds.
func deliverWithRetry(ctx context.Context, url, secret string, event *Event) error {
	var lastErr error
	for attempt, delay := range retryDelays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		lastErr = Deliver(attemptCtx, url, secret, event)
		cancel()
		if lastErr == nil {
			slog.Debug("webhook delivered",
				"url", url,
				"event", event.Type,
				"run", event.RunID,
				"attempt", attempt+1,
			)
			return nil
		}
		slog.Warn("webhook delivery failed",
			"url", url,
			"event", event.Type,
			"run", event.RunID,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}
	slog.Error("webhook delivery exhausted all retries",
		"url", url,
		"event", event.Type,
		"run", event.RunID,
	)
	return lastErr
}

// DeliverAsync sends a webhook event in the background with retries.
func DeliverAsync(url, secret string, event *Event) {
	go func() {
		_ = deliverWithRetry(context.Background(), url, secret, event)
	}()
}

// Channel forwards page statuses and the done signal of one run to a
// webhook endpoint without waiting for delivery.
//
// Each event is delivered on its own goroutine with its own retries, so
// arrival order is not guaranteed: run.done may reach the endpoint before
// the last page.status, and a retried event can arrive up to 36s late.
// Receivers should order events by Timestamp and page index.
type Channel struct {
	URL    string
	Secret string
	RunID  string
}

// Emit posts a page.status event in the background.
func (c Channel) Emit(s models.PageStatus) {
	DeliverAsync(c.URL, c.Secret, c.event(EventPageStatus, s))
}

// EmitDone posts a run.done event in the background.
func (c Channel) EmitDone(success bool) {
	DeliverAsync(c.URL, c.Secret, c.event(EventRunDone, map[string]bool{"success": success}))
}

// Deliver posts the finished report, waiting for delivery.
func (c Channel) Deliver(ctx context.Context, report *models.CorpusReport) error {
	return deliverWithRetry(ctx, c.URL, c.Secret, c.event(EventRunReport, report))
}

func (c Channel) event(typ string, data any) *Event {
	return &Event{
		Type:      typ,
		RunID:     c.RunID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
}
