package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxResponseBytes caps a single service response.
const maxResponseBytes = 32 << 20

// HTTPTransport posts messages to an extraction service over HTTP.
// It uses net/http directly; the protocol is a single JSON POST.
type HTTPTransport struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPTransport creates a transport for the service at endpoint.
// Messages are paced to rps (burst); rps <= 0 disables pacing.
func NewHTTPTransport(endpoint string, timeout time.Duration, rps float64, burst int) *HTTPTransport {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &HTTPTransport{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, msg Message) (json.RawMessage, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, &TransportError{Op: msg.Type, Err: fmt.Errorf("marshal message: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/message", bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: msg.Type, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Corpus-Collector/1.0")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: msg.Type, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: msg.Type, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable:
		return nil, &TransportError{Op: msg.Type, Err: ErrNoReceiver}
	case resp.StatusCode >= 400:
		return nil, &TransportError{
			Op:  msg.Type,
			Err: fmt.Errorf("service returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
		}
	}
	return json.RawMessage(respBody), nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
