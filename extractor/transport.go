// Package extractor talks to the feature-extraction service. Every failure of
// a request/response round-trip surfaces as a *TransportError so callers can
// tell channel problems apart from problems with the extracted data.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Message types understood by the extraction service.
const (
	TypeTrainee      = "trainee"
	TypeVectorizeTab = "vectorizeTab"
)

// Message is one request to the extraction service.
type Message struct {
	Type      string `json:"type"`
	TraineeID string `json:"traineeId"`
	TabID     string `json:"tabId,omitempty"`
}

// Transport carries a single message and returns the raw response.
// One message is in flight at a time.
type Transport interface {
	Send(ctx context.Context, msg Message) (json.RawMessage, error)
}

// ErrNoReceiver is reported when nothing is listening on the other end.
// The service is known to report this intermittently while it is alive.
var ErrNoReceiver = errors.New("could not establish connection: receiving end does not exist")

// TransportError is a failed round-trip.
type TransportError struct {
	Op  string // message type
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("extractor: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is, or wraps, a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// asTransportError wraps err unless it already is a transport error or a
// context error.
func asTransportError(op string, err error) error {
	if err == nil || IsTransportError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
