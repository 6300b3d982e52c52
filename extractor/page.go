package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
)

// DefaultEntryPoint is the global function the ruleset bundle installs in
// each page. It takes a trainee id and returns (a promise of) a vector.
const DefaultEntryPoint = "__fathomVectorize"

// vectorizeJS calls the in-page entry point, or reports that it is absent.
const vectorizeJS = `(entry, traineeId) => {
	const fn = window[entry];
	if (typeof fn !== 'function') {
		return {__noReceiver: true};
	}
	return fn(traineeId);
}`

// PageTransport answers vectorizeTab by evaluating the ruleset inside a
// registered browser tab, and trainee from a preloaded trainees file.
// It is safe for concurrent use.
type PageTransport struct {
	mu       sync.RWMutex
	pages    map[string]*rod.Page
	trainees map[string]json.RawMessage
	entry    string
}

// NewPageTransport creates a PageTransport serving the given trainees.
func NewPageTransport(trainees map[string]json.RawMessage, entry string) *PageTransport {
	if entry == "" {
		entry = DefaultEntryPoint
	}
	return &PageTransport{
		pages:    make(map[string]*rod.Page),
		trainees: trainees,
		entry:    entry,
	}
}

// LoadTrainees reads a JSON object of trainee id to trainee document.
func LoadTrainees(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trainees: %w", err)
	}
	var trainees map[string]json.RawMessage
	if err := json.Unmarshal(data, &trainees); err != nil {
		return nil, fmt.Errorf("decode trainees %s: %w", path, err)
	}
	return trainees, nil
}

// Register makes page reachable under tabID.
func (t *PageTransport) Register(tabID string, page *rod.Page) {
	t.mu.Lock()
	t.pages[tabID] = page
	t.mu.Unlock()
}

// Unregister forgets tabID.
func (t *PageTransport) Unregister(tabID string) {
	t.mu.Lock()
	delete(t.pages, tabID)
	t.mu.Unlock()
}

// Send implements Transport.
func (t *PageTransport) Send(ctx context.Context, msg Message) (json.RawMessage, error) {
	switch msg.Type {
	case TypeTrainee:
		t.mu.RLock()
		raw, ok := t.trainees[msg.TraineeID]
		t.mu.RUnlock()
		if !ok {
			return nil, &TransportError{Op: msg.Type, Err: fmt.Errorf("unknown trainee %q", msg.TraineeID)}
		}
		return raw, nil

	case TypeVectorizeTab:
		t.mu.RLock()
		page, ok := t.pages[msg.TabID]
		t.mu.RUnlock()
		if !ok {
			return nil, &TransportError{Op: msg.Type, Err: ErrNoReceiver}
		}

		res, err := page.Context(ctx).Eval(vectorizeJS, t.entry, msg.TraineeID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &TransportError{Op: msg.Type, Err: err}
		}
		if res.Value.Get("__noReceiver").Bool() {
			return nil, &TransportError{Op: msg.Type, Err: ErrNoReceiver}
		}
		return rawJSON(res.Value), nil

	default:
		return nil, &TransportError{Op: msg.Type, Err: fmt.Errorf("unsupported message type")}
	}
}

// rawJSON re-encodes an evaluation result; a JS undefined or null becomes nil.
func rawJSON(v gson.JSON) json.RawMessage {
	if v.Nil() {
		return nil
	}
	return json.RawMessage(v.JSON("", ""))
}
