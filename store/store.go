// Package store keeps recent runs in memory for the HTTP API.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/use-agent/corpus/models"
	"github.com/use-agent/corpus/sink"
)

// Run is the API-facing record of one run. It implements
// collector.StatusChannel and collector.Sink so the controller can report
// into it directly. It is safe for concurrent use.
type Run struct {
	ID string

	mu        sync.RWMutex
	total     int
	state     models.RunState
	pages     map[int]models.PageStatus
	success   *bool
	err       *models.ErrorDetail
	createdAt time.Time
	report    sink.MemorySink
	finished  chan struct{}
	once      sync.Once
}

// NewRun creates a run record for total pages.
func NewRun(id string, total int) *Run {
	return &Run{
		ID:        id,
		total:     total,
		state:     models.RunIdle,
		pages:     make(map[int]models.PageStatus),
		createdAt: time.Now(),
		finished:  make(chan struct{}),
	}
}

// MarkFinished closes Done. Later calls are no-ops.
func (r *Run) MarkFinished() {
	r.once.Do(func() { close(r.finished) })
}

// Done is closed once the run's background work has returned.
func (r *Run) Done() <-chan struct{} {
	return r.finished
}

// Emit keeps the latest status per page. A final status is never replaced.
func (r *Run) Emit(s models.PageStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.pages[s.PageIndex]; ok && prev.IsFinal {
		return
	}
	r.pages[s.PageIndex] = s
}

// EmitDone records the terminal signal.
func (r *Run) EmitDone(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success = &success
	if success {
		r.state = models.RunCompleted
	} else {
		r.state = models.RunAborted
	}
}

// Deliver keeps the report for download.
func (r *Run) Deliver(ctx context.Context, report *models.CorpusReport) error {
	return r.report.Deliver(ctx, report)
}

// SetState moves the record to state.
func (r *Run) SetState(state models.RunState) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

// SetError records the error that ended the run. The state is left alone.
func (r *Run) SetError(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.err = models.DetailOf(err)
	r.mu.Unlock()
}

// Report returns the encoded vectors.json, or nil if none was built.
func (r *Run) Report() []byte {
	return r.report.Bytes()
}

// Snapshot returns a copy suitable for JSON encoding.
func (r *Run) Snapshot() models.RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := models.RunSnapshot{
		ID:        r.ID,
		Status:    r.state,
		Total:     r.total,
		Success:   r.success,
		Error:     r.err,
		Pages:     make([]models.PageStatus, 0, len(r.pages)),
		CreatedAt: r.createdAt.Unix(),
	}
	for _, s := range r.pages {
		snap.Pages = append(snap.Pages, s)
		if !s.IsFinal {
			continue
		}
		if s.IsError {
			snap.Failed++
		} else {
			snap.Completed++
		}
	}
	sort.Slice(snap.Pages, func(i, j int) bool {
		return snap.Pages[i].PageIndex < snap.Pages[j].PageIndex
	})
	return snap
}

func (r *Run) terminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Terminal()
}

// Store holds runs by id. Finished runs older than ttl are evicted by a
// background goroutine. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	runs       map[string]*Run
	maxEntries int
	ttl        time.Duration
	done       chan struct{}
}

// New creates a Store and starts its cleanup loop.
func New(maxEntries int, ttl time.Duration) *Store {
	s := &Store{
		runs:       make(map[string]*Run),
		maxEntries: maxEntries,
		ttl:        ttl,
		done:       make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Put stores a run. At capacity, the oldest finished run is evicted.
func (s *Store) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxEntries > 0 && len(s.runs) >= s.maxEntries {
		var oldest *Run
		for _, r := range s.runs {
			if r.terminal() && (oldest == nil || r.createdAt.Before(oldest.createdAt)) {
				oldest = r
			}
		}
		if oldest != nil {
			delete(s.runs, oldest.ID)
		}
	}
	s.runs[run.ID] = run
}

// Get returns the run with id.
func (s *Store) Get(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok
}

// Len is the number of stored runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Stop terminates the cleanup goroutine.
func (s *Store) Stop() {
	close(s.done)
}

// cleanupLoop evicts finished runs older than ttl every 5 minutes.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictExpired(time.Now())
		}
	}
}

func (s *Store) evictExpired(now time.Time) {
	cutoff := now.Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.runs {
		if r.terminal() && r.createdAt.Before(cutoff) {
			delete(s.runs, id)
		}
	}
}
