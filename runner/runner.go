// Package runner executes collection runs in the background for the API,
// one at a time.
package runner

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/use-agent/corpus/collector"
	"github.com/use-agent/corpus/config"
	"github.com/use-agent/corpus/models"
	"github.com/use-agent/corpus/sink"
	"github.com/use-agent/corpus/store"
	"github.com/use-agent/corpus/webhook"
)

// ErrBusy is returned while another run is in progress.
var ErrBusy = models.NewCollectError(models.ErrCodeRunConflict, "a run is already in progress", nil)

// Factory builds the controller and page driver of one run. status and sink
// are where the run must report.
type Factory func(status collector.StatusChannel, sink collector.Sink) (*collector.Controller, collector.DriverFunc)

// Runner owns the single active run. Every run gets a fresh controller.
type Runner struct {
	ctx     context.Context
	store   *store.Store
	factory Factory
	hook    config.WebhookConfig

	mu     sync.Mutex
	active string
	wg     sync.WaitGroup
}

// New creates a Runner. Background runs are canceled when ctx is done.
func New(ctx context.Context, st *store.Store, factory Factory, hook config.WebhookConfig) *Runner {
	return &Runner{ctx: ctx, store: st, factory: factory, hook: hook}
}

// Active returns the id of the run in progress, or "".
func (r *Runner) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Submit starts a run. Configuration errors, including a trainee that
// cannot be loaded, are returned before any page is visited and leave no
// run behind. On success the pages are processed in the background.
func (r *Runner) Submit(ctx context.Context, cfg models.RunConfig) (*store.Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.active != "" {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	id := "run-" + randomID()
	r.active = id
	r.mu.Unlock()

	run := store.NewRun(id, len(cfg.Pages))
	var status collector.StatusChannel = collector.MultiChannel{collector.LogChannel{RunID: id}, run}
	var out collector.Sink = run
	if r.hook.URL != "" {
		ch := webhook.Channel{URL: r.hook.URL, Secret: r.hook.Secret, RunID: id}
		status = append(status.(collector.MultiChannel), ch)
		out = sink.Multi{run, ch}
	}

	ctrl, drive := r.factory(status, out)
	if err := ctrl.Start(ctx, cfg); err != nil {
		r.release()
		return nil, err
	}
	run.SetState(models.RunRunning)
	r.store.Put(run)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.release()
		defer run.MarkFinished()

		if _, err := collector.Drive(r.ctx, ctrl, drive, cfg); err != nil {
			slog.Error("run ended with error", "run", id, "error", err)
		}
		// A run cut short without an abort still reports its final state.
		run.SetState(ctrl.State())
		run.SetError(ctrl.Err())
	}()
	return run, nil
}

// Wait blocks until background runs have returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) release() {
	r.mu.Lock()
	r.active = ""
	r.mu.Unlock()
}

// randomID generates a short random hex string for run IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
