package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/corpus/collector"
	"github.com/use-agent/corpus/config"
	"github.com/use-agent/corpus/models"
	"github.com/use-agent/corpus/store"
)

type loader struct{ err error }

func (l loader) Trainee(_ context.Context, id string) (*models.Trainee, error) {
	if l.err != nil {
		return nil, l.err
	}
	return models.NewTrainee(id, models.Coeff{Name: "a", Weight: 1}), nil
}

type requester struct{}

func (requester) Request(context.Context, string, string, models.RunConfig) (*models.FeatureVector, error) {
	return &models.FeatureVector{Nodes: []models.NodeFeatures{{Features: []models.Feature{models.Num(1)}}}}, nil
}

// gatedFactory builds sessions whose driver waits for release before
// processing every page.
func gatedFactory(l loader, release <-chan struct{}) Factory {
	return func(status collector.StatusChannel, sink collector.Sink) (*collector.Controller, collector.DriverFunc) {
		ctrl := collector.NewController(l, requester{}, status, sink)
		drive := func(ctx context.Context, ctrl *collector.Controller, cfg models.RunConfig) error {
			select {
			case <-release:
			case <-ctx.Done():
				return ctx.Err()
			}
			for i, p := range cfg.Pages {
				ctrl.ProcessPage(ctx, i, p.URL)
			}
			return nil
		}
		return ctrl, drive
	}
}

func validConfig() models.RunConfig {
	return models.RunConfig{
		TraineeID: "article",
		Pages:     []models.PageDescriptor{{URL: "http://a"}, {URL: "http://b"}},
	}
}

func TestSubmit_RunsToCompletion(t *testing.T) {
	st := store.New(10, time.Hour)
	defer st.Stop()
	release := make(chan struct{})
	rn := New(context.Background(), st, gatedFactory(loader{}, release), config.WebhookConfig{})

	run, err := rn.Submit(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rn.Active() != run.ID {
		t.Errorf("Active = %q, want %q", rn.Active(), run.ID)
	}
	if _, ok := st.Get(run.ID); !ok {
		t.Error("run not stored")
	}

	if _, err := rn.Submit(context.Background(), validConfig()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Submit = %v, want ErrBusy", err)
	}

	close(release)
	rn.Wait()
	<-run.Done()

	snap := run.Snapshot()
	if snap.Status != models.RunCompleted {
		t.Errorf("status = %s, want completed", snap.Status)
	}
	if snap.Completed != 2 {
		t.Errorf("completed = %d, want 2", snap.Completed)
	}
	if snap.Success == nil || !*snap.Success {
		t.Errorf("success = %v", snap.Success)
	}
	if run.Report() == nil {
		t.Error("report not kept")
	}
	if rn.Active() != "" {
		t.Errorf("Active after completion = %q", rn.Active())
	}
}

func TestSubmit_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		l    loader
		cfg  models.RunConfig
	}{
		{"no pages", loader{}, models.RunConfig{TraineeID: "article"}},
		{"trainee lookup fails", loader{err: errors.New("unknown trainee")}, validConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.New(10, time.Hour)
			defer st.Stop()
			rn := New(context.Background(), st, gatedFactory(tt.l, nil), config.WebhookConfig{})

			run, err := rn.Submit(context.Background(), tt.cfg)
			if !models.HasCode(err, models.ErrCodeConfiguration) {
				t.Fatalf("err = %v, want %s", err, models.ErrCodeConfiguration)
			}
			if run != nil || st.Len() != 0 {
				t.Error("a run was created for an invalid config")
			}
			if rn.Active() != "" {
				t.Errorf("runner left busy: %q", rn.Active())
			}
		})
	}
}

func TestSubmit_CanceledRunStillReports(t *testing.T) {
	st := store.New(10, time.Hour)
	defer st.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	rn := New(ctx, st, gatedFactory(loader{}, make(chan struct{})), config.WebhookConfig{})

	run, err := rn.Submit(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancel()
	rn.Wait()

	if run.Report() == nil {
		t.Error("no report after cancellation")
	}
	if rn.Active() != "" {
		t.Error("runner still busy")
	}
}
