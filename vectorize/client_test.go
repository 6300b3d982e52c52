package vectorize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/corpus/models"
)

var errNoReceiver = errors.New("receiving end does not exist")

// scriptedService returns errs[i] on the i-th call, then vec.
type scriptedService struct {
	errs  []error
	vec   *models.FeatureVector
	calls int
}

func (s *scriptedService) VectorizeTab(_ context.Context, _, _ string) (*models.FeatureVector, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return nil, s.errs[s.calls-1]
	}
	return s.vec, nil
}

func failing(n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = errNoReceiver
	}
	return errs
}

type sleepRecorder struct {
	durations []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.durations = append(r.durations, d)
	return ctx.Err()
}

func cleanVector() *models.FeatureVector {
	return &models.FeatureVector{Nodes: []models.NodeFeatures{
		{Features: []models.Feature{models.Num(1), models.Num(0.5)}},
	}}
}

func TestMaxTries(t *testing.T) {
	if got := MaxTries(models.RunConfig{}); got != 1 {
		t.Errorf("MaxTries without retry = %d, want 1", got)
	}
	if got := MaxTries(models.RunConfig{RetryOnError: true}); got != 10 {
		t.Errorf("MaxTries with retry = %d, want 10", got)
	}
}

func TestRequest_AttemptBudget(t *testing.T) {
	tests := []struct {
		name      string
		retry     bool
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{"no retry, success", false, 0, 1, false},
		{"no retry, one failure", false, 1, 1, true},
		{"retry, success after 3 failures", true, 3, 4, false},
		{"retry, success on last attempt", true, 9, 10, false},
		{"retry, always failing", true, 20, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &scriptedService{errs: failing(tt.failures), vec: cleanVector()}
			rec := &sleepRecorder{}
			c := NewClient(svc, WithSleep(rec.sleep))

			vec, err := c.Request(context.Background(), "tab-1", "trainee", models.RunConfig{RetryOnError: tt.retry})
			if svc.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", svc.calls, tt.wantCalls)
			}
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !models.HasCode(err, models.ErrCodeTransport) {
					t.Errorf("error code: got %v, want %s", err, models.ErrCodeTransport)
				}
				if !errors.Is(err, errNoReceiver) {
					t.Errorf("last transport error not wrapped: %v", err)
				}
				if vec != nil {
					t.Errorf("vector should be nil on failure, got %+v", vec)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if vec == nil {
				t.Fatal("expected vector, got nil")
			}
		})
	}
}

func TestRequest_SleepSchedule(t *testing.T) {
	svc := &scriptedService{errs: failing(10)}
	rec := &sleepRecorder{}
	c := NewClient(svc, WithSleep(rec.sleep))

	cfg := models.RunConfig{RetryOnError: true, WaitMs: 250}
	if _, err := c.Request(context.Background(), "tab-1", "trainee", cfg); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}

	// Each attempt waits 250ms first; each failed non-final attempt backs off 1s.
	var waits, backoffs int
	for _, d := range rec.durations {
		switch d {
		case 250 * time.Millisecond:
			waits++
		case DefaultBackoff:
			backoffs++
		default:
			t.Errorf("unexpected sleep duration %v", d)
		}
	}
	if waits != 10 {
		t.Errorf("settle waits = %d, want 10", waits)
	}
	if backoffs != 9 {
		t.Errorf("backoffs = %d, want 9", backoffs)
	}
	if len(rec.durations) != 19 {
		t.Errorf("total sleeps = %d, want 19", len(rec.durations))
	}
}

func TestRequest_SuccessReturnsImmediately(t *testing.T) {
	svc := &scriptedService{vec: cleanVector()}
	rec := &sleepRecorder{}
	c := NewClient(svc, WithSleep(rec.sleep), WithBackoff(time.Minute))

	if _, err := c.Request(context.Background(), "tab-1", "trainee", models.RunConfig{RetryOnError: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.durations) != 1 {
		t.Errorf("sleeps = %v, want only the settle delay", rec.durations)
	}
}

func TestRequest_NullVectorNotRetried(t *testing.T) {
	vec := &models.FeatureVector{Nodes: []models.NodeFeatures{
		{Features: []models.Feature{models.Num(1), models.Null()}},
	}}
	svc := &scriptedService{vec: vec}
	c := NewClient(svc, WithSleep((&sleepRecorder{}).sleep))

	got, err := c.Request(context.Background(), "tab-1", "trainee", models.RunConfig{RetryOnError: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != vec {
		t.Error("vector with missing features should be returned as-is")
	}
	if svc.calls != 1 {
		t.Errorf("calls = %d, want 1", svc.calls)
	}
}

func TestRequest_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := &scriptedService{vec: cleanVector()}
	c := NewClient(svc, WithSleep((&sleepRecorder{}).sleep))

	_, err := c.Request(ctx, "tab-1", "trainee", models.RunConfig{RetryOnError: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if models.HasCode(err, models.ErrCodeTransport) {
		t.Error("cancellation must not be reported as a transport failure")
	}
	if svc.calls != 0 {
		t.Errorf("calls = %d, want 0", svc.calls)
	}
}

func TestRequest_ServiceReturnsContextError(t *testing.T) {
	svc := &scriptedService{errs: []error{context.DeadlineExceeded}}
	c := NewClient(svc, WithSleep((&sleepRecorder{}).sleep))

	_, err := c.Request(context.Background(), "tab-1", "trainee", models.RunConfig{RetryOnError: true})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if svc.calls != 1 {
		t.Errorf("context errors must not be retried, calls = %d", svc.calls)
	}
}

func TestSleep_ZeroDuration(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) = %v, want nil", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep on canceled ctx = %v, want context.Canceled", err)
	}
}
