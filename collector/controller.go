// Package collector runs one corpus-collection session: it sequences pages
// through the vectorization client, decides between page-level and run-level
// failure, and hands the assembled report to a sink.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/corpus/models"
	"github.com/use-agent/corpus/vectorize"
)

// Status messages of the terminal page records.
const (
	MsgVectorized = "vectorized"
	msgFailed     = "failed: "
)

// TraineeLoader resolves a trainee id at run start.
type TraineeLoader interface {
	Trainee(ctx context.Context, traineeID string) (*models.Trainee, error)
}

// Requester produces the vector of one loaded page.
type Requester interface {
	Request(ctx context.Context, tabID, traineeID string, cfg models.RunConfig) (*models.FeatureVector, error)
}

// Sink receives the finished report.
type Sink interface {
	Deliver(ctx context.Context, report *models.CorpusReport) error
}

// Controller owns a single run. Pages are fed to it one at a time by a
// harness; it is not safe for concurrent use and must not be reused for a
// second run.
type Controller struct {
	loader TraineeLoader
	client Requester
	status StatusChannel
	sink   Sink
	agg    Aggregator

	state        models.RunState
	cfg          models.RunConfig
	trainee      *models.Trainee
	featureNames []string
	finalized    map[int]bool
	stop         chan struct{}
	err          *models.CollectError
}

// NewController wires a Controller. sink may be nil when the caller only
// wants the report returned from Finish.
func NewController(loader TraineeLoader, client Requester, status StatusChannel, sink Sink) *Controller {
	if status == nil {
		status = FuncChannel{}
	}
	return &Controller{
		loader:    loader,
		client:    client,
		status:    status,
		sink:      sink,
		state:     models.RunIdle,
		finalized: make(map[int]bool),
		stop:      make(chan struct{}),
	}
}

// Start validates cfg, loads the trainee and moves the run to Running.
// Any failure is a CONFIGURATION_ERROR and leaves the run Failed.
func (c *Controller) Start(ctx context.Context, cfg models.RunConfig) error {
	if c.state != models.RunIdle {
		return fmt.Errorf("collector: run already started (state %s)", c.state)
	}
	if err := cfg.Validate(); err != nil {
		c.state = models.RunFailed
		return err
	}

	c.agg.Reset()
	c.cfg = cfg

	trainee, err := c.loader.Trainee(ctx, cfg.TraineeID)
	if err != nil {
		c.state = models.RunFailed
		return models.NewCollectError(
			models.ErrCodeConfiguration,
			fmt.Sprintf("failed to load trainee %q", cfg.TraineeID),
			err,
		)
	}
	c.trainee = trainee
	c.featureNames = trainee.FeatureNames()
	c.state = models.RunRunning

	slog.Info("run started",
		"trainee", cfg.TraineeID,
		"pages", len(cfg.Pages),
		"features", len(c.featureNames),
		"retryOnError", cfg.RetryOnError,
		"waitMs", cfg.WaitMs,
	)
	return nil
}

// State is the current lifecycle state.
func (c *Controller) State() models.RunState { return c.state }

// Trainee is the trainee loaded at Start, or nil.
func (c *Controller) Trainee() *models.Trainee { return c.trainee }

// Err is the INTEGRITY_ERROR that aborted the run, or nil.
func (c *Controller) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err
}

// Recorded is the number of vectors accepted so far.
func (c *Controller) Recorded() int { return c.agg.Len() }

// Stopped is closed when the run aborts. A harness checks it between pages
// and issues no further pages once it is closed.
func (c *Controller) Stopped() <-chan struct{} { return c.stop }

// Progress emits a non-final status for a page still in flight.
func (c *Controller) Progress(pageIndex int, message string) {
	if c.state != models.RunRunning || c.finalized[pageIndex] {
		return
	}
	c.status.Emit(models.PageStatus{PageIndex: pageIndex, Message: message})
}

// ProcessPage vectorizes the page loaded in tabID and applies the outcome.
func (c *Controller) ProcessPage(ctx context.Context, pageIndex int, tabID string) {
	if c.state != models.RunRunning {
		slog.Debug("page skipped, run not running", "page", pageIndex, "state", c.state)
		return
	}
	vec, err := c.client.Request(ctx, tabID, c.cfg.TraineeID, c.cfg)
	c.OnPageResult(pageIndex, vec, err)
}

// OnPageResult applies the outcome of one page: either a vector or the
// terminal failure that prevented one.
//
// A failed page gets an error status and the run moves on. A vector with
// missing features aborts the whole run, since a model cannot be trained on
// a feature matrix with gaps. Results arriving after an abort, and repeated
// results for a page that already has its final status, are dropped.
func (c *Controller) OnPageResult(pageIndex int, vec *models.FeatureVector, err error) {
	if c.state != models.RunRunning {
		slog.Debug("page result ignored", "page", pageIndex, "state", c.state)
		return
	}
	if c.finalized[pageIndex] {
		slog.Warn("duplicate page result ignored", "page", pageIndex)
		return
	}

	if err == nil && vec == nil {
		err = errors.New("no vector returned")
	}
	if err != nil {
		c.final(pageIndex, msgFailed+err.Error(), true)
		return
	}

	if nulls := vectorize.FindNullFeatures(vec, c.trainee); len(nulls) > 0 {
		c.err = models.NewCollectError(
			models.ErrCodeIntegrity,
			fmt.Sprintf("rule(s) %s returned null values", strings.Join(nulls, ",")),
			nil,
		)
		c.final(pageIndex, msgFailed+c.err.Message, true)
		c.abort(pageIndex, nulls)
		return
	}

	c.agg.Record(vec)
	c.final(pageIndex, MsgVectorized, false)
}

// Finish completes the run (unless it aborted), builds the report and
// delivers it to the sink. The report is returned even if delivery fails.
func (c *Controller) Finish(ctx context.Context) (*models.CorpusReport, error) {
	switch c.state {
	case models.RunRunning:
		c.state = models.RunCompleted
		c.status.EmitDone(true)
	case models.RunAborted, models.RunCompleted:
	default:
		return nil, models.NewCollectError(models.ErrCodeConfiguration, "run was never started", nil)
	}

	report, err := c.agg.Build(c.featureNames)
	if err != nil {
		return nil, err
	}
	slog.Info("run finished",
		"state", c.state,
		"pages", len(report.Pages),
		"total", len(c.cfg.Pages),
	)

	if c.sink != nil {
		if err := c.sink.Deliver(ctx, report); err != nil {
			return report, fmt.Errorf("deliver report: %w", err)
		}
	}
	return report, nil
}

func (c *Controller) final(pageIndex int, message string, isError bool) {
	c.finalized[pageIndex] = true
	c.status.Emit(models.PageStatus{
		PageIndex: pageIndex,
		Message:   message,
		IsError:   isError,
		IsFinal:   true,
	})
}

func (c *Controller) abort(pageIndex int, nulls []string) {
	c.state = models.RunAborted
	close(c.stop)
	slog.Error("run aborted on incomplete feature vector",
		"page", pageIndex,
		"features", nulls,
		"recorded", c.agg.Len(),
	)
	c.status.EmitDone(false)
}
