package collector

import (
	"context"
	"errors"
	"log/slog"

	"github.com/use-agent/corpus/models"
)

// DriverFunc visits the pages of a started run and feeds each one to the
// controller. It must return once ctrl.Stopped() is closed.
type DriverFunc func(ctx context.Context, ctrl *Controller, cfg models.RunConfig) error

// Collect runs a whole session: Start, drive every page, Finish.
//
// If the driver fails part way (browser gone, ctx canceled) the pages
// already vectorized are still built into a report and delivered, and the
// driver's error is returned alongside it. An aborted run likewise returns
// its report together with the INTEGRITY_ERROR that stopped it.
func Collect(ctx context.Context, ctrl *Controller, drive DriverFunc, cfg models.RunConfig) (*models.CorpusReport, error) {
	if err := ctrl.Start(ctx, cfg); err != nil {
		return nil, err
	}
	return Drive(ctx, ctrl, drive, cfg)
}

// Drive is Collect for a controller that was already started.
func Drive(ctx context.Context, ctrl *Controller, drive DriverFunc, cfg models.RunConfig) (*models.CorpusReport, error) {
	driveErr := drive(ctx, ctrl, cfg)
	if driveErr != nil {
		slog.Warn("page driver stopped early", "error", driveErr, "recorded", ctrl.Recorded())
	}

	report, err := ctrl.Finish(context.WithoutCancel(ctx))
	return report, errors.Join(ctrl.Err(), driveErr, err)
}
