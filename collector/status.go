package collector

import (
	"log/slog"

	"github.com/use-agent/corpus/models"
)

// StatusChannel receives per-page progress and the run's terminal signal.
// Delivery is fire-and-forget: implementations must not block the run and
// nothing is retried on the caller's side.
type StatusChannel interface {
	Emit(status models.PageStatus)
	EmitDone(success bool)
}

// LogChannel writes statuses to the default slog logger.
type LogChannel struct {
	RunID string
}

// Emit logs s, at warn level for errors.
func (l LogChannel) Emit(s models.PageStatus) {
	attrs := []any{
		"run", l.RunID,
		"page", s.PageIndex,
		"message", s.Message,
		"final", s.IsFinal,
	}
	if s.IsError {
		slog.Warn("page status", attrs...)
		return
	}
	slog.Info("page status", attrs...)
}

func (l LogChannel) EmitDone(success bool) {
	slog.Info("run done", "run", l.RunID, "success", success)
}

// FuncChannel adapts plain functions. Nil fields are skipped.
type FuncChannel struct {
	OnStatus func(models.PageStatus)
	OnDone   func(success bool)
}

// Emit calls OnStatus.
func (f FuncChannel) Emit(s models.PageStatus) {
	if f.OnStatus != nil {
		f.OnStatus(s)
	}
}

// EmitDone calls OnDone.
func (f FuncChannel) EmitDone(success bool) {
	if f.OnDone != nil {
		f.OnDone(success)
	}
}

// MultiChannel fans out to every channel in order.
type MultiChannel []StatusChannel

// Emit hands s to each channel in slice order, synchronously. Channels that
// deliver asynchronously may still reorder on their side.
func (m MultiChannel) Emit(s models.PageStatus) {
	for _, ch := range m {
		ch.Emit(s)
	}
}

func (m MultiChannel) EmitDone(success bool) {
	for _, ch := range m {
		ch.EmitDone(success)
	}
}
