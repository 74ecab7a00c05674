package fanout

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"

	"github.com/rastermill/fanout/backend"
)

// Detached is one long-lived worker running outside any round, produced by
// Dispatcher.Detach. It owns a private cancellation Flag; Stop sets the flag
// and joins the worker.
type Detached struct {
	id      int
	flag    *Flag
	handle  *backend.Handle
	backend backend.Backend
	logger  *zap.Logger

	stopOnce sync.Once
	stopErr  error
}

// Detach starts fn as a detached worker, outside any round. fn receives an
// Invocation with a process-unique sequential Slot, Workers fixed at 1, and
// the supplied data; long-running callbacks are expected to poll Aborted and
// return once Stop has been called. A detached worker never participates in
// round aggregation: a failure outcome is only logged.
//
// Backends that execute entry points inline cannot host detached workers and
// are rejected.
func (d *Dispatcher) Detach(ctx context.Context, fn Callback, data any) (*Detached, error) {
	if fn == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("", "Detach requires a non-nil callback"))
	}
	if il, ok := d.backend.(backend.Inline); ok && il.Inline() {
		return nil, errorc.With(ErrInvalidConfig,
			errorc.String("", "cannot detach a worker on an inline backend"))
	}

	w := &Detached{
		id:      int(d.detachSeq.Add(1) - 1),
		flag:    NewFlag(),
		backend: d.backend,
		logger:  d.logger,
	}
	h, err := d.backend.Spawn(func() { w.run(ctx, fn, data) })
	if err != nil {
		// No slot record exists to capture a detached spawn failure.
		return nil, err
	}
	w.handle = h
	d.logger.Debug("detached worker started", zap.Int("worker", w.id))
	return w, nil
}

func (w *Detached) run(ctx context.Context, fn Callback, data any) {
	defer func() {
		if r := recover(); r != nil {
			perr := &PanicError{Value: r, Stack: debug.Stack()}
			w.logger.Error("detached callback panicked",
				zap.Int("worker", w.id),
				zap.Any("panic", r),
				zap.ByteString("stack", perr.Stack),
			)
		}
	}()

	err := fn(ctx, Invocation{
		Slot:    w.id,
		Workers: 1,
		Data:    data,
		flag:    w.flag,
		ctx:     ctx,
	})
	switch {
	case err == nil || errors.Is(err, ErrAborted):
		w.logger.Debug("detached worker finished", zap.Int("worker", w.id))
	default:
		w.logger.Warn("detached worker failed", zap.Int("worker", w.id), zap.Error(err))
	}
}

// Stop requests cooperative cancellation and blocks until the worker has
// returned. It is idempotent: concurrent and repeated calls all report the
// join outcome of the single underlying worker.
func (w *Detached) Stop() error {
	w.flag.Set()
	w.stopOnce.Do(func() {
		w.stopErr = w.backend.Join(w.handle)
	})
	return w.stopErr
}
