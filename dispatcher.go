package fanout

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ygrebnov/errorc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rastermill/fanout/backend"
	"github.com/rastermill/fanout/metrics"
)

// Dispatcher fans one callback out across a fixed set of worker slots and
// reduces the per-slot outcomes to a single result. It runs rounds: the slot
// assignment is fixed when a round starts, slot 0 executes on the calling
// goroutine, and Run returns only after every worker of the round has been
// joined. There is no task queue and no dynamic submission.
//
// A Dispatcher is reusable across rounds but runs at most one round at a
// time. Configuration methods and Run belong to the owning goroutine;
// RequestAbort alone is safe to call concurrently with a round.
type Dispatcher struct {
	// noCopy prevents accidental copying of the dispatcher.
	//go:nocopy
	nc noCopy

	cfg config

	backend backend.Backend
	logger  *zap.Logger
	tracer  trace.Tracer
	inst    instruments

	// single-method round assignment
	single     Callback
	singleData any

	// per-slot assignments for multiple-method rounds
	perSlot []slotMethod

	// round gate; guarantees at most one round in flight
	running atomic.Bool

	// cancellation flag of the in-flight round, nil between rounds
	abort atomic.Pointer[Flag]

	// outcome records of the most recently completed round
	slots []slot

	// sequence counter for detached worker ids
	detachSeq atomic.Int64
}

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// slotMethod is one slot's callback assignment for multiple-method rounds.
type slotMethod struct {
	fn   Callback
	data any
}

// New creates a Dispatcher from options. Without options it uses the process
// default worker count, the goroutine backend, a no-op logger, and no
// tracing.
func New(opts ...Option) (*Dispatcher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaultWorkerCount(cfg.Backend)
	}

	return &Dispatcher{
		cfg:     cfg,
		backend: cfg.Backend,
		logger:  cfg.Logger,
		tracer:  cfg.Tracer,
		inst:    newInstruments(cfg.Metrics),
	}, nil
}

// SetWorkers sets the requested worker count for subsequent rounds, clamped
// into [1, HardLimit]. The effective count of a round is additionally capped
// by the process-wide maximum at round start.
func (d *Dispatcher) SetWorkers(n int) {
	d.cfg.Workers = clampWorkers(n)
}

// Workers reports the effective worker count a round started now would use:
// the requested count capped by the process-wide maximum.
func (d *Dispatcher) Workers() int { return d.effectiveWorkers() }

func (d *Dispatcher) effectiveWorkers() int {
	n := d.cfg.Workers
	if max := GlobalMaxWorkers(); n > max {
		n = max
	}
	return n
}

// SetCallback registers the callback every slot of subsequent single-method
// rounds executes, together with an opaque data value handed to each
// invocation. It fails with ErrRoundActive while a round is in flight.
func (d *Dispatcher) SetCallback(fn Callback, data any) error {
	if d.running.Load() {
		return ErrRoundActive
	}
	if fn == nil {
		return errorc.With(ErrInvalidConfig, errorc.String("", "SetCallback requires a non-nil callback"))
	}
	d.single = fn
	d.singleData = data
	return nil
}

// SetSlotCallback assigns a distinct callback to one slot for
// multiple-method rounds. The slot index is validated against the effective
// worker count, recomputed here the same way RunPerSlot recomputes it.
func (d *Dispatcher) SetSlotCallback(slot int, fn Callback, data any) error {
	if d.running.Load() {
		return ErrRoundActive
	}
	n := d.effectiveWorkers()
	if slot < 0 || slot >= n {
		return errorc.With(ErrSlotOutOfRange,
			errorc.String("slot", strconv.Itoa(slot)),
			errorc.String("workers", strconv.Itoa(n)),
		)
	}
	if fn == nil {
		return errorc.With(ErrInvalidConfig, errorc.String("", "SetSlotCallback requires a non-nil callback"))
	}
	if len(d.perSlot) < n {
		grown := make([]slotMethod, n)
		copy(grown, d.perSlot)
		d.perSlot = grown
	}
	d.perSlot[slot] = slotMethod{fn: fn, data: data}
	return nil
}

// RequestAbort sets the in-flight round's cancellation flag. Callbacks
// observe it through Invocation.Aborted and are expected to return
// ErrAborted at their next poll; no worker is terminated forcibly. Between
// rounds it is a no-op.
func (d *Dispatcher) RequestAbort() {
	if f := d.abort.Load(); f != nil {
		f.Set()
	}
}

// Statuses returns the per-slot exit statuses recorded by the most recently
// completed round, in slot order. Meaningful between rounds only.
func (d *Dispatcher) Statuses() []Status {
	out := make([]Status, len(d.slots))
	for i := range d.slots {
		out[i] = d.slots[i].status
	}
	return out
}

// Run executes one single-method round and blocks until every worker of the
// round has been joined. It returns nil when all slots finish Success, the
// slot 0 abort error verbatim when slot 0 finishes Aborted, and otherwise a
// single *RoundError chosen by slot order.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.single == nil {
		return ErrNoCallback
	}
	return d.round(ctx, "single", func(int) (Callback, any) {
		return d.single, d.singleData
	})
}

// RunPerSlot executes one multiple-method round using the callbacks assigned
// via SetSlotCallback. Every slot of the effective count must have an
// assignment; the first missing one is reported before any work starts.
func (d *Dispatcher) RunPerSlot(ctx context.Context) error {
	n := d.effectiveWorkers()
	for i := 0; i < n; i++ {
		if i >= len(d.perSlot) || d.perSlot[i].fn == nil {
			return errorc.With(ErrNoCallback, errorc.String("slot", strconv.Itoa(i)))
		}
	}
	return d.round(ctx, "per-slot", func(i int) (Callback, any) {
		return d.perSlot[i].fn, d.perSlot[i].data
	})
}

// round runs one complete round: gate, clamp, spawn, execute slot 0, join,
// aggregate, with logging, metrics, and optional tracing around the core.
func (d *Dispatcher) round(ctx context.Context, mode string, pick func(int) (Callback, any)) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrRoundActive
	}
	defer d.running.Store(false)

	n := d.effectiveWorkers()
	rid := uuid.New()

	var span trace.Span
	if d.tracer != nil {
		ctx, span = d.tracer.Start(ctx, "fanout.round",
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("fanout.round_id", rid.String()),
				attribute.String("fanout.mode", mode),
				attribute.Int("fanout.workers", n),
			),
		)
	}

	d.logger.Debug("round started",
		zap.String("round", rid.String()),
		zap.String("mode", mode),
		zap.Int("workers", n),
	)

	start := time.Now()
	err := d.execRound(ctx, rid, n, pick)
	elapsed := time.Since(start)

	d.inst.rounds.Add(1)
	d.inst.duration.Record(elapsed.Seconds())
	if err != nil {
		d.inst.failures.Add(1)
	}

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}

	if err != nil {
		d.logger.Warn("round failed",
			zap.String("round", rid.String()),
			zap.String("mode", mode),
			zap.Int("workers", n),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		d.logger.Debug("round completed",
			zap.String("round", rid.String()),
			zap.String("mode", mode),
			zap.Int("workers", n),
			zap.Duration("elapsed", elapsed),
		)
	}
	return err
}

func (d *Dispatcher) execRound(ctx context.Context, rid uuid.UUID, n int, pick func(int) (Callback, any)) error {
	flag := NewFlag()
	d.abort.Store(flag)
	defer d.abort.Store(nil)

	slots := make([]slot, n)
	for i := range slots {
		fn, data := pick(i)
		slots[i] = slot{id: i, fn: fn, data: data}
	}
	d.slots = slots

	// Spawn slots 1..n-1. A failed spawn is recorded on its slot and the
	// remaining slots are still spawned; workers already running are never
	// abandoned.
	handles := make([]*backend.Handle, n)
	for i := 1; i < n; i++ {
		s := &slots[i]
		h, err := d.backend.Spawn(func() {
			d.inst.active.Add(1)
			defer d.inst.active.Add(-1)
			d.runSlot(ctx, s, n, flag)
		})
		if err != nil {
			s.status = StatusFailed
			s.detail = err.Error()
			s.err = err
			d.logger.Warn("worker spawn failed",
				zap.String("round", rid.String()),
				zap.Int("slot", i),
				zap.Error(err),
			)
			continue
		}
		handles[i] = h
	}

	// Slot 0 runs here, on the calling goroutine. A round makes progress
	// even when no extra worker could be spawned.
	d.inst.active.Add(1)
	d.runSlot(ctx, &slots[0], n, flag)
	d.inst.active.Add(-1)

	// Slot 0 aborting wins over aggregation: make sure the flag is visible
	// to every worker, join whatever is running, and hand the abort back
	// untouched.
	if slots[0].status == StatusAborted {
		flag.Set()
		for i := 1; i < n; i++ {
			if handles[i] == nil {
				continue
			}
			if err := d.backend.Join(handles[i]); err != nil {
				d.logger.Warn("join during abort failed",
					zap.String("round", rid.String()),
					zap.Int("slot", i),
					zap.Error(err),
				)
			}
		}
		return slots[0].err
	}

	// Join in ascending slot order. Completion order does not matter; the
	// aggregation below depends only on slot order.
	for i := 1; i < n; i++ {
		if handles[i] == nil {
			continue
		}
		if err := d.backend.Join(handles[i]); err != nil {
			// Backend bookkeeping is broken; per-slot outcomes past this
			// point cannot be trusted.
			return errorc.With(err, errorc.String("slot", strconv.Itoa(i)))
		}
	}

	return d.aggregate(slots, n)
}

// aggregate reduces per-slot outcomes to the round result. The first
// non-empty failure detail in ascending slot order wins, so the reported
// error is identical across reruns regardless of which slot finished last.
func (d *Dispatcher) aggregate(slots []slot, n int) error {
	failed := 0
	detailSlot := -1
	detail := ""
	var cause error
	for i := range slots {
		if slots[i].status == StatusSuccess {
			continue
		}
		failed++
		if detail == "" && slots[i].detail != "" {
			detail = slots[i].detail
			detailSlot = i
			cause = slots[i].err
		}
	}
	if failed == 0 {
		return nil
	}
	d.inst.slotFails.Add(int64(failed))
	return &RoundError{
		Slot:     detailSlot,
		Failures: failed,
		Workers:  n,
		Detail:   detail,
		cause:    cause,
	}
}

// instruments groups the metric handles the dispatcher records into, bound
// once at construction.
type instruments struct {
	rounds    metrics.Counter
	failures  metrics.Counter
	slotFails metrics.Counter
	duration  metrics.Histogram
	active    metrics.UpDownCounter
}

func newInstruments(p metrics.Provider) instruments {
	return instruments{
		rounds: p.Counter("rounds_total",
			metrics.WithDescription("Completed rounds, including failed ones")),
		failures: p.Counter("round_failures_total",
			metrics.WithDescription("Rounds that finished with a non-nil error")),
		slotFails: p.Counter("slot_failures_total",
			metrics.WithDescription("Slots that did not finish Success")),
		duration: p.Histogram("round_duration_seconds",
			metrics.WithDescription("Wall time per round"),
			metrics.WithUnit("seconds")),
		active: p.UpDownCounter("workers_active",
			metrics.WithDescription("Workers currently executing slots")),
	}
}
