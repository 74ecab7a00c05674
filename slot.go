package fanout

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// Status is the exit status of one worker slot. A slot starts Pending and
// moves exactly once to a terminal state; after a round's final join no slot
// is ever observed Pending.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusFailed
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusSuccess:
		return "Success"
	case StatusFailed:
		return "Failed"
	case StatusAborted:
		return "Aborted"
	default:
		return fmt.Sprintf("invalid status: %d", int(s))
	}
}

// A Callback is the unit of work dispatched to every slot of a round. It
// receives the context passed to Run and the slot's Invocation. Returning nil
// marks the slot Success; returning ErrAborted, possibly wrapped, marks it
// Aborted; any other error marks it Failed with the error's message recorded
// as the slot's failure detail. Long-running callbacks should poll
// Invocation.Aborted at convenient points and return ErrAborted once it
// reports true.
type Callback func(ctx context.Context, inv Invocation) error

// Invocation is one slot's view of its round: the slot index, the effective
// worker count, and the caller-supplied opaque data. Callbacks typically
// derive their partition of the work from Slot and Workers, see SplitRange.
type Invocation struct {
	// Slot is this worker's index in [0, Workers). Slot 0 always runs on the
	// goroutine that started the round.
	Slot int

	// Workers is the effective worker count of the round.
	Workers int

	// Data is the value registered together with the callback. The
	// dispatcher never reads or mutates it.
	Data any

	flag *Flag
	ctx  context.Context
}

// Aborted reports whether cooperative cancellation has been requested, either
// through the round's shared Flag or by cancellation of the round context.
func (inv Invocation) Aborted() bool {
	if inv.flag != nil && inv.flag.IsSet() {
		return true
	}
	return inv.ctx != nil && inv.ctx.Err() != nil
}

// Abort requests cancellation of the whole round. Every slot polling Aborted
// observes it; no worker is ever terminated forcibly.
func (inv Invocation) Abort() {
	if inv.flag != nil {
		inv.flag.Set()
	}
}

// slot is the per-worker assignment and outcome record of one round. Outcome
// fields are written exactly once, by the owning worker or by the dispatcher
// when the worker could not be spawned, and read only after that worker's
// join.
type slot struct {
	id     int
	fn     Callback
	data   any
	status Status
	detail string
	err    error
}

// runSlot executes s's callback on the current goroutine and records the
// outcome. A panic is captured into a Failed status instead of crossing the
// worker boundary.
func (d *Dispatcher) runSlot(ctx context.Context, s *slot, workers int, abort *Flag) {
	defer func() {
		if r := recover(); r != nil {
			perr := &PanicError{Value: r, Stack: debug.Stack()}
			s.status = StatusFailed
			s.detail = perr.Error()
			s.err = perr
			d.logger.Error("callback panicked",
				zap.Int("slot", s.id),
				zap.Any("panic", r),
				zap.ByteString("stack", perr.Stack),
			)
		}
	}()

	err := s.fn(ctx, Invocation{
		Slot:    s.id,
		Workers: workers,
		Data:    s.data,
		flag:    abort,
		ctx:     ctx,
	})
	switch {
	case err == nil:
		s.status = StatusSuccess
	case errors.Is(err, ErrAborted):
		s.status = StatusAborted
		s.err = err
	default:
		s.status = StatusFailed
		s.detail = err.Error()
		s.err = err
	}
}
