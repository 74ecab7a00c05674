package fanout

import (
	"errors"
	"fmt"
)

const Namespace = "fanout"

var (
	ErrNoCallback = errors.New(Namespace + ": no callback configured for the round")
	ErrRoundActive = errors.New(
		Namespace + ": cannot reconfigure or start a dispatcher while its round is in flight",
	)
	ErrSlotOutOfRange = errors.New(Namespace + ": slot index outside the effective worker count")
	ErrAborted        = errors.New(Namespace + ": round aborted")
	ErrInvalidConfig  = errors.New(Namespace + ": invalid configuration")
)

// RoundError is the aggregated outcome of a failed round. At most one is
// produced per round. Detail is the first non-empty failure detail in slot
// order, so the reported message does not depend on completion timing.
type RoundError struct {
	// Slot owning Detail, or -1 when no failed slot recorded one.
	Slot int

	// Failures counts the slots that did not finish Success.
	Failures int

	// Workers is the effective worker count of the round.
	Workers int

	// Detail is the winning failure detail, empty when none was recorded.
	Detail string

	cause error
}

func (e *RoundError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: round failed: %d of %d slots did not succeed",
			Namespace, e.Failures, e.Workers)
	}
	return fmt.Sprintf("%s: round failed: %d of %d slots did not succeed; slot %d: %s",
		Namespace, e.Failures, e.Workers, e.Slot, e.Detail)
}

// Unwrap returns the error captured behind Detail, if any.
func (e *RoundError) Unwrap() error { return e.cause }

// PanicError carries a panic recovered at a worker boundary, together with
// the stack captured at the point of recovery.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
