// Package backend abstracts how worker entry points become running workers.
// The dispatcher drives any Backend implementation; the package ships a
// goroutine-based backend for normal use and a serial one for strictly
// single-threaded execution.
package backend

import (
	"errors"
	"sync/atomic"
)

// Errors reported for misuse of a Handle. They indicate a bookkeeping defect
// in the caller rather than a transient condition.
var (
	// ErrInvalidHandle is returned by Join for a nil or zero Handle.
	ErrInvalidHandle = errors.New("backend: join on invalid handle")

	// ErrAlreadyJoined is returned by Join when the Handle has been joined
	// before. Exactly one Join call may succeed per Handle.
	ErrAlreadyJoined = errors.New("backend: handle already joined")
)

// A Handle identifies one spawned worker until it is joined. Handles are
// single use and must not be copied.
type Handle struct {
	done   <-chan struct{}
	joined atomic.Bool
}

// Backend starts worker entry points and waits for them to finish.
//
// Spawn runs fn as a new worker and returns a Handle for it. It reports an
// error only when the runtime cannot host another worker; fn is not invoked
// in that case. Join blocks until the worker behind h has returned; a
// successful Join is a synchronization point, so everything the worker wrote
// is visible to the joiner afterwards. Concurrency reports the parallelism
// the backend offers and seeds worker count defaults.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// Spawn starts fn as a new worker.
	Spawn(fn func()) (*Handle, error)

	// Join waits for the worker behind h to finish.
	Join(h *Handle) error

	// Concurrency reports how many workers the backend can usefully run at
	// once.
	Concurrency() int
}

// Inline is implemented by backends that execute entry points during Spawn
// instead of concurrently. Long-lived workers cannot be hosted on such a
// backend.
type Inline interface {
	Inline() bool
}

// join consumes h exactly once. Shared by the shipped backends.
func join(h *Handle) error {
	if h == nil || h.done == nil {
		return ErrInvalidHandle
	}
	if !h.joined.CompareAndSwap(false, true) {
		return ErrAlreadyJoined
	}
	<-h.done
	return nil
}
