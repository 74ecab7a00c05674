package backend

import "runtime"

// Goroutine is the default Backend: every worker runs on its own goroutine.
// The zero value is ready to use.
type Goroutine struct{}

var _ Backend = Goroutine{}

// Spawn starts fn on a new goroutine. It never fails.
func (Goroutine) Spawn(fn func()) (*Handle, error) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	return &Handle{done: done}, nil
}

// Join blocks until the worker behind h returns.
func (Goroutine) Join(h *Handle) error { return join(h) }

// Concurrency reports the number of usable CPUs.
func (Goroutine) Concurrency() int { return runtime.NumCPU() }
