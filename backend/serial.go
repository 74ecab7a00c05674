package backend

// Serial executes entry points inline: by the time Spawn returns, the worker
// has already finished, and Join only consumes the handle. It keeps
// dispatcher semantics intact in environments that must stay single-threaded
// and makes interleavings deterministic in tests.
type Serial struct{}

var (
	_ Backend = Serial{}
	_ Inline  = Serial{}
)

// Spawn runs fn to completion on the calling goroutine and returns an
// already-finished Handle.
func (Serial) Spawn(fn func()) (*Handle, error) {
	fn()
	done := make(chan struct{})
	close(done)
	return &Handle{done: done}, nil
}

// Join consumes h. The worker finished during Spawn, so Join never blocks.
func (Serial) Join(h *Handle) error { return join(h) }

// Concurrency reports 1.
func (Serial) Concurrency() int { return 1 }

// Inline reports true: entry points run during Spawn.
func (Serial) Inline() bool { return true }
