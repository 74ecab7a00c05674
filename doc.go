// Package fanout executes one callback concurrently across a fixed set of
// worker slots and reduces the per-slot outcomes to a single deterministic
// result.
//
// Rounds
// A Dispatcher runs rounds. At round start the requested worker count is
// clamped by the process-wide maximum, workers for slots 1..n-1 are spawned
// through the configured backend, slot 0 executes on the goroutine that
// called Run, and every spawned worker is joined in slot order before Run
// returns. There is no task queue and no dynamic submission: the slot
// assignment is fixed when the round starts.
//
// Outcomes
// Each slot finishes Success, Failed, or Aborted. A failed round yields one
// *RoundError whose detail is the first non-empty failure detail in slot
// order, independent of completion timing. When slot 0 finishes Aborted, its
// error is returned verbatim so abort handling composes with errors.Is.
//
// Cooperative abort
// RequestAbort (or Invocation.Abort from inside a callback) latches the
// round's cancellation flag. Callbacks poll Invocation.Aborted and return
// ErrAborted; no worker is ever terminated forcibly.
//
// Defaults
// Unless overridden, the following defaults apply to a newly created
// Dispatcher:
//   - Workers: the FANOUT_WORKERS environment variable when set, else the
//     backend's hardware concurrency, clamped into [1, HardLimit]
//   - Backend: backend.Goroutine{} (one goroutine per worker)
//   - Logger: zap.NewNop()
//   - Metrics: metrics.NewNoopProvider()
//   - Tracing: disabled
//
// Backends
//   - backend.Goroutine (default): every worker runs on its own goroutine.
//   - backend.Serial: slots execute inline one after another, for strictly
//     single-threaded environments and deterministic tests.
package fanout
