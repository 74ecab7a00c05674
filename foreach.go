package fanout

import "context"

// ForEach runs fn across workers slots as a one-shot round on a throwaway
// Dispatcher and blocks until the round completes. Callbacks derive their
// partition of the work from Invocation.Slot and Invocation.Workers; see
// SplitRange. Additional options configure the underlying Dispatcher.
func ForEach(ctx context.Context, workers int, fn Callback, opts ...Option) error {
	d, err := New(append([]Option{WithWorkers(workers)}, opts...)...)
	if err != nil {
		return err
	}
	if err = d.SetCallback(fn, nil); err != nil {
		return err
	}
	return d.Run(ctx)
}

// SplitRange partitions [0, n) into workers contiguous chunks and returns
// the half-open [lo, hi) owned by slot. Chunk sizes differ by at most one,
// earlier slots taking the remainder; when n < workers the trailing slots
// own empty ranges. Out-of-range arguments yield the empty range.
func SplitRange(n, slot, workers int) (lo, hi int) {
	if n <= 0 || workers < 1 || slot < 0 || slot >= workers {
		return 0, 0
	}
	size := n / workers
	rem := n % workers
	lo = slot*size + min(slot, rem)
	hi = lo + size
	if slot < rem {
		hi++
	}
	return lo, hi
}
