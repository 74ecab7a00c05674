package fanout

import (
	"sync"
	"testing"
)

func TestFlag_SetLatches(t *testing.T) {
	t.Parallel()

	f := NewFlag()
	if f.IsSet() {
		t.Fatalf("fresh flag reports set")
	}
	f.Set()
	f.Set() // repeated Set is harmless
	if !f.IsSet() {
		t.Fatalf("flag does not latch after Set")
	}
}

func TestFlag_ConcurrentSetAndRead(t *testing.T) {
	t.Parallel()

	f := NewFlag()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(set bool) {
			defer wg.Done()
			if set {
				f.Set()
			} else {
				_ = f.IsSet()
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if !f.IsSet() {
		t.Fatalf("flag unset after concurrent setters finished")
	}
}
