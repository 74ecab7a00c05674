package backend

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoroutine_SpawnJoin_RunsConcurrently(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var ran atomic.Bool

	h, err := Goroutine{}.Spawn(func() {
		<-release
		ran.Store(true)
	})
	if err != nil {
		t.Fatalf("Spawn error = %v, want nil", err)
	}

	// Spawn must return while the worker is still blocked.
	if ran.Load() {
		t.Fatalf("worker finished before being released")
	}

	close(release)
	if err := (Goroutine{}).Join(h); err != nil {
		t.Fatalf("Join error = %v, want nil", err)
	}
	if !ran.Load() {
		t.Fatalf("worker effects not visible after Join")
	}
}

func TestGoroutine_Join_SecondCallFails(t *testing.T) {
	t.Parallel()

	h, err := Goroutine{}.Spawn(func() {})
	if err != nil {
		t.Fatalf("Spawn error = %v, want nil", err)
	}
	if err := (Goroutine{}).Join(h); err != nil {
		t.Fatalf("first Join error = %v, want nil", err)
	}
	if err := (Goroutine{}).Join(h); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("second Join error = %v, want ErrAlreadyJoined", err)
	}
}

func TestGoroutine_Join_InvalidHandle(t *testing.T) {
	t.Parallel()

	for _, h := range []*Handle{nil, {}} {
		if err := (Goroutine{}).Join(h); !errors.Is(err, ErrInvalidHandle) {
			t.Fatalf("Join(%v) error = %v, want ErrInvalidHandle", h, err)
		}
	}
}

func TestGoroutine_Join_BlocksUntilWorkerReturns(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	h, _ := Goroutine{}.Spawn(func() { <-release })

	joined := make(chan error, 1)
	go func() { joined <- Goroutine{}.Join(h) }()

	select {
	case err := <-joined:
		t.Fatalf("Join returned %v before the worker finished", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-joined:
		if err != nil {
			t.Fatalf("Join error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Join did not return after the worker finished")
	}
}

func TestSerial_Spawn_RunsInline(t *testing.T) {
	t.Parallel()

	ran := false
	h, err := Serial{}.Spawn(func() { ran = true })
	if err != nil {
		t.Fatalf("Spawn error = %v, want nil", err)
	}
	if !ran {
		t.Fatalf("entry point did not run during Spawn")
	}
	if err := (Serial{}).Join(h); err != nil {
		t.Fatalf("Join error = %v, want nil", err)
	}
	if err := (Serial{}).Join(h); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("second Join error = %v, want ErrAlreadyJoined", err)
	}
}

func TestConcurrency_Reported(t *testing.T) {
	t.Parallel()

	if n := (Goroutine{}).Concurrency(); n < 1 {
		t.Fatalf("Goroutine Concurrency = %d, want >= 1", n)
	}
	if n := (Serial{}).Concurrency(); n != 1 {
		t.Fatalf("Serial Concurrency = %d, want 1", n)
	}
	if !(Serial{}).Inline() {
		t.Fatalf("Serial must report Inline")
	}
}
