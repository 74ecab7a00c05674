package fanout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStatus_String(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status Status
		want   string
	}{
		{StatusPending, "Pending"},
		{StatusSuccess, "Success"},
		{StatusFailed, "Failed"},
		{StatusAborted, "Aborted"},
		{Status(42), "invalid status: 42"},
	}
	for _, tc := range cases {
		if got := tc.status.String(); got != tc.want {
			t.Fatalf("Status(%d).String() = %q; want %q", int(tc.status), got, tc.want)
		}
	}
}

func TestRunSlot_OutcomeMapping(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name       string
		fn         Callback
		wantStatus Status
		wantDetail string
	}

	tests := []testCase{
		{
			name:       "nil error -> Success",
			fn:         func(context.Context, Invocation) error { return nil },
			wantStatus: StatusSuccess,
			wantDetail: "",
		},
		{
			name:       "bare ErrAborted -> Aborted, no detail",
			fn:         func(context.Context, Invocation) error { return ErrAborted },
			wantStatus: StatusAborted,
			wantDetail: "",
		},
		{
			name: "wrapped ErrAborted -> Aborted",
			fn: func(context.Context, Invocation) error {
				return fmt.Errorf("stage drain: %w", ErrAborted)
			},
			wantStatus: StatusAborted,
			wantDetail: "",
		},
		{
			name:       "plain error -> Failed with message",
			fn:         func(context.Context, Invocation) error { return errors.New("boom") },
			wantStatus: StatusFailed,
			wantDetail: "boom",
		},
		{
			name:       "panic -> Failed with panic detail",
			fn:         func(context.Context, Invocation) error { panic("kaboom") },
			wantStatus: StatusFailed,
			wantDetail: "panic: kaboom",
		},
	}

	d, err := New(WithWorkers(1))
	if err != nil {
		t.Fatalf("New error = %v, want nil", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &slot{id: 0, fn: tt.fn}
			d.runSlot(context.Background(), s, 1, NewFlag())

			if s.status != tt.wantStatus {
				t.Fatalf("status = %v; want %v", s.status, tt.wantStatus)
			}
			if s.detail != tt.wantDetail {
				t.Fatalf("detail = %q; want %q", s.detail, tt.wantDetail)
			}
			if tt.wantStatus == StatusSuccess && s.err != nil {
				t.Fatalf("err = %v; want nil for Success", s.err)
			}
			if tt.wantStatus != StatusSuccess && s.err == nil {
				t.Fatalf("err = nil; want non-nil for %v", tt.wantStatus)
			}
		})
	}
}

func TestRunSlot_PanicErrorCarriesStack(t *testing.T) {
	t.Parallel()

	d, err := New(WithWorkers(1))
	if err != nil {
		t.Fatalf("New error = %v, want nil", err)
	}

	s := &slot{id: 0, fn: func(context.Context, Invocation) error { panic(errors.New("wrapped defect")) }}
	d.runSlot(context.Background(), s, 1, NewFlag())

	var pe *PanicError
	if !errors.As(s.err, &pe) {
		t.Fatalf("slot err = %T; want *PanicError", s.err)
	}
	if len(pe.Stack) == 0 {
		t.Fatalf("expected captured stack")
	}
	if !strings.Contains(string(pe.Stack), "goroutine") {
		t.Fatalf("stack does not look like a goroutine dump: %q", pe.Stack[:min(len(pe.Stack), 40)])
	}
	// Panic values that are errors stay reachable through the chain.
	if !strings.Contains(pe.Error(), "wrapped defect") {
		t.Fatalf("PanicError message = %q; want it to contain the panic value", pe.Error())
	}
	if pe.Unwrap() == nil {
		t.Fatalf("PanicError.Unwrap = nil; want the panicked error")
	}
}

func TestPanicError_UnwrapNonError(t *testing.T) {
	t.Parallel()

	pe := &PanicError{Value: "just a string"}
	if pe.Unwrap() != nil {
		t.Fatalf("Unwrap of non-error panic value = %v; want nil", pe.Unwrap())
	}
	if got, want := pe.Error(), "panic: just a string"; got != want {
		t.Fatalf("Error() = %q; want %q", got, want)
	}
}

func TestRoundError_Message(t *testing.T) {
	t.Parallel()

	withDetail := &RoundError{Slot: 2, Failures: 2, Workers: 5, Detail: "sector checksum mismatch"}
	want := "fanout: round failed: 2 of 5 slots did not succeed; slot 2: sector checksum mismatch"
	if got := withDetail.Error(); got != want {
		t.Fatalf("Error() = %q; want %q", got, want)
	}

	noDetail := &RoundError{Slot: -1, Failures: 1, Workers: 3}
	want = "fanout: round failed: 1 of 3 slots did not succeed"
	if got := noDetail.Error(); got != want {
		t.Fatalf("Error() = %q; want %q", got, want)
	}
}

func TestInvocation_AbortedSources(t *testing.T) {
	t.Parallel()

	// Zero Invocation: no flag, no context.
	var zero Invocation
	if zero.Aborted() {
		t.Fatalf("zero Invocation reports Aborted")
	}
	zero.Abort() // must not panic

	// Flag source.
	f := NewFlag()
	inv := Invocation{flag: f, ctx: context.Background()}
	if inv.Aborted() {
		t.Fatalf("Aborted = true before Set")
	}
	f.Set()
	if !inv.Aborted() {
		t.Fatalf("Aborted = false after flag Set")
	}

	// Context source.
	ctx, cancel := context.WithCancel(context.Background())
	inv = Invocation{flag: NewFlag(), ctx: ctx}
	if inv.Aborted() {
		t.Fatalf("Aborted = true before cancel")
	}
	cancel()
	if !inv.Aborted() {
		t.Fatalf("Aborted = false after context cancel")
	}
}
