package fanout

import "sync/atomic"

// Flag is the cancellation cell shared by the workers of one round. Set
// latches it: once set it stays set for the lifetime of the round, and a
// fresh Flag is allocated per round, so a late Set can never leak into the
// next round. Detached workers own a private Flag each.
type Flag struct {
	v atomic.Bool
}

// NewFlag returns an unset Flag.
func NewFlag() *Flag { return &Flag{} }

// Set requests cooperative cancellation. Safe to call from any goroutine,
// any number of times.
func (f *Flag) Set() { f.v.Store(true) }

// IsSet reports whether cancellation has been requested.
func (f *Flag) IsSet() bool { return f.v.Load() }
