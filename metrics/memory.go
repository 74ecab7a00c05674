package metrics

import (
	"math"
	"sync"
	"sync/atomic"
)

// MemoryProvider is a simple in-memory implementation of Provider.
// It is concurrency-safe and suitable for tests, examples, and lightweight
// embedding. Instruments are created on demand by name and reused for the
// same name. Instrument options are advisory and stored for introspection.
type MemoryProvider struct {
	mu         sync.RWMutex
	counters   map[string]*MemoryCounter
	updowns    map[string]*MemoryUpDownCounter
	histograms map[string]*MemoryHistogram
	meta       map[string]InstrumentConfig
}

// NewMemoryProvider constructs a new MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		counters:   make(map[string]*MemoryCounter),
		updowns:    make(map[string]*MemoryUpDownCounter),
		histograms: make(map[string]*MemoryHistogram),
		meta:       make(map[string]InstrumentConfig),
	}
}

// Counter returns the monotonic counter for name, creating it once.
func (p *MemoryProvider) Counter(name string, opts ...InstrumentOption) Counter {
	p.mu.RLock()
	c, ok := p.counters[name]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// re-check after acquiring write lock
	if c, ok = p.counters[name]; ok {
		return c
	}
	p.meta[name] = applyOptions(opts)
	c = &MemoryCounter{}
	p.counters[name] = c
	return c
}

// UpDownCounter returns the up/down counter for name, creating it once.
func (p *MemoryProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	p.mu.RLock()
	u, ok := p.updowns[name]
	p.mu.RUnlock()
	if ok {
		return u
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok = p.updowns[name]; ok {
		return u
	}
	p.meta[name] = applyOptions(opts)
	u = &MemoryUpDownCounter{}
	p.updowns[name] = u
	return u
}

// Histogram returns the histogram for name, creating it once.
func (p *MemoryProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	p.mu.RLock()
	h, ok := p.histograms[name]
	p.mu.RUnlock()
	if ok {
		return h
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok = p.histograms[name]; ok {
		return h
	}
	p.meta[name] = applyOptions(opts)
	h = &MemoryHistogram{min: math.Inf(1), max: math.Inf(-1)}
	p.histograms[name] = h
	return h
}

// MemoryCounter is a thread-safe monotonic counter.
type MemoryCounter struct {
	val atomic.Int64
}

// Add increments the counter by n.
func (c *MemoryCounter) Add(n int64) { c.val.Add(n) }

// Snapshot returns the current value.
func (c *MemoryCounter) Snapshot() int64 { return c.val.Load() }

// MemoryUpDownCounter is a thread-safe up/down counter.
type MemoryUpDownCounter struct {
	val atomic.Int64
}

// Add adds n (positive or negative) to the current value.
func (u *MemoryUpDownCounter) Add(n int64) { u.val.Add(n) }

// Snapshot returns the current value.
func (u *MemoryUpDownCounter) Snapshot() int64 { return u.val.Load() }

// MemoryHistogram is a thread-safe histogram tracking count, sum, min, and
// max. It does not maintain buckets; it is a lightweight aggregator.
type MemoryHistogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

// Record adds a measurement to the histogram.
func (h *MemoryHistogram) Record(v float64) {
	h.mu.Lock()
	if h.count == 0 {
		// initialize min/max on first record
		h.min, h.max = v, v
	} else {
		if v < h.min {
			h.min = v
		}
		if v > h.max {
			h.max = v
		}
	}
	h.count++
	h.sum += v
	h.mu.Unlock()
}

// HistSnapshot is an immutable snapshot of a MemoryHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

// Snapshot returns a copy of the histogram state at the time of call.
func (h *MemoryHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	count := h.count
	sum := h.sum
	mn := h.min
	mx := h.max
	h.mu.Unlock()

	mean := 0.0
	if count > 0 {
		mean = sum / float64(count)
	}
	return HistSnapshot{Count: count, Sum: sum, Min: mn, Max: mx, Mean: mean}
}
