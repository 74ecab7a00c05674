package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PromProvider adapts a prometheus Registerer to the Provider interface.
// Counters map to prometheus counters, up/down counters to gauges, and
// histograms to prometheus histograms with default buckets. Instruments are
// registered on first use under the configured namespace and subsystem;
// instrument attributes become constant labels.
type PromProvider struct {
	namespace string
	subsystem string
	reg       prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewPromProvider constructs a Provider registering instruments with reg
// under namespace/subsystem. A nil reg selects the default registerer.
func NewPromProvider(namespace, subsystem string, reg prometheus.Registerer) *PromProvider {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PromProvider{
		namespace:  namespace,
		subsystem:  subsystem,
		reg:        reg,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Counter returns the prometheus-backed counter for name, registering it
// once.
func (p *PromProvider) Counter(name string, opts ...InstrumentOption) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		cfg := applyOptions(opts)
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   p.namespace,
			Subsystem:   p.subsystem,
			Name:        name,
			Help:        cfg.Description,
			ConstLabels: prometheus.Labels(cfg.Attributes),
		})
		p.reg.MustRegister(c)
		p.counters[name] = c
	}
	return promCounter{c}
}

// UpDownCounter returns the gauge-backed counter for name, registering it
// once.
func (p *PromProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.gauges[name]
	if !ok {
		cfg := applyOptions(opts)
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   p.namespace,
			Subsystem:   p.subsystem,
			Name:        name,
			Help:        cfg.Description,
			ConstLabels: prometheus.Labels(cfg.Attributes),
		})
		p.reg.MustRegister(g)
		p.gauges[name] = g
	}
	return promGauge{g}
}

// Histogram returns the prometheus-backed histogram for name, registering it
// once with default buckets.
func (p *PromProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histograms[name]
	if !ok {
		cfg := applyOptions(opts)
		h = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   p.namespace,
			Subsystem:   p.subsystem,
			Name:        name,
			Help:        cfg.Description,
			ConstLabels: prometheus.Labels(cfg.Attributes),
			Buckets:     prometheus.DefBuckets,
		})
		p.reg.MustRegister(h)
		p.histograms[name] = h
	}
	return promHistogram{h}
}

type promCounter struct{ c prometheus.Counter }

func (w promCounter) Add(n int64) {
	if n < 0 {
		return // prometheus counters reject negative increments
	}
	w.c.Add(float64(n))
}

type promGauge struct{ g prometheus.Gauge }

func (w promGauge) Add(n int64) { w.g.Add(float64(n)) }

type promHistogram struct{ h prometheus.Histogram }

func (w promHistogram) Record(v float64) { w.h.Observe(v) }
