package metrics

// NoopProvider returns no-op instruments. It is the dispatcher's default
// provider: all methods are safe for concurrent use and perform no work.
type NoopProvider struct{}

// NewNoopProvider constructs a Provider that discards all measurements.
func NewNoopProvider() NoopProvider { return NoopProvider{} }

func (NoopProvider) Counter(string, ...InstrumentOption) Counter { return noop{} }

func (NoopProvider) UpDownCounter(string, ...InstrumentOption) UpDownCounter { return noop{} }

func (NoopProvider) Histogram(string, ...InstrumentOption) Histogram { return noop{} }

// noop satisfies every instrument interface at once; one value serves all
// three since none of them retain state.
type noop struct{}

func (noop) Add(int64) {}

func (noop) Record(float64) {}
