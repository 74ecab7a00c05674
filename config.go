package fanout

import (
	"os"
	"strconv"
	"sync"

	"github.com/ygrebnov/errorc"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rastermill/fanout/backend"
	"github.com/rastermill/fanout/metrics"
)

// HardLimit bounds every worker count in this package. Requested counts, the
// process-wide maximum, and the environment default all clamp into
// [1, HardLimit].
const HardLimit = 128

// WorkersEnv names the environment variable consulted by New for the default
// worker count of dispatchers constructed without WithWorkers. Unset or
// unparsable values fall back to the backend's hardware concurrency.
const WorkersEnv = "FANOUT_WORKERS"

// config holds Dispatcher configuration.
type config struct {
	// Workers defines the requested worker count for rounds.
	// Zero (default) means the count is resolved at construction from the
	// WorkersEnv override or the backend's hardware concurrency.
	// Default: 0 (process default)
	Workers int

	// Backend spawns and joins workers.
	// Default: backend.Goroutine{}
	Backend backend.Backend

	// Logger receives round lifecycle and failure records.
	// Default: zap.NewNop()
	Logger *zap.Logger

	// Metrics provides the instruments round activity is recorded into.
	// Default: metrics.NewNoopProvider()
	Metrics metrics.Provider

	// Tracer, when non-nil, wraps every round in a span.
	// Default: nil (tracing disabled)
	Tracer trace.Tracer
}

// defaultConfig centralizes default values for config.
func defaultConfig() config {
	return config{
		Workers: 0, // process default
		Backend: backend.Goroutine{},
		Logger:  zap.NewNop(),
		Metrics: metrics.NewNoopProvider(),
		Tracer:  nil, // tracing off unless WithTracing/WithTracer
	}
}

// validateConfig performs lightweight invariants checks.
// Options reject bad input themselves; this catches states no option
// sequence should be able to produce.
func validateConfig(cfg *config) error {
	if cfg.Workers < 0 || cfg.Workers > HardLimit {
		return errorc.With(ErrInvalidConfig,
			errorc.String("workers", strconv.Itoa(cfg.Workers)))
	}
	if cfg.Backend == nil || cfg.Logger == nil || cfg.Metrics == nil {
		return errorc.With(ErrInvalidConfig, errorc.String("", "nil dependency"))
	}
	return nil
}

// defaultWorkerCount resolves the requested count for dispatchers constructed
// without WithWorkers: the WorkersEnv override when it parses to a positive
// integer, else the backend's hardware concurrency. Read at construction, not
// per round, so a dispatcher keeps its count for life.
func defaultWorkerCount(b backend.Backend) int {
	if raw := os.Getenv(WorkersEnv); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			return clampWorkers(n)
		}
	}
	return clampWorkers(b.Concurrency())
}

func clampWorkers(n int) int {
	if n < 1 {
		return 1
	}
	if n > HardLimit {
		return HardLimit
	}
	return n
}

var (
	globalMu  sync.Mutex
	globalMax int // 0 until first read seeds it
)

// SetGlobalMaxWorkers sets the process-wide ceiling on effective worker
// counts, clamped into [1, HardLimit]. Dispatchers read the ceiling once at
// round start; an in-flight round keeps the value it started with.
func SetGlobalMaxWorkers(n int) {
	globalMu.Lock()
	globalMax = clampWorkers(n)
	globalMu.Unlock()
}

// GlobalMaxWorkers reports the process-wide ceiling, seeding it from the
// hardware concurrency on first use.
func GlobalMaxWorkers() int {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalMax == 0 {
		globalMax = clampWorkers(backend.Goroutine{}.Concurrency())
	}
	return globalMax
}
