package fanout

import (
	"github.com/ygrebnov/errorc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rastermill/fanout/backend"
	"github.com/rastermill/fanout/metrics"
)

// tracerName identifies spans produced by this package when tracing is
// enabled through WithTracing.
const tracerName = "github.com/rastermill/fanout"

// Option configures a Dispatcher. Use New(opts...) to construct one.
// Options return an error on invalid input instead of panicking.
type Option func(*config) error

// WithWorkers requests n worker slots per round (must be >= 1, clamped to
// HardLimit). The effective count of any round is additionally capped by the
// process-wide maximum at round start.
func WithWorkers(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithWorkers requires n >= 1"))
		}
		cfg.Workers = clampWorkers(n)
		return nil
	}
}

// WithBackend selects the execution backend used to spawn and join workers.
func WithBackend(b backend.Backend) Option {
	return func(cfg *config) error {
		if b == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithBackend requires a non-nil backend"))
		}
		cfg.Backend = b
		return nil
	}
}

// WithSerial is shorthand for WithBackend(backend.Serial{}): slots execute
// one after another on the calling goroutine.
func WithSerial() Option {
	return func(cfg *config) error {
		cfg.Backend = backend.Serial{}
		return nil
	}
}

// WithLogger routes round lifecycle and failure records to l.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithLogger requires a non-nil logger"))
		}
		cfg.Logger = l
		return nil
	}
}

// WithMetrics installs the provider the dispatcher records round metrics
// into.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.Metrics = p
		return nil
	}
}

// WithTracing wraps every round in a span from the globally registered
// OpenTelemetry tracer provider.
func WithTracing() Option {
	return func(cfg *config) error {
		cfg.Tracer = otel.Tracer(tracerName)
		return nil
	}
}

// WithTracer wraps every round in a span from t, for callers managing their
// own tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(cfg *config) error {
		if t == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithTracer requires a non-nil tracer"))
		}
		cfg.Tracer = t
		return nil
	}
}
