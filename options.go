package hdql

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/result"
)

// Defaults applied by New and not overridden per query.
const (
	DefaultTopK      = 10
	DefaultTimeout   = 5 * time.Second
	DefaultCacheSize = 128
)

type options struct {
	topK           int
	timeout        time.Duration
	strict         bool
	parallel       bool
	format         result.Format
	cacheSize      int
	allowedIndexes []index.Kind
	limiter        *rate.Limiter
	logger         *Logger
	metrics        MetricsCollector
}

// Option configures engine defaults. Options passed to Query override the
// engine's defaults for that call only; WithCacheSize, WithRateLimit,
// WithLogger and WithMetricsCollector take effect at construction.
type Option func(*options)

// WithTopK sets the default result bound for operations without an explicit
// top_k. Non-positive values are ignored.
func WithTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithTimeout bounds query execution. Zero disables the engine-imposed
// deadline; the caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithStrict controls missing-entity handling: strict queries fail on an
// unknown identifier, lenient queries skip it and record the skip in the
// trace.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithParallel dispatches independent plan operations to a bounded worker
// group. Results are identical either way.
func WithParallel(parallel bool) Option {
	return func(o *options) {
		o.parallel = parallel
	}
}

// WithFormat sets the encoding used by Render.
func WithFormat(f result.Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithCacheSize sets the result cache capacity in entries. Non-positive
// disables caching.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithAllowedIndexes restricts planner backend selection. Empty permits all.
func WithAllowedIndexes(kinds ...index.Kind) Option {
	return func(o *options) {
		o.allowedIndexes = kinds
	}
}

// WithRateLimit admits at most qps queries per second with the given burst.
// Queries beyond the limit fail fast with ErrRateLimited.
func WithRateLimit(qps float64, burst int) Option {
	return func(o *options) {
		o.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

// WithLogger configures structured logging. Pass nil to disable.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector. Pass nil to disable.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		topK:      DefaultTopK,
		timeout:   DefaultTimeout,
		strict:    true,
		format:    result.FormatTable,
		cacheSize: DefaultCacheSize,
		logger:    NoopLogger(),
		metrics:   NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// variant fingerprints the option values that change a query's outcome, for
// use as a cache key component.
func (o *options) variant() string {
	return fmt.Sprintf("top_k=%d strict=%t indexes=%v", o.topK, o.strict, o.allowedIndexes)
}
