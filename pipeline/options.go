package pipeline

import (
	"github.com/YuminosukeSato/demandcast/pkg/log"
)

// Option configures a single Predict, PredictWithModel or Evaluate call.
type Option func(*options)

type options struct {
	loader      ArtifactLoader
	logger      log.Logger
	finiteCheck bool
	threads     int
}

func newOptions(opts []Option) *options {
	o := &options{
		loader: DefaultLoader,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("pipeline")
	}
	return o
}

// WithLoader replaces the artifact loader, e.g. with a CachedLoader.
func WithLoader(l ArtifactLoader) Option {
	return func(o *options) {
		if l != nil {
			o.loader = l
		}
	}
}

// WithLogger sets the logger used for the call.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFiniteCheck rejects NaN or Inf feature values with a
// NumericalInstabilityError before the model is called, and predictions that are
// not finite after expm1 (a log-scale output above ~709 overflows). Off by default,
// since LightGBM routes NaN through its missing-value handling.
func WithFiniteCheck(enabled bool) Option {
	return func(o *options) {
		o.finiteCheck = enabled
	}
}

// WithThreads sets the worker count for row-parallel LightGBM prediction.
// n <= 0 uses every CPU. Models other than *lightgbm.Model ignore it.
func WithThreads(n int) Option {
	return func(o *options) {
		o.threads = n
	}
}
