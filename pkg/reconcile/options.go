package reconcile

import "github.com/rs/zerolog"

type options struct {
	logger           zerolog.Logger
	batchMemberships bool
}

// Option configures a Synchronizer, Resolver or Runner.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBatchMemberships makes batch runs resolve memberships as well.
// Resolution stays batched: one local lookup per relationship role and target.
func WithBatchMemberships(enabled bool) Option {
	return func(o *options) {
		o.batchMemberships = enabled
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
