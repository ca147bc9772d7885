package featuregroup

import (
	"github.com/YuminosukeSato/featbin/pkg/log"
)

// Option configures a FeatureGroup at construction.
type Option func(*config)

type config struct {
	logger      log.Logger
	forceDense  bool
	forceSparse bool
}

func newConfig(opts []Option) config {
	c := config{}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("featuregroup")
	}
	return c
}

// WithLogger sets the logger used for layout and finalize messages.
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithForceDense keeps a single-value group dense even when its lone feature
// is sparse. Ignored by multi-value groups.
func WithForceDense(force bool) Option {
	return func(c *config) {
		c.forceDense = force
	}
}

// WithForceSparse makes a single-value group sparse regardless of its
// features. Ignored by multi-value groups.
func WithForceSparse(force bool) Option {
	return func(c *config) {
		c.forceSparse = force
	}
}
