package dataset

import (
	"github.com/YuminosukeSato/featbin/bin"
	"github.com/YuminosukeSato/featbin/pkg/log"
)

// Option configures dataset construction and loading.
type Option func(*config)

type config struct {
	maxBin            int
	categorical       map[int]bool
	useMissing        bool
	zeroAsMissing     bool
	sparseThreshold   float64
	maxConflictRate   float64
	maxGroupBins      int
	multiValThreshold int
	numWorkers        int
	compression       Compression
	logger            log.Logger
}

func newConfig(opts []Option) *config {
	c := &config{
		maxBin:            255,
		categorical:       map[int]bool{},
		useMissing:        true,
		sparseThreshold:   bin.SparseThreshold,
		maxGroupBins:      256,
		multiValThreshold: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("dataset")
	}
	return c
}

// WithMaxBin caps the number of bins per feature.
func WithMaxBin(maxBin int) Option {
	return func(c *config) {
		c.maxBin = maxBin
	}
}

// WithCategorical marks features as categorical.
func WithCategorical(features ...int) Option {
	return func(c *config) {
		for _, f := range features {
			c.categorical[f] = true
		}
	}
}

// WithUseMissing enables the NaN / zero missing-value policies.
func WithUseMissing(use bool) Option {
	return func(c *config) {
		c.useMissing = use
	}
}

// WithZeroAsMissing treats zero as the missing marker.
func WithZeroAsMissing(zero bool) Option {
	return func(c *config) {
		c.zeroAsMissing = zero
	}
}

// WithSparseThreshold sets the sparse rate a feature needs to be bundled.
func WithSparseThreshold(rate float64) Option {
	return func(c *config) {
		c.sparseThreshold = rate
	}
}

// WithMaxConflictRate sets how many rows two bundled features may both
// occupy, as a fraction of the rows either occupies. Conflicting rows keep
// the value of the later feature.
func WithMaxConflictRate(rate float64) Option {
	return func(c *config) {
		c.maxConflictRate = rate
	}
}

// WithMaxGroupBins caps the shared bin-id space of a bundle.
func WithMaxGroupBins(n int) Option {
	return func(c *config) {
		c.maxGroupBins = n
	}
}

// WithMultiValThreshold sets how many unbundled sparse features are needed
// to store them together as one multi-value group. Zero disables multi-value
// groups.
func WithMultiValThreshold(n int) Option {
	return func(c *config) {
		c.multiValThreshold = n
	}
}

// WithNumWorkers caps the goroutines used to push rows.
func WithNumWorkers(n int) Option {
	return func(c *config) {
		c.numWorkers = n
	}
}

// WithCompression sets the codec used by Save.
func WithCompression(codec Compression) Option {
	return func(c *config) {
		c.compression = codec
	}
}

// WithLogger sets the logger of the dataset and its groups.
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
