package cmd

import (
	"bytes"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/YuminosukeSato/featbin/dataset"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
	"github.com/YuminosukeSato/featbin/pkg/log"
)

// Config holds the settings shared by every subcommand.
type Config struct {
	Binning BinningConfig `mapstructure:"binning"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
}

// BinningConfig controls how a dataset is binned and bundled.
type BinningConfig struct {
	MaxBin            int     `mapstructure:"max_bin"`
	UseMissing        bool    `mapstructure:"use_missing"`
	ZeroAsMissing     bool    `mapstructure:"zero_as_missing"`
	SparseThreshold   float64 `mapstructure:"sparse_threshold"`
	MaxConflictRate   float64 `mapstructure:"max_conflict_rate"`
	MaxGroupBins      int     `mapstructure:"max_group_bins"`
	MultiValThreshold int     `mapstructure:"multi_val_threshold"`
	NumWorkers        int     `mapstructure:"num_workers"`
	Categorical       []int   `mapstructure:"categorical"`
}

// OutputConfig controls the saved dataset image.
type OutputConfig struct {
	Compression string `mapstructure:"compression"` // none, lz4 or zstd
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads configuration from path. An empty path looks for
// featbin.yaml in the working directory and falls back to defaults when none
// exists. FEATBIN_* environment variables override both.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("featbin")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case scierrors.As(err, &notFound):
		case path != "" && os.IsNotExist(err):
			return nil, scierrors.Wrapf(err, "config file %s", path)
		default:
			return nil, scierrors.Wrap(err, "read config")
		}
	}
	return unmarshal(v)
}

// LoadConfigFromReader parses configuration content of the given type.
func LoadConfigFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, scierrors.Wrap(err, "read config")
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FEATBIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, scierrors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("binning.max_bin", 255)
	v.SetDefault("binning.use_missing", true)
	v.SetDefault("binning.zero_as_missing", false)
	v.SetDefault("binning.sparse_threshold", 0.7)
	v.SetDefault("binning.max_conflict_rate", 0.0)
	v.SetDefault("binning.max_group_bins", 256)
	v.SetDefault("binning.multi_val_threshold", 2)
	v.SetDefault("binning.num_workers", 0)
	v.SetDefault("binning.categorical", []int{})

	v.SetDefault("output.compression", "none")

	v.SetDefault("log.level", "info")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Binning.MaxBin < 2 {
		return scierrors.NewValidationError("binning.max_bin", "must be at least 2", c.Binning.MaxBin)
	}
	if c.Binning.SparseThreshold < 0 || c.Binning.SparseThreshold > 1 {
		return scierrors.NewValidationError("binning.sparse_threshold", "must be in [0, 1]", c.Binning.SparseThreshold)
	}
	if c.Binning.MaxConflictRate < 0 || c.Binning.MaxConflictRate > 1 {
		return scierrors.NewValidationError("binning.max_conflict_rate", "must be in [0, 1]", c.Binning.MaxConflictRate)
	}
	if c.Binning.MaxGroupBins < 2 {
		return scierrors.NewValidationError("binning.max_group_bins", "must be at least 2", c.Binning.MaxGroupBins)
	}
	if _, err := dataset.ParseCompression(c.Output.Compression); err != nil {
		return err
	}
	if _, ok := log.ParseLevel(c.Log.Level); !ok {
		return scierrors.NewValidationError("log.level", "must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// DatasetOptions turns the configuration into dataset builder options.
func (c *Config) DatasetOptions() []dataset.Option {
	codec, _ := dataset.ParseCompression(c.Output.Compression)
	b := c.Binning
	return []dataset.Option{
		dataset.WithMaxBin(b.MaxBin),
		dataset.WithUseMissing(b.UseMissing),
		dataset.WithZeroAsMissing(b.ZeroAsMissing),
		dataset.WithSparseThreshold(b.SparseThreshold),
		dataset.WithMaxConflictRate(b.MaxConflictRate),
		dataset.WithMaxGroupBins(b.MaxGroupBins),
		dataset.WithMultiValThreshold(b.MultiValThreshold),
		dataset.WithNumWorkers(b.NumWorkers),
		dataset.WithCategorical(b.Categorical...),
		dataset.WithCompression(codec),
	}
}
