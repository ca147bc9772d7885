// Package cmd implements the featbin command line tool.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
	"github.com/YuminosukeSato/featbin/pkg/log"
)

var (
	// Global flags
	configPath string
	logLevel   string

	cfg *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "featbin",
	Short: "Bin tabular data into feature groups for GBDT training",
	Long: `featbin discretizes numeric CSV data into binned feature groups.

Sparse features whose non-default rows rarely collide are bundled into shared
groups; the result is written as a dataset image that can be inspected or
loaded back, optionally over a subset of rows.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			c.Log.Level = logLevel
		}
		level, ok := log.ParseLevel(c.Log.Level)
		if !ok {
			return scierrors.NewValidationError("log-level", "must be one of debug, info, warn, error", c.Log.Level)
		}
		log.SetLevel(level)
		log.SetupLogger(c.Log.Level)
		cfg = c
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./featbin.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	binName := BinName()
	rootCmd.Example = `  # Bin a CSV file with a header row into a zstd-compressed image
  ` + binName + ` build -i train.csv -o train.fbin --header --compression zstd

  # Show how features were grouped
  ` + binName + ` inspect train.fbin

  # Plot the bin occupancy of feature 3
  ` + binName + ` histogram train.fbin -f 3 -o feature3.png`
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
