package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/featbin/dataset"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

var (
	// Histogram command flags
	histFeature int
	histOutput  string
)

// histogramCmd represents the histogram command
var histogramCmd = &cobra.Command{
	Use:   "histogram <image>",
	Short: "Plot the bin occupancy of one feature as a PNG bar chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.LoadFile(args[0], nil)
		if err != nil {
			return err
		}
		if err := plotBinCounts(ds, histFeature, histOutput); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved bin histogram of feature %d to %s\n", histFeature, histOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(histogramCmd)

	histogramCmd.Flags().IntVarP(&histFeature, "feature", "f", 0, "Zero-based feature index")
	histogramCmd.Flags().StringVarP(&histOutput, "output", "o", "histogram.png", "Output image (format from extension)")
}

// plotBinCounts renders the number of rows in each bin of feature f.
func plotBinCounts(ds *dataset.Dataset, f int, filename string) error {
	counts, err := ds.BinCounts(f)
	if err != nil {
		return err
	}
	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Feature %d", f)
	p.X.Label.Text = "bin"
	p.Y.Label.Text = "rows"

	bars, err := plotter.NewBarChart(values, vg.Points(8))
	if err != nil {
		return scierrors.Wrap(err, "bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, filename); err != nil {
		return scierrors.Wrapf(err, "save %s", filename)
	}
	return nil
}
