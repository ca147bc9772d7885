package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/featbin/dataset"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <image>",
	Short: "Print the feature groups of a dataset image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.LoadFile(args[0], nil)
		if err != nil {
			return err
		}
		return printGroups(cmd.OutOrStdout(), ds)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func printGroups(w io.Writer, ds *dataset.Dataset) error {
	fmt.Fprintf(w, "rows: %d  features: %d  groups: %d\n\n", ds.NumData(), ds.NumFeature(), ds.NumGroups())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tLAYOUT\tTOTAL BINS\tFEATURES")
	for i := 0; i < ds.NumGroups(); i++ {
		g := ds.Group(i)
		feats := ds.GroupFeatures(i)
		names := make([]string, len(feats))
		for k, f := range feats {
			names[k] = strconv.Itoa(f)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i, g.Layout(), g.NumTotalBin(), strings.Join(names, ","))
	}

	var trivial []string
	for f := 0; f < ds.NumFeature(); f++ {
		if _, _, ok := ds.Locate(f); !ok {
			trivial = append(trivial, strconv.Itoa(f))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(trivial) > 0 {
		fmt.Fprintf(w, "\nnot stored (single bin): %s\n", strings.Join(trivial, ","))
	}
	return nil
}
