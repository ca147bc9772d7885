// Package featbin turns tabular feature values into the compact binned
// representation a gradient boosted tree trainer works on.
//
// Every raw feature gets a BinMapper that discretizes values into a small
// number of bins. Features are then stored in feature groups: a group either
// packs several mutually exclusive sparse features into one shared bin-id
// space, or keeps one private bin array per feature (multi-value groups).
// Each storage is dense or sparse depending on how often rows sit in the most
// frequent bin, which is never stored.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/featbin/dataset"
//	    "github.com/YuminosukeSato/featbin/featuregroup"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 2, []float64{
//	        1, 0,
//	        2, 0,
//	        3, 5,
//	        4, 0,
//	    })
//	    ds, err := dataset.FromMatrix(X)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    rows := []int32{0, 1, 2, 3}
//	    left := make([]int32, len(rows))
//	    right := make([]int32, len(rows))
//	    n := ds.Split(0, featuregroup.NumericalThreshold(1), false, rows, left, right)
//	    fmt.Println("left:", left[:n], "right:", right[:len(rows)-n])
//	}
//
// # Packages
//
//   - bin: BinMapper, dense and sparse bin storage, iterators and split kernels
//   - featuregroup: FeatureGroup layout, push, split dispatch and serialization
//   - dataset: matrix ingestion, feature bundling, dataset images and row subsets
//   - preprocessing: BinDiscretizer, a Fit/Transform front end over BinMapper
//   - core/binio: little-endian record reader and writer
//   - core/parallel: worker fan-out helpers
//   - pkg/log, pkg/errors: structured logging and typed errors
//
// The featbin command (cmd/featbin) builds dataset images from CSV files and
// inspects them.
//
// # Performance
//
//   - Rows are pushed in parallel by contiguous row ranges, one buffer per worker
//   - Multi-value groups finalize every feature concurrently
//   - Dense bins use uint8, uint16 or uint32 cells depending on the bin count
//   - Sparse bins index rows with roaring bitmaps
//
// # License
//
// featbin is released under the MIT License.
package featbin
