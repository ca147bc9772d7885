package featuregroup

import (
	"github.com/YuminosukeSato/featbin/bin"
)

// Threshold is the split condition of one feature: a bin id for numerical
// features (rows with bin <= Bin go left) or a set of bins for categorical
// ones (members go left).
type Threshold struct {
	Bin        uint32
	Categories bin.CategorySet
}

// NumericalThreshold splits at bin id b.
func NumericalThreshold(b uint32) Threshold {
	return Threshold{Bin: b}
}

// CategoricalThreshold sends the given bins left.
func CategoricalThreshold(bins ...uint32) Threshold {
	return Threshold{Categories: bin.NewCategorySet(bins...)}
}

// Split partitions dataIndices on sub-feature sub. Left rows are written to
// lteIndices and right rows to gtIndices, both in input order; it returns the
// number of left rows. The outputs are caller owned, each at least
// len(dataIndices) long, and must not alias each other or the input.
//
// Rows holding a missing value follow defaultLeft.
func (g *FeatureGroup) Split(sub int, threshold Threshold, defaultLeft bool,
	dataIndices, lteIndices, gtIndices []int32) int {
	m := g.mappers[sub]
	defaultBin := m.DefaultBin()
	mostFreqBin := m.MostFreqBin()
	numerical := m.BinType() == bin.NumericalBin

	if s, ok := g.store.(*perFeatureStorage); ok {
		data := s.bins[sub]
		maxBin := privateMaxBin(m)
		if numerical {
			return data.SplitWhole(maxBin, defaultBin, mostFreqBin, m.MissingType(),
				defaultLeft, threshold.Bin, dataIndices, lteIndices, gtIndices)
		}
		return data.SplitCategoricalWhole(maxBin, mostFreqBin, threshold.Categories,
			dataIndices, lteIndices, gtIndices)
	}

	data := g.store.(*sharedStorage).data
	minBin := g.offsets[sub]
	maxBin := g.offsets[sub+1] - 1
	if numerical {
		if g.numFeature == 1 {
			return data.SplitWhole(maxBin, defaultBin, mostFreqBin, m.MissingType(),
				defaultLeft, threshold.Bin, dataIndices, lteIndices, gtIndices)
		}
		return data.Split(minBin, maxBin, defaultBin, mostFreqBin, m.MissingType(),
			defaultLeft, threshold.Bin, dataIndices, lteIndices, gtIndices)
	}
	if g.numFeature == 1 {
		return data.SplitCategoricalWhole(maxBin, mostFreqBin, threshold.Categories,
			dataIndices, lteIndices, gtIndices)
	}
	return data.SplitCategorical(minBin, maxBin, mostFreqBin, threshold.Categories,
		dataIndices, lteIndices, gtIndices)
}
