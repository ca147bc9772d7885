package bin

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

// FitParams controls FitBinMapper.
type FitParams struct {
	// Feature is only used in warnings.
	Feature int
	// MaxBin caps the number of finite bins (default 255).
	MaxBin int
	BinType BinType
	// UseMissing enables a missing-value policy at all.
	UseMissing bool
	// ZeroAsMissing treats zero (and NaN) as the missing marker.
	ZeroAsMissing bool
}

func (p FitParams) maxBin() int {
	if p.MaxBin <= 1 {
		return 255
	}
	return p.MaxBin
}

// FitBinMapper derives a mapper from a sample of raw values. Numerical bounds
// are midpoints between distinct values when they fit in MaxBin, empirical
// quantiles otherwise. Categories are ranked by frequency; overflow, negative
// and NaN values share a trailing "other" bin.
func FitBinMapper(values []float64, params FitParams) (*BinMapper, error) {
	if len(values) == 0 {
		return nil, scierrors.Wrap(scierrors.ErrEmptyData, "FitBinMapper")
	}
	var (
		m   *BinMapper
		err error
	)
	if params.BinType == CategoricalBin {
		m, err = fitCategorical(values, params)
	} else {
		m, err = fitNumerical(values, params)
	}
	if err != nil {
		return nil, err
	}
	m.finishCounts(values)
	if m.isTrivial {
		scierrors.Warn(scierrors.NewTrivialFeatureWarning(params.Feature, "all sampled values fall in one bin"))
	}
	return m, nil
}

func fitNumerical(values []float64, params FitParams) (*BinMapper, error) {
	finite := make([]float64, 0, len(values))
	nanCnt := 0
	for _, v := range values {
		if math.IsNaN(v) {
			nanCnt++
			continue
		}
		finite = append(finite, v)
	}

	missingType := MissingNone
	switch {
	case !params.UseMissing:
	case params.ZeroAsMissing:
		missingType = MissingZero
	case nanCnt > 0:
		missingType = MissingNaN
	}
	if missingType != MissingNaN {
		// NaN is read as zero
		for i := 0; i < nanCnt; i++ {
			finite = append(finite, 0)
		}
	}
	if len(finite) == 0 {
		finite = append(finite, 0)
	}
	sort.Float64s(finite)

	maxBin := params.maxBin()
	if missingType == MissingNaN {
		maxBin--
	}

	distinct := finite[:1:1]
	for _, v := range finite[1:] {
		if v != distinct[len(distinct)-1] {
			distinct = append(distinct, v)
		}
	}

	var bounds []float64
	if len(distinct) <= maxBin {
		for i := 1; i < len(distinct); i++ {
			bounds = append(bounds, (distinct[i-1]+distinct[i])/2)
		}
	} else {
		for k := 1; k < maxBin; k++ {
			q := stat.Quantile(float64(k)/float64(maxBin), stat.Empirical, finite, nil)
			bounds = append(bounds, q)
		}
		if finite[0] < 0 && finite[len(finite)-1] > 0 {
			// keep zero alone in its bin
			bounds = append(bounds, -ZeroThreshold, ZeroThreshold)
		}
		sort.Float64s(bounds)
		bounds = dedupe(bounds)
	}
	bounds = append(bounds, math.Inf(1))

	m, err := NewNumericalBinMapper(bounds, missingType, 0, 0)
	if err != nil {
		return nil, err
	}
	m.minVal = finite[0]
	m.maxVal = finite[len(finite)-1]
	return m, nil
}

func dedupe(sorted []float64) []float64 {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func fitCategorical(values []float64, params FitParams) (*BinMapper, error) {
	counts := make(map[int32]int)
	other := 0
	for _, v := range values {
		if math.IsNaN(v) || v < 0 {
			other++
			continue
		}
		counts[int32(v)]++
	}

	cats := make([]int32, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if counts[cats[i]] != counts[cats[j]] {
			return counts[cats[i]] > counts[cats[j]]
		}
		return cats[i] < cats[j]
	})

	maxBin := params.maxBin()
	if len(cats) > maxBin-1 {
		cats = cats[:maxBin-1]
		other++
	}
	missingType := MissingNone
	if other > 0 || len(cats) == 0 {
		cats = append(cats, -1)
		missingType = MissingNaN
	}
	return NewCategoricalBinMapper(cats, missingType, 0, 0)
}

// finishCounts sets the most frequent bin and sparse rate from the sample.
// When the most frequent bin is not the default bin and the feature is not
// sparse, the default bin is used as most frequent bin instead.
func (m *BinMapper) finishCounts(values []float64) {
	cnt := make([]int, m.numBin)
	for _, v := range values {
		cnt[m.ValueToBin(v)]++
	}
	mostFreq := 0
	for b := range cnt {
		if cnt[b] > cnt[mostFreq] {
			mostFreq = b
		}
	}
	rate := float64(cnt[mostFreq]) / float64(len(values))
	if uint32(mostFreq) != m.defaultBin && rate < SparseThreshold {
		mostFreq = int(m.defaultBin)
	}
	m.mostFreqBin = uint32(mostFreq)
	m.sparseRate = float64(cnt[mostFreq]) / float64(len(values))
	m.isTrivial = m.numBin <= 1
}
