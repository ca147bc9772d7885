package bin

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/YuminosukeSato/featbin/core/binio"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

// BinMapper converts the raw values of one feature to bin ids and back.
// It is immutable once built; Copy returns an independent clone.
type BinMapper struct {
	numBin      int
	missingType MissingType
	isTrivial   bool
	sparseRate  float64
	binType     BinType
	minVal      float64
	maxVal      float64
	defaultBin  uint32
	mostFreqBin uint32

	// numerical: upper bound of each bin, last finite bin ends at +Inf,
	// a NaN bin (MissingNaN) has a NaN bound.
	binUpperBound []float64

	// categorical: category of each bin and its reverse index.
	bin2Categorical []int32
	categorical2Bin map[int32]uint32
}

// NewNumericalBinMapper builds a numerical mapper from ascending bin upper
// bounds. The last bound is forced to +Inf. With MissingNaN an extra NaN bin is
// appended after the finite bins. mostFreqBin and sparseRate describe the data
// the bounds were fitted on.
func NewNumericalBinMapper(upperBounds []float64, missingType MissingType, mostFreqBin uint32, sparseRate float64) (*BinMapper, error) {
	if len(upperBounds) == 0 {
		return nil, scierrors.NewValidationError("upper_bounds", "must not be empty", 0)
	}
	for i := 1; i < len(upperBounds); i++ {
		if !(upperBounds[i] > upperBounds[i-1]) {
			return nil, scierrors.NewValidationError("upper_bounds", "must be strictly increasing", upperBounds)
		}
	}
	bounds := make([]float64, len(upperBounds), len(upperBounds)+1)
	copy(bounds, upperBounds)
	bounds[len(bounds)-1] = math.Inf(1)
	if missingType == MissingNaN {
		bounds = append(bounds, math.NaN())
	}

	m := &BinMapper{
		numBin:        len(bounds),
		missingType:   missingType,
		binType:       NumericalBin,
		sparseRate:    sparseRate,
		binUpperBound: bounds,
		mostFreqBin:   mostFreqBin,
		minVal:        math.Inf(-1),
		maxVal:        math.Inf(1),
	}
	if int(mostFreqBin) >= m.numBin {
		return nil, scierrors.NewValidationError("most_freq_bin", fmt.Sprintf("must be below num_bin %d", m.numBin), mostFreqBin)
	}
	m.defaultBin = m.ValueToBin(0)
	m.isTrivial = m.numBin <= 1
	return m, nil
}

// NewCategoricalBinMapper builds a categorical mapper where bin i holds
// categories[i]. Unknown, negative and NaN values fall into the last bin.
func NewCategoricalBinMapper(categories []int32, missingType MissingType, mostFreqBin uint32, sparseRate float64) (*BinMapper, error) {
	if len(categories) == 0 {
		return nil, scierrors.NewValidationError("categories", "must not be empty", 0)
	}
	m := &BinMapper{
		numBin:          len(categories),
		missingType:     missingType,
		binType:         CategoricalBin,
		sparseRate:      sparseRate,
		bin2Categorical: append([]int32(nil), categories...),
		categorical2Bin: make(map[int32]uint32, len(categories)),
		mostFreqBin:     mostFreqBin,
	}
	for i, c := range categories {
		if _, dup := m.categorical2Bin[c]; dup {
			return nil, scierrors.NewValidationError("categories", "must be unique", c)
		}
		m.categorical2Bin[c] = uint32(i)
	}
	if int(mostFreqBin) >= m.numBin {
		return nil, scierrors.NewValidationError("most_freq_bin", fmt.Sprintf("must be below num_bin %d", m.numBin), mostFreqBin)
	}
	sorted := append([]int32(nil), categories...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	m.minVal = float64(sorted[0])
	m.maxVal = float64(sorted[len(sorted)-1])
	m.defaultBin = m.ValueToBin(0)
	m.isTrivial = m.numBin <= 1
	return m, nil
}

// NumBin returns the number of bins.
func (m *BinMapper) NumBin() int { return m.numBin }

// MissingType returns the missing-value policy.
func (m *BinMapper) MissingType() MissingType { return m.missingType }

// BinType returns numerical or categorical.
func (m *BinMapper) BinType() BinType { return m.binType }

// IsTrivial reports a mapper with a single bin.
func (m *BinMapper) IsTrivial() bool { return m.isTrivial }

// SparseRate is the fraction of rows in the most frequent bin.
func (m *BinMapper) SparseRate() float64 { return m.sparseRate }

// DefaultBin is the bin of the value zero.
func (m *BinMapper) DefaultBin() uint32 { return m.defaultBin }

// MostFreqBin is the most common bin id.
func (m *BinMapper) MostFreqBin() uint32 { return m.mostFreqBin }

// MinVal and MaxVal are the observed value range.
func (m *BinMapper) MinVal() float64 { return m.minVal }
func (m *BinMapper) MaxVal() float64 { return m.maxVal }

// ValueToBin maps a raw value to its bin id.
func (m *BinMapper) ValueToBin(value float64) uint32 {
	if m.binType == CategoricalBin {
		if math.IsNaN(value) || value < 0 {
			return uint32(m.numBin - 1)
		}
		if b, ok := m.categorical2Bin[int32(value)]; ok {
			return b
		}
		return uint32(m.numBin - 1)
	}

	if math.IsNaN(value) {
		if m.missingType == MissingNaN {
			return uint32(m.numBin - 1)
		}
		value = 0
	}
	l, r := 0, m.numBin-1
	if m.missingType == MissingNaN {
		r--
	}
	for l < r {
		mid := (l + r - 1) / 2
		if value <= m.binUpperBound[mid] {
			r = mid
		} else {
			l = mid + 1
		}
	}
	return uint32(l)
}

// BinToValue returns the representative value of a bin: its upper bound for
// numerical features, its category for categorical ones.
func (m *BinMapper) BinToValue(bin uint32) float64 {
	if m.binType == CategoricalBin {
		return float64(m.bin2Categorical[bin])
	}
	return m.binUpperBound[bin]
}

// Copy returns an independent deep copy.
func (m *BinMapper) Copy() *BinMapper {
	c := *m
	c.binUpperBound = append([]float64(nil), m.binUpperBound...)
	c.bin2Categorical = append([]int32(nil), m.bin2Categorical...)
	if m.categorical2Bin != nil {
		c.categorical2Bin = make(map[int32]uint32, len(m.categorical2Bin))
		for k, v := range m.categorical2Bin {
			c.categorical2Bin[k] = v
		}
	}
	return &c
}

const mapperHeaderSize = binio.SizeInt32 + 3*binio.SizeUint8 + 3*binio.SizeFloat64 + 2*binio.SizeUint32

// SizesInByte returns the length of the record written by SaveBinaryToFile.
func (m *BinMapper) SizesInByte() int {
	if m.binType == CategoricalBin {
		return mapperHeaderSize + m.numBin*binio.SizeInt32
	}
	return mapperHeaderSize + m.numBin*binio.SizeFloat64
}

// SaveBinaryToFile writes the self-describing record:
// [num_bin:4][missing_type:1][is_trivial:1][bin_type:1][sparse_rate:8]
// [min_val:8][max_val:8][default_bin:4][most_freq_bin:4][bounds or categories].
func (m *BinMapper) SaveBinaryToFile(w io.Writer) error {
	bw := binio.NewWriter(w)
	bw.Int32(int32(m.numBin))
	bw.Uint8(uint8(m.missingType))
	bw.Bool(m.isTrivial)
	bw.Uint8(uint8(m.binType))
	bw.Float64(m.sparseRate)
	bw.Float64(m.minVal)
	bw.Float64(m.maxVal)
	bw.Uint32(m.defaultBin)
	bw.Uint32(m.mostFreqBin)
	if m.binType == CategoricalBin {
		for _, c := range m.bin2Categorical {
			bw.Int32(c)
		}
	} else {
		for _, b := range m.binUpperBound {
			bw.Float64(b)
		}
	}
	return bw.Err()
}

// ReadBinMapper decodes one record written by SaveBinaryToFile and advances r
// past it.
func ReadBinMapper(r *binio.Reader) (*BinMapper, error) {
	m := &BinMapper{}
	m.numBin = int(r.Int32())
	m.missingType = MissingType(r.Uint8())
	m.isTrivial = r.Bool()
	m.binType = BinType(r.Uint8())
	m.sparseRate = r.Float64()
	m.minVal = r.Float64()
	m.maxVal = r.Float64()
	m.defaultBin = r.Uint32()
	m.mostFreqBin = r.Uint32()
	if r.Checked() && (m.numBin < 0 || m.numBin > r.Len()) {
		return nil, scierrors.NewCorruptDataError("ReadBinMapper", r.Offset(), m.numBin, r.Len())
	}
	if m.binType == CategoricalBin {
		m.bin2Categorical = make([]int32, m.numBin)
		m.categorical2Bin = make(map[int32]uint32, m.numBin)
		for i := range m.bin2Categorical {
			c := r.Int32()
			m.bin2Categorical[i] = c
			m.categorical2Bin[c] = uint32(i)
		}
	} else {
		m.binUpperBound = make([]float64, m.numBin)
		for i := range m.binUpperBound {
			m.binUpperBound[i] = r.Float64()
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// String summarizes the mapper for inspection output.
func (m *BinMapper) String() string {
	return fmt.Sprintf("%s bins=%d missing=%s default=%d most_freq=%d sparse_rate=%.3f",
		m.binType, m.numBin, m.missingType, m.defaultBin, m.mostFreqBin, m.sparseRate)
}
