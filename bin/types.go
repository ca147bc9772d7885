// Package bin holds the discretized column machinery: BinMapper turns raw
// feature values into bin ids, and Bin stores one bin id per row in either a
// dense or a sparse layout.
package bin

import (
	"github.com/bits-and-blooms/bitset"
)

// BinType tells numerical and categorical mappers apart.
type BinType uint8

const (
	NumericalBin BinType = iota
	CategoricalBin
)

func (t BinType) String() string {
	if t == CategoricalBin {
		return "categorical"
	}
	return "numerical"
}

// MissingType is the missing-value policy of a feature.
type MissingType uint8

const (
	// MissingNone: missing values are treated as zero and split like any value.
	MissingNone MissingType = iota
	// MissingZero: zero is the missing marker and is routed by default_left.
	MissingZero
	// MissingNaN: NaN gets the last bin and is routed by default_left.
	MissingNaN
)

func (m MissingType) String() string {
	switch m {
	case MissingZero:
		return "zero"
	case MissingNaN:
		return "nan"
	default:
		return "none"
	}
}

const (
	// SparseThreshold is the sparse rate at or above which a lone feature is
	// stored sparsely.
	SparseThreshold = 0.7

	// ZeroThreshold bounds the interval treated as exactly zero.
	ZeroThreshold = 1e-35
)

// CategorySet is the set of categorical bins routed left by a split.
// The zero value is an empty set.
type CategorySet struct {
	bs *bitset.BitSet
}

// NewCategorySet builds a set holding bins.
func NewCategorySet(bins ...uint32) CategorySet {
	bs := bitset.New(0)
	for _, b := range bins {
		bs.Set(uint(b))
	}
	return CategorySet{bs: bs}
}

// CategorySetFromWords reads the 32-bit word layout used by tree model files,
// where bit b of word b/32 marks bin b.
func CategorySetFromWords(words []uint32) CategorySet {
	packed := make([]uint64, (len(words)+1)/2)
	for i, w := range words {
		packed[i/2] |= uint64(w) << (32 * uint(i%2))
	}
	return CategorySet{bs: bitset.From(packed)}
}

// Has reports whether bin is in the set.
func (c CategorySet) Has(bin uint32) bool {
	return c.bs != nil && c.bs.Test(uint(bin))
}

// Len returns the number of bins in the set.
func (c CategorySet) Len() int {
	if c.bs == nil {
		return 0
	}
	return int(c.bs.Count())
}

// Bins returns the members in increasing order.
func (c CategorySet) Bins() []uint32 {
	if c.bs == nil {
		return nil
	}
	out := make([]uint32, 0, c.bs.Count())
	for i, ok := c.bs.NextSet(0); ok; i, ok = c.bs.NextSet(i + 1) {
		out = append(out, uint32(i))
	}
	return out
}
