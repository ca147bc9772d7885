package bin

import (
	"io"

	"github.com/YuminosukeSato/featbin/core/binio"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

// denseBin keeps one element per row.
type denseBin[T binValue] struct {
	numBin int
	data   []T
}

func newDenseBin[T binValue](numData int32, numBin int) *denseBin[T] {
	return &denseBin[T]{numBin: numBin, data: make([]T, numData)}
}

func (b *denseBin[T]) rawAt(idx int32) uint32 { return uint32(b.data[idx]) }

func (b *denseBin[T]) NumData() int32 { return int32(len(b.data)) }
func (b *denseBin[T]) NumBin() int    { return b.numBin }
func (b *denseBin[T]) IsSparse() bool { return false }

// Push writes value for row idx. Rows are owned by a single goroutine, so tid
// is not needed.
func (b *denseBin[T]) Push(_ int, idx int32, value uint32) {
	b.data[idx] = T(value)
}

func (b *denseBin[T]) ReSize(numData int32) {
	n := int(numData)
	if n <= cap(b.data) {
		old := len(b.data)
		b.data = b.data[:n]
		for i := old; i < n; i++ {
			b.data[i] = 0
		}
		return
	}
	grown := make([]T, n)
	copy(grown, b.data)
	b.data = grown
}

func (b *denseBin[T]) CopySubrow(full Bin, usedIndices []int32) {
	other := full.(*denseBin[T])
	for i, idx := range usedIndices {
		b.data[i] = other.data[idx]
	}
}

func (b *denseBin[T]) GetIterator(minBin, maxBin, mostFreqBin uint32) BinIterator {
	return newBinIterator(b, minBin, maxBin, mostFreqBin)
}

func (b *denseBin[T]) FinishLoad() error { return nil }

func (b *denseBin[T]) Clone() Bin {
	return &denseBin[T]{numBin: b.numBin, data: append([]T(nil), b.data...)}
}

func (b *denseBin[T]) SizesInByte() int {
	return len(b.data) * widthOf[T]()
}

// SaveBinaryToFile writes the raw elements, little endian.
func (b *denseBin[T]) SaveBinaryToFile(w io.Writer) error {
	bw := binio.NewWriter(w)
	encodeValues(bw, b.data)
	return bw.Err()
}

func (b *denseBin[T]) LoadFromMemory(r *binio.Reader, numAllData int32, localUsedIndices []int32) error {
	width := widthOf[T]()
	raw := r.Bytes(int(numAllData) * width)
	if err := r.Err(); err != nil {
		return err
	}
	if localUsedIndices == nil {
		if int(numAllData) != len(b.data) {
			return scierrors.NewDimensionError("denseBin.LoadFromMemory", len(b.data), int(numAllData), 0)
		}
		for i := range b.data {
			b.data[i] = decodeValue[T](raw, i, width)
		}
		return nil
	}
	if len(localUsedIndices) != len(b.data) {
		return scierrors.NewDimensionError("denseBin.LoadFromMemory", len(b.data), len(localUsedIndices), 0)
	}
	for i, idx := range localUsedIndices {
		if r.Checked() && (idx < 0 || idx >= numAllData) {
			return scierrors.NewValidationError("local_used_indices", "row out of range", idx)
		}
		b.data[i] = decodeValue[T](raw, int(idx), width)
	}
	return nil
}

func (b *denseBin[T]) Split(minBin, maxBin, defaultBin, mostFreqBin uint32, missingType MissingType,
	defaultLeft bool, threshold uint32, dataIndices, lteIndices, gtIndices []int32) int {
	s := newNumericalSplit(minBin, maxBin, defaultBin, mostFreqBin, missingType, defaultLeft, threshold, true)
	return splitNumerical(b, s, dataIndices, lteIndices, gtIndices)
}

func (b *denseBin[T]) SplitWhole(maxBin, defaultBin, mostFreqBin uint32, missingType MissingType,
	defaultLeft bool, threshold uint32, dataIndices, lteIndices, gtIndices []int32) int {
	s := newNumericalSplit(1, maxBin, defaultBin, mostFreqBin, missingType, defaultLeft, threshold, false)
	return splitNumerical(b, s, dataIndices, lteIndices, gtIndices)
}

func (b *denseBin[T]) SplitCategorical(minBin, maxBin, mostFreqBin uint32, threshold CategorySet,
	dataIndices, lteIndices, gtIndices []int32) int {
	return splitCategorical(b, minBin, maxBin, mostFreqBin, true, threshold, dataIndices, lteIndices, gtIndices)
}

func (b *denseBin[T]) SplitCategoricalWhole(maxBin, mostFreqBin uint32, threshold CategorySet,
	dataIndices, lteIndices, gtIndices []int32) int {
	return splitCategorical(b, 1, maxBin, mostFreqBin, false, threshold, dataIndices, lteIndices, gtIndices)
}

// binIterator translates stored ids in [minBin, maxBin] back to the feature's
// own bin ids.
type binIterator[A rawAccessor] struct {
	src                         A
	minBin, maxBin, mostFreqBin uint32
	offset                      uint32
}

func newBinIterator[A rawAccessor](src A, minBin, maxBin, mostFreqBin uint32) *binIterator[A] {
	it := &binIterator[A]{src: src, minBin: minBin, maxBin: maxBin, mostFreqBin: mostFreqBin}
	if mostFreqBin == 0 {
		it.offset = 1
	}
	return it
}

func (it *binIterator[A]) Get(idx int32) uint32 {
	raw := it.src.rawAt(idx)
	if raw >= it.minBin && raw <= it.maxBin {
		return raw - it.minBin + it.offset
	}
	return it.mostFreqBin
}

func (it *binIterator[A]) RawGet(idx int32) uint32 { return it.src.rawAt(idx) }

// Reset is a no-op: lookups are random access.
func (it *binIterator[A]) Reset(int32) {}
