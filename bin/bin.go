package bin

import (
	"encoding/binary"
	"io"
	"unsafe"

	"github.com/YuminosukeSato/featbin/core/binio"
)

// BinIterator reads bin ids of one feature row by row.
type BinIterator interface {
	// Get returns the feature's own bin id for row idx; rows that hold no
	// value of this feature report the most frequent bin.
	Get(idx int32) uint32
	// RawGet returns the stored value without translation.
	RawGet(idx int32) uint32
	// Reset prepares a sequential scan starting at idx.
	Reset(idx int32)
}

// Bin stores one bin id per row. Value 0 is the implicit default: cells never
// pushed read back as 0.
//
// Push may be called concurrently for distinct rows with distinct tids.
// Sparse bins keep a lock-free buffer per tid in [0, parallel.NumWorkers())
// and serialize any other tid through a shared buffer. All other methods
// require exclusive access,
// except the read-only Split family and iterators once FinishLoad returned.
type Bin interface {
	NumData() int32
	// NumBin is the number of distinct values the storage can hold.
	NumBin() int
	IsSparse() bool

	Push(tid int, idx int32, value uint32)
	ReSize(numData int32)
	// CopySubrow fills row i with row usedIndices[i] of full, which must have
	// the same concrete layout.
	CopySubrow(full Bin, usedIndices []int32)
	GetIterator(minBin, maxBin, mostFreqBin uint32) BinIterator
	FinishLoad() error
	Clone() Bin

	SizesInByte() int
	SaveBinaryToFile(w io.Writer) error
	// LoadFromMemory decodes a record written by SaveBinaryToFile for
	// numAllData rows. With localUsedIndices only those rows are kept, in
	// order; the bin must have been created with len(localUsedIndices) rows.
	LoadFromMemory(r *binio.Reader, numAllData int32, localUsedIndices []int32) error

	// Split partitions dataIndices for a feature occupying [minBin, maxBin]
	// of a shared space. threshold and defaultBin are the feature's own ids.
	Split(minBin, maxBin, defaultBin, mostFreqBin uint32, missingType MissingType,
		defaultLeft bool, threshold uint32, dataIndices, lteIndices, gtIndices []int32) int
	// SplitWhole is Split for a feature owning the whole storage: ids start at
	// 1 and 0 marks the most frequent bin.
	SplitWhole(maxBin, defaultBin, mostFreqBin uint32, missingType MissingType,
		defaultLeft bool, threshold uint32, dataIndices, lteIndices, gtIndices []int32) int
	SplitCategorical(minBin, maxBin, mostFreqBin uint32, threshold CategorySet,
		dataIndices, lteIndices, gtIndices []int32) int
	SplitCategoricalWhole(maxBin, mostFreqBin uint32, threshold CategorySet,
		dataIndices, lteIndices, gtIndices []int32) int
}

// CreateDenseBin allocates a dense bin for numData rows holding ids below numBin.
func CreateDenseBin(numData int32, numBin int) Bin {
	switch {
	case numBin <= 1<<8:
		return newDenseBin[uint8](numData, numBin)
	case numBin <= 1<<16:
		return newDenseBin[uint16](numData, numBin)
	default:
		return newDenseBin[uint32](numData, numBin)
	}
}

// CreateSparseBin allocates a sparse bin for numData rows holding ids below numBin.
func CreateSparseBin(numData int32, numBin int) Bin {
	switch {
	case numBin <= 1<<8:
		return newSparseBin[uint8](numData, numBin)
	case numBin <= 1<<16:
		return newSparseBin[uint16](numData, numBin)
	default:
		return newSparseBin[uint32](numData, numBin)
	}
}

// binValue is the element type of a bin; its width follows NumBin.
type binValue interface {
	~uint8 | ~uint16 | ~uint32
}

func widthOf[T binValue]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

func encodeValues[T binValue](w *binio.Writer, vals []T) {
	width := widthOf[T]()
	buf := make([]byte, len(vals)*width)
	switch width {
	case 1:
		for i, v := range vals {
			buf[i] = byte(v)
		}
	case 2:
		for i, v := range vals {
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
		}
	default:
		for i, v := range vals {
			binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
		}
	}
	_, _ = w.Write(buf)
}

func decodeValue[T binValue](raw []byte, i, width int) T {
	switch width {
	case 1:
		return T(raw[i])
	case 2:
		return T(binary.LittleEndian.Uint16(raw[i*2:]))
	default:
		return T(binary.LittleEndian.Uint32(raw[i*4:]))
	}
}
