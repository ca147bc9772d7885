package bin

import (
	"io"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/YuminosukeSato/featbin/core/binio"
	"github.com/YuminosukeSato/featbin/core/parallel"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

type rowValue[T binValue] struct {
	row int32
	val T
}

// sparseBin stores only non-zero rows: a roaring bitmap of row ids plus their
// values in row order, so the value of row r sits at rank(r)-1.
//
// Pushes land in per-goroutine buffers and become visible after FinishLoad.
// The last buffer takes tids outside [0, parallel.NumWorkers()) and is
// guarded by overflowMu.
type sparseBin[T binValue] struct {
	numData int32
	numBin  int
	rows    *roaring.Bitmap
	vals    []T

	pending    [][]rowValue[T]
	overflowMu sync.Mutex
}

func newSparseBin[T binValue](numData int32, numBin int) *sparseBin[T] {
	return &sparseBin[T]{
		numData: numData,
		numBin:  numBin,
		rows:    roaring.New(),
		pending: make([][]rowValue[T], parallel.NumWorkers()+1),
	}
}

func (b *sparseBin[T]) rawAt(idx int32) uint32 {
	if idx < 0 || !b.rows.Contains(uint32(idx)) {
		return 0
	}
	return uint32(b.vals[b.rows.Rank(uint32(idx))-1])
}

func (b *sparseBin[T]) NumData() int32 { return b.numData }
func (b *sparseBin[T]) NumBin() int    { return b.numBin }
func (b *sparseBin[T]) IsSparse() bool { return true }

// Push buffers (idx, value) in the buffer of tid. Zero is the implicit value
// and is not recorded.
func (b *sparseBin[T]) Push(tid int, idx int32, value uint32) {
	if value == 0 {
		return
	}
	rv := rowValue[T]{row: idx, val: T(value)}
	if last := len(b.pending) - 1; tid >= 0 && tid < last {
		b.pending[tid] = append(b.pending[tid], rv)
		return
	}
	b.overflowMu.Lock()
	last := len(b.pending) - 1
	b.pending[last] = append(b.pending[last], rv)
	b.overflowMu.Unlock()
}

func (b *sparseBin[T]) hasPending() bool {
	for _, buf := range b.pending {
		if len(buf) > 0 {
			return true
		}
	}
	return false
}

// FinishLoad merges the push buffers into the row index. A row pushed twice is
// reported as ErrDuplicateRow and leaves the stored rows unchanged.
func (b *sparseBin[T]) FinishLoad() error {
	if !b.hasPending() {
		return nil
	}
	total := len(b.vals)
	for _, buf := range b.pending {
		total += len(buf)
	}
	merged := make([]rowValue[T], 0, total)
	it := b.rows.Iterator()
	for i := 0; it.HasNext(); i++ {
		merged = append(merged, rowValue[T]{row: int32(it.Next()), val: b.vals[i]})
	}
	for _, buf := range b.pending {
		merged = append(merged, buf...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].row < merged[j].row })

	rows := roaring.New()
	vals := make([]T, 0, len(merged))
	for i, rv := range merged {
		if i > 0 && merged[i-1].row == rv.row {
			return scierrors.Wrapf(scierrors.ErrDuplicateRow, "row %d", rv.row)
		}
		if rv.row < 0 || rv.row >= b.numData {
			return scierrors.NewValidationError("row", "outside of the bin", rv.row)
		}
		rows.Add(uint32(rv.row))
		vals = append(vals, rv.val)
	}
	b.rows = rows
	b.vals = vals
	for i := range b.pending {
		b.pending[i] = nil
	}
	return nil
}

// ReSize drops rows at or beyond numData; growing only extends the row range.
func (b *sparseBin[T]) ReSize(numData int32) {
	if numData < b.numData {
		b.rows.RemoveRange(uint64(numData), uint64(b.numData))
		b.vals = b.vals[:b.rows.GetCardinality()]
		for i, buf := range b.pending {
			kept := buf[:0]
			for _, rv := range buf {
				if rv.row < numData {
					kept = append(kept, rv)
				}
			}
			b.pending[i] = kept
		}
	}
	b.numData = numData
}

func (b *sparseBin[T]) CopySubrow(full Bin, usedIndices []int32) {
	other := full.(*sparseBin[T])
	rows := roaring.New()
	vals := make([]T, 0)
	for i, idx := range usedIndices {
		if v := other.rawAt(idx); v != 0 {
			rows.Add(uint32(i))
			vals = append(vals, T(v))
		}
	}
	b.rows = rows
	b.vals = vals
}

func (b *sparseBin[T]) GetIterator(minBin, maxBin, mostFreqBin uint32) BinIterator {
	return newBinIterator(b, minBin, maxBin, mostFreqBin)
}

func (b *sparseBin[T]) Clone() Bin {
	c := &sparseBin[T]{
		numData: b.numData,
		numBin:  b.numBin,
		rows:    b.rows.Clone(),
		vals:    append([]T(nil), b.vals...),
		pending: make([][]rowValue[T], len(b.pending)),
	}
	for i, buf := range b.pending {
		c.pending[i] = append([]rowValue[T](nil), buf...)
	}
	return c
}

const sparseHeaderSize = 2 * binio.SizeInt32

func (b *sparseBin[T]) SizesInByte() int {
	return sparseHeaderSize + int(b.rows.GetSerializedSizeInBytes()) + len(b.vals)*widthOf[T]()
}

// SaveBinaryToFile writes [num_vals:4][bitmap_len:4][roaring bitmap][values].
// Pushes not yet merged by FinishLoad are an error.
func (b *sparseBin[T]) SaveBinaryToFile(w io.Writer) error {
	if b.hasPending() {
		return scierrors.NewValueError("sparseBin.SaveBinaryToFile", "pending pushes, call FinishLoad first")
	}
	bw := binio.NewWriter(w)
	bw.Int32(int32(len(b.vals)))
	bw.Int32(int32(b.rows.GetSerializedSizeInBytes()))
	if _, err := b.rows.WriteTo(bw); err != nil {
		return scierrors.Wrap(err, "write row index")
	}
	encodeValues(bw, b.vals)
	return bw.Err()
}

func (b *sparseBin[T]) LoadFromMemory(r *binio.Reader, numAllData int32, localUsedIndices []int32) error {
	width := widthOf[T]()
	numVals := int(r.Int32())
	bitmapLen := int(r.Int32())
	rawRows := r.Bytes(bitmapLen)
	rawVals := r.Bytes(numVals * width)
	if err := r.Err(); err != nil {
		return err
	}

	rows := roaring.New()
	if err := rows.UnmarshalBinary(rawRows); err != nil {
		return scierrors.Wrap(err, "decode row index")
	}
	if r.Checked() {
		if int(rows.GetCardinality()) != numVals {
			return scierrors.NewCorruptDataError("sparseBin.LoadFromMemory", r.Offset(), numVals, int(rows.GetCardinality()))
		}
		if !rows.IsEmpty() && int64(rows.Maximum()) >= int64(numAllData) {
			return scierrors.NewValidationError("row", "beyond num_all_data", rows.Maximum())
		}
	}

	if localUsedIndices == nil {
		b.rows = rows
		b.vals = make([]T, numVals)
		for i := range b.vals {
			b.vals[i] = decodeValue[T](rawVals, i, width)
		}
		b.numData = numAllData
		return nil
	}

	b.rows = roaring.New()
	b.vals = b.vals[:0]
	for i, idx := range localUsedIndices {
		if idx < 0 || !rows.Contains(uint32(idx)) {
			continue
		}
		b.rows.Add(uint32(i))
		b.vals = append(b.vals, decodeValue[T](rawVals, int(rows.Rank(uint32(idx)))-1, width))
	}
	b.numData = int32(len(localUsedIndices))
	return nil
}

func (b *sparseBin[T]) Split(minBin, maxBin, defaultBin, mostFreqBin uint32, missingType MissingType,
	defaultLeft bool, threshold uint32, dataIndices, lteIndices, gtIndices []int32) int {
	s := newNumericalSplit(minBin, maxBin, defaultBin, mostFreqBin, missingType, defaultLeft, threshold, true)
	return splitNumerical(b, s, dataIndices, lteIndices, gtIndices)
}

func (b *sparseBin[T]) SplitWhole(maxBin, defaultBin, mostFreqBin uint32, missingType MissingType,
	defaultLeft bool, threshold uint32, dataIndices, lteIndices, gtIndices []int32) int {
	s := newNumericalSplit(1, maxBin, defaultBin, mostFreqBin, missingType, defaultLeft, threshold, false)
	return splitNumerical(b, s, dataIndices, lteIndices, gtIndices)
}

func (b *sparseBin[T]) SplitCategorical(minBin, maxBin, mostFreqBin uint32, threshold CategorySet,
	dataIndices, lteIndices, gtIndices []int32) int {
	return splitCategorical(b, minBin, maxBin, mostFreqBin, true, threshold, dataIndices, lteIndices, gtIndices)
}

func (b *sparseBin[T]) SplitCategoricalWhole(maxBin, mostFreqBin uint32, threshold CategorySet,
	dataIndices, lteIndices, gtIndices []int32) int {
	return splitCategorical(b, 1, maxBin, mostFreqBin, false, threshold, dataIndices, lteIndices, gtIndices)
}
