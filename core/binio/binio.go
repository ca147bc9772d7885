// Package binio provides the little-endian byte cursor used by every binary
// record in featbin (bin mappers, bin storage, feature groups, datasets).
//
// Reader has two modes. The default mode trusts the buffer: reads are not
// length-checked beyond Go's own slice bounds, so a short buffer panics. The
// checked mode validates every read and records the first failure as a
// CorruptDataError, after which all reads return zero values.
package binio

import (
	"encoding/binary"
	"io"
	"math"

	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

// Reader is a forward-only cursor over a byte slice.
type Reader struct {
	buf     []byte
	off     int
	checked bool
	err     error
}

// NewReader returns a trusting reader over buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// NewCheckedReader returns a reader that validates every read.
func NewCheckedReader(buf []byte) *Reader {
	return &Reader{buf: buf, checked: true}
}

func (r *Reader) need(n int) bool {
	if !r.checked {
		return true
	}
	if r.err != nil {
		return false
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = scierrors.NewCorruptDataError("binio.Reader", r.off, n, len(r.buf)-r.off)
		return false
	}
	return true
}

// Err returns the first decode failure of a checked reader.
func (r *Reader) Err() error { return r.err }

// Checked reports whether the reader validates reads.
func (r *Reader) Checked() bool { return r.checked }

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.off }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.off }

// Bool reads one byte; any non-zero value is true.
func (r *Reader) Bool() bool {
	return r.Uint8() != 0
}

// Uint8 reads one byte.
func (r *Reader) Uint8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

// Float64 reads an IEEE-754 little-endian float64.
func (r *Reader) Float64() float64 {
	return math.Float64frombits(r.Uint64())
}

// Bytes returns the next n bytes without copying.
func (r *Reader) Bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return v
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) {
	if !r.need(n) {
		return
	}
	r.off += n
}

// Writer writes little-endian fields to an io.Writer and remembers the first
// write error; later writes become no-ops.
type Writer struct {
	w       io.Writer
	n       int64
	err     error
	scratch [8]byte
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	if bw, ok := w.(*Writer); ok {
		return bw
	}
	return &Writer{w: w}
}

// Err returns the first write error.
func (w *Writer) Err() error { return w.err }

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 { return w.n }

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	if err != nil {
		w.err = err
	}
	return n, err
}

func (w *Writer) put(n int) {
	_, _ = w.Write(w.scratch[:n])
}

// Bool writes one byte, 1 for true.
func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

// Uint8 writes one byte.
func (w *Writer) Uint8(v uint8) {
	w.scratch[0] = v
	w.put(1)
}

// Uint16 writes a little-endian uint16.
func (w *Writer) Uint16(v uint16) {
	binary.LittleEndian.PutUint16(w.scratch[:], v)
	w.put(2)
}

// Uint32 writes a little-endian uint32.
func (w *Writer) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(w.scratch[:], v)
	w.put(4)
}

// Int32 writes a little-endian int32.
func (w *Writer) Int32(v int32) {
	w.Uint32(uint32(v))
}

// Uint64 writes a little-endian uint64.
func (w *Writer) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(w.scratch[:], v)
	w.put(8)
}

// Float64 writes an IEEE-754 little-endian float64.
func (w *Writer) Float64(v float64) {
	w.Uint64(math.Float64bits(v))
}

// Size constants of the fixed-width fields.
const (
	SizeBool    = 1
	SizeUint8   = 1
	SizeUint16  = 2
	SizeInt32   = 4
	SizeUint32  = 4
	SizeUint64  = 8
	SizeFloat64 = 8
)
