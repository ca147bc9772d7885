package binio

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

func writeSample(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Bool(true)
	w.Bool(false)
	w.Int32(-7)
	w.Uint16(513)
	w.Float64(math.Inf(-1))
	w.Uint64(1 << 40)
	_, _ = w.Write([]byte("tail"))
	require.NoError(t, w.Err())
	assert.Equal(t, int64(buf.Len()), w.Written())
	return buf.Bytes()
}

func TestReaderWriterFieldOrder(t *testing.T) {
	data := writeSample(t)
	assert.Len(t, data, SizeBool*2+SizeInt32+SizeUint16+SizeFloat64+SizeUint64+4)

	r := NewReader(data)
	assert.True(t, r.Bool())
	assert.False(t, r.Bool())
	assert.Equal(t, int32(-7), r.Int32())
	assert.Equal(t, uint16(513), r.Uint16())
	assert.True(t, math.IsInf(r.Float64(), -1))
	assert.Equal(t, uint64(1<<40), r.Uint64())
	assert.Equal(t, []byte("tail"), r.Bytes(4))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, len(data), r.Offset())
}

func TestReaderBytesIsZeroCopy(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	r := NewReader(data)
	r.Skip(1)
	view := r.Bytes(2)
	data[1] = 42
	assert.Equal(t, byte(42), view[0])
}

func TestCheckedReaderShortBuffer(t *testing.T) {
	r := NewCheckedReader([]byte{1, 0, 0})
	assert.True(t, r.Checked())
	assert.True(t, r.Bool())
	assert.Equal(t, uint32(0), r.Uint32())

	err := r.Err()
	require.Error(t, err)
	var corrupt *scierrors.CorruptDataError
	require.True(t, scierrors.As(err, &corrupt))
	assert.Equal(t, 1, corrupt.Offset)
	assert.Equal(t, 4, corrupt.Need)
	assert.Equal(t, 2, corrupt.Have)

	// sticky: later reads stay zero and keep the first error
	assert.Equal(t, uint8(0), r.Uint8())
	assert.Same(t, err, r.Err())
}

func TestUncheckedReaderPanicsOnShortBuffer(t *testing.T) {
	r := NewReader([]byte{1})
	assert.Panics(t, func() { r.Uint32() })
}

type failingWriter struct{ after int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("disk full")
	}
	f.after--
	return len(p), nil
}

func TestWriterStickyError(t *testing.T) {
	w := NewWriter(&failingWriter{after: 1})
	w.Int32(1)
	w.Int32(2)
	w.Int32(3)
	require.Error(t, w.Err())
	assert.Equal(t, int64(4), w.Written())
}

func TestNewWriterReusesWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.Same(t, w, NewWriter(w))
}
