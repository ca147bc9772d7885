package dataset

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/featbin/core/binio"
	"github.com/YuminosukeSato/featbin/featuregroup"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
	"github.com/YuminosukeSato/featbin/pkg/log"
)

// sampleMatrix has 20 rows:
//
//	col 0: dense, r % 5
//	col 1: 1 on rows 0, 1
//	col 2: 2 on rows 2, 3
//	col 3: constant (trivial)
//	col 4: 3 on rows 0, 2 (overlaps cols 1 and 2)
func sampleMatrix() *mat.Dense {
	x := mat.NewDense(20, 5, nil)
	for r := 0; r < 20; r++ {
		x.Set(r, 0, float64(r%5))
		x.Set(r, 3, 7)
	}
	x.Set(0, 1, 1)
	x.Set(1, 1, 1)
	x.Set(2, 2, 2)
	x.Set(3, 2, 2)
	x.Set(0, 4, 3)
	x.Set(2, 4, 3)
	return x
}

func quietLogger() log.Logger {
	logger, _ := log.NewTestLogger(log.LevelError)
	return logger
}

func build(t *testing.T, x mat.Matrix, opts ...Option) *Dataset {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	ds, err := FromMatrix(x, opts...)
	require.NoError(t, err)
	return ds
}

func featureBins(t *testing.T, ds *Dataset, f int) []uint32 {
	t.Helper()
	it, ok := ds.FeatureIterator(f)
	require.True(t, ok)
	it.Reset(0)
	out := make([]uint32, ds.NumData())
	for r := range out {
		out[r] = it.Get(int32(r))
	}
	return out
}

// assertMatchesMatrix checks every stored feature against its mapper applied
// to the rows of x listed in rows.
func assertMatchesMatrix(t *testing.T, ds *Dataset, x mat.Matrix, rows []int) {
	t.Helper()
	require.Equal(t, int32(len(rows)), ds.NumData())
	for f := 0; f < ds.NumFeature(); f++ {
		m := ds.BinMapper(f)
		if m == nil {
			continue
		}
		got := featureBins(t, ds, f)
		for i, r := range rows {
			assert.Equal(t, m.ValueToBin(x.At(r, f)), got[i], "feature %d row %d", f, r)
		}
	}
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func TestFromMatrix_Bundling(t *testing.T) {
	x := sampleMatrix()
	ds := build(t, x)

	assert.Equal(t, int32(20), ds.NumData())
	assert.Equal(t, 5, ds.NumFeature())
	require.Equal(t, 3, ds.NumGroups())

	assert.Equal(t, []int{0}, ds.GroupFeatures(0))
	assert.Equal(t, []int{1, 2}, ds.GroupFeatures(1))
	assert.Equal(t, []int{4}, ds.GroupFeatures(2))

	assert.False(t, ds.Group(0).IsSparse())
	assert.False(t, ds.Group(1).IsSparse())
	assert.False(t, ds.Group(1).IsMultiVal())
	assert.Equal(t, []uint32{1, 2, 3}, ds.Group(1).BinOffsets())
	assert.True(t, ds.Group(2).IsSparse())

	g, sub, ok := ds.Locate(2)
	assert.True(t, ok)
	assert.Equal(t, 1, g)
	assert.Equal(t, 1, sub)

	assertMatchesMatrix(t, ds, x, allRows(20))
}

func TestFromMatrix_TrivialFeatureNotStored(t *testing.T) {
	ds := build(t, sampleMatrix())

	g, sub, ok := ds.Locate(3)
	assert.False(t, ok)
	assert.Equal(t, -1, g)
	assert.Equal(t, -1, sub)
	assert.Nil(t, ds.BinMapper(3))
	_, ok = ds.FeatureIterator(3)
	assert.False(t, ok)

	_, err := ds.BinCounts(3)
	var verr *scierrors.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, _, ok = ds.Locate(99)
	assert.False(t, ok)
}

func TestFromMatrix_ConflictRateAllowsOverlap(t *testing.T) {
	ds := build(t, sampleMatrix(), WithMaxConflictRate(0.5))

	require.Equal(t, 2, ds.NumGroups())
	assert.Equal(t, []int{1, 2, 4}, ds.GroupFeatures(1))
}

func TestFromMatrix_MaxGroupBins(t *testing.T) {
	ds := build(t, sampleMatrix(), WithMaxGroupBins(2), WithMultiValThreshold(0))

	require.Equal(t, 4, ds.NumGroups())
	for i := 0; i < ds.NumGroups(); i++ {
		assert.Len(t, ds.GroupFeatures(i), 1)
		assert.False(t, ds.Group(i).IsMultiVal())
	}
}

func TestFromMatrix_MultiValLeftovers(t *testing.T) {
	// cols 0 and 1 occupy the same rows, so neither can be bundled
	x := mat.NewDense(30, 3, nil)
	for r := 0; r < 30; r++ {
		x.Set(r, 2, float64(r%3))
	}
	for _, r := range []int{4, 9, 17} {
		x.Set(r, 0, 5)
		x.Set(r, 1, -2)
	}

	ds := build(t, x)
	require.Equal(t, 2, ds.NumGroups())
	assert.Equal(t, []int{2}, ds.GroupFeatures(0))
	assert.Equal(t, []int{0, 1}, ds.GroupFeatures(1))
	assert.True(t, ds.Group(1).IsMultiVal())
	assertMatchesMatrix(t, ds, x, allRows(30))

	ds = build(t, x, WithMultiValThreshold(0))
	assert.Equal(t, 3, ds.NumGroups())
}

func TestFromMatrix_Categorical(t *testing.T) {
	x := mat.NewDense(12, 2, nil)
	for r := 0; r < 12; r++ {
		x.Set(r, 0, float64(r%4)*10)
		x.Set(r, 1, float64(r))
	}
	ds := build(t, x, WithCategorical(0))

	m := ds.BinMapper(0)
	require.NotNil(t, m)
	assert.Equal(t, "categorical", m.BinType().String())
	assertMatchesMatrix(t, ds, x, allRows(12))

	left := make([]int32, 12)
	right := make([]int32, 12)
	rows := make([]int32, 12)
	for i := range rows {
		rows[i] = int32(i)
	}
	bin10 := m.ValueToBin(10)
	n := ds.Split(0, featuregroup.CategoricalThreshold(bin10), false, rows, left, right)
	assert.Equal(t, []int32{1, 5, 9}, left[:n])
}

func TestFromMatrix_WorkerCountDoesNotChangeResult(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := mat.NewDense(500, 6, nil)
	for r := 0; r < 500; r++ {
		for f := 0; f < 6; f++ {
			if f < 2 || rng.Float64() < 0.1 {
				x.Set(r, f, float64(rng.Intn(20)))
			}
		}
	}

	single := build(t, x, WithNumWorkers(1))
	many := build(t, x, WithNumWorkers(8))
	require.Equal(t, single.NumGroups(), many.NumGroups())
	for f := 0; f < 6; f++ {
		if single.BinMapper(f) == nil {
			continue
		}
		assert.Equal(t, featureBins(t, single, f), featureBins(t, many, f), "feature %d", f)
	}
	assertMatchesMatrix(t, many, x, allRows(500))
}

func TestFromMatrix_Errors(t *testing.T) {
	_, err := FromMatrix(mat.NewDense(3, 2, []float64{1, 1, 1, 1, 1, 1}), WithLogger(quietLogger()))
	var verr *scierrors.ValueError
	assert.ErrorAs(t, err, &verr)
}

func TestSplit_PartitionsOnThreshold(t *testing.T) {
	x := sampleMatrix()
	ds := build(t, x)
	rows := make([]int32, 20)
	for i := range rows {
		rows[i] = int32(i)
	}

	for _, f := range []int{0, 1, 2, 4} {
		m := ds.BinMapper(f)
		for th := uint32(0); th < uint32(m.NumBin()); th++ {
			left := make([]int32, len(rows))
			right := make([]int32, len(rows))
			n := ds.Split(f, featuregroup.NumericalThreshold(th), false, rows, left, right)

			union := append(append([]int32(nil), left[:n]...), right[:len(rows)-n]...)
			sort.Slice(union, func(i, j int) bool { return union[i] < union[j] })
			assert.Equal(t, rows, union)
			for _, r := range left[:n] {
				assert.LessOrEqual(t, m.ValueToBin(x.At(int(r), f)), th)
			}
			for _, r := range right[:len(rows)-n] {
				assert.Greater(t, m.ValueToBin(x.At(int(r), f)), th)
			}
		}
	}
}

func TestBinCounts(t *testing.T) {
	ds := build(t, sampleMatrix())

	counts, err := ds.BinCounts(0)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4, 4, 4, 4}, counts)

	counts, err = ds.BinCounts(1)
	require.NoError(t, err)
	assert.Equal(t, []int{18, 2}, counts)

	counts, err = ds.BinCounts(4)
	require.NoError(t, err)
	assert.Equal(t, []int{18, 2}, counts)
}

func TestSubset(t *testing.T) {
	x := sampleMatrix()
	ds := build(t, x)

	sub, err := ds.Subset([]int32{19, 0, 2, 3, 7})
	require.NoError(t, err)
	assert.Equal(t, ds.NumGroups(), sub.NumGroups())
	assertMatchesMatrix(t, sub, x, []int{19, 0, 2, 3, 7})

	// the source is untouched
	assertMatchesMatrix(t, ds, x, allRows(20))

	_, err = ds.Subset([]int32{20})
	assert.Error(t, err)
}

var codecs = []Compression{CompressionNone, CompressionLZ4, CompressionZSTD}

func TestSaveLoad_RoundTrip(t *testing.T) {
	x := sampleMatrix()
	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			ds := build(t, x, WithCompression(codec))
			var buf bytes.Buffer
			require.NoError(t, ds.Save(&buf))

			loaded, err := Load(buf.Bytes(), nil, WithLogger(quietLogger()))
			require.NoError(t, err)
			assert.Equal(t, ds.NumFeature(), loaded.NumFeature())
			require.Equal(t, ds.NumGroups(), loaded.NumGroups())
			for i := 0; i < ds.NumGroups(); i++ {
				assert.Equal(t, ds.GroupFeatures(i), loaded.GroupFeatures(i))
				assert.Equal(t, ds.Group(i).Layout(), loaded.Group(i).Layout())
			}
			_, _, ok := loaded.Locate(3)
			assert.False(t, ok)
			assertMatchesMatrix(t, loaded, x, allRows(20))
		})
	}
}

func TestLoad_RowSubset(t *testing.T) {
	x := sampleMatrix()
	ds := build(t, x, WithCompression(CompressionZSTD))
	var buf bytes.Buffer
	require.NoError(t, ds.Save(&buf))

	loaded, err := Load(buf.Bytes(), []int32{3, 0, 11}, WithLogger(quietLogger()))
	require.NoError(t, err)
	assertMatchesMatrix(t, loaded, x, []int{3, 0, 11})

	_, err = Load(buf.Bytes(), []int32{20}, WithLogger(quietLogger()))
	assert.Error(t, err)
}

func TestLoad_RejectsCorruptImages(t *testing.T) {
	ds := build(t, sampleMatrix())
	var buf bytes.Buffer
	require.NoError(t, ds.Save(&buf))
	image := buf.Bytes()

	for _, cut := range []int{0, 3, 10, 30, len(image) / 2, len(image) - 1} {
		_, err := Load(image[:cut], nil, WithLogger(quietLogger()))
		assert.Error(t, err, "cut at %d", cut)
	}

	bad := append([]byte(nil), image...)
	bad[0] = 'X'
	_, err := Load(bad, nil, WithLogger(quietLogger()))
	var verr *scierrors.ValueError
	assert.ErrorAs(t, err, &verr)
}

// imageHeader writes an image with one feature in group 0, the given size
// table and payload. payloadSize is written as is.
func imageHeader(codec Compression, groupSizes []uint64, rawSize, payloadSize uint64, payload []byte) []byte {
	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	_, _ = w.Write(imageMagic[:])
	w.Uint8(uint8(codec))
	w.Int32(1)
	w.Int32(1)
	w.Int32(int32(len(groupSizes)))
	w.Int32(0)
	w.Int32(0)
	for _, s := range groupSizes {
		w.Uint64(s)
	}
	w.Uint64(rawSize)
	w.Uint64(payloadSize)
	_, _ = w.Write(payload)
	return buf.Bytes()
}

func TestLoad_CorruptSizes(t *testing.T) {
	four := []byte{1, 2, 3, 4}
	tests := []struct {
		name        string
		codec       Compression
		groupSizes  []uint64
		rawSize     uint64
		payloadSize uint64
		payload     []byte
	}{
		{"zstd raw size beyond expansion", CompressionZSTD, []uint64{1 << 52}, 1 << 52, 4, four},
		{"lz4 raw size beyond expansion", CompressionLZ4, []uint64{1 << 20}, 1 << 20, 4, four},
		{"none raw size differs from payload", CompressionNone, []uint64{8}, 8, 4, four},
		{"group sizes overflow", CompressionNone, []uint64{1 << 63, 1 << 63}, 0, 0, nil},
		{"group size above raw size", CompressionNone, []uint64{5}, 4, 4, four},
		{"group sizes below raw size", CompressionNone, []uint64{2}, 4, 4, four},
		{"payload size beyond image", CompressionNone, []uint64{4}, 4, 1 << 40, four},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image := imageHeader(tt.codec, tt.groupSizes, tt.rawSize, tt.payloadSize, tt.payload)
			var ds *Dataset
			var err error
			require.NotPanics(t, func() {
				ds, err = Load(image, nil, WithLogger(quietLogger()))
			})
			assert.Nil(t, ds)
			var cerr *scierrors.CorruptDataError
			assert.ErrorAs(t, err, &cerr)
		})
	}

	_, err := Load(imageHeader(Compression(9), []uint64{4}, 4, 4, four), nil, WithLogger(quietLogger()))
	var verr *scierrors.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSaveFileLoadFile(t *testing.T) {
	x := sampleMatrix()
	ds := build(t, x, WithCompression(CompressionLZ4))
	path := filepath.Join(t.TempDir(), "train.fbin")
	require.NoError(t, ds.SaveFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	loaded, err := LoadFile(path, nil, WithLogger(quietLogger()))
	require.NoError(t, err)
	assertMatchesMatrix(t, loaded, x, allRows(20))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.fbin"), nil)
	assert.Error(t, err)
}

func TestSave_LogsCodec(t *testing.T) {
	logger, out := log.NewTestLogger(log.LevelInfo)
	ds, err := FromMatrix(sampleMatrix(), WithLogger(logger), WithCompression(CompressionZSTD))
	require.NoError(t, err)
	require.NoError(t, ds.Save(&bytes.Buffer{}))

	assert.Contains(t, out.String(), "Dataset saved")
	assert.Contains(t, out.String(), `"io.compression":"zstd"`)
}
