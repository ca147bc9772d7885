package dataset

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/featbin/bin"
)

func twoBinMapper(t *testing.T, sparseRate float64) *bin.BinMapper {
	t.Helper()
	m, err := bin.NewNumericalBinMapper([]float64{0.5, math.Inf(1)}, bin.MissingNone, 0, sparseRate)
	require.NoError(t, err)
	return m
}

func TestConflictRate(t *testing.T) {
	a := roaring.BitmapOf(1, 2, 3)
	b := roaring.BitmapOf(3, 4)
	assert.InDelta(t, 0.25, conflictRate(a, b), 1e-12)
	assert.Zero(t, conflictRate(roaring.New(), roaring.New()))
}

func TestBundler_Plan(t *testing.T) {
	mappers := []*bin.BinMapper{
		twoBinMapper(t, 0.3), // dense
		twoBinMapper(t, 0.9),
		twoBinMapper(t, 0.9),
		twoBinMapper(t, 0.9),
		twoBinMapper(t, 0.9),
	}
	occupied := []*roaring.Bitmap{
		nil,
		roaring.BitmapOf(0, 1),
		roaring.BitmapOf(2, 3),
		roaring.BitmapOf(0, 5),
		roaring.BitmapOf(1, 6),
	}
	cfg := newConfig(nil)

	bundles := newBundler(cfg).plan([]int{0, 1, 2, 3, 4}, mappers, occupied)
	require.Len(t, bundles, 3)
	assert.Equal(t, bundle{features: []int{0}}, bundles[0])
	// 2 has no conflicts and seeds the bundle; 1 overlaps 3 and 4
	assert.Equal(t, bundle{features: []int{1}}, bundles[1])
	assert.Equal(t, bundle{features: []int{2, 3, 4}}, bundles[2])
}

func TestBundler_EveryFeatureAssignedOnce(t *testing.T) {
	mappers := make([]*bin.BinMapper, 8)
	occupied := make([]*roaring.Bitmap, 8)
	for f := range mappers {
		mappers[f] = twoBinMapper(t, 0.9)
		occupied[f] = roaring.BitmapOf(uint32(f%3), uint32(10+f))
	}
	used := []int{0, 1, 2, 3, 5, 6, 7}

	bundles := newBundler(newConfig(nil)).plan(used, mappers, occupied)
	seen := map[int]int{}
	for _, b := range bundles {
		for _, f := range b.features {
			seen[f]++
		}
	}
	for _, f := range used {
		assert.Equal(t, 1, seen[f], "feature %d", f)
	}
	assert.NotContains(t, seen, 4)
}
