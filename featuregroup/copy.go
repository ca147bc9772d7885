package featuregroup

import (
	"github.com/YuminosukeSato/featbin/bin"
)

func copyMappers(src []*bin.BinMapper) []*bin.BinMapper {
	out := make([]*bin.BinMapper, len(src))
	for i, m := range src {
		out[i] = m.Copy()
	}
	return out
}

// Clone returns a deep copy sharing nothing with g.
func (g *FeatureGroup) Clone() *FeatureGroup {
	return &FeatureGroup{
		numFeature:  g.numFeature,
		mappers:     copyMappers(g.mappers),
		offsets:     append([]uint32(nil), g.offsets...),
		numTotalBin: g.numTotalBin,
		store:       g.store.clone(),
		logger:      g.logger,
	}
}

// NewResized copies the mappers of other into a group with empty storage for
// numData rows. The layout is decided again, clamped to other's sparsity.
func NewResized(other *FeatureGroup, numData int32) *FeatureGroup {
	g := &FeatureGroup{
		numFeature:  other.numFeature,
		mappers:     copyMappers(other.mappers),
		offsets:     append([]uint32(nil), other.offsets...),
		numTotalBin: other.numTotalBin,
		logger:      other.logger,
	}
	sparse := other.IsSparse()
	g.store = g.createStorage(numData, other.IsMultiVal(), !sparse, sparse)
	return g
}

// CopySubrow fills row i of g with row usedIndices[i] of full. Both groups
// must have the same layout.
func (g *FeatureGroup) CopySubrow(full *FeatureGroup, usedIndices []int32) {
	g.store.copySubrow(full.store, usedIndices)
}

// ReSize changes the number of rows in place, keeping the layout.
func (g *FeatureGroup) ReSize(numData int32) {
	g.store.reSize(numData)
}
