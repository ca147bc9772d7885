// Package featuregroup packs the binned columns of several features into
// storage a tree learner can split on.
//
// A single-value group shares one bin-id space across its features: feature
// i owns ids [offsets[i], offsets[i+1]) and id 0 stands for "every feature
// holds its most frequent bin". A multi-value group keeps one private bin per
// feature instead.
package featuregroup

import (
	"fmt"

	"github.com/YuminosukeSato/featbin/bin"
	"github.com/YuminosukeSato/featbin/pkg/log"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

// FeatureGroup owns the bin mappers and bin storage of a set of features.
//
// PushData may be called from many goroutines as long as no two of them write
// the same (feature, row) cell. Split and the iterators are read-only and
// safe for concurrent use once FinishLoad has returned.
type FeatureGroup struct {
	numFeature  int
	mappers     []*bin.BinMapper
	offsets     []uint32
	numTotalBin int
	store       storage
	logger      log.Logger
}

// New builds an empty group over numData rows. The group takes ownership of
// mappers, whose length must equal numFeature.
func New(numFeature int, isMultiVal bool, mappers []*bin.BinMapper, numData int32, opts ...Option) (*FeatureGroup, error) {
	if len(mappers) != numFeature {
		return nil, scierrors.NewValidationError("mappers",
			fmt.Sprintf("expected %d bin mappers", numFeature), len(mappers))
	}
	if numFeature == 0 {
		return nil, scierrors.NewValidationError("num_feature", "a group needs at least one feature", numFeature)
	}
	if numData < 0 {
		return nil, scierrors.NewValidationError("num_data", "must not be negative", numData)
	}
	cfg := newConfig(opts)
	g := &FeatureGroup{
		numFeature: numFeature,
		mappers:    mappers,
		logger:     cfg.logger,
	}
	g.initOffsets()
	g.store = g.createStorage(numData, isMultiVal, cfg.forceDense, cfg.forceSparse)

	g.logger.Debug("Layout decided",
		log.GroupFeaturesKey, numFeature,
		log.GroupLayoutKey, g.Layout(),
		log.TotalBinKey, g.numTotalBin,
		log.SamplesKey, numData,
	)
	return g, nil
}

// NewSingle builds a single-value group holding one feature.
func NewSingle(mapper *bin.BinMapper, numData int32, opts ...Option) (*FeatureGroup, error) {
	return New(1, false, []*bin.BinMapper{mapper}, numData, opts...)
}

// initOffsets lays features out from id 1. A feature whose most frequent bin
// is 0 gives that bin up to the shared id 0.
func (g *FeatureGroup) initOffsets() {
	g.offsets = make([]uint32, 0, g.numFeature+1)
	g.numTotalBin = 1
	g.offsets = append(g.offsets, 1)
	for _, m := range g.mappers {
		numBin := m.NumBin()
		if m.MostFreqBin() == 0 {
			numBin--
		}
		g.numTotalBin += numBin
		g.offsets = append(g.offsets, uint32(g.numTotalBin))
	}
}

// createStorage picks the layout. Per-feature bins are judged one by one;
// a shared bin is sparse only when forced or when it holds a lone sparse
// feature.
func (g *FeatureGroup) createStorage(numData int32, isMultiVal, forceDense, forceSparse bool) storage {
	if isMultiVal {
		bins := make([]bin.Bin, g.numFeature)
		for i, m := range g.mappers {
			numBin := m.NumBin()
			if m.MostFreqBin() != 0 {
				numBin++
			}
			if m.SparseRate() >= bin.SparseThreshold {
				bins[i] = bin.CreateSparseBin(numData, numBin)
			} else {
				bins[i] = bin.CreateDenseBin(numData, numBin)
			}
		}
		return &perFeatureStorage{bins: bins}
	}

	sparse := forceSparse ||
		(!forceDense && g.numFeature == 1 && g.mappers[0].SparseRate() >= bin.SparseThreshold)
	if sparse {
		return &sharedStorage{data: bin.CreateSparseBin(numData, g.numTotalBin)}
	}
	return &sharedStorage{data: bin.CreateDenseBin(numData, g.numTotalBin)}
}

// privateMaxBin is the highest id a feature's own bin can hold.
func privateMaxBin(m *bin.BinMapper) uint32 {
	maxBin := uint32(m.NumBin()) - 1
	if m.MostFreqBin() != 0 {
		maxBin++
	}
	return maxBin
}

// NumFeature returns the number of features in the group.
func (g *FeatureGroup) NumFeature() int { return g.numFeature }

// NumTotalBin is the size of the shared bin-id space.
func (g *FeatureGroup) NumTotalBin() int { return g.numTotalBin }

// NumData returns the number of rows of the storage.
func (g *FeatureGroup) NumData() int32 { return g.store.numData() }

// BinOffsets returns a copy of the offset table.
func (g *FeatureGroup) BinOffsets() []uint32 {
	return append([]uint32(nil), g.offsets...)
}

// BinMapper returns the mapper of sub-feature sub.
func (g *FeatureGroup) BinMapper(sub int) *bin.BinMapper { return g.mappers[sub] }

// IsMultiVal reports per-feature storage.
func (g *FeatureGroup) IsMultiVal() bool {
	_, ok := g.store.(*perFeatureStorage)
	return ok
}

// IsSparse reports a sparse shared bin. Multi-value groups report false.
func (g *FeatureGroup) IsSparse() bool {
	s, ok := g.store.(*sharedStorage)
	return ok && s.data.IsSparse()
}

// Layout names the storage layout for logs and inspection.
func (g *FeatureGroup) Layout() string {
	switch {
	case g.IsMultiVal():
		return log.LayoutMultiVal
	case g.IsSparse():
		return log.LayoutSparse
	default:
		return log.LayoutDense
	}
}

// PushData bins value and stores it for row of sub-feature sub. Values falling
// in the feature's most frequent bin are not stored.
//
// tid selects the push buffer of sparse storage. Any tid is accepted; tids in
// [0, parallel.NumWorkers()) avoid lock contention.
func (g *FeatureGroup) PushData(tid, sub int, row int32, value float64) {
	m := g.mappers[sub]
	b := m.ValueToBin(value)
	if b == m.MostFreqBin() {
		return
	}
	if m.MostFreqBin() == 0 {
		b--
	}
	switch s := g.store.(type) {
	case *perFeatureStorage:
		s.bins[sub].Push(tid, row, b+1)
	case *sharedStorage:
		s.data.Push(tid, row, b+g.offsets[sub])
	}
}

// FinishLoad finalizes the storage. Per-feature bins are finalized
// concurrently; every failure is returned joined after all of them finish.
func (g *FeatureGroup) FinishLoad() error {
	err := g.store.finishLoad()
	if err != nil {
		g.logger.Error("Finish load failed", err,
			log.OperationKey, log.OperationFinishLoad,
			log.ErrorCodeKey, log.ErrorFinishLoad,
			log.GroupLayoutKey, g.Layout(),
		)
	}
	return err
}

// SubFeatureIterator iterates the native bin ids of sub-feature sub.
func (g *FeatureGroup) SubFeatureIterator(sub int) bin.BinIterator {
	m := g.mappers[sub]
	if s, ok := g.store.(*perFeatureStorage); ok {
		return s.bins[sub].GetIterator(1, privateMaxBin(m), m.MostFreqBin())
	}
	shared := g.store.(*sharedStorage).data
	return shared.GetIterator(g.offsets[sub], g.offsets[sub+1]-1, m.MostFreqBin())
}

// FeatureGroupIterator iterates the shared bin-id space. It is unavailable
// for multi-value groups.
func (g *FeatureGroup) FeatureGroupIterator() (bin.BinIterator, bool) {
	s, ok := g.store.(*sharedStorage)
	if !ok {
		return nil, false
	}
	return s.data.GetIterator(g.offsets[0], g.offsets[g.numFeature]-1, 0), true
}

// BinToValue returns the representative raw value of bin b of sub-feature sub.
func (g *FeatureGroup) BinToValue(sub int, b uint32) float64 {
	return g.mappers[sub].BinToValue(b)
}
