// Package dataset turns a numeric matrix into binned feature groups: it fits
// one bin mapper per feature, bundles mutually exclusive sparse features into
// shared groups, pushes every row in parallel and finalizes the storage.
package dataset

import (
	"math"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/featbin/bin"
	"github.com/YuminosukeSato/featbin/core/parallel"
	"github.com/YuminosukeSato/featbin/featuregroup"
	"github.com/YuminosukeSato/featbin/preprocessing"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
	"github.com/YuminosukeSato/featbin/pkg/log"
)

// pushParallelThreshold is the row count below which rows are pushed on a
// single goroutine.
const pushParallelThreshold = 4096

// Dataset is a set of feature groups over the same rows.
type Dataset struct {
	numData    int32
	numFeature int
	groups     []*featuregroup.FeatureGroup
	// featureGroup[f] and featureSub[f] locate feature f; -1 for trivial
	// features that are not stored.
	featureGroup []int
	featureSub   []int
	// groupFeatures[g] lists the raw features of group g in sub order.
	groupFeatures [][]int
	cfg           *config
	logger        log.Logger
}

// FromMatrix bins every column of x and builds the dataset.
func FromMatrix(x mat.Matrix, opts ...Option) (*Dataset, error) {
	start := time.Now()
	cfg := newConfig(opts)
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return nil, scierrors.Wrap(scierrors.ErrEmptyData, "dataset.FromMatrix")
	}
	if rows > math.MaxInt32 {
		return nil, scierrors.NewValidationError("rows", "more rows than an int32 row index can address", rows)
	}

	mappers, err := fitMappers(x, cfg)
	if err != nil {
		return nil, err
	}

	var used []int
	for f, m := range mappers {
		if !m.IsTrivial() {
			used = append(used, f)
		}
	}
	if len(used) == 0 {
		return nil, scierrors.NewValueError("dataset.FromMatrix", "every feature is trivial")
	}

	occupied := occupiedRows(x, mappers, used)
	bundles := newBundler(cfg).plan(used, mappers, occupied)

	ds := &Dataset{
		numData:    int32(rows),
		numFeature: cols,
		cfg:        cfg,
		logger:     cfg.logger,
	}
	if err := ds.buildGroups(bundles, mappers); err != nil {
		return nil, err
	}
	ds.pushRows(x)
	if err := ds.finishLoad(); err != nil {
		return nil, err
	}

	ds.logger.Info("Dataset constructed",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"groups", len(ds.groups),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return ds, nil
}

func fitMappers(x mat.Matrix, cfg *config) ([]*bin.BinMapper, error) {
	d := &preprocessing.BinDiscretizer{
		MaxBin:        cfg.maxBin,
		Categorical:   cfg.categorical,
		UseMissing:    cfg.useMissing,
		ZeroAsMissing: cfg.zeroAsMissing,
	}
	if err := d.Fit(x); err != nil {
		return nil, err
	}
	return d.Mappers(), nil
}

// occupiedRows returns, for every used feature, the rows whose bin differs
// from the feature's most frequent bin.
func occupiedRows(x mat.Matrix, mappers []*bin.BinMapper, used []int) []*roaring.Bitmap {
	rows, _ := x.Dims()
	occupied := make([]*roaring.Bitmap, len(mappers))
	parallel.Parallelize(len(used), func(_, start, end int) {
		for _, f := range used[start:end] {
			m := mappers[f]
			bm := roaring.New()
			for r := 0; r < rows; r++ {
				if m.ValueToBin(x.At(r, f)) != m.MostFreqBin() {
					bm.Add(uint32(r))
				}
			}
			occupied[f] = bm
		}
	})
	return occupied
}

func (ds *Dataset) buildGroups(bundles []bundle, mappers []*bin.BinMapper) error {
	ds.featureGroup = make([]int, ds.numFeature)
	ds.featureSub = make([]int, ds.numFeature)
	for f := range ds.featureGroup {
		ds.featureGroup[f] = -1
		ds.featureSub[f] = -1
	}

	for gi, b := range bundles {
		groupMappers := make([]*bin.BinMapper, len(b.features))
		for sub, f := range b.features {
			groupMappers[sub] = mappers[f]
			ds.featureGroup[f] = gi
			ds.featureSub[f] = sub
		}
		g, err := featuregroup.New(len(b.features), b.multiVal, groupMappers, ds.numData,
			featuregroup.WithLogger(ds.logger.With(log.GroupIndexKey, gi)))
		if err != nil {
			return scierrors.Wrapf(err, "build feature group %d", gi)
		}
		ds.groups = append(ds.groups, g)
		ds.groupFeatures = append(ds.groupFeatures, b.features)
	}
	return nil
}

// pushRows writes every row. Each worker owns a contiguous row range, so no
// two goroutines touch the same cell.
func (ds *Dataset) pushRows(x mat.Matrix) {
	push := func(worker, start, end int) {
		for r := start; r < end; r++ {
			for gi, g := range ds.groups {
				for sub, f := range ds.groupFeatures[gi] {
					g.PushData(worker, sub, int32(r), x.At(r, f))
				}
			}
		}
	}
	rows := int(ds.numData)
	if ds.cfg.numWorkers > 0 {
		parallel.ParallelizeWorkers(rows, ds.cfg.numWorkers, push)
		return
	}
	parallel.ParallelizeWithThreshold(rows, pushParallelThreshold, push)
}

// finishLoad finalizes every group; all failures are reported together.
func (ds *Dataset) finishLoad() error {
	failed := make([]bool, len(ds.groups))
	err := parallel.RunAll(len(ds.groups), func(i int) error {
		return ds.groups[i].FinishLoad()
	}, func(i int, err error) error {
		failed[i] = true
		return scierrors.Wrapf(err, "feature group %d", i)
	})
	if err != nil {
		n := 0
		for _, f := range failed {
			if f {
				n++
			}
		}
		ds.logger.Error("Dataset finish load failed", err,
			log.OperationKey, log.OperationFinishLoad,
			log.FailedUnitsKey, n,
		)
	}
	return err
}

// NumData returns the number of rows.
func (ds *Dataset) NumData() int32 { return ds.numData }

// NumFeature returns the number of raw features, stored or not.
func (ds *Dataset) NumFeature() int { return ds.numFeature }

// NumGroups returns the number of feature groups.
func (ds *Dataset) NumGroups() int { return len(ds.groups) }

// Group returns feature group i.
func (ds *Dataset) Group(i int) *featuregroup.FeatureGroup { return ds.groups[i] }

// GroupFeatures returns the raw features of group i in sub-feature order.
func (ds *Dataset) GroupFeatures(i int) []int {
	return append([]int(nil), ds.groupFeatures[i]...)
}

// Locate returns the group and sub-feature index of feature f. ok is false
// for trivial features, which are not stored.
func (ds *Dataset) Locate(f int) (group, sub int, ok bool) {
	if f < 0 || f >= ds.numFeature || ds.featureGroup[f] < 0 {
		return -1, -1, false
	}
	return ds.featureGroup[f], ds.featureSub[f], true
}

// BinMapper returns the mapper of a stored feature, or nil.
func (ds *Dataset) BinMapper(f int) *bin.BinMapper {
	g, sub, ok := ds.Locate(f)
	if !ok {
		return nil
	}
	return ds.groups[g].BinMapper(sub)
}

// FeatureIterator iterates the bin ids of stored feature f.
func (ds *Dataset) FeatureIterator(f int) (bin.BinIterator, bool) {
	g, sub, ok := ds.Locate(f)
	if !ok {
		return nil, false
	}
	return ds.groups[g].SubFeatureIterator(sub), true
}

// Split partitions dataIndices on stored feature f; see FeatureGroup.Split.
func (ds *Dataset) Split(f int, threshold featuregroup.Threshold, defaultLeft bool,
	dataIndices, lteIndices, gtIndices []int32) int {
	return ds.groups[ds.featureGroup[f]].Split(ds.featureSub[f], threshold, defaultLeft,
		dataIndices, lteIndices, gtIndices)
}

// BinCounts returns the number of rows in each bin of stored feature f.
func (ds *Dataset) BinCounts(f int) ([]int, error) {
	m := ds.BinMapper(f)
	if m == nil {
		return nil, scierrors.NewValidationError("feature", "not stored (trivial or out of range)", f)
	}
	it, _ := ds.FeatureIterator(f)
	counts := make([]int, m.NumBin())
	it.Reset(0)
	for r := int32(0); r < ds.numData; r++ {
		counts[it.Get(r)]++
	}
	return counts, nil
}

// Subset returns a dataset holding rows usedIndices, in that order.
func (ds *Dataset) Subset(usedIndices []int32) (*Dataset, error) {
	for _, idx := range usedIndices {
		if idx < 0 || idx >= ds.numData {
			return nil, scierrors.NewValidationError("used_indices", "row out of range", idx)
		}
	}
	sub := ds.shallowLayout(int32(len(usedIndices)))
	sub.groups = make([]*featuregroup.FeatureGroup, len(ds.groups))
	for i, g := range ds.groups {
		sub.groups[i] = featuregroup.NewResized(g, sub.numData)
		sub.groups[i].CopySubrow(g, usedIndices)
	}
	ds.logger.Debug("Subset built",
		log.OperationKey, log.OperationCopySubrow,
		log.SamplesKey, ds.numData,
		log.UsedSamplesKey, sub.numData,
	)
	return sub, nil
}

// shallowLayout copies the feature placement of ds for numData rows, without
// groups.
func (ds *Dataset) shallowLayout(numData int32) *Dataset {
	return &Dataset{
		numData:       numData,
		numFeature:    ds.numFeature,
		featureGroup:  append([]int(nil), ds.featureGroup...),
		featureSub:    append([]int(nil), ds.featureSub...),
		groupFeatures: ds.groupFeatures,
		cfg:           ds.cfg,
		logger:        ds.logger,
	}
}
