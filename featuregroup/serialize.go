package featuregroup

import (
	"io"

	"github.com/YuminosukeSato/featbin/bin"
	"github.com/YuminosukeSato/featbin/core/binio"
	"github.com/YuminosukeSato/featbin/pkg/log"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

const groupHeaderSize = 2*binio.SizeBool + binio.SizeInt32

// SizesInByte returns the length of the record SaveBinaryToFile writes.
func (g *FeatureGroup) SizesInByte() int {
	n := groupHeaderSize
	for _, m := range g.mappers {
		n += m.SizesInByte()
	}
	return n + g.store.sizesInByte()
}

// SaveBinaryToFile writes
// [is_multi_val:1][is_sparse:1][num_feature:4][bin mappers][bin data],
// where bin data is one record per feature for multi-value groups and a
// single record otherwise.
func (g *FeatureGroup) SaveBinaryToFile(w io.Writer) error {
	bw := binio.NewWriter(w)
	bw.Bool(g.IsMultiVal())
	bw.Bool(g.IsSparse())
	bw.Int32(int32(g.numFeature))
	if err := bw.Err(); err != nil {
		return scierrors.Wrap(err, "write feature group header")
	}
	for i, m := range g.mappers {
		if err := m.SaveBinaryToFile(bw); err != nil {
			return scierrors.Wrapf(err, "write bin mapper %d", i)
		}
	}
	return g.store.save(bw)
}

// NewFromMemory rebuilds a group from a record written by SaveBinaryToFile
// for numAllData rows. A nil localUsedIndices loads every row. A non-nil
// localUsedIndices materializes only those rows, row i taking full row
// localUsedIndices[i]; an empty non-nil slice therefore loads zero rows.
//
// The buffer is trusted: a short or corrupt buffer may panic. Use
// NewFromMemoryChecked for untrusted input.
func NewFromMemory(buf []byte, numAllData int32, localUsedIndices []int32, opts ...Option) (*FeatureGroup, error) {
	return load(binio.NewReader(buf), numAllData, localUsedIndices, opts)
}

// NewFromMemoryChecked is NewFromMemory with every read validated; a short
// buffer yields a CorruptDataError.
func NewFromMemoryChecked(buf []byte, numAllData int32, localUsedIndices []int32, opts ...Option) (*FeatureGroup, error) {
	return load(binio.NewCheckedReader(buf), numAllData, localUsedIndices, opts)
}

func load(r *binio.Reader, numAllData int32, localUsedIndices []int32, opts []Option) (*FeatureGroup, error) {
	isMultiVal := r.Bool()
	isSparse := r.Bool()
	numFeature := int(r.Int32())
	if err := r.Err(); err != nil {
		return nil, err
	}
	if r.Checked() && (numFeature <= 0 || numFeature > r.Len()) {
		return nil, scierrors.NewCorruptDataError("featuregroup.load", r.Offset(), numFeature, r.Len())
	}

	mappers := make([]*bin.BinMapper, numFeature)
	for i := range mappers {
		m, err := bin.ReadBinMapper(r)
		if err != nil {
			return nil, scierrors.Wrapf(err, "read bin mapper %d", i)
		}
		mappers[i] = m
	}

	cfg := newConfig(opts)
	g := &FeatureGroup{
		numFeature: numFeature,
		mappers:    mappers,
		logger:     cfg.logger,
	}
	g.initOffsets()

	numData := numAllData
	if localUsedIndices != nil {
		numData = int32(len(localUsedIndices))
	}
	// the stored flag decides a shared bin's layout; per-feature bins are
	// judged again as at construction
	g.store = g.createStorage(numData, isMultiVal, !isSparse, isSparse)
	if err := g.store.load(r, numAllData, localUsedIndices); err != nil {
		g.logger.Error("Feature group load failed", err,
			log.OperationKey, log.OperationLoad,
			log.ErrorCodeKey, log.ErrorCorruptData,
		)
		return nil, err
	}

	g.logger.Debug("Feature group loaded",
		log.OperationKey, log.OperationLoad,
		log.GroupFeaturesKey, numFeature,
		log.GroupLayoutKey, g.Layout(),
		log.SamplesKey, numAllData,
		log.UsedSamplesKey, numData,
	)
	return g, nil
}
