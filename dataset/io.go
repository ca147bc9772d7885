package dataset

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/YuminosukeSato/featbin/core/binio"
	"github.com/YuminosukeSato/featbin/featuregroup"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
	"github.com/YuminosukeSato/featbin/pkg/log"
)

var imageMagic = [4]byte{'F', 'B', 'I', 'N'}

// Save writes the dataset image:
//
//	[magic:4][codec:1][num_data:4][num_feature:4][num_groups:4]
//	[num_feature x (group:4, sub:4)][num_groups x group_size:8]
//	[raw_size:8][payload_size:8][payload]
//
// The payload is the concatenated feature group records, compressed with the
// codec set by WithCompression.
func (ds *Dataset) Save(w io.Writer) error {
	start := time.Now()
	var body bytes.Buffer
	sizes := make([]uint64, len(ds.groups))
	for i, g := range ds.groups {
		body.Grow(g.SizesInByte())
		before := body.Len()
		if err := g.SaveBinaryToFile(&body); err != nil {
			return scierrors.Wrapf(err, "save feature group %d", i)
		}
		sizes[i] = uint64(body.Len() - before)
	}

	codec, payload, err := compress(ds.cfg.compression, body.Bytes())
	if err != nil {
		return err
	}

	bw := binio.NewWriter(w)
	_, _ = bw.Write(imageMagic[:])
	bw.Uint8(uint8(codec))
	bw.Int32(ds.numData)
	bw.Int32(int32(ds.numFeature))
	bw.Int32(int32(len(ds.groups)))
	for f := 0; f < ds.numFeature; f++ {
		bw.Int32(int32(ds.featureGroup[f]))
		bw.Int32(int32(ds.featureSub[f]))
	}
	for _, s := range sizes {
		bw.Uint64(s)
	}
	bw.Uint64(uint64(body.Len()))
	bw.Uint64(uint64(len(payload)))
	_, _ = bw.Write(payload)
	if err := bw.Err(); err != nil {
		return scierrors.Wrap(err, "write dataset image")
	}

	ds.logger.Info("Dataset saved",
		log.OperationKey, log.OperationSave,
		log.DataSizeKey, bw.Written(),
		log.CompressionKey, codec.String(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// SaveFile writes the dataset image to path.
func (ds *Dataset) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return scierrors.Wrapf(err, "create %s", path)
	}
	bw := bufio.NewWriter(f)
	if err := ds.Save(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return scierrors.Wrapf(err, "flush %s", path)
	}
	return f.Close()
}

// Load rebuilds a dataset from an image written by Save. A nil
// localUsedIndices loads every row; a non-nil one materializes only those
// rows, in that order, so an empty non-nil slice loads zero rows. The image is
// validated while decoding and a corrupt image is reported as an error.
func Load(buf []byte, localUsedIndices []int32, opts ...Option) (*Dataset, error) {
	cfg := newConfig(opts)
	r := binio.NewCheckedReader(buf)
	if magic := r.Bytes(len(imageMagic)); r.Err() == nil && !bytes.Equal(magic, imageMagic[:]) {
		return nil, scierrors.NewValueError("dataset.Load", "not a featbin dataset image")
	}
	codec := Compression(r.Uint8())
	numData := r.Int32()
	numFeature := int(r.Int32())
	numGroups := int(r.Int32())
	if err := r.Err(); err != nil {
		return nil, err
	}
	need := numFeature*2*binio.SizeInt32 + numGroups*binio.SizeUint64
	if numData < 0 || numFeature < 0 || numGroups < 0 || need > r.Len() {
		return nil, scierrors.NewCorruptDataError("dataset.Load", r.Offset(), need, r.Len())
	}
	for _, idx := range localUsedIndices {
		if idx < 0 || idx >= numData {
			return nil, scierrors.NewValidationError("used_indices", "row out of range", idx)
		}
	}

	ds := &Dataset{
		numData:       numData,
		numFeature:    numFeature,
		featureGroup:  make([]int, numFeature),
		featureSub:    make([]int, numFeature),
		groupFeatures: make([][]int, numGroups),
		cfg:           cfg,
		logger:        cfg.logger,
	}
	for f := 0; f < numFeature; f++ {
		g, sub := int(r.Int32()), int(r.Int32())
		ds.featureGroup[f], ds.featureSub[f] = g, sub
		if g < 0 {
			continue
		}
		if g >= numGroups {
			return nil, scierrors.NewCorruptDataError("dataset.Load", r.Offset(), numGroups, g)
		}
		ds.groupFeatures[g] = append(ds.groupFeatures[g], f)
	}
	for g := range ds.groupFeatures {
		feats := ds.groupFeatures[g]
		sort.Slice(feats, func(i, j int) bool { return ds.featureSub[feats[i]] < ds.featureSub[feats[j]] })
	}

	groupSizes := make([]uint64, numGroups)
	for i := range groupSizes {
		groupSizes[i] = r.Uint64()
	}
	rawSize := r.Uint64()
	payloadSize := r.Uint64()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if payloadSize > uint64(r.Len()) {
		return nil, scierrors.NewCorruptDataError("dataset.Load", r.Offset(), clampInt(payloadSize), r.Len())
	}
	payload := r.Bytes(int(payloadSize))
	sizes, err := checkSizes(codec, groupSizes, rawSize, payloadSize)
	if err != nil {
		return nil, err
	}
	body, err := decompress(codec, payload, int(rawSize))
	if err != nil {
		return nil, err
	}

	var used []int32
	if localUsedIndices != nil {
		used = localUsedIndices
		ds.numData = int32(len(localUsedIndices))
	}
	off := 0
	ds.groups = make([]*featuregroup.FeatureGroup, numGroups)
	for i, size := range sizes {
		if size < 0 || off+size > len(body) {
			return nil, scierrors.NewCorruptDataError("dataset.Load", off, size, len(body)-off)
		}
		g, err := featuregroup.NewFromMemoryChecked(body[off:off+size], numData, used,
			featuregroup.WithLogger(ds.logger.With(log.GroupIndexKey, i)))
		if err != nil {
			return nil, scierrors.Wrapf(err, "load feature group %d", i)
		}
		if g.NumFeature() != len(ds.groupFeatures[i]) {
			return nil, scierrors.NewDimensionError("dataset.Load", len(ds.groupFeatures[i]), g.NumFeature(), 1)
		}
		ds.groups[i] = g
		off += size
	}

	ds.logger.Info("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.SamplesKey, numData,
		log.UsedSamplesKey, ds.numData,
		log.CompressionKey, codec.String(),
	)
	return ds, nil
}

// checkSizes validates the size table against the payload before anything is
// allocated from it: every group size and their sum must match rawSize, and
// rawSize cannot exceed what codec can expand payloadSize bytes into.
func checkSizes(codec Compression, groupSizes []uint64, rawSize, payloadSize uint64) ([]int, error) {
	ratio := maxExpansion(codec)
	if ratio == 0 {
		return nil, scierrors.NewValidationError("compression", "unknown codec", uint8(codec))
	}
	limit := payloadSize * ratio
	if rawSize > limit {
		return nil, scierrors.NewCorruptDataError("dataset.Load", 0, clampInt(limit), clampInt(rawSize))
	}
	sizes := make([]int, len(groupSizes))
	var total uint64
	for i, size := range groupSizes {
		if size > rawSize-total {
			return nil, scierrors.NewCorruptDataError("dataset.Load", i, clampInt(rawSize-total), clampInt(size))
		}
		total += size
		sizes[i] = int(size)
	}
	if total != rawSize {
		return nil, scierrors.NewCorruptDataError("dataset.Load", 0, clampInt(rawSize), clampInt(total))
	}
	return sizes, nil
}

func clampInt(v uint64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}

// LoadFile reads a dataset image from path.
func LoadFile(path string, localUsedIndices []int32, opts ...Option) (*Dataset, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, scierrors.Wrapf(err, "read %s", path)
	}
	return Load(buf, localUsedIndices, opts...)
}
