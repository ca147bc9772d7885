package featuregroup

import (
	"io"

	"github.com/YuminosukeSato/featbin/bin"
	"github.com/YuminosukeSato/featbin/core/binio"
	"github.com/YuminosukeSato/featbin/core/parallel"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

// storage is the bin data of a group: exactly one of sharedStorage or
// perFeatureStorage.
type storage interface {
	numData() int32
	finishLoad() error
	clone() storage
	reSize(numData int32)
	copySubrow(full storage, usedIndices []int32)
	sizesInByte() int
	save(w io.Writer) error
	load(r *binio.Reader, numAllData int32, localUsedIndices []int32) error
}

// sharedStorage packs every feature of the group into one bin-id space.
type sharedStorage struct {
	data bin.Bin
}

// perFeatureStorage gives each feature a private bin.
type perFeatureStorage struct {
	bins []bin.Bin
}

func (s *sharedStorage) numData() int32 { return s.data.NumData() }

func (s *sharedStorage) finishLoad() error {
	if err := s.data.FinishLoad(); err != nil {
		return scierrors.Wrap(err, "finish load of shared bin")
	}
	return nil
}

func (s *sharedStorage) clone() storage { return &sharedStorage{data: s.data.Clone()} }

func (s *sharedStorage) reSize(numData int32) { s.data.ReSize(numData) }

func (s *sharedStorage) copySubrow(full storage, usedIndices []int32) {
	s.data.CopySubrow(full.(*sharedStorage).data, usedIndices)
}

func (s *sharedStorage) sizesInByte() int { return s.data.SizesInByte() }

func (s *sharedStorage) save(w io.Writer) error { return s.data.SaveBinaryToFile(w) }

func (s *sharedStorage) load(r *binio.Reader, numAllData int32, localUsedIndices []int32) error {
	return s.data.LoadFromMemory(r, numAllData, localUsedIndices)
}

func (s *perFeatureStorage) numData() int32 { return s.bins[0].NumData() }

// finishLoad finalizes every feature concurrently and reports all failures
// once every feature is done.
func (s *perFeatureStorage) finishLoad() error {
	return parallel.RunAll(len(s.bins), func(i int) error {
		return s.bins[i].FinishLoad()
	}, scierrors.NewFinalizeError)
}

func (s *perFeatureStorage) clone() storage {
	bins := make([]bin.Bin, len(s.bins))
	for i, b := range s.bins {
		bins[i] = b.Clone()
	}
	return &perFeatureStorage{bins: bins}
}

func (s *perFeatureStorage) reSize(numData int32) {
	for _, b := range s.bins {
		b.ReSize(numData)
	}
}

func (s *perFeatureStorage) copySubrow(full storage, usedIndices []int32) {
	other := full.(*perFeatureStorage)
	for i, b := range s.bins {
		b.CopySubrow(other.bins[i], usedIndices)
	}
}

func (s *perFeatureStorage) sizesInByte() int {
	n := 0
	for _, b := range s.bins {
		n += b.SizesInByte()
	}
	return n
}

func (s *perFeatureStorage) save(w io.Writer) error {
	for i, b := range s.bins {
		if err := b.SaveBinaryToFile(w); err != nil {
			return scierrors.Wrapf(err, "save bin of feature %d", i)
		}
	}
	return nil
}

func (s *perFeatureStorage) load(r *binio.Reader, numAllData int32, localUsedIndices []int32) error {
	for i, b := range s.bins {
		if err := b.LoadFromMemory(r, numAllData, localUsedIndices); err != nil {
			return scierrors.Wrapf(err, "load bin of feature %d", i)
		}
	}
	return nil
}
