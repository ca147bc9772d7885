package dataset

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/YuminosukeSato/featbin/bin"
)

// bundle lists the features of one future feature group.
type bundle struct {
	features []int
	multiVal bool
}

// bundler implements exclusive feature bundling: sparse features whose
// occupied rows (bin != most frequent bin) rarely overlap share one bin-id
// space.
type bundler struct {
	sparseThreshold   float64
	maxConflictRate   float64
	maxGroupBins      int
	multiValThreshold int
}

func newBundler(cfg *config) *bundler {
	return &bundler{
		sparseThreshold:   cfg.sparseThreshold,
		maxConflictRate:   cfg.maxConflictRate,
		maxGroupBins:      cfg.maxGroupBins,
		multiValThreshold: cfg.multiValThreshold,
	}
}

// groupBins is the shared bin count a feature adds to a bundle.
func groupBins(m *bin.BinMapper) int {
	if m.MostFreqBin() == 0 {
		return m.NumBin() - 1
	}
	return m.NumBin()
}

// conflictRate is |a ∩ b| / |a ∪ b|.
func conflictRate(a, b *roaring.Bitmap) float64 {
	union := a.OrCardinality(b)
	if union == 0 {
		return 0
	}
	return float64(a.AndCardinality(b)) / float64(union)
}

// plan assigns every feature listed in used to exactly one bundle. occupied[f]
// holds the rows where feature f is not in its most frequent bin.
func (b *bundler) plan(used []int, mappers []*bin.BinMapper, occupied []*roaring.Bitmap) []bundle {
	var bundles []bundle
	var candidates []int
	for _, f := range used {
		if mappers[f].SparseRate() >= b.sparseThreshold {
			candidates = append(candidates, f)
		} else {
			bundles = append(bundles, bundle{features: []int{f}})
		}
	}
	if len(candidates) == 0 {
		return bundles
	}

	n := len(candidates)
	conflicts := make([][]float64, n)
	for i := range conflicts {
		conflicts[i] = make([]float64, n)
	}
	degree := make([]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rate := conflictRate(occupied[candidates[i]], occupied[candidates[j]])
			conflicts[i][j] = rate
			conflicts[j][i] = rate
			if rate > b.maxConflictRate {
				degree[i]++
				degree[j]++
			}
		}
	}

	// fewest conflicts first
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool { return degree[order[x]] < degree[order[y]] })

	assigned := make([]bool, n)
	var singles []int
	for _, seed := range order {
		if assigned[seed] {
			continue
		}
		assigned[seed] = true
		members := []int{seed}
		totalBins := 1 + groupBins(mappers[candidates[seed]])

		for _, i := range order {
			if assigned[i] {
				continue
			}
			nb := groupBins(mappers[candidates[i]])
			if totalBins+nb > b.maxGroupBins {
				continue
			}
			canAdd := true
			for _, m := range members {
				if conflicts[i][m] > b.maxConflictRate {
					canAdd = false
					break
				}
			}
			if canAdd {
				members = append(members, i)
				assigned[i] = true
				totalBins += nb
			}
		}

		if len(members) == 1 {
			singles = append(singles, candidates[seed])
			continue
		}
		features := make([]int, len(members))
		for k, m := range members {
			features[k] = candidates[m]
		}
		sort.Ints(features)
		bundles = append(bundles, bundle{features: features})
	}

	sort.Ints(singles)
	if b.multiValThreshold > 0 && len(singles) >= b.multiValThreshold {
		bundles = append(bundles, bundle{features: singles, multiVal: true})
	} else {
		for _, f := range singles {
			bundles = append(bundles, bundle{features: []int{f}})
		}
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		if bundles[i].multiVal != bundles[j].multiVal {
			return !bundles[i].multiVal
		}
		return bundles[i].features[0] < bundles[j].features[0]
	})
	return bundles
}
