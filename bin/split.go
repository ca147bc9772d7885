package bin

// rawAccessor is the random-access view the split routines need.
type rawAccessor interface {
	rawAt(idx int32) uint32
}

// numericalSplit carries the bounds and missing-value flags of one split.
// missIsZero/missIsNA select the feature's policy; mfbIsZero/mfbIsNA say the
// missing marker is itself the most frequent bin and therefore unstored.
type numericalSplit struct {
	minBin, maxBin          uint32
	defaultBin, mostFreqBin uint32
	threshold               uint32
	defaultLeft             bool
	useMinBin               bool
	missIsZero, missIsNA    bool
	mfbIsZero, mfbIsNA      bool
}

func newNumericalSplit(minBin, maxBin, defaultBin, mostFreqBin uint32, missingType MissingType,
	defaultLeft bool, threshold uint32, useMinBin bool) numericalSplit {
	s := numericalSplit{
		minBin:      minBin,
		maxBin:      maxBin,
		defaultBin:  defaultBin,
		mostFreqBin: mostFreqBin,
		threshold:   threshold,
		defaultLeft: defaultLeft,
		useMinBin:   useMinBin,
	}
	switch missingType {
	case MissingZero:
		s.missIsZero = true
		s.mfbIsZero = defaultBin == mostFreqBin
	case MissingNaN:
		s.missIsNA = true
		s.mfbIsNA = maxBin == mostFreqBin+minBin && mostFreqBin > 0
	}
	return s
}

// partition appends to the two caller-owned outputs.
type partition struct {
	lte, gt   []int32
	nLte, nGt int
}

func (p *partition) put(left bool, idx int32) {
	if left {
		p.lte[p.nLte] = idx
		p.nLte++
	} else {
		p.gt[p.nGt] = idx
		p.nGt++
	}
}

// splitNumerical routes rows by bin <= threshold. Rows holding the missing
// marker follow defaultLeft; rows holding no value of the feature follow the
// most frequent bin's side of the threshold.
func splitNumerical[A rawAccessor](a A, s numericalSplit, dataIndices, lteIndices, gtIndices []int32) int {
	th := s.threshold + s.minBin
	zeroBin := s.minBin + s.defaultBin
	if s.mostFreqBin == 0 {
		th--
		zeroBin--
	}
	missingLeft := (s.missIsZero || s.missIsNA) && s.defaultLeft
	mostFreqLeft := s.mostFreqBin <= s.threshold
	unstoredIsMissing := (s.missIsNA && s.mfbIsNA) || (s.missIsZero && s.mfbIsZero)

	p := partition{lte: lteIndices, gt: gtIndices}
	if s.minBin < s.maxBin {
		for _, idx := range dataIndices {
			b := a.rawAt(idx)
			switch {
			case (s.missIsZero && !s.mfbIsZero && b == zeroBin) || (s.missIsNA && !s.mfbIsNA && b == s.maxBin):
				p.put(missingLeft, idx)
			case (s.useMinBin && (b < s.minBin || b > s.maxBin)) || (!s.useMinBin && b == 0):
				if unstoredIsMissing {
					p.put(missingLeft, idx)
				} else {
					p.put(mostFreqLeft, idx)
				}
			default:
				p.put(b <= th, idx)
			}
		}
		return p.nLte
	}

	// a single stored id: anything else is unstored
	maxLeft := s.maxBin <= th
	for _, idx := range dataIndices {
		b := a.rawAt(idx)
		switch {
		case s.missIsZero && !s.mfbIsZero && b == zeroBin:
			p.put(missingLeft, idx)
		case b != s.maxBin:
			if unstoredIsMissing {
				p.put(missingLeft, idx)
			} else {
				p.put(mostFreqLeft, idx)
			}
		case s.missIsNA && !s.mfbIsNA:
			p.put(missingLeft, idx)
		default:
			p.put(maxLeft, idx)
		}
	}
	return p.nLte
}

// splitCategorical routes rows whose bin is in the set to the left. Unstored
// rows go left iff the most frequent bin is a non-zero member of the set.
func splitCategorical[A rawAccessor](a A, minBin, maxBin, mostFreqBin uint32, useMinBin bool,
	threshold CategorySet, dataIndices, lteIndices, gtIndices []int32) int {
	var offset uint32
	if mostFreqBin == 0 {
		offset = 1
	}
	mostFreqLeft := mostFreqBin > 0 && threshold.Has(mostFreqBin)

	p := partition{lte: lteIndices, gt: gtIndices}
	for _, idx := range dataIndices {
		b := a.rawAt(idx)
		switch {
		case useMinBin && (b < minBin || b > maxBin), !useMinBin && b == 0:
			p.put(mostFreqLeft, idx)
		default:
			p.put(threshold.Has(b-minBin+offset), idx)
		}
	}
	return p.nLte
}
