package sieve

// segmentGuardBytes is how many extra bytes beyond the configured sieve
// size a segment buffer carries, pre-sieved and crossed off exactly like
// the rest of the buffer, purely so k-tuplet patterns anchored near the
// end of a segment can look ahead without reading into unsieved memory.
// The guard byte is recomputed as part of the next segment; it is never
// counted or printed from twice.
const segmentGuardBytes = 1

// segment is the reusable, cache-resident sieve buffer: one contiguous
// byte slice covering 30*sieveSizeBytes consecutive integers (plus the
// guard byte), the direct generalization of the teacher's reusable
// isPrime []byte buffer in sieveSegmentOddOnly.
type segment struct {
	buf   []byte
	low   uint64 // 30-aligned start of this segment's real (non-guard) range
	bytes int    // sieveSizeBytes, i.e. len(buf)-segmentGuardBytes
}

func newSegment(sieveSizeBytes int) *segment {
	return &segment{
		buf:   make([]byte, sieveSizeBytes+segmentGuardBytes),
		bytes: sieveSizeBytes,
	}
}

func (s *segment) reset(low uint64) {
	s.low = low
	for i := range s.buf {
		s.buf[i] = 0xFF
	}
}

// decode returns the integer value represented by bit bitIdx of byte bi.
func (s *segment) decode(bi, bitIdx int) uint64 {
	return s.low + 30*uint64(bi) + residueValue[bitIdx]
}

func residueBitIndex(r uint64) (int, bool) {
	for i, v := range residueValue {
		if v == r {
			return i, true
		}
	}
	return 0, false
}

// stepBit locates the bit representing value(bi,bitIdx)+delta.
func stepBit(bi, bitIdx int, delta uint64) (int, int, bool) {
	v := residueValue[bitIdx] + delta
	if v%30 == 1 {
		// 30*k+1 is bit7 (value 31) of the byte before.
		return bi + int(v/30) - 1, 7, true
	}
	bi2 := bi + int(v/30)
	k2, ok := residueBitIndex(v % 30)
	return bi2, k2, ok
}

func (s *segment) bitSet(bi, bitIdx int) bool {
	if bi < 0 || bi >= len(s.buf) {
		return false
	}
	return s.buf[bi]&(1<<uint(bitIdx)) != 0
}

// tupletPattern is one admissible offset pattern for a k-tuplet: the
// fixed distances from the anchor prime the other k-1 primes must sit
// at. Several k values admit more than one pattern (e.g. triplets can be
// {0,2,6} or {0,4,6}); a base position matches the tuplet if it satisfies
// any one of its patterns.
type tupletPattern struct {
	offsets []uint64
}

var tupletPatterns = map[int][]tupletPattern{
	CountIdxTwins:       {{offsets: []uint64{0, 2}}},
	CountIdxTriplets:    {{offsets: []uint64{0, 2, 6}}, {offsets: []uint64{0, 4, 6}}},
	CountIdxQuadruplets: {{offsets: []uint64{0, 2, 6, 8}}},
	CountIdxQuintuplets: {{offsets: []uint64{0, 2, 6, 8, 12}}, {offsets: []uint64{0, 4, 6, 8, 12}}},
	CountIdxSextuplets:  {{offsets: []uint64{0, 4, 6, 10, 12, 16}}},
	CountIdxSeptuplets: {
		{offsets: []uint64{0, 2, 6, 8, 12, 18, 20}},
		{offsets: []uint64{0, 2, 8, 12, 14, 18, 20}},
	},
}

// matchesTuplet reports whether the anchor bit at (bi,bitIdx) starts any
// one of idx's admissible offset patterns.
func (s *segment) matchesTuplet(bi, bitIdx, idx int) bool {
	for _, pat := range tupletPatterns[idx] {
		ok := true
		for _, off := range pat.offsets[1:] {
			bi2, k2, valid := stepBit(bi, bitIdx, off)
			if !valid || !s.bitSet(bi2, k2) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
