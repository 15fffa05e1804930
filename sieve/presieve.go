package sieve

import "sync"

// preSieveSmallPrimes are the only primes a pre-sieve pattern can ever be
// built from; 2, 3 and 5 never need a pattern because they have no
// representation in the modulo-30 byte encoding at all.
var preSieveSmallPrimes = []uint64{7, 11, 13, 17, 19, 23}

func validPreSieveBound(p int) bool {
	for _, q := range preSieveSmallPrimes {
		if uint64(p) == q {
			return true
		}
	}
	return false
}

var preSieveCache sync.Map // map[int][]byte, keyed by p_pre

// preSievePattern returns the cached (building it on first use) bit
// pattern whose period covers every multiple of the small primes <= pPre.
// The pattern is generated by running the ordinary wheel30 cross-off step
// against a throwaway all-ones buffer -- reusing the sieve to build the
// sieve, the same idiom the teacher uses when SieveOfEratosthenes builds
// the base-prime list that SegmentedSieve then consumes.
func preSievePattern(pPre int) []byte {
	if cached, ok := preSieveCache.Load(pPre); ok {
		return cached.([]byte)
	}

	periodBytes := uint64(1)
	for _, q := range preSieveSmallPrimes {
		periodBytes *= q
		if uint64(pPre) == q {
			break
		}
	}

	buf := make([]byte, periodBytes)
	for i := range buf {
		buf[i] = 0xFF
	}

	for _, q := range preSieveSmallPrimes {
		if q > uint64(pPre) {
			break
		}
		// Start at q itself (k = 1), not q*q: the pattern repeats, and q's
		// copies in later periods are composite.
		m, w := uint64(0), wheel30.spokeOf[q]*wheel30.N+wheel30.kIndexOf[1]
		qDiv30 := q / 30
		for m < periodBytes {
			e := wheel30.Elements[w]
			buf[m] &= e.BitMask
			m = uint64(int64(m) + int64(e.NextMultipleFactor)*int64(qDiv30) + e.Correct)
			w += e.NextWheelDelta
		}
	}

	actual, _ := preSieveCache.LoadOrStore(pPre, buf)
	return actual.([]byte)
}

// applyPreSieve tiles the cached pattern into seg, aligned so that
// seg.buf[i] corresponds to the same residue class as pattern[(seg.low/30+i) % len(pattern)].
// The pattern also clears the small primes themselves, so in the segment
// starting at 0 their bits are set back.
func applyPreSieve(seg *segment, pPre int) {
	pattern := preSievePattern(pPre)
	period := uint64(len(pattern))
	offset := (seg.low / 30) % period
	for i := range seg.buf {
		seg.buf[i] = pattern[offset]
		offset++
		if offset == period {
			offset = 0
		}
	}
	if seg.low == 0 {
		for _, q := range preSieveSmallPrimes {
			if q > uint64(pPre) {
				break
			}
			seg.buf[0] |= setMasks[bitIndexOfResidue30(q)]
		}
	}
}
