package sieve

import "math/bits"

// SievingPrime is the lifecycle record the generator hands to the main
// engine: a prime discovered once, tracked until low advances past p*p.
type SievingPrime struct {
	P             uint32
	MultipleIndex uint64
	WheelIndex    int32
}

// trialSieveLimit bounds the base case of the recursive generator: below
// this, a plain unsegmented sieve over a []bool array is cheap enough that
// no segmentation is worthwhile.
const trialSieveLimit = 1 << 16

// isqrt64 returns floor(sqrt(n)) using integer-only Newton refinement, so
// it stays exact at the top of the uint64 range where float64 would lose
// precision.
func isqrt64(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x := n
	y := x/2 + x&1 // (x+1)/2 without overflowing at 2^64-1
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// trialSieve returns every prime <= limit via a flat []bool sieve; the base
// case of the recursive sieving-prime generator.
func trialSieve(limit uint64) []uint64 {
	if limit < 2 {
		return nil
	}
	composite := make([]bool, limit+1)
	var primes []uint64
	for i := uint64(2); i <= limit; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, i)
		if i <= limit/i {
			for j := i * i; j <= limit; j += i {
				composite[j] = true
			}
		}
	}
	return primes
}

// primesUpTo returns every prime <= limit. For limit above trialSieveLimit
// it recurses: base primes up to sqrt(limit) come from a smaller instance
// of exactly this function, which feeds a small segmented pass over
// [0, limit] using the same EratSmall/EratMedium machinery the main
// engine uses -- the sieve building the sieve, generalizing the teacher's
// SieveOfEratosthenes-feeds-SegmentedSieve idiom one level deeper.
func primesUpTo(limit uint64) []uint64 {
	if limit <= trialSieveLimit {
		return trialSieve(limit)
	}

	base := primesUpTo(isqrt64(limit) + 1)

	var out []uint64
	for _, p := range base {
		if p <= 5 && p <= limit {
			out = append(out, p)
		}
	}

	const genSieveSizeBytes = 1 << 15
	threshold := isqrt64(uint64(genSieveSizeBytes) * 30)

	var small EratSmall
	var medium EratMedium
	for _, p := range base {
		if p <= 5 {
			continue
		}
		if p*p > limit {
			break
		}
		if p == 7 || p < threshold {
			small.add(p, 0)
		} else {
			medium.add(p, 0)
		}
	}

	seg := newSegment(genSieveSizeBytes)
	low := uint64(0)
loop:
	for low <= limit {
		seg.reset(low)
		small.crossOff(seg.buf)
		medium.crossOff(seg.buf)

		for bi := 0; bi < seg.bytes; bi++ {
			b := seg.buf[bi]
			for b != 0 {
				bitIdx := bits.TrailingZeros8(b)
				b &= b - 1
				v := seg.decode(bi, bitIdx)
				if v > limit {
					break loop
				}
				out = append(out, v)
			}
		}
		low += 30 * uint64(seg.bytes)
	}
	return out
}
