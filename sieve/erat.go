package sieve

import (
	"github.com/golang-collections/go-datastructures/bitarray"
	"golang.org/x/xerrors"
)

// activePrime is the in-memory lifecycle record for a sieving prime
// handled by EratSmall or EratMedium: state (multipleIndex, wheelIndex)
// persists across segments until the prime is retired.
type activePrime struct {
	p             uint64
	multipleIndex uint64
	wheelIndex    int
}

// EratSmall owns sieving primes p with p*p within a single segment's
// reach, using the 30-wheel for its tight, branch-light inner loop.
type EratSmall struct {
	primes []activePrime
}

func (e *EratSmall) add(p, low uint64) {
	m, w := wheel30.start(p, low)
	e.primes = append(e.primes, activePrime{p: p, multipleIndex: m, wheelIndex: w})
}

// crossOff clears every representable multiple of every owned prime that
// falls inside buf, then saves each prime's state relative to the next
// segment. buf includes the trailing guard byte (len(buf) ==
// sieveSizeBytes+segmentGuardBytes) and crossing off runs all the way to
// its end so tuplet lookahead into the guard byte stays correct, but the
// driver always advances low by 30*sieveSizeBytes (the nominal stride, not
// 30*len(buf)), so the saved state must be rebased by that same nominal
// stride rather than by len(buf). The state saved is that of the first
// multiple at or past the stride, taken before any strike in the guard
// byte, so a multiple in the guard byte is struck again as byte 0 of the
// next segment.
func (e *EratSmall) crossOff(buf []byte) {
	n := uint64(len(buf))
	stride := n - segmentGuardBytes
	for i := range e.primes {
		ap := &e.primes[i]
		m, w := ap.multipleIndex, ap.wheelIndex
		primeDiv30 := ap.p / 30
		for m < stride {
			el := wheel30.Elements[w]
			buf[m] &= el.BitMask
			m = uint64(int64(m) + int64(el.NextMultipleFactor)*int64(primeDiv30) + el.Correct)
			w += el.NextWheelDelta
		}
		ap.multipleIndex = m - stride
		ap.wheelIndex = w
		for m < n {
			el := wheel30.Elements[w]
			buf[m] &= el.BitMask
			m = uint64(int64(m) + int64(el.NextMultipleFactor)*int64(primeDiv30) + el.Correct)
			w += el.NextWheelDelta
		}
	}
}

func (e *EratSmall) len() int { return len(e.primes) }

// EratMedium owns sieving primes that strike a handful of times per
// segment, using the 210-wheel for its deeper residue skipping.
type EratMedium struct {
	primes []activePrime
}

func (e *EratMedium) add(p, low uint64) {
	m, w := wheel210.start(p, low)
	e.primes = append(e.primes, activePrime{p: p, multipleIndex: m, wheelIndex: w})
}

func (e *EratMedium) crossOff(buf []byte) {
	n := uint64(len(buf))
	stride := n - segmentGuardBytes
	for i := range e.primes {
		ap := &e.primes[i]
		m, w := ap.multipleIndex, ap.wheelIndex
		primeDiv30 := ap.p / 30
		for m < stride {
			el := wheel210.Elements[w]
			buf[m] &= el.BitMask
			m = uint64(int64(m) + int64(el.NextMultipleFactor)*int64(primeDiv30) + el.Correct)
			w += el.NextWheelDelta
		}
		ap.multipleIndex = m - stride
		ap.wheelIndex = w
		for m < n {
			el := wheel210.Elements[w]
			buf[m] &= el.BitMask
			m = uint64(int64(m) + int64(el.NextMultipleFactor)*int64(primeDiv30) + el.Correct)
			w += el.NextWheelDelta
		}
	}
}

func (e *EratMedium) len() int { return len(e.primes) }

// bigBucketSize is the number of sieving primes held per arena chunk.
const bigBucketSize = 1024

type bigEntry struct {
	p          uint64
	localIndex uint64
	wheelIndex int
}

type bigChunk struct {
	entries [bigBucketSize]bigEntry
	count   int
	next    int // arena index of the next chunk in this bucket's list, -1 if none
}

// EratBig owns sieving primes larger than a segment, each of which
// strikes at most once per segment. Entries are kept in arena-allocated
// chunks (no per-prime heap allocation once the arena is warm) linked
// per target segment index; a bitarray.BitArray mirrors which arena
// slots are in use, exactly the "many independent fixed-size slots
// tracked by a bitmap" shape the pack's muscato Bloom-filter sharding
// uses for its own slot bookkeeping.
type EratBig struct {
	sieveSizeBytes uint64
	arena          []bigChunk
	occupied       bitarray.BitArray
	freeStack      []int
	buckets        map[uint64]int // target segment index -> head chunk arena index
}

func newEratBig(sieveSizeBytes uint64, initialCapacityHint int) *EratBig {
	capChunks := initialCapacityHint/bigBucketSize + 1
	if capChunks < 4 {
		capChunks = 4
	}
	e := &EratBig{
		sieveSizeBytes: sieveSizeBytes,
		arena:          make([]bigChunk, capChunks),
		occupied:       bitarray.NewBitArray(uint64(capChunks)),
		buckets:        make(map[uint64]int),
	}
	for i := capChunks - 1; i >= 0; i-- {
		e.freeStack = append(e.freeStack, i)
	}
	return e
}

func (e *EratBig) growArena() {
	oldCap := len(e.arena)
	newCap := oldCap * 2
	grown := make([]bigChunk, newCap)
	copy(grown, e.arena)
	e.arena = grown

	newOccupied := bitarray.NewBitArray(uint64(newCap))
	for i := 0; i < oldCap; i++ {
		if set, _ := e.occupied.GetBit(uint64(i)); set {
			newOccupied.SetBit(uint64(i))
		}
	}
	e.occupied = newOccupied

	for i := newCap - 1; i >= oldCap; i-- {
		e.freeStack = append(e.freeStack, i)
	}
}

func (e *EratBig) allocChunk() (int, error) {
	if len(e.freeStack) == 0 {
		e.growArena()
		if len(e.freeStack) == 0 {
			return 0, xerrors.Errorf("sieve: big-prime arena exhausted: %w", ErrBucketAllocation)
		}
	}
	idx := e.freeStack[len(e.freeStack)-1]
	e.freeStack = e.freeStack[:len(e.freeStack)-1]
	if err := e.occupied.SetBit(uint64(idx)); err != nil {
		return 0, xerrors.Errorf("sieve: marking arena chunk %d occupied: %w", idx, err)
	}
	e.arena[idx] = bigChunk{next: -1}
	return idx, nil
}

func (e *EratBig) releaseChunk(idx int) {
	if err := e.occupied.ClearBit(uint64(idx)); err == nil {
		e.freeStack = append(e.freeStack, idx)
	}
}

// insert places a (prime, wheelIndex, localIndex) triple into the bucket
// for targetSegment, growing the bucket's chunk list if the head is full.
func (e *EratBig) insert(targetSegment uint64, ent bigEntry) error {
	head, ok := e.buckets[targetSegment]
	if !ok || e.arena[head].count == bigBucketSize {
		idx, err := e.allocChunk()
		if err != nil {
			return err
		}
		e.arena[idx].next = -1
		if ok {
			e.arena[idx].next = head
		}
		e.buckets[targetSegment] = idx
		head = idx
	}
	c := &e.arena[head]
	c.entries[c.count] = ent
	c.count++
	return nil
}

func (e *EratBig) add(p, low uint64, currentSegment uint64) error {
	m, w := wheel210.start(p, low)
	targetSegment := currentSegment + m/e.sieveSizeBytes
	local := m % e.sieveSizeBytes
	return e.insert(targetSegment, bigEntry{p: p, localIndex: local, wheelIndex: w})
}

// crossOff strikes every prime bucketed against currentSegment, clears
// the consumed chunks back to the free list, and rebuckets each prime
// under whichever future segment it next lands in. buf includes the
// trailing guard byte, so striking continues to len(buf) after the
// rebucketing; but the driver advances one segment by e.sieveSizeBytes
// (the nominal stride, not len(buf)), and add's targetSegment/local
// bucketing below is computed against that same e.sieveSizeBytes -- so
// rebucketing here rebases m by e.sieveSizeBytes too, not by len(buf), to
// keep both sides of the bucket math using one consistent per-segment stride.
func (e *EratBig) crossOff(buf []byte, currentSegment uint64) error {
	head, ok := e.buckets[currentSegment]
	if !ok {
		return nil
	}
	delete(e.buckets, currentSegment)

	n := uint64(len(buf))
	for chunkIdx := head; chunkIdx != -1; {
		c := &e.arena[chunkIdx]
		for i := 0; i < c.count; i++ {
			ent := c.entries[i]
			m, w := ent.localIndex, ent.wheelIndex
			primeDiv30 := ent.p / 30
			for m < e.sieveSizeBytes {
				el := wheel210.Elements[w]
				buf[m] &= el.BitMask
				m = uint64(int64(m) + int64(el.NextMultipleFactor)*int64(primeDiv30) + el.Correct)
				w += el.NextWheelDelta
			}
			// Rebucket from the first multiple at or past the stride, before
			// any guard-byte strike, so that multiple is struck again next segment.
			rm := m - e.sieveSizeBytes
			targetSegment := currentSegment + 1 + rm/e.sieveSizeBytes
			local := rm % e.sieveSizeBytes
			if err := e.insert(targetSegment, bigEntry{p: ent.p, localIndex: local, wheelIndex: w}); err != nil {
				return err
			}
			for m < n {
				el := wheel210.Elements[w]
				buf[m] &= el.BitMask
				m = uint64(int64(m) + int64(el.NextMultipleFactor)*int64(primeDiv30) + el.Correct)
				w += el.NextWheelDelta
			}
		}
		next := c.next
		e.releaseChunk(chunkIdx)
		chunkIdx = next
	}
	return nil
}

func (e *EratBig) bucketCount() int { return len(e.buckets) }
