package sieve

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/klauspost/cpuid/v2"
)

// wideWordPopcount is decided once at package init by querying the CPU's
// POPCNT support, mirroring the pack's AVX2/SSSE3-gated Reed-Solomon fast
// path: the check only ever picks a faster equivalent code path, both
// branches return identical counts.
var wideWordPopcount = cpuid.CPU.Supports(cpuid.POPCNT)

var countFlagOf = [7]Flags{CountPrimes, CountTwins, CountTriplets, CountQuadruplets, CountQuintuplets, CountSextuplets, CountSeptuplets}
var printFlagOf = [7]Flags{PrintPrimes, PrintTwins, PrintTriplets, PrintQuadruplets, PrintQuintuplets, PrintSextuplets, PrintSeptuplets}

// Finder walks a fully sieved segment and, per its flag set, updates
// counters, prints matches, or invokes a caller-supplied callback.
// Generalizes the teacher's bytes.IndexByte-driven prime extraction loop
// in sieveSegmentOddOnly into counting, k-tuplet, print and callback
// modes over the wheel-encoded buffer.
type Finder struct {
	Flags    Flags
	Counts   [7]uint64
	Writer   io.Writer
	Callback func(uint64) CallbackOutcome
}

func NewFinder(flags Flags, w io.Writer, cb func(uint64) CallbackOutcome) *Finder {
	return &Finder{Flags: flags, Writer: w, Callback: cb}
}

// edgeMask reports which of byte bi's 8 bits decode to a value inside
// [start, stop] -- the "precomputed edge mask" clipping step the count
// loop needs only at the first and last bytes of the whole run.
func edgeMask(seg *segment, bi int, start, stop uint64) byte {
	lowV := seg.decode(bi, 0)
	highV := seg.decode(bi, 7)
	if lowV >= start && highV <= stop {
		return 0xFF
	}
	var m byte
	for k := 0; k < 8; k++ {
		v := seg.decode(bi, k)
		if v >= start && v <= stop {
			m |= 1 << uint(k)
		}
	}
	return m
}

func popcountBytes(b []byte) uint64 {
	var total uint64
	if wideWordPopcount {
		i := 0
		for ; i+8 <= len(b); i += 8 {
			total += uint64(bits.OnesCount64(binary.LittleEndian.Uint64(b[i : i+8])))
		}
		for ; i < len(b); i++ {
			total += uint64(bits.OnesCount8(b[i]))
		}
		return total
	}
	for _, v := range b {
		total += uint64(bits.OnesCount8(v))
	}
	return total
}

func (f *Finder) needsBitWalk() bool {
	if f.Callback != nil || f.Flags&(printMask|Callback32|Callback64|CallbackOOP) != 0 {
		return true
	}
	for idx := CountIdxTwins; idx <= CountIdxSeptuplets; idx++ {
		if f.Flags.has(countFlagOf[idx]) {
			return true
		}
	}
	return false
}

// process runs the finder over one sieved segment, restricted to
// [start, stop], and returns CallbackStop if a callback asked to cancel.
func (f *Finder) process(seg *segment, start, stop uint64) CallbackOutcome {
	if !f.needsBitWalk() {
		if f.Flags.has(CountPrimes) {
			first, last := 0, seg.bytes-1
			for first <= last && seg.decode(first, 7) < start {
				first++
			}
			for last >= first && (seg.decode(last, 0) > stop || seg.decode(last, 0) < seg.low) {
				last--
			}
			var sum uint64
			if last >= first {
				sum += uint64(bits.OnesCount8(seg.buf[first] & edgeMask(seg, first, start, stop)))
				if last > first {
					sum += popcountBytes(seg.buf[first+1 : last])
					sum += uint64(bits.OnesCount8(seg.buf[last] & edgeMask(seg, last, start, stop)))
				}
			}
			f.Counts[CountIdxPrimes] += sum
		}
		return CallbackContinue
	}

	for bi := 0; bi < seg.bytes; bi++ {
		b := seg.buf[bi] & edgeMask(seg, bi, start, stop)
		for b != 0 {
			k := bits.TrailingZeros8(b)
			b &= b - 1
			v := seg.decode(bi, k)

			if f.Flags.has(CountPrimes) {
				f.Counts[CountIdxPrimes]++
			}
			if f.Flags.has(printFlagOf[CountIdxPrimes]) {
				fmt.Fprintln(f.Writer, v)
			}

			for idx := CountIdxTwins; idx <= CountIdxSeptuplets; idx++ {
				if !f.Flags.has(countFlagOf[idx]) && !f.Flags.has(printFlagOf[idx]) {
					continue
				}
				// Every member of a counted tuplet lies in [start, stop].
				offs := tupletPatterns[idx][0].offsets
				if stop-v < offs[len(offs)-1] {
					continue
				}
				if seg.matchesTuplet(bi, k, idx) {
					if f.Flags.has(countFlagOf[idx]) {
						f.Counts[idx]++
					}
					if f.Flags.has(printFlagOf[idx]) {
						fmt.Fprintln(f.Writer, v)
					}
				}
			}

			if f.Callback != nil {
				if outcome := f.Callback(v); outcome == CallbackStop {
					return CallbackStop
				}
			}
		}
	}
	return CallbackContinue
}
