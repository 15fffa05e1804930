package sieve

// Bit masks for the modulo-30 byte encoding. Each byte of a segment
// represents 30 consecutive integers; only the eight residues coprime to
// 30 are representable. BIT0..BIT7 are AND-masks: ANDing a segment byte
// with BITk clears exactly the bit for residue canonical30[k], leaving
// every other candidate bit untouched.
const (
	BIT0 byte = 0xFE // ^(1 << 0)
	BIT1 byte = 0xFD // ^(1 << 1)
	BIT2 byte = 0xFB // ^(1 << 2)
	BIT3 byte = 0xF7 // ^(1 << 3)
	BIT4 byte = 0xEF // ^(1 << 4)
	BIT5 byte = 0xDF // ^(1 << 5)
	BIT6 byte = 0xBF // ^(1 << 6)
	BIT7 byte = 0x7F // ^(1 << 7)
)

var bitMasks = [8]byte{BIT0, BIT1, BIT2, BIT3, BIT4, BIT5, BIT6, BIT7}
var setMasks = [8]byte{^BIT0, ^BIT1, ^BIT2, ^BIT3, ^BIT4, ^BIT5, ^BIT6, ^BIT7}

// canonical30 is the bit order fixed by the data model: BIT0..BIT7 map to
// these residues in this order. residue 1 is kept last (representing the
// "31" of the next 30-window) so every sieving prime's own residue class
// can serve directly as a wheel spoke index.
var canonical30 = [8]uint64{7, 11, 13, 17, 19, 23, 29, 1}

// residueValue gives the actual decoded offset from a 30-aligned `low`
// for each bit index: value = low + 30*byteIndex + residueValue[bit].
// Bit7 (residue class 1) decodes to 31, the "1" of the *next* window,
// which keeps residues strictly increasing across a byte boundary.
var residueValue = [8]uint64{7, 11, 13, 17, 19, 23, 29, 31}

func bitIndexOfResidue30(r uint64) int {
	for i, v := range canonical30 {
		if v == r {
			return i
		}
	}
	panic("sieve: residue not coprime to 30")
}

// WheelElement encodes one step of crossing off a multiple along a wheel
// orbit: which bit to clear, how far (in units of the sieving prime) to
// advance to the next representable multiple, a small fixed correction,
// and the signed delta to the next wheel index (negative wraps the spoke).
type WheelElement struct {
	BitMask            byte
	NextMultipleFactor uint64
	Correct            int64
	NextWheelDelta     int
}

// wheelTable is a fully precomputed wheel: N spokes (one per residue class
// coprime to Modulus), each spoke holding N WheelElements that cycle
// through every representable multiple of a sieving prime in that residue
// class. Tables are built once at package initialization and never
// mutated afterwards (the "process-wide immutable" data the driver and
// all three Erat engines share read-only).
type wheelTable struct {
	Modulus   uint64
	N         int
	Elements  []WheelElement
	Canonical []uint64 // residue class per spoke, index == spoke index
	KCycle    []uint64 // universal ascending k-cycle starting at 1
	Gaps      []uint64 // gaps[i] = KCycle[i+1] - KCycle[i] (wrapping by Modulus)
	spokeOf   map[uint64]int
	kIndexOf  map[uint64]int
}

func coprimeResidues(modulus uint64) []uint64 {
	var out []uint64
	for v := uint64(1); v < modulus; v++ {
		if gcdUint64(v, modulus) == 1 {
			out = append(out, v)
		}
	}
	return out
}

func gcdUint64(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// buildWheelTable derives a wheel the same way for any multiple of 30:
// list the residues coprime to modulus ascending, rotate so residue 1 is
// last (the spoke order), and keep the unrotated ascending list as the
// universal k-cycle (the same cycle every spoke reuses, since the gap
// sequence between consecutive representable multiples never depends on
// which prime's residue class we're in -- only the bit that gets cleared
// at each step does).
func buildWheelTable(modulus uint64) *wheelTable {
	plain := coprimeResidues(modulus) // ascending, starts at 1
	n := len(plain)

	canonical := make([]uint64, n)
	copy(canonical, plain[1:])
	canonical[n-1] = plain[0]

	kCycle := make([]uint64, n)
	copy(kCycle, plain)

	gaps := make([]uint64, n)
	for i := 0; i < n-1; i++ {
		gaps[i] = kCycle[i+1] - kCycle[i]
	}
	gaps[n-1] = (kCycle[0] + modulus) - kCycle[n-1]

	spokeOf := make(map[uint64]int, n)
	kIndexOf := make(map[uint64]int, n)
	for i, v := range canonical {
		spokeOf[v] = i
	}
	for i, v := range kCycle {
		kIndexOf[v] = i
	}

	elements := make([]WheelElement, n*n)
	for s := 0; s < n; s++ {
		r := canonical[s]
		rMod30 := r % 30
		for i := 0; i < n; i++ {
			kMod30 := kCycle[i] % 30
			bitRes := (rMod30 * kMod30) % 30

			var kNext uint64
			if i == n-1 {
				kNext = kCycle[0] + modulus
			} else {
				kNext = kCycle[i+1]
			}
			bitResNext := (rMod30 * (kNext % 30)) % 30

			// Residue 1 is stored as bit7 of the previous byte (value 31),
			// so its in-byte offset is 31, not 1.
			off, offNext := bitRes, bitResNext
			if off == 1 {
				off = 31
			}
			if offNext == 1 {
				offNext = 31
			}
			numerator := int64(off) + int64(rMod30*gaps[i]) - int64(offNext)
			if numerator%30 != 0 {
				panic("sieve: wheel table derivation is inconsistent")
			}
			correct := numerator / 30

			delta := 1
			if i == n-1 {
				delta = -(n - 1)
			}

			elements[s*n+i] = WheelElement{
				BitMask:            bitMasks[bitIndexOfResidue30(bitRes)],
				NextMultipleFactor: gaps[i],
				Correct:            correct,
				NextWheelDelta:     delta,
			}
		}
	}

	return &wheelTable{
		Modulus:   modulus,
		N:         n,
		Elements:  elements,
		Canonical: canonical,
		KCycle:    kCycle,
		Gaps:      gaps,
		spokeOf:   spokeOf,
		kIndexOf:  kIndexOf,
	}
}

var wheel30 = buildWheelTable(30)
var wheel210 = buildWheelTable(210)

// start computes the initial (multipleIndex, wheelIndex) for a sieving
// prime p newly discovered while the driver's current segment begins at
// low (30-aligned). It locates the first representable multiple of p at
// or after max(p*p, low+2) -- low+2 because low+1 is held by the byte
// before low, p*p because smaller multiples were already
// struck by smaller sieving primes -- jumping whole wheel revolutions
// arithmetically rather than walking one step at a time, so the cost is
// O(wheel size) regardless of how far low is from p*p.
func (w *wheelTable) start(p, low uint64) (multipleIndex uint64, wheelIndex int) {
	residue := p % w.Modulus
	s, ok := w.spokeOf[residue]
	if !ok {
		panic("sieve: sieving prime not coprime to wheel modulus")
	}
	i0 := w.kIndexOf[residue]

	target := p * p
	m := p
	i := i0
	if target < low+2 {
		need := (low + p + 1) / p
		if need < p {
			need = p
		}
		delta := need - p
		revs := delta / w.Modulus
		m = p + revs*w.Modulus
		for m < need {
			m += w.Gaps[i]
			i = (i + 1) % w.N
		}
	}

	value := p * m
	multipleIndex = (value - low) / 30
	if value%30 == 1 {
		multipleIndex-- // 30*k+1 is bit7 (value 31) of the byte before
	}
	wheelIndex = s*w.N + i
	return
}
