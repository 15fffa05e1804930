package sieve

import "testing"

func TestBuildWheelTableSpokeCount(t *testing.T) {
	tests := []struct {
		name     string
		w        *wheelTable
		expected int
	}{
		{"wheel30", wheel30, 8},
		{"wheel210", wheel210, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.w.N != tt.expected {
				t.Errorf("N = %d, want %d", tt.w.N, tt.expected)
			}
			if len(tt.w.Elements) != tt.expected*tt.expected {
				t.Errorf("len(Elements) = %d, want %d", len(tt.w.Elements), tt.expected*tt.expected)
			}
			if len(tt.w.Canonical) != tt.expected {
				t.Errorf("len(Canonical) = %d, want %d", len(tt.w.Canonical), tt.expected)
			}
		})
	}
}

// TestWheel30CanonicalOrder pins the residue order the rest of the
// package assumes: BIT0..BIT7 decode to 7,11,13,17,19,23,29,1 in that
// order, with residue 1 (the next window's "31") kept last.
func TestWheel30CanonicalOrder(t *testing.T) {
	expected := []uint64{7, 11, 13, 17, 19, 23, 29, 1}
	for i, want := range expected {
		if wheel30.Canonical[i] != want {
			t.Errorf("Canonical[%d] = %d, want %d", i, wheel30.Canonical[i], want)
		}
	}
}

// TestWheelTableGapsSumToModulus checks the universal k-cycle wraps
// exactly once per modulus: the gaps between consecutive representable
// residues (including the wraparound gap) must sum to Modulus.
func TestWheelTableGapsSumToModulus(t *testing.T) {
	for _, w := range []*wheelTable{wheel30, wheel210} {
		var sum uint64
		for _, g := range w.Gaps {
			sum += g
		}
		if sum != w.Modulus {
			t.Errorf("modulus %d: gaps sum to %d, want %d", w.Modulus, sum, w.Modulus)
		}
	}
}

// bitIndexOfMask inverts bitMasks (the AND-clear form) back to a bit index.
func bitIndexOfMask(mask byte) int {
	for i, m := range bitMasks {
		if m == mask {
			return i
		}
	}
	panic("sieve: mask not in bitMasks")
}

// decodedValueAt reconstructs the actual integer a (low, multipleIndex,
// wheelIndex) triple refers to, by reading the residue the wheel element
// at wheelIndex would clear.
func decodedValueAt(w *wheelTable, low, multipleIndex uint64, wheelIndex int) uint64 {
	el := w.Elements[wheelIndex]
	bitIdx := bitIndexOfMask(el.BitMask)
	return low + 30*multipleIndex + residueValue[bitIdx]
}

// TestWheelStartAtPrimeSquare checks that start(p, 0) always lands on
// p*p itself for primes small enough that p*p is representable --
// the canonical "sieving begins at p squared" invariant.
func TestWheelStartAtPrimeSquare(t *testing.T) {
	for _, p := range []uint64{7, 11, 13, 17, 19, 23, 29, 31, 37, 41} {
		mi, wi := wheel30.start(p, 0)
		got := decodedValueAt(wheel30, 0, mi, wi)
		want := p * p
		if got != want {
			t.Errorf("p=%d: start(p,0) decodes to %d, want %d", p, got, want)
		}
	}
}

// TestWheelStartAdvancesPastLow checks that when low (30-aligned, as start
// requires) is far beyond p*p, start still returns a multiple of p at or
// after low (never before).
func TestWheelStartAdvancesPastLow(t *testing.T) {
	tests := []struct {
		p, low uint64
	}{
		{101, 1_000_020},
		{7919, 10_000_000_020},
		{999_983, 1_000_000_000_020},
	}
	for _, tt := range tests {
		mi, wi := wheel210.start(tt.p, tt.low)
		value := decodedValueAt(wheel210, tt.low, mi, wi)
		if value%tt.p != 0 {
			t.Errorf("p=%d low=%d: decoded value %d is not a multiple of p", tt.p, tt.low, value)
		}
		want := tt.p * tt.p
		if tt.low > want {
			want = tt.low
		}
		if value < want {
			t.Errorf("p=%d low=%d: decoded value %d < expected floor %d", tt.p, tt.low, value, want)
		}
	}
}
