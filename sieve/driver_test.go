package sieve

import (
	"context"
	"errors"
	"testing"
)

func TestDriverSeedVectorZeroToHundred(t *testing.T) {
	d := NewDriver()
	if err := d.Configure(Config{Start: 0, Stop: 100, Flags: CountPrimes}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := d.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve: %v", err)
	}
	if got := d.Count(CountIdxPrimes); got != 25 {
		t.Errorf("primes in [0,100] = %d, want 25", got)
	}
}

func TestDriverSeedVectorZeroToMillion(t *testing.T) {
	d := NewDriver()
	if err := d.Configure(Config{Start: 0, Stop: 1_000_000, Flags: CountPrimes}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := d.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve: %v", err)
	}
	if got := d.Count(CountIdxPrimes); got != 78498 {
		t.Errorf("primes in [0,1e6] = %d, want 78498", got)
	}
}

func TestDriverBoundaryZeroZero(t *testing.T) {
	d := NewDriver()
	d.Configure(Config{Start: 0, Stop: 0, Flags: CountPrimes | CountTwins})
	if err := d.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve: %v", err)
	}
	if d.Count(CountIdxPrimes) != 0 {
		t.Errorf("primes in [0,0] = %d, want 0", d.Count(CountIdxPrimes))
	}
}

func TestDriverBoundaryZeroOne(t *testing.T) {
	d := NewDriver()
	d.Configure(Config{Start: 0, Stop: 1, Flags: CountPrimes})
	if err := d.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve: %v", err)
	}
	if d.Count(CountIdxPrimes) != 0 {
		t.Errorf("primes in [0,1] = %d, want 0", d.Count(CountIdxPrimes))
	}
}

func TestDriverSingleKnownPrime(t *testing.T) {
	const p = 97
	d := NewDriver()
	d.Configure(Config{Start: p, Stop: p, Flags: CountPrimes | CountTwins | CountTriplets})
	if err := d.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve: %v", err)
	}
	if d.Count(CountIdxPrimes) != 1 {
		t.Errorf("prime count at [%d,%d] = %d, want 1", p, p, d.Count(CountIdxPrimes))
	}
	if d.Count(CountIdxTwins) != 0 || d.Count(CountIdxTriplets) != 0 {
		t.Errorf("tuplet counts at a single-prime range should be zero")
	}
}

// TestDriverBoundaryResidueOnePrime exercises a prime ≡ 1 (mod 30), which
// a segment's own bytes never represent directly (every byte's bit7 holds
// the *next* window's "+1"; only a previous segment's trailing byte
// supplies a window's own "+1", and the first segment of a run has none).
// 31 is segmentLow+1 for Start=31 (segmentLow = (31/30)*30 = 30), making
// it the minimal case that exercises this boundary.
func TestDriverBoundaryResidueOnePrime(t *testing.T) {
	const p = 31
	d := NewDriver()
	d.Configure(Config{Start: p, Stop: p, Flags: CountPrimes})
	if err := d.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve: %v", err)
	}
	if got := d.Count(CountIdxPrimes); got != 1 {
		t.Errorf("prime count at [%d,%d] = %d, want 1", p, p, got)
	}
}

// TestDriverBoundaryResidueOneNonPrime checks the companion case: a
// segmentLow+1 value that is NOT prime must not be miscounted either.
// 61 = segmentLow+1 for Start=61 (segmentLow=60) and 61 is itself prime,
// so instead check 91 = 7*13, whose segmentLow+1 is 91 (segmentLow=90).
func TestDriverBoundaryResidueOneNonPrime(t *testing.T) {
	const v = 91
	d := NewDriver()
	d.Configure(Config{Start: v, Stop: v, Flags: CountPrimes})
	if err := d.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve: %v", err)
	}
	if got := d.Count(CountIdxPrimes); got != 0 {
		t.Errorf("prime count at [%d,%d] = %d, want 0 (91 = 7*13)", v, v, got)
	}
}

// TestDriverAdditivityUnderSplit checks count_k(start,stop) = count_k(start,s)
// + count_k(s+1,stop) for a representative split point, the invariant named
// directly in the governing testable-properties list.
func TestDriverAdditivityUnderSplit(t *testing.T) {
	const start, stop, split = 0, 10_000, 4999

	whole := NewDriver()
	whole.Configure(Config{Start: start, Stop: stop, Flags: CountPrimes | CountTwins})
	if err := whole.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve(whole): %v", err)
	}

	left := NewDriver()
	left.Configure(Config{Start: start, Stop: split, Flags: CountPrimes | CountTwins})
	if err := left.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve(left): %v", err)
	}

	right := NewDriver()
	right.Configure(Config{Start: split + 1, Stop: stop, Flags: CountPrimes | CountTwins})
	if err := right.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve(right): %v", err)
	}

	if whole.Count(CountIdxPrimes) != left.Count(CountIdxPrimes)+right.Count(CountIdxPrimes) {
		t.Errorf("prime additivity broken: whole=%d, left=%d, right=%d",
			whole.Count(CountIdxPrimes), left.Count(CountIdxPrimes), right.Count(CountIdxPrimes))
	}
	// No twin pair straddles the cut between 4999 and 5000 (5001 = 3*1667),
	// so plain addition holds for this split point too.
	if whole.Count(CountIdxTwins) != left.Count(CountIdxTwins)+right.Count(CountIdxTwins) {
		t.Errorf("twin additivity broken: whole=%d, left=%d, right=%d",
			whole.Count(CountIdxTwins), left.Count(CountIdxTwins), right.Count(CountIdxTwins))
	}
}

func TestDriverInvalidRange(t *testing.T) {
	d := NewDriver()
	d.Configure(Config{Start: 100, Stop: 1, Flags: CountPrimes})
	err := d.Sieve(context.Background())
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Sieve with start>stop: err = %v, want ErrInvalidRange", err)
	}
}

func TestDriverInvalidSieveSize(t *testing.T) {
	d := NewDriver()
	if err := d.SetSieveSize(100); !errors.Is(err, ErrInvalidSieveSize) {
		t.Errorf("SetSieveSize(100): err = %v, want ErrInvalidSieveSize", err)
	}
	if err := d.SetSieveSize(64); err != nil {
		t.Errorf("SetSieveSize(64): %v, want nil", err)
	}
}

func TestDriverInvalidPreSieve(t *testing.T) {
	d := NewDriver()
	if err := d.SetPreSieve(10); !errors.Is(err, ErrUnsupportedPreSieve) {
		t.Errorf("SetPreSieve(10): err = %v, want ErrUnsupportedPreSieve", err)
	}
	if err := d.SetPreSieve(13); err != nil {
		t.Errorf("SetPreSieve(13): %v, want nil", err)
	}
}

// TestDriverCancelTokenStopsEarly verifies that a CancelToken raised
// before Sieve starts makes it return ErrCancelled at the first segment
// boundary instead of sieving the whole range.
func TestDriverCancelTokenStopsEarly(t *testing.T) {
	d := NewDriver()
	d.Configure(Config{Start: 0, Stop: 1_000_000_000, SieveSizeKB: 32, Flags: CountPrimes})
	tok := &CancelToken{}
	d.SetCancelToken(tok)
	tok.Cancel() // cancel before the first segment even runs

	err := d.Sieve(context.Background())
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Sieve: err = %v, want ErrCancelled", err)
	}
}

// TestDriverCallbackCancellation exercises the documented cancellation
// scenario: stop counting once a specific prime has been observed, and
// confirm the callback fired exactly once per prime up to that point.
func TestDriverCallbackCancellation(t *testing.T) {
	d := NewDriver()
	const stopAt = 13
	seen := 0
	d.SetCallback(func(p uint64) CallbackOutcome {
		seen++
		if p == stopAt {
			return CallbackStop
		}
		return CallbackContinue
	})
	d.Configure(Config{Start: 0, Stop: 1000, Flags: CountPrimes | Callback64})

	err := d.Sieve(context.Background())
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Sieve: err = %v, want ErrCancelled", err)
	}
	// Primes observed in order: 2, 3, 5, 7, 11, 13 -- six calls before stop.
	if seen != 6 {
		t.Errorf("callback invoked %d times, want 6", seen)
	}
}

func TestDriverResetReturnsToIdle(t *testing.T) {
	d := NewDriver()
	d.Configure(Config{Start: 0, Stop: 100, Flags: CountPrimes})
	if err := d.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve: %v", err)
	}
	if d.state != stateDone {
		t.Fatalf("state after Sieve = %v, want stateDone", d.state)
	}
	d.Reset()
	if d.state != stateIdle {
		t.Errorf("state after Reset = %v, want stateIdle", d.state)
	}
	if d.Count(CountIdxPrimes) != 0 {
		t.Errorf("Count after Reset = %d, want 0 (finder cleared)", d.Count(CountIdxPrimes))
	}
}

func TestDriverStatusReachesComplete(t *testing.T) {
	d := NewDriver()
	d.Configure(Config{Start: 0, Stop: 100_000, Flags: CountPrimes})
	if err := d.Sieve(context.Background()); err != nil {
		t.Fatalf("Sieve: %v", err)
	}
	if got := d.Status(); got != 100 {
		t.Errorf("Status() after completed Sieve = %v, want 100", got)
	}
}
