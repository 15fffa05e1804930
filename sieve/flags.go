package sieve

import "golang.org/x/xerrors"

// Flags is a bitset controlling what the Finder does with a sieved
// segment: which counters to update, which patterns to print, and
// whether status/callback machinery is active.
type Flags uint32

const (
	CountPrimes Flags = 1 << iota
	CountTwins
	CountTriplets
	CountQuadruplets
	CountQuintuplets
	CountSextuplets
	CountSeptuplets
	PrintPrimes
	PrintTwins
	PrintTriplets
	PrintQuadruplets
	PrintQuintuplets
	PrintSextuplets
	PrintSeptuplets
	CalculateStatus
	PrintStatus
	Callback32
	Callback64
	CallbackOOP
)

// countMask and printMask isolate the count/print sub-bitsets.
const countMask = CountPrimes | CountTwins | CountTriplets | CountQuadruplets | CountQuintuplets | CountSextuplets | CountSeptuplets
const printMask = PrintPrimes | PrintTwins | PrintTriplets | PrintQuadruplets | PrintQuintuplets | PrintSextuplets | PrintSeptuplets

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// Count* indices into a [7]uint64 count vector, and the k-tuplet span
// (number of consecutive bytes a pattern can straddle) each needs.
const (
	CountIdxPrimes = iota
	CountIdxTwins
	CountIdxTriplets
	CountIdxQuadruplets
	CountIdxQuintuplets
	CountIdxSextuplets
	CountIdxSeptuplets
	countIdxLen
)

// CallbackOutcome is returned by caller-supplied callbacks to signal
// whether sieving should continue.
type CallbackOutcome int

const (
	CallbackContinue CallbackOutcome = iota
	CallbackStop
)

var (
	ErrInvalidRange        = xerrors.New("sieve: start must be <= stop")
	ErrUnsupportedPreSieve = xerrors.New("sieve: pre-sieve bound must be one of 7, 11, 13, 17, 19, 23")
	ErrInvalidSieveSize    = xerrors.New("sieve: sieve size must be a power of two between 1 and 4096 KiB")
	ErrCancelled           = xerrors.New("sieve: sieving was cancelled")
	ErrBucketAllocation    = xerrors.New("sieve: failed to allocate a big-prime bucket chunk")
)
