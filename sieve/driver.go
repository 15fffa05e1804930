package sieve

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/Tiza59/primesieve/internal/status"
)

const maxUint64 = ^uint64(0)

type driverState int

const (
	stateIdle driverState = iota
	stateReady
	stateRunning
	stateDone
	stateCancelled
)

const defaultSieveSizeKB = 32

// CancelToken is an out-of-band cancellation flag a caller can raise from
// another goroutine; Sieve observes it at segment boundaries. This is the
// Go replacement for the source's callback-thrown-exception cancellation
// model.
type CancelToken struct {
	flag int32
}

func (c *CancelToken) Cancel()         { atomic.StoreInt32(&c.flag, 1) }
func (c *CancelToken) Cancelled() bool { return atomic.LoadInt32(&c.flag) == 1 }

// Config is the flat set of parameters that configure a Driver (or, via
// Workers, a Parallel controller), mirroring the teacher's flat CLI-flag
// parameters (n, segment, workers, parallel) translated 1:1 into a
// struct instead of positional arguments.
type Config struct {
	Start       uint64
	Stop        uint64
	SieveSizeKB int
	PreSieve    int
	Flags       Flags
	Workers     int
}

// Driver orchestrates segment-by-segment progression over [Start, Stop]:
// it owns the segment buffer, the three Erat engines, and the count
// vector, and publishes status/elapsed time. Generalizes the teacher's
// SegmentedSieve loop plus its progress func(int) convention.
type Driver struct {
	start, stop    uint64
	sieveSizeBytes uint64
	preSieve       int
	flags          Flags
	writer         io.Writer
	callback       func(uint64) CallbackOutcome
	cancel         *CancelToken

	state   driverState
	finder  *Finder
	tracker *status.Tracker
	seconds float64
}

func NewDriver() *Driver {
	return &Driver{
		sieveSizeBytes: defaultSieveSizeKB * 1024,
		writer:         os.Stdout,
		state:          stateIdle,
	}
}

func (d *Driver) SetStart(v uint64) { d.start = v; d.bumpReady(); d.resizeTracker() }
func (d *Driver) SetStop(v uint64)  { d.stop = v; d.bumpReady(); d.resizeTracker() }

// resizeTracker keeps the Tracker's total in sync with [start, stop]
// whenever either bound changes, so a caller that grabbed Tracker()
// before Sieve runs sees the right denominator immediately.
func (d *Driver) resizeTracker() {
	if d.stop < d.start {
		return
	}
	d.tracker = status.NewTracker(d.stop - d.start + 1)
}

func (d *Driver) SetSieveSize(kb int) error {
	if kb < 1 || kb > 4096 || kb&(kb-1) != 0 {
		return ErrInvalidSieveSize
	}
	d.sieveSizeBytes = uint64(kb) * 1024
	d.bumpReady()
	return nil
}

func (d *Driver) SetPreSieve(p int) error {
	if p != 0 && !validPreSieveBound(p) {
		return ErrUnsupportedPreSieve
	}
	d.preSieve = p
	d.bumpReady()
	return nil
}

func (d *Driver) SetFlags(f Flags) { d.flags = f; d.bumpReady() }

// SetWriter overrides the destination for PrintPrimes/PrintTwins/... output;
// it defaults to os.Stdout, matching the teacher's CLI convention of
// results on stdout and diagnostics on stderr.
func (d *Driver) SetWriter(w io.Writer) { d.writer = w }

// SetCallback installs the per-prime callback; once installed it is
// invoked for every prime, whatever the Callback32/64/OOP flags say.
func (d *Driver) SetCallback(cb func(uint64) CallbackOutcome) { d.callback = cb }

// SetCancelToken installs an externally-owned cancellation flag.
func (d *Driver) SetCancelToken(t *CancelToken) { d.cancel = t }

func (d *Driver) bumpReady() {
	if d.state == stateIdle {
		d.state = stateReady
	}
}

// Reset returns a Done/Cancelled Driver to Idle so it can be configured
// and run again.
func (d *Driver) Reset() {
	d.state = stateIdle
	d.finder = nil
	d.seconds = 0
}

// Configure applies a Config wholesale; equivalent to calling each setter.
func (d *Driver) Configure(c Config) error {
	d.SetStart(c.Start)
	d.SetStop(c.Stop)
	if c.SieveSizeKB != 0 {
		if err := d.SetSieveSize(c.SieveSizeKB); err != nil {
			return err
		}
	}
	if c.PreSieve != 0 {
		if err := d.SetPreSieve(c.PreSieve); err != nil {
			return err
		}
	}
	d.SetFlags(c.Flags)
	return nil
}

// Count returns the most recently sieved total for the given Count*
// index (0..6, see CountIdx* constants).
func (d *Driver) Count(kind int) uint64 {
	if d.finder == nil || kind < 0 || kind >= countIdxLen {
		return 0
	}
	return d.finder.Counts[kind]
}

// Status returns sieving progress in [0.0, 100.0].
func (d *Driver) Status() float64 {
	if d.tracker == nil {
		return 0
	}
	return d.tracker.GetPercent()
}

// Tracker exposes the Driver's progress tracker so a caller can attach a
// status.Bar before Sieve starts running (it is created as soon as Start
// and Stop are both known, not lazily inside Sieve, so a poller started
// concurrently with Sieve never races against a nil tracker).
func (d *Driver) Tracker() *status.Tracker {
	if d.tracker == nil {
		d.tracker = status.NewTracker(0)
	}
	return d.tracker
}

func (d *Driver) Seconds() float64 { return d.seconds }

var smallPrimesBelowWheel = [3]uint64{2, 3, 5}

// isPrimeByTrial reports whether v is prime by trial division against
// basePrimes, which must contain every prime <= sqrt(v) (primesUpTo(limit)
// does, for any v <= limit). Used only for the single segmentLow+1
// boundary value a segment's own bit encoding can never represent.
func isPrimeByTrial(v uint64, basePrimes []uint64) bool {
	if v < 2 {
		return false
	}
	for _, p := range basePrimes {
		if p*p > v {
			break
		}
		if v%p == 0 {
			return false
		}
	}
	return true
}

// Sieve runs the engine over [start, stop], filling counters and driving
// prints/callbacks per the configured flags. ctx is checked for
// cancellation at the same segment boundaries as the CancelToken; it is
// never used to enforce a deadline inside the hot loop.
func (d *Driver) Sieve(ctx context.Context) error {
	if d.start > d.stop {
		return ErrInvalidRange
	}
	d.state = stateRunning
	began := time.Now()

	d.finder = NewFinder(d.flags, d.writer, d.callback)
	// Keep the tracker a caller may already hold from Tracker(), unless it
	// is stale (wrong total, or already advanced by an earlier run).
	if d.tracker == nil || d.tracker.GetTotal() != d.stop-d.start+1 || d.tracker.GetCompleted() != 0 {
		d.tracker = status.NewTracker(d.stop - d.start + 1)
	}

	for _, p := range smallPrimesBelowWheel {
		if p < d.start || p > d.stop {
			continue
		}
		if d.flags.has(CountPrimes) {
			d.finder.Counts[CountIdxPrimes]++
		}
		if d.flags.has(PrintPrimes) {
			fmt.Fprintln(d.writer, p)
		}
		if d.callback != nil && d.callback(p) == CallbackStop {
			d.state = stateCancelled
			d.seconds = time.Since(began).Seconds()
			return ErrCancelled
		}
	}

	limit := isqrt64(d.stop) + 1
	basePrimes := primesUpTo(limit)

	segmentLow := (d.start / 30) * 30

	// segmentLow+1 (i.e. the wheel's own residue-1 value for this run's
	// very first 30-window) has no bit anywhere in the segment encoding:
	// every byte's bit7 stores the *next* window's "+1", so normally a
	// window's own "+1" is supplied by the previous segment's trailing
	// byte -- except there is no previous segment for the first one.
	// Handle that single value directly, the same way smallPrimesBelowWheel
	// handles 2, 3 and 5 falling outside the encoding entirely.
	if v := segmentLow + 1; v >= d.start && v <= d.stop && isPrimeByTrial(v, basePrimes) {
		if d.flags.has(CountPrimes) {
			d.finder.Counts[CountIdxPrimes]++
		}
		if d.flags.has(PrintPrimes) {
			fmt.Fprintln(d.writer, v)
		}
		if d.callback != nil && d.callback(v) == CallbackStop {
			d.state = stateCancelled
			d.seconds = time.Since(began).Seconds()
			return ErrCancelled
		}
	}
	segmentRange := 30 * d.sieveSizeBytes
	threshold := isqrt64(d.sieveSizeBytes * 30)

	var small EratSmall
	var medium EratMedium
	big := newEratBig(d.sieveSizeBytes, len(basePrimes))

	for _, p := range basePrimes {
		if p <= 5 {
			continue
		}
		if d.preSieve != 0 && p <= uint64(d.preSieve) {
			continue
		}
		switch {
		// 7 divides 210 and has no wheel210 spoke of its own, so it can
		// never ride EratMedium/EratBig -- it always strikes via wheel30.
		case p == 7:
			small.add(p, segmentLow)
		case p > segmentRange:
			if err := big.add(p, segmentLow, 0); err != nil {
				d.state = stateCancelled
				return err
			}
		case p >= threshold:
			medium.add(p, segmentLow)
		default:
			small.add(p, segmentLow)
		}
	}

	seg := newSegment(int(d.sieveSizeBytes))
	var segIdx uint64

	for segmentLow <= d.stop {
		if d.cancel != nil && d.cancel.Cancelled() {
			d.state = stateCancelled
			d.seconds = time.Since(began).Seconds()
			return ErrCancelled
		}
		select {
		case <-ctx.Done():
			d.state = stateCancelled
			d.seconds = time.Since(began).Seconds()
			return ErrCancelled
		default:
		}

		seg.reset(segmentLow)
		if d.preSieve != 0 {
			applyPreSieve(seg, d.preSieve)
		}
		small.crossOff(seg.buf)
		medium.crossOff(seg.buf)
		if err := big.crossOff(seg.buf, segIdx); err != nil {
			d.state = stateCancelled
			return err
		}

		outcome := d.finder.process(seg, d.start, d.stop)

		processed := 30 * uint64(seg.bytes)
		if segmentLow+processed > d.stop {
			processed = d.stop - segmentLow + 1
		}
		d.tracker.AddCompleted(processed)

		if outcome == CallbackStop {
			d.state = stateCancelled
			d.seconds = time.Since(began).Seconds()
			return ErrCancelled
		}

		if segmentLow > maxUint64-segmentRange {
			break
		}
		segmentLow += segmentRange
		segIdx++
	}

	d.state = stateDone
	d.seconds = time.Since(began).Seconds()
	return nil
}
