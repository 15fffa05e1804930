package sieve

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// Parallel splits [Start, Stop] into disjoint, 30*SegmentSize-aligned
// sub-intervals and runs one independent, shared-nothing Driver per
// worker, generalizing the teacher's bounded worker pool
// (workerProcessSegment/segmentResult/ordered reassembly) from
// "concatenate slices in order" to "sum count vectors in any order".
// Print and callback modes are not supported here: ordering across
// workers is undefined, so only the Count* flags are honored.
type Parallel struct {
	cfg Config
}

func NewParallel(cfg Config) *Parallel {
	return &Parallel{cfg: cfg}
}

type subInterval struct{ start, stop uint64 }

func (p *Parallel) splitIntervals(segmentRange uint64) ([]subInterval, error) {
	start, stop := p.cfg.Start, p.cfg.Stop
	if start > stop {
		return nil, ErrInvalidRange
	}
	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	total := stop - start + 1
	chunk := total / uint64(workers)
	if chunk < segmentRange {
		chunk = segmentRange
	}
	chunk = ((chunk + segmentRange - 1) / segmentRange) * segmentRange

	var intervals []subInterval
	s := start
	for {
		e := s + chunk - 1
		if e > stop || e < s {
			e = stop
		}
		intervals = append(intervals, subInterval{s, e})
		if e >= stop {
			break
		}
		s = e + 1
	}
	return intervals, nil
}

// Run executes every sub-interval's Driver (bounded to cfg.Workers
// concurrent goroutines), sums their count vectors with plain addition
// (commutative, so completion order never matters), and aggregates every
// worker's error with multierr rather than stopping at the first one.
func (p *Parallel) Run(ctx context.Context) ([7]uint64, error) {
	sieveSizeBytes := uint64(defaultSieveSizeKB) * 1024
	if p.cfg.SieveSizeKB != 0 {
		sieveSizeBytes = uint64(p.cfg.SieveSizeKB) * 1024
	}
	segmentRange := 30 * sieveSizeBytes

	intervals, err := p.splitIntervals(segmentRange)
	if err != nil {
		return [7]uint64{}, err
	}

	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([][7]uint64, len(intervals))
	errs := make([]error, len(intervals))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, iv := range intervals {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, iv subInterval) {
			defer wg.Done()
			defer func() { <-sem }()

			d := NewDriver()
			d.SetStart(iv.start)
			d.SetStop(iv.stop)
			if p.cfg.SieveSizeKB != 0 {
				if serr := d.SetSieveSize(p.cfg.SieveSizeKB); serr != nil {
					errs[i] = serr
					return
				}
			}
			if p.cfg.PreSieve != 0 {
				if serr := d.SetPreSieve(p.cfg.PreSieve); serr != nil {
					errs[i] = serr
					return
				}
			}
			d.SetFlags(p.cfg.Flags &^ (printMask | Callback32 | Callback64 | CallbackOOP))

			if serr := d.Sieve(ctx); serr != nil {
				errs[i] = serr
				return
			}
			for k := 0; k < countIdxLen; k++ {
				results[i][k] = d.Count(k)
			}
		}(i, iv)
	}
	wg.Wait()

	var total [7]uint64
	var aggErr error
	for i := range intervals {
		if errs[i] != nil {
			aggErr = multierr.Append(aggErr, errs[i])
			continue
		}
		for k := 0; k < countIdxLen; k++ {
			total[k] += results[i][k]
		}
	}
	return total, aggErr
}
