package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Tiza59/primesieve/internal/status"
	"github.com/Tiza59/primesieve/sieve"
)

var (
	start       uint64
	stop        uint64
	sieveSizeKB int
	preSieve    int
	threads     int
	showStatus  bool

	count1, count2, count3, count4, count5, count6, count7 bool
	print1, print2, print3, print4, print5, print6, print7  bool
)

func init() {
	flag.Uint64Var(&start, "start", 0, "Lower bound of the interval (inclusive)")
	flag.Uint64Var(&stop, "stop", 0, "Upper bound of the interval (inclusive)")
	flag.IntVar(&sieveSizeKB, "sieve-size", 32, "Segment size in KiB (power of two, 1-4096)")
	flag.IntVar(&preSieve, "pre-sieve", 0, "Pre-sieve small-prime bound (0, 7, 11, 13, 17, 19 or 23)")
	flag.IntVar(&threads, "threads", 1, "Number of parallel workers (counts only)")
	flag.BoolVar(&showStatus, "status", false, "Show a progress bar on stderr")

	flag.BoolVar(&count1, "count1", false, "Count primes")
	flag.BoolVar(&count2, "count2", false, "Count twin prime pairs")
	flag.BoolVar(&count3, "count3", false, "Count prime triplets")
	flag.BoolVar(&count4, "count4", false, "Count prime quadruplets")
	flag.BoolVar(&count5, "count5", false, "Count prime quintuplets")
	flag.BoolVar(&count6, "count6", false, "Count prime sextuplets")
	flag.BoolVar(&count7, "count7", false, "Count prime septuplets")

	flag.BoolVar(&print1, "print1", false, "Print primes")
	flag.BoolVar(&print2, "print2", false, "Print twin prime pairs")
	flag.BoolVar(&print3, "print3", false, "Print prime triplets")
	flag.BoolVar(&print4, "print4", false, "Print prime quadruplets")
	flag.BoolVar(&print5, "print5", false, "Print prime quintuplets")
	flag.BoolVar(&print6, "print6", false, "Print prime sextuplets")
	flag.BoolVar(&print7, "print7", false, "Print prime septuplets")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "primesieve: count and print primes and prime k-tuplets over [start, stop]\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -start 0 -stop 1000000 -count1           # count primes below 1e6\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -start 0 -stop 1000000000 -count1 -count2 -threads 4\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -start 0 -stop 100 -print1                # print primes below 100\n", os.Args[0])
	}
}

func buildFlags() sieve.Flags {
	var f sieve.Flags
	counts := []bool{count1, count2, count3, count4, count5, count6, count7}
	prints := []bool{print1, print2, print3, print4, print5, print6, print7}
	countBits := []sieve.Flags{sieve.CountPrimes, sieve.CountTwins, sieve.CountTriplets, sieve.CountQuadruplets, sieve.CountQuintuplets, sieve.CountSextuplets, sieve.CountSeptuplets}
	printBits := []sieve.Flags{sieve.PrintPrimes, sieve.PrintTwins, sieve.PrintTriplets, sieve.PrintQuadruplets, sieve.PrintQuintuplets, sieve.PrintSextuplets, sieve.PrintSeptuplets}
	for i := range counts {
		if counts[i] {
			f |= countBits[i]
		}
		if prints[i] {
			f |= printBits[i]
		}
	}
	if showStatus {
		f |= sieve.CalculateStatus | sieve.PrintStatus
	}
	return f
}

func main() {
	flag.Parse()

	if stop == 0 {
		fmt.Fprintln(os.Stderr, "Error: -stop is required and must be > 0")
		flag.Usage()
		os.Exit(1)
	}
	if start > stop {
		fmt.Fprintln(os.Stderr, "Error: -start must be <= -stop")
		os.Exit(1)
	}

	flags := buildFlags()
	if flags == 0 {
		flags = sieve.CountPrimes
	}

	threadCount := threads
	if threadCount <= 0 {
		threadCount = status.GetCPUCount()
	}

	cfg := sieve.Config{
		Start:       start,
		Stop:        stop,
		SieveSizeKB: sieveSizeKB,
		PreSieve:    preSieve,
		Flags:       flags,
		Workers:     threadCount,
	}

	computeStart := time.Now()
	var counts [7]uint64
	var err error

	if threadCount > 1 {
		counts, err = sieve.NewParallel(cfg).Run(context.Background())
	} else {
		d := sieve.NewDriver()
		if cerr := d.Configure(cfg); cerr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", cerr)
			os.Exit(1)
		}

		done := make(chan struct{})
		barDone := make(chan struct{})
		if showStatus {
			bar := status.NewBar(d.Tracker(), "sieving")
			go func() {
				defer close(barDone)
				ticker := time.NewTicker(200 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						bar.Finish()
						return
					case <-ticker.C:
						bar.Render()
					}
				}
			}()
		} else {
			close(barDone)
		}

		err = d.Sieve(context.Background())
		close(done)
		<-barDone
		for k := 0; k < 7; k++ {
			counts[k] = d.Count(k)
		}
	}

	totalTime := time.Since(computeStart)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	labels := []string{"primes", "twins", "triplets", "quadruplets", "quintuplets", "sextuplets", "septuplets"}
	var sb strings.Builder
	for i, want := range []bool{count1, count2, count3, count4, count5, count6, count7} {
		if want {
			fmt.Fprintf(&sb, "%s=%d ", labels[i], counts[i])
		}
	}

	fmt.Printf("%s\n", strings.TrimSpace(sb.String()))
	fmt.Fprintf(os.Stderr, "Done! Sieved [%s, %s] in %.3fs.\n",
		status.FormatNumber(start), status.FormatNumber(stop), totalTime.Seconds())
}
