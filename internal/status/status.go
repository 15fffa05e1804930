// Package status tracks and renders sieving progress, generalizing the
// teacher's ProgressTracker/ProgressBar pair: a Tracker holds atomic
// completed/total counters (driven by a Driver's segment loop instead of
// a flat progress func(int)), and a Bar renders it to a terminal exactly
// like the teacher's ProgressBar.
package status

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// Tracker holds progress (in units of integers processed, not segments)
// behind sync/atomic so a Driver can update it from its single sieving
// goroutine while a caller reads it concurrently for display.
type Tracker struct {
	total     uint64
	completed uint64
}

func NewTracker(total uint64) *Tracker {
	return &Tracker{total: total}
}

func (t *Tracker) AddCompleted(delta uint64) {
	atomic.AddUint64(&t.completed, delta)
}

func (t *Tracker) GetCompleted() uint64 {
	return atomic.LoadUint64(&t.completed)
}

func (t *Tracker) GetTotal() uint64 {
	return atomic.LoadUint64(&t.total)
}

// GetPercent returns progress in [0.0, 100.0], the range Driver.Status
// exposes externally.
func (t *Tracker) GetPercent() float64 {
	total := t.GetTotal()
	if total == 0 {
		return 100
	}
	pct := float64(t.GetCompleted()) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Bar renders a Tracker to os.Stderr on demand, styled exactly like the
// teacher's ProgressBar: a "[===   ]" bar, a percentage, and a
// rate-with-units suffix.
type Bar struct {
	tracker     *Tracker
	width       int
	startTime   time.Time
	description string
}

func NewBar(tracker *Tracker, description string) *Bar {
	return &Bar{
		tracker:     tracker,
		width:       40,
		description: description,
		startTime:   time.Now(),
	}
}

func (b *Bar) Render() {
	total := b.tracker.GetTotal()
	if total == 0 {
		return
	}
	completed := b.tracker.GetCompleted()

	percent := float64(completed) / float64(total)
	if percent > 1.0 {
		percent = 1.0
	}
	filled := int(percent * float64(b.width))

	elapsed := time.Since(b.startTime)
	rate := float64(completed) / elapsed.Seconds()
	var rateStr string
	switch {
	case rate >= 1_000_000:
		rateStr = fmt.Sprintf("%.1fM/s", rate/1_000_000)
	case rate >= 1_000:
		rateStr = fmt.Sprintf("%.1fK/s", rate/1_000)
	default:
		rateStr = fmt.Sprintf("%.0f/s", rate)
	}

	fmt.Fprintf(os.Stderr, "\r%s: [%s%s] %3.0f%% | %d/%d | %s",
		b.description,
		strings.Repeat("=", filled),
		strings.Repeat(" ", b.width-filled),
		percent*100,
		completed,
		total,
		rateStr)
}

func (b *Bar) Finish() {
	b.Render()
	fmt.Fprintln(os.Stderr)
}

func GetCPUCount() int {
	return runtime.NumCPU()
}

// FormatNumber renders n with a K/M/B suffix, verbatim from the teacher's
// formatting convention.
func FormatNumber(n uint64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.2fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
