package dice

import (
	"context"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// cancelPollInterval is how many samples a worker draws between checks of
// its context.
const cancelPollInterval = 1024

// emptyCounts returns a count map seeded with zero for every total in the
// bag's range, so totals that never occur still appear.
func (b *Bag) emptyCounts() map[int64]int {
	counts := make(map[int64]int, b.rng.Max-b.rng.Min+1)
	for v := b.rng.Min; v <= b.rng.Max; v++ {
		counts[v] = 0
	}
	return counts
}

// CountDistribution rolls the bag rolls times and counts each total.
//
// Postcondition: every total in Range() is a key; totals outside Range()
// (from exploding or subtracted dice) are added as they occur; the counts
// sum to rolls.
func (b *Bag) CountDistribution(rolls int, src Source) map[int64]int {
	counts := b.emptyCounts()
	for i := 0; i < rolls; i++ {
		counts[b.Roll(src).Total]++
	}
	return counts
}

// FrequencyDistribution is CountDistribution expressed as percentages of
// rolls.
func (b *Bag) FrequencyDistribution(rolls int, src Source) map[int64]float64 {
	return Percentages(b.CountDistribution(rolls, src), rolls)
}

// Percentages converts counts to percentages of rolls. A rolls of zero
// yields zero for every key.
func Percentages(counts map[int64]int, rolls int) map[int64]float64 {
	out := make(map[int64]float64, len(counts))
	for v, c := range counts {
		if rolls > 0 {
			out[v] = float64(c) / float64(rolls) * 100
		} else {
			out[v] = 0
		}
	}
	return out
}

// Sample builds a count distribution like CountDistribution, splitting the
// rolls across workers goroutines. newSource is called once per worker so no
// Source is shared; workers <= 0 means GOMAXPROCS. Workers poll ctx between
// samples and Sample returns ctx's error if it is cancelled. A context that
// is already done is reported before any bin is allocated.
func (b *Bag) Sample(ctx context.Context, rolls, workers int, newSource func() Source) (map[int64]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := b.emptyCounts()
	if rolls <= 0 {
		return counts, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, rolls)

	partial := make([]map[int64]int, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		share := rolls / workers
		if w < rolls%workers {
			share++
		}
		g.Go(func() error {
			src := newSource()
			local := make(map[int64]int)
			for i := 0; i < share; i++ {
				if i%cancelPollInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				local[b.Roll(src).Total]++
			}
			partial[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, local := range partial {
		for v, c := range local {
			counts[v] += c
		}
	}
	return counts, nil
}

// Bin is one entry of a Histogram.
type Bin struct {
	Value   int64   `json:"value"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Histogram is a distribution as value-ordered plain data, suitable for
// copying across an API or FFI boundary.
type Histogram []Bin

// NewHistogram orders counts by value and attaches each bin's percentage of
// rolls.
func NewHistogram(counts map[int64]int, rolls int) Histogram {
	values := make([]int64, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	slices.Sort(values)

	pct := Percentages(counts, rolls)
	h := make(Histogram, 0, len(values))
	for _, v := range values {
		h = append(h, Bin{Value: v, Count: counts[v], Percent: pct[v]})
	}
	return h
}

// Mean returns the count-weighted mean total, or 0 for an empty histogram.
func (h Histogram) Mean() float64 {
	var sum float64
	var n int
	for _, bin := range h {
		sum += float64(bin.Value) * float64(bin.Count)
		n += bin.Count
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
