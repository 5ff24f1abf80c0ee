package dice_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/azdice/internal/dice"
)

func seededFactory(base uint64) func() dice.Source {
	var n atomic.Uint64
	return func() dice.Source {
		return dice.NewSeededSource(base + n.Add(1))
	}
}

// TestCountDistribution_SeededOverRange verifies every total in range is a
// key even before it is observed, and counts sum to the number of rolls.
func TestCountDistribution_SeededOverRange(t *testing.T) {
	bag := mustParse(t, "3d6")
	counts := bag.CountDistribution(0, dice.NewSeededSource(1))
	require.Len(t, counts, 16)
	for v := int64(3); v <= 18; v++ {
		assert.Contains(t, counts, v)
		assert.Zero(t, counts[v])
	}

	counts = bag.CountDistribution(1000, dice.NewSeededSource(1))
	sum := 0
	for _, c := range counts {
		sum += c
	}
	assert.Equal(t, 1000, sum)
}

// TestCountDistribution_ModifiedDiceAttainRange verifies clamped dice still
// reach both ends of their narrowed range.
func TestCountDistribution_ModifiedDiceAttainRange(t *testing.T) {
	for _, expr := range []string{"4d6mn3", "4d6mx4", "4d6mn2mx5"} {
		bag := mustParse(t, expr)
		counts := bag.CountDistribution(200_000, dice.NewSeededSource(17))
		rng := bag.Range()
		for v := rng.Min; v <= rng.Max; v++ {
			assert.Positive(t, counts[v], "%s: total %d never rolled", expr, v)
		}
	}
}

// TestFrequencyDistribution_SumsToHundred verifies percentages cover all rolls.
func TestFrequencyDistribution_SumsToHundred(t *testing.T) {
	freq := mustParse(t, "2d6").FrequencyDistribution(10_000, dice.NewSeededSource(4))
	var sum float64
	for _, p := range freq {
		sum += p
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

// TestPercentages_ZeroRolls verifies no division by zero.
func TestPercentages_ZeroRolls(t *testing.T) {
	out := dice.Percentages(map[int64]int{1: 0, 2: 0}, 0)
	assert.Equal(t, map[int64]float64{1: 0, 2: 0}, out)
}

// TestSample_CountsAllRolls verifies parallel sampling draws exactly rolls samples.
func TestSample_CountsAllRolls(t *testing.T) {
	bag := mustParse(t, "2d8+1")
	counts, err := bag.Sample(context.Background(), 12_345, 4, seededFactory(100))
	require.NoError(t, err)
	sum := 0
	for v, c := range counts {
		assert.True(t, bag.Range().Contains(v))
		sum += c
	}
	assert.Equal(t, 12_345, sum)
	assert.Len(t, counts, 15)
}

// TestSample_ZeroRolls verifies an empty sample still covers the range.
func TestSample_ZeroRolls(t *testing.T) {
	counts, err := mustParse(t, "1d4").Sample(context.Background(), 0, 0, seededFactory(0))
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 0, 2: 0, 3: 0, 4: 0}, counts)
}

// TestSample_Cancelled verifies a cancelled context aborts sampling.
func TestSample_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mustParse(t, "3d6").Sample(ctx, 1_000_000, 2, seededFactory(0))
	assert.ErrorIs(t, err, context.Canceled)
}

// TestSample_CancelledBeforeSeeding verifies a done context is reported
// before the range is pre-seeded, so a very wide bag costs nothing.
func TestSample_CancelledBeforeSeeding(t *testing.T) {
	bag := mustParse(t, "100d10000000")
	require.Greater(t, bag.Width(), uint64(900_000_000))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	counts, err := bag.Sample(ctx, 10, 1, func() dice.Source {
		calls++
		return dice.NewSeededSource(1)
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, counts)
	assert.Zero(t, calls)
}

// TestNewHistogram_Ordered verifies bins are value-ordered with percentages.
func TestNewHistogram_Ordered(t *testing.T) {
	h := dice.NewHistogram(map[int64]int{3: 1, 1: 2, 2: 1}, 4)
	assert.Equal(t, dice.Histogram{
		{Value: 1, Count: 2, Percent: 50},
		{Value: 2, Count: 1, Percent: 25},
		{Value: 3, Count: 1, Percent: 25},
	}, h)
	assert.InDelta(t, 1.75, h.Mean(), 1e-12)
	assert.Zero(t, dice.Histogram{}.Mean())
}

// TestDistribution_D10Uniform verifies 1d10 over 50,000,000 samples has mean
// 5.5 and each face near 10%.
func TestDistribution_D10Uniform(t *testing.T) {
	if testing.Short() {
		t.Skip("50M-sample distribution check skipped in short mode")
	}
	const rolls = 50_000_000
	bag := mustParse(t, "1d10")
	counts, err := bag.Sample(context.Background(), rolls, 0, seededFactory(2024))
	require.NoError(t, err)

	h := dice.NewHistogram(counts, rolls)
	require.Len(t, h, 10)
	assert.InDelta(t, 5.5, h.Mean(), 0.002)
	for _, bin := range h {
		assert.InDelta(t, 10.0, bin.Percent, 0.05, "face %d", bin.Value)
	}
}
