package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/azdice/internal/dice"
)

// scriptedSource replays die faces in order, wrapping around at the end.
type scriptedSource struct {
	faces []int
	next  int
}

func faces(f ...int) *scriptedSource { return &scriptedSource{faces: f} }

func (s *scriptedSource) Intn(n int) int {
	v := s.faces[s.next%len(s.faces)]
	s.next++
	return (v - 1) % n
}

func mustParse(t testing.TB, expr string) *dice.Bag {
	t.Helper()
	bag, err := dice.Parse(expr)
	require.NoError(t, err, expr)
	return bag
}

// TestRoll_BonusOnly verifies bonuses fold into the total exactly once each.
func TestRoll_BonusOnly(t *testing.T) {
	src := dice.NewSeededSource(1)
	assert.Equal(t, int64(5), mustParse(t, "5").Roll(src).Total)
	assert.Equal(t, int64(-5), dice.NewBag(dice.Minus(5)).Roll(src).Total)

	res := mustParse(t, "3+4").Roll(src)
	assert.Equal(t, int64(7), res.Total)
	assert.Equal(t, int64(7), res.Bonus.Subtotal)
	assert.Equal(t, []int64{3, 4}, res.Bonus.Values)

	assert.Equal(t, int64(7), mustParse(t, "10-3").Roll(src).Total)
	assert.Equal(t, int64(6), mustParse(t, "1+2+3").Roll(src).Total)
}

// TestRoll_DropLowest verifies the lowest dice are discarded and survivors
// are reported highest first.
func TestRoll_DropLowest(t *testing.T) {
	res := mustParse(t, "4d6dl1").Roll(faces(3, 6, 1, 4))
	require.Len(t, res.Dice, 1)
	assert.Equal(t, []int64{6, 4, 3}, res.Dice[0].Values)
	assert.Equal(t, int64(13), res.Dice[0].Subtotal)
	assert.Equal(t, int64(13), res.Total)
}

// TestRoll_DropHighest verifies the highest dice are discarded.
func TestRoll_DropHighest(t *testing.T) {
	res := mustParse(t, "4d6dh1").Roll(faces(3, 6, 1, 4))
	assert.Equal(t, []int64{1, 3, 4}, res.Dice[0].Values)
	assert.Equal(t, int64(8), res.Total)
}

// TestRoll_DropCustom verifies combined drops keep the middle of the sorted roll.
func TestRoll_DropCustom(t *testing.T) {
	res := mustParse(t, "3d20dl1dh1").Roll(faces(5, 17, 9))
	assert.Equal(t, []int64{9}, res.Dice[0].Values)
	assert.Equal(t, int64(9), res.Total)

	res = mustParse(t, "5d6dl1dh2").Roll(faces(6, 1, 5, 2, 4))
	assert.Equal(t, []int64{2, 4}, res.Dice[0].Values)
}

// TestRoll_RerollBelow verifies at most Count qualifying dice are resampled,
// scanning left to right.
func TestRoll_RerollBelow(t *testing.T) {
	res := mustParse(t, "4d6rr1be3").Roll(faces(1, 2, 5, 6, 4))
	assert.Equal(t, []int64{4, 2, 5, 6}, res.Dice[0].Values)
	assert.Equal(t, int64(17), res.Total)
}

// TestRoll_RerollAbove_NotRecursive verifies a rerolled die is not examined
// again even when it still qualifies.
func TestRoll_RerollAbove_NotRecursive(t *testing.T) {
	res := mustParse(t, "2d6rr2ab4").Roll(faces(6, 5, 6, 1))
	assert.Equal(t, []int64{6, 1}, res.Dice[0].Values)
	assert.Equal(t, int64(7), res.Total)
}

// TestRoll_Cutoff verifies values are clamped rather than rerolled.
func TestRoll_Cutoff(t *testing.T) {
	res := mustParse(t, "3d6mn3").Roll(faces(1, 2, 6))
	assert.Equal(t, []int64{3, 3, 6}, res.Dice[0].Values)

	res = mustParse(t, "3d6mx4").Roll(faces(6, 5, 1))
	assert.Equal(t, []int64{4, 4, 1}, res.Dice[0].Values)

	res = mustParse(t, "3d6mn2mx5").Roll(faces(1, 6, 3))
	assert.Equal(t, []int64{2, 5, 3}, res.Dice[0].Values)
}

// TestRoll_Explosive verifies a maximum roll chains further rolls while the
// maximum keeps coming up.
func TestRoll_Explosive(t *testing.T) {
	res := mustParse(t, "2d6!").Roll(faces(6, 6, 2, 3))
	assert.Equal(t, []int64{6, 6, 2, 3}, res.Dice[0].Values)
	assert.Equal(t, int64(17), res.Total)
}

// TestRoll_ExplosiveD1Terminates verifies an always-maximal die cannot hang.
func TestRoll_ExplosiveD1Terminates(t *testing.T) {
	res := mustParse(t, "2d1!").Roll(dice.NewSeededSource(7))
	assert.Greater(t, res.Total, int64(2))
	assert.Equal(t, int64(len(res.Dice[0].Values)), res.Total)
}

// TestRoll_SubtractedGroup verifies a subtracted group contributes a negative subtotal.
func TestRoll_SubtractedGroup(t *testing.T) {
	res := mustParse(t, "10-1d4").Roll(faces(3))
	assert.Equal(t, int64(7), res.Total)
	require.Len(t, res.Dice, 1)
	assert.Equal(t, int64(-3), res.Dice[0].Subtotal)
	assert.Equal(t, dice.Subtract, res.Dice[0].Group.Op)
}

// TestRoll_DoesNotMutateBag verifies rolling leaves the bag untouched.
func TestRoll_DoesNotMutateBag(t *testing.T) {
	bag := mustParse(t, "12d20dl4dh3rr3be4mn2")
	before := bag.Groups()
	src := dice.NewSeededSource(3)
	for i := 0; i < 100; i++ {
		bag.Roll(src)
	}
	assert.Equal(t, before, bag.Groups())
	assert.Equal(t, "12d20dl4dh3rr3be4mn2", bag.String())
}

// TestRoll_ResultSnapshotIndependent verifies the result owns its group snapshot.
func TestRoll_ResultSnapshotIndependent(t *testing.T) {
	bag := mustParse(t, "3d20dl1dh1")
	res := bag.Roll(dice.NewSeededSource(9))
	res.Dice[0].Group.Drop.Keep[0] = 2
	assert.Equal(t, []int{1}, bag.Groups()[0].(dice.DieGroup).Drop.Keep)
}

// TestRoll_SeededSourceDeterministic verifies equal seeds reproduce a roll.
func TestRoll_SeededSourceDeterministic(t *testing.T) {
	bag := mustParse(t, "10d20rr3be5mn2+3")
	a := bag.Roll(dice.NewSeededSource(42))
	b := bag.Roll(dice.NewSeededSource(42))
	assert.Equal(t, a, b)
}

// TestRoll_TotalsWithinRange verifies 100,000 samples of assorted bags all
// fall inside the computed range.
func TestRoll_TotalsWithinRange(t *testing.T) {
	exprs := []string{
		"4d6", "3d6dl1+4", "15d20dl4dh3rr3ab4mn2mx18", "8d6mn2",
		"12d20kh8kl9", "7d23 - 11", "2d10rr2be5mx9 + 1d4 + 2",
	}
	src := dice.NewSeededSource(11)
	for _, expr := range exprs {
		bag := mustParse(t, expr)
		rng := bag.Range()
		for i := 0; i < 100_000; i++ {
			total := bag.Roll(src).Total
			if !rng.Contains(total) {
				t.Fatalf("%s: total %d outside [%d,%d]", expr, total, rng.Min, rng.Max)
			}
		}
	}
}

// TestRoll_SubtractedDiceWithinReachable verifies totals of bags that
// subtract dice stay within Reachable.
func TestRoll_SubtractedDiceWithinReachable(t *testing.T) {
	bag := mustParse(t, "5d6 - 10d10")
	reach := bag.Reachable()
	assert.Equal(t, dice.Range{Min: -95, Max: 20}, reach)
	src := dice.NewSeededSource(5)
	for i := 0; i < 100_000; i++ {
		total := bag.Roll(src).Total
		require.True(t, reach.Contains(total), "total %d", total)
	}
}

// TestRoll_ExtremesAttained verifies both ends of 4d6 occur over 500,000 samples.
func TestRoll_ExtremesAttained(t *testing.T) {
	counts := mustParse(t, "4d6").CountDistribution(500_000, dice.NewSeededSource(13))
	assert.Positive(t, counts[4])
	assert.Positive(t, counts[24])
}

// TestRoll_Total_Property verifies Total == sum of group subtotals + bonus subtotal.
func TestRoll_Total_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 20).Draw(rt, "count")
		size := rapid.Int64Range(1, 100).Draw(rt, "size")
		bonus := rapid.Int64Range(-50, 50).Draw(rt, "bonus")
		seed := rapid.Uint64().Draw(rt, "seed")

		b := dice.Plus(bonus)
		if bonus < 0 {
			b = dice.Minus(-bonus)
		}
		bag := dice.NewBag(dice.NewDieGroup(size, count), b)
		res := bag.Roll(dice.NewSeededSource(seed))

		var sum int64
		for _, d := range res.Dice {
			sum += d.Subtotal
		}
		assert.Equal(rt, sum+res.Bonus.Subtotal, res.Total)
		assert.Len(rt, res.Dice[0].Values, count)
		assert.True(rt, bag.Range().Contains(res.Total))
	})
}

// TestRollResult_String verifies the audit line lists dice, bonus and total.
func TestRollResult_String(t *testing.T) {
	res := mustParse(t, "4d6dl1+3").Roll(faces(2, 6, 5, 1))
	assert.Equal(t, "4d6dl1+3 → [6 5 2] +3 = 16", res.String())

	res = mustParse(t, "10-1d4").Roll(faces(3))
	assert.Equal(t, "10-1d4 → -[3] +10 = 7", res.String())
}

// TestRollResult_Summary verifies the plain-data reduction of a roll.
func TestRollResult_Summary(t *testing.T) {
	res := mustParse(t, "2d6 - 1d4 + 5").Roll(faces(3, 4, 2))
	assert.Equal(t, dice.Summary{Groups: []int64{7, -2}, Bonus: 5, Total: 10}, res.Summary())
}

// TestRollN verifies RollN returns one summary per roll.
func TestRollN(t *testing.T) {
	bag := mustParse(t, "3d6+1")
	out := dice.RollN(bag, 50, dice.NewSeededSource(2))
	require.Len(t, out, 50)
	for _, s := range out {
		assert.True(t, bag.Range().Contains(s.Total))
		assert.Equal(t, int64(1), s.Bonus)
	}
	assert.Empty(t, dice.RollN(bag, 0, dice.NewSeededSource(2)))
}
