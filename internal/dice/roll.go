package dice

import (
	"cmp"
	"slices"
)

// maxExplosionChain caps the extra rolls one exploding die may produce. It is
// only reachable in practice by a d1, whose every roll is its maximum.
const maxExplosionChain = 100

// DieResult is the outcome of one DieGroup within a roll.
type DieResult struct {
	Group    DieGroup // snapshot of the rolled group
	Values   []int64  // surviving dice after reroll, cutoff and drop
	Subtotal int64    // signed by the group's operator
}

// BonusResult aggregates every flat bonus of a roll.
type BonusResult struct {
	Values   []int64
	Subtotal int64
}

// RollResult holds the full audit trail for one evaluation of a Bag.
//
// Postcondition: Total == sum(Dice[i].Subtotal) + Bonus.Subtotal.
type RollResult struct {
	Expression string
	Dice       []DieResult
	Bonus      BonusResult
	Total      int64
}

// Roll evaluates the bag once using src. Roll never fails and never mutates
// the bag.
//
// Precondition: src must be non-nil.
func (b *Bag) Roll(src Source) RollResult {
	res := RollResult{Expression: b.text}
	for _, g := range b.groups {
		switch g := g.(type) {
		case Bonus:
			sub := g.Op.Apply(0, g.Value)
			res.Bonus.Values = append(res.Bonus.Values, g.Value)
			res.Bonus.Subtotal += sub
			res.Total += sub
		case DieGroup:
			dr := rollGroup(g, src)
			res.Dice = append(res.Dice, dr)
			res.Total += dr.Subtotal
		}
	}
	return res
}

func rollDie(src Source, size int64) int64 {
	return int64(src.Intn(int(size))) + 1
}

func rollGroup(g DieGroup, src Source) DieResult {
	values := make([]int64, 0, g.Count)
	for i := 0; i < g.Count; i++ {
		v := rollDie(src, g.Size)
		values = append(values, v)
		if !g.Explosive {
			continue
		}
		for chain := 0; v == g.Size && chain < maxExplosionChain; chain++ {
			v = rollDie(src, g.Size)
			values = append(values, v)
		}
	}

	if g.Reroll.Kind != RerollNever {
		rerolled := 0
		for i := range values {
			if rerolled >= g.Reroll.Count {
				break
			}
			if g.Reroll.qualifies(values[i]) {
				values[i] = rollDie(src, g.Size)
				rerolled++
			}
		}
	}

	for i := range values {
		values[i] = g.Cutoff.Clamp(values[i])
	}

	values = applyDrop(g.Drop, values)

	var sum int64
	for _, v := range values {
		sum += v
	}
	return DieResult{
		Group:    g.clone(),
		Values:   values,
		Subtotal: g.Op.Apply(0, sum),
	}
}

// applyDrop discards dice per d. Lowest-drop survivors are left in
// descending order; highest-drop and custom survivors in ascending order.
func applyDrop(d Drop, values []int64) []int64 {
	switch d.Kind {
	case DropLowest:
		slices.SortFunc(values, func(a, b int64) int { return cmp.Compare(b, a) })
		return values[:len(values)-min(d.N, len(values))]
	case DropHighest:
		slices.Sort(values)
		return values[:len(values)-min(d.N, len(values))]
	case DropCustom:
		slices.Sort(values)
		kept := make([]int64, 0, len(d.Keep))
		for _, i := range d.Keep {
			if i < len(values) {
				kept = append(kept, values[i])
			}
		}
		return kept
	}
	return values
}
