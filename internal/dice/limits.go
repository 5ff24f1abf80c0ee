package dice

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// ErrLimitExceeded is returned by Limits.Check.
var ErrLimitExceeded = errors.New("dice: expression exceeds limits")

// Limits bounds the work one bag may demand from a caller that evaluates
// untrusted expressions. A zero field disables that bound.
type Limits struct {
	// MaxDice caps the dice rolled per evaluation, before explosions.
	MaxDice int64
	// MaxWidth caps the number of totals in the bag's range, which is the
	// number of bins a distribution pre-seeds.
	MaxWidth uint64
}

// DefaultLimits is used by local tools that expand a whole range.
var DefaultLimits = Limits{MaxDice: 100_000, MaxWidth: 1_000_000}

// Check reports whether b stays within l.
func (l Limits) Check(b *Bag) error {
	if n := b.DiceCount(); l.MaxDice > 0 && n > l.MaxDice {
		return fmt.Errorf("%w: %d dice, at most %d allowed", ErrLimitExceeded, n, l.MaxDice)
	}
	if w := b.Width(); l.MaxWidth > 0 && w > l.MaxWidth {
		return fmt.Errorf("%w: range spans %d totals, at most %d allowed", ErrLimitExceeded, w, l.MaxWidth)
	}
	return nil
}

// DiceCount returns the number of dice one evaluation rolls before
// explosions, saturating at math.MaxInt64.
func (b *Bag) DiceCount() int64 {
	var n uint64
	for _, g := range b.groups {
		d, ok := g.(DieGroup)
		if !ok || d.Count <= 0 {
			continue
		}
		var carry uint64
		n, carry = bits.Add64(n, uint64(d.Count), 0)
		if carry != 0 || n > math.MaxInt64 {
			return math.MaxInt64
		}
	}
	return int64(n)
}

// Width returns the number of integers in the bag's range.
func (b *Bag) Width() uint64 {
	return uint64(b.rng.Max-b.rng.Min) + 1
}

// checkMagnitude rejects groups whose totals could leave int64. It bounds
// the sum of every group's largest absolute contribution, so any signed fold
// of the groups fits, as does Max-Min. Exploding groups are charged for
// their longest chain.
func checkMagnitude(expr string, groups []Group) error {
	var total uint64
	for _, g := range groups {
		m, ok := magnitude(g)
		var carry uint64
		total, carry = bits.Add64(total, m, 0)
		if !ok || carry != 0 || total > math.MaxInt64 {
			return parseErr(NotDiceOrBonus, expr, "expression too large")
		}
	}
	return nil
}

func magnitude(g Group) (uint64, bool) {
	switch g := g.(type) {
	case DieGroup:
		n := uint64(max(g.Drop.Survivors(g.Count), 0))
		if g.Explosive {
			// Survivors are drawn from every die a chain produced.
			var hi uint64
			hi, n = bits.Mul64(uint64(max(g.Count, 0)), maxExplosionChain+1)
			if hi != 0 {
				return 0, false
			}
		}
		lo, hi := g.Cutoff.Bounds(g.Size)
		hiProd, prod := bits.Mul64(n, max(absU(lo), absU(hi)))
		return prod, hiProd == 0
	case Bonus:
		return absU(g.Value), true
	}
	lo, hi := g.bounds()
	return max(absU(lo), absU(hi)), true
}

func absU(v int64) uint64 {
	if v < 0 {
		return uint64(-(v + 1)) + 1
	}
	return uint64(v)
}
