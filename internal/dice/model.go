// Package dice implements the dice-notation interpreter: parsing expressions
// such as "3d6dl1+4" into a Bag, computing the Bag's exact range without
// rolling, and evaluating it by random sampling.
package dice

import "slices"

// Operator describes how a group folds into the running total.
type Operator int

const (
	// Add adds the group to the running total.
	Add Operator = iota
	// Subtract subtracts the group from the running total.
	Subtract
)

// Apply folds x into acc according to o.
//
// Postcondition: returns acc+x for Add and acc-x for Subtract.
func (o Operator) Apply(acc, x int64) int64 {
	if o == Subtract {
		return acc - x
	}
	return acc + x
}

// String returns the notation symbol for o.
func (o Operator) String() string {
	if o == Subtract {
		return "-"
	}
	return "+"
}

// DropKind enumerates drop clause variants.
type DropKind int

const (
	DropNone DropKind = iota
	DropLowest
	DropHighest
	// DropCustom keeps an explicit set of positions of the ascending-sorted roll.
	DropCustom
)

// Drop discards some rolled dice before summation.
//
// Invariant: N is only meaningful for DropLowest/DropHighest; Keep is only
// non-nil for DropCustom and holds strictly ascending positions.
type Drop struct {
	Kind DropKind
	N    int
	Keep []int
}

// NoDrop returns a clause that keeps every die.
func NoDrop() Drop { return Drop{} }

// DropLowestN returns a clause discarding the n lowest dice.
func DropLowestN(n int) Drop { return Drop{Kind: DropLowest, N: n} }

// DropHighestN returns a clause discarding the n highest dice.
func DropHighestN(n int) Drop { return Drop{Kind: DropHighest, N: n} }

// KeepMiddle returns a custom clause retaining the ascending-sorted positions
// [low, count-high), i.e. dropping low lowest and high highest dice.
//
// Precondition: low+high < count.
func KeepMiddle(count, low, high int) Drop {
	keep := make([]int, 0, count-low-high)
	for i := low; i < count-high; i++ {
		keep = append(keep, i)
	}
	return Drop{Kind: DropCustom, Keep: keep}
}

// Survivors returns how many of count dice remain after the clause applies.
func (d Drop) Survivors(count int) int {
	switch d.Kind {
	case DropLowest, DropHighest:
		return count - d.N
	case DropCustom:
		return len(d.Keep)
	}
	return count
}

func (d Drop) clone() Drop {
	d.Keep = slices.Clone(d.Keep)
	return d
}

// RerollKind enumerates reroll clause variants.
type RerollKind int

const (
	RerollNever RerollKind = iota
	RerollIfAbove
	RerollIfBelow
)

// Reroll resamples up to Count dice whose value is strictly above or below
// Threshold, once each.
type Reroll struct {
	Kind      RerollKind
	Count     int
	Threshold int64
}

// NoReroll returns a clause that never rerolls.
func NoReroll() Reroll { return Reroll{} }

// RerollAbove returns a clause rerolling up to count dice rolling above threshold.
func RerollAbove(threshold int64, count int) Reroll {
	return Reroll{Kind: RerollIfAbove, Count: count, Threshold: threshold}
}

// RerollBelow returns a clause rerolling up to count dice rolling below threshold.
func RerollBelow(threshold int64, count int) Reroll {
	return Reroll{Kind: RerollIfBelow, Count: count, Threshold: threshold}
}

func (r Reroll) qualifies(v int64) bool {
	switch r.Kind {
	case RerollIfAbove:
		return v > r.Threshold
	case RerollIfBelow:
		return v < r.Threshold
	}
	return false
}

// CutoffKind enumerates cutoff clause variants.
type CutoffKind int

const (
	CutoffNone CutoffKind = iota
	CutoffMinimum
	CutoffMaximum
	CutoffBoth
)

// Cutoff clamps each die's value into a bound. Min is used by CutoffMinimum
// and CutoffBoth, Max by CutoffMaximum and CutoffBoth.
type Cutoff struct {
	Kind CutoffKind
	Min  int64
	Max  int64
}

// NoCutoff returns a clause that leaves values untouched.
func NoCutoff() Cutoff { return Cutoff{} }

// Minimum returns a clause raising every value below n to n.
func Minimum(n int64) Cutoff { return Cutoff{Kind: CutoffMinimum, Min: n} }

// Maximum returns a clause lowering every value above n to n.
func Maximum(n int64) Cutoff { return Cutoff{Kind: CutoffMaximum, Max: n} }

// MinMax returns a clause clamping every value into [lo, hi].
func MinMax(lo, hi int64) Cutoff { return Cutoff{Kind: CutoffBoth, Min: lo, Max: hi} }

// Clamp returns v clamped by the clause.
func (c Cutoff) Clamp(v int64) int64 {
	if (c.Kind == CutoffMinimum || c.Kind == CutoffBoth) && v < c.Min {
		return c.Min
	}
	if (c.Kind == CutoffMaximum || c.Kind == CutoffBoth) && v > c.Max {
		return c.Max
	}
	return v
}

// Bounds returns the achievable per-die interval of a die with size faces
// once the clause applies.
func (c Cutoff) Bounds(size int64) (lo, hi int64) {
	lo, hi = 1, size
	switch c.Kind {
	case CutoffMinimum:
		lo = c.Min
	case CutoffMaximum:
		hi = c.Max
	case CutoffBoth:
		lo, hi = c.Min, c.Max
	}
	return lo, hi
}

// Group is one additive unit of a Bag: either a DieGroup or a Bonus.
type Group interface {
	// Operator returns how the group folds into the running total.
	Operator() Operator
	// String returns the group's notation without its operator.
	String() string
	// bounds returns the group's unsigned contribution interval.
	bounds() (lo, hi int64)
	cloneGroup() Group
}

// DieGroup is a homogeneous set of Count dice with Size faces each.
type DieGroup struct {
	Size      int64
	Count     int
	Drop      Drop
	Reroll    Reroll
	Cutoff    Cutoff
	Op        Operator
	Explosive bool
}

// NewDieGroup returns an additive group of count dice with size faces and no
// modifiers.
func NewDieGroup(size int64, count int) DieGroup {
	return DieGroup{Size: size, Count: count}
}

// Operator implements Group.
func (g DieGroup) Operator() Operator { return g.Op }

func (g DieGroup) bounds() (lo, hi int64) {
	n := int64(g.Drop.Survivors(g.Count))
	if n <= 0 {
		return 0, 0
	}
	lo, hi = g.Cutoff.Bounds(g.Size)
	return lo * n, hi * n
}

func (g DieGroup) cloneGroup() Group { return g.clone() }

func (g DieGroup) clone() DieGroup {
	g.Drop = g.Drop.clone()
	return g
}

// Bonus is a flat modifier.
type Bonus struct {
	Value int64
	Op    Operator
}

// Plus returns a Bonus adding n.
func Plus(n int64) Bonus { return Bonus{Value: n, Op: Add} }

// Minus returns a Bonus subtracting n.
func Minus(n int64) Bonus { return Bonus{Value: n, Op: Subtract} }

// Operator implements Group.
func (b Bonus) Operator() Operator { return b.Op }

func (b Bonus) bounds() (lo, hi int64) { return b.Value, b.Value }

func (b Bonus) cloneGroup() Group { return b }

// Range is an inclusive [Min, Max] interval of totals.
type Range struct {
	Min int64
	Max int64
}

// Contains reports whether v lies within r.
func (r Range) Contains(v int64) bool {
	return v >= r.Min && v <= r.Max
}

// Bag is the parsed representation of one dice expression.
//
// Invariant: rng always equals CalculateRange(groups). A Bag is immutable
// after construction and safe to share across goroutines.
type Bag struct {
	groups []Group
	rng    Range
	text   string
}

// NewBag returns a Bag over copies of groups with its range precomputed.
//
// Precondition: the groups' totals must fit int64. Parse guarantees this.
func NewBag(groups ...Group) *Bag {
	owned := make([]Group, len(groups))
	for i, g := range groups {
		owned[i] = g.cloneGroup()
	}
	b := &Bag{groups: owned, rng: CalculateRange(owned)}
	b.text = b.format()
	return b
}

// Groups returns a copy of the bag's groups in order.
func (b *Bag) Groups() []Group {
	out := make([]Group, len(b.groups))
	for i, g := range b.groups {
		out[i] = g.cloneGroup()
	}
	return out
}

// Range returns the bag's cached range.
func (b *Bag) Range() Range { return b.rng }

// Exploding reports whether any die group explodes, in which case sampled
// totals of that group may exceed its structural maximum.
func (b *Bag) Exploding() bool {
	for _, g := range b.groups {
		if d, ok := g.(DieGroup); ok && d.Explosive {
			return true
		}
	}
	return false
}

// RangeValues returns every integer in the bag's range in ascending order.
func (b *Bag) RangeValues() []int64 {
	out := make([]int64, 0, b.rng.Max-b.rng.Min+1)
	for v := b.rng.Min; v <= b.rng.Max; v++ {
		out = append(out, v)
	}
	return out
}
