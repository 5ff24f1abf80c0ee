package dice

// CalculateRange computes the structural [min, max] of groups without
// rolling. Each group's interval endpoints are folded pairwise into the
// running accumulator with the group's operator, and the pair is re-ordered
// after every step so that Min <= Max.
//
// Explosion is not modelled; see Bag.Exploding.
func CalculateRange(groups []Group) Range {
	var acc Range
	for _, g := range groups {
		lo, hi := g.bounds()
		op := g.Operator()
		acc.Min, acc.Max = op.Apply(acc.Min, lo), op.Apply(acc.Max, hi)
		if acc.Min > acc.Max {
			acc.Min, acc.Max = acc.Max, acc.Min
		}
	}
	return acc
}

// Reachable returns the interval every non-exploding sampled total is
// guaranteed to fall in. It differs from Range only when a die group is
// subtracted: Range pairs a subtracted group's minimum with the running
// minimum, whereas Reachable subtracts the group's maximum from it.
func (b *Bag) Reachable() Range {
	var acc Range
	for _, g := range b.groups {
		lo, hi := g.bounds()
		if g.Operator() == Subtract {
			acc.Min -= hi
			acc.Max -= lo
			continue
		}
		acc.Min += lo
		acc.Max += hi
	}
	return acc
}
