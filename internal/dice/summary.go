package dice

// Summary is a RollResult reduced to plain numbers: one signed subtotal per
// die group in order, the bonus subtotal and the grand total. It holds no
// references into the Bag or the RollResult.
type Summary struct {
	Groups []int64
	Bonus  int64
	Total  int64
}

// Summary reduces r to plain numbers.
func (r RollResult) Summary() Summary {
	groups := make([]int64, len(r.Dice))
	for i, d := range r.Dice {
		groups[i] = d.Subtotal
	}
	return Summary{Groups: groups, Bonus: r.Bonus.Subtotal, Total: r.Total}
}

// RollN rolls b n times and returns each roll's Summary.
func RollN(b *Bag, n int, src Source) []Summary {
	out := make([]Summary, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, b.Roll(src).Summary())
	}
	return out
}
