package dice

// The With* methods let callers build groups without going through notation.
// Each one validates its clause with the same rules Parse applies and leaves
// g unchanged on error.

// WithDropLowest sets a clause dropping the n lowest dice.
func (g *DieGroup) WithDropLowest(n int) error {
	return g.setDrop(DropLowestN(n))
}

// WithDropHighest sets a clause dropping the n highest dice.
func (g *DieGroup) WithDropHighest(n int) error {
	return g.setDrop(DropHighestN(n))
}

// WithDropHighestAndLowest drops low lowest and high highest dice, e.g.
// 5d6dl2dh1.
func (g *DieGroup) WithDropHighestAndLowest(low, high int) error {
	if low < 0 || high < 0 || low+high >= g.Count {
		return parseErr(ExcessiveDrop, g.String(), "dropping %d of %d dice", low+high, g.Count)
	}
	return g.setDrop(KeepMiddle(g.Count, low, high))
}

func (g *DieGroup) setDrop(d Drop) error {
	if err := validateDrop(d, g.Count); err != nil {
		return err
	}
	g.Drop = d
	return nil
}

// WithMinimum raises every roll below n to n.
func (g *DieGroup) WithMinimum(n int64) error {
	return g.setCutoff(Minimum(n))
}

// WithMaximum lowers every roll above n to n.
func (g *DieGroup) WithMaximum(n int64) error {
	return g.setCutoff(Maximum(n))
}

// WithMinMax clamps every roll into [lo, hi]. A d6 clamped to [2, 5] behaves
// like 1d4+1.
func (g *DieGroup) WithMinMax(lo, hi int64) error {
	return g.setCutoff(MinMax(lo, hi))
}

func (g *DieGroup) setCutoff(c Cutoff) error {
	if err := validateCutoff(c, g.Size); err != nil {
		return err
	}
	g.Cutoff = c
	return nil
}

// WithRerollAbove rerolls up to count dice (once each) rolling above threshold.
func (g *DieGroup) WithRerollAbove(threshold int64, count int) error {
	return g.setReroll(RerollAbove(threshold, count))
}

// WithRerollBelow rerolls up to count dice (once each) rolling below threshold.
func (g *DieGroup) WithRerollBelow(threshold int64, count int) error {
	return g.setReroll(RerollBelow(threshold, count))
}

func (g *DieGroup) setReroll(r Reroll) error {
	if err := validateReroll(r, g.Size, g.Count); err != nil {
		return err
	}
	g.Reroll = r
	return nil
}

// Validate checks g against the rules Parse enforces, so a programmatically
// built group can be rolled safely.
func (g DieGroup) Validate() error {
	if g.Size < 1 {
		return parseErr(NotDiceOrBonus, "", "die size %d must be positive", g.Size)
	}
	if g.Count < 0 {
		return parseErr(NotDiceOrBonus, "", "die count %d must not be negative", g.Count)
	}
	if err := validateDrop(g.Drop, g.Count); err != nil {
		return err
	}
	if err := validateReroll(g.Reroll, g.Size, g.Count); err != nil {
		return err
	}
	return validateCutoff(g.Cutoff, g.Size)
}

func validateDrop(d Drop, count int) error {
	switch d.Kind {
	case DropLowest, DropHighest:
		if d.N < 0 || d.N >= count {
			return parseErr(ExcessiveDrop, "", "dropping %d of %d dice", d.N, count)
		}
	case DropCustom:
		if len(d.Keep) == 0 {
			return parseErr(ExcessiveDrop, "", "keeping none of %d dice", count)
		}
		for i, k := range d.Keep {
			if k < 0 || k >= count || (i > 0 && k <= d.Keep[i-1]) {
				return parseErr(ImpossibleDropCombination, "", "keep positions %v for %d dice", d.Keep, count)
			}
		}
	}
	return nil
}

func validateReroll(r Reroll, size int64, count int) error {
	if r.Kind == RerollNever {
		return nil
	}
	if r.Count < 0 || r.Count > count {
		return parseErr(ExcessiveReroll, "", "%d of %d dice", r.Count, count)
	}
	return checkThreshold(r.Threshold, size, r.Kind == RerollIfAbove)
}

func validateCutoff(c Cutoff, size int64) error {
	if c.Kind == CutoffMaximum || c.Kind == CutoffBoth {
		if c.Max < 1 || c.Max >= size {
			return parseErr(InvalidCutoffBound, "", "mx%d on a d%d", c.Max, size)
		}
	}
	if c.Kind == CutoffMinimum || c.Kind == CutoffBoth {
		if c.Min <= 1 || c.Min > size {
			return parseErr(InvalidCutoffBound, "", "mn%d on a d%d", c.Min, size)
		}
	}
	if c.Kind == CutoffBoth && c.Min > c.Max {
		return parseErr(InvertedCutoffRange, "", "mn%d > mx%d", c.Min, c.Max)
	}
	return nil
}
