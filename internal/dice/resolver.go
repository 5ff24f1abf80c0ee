package dice

// resolve merges decoded modifiers into g's drop, reroll and cutoff clauses.
//
// Precondition: g.Size and g.Count are already set.
// Postcondition: on success every clause on g is one the evaluator can apply.
func resolve(mods []modifier, g *DieGroup) error {
	if err := resolveDrop(mods, g); err != nil {
		return err
	}
	if err := resolveReroll(mods, g); err != nil {
		return err
	}
	return resolveCutoff(mods, g)
}

func resolveDrop(mods []modifier, g *DieGroup) error {
	var low, high int
	var seenLow, seenHigh bool
	count := int64(g.Count)

	for _, m := range mods {
		var n int64
		switch m.kind {
		case modDropLowest, modKeepHighest:
			if seenLow {
				return parseErr(DuplicateDropClause, "", "only one of dl/kh is allowed")
			}
			seenLow = true
		case modDropHighest, modKeepLowest:
			if seenHigh {
				return parseErr(DuplicateDropClause, "", "only one of dh/kl is allowed")
			}
			seenHigh = true
		default:
			continue
		}

		if m.n >= count {
			return parseErr(ExcessiveDrop, "", "%d of %d dice", m.n, g.Count)
		}
		n = m.n
		if m.kind == modKeepHighest || m.kind == modKeepLowest {
			n = count - m.n
		}
		if n >= count {
			return parseErr(ExcessiveDrop, "", "dropping %d of %d dice", n, g.Count)
		}

		if m.kind == modDropLowest || m.kind == modKeepHighest {
			low = int(n)
		} else {
			high = int(n)
		}
	}

	switch {
	case seenLow && seenHigh:
		if low+high >= g.Count {
			return parseErr(ExcessiveDrop, "", "dropping %d of %d dice", low+high, g.Count)
		}
		g.Drop = KeepMiddle(g.Count, low, high)
	case seenLow:
		g.Drop = DropLowestN(low)
	case seenHigh:
		g.Drop = DropHighestN(high)
	default:
		g.Drop = NoDrop()
	}
	return nil
}

func resolveReroll(mods []modifier, g *DieGroup) error {
	var count int
	var threshold int64
	var seenCount, seenCond, above bool

	for _, m := range mods {
		switch m.kind {
		case modRerollCount:
			if seenCount {
				return parseErr(DuplicateRerollClause, "", "multiple reroll counts")
			}
			seenCount = true
			if m.n > int64(g.Count) {
				return parseErr(ExcessiveReroll, "", "%d of %d dice", m.n, g.Count)
			}
			count = int(m.n)
		case modRerollAbove, modRerollBelow:
			if seenCond {
				return parseErr(DuplicateRerollClause, "", "multiple reroll conditions")
			}
			seenCond = true
			above = m.kind == modRerollAbove
			if err := checkThreshold(m.n, g.Size, above); err != nil {
				return err
			}
			threshold = m.n
		}
	}

	if seenCount != seenCond {
		return parseErr(IncompleteRerollClause, "", "rr needs exactly one of ab/be")
	}
	switch {
	case !seenCount:
		g.Reroll = NoReroll()
	case above:
		g.Reroll = RerollAbove(threshold, count)
	default:
		g.Reroll = RerollBelow(threshold, count)
	}
	return nil
}

// checkThreshold requires 1 <= t < size for "above" and 1 < t <= size for
// "below", so the condition can be both met and missed.
func checkThreshold(t, size int64, above bool) error {
	if above && (t < 1 || t >= size) {
		return parseErr(ThresholdOutOfRange, "", "ab%d on a d%d", t, size)
	}
	if !above && (t <= 1 || t > size) {
		return parseErr(ThresholdOutOfRange, "", "be%d on a d%d", t, size)
	}
	return nil
}

func resolveCutoff(mods []modifier, g *DieGroup) error {
	var lo, hi int64
	var seenMin, seenMax bool

	for _, m := range mods {
		switch m.kind {
		case modCutoffMaximum:
			if seenMax {
				return parseErr(DuplicateCutoffClause, "", "multiple mx clauses")
			}
			seenMax = true
			if m.n < 1 || m.n >= g.Size {
				return parseErr(InvalidCutoffBound, "", "mx%d on a d%d", m.n, g.Size)
			}
			hi = m.n
		case modCutoffMinimum:
			if seenMin {
				return parseErr(DuplicateCutoffClause, "", "multiple mn clauses")
			}
			seenMin = true
			if m.n <= 1 || m.n > g.Size {
				return parseErr(InvalidCutoffBound, "", "mn%d on a d%d", m.n, g.Size)
			}
			lo = m.n
		}
	}

	switch {
	case seenMin && seenMax:
		if lo > hi {
			return parseErr(InvertedCutoffRange, "", "mn%d > mx%d", lo, hi)
		}
		g.Cutoff = MinMax(lo, hi)
	case seenMin:
		g.Cutoff = Minimum(lo)
	case seenMax:
		g.Cutoff = Maximum(hi)
	default:
		g.Cutoff = NoCutoff()
	}
	return nil
}
