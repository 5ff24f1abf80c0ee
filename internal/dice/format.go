package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// String returns the group in canonical notation without its operator,
// e.g. "3d6dl1dh1" or "8d6rr2be3mn2!". Parse(g.String()) yields g again
// (with an additive operator).
func (g DieGroup) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dd%d", g.Count, g.Size)

	switch g.Drop.Kind {
	case DropLowest:
		fmt.Fprintf(&sb, "dl%d", g.Drop.N)
	case DropHighest:
		fmt.Fprintf(&sb, "dh%d", g.Drop.N)
	case DropCustom:
		if n := len(g.Drop.Keep); n > 0 {
			fmt.Fprintf(&sb, "dl%ddh%d", g.Drop.Keep[0], g.Count-g.Drop.Keep[n-1]-1)
		}
	}

	switch g.Reroll.Kind {
	case RerollIfAbove:
		fmt.Fprintf(&sb, "rr%dab%d", g.Reroll.Count, g.Reroll.Threshold)
	case RerollIfBelow:
		fmt.Fprintf(&sb, "rr%dbe%d", g.Reroll.Count, g.Reroll.Threshold)
	}

	switch g.Cutoff.Kind {
	case CutoffMinimum:
		fmt.Fprintf(&sb, "mn%d", g.Cutoff.Min)
	case CutoffMaximum:
		fmt.Fprintf(&sb, "mx%d", g.Cutoff.Max)
	case CutoffBoth:
		fmt.Fprintf(&sb, "mn%dmx%d", g.Cutoff.Min, g.Cutoff.Max)
	}

	if g.Explosive {
		sb.WriteByte('!')
	}
	return sb.String()
}

// String returns the bonus magnitude.
func (b Bonus) String() string {
	return strconv.FormatInt(b.Value, 10)
}

// String returns the bag in canonical notation, e.g. "5d6-10d10+3". A
// leading additive operator is omitted.
func (b *Bag) String() string { return b.text }

func (b *Bag) format() string {
	var sb strings.Builder
	for i, g := range b.groups {
		if i > 0 || g.Operator() == Subtract {
			sb.WriteString(g.Operator().String())
		}
		sb.WriteString(g.String())
	}
	return sb.String()
}

// String returns a human-readable audit string in the format:
//
//	"4d6dl1+3 → [6 5 2] +3 = 16"
//
// Dice groups are listed in order; subtracted groups are prefixed with '-'.
func (r RollResult) String() string {
	var sb strings.Builder
	sb.WriteString(r.Expression)
	sb.WriteString(" →")
	for _, d := range r.Dice {
		sb.WriteByte(' ')
		if d.Group.Op == Subtract {
			sb.WriteByte('-')
		}
		fmt.Fprintf(&sb, "%v", d.Values)
	}
	if len(r.Bonus.Values) > 0 {
		fmt.Fprintf(&sb, " %+d", r.Bonus.Subtotal)
	}
	fmt.Fprintf(&sb, " = %d", r.Total)
	return sb.String()
}
