package dice

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"fortio.org/safecast"
)

// Parse parses a dice expression into a Bag.
//
// The expression is case-insensitive and may contain whitespace anywhere.
// Supported forms include "d20", "4d6dl1", "2d8+3", "5d6 - 10d10",
// "15d20dl4dh3rr3ab4mn2mx18!".
//
// Postcondition: returns a Bag whose range is precomputed, or a *ParseError.
func Parse(expr string) (*Bag, error) {
	input := normalize(expr)
	for _, r := range input {
		if !validRune(r) {
			return nil, parseErr(InvalidCharacter, expr, "%q", r)
		}
	}
	if input == "" {
		return nil, parseErr(EmptyOrMissingGroup, expr, "expression contains no dice groups")
	}

	raws := splitGroups(input)
	groups := make([]Group, 0, len(raws))
	for _, raw := range raws {
		g, err := parseGroup(raw.text, raw.op)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := checkMagnitude(expr, groups); err != nil {
		return nil, err
	}
	return NewBag(groups...), nil
}

// MustParse parses expr and panics on error. Useful for package-level values.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) *Bag {
	b, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return b
}

// normalize drops whitespace and folds ASCII letters to lower case. Other
// runes pass through untouched so that the alphabet check sees them.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			return -1
		case r >= 'A' && r <= 'Z':
			return r + 'a' - 'A'
		}
		return r
	}, s)
}

func validRune(r rune) bool {
	switch r {
	case '+', '-', 'd', 'l', 'k', 'x', 'h', 'r', 'b', 'e', 'a', 'm', '!', 'n':
		return true
	}
	return isDigit(r)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isLetter(r rune) bool { return r >= 'a' && r <= 'z' }

type rawGroup struct {
	op   Operator
	text string
}

// splitGroups splits on '+' and '-'. The first group is additive; every
// later group takes the operator that preceded it.
func splitGroups(input string) []rawGroup {
	var out []rawGroup
	op := Add
	start := 0
	for i, r := range input {
		if r != '+' && r != '-' {
			continue
		}
		out = append(out, rawGroup{op: op, text: input[start:i]})
		op = Add
		if r == '-' {
			op = Subtract
		}
		start = i + 1
	}
	return append(out, rawGroup{op: op, text: input[start:]})
}

func parseGroup(text string, op Operator) (Group, error) {
	if text == "" {
		return nil, parseErr(EmptyOrMissingGroup, text, "operator without operand")
	}

	if allDigits(text) {
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, parseErr(NotDiceOrBonus, text, "bonus out of range")
		}
		return Bonus{Value: v, Op: op}, nil
	}

	if !hasDNumeric(text) {
		if n := leadingDigits(text); n > 0 && isLetter(rune(text[n])) {
			return nil, parseErr(BonusCannotHaveModifiers, text, "")
		}
		return nil, parseErr(NotDiceOrBonus, text, "")
	}

	explosive := strings.HasSuffix(text, "!")
	body := strings.TrimSuffix(text, "!")
	if strings.Contains(body, "!") {
		return nil, parseErr(MisplacedExplosiveMarker, text, "")
	}

	base, suffix := splitBase(body)
	g, err := parseBase(base)
	if err != nil {
		return nil, err
	}
	g.Op = op
	g.Explosive = explosive
	if suffix == "" {
		return g, nil
	}

	mods, err := splitModifiers(suffix)
	if err != nil {
		return nil, err
	}
	if err := resolve(mods, &g); err != nil {
		var pe *ParseError
		if errors.As(err, &pe) && pe.Input == "" {
			pe.Input = text
		}
		return nil, err
	}
	return g, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return s != ""
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && isDigit(rune(s[n])) {
		n++
	}
	return n
}

// hasDNumeric reports whether s contains a 'd' immediately followed by a digit.
func hasDNumeric(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == 'd' && isDigit(rune(s[i+1])) {
			return true
		}
	}
	return false
}

// splitBase takes the leading run of digits and 'd' as the base. A 'd' only
// belongs to the base when a digit follows it; otherwise it opens a modifier
// such as "dl" or "dh". The suffix therefore always starts with a letter.
func splitBase(s string) (base, suffix string) {
	for i := 0; i < len(s); i++ {
		if isDigit(rune(s[i])) {
			continue
		}
		if s[i] == 'd' && i+1 < len(s) && isDigit(rune(s[i+1])) {
			continue
		}
		return s[:i], s[i:]
	}
	return s, ""
}

// parseBase parses "count? 'd' size". An omitted count means one die.
func parseBase(base string) (DieGroup, error) {
	parts := strings.Split(base, "d")
	if len(parts) != 2 {
		return DieGroup{}, parseErr(NotDiceOrBonus, base, "expected exactly one 'd'")
	}

	count := 1
	if parts[0] != "" {
		if !allDigits(parts[0]) {
			return DieGroup{}, parseErr(NotDiceOrBonus, base, "invalid die count")
		}
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return DieGroup{}, parseErr(NotDiceOrBonus, base, "invalid die count")
		}
		count = n
	}

	if !allDigits(parts[1]) {
		return DieGroup{}, parseErr(NotDiceOrBonus, base, "invalid die size")
	}
	size, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || size < 1 {
		return DieGroup{}, parseErr(NotDiceOrBonus, base, "die size must be a positive integer")
	}
	// Faces are drawn with Source.Intn, so the size must fit an int.
	if _, err := safecast.Conv[int](size); err != nil {
		return DieGroup{}, parseErr(NotDiceOrBonus, base, "die size too large")
	}
	return NewDieGroup(size, count), nil
}

type modifierKind int

const (
	modDropLowest modifierKind = iota
	modKeepHighest
	modDropHighest
	modKeepLowest
	modRerollCount
	modRerollAbove
	modRerollBelow
	modCutoffMaximum
	modCutoffMinimum
)

var modifierCodes = map[string]modifierKind{
	"dl": modDropLowest,
	"kh": modKeepHighest,
	"dh": modDropHighest,
	"kl": modKeepLowest,
	"rr": modRerollCount,
	"ab": modRerollAbove,
	"be": modRerollBelow,
	"mx": modCutoffMaximum,
	"mn": modCutoffMinimum,
}

type modifier struct {
	kind modifierKind
	n    int64
}

// splitModifiers decodes alternating letter and digit runs, e.g.
// "dl4dh3rr3ab4" into (dl,4) (dh,3) (rr,3) (ab,4).
func splitModifiers(suffix string) ([]modifier, error) {
	var codes, nums []string
	rest := suffix
	for rest != "" {
		i := 0
		for i < len(rest) && !isDigit(rune(rest[i])) {
			i++
		}
		codes = append(codes, rest[:i])
		rest = rest[i:]
		if rest == "" {
			break
		}
		j := leadingDigits(rest)
		nums = append(nums, rest[:j])
		rest = rest[j:]
	}
	if len(codes) != len(nums) {
		return nil, parseErr(MalformedModifierSequence, suffix, "%d codes for %d numbers", len(codes), len(nums))
	}

	mods := make([]modifier, 0, len(codes))
	for i, code := range codes {
		kind, ok := modifierCodes[code]
		if !ok {
			return nil, parseErr(UnknownModifier, suffix, "%q", code)
		}
		n, err := strconv.ParseInt(nums[i], 10, 64)
		if err != nil {
			return nil, parseErr(MalformedModifierSequence, suffix, "argument %q out of range", nums[i])
		}
		mods = append(mods, modifier{kind: kind, n: n})
	}
	return mods, nil
}
