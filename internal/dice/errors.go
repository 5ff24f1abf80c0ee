package dice

import "fmt"

// ErrorCode classifies a parse failure. Every ErrorCode is itself an error so
// callers can match with errors.Is(err, dice.ExcessiveDrop).
type ErrorCode int

const (
	InvalidCharacter ErrorCode = iota + 1
	EmptyOrMissingGroup
	NotDiceOrBonus
	MisplacedExplosiveMarker
	ModifierMustStartWithLetter // not produced by Parse: a suffix always starts with a letter
	BonusCannotHaveModifiers
	MalformedModifierSequence
	UnknownModifier
	DuplicateDropClause
	ExcessiveDrop
	ImpossibleDropCombination
	IncompleteRerollClause
	DuplicateRerollClause
	ThresholdOutOfRange
	ExcessiveReroll
	DuplicateCutoffClause
	InvalidCutoffBound
	InvertedCutoffRange
)

var codeMessages = map[ErrorCode]string{
	InvalidCharacter:            "invalid character",
	EmptyOrMissingGroup:         "empty or missing dice group",
	NotDiceOrBonus:              "group is neither dice nor bonus",
	MisplacedExplosiveMarker:    "explosive marker must end the dice group",
	ModifierMustStartWithLetter: "modifier must start with a letter",
	BonusCannotHaveModifiers:    "bonus cannot have modifiers",
	MalformedModifierSequence:   "malformed modifier sequence",
	UnknownModifier:             "unknown modifier",
	DuplicateDropClause:         "duplicate drop clause",
	ExcessiveDrop:               "dropping at least as many dice as rolled",
	ImpossibleDropCombination:   "impossible drop combination",
	IncompleteRerollClause:      "incomplete reroll clause",
	DuplicateRerollClause:       "duplicate reroll clause",
	ThresholdOutOfRange:         "reroll threshold out of range",
	ExcessiveReroll:             "rerolling more dice than rolled",
	DuplicateCutoffClause:       "duplicate cutoff clause",
	InvalidCutoffBound:          "invalid cutoff bound",
	InvertedCutoffRange:         "cutoff minimum exceeds maximum",
}

// Error implements error.
func (c ErrorCode) Error() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return fmt.Sprintf("dice error %d", int(c))
}

// ParseError reports why an expression was rejected.
type ParseError struct {
	Code   ErrorCode
	Input  string // the offending group, or the whole expression
	Detail string
}

// Error implements error.
func (e *ParseError) Error() string {
	msg := "dice: " + e.Code.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Input != "" {
		msg += fmt.Sprintf(" (in %q)", e.Input)
	}
	return msg
}

// Unwrap exposes the ErrorCode for errors.Is.
func (e *ParseError) Unwrap() error { return e.Code }

func parseErr(code ErrorCode, input, format string, args ...any) *ParseError {
	return &ParseError{Code: code, Input: input, Detail: fmt.Sprintf(format, args...)}
}
