package domain

import (
	"fmt"
	"strings"
)

// MatchMode selects the text predicate used to pair a predicted record
// with a gold record of the same class.
type MatchMode string

const (
	// MatchExact pairs records whose normalized texts are equal.
	MatchExact MatchMode = "exact"

	// MatchPartial pairs records when either normalized text contains the other.
	// It tolerates extraction-boundary variance such as "Cefazolin" versus
	// "Cefazolin 250mg IV".
	MatchPartial MatchMode = "partial"
)

// DefaultMatchMode is used when no mode is configured.
const DefaultMatchMode = MatchPartial

// String returns the string representation of the match mode.
func (m MatchMode) String() string { return string(m) }

// IsValid reports whether m names a known predicate.
func (m MatchMode) IsValid() bool {
	return m == MatchExact || m == MatchPartial
}

// ParseMatchMode converts a configuration value into a MatchMode.
// Matching is case-insensitive and the empty string selects DefaultMatchMode.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultMatchMode, nil
	case MatchExact:
		return MatchExact, nil
	case MatchPartial:
		return MatchPartial, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidMatchMode, s, MatchExact, MatchPartial)
	}
}

// NormalizeText lowercases s, trims it, and collapses every internal
// whitespace run into a single space. The result is a comparison key only.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Matches applies the predicate to two raw texts.
// Both predicates are symmetric and never match blank text on either side.
// An unknown mode falls back to DefaultMatchMode.
func (m MatchMode) Matches(a, b string) bool {
	return m.matchNormalized(NormalizeText(a), NormalizeText(b))
}

// matchNormalized is Matches for texts that already went through NormalizeText.
func (m MatchMode) matchNormalized(na, nb string) bool {
	if na == "" || nb == "" {
		return false
	}
	if m == MatchExact {
		return na == nb
	}
	return strings.Contains(nb, na) || strings.Contains(na, nb)
}
