// Package lexicon implements the local profanity matcher backing the
// development moderation provider. It normalizes text (leet speak,
// punctuation noise, case) before running an Aho-Corasick multi-pattern
// search, so "B.4.d w0rd" still matches "bad word".
package lexicon

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	apperrors "moonchat/errors"
)

type Matcher struct {
	machine *goahocorasick.Machine
}

// NewMatcher builds the automaton from the normalized form of every word.
func NewMatcher(words []string) (*Matcher, error) {
	if len(words) == 0 {
		return nil, apperrors.ErrEmptyWords
	}
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalizeRunes([]rune(word))
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Matcher{machine: m}, nil
}

// Detect reports whether the input contains any lexicon word and returns
// the normalized forms that matched.
func (m *Matcher) Detect(input string) (bool, []string) {
	normalized := normalizeRunes([]rune(input))
	if len(normalized) == 0 {
		return false, nil
	}

	spans := m.machine.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return false, nil
	}

	found := make([]string, 0, len(spans))
	for _, span := range spans {
		found = append(found, string(span.Word))
	}
	return true, found
}

// normalizeRunes lowercases, folds leet speak, and strips noise characters.
func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common Leet speak characters back to their standard alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters that should be ignored during the pattern matching phase.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
