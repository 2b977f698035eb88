// AngelaMos | 2026
// truncate.go

package entitlement

import (
	"strings"
	"unicode"
)

// TruncationMarker is appended to every truncated body.
const TruncationMarker = "…"

// boundaryWindow is the tail fraction of the budget in which a sentence
// boundary is preferred over a word boundary.
const boundaryWindow = 0.3

// Truncate shortens text to at most budget characters plus the truncation
// marker. Deterministic: identical input always yields identical output,
// so results are safe to cache and assert on. Budgets are counted in runes
// so Cyrillic bodies truncate the same way Latin ones do.
//
// Cut preference, in order: the last sentence boundary inside the final 30%
// of the budget, the last word boundary before the budget, a hard cut.
func Truncate(text string, budget int) string {
	if budget <= 0 {
		return TruncationMarker
	}

	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}

	window := budget - int(float64(budget)*boundaryWindow)

	if cut := lastSentenceEnd(runes, budget); cut >= window {
		return string(runes[:cut]) + TruncationMarker
	}

	if cut := lastWordEnd(runes, budget); cut > 0 {
		return string(runes[:cut]) + TruncationMarker
	}

	return string(runes[:budget]) + TruncationMarker
}

// lastSentenceEnd returns the index just past the last sentence-ending
// punctuation within runes[:limit], or -1 if none exists. A terminator only
// counts when followed by whitespace or the cut point itself, so decimal
// points and abbreviation dots inside a clause are skipped.
func lastSentenceEnd(runes []rune, limit int) int {
	for i := limit - 1; i >= 0; i-- {
		if !isSentenceTerminator(runes[i]) {
			continue
		}
		if i+1 >= limit || unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	return -1
}

// lastWordEnd returns the index of the last whitespace run before limit,
// trimmed of trailing punctuation noise, or -1 if the text is one long word.
func lastWordEnd(runes []rune, limit int) int {
	i := limit
	for i > 0 && !unicode.IsSpace(runes[i-1]) {
		i--
	}
	for i > 0 && unicode.IsSpace(runes[i-1]) {
		i--
	}
	if i <= 0 {
		return -1
	}
	return i
}

func isSentenceTerminator(r rune) bool {
	return strings.ContainsRune(".!?", r)
}
