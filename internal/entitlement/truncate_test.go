// AngelaMos | 2026
// truncate_test.go

package entitlement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateNoOpWithinBudget(t *testing.T) {
	text := "Fits entirely."
	assert.Equal(t, text, Truncate(text, 100))
}

func TestTruncateDeterministic(t *testing.T) {
	text := strings.Repeat("Volatility compressed across the curve. ", 20)

	first := Truncate(text, 350)
	second := Truncate(text, 350)

	assert.Equal(t, first, second)
}

func TestTruncateBound(t *testing.T) {
	markerLen := len([]rune(TruncationMarker))

	for _, budget := range []int{10, 50, 123, 350} {
		for _, text := range []string{
			strings.Repeat("word ", 200),
			strings.Repeat("x", 1000),
			strings.Repeat("Одно предложение про рынок. ", 60),
		} {
			got := Truncate(text, budget)
			assert.LessOrEqual(t, len([]rune(got)), budget+markerLen,
				"budget=%d", budget)
		}
	}
}

func TestTruncatePrefersSentenceBoundaryInWindow(t *testing.T) {
	// One sentence ends at rune 300 — inside the last 30% of a 350 budget.
	first := strings.Repeat("a", 299) + "."
	text := first + " " + strings.Repeat("b", 400)
	require.Len(t, []rune(first), 300)

	got := Truncate(text, 350)

	assert.Equal(t, first+TruncationMarker, got)
}

func TestTruncateIgnoresSentenceBoundaryOutsideWindow(t *testing.T) {
	// Sentence ends at rune 100 — before the 245-rune window for budget 350,
	// so the cut falls back to the last word boundary before the budget.
	text := strings.Repeat("a", 99) + ". " + strings.Repeat("bbbb ", 200)

	got := Truncate(text, 350)

	require.True(t, strings.HasSuffix(got, TruncationMarker))
	body := strings.TrimSuffix(got, TruncationMarker)
	assert.True(t, strings.HasSuffix(body, "bbbb"))
	assert.LessOrEqual(t, len([]rune(body)), 350)
}

func TestTruncateWordBoundaryFallback(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta"

	got := Truncate(text, 20)

	assert.Equal(t, "alpha beta gamma"+TruncationMarker, got)
}

func TestTruncateHardCutForUnbrokenText(t *testing.T) {
	text := strings.Repeat("x", 500)

	got := Truncate(text, 40)

	assert.Equal(t, strings.Repeat("x", 40)+TruncationMarker, got)
}

func TestTruncateCyrillic(t *testing.T) {
	text := strings.Repeat("Рынок закрылся ростом. ", 40)

	got := Truncate(text, 100)

	require.True(t, strings.HasSuffix(got, TruncationMarker))
	assert.LessOrEqual(t, len([]rune(got)), 100+len([]rune(TruncationMarker)))
	// Cut lands on a sentence boundary, so the kept text ends with ".".
	body := strings.TrimSuffix(got, TruncationMarker)
	assert.True(t, strings.HasSuffix(body, "."))
}

func TestTruncateZeroBudget(t *testing.T) {
	assert.Equal(t, TruncationMarker, Truncate("anything", 0))
}
