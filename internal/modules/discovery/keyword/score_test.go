package keyword

import (
	"strings"
	"testing"

	"github.com/rankforge/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinDifficultyBounds(t *testing.T) {
	assert.Equal(t, 0, builtinDifficulty(0, 0, 0))
	assert.Equal(t, 100, builtinDifficulty(100000, 10, 1))
	assert.Equal(t, 100, builtinDifficulty(5000000, 99, 7)) // inputs beyond caps stay clamped
}

func TestBuiltinDifficultyMonotonic(t *testing.T) {
	base := builtinDifficulty(1000, 2.5, 0.4)

	assert.GreaterOrEqual(t, builtinDifficulty(50000, 2.5, 0.4), base, "more volume")
	assert.GreaterOrEqual(t, builtinDifficulty(1000, 8, 0.4), base, "higher cpc")
	assert.GreaterOrEqual(t, builtinDifficulty(1000, 2.5, 0.9), base, "more competition")

	assert.LessOrEqual(t, builtinDifficulty(100, 2.5, 0.4), base, "less volume")
	assert.LessOrEqual(t, builtinDifficulty(1000, 0.5, 0.4), base, "lower cpc")
	assert.LessOrEqual(t, builtinDifficulty(1000, 2.5, 0.1), base, "less competition")
}

func TestScorerScriptOverride(t *testing.T) {
	t.Run("script wins", func(t *testing.T) {
		s, err := NewScorer(0, `function difficulty(volume, cpc, competition) { return 42; }`)
		require.NoError(t, err)
		assert.Equal(t, 42, s.Difficulty(1000, 2, 0.5))
	})

	t.Run("script result clamped", func(t *testing.T) {
		s, err := NewScorer(0, `function difficulty(v, c, comp) { return 400; }`)
		require.NoError(t, err)
		assert.Equal(t, 100, s.Difficulty(1000, 2, 0.5))
	})

	t.Run("script receives inputs", func(t *testing.T) {
		s, err := NewScorer(0, `function difficulty(volume, cpc, competition) { return volume / 100; }`)
		require.NoError(t, err)
		assert.Equal(t, 50, s.Difficulty(5000, 0, 0))
	})

	t.Run("compile error fails construction", func(t *testing.T) {
		_, err := NewScorer(0, `function difficulty( {`)
		require.Error(t, err)
	})

	t.Run("missing entry point falls back to builtin", func(t *testing.T) {
		s, err := NewScorer(0, `var unrelated = 1;`)
		require.NoError(t, err)
		assert.Equal(t, builtinDifficulty(1000, 2, 0.5), s.Difficulty(1000, 2, 0.5))
	})

	t.Run("non numeric result falls back to builtin", func(t *testing.T) {
		s, err := NewScorer(0, `function difficulty(v, c, comp) { return 0/0; }`)
		require.NoError(t, err)
		assert.Equal(t, builtinDifficulty(1000, 2, 0.5), s.Difficulty(1000, 2, 0.5))
	})
}

func TestValidText(t *testing.T) {
	s, err := NewScorer(0, "")
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "normal keyword", text: "water softener reviews", want: true},
		{name: "empty", text: "", want: false},
		{name: "whitespace only", text: "   ", want: false},
		{name: "purely numeric", text: "12345", want: false},
		{name: "numeric with separators", text: "12,345.00", want: false},
		{name: "over length cap", text: strings.Repeat("a", 81), want: false},
		{name: "at length cap", text: strings.Repeat("a", 80), want: true},
		{name: "contains digits but not numeric", text: "top 10 water softeners", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ValidText(tt.text))
		})
	}
}

func TestCompetitionLevelFor(t *testing.T) {
	assert.Equal(t, CompetitionLow, CompetitionLevelFor(0))
	assert.Equal(t, CompetitionLow, CompetitionLevelFor(0.33))
	assert.Equal(t, CompetitionMedium, CompetitionLevelFor(0.34))
	assert.Equal(t, CompetitionMedium, CompetitionLevelFor(0.66))
	assert.Equal(t, CompetitionHigh, CompetitionLevelFor(0.67))
	assert.Equal(t, CompetitionHigh, CompetitionLevelFor(1))
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"buy water softener", IntentCommercial},
		{"water softener price", IntentCommercial},
		{"best water softener", IntentCommercial},
		{"water softener reviews", IntentCommercial},
		{"cheap headphones", IntentCommercial},
		{"how to install water softener", IntentInformational},
		{"what is a water softener", IntentInformational},
		{"water softener maintenance", IntentInformational},
		{"water softener", IntentInformational},
		{"wh-1000xm4", IntentNavigational},
		{"x200 pro", IntentNavigational},
		{"", IntentInformational},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIntent(tt.text))
		})
	}
}

func TestScoreFillsDerivedFields(t *testing.T) {
	s, err := NewScorer(0, "")
	require.NoError(t, err)

	candidate := models.Keyword{Text: "buy water softener", SearchVolume: 900, Competition: 0.8, CPC: 3.2}
	s.Score(&candidate)

	assert.Equal(t, CompetitionHigh, candidate.CompetitionLevel)
	assert.Equal(t, IntentCommercial, candidate.Intent)
	assert.Greater(t, candidate.Difficulty, 0)
	assert.LessOrEqual(t, candidate.Difficulty, 100)
}

func TestSortCandidates(t *testing.T) {
	candidates := []models.Keyword{
		{Text: "water softener system", SearchVolume: 800},
		{Text: "water softener", SearchVolume: 12100},
		{Text: "bb", SearchVolume: 800},
		{Text: "aa", SearchVolume: 800},
		{Text: "best water softener", SearchVolume: 8100},
	}

	SortCandidates(candidates)

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	assert.Equal(t, []string{
		"water softener",
		"best water softener",
		"aa",
		"bb",
		"water softener system",
	}, texts)
}
