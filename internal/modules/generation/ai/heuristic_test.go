package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankforge/core/internal/modules/catalog/product"
)

func assertHeuristicInvariants(t *testing.T, items []string) {
	t.Helper()
	assert.LessOrEqual(t, len(items), heuristicMaxItems)
	seen := map[string]struct{}{}
	for _, item := range items {
		assert.Equal(t, strings.TrimSpace(item), item)
		assert.NotEmpty(t, item)
		lower := strings.ToLower(item)
		_, dup := seen[lower]
		assert.False(t, dup, "duplicate item %q", item)
		seen[lower] = struct{}{}
	}
}

func TestHeuristicPersonas_WaterTreatmentPremium(t *testing.T) {
	analysis := product.Analysis{
		Categories: []string{"water_treatment"},
		PriceTier:  "premium",
	}

	personas := HeuristicPersonas(analysis)
	assertHeuristicInvariants(t, personas)
	require.NotEmpty(t, personas)

	categoryHits, tierHits := 0, 0
	for _, p := range personas {
		for _, tpl := range personaRules.categories["water_treatment"] {
			if p == tpl {
				categoryHits++
			}
		}
		for _, tpl := range personaRules.priceTiers["premium"] {
			if p == tpl {
				tierHits++
			}
		}
	}
	assert.GreaterOrEqual(t, categoryHits, 1, "at least one water treatment persona")
	assert.GreaterOrEqual(t, tierHits, 1, "at least one premium tier persona")
	assert.NotContains(t, personas, personaRules.generic[0], "generic templates must not fire")

	// category templates come before tier templates
	assert.Equal(t, personaRules.categories["water_treatment"][0], personas[0])
}

func TestHeuristicKeywords_WaterTreatmentPremium(t *testing.T) {
	analysis := product.Analysis{
		Categories: []string{"water_treatment"},
		PriceTier:  "premium",
	}

	keywords := HeuristicKeywords(analysis)
	assertHeuristicInvariants(t, keywords)

	assert.Contains(t, keywords, "best water softener system")
	assert.Contains(t, keywords, "premium brands comparison")
	assert.NotContains(t, keywords, "product reviews", "universal keywords only fire for an empty analysis")
}

func TestHeuristicTitles_WaterTreatmentPremium(t *testing.T) {
	analysis := product.Analysis{
		Categories: []string{"water_treatment"},
		PriceTier:  "premium",
	}

	titles := HeuristicTitles(analysis)
	assertHeuristicInvariants(t, titles)

	assert.Contains(t, titles, "The Complete Guide to Choosing a Water Softener")
	assert.Contains(t, titles, "Is Premium Worth It? What the Extra Money Buys")
}

func TestHeuristic_GenericFiresOnlyForEmptyAnalysis(t *testing.T) {
	empty := product.Analysis{Categories: []string{"unknown_category"}}

	keywords := HeuristicKeywords(empty)
	assert.Equal(t, []string{
		"product reviews",
		"buying guide",
		"best products",
		"consumer guide",
		"product comparison",
		"brand reviews",
	}, keywords, "nothing fired, so the universal list serves whole")

	personas := HeuristicPersonas(empty)
	assert.Equal(t, personaRules.generic, personas)
}

func TestHeuristic_ProblemTemplatesCycle(t *testing.T) {
	analysis := product.Analysis{
		ProblemsSolved: []string{"hard water stains", "scale buildup", "dry skin"},
	}

	personas := HeuristicPersonas(analysis)
	require.Len(t, personas, 3)
	assert.Equal(t, "People actively searching for a fix for hard water stains", personas[0])
	assert.Equal(t, "Buyers frustrated by scale buildup and ready to spend on a solution", personas[1])
	assert.Equal(t, "People actively searching for a fix for dry skin", personas[2])
}

func TestHeuristic_DedupesCaseInsensitively(t *testing.T) {
	analysis := product.Analysis{
		Categories:     []string{"water_treatment", "water_treatment"},
		ProblemsSolved: []string{"Hard Water", "noise", "hard water"},
	}

	personas := HeuristicPersonas(analysis)
	assertHeuristicInvariants(t, personas)

	// duplicated category adds its two templates once; the third problem
	// cycles back to the first template and collides case-insensitively
	assert.Len(t, personas, 4)
}

func TestHeuristic_CapsAtTen(t *testing.T) {
	analysis := product.Analysis{
		Categories: []string{
			"water_treatment", "audio", "computing", "kitchen", "fitness",
			"home_security", "outdoor", "pet_care", "beauty", "baby",
		},
		PriceTier:      "premium",
		ProblemsSolved: []string{"everything at once"},
	}

	for _, items := range [][]string{
		HeuristicPersonas(analysis),
		HeuristicTitles(analysis),
		HeuristicKeywords(analysis),
	} {
		assert.Len(t, items, heuristicMaxItems)
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	analysis := product.Analysis{
		Categories:     []string{"kitchen", "audio"},
		PriceTier:      "budget",
		ProblemsSolved: []string{"slow cooking"},
	}

	assert.Equal(t, HeuristicPersonas(analysis), HeuristicPersonas(analysis))
	assert.Equal(t, HeuristicTitles(analysis), HeuristicTitles(analysis))
	assert.Equal(t, HeuristicKeywords(analysis), HeuristicKeywords(analysis))
}
