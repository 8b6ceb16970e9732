package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "strips html tags",
			raw:  "<p>Removes hard minerals</p><br><strong>fast</strong>",
			want: "Removes hard minerals fast",
		},
		{
			name: "decodes common entities",
			raw:  "Salt &amp; pepper &quot;grinder&quot;",
			want: `Salt & pepper "grinder"`,
		},
		{
			name: "collapses whitespace",
			raw:  "Line one\n\n\tLine   two",
			want: "Line one Line two",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanDescription(tt.raw))
		})
	}
}

func TestResolvePriceTier(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   string
	}{
		{name: "premium at threshold", prices: []float64{100}, want: "premium"},
		{name: "premium above threshold", prices: []float64{899.99}, want: "premium"},
		{name: "mid-range", prices: []float64{50, 99.99}, want: "mid-range"},
		{name: "budget", prices: []float64{12.5, 49.99}, want: "budget"},
		{name: "zero price falls to budget", prices: []float64{0}, want: "budget"},
		{name: "mixed tiers", prices: []float64{20, 250}, want: "mixed"},
		{name: "empty batch", prices: nil, want: "budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := make([]Facts, 0, len(tt.prices))
			for _, price := range tt.prices {
				batch = append(batch, Facts{Price: price})
			}
			assert.Equal(t, tt.want, resolvePriceTier(batch))
		})
	}
}

func TestDetectCategories(t *testing.T) {
	tests := []struct {
		name  string
		batch []Facts
		want  []string
	}{
		{
			name:  "water softener title",
			batch: []Facts{{Title: "AquaPure Water Softener Pro"}},
			want:  []string{"water_treatment"},
		},
		{
			name:  "headphones via product type",
			batch: []Facts{{Title: "Sony WH-1000XM4", ProductType: "Wireless Headphones"}},
			want:  []string{"audio"},
		},
		{
			name:  "tag match",
			batch: []Facts{{Title: "Model X200", Tags: []string{"security camera"}}},
			want:  []string{"home_security"},
		},
		{
			name: "multiple products multiple categories",
			batch: []Facts{
				{Title: "Iron Filter Max", ProductType: "Water Filter"},
				{Title: "Trail Tent 4P"},
			},
			want: []string{"water_treatment", "outdoor"},
		},
		{
			name:  "unknown vocabulary",
			batch: []Facts{{Title: "XYZ-99 Gadget"}},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectCategories(tt.batch))
		})
	}
}

func TestExtractMarkerPhrases(t *testing.T) {
	t.Run("single word marker", func(t *testing.T) {
		phrases := extractMarkerPhrases("This unit prevents scale buildup on heating elements. Easy to install.", problemMarkers)
		require.Len(t, phrases, 1)
		assert.Equal(t, "scale buildup on heating elements", phrases[0])
	})

	t.Run("two word marker", func(t *testing.T) {
		phrases := extractMarkerPhrases("The coating protects against rust and corrosion over time", problemMarkers)
		require.Len(t, phrases, 1)
		assert.Contains(t, phrases[0], "rust and corrosion")
	})

	t.Run("benefit marker", func(t *testing.T) {
		phrases := extractMarkerPhrases("Daily use improves water taste noticeably.", benefitMarkers)
		require.Len(t, phrases, 1)
		assert.Equal(t, "water taste noticeably", phrases[0])
	})

	t.Run("no markers", func(t *testing.T) {
		assert.Empty(t, extractMarkerPhrases("A simple kitchen tool.", problemMarkers))
	})

	t.Run("dangling marker at end", func(t *testing.T) {
		assert.Empty(t, extractMarkerPhrases("This product prevents", problemMarkers))
	})
}

func TestAnalyze(t *testing.T) {
	t.Run("water treatment batch", func(t *testing.T) {
		analysis := Analyze([]Facts{
			{
				Title:              "AquaPure Water Softener Elite",
				CleanedDescription: "Prevents scale buildup in pipes. Improves water taste throughout the home.",
				Price:              450,
			},
			{
				Title: "AquaPure Filter Cartridge",
				Price: 120,
			},
		})

		assert.Equal(t, []string{"water_treatment"}, analysis.Categories)
		assert.Equal(t, "premium", analysis.PriceTier)
		assert.NotEmpty(t, analysis.UseCases)
		assert.NotEmpty(t, analysis.ProblemsSolved)
		assert.NotEmpty(t, analysis.Benefits)
		assert.LessOrEqual(t, len(analysis.UseCases), maxAnalysisItems)
		assert.LessOrEqual(t, len(analysis.ProblemsSolved), maxAnalysisItems)
		assert.LessOrEqual(t, len(analysis.Benefits), maxAnalysisItems)
	})

	t.Run("empty batch yields safe defaults", func(t *testing.T) {
		analysis := Analyze(nil)
		assert.Equal(t, []string{}, analysis.Categories)
		assert.Equal(t, "budget", analysis.PriceTier)
		assert.Empty(t, analysis.UseCases)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		batch := []Facts{{Title: "Trail Grill Compact", Price: 80}}
		first := Analyze(batch)
		second := Analyze(batch)
		assert.Equal(t, first, second)
	})
}

func TestBuildFacts(t *testing.T) {
	facts := BuildFacts(SyncItemDTO{
		ExternalID:  "shopify-1",
		Title:       "  Grind Master 2000  ",
		Description: "<p>Burr grinder</p>",
		Tags:        []string{" coffee ", "", "kitchen"},
		Price:       129,
	})

	assert.Equal(t, "Grind Master 2000", facts.Title)
	assert.Equal(t, "Burr grinder", facts.CleanedDescription)
	assert.Equal(t, "<p>Burr grinder</p>", facts.RawDescription)
	assert.Equal(t, []string{"coffee", "kitchen"}, facts.Tags)
}

func TestDedupeByExternalID(t *testing.T) {
	items := []SyncItemDTO{
		{ExternalID: "a", Title: "First"},
		{ExternalID: "b", Title: "Second"},
		{ExternalID: "a", Title: "First Updated"},
	}

	deduped := dedupeByExternalID(items)
	require.Len(t, deduped, 2)
	assert.Equal(t, "First Updated", deduped[0].Title)
	assert.Equal(t, "Second", deduped[1].Title)
}
