package keyword

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rankforge/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, endpoint string) *Engine {
	t.Helper()
	client, err := NewVolumeClient(testDiscoveryOptions(endpoint), nil)
	require.NoError(t, err)
	scorer, err := NewScorer(0, "")
	require.NoError(t, err)
	return NewEngine(client, scorer, EngineOptions{}, nil)
}

func writeTaskResult(w http.ResponseWriter, result interface{}) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status_code": 20000,
		"tasks": []map[string]interface{}{
			{"status_code": 20000, "status_message": "Ok.", "result": result},
		},
	})
}

// volumeRows answers a volume request from a keyword->metrics table. Keywords
// without a table entry are omitted, like a provider with no data for them.
func volumeRows(r *http.Request, table map[string]VolumeMetrics) []map[string]interface{} {
	var payload []volumeTaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(payload[0].Keywords))
	for _, kw := range payload[0].Keywords {
		m, ok := table[kw]
		if !ok {
			continue
		}
		rows = append(rows, map[string]interface{}{
			"keyword":       kw,
			"search_volume": m.SearchVolume,
			"competition":   m.Competition,
			"cpc":           m.CPC,
		})
	}
	return rows
}

func assertFinalCandidateInvariants(t *testing.T, candidates []models.Keyword) {
	t.Helper()
	assert.LessOrEqual(t, len(candidates), 50)
	seen := map[string]struct{}{}
	for i, c := range candidates {
		assert.GreaterOrEqual(t, c.SearchVolume, 50, "candidate %q below volume threshold", c.Text)
		lower := strings.ToLower(c.Text)
		_, dup := seen[lower]
		assert.False(t, dup, "duplicate candidate %q", c.Text)
		seen[lower] = struct{}{}
		if i > 0 {
			assert.GreaterOrEqual(t, candidates[i-1].SearchVolume, c.SearchVolume, "not sorted at %d", i)
		}
		assert.GreaterOrEqual(t, c.Difficulty, 0)
		assert.LessOrEqual(t, c.Difficulty, 100)
		assert.NotEmpty(t, c.Intent)
		assert.NotEmpty(t, c.CompetitionLevel)
		assert.NotEmpty(t, c.Source)
	}
}

func TestDiscover_RichSeedSkipsExpansion(t *testing.T) {
	table := map[string]VolumeMetrics{
		"water softener":              {SearchVolume: 12100, Competition: 0.42, CPC: 2.05},
		"best water softener":         {SearchVolume: 8100, Competition: 0.65, CPC: 3.40},
		"softener":                    {SearchVolume: 5400, Competition: 0.18, CPC: 1.10},
		"water softener reviews":      {SearchVolume: 3600, Competition: 0.35, CPC: 1.80},
		"water softener buying guide": {SearchVolume: 590, Competition: 0.25, CPC: 1.20},
		"top water softener":          {SearchVolume: 480, Competition: 0.55, CPC: 2.60},
		"water softener comparison":   {SearchVolume: 320, Competition: 0.30, CPC: 1.40},
		"cheap water softener":        {SearchVolume: 260, Competition: 0.70, CPC: 1.90},
		"affordable water softener":   {SearchVolume: 40, Competition: 0.20, CPC: 0.90}, // below threshold
	}

	volumeCalls, suggestCalls := 0, 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case volumeLivePath:
			volumeCalls++
			writeTaskResult(w, volumeRows(r, table))
		case suggestionsLivePath:
			suggestCalls++
			writeTaskResult(w, nil)
		}
	}))
	defer server.Close()

	engine := newTestEngine(t, server.URL)
	result, err := engine.Discover(context.Background(), "water softener")
	require.NoError(t, err)

	assert.Equal(t, []string{PhaseSeed, PhaseVolumeLookup, PhaseFilter, PhaseDone}, result.Phases)
	assert.Equal(t, 1, volumeCalls)
	assert.Equal(t, 0, suggestCalls, "expansion must not run for a rich seed")

	require.Len(t, result.Candidates, 8)
	assert.Equal(t, "water softener", result.Candidates[0].Text)
	assert.Equal(t, 12100, result.Candidates[0].SearchVolume)
	assert.Equal(t, SourceSeed, result.Candidates[0].Source)
	assert.Equal(t, 9, result.CandidateCount)
	assertFinalCandidateInvariants(t, result.Candidates)

	bySource := map[string]int{}
	for _, c := range result.Candidates {
		bySource[c.Source]++
	}
	assert.Equal(t, 2, bySource[SourceSeed], "seed + category term")
	assert.Equal(t, 6, bySource[SourceModifier])
}

func TestDiscover_ThinSeedBroadensAndSuggests(t *testing.T) {
	table := map[string]VolumeMetrics{
		"gadget":          {SearchVolume: 2900, Competition: 0.20, CPC: 0.50},
		"best gadget":     {SearchVolume: 720, Competition: 0.50, CPC: 1.10},
		"product reviews": {SearchVolume: 5400, Competition: 0.40, CPC: 1.20},
		"buying guide":    {SearchVolume: 1900, Competition: 0.30, CPC: 0.90},
		"best products":   {SearchVolume: 880, Competition: 0.60, CPC: 1.50},
	}

	volumeCalls, suggestCalls := 0, 0
	var suggestSeed string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case volumeLivePath:
			volumeCalls++
			writeTaskResult(w, volumeRows(r, table))
		case suggestionsLivePath:
			suggestCalls++
			var payload []suggestionTaskPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.Len(t, payload, 1)
			suggestSeed = payload[0].Keyword
			assert.Equal(t, 50, payload[0].Limit)
			assert.False(t, payload[0].IncludeSeedKeyword)

			writeTaskResult(w, []map[string]interface{}{{
				"seed_keyword": payload[0].Keyword,
				"items": []map[string]interface{}{
					{"keyword": "best product reviews", "search_volume": 1300, "competition": 0.30, "cpc": 0.80},
					{"keyword": "gadget reviews", "search_volume": 590, "competition": 0.25, "cpc": 0.70},
					{"keyword": "honest product reviews"}, // volume estimated from position
					{"keyword": "gadget", "search_volume": 2900},
					{"keyword": "niche product reviews", "search_volume": 20},
				},
			}})
		}
	}))
	defer server.Close()

	engine := newTestEngine(t, server.URL)
	result, err := engine.Discover(context.Background(), "xyz-99 gadget")
	require.NoError(t, err)

	assert.Equal(t, []string{
		PhaseSeed, PhaseVolumeLookup, PhaseFilter,
		PhaseBroaden, PhaseSuggestLookup, PhaseMergeFilter, PhaseDone,
	}, result.Phases)
	assert.Equal(t, 2, volumeCalls, "seed pass + broaden pass")
	assert.Equal(t, 1, suggestCalls)
	assert.Equal(t, "product reviews", suggestSeed, "best broad term feeds the suggestion lookup")

	require.Len(t, result.Candidates, 8)
	assertFinalCandidateInvariants(t, result.Candidates)

	byText := map[string]models.Keyword{}
	for _, c := range result.Candidates {
		byText[c.Text] = c
	}

	assert.Equal(t, SourceSeed, byText["gadget"].Source)
	assert.Equal(t, SourceModifier, byText["best gadget"].Source)
	assert.Equal(t, SourceBroadCategory, byText["product reviews"].Source)
	assert.Equal(t, SourceSuggestionAPI, byText["best product reviews"].Source)

	// merged list is sorted by measured volume across all sources
	assert.Equal(t, "product reviews", result.Candidates[0].Text)
	assert.Equal(t, "gadget", result.Candidates[1].Text)

	estimated := byText["honest product reviews"]
	assert.True(t, estimated.VolumeEstimated)
	assert.Equal(t, 640, estimated.SearchVolume, "position 2 decay from base 1000")

	// the seed-pass "gadget" survived; the suggestion duplicate was dropped
	assert.Equal(t, 2900, byText["gadget"].SearchVolume)
	assert.False(t, byText["gadget"].VolumeEstimated)

	_, tooThin := byText["niche product reviews"]
	assert.False(t, tooThin, "below-threshold suggestion must be filtered")
}

func TestDiscover_EmptyResultIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case volumeLivePath:
			writeTaskResult(w, nil)
		case suggestionsLivePath:
			writeTaskResult(w, nil)
		}
	}))
	defer server.Close()

	engine := newTestEngine(t, server.URL)
	result, err := engine.Discover(context.Background(), "completely unknown thing")
	require.NoError(t, err)

	assert.NotNil(t, result.Candidates)
	assert.Empty(t, result.Candidates)
	assert.Contains(t, result.Phases, PhaseBroaden)
	assert.Contains(t, result.Phases, PhaseSuggestLookup)
	assert.Contains(t, result.Phases, PhaseDone)
}

func TestDiscover_ProviderFailureSurfaces(t *testing.T) {
	t.Run("volume lookup down", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		engine := newTestEngine(t, server.URL)
		result, err := engine.Discover(context.Background(), "water softener")
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("suggestion lookup down", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case volumeLivePath:
				writeTaskResult(w, nil) // thin result forces expansion
			case suggestionsLivePath:
				w.WriteHeader(http.StatusServiceUnavailable)
			}
		}))
		defer server.Close()

		engine := newTestEngine(t, server.URL)
		result, err := engine.Discover(context.Background(), "water softener")
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})
}

func TestSeedTermsCapTruncatesModifiersFirst(t *testing.T) {
	client, err := NewVolumeClient(testDiscoveryOptions("https://api.example.com"), nil)
	require.NoError(t, err)
	scorer, err := NewScorer(0, "")
	require.NoError(t, err)
	engine := NewEngine(client, scorer, EngineOptions{MaxKeywordsPerRequest: 4}, nil)

	terms, sources := engine.seedTerms(ExtractTerms("water softener"))

	require.Len(t, terms, 4)
	assert.Equal(t, "water softener", terms[0])
	assert.Equal(t, "softener", terms[1])
	assert.Equal(t, SourceSeed, sources["water softener"])
	assert.Equal(t, SourceSeed, sources["softener"])
	for _, term := range terms[2:] {
		assert.Equal(t, SourceModifier, sources[term])
	}
	assert.Len(t, sources, 4, "dropped terms must not linger in the source map")
}
