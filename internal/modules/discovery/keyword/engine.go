package keyword

import (
	"context"
	"strings"

	"github.com/rankforge/core/internal/models"
	"go.uber.org/zap"
)

// Phase names recorded in the discovery trace.
const (
	PhaseSeed          = "SEED"
	PhaseVolumeLookup  = "VOLUME_LOOKUP"
	PhaseFilter        = "FILTER"
	PhaseBroaden       = "BROADEN"
	PhaseSuggestLookup = "SUGGEST_LOOKUP"
	PhaseMergeFilter   = "MERGE_FILTER"
	PhaseDone          = "DONE"
)

// Candidate sources.
const (
	SourceSeed          = "seed"
	SourceModifier      = "modifier"
	SourceBroadCategory = "broad-category"
	SourceSuggestionAPI = "suggestion-api"
)

const (
	defaultMinSearchVolume       = 50
	defaultExpansionTrigger      = 5
	defaultMaxKeywordsPerRequest = 50
)

// EngineOptions are the discovery thresholds. Zero values fall back to the
// documented defaults.
type EngineOptions struct {
	MinSearchVolume       int
	ExpansionTriggerCount int
	MaxKeywordsPerRequest int
	SuggestionLimit       int
}

func (o EngineOptions) withDefaults() EngineOptions {
	if o.MinSearchVolume <= 0 {
		o.MinSearchVolume = defaultMinSearchVolume
	}
	if o.ExpansionTriggerCount <= 0 {
		o.ExpansionTriggerCount = defaultExpansionTrigger
	}
	if o.MaxKeywordsPerRequest <= 0 || o.MaxKeywordsPerRequest > defaultMaxKeywordsPerRequest {
		o.MaxKeywordsPerRequest = defaultMaxKeywordsPerRequest
	}
	if o.SuggestionLimit <= 0 || o.SuggestionLimit > defaultMaxKeywordsPerRequest {
		o.SuggestionLimit = defaultMaxKeywordsPerRequest
	}
	return o
}

// DiscoveryResult is the outcome of one engine run.
type DiscoveryResult struct {
	Seed           string
	Phases         []string
	Candidates     []models.Keyword
	CandidateCount int
}

// Engine runs the phased keyword discovery state machine: seed terms, one
// batched volume lookup, filtering, and a single broaden/suggest expansion
// when the seed pass comes back thin.
type Engine struct {
	client *VolumeClient
	scorer *Scorer
	opts   EngineOptions
	logger *zap.Logger
}

func NewEngine(client *VolumeClient, scorer *Scorer, opts EngineOptions, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{client: client, scorer: scorer, opts: opts.withDefaults(), logger: logger}
}

// Discover runs the full pipeline for one seed. A provider failure in any
// lookup phase aborts the run with ErrProviderUnavailable; an empty final
// list with a healthy provider is a valid terminal state.
func (e *Engine) Discover(ctx context.Context, seed string) (*DiscoveryResult, error) {
	result := &DiscoveryResult{}

	// SEED
	result.Phases = append(result.Phases, PhaseSeed)
	extracted := ExtractTerms(seed)
	result.Seed = extracted.Seed
	terms, sources := e.seedTerms(extracted)

	// VOLUME_LOOKUP
	result.Phases = append(result.Phases, PhaseVolumeLookup)
	metrics, err := e.client.SearchVolume(ctx, terms)
	if err != nil {
		return nil, err
	}

	// FILTER
	result.Phases = append(result.Phases, PhaseFilter)
	seen := map[string]struct{}{}
	filtered := e.filterMetrics(metrics, sources, SourceSeed, seen)
	considered := len(seen)

	if len(filtered) >= e.opts.ExpansionTriggerCount {
		result.Phases = append(result.Phases, PhaseDone)
		result.Candidates = e.finalize(filtered)
		result.CandidateCount = considered
		e.logDone(result)
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// BROADEN: one level only. Strips a trailing qualifier off the seed and
	// measures the broader terms; the universal set covers hopeless seeds.
	result.Phases = append(result.Phases, PhaseBroaden)
	broadTerms := BroadenSeed(seed)
	if len(broadTerms) == 0 {
		broadTerms = UniversalFallbackTerms()
	}
	broadMetrics, err := e.client.SearchVolume(ctx, broadTerms)
	if err != nil {
		return nil, err
	}
	broadFiltered := e.filterMetrics(broadMetrics, nil, SourceBroadCategory, seen)

	// SUGGEST_LOOKUP with the single best broad term.
	result.Phases = append(result.Phases, PhaseSuggestLookup)
	suggestions, err := e.client.Suggestions(ctx, broadTerms[0], e.opts.SuggestionLimit)
	if err != nil {
		return nil, err
	}
	suggested := e.filterSuggestions(suggestions, seen)

	// MERGE_FILTER: seed results first so measured volumes win over estimates.
	result.Phases = append(result.Phases, PhaseMergeFilter)
	merged := make([]models.Keyword, 0, len(filtered)+len(broadFiltered)+len(suggested))
	merged = append(merged, filtered...)
	merged = append(merged, broadFiltered...)
	merged = append(merged, suggested...)

	result.Phases = append(result.Phases, PhaseDone)
	result.Candidates = e.finalize(merged)
	result.CandidateCount = len(seen)
	e.logDone(result)
	return result, nil
}

// seedTerms builds the capped term list for the first volume call. Modifiers
// are truncated before category terms when the cap bites.
func (e *Engine) seedTerms(extracted ExtractedTerms) ([]string, map[string]string) {
	sources := map[string]string{}
	var terms []string

	add := func(term, source string) {
		norm := normalizeText(term)
		if norm == "" {
			return
		}
		if _, ok := sources[norm]; ok {
			return
		}
		sources[norm] = source
		terms = append(terms, norm)
	}

	add(extracted.Seed, SourceSeed)
	for _, t := range extracted.CategoryTerms {
		add(t, SourceSeed)
	}
	for _, t := range extracted.Modifiers {
		add(t, SourceModifier)
	}

	if len(terms) > e.opts.MaxKeywordsPerRequest {
		for _, dropped := range terms[e.opts.MaxKeywordsPerRequest:] {
			delete(sources, dropped)
		}
		terms = terms[:e.opts.MaxKeywordsPerRequest]
	}
	return terms, sources
}

// filterMetrics converts measured rows into scored candidates, dropping
// below-threshold and invalid texts. seen spans the whole run so later phases
// cannot resurrect a dropped duplicate.
func (e *Engine) filterMetrics(metrics []VolumeMetrics, sources map[string]string, fallbackSource string, seen map[string]struct{}) []models.Keyword {
	var out []models.Keyword
	for _, m := range metrics {
		norm := normalizeText(m.Keyword)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		if !e.scorer.ValidText(norm) || m.SearchVolume < e.opts.MinSearchVolume {
			continue
		}
		source := fallbackSource
		if sources != nil {
			if s, ok := sources[norm]; ok {
				source = s
			}
		}
		candidate := models.Keyword{
			Text:         norm,
			SearchVolume: m.SearchVolume,
			Competition:  m.Competition,
			CPC:          m.CPC,
			Source:       source,
		}
		e.scorer.Score(&candidate)
		out = append(out, candidate)
	}
	return out
}

func (e *Engine) filterSuggestions(items []SuggestionItem, seen map[string]struct{}) []models.Keyword {
	var out []models.Keyword
	for _, item := range items {
		norm := normalizeText(item.Keyword)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		if !e.scorer.ValidText(norm) || item.SearchVolume < e.opts.MinSearchVolume {
			continue
		}
		candidate := models.Keyword{
			Text:            norm,
			SearchVolume:    item.SearchVolume,
			Competition:     item.Competition,
			CPC:             item.CPC,
			VolumeEstimated: item.VolumeEstimated,
			Source:          SourceSuggestionAPI,
		}
		e.scorer.Score(&candidate)
		out = append(out, candidate)
	}
	return out
}

// finalize sorts and caps the merged candidate list.
func (e *Engine) finalize(candidates []models.Keyword) []models.Keyword {
	SortCandidates(candidates)
	if len(candidates) > e.opts.MaxKeywordsPerRequest {
		candidates = candidates[:e.opts.MaxKeywordsPerRequest]
	}
	if candidates == nil {
		candidates = []models.Keyword{}
	}
	return candidates
}

func (e *Engine) logDone(result *DiscoveryResult) {
	e.logger.Info("keyword discovery finished",
		zap.String("seed", result.Seed),
		zap.Strings("phases", result.Phases),
		zap.Int("considered", result.CandidateCount),
		zap.Int("results", len(result.Candidates)))
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
