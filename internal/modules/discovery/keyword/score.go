package keyword

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/rankforge/core/internal/models"
)

const (
	IntentCommercial    = "commercial"
	IntentInformational = "informational"
	IntentNavigational  = "navigational"

	CompetitionLow    = "low"
	CompetitionMedium = "medium"
	CompetitionHigh   = "high"
)

const (
	defaultMaxTextLength  = 80
	scriptExecTimeout     = 250 * time.Millisecond
	difficultyScriptEntry = "difficulty"
)

// intentRules is evaluated top-down; the first rule with a matching token wins.
var intentRules = []struct {
	Intent   string
	Patterns []string
}{
	{IntentCommercial, []string{
		"buy", "buying", "price", "prices", "discount", "deal", "deals", "cheap",
		"affordable", "best", "top", "review", "reviews", "comparison", "compare",
		"vs", "brands", "sale", "coupon",
	}},
	{IntentInformational, []string{
		"how", "what", "why", "when", "guide", "tutorial", "tips", "diy",
		"install", "installation", "maintenance", "clean", "fix", "troubleshooting",
	}},
}

var purelyNumericPattern = regexp.MustCompile(`^[\d\s.,-]+$`)

// Scorer validates and scores keyword candidates. The difficulty formula can
// be overridden per deployment by a script that defines
// `function difficulty(volume, cpc, competition)`.
type Scorer struct {
	maxTextLength int
	program       *goja.Program
}

// NewScorer compiles the optional difficulty script up front so a broken
// script fails the request instead of silently mis-scoring candidates.
func NewScorer(maxTextLength int, script string) (*Scorer, error) {
	if maxTextLength <= 0 {
		maxTextLength = defaultMaxTextLength
	}
	s := &Scorer{maxTextLength: maxTextLength}
	if strings.TrimSpace(script) != "" {
		program, err := goja.Compile("difficulty.js", script, true)
		if err != nil {
			return nil, fmt.Errorf("compile difficulty script: %w", err)
		}
		s.program = program
	}
	return s, nil
}

// ValidText reports whether a normalized candidate text passes the quality
// gate: non-empty, not purely numeric, within the length cap.
func (s *Scorer) ValidText(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > s.maxTextLength {
		return false
	}
	return !purelyNumericPattern.MatchString(text)
}

// Score fills the derived fields of a candidate in place.
func (s *Scorer) Score(c *models.Keyword) {
	c.CompetitionLevel = CompetitionLevelFor(c.Competition)
	c.Difficulty = s.Difficulty(c.SearchVolume, c.CPC, c.Competition)
	c.Intent = ClassifyIntent(c.Text)
}

// Difficulty maps volume, CPC and competition onto 0..100. The script
// override is used when present; script runtime failures fall back to the
// built-in formula instead of failing the run.
func (s *Scorer) Difficulty(volume int, cpc, competition float64) int {
	if s.program != nil {
		if score, err := s.runDifficultyScript(volume, cpc, competition); err == nil {
			return score
		}
	}
	return builtinDifficulty(volume, cpc, competition)
}

// builtinDifficulty: competition contributes up to 50 points, CPC up to 30
// (capped at $10) and volume up to 20 (two linear segments, capped at 100k).
// Monotonic in every input.
func builtinDifficulty(volume int, cpc, competition float64) int {
	competitionPts := clamp01(competition) * 50

	cpcPts := math.Min(math.Max(cpc, 0), 10) / 10 * 30

	v := float64(volume)
	var volumePts float64
	switch {
	case v <= 0:
		volumePts = 0
	case v <= 10000:
		volumePts = v / 10000 * 10
	case v <= 100000:
		volumePts = 10 + (v-10000)/90000*10
	default:
		volumePts = 20
	}

	score := int(math.Round(competitionPts + cpcPts + volumePts))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func (s *Scorer) runDifficultyScript(volume int, cpc, competition float64) (int, error) {
	vm := goja.New()
	timer := time.AfterFunc(scriptExecTimeout, func() {
		vm.Interrupt("difficulty-script-timeout")
	})
	defer timer.Stop()

	if _, err := vm.RunProgram(s.program); err != nil {
		return 0, err
	}
	fn, ok := goja.AssertFunction(vm.Get(difficultyScriptEntry))
	if !ok {
		return 0, fmt.Errorf("script does not define %s()", difficultyScriptEntry)
	}
	result, err := fn(goja.Undefined(), vm.ToValue(volume), vm.ToValue(cpc), vm.ToValue(competition))
	if err != nil {
		return 0, err
	}
	score := result.ToFloat()
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("script returned non-numeric difficulty")
	}
	return int(math.Round(math.Min(math.Max(score, 0), 100))), nil
}

// CompetitionLevelFor buckets the provider's 0..1 competition index.
func CompetitionLevelFor(competition float64) string {
	switch {
	case competition < 0.34:
		return CompetitionLow
	case competition < 0.67:
		return CompetitionMedium
	default:
		return CompetitionHigh
	}
}

// ClassifyIntent applies the lexical rule table. Terms made up entirely of
// brand or model tokens are navigational; anything unmatched defaults to
// informational.
func ClassifyIntent(text string) string {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return IntentInformational
	}

	for _, rule := range intentRules {
		for _, token := range tokens {
			for _, pattern := range rule.Patterns {
				if token == pattern {
					return rule.Intent
				}
			}
		}
	}

	for _, token := range tokens {
		if classifyToken(token) == tokenDescriptive {
			return IntentInformational
		}
	}
	return IntentNavigational
}

// SortCandidates orders by volume descending; ties break on shorter text,
// then lexicographically, so output is stable across runs.
func SortCandidates(candidates []models.Keyword) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.SearchVolume != b.SearchVolume {
			return a.SearchVolume > b.SearchVolume
		}
		if len(a.Text) != len(b.Text) {
			return len(a.Text) < len(b.Text)
		}
		return a.Text < b.Text
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
