package product

import (
	"regexp"
	"strings"

	"github.com/rankforge/core/internal/models"
)

const (
	maxAnalysisItems  = 5
	maxPhraseLength   = 60
	phraseCaptureSpan = 8
)

type categoryRule struct {
	Category string
	Patterns []string
}

// categoryRules maps product vocabulary to generic category labels. Ordered;
// every matching rule contributes its category.
var categoryRules = []categoryRule{
	{Category: "water_treatment", Patterns: []string{"water softener", "water filter", "purifier", "filtration", "descaler", "reverse osmosis"}},
	{Category: "audio", Patterns: []string{"headphone", "earbud", "speaker", "soundbar", "microphone", "turntable"}},
	{Category: "computing", Patterns: []string{"laptop", "keyboard", "monitor", "router", "ssd", "webcam", "docking station"}},
	{Category: "kitchen", Patterns: []string{"blender", "cookware", "air fryer", "coffee", "kettle", "knife set", "toaster"}},
	{Category: "fitness", Patterns: []string{"treadmill", "dumbbell", "yoga", "exercise", "fitness", "resistance band"}},
	{Category: "home_security", Patterns: []string{"security camera", "doorbell", "alarm", "smart lock", "motion sensor"}},
	{Category: "outdoor", Patterns: []string{"tent", "grill", "camping", "hiking", "backpack", "cooler"}},
	{Category: "pet_care", Patterns: []string{"dog", "cat", "pet", "litter", "aquarium", "bird cage"}},
	{Category: "beauty", Patterns: []string{"skincare", "serum", "moisturizer", "shampoo", "hair dryer", "cosmetic"}},
	{Category: "baby", Patterns: []string{"stroller", "crib", "baby monitor", "diaper", "car seat"}},
}

var categoryUseCases = map[string][]string{
	"water_treatment": {"improving home water quality", "protecting appliances from scale", "softening hard well water"},
	"audio":           {"daily commuting and travel", "focused work sessions", "home listening setups"},
	"computing":       {"remote work setups", "content creation", "everyday productivity"},
	"kitchen":         {"weeknight meal preparation", "healthy home cooking", "hosting and entertaining"},
	"fitness":         {"home strength training", "daily cardio routines", "recovery and mobility work"},
	"home_security":   {"monitoring entrances remotely", "package theft deterrence", "whole-home coverage"},
	"outdoor":         {"weekend camping trips", "backyard cooking", "day hikes"},
	"pet_care":        {"daily pet routines", "travel with pets", "multi-pet households"},
	"beauty":          {"daily skincare routines", "salon results at home"},
	"baby":            {"daily care on the go", "nursery setups"},
}

var categoryProblems = map[string][]string{
	"water_treatment": {"hard water scale buildup", "unpleasant taste and odor", "appliance wear from minerals"},
	"audio":           {"background noise during focus time", "poor call clarity"},
	"computing":       {"cluttered desk setups", "slow day-to-day workflows"},
	"kitchen":         {"time-consuming meal prep", "inconsistent cooking results"},
	"fitness":         {"limited gym access", "inconsistent training habits"},
	"home_security":   {"unmonitored entry points", "uncertainty while away from home"},
	"outdoor":         {"bulky gear on trips", "unpredictable weather exposure"},
	"pet_care":        {"odor and mess at home", "pet anxiety when alone"},
	"beauty":          {"dry or irritated skin", "dull hair and skin tone"},
	"baby":            {"interrupted sleep", "bulky travel gear"},
}

var categoryBenefits = map[string][]string{
	"water_treatment": {"cleaner better-tasting water", "longer appliance lifespan"},
	"audio":           {"immersive clear sound", "all-day wearing comfort"},
	"computing":       {"faster smoother workflows", "tidier workspaces"},
	"kitchen":         {"faster meal preparation", "consistent reliable results"},
	"fitness":         {"convenient home workouts", "measurable progress"},
	"home_security":   {"real-time peace of mind", "deterred intruders"},
	"outdoor":         {"comfortable time outdoors", "gear that packs light"},
	"pet_care":        {"happier healthier pets", "cleaner living spaces"},
	"beauty":          {"visible results at home", "simpler daily routines"},
	"baby":            {"safer everyday care", "easier outings"},
}

// problemMarkers introduce phrases describing what the product fixes.
var problemMarkers = []string{"prevents", "eliminates", "solves", "reduces", "removes", "stops", "protects against"}

// benefitMarkers introduce phrases describing what the product delivers.
var benefitMarkers = []string{"improves", "enhances", "boosts", "extends", "delivers", "saves"}

// priceTiers is the ordered threshold table: first row whose Min <= price wins.
var priceTiers = []struct {
	Name string
	Min  float64
}{
	{"premium", 100},
	{"mid-range", 50},
	{"budget", 0},
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

var htmlEntityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
)

// CleanDescription strips markup and collapses whitespace so downstream text
// rules see plain prose.
func CleanDescription(raw string) string {
	text := htmlTagPattern.ReplaceAllString(raw, " ")
	text = htmlEntityReplacer.Replace(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// BuildFacts converts a sync payload row into request-scoped facts.
func BuildFacts(item SyncItemDTO) Facts {
	return Facts{
		Title:              strings.TrimSpace(item.Title),
		RawDescription:     item.Description,
		CleanedDescription: CleanDescription(item.Description),
		Price:              item.Price,
		Tags:               normalizeTags(item.Tags),
		ProductType:        strings.TrimSpace(item.ProductType),
		Vendor:             strings.TrimSpace(item.Vendor),
	}
}

// FactsFromModel converts a stored product row into request-scoped facts.
func FactsFromModel(m *models.ProductModel) Facts {
	return Facts{
		Title:              m.Title,
		RawDescription:     m.Description,
		CleanedDescription: CleanDescription(m.Description),
		Price:              m.Price,
		Tags:               normalizeTags(m.Tags),
		ProductType:        m.ProductType,
		Vendor:             m.Vendor,
	}
}

// Analyze builds the batch analysis: category membership, price tier, and the
// use-case/problem/benefit lists the heuristic generator feeds on.
func Analyze(batch []Facts) Analysis {
	analysis := Analysis{
		Categories:     []string{},
		PriceTier:      "budget",
		UseCases:       []string{},
		ProblemsSolved: []string{},
		Benefits:       []string{},
	}
	if len(batch) == 0 {
		return analysis
	}

	analysis.Categories = detectCategories(batch)
	analysis.PriceTier = resolvePriceTier(batch)

	for _, category := range analysis.Categories {
		analysis.UseCases = appendCapped(analysis.UseCases, categoryUseCases[category], maxAnalysisItems)
		analysis.ProblemsSolved = appendCapped(analysis.ProblemsSolved, categoryProblems[category], maxAnalysisItems)
		analysis.Benefits = appendCapped(analysis.Benefits, categoryBenefits[category], maxAnalysisItems)
	}

	for _, facts := range batch {
		analysis.ProblemsSolved = appendCapped(analysis.ProblemsSolved,
			extractMarkerPhrases(facts.CleanedDescription, problemMarkers), maxAnalysisItems)
		analysis.Benefits = appendCapped(analysis.Benefits,
			extractMarkerPhrases(facts.CleanedDescription, benefitMarkers), maxAnalysisItems)
	}

	return analysis
}

func detectCategories(batch []Facts) []string {
	var categories []string
	seen := map[string]struct{}{}
	for _, facts := range batch {
		haystack := strings.ToLower(strings.Join([]string{
			facts.Title, facts.ProductType, strings.Join(facts.Tags, " "), facts.CleanedDescription,
		}, " "))
		for _, rule := range categoryRules {
			if _, ok := seen[rule.Category]; ok {
				continue
			}
			for _, pattern := range rule.Patterns {
				if strings.Contains(haystack, pattern) {
					seen[rule.Category] = struct{}{}
					categories = append(categories, rule.Category)
					break
				}
			}
		}
	}
	if categories == nil {
		return []string{}
	}
	return categories
}

func resolvePriceTier(batch []Facts) string {
	tier := ""
	for _, facts := range batch {
		t := tierForPrice(facts.Price)
		if tier == "" {
			tier = t
			continue
		}
		if tier != t {
			return "mixed"
		}
	}
	if tier == "" {
		return "budget"
	}
	return tier
}

func tierForPrice(price float64) string {
	for _, row := range priceTiers {
		if price >= row.Min {
			return row.Name
		}
	}
	return priceTiers[len(priceTiers)-1].Name
}

// extractMarkerPhrases pulls short phrases following marker verbs out of the
// cleaned description, e.g. "prevents scale buildup on heating elements".
func extractMarkerPhrases(text string, markers []string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	words := strings.Fields(lower)
	var phrases []string
	for i, word := range words {
		trimmed := strings.Trim(word, ".,;:!?")
		for _, marker := range markers {
			markerWords := strings.Fields(marker)
			if trimmed != markerWords[0] {
				continue
			}
			if len(markerWords) > 1 {
				if i+1 >= len(words) || strings.Trim(words[i+1], ".,;:!?") != markerWords[1] {
					continue
				}
			}
			start := i + len(markerWords)
			phrase := capturePhrase(words, start)
			if phrase != "" {
				phrases = append(phrases, phrase)
			}
		}
	}
	return phrases
}

func capturePhrase(words []string, start int) string {
	if start >= len(words) {
		return ""
	}
	end := start + phraseCaptureSpan
	if end > len(words) {
		end = len(words)
	}
	var captured []string
	for _, w := range words[start:end] {
		cleaned := strings.Trim(w, ",;:!?")
		stop := strings.HasSuffix(w, ".") || strings.HasSuffix(w, "!") || strings.HasSuffix(w, "?")
		cleaned = strings.TrimSuffix(cleaned, ".")
		if cleaned != "" {
			captured = append(captured, cleaned)
		}
		if stop {
			break
		}
	}
	phrase := strings.Join(captured, " ")
	if len(phrase) > maxPhraseLength {
		phrase = strings.TrimSpace(phrase[:maxPhraseLength])
	}
	if len(strings.Fields(phrase)) < 2 {
		return ""
	}
	return phrase
}

func appendCapped(dst, src []string, limit int) []string {
	for _, item := range src {
		if len(dst) >= limit {
			return dst
		}
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		duplicate := false
		for _, existing := range dst {
			if strings.EqualFold(existing, item) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			dst = append(dst, item)
		}
	}
	return dst
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	return out
}
