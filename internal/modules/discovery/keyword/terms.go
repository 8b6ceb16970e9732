package keyword

import (
	"regexp"
	"strings"
)

// ExtractedTerms is the deterministic output of term extraction for a seed
// string. Modifiers always carry at least the universal set, so discovery can
// proceed for any input.
type ExtractedTerms struct {
	Seed          string
	CategoryTerms []string
	Modifiers     []string
	UsedFallback  bool
}

type tokenClass int

const (
	tokenDescriptive tokenClass = iota
	tokenBrandIndicator
	tokenModelCode
)

// brandIndicators are marketing suffixes that never describe a product
// category on their own.
var brandIndicators = map[string]struct{}{
	"pro": {}, "elite": {}, "premium": {}, "plus": {}, "max": {},
	"mini": {}, "ultra": {}, "deluxe": {}, "series": {}, "edition": {},
}

// modifierTemplates expand a category term into search phrases. "%s" is the term.
var modifierTemplates = []string{
	"best %s",
	"%s reviews",
	"%s buying guide",
	"top %s",
	"%s comparison",
	"%s brands",
	"cheap %s",
	"affordable %s",
}

// universalFallbackTerms cover seeds that yield no usable category term.
var universalFallbackTerms = []string{
	"product reviews",
	"buying guide",
	"best products",
	"consumer guide",
	"product comparison",
	"brand reviews",
}

var (
	bracketedPattern = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|\{[^}]*\}`)
	trademarkPattern = regexp.MustCompile(`[™®©℠]`)
	// keeps letters, digits, spaces and in-token hyphens so "wh-1000xm4" stays one token
	specialCharPattern = regexp.MustCompile(`[^a-z0-9\s-]`)
	spacePattern       = regexp.MustCompile(`\s+`)
	digitRunPattern    = regexp.MustCompile(`\d{5,}`)
	letterPattern      = regexp.MustCompile(`[a-z]`)
	digitPattern       = regexp.MustCompile(`\d`)
)

// NormalizeSeed lowercases the raw seed and strips trademark glyphs,
// bracketed segments and punctuation.
func NormalizeSeed(raw string) string {
	s := strings.ToLower(raw)
	s = bracketedPattern.ReplaceAllString(s, " ")
	s = trademarkPattern.ReplaceAllString(s, " ")
	s = specialCharPattern.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " - ", " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.Trim(strings.TrimSpace(s), "-")
}

func classifyToken(token string) tokenClass {
	if _, ok := brandIndicators[token]; ok {
		return tokenBrandIndicator
	}
	hasLetter := letterPattern.MatchString(token)
	hasDigit := digitPattern.MatchString(token)
	switch {
	case hasLetter && hasDigit:
		return tokenModelCode
	case digitRunPattern.MatchString(token):
		return tokenModelCode
	case !hasLetter:
		// bare short numbers are treated like model fragments, not vocabulary
		return tokenModelCode
	}
	return tokenDescriptive
}

// ExtractTerms derives category terms and modifier phrases from a raw product
// or seed string. Deterministic and never empty.
func ExtractTerms(raw string) ExtractedTerms {
	seed := NormalizeSeed(raw)
	tokens := strings.Fields(seed)

	categoryTerms := deriveCategoryTerms(tokens)

	out := ExtractedTerms{
		Seed:          seed,
		CategoryTerms: categoryTerms,
		Modifiers:     []string{},
	}

	if len(categoryTerms) == 0 {
		out.UsedFallback = true
		out.Modifiers = append(out.Modifiers, universalFallbackTerms...)
		return out
	}

	seen := map[string]struct{}{}
	for _, term := range categoryTerms {
		seen[term] = struct{}{}
	}
	for _, term := range categoryTerms {
		for _, tpl := range modifierTemplates {
			phrase := strings.Replace(tpl, "%s", term, 1)
			if _, ok := seen[phrase]; ok {
				continue
			}
			seen[phrase] = struct{}{}
			out.Modifiers = append(out.Modifiers, phrase)
		}
	}
	return out
}

// deriveCategoryTerms picks the trailing run of descriptive tokens: the last
// one or two as a phrase plus the single trailing token, multi-word first.
func deriveCategoryTerms(tokens []string) []string {
	descriptiveRun := trailingDescriptiveRun(tokens)
	if len(descriptiveRun) == 0 {
		return nil
	}

	var terms []string
	if len(descriptiveRun) >= 2 {
		terms = append(terms, strings.Join(descriptiveRun[len(descriptiveRun)-2:], " "))
	}
	terms = appendUnique(terms, descriptiveRun[len(descriptiveRun)-1])
	return terms
}

// trailingDescriptiveRun walks back from the end of the token list and
// collects consecutive descriptive tokens, stopping at the first brand
// indicator or model code.
func trailingDescriptiveRun(tokens []string) []string {
	var run []string
	for i := len(tokens) - 1; i >= 0; i-- {
		token := strings.Trim(tokens[i], "-")
		if len(token) < 2 || classifyToken(token) != tokenDescriptive {
			break
		}
		run = append([]string{token}, run...)
	}
	return run
}

// BroadenSeed strips one trailing qualifier from the seed to form broader
// category terms for the expansion pass. Empty when nothing descriptive
// remains, in which case the caller falls back to the universal set.
func BroadenSeed(raw string) []string {
	tokens := strings.Fields(NormalizeSeed(raw))
	if len(tokens) < 2 {
		return nil
	}
	broadened := tokens[:len(tokens)-1]

	descriptive := false
	for _, token := range broadened {
		if len(token) >= 2 && classifyToken(token) == tokenDescriptive {
			descriptive = true
			break
		}
	}
	if !descriptive {
		return nil
	}

	terms := []string{strings.Join(broadened, " ")}
	if run := trailingDescriptiveRun(broadened); len(run) > 0 {
		terms = appendUnique(terms, run[len(run)-1])
	}
	return terms
}

// UniversalFallbackTerms returns a copy of the generic seed set.
func UniversalFallbackTerms() []string {
	return append([]string(nil), universalFallbackTerms...)
}

func appendUnique(dst []string, candidates ...string) []string {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		exists := false
		for _, existing := range dst {
			if strings.EqualFold(existing, c) {
				exists = true
				break
			}
		}
		if !exists {
			dst = append(dst, c)
		}
	}
	return dst
}
