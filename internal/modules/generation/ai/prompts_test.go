package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptBuilders(t *testing.T) {
	analysis := `{"categories":["audio"],"price_tier":"premium"}`

	personas := buildPersonasPrompt(analysis, 5, 2048)
	assert.True(t, personas.WantJSON)
	assert.Equal(t, 2048, personas.MaxTokens)
	assert.Contains(t, personas.System, "DO NOT return more than 5 personas")
	assert.Contains(t, personas.User, analysis)
	assert.Contains(t, personas.User, "<<<ANALYSIS")

	titles := buildTitlesPrompt(analysis, "best headphones", 10, 2048)
	assert.Contains(t, titles.System, "DO NOT return more than 10 titles")
	assert.Contains(t, titles.User, "TARGET_KEYWORD: best headphones")

	keywords := buildKeywordsPrompt(analysis, "water softener", 15, 2048)
	assert.Contains(t, keywords.System, "DO NOT return more than 15 keywords")
	assert.Contains(t, keywords.User, "SEED_KEYWORD: water softener")

	blog := buildBlogPrompt(analysis, "best headphones", "Commuters who need immersive sound", 8192)
	assert.Contains(t, blog.System, "800 to 1200 words")
	assert.Contains(t, blog.User, "TARGET_KEYWORD: best headphones")
	assert.Contains(t, blog.User, "AUDIENCE_PERSONA: Commuters who need immersive sound")
	assert.True(t, blog.WantJSON)
}

func TestPromptBuildersTruncateOversizedAnalysis(t *testing.T) {
	huge := strings.Repeat("x", analysisPromptBudget+500)
	p := buildPersonasPrompt(huge, 5, 2048)

	assert.NotContains(t, p.User, huge)
	assert.Contains(t, p.User, strings.Repeat("x", analysisPromptBudget)+"...")
}

func TestClampCount(t *testing.T) {
	assert.Equal(t, 5, clampCount(0, 5, 10))
	assert.Equal(t, 5, clampCount(-3, 5, 10))
	assert.Equal(t, 7, clampCount(7, 5, 10))
	assert.Equal(t, 10, clampCount(99, 5, 10))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 10))
	assert.Equal(t, "exact", truncateText("exact", 5))
	assert.Equal(t, "héllo...", truncateText("héllo wörld", 5))
}
