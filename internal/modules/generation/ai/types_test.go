package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListPayloads(t *testing.T) {
	personas, err := parsePersonas(`{"personas":[" Commuters ","commuters","Parents",""]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Commuters", "Parents"}, personas, "trimmed, deduped, empties dropped")

	_, err = parsePersonas(`{"personas":[]}`)
	assert.EqualError(t, err, "personas list is empty")

	titles, err := parseTitles("```json\n{\"titles\":[\"How to Pick Headphones\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"How to Pick Headphones"}, titles)

	keywords, err := parseKeywords(`{"keywords":["buying guide","best products"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"buying guide", "best products"}, keywords)

	_, err = parseKeywords("no structure here")
	assert.EqualError(t, err, "invalid JSON response from provider")
}

func TestParseBlog(t *testing.T) {
	post, err := parseBlog(`{"title":" Choosing a Water Softener ","content":"## Why It Matters\n\nBody."}`)
	require.NoError(t, err)
	assert.Equal(t, "Choosing a Water Softener", post.Title)
	assert.Equal(t, "## Why It Matters\n\nBody.", post.Content)

	_, err = parseBlog(`{"title":"T","content":"   "}`)
	assert.EqualError(t, err, "blog content is empty")

	_, err = parseBlog(`{"content":"body"}`)
	assert.EqualError(t, err, "blog title is empty")
}

func TestCleanStringList(t *testing.T) {
	out := cleanStringList([]string{"  a  ", "", "A", "b", "B ", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, out)

	assert.Empty(t, cleanStringList(nil))
	assert.Empty(t, cleanStringList([]string{"", "   "}))
}
