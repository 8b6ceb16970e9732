package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentRendersGFM(t *testing.T) {
	html := Content("## Heading\n\nSome **bold** text and ~~gone~~.\n\n- [ ] task item")

	assert.Contains(t, html, "<h2>Heading</h2>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, "<del>gone</del>")
	assert.Contains(t, html, "checkbox", "task list extension is active")
}

func TestContentLinkifiesBareURLs(t *testing.T) {
	html := Content("see https://example.com for details")
	assert.Contains(t, html, `<a href="https://example.com"`)
}

func TestContentEmptyInput(t *testing.T) {
	assert.Equal(t, "", Content(""))
	assert.Equal(t, "", Content("   \n\t"))
}

func TestDocumentWrapsRenderedMarkdown(t *testing.T) {
	doc := Document("Water Softener Guide", "Intro paragraph.")

	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"), "standalone page starts with a doctype")
	assert.Contains(t, doc, "<title>Water Softener Guide</title>")
	assert.Contains(t, doc, "<h1>Water Softener Guide</h1>")
	assert.Contains(t, doc, "<p>Intro paragraph.</p>")
	assert.Contains(t, doc, "<style>", "inline stylesheet is embedded")
	assert.Contains(t, doc, `class="markdown-body"`)
}

func TestDocumentEscapesTitle(t *testing.T) {
	doc := Document(`<script>alert("x")</script>`, "body")
	assert.NotContains(t, doc, "<script>")
	assert.Contains(t, doc, "&lt;script&gt;")
}

func TestDocumentUntitledFallback(t *testing.T) {
	doc := Document("   ", "body")
	assert.Contains(t, doc, "<title>Untitled</title>")
}
