package render

import (
	"bytes"
	_ "embed"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

//go:embed assets/blog.css
var blogStyle string

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		extension.Linkify,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// Content converts GitHub-flavored markdown to an HTML fragment. Invalid
// input degrades to escaped plain text rather than failing the request.
func Content(markdown string) string {
	text := strings.TrimSpace(markdown)
	if text == "" {
		return ""
	}

	var out bytes.Buffer
	if err := markdownEngine.Convert([]byte(text), &out); err != nil {
		return template.HTMLEscapeString(text)
	}
	return out.String()
}

// Document wraps rendered markdown in a standalone HTML page suitable for
// preview and export.
func Document(title, markdown string) string {
	escapedTitle := template.HTMLEscapeString(strings.TrimSpace(title))
	if escapedTitle == "" {
		escapedTitle = "Untitled"
	}

	var b strings.Builder
	b.Grow(4096)
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n")
	b.WriteString("  <head>\n")
	b.WriteString("    <meta charset=\"UTF-8\" />\n")
	b.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\" />\n")
	b.WriteString("    <meta name=\"referrer\" content=\"no-referrer\" />\n")
	b.WriteString("    <style>\n")
	b.WriteString(blogStyle)
	b.WriteString("\n    </style>\n")
	b.WriteString("    <title>")
	b.WriteString(escapedTitle)
	b.WriteString("</title>\n")
	b.WriteString("  </head>\n")
	b.WriteString("  <body class=\"markdown-body\">\n")
	b.WriteString("    <article>\n")
	b.WriteString("      <h1>")
	b.WriteString(escapedTitle)
	b.WriteString("</h1>\n")
	b.WriteString(Content(markdown))
	b.WriteString("\n    </article>\n")
	b.WriteString("  </body>\n")
	b.WriteString("</html>")
	return b.String()
}
