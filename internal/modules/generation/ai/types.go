package ai

import (
	"errors"
	"strings"
)

const (
	KindPersonas = "personas"
	KindTitles   = "titles"
	KindKeywords = "keywords"
	KindBlog     = "blog"
)

const TaskTypeBlog = "generation:blog"

var (
	errGenerationDisabled = errors.New("generation is disabled")
	errProductNotFound    = errors.New("product not found")
	errRecordNotFound     = errors.New("generation record not found")
	errKeywordRequired    = errors.New("keyword is required")
)

// BlogTaskPayload is the queue payload for async blog generation.
type BlogTaskPayload struct {
	ProductID string `json:"product_id"`
	Keyword   string `json:"keyword"`
	Persona   string `json:"persona"`
}

type generateDTO struct {
	ProductIDs []string `json:"product_ids"`
	Keyword    string   `json:"keyword"`
	Count      int      `json:"count"`
}

type blogTaskDTO struct {
	ProductID string `json:"product_id"`
	Keyword   string `json:"keyword" binding:"required"`
	Persona   string `json:"persona"`
}

type personasPayload struct {
	Personas []string `json:"personas"`
}

type titlesPayload struct {
	Titles []string `json:"titles"`
}

type keywordsPayload struct {
	Keywords []string `json:"keywords"`
}

type blogPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func parsePersonas(raw string) ([]string, error) {
	var out personasPayload
	if err := unmarshalAIJSON(raw, &out); err != nil {
		return nil, err
	}
	items := cleanStringList(out.Personas)
	if len(items) == 0 {
		return nil, errors.New("personas list is empty")
	}
	return items, nil
}

func parseTitles(raw string) ([]string, error) {
	var out titlesPayload
	if err := unmarshalAIJSON(raw, &out); err != nil {
		return nil, err
	}
	items := cleanStringList(out.Titles)
	if len(items) == 0 {
		return nil, errors.New("titles list is empty")
	}
	return items, nil
}

func parseKeywords(raw string) ([]string, error) {
	var out keywordsPayload
	if err := unmarshalAIJSON(raw, &out); err != nil {
		return nil, err
	}
	items := cleanStringList(out.Keywords)
	if len(items) == 0 {
		return nil, errors.New("keywords list is empty")
	}
	return items, nil
}

func parseBlog(raw string) (*blogPayload, error) {
	var out blogPayload
	if err := unmarshalAIJSON(raw, &out); err != nil {
		return nil, err
	}
	out.Title = strings.TrimSpace(out.Title)
	out.Content = strings.TrimSpace(out.Content)
	if out.Title == "" {
		return nil, errors.New("blog title is empty")
	}
	if out.Content == "" {
		return nil, errors.New("blog content is empty")
	}
	return &out, nil
}

// cleanStringList trims entries, drops empties, and dedupes
// case-insensitively while preserving order.
func cleanStringList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		dup := false
		for _, existing := range out {
			if strings.EqualFold(existing, item) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, item)
		}
	}
	return out
}
