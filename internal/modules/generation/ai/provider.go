package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"

	appcfg "github.com/rankforge/core/internal/config"
)

const (
	compatRequestTimeout = 45 * time.Second
	compatStreamTimeout  = 120 * time.Second

	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
)

// Prompt is one structured generation request: a system role, a user payload,
// and the output constraints shared by every provider adapter.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
	WantJSON  bool
}

// ProviderClient is one leg of the generation fallback chain. Implementations
// return raw provider errors; classification happens in the orchestrator.
type ProviderClient interface {
	ID() string
	Model() string
	CanStream() bool
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Stream(ctx context.Context, prompt Prompt, onToken func(string)) (string, error)
}

// buildProviderClients turns the runtime provider list into an ordered chain.
// The assigned provider comes first (with its model override applied), then
// the remaining enabled providers in config order.
func buildProviderClients(cfg appcfg.AIConfig, assignment *appcfg.AIModelAssignment) []ProviderClient {
	var assignedID, overrideModel string
	if assignment != nil {
		assignedID = strings.TrimSpace(assignment.ProviderID)
		overrideModel = strings.TrimSpace(assignment.Model)
	}

	clients := make([]ProviderClient, 0, len(cfg.Providers))
	appendClient := func(provider appcfg.AIProvider, model string) {
		if model != "" {
			provider.DefaultModel = model
		}
		clients = append(clients, newProviderClient(provider))
	}

	if assignedID != "" {
		for _, provider := range cfg.Providers {
			if provider.Enabled && strings.TrimSpace(provider.ID) == assignedID {
				appendClient(provider, overrideModel)
				break
			}
		}
	}

	for _, provider := range cfg.Providers {
		if !provider.Enabled {
			continue
		}
		if len(clients) > 0 && strings.TrimSpace(provider.ID) == assignedID {
			continue
		}
		appendClient(provider, "")
	}
	return clients
}

func newProviderClient(provider appcfg.AIProvider) ProviderClient {
	if isOpenAICompatibleProviderType(provider.Type) {
		return &compatClient{provider: provider}
	}
	return &languageModelClient{provider: provider}
}

func isOpenAICompatibleProviderType(raw string) bool {
	t := normalizeProviderType(raw)
	return t == "openai-compatible" || t == "openaicompatible"
}

func isAnthropicProviderType(raw string) bool {
	return normalizeProviderType(raw) == "anthropic"
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

// languageModelClient drives OpenAI, OpenRouter, and Anthropic providers
// through the unified language-model layer.
type languageModelClient struct {
	provider appcfg.AIProvider
}

func (c *languageModelClient) ID() string { return c.provider.ID }

func (c *languageModelClient) Model() string {
	if model := strings.TrimSpace(c.provider.DefaultModel); model != "" {
		return model
	}
	if isAnthropicProviderType(c.provider.Type) {
		return defaultAnthropicModel
	}
	return defaultOpenAIModel
}

func (c *languageModelClient) CanStream() bool {
	return !isAnthropicProviderType(c.provider.Type)
}

func (c *languageModelClient) Generate(ctx context.Context, prompt Prompt) (string, error) {
	model, _, err := buildLanguageModel(&c.provider)
	if err != nil {
		return "", err
	}
	resp, err := jetai.GenerateText(
		ctx,
		buildPromptMessages(prompt),
		jetai.WithModel(model),
		jetai.WithMaxOutputTokens(prompt.MaxTokens),
	)
	if err != nil {
		return "", err
	}
	return extractTextFromResponse(resp)
}

func (c *languageModelClient) Stream(ctx context.Context, prompt Prompt, onToken func(string)) (string, error) {
	model, streamEnabled, err := buildLanguageModel(&c.provider)
	if err != nil {
		return "", err
	}

	if !streamEnabled {
		result, err := c.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}
		if onToken != nil && result != "" {
			onToken(result)
		}
		return result, nil
	}

	streamResp, err := jetai.StreamText(
		ctx,
		buildPromptMessages(prompt),
		jetai.WithModel(model),
		jetai.WithMaxOutputTokens(prompt.MaxTokens),
	)
	if err != nil {
		return "", err
	}
	var full strings.Builder
	for event := range streamResp.Stream {
		switch evt := event.(type) {
		case *jetapi.TextDeltaEvent:
			if evt.TextDelta == "" {
				continue
			}
			full.WriteString(evt.TextDelta)
			if onToken != nil {
				onToken(evt.TextDelta)
			}
		case *jetapi.ErrorEvent:
			if evt.Err == nil {
				return "", errors.New("provider stream returned an unknown error")
			}
			return "", fmt.Errorf("%v", evt.Err)
		}
	}
	result := full.String()
	if strings.TrimSpace(result) == "" {
		return "", errors.New("empty response from provider")
	}
	return result, nil
}

func buildLanguageModel(provider *appcfg.AIProvider) (jetapi.LanguageModel, bool, error) {
	if provider == nil {
		return nil, false, errors.New("AI provider is nil")
	}

	apiKey := strings.TrimSpace(provider.APIKey)
	if apiKey == "" {
		return nil, false, errors.New("AI provider api key is empty")
	}

	modelID := strings.TrimSpace(provider.DefaultModel)
	endpoint := strings.TrimSpace(provider.Endpoint)

	if isAnthropicProviderType(provider.Type) {
		if modelID == "" {
			modelID = defaultAnthropicModel
		}

		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}

		client := anthropicclient.NewClient(opts...)
		model := jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client))
		return model, false, nil
	}

	if modelID == "" {
		modelID = defaultOpenAIModel
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}

	client := openaiclient.NewClient(opts...)
	model := jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client))
	return model, true, nil
}

func buildPromptMessages(prompt Prompt) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(prompt.System) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: prompt.System})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt.User)})
	return messages
}

func extractTextFromResponse(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errors.New("empty response from provider")
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from provider")
	}
	return text, nil
}

// compatClient speaks the chat-completions wire format directly for
// self-hosted and proxy deployments that mimic it.
type compatClient struct {
	provider appcfg.AIProvider
}

func (c *compatClient) ID() string { return c.provider.ID }

func (c *compatClient) Model() string {
	if model := strings.TrimSpace(c.provider.DefaultModel); model != "" {
		return model
	}
	return defaultOpenAIModel
}

func (c *compatClient) CanStream() bool { return true }

func (c *compatClient) requestBody(prompt Prompt, stream bool) ([]byte, error) {
	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(prompt.System) != "" {
		messages = append(messages, map[string]string{
			"role":    "system",
			"content": prompt.System,
		})
	}
	messages = append(messages, map[string]string{
		"role":    "user",
		"content": prompt.User,
	})

	payload := map[string]interface{}{
		"model":      c.Model(),
		"messages":   messages,
		"max_tokens": prompt.MaxTokens,
	}
	if prompt.WantJSON && !stream {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}
	if stream {
		payload["stream"] = true
	}
	return json.Marshal(payload)
}

func (c *compatClient) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	if strings.TrimSpace(c.provider.APIKey) == "" {
		return nil, errors.New("AI provider api key is empty")
	}
	endpoint := normalizeCompatEndpoint(c.provider.Endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.provider.APIKey))
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *compatClient) Generate(ctx context.Context, prompt Prompt) (string, error) {
	body, err := c.requestBody(prompt, false)
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, body)
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: compatRequestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", &httpStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(respBody))}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return "", fmt.Errorf("chat completions error: %s", result.Error.Message)
	}
	if strings.TrimSpace(result.Message) != "" && len(result.Choices) == 0 {
		return "", fmt.Errorf("chat completions error: %s", result.Message)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("empty response from provider")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *compatClient) Stream(ctx context.Context, prompt Prompt, onToken func(string)) (string, error) {
	body, err := c.requestBody(prompt, true)
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/event-stream")

	client := &http.Client{Timeout: compatStreamTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &httpStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(respBody))}
	}

	var full strings.Builder
	buf := make([]byte, 4096)
	remainder := ""
	done := false

	for !done {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := remainder + string(buf[:n])
			remainder = ""
			lines := splitLines(chunk)
			for i, line := range lines {
				if i == len(lines)-1 && readErr == nil {
					remainder = line
					continue
				}
				line = strings.TrimSpace(line)
				if !strings.HasPrefix(line, "data:") {
					continue
				}
				data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				if data == "" {
					continue
				}
				if data == "[DONE]" {
					done = true
					break
				}

				var event struct {
					Choices []struct {
						Delta struct {
							Content string `json:"content"`
						} `json:"delta"`
					} `json:"choices"`
				}
				if err2 := json.Unmarshal([]byte(data), &event); err2 != nil {
					continue
				}
				if len(event.Choices) == 0 || event.Choices[0].Delta.Content == "" {
					continue
				}

				token := event.Choices[0].Delta.Content
				full.WriteString(token)
				if onToken != nil {
					onToken(token)
				}
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", readErr
		}
	}

	result := full.String()
	if strings.TrimSpace(result) == "" {
		return "", errors.New("empty response from provider")
	}
	return result, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		if path == "" {
			path = "/v1"
		} else {
			path += "/v1"
		}
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

func normalizeCompatEndpoint(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "https://api.openai.com"
	}

	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		cleaned := strings.TrimRight(base, "/")
		return strings.TrimSuffix(cleaned, "/v1")
	}

	path := strings.TrimRight(parsed.Path, "/")
	path = strings.TrimSuffix(path, "/v1")
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

// unmarshalAIJSON parses a model response into out, tolerating markdown code
// fences and prose around the JSON object.
func unmarshalAIJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}

	return errors.New("invalid JSON response from provider")
}

func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
