package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcfg "github.com/rankforge/core/internal/config"
)

func testAIConfig() appcfg.AIConfig {
	return appcfg.AIConfig{Providers: []appcfg.AIProvider{
		{ID: "openai", Type: "OpenAI", APIKey: "k1", Enabled: true},
		{ID: "claude", Type: "Anthropic", APIKey: "k2", Enabled: true},
		{ID: "local", Type: "OpenAI-Compatible", APIKey: "k3", Endpoint: "http://localhost:8080", DefaultModel: "llama-3.1-70b", Enabled: true},
		{ID: "off", Type: "OpenAI", APIKey: "k4", Enabled: false},
	}}
}

func TestBuildProviderClients_ConfigOrder(t *testing.T) {
	clients := buildProviderClients(testAIConfig(), nil)
	require.Len(t, clients, 3, "disabled providers are skipped")

	assert.Equal(t, "openai", clients[0].ID())
	assert.Equal(t, "claude", clients[1].ID())
	assert.Equal(t, "local", clients[2].ID())

	assert.Equal(t, defaultOpenAIModel, clients[0].Model())
	assert.Equal(t, defaultAnthropicModel, clients[1].Model())
	assert.Equal(t, "llama-3.1-70b", clients[2].Model())

	assert.True(t, clients[0].CanStream())
	assert.False(t, clients[1].CanStream(), "anthropic goes through the non-streaming path")
	assert.True(t, clients[2].CanStream())

	_, isLM := clients[0].(*languageModelClient)
	assert.True(t, isLM)
	_, isCompat := clients[2].(*compatClient)
	assert.True(t, isCompat, "compatible endpoints use the raw wire client")
}

func TestBuildProviderClients_AssignmentLeadsChain(t *testing.T) {
	clients := buildProviderClients(testAIConfig(), &appcfg.AIModelAssignment{
		ProviderID: "local",
		Model:      "qwen-2.5-72b",
	})
	require.Len(t, clients, 3)

	assert.Equal(t, "local", clients[0].ID())
	assert.Equal(t, "qwen-2.5-72b", clients[0].Model(), "assignment overrides the provider default model")
	assert.Equal(t, "openai", clients[1].ID())
	assert.Equal(t, "claude", clients[2].ID())
}

func TestBuildProviderClients_DisabledAssignmentIgnored(t *testing.T) {
	clients := buildProviderClients(testAIConfig(), &appcfg.AIModelAssignment{ProviderID: "off"})
	require.Len(t, clients, 3)
	assert.Equal(t, "openai", clients[0].ID())
}

func TestCompatClient_Generate(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": `{"personas":["Commuters"]}`}},
			},
		})
	}))
	defer server.Close()

	client := &compatClient{provider: appcfg.AIProvider{
		ID: "local", Type: "OpenAI-Compatible", APIKey: "test-key",
		Endpoint: server.URL, DefaultModel: "llama-3.1-70b",
	}}

	raw, err := client.Generate(context.Background(), Prompt{
		System: "sys", User: "user", MaxTokens: 512, WantJSON: true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"personas":["Commuters"]}`, raw)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "llama-3.1-70b", gotBody["model"])
	assert.EqualValues(t, 512, gotBody["max_tokens"])

	format, ok := gotBody["response_format"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
	_, hasStream := gotBody["stream"]
	assert.False(t, hasStream)

	messages, ok := gotBody["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "sys", first["content"])
}

func TestCompatClient_GenerateHTTPErrorCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer server.Close()

	client := &compatClient{provider: appcfg.AIProvider{
		ID: "local", APIKey: "bad-key", Endpoint: server.URL,
	}}

	_, err := client.Generate(context.Background(), Prompt{User: "u", MaxTokens: 64})
	var statusErr *httpStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 401, statusErr.status)

	classified := classifyProviderError("local", err)
	var authErr *AuthError
	require.ErrorAs(t, classified, &authErr)
	assert.Equal(t, 401, authErr.StatusCode)
	assert.True(t, isFatalProviderError(classified))
}

func TestCompatClient_GenerateErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"message":"model overloaded"}}`)
	}))
	defer server.Close()

	client := &compatClient{provider: appcfg.AIProvider{ID: "local", APIKey: "k", Endpoint: server.URL}}

	_, err := client.Generate(context.Background(), Prompt{User: "u", MaxTokens: 64})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestCompatClient_GenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	client := &compatClient{provider: appcfg.AIProvider{ID: "local", APIKey: "k", Endpoint: server.URL}}

	_, err := client.Generate(context.Background(), Prompt{User: "u", MaxTokens: 64})
	assert.EqualError(t, err, "empty response from provider")
}

func TestCompatClient_MissingAPIKey(t *testing.T) {
	client := &compatClient{provider: appcfg.AIProvider{ID: "local", Endpoint: "http://localhost:9"}}

	_, err := client.Generate(context.Background(), Prompt{User: "u", MaxTokens: 64})
	assert.EqualError(t, err, "AI provider api key is empty")
}

func TestCompatClient_Stream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		_, hasFormat := body["response_format"]
		assert.False(t, hasFormat, "response_format is not sent on the stream path")

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, delta := range []string{"## Hello", " world", "."} {
			chunk, _ := json.Marshal(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"delta": map[string]string{"content": delta}},
				},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	client := &compatClient{provider: appcfg.AIProvider{
		ID: "local", APIKey: "k", Endpoint: server.URL,
	}}

	var tokens []string
	full, err := client.Stream(context.Background(), Prompt{User: "u", MaxTokens: 256, WantJSON: true}, func(tok string) {
		tokens = append(tokens, tok)
	})
	require.NoError(t, err)

	assert.Equal(t, "## Hello world.", full)
	assert.Equal(t, []string{"## Hello", " world", "."}, tokens)
}

func TestCompatClient_StreamHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer server.Close()

	client := &compatClient{provider: appcfg.AIProvider{ID: "local", APIKey: "k", Endpoint: server.URL}}

	_, err := client.Stream(context.Background(), Prompt{User: "u", MaxTokens: 64}, nil)
	var statusErr *httpStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 429, statusErr.status)
}

func TestNormalizeOpenAIBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                               "",
		"https://api.deepseek.com":       "https://api.deepseek.com/v1",
		"https://api.deepseek.com/":      "https://api.deepseek.com/v1",
		"https://openrouter.ai/api/v1":   "https://openrouter.ai/api/v1",
		"https://openrouter.ai/api/v1/":  "https://openrouter.ai/api/v1",
		"https://gateway.example.com/ai": "https://gateway.example.com/ai/v1",
	}
	for input, want := range cases {
		assert.Equal(t, want, normalizeOpenAIBaseURL(input), "input %q", input)
	}
}

func TestNormalizeCompatEndpoint(t *testing.T) {
	cases := map[string]string{
		"":                                    "https://api.openai.com",
		"http://localhost:8080":               "http://localhost:8080",
		"http://localhost:8080/":              "http://localhost:8080",
		"http://localhost:8080/v1":            "http://localhost:8080",
		"https://proxy.example.com/openai/v1": "https://proxy.example.com/openai",
	}
	for input, want := range cases {
		assert.Equal(t, want, normalizeCompatEndpoint(input), "input %q", input)
	}
}

func TestUnmarshalAIJSON(t *testing.T) {
	type payload struct {
		Personas []string `json:"personas"`
	}

	t.Run("plain object", func(t *testing.T) {
		var out payload
		require.NoError(t, unmarshalAIJSON(`{"personas":["a"]}`, &out))
		assert.Equal(t, []string{"a"}, out.Personas)
	})

	t.Run("json code fence", func(t *testing.T) {
		var out payload
		require.NoError(t, unmarshalAIJSON("```json\n{\"personas\":[\"a\"]}\n```", &out))
		assert.Equal(t, []string{"a"}, out.Personas)
	})

	t.Run("bare code fence", func(t *testing.T) {
		var out payload
		require.NoError(t, unmarshalAIJSON("```\n{\"personas\":[\"a\"]}\n```", &out))
		assert.Equal(t, []string{"a"}, out.Personas)
	})

	t.Run("prose around the object", func(t *testing.T) {
		var out payload
		raw := `Sure! Here is the JSON: {"personas":["a"]} Hope that helps.`
		require.NoError(t, unmarshalAIJSON(raw, &out))
		assert.Equal(t, []string{"a"}, out.Personas)
	})

	t.Run("no JSON at all", func(t *testing.T) {
		var out payload
		err := unmarshalAIJSON("I could not produce the requested output.", &out)
		assert.EqualError(t, err, "invalid JSON response from provider")
	})
}
