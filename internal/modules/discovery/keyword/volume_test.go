package keyword

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rankforge/core/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDiscoveryOptions(endpoint string) config.DiscoveryOptions {
	return config.DiscoveryOptions{
		Endpoint:     endpoint,
		Login:        "api-login",
		Password:     "api-secret",
		LanguageCode: "en",
		LocationCode: 2840,
	}
}

func TestNewVolumeClientValidation(t *testing.T) {
	_, err := NewVolumeClient(config.DiscoveryOptions{}, nil)
	assert.Error(t, err)

	_, err = NewVolumeClient(config.DiscoveryOptions{Endpoint: "https://api.example.com"}, nil)
	assert.Error(t, err)

	client, err := NewVolumeClient(testDiscoveryOptions("https://api.example.com"), nil)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestSearchVolume_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/keywords_data/search_volume/live", r.URL.Path)
		login, password, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "api-login", login)
		assert.Equal(t, "api-secret", password)

		var payload []volumeTaskPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload, 1)
		assert.Equal(t, []string{"water softener", "softener"}, payload[0].Keywords)
		assert.Equal(t, "en", payload[0].LanguageCode)
		assert.Equal(t, 2840, payload[0].LocationCode)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status_code": 20000,
			"tasks": [{
				"status_code": 20000,
				"status_message": "Ok.",
				"result": [
					{"keyword": "water softener", "search_volume": 12100, "competition": 0.42, "cpc": 2.05,
					 "monthly_searches": [{"year": 2026, "month": 7, "search_volume": 11000}]},
					{"keyword": "softener", "search_volume": 5400, "competition": 0.18, "cpc": 1.1}
				]
			}]
		}`))
	}))
	defer server.Close()

	client, err := NewVolumeClient(testDiscoveryOptions(server.URL), nil)
	require.NoError(t, err)

	metrics, err := client.SearchVolume(context.Background(), []string{"water softener", "softener"})
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "water softener", metrics[0].Keyword)
	assert.Equal(t, 12100, metrics[0].SearchVolume)
	assert.InDelta(t, 0.42, metrics[0].Competition, 0.001)
	assert.InDelta(t, 2.05, metrics[0].CPC, 0.001)
}

func TestSearchVolume_EmptyKeywords(t *testing.T) {
	client, err := NewVolumeClient(testDiscoveryOptions("https://api.example.com"), nil)
	require.NoError(t, err)

	metrics, err := client.SearchVolume(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func TestSearchVolume_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewVolumeClient(testDiscoveryOptions(server.URL), nil)
	require.NoError(t, err)

	_, err = client.SearchVolume(context.Background(), []string{"water softener"})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSearchVolume_AuthRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewVolumeClient(testDiscoveryOptions(server.URL), nil)
	require.NoError(t, err)

	_, err = client.SearchVolume(context.Background(), []string{"water softener"})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSearchVolume_TaskError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status_code": 20000, "tasks": [{"status_code": 40501, "status_message": "Invalid Field."}]}`))
	}))
	defer server.Close()

	client, err := NewVolumeClient(testDiscoveryOptions(server.URL), nil)
	require.NoError(t, err)

	_, err = client.SearchVolume(context.Background(), []string{"water softener"})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSearchVolume_MalformedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client, err := NewVolumeClient(testDiscoveryOptions(server.URL), nil)
	require.NoError(t, err)

	_, err = client.SearchVolume(context.Background(), []string{"water softener"})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSearchVolume_EmptyResultIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status_code": 20000, "tasks": [{"status_code": 20000, "result": []}]}`))
	}))
	defer server.Close()

	client, err := NewVolumeClient(testDiscoveryOptions(server.URL), nil)
	require.NoError(t, err)

	metrics, err := client.SearchVolume(context.Background(), []string{"obscure keyword"})
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func TestSuggestions_FlattenAndEstimate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/keywords_data/keyword_suggestions/live", r.URL.Path)

		var payload []suggestionTaskPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload, 1)
		assert.Equal(t, "product reviews", payload[0].Keyword)
		assert.Equal(t, 10, payload[0].Limit)
		assert.False(t, payload[0].IncludeSeedKeyword)

		// nested result groups; second item omits search_volume
		w.Write([]byte(`{
			"status_code": 20000,
			"tasks": [{
				"status_code": 20000,
				"result": [
					{"seed_keyword": "product reviews", "items": [
						{"keyword": "best product reviews", "search_volume": 1300, "competition": 0.3, "cpc": 0.8},
						{"keyword": "honest product reviews"}
					]},
					{"seed_keyword": "product reviews", "items": [
						{"keyword": "product reviews 2026", "search_volume": 590}
					]}
				]
			}]
		}`))
	}))
	defer server.Close()

	opts := testDiscoveryOptions(server.URL)
	opts.SuggestionVolumeBase = 1000
	client, err := NewVolumeClient(opts, nil)
	require.NoError(t, err)

	items, err := client.Suggestions(context.Background(), "product reviews", 10)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "best product reviews", items[0].Keyword)
	assert.Equal(t, 1300, items[0].SearchVolume)
	assert.False(t, items[0].VolumeEstimated)

	// position 1 estimate: 1000 * 0.8
	assert.Equal(t, "honest product reviews", items[1].Keyword)
	assert.Equal(t, 800, items[1].SearchVolume)
	assert.True(t, items[1].VolumeEstimated)

	assert.Equal(t, "product reviews 2026", items[2].Keyword)
	assert.Equal(t, 590, items[2].SearchVolume)
	assert.False(t, items[2].VolumeEstimated)
}

func TestSuggestions_LimitTruncation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status_code": 20000,
			"tasks": [{
				"status_code": 20000,
				"result": [{"items": [
					{"keyword": "one", "search_volume": 100},
					{"keyword": "two", "search_volume": 90},
					{"keyword": "three", "search_volume": 80}
				]}]
			}]
		}`))
	}))
	defer server.Close()

	client, err := NewVolumeClient(testDiscoveryOptions(server.URL), nil)
	require.NoError(t, err)

	items, err := client.Suggestions(context.Background(), "seed", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestEstimateSuggestionVolume(t *testing.T) {
	assert.Equal(t, 1000, estimateSuggestionVolume(1000, 0))
	assert.Equal(t, 800, estimateSuggestionVolume(1000, 1))
	assert.Equal(t, 640, estimateSuggestionVolume(1000, 2))
	assert.Equal(t, 10, estimateSuggestionVolume(1000, 40), "floor applies far down the list")

	// decay is monotonically non-increasing
	prev := estimateSuggestionVolume(1000, 0)
	for position := 1; position < 30; position++ {
		current := estimateSuggestionVolume(1000, position)
		assert.LessOrEqual(t, current, prev)
		prev = current
	}
}
