package keyword

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rankforge/core/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrProviderUnavailable marks a failed metrics-provider round trip. Callers
// must treat it as distinct from an empty-but-successful lookup.
var ErrProviderUnavailable = errors.New("keyword metrics provider unavailable")

const (
	defaultAPITimeout        = 45 * time.Second
	defaultLanguageCode      = "en"
	defaultLocationCode      = 2840 // United States
	defaultSuggestionBase    = 1000
	suggestionVolumeFloor    = 10
	suggestionDecayPerSlot   = 0.8
	maxKeywordsPerVolumeCall = 50

	volumeLivePath      = "/keywords_data/search_volume/live"
	suggestionsLivePath = "/keywords_data/keyword_suggestions/live"

	taskStatusOK = 20000
)

// VolumeMetrics is one measured row from the volume endpoint.
type VolumeMetrics struct {
	Keyword      string
	SearchVolume int
	Competition  float64
	CPC          float64
}

// SuggestionItem is one flattened row from the suggestion endpoint. Volume is
// estimated from list position when the provider omits it.
type SuggestionItem struct {
	Keyword         string
	SearchVolume    int
	Competition     float64
	CPC             float64
	VolumeEstimated bool
}

// VolumeClient talks to the DataForSEO-style keyword metrics API. Lookups are
// single round trips; retry policy belongs to the caller.
type VolumeClient struct {
	httpClient     *http.Client
	endpoint       string
	login          string
	password       string
	languageCode   string
	locationCode   int
	suggestionBase int
	limiter        *rate.Limiter
	logger         *zap.Logger
}

// NewVolumeClient validates credentials and returns a configured client.
func NewVolumeClient(opts config.DiscoveryOptions, logger *zap.Logger) (*VolumeClient, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("discovery endpoint is not configured")
	}
	if opts.Login == "" || opts.Password == "" {
		return nil, fmt.Errorf("discovery API credentials are not configured")
	}

	timeout := defaultAPITimeout
	if opts.APITimeoutMS > 0 {
		timeout = time.Duration(opts.APITimeoutMS) * time.Millisecond
	}
	languageCode := opts.LanguageCode
	if languageCode == "" {
		languageCode = defaultLanguageCode
	}
	locationCode := opts.LocationCode
	if locationCode == 0 {
		locationCode = defaultLocationCode
	}
	suggestionBase := opts.SuggestionVolumeBase
	if suggestionBase <= 0 {
		suggestionBase = defaultSuggestionBase
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &VolumeClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   opts.Endpoint,
		login:      opts.Login,
		password:   opts.Password,
		// provider allows 2000 calls/min; stay far below with room for bursts
		limiter:        rate.NewLimiter(rate.Limit(5), 5),
		languageCode:   languageCode,
		locationCode:   locationCode,
		suggestionBase: suggestionBase,
		logger:         logger,
	}, nil
}

type volumeTaskPayload struct {
	Keywords     []string `json:"keywords"`
	LanguageCode string   `json:"language_code"`
	LocationCode int      `json:"location_code"`
}

type suggestionTaskPayload struct {
	Keyword            string `json:"keyword"`
	LanguageCode       string `json:"language_code"`
	LocationCode       int    `json:"location_code"`
	Limit              int    `json:"limit"`
	IncludeSeedKeyword bool   `json:"include_seed_keyword"`
}

type apiEnvelope struct {
	StatusCode    int           `json:"status_code"`
	StatusMessage string        `json:"status_message"`
	Tasks         []baseAPITask `json:"tasks"`
	TasksError    int           `json:"tasks_error"`
}

type baseAPITask struct {
	StatusCode    int             `json:"status_code"`
	StatusMessage string          `json:"status_message"`
	Result        json.RawMessage `json:"result"`
}

type monthlySearch struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Volume int `json:"search_volume"`
}

type volumeResultRow struct {
	Keyword         string          `json:"keyword"`
	SearchVolume    *int            `json:"search_volume"`
	Competition     *float64        `json:"competition"`
	CPC             *float64        `json:"cpc"`
	MonthlySearches []monthlySearch `json:"monthly_searches"`
}

type suggestionResultGroup struct {
	SeedKeyword string              `json:"seed_keyword"`
	Items       []suggestionRawItem `json:"items"`
}

type suggestionRawItem struct {
	Keyword      string   `json:"keyword"`
	SearchVolume *int     `json:"search_volume"`
	Competition  *float64 `json:"competition"`
	CPC          *float64 `json:"cpc"`
}

// SearchVolume runs one batched volume lookup. Keywords beyond the per-call
// cap are dropped; the engine enforces its own cap before calling.
func (c *VolumeClient) SearchVolume(ctx context.Context, keywords []string) ([]VolumeMetrics, error) {
	if len(keywords) == 0 {
		return []VolumeMetrics{}, nil
	}
	if len(keywords) > maxKeywordsPerVolumeCall {
		keywords = keywords[:maxKeywordsPerVolumeCall]
	}

	payload := []volumeTaskPayload{{
		Keywords:     keywords,
		LanguageCode: c.languageCode,
		LocationCode: c.locationCode,
	}}

	result, err := c.post(ctx, volumeLivePath, payload)
	if err != nil {
		return nil, err
	}

	var rows []volumeResultRow
	if len(result) > 0 {
		if err := json.Unmarshal(result, &rows); err != nil {
			return nil, fmt.Errorf("%w: malformed volume result: %v", ErrProviderUnavailable, err)
		}
	}

	metrics := make([]VolumeMetrics, 0, len(rows))
	for _, row := range rows {
		if row.Keyword == "" {
			continue
		}
		m := VolumeMetrics{Keyword: row.Keyword}
		if row.SearchVolume != nil {
			m.SearchVolume = *row.SearchVolume
		}
		if row.Competition != nil {
			m.Competition = *row.Competition
		}
		if row.CPC != nil {
			m.CPC = *row.CPC
		}
		metrics = append(metrics, m)
	}

	c.logger.Debug("volume lookup finished",
		zap.Int("requested", len(keywords)),
		zap.Int("returned", len(metrics)))
	return metrics, nil
}

// Suggestions fetches related keywords for one seed, flattening the provider's
// nested result groups. Missing volumes get position-decay estimates.
func (c *VolumeClient) Suggestions(ctx context.Context, seed string, limit int) ([]SuggestionItem, error) {
	if limit <= 0 || limit > maxKeywordsPerVolumeCall {
		limit = maxKeywordsPerVolumeCall
	}

	payload := []suggestionTaskPayload{{
		Keyword:            seed,
		LanguageCode:       c.languageCode,
		LocationCode:       c.locationCode,
		Limit:              limit,
		IncludeSeedKeyword: false,
	}}

	result, err := c.post(ctx, suggestionsLivePath, payload)
	if err != nil {
		return nil, err
	}

	var groups []suggestionResultGroup
	if len(result) > 0 {
		if err := json.Unmarshal(result, &groups); err != nil {
			return nil, fmt.Errorf("%w: malformed suggestion result: %v", ErrProviderUnavailable, err)
		}
	}

	var items []SuggestionItem
	position := 0
	for _, group := range groups {
		for _, raw := range group.Items {
			if raw.Keyword == "" {
				continue
			}
			item := SuggestionItem{Keyword: raw.Keyword}
			if raw.SearchVolume != nil {
				item.SearchVolume = *raw.SearchVolume
			} else {
				item.SearchVolume = estimateSuggestionVolume(c.suggestionBase, position)
				item.VolumeEstimated = true
			}
			if raw.Competition != nil {
				item.Competition = *raw.Competition
			}
			if raw.CPC != nil {
				item.CPC = *raw.CPC
			}
			items = append(items, item)
			position++
			if len(items) >= limit {
				break
			}
		}
		if len(items) >= limit {
			break
		}
	}

	c.logger.Debug("suggestion lookup finished",
		zap.String("seed", seed),
		zap.Int("returned", len(items)))
	return items, nil
}

// post performs one authenticated round trip and unwraps the task envelope.
func (c *VolumeClient) post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.login, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("metrics provider returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", ErrProviderUnavailable, err)
	}
	if len(envelope.Tasks) == 0 {
		return nil, fmt.Errorf("%w: empty task envelope", ErrProviderUnavailable)
	}
	task := envelope.Tasks[0]
	if task.StatusCode != 0 && task.StatusCode != taskStatusOK {
		return nil, fmt.Errorf("%w: task status %d %s", ErrProviderUnavailable, task.StatusCode, task.StatusMessage)
	}
	return task.Result, nil
}

// estimateSuggestionVolume decays the configured base volume by list position.
func estimateSuggestionVolume(base, position int) int {
	estimate := int(math.Round(float64(base) * math.Pow(suggestionDecayPerSlot, float64(position))))
	if estimate < suggestionVolumeFloor {
		return suggestionVolumeFloor
	}
	return estimate
}
