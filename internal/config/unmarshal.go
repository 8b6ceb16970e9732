package config

import (
	"encoding/json"
	"strings"
)

func (o *DiscoveryOptions) UnmarshalJSON(data []byte) error {
	next := *o
	var raw struct {
		Endpoint              *string `json:"endpoint"`
		Login                 *string `json:"login"`
		Password              *string `json:"password"`
		LanguageCode          *string `json:"language_code"`
		LocationCode          *int    `json:"location_code"`
		MinSearchVolume       *int    `json:"min_search_volume"`
		MinVolume             *int    `json:"min_volume"`
		MaxKeywordsPerRequest *int    `json:"max_keywords_per_request"`
		MaxKeywords           *int    `json:"max_keywords"`
		ExpansionTriggerCount *int    `json:"expansion_trigger_count"`
		APITimeoutMS          *int    `json:"api_timeout_ms"`
		TimeoutMS             *int    `json:"timeout_ms"`
		SuggestionLimit       *int    `json:"suggestion_limit"`
		SuggestionVolumeBase  *int    `json:"suggestion_volume_base"`
		VolumeBase            *int    `json:"volume_base"`
		MaxKeywordLength      *int    `json:"max_keyword_length"`
		DifficultyScript      *string `json:"difficulty_script"`
		StaleSetRetentionDays *int    `json:"stale_set_retention_days"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Endpoint != nil {
		next.Endpoint = strings.TrimRight(strings.TrimSpace(*raw.Endpoint), "/")
	}
	if raw.Login != nil {
		next.Login = strings.TrimSpace(*raw.Login)
	}
	if raw.Password != nil {
		next.Password = *raw.Password
	}
	if raw.LanguageCode != nil {
		next.LanguageCode = strings.TrimSpace(*raw.LanguageCode)
	}
	if raw.LocationCode != nil {
		next.LocationCode = *raw.LocationCode
	}
	if raw.MinSearchVolume != nil {
		next.MinSearchVolume = *raw.MinSearchVolume
	} else if raw.MinVolume != nil {
		next.MinSearchVolume = *raw.MinVolume
	}
	if raw.MaxKeywordsPerRequest != nil {
		next.MaxKeywordsPerRequest = *raw.MaxKeywordsPerRequest
	} else if raw.MaxKeywords != nil {
		next.MaxKeywordsPerRequest = *raw.MaxKeywords
	}
	if raw.ExpansionTriggerCount != nil {
		next.ExpansionTriggerCount = *raw.ExpansionTriggerCount
	}
	if raw.APITimeoutMS != nil {
		next.APITimeoutMS = *raw.APITimeoutMS
	} else if raw.TimeoutMS != nil {
		next.APITimeoutMS = *raw.TimeoutMS
	}
	if raw.SuggestionLimit != nil {
		next.SuggestionLimit = *raw.SuggestionLimit
	}
	if raw.SuggestionVolumeBase != nil {
		next.SuggestionVolumeBase = *raw.SuggestionVolumeBase
	} else if raw.VolumeBase != nil {
		next.SuggestionVolumeBase = *raw.VolumeBase
	}
	if raw.MaxKeywordLength != nil {
		next.MaxKeywordLength = *raw.MaxKeywordLength
	}
	if raw.DifficultyScript != nil {
		next.DifficultyScript = *raw.DifficultyScript
	}
	if raw.StaleSetRetentionDays != nil {
		next.StaleSetRetentionDays = *raw.StaleSetRetentionDays
	}

	*o = next
	return nil
}

func (o *GenerationOptions) UnmarshalJSON(data []byte) error {
	next := *o
	var raw struct {
		MaxRetries              *int  `json:"max_retries"`
		RetryCount              *int  `json:"retry_count"`
		BaseDelayMS             *int  `json:"base_delay_ms"`
		BaseDelay               *int  `json:"base_delay"`
		MaxOutputTokens         *int  `json:"max_output_tokens"`
		EnableHeuristicFallback *bool `json:"enable_heuristic_fallback"`
		HeuristicFallback       *bool `json:"heuristic_fallback"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.MaxRetries != nil {
		next.MaxRetries = *raw.MaxRetries
	} else if raw.RetryCount != nil {
		next.MaxRetries = *raw.RetryCount
	}
	if raw.BaseDelayMS != nil {
		next.BaseDelayMS = *raw.BaseDelayMS
	} else if raw.BaseDelay != nil {
		next.BaseDelayMS = *raw.BaseDelay
	}
	if raw.MaxOutputTokens != nil {
		next.MaxOutputTokens = *raw.MaxOutputTokens
	}
	if raw.EnableHeuristicFallback != nil {
		next.EnableHeuristicFallback = *raw.EnableHeuristicFallback
	} else if raw.HeuristicFallback != nil {
		next.EnableHeuristicFallback = *raw.HeuristicFallback
	}

	*o = next
	return nil
}

func (o *FeatureList) UnmarshalJSON(data []byte) error {
	next := *o
	var raw struct {
		EnableDiscovery  *bool `json:"enable_discovery"`
		Discovery        *bool `json:"discovery"`
		EnableGeneration *bool `json:"enable_generation"`
		Generation       *bool `json:"generation"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.EnableDiscovery != nil {
		next.EnableDiscovery = *raw.EnableDiscovery
	} else if raw.Discovery != nil {
		next.EnableDiscovery = *raw.Discovery
	}
	if raw.EnableGeneration != nil {
		next.EnableGeneration = *raw.EnableGeneration
	} else if raw.Generation != nil {
		next.EnableGeneration = *raw.Generation
	}

	*o = next
	return nil
}

func (a *AIModelAssignment) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProviderID      string `json:"provider_id"`
		ProviderIDCamel string `json:"providerId"`
		Model           string `json:"model"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.ProviderID = strings.TrimSpace(raw.ProviderID)
	if a.ProviderID == "" {
		a.ProviderID = strings.TrimSpace(raw.ProviderIDCamel)
	}
	a.Model = strings.TrimSpace(raw.Model)
	return nil
}

func (a *AIConfig) UnmarshalJSON(data []byte) error {
	next := *a
	var raw struct {
		Providers    []AIProvider    `json:"providers"`
		PersonaModel json.RawMessage `json:"persona_model"`
		TitleModel   json.RawMessage `json:"title_model"`
		KeywordModel json.RawMessage `json:"keyword_model"`
		BlogModel    json.RawMessage `json:"blog_model"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Providers != nil {
		next.Providers = raw.Providers
	}

	var err error
	if len(raw.PersonaModel) > 0 {
		next.PersonaModel, err = parseAIModelAssignment(raw.PersonaModel, next.PersonaModel)
		if err != nil {
			return err
		}
	}
	if len(raw.TitleModel) > 0 {
		next.TitleModel, err = parseAIModelAssignment(raw.TitleModel, next.TitleModel)
		if err != nil {
			return err
		}
	}
	if len(raw.KeywordModel) > 0 {
		next.KeywordModel, err = parseAIModelAssignment(raw.KeywordModel, next.KeywordModel)
		if err != nil {
			return err
		}
	}
	if len(raw.BlogModel) > 0 {
		next.BlogModel, err = parseAIModelAssignment(raw.BlogModel, next.BlogModel)
		if err != nil {
			return err
		}
	}

	*a = next
	return nil
}

// parseAIModelAssignment accepts either an assignment object or a legacy plain
// model string.
func parseAIModelAssignment(raw json.RawMessage, fallback *AIModelAssignment) (*AIModelAssignment, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return fallback, nil
	}
	if trimmed == "null" {
		return nil, nil
	}

	var legacyModel string
	if err := json.Unmarshal(raw, &legacyModel); err == nil {
		legacyModel = strings.TrimSpace(legacyModel)
		if legacyModel == "" {
			return nil, nil
		}
		next := &AIModelAssignment{}
		if fallback != nil {
			*next = *fallback
		}
		next.Model = legacyModel
		return next, nil
	}

	next := &AIModelAssignment{}
	if fallback != nil {
		*next = *fallback
	}
	if err := json.Unmarshal(raw, next); err != nil {
		return nil, err
	}
	if strings.TrimSpace(next.ProviderID) == "" && strings.TrimSpace(next.Model) == "" {
		return nil, nil
	}
	return next, nil
}
