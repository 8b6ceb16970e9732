package configs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/rankforge/core/internal/config"
)

func deepMergeJSON(oldVal, newVal interface{}) interface{} {
	oldMap, oldIsMap := oldVal.(map[string]interface{})
	newMap, newIsMap := newVal.(map[string]interface{})
	if oldIsMap && newIsMap {
		out := make(map[string]interface{}, len(oldMap))
		for k, v := range oldMap {
			out[k] = v
		}
		for k, v := range newMap {
			if existing, ok := out[k]; ok {
				out[k] = deepMergeJSON(existing, v)
				continue
			}
			out[k] = v
		}
		return out
	}

	// Arrays should be replaced as a whole.
	if _, ok := newVal.([]interface{}); ok {
		return newVal
	}

	return newVal
}

// shouldDisableHeuristicFallback reports whether the patch turns the heuristic
// fallback off. Disabling it while no AI provider is enabled would leave the
// generation pipeline with no working path, which Patch refuses.
func shouldDisableHeuristicFallback(partial map[string]json.RawMessage) bool {
	for _, sectionKey := range []string{"generation", "generation_options"} {
		raw, ok := partial[sectionKey]
		if !ok || len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		for _, field := range []string{"enable_heuristic_fallback", "enableHeuristicFallback", "heuristic_fallback"} {
			enabled, ok := parseBoolFromAny(payload[field])
			if ok && !enabled {
				return true
			}
		}
	}
	return false
}

func hasEnabledAIProvider(providers []config.AIProvider) bool {
	for _, provider := range providers {
		if provider.Enabled {
			return true
		}
	}
	return false
}

func parseBoolFromAny(v interface{}) (bool, bool) {
	switch value := v.(type) {
	case bool:
		return value, true
	case string:
		trimmed := strings.TrimSpace(strings.ToLower(value))
		switch trimmed {
		case "1", "true", "yes", "on":
			return true, true
		case "0", "false", "no", "off":
			return false, true
		}
	case float64:
		return value != 0, true
	case int:
		return value != 0, true
	case int64:
		return value != 0, true
	}
	return false, false
}

// normalizeConfigSection coerces loosely typed admin payloads into the shape
// the typed config expects before merge.
func normalizeConfigSection(key string, v interface{}) interface{} {
	switch key {
	case "feature_list":
		return normalizeFeatureList(v)
	case "bark_options":
		return normalizeBoolFields(v, "enable", "enable_login_alert", "enable_throttle_guard")
	case "archive_options":
		return normalizeBoolFields(v, "enable")
	case "generation":
		return normalizeBoolFields(v, "enable_heuristic_fallback")
	default:
		return v
	}
}

func normalizeFeatureList(v interface{}) interface{} {
	return normalizeBoolFields(v, "enable_discovery", "enable_generation")
}

func normalizeBoolFields(v interface{}, fields ...string) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	for _, field := range fields {
		raw, exists := m[field]
		if !exists {
			continue
		}
		if b, ok := parseBoolFromAny(raw); ok {
			m[field] = b
		}
	}
	return m
}

var optionKeyAliases = map[string]string{
	"site":            "site",
	"seo":             "site",
	"url":             "url",
	"discovery":       "discovery",
	"generation":      "generation",
	"ai":              "ai",
	"archive_options": "archive_options",
	"s3_options":      "s3_options",
	"bark_options":    "bark_options",
	"auth_security":   "auth_security",
	"feature_list":    "feature_list",
}

func normalizeOptionKey(key string) string {
	snake := camelToSnakeKey(key)
	if canonical, ok := optionKeyAliases[snake]; ok {
		return canonical
	}
	return snake
}

func normalizeJSONKeys(raw json.RawMessage, keyFn func(string) string) (json.RawMessage, error) {
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid json body")
	}
	normalized := convertMapKeys(data, keyFn)
	out, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func convertMapKeys(v interface{}, keyFn func(string) string) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[keyFn(k)] = convertMapKeys(child, keyFn)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = convertMapKeys(child, keyFn)
		}
		return out
	case *config.FullConfig:
		if val == nil {
			return nil
		}
		b, _ := json.Marshal(val)
		var m map[string]interface{}
		_ = json.Unmarshal(b, &m)
		return convertMapKeys(m, keyFn)
	case config.FullConfig:
		b, _ := json.Marshal(val)
		var m map[string]interface{}
		_ = json.Unmarshal(b, &m)
		return convertMapKeys(m, keyFn)
	default:
		return val
	}
}

func snakeToCamelKey(s string) string {
	if s == "" {
		return s
	}
	parts := strings.Split(s, "_")
	if len(parts) == 1 {
		return s
	}
	out := make([]rune, 0, len(s))
	out = append(out, []rune(parts[0])...)
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lower := strings.ToLower(part)
		switch lower {
		case "ms":
			out = append(out, []rune("MS")...)
			continue
		case "ttl":
			out = append(out, []rune("TTL")...)
			continue
		}
		runes := []rune(lower)
		runes[0] = unicode.ToUpper(runes[0])
		out = append(out, runes...)
	}
	return string(out)
}

func camelToSnakeKey(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.TrimSpace(s))
	if len(runes) == 0 {
		return ""
	}
	out := make([]rune, 0, len(runes)+4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower {
					out = append(out, '_')
				}
			}
			out = append(out, unicode.ToLower(r))
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
