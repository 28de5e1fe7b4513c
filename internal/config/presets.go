package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ProviderPreset describes the defaults for one LLM endpoint provider.
type ProviderPreset struct {
	BaseURL string
	KeyEnv  string
	BaseEnv string
}

// ProviderPresets maps the supported provider names to their endpoint
// defaults and environment variable names.
var ProviderPresets = map[string]ProviderPreset{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		KeyEnv:  "OPENAI_API_KEY",
		BaseEnv: "OPENAI_BASE_URL",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		KeyEnv:  "OPENROUTER_API_KEY",
		BaseEnv: "OPENROUTER_BASE_URL",
	},
	"minimax": {
		BaseURL: "https://api.minimaxi.com/v1",
		KeyEnv:  "MINIMAX_API_KEY",
		BaseEnv: "MINIMAX_BASE_URL",
	},
	"custom": {
		BaseURL: "https://api.openai.com/v1",
		KeyEnv:  "OPENAI_API_KEY",
		BaseEnv: "OPENAI_BASE_URL",
	},
}

// minimaxModelAliases maps shorthand model names to the canonical id.
var minimaxModelAliases = map[string]string{
	"minmax":       "MiniMax-M2.5",
	"minimax2.5":   "MiniMax-M2.5",
	"m2.5":         "MiniMax-M2.5",
	"minimax-m2.5": "MiniMax-M2.5",
}

// APIConfig is a fully resolved LLM endpoint configuration.
type APIConfig struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// AvailableProviders returns the supported provider names, sorted.
func AvailableProviders() []string {
	names := make([]string, 0, len(ProviderPresets))
	for name := range ProviderPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveAPIConfig resolves an endpoint configuration from explicit options,
// environment variables, and provider presets, in that order. It fails fast
// on an unknown provider, a missing API key, or an empty model so that no
// network call is ever attempted with a broken configuration.
func ResolveAPIConfig(provider, model, apiKey, baseURL string, timeoutSeconds int) (APIConfig, error) {
	selected := strings.ToLower(strings.TrimSpace(provider))
	cleanedModel := strings.TrimSpace(model)

	preset, ok := ProviderPresets[selected]
	if !ok {
		return APIConfig{}, fmt.Errorf("unknown provider %q, available: %s", provider, strings.Join(AvailableProviders(), ", "))
	}

	finalKey := strings.TrimSpace(apiKey)
	if finalKey == "" {
		finalKey = strings.TrimSpace(os.Getenv(preset.KeyEnv))
	}
	if finalKey == "" {
		finalKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if finalKey == "" {
		return APIConfig{}, fmt.Errorf("API key missing: provide --api-key or set %s (or OPENAI_API_KEY)", preset.KeyEnv)
	}

	finalBase := strings.TrimSpace(baseURL)
	if finalBase == "" {
		finalBase = strings.TrimSpace(os.Getenv(preset.BaseEnv))
	}
	if finalBase == "" {
		finalBase = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	}
	if finalBase == "" {
		finalBase = preset.BaseURL
	}
	finalBase = strings.TrimRight(finalBase, "/")

	if cleanedModel == "" {
		return APIConfig{}, fmt.Errorf("model cannot be empty")
	}

	if selected == "minimax" {
		if canonical, ok := minimaxModelAliases[strings.ToLower(cleanedModel)]; ok {
			cleanedModel = canonical
		}
	}

	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}

	return APIConfig{
		Provider:       selected,
		Model:          cleanedModel,
		APIKey:         finalKey,
		BaseURL:        finalBase,
		TimeoutSeconds: timeoutSeconds,
	}, nil
}
