package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Settings holds the saved default options for the workspace. Chat and
// heartbeat runs rewrite the file so the next invocation picks up the last
// used provider, model, and session.
type Settings struct {
	Provider  string            `json:"provider"`
	Model     string            `json:"model"`
	BaseURL   string            `json:"base_url,omitempty"`
	Agent     string            `json:"agent"`
	Timeout   int               `json:"timeout"`
	Workspace string            `json:"workspace"`
	Session   string            `json:"session"`
	NoMemory  bool              `json:"no_memory"`
	MCPConfig string            `json:"mcp_config,omitempty"`
	APIKeys   map[string]string `json:"api_keys,omitempty"`
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		Provider:  "openai",
		Model:     "gpt-4.1-mini",
		Agent:     "worker",
		Timeout:   60,
		Workspace: ".",
		Session:   "default",
		APIKeys:   map[string]string{},
	}
}

// SettingsStore persists Settings as a JSON document under the workspace.
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

// NewSettingsStore creates a settings store rooted at the given workspace.
func NewSettingsStore(workspace string) *SettingsStore {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}
	return &SettingsStore{path: filepath.Join(abs, ".youagent", "config.json")}
}

// Path returns the location of the settings file.
func (s *SettingsStore) Path() string {
	return s.path
}

// Load reads the settings file. A missing or malformed file yields defaults.
func (s *SettingsStore) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return DefaultSettings()
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return DefaultSettings()
	}
	if settings.APIKeys == nil {
		settings.APIKeys = map[string]string{}
	}

	cleaned := make(map[string]string, len(settings.APIKeys))
	for provider, key := range settings.APIKeys {
		if strings.TrimSpace(key) != "" {
			cleaned[provider] = key
		}
	}
	settings.APIKeys = cleaned
	return settings
}

// Save atomically rewrites the settings file.
func (s *SettingsStore) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, s.path)
}
