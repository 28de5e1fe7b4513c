// Package memory persists conversation logs per session as JSON files
// under the workspace.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/EmberRavager/youagent/internal/llm"
)

// SessionMemory stores one session's ordered message log. Writes replace
// the whole file so no partial state is ever visible.
type SessionMemory struct {
	mu   sync.Mutex
	path string
}

// NewSessionMemory creates the memory for a (workspace, session) pair. The
// session id is sanitized to a safe file name; an empty result falls back
// to "default".
func NewSessionMemory(workspace, sessionID string) *SessionMemory {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}

	var sb strings.Builder
	for _, ch := range sessionID {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' {
			sb.WriteRune(ch)
		}
	}
	safe := sb.String()
	if safe == "" {
		safe = "default"
	}

	return &SessionMemory{
		path: filepath.Join(abs, ".youagent", "sessions", safe+".json"),
	}
}

// Path returns the session file location.
func (m *SessionMemory) Path() string {
	return m.path
}

// Load reads the persisted message log. Missing files and malformed
// entries yield an empty log rather than an error; a session always starts
// cleanly.
func (m *SessionMemory) Load() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := os.ReadFile(m.path)
	if err != nil {
		return nil
	}

	var decoded []llm.Message
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}

	messages := make([]llm.Message, 0, len(decoded))
	for _, msg := range decoded {
		if msg.Role == "" {
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

// Save rewrites the message log.
func (m *SessionMemory) Save(messages []llm.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, m.path)
}
