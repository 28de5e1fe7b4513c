package security

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManagerReloadsOnPolicyWrite(t *testing.T) {
	workspace := t.TempDir()
	path := PolicyPath(workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	m := NewManager(workspace)
	defer m.Close()
	if err := m.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if m.Policy().MaxFetchChars != DefaultPolicy().MaxFetchChars {
		t.Fatal("initial policy should be the default")
	}

	raw, _ := json.Marshal(map[string]any{"max_fetch_chars": 123})
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.Policy().MaxFetchChars == 123 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("policy not reloaded, MaxFetchChars = %d", m.Policy().MaxFetchChars)
}
