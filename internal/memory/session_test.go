package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/EmberRavager/youagent/internal/llm"
)

func TestRoundTrip(t *testing.T) {
	workspace := t.TempDir()
	mem := NewSessionMemory(workspace, "alpha")

	in := []llm.Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "answer"},
	}
	if err := mem.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out := NewSessionMemory(workspace, "alpha").Load()
	if len(out) != 3 {
		t.Fatalf("loaded %d messages, want 3", len(out))
	}
	for i := range in {
		if out[i].Role != in[i].Role || out[i].Content != in[i].Content {
			t.Errorf("message %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestSessionIDSanitized(t *testing.T) {
	mem := NewSessionMemory(t.TempDir(), "../../etc/passwd")
	base := filepath.Base(mem.Path())
	if strings.Contains(base, "..") || strings.ContainsAny(base, "/\\") {
		t.Errorf("unsafe session file name %q", base)
	}
	if base != "etcpasswd.json" {
		t.Errorf("sanitized name = %q", base)
	}

	if got := filepath.Base(NewSessionMemory(t.TempDir(), "!!!").Path()); got != "default.json" {
		t.Errorf("all-invalid id should fall back to default, got %q", got)
	}
}

func TestLoadMissingAndMalformed(t *testing.T) {
	workspace := t.TempDir()
	mem := NewSessionMemory(workspace, "none")
	if got := mem.Load(); len(got) != 0 {
		t.Errorf("missing file should load empty, got %v", got)
	}

	if err := os.MkdirAll(filepath.Dir(mem.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mem.Path(), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := mem.Load(); len(got) != 0 {
		t.Errorf("malformed file should load empty, got %v", got)
	}
}

func TestLoadDropsRolelessEntries(t *testing.T) {
	workspace := t.TempDir()
	mem := NewSessionMemory(workspace, "mixed")
	if err := os.MkdirAll(filepath.Dir(mem.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	raw := `[{"role":"user","content":"keep"},{"content":"no role"},{"role":"assistant","content":"keep too"}]`
	if err := os.WriteFile(mem.Path(), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	got := mem.Load()
	if len(got) != 2 {
		t.Fatalf("loaded %d messages, want 2", len(got))
	}
}
