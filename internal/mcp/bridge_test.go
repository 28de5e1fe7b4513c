package mcp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestMountedName(t *testing.T) {
	cases := []struct {
		server, tool, want string
	}{
		{"files", "read", "mcp_files_read"},
		{"My Server", "Do-Thing", "mcp_my_server_do_thing"},
		{"a.b", "c/d", "mcp_a_b_c_d"},
	}
	for _, tc := range cases {
		if got := MountedName(tc.server, tc.tool); got != tc.want {
			t.Errorf("MountedName(%q, %q) = %q, want %q", tc.server, tc.tool, got, tc.want)
		}
	}
}

func TestNormalizeSchema(t *testing.T) {
	got := normalizeSchema(nil)
	if got["type"] != "object" {
		t.Errorf("nil schema should normalize to an object schema, got %v", got)
	}
	if _, ok := got["properties"]; !ok {
		t.Errorf("normalized schema must carry properties: %v", got)
	}

	withProps := normalizeSchema(map[string]any{"properties": map[string]any{"x": map[string]any{}}})
	if withProps["type"] != "object" {
		t.Errorf("missing type should be filled in, got %v", withProps)
	}
}

func TestLoadServersFloorsAndSkips(t *testing.T) {
	dir := t.TempDir()
	raw, _ := json.Marshal(map[string]any{
		"servers": []any{
			map[string]any{"name": "good", "command": "tool-server"},
			map[string]any{"name": "", "command": "nameless"},
			map[string]any{"name": "no-command"},
		},
	})
	path := filepath.Join(dir, "mcp.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	servers, err := LoadServers("mcp.json", dir)
	if err != nil {
		t.Fatalf("LoadServers: %v", err)
	}
	if len(servers) != 1 {
		t.Fatalf("got %d servers, want 1 (invalid entries skipped): %+v", len(servers), servers)
	}
	got := servers[0]
	if got.StartupTimeout != 15 || got.RequestTimeout != 60 {
		t.Errorf("missing timeouts should default, got %+v", got)
	}
}
