package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

type shellOutput struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

func runShellJSON(t *testing.T, r *Registry, args map[string]any) shellOutput {
	t.Helper()
	result := r.Call(context.Background(), "run_shell", args)
	if !result.OK {
		t.Fatalf("run_shell failed: %s", result.Content)
	}
	var out shellOutput
	if err := json.Unmarshal([]byte(result.Content), &out); err != nil {
		t.Fatalf("run_shell output is not JSON: %v", err)
	}
	return out
}

func TestRunShellCapturesOutput(t *testing.T) {
	r, _ := newWorkspaceRegistry(t)
	out := runShellJSON(t, r, map[string]any{"command": "echo hello; echo oops >&2"})
	if out.ExitCode != 0 {
		t.Errorf("exit code = %d", out.ExitCode)
	}
	if strings.TrimSpace(out.Stdout) != "hello" {
		t.Errorf("stdout = %q", out.Stdout)
	}
	if strings.TrimSpace(out.Stderr) != "oops" {
		t.Errorf("stderr = %q", out.Stderr)
	}
}

func TestRunShellNonZeroExit(t *testing.T) {
	r, _ := newWorkspaceRegistry(t)
	out := runShellJSON(t, r, map[string]any{"command": "exit 3"})
	if out.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", out.ExitCode)
	}
}

func TestRunShellOutputTail(t *testing.T) {
	r, _ := newWorkspaceRegistry(t)
	out := runShellJSON(t, r, map[string]any{
		"command": "printf 'head-'; i=0; while [ $i -lt 2000 ]; do printf '0123456789'; i=$((i+1)); done",
	})
	if len(out.Stdout) > shellOutputCap {
		t.Errorf("stdout not capped: %d chars", len(out.Stdout))
	}
	if !strings.HasSuffix(out.Stdout, "0123456789") {
		t.Error("tail should keep the end of the output")
	}
}

func TestRunShellBlockedByPolicy(t *testing.T) {
	r, _ := newWorkspaceRegistry(t)
	result := r.Call(context.Background(), "run_shell", map[string]any{"command": "sudo reboot"})
	if result.OK {
		t.Fatal("blocked command must fail")
	}
	if !strings.Contains(result.Content, "security policy") {
		t.Errorf("reason = %q", result.Content)
	}
}

func TestRunShellTimeout(t *testing.T) {
	r, _ := newWorkspaceRegistry(t)
	result := r.Call(context.Background(), "run_shell", map[string]any{
		"command": "sleep 5",
		"timeout": 1,
	})
	if result.OK {
		t.Fatal("timed-out command must fail")
	}
	if !strings.Contains(result.Content, "timed out") {
		t.Errorf("reason = %q", result.Content)
	}
}

func TestRunShellRunsInWorkspace(t *testing.T) {
	r, workspace := newWorkspaceRegistry(t)
	out := runShellJSON(t, r, map[string]any{"command": "pwd -P"})
	resolved, err := filepath.EvalSymlinks(workspace)
	if err != nil {
		resolved = workspace
	}
	if strings.TrimSpace(out.Stdout) != resolved {
		t.Errorf("cwd = %q, want %q", out.Stdout, resolved)
	}
}
