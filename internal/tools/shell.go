package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"
)

const shellOutputCap = 12000

func (r *Registry) runShellSpec() Spec {
	return Spec{
		Name:        "run_shell",
		Description: "Run a shell command in workspace",
		Parameters: objectSchema(map[string]any{
			"command": map[string]any{"type": "string"},
			"timeout": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": 120,
			},
		}, "command"),
		Handler: r.runShell,
	}
}

func (r *Registry) runShell(ctx context.Context, args map[string]any) Result {
	command := stringArg(args, "command", "")
	if command == "" {
		return Fail("command is required")
	}
	timeout := intArg(args, "timeout", 20)

	if allowed, reason := r.policy.Policy().CheckShell(command, timeout); !allowed {
		return Fail("%s", reason)
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = r.workspace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return Fail("command timed out after %ds", timeout)
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Fail("run command: %v", err)
		}
	}

	payload, encodeErr := json.Marshal(map[string]any{
		"exit_code": exitCode,
		"stdout":    tail(stdout.String(), shellOutputCap),
		"stderr":    tail(stderr.String(), shellOutputCap),
	})
	if encodeErr != nil {
		return Fail("encode output: %v", encodeErr)
	}
	return Ok(string(payload))
}

// tail keeps the last max characters; command output is most useful at
// its end.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
