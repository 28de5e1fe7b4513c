package tools

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

// defaultBrowserCommand is the external helper driven by browse_page. It is
// expected to accept `<action> <url> [output-path]` and print extracted
// content to stdout. Override with YOUAGENT_BROWSER_CMD.
const defaultBrowserCommand = "youagent-browser"

func browserCommand() string {
	if cmd := strings.TrimSpace(os.Getenv("YOUAGENT_BROWSER_CMD")); cmd != "" {
		return cmd
	}
	return defaultBrowserCommand
}

func (r *Registry) browsePageSpec() Spec {
	return Spec{
		Name:        "browse_page",
		Description: "Open a page in the external browser helper and extract text content or take a screenshot",
		Parameters: objectSchema(map[string]any{
			"url": map[string]any{"type": "string"},
			"action": map[string]any{
				"type": "string",
				"enum": []string{"text", "screenshot"},
			},
			"output": map[string]any{
				"type":        "string",
				"description": "Workspace-relative screenshot path (screenshot action only)",
			},
			"timeout": map[string]any{"type": "integer", "minimum": 1, "maximum": 180},
		}, "url"),
		Handler: r.browsePage,
	}
}

func (r *Registry) browsePage(ctx context.Context, args map[string]any) Result {
	rawURL := strings.TrimSpace(stringArg(args, "url", ""))
	if rawURL == "" {
		return Fail("url is required")
	}

	policy := r.policy.Policy()
	if allowed, reason := policy.CheckURL(rawURL); !allowed {
		return Fail("%s", reason)
	}

	action := stringArg(args, "action", "text")
	if action != "text" && action != "screenshot" {
		return Fail("unknown action: %s", action)
	}

	cmdArgs := []string{action, rawURL}
	if action == "screenshot" {
		output, err := safeJoin(r.workspace, stringArg(args, "output", "screenshot.png"))
		if err != nil {
			return Fail("%v", err)
		}
		cmdArgs = append(cmdArgs, output)
	}

	timeout := intArg(args, "timeout", 60)
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, browserCommand(), cmdArgs...)
	cmd.Dir = r.workspace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return Fail("browser helper timed out after %ds", timeout)
		}
		return Fail("browser helper failed: %v: %s", err, tail(stderr.String(), 2000))
	}

	content := stdout.String()
	if len(content) > policy.MaxBrowserChars {
		content = content[:policy.MaxBrowserChars] + "\n...[truncated]"
	}
	if action == "screenshot" && content == "" {
		content = "screenshot written"
	}
	return Ok(content)
}
