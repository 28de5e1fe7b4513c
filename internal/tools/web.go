package tools

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultFetchCap = 30000

func (r *Registry) fetchURLSpec() Spec {
	return Spec{
		Name:        "fetch_url",
		Description: "Fetch web content over HTTP/HTTPS",
		Parameters: objectSchema(map[string]any{
			"url":     map[string]any{"type": "string"},
			"timeout": map[string]any{"type": "integer", "minimum": 1, "maximum": 60},
			"max_chars": map[string]any{
				"type":    "integer",
				"minimum": 100,
				"maximum": 200000,
			},
		}, "url"),
		Handler: r.fetchURL,
	}
}

func (r *Registry) fetchURL(ctx context.Context, args map[string]any) Result {
	rawURL := strings.TrimSpace(stringArg(args, "url", ""))
	if rawURL == "" {
		return Fail("url is required")
	}

	policy := r.policy.Policy()
	if allowed, reason := policy.CheckURL(rawURL); !allowed {
		return Fail("%s", reason)
	}

	timeout := intArg(args, "timeout", 20)
	maxChars := intArg(args, "max_chars", defaultFetchCap)
	if maxChars > policy.MaxFetchChars {
		maxChars = policy.MaxFetchChars
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Fail("build request: %v", err)
	}
	req.Header.Set("User-Agent", "youagent/0.1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Fail("fetch %s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	// Read one byte past the cap to know whether to append the marker.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxChars)+1))
	if err != nil {
		return Fail("read response: %v", err)
	}

	body := string(raw)
	if len(body) > maxChars {
		body = body[:maxChars] + "\n...[truncated]"
	}
	return Ok(body)
}
