package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EmberRavager/youagent/internal/config"
)

// fakeEndpoint serves an OpenAI-compatible chat completions response and
// captures the request for assertions.
func fakeEndpoint(t *testing.T, response map[string]any) (*Client, *map[string]any) {
	t.Helper()
	var captured map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.APIConfig{
		Provider:       "custom",
		Model:          "test-model",
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/v1",
		TimeoutSeconds: 5,
	})
	return client, &captured
}

func TestChatCompletionPlainReply(t *testing.T) {
	client, captured := fakeEndpoint(t, map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": "hello"}},
		},
	})

	reply, err := client.ChatCompletion(context.Background(), []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
	}, nil)
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if reply.Content != "hello" || len(reply.ToolCalls) != 0 {
		t.Errorf("reply = %+v", reply)
	}

	req := *captured
	if req["model"] != "test-model" {
		t.Errorf("model = %v", req["model"])
	}
	if _, hasTools := req["tools"]; hasTools {
		t.Error("tools sent despite empty schema list")
	}
}

func TestChatCompletionToolCalls(t *testing.T) {
	client, captured := fakeEndpoint(t, map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{
				"role": "assistant",
				"tool_calls": []any{
					map[string]any{
						"id":   "call-9",
						"type": "function",
						"function": map[string]any{
							"name":      "list_files",
							"arguments": `{"path":"."}`,
						},
					},
				},
			}},
		},
	})

	schemas := []Tool{{
		Type: "function",
		Function: Function{
			Name:        "list_files",
			Description: "List files",
			Parameters:  map[string]any{"type": "object"},
		},
	}}
	reply, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "ls"}}, schemas)
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if len(reply.ToolCalls) != 1 {
		t.Fatalf("tool calls = %+v", reply.ToolCalls)
	}
	call := reply.ToolCalls[0]
	if call.ID != "call-9" || call.Function.Name != "list_files" || call.Function.Arguments != `{"path":"."}` {
		t.Errorf("call = %+v", call)
	}

	req := *captured
	if req["tool_choice"] != "auto" {
		t.Errorf("tool_choice = %v", req["tool_choice"])
	}
	tools, ok := req["tools"].([]any)
	if !ok || len(tools) != 1 {
		t.Fatalf("tools in request = %v", req["tools"])
	}
}

func TestChatCompletionNoChoices(t *testing.T) {
	client, _ := fakeEndpoint(t, map[string]any{"choices": []any{}})
	if _, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "x"}}, nil); err == nil {
		t.Error("empty choices must error")
	}
}

func TestFromOptionsFailsBeforeNetwork(t *testing.T) {
	if _, err := FromOptions("unknown-provider", "m", "k", "", 5); err == nil {
		t.Error("unknown provider should fail without any request")
	}
}
