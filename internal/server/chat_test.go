package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EmberRavager/youagent/internal/agent"
	"github.com/EmberRavager/youagent/internal/llm"
	"github.com/EmberRavager/youagent/internal/security"
	"github.com/EmberRavager/youagent/internal/testutil"
	"github.com/EmberRavager/youagent/internal/tools"
)

// seedSession installs a runtime backed by a scripted LLM client so chat
// requests never touch the network.
func seedSession(t *testing.T, app *App, sessionID string, client llm.ChatClient) {
	t.Helper()
	registry := tools.NewRegistry(app.workspace, security.NewManager(app.workspace))
	profile := agent.Profile{Name: "worker", SystemPrompt: "test", MaxToolRounds: 4}
	rt := agent.NewRuntime(profile, client, registry, nil, nil)

	app.mu.Lock()
	app.sessions[sessionID] = &agent.Session{Runtime: rt, Registry: registry}
	app.mu.Unlock()
}

func TestChatStreamsEventsAndReply(t *testing.T) {
	app := newTestApp(t)
	seedSession(t, app, "s1", &testutil.ScriptedChatClient{
		Script: []llm.Message{
			testutil.ToolCallReply(testutil.Call("c1", "list_files", `{"path":"."}`)),
			testutil.TextReply("all done"),
		},
	})

	rec := doJSON(t, app.Handler(), http.MethodPost, "/api/chat", map[string]any{
		"message": "inspect the workspace",
		"session": "s1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{"event: tool_start", "event: tool_end", "event: reply", "all done"} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q:\n%s", want, body)
		}
	}

	counters := app.sink.Counters()
	if counters["chat_started"] != 1 || counters["chat_finished"] != 1 {
		t.Errorf("chat counters = %v", counters)
	}
}

func TestChatReportsLLMFailure(t *testing.T) {
	app := newTestApp(t)
	seedSession(t, app, "s2", &testutil.ScriptedChatClient{}) // exhausted immediately

	rec := doJSON(t, app.Handler(), http.MethodPost, "/api/chat", map[string]any{
		"message": "hello",
		"session": "s2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "event: error") {
		t.Errorf("stream should carry an error event:\n%s", rec.Body.String())
	}
}

func TestChatSessionBusyConflict(t *testing.T) {
	app := newTestApp(t)
	seedSession(t, app, "s3", &testutil.ScriptedChatClient{
		Script: []llm.Message{testutil.TextReply("ok")},
	})
	if !app.acquireSession("s3") {
		t.Fatal("could not mark session busy")
	}
	defer app.releaseSession("s3")

	rec := doJSON(t, app.Handler(), http.MethodPost, "/api/chat", map[string]any{
		"message": "hi",
		"session": "s3",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("busy session = %d, want 409", rec.Code)
	}
}

func TestAbortSeededSession(t *testing.T) {
	app := newTestApp(t)
	seedSession(t, app, "s4", &testutil.ScriptedChatClient{})

	req := httptest.NewRequest(http.MethodPost, "/api/abort?session=s4", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("abort = %d", rec.Code)
	}

	app.mu.Lock()
	session := app.sessions["s4"]
	app.mu.Unlock()
	if !session.Runtime.Aborted() {
		t.Error("abort flag not set on the runtime")
	}
}
