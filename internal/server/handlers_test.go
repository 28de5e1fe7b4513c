package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EmberRavager/youagent/internal/config"
	"github.com/EmberRavager/youagent/internal/tasking"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(app.closeSessions)
	return app
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	app := newTestApp(t)
	rec := doJSON(t, app.Handler(), http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if payload["provider"] != "openai" {
		t.Errorf("default provider = %v", payload["provider"])
	}
	if payload["tasks"] != float64(0) {
		t.Errorf("tasks = %v", payload["tasks"])
	}
}

func TestConfigUpdate(t *testing.T) {
	app := newTestApp(t)
	handler := app.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/config", map[string]any{
		"provider": "openrouter",
		"model":    "meta-llama/llama-3-70b",
		"api_key":  "or-secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("config update = %d: %s", rec.Code, rec.Body.String())
	}

	saved := config.NewSettingsStore(app.workspace).Load()
	if saved.Provider != "openrouter" || saved.Model != "meta-llama/llama-3-70b" {
		t.Errorf("settings not saved: %+v", saved)
	}
	if saved.APIKeys["openrouter"] != "or-secret" {
		t.Error("api key not stored under the new provider")
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/config", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty body = %d, want 400", rec.Code)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	handler := app.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks", map[string]any{
		"name":             "ping",
		"prompt":           "say hi",
		"interval_seconds": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	var created tasking.Task
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ID == "" || created.IntervalSeconds != tasking.MinIntervalSeconds {
		t.Errorf("created task = %+v", created)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/tasks", nil)
	var listed []tasking.Task
	json.Unmarshal(rec.Body.Bytes(), &listed)
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("list = %+v", listed)
	}

	rec = doJSON(t, handler, http.MethodPatch, "/api/tasks/"+created.ID, map[string]any{"enabled": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d", rec.Code)
	}
	var patched tasking.Task
	json.Unmarshal(rec.Body.Bytes(), &patched)
	if patched.Enabled {
		t.Error("disable not applied")
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete = %d, want 404", rec.Code)
	}
}

func TestTaskCreateRequiresPrompt(t *testing.T) {
	app := newTestApp(t)
	rec := doJSON(t, app.Handler(), http.MethodPost, "/api/tasks", map[string]any{"name": "empty"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create without prompt = %d, want 400", rec.Code)
	}
}

func TestMetricsAndEventsEndpoints(t *testing.T) {
	app := newTestApp(t)
	handler := app.Handler()
	app.sink.Record("chat_started", map[string]any{"session": "s"})

	rec := doJSON(t, handler, http.MethodGet, "/api/metrics", nil)
	var counters map[string]int64
	json.Unmarshal(rec.Body.Bytes(), &counters)
	if counters["chat_started"] != 1 {
		t.Errorf("counters = %v", counters)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/events?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("events = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "chat_started") {
		t.Errorf("events body = %s", rec.Body.String())
	}

	// Prometheus exposition includes the registered event counter.
	rec = doJSON(t, handler, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("prometheus = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "youagent_events_total") {
		t.Errorf("prometheus exposition missing counter:\n%s", rec.Body.String())
	}
}

func TestAbortWithoutSession(t *testing.T) {
	app := newTestApp(t)
	rec := doJSON(t, app.Handler(), http.MethodPost, "/api/abort?session=nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("abort = %d, want 404", rec.Code)
	}
}

func TestIndexServesChatPage(t *testing.T) {
	app := newTestApp(t)
	rec := doJSON(t, app.Handler(), http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("index = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/api/chat") {
		t.Error("chat page does not reference the chat endpoint")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	app := newTestApp(t)
	rec := doJSON(t, app.Handler(), http.MethodPost, "/api/chat", map[string]any{"message": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty chat = %d, want 400", rec.Code)
	}
}
