package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/EmberRavager/youagent/internal/config"
	"github.com/EmberRavager/youagent/internal/tasking"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(chatPage))
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cfg := a.settings.Load()
	writeJSON(w, http.StatusOK, map[string]any{
		"workspace": a.workspace,
		"provider":  cfg.Provider,
		"model":     cfg.Model,
		"agent":     cfg.Agent,
		"session":   cfg.Session,
		"providers": config.AvailableProviders(),
		"tasks":     len(a.tasks.List()),
	})
}

// handleConfig updates saved settings from a partial JSON body and
// discards cached sessions so new values take effect immediately.
func (a *App) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var patch struct {
		Provider *string `json:"provider"`
		Model    *string `json:"model"`
		BaseURL  *string `json:"base_url"`
		Agent    *string `json:"agent"`
		Session  *string `json:"session"`
		Timeout  *int    `json:"timeout"`
		APIKey   *string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg := a.settings.Load()
	if patch.Provider != nil {
		cfg.Provider = *patch.Provider
	}
	if patch.Model != nil {
		cfg.Model = *patch.Model
	}
	if patch.BaseURL != nil {
		cfg.BaseURL = *patch.BaseURL
	}
	if patch.Agent != nil {
		cfg.Agent = *patch.Agent
	}
	if patch.Session != nil {
		cfg.Session = *patch.Session
	}
	if patch.Timeout != nil && *patch.Timeout > 0 {
		cfg.Timeout = *patch.Timeout
	}
	if patch.APIKey != nil && *patch.APIKey != "" {
		if cfg.APIKeys == nil {
			cfg.APIKeys = map[string]string{}
		}
		cfg.APIKeys[cfg.Provider] = *patch.APIKey
	}

	if err := a.settings.Save(cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.dropSessions()
	a.sink.Record("config_updated", map[string]any{"provider": cfg.Provider, "model": cfg.Model})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *App) handleAbort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = "default"
	}

	a.mu.Lock()
	session, ok := a.sessions[sessionID]
	a.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	session.Runtime.Abort()
	a.sink.Record("chat_abort_requested", map[string]any{"session": sessionID})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *App) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tasks := a.tasks.List()
		if tasks == nil {
			tasks = []tasking.Task{}
		}
		writeJSON(w, http.StatusOK, tasks)
	case http.MethodPost:
		var task tasking.Task
		if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(task.Prompt) == "" {
			writeError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		added, err := a.tasks.Add(task)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		a.sink.Record("task_added", map[string]any{"task_id": added.ID, "name": added.Name})
		writeJSON(w, http.StatusCreated, added)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *App) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "task id required")
		return
	}
	if id == "run" {
		a.handleRunDue(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		task, ok := a.tasks.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeJSON(w, http.StatusOK, task)
	case http.MethodDelete:
		found, err := a.tasks.Delete(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		a.sink.Record("task_deleted", map[string]any{"task_id": id})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case http.MethodPatch:
		var patch struct {
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		task, ok, err := a.tasks.Update(id, func(t *tasking.Task) {
			if patch.Enabled != nil {
				t.Enabled = *patch.Enabled
			}
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeJSON(w, http.StatusOK, task)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *App) handleRunDue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	count := tasking.RunDueTasks(r.Context(), a.tasks, a.taskRunner, a.sink.Record)
	writeJSON(w, http.StatusOK, map[string]any{"executed": count})
}

func (a *App) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, a.sink.Counters())
}

func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, a.sink.Recent(limit))
}
