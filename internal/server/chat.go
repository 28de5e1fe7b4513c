package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/EmberRavager/youagent/internal/agent"
)

const heartbeatInterval = 10 * time.Second

type chatRequest struct {
	Message string `json:"message"`
	Session string `json:"session"`
}

// handleChat streams one ask over SSE. The agent loop runs on a worker
// goroutine; this handler forwards its events as they arrive,
// interleaving comment heartbeats so proxies keep the stream open.
func (a *App) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.Session == "" {
		req.Session = "default"
	}

	session, err := a.sessionFor(r.Context(), req.Session)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !a.acquireSession(req.Session) {
		writeError(w, http.StatusConflict, "session is busy")
		return
	}
	defer a.releaseSession(req.Session)

	setSSEHeaders(w)
	if _, ok := w.(http.Flusher); !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	session.Runtime.ResetAbort()
	a.sink.Record("chat_started", map[string]any{"session": req.Session})

	events := make(chan agent.Event, 32)
	type outcome struct {
		reply string
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		reply, askErr := session.Runtime.Ask(r.Context(), req.Message, func(ev agent.Event) {
			select {
			case events <- ev:
			default:
			}
		})
		done <- outcome{reply: reply, err: askErr}
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case ev := <-events:
			writeSSEEvent(w, ev.Phase, ev)
			a.sink.Record("agent_"+ev.Phase, map[string]any{"session": req.Session, "tool": ev.Tool})
		case <-heartbeat.C:
			writeSSEComment(w, "heartbeat")
		case out := <-done:
			for {
				select {
				case ev := <-events:
					writeSSEEvent(w, ev.Phase, ev)
				default:
					a.finishChat(w, req.Session, session, out.reply, out.err)
					return
				}
			}
		case <-r.Context().Done():
			session.Runtime.Abort()
			<-done
			a.sink.Record("chat_disconnected", map[string]any{"session": req.Session})
			return
		}
	}
}

func (a *App) finishChat(w http.ResponseWriter, sessionID string, session *agent.Session, reply string, err error) {
	if err != nil {
		if session.Runtime.Aborted() {
			writeSSEEvent(w, "aborted", map[string]any{"session": sessionID})
			a.sink.Record("chat_aborted", map[string]any{"session": sessionID})
			return
		}
		writeSSEEvent(w, "error", map[string]any{"error": err.Error()})
		a.sink.Record("chat_failed", map[string]any{"session": sessionID, "error": err.Error()})
		return
	}
	writeSSEEvent(w, "reply", map[string]any{"reply": reply})
	a.sink.Record("chat_finished", map[string]any{"session": sessionID})
}
