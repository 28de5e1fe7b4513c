// Package server exposes the agent over HTTP: a minimal chat page, JSON
// endpoints for status/config/tasks, an SSE chat stream, and Prometheus
// metrics. A background goroutine executes scheduled tasks.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EmberRavager/youagent/internal/agent"
	"github.com/EmberRavager/youagent/internal/config"
	"github.com/EmberRavager/youagent/internal/logging"
	"github.com/EmberRavager/youagent/internal/observability"
	"github.com/EmberRavager/youagent/internal/tasking"
)

const schedulerInterval = 3 * time.Second

// App holds the server's shared state: saved settings, the task store,
// the observability sink, and a cache of live sessions keyed by session
// id so consecutive chat requests reuse one runtime.
type App struct {
	workspace string
	logger    *logging.Logger
	settings  *config.SettingsStore
	tasks     *tasking.Store
	sink      *observability.Sink
	registry  *prometheus.Registry

	mu       sync.Mutex
	sessions map[string]*agent.Session
	busy     map[string]bool
}

// NewApp builds the application state for a workspace.
func NewApp(workspace string, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default("server")
	}
	reg := prometheus.NewRegistry()
	sink, err := observability.NewSink(workspace, reg)
	if err != nil {
		return nil, err
	}
	return &App{
		workspace: workspace,
		logger:    logger,
		settings:  config.NewSettingsStore(workspace),
		tasks:     tasking.NewStore(workspace),
		sink:      sink,
		registry:  reg,
		sessions:  map[string]*agent.Session{},
		busy:      map[string]bool{},
	}, nil
}

// Handler builds the HTTP mux with all routes registered.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.handleIndex)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/chat", a.handleChat)
	mux.HandleFunc("/api/abort", a.handleAbort)
	mux.HandleFunc("/api/tasks", a.handleTasks)
	mux.HandleFunc("/api/tasks/", a.handleTaskByID)
	mux.HandleFunc("/api/tasks/run", a.handleRunDue)
	mux.HandleFunc("/api/metrics", a.handleMetrics)
	mux.HandleFunc("/api/events", a.handleEvents)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return mux
}

// Serve runs the HTTP server and the background task scheduler until
// the context ends.
func (a *App) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go tasking.PollLoop(ctx, a.tasks, a.taskRunner, a.sink.Record, schedulerInterval)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		a.closeSessions()
	}()

	a.logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// sessionFor returns the cached session for an id, building it from the
// saved settings on first use.
func (a *App) sessionFor(ctx context.Context, sessionID string) (*agent.Session, error) {
	if sessionID == "" {
		sessionID = "default"
	}

	a.mu.Lock()
	if s, ok := a.sessions[sessionID]; ok {
		a.mu.Unlock()
		return s, nil
	}
	a.mu.Unlock()

	cfg := a.settings.Load()
	session, err := agent.NewSession(ctx, agent.SessionOptions{
		Workspace: a.workspace,
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKey:    cfg.APIKeys[cfg.Provider],
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		Agent:     cfg.Agent,
		SessionID: sessionID,
		NoMemory:  cfg.NoMemory,
		MCPConfig: cfg.MCPConfig,
		Logger:    a.logger.With("session", sessionID),
	})
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.sessions[sessionID]; ok {
		session.Close()
		return existing, nil
	}
	a.sessions[sessionID] = session
	return session, nil
}

// dropSessions discards cached sessions so the next request rebuilds
// them from the current settings.
func (a *App) dropSessions() {
	a.mu.Lock()
	stale := a.sessions
	a.sessions = map[string]*agent.Session{}
	a.mu.Unlock()
	for _, s := range stale {
		s.Close()
	}
}

func (a *App) closeSessions() {
	a.dropSessions()
}

func (a *App) acquireSession(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy[id] {
		return false
	}
	a.busy[id] = true
	return true
}

func (a *App) releaseSession(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.busy, id)
}

// taskRunner executes one scheduled task as a standalone session,
// mirroring tool progress into the task record.
func (a *App) taskRunner(ctx context.Context, task tasking.Task, progress tasking.ProgressFunc) (string, error) {
	cfg := a.settings.Load()

	opts := agent.SessionOptions{
		Workspace: a.workspace,
		Provider:  firstNonEmpty(task.Provider, cfg.Provider),
		Model:     firstNonEmpty(task.Model, cfg.Model),
		BaseURL:   firstNonEmpty(task.BaseURL, cfg.BaseURL),
		Timeout:   cfg.Timeout,
		Agent:     firstNonEmpty(task.Agent, cfg.Agent),
		SessionID: firstNonEmpty(task.Session, "task-"+task.ID),
		NoMemory:  task.NoMemory,
		MCPConfig: firstNonEmpty(task.MCPConfig, cfg.MCPConfig),
		Logger:    a.logger.With("task", task.ID),
	}
	if task.Workspace != "" {
		opts.Workspace = task.Workspace
	}
	opts.APIKey = cfg.APIKeys[opts.Provider]

	session, err := agent.NewSession(ctx, opts)
	if err != nil {
		return "", err
	}
	defer session.Close()

	return session.Runtime.Ask(ctx, task.Prompt, func(ev agent.Event) {
		if ev.Phase == "tool_start" {
			progress(tasking.Progress{StepIndex: ev.Index, StepTotal: ev.Total})
		}
		a.sink.Record("agent_"+ev.Phase, map[string]any{"task_id": task.ID, "tool": ev.Tool})
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
