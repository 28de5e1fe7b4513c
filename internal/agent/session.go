package agent

import (
	"context"
	"fmt"

	"github.com/EmberRavager/youagent/internal/config"
	"github.com/EmberRavager/youagent/internal/llm"
	"github.com/EmberRavager/youagent/internal/logging"
	"github.com/EmberRavager/youagent/internal/mcp"
	"github.com/EmberRavager/youagent/internal/memory"
	"github.com/EmberRavager/youagent/internal/security"
	"github.com/EmberRavager/youagent/internal/tools"
)

// SessionOptions selects everything needed to stand up one runtime.
type SessionOptions struct {
	Workspace string
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   int
	Agent     string
	SessionID string
	NoMemory  bool
	MCPConfig string
	Client    llm.ChatClient
	Logger    *logging.Logger
}

// Session bundles a runtime with the resources it owns.
type Session struct {
	Runtime  *Runtime
	Registry *tools.Registry
	Security *security.Manager
	Bridge   *mcp.Bridge
	Memory   *memory.SessionMemory
	Config   config.APIConfig
}

// NewSession wires up an LLM client, security policy, tool registry,
// optional external tool servers, and conversation memory, then builds
// the runtime over them. Options.Client overrides the real LLM client
// when set (tests and dry runs).
func NewSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default("agent")
	}

	profile, err := LoadProfile(opts.Agent, opts.Workspace)
	if err != nil {
		return nil, err
	}

	var apiCfg config.APIConfig
	client := opts.Client
	if client == nil {
		apiCfg, err = config.ResolveAPIConfig(opts.Provider, opts.Model, opts.APIKey, opts.BaseURL, opts.Timeout)
		if err != nil {
			return nil, err
		}
		client = llm.NewClient(apiCfg)
	}

	sec := security.NewManager(opts.Workspace)
	if err := sec.Watch(); err != nil {
		logger.Warn("security policy watch unavailable", "error", err)
	}

	registry := tools.NewRegistry(opts.Workspace, sec)

	var bridge *mcp.Bridge
	if opts.MCPConfig != "" {
		bridge = mcp.NewBridge(opts.Workspace, opts.MCPConfig)
		if err := bridge.Mount(ctx, registry); err != nil {
			bridge.Close()
			sec.Close()
			return nil, fmt.Errorf("mount tool servers: %w", err)
		}
	}

	var mem *memory.SessionMemory
	if !opts.NoMemory {
		mem = memory.NewSessionMemory(opts.Workspace, opts.SessionID)
	}

	return &Session{
		Runtime:  NewRuntime(profile, client, registry, mem, logger),
		Registry: registry,
		Security: sec,
		Bridge:   bridge,
		Memory:   mem,
		Config:   apiCfg,
	}, nil
}

// Close releases the session's external resources.
func (s *Session) Close() {
	if s.Bridge != nil {
		s.Bridge.Close()
	}
	if s.Security != nil {
		s.Security.Close()
	}
}
