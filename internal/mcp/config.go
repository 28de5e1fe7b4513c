// Package mcp implements the external tool server bridge: child processes
// speaking Content-Length framed JSON-RPC 2.0 over their standard streams,
// mounted into the local tool registry.
package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ServerConfig describes one external tool server process.
type ServerConfig struct {
	Name           string            `json:"name"`
	Command        string            `json:"command"`
	Args           []string          `json:"args,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	Cwd            string            `json:"cwd,omitempty"`
	StartupTimeout int               `json:"startup_timeout,omitempty"` // seconds
	RequestTimeout int               `json:"request_timeout,omitempty"` // seconds
	RetryMax       int               `json:"retry_max,omitempty"`
	RetryDelay     int               `json:"retry_delay,omitempty"` // seconds
	Disabled       bool              `json:"disabled,omitempty"`
}

type serverFile struct {
	Servers []json.RawMessage `json:"servers"`
}

// LoadServers reads a server configuration file. Relative paths are
// resolved against the workspace. Entries without a name or command are
// skipped; timeouts are floored at one second.
func LoadServers(configPath, workspace string) ([]ServerConfig, error) {
	path := configPath
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(workspace)
		if err != nil {
			abs = workspace
		}
		path = filepath.Join(abs, configPath)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mcp config: %w", err)
	}

	var file serverFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("invalid mcp config %s: %w", path, err)
	}

	var servers []ServerConfig
	for _, item := range file.Servers {
		var cfg ServerConfig
		if err := json.Unmarshal(item, &cfg); err != nil {
			continue
		}
		cfg.Name = strings.TrimSpace(cfg.Name)
		cfg.Command = strings.TrimSpace(cfg.Command)
		if cfg.Name == "" || cfg.Command == "" {
			continue
		}
		if cfg.StartupTimeout < 1 {
			cfg.StartupTimeout = 15
		}
		if cfg.RequestTimeout < 1 {
			cfg.RequestTimeout = 60
		}
		if cfg.RetryDelay < 1 {
			cfg.RetryDelay = 1
		}
		servers = append(servers, cfg)
	}
	return servers, nil
}
