// Package agent implements the tool-calling conversation loop and the
// profiles that parameterize it.
package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile selects the system prompt and loop bounds for a runtime.
type Profile struct {
	Name          string `yaml:"name" json:"name"`
	SystemPrompt  string `yaml:"system_prompt" json:"system_prompt"`
	MaxToolRounds int    `yaml:"max_tool_rounds" json:"max_tool_rounds"`
}

const workerPrompt = `You are a capable local agent running inside the user's workspace.
You can read and write files, run shell commands, search the workspace,
and fetch web pages through your tools. Prefer acting with tools over
describing what the user should do. Keep replies short and concrete.
When a task is done, summarize what changed.`

const researcherPrompt = `You are a research assistant with access to workspace files
and web fetching. Gather evidence before answering: fetch pages, read
files, and quote the relevant parts. Cite which tool result each claim
comes from. If sources disagree, say so rather than guessing.`

var builtinProfiles = map[string]Profile{
	"worker": {
		Name:          "worker",
		SystemPrompt:  workerPrompt,
		MaxToolRounds: 12,
	},
	"researcher": {
		Name:          "researcher",
		SystemPrompt:  researcherPrompt,
		MaxToolRounds: 16,
	},
}

// LoadProfile resolves a profile by name. Built-in names win; anything
// else is treated as a path to a YAML profile file, searched relative to
// the workspace when not absolute.
func LoadProfile(name, workspace string) (Profile, error) {
	if name == "" {
		name = "worker"
	}
	if p, ok := builtinProfiles[name]; ok {
		return p, nil
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(workspace, name)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("unknown agent profile %q (not built-in, no file at %s)", name, path)
	}

	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("parse agent profile %s: %w", path, err)
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return Profile{}, fmt.Errorf("agent profile %s has no system_prompt", path)
	}
	if p.Name == "" {
		base := filepath.Base(path)
		p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if p.MaxToolRounds <= 0 {
		p.MaxToolRounds = 12
	}
	return p, nil
}

// BuiltinProfiles lists the built-in profile names in a stable order.
func BuiltinProfiles() []string {
	return []string{"worker", "researcher"}
}
