package security

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Policy is the capability check consumed by tools. The zero value is not
// useful; use DefaultPolicy or Load.
type Policy struct {
	AllowShell         bool     `json:"allow_shell"`
	BlockedShellTokens []string `json:"blocked_shell_tokens"`
	BlockedHosts       []string `json:"blocked_hosts"`
	AllowedHosts       []string `json:"allowed_hosts"`
	MaxShellTimeout    int      `json:"max_shell_timeout"`
	MaxFetchChars      int      `json:"max_fetch_chars"`
	MaxBrowserChars    int      `json:"max_browser_chars"`
}

// DefaultPolicy returns the permissive defaults with the conservative
// built-in block lists.
func DefaultPolicy() Policy {
	return Policy{
		AllowShell: true,
		BlockedShellTokens: []string{
			"rm -rf /",
			"mkfs",
			"shutdown",
			"reboot",
			"poweroff",
			"dd if=",
			"curl | sh",
			"wget | sh",
			":(){:|:&};:",
			"chmod -r 777 /",
		},
		BlockedHosts: []string{
			"localhost",
			"127.0.0.1",
			"0.0.0.0",
			"169.254.169.254",
			"::1",
		},
		AllowedHosts:    []string{},
		MaxShellTimeout: 60,
		MaxFetchChars:   200000,
		MaxBrowserChars: 120000,
	}
}

// PolicyPath returns the location of the policy file for a workspace.
func PolicyPath(workspace string) string {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}
	return filepath.Join(abs, ".youagent", "security.json")
}

// Load reads the workspace security policy. A missing or malformed file
// yields the defaults; partial files override only the fields they carry.
func Load(workspace string) Policy {
	raw, err := os.ReadFile(PolicyPath(workspace))
	if err != nil {
		return DefaultPolicy()
	}
	return parsePolicy(raw)
}

func parsePolicy(raw []byte) Policy {
	policy := DefaultPolicy()
	if err := json.Unmarshal(raw, &policy); err != nil {
		return DefaultPolicy()
	}
	for i, token := range policy.BlockedShellTokens {
		policy.BlockedShellTokens[i] = strings.ToLower(token)
	}
	for i, host := range policy.BlockedHosts {
		policy.BlockedHosts[i] = strings.ToLower(host)
	}
	for i, host := range policy.AllowedHosts {
		policy.AllowedHosts[i] = strings.ToLower(host)
	}
	if policy.MaxShellTimeout <= 0 {
		policy.MaxShellTimeout = DefaultPolicy().MaxShellTimeout
	}
	if policy.MaxFetchChars <= 0 {
		policy.MaxFetchChars = DefaultPolicy().MaxFetchChars
	}
	if policy.MaxBrowserChars <= 0 {
		policy.MaxBrowserChars = DefaultPolicy().MaxBrowserChars
	}
	return policy
}

// CheckShell reports whether a shell command may run with the requested
// timeout. The reason is human-readable and returned to the model as a
// failed tool result, never as an error.
func (p Policy) CheckShell(command string, timeoutSeconds int) (bool, string) {
	if !p.AllowShell {
		return false, "Shell execution is disabled by security policy"
	}
	lowered := strings.ToLower(command)
	for _, token := range p.BlockedShellTokens {
		if token != "" && strings.Contains(lowered, token) {
			return false, "Command blocked by security policy"
		}
	}
	if timeoutSeconds > p.MaxShellTimeout {
		return false, fmt.Sprintf("Timeout exceeds policy limit (%ds)", p.MaxShellTimeout)
	}
	return true, ""
}

// CheckURL reports whether a URL may be fetched.
func (p Policy) CheckURL(rawURL string) (bool, string) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, "Invalid URL"
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false, "Only http/https URLs are allowed"
	}
	host := strings.ToLower(parsed.Hostname())
	for _, blocked := range p.BlockedHosts {
		if host == blocked {
			return false, "Host is blocked by security policy"
		}
	}
	if len(p.AllowedHosts) > 0 {
		matched := false
		for _, allowed := range p.AllowedHosts {
			if host == allowed || strings.HasSuffix(host, "."+allowed) {
				matched = true
				break
			}
		}
		if !matched {
			return false, "Host is not in allowlist"
		}
	}
	return true, ""
}

// Template returns the JSON document written by `youagent security
// init`, carrying the default policy fields.
func Template() ([]byte, error) {
	return json.MarshalIndent(DefaultPolicy(), "", "  ")
}
