package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/EmberRavager/youagent/internal/logging"
	"github.com/EmberRavager/youagent/internal/tools"
)

// ToolDescriptor is one remote tool advertised by a server.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Client is one live connection to an external tool server process.
//
// Requests are serialized by a single dispatch lock so request-id
// correlation stays unambiguous. A background reader goroutine parses
// frames from the process's stdout; once it records a terminal error the
// connection is dead and every pending and future request fails with that
// error until Start is called again.
type Client struct {
	cfg       ServerConfig
	workspace string
	logger    *logging.Logger

	dispatchMu sync.Mutex // one in-flight request per connection

	stateMu  sync.Mutex
	started  bool
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	nextID   int64
	termErr  error
	waitErr  error
	messages chan rpcMessage
	dead     chan struct{}
	procDone chan struct{}
}

// NewClient creates a stopped client for one server configuration.
func NewClient(cfg ServerConfig, workspace string) *Client {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}
	return &Client{
		cfg:       cfg,
		workspace: abs,
		logger:    logging.Default("mcp").With("server", cfg.Name),
	}
}

// Start launches the child process, begins the reader, and performs the
// initialize handshake bounded by the startup timeout. Starting an
// already-live client is a no-op; starting a dead one replaces the
// connection.
func (c *Client) Start(ctx context.Context) error {
	c.stateMu.Lock()
	if c.started && c.termErr == nil {
		c.stateMu.Unlock()
		return nil
	}
	c.stateMu.Unlock()

	cwd := c.workspace
	if c.cfg.Cwd != "" {
		if filepath.IsAbs(c.cfg.Cwd) {
			cwd = c.cfg.Cwd
		} else {
			cwd = filepath.Join(c.workspace, c.cfg.Cwd)
		}
	}

	cmd := exec.Command(c.cfg.Command, c.cfg.Args...)
	cmd.Dir = cwd
	if len(c.cfg.Env) > 0 {
		env := os.Environ()
		for k, v := range c.cfg.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.cfg.Command, err)
	}

	procDone := make(chan struct{})
	c.attach(stdin, stdout, procDone)

	c.stateMu.Lock()
	c.cmd = cmd
	c.started = true
	c.stateMu.Unlock()

	go func() {
		waitErr := cmd.Wait()
		c.stateMu.Lock()
		c.waitErr = waitErr
		c.stateMu.Unlock()
		close(procDone)
	}()

	if err := c.handshake(ctx); err != nil {
		c.Stop()
		return fmt.Errorf("initialize %s: %w", c.cfg.Name, err)
	}

	c.logger.Info("server started", "command", c.cfg.Command)
	return nil
}

// attach wires the connection's streams and starts the reader goroutine.
// Split from Start so tests can drive the protocol over in-memory pipes.
func (c *Client) attach(stdin io.WriteCloser, stdout io.Reader, procDone chan struct{}) {
	c.stateMu.Lock()
	c.stdin = stdin
	c.termErr = nil
	c.waitErr = nil
	c.messages = make(chan rpcMessage, 16)
	c.dead = make(chan struct{})
	c.procDone = procDone
	messages := c.messages
	dead := c.dead
	c.stateMu.Unlock()

	go c.readLoop(bufio.NewReader(stdout), messages, dead, procDone)
}

func (c *Client) handshake(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "youagent",
			"version": "0.1.0",
		},
	}
	if _, err := c.request(ctx, "initialize", params, time.Duration(c.cfg.StartupTimeout)*time.Second); err != nil {
		return err
	}
	return c.notify("notifications/initialized", map[string]any{})
}

func (c *Client) readLoop(stdout *bufio.Reader, messages chan<- rpcMessage, dead chan struct{}, procDone <-chan struct{}) {
	for {
		msg, err := readFrame(stdout)
		if err != nil {
			// Prefer reporting a process exit over the read error it
			// caused; the exit is what callers need to see.
			select {
			case <-procDone:
				c.setTerminal(fmt.Errorf("MCP process exited: %v", c.exitInfo()), dead)
			case <-time.After(200 * time.Millisecond):
				c.setTerminal(fmt.Errorf("MCP read failed: %v", err), dead)
			}
			return
		}
		select {
		case messages <- msg:
		case <-dead:
			return
		}
	}
}

func (c *Client) exitInfo() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.waitErr != nil {
		return c.waitErr.Error()
	}
	if c.cmd != nil && c.cmd.ProcessState != nil {
		return c.cmd.ProcessState.String()
	}
	return "exit status 0"
}

// setTerminal records the connection's terminal error. The dead channel
// identifies the connection generation so a stale reader from before a
// restart cannot poison the new connection.
func (c *Client) setTerminal(err error, dead chan struct{}) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.dead != dead || c.termErr != nil {
		return
	}
	c.termErr = err
	close(dead)
}

func (c *Client) terminalErr() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.termErr
}

func (c *Client) notify(method string, params any) error {
	c.stateMu.Lock()
	stdin := c.stdin
	c.stateMu.Unlock()
	if stdin == nil {
		return errors.New("MCP process not started")
	}
	return writeFrame(stdin, rpcMessage{JSONRPC: "2.0", Method: method, Params: params})
}

// request issues one blocking request and waits for the matching reply.
// A reply that never arrives within the timeout fails with a timeout
// error; a dead connection fails immediately.
func (c *Client) request(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	if err := c.terminalErr(); err != nil {
		return nil, err
	}

	c.stateMu.Lock()
	c.nextID++
	id := c.nextID
	stdin := c.stdin
	messages := c.messages
	dead := c.dead
	c.stateMu.Unlock()

	if stdin == nil {
		return nil, errors.New("MCP process not started")
	}
	if err := writeFrame(stdin, rpcMessage{JSONRPC: "2.0", ID: &id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case msg := <-messages:
			if msg.ID == nil || *msg.ID != id {
				continue // stray notification or stale reply
			}
			if msg.Error != nil {
				return nil, fmt.Errorf("MCP error: %d %s", msg.Error.Code, msg.Error.Message)
			}
			return msg.Result, nil
		case <-dead:
			return nil, c.terminalErr()
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, fmt.Errorf("MCP request timed out: %s", method)
		}
	}
}

// ListTools enumerates the server's tool descriptors.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	result, err := c.request(ctx, "tools/list", map[string]any{"cursor": nil}, time.Duration(c.cfg.RequestTimeout)*time.Second)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("decode tools/list: %w", err)
	}

	var descriptors []ToolDescriptor
	for _, t := range payload.Tools {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		description := strings.TrimSpace(t.Description)
		if description == "" {
			description = name
		}
		descriptors = append(descriptors, ToolDescriptor{
			Name:        name,
			Description: description,
			InputSchema: t.InputSchema,
		})
	}
	return descriptors, nil
}

// CallTool invokes one remote tool. A remote error flag maps to a failed
// result; transport and protocol failures are returned as errors for the
// registry boundary to convert.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (tools.Result, error) {
	params := map[string]any{"name": name, "arguments": arguments}
	result, err := c.request(ctx, "tools/call", params, time.Duration(c.cfg.RequestTimeout)*time.Second)
	if err != nil {
		return tools.Result{}, err
	}

	var payload map[string]any
	if err := json.Unmarshal(result, &payload); err != nil {
		return tools.Result{}, fmt.Errorf("decode tools/call: %w", err)
	}

	content := normalizeContent(payload)
	if isError, _ := payload["isError"].(bool); isError {
		return tools.Result{OK: false, Content: content}, nil
	}
	return tools.Result{OK: true, Content: content}, nil
}

// normalizeContent flattens a response's content blocks into one string:
// text items are concatenated, non-text items are serialized.
func normalizeContent(payload map[string]any) string {
	blocks, ok := payload["content"].([]any)
	if !ok {
		raw, _ := json.Marshal(payload)
		return string(raw)
	}

	var parts []string
	for _, item := range blocks {
		block, ok := item.(map[string]any)
		if !ok {
			parts = append(parts, fmt.Sprintf("%v", item))
			continue
		}
		if blockType, _ := block["type"].(string); blockType == "text" {
			if text, _ := block["text"].(string); text != "" {
				parts = append(parts, text)
			}
			continue
		}
		raw, _ := json.Marshal(block)
		parts = append(parts, string(raw))
	}

	if len(parts) == 0 {
		raw, _ := json.Marshal(payload)
		return string(raw)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// Stop attempts a graceful terminate, waits a short grace period, then
// force-kills the process.
func (c *Client) Stop() {
	c.stateMu.Lock()
	cmd := c.cmd
	stdin := c.stdin
	procDone := c.procDone
	c.cmd = nil
	c.stdin = nil
	c.started = false
	c.stateMu.Unlock()

	if stdin != nil {
		stdin.Close()
	}
	if cmd == nil || cmd.Process == nil {
		return
	}

	cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-procDone:
	case <-time.After(2 * time.Second):
		cmd.Process.Kill()
		<-procDone
	}
}
