// Package tools provides the built-in tool set and the registry that
// dispatches model-requested tool calls by name.
package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/EmberRavager/youagent/internal/llm"
	"github.com/EmberRavager/youagent/internal/logging"
	"github.com/EmberRavager/youagent/internal/security"
)

// ErrDuplicateTool is returned when a tool name is registered twice.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Result is the outcome of one tool call. Failures are data the model can
// see and react to, never control-flow faults.
type Result struct {
	OK      bool   `json:"ok"`
	Content string `json:"content"`
}

// Ok builds a successful result.
func Ok(content string) Result {
	return Result{OK: true, Content: content}
}

// Fail builds a failed result with a human-readable reason.
func Fail(format string, args ...any) Result {
	return Result{OK: false, Content: fmt.Sprintf(format, args...)}
}

// Handler executes one tool call with already-parsed arguments.
type Handler func(ctx context.Context, args map[string]any) Result

// Spec is an immutable tool registration record.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     Handler
}

// Registry holds named tool specifications in registration order:
// built-ins first, then mounted external tools in mount order.
type Registry struct {
	workspace string
	policy    *security.Manager
	logger    *logging.Logger

	specs []Spec
	index map[string]int
}

// NewRegistry builds a registry rooted at the workspace with all built-in
// tools registered.
func NewRegistry(workspace string, policy *security.Manager) *Registry {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}
	r := &Registry{
		workspace: abs,
		policy:    policy,
		logger:    logging.Default("tools"),
		index:     make(map[string]int),
	}
	r.registerBuiltins()
	return r
}

// Workspace returns the absolute workspace root all tools are confined to.
func (r *Registry) Workspace() string {
	return r.workspace
}

// Register adds a tool specification. Registering a name twice is a
// construction error.
func (r *Registry) Register(spec Spec) error {
	if _, exists := r.index[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, spec.Name)
	}
	r.index[spec.Name] = len(r.specs)
	r.specs = append(r.specs, spec)
	return nil
}

// Names returns every registered tool name in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for _, spec := range r.specs {
		names = append(names, spec.Name)
	}
	return names
}

// Schemas produces the tool list sent with every chat completion request,
// in registration order.
func (r *Registry) Schemas() []llm.Tool {
	schemas := make([]llm.Tool, 0, len(r.specs))
	for _, spec := range r.specs {
		schemas = append(schemas, llm.Tool{
			Type: "function",
			Function: llm.Function{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}
	return schemas
}

// Call dispatches a tool by name. Unknown names and handler panics become
// failed results; Call never returns an error to the runtime.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (result Result) {
	idx, ok := r.index[name]
	if !ok {
		return Fail("Unknown tool: %s", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool handler panicked", "tool", name, "panic", rec)
			result = Fail("tool %s panicked: %v", name, rec)
		}
	}()

	if args == nil {
		args = map[string]any{}
	}
	return r.specs[idx].Handler(ctx, args)
}

func (r *Registry) registerBuiltins() {
	// Built-in names are fixed and unique, so registration cannot fail.
	for _, spec := range []Spec{
		r.listFilesSpec(),
		r.readFileSpec(),
		r.writeFileSpec(),
		r.runShellSpec(),
		r.findFilesSpec(),
		r.grepTextSpec(),
		r.fetchURLSpec(),
		r.readJSONSpec(),
		r.writeJSONSpec(),
		r.browsePageSpec(),
	} {
		if err := r.Register(spec); err != nil {
			panic(err)
		}
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
