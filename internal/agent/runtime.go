package agent

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/EmberRavager/youagent/internal/llm"
	"github.com/EmberRavager/youagent/internal/logging"
	"github.com/EmberRavager/youagent/internal/memory"
	"github.com/EmberRavager/youagent/internal/tools"
)

// RoundLimitReply is appended and returned when the tool-round limit
// runs out. It is a circuit breaker, not an error.
const RoundLimitReply = "Stopped after too many tool rounds. Please narrow the task."

// Event is one step of an ask loop, delivered to the caller's callback.
type Event struct {
	Phase string `json:"phase"`
	Round int    `json:"round,omitempty"`
	Tool  string `json:"tool,omitempty"`
	Index int    `json:"index,omitempty"`
	Total int    `json:"total,omitempty"`
	OK    bool   `json:"ok,omitempty"`
}

// EventCallback receives loop events. A nil callback is allowed.
type EventCallback func(Event)

// Runtime drives the tool-calling conversation loop for one session.
type Runtime struct {
	profile  Profile
	client   llm.ChatClient
	registry *tools.Registry
	mem      *memory.SessionMemory
	logger   *logging.Logger

	messages []llm.Message
	aborted  atomic.Bool
}

// NewRuntime builds a runtime over an existing message log. When mem is
// non-nil the log is loaded from it; either way the leading system
// message is forced to the current profile's prompt so profile changes
// take effect on old sessions.
func NewRuntime(profile Profile, client llm.ChatClient, registry *tools.Registry, mem *memory.SessionMemory, logger *logging.Logger) *Runtime {
	if logger == nil {
		logger = logging.Default("agent")
	}
	rt := &Runtime{
		profile:  profile,
		client:   client,
		registry: registry,
		mem:      mem,
		logger:   logger,
	}
	if mem != nil {
		rt.messages = mem.Load()
	}
	if len(rt.messages) > 0 && rt.messages[0].Role == "system" {
		rt.messages[0].Content = profile.SystemPrompt
	} else {
		rt.messages = append([]llm.Message{{Role: "system", Content: profile.SystemPrompt}}, rt.messages...)
	}
	return rt
}

// Profile returns the profile the runtime was built with.
func (r *Runtime) Profile() Profile {
	return r.profile
}

// Messages returns a copy of the current message log.
func (r *Runtime) Messages() []llm.Message {
	out := make([]llm.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Abort requests a cooperative stop of the current ask loop. The check
// happens between rounds and between tool calls; in-flight LLM or tool
// work runs to its own timeout.
func (r *Runtime) Abort() {
	r.aborted.Store(true)
}

// Aborted reports whether an abort was requested.
func (r *Runtime) Aborted() bool {
	return r.aborted.Load()
}

// ResetAbort clears the abort flag before a new ask.
func (r *Runtime) ResetAbort() {
	r.aborted.Store(false)
}

// Ask runs the loop: call the LLM, execute requested tools in order,
// feed results back, until the model replies without tool calls or the
// round limit is hit. LLM transport errors propagate; tool failures
// are folded into the log as {ok:false} turns for the model to see.
func (r *Runtime) Ask(ctx context.Context, userText string, cb EventCallback) (string, error) {
	emit := func(ev Event) {
		if cb != nil {
			cb(ev)
		}
	}

	r.messages = append(r.messages, llm.Message{Role: "user", Content: userText})
	r.persist()

	schemas := r.registry.Schemas()
	for round := 1; round <= r.profile.MaxToolRounds; round++ {
		if r.aborted.Load() {
			emit(Event{Phase: "aborted", Round: round})
			return "", context.Canceled
		}

		emit(Event{Phase: "llm_round_start", Round: round})
		reply, err := r.client.ChatCompletion(ctx, r.messages, schemas)
		emit(Event{Phase: "llm_round_end", Round: round})
		if err != nil {
			return "", err
		}

		if len(reply.ToolCalls) == 0 {
			r.messages = append(r.messages, llm.Message{Role: "assistant", Content: reply.Content})
			r.persist()
			return reply.Content, nil
		}

		r.messages = append(r.messages, llm.Message{
			Role:      "assistant",
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		})
		r.persist()

		total := len(reply.ToolCalls)
		for i, call := range reply.ToolCalls {
			if r.aborted.Load() {
				emit(Event{Phase: "aborted", Round: round})
				return "", context.Canceled
			}

			name := call.Function.Name
			emit(Event{Phase: "tool_start", Round: round, Tool: name, Index: i + 1, Total: total})

			args := map[string]any{}
			if call.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
					r.logger.Warn("bad tool arguments", "tool", name, "error", err)
					args = map[string]any{}
				}
			}

			result := r.registry.Call(ctx, name, args)
			emit(Event{Phase: "tool_end", Round: round, Tool: name, Index: i + 1, Total: total, OK: result.OK})

			body, err := json.Marshal(result)
			if err != nil {
				body = []byte(`{"ok":false,"content":"result not serializable"}`)
			}
			r.messages = append(r.messages, llm.Message{
				Role:       "tool",
				Content:    string(body),
				ToolCallID: call.ID,
			})
			r.persist()
		}
	}

	r.messages = append(r.messages, llm.Message{Role: "assistant", Content: RoundLimitReply})
	r.persist()
	return RoundLimitReply, nil
}

func (r *Runtime) persist() {
	if r.mem == nil {
		return
	}
	if err := r.mem.Save(r.messages); err != nil {
		r.logger.Warn("persist session failed", "error", err)
	}
}
