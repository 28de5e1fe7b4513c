package llm

import "context"

// Message represents one conversation turn in the wire format the chat
// endpoint consumes. The first message of a conversation is always the
// system prompt.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // links a tool turn to its call
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // function
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its raw JSON argument text.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is a tool schema advertised to the model.
type Tool struct {
	Type     string   `json:"type"` // function
	Function Function `json:"function"`
}

// Function describes a callable tool.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// ChatClient sends one chat completion request. Transport failures are
// returned to the caller and never retried here.
type ChatClient interface {
	ChatCompletion(ctx context.Context, messages []Message, tools []Tool) (Message, error)
}
