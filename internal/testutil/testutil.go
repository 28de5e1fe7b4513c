// Package testutil provides shared fakes and fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/EmberRavager/youagent/internal/llm"
)

// ScriptedChatClient implements llm.ChatClient by replaying a fixed
// sequence of replies. When the script is exhausted it keeps returning
// Fallback, or an error if Fallback is unset.
type ScriptedChatClient struct {
	Script   []llm.Message
	Fallback *llm.Message

	Calls    int
	Requests [][]llm.Message
}

func (c *ScriptedChatClient) ChatCompletion(ctx context.Context, messages []llm.Message, tools []llm.Tool) (llm.Message, error) {
	snapshot := make([]llm.Message, len(messages))
	copy(snapshot, messages)
	c.Requests = append(c.Requests, snapshot)
	c.Calls++

	if c.Calls <= len(c.Script) {
		return c.Script[c.Calls-1], nil
	}
	if c.Fallback != nil {
		return *c.Fallback, nil
	}
	return llm.Message{}, fmt.Errorf("scripted client exhausted after %d calls", len(c.Script))
}

// ToolCallReply builds an assistant message requesting the given calls.
func ToolCallReply(calls ...llm.ToolCall) llm.Message {
	return llm.Message{Role: "assistant", ToolCalls: calls}
}

// TextReply builds a plain assistant message.
func TextReply(text string) llm.Message {
	return llm.Message{Role: "assistant", Content: text}
}

// Call builds one tool call with a JSON argument string.
func Call(id, name, args string) llm.ToolCall {
	return llm.ToolCall{
		ID:   id,
		Type: "function",
		Function: llm.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

// Workspace creates a temp workspace directory for a test.
func Workspace(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}
