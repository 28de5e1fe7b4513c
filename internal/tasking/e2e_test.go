package tasking

import (
	"context"
	"testing"

	"github.com/EmberRavager/youagent/internal/agent"
	"github.com/EmberRavager/youagent/internal/llm"
	"github.com/EmberRavager/youagent/internal/security"
	"github.com/EmberRavager/youagent/internal/testutil"
	"github.com/EmberRavager/youagent/internal/tools"
)

// TestScheduledAskEndToEnd drives a real agent runtime from the task
// runner: one due task, one scripted LLM exchange, reply stored back on
// the task record.
func TestScheduledAskEndToEnd(t *testing.T) {
	workspace := t.TempDir()
	store := NewStore(workspace)
	task, err := store.Add(Task{Name: "greeter", Prompt: "ping", IntervalSeconds: 120})
	if err != nil {
		t.Fatal(err)
	}

	client := &testutil.ScriptedChatClient{
		Script: []llm.Message{
			testutil.ToolCallReply(testutil.Call("c1", "write_file", `{"path":"ping.txt","content":"pong"}`)),
			testutil.TextReply("hi"),
		},
	}

	run := func(ctx context.Context, task Task, progress ProgressFunc) (string, error) {
		registry := tools.NewRegistry(workspace, security.NewManager(workspace))
		profile := agent.Profile{Name: "worker", SystemPrompt: "test", MaxToolRounds: 4}
		rt := agent.NewRuntime(profile, client, registry, nil, nil)
		return rt.Ask(ctx, task.Prompt, func(ev agent.Event) {
			if ev.Phase == "tool_start" {
				progress(Progress{StepIndex: ev.Index, StepTotal: ev.Total})
			}
		})
	}

	var events []string
	count := RunDueTasks(context.Background(), store, run, func(eventType string, fields map[string]any) {
		events = append(events, eventType)
	})
	if count != 1 {
		t.Fatalf("executed %d", count)
	}

	got, _ := store.Get(task.ID)
	if got.LastReply != "hi" || got.Status != StatusIdle || got.Runs != 1 {
		t.Errorf("task after run = %+v", got)
	}
	if got.StepTotal != 1 {
		t.Errorf("step_total = %d, want 1 from the tool round", got.StepTotal)
	}
	if len(events) != 2 || events[1] != "task_succeeded" {
		t.Errorf("events = %v", events)
	}
}
