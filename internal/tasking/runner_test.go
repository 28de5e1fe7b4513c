package tasking

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunDueTasksSuccess(t *testing.T) {
	store := NewStore(t.TempDir())
	task, _ := store.Add(Task{Name: "ping", Prompt: "say hi", IntervalSeconds: 60})

	var events []string
	run := func(ctx context.Context, task Task, progress ProgressFunc) (string, error) {
		progress(Progress{StepIndex: 1, StepTotal: 2})
		return "hi", nil
	}

	before := time.Now().Unix()
	count := RunDueTasks(context.Background(), store, run, func(eventType string, fields map[string]any) {
		events = append(events, eventType)
	})
	if count != 1 {
		t.Fatalf("executed %d, want 1", count)
	}

	got, ok := store.Get(task.ID)
	if !ok {
		t.Fatal("task vanished")
	}
	if got.Status != StatusIdle || got.Runs != 1 || got.LastReply != "hi" || got.LastError != "" {
		t.Errorf("post-run state = %+v", got)
	}
	if got.NextRunAt < before+60 {
		t.Errorf("next_run_at = %d, want at least now+interval", got.NextRunAt)
	}
	if got.LastRunAt < before {
		t.Error("last_run_at not stamped")
	}

	if len(events) != 2 || events[0] != "task_started" || events[1] != "task_succeeded" {
		t.Errorf("events = %v", events)
	}
}

func TestRunDueTasksFailure(t *testing.T) {
	store := NewStore(t.TempDir())
	task, _ := store.Add(Task{Prompt: "boom", IntervalSeconds: 30})

	run := func(ctx context.Context, task Task, progress ProgressFunc) (string, error) {
		return "", errors.New("provider unavailable")
	}

	before := time.Now().Unix()
	if count := RunDueTasks(context.Background(), store, run, nil); count != 1 {
		t.Fatalf("executed %d, want 1", count)
	}

	got, _ := store.Get(task.ID)
	if got.Status != StatusError || got.LastError != "provider unavailable" || got.Runs != 1 {
		t.Errorf("post-failure state = %+v", got)
	}
	if got.NextRunAt < before+30 {
		t.Error("failed run must still advance next_run_at")
	}
}

func TestRunDueTasksPanicBecomesFailure(t *testing.T) {
	store := NewStore(t.TempDir())
	task, _ := store.Add(Task{Prompt: "panic"})

	run := func(ctx context.Context, task Task, progress ProgressFunc) (string, error) {
		panic("worker blew up")
	}
	if count := RunDueTasks(context.Background(), store, run, nil); count != 1 {
		t.Fatalf("panicking task still counts as executed")
	}

	got, _ := store.Get(task.ID)
	if got.Status != StatusError || got.LastError == "" {
		t.Errorf("panic not recorded: %+v", got)
	}
}

func TestRunDueTasksIdempotentWhenNothingDue(t *testing.T) {
	store := NewStore(t.TempDir())
	store.Add(Task{Prompt: "later", IntervalSeconds: 600})

	run := func(ctx context.Context, task Task, progress ProgressFunc) (string, error) {
		return "ok", nil
	}

	if count := RunDueTasks(context.Background(), store, run, nil); count != 1 {
		t.Fatal("first pass should run the freshly added task")
	}
	// The task just ran; its next_run_at moved into the future.
	if count := RunDueTasks(context.Background(), store, run, nil); count != 0 {
		t.Errorf("second pass executed %d, want 0", count)
	}
}

func TestProgressMirroredIntoTask(t *testing.T) {
	store := NewStore(t.TempDir())
	store.Add(Task{Prompt: "steps"})

	var observed Task
	run := func(ctx context.Context, current Task, progress ProgressFunc) (string, error) {
		progress(Progress{StepIndex: 2, StepTotal: 5})
		observed, _ = store.Get(current.ID)
		return "done", nil
	}
	RunDueTasks(context.Background(), store, run, nil)

	if observed.StepIndex != 2 || observed.StepTotal != 5 {
		t.Errorf("mid-run progress = %d/%d, want 2/5", observed.StepIndex, observed.StepTotal)
	}
	if observed.Status != StatusRunning {
		t.Errorf("mid-run status = %q, want running", observed.Status)
	}
}
