package tasking

import (
	"context"
	"fmt"
	"time"
)

// Progress reports tool-call advancement within one task run.
type Progress struct {
	StepIndex int
	StepTotal int
}

// ProgressFunc receives Progress updates while a task runs.
type ProgressFunc func(Progress)

// Runner executes one full agent ask for a task and returns the reply.
type Runner func(ctx context.Context, task Task, progress ProgressFunc) (string, error)

// EventFunc receives task lifecycle events (task_started, task_succeeded,
// task_failed) with free-form fields.
type EventFunc func(eventType string, fields map[string]any)

// RunDueTasks executes every task due at call time, one at a time, and
// returns how many ran. Tasks that become due mid-batch wait for the
// next invocation. The same primitive backs the one-shot run command,
// the poll loop, and the web server's background scheduler.
func RunDueTasks(ctx context.Context, store *Store, run Runner, onEvent EventFunc) int {
	emit := func(eventType string, fields map[string]any) {
		if onEvent != nil {
			onEvent(eventType, fields)
		}
	}

	due := store.Due(time.Now())
	executed := 0
	for _, snapshot := range due {
		task, ok, err := store.Update(snapshot.ID, func(t *Task) {
			t.Status = StatusRunning
			t.StepIndex = 0
			t.StepTotal = 0
			t.LastError = ""
			t.LastReply = ""
			t.LastRunAt = time.Now().Unix()
		})
		if err != nil || !ok {
			continue
		}
		emit("task_started", map[string]any{"task_id": task.ID, "name": task.Name})

		reply, runErr := runGuarded(ctx, run, task, func(p Progress) {
			store.Update(task.ID, func(t *Task) {
				t.StepIndex = p.StepIndex
				t.StepTotal = p.StepTotal
			})
		})

		next := time.Now().Unix() + int64(FloorInterval(task.IntervalSeconds))
		if runErr != nil {
			store.Update(task.ID, func(t *Task) {
				t.Status = StatusError
				t.Runs++
				t.LastError = runErr.Error()
				t.NextRunAt = next
			})
			emit("task_failed", map[string]any{"task_id": task.ID, "name": task.Name, "error": runErr.Error()})
		} else {
			store.Update(task.ID, func(t *Task) {
				t.Status = StatusIdle
				t.Runs++
				t.LastReply = reply
				t.NextRunAt = next
			})
			emit("task_succeeded", map[string]any{"task_id": task.ID, "name": task.Name})
		}
		executed++
	}
	return executed
}

// runGuarded converts a runner panic into a failed run so one bad task
// cannot take the scheduler down.
func runGuarded(ctx context.Context, run Runner, task Task, progress ProgressFunc) (reply string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task runner panic: %v", rec)
		}
	}()
	return run(ctx, task, progress)
}

// PollLoop calls RunDueTasks every interval until the context ends.
func PollLoop(ctx context.Context, store *Store, run Runner, onEvent EventFunc, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			RunDueTasks(ctx, store, run, onEvent)
		}
	}
}
