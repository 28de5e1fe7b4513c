// Package tasking stores and executes recurring scheduled prompts.
package tasking

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task statuses.
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusError   = "error"
)

// MinIntervalSeconds is the floor applied to every task interval.
const MinIntervalSeconds = 10

// DefaultIntervalSeconds is used when a task is added with no interval.
const DefaultIntervalSeconds = 300

// Task is one durable scheduled prompt plus its mutable run state.
type Task struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Prompt          string `json:"prompt"`
	Provider        string `json:"provider,omitempty"`
	Model           string `json:"model,omitempty"`
	Agent           string `json:"agent,omitempty"`
	Session         string `json:"session,omitempty"`
	Workspace       string `json:"workspace,omitempty"`
	BaseURL         string `json:"base_url,omitempty"`
	NoMemory        bool   `json:"no_memory,omitempty"`
	MCPConfig       string `json:"mcp_config,omitempty"`
	IntervalSeconds int    `json:"interval_seconds"`
	NextRunAt       int64  `json:"next_run_at"`
	Enabled         bool   `json:"enabled"`

	Status    string `json:"status"`
	StepIndex int    `json:"step_index"`
	StepTotal int    `json:"step_total"`
	LastRunAt int64  `json:"last_run_at,omitempty"`
	LastError string `json:"last_error,omitempty"`
	LastReply string `json:"last_reply,omitempty"`
	Runs      int    `json:"runs"`
	UpdatedAt int64  `json:"updated_at"`
}

// FloorInterval clamps an interval to the allowed minimum, substituting
// the default for missing values.
func FloorInterval(seconds int) int {
	if seconds <= 0 {
		return DefaultIntervalSeconds
	}
	if seconds < MinIntervalSeconds {
		return MinIntervalSeconds
	}
	return seconds
}

// NewTaskID generates a short stable task id.
func NewTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Due reports whether the task should run at the given instant.
func (t *Task) Due(now time.Time) bool {
	return t.Enabled && t.Status != StatusRunning && t.NextRunAt <= now.Unix()
}
