package tasking

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store keeps tasks in one JSON document under the workspace. Every
// operation is a full read-modify-write cycle under the mutex, so
// concurrent callers never see partial state.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store rooted at <workspace>/.youagent/tasks.json.
func NewStore(workspace string) *Store {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}
	return &Store{path: filepath.Join(abs, ".youagent", "tasks.json")}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() []Task {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var tasks []Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil
	}
	return tasks
}

func (s *Store) save(tasks []Task) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create task dir: %w", err)
	}
	raw, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// List returns all tasks.
func (s *Store) List() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add stores a new task. The id, interval floor, status, enabled flag,
// and an immediately-due next_run_at are filled in here.
func (s *Store) Add(task Task) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	task.ID = NewTaskID()
	task.IntervalSeconds = FloorInterval(task.IntervalSeconds)
	task.NextRunAt = now
	task.Enabled = true
	task.Status = StatusIdle
	task.UpdatedAt = now

	tasks := append(s.load(), task)
	if err := s.save(tasks); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Delete removes a task by id and reports whether it existed.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.load()
	kept := tasks[:0]
	found := false
	for _, t := range tasks {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return false, nil
	}
	return true, s.save(kept)
}

// Update applies mutate to the task with the given id under the store
// lock and returns the updated record, or ok=false if the id is absent.
// updated_at is always bumped.
func (s *Store) Update(id string, mutate func(*Task)) (Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.load()
	for i := range tasks {
		if tasks[i].ID != id {
			continue
		}
		mutate(&tasks[i])
		tasks[i].UpdatedAt = time.Now().Unix()
		if err := s.save(tasks); err != nil {
			return Task{}, false, err
		}
		return tasks[i], true, nil
	}
	return Task{}, false, nil
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.load() {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Due returns the tasks eligible to run at the given instant.
func (s *Store) Due(now time.Time) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Task
	for _, t := range s.load() {
		if t.Due(now) {
			due = append(due, t)
		}
	}
	return due
}
