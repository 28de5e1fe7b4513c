package security

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/EmberRavager/youagent/internal/logging"
)

// Manager holds the current policy for a workspace and reloads it when the
// policy file changes on disk. Consumers read through Policy(); reads and
// reloads are synchronized by a single RWMutex.
type Manager struct {
	mu        sync.RWMutex
	policy    Policy
	workspace string

	watcher   *fsnotify.Watcher
	stopWatch chan struct{}
	logger    *logging.Logger
}

// NewManager loads the workspace policy and returns a manager around it.
func NewManager(workspace string) *Manager {
	return &Manager{
		policy:    Load(workspace),
		workspace: workspace,
		stopWatch: make(chan struct{}),
		logger:    logging.Default("security"),
	}
}

// Policy returns the current policy snapshot.
func (m *Manager) Policy() Policy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy
}

// Watch starts a file watcher on the policy file's directory and reloads
// the policy on write events. It is a no-op if called twice.
func (m *Manager) Watch() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create policy watcher: %w", err)
	}

	dir := filepath.Dir(PolicyPath(m.workspace))
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch policy dir: %w", err)
	}

	m.watcher = watcher
	go m.watchLoop(watcher)
	return nil
}

func (m *Manager) watchLoop(watcher *fsnotify.Watcher) {
	target := filepath.Base(PolicyPath(m.workspace))
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				// Debounce rapid writes from editors.
				time.Sleep(100 * time.Millisecond)
				m.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("policy watcher error", "error", err)
		case <-m.stopWatch:
			return
		}
	}
}

func (m *Manager) reload() {
	policy := Load(m.workspace)
	m.mu.Lock()
	m.policy = policy
	m.mu.Unlock()
	m.logger.Info("security policy reloaded", "path", PolicyPath(m.workspace))
}

// Close stops the watcher if one is running.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcher == nil {
		return nil
	}
	close(m.stopWatch)
	err := m.watcher.Close()
	m.watcher = nil
	return err
}
