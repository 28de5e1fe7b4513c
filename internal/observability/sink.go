// Package observability records append-only events and per-type counters
// under the workspace, and mirrors the counters into Prometheus.
package observability

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const recentCap = 300

// Event is one immutable observability record.
type Event struct {
	Timestamp float64        `json:"ts"`
	Type      string         `json:"type"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Sink appends events to events.jsonl, keeps per-type counters in
// metrics.json (reloaded on construction so counts survive restarts),
// and holds a bounded in-memory ring of recent events.
type Sink struct {
	mu          sync.Mutex
	eventsPath  string
	metricsPath string
	counters    map[string]int64
	recent      []Event
	promEvents  *prometheus.CounterVec
}

// NewSink creates a sink rooted at <workspace>/.youagent/observability.
// The Prometheus counter is registered on reg when reg is non-nil.
func NewSink(workspace string, reg prometheus.Registerer) (*Sink, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}
	dir := filepath.Join(abs, ".youagent", "observability")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create observability dir: %w", err)
	}

	s := &Sink{
		eventsPath:  filepath.Join(dir, "events.jsonl"),
		metricsPath: filepath.Join(dir, "metrics.json"),
		counters:    map[string]int64{},
		promEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "youagent_events_total",
			Help: "Observability events recorded, by event type.",
		}, []string{"type"}),
	}
	if raw, err := os.ReadFile(s.metricsPath); err == nil {
		var stored map[string]int64
		if err := json.Unmarshal(raw, &stored); err == nil {
			s.counters = stored
		}
	}
	if reg != nil {
		if err := reg.Register(s.promEvents); err != nil {
			return nil, fmt.Errorf("register event counter: %w", err)
		}
	}
	return s, nil
}

// Record appends an event, bumps its counter, and flushes the counter
// snapshot. Disk failures are swallowed so observability never breaks
// the operation being observed.
func (s *Sink) Record(eventType string, fields map[string]any) {
	ev := Event{
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Type:      eventType,
		Fields:    fields,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[eventType]++
	s.promEvents.WithLabelValues(eventType).Inc()

	s.recent = append(s.recent, ev)
	if len(s.recent) > recentCap {
		s.recent = s.recent[len(s.recent)-recentCap:]
	}

	if line, err := json.Marshal(ev); err == nil {
		if f, err := os.OpenFile(s.eventsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			f.Write(append(line, '\n'))
			f.Close()
		}
	}
	if raw, err := json.MarshalIndent(s.counters, "", "  "); err == nil {
		os.WriteFile(s.metricsPath, raw, 0o644)
	}
}

// Counters returns a snapshot of the per-type counters.
func (s *Sink) Counters() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		out[k] = v
	}
	return out
}

// Recent returns up to limit of the newest events, oldest first. The
// limit is clamped to 1..300.
func (s *Sink) Recent(limit int) []Event {
	if limit < 1 {
		limit = 1
	}
	if limit > recentCap {
		limit = recentCap
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]Event, limit)
	copy(out, s.recent[len(s.recent)-limit:])
	return out
}
