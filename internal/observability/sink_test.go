package observability

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCountersPersistAcrossRestarts(t *testing.T) {
	workspace := t.TempDir()

	sink, err := NewSink(workspace, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	sink.Record("chat_started", nil)
	sink.Record("chat_started", nil)
	sink.Record("task_failed", map[string]any{"task_id": "t1"})

	reopened, err := NewSink(workspace, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	counters := reopened.Counters()
	if counters["chat_started"] != 2 || counters["task_failed"] != 1 {
		t.Errorf("counters after restart = %v", counters)
	}
}

func TestEventsAppendedAsJSONL(t *testing.T) {
	workspace := t.TempDir()
	sink, err := NewSink(workspace, nil)
	if err != nil {
		t.Fatal(err)
	}
	sink.Record("a", map[string]any{"k": "v"})
	sink.Record("b", nil)

	f, err := os.Open(filepath.Join(workspace, ".youagent", "observability", "events.jsonl"))
	if err != nil {
		t.Fatalf("events file: %v", err)
	}
	defer f.Close()

	var types []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad line %q: %v", scanner.Text(), err)
		}
		types = append(types, ev.Type)
	}
	if len(types) != 2 || types[0] != "a" || types[1] != "b" {
		t.Errorf("event types = %v", types)
	}
}

func TestRecentClampAndOrder(t *testing.T) {
	sink, err := NewSink(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 350; i++ {
		sink.Record("tick", map[string]any{"i": i})
	}

	if got := len(sink.Recent(1000)); got != 300 {
		t.Errorf("Recent(1000) returned %d, want clamped to 300", got)
	}
	if got := len(sink.Recent(0)); got != 1 {
		t.Errorf("Recent(0) returned %d, want clamped to 1", got)
	}

	last := sink.Recent(2)
	if len(last) != 2 {
		t.Fatalf("Recent(2) = %d events", len(last))
	}
	// Oldest first within the window.
	if last[0].Fields["i"] != 348 || last[1].Fields["i"] != 349 {
		t.Errorf("Recent window = %v, %v", last[0].Fields["i"], last[1].Fields["i"])
	}
}
