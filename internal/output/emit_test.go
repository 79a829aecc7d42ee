package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewEmitSink_RejectsBadInput(t *testing.T) {
	if _, err := NewEmitSink(nil, "json"); err == nil {
		t.Fatal("expected error for nil writer")
	}
	if _, err := NewEmitSink(&bytes.Buffer{}, "yaml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestEmitSink_JSONAggregatesOnClose(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewEmitSink(&buf, "json")
	if err != nil {
		t.Fatalf("NewEmitSink failed: %v", err)
	}

	_ = s.Write(Event{Type: "run.started", Login: "me"}) // ignored in aggregate mode
	_ = s.Write(ItemResult{Repo: "me/a", Action: "delete", Status: "succeeded"})
	_ = s.Write(ItemResult{Repo: "me/b", Action: "delete", Status: "failed", Reason: "boom"})

	if buf.Len() != 0 {
		t.Fatalf("json mode must not write before Close, got:\n%s", buf.String())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var results []ItemResult
	if err := json.Unmarshal(buf.Bytes(), &results); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Reason != "boom" {
		t.Fatalf("expected reason to survive the round trip, got %q", results[1].Reason)
	}
}

func TestEmitSink_NDJSONStreamsEvents(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewEmitSink(&buf, "ndjson")
	if err != nil {
		t.Fatalf("NewEmitSink failed: %v", err)
	}

	_ = s.Write(Event{Type: "run.started", Login: "me"})
	_ = s.Write(ItemResult{Repo: "me/a", Action: "delete", Status: "succeeded"})
	_ = s.Write(Event{Type: "run.finished", Succeeded: 1})
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 NDJSON lines, got %d:\n%s", len(lines), buf.String())
	}

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if first.Type != "run.started" || first.Login != "me" {
		t.Fatalf("unexpected first event: %+v", first)
	}

	var second Event
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 2 is not valid JSON: %v", err)
	}
	if second.Type != "item.result" || second.ItemResult == nil || second.Repo != "me/a" {
		t.Fatalf("expected item.result wrapping the item, got: %s", lines[1])
	}
}

func TestManager_FansOutToAllSinks(t *testing.T) {
	var a, b bytes.Buffer
	m := NewManager()
	sa, _ := NewEmitSink(&a, "ndjson")
	sb, _ := NewEmitSink(&b, "ndjson")
	if err := m.AddSink(sa); err != nil {
		t.Fatalf("AddSink failed: %v", err)
	}
	if err := m.AddSink(sb); err != nil {
		t.Fatalf("AddSink failed: %v", err)
	}

	if err := m.Write(Event{Type: "run.started"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if a.String() != b.String() || a.Len() == 0 {
		t.Fatalf("expected identical output on both sinks:\n%s\n%s", a.String(), b.String())
	}
}
