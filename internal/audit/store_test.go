package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendAndRecent(t *testing.T) {
	s := testStore(t)

	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.Append(Entry{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Action: ActionFileRejected,
			Reason: "Path contains traversal pattern",
			Target: "user://../secret",
			Caller: "SaveLoader",
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := s.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first.
	if !entries[0].Time.After(entries[1].Time) {
		t.Errorf("entries not ordered newest first: %v then %v", entries[0].Time, entries[1].Time)
	}
	if entries[0].Caller != "SaveLoader" {
		t.Errorf("caller = %q", entries[0].Caller)
	}
}

func TestStore_CountByAction(t *testing.T) {
	s := testStore(t)

	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		if err := s.Append(Entry{Time: now, Action: ActionURLRejected, Reason: "r", Target: "t", Caller: "c"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Append(Entry{Time: now, Action: ActionProcessApproved, Reason: "r", Target: "t", Caller: "c"}); err != nil {
		t.Fatal(err)
	}

	counts, err := s.CountByAction()
	if err != nil {
		t.Fatal(err)
	}
	if counts[ActionURLRejected] != 4 {
		t.Errorf("url rejections = %d, want 4", counts[ActionURLRejected])
	}
	if counts[ActionProcessApproved] != 1 {
		t.Errorf("process approvals = %d, want 1", counts[ActionProcessApproved])
	}
}

func TestStore_AsWriterSink(t *testing.T) {
	s := testStore(t)
	w := NewWriter(t.TempDir(), "sandguard", nil)
	w.AddSink(s)

	w.Append(Entry{Action: ActionProcessRejected, Reason: "Blocked in secure mode", Target: "git", Caller: "Updater"})

	entries, err := s.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("store has %d entries, want 1", len(entries))
	}
	if entries[0].Reason != "Blocked in secure mode" {
		t.Errorf("reason = %q", entries[0].Reason)
	}
}
