package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestSweeper_RemovesOnlyExpiredLogs(t *testing.T) {
	dir := t.TempDir()

	now := time.Date(2025, 5, 20, 4, 0, 0, 0, time.UTC)
	old := filepath.Join(dir, "sandguard-2025-05-01.jsonl")
	fresh := filepath.Join(dir, "sandguard-2025-05-19.jsonl")
	unrelated := filepath.Join(dir, "notes.txt")
	touch(t, old)
	touch(t, old+".chain")
	touch(t, fresh)
	touch(t, unrelated)

	s, err := NewSweeper(dir, "sandguard", 7, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	removed, err := s.SweepOnce(now)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed %d files, want 1", removed)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired log should be gone")
	}
	if _, err := os.Stat(old + ".chain"); !os.IsNotExist(err) {
		t.Error("chain sidecar should follow its log")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh log should survive")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("unrelated files should survive")
	}
}

func TestSweeper_DisabledRetentionKeepsEverything(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "sandguard-2020-01-01.jsonl"))

	s, err := NewSweeper(dir, "sandguard", 0, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	removed, err := s.SweepOnce(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("retention disabled but removed %d files", removed)
	}
}

func TestSweeper_RejectsBadCron(t *testing.T) {
	if _, err := NewSweeper(t.TempDir(), "sandguard", 7, "not a cron expr", nil); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestSweeper_MissingDirIsNotAnError(t *testing.T) {
	s, err := NewSweeper(filepath.Join(t.TempDir(), "nope"), "sandguard", 7, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SweepOnce(time.Now()); err != nil {
		t.Errorf("sweeping a missing dir should be a no-op, got %v", err)
	}
}
