// Package audit writes the security gate's append-only audit trail.
// One denial (or explicitly approved process execution) becomes exactly
// one line of JSON in a date-rotated log file. Appending never fails
// from the caller's point of view: a decision that was already made
// must not change because the disk was full.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Audit actions follow the domain.entity.verb convention.
const (
	ActionFileRejected    = "security.file.rejected"
	ActionURLRejected     = "security.url.rejected"
	ActionProcessRejected = "security.process.rejected"
	ActionProcessApproved = "security.process.approved"
)

// tsFormat is the wire timestamp layout (ISO-8601, UTC, millisecond precision).
const tsFormat = "2006-01-02T15:04:05.000Z"

// Entry is a single audit record.
type Entry struct {
	Time   time.Time
	Action string
	Reason string
	Target string
	Caller string
}

// wireEntry is the JSONL representation of an Entry.
type wireEntry struct {
	TS     string `json:"ts"`
	Action string `json:"action"`
	Reason string `json:"reason"`
	Target string `json:"target"`
	Caller string `json:"caller"`
}

// Marshal serializes the entry as one compact JSON object.
func (e Entry) Marshal() ([]byte, error) {
	return json.Marshal(wireEntry{
		TS:     e.Time.UTC().Format(tsFormat),
		Action: e.Action,
		Reason: e.Reason,
		Target: e.Target,
		Caller: e.Caller,
	})
}

// ParseLine decodes one JSONL line back into an Entry. Used by the
// operator CLI, never by the gate itself.
func ParseLine(line []byte) (Entry, error) {
	var w wireEntry
	if err := json.Unmarshal(line, &w); err != nil {
		return Entry{}, fmt.Errorf("parse audit line: %w", err)
	}
	ts, err := time.Parse(tsFormat, w.TS)
	if err != nil {
		return Entry{}, fmt.Errorf("parse audit timestamp %q: %w", w.TS, err)
	}
	return Entry{Time: ts, Action: w.Action, Reason: w.Reason, Target: w.Target, Caller: w.Caller}, nil
}

// Sink receives a copy of every appended entry. Sink errors are logged
// and swallowed like file errors.
type Sink interface {
	Append(Entry) error
}

// Writer appends entries to a date-rotated JSONL file.
// Safe for concurrent use; the mutex guarantees whole-line writes.
type Writer struct {
	dir    string
	prefix string
	logger *slog.Logger

	mu        sync.Mutex
	sinks     []Sink
	signer    *Signer
	chain     *Chain
	chainPath string
}

// NewWriter creates a writer that appends under dir. Files are named
// <prefix>-YYYY-MM-DD.jsonl.
func NewWriter(dir, prefix string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "sandguard"
	}
	return &Writer{
		dir:    dir,
		prefix: prefix,
		logger: logger.With("component", "audit"),
	}
}

// AddSink registers a secondary sink (e.g. the SQLite store).
func (w *Writer) AddSink(s Sink) {
	if s == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sinks = append(w.sinks, s)
}

// EnableIntegrity turns on the tamper-evident hash chain. Each log
// file gets a sidecar state file whose head is signed by signer.
func (w *Writer) EnableIntegrity(signer *Signer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chain = nil
	w.chainPath = ""
	w.signer = signer
}

// PathFor returns the log file path for the given instant.
func (w *Writer) PathFor(t time.Time) string {
	day := t.UTC().Format("2006-01-02")
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl", w.prefix, day))
}

// Append writes the entry. It never returns an error: failures are
// surfaced as warnings on the logger only.
func (w *Writer) Append(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	line, err := e.Marshal()
	if err != nil {
		w.logger.Warn("audit entry not serializable", "action", e.Action, "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	path := w.PathFor(e.Time)
	if err := w.appendLine(path, line); err != nil {
		w.logger.Warn("audit append failed", "path", path, "error", err)
	}

	if w.signer != nil {
		if err := w.extendChain(path, line); err != nil {
			w.logger.Warn("audit chain update failed", "path", path, "error", err)
		}
	}

	for _, s := range w.sinks {
		if err := s.Append(e); err != nil {
			w.logger.Warn("audit sink append failed", "error", err)
		}
	}
}

func (w *Writer) appendLine(path string, line []byte) error {
	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close() //nolint:errcheck
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit line: %w", err)
	}
	return nil
}

// extendChain lazily opens the chain for the current log file, so
// rotation starts a fresh chain alongside the fresh file.
func (w *Writer) extendChain(path string, line []byte) error {
	if w.chain == nil || w.chainPath != path {
		c, err := OpenChain(path, w.signer)
		if err != nil {
			return err
		}
		w.chain = c
		w.chainPath = path
	}
	return w.chain.Extend(line)
}
