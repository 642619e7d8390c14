package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper deletes rotated audit log files (and their chain sidecars)
// older than the retention window, on a cron schedule.
type Sweeper struct {
	dir        string
	prefix     string
	retainDays int
	schedule   cron.Schedule
	logger     *slog.Logger
}

// NewSweeper parses the cron expression (standard 5-field syntax) and
// builds a sweeper. retainDays <= 0 disables deletion entirely.
func NewSweeper(dir, prefix string, retainDays int, cronExpr string, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cronExpr == "" {
		cronExpr = "30 3 * * *" // daily, off-peak
	}
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", cronExpr, err)
	}
	return &Sweeper{
		dir:        dir,
		prefix:     prefix,
		retainDays: retainDays,
		schedule:   schedule,
		logger:     logger.With("component", "audit-retention"),
	}, nil
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		for {
			next := s.schedule.Next(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case now := <-timer.C:
				removed, err := s.SweepOnce(now)
				if err != nil {
					s.logger.Warn("retention sweep failed", "error", err)
				} else if removed > 0 {
					s.logger.Info("retention sweep removed old logs", "removed", removed)
				}
			}
		}
	}()
}

// SweepOnce removes log files whose embedded date is older than the
// retention window relative to now. Returns the number of files removed.
func (s *Sweeper) SweepOnce(now time.Time) (int, error) {
	if s.retainDays <= 0 {
		return 0, nil
	}
	cutoff := now.UTC().AddDate(0, 0, -s.retainDays)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read audit dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		day, ok := s.fileDate(entry.Name())
		if !ok || !day.Before(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("could not remove rotated log", "path", path, "error", err)
			continue
		}
		// Chain sidecars follow their log file.
		if err := os.Remove(chainPathFor(path)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("could not remove chain sidecar", "path", chainPathFor(path), "error", err)
		}
		removed++
	}
	return removed, nil
}

// fileDate extracts the rotation date from <prefix>-YYYY-MM-DD.jsonl.
func (s *Sweeper) fileDate(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, s.prefix+"-") || !strings.HasSuffix(name, ".jsonl") {
		return time.Time{}, false
	}
	day := strings.TrimSuffix(strings.TrimPrefix(name, s.prefix+"-"), ".jsonl")
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
