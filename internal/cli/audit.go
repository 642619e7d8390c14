package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandguard/sandguard/internal/audit"
)

// AuditCommand handles 'sandguard audit' subcommands.
func AuditCommand(args []string, configPath string) int {
	if len(args) == 0 {
		printAuditHelp()
		return 1
	}

	subCmd := args[0]
	switch subCmd {
	case "stats":
		return auditStats(configPath)
	case "verify":
		return auditVerify(configPath)
	case "sweep":
		return auditSweep(configPath)
	case "help", "--help", "-h":
		printAuditHelp()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown audit subcommand: %s\n", subCmd)
		printAuditHelp()
		return 1
	}
}

func printAuditHelp() {
	fmt.Print(`Usage: sandguard audit <subcommand>

Operator tooling over the audit trail.

Subcommands:
  stats     Count entries per action
  verify    Recompute hash chains over all rotated logs (requires sign = true)
  sweep     Apply the retention policy now

Examples:
  sandguard audit stats
  sandguard audit verify

`)
}

func auditStats(configPath string) int {
	a, err := loadApp(configPath, nil)
	if err != nil {
		return fail("%v", err)
	}
	defer a.close()

	var counts map[string]int
	if a.store != nil {
		counts, err = a.store.CountByAction()
		if err != nil {
			return fail("query store: %v", err)
		}
	} else {
		counts, err = countFromLogs(a.cfg.Audit.Dir, a.cfg.Audit.Prefix)
		if err != nil {
			return fail("scan logs: %v", err)
		}
	}

	if len(counts) == 0 {
		fmt.Println("audit trail is empty")
		return 0
	}
	actions := make([]string, 0, len(counts))
	for action := range counts {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	for _, action := range actions {
		fmt.Printf("%-30s %d\n", action, counts[action])
	}
	return 0
}

// countFromLogs aggregates by scanning the JSONL files directly, for
// setups without the SQLite sink.
func countFromLogs(dir, prefix string) (map[string]int, error) {
	paths, err := logFiles(dir, prefix)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			entry, err := audit.ParseLine(scanner.Bytes())
			if err != nil {
				continue // skip corrupt lines, verify reports them
			}
			counts[entry.Action]++
		}
		err = scanner.Err()
		f.Close() //nolint:errcheck
		if err != nil {
			return nil, err
		}
	}
	return counts, nil
}

func auditVerify(configPath string) int {
	a, err := loadApp(configPath, nil)
	if err != nil {
		return fail("%v", err)
	}
	defer a.close()

	if a.signer == nil {
		return fail("audit signing is disabled (set sign = true in [audit])")
	}

	paths, err := logFiles(a.cfg.Audit.Dir, a.cfg.Audit.Prefix)
	if err != nil {
		return fail("list logs: %v", err)
	}
	if len(paths) == 0 {
		fmt.Println("no audit logs to verify")
		return 0
	}

	// Each file carries its own chain, so verification parallelizes
	// cleanly.
	var g errgroup.Group
	g.SetLimit(4)
	results := make([]error, len(paths))
	lineCounts := make([]int, len(paths))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			lines, err := audit.VerifyFile(path, a.signer.Public)
			results[i] = err
			lineCounts[i] = lines
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	bad := 0
	for i, path := range paths {
		if results[i] != nil {
			bad++
			fmt.Printf("FAIL  %s: %v\n", filepath.Base(path), results[i])
			continue
		}
		fmt.Printf("OK    %s (%d entries)\n", filepath.Base(path), lineCounts[i])
	}
	if bad > 0 {
		return 1
	}
	return 0
}

func auditSweep(configPath string) int {
	a, err := loadApp(configPath, nil)
	if err != nil {
		return fail("%v", err)
	}
	defer a.close()

	sweeper, err := audit.NewSweeper(a.cfg.Audit.Dir, a.cfg.Audit.Prefix,
		a.cfg.Audit.RetainDays, a.cfg.Audit.SweepSchedule, a.logger)
	if err != nil {
		return fail("%v", err)
	}
	removed, err := sweeper.SweepOnce(time.Now())
	if err != nil {
		return fail("sweep: %v", err)
	}
	fmt.Printf("removed %d expired log file(s)\n", removed)
	return 0
}

// logFiles lists the rotated log files, oldest first.
func logFiles(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}
