// Package cli implements the sandguard subcommands. Each command is a
// function taking its argument slice and returning a process exit
// code; main stays a thin dispatcher.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sandguard/sandguard/internal/audit"
	"github.com/sandguard/sandguard/internal/config"
	"github.com/sandguard/sandguard/internal/security"
)

// app bundles everything a command needs after configuration is
// resolved.
type app struct {
	cfg    config.Config
	gate   *security.Gate
	writer *audit.Writer
	store  *audit.Store // nil unless sqlite_path is configured
	signer *audit.Signer
	logger *slog.Logger
}

// loadApp loads configuration and wires the gate the same way an
// embedding application would at startup.
func loadApp(configPath string, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	writer := audit.NewWriter(cfg.Audit.Dir, cfg.Audit.Prefix, logger)

	a := &app{cfg: cfg, writer: writer, logger: logger}

	if cfg.Audit.Sign {
		signer, err := audit.LoadOrCreateSigner(cfg.Audit.ResolvedKeyPath())
		if err != nil {
			return nil, fmt.Errorf("audit signing: %w", err)
		}
		writer.EnableIntegrity(signer)
		a.signer = signer
	}

	if cfg.Audit.SQLitePath != "" {
		store, err := audit.OpenStore(cfg.Audit.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
		writer.AddSink(store)
		a.store = store
	}

	a.gate = security.NewGate(security.GateConfig{
		File: security.FileConfig{
			ReadOnlyRoot:      cfg.Files.ReadOnlyRoot,
			ReadWriteRoot:     cfg.Files.ReadWriteRoot,
			AllowedExtensions: cfg.Files.AllowedExtensions,
			MaxPathLength:     cfg.Files.MaxPathLength,
		},
		URLHosts: cfg.URLs.AllowedHosts,
		Process: security.ProcessConfig{
			Mode:            security.ParseExecutionMode(cfg.Process.Mode),
			AllowedCommands: cfg.Process.AllowedCommands,
		},
	}, writer, nil, logger)

	return a, nil
}

// close releases resources the app holds open.
func (a *app) close() {
	if a.store != nil {
		a.store.Close() //nolint:errcheck
	}
}

func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return 1
}
