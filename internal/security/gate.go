package security

import "log/slog"

// GateConfig is the full once-at-startup configuration for the gate.
type GateConfig struct {
	File     FileConfig
	URLHosts []string
	Process  ProcessConfig
}

// Gate bundles the three validators behind one constructor so
// consumers (file I/O, HTTP client, process spawner) share a single
// audit writer and event bus. The validators stay independent: none
// calls another.
type Gate struct {
	Files     *FileValidator
	URLs      *URLValidator
	Processes *ProcessValidator
}

// NewGate wires the validators. auditor and publisher may be nil.
func NewGate(cfg GateConfig, auditor Auditor, publisher Publisher, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		Files:     NewFileValidator(cfg.File, auditor, publisher, logger),
		URLs:      NewURLValidator(cfg.URLHosts, auditor, publisher, logger),
		Processes: NewProcessValidator(cfg.Process, auditor, publisher, logger),
	}
}
