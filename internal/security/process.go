package security

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sandguard/sandguard/internal/audit"
	"github.com/sandguard/sandguard/internal/events"
)

// sensitiveFlags are argument flags whose values never reach the audit
// log. Matched exactly or in --flag=value form.
var sensitiveFlags = []string{"--password", "--token", "--api-key", "--secret", "-p", "/p"}

const maskedValue = "***"

// ProcessConfig configures a ProcessValidator. PathEnv overrides the
// process PATH for tests; empty means read os.Getenv("PATH") once at
// construction.
type ProcessConfig struct {
	Mode            ExecutionMode
	AllowedCommands []string
	PathEnv         string
}

// ProcessValidator enforces the command whitelist and execution mode.
// Immutable after construction; safe for concurrent use.
type ProcessValidator struct {
	mode      ExecutionMode
	allowed   map[string]struct{}
	pathDirs  []string
	auditor   Auditor
	publisher Publisher
	logger    *slog.Logger
}

// NewProcessValidator builds the validator. The PATH environment is
// captured here, not per call, so decisions stay deterministic.
func NewProcessValidator(cfg ProcessConfig, auditor Auditor, publisher Publisher, logger *slog.Logger) *ProcessValidator {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedCommands))
	for _, c := range cfg.AllowedCommands {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			allowed[c] = struct{}{}
		}
	}
	pathEnv := cfg.PathEnv
	if pathEnv == "" {
		pathEnv = os.Getenv("PATH")
	}
	var dirs []string
	for _, d := range filepath.SplitList(pathEnv) {
		if d != "" {
			dirs = append(dirs, normalizeDir(d))
		}
	}
	return &ProcessValidator{
		mode:      cfg.Mode,
		allowed:   allowed,
		pathDirs:  dirs,
		auditor:   auditor,
		publisher: publisher,
		logger:    logger.With("component", "process-validator", "mode", cfg.Mode.String()),
	}
}

// Mode returns the execution mode the validator was built with.
func (v *ProcessValidator) Mode() ExecutionMode { return v.mode }

// IsExecutionAllowed reports whether the command may run, without
// touching the audit trail.
func (v *ProcessValidator) IsExecutionAllowed(command string, args []string) bool {
	return v.validate(command).Allowed
}

// ValidateAndAudit runs the mode gate and rule chain. Denials are
// audited as rejections; allowed executions are audited as approvals.
// Arguments are always sanitized before they reach the log.
func (v *ProcessValidator) ValidateAndAudit(command string, args []string, caller string) Result {
	res := v.validate(command)
	target := strings.TrimSpace(command + " " + SanitizeArguments(args))

	action := audit.ActionProcessRejected
	reason := res.Reason
	if res.Allowed {
		action = audit.ActionProcessApproved
		if v.mode == Test {
			reason = ReasonTestMode
		} else {
			reason = ReasonWhitelisted
		}
	}
	if v.auditor != nil {
		v.auditor.Append(audit.Entry{
			Action: action,
			Reason: reason,
			Target: target,
			Caller: caller,
		})
	}
	if !res.Allowed && v.publisher != nil {
		v.publisher.Publish(events.New(EventProcessDenied, "ProcessValidator", map[string]string{
			"target": target,
			"reason": res.Reason,
			"caller": caller,
		}))
	}
	return res
}

func (v *ProcessValidator) validate(command string) Result {
	// Mode gate comes before everything else.
	switch v.mode {
	case Secure:
		return deny(ReasonSecureMode)
	case Test:
		return allow()
	}

	if strings.TrimSpace(command) == "" {
		return deny(ReasonEmptyCommand)
	}

	// A command given as an absolute path is only trusted when its
	// directory is on the PATH; anything else smells like a spoofed
	// binary dropped next to writable data.
	if isAbsoluteCommand(command) {
		dir := normalizeDir(filepath.Dir(strings.ReplaceAll(command, "\\", "/")))
		if !v.dirInPath(dir) {
			return deny(ReasonAbsoluteCommand)
		}
	}

	name := baseCommandName(command)
	if _, ok := v.allowed[name]; !ok {
		return deny(ReasonNotWhitelisted + ": " + name)
	}
	return allow()
}

func (v *ProcessValidator) dirInPath(dir string) bool {
	for _, d := range v.pathDirs {
		if strings.EqualFold(d, dir) {
			return true
		}
	}
	return false
}

// baseCommandName strips directory and extension, lowercased:
// "/usr/bin/Git.exe" -> "git".
func baseCommandName(command string) string {
	unified := strings.ReplaceAll(strings.TrimSpace(command), "\\", "/")
	base := unified
	if idx := strings.LastIndex(unified, "/"); idx >= 0 {
		base = unified[idx+1:]
	}
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.ToLower(base)
}

func isAbsoluteCommand(command string) bool {
	unified := strings.ReplaceAll(strings.TrimSpace(command), "\\", "/")
	return strings.HasPrefix(unified, "/") || driveLetterPattern.MatchString(strings.ToLower(unified))
}

func normalizeDir(dir string) string {
	return strings.TrimRight(strings.ReplaceAll(dir, "\\", "/"), "/")
}

// SanitizeArguments masks the values of sensitive flags and joins the
// arguments into a single loggable string. Idempotent: sanitizing
// already-sanitized output changes nothing. Every argument list must
// pass through here before it is written to the audit log.
func SanitizeArguments(args []string) string {
	out := make([]string, len(args))
	maskNext := false
	for i, arg := range args {
		if maskNext {
			out[i] = maskedValue
			maskNext = false
			continue
		}
		out[i] = arg
		lower := strings.ToLower(arg)
		for _, flag := range sensitiveFlags {
			if lower == flag {
				// Value travels as the following argument.
				maskNext = true
				break
			}
			if strings.HasPrefix(lower, flag+"=") {
				out[i] = arg[:len(flag)+1] + maskedValue
				break
			}
		}
	}
	return strings.Join(out, " ")
}
