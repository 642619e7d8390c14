package security

import (
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/sandguard/sandguard/internal/audit"
	"github.com/sandguard/sandguard/internal/events"
)

// DefaultMaxPathLength is the cross-platform path length ceiling
// (Windows MAX_PATH).
const DefaultMaxPathLength = 260

// DefaultExtensions is the write-side extension whitelist used when
// none is configured explicitly.
var DefaultExtensions = []string{".json", ".save", ".dat", ".cfg", ".txt"}

// driveLetterPattern matches normalized Windows drive-letter paths.
var driveLetterPattern = regexp.MustCompile(`^[a-z]:/`)

// FileConfig configures a FileValidator. Zero values fall back to the
// res:// / user:// roots, the default whitelist and the 260 ceiling.
type FileConfig struct {
	ReadOnlyRoot      string
	ReadWriteRoot     string
	AllowedExtensions []string
	MaxPathLength     int
}

// FileValidator validates virtual storage-root paths. Immutable after
// construction; safe for concurrent use.
type FileValidator struct {
	readOnlyRoot  string
	readWriteRoot string
	allowedExts   map[string]struct{}
	maxPathLength int
	auditor       Auditor
	publisher     Publisher
	logger        *slog.Logger
}

// NewFileValidator builds the validator. auditor and publisher may be
// nil (no audit trail / no events); logger defaults to slog.Default().
func NewFileValidator(cfg FileConfig, auditor Auditor, publisher Publisher, logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadOnlyRoot == "" {
		cfg.ReadOnlyRoot = "res://"
	}
	if cfg.ReadWriteRoot == "" {
		cfg.ReadWriteRoot = "user://"
	}
	if cfg.MaxPathLength <= 0 {
		cfg.MaxPathLength = DefaultMaxPathLength
	}
	exts := cfg.AllowedExtensions
	if exts == nil {
		exts = DefaultExtensions
	}
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return &FileValidator{
		readOnlyRoot:  strings.ToLower(cfg.ReadOnlyRoot),
		readWriteRoot: strings.ToLower(cfg.ReadWriteRoot),
		allowedExts:   allowed,
		maxPathLength: cfg.MaxPathLength,
		auditor:       auditor,
		publisher:     publisher,
		logger:        logger.With("component", "file-validator"),
	}
}

// IsAllowed reports whether the path passes every rule, without
// touching the audit trail.
func (v *FileValidator) IsAllowed(rawPath string, mode AccessMode) bool {
	_, res := v.validate(rawPath, mode)
	return res.Allowed
}

// ValidateAndAudit runs the rule chain. On success the returned
// SandboxPath is the only way such a value comes into existence; on
// denial one audit entry is written before the result is returned.
func (v *FileValidator) ValidateAndAudit(rawPath string, mode AccessMode, caller string) (SandboxPath, Result) {
	sp, res := v.validate(rawPath, mode)
	if !res.Allowed {
		if v.auditor != nil {
			v.auditor.Append(audit.Entry{
				Action: audit.ActionFileRejected,
				Reason: res.Reason,
				Target: rawPath,
				Caller: caller,
			})
		}
		if v.publisher != nil {
			v.publisher.Publish(events.New(EventFileDenied, "FileValidator", map[string]string{
				"target": rawPath,
				"reason": res.Reason,
				"mode":   mode.String(),
				"caller": caller,
			}))
		}
	}
	return sp, res
}

// validate applies the rule chain in policy order. Reordering the
// rules changes which reason leaks for ambiguous inputs.
func (v *FileValidator) validate(rawPath string, mode AccessMode) (SandboxPath, Result) {
	if strings.TrimSpace(rawPath) == "" {
		return SandboxPath{}, deny(ReasonEmptyPath)
	}

	normalized := Normalize(rawPath)
	if ContainsTraversal(normalized) {
		return SandboxPath{}, deny(ReasonTraversal)
	}

	if isAbsolutePath(normalized) {
		return SandboxPath{}, deny(ReasonAbsolutePath)
	}

	var pathType PathType
	switch {
	case strings.HasPrefix(normalized, v.readOnlyRoot):
		pathType = ReadOnly
	case strings.HasPrefix(normalized, v.readWriteRoot):
		pathType = ReadWrite
	default:
		return SandboxPath{}, deny(ReasonInvalidProtocol)
	}

	if pathType == ReadOnly && mode == Write {
		return SandboxPath{}, deny(ReasonReadOnlyWrite)
	}

	if len(normalized) > v.maxPathLength {
		return SandboxPath{}, deny(ReasonPathTooLong)
	}

	// Read-only roots carry developer-bundled assets of arbitrary
	// types; only the writable root is held to the whitelist.
	if pathType == ReadWrite {
		ext := strings.ToLower(path.Ext(normalized))
		if _, ok := v.allowedExts[ext]; !ok {
			return SandboxPath{}, deny(ReasonExtension + ": " + ext)
		}
	}

	return SandboxPath{raw: rawPath, normalized: normalized, pathType: pathType}, allow()
}

// isAbsolutePath flags normalized host-filesystem paths: Windows
// drive letters, UNC-style prefixes and Unix roots.
func isAbsolutePath(normalized string) bool {
	if driveLetterPattern.MatchString(normalized) {
		return true
	}
	return strings.HasPrefix(normalized, "/")
}
