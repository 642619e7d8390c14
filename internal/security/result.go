// Package security implements the whitelist-driven validators that
// mediate every file path, outbound URL and external process the
// sandboxed application attempts. Validators are immutable after
// construction and safe for concurrent use; every denial is appended
// to the audit trail before the result is returned.
package security

import (
	"github.com/sandguard/sandguard/internal/audit"
	"github.com/sandguard/sandguard/internal/events"
)

// Rejection reasons. The prefixes are stable so downstream tooling can
// pattern-match the trail; do not reword casually.
const (
	ReasonEmptyPath       = "Path is null or empty"
	ReasonTraversal       = "Path contains traversal pattern"
	ReasonAbsolutePath    = "Absolute path rejected"
	ReasonInvalidProtocol = "Invalid protocol: unknown storage root"
	ReasonReadOnlyWrite   = "Write access denied for read-only root"
	ReasonPathTooLong     = "Path too long"
	ReasonExtension       = "Extension not allowed" // + ": .ext"

	ReasonEmptyURL        = "URL is null or empty"
	ReasonSSRFPrevention  = "SSRF prevention: no allowed hosts configured, all requests denied (CWE-918)"
	ReasonInvalidURI      = "Invalid URI format"
	ReasonDangerousScheme = "Dangerous scheme blocked" // + ": scheme"
	ReasonNonHTTPS        = "Non-HTTPS scheme rejected" // + ": scheme"
	ReasonDomain          = "Domain not in whitelist" // + ": host"

	ReasonEmptyCommand    = "Command is null or empty"
	ReasonSecureMode      = "Blocked in secure mode"
	ReasonTestMode        = "Test mode: audited but allowed"
	ReasonWhitelisted     = "Command in whitelist"
	ReasonAbsoluteCommand = "Absolute command path rejected: directory not in PATH"
	ReasonNotWhitelisted  = "Command not in whitelist" // + ": name"
)

// Event types published on the optional bus.
const (
	EventFileDenied    = "security.file.denied"
	EventURLDenied     = "security.url.denied"
	EventProcessDenied = "security.process.denied"
)

// Result is the outcome of a validation. Reason is non-empty exactly
// when Allowed is false.
type Result struct {
	Allowed bool
	Reason  string
}

func allow() Result              { return Result{Allowed: true} }
func deny(reason string) Result  { return Result{Allowed: false, Reason: reason} }

// AccessMode distinguishes read from write file access.
type AccessMode int

const (
	Read AccessMode = iota
	Write
)

func (m AccessMode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// PathType identifies which virtual root a validated path lives under.
type PathType int

const (
	ReadOnly PathType = iota
	ReadWrite
)

func (t PathType) String() string {
	if t == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// SandboxPath is a path that passed every file rule at construction
// time. It can only be built by FileValidator, so holding one is proof
// of validation.
type SandboxPath struct {
	raw        string
	normalized string
	pathType   PathType
}

// Raw returns the path as the caller supplied it.
func (p SandboxPath) Raw() string { return p.raw }

// Normalized returns the decoded, separator-unified form.
func (p SandboxPath) Normalized() string { return p.normalized }

// Type reports which virtual root the path uses.
func (p SandboxPath) Type() PathType { return p.pathType }

// IsReadOnly reports whether the path lives under the read-only root.
func (p SandboxPath) IsReadOnly() bool { return p.pathType == ReadOnly }

// ExecutionMode gates the process validator as a whole.
type ExecutionMode int

const (
	// Normal applies the command whitelist.
	Normal ExecutionMode = iota
	// Secure rejects every execution unconditionally.
	Secure
	// Test allows every execution but still audits it.
	Test
)

func (m ExecutionMode) String() string {
	switch m {
	case Secure:
		return "secure"
	case Test:
		return "test"
	default:
		return "normal"
	}
}

// ParseExecutionMode maps a config/env string to a mode. Unknown
// values fall back to Normal.
func ParseExecutionMode(s string) ExecutionMode {
	switch s {
	case "secure", "SECURE", "Secure":
		return Secure
	case "test", "TEST", "Test":
		return Test
	default:
		return Normal
	}
}

// Auditor receives one entry per audited decision. *audit.Writer
// satisfies this; tests substitute their own.
type Auditor interface {
	Append(audit.Entry)
}

// Publisher is the optional domain event bus capability the validators
// need. *events.Bus satisfies this.
type Publisher interface {
	Publish(events.Event)
}
