package security

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/sandguard/sandguard/internal/audit"
	"github.com/sandguard/sandguard/internal/events"
)

// dangerousSchemes are rejected by name before the HTTPS check so they
// never hide behind a generic "non-HTTPS" message.
var dangerousSchemes = []string{"javascript", "data", "blob", "file"}

// URLValidator enforces HTTPS-only access to a host whitelist. An
// empty whitelist denies everything: an unconfigured gate must never
// read as "open access".
type URLValidator struct {
	allowedHosts map[string]struct{}
	auditor      Auditor
	publisher    Publisher
	logger       *slog.Logger
}

// NewURLValidator builds the validator from bare domain names.
func NewURLValidator(allowedHosts []string, auditor Auditor, publisher Publisher, logger *slog.Logger) *URLValidator {
	if logger == nil {
		logger = slog.Default()
	}
	hosts := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts[h] = struct{}{}
		}
	}
	return &URLValidator{
		allowedHosts: hosts,
		auditor:      auditor,
		publisher:    publisher,
		logger:       logger.With("component", "url-validator"),
	}
}

// IsAllowed reports whether the URL passes every rule, without
// touching the audit trail.
func (v *URLValidator) IsAllowed(rawURL string) bool {
	return v.validate(rawURL).Allowed
}

// ValidateAndAudit runs the rule chain, writing one audit entry per
// denial.
func (v *URLValidator) ValidateAndAudit(rawURL, caller string) Result {
	res := v.validate(rawURL)
	if !res.Allowed {
		if v.auditor != nil {
			v.auditor.Append(audit.Entry{
				Action: audit.ActionURLRejected,
				Reason: res.Reason,
				Target: rawURL,
				Caller: caller,
			})
		}
		if v.publisher != nil {
			v.publisher.Publish(events.New(EventURLDenied, "URLValidator", map[string]string{
				"target": rawURL,
				"reason": res.Reason,
				"caller": caller,
			}))
		}
	}
	return res
}

func (v *URLValidator) validate(rawURL string) Result {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return deny(ReasonEmptyURL)
	}

	// Fail closed before parsing: with no whitelist there is nothing
	// any URL could legitimately match.
	if len(v.allowedHosts) == 0 {
		return deny(ReasonSSRFPrevention)
	}

	u, err := url.Parse(trimmed)
	if err != nil || !u.IsAbs() {
		return deny(ReasonInvalidURI)
	}

	scheme := strings.ToLower(u.Scheme)
	for _, dangerous := range dangerousSchemes {
		if scheme == dangerous {
			return deny(ReasonDangerousScheme + ": " + scheme)
		}
	}

	if scheme != "https" {
		return deny(ReasonNonHTTPS + ": " + scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return deny(ReasonInvalidURI)
	}
	if _, ok := v.allowedHosts[host]; !ok {
		return deny(ReasonDomain + ": " + host)
	}

	return allow()
}
