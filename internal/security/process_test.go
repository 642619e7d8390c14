package security

import (
	"os"
	"strings"
	"testing"

	"github.com/sandguard/sandguard/internal/audit"
)

func testPathEnv(dirs ...string) string {
	return strings.Join(dirs, string(os.PathListSeparator))
}

func newProcessValidator(t *testing.T, mode ExecutionMode, commands ...string) (*ProcessValidator, *captureAuditor) {
	t.Helper()
	ca := &captureAuditor{}
	v := NewProcessValidator(ProcessConfig{
		Mode:            mode,
		AllowedCommands: commands,
		PathEnv:         testPathEnv("/usr/bin", "/bin"),
	}, ca, nil, nil)
	return v, ca
}

func TestProcessValidator_SecureModeBlocksEverything(t *testing.T) {
	v, ca := newProcessValidator(t, Secure, "git")

	// Secure mode overrides the whitelist.
	if v.IsExecutionAllowed("git", []string{"status"}) {
		t.Fatal("secure mode must deny whitelisted commands too")
	}
	res := v.ValidateAndAudit("git", []string{"status"}, "test")
	if res.Allowed || res.Reason != ReasonSecureMode {
		t.Errorf("got (%v, %q), want secure-mode denial", res.Allowed, res.Reason)
	}
	if len(ca.entries) != 1 || ca.entries[0].Action != audit.ActionProcessRejected {
		t.Fatalf("expected one rejection entry, got %+v", ca.entries)
	}
}

func TestProcessValidator_TestModeAllowsButAudits(t *testing.T) {
	v, ca := newProcessValidator(t, Test) // empty whitelist on purpose

	res := v.ValidateAndAudit("anything", []string{"--flag"}, "Harness")
	if !res.Allowed {
		t.Fatalf("test mode should allow, got %q", res.Reason)
	}
	if len(ca.entries) != 1 {
		t.Fatalf("test mode must still audit, got %d entries", len(ca.entries))
	}
	e := ca.entries[0]
	if e.Action != audit.ActionProcessApproved {
		t.Errorf("action = %q", e.Action)
	}
	if e.Reason != ReasonTestMode {
		t.Errorf("reason = %q", e.Reason)
	}
}

func TestProcessValidator_NormalModeRuleChain(t *testing.T) {
	v, _ := newProcessValidator(t, Normal, "git", "ffmpeg")

	tests := []struct {
		name       string
		command    string
		wantReason string
	}{
		{"empty", "", ReasonEmptyCommand},
		{"whitespace", "  ", ReasonEmptyCommand},
		{"not whitelisted", "curl", ReasonNotWhitelisted + ": curl"},
		{"spoofed absolute path", "/opt/evil/git", ReasonAbsoluteCommand},
		{"windows spoofed path", `C:\Temp\git.exe`, ReasonAbsoluteCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateAndAudit(tt.command, nil, "test")
			if res.Allowed {
				t.Fatalf("expected denial for %q", tt.command)
			}
			if res.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", res.Reason, tt.wantReason)
			}
		})
	}
}

func TestProcessValidator_AllowsWhitelistedCommand(t *testing.T) {
	v, ca := newProcessValidator(t, Normal, "git")

	res := v.ValidateAndAudit("git", []string{"status"}, "Updater")
	if !res.Allowed {
		t.Fatalf("expected allow, got %q", res.Reason)
	}
	// Approved executions are audited too.
	if len(ca.entries) != 1 {
		t.Fatalf("expected one approval entry, got %d", len(ca.entries))
	}
	e := ca.entries[0]
	if e.Action != audit.ActionProcessApproved || e.Reason != ReasonWhitelisted {
		t.Errorf("entry = %+v", e)
	}
}

func TestProcessValidator_AbsolutePathInsidePATHAllowed(t *testing.T) {
	v, _ := newProcessValidator(t, Normal, "git")

	if !v.IsExecutionAllowed("/usr/bin/git", nil) {
		t.Error("/usr/bin/git resolves inside PATH and should be allowed")
	}
	if v.IsExecutionAllowed("/usr/local/bin/git", nil) {
		t.Error("/usr/local/bin is not on the test PATH and should be rejected")
	}
}

func TestProcessValidator_BaseNameStripsDirAndExtension(t *testing.T) {
	v, _ := newProcessValidator(t, Normal, "git")

	cases := []string{"git", "Git", "GIT.EXE", "/usr/bin/git", "/usr/bin/Git.exe"}
	for _, c := range cases {
		if !v.IsExecutionAllowed(c, nil) {
			t.Errorf("expected %q to resolve to whitelisted 'git'", c)
		}
	}
}

func TestProcessValidator_EmptyWhitelistDeniesEverything(t *testing.T) {
	v, _ := newProcessValidator(t, Normal)

	for _, c := range []string{"git", "ls", "echo"} {
		if v.IsExecutionAllowed(c, nil) {
			t.Errorf("empty whitelist must deny %q", c)
		}
	}
}

func TestSanitizeArguments_MasksInlineValues(t *testing.T) {
	got := SanitizeArguments([]string{"--password=secret123", "--host=localhost"})

	if strings.Contains(got, "secret123") {
		t.Errorf("secret leaked: %q", got)
	}
	if !strings.Contains(got, "--password=***") {
		t.Errorf("masked flag missing: %q", got)
	}
	if !strings.Contains(got, "--host=localhost") {
		t.Errorf("benign argument mangled: %q", got)
	}
}

func TestSanitizeArguments_MasksSeparateValues(t *testing.T) {
	got := SanitizeArguments([]string{"-p", "hunter2", "--verbose"})

	if strings.Contains(got, "hunter2") {
		t.Errorf("secret leaked: %q", got)
	}
	if got != "-p *** --verbose" {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeArguments_AllSensitiveFlags(t *testing.T) {
	args := []string{
		"--password=a", "--token=b", "--api-key=c", "--secret=d",
		"-p", "e", "/p", "f",
	}
	got := SanitizeArguments(args)
	for _, secret := range []string{"=a", "=b", "=c", "=d", " e", " f"} {
		if strings.Contains(got+" ", secret+" ") {
			t.Errorf("value %q leaked in %q", secret, got)
		}
	}
}

func TestSanitizeArguments_Idempotent(t *testing.T) {
	args := []string{"--password=secret123", "-p", "hunter2", "--host=localhost"}
	once := SanitizeArguments(args)
	twice := SanitizeArguments(strings.Fields(once))
	if once != twice {
		t.Errorf("not idempotent: %q -> %q", once, twice)
	}
}

func TestSanitizeArguments_SkipsMaskedValueInScan(t *testing.T) {
	// The masked following argument must not itself be treated as a
	// flag, even if the secret looked like one.
	got := SanitizeArguments([]string{"--token", "--password=oops"})
	if got != "--token ***" {
		t.Errorf("got %q, want %q", got, "--token ***")
	}
}

func TestProcessValidator_AuditTargetIsSanitized(t *testing.T) {
	v, ca := newProcessValidator(t, Normal, "git")

	v.ValidateAndAudit("git", []string{"push", "--token=tok_livesecret"}, "Publisher")
	if len(ca.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(ca.entries))
	}
	if strings.Contains(ca.entries[0].Target, "tok_livesecret") {
		t.Errorf("secret reached the audit log: %q", ca.entries[0].Target)
	}
	if !strings.Contains(ca.entries[0].Target, "--token=***") {
		t.Errorf("target = %q", ca.entries[0].Target)
	}
}

func TestProcessValidator_DeniedExecutionStillSanitizesAuditTarget(t *testing.T) {
	v, ca := newProcessValidator(t, Secure, "git")

	v.ValidateAndAudit("git", []string{"--password=secret123"}, "test")
	if len(ca.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(ca.entries))
	}
	if strings.Contains(ca.entries[0].Target, "secret123") {
		t.Errorf("secret reached the audit log on denial path: %q", ca.entries[0].Target)
	}
}
