package cli

import (
	"fmt"
	"os"

	"github.com/sandguard/sandguard/internal/security"
)

// CheckCommand handles 'sandguard check' subcommands. Exit code 0
// means allowed, 1 means denied (or usage error), 2 means setup
// failure, so scripts can branch on the decision directly.
func CheckCommand(args []string, configPath string) int {
	if len(args) == 0 {
		printCheckHelp()
		return 1
	}

	subCmd := args[0]
	switch subCmd {
	case "file":
		return checkFile(args[1:], configPath)
	case "url":
		return checkURL(args[1:], configPath)
	case "exec":
		return checkExec(args[1:], configPath)
	case "help", "--help", "-h":
		printCheckHelp()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown check subcommand: %s\n", subCmd)
		printCheckHelp()
		return 1
	}
}

func printCheckHelp() {
	fmt.Print(`Usage: sandguard check <subcommand> [options]

One-shot validation against the configured whitelists. Denials are
appended to the audit trail exactly as they would be in-process.

Subcommands:
  file <path> [--write] [--caller name]   Validate a sandbox path
  url <url> [--caller name]               Validate an outbound URL
  exec <command> [args...]                Validate a process execution

Examples:
  sandguard check file "user://saves/slot1.json" --write
  sandguard check url "https://example.com/api"
  sandguard check exec git status

`)
}

func checkFile(args []string, configPath string) int {
	mode := security.Read
	caller := "cli"
	var path string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			mode = security.Write
		case "--caller":
			if i+1 < len(args) {
				caller = args[i+1]
				i++
			}
		default:
			if path == "" {
				path = args[i]
			}
		}
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: path required")
		return 1
	}

	a, err := loadApp(configPath, nil)
	if err != nil {
		return fail("%v", err)
	}
	defer a.close()

	sp, res := a.gate.Files.ValidateAndAudit(path, mode, caller)
	if !res.Allowed {
		fmt.Printf("DENIED: %s\n", res.Reason)
		return 1
	}
	fmt.Printf("ALLOWED: %s (%s root)\n", sp.Normalized(), sp.Type())
	return 0
}

func checkURL(args []string, configPath string) int {
	caller := "cli"
	var rawURL string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--caller":
			if i+1 < len(args) {
				caller = args[i+1]
				i++
			}
		default:
			if rawURL == "" {
				rawURL = args[i]
			}
		}
	}
	if rawURL == "" {
		fmt.Fprintln(os.Stderr, "Error: url required")
		return 1
	}

	a, err := loadApp(configPath, nil)
	if err != nil {
		return fail("%v", err)
	}
	defer a.close()

	res := a.gate.URLs.ValidateAndAudit(rawURL, caller)
	if !res.Allowed {
		fmt.Printf("DENIED: %s\n", res.Reason)
		return 1
	}
	fmt.Println("ALLOWED")
	return 0
}

func checkExec(args []string, configPath string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: command required")
		return 1
	}
	command, cmdArgs := args[0], args[1:]

	a, err := loadApp(configPath, nil)
	if err != nil {
		return fail("%v", err)
	}
	defer a.close()

	res := a.gate.Processes.ValidateAndAudit(command, cmdArgs, "cli")
	if !res.Allowed {
		fmt.Printf("DENIED: %s\n", res.Reason)
		return 1
	}
	fmt.Printf("ALLOWED: %s %s\n", command, security.SanitizeArguments(cmdArgs))
	return 0
}
