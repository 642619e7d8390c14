package cli

import "fmt"

// PrintHelp prints the top-level usage text.
func PrintHelp() {
	fmt.Print(`sandguard - whitelist-driven security gate for sandboxed applications

Usage: sandguard [--config path] <command> [options]

Commands:
  check file|url|exec    One-shot validation against the whitelists
  audit stats|verify|sweep
                         Operator tooling over the audit trail
  tail                   Live audit log viewer
  version                Print version
  help                   Show this help

Configuration is read once from sandguard.toml (or .yaml) in the
working directory; --config overrides the location. With no config
file every URL and command is denied: absence of a whitelist means
deny all, never allow all.

Examples:
  sandguard check file "user://saves/slot1.json" --write
  sandguard check url "https://example.com/api"
  sandguard check exec git status
  sandguard audit verify
  sandguard tail

`)
}
