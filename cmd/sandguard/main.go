// Command sandguard is the CLI front-end for the security gate: one-shot
// whitelist checks, audit trail verification and a live audit viewer.
//
// The same internal packages are what an embedding application links
// against; the CLI exists for operators and shell scripts.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sandguard/sandguard/internal/cli"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := "sandguard.toml"

	// First pass: find the config flag wherever it appears.
	args := make([]string, 0, len(os.Args)-1)
	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		if arg == "--config" || arg == "-config" {
			if i+1 < len(os.Args) {
				configPath = os.Args[i+1]
				i++
			}
			continue
		}
		args = append(args, arg)
	}

	if len(args) == 0 {
		cli.PrintHelp()
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "check":
		return cli.CheckCommand(rest, configPath)
	case "audit":
		return cli.AuditCommand(rest, configPath)
	case "tail":
		return cli.TailCommand(rest, configPath)
	case "version", "--version", "-v":
		fmt.Printf("sandguard %s (built %s)\n", version, buildTime)
		return 0
	case "help", "--help", "-h":
		cli.PrintHelp()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		cli.PrintHelp()
		return 1
	}
}
