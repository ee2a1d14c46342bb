// Command spytape inspects call tapes written by spies during test runs.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Mindburn-Labs/callspy/pkg/config"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
//
// Exit codes:
//
//	0 = success
//	1 = tape failed verification
//	2 = usage or runtime error
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "show":
		return runShowCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "import":
		return runImportCmd(args[2:], stdout, stderr)
	case "runs":
		return runRunsCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: spytape <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Commands:")
	_, _ = fmt.Fprintln(w, "  show     List the calls on a tape (--dir or --run with --db, --spy, --format table|json|yaml)")
	_, _ = fmt.Fprintln(w, "  verify   Check a tape against its manifest (--dir, --json)")
	_, _ = fmt.Fprintln(w, "  import   Archive a verified tape into SQLite (--dir, --db)")
	_, _ = fmt.Fprintln(w, "  runs     List archived run IDs (--db)")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Every command accepts --config <file.yaml>. Environment: SPYTAPE_DIR,")
	_, _ = fmt.Fprintln(w, "SPYTAPE_DB, SPYTAPE_FORMAT, LOG_LEVEL.")
}

// loadConfig returns the YAML config at path, or the environment config
// when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load(), nil
	}
	return config.LoadFile(path)
}

// configPath scans args for --config ahead of full flag parsing, so its
// values can seed the other flags' defaults.
func configPath(args []string) string {
	for i, a := range args {
		name := strings.TrimLeft(a, "-")
		if name == a {
			continue
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
	}
	return ""
}

func newLogger(cfg *config.Config, stderr io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}
