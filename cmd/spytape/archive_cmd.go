package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/Mindburn-Labs/callspy/pkg/tape"
)

// runImportCmd implements `spytape import`.
//
// Only tapes that pass verification are archived.
func runImportCmd(args []string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(configPath(args))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cmd := flag.NewFlagSet("import", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		configFile string
		dir        string
		dbPath     string
	)
	cmd.StringVar(&configFile, "config", "", "Path to YAML config file")
	cmd.StringVar(&dir, "dir", cfg.TapeDir, "Tape directory")
	cmd.StringVar(&dbPath, "db", cfg.DatabasePath, "SQLite archive path")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if dbPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --db is required")
		return 2
	}

	report, err := verifyTape(dir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if !report.Verified {
		_, _ = fmt.Fprintf(stderr, "Error: tape %s failed verification (%d issues), not importing\n", report.RunID, len(report.Issues))
		return 1
	}

	entries, err := tape.ReadEntries(dir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	store, err := tape.OpenSQLite(dbPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = store.Close() }()

	if err := store.Save(context.Background(), entries); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	newLogger(cfg, stderr).Info("tape archived", "run", report.RunID, "entries", len(entries), "db", dbPath)
	_, _ = fmt.Fprintf(stdout, "Imported %d entries for run %s\n", len(entries), report.RunID)
	return 0
}

// runRunsCmd implements `spytape runs`.
func runRunsCmd(args []string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(configPath(args))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cmd := flag.NewFlagSet("runs", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		configFile string
		dbPath     string
	)
	cmd.StringVar(&configFile, "config", "", "Path to YAML config file")
	cmd.StringVar(&dbPath, "db", cfg.DatabasePath, "SQLite archive path")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if dbPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --db is required")
		return 2
	}

	store, err := tape.OpenSQLite(dbPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	runs, err := store.Runs(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(stdout, "No runs archived")
		return 0
	}

	table := tablewriter.NewWriter(stdout)
	table.Header("Run", "Calls")
	for _, id := range runs {
		entries, err := store.List(ctx, id)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		table.Append(id, fmt.Sprintf("%d", len(entries)))
	}
	table.Render()
	return 0
}
