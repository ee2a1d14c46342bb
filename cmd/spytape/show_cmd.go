package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/callspy/pkg/tape"
)

// callView is the printable form of a tape entry.
type callView struct {
	Seq      uint64 `json:"seq" yaml:"seq"`
	Spy      string `json:"spy" yaml:"spy"`
	Call     int    `json:"call" yaml:"call"`
	Outcome  string `json:"outcome" yaml:"outcome"`
	Args     string `json:"args" yaml:"args"`
	Result   string `json:"result,omitempty" yaml:"result,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Duration string `json:"duration" yaml:"duration"`
}

func viewOf(e tape.Entry) callView {
	return callView{
		Seq:      e.Seq,
		Spy:      e.Spy,
		Call:     e.Call,
		Outcome:  string(e.Outcome),
		Args:     string(e.Args),
		Result:   string(e.Result),
		Error:    e.Error,
		Duration: e.Duration().Round(time.Microsecond).String(),
	}
}

// runShowCmd implements `spytape show`.
//
// Reads a tape from --dir, or from the SQLite archive when --run is given,
// and prints one row per call. --db defaults to the configured archive.
func runShowCmd(args []string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(configPath(args))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cmd := flag.NewFlagSet("show", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		configFile string
		dir        string
		spyName    string
		format     string
		dbPath     string
		runID      string
	)
	cmd.StringVar(&configFile, "config", "", "Path to YAML config file")
	cmd.StringVar(&dir, "dir", cfg.TapeDir, "Tape directory")
	cmd.StringVar(&spyName, "spy", "", "Only show calls of this spy")
	cmd.StringVar(&format, "format", cfg.Format, "Output format: table, json, yaml")
	cmd.StringVar(&dbPath, "db", cfg.DatabasePath, "SQLite archive to read with --run")
	cmd.StringVar(&runID, "run", "", "Run ID to read from the archive instead of --dir")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	logger := newLogger(cfg, stderr)

	dbSet := false
	cmd.Visit(func(f *flag.Flag) {
		if f.Name == "db" {
			dbSet = true
		}
	})
	if dbSet && runID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --run is required with --db")
		return 2
	}

	var entries []tape.Entry
	if runID != "" {
		if dbPath == "" {
			_, _ = fmt.Fprintln(stderr, "Error: --db is required with --run")
			return 2
		}
		store, err := tape.OpenSQLite(dbPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		defer func() { _ = store.Close() }()
		entries, err = store.List(context.Background(), runID)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		logger.Debug("loaded tape from archive", "db", dbPath, "run", runID, "entries", len(entries))
	} else {
		entries, err = tape.ReadEntries(dir)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		logger.Debug("loaded tape", "dir", dir, "entries", len(entries))
	}

	views := make([]callView, 0, len(entries))
	for _, e := range entries {
		if spyName != "" && e.Spy != spyName {
			continue
		}
		views = append(views, viewOf(e))
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		_, _ = fmt.Fprintln(stdout, string(data))
	case "yaml":
		data, err := yaml.Marshal(views)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		_, _ = fmt.Fprint(stdout, string(data))
	case "table", "":
		if len(views) == 0 {
			_, _ = fmt.Fprintln(stdout, "No calls recorded")
			return 0
		}
		table := tablewriter.NewWriter(stdout)
		table.Header("Seq", "Spy", "Call", "Outcome", "Args", "Result", "Error", "Duration")
		for _, v := range views {
			table.Append(
				fmt.Sprintf("%d", v.Seq),
				v.Spy,
				fmt.Sprintf("%d", v.Call),
				v.Outcome,
				v.Args,
				v.Result,
				v.Error,
				v.Duration,
			)
		}
		table.Render()
		_, _ = fmt.Fprintf(stdout, "\nTotal calls: %d\n", len(views))
	default:
		_, _ = fmt.Fprintf(stderr, "Error: unknown format %q\n", format)
		return 2
	}
	return 0
}
