package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/callspy/pkg/tape"
)

// verifyReport is the --json output of `spytape verify`.
type verifyReport struct {
	RunID    string   `json:"run_id"`
	Entries  int      `json:"entries"`
	Verified bool     `json:"verified"`
	Issues   []string `json:"issues,omitempty"`
}

// runVerifyCmd implements `spytape verify`.
//
// Checks every manifest digest against the entries on disk.
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(configPath(args))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		configFile string
		dir        string
		jsonOutput bool
	)
	cmd.StringVar(&configFile, "config", "", "Path to YAML config file")
	cmd.StringVar(&dir, "dir", cfg.TapeDir, "Tape directory")
	cmd.BoolVar(&jsonOutput, "json", false, "Output results as JSON to stdout")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	report, err := verifyTape(dir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	newLogger(cfg, stderr).Debug("verified tape", "dir", dir, "issues", len(report.Issues))

	if jsonOutput {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		_, _ = fmt.Fprintln(stdout, string(data))
	} else if report.Verified {
		_, _ = fmt.Fprintf(stdout, "OK: run %s, %d entries verified\n", report.RunID, report.Entries)
	} else {
		_, _ = fmt.Fprintf(stdout, "FAIL: run %s, %d issue(s)\n", report.RunID, len(report.Issues))
		for _, issue := range report.Issues {
			_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
		}
	}

	if !report.Verified {
		return 1
	}
	return 0
}

func verifyTape(dir string) (*verifyReport, error) {
	manifest, err := tape.ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	entries, err := tape.ReadEntries(dir)
	if err != nil {
		return nil, err
	}
	issues := tape.VerifyManifestIntegrity(entries, manifest)
	for _, e := range entries {
		if e.RunID != manifest.RunID {
			issues = append(issues, fmt.Sprintf("seq=%d belongs to run %s, manifest is for %s", e.Seq, e.RunID, manifest.RunID))
		}
	}
	return &verifyReport{
		RunID:    manifest.RunID,
		Entries:  len(entries),
		Verified: len(issues) == 0,
		Issues:   issues,
	}, nil
}
