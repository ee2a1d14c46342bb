// Package tape keeps an ordered log of spy invocations.
//
// A spy only remembers its most recent call. When a test needs the whole
// sequence, or wants to inspect calls after the run, the spy is given a
// Recorder and every invocation lands on the tape as an Entry. Tapes can be
// flushed to disk as tape_entries.json plus a hashed tape_manifest.json, or
// archived in SQLite.
package tape

import (
	"encoding/json"
	"errors"
	"time"
)

// FormatVersion is the manifest format written by this package.
const FormatVersion = "1.0.0"

var (
	// ErrEntryNotFound is returned when a sequence number is not on the tape.
	ErrEntryNotFound = errors.New("tape entry not found")
	// ErrUnsupportedFormat is returned when a manifest declares a format
	// version this package cannot read.
	ErrUnsupportedFormat = errors.New("unsupported tape format")
)

// Outcome classifies how a recorded invocation ended.
type Outcome string

const (
	OutcomeOK    Outcome = "OK"
	OutcomeError Outcome = "ERROR"
	OutcomePanic Outcome = "PANIC"
)

// Entry is a single recorded invocation.
type Entry struct {
	Seq        uint64          `json:"seq"`
	RunID      string          `json:"run_id"`
	Spy        string          `json:"spy"`
	Call       int             `json:"call"` // the spy's call count after this invocation
	Outcome    Outcome         `json:"outcome"`
	ArgsHash   string          `json:"args_hash"`
	Args       json.RawMessage `json:"args"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	DurationNs int64           `json:"duration_ns"`
}

// Duration returns how long the wrapped function ran.
func (e Entry) Duration() time.Duration {
	return time.Duration(e.DurationNs)
}

// CallRecord is what a spy hands to the recorder after an invocation.
// Args and Result are arbitrary Go values; the recorder encodes them.
type CallRecord struct {
	Spy      string
	Call     int
	Args     any
	Result   any
	Err      error
	Panicked bool
	Start    time.Time
	Duration time.Duration
}

// Outcome derives the entry outcome from the record.
func (c CallRecord) Outcome() Outcome {
	switch {
	case c.Panicked:
		return OutcomePanic
	case c.Err != nil:
		return OutcomeError
	default:
		return OutcomeOK
	}
}

// Manifest is the tape_manifest.json structure.
type Manifest struct {
	FormatVersion string         `json:"format_version"`
	RunID         string         `json:"run_id"`
	Entries       []ManifestItem `json:"entries"`
}

// ManifestItem references a tape entry with the digest of its canonical form.
type ManifestItem struct {
	Seq       uint64  `json:"seq"`
	Spy       string  `json:"spy"`
	Outcome   Outcome `json:"outcome"`
	ArgsHash  string  `json:"args_hash"`
	SHA256    string  `json:"sha256"`
	SizeBytes int64   `json:"size_bytes"`
}
