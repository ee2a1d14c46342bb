package tape

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecorder_RecordSuccess(t *testing.T) {
	fixed := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	r := NewRecorder("run-1").WithClock(func() time.Time { return fixed })

	entry := r.Record(CallRecord{Spy: "parse", Call: 1, Args: "1", Result: 1, Duration: 3 * time.Millisecond})
	require.Equal(t, uint64(1), entry.Seq)
	require.Equal(t, "run-1", entry.RunID)
	require.Equal(t, OutcomeOK, entry.Outcome)
	require.JSONEq(t, `"1"`, string(entry.Args))
	require.JSONEq(t, `1`, string(entry.Result))
	require.Empty(t, entry.Error)
	require.Equal(t, fixed, entry.Timestamp)
	require.Equal(t, 3*time.Millisecond, entry.Duration())
	require.Len(t, entry.ArgsHash, 64)
}

func TestRecorder_RecordError(t *testing.T) {
	r := NewRecorder("run-1")
	entry := r.Record(CallRecord{Spy: "parse", Call: 1, Args: []any{"fail"}, Result: 0, Err: errors.New("number format error")})
	require.Equal(t, OutcomeError, entry.Outcome)
	require.Equal(t, "number format error", entry.Error)
	require.Nil(t, entry.Result)
}

func TestRecorder_RecordPanic(t *testing.T) {
	r := NewRecorder("run-1")
	entry := r.Record(CallRecord{Spy: "boom", Err: errors.New("panicked"), Panicked: true})
	require.Equal(t, OutcomePanic, entry.Outcome)
}

func TestRecorder_UnencodableArgs(t *testing.T) {
	r := NewRecorder("run-1")
	entry := r.Record(CallRecord{Spy: "cb", Args: []any{func() {}}})

	var text string
	require.NoError(t, json.Unmarshal(entry.Args, &text))
	require.Contains(t, text, "func()")
}

func TestRecorder_NullResultOmitted(t *testing.T) {
	r := NewRecorder("run-1")
	entry := r.Record(CallRecord{Spy: "noop", Args: struct{}{}, Result: nil})
	require.Nil(t, entry.Result)
	require.JSONEq(t, `{}`, string(entry.Args))
}

func TestRecorder_GeneratedRunID(t *testing.T) {
	a := NewRecorder("")
	b := NewRecorder("")
	require.NotEmpty(t, a.RunID())
	require.NotEqual(t, a.RunID(), b.RunID())
}

func TestRecorder_SameArgsSameHash(t *testing.T) {
	r := NewRecorder("run-1")
	e1 := r.Record(CallRecord{Spy: "s", Args: map[string]int{"a": 1, "b": 2}})
	e2 := r.Record(CallRecord{Spy: "s", Args: map[string]int{"b": 2, "a": 1}})
	require.Equal(t, e1.ArgsHash, e2.ArgsHash)
}

func TestRecorder_ForSpy(t *testing.T) {
	r := NewRecorder("run-1")
	r.Record(CallRecord{Spy: "a", Call: 1})
	r.Record(CallRecord{Spy: "b", Call: 1})
	r.Record(CallRecord{Spy: "a", Call: 2})

	got := r.ForSpy("a")
	require.Len(t, got, 2)
	require.Equal(t, uint64(1), got[0].Seq)
	require.Equal(t, uint64(3), got[1].Seq)
	require.Equal(t, 2, got[1].Call)
	require.Empty(t, r.ForSpy("missing"))
}

func TestRecorder_Count(t *testing.T) {
	r := NewRecorder("run-1")
	require.Equal(t, 0, r.Count())
	r.Record(CallRecord{Spy: "s"})
	require.Equal(t, 1, r.Count())
}

func TestRecorder_GetEntry(t *testing.T) {
	r := NewRecorder("run-1")
	r.Record(CallRecord{Spy: "s", Args: "x"})

	e, err := r.GetEntry(1)
	require.NoError(t, err)
	require.Equal(t, "s", e.Spy)

	_, err = r.GetEntry(999)
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestManifest_WriteRead(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder("run-1")
	r.Record(CallRecord{Spy: "parse", Args: []any{"1"}, Result: 1})
	r.Record(CallRecord{Spy: "parse", Args: []any{"fail"}, Err: errors.New("bad")})

	require.NoError(t, r.Flush(dir))

	loaded, err := ReadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, "run-1", loaded.RunID)
	require.Equal(t, FormatVersion, loaded.FormatVersion)
	require.Len(t, loaded.Entries, 2)
	require.Equal(t, OutcomeError, loaded.Entries[1].Outcome)

	entries, err := ReadEntries(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Empty(t, VerifyManifestIntegrity(entries, loaded))
}

func TestManifest_HashIntegrity(t *testing.T) {
	r := NewRecorder("run-1")
	r.Record(CallRecord{Spy: "c", Args: []any{"url"}, Result: "response"})
	entries := r.Entries()
	manifest, err := r.BuildManifest()
	require.NoError(t, err)

	require.Empty(t, VerifyManifestIntegrity(entries, manifest))
}

func TestManifest_CorruptedHash(t *testing.T) {
	r := NewRecorder("run-1")
	r.Record(CallRecord{Spy: "c", Args: []any{"url"}, Result: "response"})
	entries := r.Entries()
	manifest, err := r.BuildManifest()
	require.NoError(t, err)
	manifest.Entries[0].SHA256 = "tampered"

	require.NotEmpty(t, VerifyManifestIntegrity(entries, manifest))
}

func TestManifest_TamperedEntry(t *testing.T) {
	r := NewRecorder("run-1")
	r.Record(CallRecord{Spy: "c", Args: []any{"1"}, Result: 1})
	manifest, err := r.BuildManifest()
	require.NoError(t, err)

	entries := r.Entries()
	entries[0].Args = json.RawMessage(`["2"]`)

	issues := VerifyManifestIntegrity(entries, manifest)
	require.Len(t, issues, 2)
}

func TestManifest_MissingAndExtraEntries(t *testing.T) {
	r := NewRecorder("run-1")
	r.Record(CallRecord{Spy: "c"})
	r.Record(CallRecord{Spy: "c"})
	manifest, err := r.BuildManifest()
	require.NoError(t, err)

	entries := r.Entries()
	issues := VerifyManifestIntegrity(entries[:1], manifest)
	require.Len(t, issues, 1)
	require.Contains(t, issues[0], "seq=2")

	manifest.Entries = manifest.Entries[:1]
	issues = VerifyManifestIntegrity(entries, manifest)
	require.Len(t, issues, 1)
	require.Contains(t, issues[0], "not in manifest")
}

func TestManifest_FileOnDisk(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{RunID: "r1", Entries: []ManifestItem{{Seq: 1, Spy: "s", Outcome: OutcomeOK, ArgsHash: "abc", SHA256: "def", SizeBytes: 3}}}
	require.NoError(t, WriteManifest(dir, m))

	_, err := os.Stat(filepath.Join(dir, "tape_manifest.json"))
	require.NoError(t, err)

	loaded, err := ReadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, FormatVersion, loaded.FormatVersion)
}

func TestManifest_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{FormatVersion: "2.0.0", RunID: "r1", Entries: []ManifestItem{}}
	require.NoError(t, WriteManifest(dir, m))

	_, err := ReadManifest(dir)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestManifest_SchemaViolation(t *testing.T) {
	dir := t.TempDir()
	doc := `{"format_version":"1.0.0","run_id":"r1","entries":[{"seq":0,"spy":"s","outcome":"MAYBE","args_hash":"a","sha256":"b"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tape_manifest.json"), []byte(doc), 0o600))

	_, err := ReadManifest(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema validation failed")
}

func TestManifest_Missing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	require.Error(t, err)
	_, err = ReadEntries(t.TempDir())
	require.Error(t, err)
}
