package tape

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/callspy/pkg/canonicalize"
)

// Recorder captures spy invocations in the order they complete.
// It is safe for use by many spies across goroutines.
type Recorder struct {
	mu      sync.Mutex
	runID   string
	entries []Entry
	seq     uint64
	clock   func() time.Time
}

// NewRecorder creates a new tape recorder. An empty runID is replaced by a
// random UUID.
func NewRecorder(runID string) *Recorder {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Recorder{
		runID:   runID,
		entries: make([]Entry, 0),
		clock:   time.Now,
	}
}

// WithClock overrides the clock for testing.
func (r *Recorder) WithClock(clock func() time.Time) *Recorder {
	r.clock = clock
	return r
}

// RunID returns the identifier shared by every entry on this tape.
func (r *Recorder) RunID() string {
	return r.runID
}

// Record appends an invocation to the tape. Values that cannot be encoded
// as JSON are stored as their Go-syntax representation, so recording never
// fails.
func (r *Recorder) Record(rec CallRecord) *Entry {
	args := encodeValue(rec.Args)
	var result json.RawMessage
	var errText string
	if rec.Err != nil {
		errText = rec.Err.Error()
	} else {
		result = encodeValue(rec.Result)
		if string(result) == "null" {
			result = nil
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ts := rec.Start
	if ts.IsZero() {
		ts = r.clock()
	}

	r.seq++
	entry := Entry{
		Seq:        r.seq,
		RunID:      r.runID,
		Spy:        rec.Spy,
		Call:       rec.Call,
		Outcome:    rec.Outcome(),
		ArgsHash:   canonicalize.HashBytes(args),
		Args:       args,
		Result:     result,
		Error:      errText,
		Timestamp:  ts.UTC(),
		DurationNs: rec.Duration.Nanoseconds(),
	}
	r.entries = append(r.entries, entry)
	return &entry
}

// Entries returns all recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Entry, len(r.entries))
	copy(result, r.entries)
	return result
}

// ForSpy returns the entries recorded by the named spy, in order.
func (r *Recorder) ForSpy(name string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Entry
	for _, e := range r.entries {
		if e.Spy == name {
			result = append(result, e)
		}
	}
	return result
}

// BuildManifest creates a tape manifest from recorded entries.
func (r *Recorder) BuildManifest() (*Manifest, error) {
	return BuildManifest(r.runID, r.Entries())
}

// Count returns the number of recorded entries.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// GetEntry returns an entry by sequence number.
func (r *Recorder) GetEntry(seq uint64) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Seq == seq {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("%w: seq=%d", ErrEntryNotFound, seq)
}

// Flush writes the tape entries and their manifest into dir.
func (r *Recorder) Flush(dir string) error {
	entries := r.Entries()
	manifest, err := BuildManifest(r.runID, entries)
	if err != nil {
		return err
	}
	if err := WriteEntries(dir, entries); err != nil {
		return err
	}
	return WriteManifest(dir, manifest)
}

func encodeValue(v any) json.RawMessage {
	b, err := canonicalize.JCS(v)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprintf("%#v", v))
	}
	return b
}
