package tape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Mindburn-Labs/callspy/pkg/canonicalize"
)

const (
	manifestFile = "tape_manifest.json"
	entriesFile  = "tape_entries.json"

	manifestSchemaURL = "https://callspy.schemas.local/tape/manifest.schema.json"
	supportedFormats  = "^1"
)

const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["format_version", "run_id", "entries"],
  "properties": {
    "format_version": {"type": "string", "minLength": 1},
    "run_id": {"type": "string", "minLength": 1},
    "entries": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["seq", "spy", "outcome", "args_hash", "sha256"],
        "properties": {
          "seq": {"type": "integer", "minimum": 1},
          "spy": {"type": "string"},
          "outcome": {"enum": ["OK", "ERROR", "PANIC"]},
          "args_hash": {"type": "string"},
          "sha256": {"type": "string"},
          "size_bytes": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadManifestSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(manifestSchemaURL, strings.NewReader(manifestSchema)); err != nil {
			schemaErr = fmt.Errorf("tape manifest schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(manifestSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("tape manifest schema compile failed: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// EntryDigest returns the SHA-256 of the entry's canonical JSON form and
// the size of that form in bytes.
func EntryDigest(e Entry) (string, int64, error) {
	b, err := canonicalize.JCS(e)
	if err != nil {
		return "", 0, fmt.Errorf("canonicalize tape entry seq=%d: %w", e.Seq, err)
	}
	return canonicalize.HashBytes(b), int64(len(b)), nil
}

// BuildManifest creates a manifest covering entries.
func BuildManifest(runID string, entries []Entry) (*Manifest, error) {
	items := make([]ManifestItem, len(entries))
	for i, e := range entries {
		digest, size, err := EntryDigest(e)
		if err != nil {
			return nil, err
		}
		items[i] = ManifestItem{
			Seq:       e.Seq,
			Spy:       e.Spy,
			Outcome:   e.Outcome,
			ArgsHash:  e.ArgsHash,
			SHA256:    digest,
			SizeBytes: size,
		}
	}
	return &Manifest{
		FormatVersion: FormatVersion,
		RunID:         runID,
		Entries:       items,
	}, nil
}

// WriteManifest writes tape_manifest.json to the given directory.
func WriteManifest(dir string, manifest *Manifest) error {
	if manifest.FormatVersion == "" {
		manifest.FormatVersion = FormatVersion
	}
	if manifest.Entries == nil {
		manifest.Entries = []ManifestItem{}
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tape manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create tape dir: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, manifestFile), data, 0o600)
}

// ReadManifest reads tape_manifest.json from the given directory. The
// document must match the manifest schema and declare a supported format
// version.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("read tape manifest: %w", err)
	}

	schema, err := loadManifestSchema()
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse tape manifest: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("tape manifest schema validation failed: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse tape manifest: %w", err)
	}
	if err := checkFormat(manifest.FormatVersion); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func checkFormat(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedFormat, version, err)
	}
	c, err := semver.NewConstraint(supportedFormats)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s (want %s)", ErrUnsupportedFormat, version, supportedFormats)
	}
	return nil
}

// WriteEntries writes tape_entries.json to the given directory.
func WriteEntries(dir string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tape entries: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create tape dir: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, entriesFile), data, 0o600)
}

// ReadEntries reads tape_entries.json from the given directory.
func ReadEntries(dir string) ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(dir, entriesFile))
	if err != nil {
		return nil, fmt.Errorf("read tape entries: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse tape entries: %w", err)
	}
	return entries, nil
}

// VerifyManifestIntegrity checks every manifest item against the entry it
// references. An empty result means the tape is intact.
func VerifyManifestIntegrity(entries []Entry, manifest *Manifest) []string {
	var issues []string
	entryMap := make(map[uint64]*Entry, len(entries))
	for i := range entries {
		entryMap[entries[i].Seq] = &entries[i]
	}

	for _, item := range manifest.Entries {
		entry, ok := entryMap[item.Seq]
		if !ok {
			issues = append(issues, fmt.Sprintf("seq=%d referenced in manifest but not in entries", item.Seq))
			continue
		}
		computed, _, err := EntryDigest(*entry)
		if err != nil {
			issues = append(issues, err.Error())
			continue
		}
		if computed != item.SHA256 {
			issues = append(issues, fmt.Sprintf("seq=%d hash mismatch: expected %s, got %s", item.Seq, item.SHA256, computed))
		}
		if args, err := canonicalize.Transform(entry.Args); err != nil || entry.ArgsHash != canonicalize.HashBytes(args) {
			issues = append(issues, fmt.Sprintf("seq=%d args hash does not match recorded args", item.Seq))
		}
		delete(entryMap, item.Seq)
	}
	for seq := range entryMap {
		issues = append(issues, fmt.Sprintf("seq=%d present in entries but not in manifest", seq))
	}
	return issues
}
