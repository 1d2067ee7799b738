package index

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const manifestFile = "manifest.json"

// Manifest describes a persisted index snapshot. The manifest is the commit
// point: a snapshot exists once manifest.json names it and the checksum
// matches.
type Manifest struct {
	Version    string    `json:"version"`
	BuiltAt    time.Time `json:"built_at"`
	Records    int       `json:"records"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	File       string    `json:"file,omitempty"`
	Checksum   string    `json:"checksum,omitempty"`
}

// writeSnapshot persists entries plus their manifest under dir. Both files
// land via temp-file rename, manifest last, so a reader always resolves
// either the previous complete snapshot or the new one.
func writeSnapshot(dir string, entries []Entry, man Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	name := fmt.Sprintf("catalog-%s.gob", man.Version)
	tmp := filepath.Join(dir, name+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	h := sha256.New()
	if err := gob.NewEncoder(io.MultiWriter(f, h)).Encode(entries); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("swap snapshot file: %w", err)
	}

	man.File = name
	man.Checksum = hex.EncodeToString(h.Sum(nil))
	raw, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	manTmp := filepath.Join(dir, manifestFile+".tmp")
	if err := os.WriteFile(manTmp, raw, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(manTmp, filepath.Join(dir, manifestFile)); err != nil {
		os.Remove(manTmp)
		return fmt.Errorf("swap manifest: %w", err)
	}
	cleanupSnapshots(dir, name)
	return nil
}

// cleanupSnapshots removes snapshot files other than keep. Best effort.
func cleanupSnapshots(dir, keep string) {
	matches, err := filepath.Glob(filepath.Join(dir, "catalog-*.gob"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if filepath.Base(m) != keep {
			os.Remove(m)
		}
	}
}

// readSnapshot loads the manifest and the snapshot it points at, verifying
// the recorded checksum before decoding. A missing manifest surfaces as
// os.ErrNotExist.
func readSnapshot(dir string) ([]Entry, Manifest, error) {
	var man Manifest
	if dir == "" {
		return nil, man, os.ErrNotExist
	}
	raw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, man, err
	}
	if err := json.Unmarshal(raw, &man); err != nil {
		return nil, man, fmt.Errorf("decode manifest: %w", err)
	}
	if man.File == "" {
		return nil, man, fmt.Errorf("manifest names no snapshot file")
	}
	blob, err := os.ReadFile(filepath.Join(dir, man.File))
	if err != nil {
		return nil, man, err
	}
	sum := sha256.Sum256(blob)
	if got := hex.EncodeToString(sum[:]); got != man.Checksum {
		return nil, man, fmt.Errorf("snapshot checksum mismatch: manifest has %s, file has %s", man.Checksum, got)
	}
	var entries []Entry
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&entries); err != nil {
		return nil, man, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(entries) != man.Records {
		return nil, man, fmt.Errorf("snapshot holds %d entries, manifest says %d", len(entries), man.Records)
	}
	return entries, man, nil
}
