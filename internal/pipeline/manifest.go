package pipeline

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"
)

const ManifestName = "manifest.json"

type ManifestFile struct {
	Name    string `json:"name"`
	Bytes   int64  `json:"bytes"`
	Blake2b string `json:"blake2b"`
}

// Manifest lists a completed stage's outputs. It is written last, so a
// directory without one holds output from a run that did not finish.
type Manifest struct {
	Stage     string         `json:"stage"`
	Year      string         `json:"year"`
	Level     string         `json:"level"`
	Generated time.Time      `json:"generatedAt"`
	Files     []ManifestFile `json:"files"`
	Failed    []int          `json:"failedRidings,omitempty"`

	MissingCSV        []int `json:"missingCsvRidings,omitempty"`
	MissingBoundaries []int `json:"missingBoundaryRidings,omitempty"`
}

// WriteManifest hashes every file in s and writes dir/manifest.json.
func WriteManifest(dir string, s *Summary) (string, error) {
	s.sortFiles()
	m := Manifest{
		Stage:     s.Stage,
		Year:      s.Year,
		Level:     string(s.Level),
		Generated: time.Now().UTC(),
		Files:     make([]ManifestFile, 0, len(s.Files)),

		MissingCSV:        s.NoCSV,
		MissingBoundaries: s.NoBoundaries,
	}
	for _, path := range s.Files {
		mf, err := digest(path)
		if err != nil {
			return "", err
		}
		if rel, err := filepath.Rel(dir, path); err == nil {
			mf.Name = filepath.ToSlash(rel)
		}
		m.Files = append(m.Files, mf)
	}
	for _, f := range s.Failed {
		m.Failed = append(m.Failed, f.Riding)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(dir, ManifestName)
	return out, os.WriteFile(out, data, 0o644)
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return m, err
	}
	return m, json.Unmarshal(data, &m)
}

// Verify rehashes every listed file and reports the first mismatch.
func (m Manifest) Verify(dir string) error {
	for _, want := range m.Files {
		got, err := digest(filepath.Join(dir, filepath.FromSlash(want.Name)))
		if err != nil {
			return err
		}
		if got.Blake2b != want.Blake2b || got.Bytes != want.Bytes {
			return fmt.Errorf("%s changed since the %s run", want.Name, m.Stage)
		}
	}
	return nil
}

func digest(path string) (ManifestFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return ManifestFile{}, err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return ManifestFile{}, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return ManifestFile{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return ManifestFile{Name: filepath.Base(path), Bytes: n, Blake2b: hex.EncodeToString(h.Sum(nil))}, nil
}
