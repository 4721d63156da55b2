package geo

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// StreamFeatures decodes the "features" array of a FeatureCollection one
// feature at a time, so files larger than memory can be processed.
func StreamFeatures(r io.Reader, fn func(Feature) error) error {
	dec := json.NewDecoder(bufio.NewReaderSize(r, 1<<20))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read collection: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("read collection: expected object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if key != "features" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("skip %q: %w", key, err)
			}
			continue
		}

		if tok, err := dec.Token(); err != nil {
			return err
		} else if d, ok := tok.(json.Delim); !ok || d != '[' {
			return errors.New("read collection: features is not an array")
		}
		for dec.More() {
			var f geojson.Feature
			if err := dec.Decode(&f); err != nil {
				return fmt.Errorf("decode feature: %w", err)
			}
			if err := fn(Canonicalize(&f)); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
	}
	return nil
}

// StreamWriter appends features to a FeatureCollection file as they arrive.
// There is no temp file and rename: a crash mid-write leaves a truncated
// file behind, so output is only trustworthy once the run reports success.
type StreamWriter struct {
	path  string
	f     *os.File
	w     *bufio.Writer
	count int
}

func CreateStream(path string) (*StreamWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(`{"type":"FeatureCollection","features":[`); err != nil {
		f.Close()
		return nil, err
	}
	return &StreamWriter{path: path, f: f, w: w}, nil
}

func (s *StreamWriter) Write(f Feature) error {
	b, err := json.Marshal(f.Raw)
	if err != nil {
		return err
	}
	if s.count > 0 {
		if err := s.w.WriteByte(','); err != nil {
			return err
		}
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	s.count++
	return nil
}

// Count is the number of features written so far.
func (s *StreamWriter) Count() int { return s.count }

func (s *StreamWriter) Path() string { return s.path }

// Close terminates the collection and closes the file.
func (s *StreamWriter) Close() error {
	if _, err := s.w.WriteString("]}"); err != nil {
		s.f.Close()
		return err
	}
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
