package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ErrMissingInput wraps a source file that does not exist.
var ErrMissingInput = errors.New("missing input")

// DecodeCollection reads a whole FeatureCollection and canonicalizes every
// feature.
func DecodeCollection(r io.Reader) ([]Feature, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	out := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		out = append(out, Canonicalize(f))
	}
	return out, nil
}

// ReadCollection loads path. A missing file is reported as ErrMissingInput.
func ReadCollection(path string) ([]Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, err
	}
	defer f.Close()

	features, err := DecodeCollection(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return features, nil
}

// EncodeCollection marshals features as one FeatureCollection.
func EncodeCollection(features []Feature) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(features))}
	for _, f := range features {
		fc.Features = append(fc.Features, f.Raw)
	}
	return json.Marshal(&fc)
}

// WriteCollection builds the whole file in memory and writes it in one call,
// creating the parent directory if needed.
func WriteCollection(path string, features []Feature) error {
	data, err := EncodeCollection(features)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Bounds is the XY extent of every feature geometry, or nil when none of
// the features carry geometry.
func Bounds(features []Feature) *geom.Bounds {
	var b *geom.Bounds
	for _, f := range features {
		if f.Raw == nil || f.Raw.Geometry == nil {
			continue
		}
		if b == nil {
			b = geom.NewBounds(geom.XY)
		}
		b.Extend(f.Raw.Geometry)
	}
	return b
}
