package geo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// Property spellings differ by data vintage; the first present wins.
var (
	ridingKeys   = []string{"FED_NUM", "FEDNUM"}
	pollKeys     = []string{"PD_NUM", "PDNUM"}
	advanceKeys  = []string{"ADV_POLL_N", "ADVPDNUM"}
	provinceKeys = []string{"PRUID"}
	nameKeys     = []string{"ED_NAMEE", "ENNAME"}
)

// Feature is a boundary feature with its join keys read once at load time.
// A zero key means the property was absent.
type Feature struct {
	Raw *geojson.Feature

	Riding   int
	Poll     int
	Advance  int
	Province int
}

// Canonicalize reads the join keys out of f's properties.
func Canonicalize(f *geojson.Feature) Feature {
	if f.Properties == nil {
		f.Properties = map[string]interface{}{}
	}
	return Feature{
		Raw:      f,
		Riding:   intProp(f.Properties, ridingKeys),
		Poll:     intProp(f.Properties, pollKeys),
		Advance:  intProp(f.Properties, advanceKeys),
		Province: intProp(f.Properties, provinceKeys),
	}
}

// Key returns the identifier results at level are joined on.
func (f Feature) Key(level results.Level) int {
	switch level {
	case results.LevelAdvance:
		return f.Advance
	case results.LevelRiding:
		return f.Riding
	default:
		return f.Poll
	}
}

// ProvinceCode prefers an explicit PRUID and falls back to the riding number.
func (f Feature) ProvinceCode() int {
	if f.Province != 0 {
		return f.Province
	}
	return f.Riding / 1000
}

// RidingName is the English riding name under either spelling.
func (f Feature) RidingName() (string, bool) {
	for _, k := range nameKeys {
		if s, ok := f.Raw.Properties[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// SetResult attaches r under the level's property key.
func (f Feature) SetResult(level results.Level, r *results.Result) {
	f.Raw.Properties[level.PropertyKey()] = r
}

// HasResult reports whether a result is attached at level.
func (f Feature) HasResult(level results.Level) bool {
	v, ok := f.Raw.Properties[level.PropertyKey()]
	return ok && v != nil
}

// Result decodes the attached result at level. Results read back from disk
// are plain maps and go through a JSON round trip.
func (f Feature) Result(level results.Level) (*results.Result, bool, error) {
	v, ok := f.Raw.Properties[level.PropertyKey()]
	if !ok || v == nil {
		return nil, false, nil
	}
	if r, ok := v.(*results.Result); ok {
		return r, true, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false, err
	}
	var r results.Result
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", level.PropertyKey(), err)
	}
	return &r, true, nil
}

func intProp(props map[string]interface{}, keys []string) int {
	for _, k := range keys {
		if n, ok := toInt(props[k]); ok && n != 0 {
			return n
		}
	}
	return 0
}

func toInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}

// GroupByRiding buckets features by riding number, keeping source order
// within each bucket. order lists riding numbers as first seen.
func GroupByRiding(features []Feature) (groups map[int][]Feature, order []int) {
	groups = map[int][]Feature{}
	for _, f := range features {
		if _, ok := groups[f.Riding]; !ok {
			order = append(order, f.Riding)
		}
		groups[f.Riding] = append(groups[f.Riding], f)
	}
	return groups, order
}
