package join

import (
	"log"

	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// Stats counts join outcomes so "no data for this riding" can be told apart
// from a broken join.
type Stats struct {
	Matched       int
	Unmatched     int
	UnmatchedKeys []int
}

func (s *Stats) Add(o Stats) {
	s.Matched += o.Matched
	s.Unmatched += o.Unmatched
	s.UnmatchedKeys = append(s.UnmatchedKeys, o.UnmatchedKeys...)
}

// Joiner attaches results to boundary features by exact integer key.
type Joiner struct {
	Level results.Level
	// Year stamps deterministic feature ids; empty leaves ids alone.
	Year string
	// KeepUnmatched retains features with no result instead of dropping them.
	// Only the riding-level output does this.
	KeepUnmatched bool
}

// Join returns the features that have a result, each with the result set
// under the level's property key. Input order is preserved.
func (j Joiner) Join(features []geo.Feature, byNumber map[int]*results.Result) ([]geo.Feature, Stats) {
	var st Stats
	out := make([]geo.Feature, 0, len(features))
	for _, f := range features {
		key := f.Key(j.Level)
		r, ok := byNumber[key]
		if !ok || key == 0 {
			st.Unmatched++
			st.UnmatchedKeys = append(st.UnmatchedKeys, key)
			if j.KeepUnmatched {
				out = append(out, f)
			}
			continue
		}
		f.SetResult(j.Level, r)
		if j.Year != "" && f.Raw.ID == "" {
			f.Raw.ID = geo.FeatureID(j.Year, j.Level, f.Riding, key).String()
		}
		if j.Level == results.LevelRiding {
			normalizeRiding(f)
		}
		st.Matched++
		out = append(out, f)
	}
	return out, st
}

// normalizeRiding copies legacy riding properties to the current spelling so
// the map reads one set of names for every year.
func normalizeRiding(f geo.Feature) {
	p := f.Raw.Properties
	if _, ok := p["FED_NUM"]; !ok {
		p["FED_NUM"] = f.Riding
	}
	if _, ok := p["ED_NAMEE"]; !ok {
		if en, ok := p["ENNAME"]; ok {
			p["ED_NAMEE"] = en
			p["ED_NAMEF"] = p["FRNAME"]
		}
	}
}

// Placeholder gives every feature lacking a result at level an empty one
// numbered from the feature's own key, so a pending year still renders with
// "no data" styling. It returns how many placeholders were added.
func Placeholder(features []geo.Feature, level results.Level) int {
	added := 0
	for _, f := range features {
		if f.HasResult(level) {
			continue
		}
		var name *string
		if level == results.LevelRiding {
			if n, ok := f.RidingName(); ok {
				name = &n
			}
		}
		f.SetResult(level, results.Empty(level, f.Key(level), name))
		added++
	}
	if added > 0 {
		log.Printf("[join] added %d empty %s placeholders", added, level.PropertyKey())
	}
	return added
}
