package partition

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
	"github.com/EmpoweredVote/EV-Ridings/internal/join"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// Key identifies a poll-level result across the whole country.
type Key struct {
	Riding int
	Number int
}

func (k Key) String() string { return fmt.Sprintf("%d-%d", k.Riding, k.Number) }

// Lookup is a flat (riding, number) index of joined results.
type Lookup map[Key]*results.Result

// Load adds every result attached at level in features. It returns how many
// were added.
func (l Lookup) Load(features []geo.Feature, level results.Level) (int, error) {
	n := 0
	for _, f := range features {
		r, ok, err := f.Result(level)
		if err != nil {
			return n, fmt.Errorf("riding %d feature %d: %w", f.Riding, f.Key(level), err)
		}
		if !ok {
			continue
		}
		l[Key{Riding: f.Riding, Number: f.Key(level)}] = r
		n++
	}
	return n, nil
}

// Attach sets the matching result on each feature. Unmatched features are
// kept as they are and counted.
func (l Lookup) Attach(features []geo.Feature, level results.Level) join.Stats {
	var st join.Stats
	for _, f := range features {
		key := Key{Riding: f.Riding, Number: f.Key(level)}
		r, ok := l[key]
		if !ok {
			st.Unmatched++
			st.UnmatchedKeys = append(st.UnmatchedKeys, key.Number)
			continue
		}
		f.SetResult(level, r)
		st.Matched++
	}
	return st
}

// Buckets holds features grouped by province code in source order.
type Buckets struct {
	ByProvince map[int][]geo.Feature
	// Unknown counts features whose province code is not one of the thirteen.
	Unknown int
}

// Provinces returns the non-empty buckets in PRUID order.
func (b Buckets) Provinces() []geo.Province {
	var out []geo.Province
	for _, p := range geo.Provinces {
		if len(b.ByProvince[p.Code]) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// SplitByProvince buckets features by PRUID, or by the riding number's
// leading digits when there is no PRUID. Unknown codes are logged and left
// out of every bucket.
func SplitByProvince(features []geo.Feature) Buckets {
	b := Buckets{ByProvince: map[int][]geo.Feature{}}
	for i, f := range features {
		code := f.ProvinceCode()
		if _, err := geo.ProvinceByCode(code); err != nil {
			log.Printf("[partition] WARNING: feature %d (riding %d): %v", i, f.Riding, err)
			b.Unknown++
			continue
		}
		b.ByProvince[code] = append(b.ByProvince[code], f)
	}
	return b
}

// SplitByRiding is the reverse grouping: province features back into
// per-riding lists.
func SplitByRiding(features []geo.Feature) (map[int][]geo.Feature, []int) {
	return geo.GroupByRiding(features)
}

// StreamSplit splits a collection too large to hold in memory into one file
// per province, named by path(p). Files that end up empty are removed. The
// returned map holds feature counts for the provinces that were written.
func StreamSplit(r io.Reader, path func(geo.Province) string) (map[int]int, int, error) {
	writers := make(map[int]*geo.StreamWriter, len(geo.Provinces))
	closeAll := func() {
		for _, w := range writers {
			w.Close()
		}
	}
	for _, p := range geo.Provinces {
		w, err := geo.CreateStream(path(p))
		if err != nil {
			closeAll()
			return nil, 0, err
		}
		writers[p.Code] = w
	}

	unknown := 0
	err := geo.StreamFeatures(r, func(f geo.Feature) error {
		w, ok := writers[f.ProvinceCode()]
		if !ok {
			unknown++
			return nil
		}
		return w.Write(f)
	})
	if err != nil {
		closeAll()
		return nil, unknown, err
	}

	counts := map[int]int{}
	for _, p := range geo.Provinces {
		w := writers[p.Code]
		if err := w.Close(); err != nil {
			return nil, unknown, err
		}
		if w.Count() == 0 {
			if err := os.Remove(w.Path()); err != nil {
				return nil, unknown, err
			}
			log.Printf("[partition] no features for %s", p.Abbr)
			continue
		}
		counts[p.Code] = w.Count()
	}
	return counts, unknown, nil
}
