package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
	"github.com/EmpoweredVote/EV-Ridings/internal/join"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// Seed replays results already on disk into sink, riding by riding, without
// reparsing the CSVs. Poll and advance levels read the per-riding files; the
// riding level reads the riding output.
func (p *Pipeline) Seed(ctx context.Context, level results.Level, sink ResultSink) (*Summary, error) {
	stage := "seed-" + string(level)
	LogStage(stage, p.Layout.Year, level)
	start := time.Now()
	sum := newSummary(stage, p.Layout.Year, level)

	var paths []string
	if level == results.LevelRiding {
		paths = []string{p.Layout.RidingOutput()}
	} else {
		var err error
		paths, err = filepath.Glob(filepath.Join(p.Layout.ByRidingDir(level), "*_"+p.Layout.Year+"_"+string(level)+".json"))
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("%w: no %s files in %s", geo.ErrMissingInput, level, p.Layout.ByRidingDir(level))
		}
		sort.Strings(paths)
	}

	prog := newProgress(stage, len(paths))
	for _, path := range paths {
		fs, err := geo.ReadCollection(path)
		if err != nil {
			return sum, err
		}
		byRiding := map[int][]*results.Result{}
		var order []int
		for _, f := range fs {
			r, ok, err := f.Result(level)
			if err != nil {
				return sum, fmt.Errorf("%s: %w", path, err)
			}
			if !ok {
				continue
			}
			if _, seen := byRiding[f.Riding]; !seen {
				order = append(order, f.Riding)
			}
			byRiding[f.Riding] = append(byRiding[f.Riding], r)
		}
		for _, riding := range order {
			if err := sink.SaveResults(ctx, p.Layout.Year, level, riding, byRiding[riding]); err != nil {
				sum.fail(riding, err)
				continue
			}
			prog.tick(sum.done("", join.Stats{Matched: len(byRiding[riding])}))
		}
	}
	LogSummary(sum, time.Since(start))
	return sum, nil
}
