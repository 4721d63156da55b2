package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
	"github.com/EmpoweredVote/EV-Ridings/internal/join"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
	"github.com/EmpoweredVote/EV-Ridings/internal/tally"
)

var errNoCSV = errors.New("no poll CSV files")

// pollFiles maps riding number to its poll-by-poll CSV.
func (p *Pipeline) pollFiles() (map[int]string, error) {
	paths, err := filepath.Glob(filepath.Join(p.Layout.PollCSVDir(), "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %w in %s", geo.ErrMissingInput, errNoCSV, p.Layout.PollCSVDir())
	}
	out := make(map[int]string, len(paths))
	for _, path := range paths {
		if riding, ok := RidingFromCSV(path); ok {
			out[riding] = path
		}
	}
	return out, nil
}

func (p *Pipeline) parseRiding(path string) (*tally.Tally, error) {
	rows, err := tally.ReadPollFile(path)
	if err != nil {
		return nil, err
	}
	t, err := p.Parser.Parse(rows)
	if err != nil {
		return nil, err
	}
	t.Finalize()
	return t, nil
}

// JoinByRiding parses every riding's poll CSV, joins the poll or advance
// results onto that riding's boundaries and writes one file per riding.
//
// A missing or malformed CSV skips only that riding. A missing boundary file
// fails the stage.
func (p *Pipeline) JoinByRiding(ctx context.Context, level results.Level) (*Summary, error) {
	if level == results.LevelRiding {
		return nil, fmt.Errorf("JoinByRiding: level must be poll or adv")
	}
	stage := "join-" + string(level) + "-by-riding"
	LogStage(stage, p.Layout.Year, level)
	start := time.Now()

	features, err := geo.ReadCollection(p.Layout.Boundaries(level))
	if err != nil {
		return nil, err
	}
	byRiding, _ := geo.GroupByRiding(features)
	log.Printf("[pipeline] %s: %d ridings with %s boundaries", stage, len(byRiding), level)

	files, err := p.pollFiles()
	if err != nil {
		return nil, err
	}

	sum := newSummary(stage, p.Layout.Year, level)
	ridings := make([]int, 0, len(files))
	for riding := range files {
		if _, ok := byRiding[riding]; ok {
			ridings = append(ridings, riding)
		} else {
			sum.NoBoundaries = append(sum.NoBoundaries, riding)
		}
	}
	for riding := range byRiding {
		if _, ok := files[riding]; !ok && riding != 0 {
			sum.NoCSV = append(sum.NoCSV, riding)
		}
	}
	sort.Ints(ridings)
	sort.Ints(sum.NoBoundaries)
	sort.Ints(sum.NoCSV)
	if len(sum.NoBoundaries) > 0 {
		log.Printf("[pipeline] WARNING: %s: %d poll CSVs without %s boundaries: %v", stage, len(sum.NoBoundaries), level, sum.NoBoundaries)
	}
	if len(sum.NoCSV) > 0 {
		log.Printf("[pipeline] WARNING: %s: %d ridings with %s boundaries but no poll CSV: %v", stage, len(sum.NoCSV), level, sum.NoCSV)
	}

	prog := newProgress(stage, len(ridings))
	joiner := join.Joiner{Level: level, Year: p.Layout.Year}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for _, riding := range ridings {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := p.parseRiding(files[riding])
			if err != nil {
				sum.fail(riding, err)
				return nil
			}
			byNumber := t.Polls
			if level == results.LevelAdvance {
				byNumber = t.Advance
			}

			joined, st := joiner.Join(byRiding[riding], byNumber)
			var path string
			if len(joined) > 0 || level == results.LevelPoll {
				path = p.Layout.ByRidingFile(level, riding)
				if err := geo.WriteCollection(path, joined); err != nil {
					sum.fail(riding, err)
					return nil
				}
			}
			if p.Sink != nil {
				if err := p.Sink.SaveResults(gctx, p.Layout.Year, level, riding, sorted(byNumber)); err != nil {
					log.Printf("[pipeline] %s: store riding %d: %v", stage, riding, err)
				}
			}
			prog.tick(sum.done(path, st))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	if _, err := WriteManifest(p.Layout.ByRidingDir(level), sum); err != nil {
		return sum, err
	}
	LogSummary(sum, time.Since(start))
	return sum, nil
}

func sorted(m map[int]*results.Result) []*results.Result {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]*results.Result, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
