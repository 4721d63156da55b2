package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
	"github.com/EmpoweredVote/EV-Ridings/internal/join"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
	"github.com/EmpoweredVote/EV-Ridings/internal/tally"
)

// RidingResults returns riding-level results from the riding summary CSV,
// or, when the year has no summary file, aggregated from the poll CSVs.
func (p *Pipeline) RidingResults() (map[int]*results.Result, error) {
	path := p.Layout.RidingCSV()
	if _, err := os.Stat(path); err == nil {
		return tally.ReadRidingSummaryFile(path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	log.Printf("[pipeline] no %s, aggregating ridings from poll files", path)
	files, err := p.pollFiles()
	if err != nil {
		return nil, err
	}
	out := make(map[int]*results.Result, len(files))
	for riding, file := range files {
		t, err := p.parseRiding(file)
		if err != nil {
			LogSkip("riding-aggregate", riding, err)
			continue
		}
		out[riding] = t.Riding
	}
	return out, nil
}

// JoinRidings attaches riding-level results to the riding boundaries and
// writes one nationwide file. Ridings without results are kept, unlike the
// poll outputs. Any missing input fails the stage.
func (p *Pipeline) JoinRidings(ctx context.Context) (*Summary, error) {
	const stage = "join-ridings"
	LogStage(stage, p.Layout.Year, results.LevelRiding)
	start := time.Now()

	features, err := geo.ReadCollection(p.Layout.Boundaries(results.LevelRiding))
	if err != nil {
		return nil, err
	}
	byRiding, err := p.RidingResults()
	if err != nil {
		return nil, err
	}

	joined, st := join.Joiner{Level: results.LevelRiding, Year: p.Layout.Year, KeepUnmatched: true}.Join(features, byRiding)
	for _, n := range st.UnmatchedKeys {
		log.Printf("[pipeline] WARNING: no results for riding %d", n)
	}

	out := p.Layout.RidingOutput()
	if err := geo.WriteCollection(out, joined); err != nil {
		return nil, err
	}

	sum := newSummary(stage, p.Layout.Year, results.LevelRiding)
	sum.done(out, st)

	all := sorted(byRiding)
	if p.Sink != nil {
		for _, r := range all {
			if err := p.Sink.SaveResults(ctx, p.Layout.Year, results.LevelRiding, r.Number, []*results.Result{r}); err != nil {
				log.Printf("[pipeline] %s: store riding %d: %v", stage, r.Number, err)
			}
		}
	}

	for _, sc := range results.SeatsByParty(all) {
		log.Printf("[pipeline] %s %s: %d seats", p.Layout.Year, sc.Party, sc.Seats)
	}
	LogSummary(sum, time.Since(start))
	return sum, nil
}
