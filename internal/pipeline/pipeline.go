package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/EmpoweredVote/EV-Ridings/internal/join"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
	"github.com/EmpoweredVote/EV-Ridings/internal/tally"
)

// ResultSink receives finalized results for persistence. It is optional;
// without one results only go to disk.
type ResultSink interface {
	SaveResults(ctx context.Context, year string, level results.Level, riding int, rs []*results.Result) error
}

// Pipeline runs the batch stages for one year.
type Pipeline struct {
	Layout  Layout
	Parser  *tally.Parser
	Workers int
	Sink    ResultSink
}

func New(root, year string, policy tally.ElectorPolicy, workers int) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		Layout:  Layout{Root: root, Year: year},
		Parser:  tally.NewParser(policy),
		Workers: workers,
	}
}

// Failure is a unit of work that was skipped.
type Failure struct {
	Riding int
	Err    error
}

// Summary is what a stage reports when it finishes. Safe for concurrent use
// by the per-riding workers.
type Summary struct {
	Stage string
	Year  string
	Level results.Level

	Processed int
	Files     []string
	Failed    []Failure
	Join      join.Stats

	// NoCSV lists ridings that have boundaries but no poll CSV, and
	// NoBoundaries the reverse. Neither is processed.
	NoCSV        []int
	NoBoundaries []int

	mu sync.Mutex
}

func newSummary(stage, year string, level results.Level) *Summary {
	return &Summary{Stage: stage, Year: year, Level: level}
}

// Missing is how many ridings were present in only one of the two inputs.
func (s *Summary) Missing() int {
	return len(s.NoCSV) + len(s.NoBoundaries)
}

func (s *Summary) fail(riding int, err error) {
	LogSkip(s.Stage, riding, err)
	s.mu.Lock()
	s.Failed = append(s.Failed, Failure{Riding: riding, Err: err})
	s.mu.Unlock()
}

// done records one processed unit and returns the running count.
func (s *Summary) done(path string, st join.Stats) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed++
	if path != "" {
		s.Files = append(s.Files, path)
	}
	s.Join.Add(st)
	return s.Processed
}

// sortFiles orders output paths so manifests are stable across runs.
func (s *Summary) sortFiles() {
	sort.Strings(s.Files)
	sort.Slice(s.Failed, func(i, j int) bool { return s.Failed[i].Riding < s.Failed[j].Riding })
}
