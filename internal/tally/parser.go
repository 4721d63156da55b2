package tally

import (
	"errors"
	"fmt"
	"math"

	"github.com/EmpoweredVote/EV-Ridings/internal/party"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// ErrMalformedRow marks a row that cannot be attributed, such as one with no
// party affiliation.
var ErrMalformedRow = errors.New("malformed row")

// RowError locates a malformed row.
type RowError struct {
	Riding int
	Line   int
	Field  string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("riding %d line %d: %s is required", e.Riding, e.Line, e.Field)
}

func (e *RowError) Unwrap() error { return ErrMalformedRow }

// ElectorPolicy decides how a station's elector count is built when the
// station appears on more than one row.
type ElectorPolicy string

const (
	// ElectorsFirst keeps the elector count from the station's first row.
	ElectorsFirst ElectorPolicy = "first"
	// ElectorsSum adds the elector count of every row of the station, one per
	// candidate, including rows from split labels such as "12A" and "12B".
	ElectorsSum ElectorPolicy = "sum"
)

func ParseElectorPolicy(s string) (ElectorPolicy, error) {
	switch ElectorPolicy(s) {
	case ElectorsFirst, ElectorsSum:
		return ElectorPolicy(s), nil
	case "":
		return ElectorsFirst, nil
	}
	return "", fmt.Errorf("unknown elector policy %q (want first or sum)", s)
}

// Advance polls are numbered in [AdvanceMin, AdvanceMax).
const (
	AdvanceMin = 600
	AdvanceMax = 700
)

// IsAdvance reports whether a station number is in the advance poll range.
func IsAdvance(station int) bool {
	return station >= AdvanceMin && station < AdvanceMax
}

// Tally is everything parsed out of one riding's poll-by-poll file. Results
// are raw until Finalize is called.
type Tally struct {
	RidingNumber int
	RidingName   string

	Polls   map[int]*results.Result
	Advance map[int]*results.Result
	Riding  *results.Result

	// Merged maps a suppressed station to the station it was folded into.
	Merged map[int]int
	// Skipped counts rows whose station number could not be read.
	Skipped int
}

// Parser turns raw rows into per-station results.
type Parser struct {
	Electors ElectorPolicy
}

func NewParser(policy ElectorPolicy) *Parser {
	if policy == "" {
		policy = ElectorsFirst
	}
	return &Parser{Electors: policy}
}

// stationBuilder accumulates one poll or advance poll.
type stationBuilder struct {
	res          *results.Result
	useIndicator bool
	rows         int
}

func (b *stationBuilder) add(row Row, policy ElectorPolicy, label party.Label) {
	// newStation already took the first row's electors.
	if policy == ElectorsSum && b.rows > 0 {
		b.res.Electors += row.Electors
	}
	b.rows++
	b.res.Candidates = append(b.res.Candidates, results.Candidate{
		Name:     row.CandidateName(),
		Party:    label,
		Votes:    row.Votes,
		IsWinner: b.useIndicator && row.Elected,
	})
	b.res.TotalVotes += row.Votes
}

// ridingBuilder sums each candidate across every counted row of the riding.
type ridingBuilder struct {
	res   *results.Result
	index map[string]int
}

func (b *ridingBuilder) add(row Row, label party.Label) {
	name := row.CandidateName()
	key := name + "\x00" + string(label)
	i, ok := b.index[key]
	if !ok {
		i = len(b.res.Candidates)
		b.index[key] = i
		b.res.Candidates = append(b.res.Candidates, results.Candidate{Name: name, Party: label})
	}
	c := &b.res.Candidates[i]
	c.Votes += row.Votes
	if row.Elected {
		c.IsWinner = true
	}
	b.res.TotalVotes += row.Votes
}

// Parse builds results for one riding's rows.
//
// Rows that declare a merge target are left out entirely; their votes are
// reported again under the target station. Poll results ignore the elected
// indicator because it names the riding winner, not the poll winner.
func (p *Parser) Parse(rows []Row) (*Tally, error) {
	t := &Tally{
		Polls:   map[int]*results.Result{},
		Advance: map[int]*results.Result{},
		Merged:  map[int]int{},
	}
	if len(rows) > 0 {
		t.RidingNumber = rows[0].RidingNumber
		t.RidingName = rows[0].RidingName
	}

	for _, row := range rows {
		if row.MergeWith == "" {
			continue
		}
		from, ok1 := leadingInt(row.Station)
		to, ok2 := leadingInt(row.MergeWith)
		if ok1 && ok2 {
			t.Merged[from] = to
		}
	}

	name := t.RidingName
	riding := &ridingBuilder{
		res:   &results.Result{Level: results.LevelRiding, Number: t.RidingNumber, Name: &name},
		index: map[string]int{},
	}
	builders := map[int]*stationBuilder{}

	for _, row := range rows {
		if row.MergeWith != "" {
			continue
		}
		station, ok := leadingInt(row.Station)
		if !ok {
			t.Skipped++
			if row.Affiliation != "" {
				riding.add(row, party.Normalize(row.Affiliation))
			}
			continue
		}
		if row.Affiliation == "" {
			return nil, &RowError{Riding: t.RidingNumber, Line: row.Line, Field: "political affiliation"}
		}
		label := party.Normalize(row.Affiliation)
		riding.add(row, label)

		b, ok := builders[station]
		if !ok {
			b = p.newStation(t, station, row)
			builders[station] = b
		}
		b.add(row, p.Electors, label)
	}

	for _, b := range builders {
		riding.res.Electors += b.res.Electors
	}
	t.Riding = riding.res
	return t, nil
}

func (p *Parser) newStation(t *Tally, station int, row Row) *stationBuilder {
	level, dest := results.LevelPoll, t.Polls
	if IsAdvance(station) {
		level, dest = results.LevelAdvance, t.Advance
	}
	name := row.StationName
	res := &results.Result{
		Level:    level,
		Number:   station,
		Name:     &name,
		Rejected: row.Rejected,
		Electors: row.Electors,
	}
	dest[station] = res
	return &stationBuilder{
		res:          res,
		useIndicator: level == results.LevelAdvance,
	}
}

// Finalize computes percentages, winners and the minor candidate filter for
// every result in the tally. The riding result also gets its margin.
func (t *Tally) Finalize() {
	results.Finalize(t.Polls)
	results.Finalize(t.Advance)
	if t.Riding != nil {
		SetMargin(t.Riding)
		results.FinalizeOne(t.Riding)
	}
}

// SetMargin records the winner's lead over the runner-up. It must run before
// the minor candidate filter so the runner-up is still present.
func SetMargin(r *results.Result) {
	w := results.WinnerIndex(r.Candidates)
	if w < 0 {
		return
	}
	runnerUp := 0
	for i, c := range r.Candidates {
		if i != w && c.Votes > runnerUp {
			runnerUp = c.Votes
		}
	}
	margin := r.Candidates[w].Votes - runnerUp
	pct := 0.0
	if r.TotalVotes > 0 {
		pct = math.Round(float64(margin)/float64(r.TotalVotes)*1000) / 10
	}
	r.Winner = &results.Winner{Margin: &margin, MarginPercent: &pct}
}
