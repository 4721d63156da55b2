package results

import (
	"encoding/json"
	"fmt"

	"github.com/EmpoweredVote/EV-Ridings/internal/party"
)

// Level is the aggregation granularity a Result was built at.
type Level string

const (
	LevelPoll    Level = "poll"
	LevelAdvance Level = "adv"
	LevelRiding  Level = "riding"
)

// ParseLevel accepts the short names used in file names and URLs.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelPoll, LevelAdvance, LevelRiding:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown level %q (want poll, adv or riding)", s)
}

// PropertyKey is the feature property a joined Result is stored under.
func (l Level) PropertyKey() string {
	switch l {
	case LevelAdvance:
		return "advResults"
	case LevelRiding:
		return "electionResults"
	default:
		return "pollResults"
	}
}

type Candidate struct {
	Name       string      `json:"name"`
	Party      party.Label `json:"party"`
	Votes      int         `json:"votes"`
	IsWinner   bool        `json:"isWinner"`
	Percentage string      `json:"percentage"`
}

// Winner summarises the winning candidate. Margin fields are only known at
// riding level.
type Winner struct {
	Name          string      `json:"name"`
	Party         party.Label `json:"party"`
	Votes         int         `json:"votes"`
	Percentage    string      `json:"percentage,omitempty"`
	Margin        *int        `json:"margin,omitempty"`
	MarginPercent *float64    `json:"marginPercent,omitempty"`
}

// Result is the tally for one poll, advance poll or riding.
//
// TotalVotes is the sum over every candidate seen while accumulating, so it
// does not change when FilterMinor trims Candidates.
type Result struct {
	Level      Level
	Number     int
	Name       *string
	Rejected   int
	Electors   int
	Candidates []Candidate
	TotalVotes int
	Winner     *Winner
}

// Empty is the placeholder stand-in used while a year's results are pending.
func Empty(level Level, number int, name *string) *Result {
	return &Result{Level: level, Number: number, Name: name, Candidates: []Candidate{}}
}

type pollJSON struct {
	PollNumber *int        `json:"pollNumber,omitempty"`
	AdvNumber  *int        `json:"advPollNumber,omitempty"`
	PollName   *string     `json:"pollName"`
	Rejected   int         `json:"rejected"`
	Electors   int         `json:"electors"`
	Candidates []Candidate `json:"candidates"`
	TotalVotes int         `json:"totalVotes"`
	Winner     *Winner     `json:"winner"`
}

type ridingJSON struct {
	RidingNumber int         `json:"ridingNumber"`
	RidingName   *string     `json:"ridingName"`
	Electors     int         `json:"electors"`
	Candidates   []Candidate `json:"candidates"`
	TotalVotes   int         `json:"totalVotes"`
	Winner       *Winner     `json:"winner"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	cands := r.Candidates
	if cands == nil {
		cands = []Candidate{}
	}
	if r.Level == LevelRiding {
		return json.Marshal(ridingJSON{
			RidingNumber: r.Number,
			RidingName:   r.Name,
			Electors:     r.Electors,
			Candidates:   cands,
			TotalVotes:   r.TotalVotes,
			Winner:       r.Winner,
		})
	}
	out := pollJSON{
		PollName:   r.Name,
		Rejected:   r.Rejected,
		Electors:   r.Electors,
		Candidates: cands,
		TotalVotes: r.TotalVotes,
		Winner:     r.Winner,
	}
	n := r.Number
	if r.Level == LevelAdvance {
		out.AdvNumber = &n
	} else {
		out.PollNumber = &n
	}
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		PollNumber   *int        `json:"pollNumber"`
		AdvNumber    *int        `json:"advPollNumber"`
		RidingNumber *int        `json:"ridingNumber"`
		PollName     *string     `json:"pollName"`
		RidingName   *string     `json:"ridingName"`
		Rejected     int         `json:"rejected"`
		Electors     int         `json:"electors"`
		Candidates   []Candidate `json:"candidates"`
		TotalVotes   int         `json:"totalVotes"`
		Winner       *Winner     `json:"winner"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result{
		Rejected:   raw.Rejected,
		Electors:   raw.Electors,
		Candidates: raw.Candidates,
		TotalVotes: raw.TotalVotes,
		Winner:     raw.Winner,
	}
	switch {
	case raw.RidingNumber != nil:
		r.Level, r.Number, r.Name = LevelRiding, *raw.RidingNumber, raw.RidingName
	case raw.AdvNumber != nil:
		r.Level, r.Number, r.Name = LevelAdvance, *raw.AdvNumber, raw.PollName
	case raw.PollNumber != nil:
		r.Level, r.Number, r.Name = LevelPoll, *raw.PollNumber, raw.PollName
	default:
		return fmt.Errorf("result has no pollNumber, advPollNumber or ridingNumber")
	}
	return nil
}
