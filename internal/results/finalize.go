package results

import (
	"math"
	"sort"
	"strconv"

	"github.com/EmpoweredVote/EV-Ridings/internal/party"
)

// MinorThreshold is the share (in percent) at or below which an Independent
// candidate is dropped from the display list.
const MinorThreshold = 5.0

// Percent formats votes/total*100 to one decimal place, rounding halves up
// (1 of 80 is "1.3"). A zero total is "0.0".
func Percent(votes, total int) string {
	if total <= 0 {
		return "0.0"
	}
	tenths := math.Round(float64(votes) * 1000 / float64(total))
	return strconv.FormatFloat(tenths/10, 'f', 1, 64)
}

func percentValue(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Finalize fills percentages, resolves the winner and applies the minor
// candidate filter to every result in m.
func Finalize(m map[int]*Result) {
	for _, r := range m {
		FinalizeOne(r)
	}
}

// FinalizeOne is Finalize for a single result.
//
// A candidate already flagged IsWinner (from the elected indicator) keeps the
// win. Otherwise the candidate with the most votes wins, earliest on ties.
func FinalizeOne(r *Result) {
	for i := range r.Candidates {
		r.Candidates[i].Percentage = Percent(r.Candidates[i].Votes, r.TotalVotes)
	}

	if w := WinnerIndex(r.Candidates); w >= 0 {
		c := &r.Candidates[w]
		c.IsWinner = true
		win := Winner{Name: c.Name, Party: c.Party, Votes: c.Votes, Percentage: c.Percentage}
		if r.Winner != nil {
			win.Margin = r.Winner.Margin
			win.MarginPercent = r.Winner.MarginPercent
		}
		r.Winner = &win
	}

	FilterMinor(r)
}

// WinnerIndex returns the first candidate flagged IsWinner, or else the
// earliest candidate with the most votes. It is -1 for an empty list.
func WinnerIndex(cands []Candidate) int {
	for i, c := range cands {
		if c.IsWinner {
			return i
		}
	}
	best := -1
	for i, c := range cands {
		if best < 0 || c.Votes > cands[best].Votes {
			best = i
		}
	}
	return best
}

// FilterMinor removes Independent candidates at or below MinorThreshold from
// the display list. The winner is never removed; TotalVotes is untouched.
// Running it twice is the same as running it once.
func FilterMinor(r *Result) {
	kept := r.Candidates[:0]
	for _, c := range r.Candidates {
		if c.Party == party.Independent && !c.IsWinner && percentValue(c.Percentage) <= MinorThreshold {
			continue
		}
		kept = append(kept, c)
	}
	r.Candidates = kept
}

// SeatCount is a party and the number of results it won.
type SeatCount struct {
	Party party.Label
	Seats int
}

// SeatsByParty counts winners, most seats first, ties by label.
func SeatsByParty(rs []*Result) []SeatCount {
	counts := map[party.Label]int{}
	for _, r := range rs {
		if r != nil && r.Winner != nil {
			counts[r.Winner.Party]++
		}
	}
	out := make([]SeatCount, 0, len(counts))
	for p, n := range counts {
		out = append(out, SeatCount{Party: p, Seats: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seats != out[j].Seats {
			return out[i].Seats > out[j].Seats
		}
		return out[i].Party < out[j].Party
	})
	return out
}
