package tally

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/EmpoweredVote/EV-Ridings/internal/party"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// Party text that sometimes trails the candidate's name in the summary file.
// Each alternative must end on a word boundary so "Greenwood" stays a name.
var trailingParty = regexp.MustCompile(`(?i)\s+(Liberal|Conservative|NDP-New Democratic Party|Bloc Québécois|Green Party|People's Party|PPC|Independent)\b`)

// splitCandidate separates "Name ** Party/Parti" or "Name Party/Parti" into
// the candidate's name and the affiliation text.
func splitCandidate(field string) (name, affiliation string) {
	field = norm.NFC.String(field)
	name, affiliation, _ = strings.Cut(field, "**")
	name = strings.TrimSpace(name)
	affiliation = strings.TrimSpace(affiliation)
	if loc := trailingParty.FindStringIndex(name); loc != nil {
		if affiliation == "" {
			affiliation = strings.TrimSpace(name[loc[0]:])
		}
		name = strings.TrimSpace(name[:loc[0]])
	}
	return name, affiliation
}

func cleanCandidateName(field string) string {
	name, _ := splitCandidate(field)
	return name
}

// ReadRidingSummary parses the national riding summary file, where each row is
// one candidate ("Name ** Party/Parti") and the elected candidate is the row
// with a Majority value.
func ReadRidingSummary(r io.Reader) (map[int]*results.Result, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require(colRidingNumber, colCandidate, colVotesObtained); err != nil {
		return nil, err
	}

	out := map[int]*results.Result{}
	for i, rec := range t.records {
		line := i + 2
		fed, ok := leadingInt(t.get(rec, colRidingNumber))
		if !ok {
			continue
		}
		field := t.get(rec, colCandidate)
		if field == "" {
			return nil, &RowError{Riding: fed, Line: line, Field: "candidate"}
		}

		res, ok := out[fed]
		if !ok {
			name := t.get(rec, colRidingName, colRidingNameEn)
			res = &results.Result{Level: results.LevelRiding, Number: fed, Name: &name}
			out[fed] = res
		}

		votes := count(t.get(rec, colVotesObtained))
		majority := strings.ReplaceAll(t.get(rec, colMajority), ",", "")
		elected := majority != ""
		name, affiliation := splitCandidate(field)
		c := results.Candidate{
			Name:     name,
			Party:    party.Classify(party.Phrases, affiliation),
			Votes:    votes,
			IsWinner: elected,
		}
		res.Candidates = append(res.Candidates, c)
		res.TotalVotes += votes

		if elected {
			margin := count(majority)
			pct, _ := strconv.ParseFloat(t.get(rec, colMajorityPct), 64)
			res.Winner = &results.Winner{Name: c.Name, Party: c.Party, Votes: votes, Margin: &margin, MarginPercent: &pct}
		}
	}

	results.Finalize(out)
	return out, nil
}

// ReadRidingSummaryFile opens path and parses it with ReadRidingSummary.
func ReadRidingSummaryFile(path string) (map[int]*results.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open riding summary: %w", err)
	}
	defer f.Close()

	out, err := ReadRidingSummary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
