package tally

import (
	"errors"
	"strings"
	"testing"

	"github.com/EmpoweredVote/EV-Ridings/internal/party"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

const pollHeader = "\ufeffElectoral District Number/Numéro de circonscription," +
	"Electoral District Name_English/Nom de circonscription_Anglais," +
	"Polling Station Number/Numéro du bureau de scrutin," +
	"Polling Station Name/Nom du bureau de scrutin," +
	"Void Poll Indicator/Indicateur de bureau supprimé," +
	"Merge With/Fusionné avec," +
	"Rejected Ballots for Polling Station/Bulletins rejetés du bureau," +
	"Electors for Polling Station/Électeurs du bureau," +
	"Candidate Residence/Résidence du candidat," +
	"Candidate's Family Name/Nom de famille du candidat," +
	"Candidate's Middle Name/Second prénom du candidat," +
	"Candidate's First Name/Prénom du candidat," +
	"Political Affiliation Name_English/Appartenance politique_Anglais," +
	"Incumbent Indicator/Indicateur_Candidat sortant," +
	"Elected Candidate Indicator/Indicateur du candidat élu," +
	"Candidate Poll Votes Count/Votes du candidat pour le bureau\n"

func pollCSV(lines ...string) string {
	return pollHeader + strings.Join(lines, "\n") + "\n"
}

func parse(t *testing.T, policy ElectorPolicy, csv string) *Tally {
	t.Helper()
	rows, err := ReadPollRows(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadPollRows: %v", err)
	}
	tl, err := NewParser(policy).Parse(rows)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tl
}

var station101 = []string{
	`35001,Ajax,101,Riverside School,N,,3,400,,Able,,Ann,Liberal/Libéral,N,Y,120`,
	`35001,Ajax,101,Riverside School,N,,3,400,,Baker,,Bob,Conservative/Conservateur,N,N,150`,
	`35001,Ajax,101,Riverside School,N,,3,400,,Cole,,Cy,Independent/Indépendant(e),N,N,10`,
}

func TestParse_PollExample(t *testing.T) {
	tl := parse(t, ElectorsFirst, pollCSV(station101...))
	r := tl.Polls[101]
	if r == nil {
		t.Fatal("no result for station 101")
	}
	if r.TotalVotes != 280 || r.Electors != 400 || r.Rejected != 3 {
		t.Errorf("totals: votes=%d electors=%d rejected=%d", r.TotalVotes, r.Electors, r.Rejected)
	}
	if *r.Name != "Riverside School" || r.Level != results.LevelPoll {
		t.Errorf("name/level = %q/%s", *r.Name, r.Level)
	}

	tl.Finalize()
	if r.Winner == nil || r.Winner.Name != "Bob Baker" {
		t.Fatalf("poll winner = %+v, want Bob Baker regardless of elected flag", r.Winner)
	}
	if r.Candidates[0].IsWinner {
		t.Errorf("elected indicator leaked into poll-level isWinner")
	}
	var got []string
	for _, c := range r.Candidates {
		got = append(got, c.Name+"="+c.Percentage)
	}
	if strings.Join(got, ",") != "Ann Able=42.9,Bob Baker=53.6" {
		t.Errorf("candidates after filter = %v", got)
	}
	if r.TotalVotes != 280 {
		t.Errorf("filter changed TotalVotes to %d", r.TotalVotes)
	}
}

func TestParse_AdvanceRouting(t *testing.T) {
	tl := parse(t, ElectorsFirst, pollCSV(
		append(station101,
			`35001,Ajax,601,Advance 601,N,,0,0,,Able,,Ann,Liberal/Libéral,N,Y,40`,
			`35001,Ajax,601,Advance 601,N,,0,0,,Baker,,Bob,Conservative/Conservateur,N,N,90`,
		)...))

	if _, ok := tl.Polls[601]; ok {
		t.Error("advance station 601 leaked into poll results")
	}
	adv := tl.Advance[601]
	if adv == nil || adv.Level != results.LevelAdvance {
		t.Fatalf("advance result = %+v", adv)
	}
	if _, ok := tl.Advance[101]; ok {
		t.Error("poll station 101 leaked into advance results")
	}

	tl.Finalize()
	// At advance level the elected indicator names the winner.
	if adv.Winner.Name != "Ann Able" || !adv.Candidates[0].IsWinner {
		t.Errorf("advance winner = %+v", adv.Winner)
	}
}

func TestParse_MergedStationsExcluded(t *testing.T) {
	tl := parse(t, ElectorsFirst, pollCSV(
		`35001,Ajax,10,Hall,N,,1,200,,Able,,Ann,Liberal/Libéral,N,Y,50`,
		`35001,Ajax,11,Annex,N,10,0,80,,Able,,Ann,Liberal/Libéral,N,Y,0`,
	))
	if _, ok := tl.Polls[11]; ok {
		t.Error("merge source 11 produced a result")
	}
	if tl.Merged[11] != 10 {
		t.Errorf("Merged = %v", tl.Merged)
	}
	if tl.Polls[10].TotalVotes != 50 {
		t.Errorf("target poll votes = %d", tl.Polls[10].TotalVotes)
	}
}

func TestParse_ElectorPolicies(t *testing.T) {
	csv := pollCSV(
		`35001,Ajax,12A,Hall,N,,1,200,,Able,,Ann,Liberal/Libéral,N,Y,50`,
		`35001,Ajax,12A,Hall,N,,1,200,,Baker,,Bob,Conservative/Conservateur,N,N,20`,
		`35001,Ajax,12B,Hall,N,,2,150,,Able,,Ann,Liberal/Libéral,N,Y,30`,
		`35001,Ajax,12B,Hall,N,,2,150,,Baker,,Bob,Conservative/Conservateur,N,N,40`,
	)

	first := parse(t, ElectorsFirst, csv).Polls[12]
	if first.Electors != 200 {
		t.Errorf("first policy electors = %d, want 200", first.Electors)
	}
	sum := parse(t, ElectorsSum, csv).Polls[12]
	if sum.Electors != 700 {
		t.Errorf("sum policy electors = %d, want 700", sum.Electors)
	}
	if sum.TotalVotes != 140 || len(sum.Candidates) != 4 {
		t.Errorf("votes=%d candidates=%d", sum.TotalVotes, len(sum.Candidates))
	}
}

func TestParse_ElectorSumCountsEveryRow(t *testing.T) {
	tests := []struct {
		policy ElectorPolicy
		want   int
	}{
		{ElectorsFirst, 400},
		{ElectorsSum, 1200},
	}
	for _, tt := range tests {
		tl := parse(t, tt.policy, pollCSV(station101...))
		if got := tl.Polls[101].Electors; got != tt.want {
			t.Errorf("%s: electors = %d, want %d", tt.policy, got, tt.want)
		}
		if got := tl.Riding.Electors; got != tt.want {
			t.Errorf("%s: riding electors = %d, want %d", tt.policy, got, tt.want)
		}
	}
}

func TestParse_SkipsUnreadableStation(t *testing.T) {
	tl := parse(t, ElectorsFirst, pollCSV(
		`35001,Ajax,S/R 1,Special Voting Rules,N,,0,0,,Able,,Ann,Liberal/Libéral,N,Y,7`,
		`35001,Ajax,,,N,,0,0,,Able,,Ann,Liberal/Libéral,N,Y,7`,
	))
	if len(tl.Polls) != 0 || tl.Skipped != 2 {
		t.Errorf("polls=%d skipped=%d", len(tl.Polls), tl.Skipped)
	}
	if tl.Riding.TotalVotes != 14 {
		t.Errorf("riding total should still count special ballots, got %d", tl.Riding.TotalVotes)
	}
}

func TestParse_MissingAffiliation(t *testing.T) {
	rows, err := ReadPollRows(strings.NewReader(pollCSV(
		`35001,Ajax,5,Hall,N,,0,10,,Able,,Ann,,N,N,3`,
	)))
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewParser(ElectorsFirst).Parse(rows)
	if !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("expected ErrMalformedRow, got %v", err)
	}
	var re *RowError
	if !errors.As(err, &re) || re.Line != 2 || re.Riding != 35001 {
		t.Errorf("row error = %+v", re)
	}
}

func TestParse_MissingVotesDefaultsToZero(t *testing.T) {
	tl := parse(t, ElectorsFirst, pollCSV(
		`35001,Ajax,5,Hall,N,,0,10,,Able,,Ann,Green Party/Parti Vert,N,N,`,
	))
	c := tl.Polls[5].Candidates[0]
	if c.Votes != 0 || c.Party != party.Green {
		t.Errorf("candidate = %+v", c)
	}
}

func TestParse_RidingAggregate(t *testing.T) {
	tl := parse(t, ElectorsFirst, pollCSV(
		`35001,Ajax,1,Hall,N,,0,100,,Able,,Ann,Liberal/Libéral,N,Y,30`,
		`35001,Ajax,1,Hall,N,,0,100,,Baker,,Bob,Conservative/Conservateur,N,N,60`,
		`35001,Ajax,2,Gym,N,,0,50,,Able,,Ann,Liberal/Libéral,N,Y,50`,
		`35001,Ajax,2,Gym,N,,0,50,,Baker,,Bob,Conservative/Conservateur,N,N,10`,
	))
	r := tl.Riding
	if r.Number != 35001 || *r.Name != "Ajax" || r.Electors != 150 {
		t.Errorf("riding = %d %q electors=%d", r.Number, *r.Name, r.Electors)
	}
	tl.Finalize()
	if len(r.Candidates) != 2 || r.TotalVotes != 150 {
		t.Fatalf("candidates=%d total=%d", len(r.Candidates), r.TotalVotes)
	}
	if r.Winner.Name != "Ann Able" || r.Winner.Votes != 80 {
		t.Errorf("riding winner = %+v", r.Winner)
	}
	if *r.Winner.Margin != 10 || *r.Winner.MarginPercent != 6.7 {
		t.Errorf("margin = %d (%.1f%%)", *r.Winner.Margin, *r.Winner.MarginPercent)
	}
}

func TestReadPollRows_MissingColumn(t *testing.T) {
	_, err := ReadPollRows(strings.NewReader("Polling Station Number/Numéro\n1\n"))
	if err == nil || !strings.Contains(err.Error(), "Political Affiliation") {
		t.Errorf("expected missing column error, got %v", err)
	}
}

func TestReadPollRows_Windows1252(t *testing.T) {
	// "Numéro" and "Libéral" encoded as Windows-1252 (0xE9).
	data := "Polling Station Number/Num\xe9ro,Political Affiliation Name_English/Appartenance,Candidate Poll Votes Count/Votes\n" +
		"7,Liberal/Lib\xe9ral,12\n"
	rows, err := ReadPollRows(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Affiliation != "Liberal/Libéral" || rows[0].Votes != 12 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestParseElectorPolicy(t *testing.T) {
	if p, err := ParseElectorPolicy(""); err != nil || p != ElectorsFirst {
		t.Errorf("default = %q, %v", p, err)
	}
	if _, err := ParseElectorPolicy("average"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
