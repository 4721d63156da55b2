package store

import (
	"context"
	"os"
	"testing"

	"github.com/EmpoweredVote/EV-Ridings/internal/db"
	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
	"github.com/EmpoweredVote/EV-Ridings/internal/party"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

func sample() *results.Result {
	name := "Riverside School"
	return &results.Result{
		Level:      results.LevelPoll,
		Number:     101,
		Name:       &name,
		Electors:   400,
		TotalVotes: 280,
		Candidates: []results.Candidate{
			{Name: "Ann Able", Party: party.Liberal, Votes: 120, Percentage: "42.9"},
			{Name: "Bob Baker", Party: party.Conservative, Votes: 150, IsWinner: true, Percentage: "53.6"},
			{Name: "Ann Other", Party: party.Liberal, Votes: 10, Percentage: "3.6"},
		},
		Winner: &results.Winner{Name: "Bob Baker", Party: party.Conservative, Votes: 150, Percentage: "53.6"},
	}
}

func TestNewRow(t *testing.T) {
	row, err := NewRow("2021", 35001, sample())
	if err != nil {
		t.Fatal(err)
	}
	if row.ID != geo.ResultID("2021", results.LevelPoll, 35001, 101) {
		t.Error("id is not deterministic")
	}
	if row.WinnerParty != "Conservative" || row.TotalVotes != 280 || row.Level != "poll" {
		t.Errorf("row = %+v", row)
	}
	if len(row.Parties) != 2 || row.Parties[0] != "Liberal" || row.Parties[1] != "Conservative" {
		t.Errorf("parties = %v", row.Parties)
	}

	back, err := row.Result()
	if err != nil {
		t.Fatal(err)
	}
	if back.Number != 101 || back.Level != results.LevelPoll || back.Winner.Name != "Bob Baker" || len(back.Candidates) != 3 {
		t.Errorf("payload round trip = %+v", back)
	}
}

func TestNewRow_NoWinner(t *testing.T) {
	row, err := NewRow("2025", 10001, results.Empty(results.LevelRiding, 10001, nil))
	if err != nil {
		t.Fatal(err)
	}
	if row.WinnerParty != "" || len(row.Parties) != 0 || row.Riding != 10001 {
		t.Errorf("row = %+v", row)
	}
}

func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	gdb, err := db.Connect(dsn)
	if err != nil {
		t.Fatal(err)
	}
	s := New(gdb)
	if err := s.Migrate(); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := s.SaveResults(ctx, "test", results.LevelPoll, 35001, []*results.Result{sample()}); err != nil {
		t.Fatal(err)
	}
	// Second save must update, not duplicate.
	if err := s.SaveResults(ctx, "test", results.LevelPoll, 35001, []*results.Result{sample()}); err != nil {
		t.Fatal(err)
	}
	got, err := s.RidingResults(ctx, "test", results.LevelPoll, 35001)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].TotalVotes != 280 {
		t.Errorf("got %+v", got)
	}
	gdb.Where("year = ?", "test").Delete(&ResultRow{})
}
