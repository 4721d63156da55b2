package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EmpoweredVote/EV-Ridings/internal/db"
	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// ResultRow is one finalized result. Payload holds the result exactly as it
// is written into the GeoJSON output.
type ResultRow struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;column:id"`
	Year        string         `gorm:"column:year;index:idx_results_lookup,priority:1"`
	Level       string         `gorm:"column:level;index:idx_results_lookup,priority:2"`
	Riding      int            `gorm:"column:riding;index:idx_results_lookup,priority:3"`
	Number      int            `gorm:"column:number"`
	TotalVotes  int            `gorm:"column:total_votes"`
	WinnerParty string         `gorm:"column:winner_party"`
	Parties     pq.StringArray `gorm:"type:text[];column:parties"`
	Payload     string         `gorm:"type:jsonb;column:payload"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (ResultRow) TableName() string { return db.Schema + ".results" }

// Store persists results in Postgres.
type Store struct {
	db *gorm.DB
}

func New(d *gorm.DB) *Store { return &Store{db: d} }

// Open connects to dsn and migrates.
func Open(dsn string) (*Store, error) {
	d, err := db.Connect(dsn)
	if err != nil {
		return nil, err
	}
	s := New(d)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate creates the schema and tables.
func (s *Store) Migrate() error {
	if err := db.EnsureSchema(s.db, db.Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return s.db.AutoMigrate(&ResultRow{})
}

// NewRow converts a result into its stored form. The id is deterministic,
// so reruns overwrite instead of duplicating.
func NewRow(year string, riding int, r *results.Result) (ResultRow, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return ResultRow{}, err
	}
	row := ResultRow{
		ID:         geo.ResultID(year, r.Level, riding, r.Number),
		Year:       year,
		Level:      string(r.Level),
		Riding:     riding,
		Number:     r.Number,
		TotalVotes: r.TotalVotes,
		Parties:    pq.StringArray{},
		Payload:    string(payload),
	}
	if r.Winner != nil {
		row.WinnerParty = string(r.Winner.Party)
	}
	seen := map[string]bool{}
	for _, c := range r.Candidates {
		if p := string(c.Party); !seen[p] {
			seen[p] = true
			row.Parties = append(row.Parties, p)
		}
	}
	return row, nil
}

// Result decodes the stored payload.
func (r ResultRow) Result() (*results.Result, error) {
	var out results.Result
	if err := json.Unmarshal([]byte(r.Payload), &out); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", r.ID, err)
	}
	return &out, nil
}

// SaveResults upserts every result of one riding.
func (s *Store) SaveResults(ctx context.Context, year string, level results.Level, riding int, rs []*results.Result) error {
	if len(rs) == 0 {
		return nil
	}
	start := time.Now()
	rows := make([]ResultRow, 0, len(rs))
	for _, r := range rs {
		row, err := NewRow(year, riding, r)
		if err != nil {
			return fmt.Errorf("riding %d %s %d: %w", riding, level, r.Number, err)
		}
		row.UpdatedAt = start
		rows = append(rows, row)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(&rows, 500).Error
	if err != nil {
		return fmt.Errorf("upsert riding %d: %w", riding, err)
	}
	log.Printf("[store] upserted %d %s results for riding %d in %dms", len(rows), level, riding, time.Since(start).Milliseconds())
	return nil
}

// RidingResults returns the stored results of one riding, ordered by number.
func (s *Store) RidingResults(ctx context.Context, year string, level results.Level, riding int) ([]*results.Result, error) {
	return s.ResultsForRidings(ctx, year, level, []int{riding})
}

// ResultsForRidings loads results for several ridings in one query.
func (s *Store) ResultsForRidings(ctx context.Context, year string, level results.Level, ridings []int) ([]*results.Result, error) {
	if len(ridings) == 0 {
		return []*results.Result{}, nil
	}
	ids := make([]int64, len(ridings))
	for i, r := range ridings {
		ids[i] = int64(r)
	}

	var rows []ResultRow
	if err := s.db.WithContext(ctx).
		Where("year = ? AND level = ? AND riding = ANY(?)", year, string(level), pq.Array(ids)).
		Order("riding, number").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}

	out := make([]*results.Result, 0, len(rows))
	for _, row := range rows {
		r, err := row.Result()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
