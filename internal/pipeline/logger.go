package pipeline

import (
	"log"
	"time"

	"golang.org/x/time/rate"
)

// LogStage logs the start of a pipeline stage.
func LogStage(stage, year string, level interface{}) {
	log.Printf("[pipeline] %s year=%s level=%v", stage, year, level)
}

// LogSummary logs the end-of-stage counts.
func LogSummary(s *Summary, duration time.Duration) {
	log.Printf("[pipeline] %s year=%s level=%s processed=%d written=%d failed=%d missing=%d matched=%d unmatched=%d in %dms",
		s.Stage, s.Year, s.Level, s.Processed, len(s.Files), len(s.Failed), s.Missing(),
		s.Join.Matched, s.Join.Unmatched, duration.Milliseconds())
}

// LogSkip logs a unit of work that was skipped and why.
func LogSkip(stage string, riding int, err error) {
	log.Printf("[pipeline] %s: skipping riding %d: %v", stage, riding, err)
}

// progress logs every 50th call plus whatever the caller logs at the end.
type progress struct {
	stage string
	total int
	every rate.Sometimes
}

func newProgress(stage string, total int) *progress {
	return &progress{stage: stage, total: total, every: rate.Sometimes{Every: 50}}
}

func (p *progress) tick(done int) {
	p.every.Do(func() {
		log.Printf("[pipeline] %s: processed %d/%d", p.stage, done, p.total)
	})
}
