package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/EmpoweredVote/EV-Ridings/internal/config"
	"github.com/EmpoweredVote/EV-Ridings/internal/pipeline"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
	"github.com/EmpoweredVote/EV-Ridings/internal/store"
)

// dryRun counts what would be stored.
type dryRun struct{ n int }

func (d *dryRun) SaveResults(_ context.Context, _ string, _ results.Level, _ int, rs []*results.Result) error {
	d.n += len(rs)
	return nil
}

func main() {
	var (
		cfgPath = flag.String("config", "", "YAML config file (optional)")
		year    = flag.String("year", "", "election year (default: every configured year)")
		dry     = flag.Bool("dry-run", false, "count results without touching the database")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	var sink pipeline.ResultSink
	counter := &dryRun{}
	if *dry {
		sink = counter
	} else {
		if cfg.DatabaseURL == "" {
			fmt.Fprintln(os.Stderr, "DATABASE_URL not set (use -dry-run to preview)")
			os.Exit(2)
		}
		s, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		sink = s
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	years := cfg.Years
	if *year != "" {
		years = []string{*year}
	}
	for _, y := range years {
		p := pipeline.New(cfg.DataRoot, y, cfg.Electors, cfg.Workers)
		for _, lv := range []results.Level{results.LevelPoll, results.LevelAdvance, results.LevelRiding} {
			if _, err := p.Seed(ctx, lv, sink); err != nil {
				log.Printf("seed %s %s: %v", y, lv, err)
			}
		}
	}
	if *dry {
		fmt.Printf("Dry run complete: %d results would be stored.\n", counter.n)
	}
}
