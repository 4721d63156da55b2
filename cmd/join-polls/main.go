package main

import (
	"context"
	"flag"
	"log"

	"github.com/EmpoweredVote/EV-Ridings/internal/config"
	"github.com/EmpoweredVote/EV-Ridings/internal/pipeline"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
	"github.com/EmpoweredVote/EV-Ridings/internal/store"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "YAML config file (optional)")
		year    = flag.String("year", "", "election year (default: every configured year)")
		level   = flag.String("level", "poll", "poll or adv")
		persist = flag.Bool("store", false, "also upsert results into DATABASE_URL")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	lv, err := results.ParseLevel(*level)
	if err != nil || lv == results.LevelRiding {
		log.Fatalf("-level must be poll or adv, got %q", *level)
	}

	var sink pipeline.ResultSink
	if *persist {
		s, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		sink = s
	}

	years := cfg.Years
	if *year != "" {
		years = []string{*year}
	}
	for _, y := range years {
		p := pipeline.New(cfg.DataRoot, y, cfg.Electors, cfg.Workers)
		p.Sink = sink
		if _, err := p.JoinByRiding(context.Background(), lv); err != nil {
			log.Fatal(err)
		}
	}
}
