package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/EmpoweredVote/EV-Ridings/internal/config"
	"github.com/EmpoweredVote/EV-Ridings/internal/pipeline"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "YAML config file (optional)")
		year    = flag.String("year", "", "election year (required)")
		level   = flag.String("level", "poll", "poll or adv")
	)
	flag.Parse()

	if *year == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	lv, err := results.ParseLevel(*level)
	if err != nil {
		log.Fatal(err)
	}

	p := pipeline.New(cfg.DataRoot, *year, cfg.Electors, cfg.Workers)
	if _, err := p.MergeToProvinces(context.Background(), lv); err != nil {
		log.Fatal(err)
	}
}
