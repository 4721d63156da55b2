package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/EmpoweredVote/EV-Ridings/internal/pipeline"
)

func main() {
	_ = godotenv.Load(".env.local")

	var (
		src = flag.String("in", "new_boundaries/lda_000b21a_e.geojson", "nationwide dissemination area GeoJSON")
		out = flag.String("out", "new_boundaries/provinces", "output directory")
	)
	flag.Parse()

	if *src == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	if _, err := pipeline.SplitDA(*src, *out); err != nil {
		log.Fatal(err)
	}
}
