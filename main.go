package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/EmpoweredVote/EV-Ridings/internal/api"
	"github.com/EmpoweredVote/EV-Ridings/internal/config"
	"github.com/EmpoweredVote/EV-Ridings/internal/middleware"
	"github.com/EmpoweredVote/EV-Ridings/internal/store"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	cfgPath := flag.String("config", "", "YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	var rr api.ResultReader
	if cfg.DatabaseURL != "" {
		s, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		rr = s
	} else {
		log.Println("[api] DATABASE_URL not set, /results is disabled")
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RateLimit(rate.NewLimiter(rate.Every(10*time.Millisecond), 50)))
	r.Get("/", RootHandler)
	r.Mount("/", api.SetupRoutes(api.NewHandler(cfg.DataRoot, cfg.Years, rr)))

	log.Printf("Server listening on port :%s...", cfg.Port)
	log.Fatal(http.ListenAndServe("0.0.0.0:"+cfg.Port, r))
}
