package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
	"github.com/EmpoweredVote/EV-Ridings/internal/pipeline"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// ResultReader is the part of the store the API reads from.
type ResultReader interface {
	RidingResults(ctx context.Context, year string, level results.Level, riding int) ([]*results.Result, error)
}

// Handler serves pipeline output for the map front-end.
type Handler struct {
	Root    string
	Years   map[string]bool
	Results ResultReader // nil when no database is configured

	ridings ridingCache
}

func NewHandler(root string, years []string, rr ResultReader) *Handler {
	h := &Handler{Root: root, Years: map[string]bool{}, Results: rr}
	for _, y := range years {
		h.Years[y] = true
	}
	return h
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

// target resolves the year and level URL parameters.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (pipeline.Layout, results.Level, bool) {
	year := chi.URLParam(r, "year")
	if !h.Years[year] {
		http.Error(w, "Unknown year", http.StatusNotFound)
		return pipeline.Layout{}, "", false
	}
	level, err := results.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return pipeline.Layout{}, "", false
	}
	return pipeline.Layout{Root: h.Root, Year: year}, level, true
}

func ridingParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "riding"))
	if err != nil || n <= 0 {
		http.Error(w, "Invalid riding number", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

// dataStatus tells the client whether the file came from a finished run.
func dataStatus(w http.ResponseWriter, dir string) {
	if _, err := os.Stat(filepath.Join(dir, pipeline.ManifestName)); err == nil {
		w.Header().Set("X-Data-Status", "complete")
	} else {
		w.Header().Set("X-Data-Status", "partial")
	}
}

func serveCollection(w http.ResponseWriter, r *http.Request, path string) {
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, path)
}

// GetProvinces lists the provinces and territories.
func (h *Handler) GetProvinces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, geo.Provinces)
}

// GetRidingMap returns one riding's boundaries with results. Poll and
// advance levels serve the per-riding file; the riding level cuts the
// riding out of the nationwide file.
func (h *Handler) GetRidingMap(w http.ResponseWriter, r *http.Request) {
	layout, level, ok := h.target(w, r)
	if !ok {
		return
	}
	riding, ok := ridingParam(w, r)
	if !ok {
		return
	}

	if level != results.LevelRiding {
		dataStatus(w, layout.ByRidingDir(level))
		serveCollection(w, r, layout.ByRidingFile(level, riding))
		return
	}

	out, err := h.ridings.get(layout.Year, layout.RidingOutput(), riding)
	if errors.Is(err, geo.ErrMissingInput) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[api] read riding output: %v", err)
		http.Error(w, "Failed to read map", http.StatusInternalServerError)
		return
	}
	if len(out) == 0 {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if b := geo.Bounds(out); b != nil {
		w.Header().Set("X-Bounds", fmt.Sprintf("%g,%g,%g,%g", b.Min(0), b.Min(1), b.Max(0), b.Max(1)))
	}
	data, err := geo.EncodeCollection(out)
	if err != nil {
		http.Error(w, "Failed to encode map", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

// GetProvinceMap returns a province's poll or advance file.
func (h *Handler) GetProvinceMap(w http.ResponseWriter, r *http.Request) {
	layout, level, ok := h.target(w, r)
	if !ok {
		return
	}
	if level == results.LevelRiding {
		http.Error(w, "Riding maps are not split by province", http.StatusBadRequest)
		return
	}
	code, err := strconv.Atoi(chi.URLParam(r, "pruid"))
	if err != nil {
		http.Error(w, "Invalid province code", http.StatusBadRequest)
		return
	}
	prov, err := geo.ProvinceByCode(code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	dataStatus(w, layout.ByProvinceDir(level))
	serveCollection(w, r, layout.ByProvinceFile(level, prov))
}

// GetRidingResults returns stored results for one riding without geometry.
func (h *Handler) GetRidingResults(w http.ResponseWriter, r *http.Request) {
	if h.Results == nil {
		http.Error(w, "Results store not configured", http.StatusServiceUnavailable)
		return
	}
	layout, level, ok := h.target(w, r)
	if !ok {
		return
	}
	riding, ok := ridingParam(w, r)
	if !ok {
		return
	}

	rs, err := h.Results.RidingResults(r.Context(), layout.Year, level, riding)
	if err != nil {
		log.Printf("[api] riding %d results: %v", riding, err)
		http.Error(w, "Failed to fetch results", http.StatusInternalServerError)
		return
	}
	if len(rs) == 0 {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}
