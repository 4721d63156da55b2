package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// Layout resolves every input and output path for one election year under a
// data root.
type Layout struct {
	Root string
	Year string
}

func (l Layout) geojsonDir() string {
	return filepath.Join(l.Root, "election_boundaries_19-25", l.Year+"_boundaries", "geojson")
}

func (l Layout) dataDir() string {
	return filepath.Join(l.Root, "election_data_19-25", "results_"+l.Year)
}

// Boundaries is the nationwide boundary file for level.
func (l Layout) Boundaries(level results.Level) string {
	return filepath.Join(l.geojsonDir(), fmt.Sprintf("%s_%s_wgs84.json", l.Year, level))
}

// PollCSVDir holds one poll-by-poll CSV per riding.
func (l Layout) PollCSVDir() string {
	return filepath.Join(l.dataDir(), "poll_"+l.Year)
}

func (l Layout) RidingCSV() string {
	return filepath.Join(l.dataDir(), "riding_"+l.Year+".csv")
}

func (l Layout) ByRidingDir(level results.Level) string {
	return filepath.Join(l.geojsonDir(), string(level)+"_by_riding")
}

func (l Layout) ByRidingFile(level results.Level, riding int) string {
	return filepath.Join(l.ByRidingDir(level), fmt.Sprintf("%d_%s_%s.json", riding, l.Year, level))
}

func (l Layout) ByProvinceDir(level results.Level) string {
	return filepath.Join(l.geojsonDir(), string(level)+"_by_province")
}

func (l Layout) ByProvinceFile(level results.Level, p geo.Province) string {
	return filepath.Join(l.ByProvinceDir(level), fmt.Sprintf("%d_%s_%s_%s.json", p.Code, p.Abbr, l.Year, level))
}

// RidingOutput is the riding-level boundary file with results attached.
func (l Layout) RidingOutput() string {
	return filepath.Join(l.geojsonDir(), l.Year+"_riding_with_results.json")
}

// DAFile names a per-province dissemination area file inside dir.
func DAFile(dir string, p geo.Province) string {
	return filepath.Join(dir, fmt.Sprintf("da_%d_%s.geojson", p.Code, p.Abbr))
}

var ridingFromFile = regexp.MustCompile(`(\d+)\.csv$`)

// RidingFromCSV reads the riding number from a poll CSV file name such as
// "pollbypoll_bureauparbureau35001.csv".
func RidingFromCSV(name string) (int, bool) {
	m := ridingFromFile.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}
