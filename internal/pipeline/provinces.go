package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
	"github.com/EmpoweredVote/EV-Ridings/internal/join"
	"github.com/EmpoweredVote/EV-Ridings/internal/partition"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// SplitProvinces writes the nationwide boundary file for level as one file
// per province. Features are written without results; MergeToProvinces
// attaches them afterwards.
func (p *Pipeline) SplitProvinces(ctx context.Context, level results.Level) (*Summary, error) {
	if level == results.LevelRiding {
		return nil, fmt.Errorf("SplitProvinces: level must be poll or adv")
	}
	stage := "split-" + string(level) + "-provinces"
	LogStage(stage, p.Layout.Year, level)
	start := time.Now()

	features, err := geo.ReadCollection(p.Layout.Boundaries(level))
	if err != nil {
		return nil, err
	}
	buckets := partition.SplitByProvince(features)
	if buckets.Unknown > 0 {
		log.Printf("[pipeline] WARNING: %s: %d features with an unknown province", stage, buckets.Unknown)
	}

	sum := newSummary(stage, p.Layout.Year, level)
	for _, prov := range buckets.Provinces() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		path := p.Layout.ByProvinceFile(level, prov)
		fs := buckets.ByProvince[prov.Code]
		if err := geo.WriteCollection(path, fs); err != nil {
			return sum, err
		}
		log.Printf("[pipeline] %s: %s %d features", stage, prov.Abbr, len(fs))
		sum.done(path, join.Stats{})
	}

	if _, err := WriteManifest(p.Layout.ByProvinceDir(level), sum); err != nil {
		return sum, err
	}
	LogSummary(sum, time.Since(start))
	return sum, nil
}

// LoadLookup indexes every per-riding output for level by (riding, number).
func (p *Pipeline) LoadLookup(level results.Level) (partition.Lookup, error) {
	paths, err := filepath.Glob(filepath.Join(p.Layout.ByRidingDir(level), "*_"+p.Layout.Year+"_"+string(level)+".json"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", geo.ErrMissingInput, level, p.Layout.ByRidingDir(level))
	}

	l := partition.Lookup{}
	total := 0
	for _, path := range paths {
		fs, err := geo.ReadCollection(path)
		if err != nil {
			return nil, err
		}
		n, err := l.Load(fs, level)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		total += n
	}
	log.Printf("[pipeline] loaded %d %s results from %d riding files", total, level, len(paths))
	return l, nil
}

// MergeToProvinces attaches per-riding results to each existing province
// file and rewrites it. Features without a result stay in the file.
func (p *Pipeline) MergeToProvinces(ctx context.Context, level results.Level) (*Summary, error) {
	if level == results.LevelRiding {
		return nil, fmt.Errorf("MergeToProvinces: level must be poll or adv")
	}
	stage := "merge-" + string(level) + "-provinces"
	LogStage(stage, p.Layout.Year, level)
	start := time.Now()

	lookup, err := p.LoadLookup(level)
	if err != nil {
		return nil, err
	}

	sum := newSummary(stage, p.Layout.Year, level)
	for _, prov := range geo.Provinces {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		path := p.Layout.ByProvinceFile(level, prov)
		fs, err := geo.ReadCollection(path)
		if errors.Is(err, geo.ErrMissingInput) {
			log.Printf("[pipeline] %s: no %s file, skipping", stage, prov.Abbr)
			continue
		}
		if err != nil {
			return sum, err
		}

		st := lookup.Attach(fs, level)
		if err := geo.WriteCollection(path, fs); err != nil {
			return sum, err
		}
		log.Printf("[pipeline] %s: %s matched=%d unmatched=%d", stage, prov.Abbr, st.Matched, st.Unmatched)
		sum.done(path, st)
	}

	if _, err := WriteManifest(p.Layout.ByProvinceDir(level), sum); err != nil {
		return sum, err
	}
	LogSummary(sum, time.Since(start))
	return sum, nil
}

// Placeholders fills in empty results for a year whose results are not out
// yet. Poll and advance levels update the province files in place; the
// riding level writes the riding output from the boundaries.
func (p *Pipeline) Placeholders(ctx context.Context, level results.Level) (*Summary, error) {
	stage := "placeholders-" + string(level)
	LogStage(stage, p.Layout.Year, level)
	start := time.Now()
	sum := newSummary(stage, p.Layout.Year, level)

	if level == results.LevelRiding {
		src := p.Layout.RidingOutput()
		fs, err := geo.ReadCollection(src)
		if errors.Is(err, geo.ErrMissingInput) {
			fs, err = geo.ReadCollection(p.Layout.Boundaries(level))
		}
		if err != nil {
			return nil, err
		}
		join.Placeholder(fs, level)
		if err := geo.WriteCollection(src, fs); err != nil {
			return nil, err
		}
		sum.done(src, join.Stats{})
		LogSummary(sum, time.Since(start))
		return sum, nil
	}

	for _, prov := range geo.Provinces {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		path := p.Layout.ByProvinceFile(level, prov)
		fs, err := geo.ReadCollection(path)
		if errors.Is(err, geo.ErrMissingInput) {
			continue
		}
		if err != nil {
			return sum, err
		}
		if join.Placeholder(fs, level) == 0 {
			sum.done("", join.Stats{})
			continue
		}
		if err := geo.WriteCollection(path, fs); err != nil {
			return sum, err
		}
		sum.done(path, join.Stats{})
	}
	LogSummary(sum, time.Since(start))
	return sum, nil
}

// SplitDA streams a nationwide dissemination area file into one file per
// province under outDir.
func SplitDA(src, outDir string) (map[int]int, error) {
	LogStage("split-da", "-", src)
	start := time.Now()

	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", geo.ErrMissingInput, src)
		}
		return nil, err
	}
	defer f.Close()

	counts, unknown, err := partition.StreamSplit(f, func(prov geo.Province) string {
		return DAFile(outDir, prov)
	})
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", src, err)
	}
	if unknown > 0 {
		log.Printf("[pipeline] WARNING: split-da: %d features without a known PRUID", unknown)
	}
	for _, prov := range geo.Provinces {
		if n, ok := counts[prov.Code]; ok {
			log.Printf("[pipeline] split-da: %s %d features", filepath.Base(DAFile(outDir, prov)), n)
		}
	}
	log.Printf("[pipeline] split-da done in %dms", time.Since(start).Milliseconds())
	return counts, nil
}
