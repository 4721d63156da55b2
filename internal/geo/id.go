package geo

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// Namespace seeds every deterministic id. It must never change, or ids
// written by earlier runs stop lining up.
var Namespace = uuid.MustParse("6f1d3a52-9c1e-4b7a-8a47-2d0c5e3b9f10")

// FeatureID is stable for a (year, level, riding, number) tuple across runs.
func FeatureID(year string, level results.Level, riding, number int) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(fmt.Sprintf("feature:%s:%s:%d:%d", year, level, riding, number)))
}

// ResultID identifies a stored result row.
func ResultID(year string, level results.Level, riding, number int) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(fmt.Sprintf("result:%s:%s:%d:%d", year, level, riding, number)))
}
