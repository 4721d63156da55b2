package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/EmpoweredVote/EV-Ridings/internal/api"
	"github.com/EmpoweredVote/EV-Ridings/internal/geo"
	"github.com/EmpoweredVote/EV-Ridings/internal/pipeline"
	"github.com/EmpoweredVote/EV-Ridings/internal/results"
)

// mockReader implements api.ResultReader without any database dependency.
type mockReader struct {
	rs  []*results.Result
	err error
}

func (m mockReader) RidingResults(ctx context.Context, year string, level results.Level, riding int) ([]*results.Result, error) {
	return m.rs, m.err
}

const ridingsJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[-79,43],[-78,43],[-78,44],[-79,43]]]},"properties":{"FED_NUM":35001,"ED_NAMEE":"Ajax"}},
{"type":"Feature","geometry":null,"properties":{"FED_NUM":10001,"ED_NAMEE":"Avalon"}}
]}`

func setup(t *testing.T, rr api.ResultReader) (http.Handler, pipeline.Layout) {
	t.Helper()
	root := t.TempDir()
	l := pipeline.Layout{Root: root, Year: "2021"}

	put := func(path, body string) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	put(l.RidingOutput(), ridingsJSON)
	put(l.ByRidingFile(results.LevelPoll, 35001), `{"type":"FeatureCollection","features":[]}`)
	put(filepath.Join(l.ByRidingDir(results.LevelPoll), pipeline.ManifestName), `{}`)
	on, _ := geo.ProvinceByCode(35)
	put(l.ByProvinceFile(results.LevelAdvance, on), `{"type":"FeatureCollection","features":[]}`)

	return api.SetupRoutes(api.NewHandler(root, []string{"2021"}, rr)), l
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetProvinces(t *testing.T) {
	h, _ := setup(t, nil)
	rec := get(h, "/provinces")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var ps []geo.Province
	if err := json.Unmarshal(rec.Body.Bytes(), &ps); err != nil {
		t.Fatal(err)
	}
	if len(ps) != 13 || ps[5].Abbr != "ON" {
		t.Errorf("provinces = %+v", ps)
	}
}

func TestGetRidingMap_Poll(t *testing.T) {
	h, _ := setup(t, nil)
	rec := get(h, "/maps/2021/poll/ridings/35001")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Data-Status") != "complete" {
		t.Errorf("X-Data-Status = %q", rec.Header().Get("X-Data-Status"))
	}

	if rec := get(h, "/maps/2021/adv/ridings/35001"); rec.Code != http.StatusNotFound {
		t.Errorf("missing advance file: expected 404, got %d", rec.Code)
	}
}

func TestGetRidingMap_RidingLevel(t *testing.T) {
	h, _ := setup(t, nil)
	rec := get(h, "/maps/2021/riding/ridings/35001")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Bounds") != "-79,43,-78,44" {
		t.Errorf("X-Bounds = %q", rec.Header().Get("X-Bounds"))
	}
	fs, err := geo.DecodeCollection(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 1 || fs[0].Riding != 35001 {
		t.Errorf("features = %+v", fs)
	}

	if rec := get(h, "/maps/2021/riding/ridings/99999"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown riding: expected 404, got %d", rec.Code)
	}
}

func TestGetRidingMap_RidingFileDecodedOncePerChange(t *testing.T) {
	h, l := setup(t, nil)
	path := l.RidingOutput()
	if rec := get(h, "/maps/2021/riding/ridings/35001"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	// Same size and mtime: the decoded copy is served without reading the file.
	if err := os.WriteFile(path, []byte(strings.Repeat(" ", int(info.Size()))), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatal(err)
	}
	if rec := get(h, "/maps/2021/riding/ridings/10001"); rec.Code != http.StatusOK {
		t.Errorf("cached riding: expected 200, got %d", rec.Code)
	}

	// A rewritten file is picked up.
	const onlyAvalon = `{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":null,"properties":{"FED_NUM":10001,"ED_NAMEE":"Avalon"}}
]}`
	if err := os.WriteFile(path, []byte(onlyAvalon), 0o644); err != nil {
		t.Fatal(err)
	}
	later := info.ModTime().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	if rec := get(h, "/maps/2021/riding/ridings/35001"); rec.Code != http.StatusNotFound {
		t.Errorf("after rewrite: expected 404, got %d", rec.Code)
	}
	if rec := get(h, "/maps/2021/riding/ridings/10001"); rec.Code != http.StatusOK {
		t.Errorf("after rewrite: expected 200, got %d", rec.Code)
	}
}

func TestGetRidingMap_BadParams(t *testing.T) {
	h, _ := setup(t, nil)
	tests := []struct {
		path string
		want int
	}{
		{"/maps/1988/poll/ridings/35001", http.StatusNotFound},
		{"/maps/2021/booth/ridings/35001", http.StatusBadRequest},
		{"/maps/2021/poll/ridings/ajax", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := get(h, tt.path); rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.want, rec.Code)
		}
	}
}

func TestGetProvinceMap(t *testing.T) {
	h, _ := setup(t, nil)
	rec := get(h, "/maps/2021/adv/provinces/35")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Data-Status") != "partial" {
		t.Errorf("X-Data-Status = %q", rec.Header().Get("X-Data-Status"))
	}
	if rec := get(h, "/maps/2021/adv/provinces/99"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown province: expected 404, got %d", rec.Code)
	}
	if rec := get(h, "/maps/2021/riding/provinces/35"); rec.Code != http.StatusBadRequest {
		t.Errorf("riding level: expected 400, got %d", rec.Code)
	}
}

func TestGetRidingResults(t *testing.T) {
	r := results.Empty(results.LevelPoll, 12, nil)
	h, _ := setup(t, mockReader{rs: []*results.Result{r}})

	rec := get(h, "/results/2021/poll/ridings/35001")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []results.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Number != 12 {
		t.Errorf("results = %+v", got)
	}
}

func TestGetRidingResults_Errors(t *testing.T) {
	h, _ := setup(t, nil)
	if rec := get(h, "/results/2021/poll/ridings/35001"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("no store: expected 503, got %d", rec.Code)
	}

	h, _ = setup(t, mockReader{err: errors.New("boom")})
	if rec := get(h, "/results/2021/poll/ridings/35001"); rec.Code != http.StatusInternalServerError {
		t.Errorf("store error: expected 500, got %d", rec.Code)
	}

	h, _ = setup(t, mockReader{})
	if rec := get(h, "/results/2021/poll/ridings/35001"); rec.Code != http.StatusNotFound {
		t.Errorf("empty: expected 404, got %d", rec.Code)
	}
}
