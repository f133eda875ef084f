package coverage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const sampleResponse = `{
  "panorama": {
    "contours": [
      {"height": 3048, "points": [[40.0, -74.0], [40.1, -74.0], [40.1, -74.1]]}
    ]
  }
}`

func TestToFeatureSwapsLatLonAndClosesRing(t *testing.T) {
	f := toFeature([][]float64{{40.0, -74.0}, {40.1, -74.0}, {40.1, -74.1}}, 3048)
	ring := f.Geometry.Coordinates[0]
	if len(ring) != 4 {
		t.Fatalf("len(ring) = %d, want 4 (3 points + closing point)", len(ring))
	}
	if ring[0][0] != -74.0 || ring[0][1] != 40.0 {
		t.Errorf("ring[0] = %v, want [-74.0, 40.0] (lon,lat)", ring[0])
	}
	if ring[3][0] != ring[0][0] || ring[3][1] != ring[0][1] {
		t.Errorf("ring not closed: first=%v last=%v", ring[0], ring[3])
	}
}

func TestToFeatureLeavesAlreadyClosedRingAlone(t *testing.T) {
	f := toFeature([][]float64{{40.0, -74.0}, {40.1, -74.0}, {40.0, -74.0}}, 3048)
	ring := f.Geometry.Coordinates[0]
	if len(ring) != 3 {
		t.Fatalf("len(ring) = %d, want 3 (already closed)", len(ring))
	}
}

func TestFeetToMetersConversionExact(t *testing.T) {
	cases := []struct{ ft, m float64 }{
		{10000, 3048},
		{30000, 9144},
	}
	for _, c := range cases {
		got := c.ft * feetToMeters
		if got != c.m {
			t.Errorf("%v ft = %v m, want %v", c.ft, got, c.m)
		}
	}
}

func TestConfigHashStable(t *testing.T) {
	a := configHash(Config{Token: "tok", AltitudesFt: []float64{10000, 30000}})
	b := configHash(Config{Token: "tok", AltitudesFt: []float64{10000, 30000}})
	if a != b {
		t.Fatalf("configHash not stable: %q != %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("len(hash) = %d, want 16", len(a))
	}
	c := configHash(Config{Token: "tok", AltitudesFt: []float64{10000}})
	if a == c {
		t.Fatal("different altitude sets must hash differently")
	}
}

func TestRunFetchesAndWritesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	s := New(zerolog.New(io.Discard))
	s.client = srv.Client()

	dir := t.TempDir()
	cfg := Config{
		Token:        "tok",
		AltitudesFt:  []float64{10000},
		SnapshotPath: filepath.Join(dir, "coverage.geojson"),
	}
	orig := apiBaseURL
	apiBaseURL = srv.URL
	defer func() { apiBaseURL = orig }()

	if err := s.Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(cfg.SnapshotPath)
	if err != nil {
		t.Fatalf("ReadFile snapshot: %v", err)
	}
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("len(Features) = %d, want 1", len(fc.Features))
	}

	if _, err := os.Stat(sidecarPath(cfg.SnapshotPath)); err != nil {
		t.Fatalf("expected sidecar hash file: %v", err)
	}
}

func TestRunSkipsFetchWhenHashMatches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	s := New(zerolog.New(io.Discard))
	s.client = srv.Client()

	dir := t.TempDir()
	cfg := Config{Token: "tok", AltitudesFt: []float64{10000}, SnapshotPath: filepath.Join(dir, "coverage.geojson")}
	orig := apiBaseURL
	apiBaseURL = srv.URL
	defer func() { apiBaseURL = orig }()

	if err := s.Run(context.Background(), cfg); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := s.Run(context.Background(), cfg); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (second run should skip fetch)", calls)
	}
}
