// Package coverage fetches an antenna-coverage polygon from the
// HeyWhatsThat line-of-sight API and rewrites it into a standard
// GeoJSON FeatureCollection on disk. Its external HTTP client and
// content-hash skip-on-match idempotency are grounded on the teacher's
// internal/transcribe HTTP provider clients (net/http + context,
// request/response struct pairs) and internal/storage/local.go's
// atomic-write-on-success convention.
package coverage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const feetToMeters = 0.3048

// apiBaseURL is a var so tests can redirect it at an httptest server.
var apiBaseURL = "https://www.heywhatsthat.com/api/upload.json"

// Config configures one snapshot run.
type Config struct {
	Token        string  // HeyWhatsThat upload ID
	AltitudesFt  []float64
	SnapshotPath string // output .geojson path
}

// Service runs the startup antenna-coverage snapshot.
type Service struct {
	log    zerolog.Logger
	client *http.Client
	now    func() time.Time
}

func New(log zerolog.Logger) *Service {
	return &Service{
		log:    log.With().Str("component", "coverage").Logger(),
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

// sidecarPath is where the content hash of the last successful fetch's
// (token, altitudes) is recorded.
func sidecarPath(snapshotPath string) string {
	return snapshotPath + ".meta"
}

// configHash returns the 16-hex-char hash identifying (token, altitudes).
func configHash(cfg Config) string {
	parts := make([]string, len(cfg.AltitudesFt))
	for i, a := range cfg.AltitudesFt {
		parts[i] = strconv.FormatFloat(a, 'f', -1, 64)
	}
	sum := sha256.Sum256([]byte(cfg.Token + "|" + strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:])[:16]
}

// Run fetches and writes the snapshot unless the sidecar hash already
// matches cfg's (token, altitudes) pair. A re-fetch failure leaves any
// existing snapshot file untouched.
func (s *Service) Run(ctx context.Context, cfg Config) error {
	if cfg.Token == "" || cfg.SnapshotPath == "" {
		s.log.Debug().Msg("coverage snapshot not configured, skipping")
		return nil
	}

	hash := configHash(cfg)
	if existing, err := os.ReadFile(sidecarPath(cfg.SnapshotPath)); err == nil {
		if strings.TrimSpace(string(existing)) == hash {
			s.log.Debug().Msg("coverage snapshot unchanged, skipping fetch")
			return nil
		}
	}

	fc, err := s.fetch(ctx, cfg)
	if err != nil {
		s.log.Warn().Err(err).Msg("coverage snapshot fetch failed, keeping existing snapshot")
		return err
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}
	if err := os.WriteFile(cfg.SnapshotPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.WriteFile(sidecarPath(cfg.SnapshotPath), []byte(hash), 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	s.log.Info().Str("path", cfg.SnapshotPath).Int("altitudes", len(cfg.AltitudesFt)).Msg("wrote coverage snapshot")
	return nil
}

// heyWhatsThatResponse is the subset of the upload-status response this
// service needs: one ring of [lat,lon] points per requested altitude.
type heyWhatsThatResponse struct {
	Panorama struct {
		Contours []struct {
			Height float64     `json:"height"`
			Points [][]float64 `json:"points"` // [lat, lon] pairs
		} `json:"contours"`
	} `json:"panorama"`
}

func (s *Service) fetch(ctx context.Context, cfg Config) (*featureCollection, error) {
	altitudesM := make([]string, len(cfg.AltitudesFt))
	for i, ft := range cfg.AltitudesFt {
		altitudesM[i] = strconv.FormatFloat(ft*feetToMeters, 'f', 2, 64)
	}

	q := url.Values{}
	q.Set("id", cfg.Token)
	q.Set("alts", strings.Join(altitudesM, ","))
	reqURL := apiBaseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("heywhatsthat request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("heywhatsthat API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed heyWhatsThatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	features := make([]feature, 0, len(parsed.Panorama.Contours))
	for _, c := range parsed.Panorama.Contours {
		features = append(features, toFeature(c.Points, c.Height))
	}

	return &featureCollection{Type: "FeatureCollection", Features: features}, nil
}

// featureCollection and feature are a minimal standard GeoJSON
// representation: no external geojson library is used since only this
// one fixed shape is ever produced.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   geometry       `json:"geometry"`
}

type geometry struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// toFeature converts HeyWhatsThat's [lat,lon] contour points into a
// closed GeoJSON Polygon ring in [lon,lat] order, tagged with the
// altitude (in meters) the contour was computed for.
func toFeature(points [][]float64, altitudeM float64) feature {
	ring := make([][]float64, 0, len(points)+1)
	for _, p := range points {
		if len(p) != 2 {
			continue
		}
		ring = append(ring, []float64{p[1], p[0]}) // [lat,lon] -> [lon,lat]
	}
	if len(ring) > 0 {
		first, last := ring[0], ring[len(ring)-1]
		if first[0] != last[0] || first[1] != last[1] {
			ring = append(ring, []float64{first[0], first[1]})
		}
	}
	return feature{
		Type: "Feature",
		Properties: map[string]any{
			"altitude_m": altitudeM,
		},
		Geometry: geometry{
			Type:        "Polygon",
			Coordinates: [][][]float64{ring},
		},
	}
}
