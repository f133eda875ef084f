// Package httpapi is the thin external HTTP surface: /health,
// /data/stats.json, /data/heywhatsthat.geojson and /metrics. Grounded
// on the teacher's internal/api/server.go chi wiring, trimmed to the
// four endpoints this spec actually names (no auth, no web UI, no
// OpenAPI spec — those are the surrounding HTTP layer's concern, not
// the core's).
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	ourmetrics "github.com/acarshub/acars-hub-engine/internal/metrics"
	"github.com/acarshub/acars-hub-engine/internal/model"
	"github.com/acarshub/acars-hub-engine/internal/queue"
	"github.com/acarshub/acars-hub-engine/internal/store"
	"github.com/acarshub/acars-hub-engine/internal/timeseries"
)

// Server wires the four endpoints onto a chi router and an http.Server.
type Server struct {
	http    *http.Server
	log     zerolog.Logger
	st      ourmetrics.StoreStats
	cache   *timeseries.Cache
	q       *queue.Queue
	version string

	geojsonPath string
	configHash  string
}

// Options configures NewServer.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	Store        *store.Store
	Cache        *timeseries.Cache
	Queue        *queue.Queue
	Push         ourmetrics.SubscriberCounter
	Version      string
	GeoJSONPath  string // "" disables /data/heywhatsthat.geojson
	GeoJSONCHash string // served as the ?v= cache-busting value
	Log          zerolog.Logger
}

func NewServer(opts Options) *Server {
	r := chi.NewRouter()

	// A dedicated registry, not the global default one, so each Server
	// (including the ones tests construct repeatedly) owns an
	// independent metric namespace.
	registry := prometheus.NewRegistry()
	registry.MustRegister(ourmetrics.NewCollector(opts.Store, opts.Queue, opts.Push))
	registry.MustRegister(ourmetrics.HTTPRequestsTotal, ourmetrics.HTTPRequestDuration, ourmetrics.HTTPResponseSize)

	s := &Server{
		log:         opts.Log.With().Str("component", "httpapi").Logger(),
		st:          opts.Store,
		cache:       opts.Cache,
		q:           opts.Queue,
		version:     opts.Version,
		geojsonPath: opts.GeoJSONPath,
		configHash:  opts.GeoJSONCHash,
	}

	r.Use(ourmetrics.InstrumentHandler)
	r.Get("/health", s.handleHealth)
	r.Get("/data/stats.json", s.handleStats)
	r.Get("/data/heywhatsthat.geojson", s.handleGeoJSON)
	r.Get("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP)

	s.http = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  opts.ReadTimeout,
		IdleTimeout:  opts.IdleTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Database struct {
		Connected bool  `json:"connected"`
		Messages  int64 `json:"messages"`
		Size      int64 `json:"size"`
	} `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Version: s.version}

	counts, err := s.st.GetMessageCounts()
	if err != nil {
		resp.Status = "unhealthy"
	} else {
		resp.Database.Connected = true
		resp.Database.Messages = counts.Total
	}
	if fi, err := os.Stat(s.st.Path()); err == nil {
		resp.Database.Size = fi.Size()
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(resp)
}

type statsResponse struct {
	ACARS int64 `json:"acars"`
	VDLM2 int64 `json:"vdlm2"`
	HFDL  int64 `json:"hfdl"`
	IMSL  int64 `json:"imsl"`
	IRDM  int64 `json:"irdm"`
	Total int64 `json:"total"`
}

// handleStats sums the last hour of time-series rows from the cache's
// 1hr snapshot. The cache zero-fills every bucket, so when that sum is
// zero (no minute row written yet) it falls back to the queue's
// cumulative per-decoder counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var resp statsResponse

	for _, p := range s.cache.Get(timeseries.Period1Hour) {
		resp.ACARS += p.ACARS
		resp.VDLM2 += p.VDLM
		resp.HFDL += p.HFDL
		resp.IMSL += p.IMSL
		resp.IRDM += p.IRDM
		resp.Total += p.Total
	}
	if resp.Total == 0 && s.q != nil {
		resp = statsResponse{}
		stats := s.q.GetStats()
		for _, t := range model.AllTypes {
			key := t.CounterKey()
			v := stats.Total[key]
			switch t {
			case model.TypeACARS:
				resp.ACARS = v
			case model.TypeVDLM2:
				resp.VDLM2 = v
			case model.TypeHFDL:
				resp.HFDL = v
			case model.TypeIMSL:
				resp.IMSL = v
			case model.TypeIRDM:
				resp.IRDM = v
			}
			resp.Total += v
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	if s.geojsonPath == "" {
		http.NotFound(w, r)
		return
	}
	data, err := os.ReadFile(s.geojsonPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if v := r.URL.Query().Get("v"); v != "" && v != s.configHash {
		s.log.Debug().Str("requested", v).Str("current", s.configHash).Msg("geojson cache-bust version mismatch, serving current snapshot anyway")
	}
	w.Write(data)
}
