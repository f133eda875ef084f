package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/acarshub/acars-hub-engine/internal/config"
	"github.com/acarshub/acars-hub-engine/internal/coverage"
	"github.com/acarshub/acars-hub-engine/internal/enrich"
	"github.com/acarshub/acars-hub-engine/internal/httpapi"
	"github.com/acarshub/acars-hub-engine/internal/importer"
	"github.com/acarshub/acars-hub-engine/internal/listener"
	"github.com/acarshub/acars-hub-engine/internal/normalize"
	"github.com/acarshub/acars-hub-engine/internal/persist"
	"github.com/acarshub/acars-hub-engine/internal/push"
	"github.com/acarshub/acars-hub-engine/internal/queue"
	"github.com/acarshub/acars-hub-engine/internal/scheduler"
	"github.com/acarshub/acars-hub-engine/internal/store"
	"github.com/acarshub/acars-hub-engine/internal/timeseries"
)

// version, commit, and buildTime are injected at build time via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	var overrides config.Overrides
	var showVersion bool
	flag.StringVar(&overrides.EnvFile, "env-file", "", "Path to .env file (default: .env)")
	flag.StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.DBPath, "db-path", "", "sqlite database path (overrides DB_PATH)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s (commit=%s, built=%s)\n", version, commit, buildTime)
		os.Exit(0)
	}

	startTime := time.Now()

	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("invalid config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", buildTime).
		Str("log_level", level.String()).
		Msg("acars-hub-engine starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	st, err := store.Open(cfg.DBPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer st.Close()

	migrateDone := make(chan store.MigrateResult, 1)
	st.Migrate(migrateDone)
	if res := <-migrateDone; res.Err != nil {
		log.Fatal().Err(res.Err).Msg("database migration failed")
	}
	log.Info().Msg("database migrated")

	if _, err := st.StartupCheckpoint(); err != nil {
		log.Warn().Err(err).Msg("startup wal checkpoint failed")
	}

	st.SetAlertTerms(splitTerms(cfg.AlertTerms), splitTerms(cfg.IgnoreTerms))

	tables := loadTables(cfg, log)

	q := queue.New(cfg.QueueCapacity)
	bus := push.New(512)
	q.SetOverflowFunc(persist.OnOverflow(st, log))

	// Decoder listeners
	type decoderConfig struct {
		name    string
		enabled bool
		host    string
		port    int
		proto   string
	}
	decoders := []decoderConfig{
		{"acars", cfg.ACARSEnabled, cfg.ACARSHost, cfg.ACARSPort, cfg.ACARSProto},
		{"vdlm2", cfg.VDLM2Enabled, cfg.VDLM2Host, cfg.VDLM2Port, cfg.VDLM2Proto},
		{"hfdl", cfg.HFDLEnabled, cfg.HFDLHost, cfg.HFDLPort, cfg.HFDLProto},
		{"imsl", cfg.IMSLEnabled, cfg.IMSLHost, cfg.IMSLPort, cfg.IMSLProto},
		{"irdm", cfg.IRDMEnabled, cfg.IRDMHost, cfg.IRDMPort, cfg.IRDMProto},
	}

	var listeners []listener.Listener
	for _, d := range decoders {
		if !d.enabled {
			continue
		}
		var l listener.Listener
		if strings.ToLower(d.proto) == "udp" {
			l = listener.NewUDP(d.name, d.host, d.port, log)
		} else {
			l = listener.NewTCP(d.name, d.host, d.port, log)
		}
		if err := l.Start(); err != nil {
			log.Fatal().Err(err).Str("decoder", d.name).Msg("failed to start listener")
		}
		listeners = append(listeners, l)
		go consumeListener(ctx, l, q, tables, log)
		log.Info().
			Str("decoder", d.name).
			Str("addr", d.host+":"+strconv.Itoa(d.port)).
			Str("proto", d.proto).
			Msg("listener started")
	}
	defer func() {
		for _, l := range listeners {
			l.Stop()
		}
	}()

	// Persister: queue -> store -> push bus
	p := persist.New(q, st, bus, log)
	persistDone := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(persistDone)
	}()

	// Time-series writer + cache
	writer := timeseries.NewWriter(q, st, log)
	go writer.Run(ctx)

	cache := timeseries.NewCache(st, log)
	if err := cache.Init(func(period timeseries.Period, points []timeseries.Point) {
		bus.Emit(string(period), points)
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to warm timeseries cache")
	}
	go cache.Run(ctx)

	// Legacy RRD archive import, once at startup
	if cfg.LegacyRRDDir != "" {
		imp := importer.New(st, log)
		go imp.Run(importer.DefaultArchives(cfg.LegacyRRDDir))
	}

	// Antenna coverage snapshot, once at startup
	if cfg.CoverageEnabled {
		covSvc := coverage.New(log)
		covCfg := coverage.Config{
			Token:        cfg.CoverageAPIToken,
			AltitudesFt:  parseAltitudes(cfg.CoverageAltitudes),
			SnapshotPath: cfg.CoverageSnapshotPath,
		}
		go func() {
			if err := covSvc.Run(ctx, covCfg); err != nil {
				log.Warn().Err(err).Msg("antenna coverage snapshot failed")
			}
		}()
	}

	// Scheduler: WAL checkpoint, status broadcast, optional retention sweep
	sched, err := scheduler.New(log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := sched.Every(30, time.Second, "checkpoint", func() error {
		_, err := st.Checkpoint(store.CheckpointPassive)
		return err
	}); err != nil {
		log.Error().Err(err).Msg("failed to register checkpoint task")
	}
	if err := sched.Every(10, time.Second, "status-broadcast", func() error {
		counts, err := st.GetMessageCounts()
		if err != nil {
			return err
		}
		bus.Emit("status", map[string]any{
			"messages":     counts,
			"queue_length": q.Length(),
			"subscribers":  bus.SubscriberCount(),
		})
		return nil
	}); err != nil {
		log.Error().Err(err).Msg("failed to register status broadcast task")
	}
	if cfg.RetentionEnabled {
		if err := sched.Every(1, time.Hour, "retention", func() error {
			cutoff := time.Now().Add(-cfg.RetentionMaxAge).Unix()
			deleted, err := st.DeleteMessagesOlderThan(cutoff)
			if err != nil {
				return err
			}
			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("retention sweep deleted old messages")
			}
			return nil
		}); err != nil {
			log.Error().Err(err).Msg("failed to register retention task")
		}
	}
	sched.Start()
	defer sched.Shutdown()

	// HTTP server
	geoJSONPath := ""
	if cfg.CoverageEnabled {
		geoJSONPath = cfg.CoverageSnapshotPath
	}
	httpLog := log.With().Str("component", "http").Logger()
	srv := httpapi.NewServer(httpapi.Options{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		Store:        st,
		Cache:        cache,
		Queue:        q,
		Push:         bus,
		Version:      version,
		GeoJSONPath:  geoJSONPath,
		Log:          httpLog,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info().
		Str("listen", cfg.HTTPAddr).
		Str("version", version).
		Dur("startup_ms", time.Since(startTime)).
		Msg("acars-hub-engine ready")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	// Wait for the persister's final drain so every message already
	// queued before shutdown reaches the store before it closes.
	select {
	case <-persistDone:
	case <-time.After(2 * time.Second):
		log.Warn().Msg("persister did not finish draining before shutdown timeout")
	}

	log.Info().Msg("acars-hub-engine stopped")
}

// consumeListener normalizes and enriches every message l emits and
// pushes it onto q. Connection lifecycle and parse-error events are
// logged, never fatal: a single decoder misbehaving must not take down
// the others.
func consumeListener(ctx context.Context, l listener.Listener, q *queue.Queue, tables enrich.Tables, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case listener.EventMessage:
				msg, err := normalize.Dispatch(ev.Decoder, ev.Raw)
				if errors.Is(err, normalize.ErrDropped) {
					continue
				}
				if err != nil {
					log.Warn().Err(err).Str("decoder", ev.Decoder).Msg("failed to normalize message")
					continue
				}
				q.Push(enrich.Enrich(msg, tables))
			case listener.EventConnected:
				log.Info().Str("decoder", ev.Decoder).Msg("decoder connected")
			case listener.EventDisconnected:
				log.Warn().Str("decoder", ev.Decoder).Msg("decoder disconnected")
			case listener.EventError:
				log.Warn().Err(ev.Err).Str("decoder", ev.Decoder).Msg("listener error")
			}
		}
	}
}

// loadTables loads every configured lookup table. An empty path leaves
// that table zero-valued: Enrich treats a zero-valued table as "nothing
// resolves", never an error.
func loadTables(cfg *config.Config, log zerolog.Logger) enrich.Tables {
	var tables enrich.Tables

	if cfg.AirlinesPath != "" {
		t, err := enrich.LoadAirlines(cfg.AirlinesPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.AirlinesPath).Msg("failed to load airlines table")
		} else {
			tables.Airlines = t
		}
	}
	if cfg.AirportsPath != "" {
		t, err := enrich.LoadAirports(cfg.AirportsPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.AirportsPath).Msg("failed to load airports table")
		} else {
			tables.Airports = t
		}
	}
	if cfg.GroundStationsPath != "" {
		t, err := enrich.LoadGroundStations(cfg.GroundStationsPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.GroundStationsPath).Msg("failed to load ground stations table")
		} else {
			tables.GroundStations = t
		}
	}
	if cfg.LabelsPath != "" {
		t, err := enrich.LoadLabels(cfg.LabelsPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.LabelsPath).Msg("failed to load labels table")
		} else {
			tables.Labels = t
		}
	}

	return tables
}

func splitTerms(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAltitudes(s string) []float64 {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
