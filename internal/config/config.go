package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting for acars-hub-engine. Struct tags are
// parsed by caarlos0/env; defaults mirror what a single-station install
// needs out of the box.
type Config struct {
	DBPath string `env:"DB_PATH" envDefault:"./acarshub.db"`

	ACARSEnabled bool   `env:"ACARS_ENABLED" envDefault:"false"`
	ACARSHost    string `env:"ACARS_HOST" envDefault:"127.0.0.1"`
	ACARSPort    int    `env:"ACARS_PORT" envDefault:"15550"`
	ACARSProto   string `env:"ACARS_PROTO" envDefault:"tcp"`

	VDLM2Enabled bool   `env:"VDLM2_ENABLED" envDefault:"false"`
	VDLM2Host    string `env:"VDLM2_HOST" envDefault:"127.0.0.1"`
	VDLM2Port    int    `env:"VDLM2_PORT" envDefault:"15555"`
	VDLM2Proto   string `env:"VDLM2_PROTO" envDefault:"udp"`

	HFDLEnabled bool   `env:"HFDL_ENABLED" envDefault:"false"`
	HFDLHost    string `env:"HFDL_HOST" envDefault:"127.0.0.1"`
	HFDLPort    int    `env:"HFDL_PORT" envDefault:"15556"`
	HFDLProto   string `env:"HFDL_PROTO" envDefault:"udp"`

	IMSLEnabled bool   `env:"IMSL_ENABLED" envDefault:"false"`
	IMSLHost    string `env:"IMSL_HOST" envDefault:"127.0.0.1"`
	IMSLPort    int    `env:"IMSL_PORT" envDefault:"15557"`
	IMSLProto   string `env:"IMSL_PROTO" envDefault:"tcp"`

	IRDMEnabled bool   `env:"IRDM_ENABLED" envDefault:"false"`
	IRDMHost    string `env:"IRDM_HOST" envDefault:"127.0.0.1"`
	IRDMPort    int    `env:"IRDM_PORT" envDefault:"15558"`
	IRDMProto   string `env:"IRDM_PROTO" envDefault:"tcp"`

	QueueCapacity int `env:"QUEUE_CAPACITY" envDefault:"15"`

	AlertTerms      string `env:"ALERT_TERMS"`       // comma-separated
	IgnoreTerms     string `env:"ALERT_IGNORE_TERMS"` // comma-separated, suppressed entirely

	AirlinesPath      string `env:"AIRLINES_PATH"`
	AirportsPath      string `env:"AIRPORTS_PATH"`
	GroundStationsPath string `env:"GROUND_STATIONS_PATH"`
	LabelsPath        string `env:"LABELS_PATH"`

	LegacyRRDDir string `env:"LEGACY_RRD_DIR"` // directory holding legacy .rrd archives, if any

	RetentionEnabled bool          `env:"RETENTION_ENABLED" envDefault:"false"`
	RetentionMaxAge  time.Duration `env:"RETENTION_MAX_AGE" envDefault:"720h"`

	CoverageEnabled   bool    `env:"COVERAGE_ENABLED" envDefault:"false"`
	CoverageAPIToken  string  `env:"COVERAGE_API_TOKEN"`
	CoverageAltitudes string  `env:"COVERAGE_ALTITUDES" envDefault:"500,1000,3000,6000,12000,18000,24000,30000,36000"`
	CoverageSnapshotPath string `env:"COVERAGE_SNAPSHOT_PATH" envDefault:"./heywhatsthat.geojson"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Validate checks that at least one decoder source is enabled.
func (c *Config) Validate() error {
	if !c.ACARSEnabled && !c.VDLM2Enabled && !c.HFDLEnabled && !c.IMSLEnabled && !c.IRDMEnabled {
		return fmt.Errorf("at least one of ACARS_ENABLED, VDLM2_ENABLED, HFDL_ENABLED, IMSL_ENABLED, IRDM_ENABLED must be true")
	}
	return nil
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	HTTPAddr string
	LogLevel string
	DBPath   string
}

// Load reads configuration from .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DBPath != "" {
		cfg.DBPath = overrides.DBPath
	}

	return cfg, nil
}
