package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":8080" {
			t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.DBPath != "./acarshub.db" {
			t.Errorf("DBPath = %q, want ./acarshub.db", cfg.DBPath)
		}
		if cfg.QueueCapacity != 15 {
			t.Errorf("QueueCapacity = %d, want 15", cfg.QueueCapacity)
		}
		if cfg.ACARSPort != 15550 {
			t.Errorf("ACARSPort = %d, want 15550", cfg.ACARSPort)
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:  "nonexistent.env",
			HTTPAddr: ":9090",
			LogLevel: "debug",
			DBPath:   "/tmp/test.db",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":9090" {
			t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		if cfg.DBPath != "/tmp/test.db" {
			t.Errorf("DBPath = %q, want /tmp/test.db", cfg.DBPath)
		}
	})

	t.Run("env_vars_read", func(t *testing.T) {
		cleanup := setEnvs(t, map[string]string{"ACARS_ENABLED": "true", "ACARS_PORT": "9999"})
		defer cleanup()

		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !cfg.ACARSEnabled {
			t.Error("ACARSEnabled = false, want true")
		}
		if cfg.ACARSPort != 9999 {
			t.Errorf("ACARSPort = %d, want 9999", cfg.ACARSPort)
		}
	})
}

func TestValidateRequiresAnEnabledDecoder(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when no decoder is enabled")
	}

	cfg.HFDLEnabled = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil with HFDLEnabled", err)
	}
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
