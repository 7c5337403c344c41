package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), "", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Registrar.Timeout != 15*time.Second {
		t.Errorf("expected registrar timeout 15s, got %v", cfg.Registrar.Timeout)
	}
	if cfg.Social.Timeout != 8*time.Second || cfg.Social.BodyLimit != 4000 {
		t.Errorf("unexpected social defaults: %+v", cfg.Social)
	}
	if strings.Join(cfg.Search.TLDs, ",") != "com,in" {
		t.Errorf("expected default tlds com,in, got %v", cfg.Search.TLDs)
	}
	if cfg.Storage.Driver != DriverNone {
		t.Errorf("expected storage disabled by default, got %q", cfg.Storage.Driver)
	}
	if cfg.Registrar.UserAgent != "BrandCheck-Domain-Checker/1.0" {
		t.Errorf("unexpected user agent %q", cfg.Registrar.UserAgent)
	}
	if cfg.Social.UARotation != UARotationSequential || cfg.Social.Cookies {
		t.Errorf("unexpected probe defaults: rotation %q cookies %v", cfg.Social.UARotation, cfg.Social.Cookies)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BRANDCHECK_REGISTRAR_USER_ID", "12345")
	t.Setenv("BRANDCHECK_REGISTRAR_API_KEY", "secret")
	t.Setenv("BRANDCHECK_SOCIAL_TIMEOUT", "3s")
	t.Setenv("BRANDCHECK_SEARCH_TLDS", "com, io ,net")
	t.Setenv("BRANDCHECK_STORAGE_DRIVER", "SQLite")
	t.Setenv("BRANDCHECK_STORAGE_DSN", "brandcheck.db")
	t.Setenv("BRANDCHECK_SOCIAL_UA_ROTATION", "Random")
	t.Setenv("BRANDCHECK_SOCIAL_COOKIES", "true")

	cfg, err := Load(viper.New(), "", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Registrar.UserID != "12345" || cfg.Registrar.APIKey != "secret" {
		t.Errorf("credentials not read from env: %+v", cfg.Registrar)
	}
	if cfg.Social.Timeout != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.Social.Timeout)
	}
	if strings.Join(cfg.Search.TLDs, ",") != "com,io,net" {
		t.Errorf("expected split tlds, got %v", cfg.Search.TLDs)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("expected normalized driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Social.UARotation != UARotationRandom || !cfg.Social.Cookies {
		t.Errorf("probe settings not read from env: %+v", cfg.Social)
	}
}

func TestLoad_ConfigFileAndDotenv(t *testing.T) {
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "brandcheck.yaml")
	yaml := `
log:
  level: debug
  format: json
server:
  addr: 127.0.0.1:9999
search:
  tlds: [com, co]
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("BRANDCHECK_SERVER_ADDR=127.0.0.1:7777\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("BRANDCHECK_SERVER_ADDR") })

	cfg, err := Load(viper.New(), envPath, cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("config file not applied: %+v", cfg.Log)
	}
	if cfg.Server.Addr != "127.0.0.1:7777" {
		t.Errorf("expected .env to override the file, got %q", cfg.Server.Addr)
	}
	if strings.Join(cfg.Search.TLDs, ",") != "com,co" {
		t.Errorf("unexpected tlds %v", cfg.Search.TLDs)
	}
}

func TestLoad_MissingFiles(t *testing.T) {
	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.env"), ""); err != nil {
		t.Errorf("a missing .env must be ignored, got %v", err)
	}
	if _, err := Load(viper.New(), "", filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load(viper.New(), "", "")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"driver without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }},
		{"zero social timeout", func(c *Config) { c.Social.Timeout = 0 }},
		{"negative rps", func(c *Config) { c.Registrar.RPS = -1 }},
		{"no tlds", func(c *Config) { c.Search.TLDs = nil }},
		{"unknown ua rotation", func(c *Config) { c.Social.UARotation = "shuffle" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("expected info to be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("expected JSON record, got %s", out)
	}

	if _, err := (LogConfig{Level: "nope"}).NewLogger(&buf); err == nil {
		t.Error("expected error for unknown level")
	}
}
