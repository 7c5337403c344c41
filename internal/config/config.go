// Package config loads brandcheck settings from defaults, an optional config
// file, a .env file and BRANDCHECK_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment variables, e.g. BRANDCHECK_REGISTRAR_API_KEY.
const EnvPrefix = "BRANDCHECK"

// Storage drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNDJSON   = "ndjson"
	DriverCSV      = "csv"
)

// User-Agent rotation modes for social fetches.
const (
	UARotationSequential = "sequential"
	UARotationRandom     = "random"
)

type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Registrar   RegistrarConfig   `mapstructure:"registrar"`
	Social      SocialConfig      `mapstructure:"social"`
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Search      SearchConfig      `mapstructure:"search"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RegistrarConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserID    string        `mapstructure:"user_id"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RPS       float64       `mapstructure:"rps"`
	Burst     int           `mapstructure:"burst"`
	UserAgent string        `mapstructure:"user_agent"`
	// Seed makes mock availability reproducible. 0 picks a random seed.
	Seed uint64 `mapstructure:"seed"`
}

type SocialConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	BodyLimit   int           `mapstructure:"body_limit"`
	Fingerprint string        `mapstructure:"fingerprint"`
	RPS         float64       `mapstructure:"rps"`
	Jitter      float64       `mapstructure:"jitter"`
	ProxiesFile string        `mapstructure:"proxies_file"`
	// UARotation is "sequential" or "random".
	UARotation string `mapstructure:"ua_rotation"`
	// Cookies keeps a cookie jar across fetches so consent redirects settle.
	Cookies bool `mapstructure:"cookies"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	IPLookupURL    string   `mapstructure:"ip_lookup_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// MetricsAddr serves /metrics on a separate listener when set.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type CredentialsConfig struct {
	// File is a JSON credential file. When empty, sqlite and postgres
	// storage keep credentials in their settings table.
	File string `mapstructure:"file"`
}

type SearchConfig struct {
	TLDs []string `mapstructure:"tlds"`
}

// SetDefaults registers every key so environment variables can override
// any of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("registrar.base_url", "https://httpapi.com/api/domains/available.json")
	v.SetDefault("registrar.user_id", "")
	v.SetDefault("registrar.api_key", "")
	v.SetDefault("registrar.timeout", 15*time.Second)
	v.SetDefault("registrar.rps", 2.0)
	v.SetDefault("registrar.burst", 1)
	v.SetDefault("registrar.user_agent", "BrandCheck-Domain-Checker/1.0")
	v.SetDefault("registrar.seed", 0)

	v.SetDefault("social.timeout", 8*time.Second)
	v.SetDefault("social.body_limit", 4000)
	v.SetDefault("social.fingerprint", "chrome")
	v.SetDefault("social.rps", 1.0)
	v.SetDefault("social.jitter", 0.2)
	v.SetDefault("social.proxies_file", "")
	v.SetDefault("social.ua_rotation", UARotationSequential)
	v.SetDefault("social.cookies", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.ip_lookup_url", "https://api.ipify.org?format=json")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.metrics_addr", "")

	v.SetDefault("storage.driver", DriverNone)
	v.SetDefault("storage.dsn", "")

	v.SetDefault("credentials.file", "")

	v.SetDefault("search.tlds", []string{"com", "in"})
}

// Load reads configuration into a Config. dotenv and configFile may be empty;
// a missing dotenv file is not an error, a missing configFile is.
func Load(v *viper.Viper, dotenv, configFile string) (Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", dotenv, err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalize splits list values that arrive as a single comma separated
// environment string.
func (c *Config) normalize() {
	c.Search.TLDs = splitList(c.Search.TLDs)
	c.Server.AllowedOrigins = splitList(c.Server.AllowedOrigins)
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Social.UARotation = strings.ToLower(strings.TrimSpace(c.Social.UARotation))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate checks values that would otherwise fail deep inside a component.
func (c Config) Validate() error {
	var errs []error

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	switch c.Storage.Driver {
	case DriverNone, "":
	case DriverSQLite, DriverPostgres, DriverNDJSON, DriverCSV:
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of none, sqlite, postgres, ndjson, csv", c.Storage.Driver))
	}

	if c.Registrar.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("registrar.timeout must be positive"))
	}
	if c.Social.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("social.timeout must be positive"))
	}
	if c.Social.BodyLimit <= 0 {
		errs = append(errs, fmt.Errorf("social.body_limit must be positive"))
	}
	switch c.Social.UARotation {
	case UARotationSequential, UARotationRandom, "":
	default:
		errs = append(errs, fmt.Errorf("social.ua_rotation must be sequential or random, got %q", c.Social.UARotation))
	}
	if c.Registrar.RPS < 0 || c.Social.RPS < 0 {
		errs = append(errs, fmt.Errorf("rate limits must not be negative"))
	}
	if len(c.Search.TLDs) == 0 {
		errs = append(errs, fmt.Errorf("search.tlds must name at least one tld"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return lvl, nil
}

// NewLogger builds the slog logger described by c, writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := parseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
