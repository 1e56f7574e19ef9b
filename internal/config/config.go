// Package config loads application settings from the environment, applies
// defaults, and validates the result. Everything the process needs lives in
// one Config value: server timeouts, logging, storage locations, congressional
// intake endpoints, admission budgets, and observability switches.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CWCConfig points at the congressional intake endpoints and carries the
// credential presented on every submission.
type CWCConfig struct {
	HouseURL  string        // CWC_HOUSE_URL
	SenateURL string        // CWC_SENATE_URL
	APIKey    string        // CWC_API_KEY (sent as X-Api-Key)
	Timeout   time.Duration // CWC_TIMEOUT per-submission bound
}

// GeoConfig describes the external geocoder plus the budget protecting it.
type GeoConfig struct {
	BaseURL  string        // GEOCODER_BASE_URL (empty disables the geocoder layer)
	APIKey   string        // GEOCODER_API_KEY
	Timeout  time.Duration // GEOCODER_TIMEOUT per-call bound
	CacheTTL time.Duration // GEO_CACHE_TTL
	RateRPS  float64       // GEO_RATE_RPS outbound calls per second
}

// CORSConfig lists the origins the API will answer cross-origin.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig groups the browser-protection knobs (HSTS today).
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig holds the OpenTelemetry export settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-advocacy-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config is the full runtime configuration.
type Config struct {
	// Server
	Port              string        // listen port, number only
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // console writer instead of JSON
	SwaggerEnabled bool   // expose the Swagger UI route
	APIBasePath    string // prefix for API routes, always starts with '/'

	// App
	DBPath      string // SQLite path
	RedisURL    string // optional; empty keeps admission state in-process
	OfficesPath string // JSON office directory used for seeding
	SeedOffices bool   // load OfficesPath into the DB at startup

	// Delivery (CWC intake)
	CWC CWCConfig

	// Admission control
	OfficeRateRPS   float64 // submission tokens per second per office
	OfficeRateBurst int     // per-office bucket size (>= 1)

	// Geocoding
	Geo GeoConfig

	// Dispatch
	DispatchMaxConcurrent int // in-flight submission cap across all jobs

	// Rate limiting (edge, per client)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key stays live

	// Observability
	OTEL OTELConfig
}

// MustLoad is Load for main(): it panics instead of returning an error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load builds the configuration from the environment. Unparseable values fall
// back to their defaults; values that parse but make no sense fail validation.
func Load() (Config, error) {
	cfg := fromEnv()
	normalize(&cfg)
	if err := validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func fromEnv() Config {
	return Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:      getenv("DB_PATH", "app.db"),
		RedisURL:    getenv("REDIS_URL", ""),
		OfficesPath: getenv("OFFICES_PATH", "data/offices.json"),
		SeedOffices: getbool("SEED_OFFICES", false),

		// Delivery (CWC intake)
		CWC: CWCConfig{
			HouseURL:  getenv("CWC_HOUSE_URL", ""),
			SenateURL: getenv("CWC_SENATE_URL", ""),
			APIKey:    getenv("CWC_API_KEY", ""),
			Timeout:   getdur("CWC_TIMEOUT", 10*time.Second),
		},

		// Admission control (two submissions per office per minute)
		OfficeRateRPS:   getfloat("OFFICE_RATE_RPS", 2.0/60),
		OfficeRateBurst: getint("OFFICE_RATE_BURST", 2),

		// Geocoding
		Geo: GeoConfig{
			BaseURL:  getenv("GEOCODER_BASE_URL", ""),
			APIKey:   getenv("GEOCODER_API_KEY", ""),
			Timeout:  getdur("GEOCODER_TIMEOUT", 5*time.Second),
			CacheTTL: getdur("GEO_CACHE_TTL", 24*time.Hour),
			RateRPS:  getfloat("GEO_RATE_RPS", 1.0),
		},

		// Dispatch
		DispatchMaxConcurrent: getint("DISPATCH_MAX_CONCURRENT", 32),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-advocacy-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}
}

// normalize rewrites common aliases before validation sees them.
func normalize(cfg *Config) {
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if !oneOf(cfg.GinMode, "debug", "release", "test") {
		cfg.GinMode = "release"
	}
}

// validate runs every invariant in order and reports the first violation.
func validate(cfg *Config) error {
	checks := []struct {
		bad bool
		msg string
	}{
		{!oneOf(cfg.LogLevel, "debug", "info", "warn", "error", "fatal", "panic"),
			"LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"},
		{strings.TrimSpace(cfg.Port) == "", "PORT must not be empty"},
		{cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0,
			"timeouts must be positive durations"},
		{cfg.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0"},
		{strings.TrimSpace(cfg.DBPath) == "", "DB_PATH must not be empty"},
		{cfg.SeedOffices && strings.TrimSpace(cfg.OfficesPath) == "",
			"OFFICES_PATH must not be empty when SEED_OFFICES is set"},
		{cfg.CWC.Timeout <= 0, "CWC_TIMEOUT must be > 0"},
		{cfg.OfficeRateRPS <= 0, "OFFICE_RATE_RPS must be > 0"},
		{cfg.OfficeRateBurst < 1, "OFFICE_RATE_BURST must be >= 1"},
		{cfg.Geo.Timeout <= 0, "GEOCODER_TIMEOUT must be > 0"},
		{cfg.Geo.CacheTTL <= 0, "GEO_CACHE_TTL must be > 0"},
		{cfg.Geo.RateRPS < 0, "GEO_RATE_RPS must be >= 0"},
		{cfg.DispatchMaxConcurrent < 1, "DISPATCH_MAX_CONCURRENT must be >= 1"},
		{cfg.RateRPS < 0, "RATE_RPS must be >= 0"},
		{cfg.RateBurst < 1, "RATE_BURST must be >= 1"},
		{cfg.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0"},
		{cfg.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0"},
		{cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1,
			"OTEL_TRACES_SAMPLER_ARG must be in [0,1]"},
	}
	for _, c := range checks {
		if c.bad {
			return errors.New(c.msg)
		}
	}
	// APIBasePath needs no check here; normalizeBasePath guarantees the
	// leading slash.
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// ---- env helpers ----

func getenv(k, def string) string {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	return v
}

func getfloat(k string, def float64) float64 {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getint(k string, def int) int {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// boolWords are the spellings getbool accepts; anything else keeps the default.
var boolWords = map[string]bool{
	"1": true, "true": true, "yes": true, "y": true, "on": true,
	"0": false, "false": false, "no": false, "n": false, "off": false,
}

func getbool(k string, def bool) bool {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	if b, ok := boolWords[strings.ToLower(strings.TrimSpace(v))]; ok {
		return b
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath forces a leading '/' and strips trailing slashes, keeping
// "/" itself intact.
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	for len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}
