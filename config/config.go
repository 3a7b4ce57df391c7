// Package config reads the route planner's settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

type Config struct {
	Port        string
	ListenHost  string
	CORSOrigins []string
	LogLevel    string
	LogFormat   string

	PlannerWorkers int

	GraphFile       string
	OverpassURL     string
	OverpassTimeout time.Duration
	GraphPadding    float64

	StravaClientID     string
	StravaClientSecret Secret
	StravaRefreshToken Secret
	StravaActivityType string
	StravaBaseURL      string
	StravaAuthURL      string

	DatabaseURL Secret
	NATSURL     string
	NATSSubject string

	// Metrics listen address (e.g. ":9102"). Empty disables the ops listener.
	MetricsAddr string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getenvDefault("PORT", "8080"),
		ListenHost:         getenvDefault("LISTEN_HOST", "0.0.0.0"),
		LogLevel:           getenvDefault("LOG_LEVEL", "info"),
		LogFormat:          getenvDefault("LOG_FORMAT", "text"),
		GraphFile:          os.Getenv("GRAPH_FILE"),
		OverpassURL:        getenvDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		StravaClientID:     os.Getenv("STRAVA_CLIENT_ID"),
		StravaClientSecret: Secret(os.Getenv("STRAVA_CLIENT_SECRET")),
		StravaRefreshToken: Secret(os.Getenv("STRAVA_REFRESH_TOKEN")),
		StravaActivityType: getenvDefault("STRAVA_ACTIVITY_TYPE", "running"),
		StravaBaseURL:      getenvDefault("STRAVA_API_URL", "https://www.strava.com/api/v3"),
		StravaAuthURL:      getenvDefault("STRAVA_AUTH_URL", "https://www.strava.com/oauth/token"),
		DatabaseURL:        Secret(os.Getenv("DATABASE_URL")),
		NATSURL:            os.Getenv("NATS_URL"),
		NATSSubject:        getenvDefault("NATS_SUBJECT", "routes.planned"),
		MetricsAddr:        os.Getenv("METRICS_ADDR"),
	}

	workers, err := strconv.Atoi(getenvDefault("PLANNER_WORKERS", "4"))
	if err != nil || workers < 1 || workers > 32 {
		return nil, fmt.Errorf("invalid PLANNER_WORKERS: %q (must be an integer between 1 and 32)", os.Getenv("PLANNER_WORKERS"))
	}
	cfg.PlannerWorkers = workers

	if v := os.Getenv("OVERPASS_TIMEOUT_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid OVERPASS_TIMEOUT_SEC: %q", v)
		}
		cfg.OverpassTimeout = time.Duration(sec) * time.Second
	} else {
		cfg.OverpassTimeout = 60 * time.Second
	}

	if v := os.Getenv("GRAPH_PADDING_DEG"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return nil, fmt.Errorf("invalid GRAPH_PADDING_DEG: %q", v)
		}
		cfg.GraphPadding = f
	} else {
		cfg.GraphPadding = 0.005
	}

	origins := getenvDefault("CORS_ORIGINS", "*")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// AllowAllOrigins reports whether CORS is left open, the default for local use.
func (c *Config) AllowAllOrigins() bool {
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return len(c.CORSOrigins) == 0
}

// StravaConfigured reports whether all Strava credentials are present.
func (c *Config) StravaConfigured() bool {
	return c.StravaClientID != "" && c.StravaClientSecret.Value() != "" && c.StravaRefreshToken.Value() != ""
}

func (c *Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %q (want text or json)", c.LogFormat)
	}

	if _, err := url.ParseRequestURI(c.OverpassURL); err != nil {
		return fmt.Errorf("invalid OVERPASS_URL: %w", err)
	}

	if !c.AllowAllOrigins() {
		for _, origin := range c.CORSOrigins {
			u, err := url.Parse(origin)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
			}
		}
	}

	if dsn := c.DatabaseURL.Value(); dsn != "" {
		u, err := url.Parse(dsn)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
		}
	}

	if c.MetricsAddr != "" && c.MetricsAddr == ":"+c.Port {
		return fmt.Errorf("METRICS_ADDR must differ from PORT")
	}

	return nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
