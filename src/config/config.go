package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Pilmik/order-book-parser/src/engine"
)

type Config struct {
	Logging    Logging    `yaml:"logging"`
	Server     Server     `yaml:"server"`
	RateLimit  RateLimit  `yaml:"rate_limit"`
	Book       Book       `yaml:"book"`
	Instrument Instrument `yaml:"instrument"`
}

type Logging struct {
	Level string `yaml:"level"`
	// "pretty" for console output, anything else is JSON
	Format         string `yaml:"format"`
	File           string `yaml:"file"`
	RequestLogging bool   `yaml:"request_logging"`
}

type Server struct {
	Port                  string        `yaml:"port"`
	ShutdownTimeout       time.Duration `yaml:"shutdown_timeout"`
	MaintenanceMode       bool          `yaml:"maintenance_mode"`
	MaxConcurrentRequests int64         `yaml:"max_concurrent_requests"`
	BodyLimit             int           `yaml:"body_limit"`
}

type RateLimit struct {
	Disabled bool          `yaml:"disabled"`
	Max      int           `yaml:"max"`
	Window   time.Duration `yaml:"window"`
}

type Book struct {
	DefaultDepth int `yaml:"default_depth"`
	MaxDepth     int `yaml:"max_depth"`
}

// Instrument holds the default trading rules as decimal text. Empty fields
// mean no constraint.
type Instrument struct {
	TickSize string `yaml:"tick_size"`
	MinLot   string `yaml:"min_lot"`
	LotStep  string `yaml:"lot_step"`
}

func Default() Config {
	var c Config
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.RequestLogging = true
	c.Server.Port = "8080"
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.BodyLimit = 1 << 20
	c.RateLimit.Max = 100
	c.RateLimit.Window = time.Second
	c.Book.DefaultDepth = 10
	c.Book.MaxDepth = 1000
	return c
}

// Load applies, in order: defaults, the YAML file named by CONFIG_FILE, and
// environment overrides. Malformed env values are ignored and keep the
// previous value; a missing or malformed config file is an error.
func Load() (Config, error) {
	c := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	applyEnv(&c)

	if _, err := c.InstrumentConfig(); err != nil {
		return c, err
	}
	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if os.Getenv("REQUEST_LOGGING_DISABLED") == "1" {
		c.Logging.RequestLogging = false
	}

	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if d, ok := envDuration("SHUTDOWN_TIMEOUT"); ok {
		c.Server.ShutdownTimeout = d
	}
	if os.Getenv("MAINTENANCE_MODE") == "1" {
		c.Server.MaintenanceMode = true
	}
	if v := os.Getenv("MAX_CONCURRENT_REQUESTS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Server.MaxConcurrentRequests = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_DISABLED"); v != "" {
		c.RateLimit.Disabled = v == "1"
	}
	if n, ok := envPositiveInt("RATE_LIMIT_MAX"); ok {
		c.RateLimit.Max = n
	}
	if d, ok := envDuration("RATE_LIMIT_WINDOW"); ok {
		c.RateLimit.Window = d
	}

	if n, ok := envPositiveInt("ORDERBOOK_DEFAULT_DEPTH"); ok {
		c.Book.DefaultDepth = n
	}
	if n, ok := envPositiveInt("ORDERBOOK_MAX_DEPTH"); ok {
		c.Book.MaxDepth = n
	}

	if v := os.Getenv("INSTRUMENT_TICK_SIZE"); v != "" {
		c.Instrument.TickSize = v
	}
	if v := os.Getenv("INSTRUMENT_MIN_LOT"); v != "" {
		c.Instrument.MinLot = v
	}
	if v := os.Getenv("INSTRUMENT_LOT_STEP"); v != "" {
		c.Instrument.LotStep = v
	}
}

// InstrumentConfig returns the default instrument, or nil when none of its
// fields is set.
func (c Config) InstrumentConfig() (*engine.InstrumentConfig, error) {
	in := c.Instrument
	if in.TickSize == "" && in.MinLot == "" && in.LotStep == "" {
		return nil, nil
	}
	cfg, err := engine.NewInstrumentConfigFromStrings(in.TickSize, in.MinLot, in.LotStep)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envPositiveInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
