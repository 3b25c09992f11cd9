// Package config loads the dronespoof YAML file, applies environment
// overrides and clamps the result to sane bounds.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"drone-spoof/internal/logstore"
	"drone-spoof/internal/sim"
	"drone-spoof/internal/zone"
)

const (
	EnvAddr           = "DRONESPOOF_ADDR"
	EnvLogLevel       = "DRONESPOOF_LOG_LEVEL"
	EnvLogFormat      = "DRONESPOOF_LOG_FORMAT"
	EnvLogStore       = "DRONESPOOF_LOG_STORE"
	EnvMaxConnections = "DRONESPOOF_MAX_CONNECTIONS"
)

type Server struct {
	Addr            string        `yaml:"addr" json:"addr"`
	MaxConnections  int           `yaml:"max_connections" json:"max_connections"`
	CORSOrigins     []string      `yaml:"cors_origins" json:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	// SendBuffer is the per-client websocket frame queue.
	SendBuffer int `yaml:"send_buffer" json:"send_buffer"`
}

type LogStore struct {
	Backend string `yaml:"backend" json:"backend" jsonschema:"enum=memory,enum=sqlite"`
	DSN     string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

type Logging struct {
	Level  string `yaml:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `yaml:"format" json:"format" jsonschema:"enum=text,enum=json"`
}

// File is the on-disk configuration.
type File struct {
	Server   Server      `yaml:"server" json:"server"`
	LogStore LogStore    `yaml:"log_store" json:"log_store"`
	Logging  Logging     `yaml:"logging" json:"logging"`
	Zone     zone.Config `yaml:"zone" json:"zone"`
	// Scenarios are added to the built-in catalogue; a scenario with a
	// built-in name replaces it.
	Scenarios []*sim.Scenario `yaml:"scenarios,omitempty" json:"scenarios,omitempty"`
}

func Default() File {
	return File{
		Server: Server{
			Addr:            ":5000",
			MaxConnections:  256,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 5 * time.Second,
			SendBuffer:      64,
		},
		LogStore: LogStore{Backend: logstore.BackendMemory},
		Logging:  Logging{Level: "info", Format: "text"},
		Zone:     zone.DefaultConfig(),
	}
}

// Load reads path (optional), applies environment overrides and clamps.
// Bad environment values are reported through logger and otherwise
// ignored; a broken file or scenario is an error.
func Load(path string, logger *log.Logger) (File, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return File{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return File{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg, logger)
	Clamp(&cfg)
	if err := cfg.validate(); err != nil {
		return File{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *File, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	if raw, ok := os.LookupEnv(EnvAddr); ok && raw != "" {
		cfg.Server.Addr = raw
	}
	if raw, ok := os.LookupEnv(EnvLogLevel); ok && raw != "" {
		if _, err := log.ParseLevel(raw); err == nil {
			cfg.Logging.Level = strings.ToLower(raw)
		} else {
			logger.Warn("invalid environment override", "key", EnvLogLevel, "value", raw, "err", err)
		}
	}
	if raw, ok := os.LookupEnv(EnvLogFormat); ok && raw != "" {
		switch f := strings.ToLower(raw); f {
		case "text", "json":
			cfg.Logging.Format = f
		default:
			logger.Warn("invalid environment override", "key", EnvLogFormat, "value", raw)
		}
	}
	if raw, ok := os.LookupEnv(EnvLogStore); ok && raw != "" {
		switch b := strings.ToLower(raw); b {
		case logstore.BackendMemory, logstore.BackendSQLite:
			cfg.LogStore.Backend = b
		default:
			logger.Warn("invalid environment override", "key", EnvLogStore, "value", raw)
		}
	}
	if raw, ok := os.LookupEnv(EnvMaxConnections); ok && raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			cfg.Server.MaxConnections = value
		} else {
			logger.Warn("invalid environment override", "key", EnvMaxConnections, "value", raw, "err", err)
		}
	}
}

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func clampFloat(v, minV, maxV float64) float64 {
	if math.IsNaN(v) {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func clampDuration(v, minV, maxV time.Duration) time.Duration {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// Clamp enforces hard bounds in place.
func Clamp(cfg *File) {
	if cfg == nil {
		return
	}
	cfg.Server.MaxConnections = clampInt(cfg.Server.MaxConnections, 1, 10000)
	cfg.Server.SendBuffer = clampInt(cfg.Server.SendBuffer, 1, 1024)
	cfg.Server.ShutdownTimeout = clampDuration(cfg.Server.ShutdownTimeout, 100*time.Millisecond, time.Minute)

	z := &cfg.Zone
	z.World.Width = clampFloat(z.World.Width, 100, 4000)
	z.World.Height = clampFloat(z.World.Height, 100, 4000)
	z.Drone.Width = clampFloat(z.Drone.Width, 1, 200)
	z.Drone.Height = clampFloat(z.Drone.Height, 1, 200)
	z.MoveStep = clampFloat(z.MoveStep, 1, 100)
	z.AnimStep = clampFloat(z.AnimStep, 0.5, 100)
	z.WarningBuffer = clampFloat(z.WarningBuffer, 0, 1000)
	z.TickInterval = clampDuration(z.TickInterval, time.Millisecond, time.Second)
	z.ResetAfter = clampDuration(z.ResetAfter, 0, time.Minute)
	z.Arc = z.Arc.WithDefaults()

	for _, sc := range cfg.Scenarios {
		if sc == nil {
			continue
		}
		if sc.TickInterval > 0 {
			sc.TickInterval = clampDuration(sc.TickInterval, time.Millisecond, 10*time.Second)
		}
		if sc.Jammer != nil {
			sc.Jammer.Max = clampFloat(sc.Jammer.Max, 0, 10000)
		}
	}
}

func (f File) validate() error {
	if strings.TrimSpace(f.Server.Addr) == "" {
		return errors.New("server.addr must not be empty")
	}
	switch f.LogStore.Backend {
	case logstore.BackendMemory, logstore.BackendSQLite:
	default:
		return fmt.Errorf("log_store.backend %q must be %s or %s", f.LogStore.Backend, logstore.BackendMemory, logstore.BackendSQLite)
	}
	if f.Zone.Danger.Radius <= 0 || f.Zone.Safe.Radius <= 0 {
		return errors.New("zone circles need a positive radius")
	}
	seen := make(map[string]bool, len(f.Scenarios))
	for i, sc := range f.Scenarios {
		if err := sc.Validate(); err != nil {
			return fmt.Errorf("scenarios[%d]: %w", i, err)
		}
		if seen[sc.Name] {
			return fmt.Errorf("scenarios[%d]: duplicate name %q", i, sc.Name)
		}
		seen[sc.Name] = true
	}
	return nil
}

// Catalog merges the file's scenarios over the built-in ones.
func (f File) Catalog() map[string]*sim.Scenario {
	catalog := sim.BuiltIn()
	for _, sc := range f.Scenarios {
		catalog[sc.Name] = sc.Clone()
	}
	return catalog
}
