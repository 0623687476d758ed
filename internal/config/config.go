// Package config loads the host configuration: the two managed services,
// their ports and readiness policies, timing knobs for the kill sweeps, the
// log setup, the audit sink and the local control API.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/frameloft/deskhost/internal/logger"
)

// Default service ports. Overridable via config file or the
// DESKHOST_FRONTEND_PORT / DESKHOST_BACKEND_PORT environment variables.
const (
	DefaultBackendPort  = 7626
	DefaultFrontendPort = 5173
)

// ReadinessKind selects how a launch judges the service ready.
type ReadinessKind string

const (
	ReadinessPattern ReadinessKind = "pattern" // output line substring match
	ReadinessDelay   ReadinessKind = "delay"   // fixed settle, readiness assumed
	ReadinessProbe   ReadinessKind = "probe"   // TCP connect with HTTP fallback
)

// Service describes one managed child service.
type Service struct {
	Command string            `toml:"command" mapstructure:"command"`
	Args    []string          `toml:"args" mapstructure:"args"`
	WorkDir string            `toml:"workdir" mapstructure:"workdir"`
	Host    string            `toml:"host" mapstructure:"host"`
	Port    int               `toml:"port" mapstructure:"port"`
	Env     map[string]string `toml:"env" mapstructure:"env"`

	Readiness     ReadinessKind `toml:"readiness" mapstructure:"readiness"`
	ReadyPattern  string        `toml:"ready_pattern" mapstructure:"ready_pattern"`
	ReadySettle   time.Duration `toml:"ready_settle" mapstructure:"ready_settle"`
	ReadyDelay    time.Duration `toml:"ready_delay" mapstructure:"ready_delay"`
	ProbeAttempts int           `toml:"probe_attempts" mapstructure:"probe_attempts"`
	ProbeInterval time.Duration `toml:"probe_interval" mapstructure:"probe_interval"`
	ProbePath     string        `toml:"probe_path" mapstructure:"probe_path"`
}

// Timing collects the empirically tuned sweep delays. They are defaults, not
// invariants; operators may stretch them for slow machines.
type Timing struct {
	SettleDelay     time.Duration `toml:"settle_delay" mapstructure:"settle_delay"`
	EscalationDelay time.Duration `toml:"escalation_delay" mapstructure:"escalation_delay"`
	ServiceGrace    time.Duration `toml:"service_grace" mapstructure:"service_grace"`
	DrainGrace      time.Duration `toml:"drain_grace" mapstructure:"drain_grace"`
}

// Server configures the local control API.
type Server struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
	Engine  string `toml:"engine" mapstructure:"engine"` // gin (default) or echo
}

// Config is the top-level TOML structure.
type Config struct {
	Log        logger.Config `toml:"log" mapstructure:"log"`
	Frontend   Service       `toml:"frontend" mapstructure:"frontend"`
	Backend    Service       `toml:"backend" mapstructure:"backend"`
	Timing     Timing        `toml:"timing" mapstructure:"timing"`
	HistoryDSN string        `toml:"history_dsn" mapstructure:"history_dsn"`
	Server     Server        `toml:"server" mapstructure:"server"`
}

// Default returns the configuration used when no file is present: backend
// judged ready by its "listening on" banner, frontend by a probe chain.
func Default() Config {
	return Config{
		Log: logger.Config{Level: "info", Console: true},
		Backend: Service{
			Host:         "127.0.0.1",
			Port:         DefaultBackendPort,
			Readiness:    ReadinessPattern,
			ReadyPattern: "listening on",
			ReadySettle:  500 * time.Millisecond,
		},
		Frontend: Service{
			Host:          "127.0.0.1",
			Port:          DefaultFrontendPort,
			Readiness:     ReadinessProbe,
			ProbeAttempts: 30,
			ProbeInterval: 500 * time.Millisecond,
		},
		Timing: Timing{
			SettleDelay:     2 * time.Second,
			EscalationDelay: 3 * time.Second,
			ServiceGrace:    8 * time.Second,
			DrainGrace:      5 * time.Second,
		},
		Server: Server{Enabled: true, Listen: "127.0.0.1:7627", Engine: "gin"},
	}
}

// Load reads a TOML config file on top of the defaults. An empty path
// returns the defaults. Environment variables override the service ports
// either way.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if p, ok := portFromEnv("DESKHOST_FRONTEND_PORT"); ok {
		cfg.Frontend.Port = p
	}
	if p, ok := portFromEnv("DESKHOST_BACKEND_PORT"); ok {
		cfg.Backend.Port = p
	}
}

func portFromEnv(key string) (int, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	p, err := strconv.Atoi(s)
	if err != nil || p <= 0 || p > 65535 {
		return 0, false
	}
	return p, true
}

// Validate rejects configurations the host cannot run with.
func (c Config) Validate() error {
	for role, svc := range map[string]Service{"frontend": c.Frontend, "backend": c.Backend} {
		if svc.Port <= 0 || svc.Port > 65535 {
			return fmt.Errorf("%s: invalid port %d", role, svc.Port)
		}
		switch svc.Readiness {
		case ReadinessPattern:
			if svc.ReadyPattern == "" {
				return fmt.Errorf("%s: pattern readiness requires ready_pattern", role)
			}
		case ReadinessDelay, ReadinessProbe, "":
		default:
			return fmt.Errorf("%s: unknown readiness policy %q", role, svc.Readiness)
		}
	}
	if c.Frontend.Port == c.Backend.Port {
		return fmt.Errorf("frontend and backend share port %d", c.Frontend.Port)
	}
	switch c.Server.Engine {
	case "", "gin", "echo":
	default:
		return fmt.Errorf("server: unknown engine %q", c.Server.Engine)
	}
	return nil
}
