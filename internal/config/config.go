package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/claude/liftlog/internal/warmup"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Health    HealthConfig    `yaml:"health"`
	Warmup    WarmupConfig    `yaml:"warmup"`
	Session   SessionConfig   `yaml:"session"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// HealthConfig points at the external health sink workouts are mirrored to.
// Disabled means sessions are never exported.
type HealthConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// WarmupConfig tunes the ramp calculator. Strategies listed here replace the
// built-in set; scalar fields replace the calculator defaults one by one.
type WarmupConfig struct {
	MinWorkingWeight float64          `yaml:"min_working_weight"`
	Increment        float64          `yaml:"increment"`
	MinPlateWeight   float64          `yaml:"min_plate_weight"`
	RepCap           int              `yaml:"rep_cap"`
	RepFloor         int              `yaml:"rep_floor"`
	Strategies       []StrategyConfig `yaml:"strategies"`
}

type StrategyConfig struct {
	Name     string    `yaml:"name"`
	Percents []float64 `yaml:"percents"`
}

type SessionConfig struct {
	NoteMaxLen       int     `yaml:"note_max_len"`
	EnergyKcalPerMin float64 `yaml:"energy_kcal_per_min"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Timeout returns the sink request timeout with a 10s default.
func (h HealthConfig) Timeout() time.Duration {
	if h.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(h.TimeoutSec) * time.Second
}

// WarmupSettings converts the config section to calculator settings, keeping
// the calculator defaults for any field left unset.
func (w WarmupConfig) WarmupSettings() warmup.Settings {
	s := warmup.DefaultSettings()
	if w.MinWorkingWeight > 0 {
		s.MinWorkingWeight = w.MinWorkingWeight
	}
	if w.Increment > 0 {
		s.Increment = w.Increment
	}
	if w.MinPlateWeight > 0 {
		s.MinPlateWeight = w.MinPlateWeight
	}
	if w.RepCap > 0 {
		s.RepCap = w.RepCap
	}
	if w.RepFloor > 0 {
		s.RepFloor = w.RepFloor
	}
	return s
}

// WarmupStrategies returns the configured strategy tables, or the built-in
// set when none are configured.
func (w WarmupConfig) WarmupStrategies() []warmup.Strategy {
	if len(w.Strategies) == 0 {
		return warmup.DefaultStrategies()
	}
	out := make([]warmup.Strategy, 0, len(w.Strategies))
	for _, sc := range w.Strategies {
		out = append(out, warmup.Strategy{Name: sc.Name, Percents: sc.Percents})
	}
	return out
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix LIFTLOG_ and underscore-separated paths:
//
//	LIFTLOG_SERVER_HOST, LIFTLOG_SERVER_PORT,
//	LIFTLOG_DB_HOST, LIFTLOG_DB_PORT, LIFTLOG_DB_NAME,
//	LIFTLOG_DB_USER, LIFTLOG_DB_PASSWORD, LIFTLOG_DB_SSLMODE,
//	LIFTLOG_AUTH_API_KEY,
//	LIFTLOG_TS_HOSTNAME, LIFTLOG_TS_STATE_DIR,
//	LIFTLOG_HEALTH_BASE_URL, LIFTLOG_HEALTH_API_KEY
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIFTLOG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LIFTLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LIFTLOG_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("LIFTLOG_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("LIFTLOG_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("LIFTLOG_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("LIFTLOG_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("LIFTLOG_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("LIFTLOG_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("LIFTLOG_TS_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("LIFTLOG_TS_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
	if v := os.Getenv("LIFTLOG_HEALTH_BASE_URL"); v != "" {
		cfg.Health.BaseURL = v
	}
	if v := os.Getenv("LIFTLOG_HEALTH_API_KEY"); v != "" {
		cfg.Health.APIKey = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Health.Enabled && c.Health.BaseURL == "" {
		return fmt.Errorf("health.base_url is required when the health sink is enabled")
	}
	if err := c.Warmup.WarmupSettings().Validate(); err != nil {
		return fmt.Errorf("warmup settings: %w", err)
	}
	for _, sc := range c.Warmup.Strategies {
		st := warmup.Strategy{Name: sc.Name, Percents: sc.Percents}
		if err := st.Validate(); err != nil {
			return fmt.Errorf("warmup strategy %q: %w", sc.Name, err)
		}
	}
	if c.Session.NoteMaxLen < 0 {
		return fmt.Errorf("session.note_max_len must not be negative")
	}
	if c.Session.EnergyKcalPerMin < 0 {
		return fmt.Errorf("session.energy_kcal_per_min must not be negative")
	}
	return nil
}
