package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Rules     RulesConfig     `yaml:"rules"`
	Retention RetentionConfig `yaml:"retention"`
	Session   SessionConfig   `yaml:"session"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DataConfig points at the canonical statistics and roster sources.
type DataConfig struct {
	BattingStats string `yaml:"batting_stats"`
	BowlingStats string `yaml:"bowling_stats"`
	Rosters      string `yaml:"rosters"`
}

// RulesConfig holds the per-run franchise constraints.
type RulesConfig struct {
	InitialBudget   int `yaml:"initial_budget"`
	MaxSquadSize    int `yaml:"max_squad_size"`
	MinBatters      int `yaml:"min_batters"`
	MinBowlers      int `yaml:"min_bowlers"`
	MinWicketkeeper int `yaml:"min_wicketkeepers"`
	MinAllRounders  int `yaml:"min_allrounders"`
}

// RetentionConfig holds the pre-auction retention settings.
type RetentionConfig struct {
	Fee      int `yaml:"fee"`
	ExactMin int `yaml:"exact_min"`
	ExactMax int `yaml:"exact_max"`
	AnyMax   int `yaml:"any_max"`
}

// SessionConfig selects the run-state store.
type SessionConfig struct {
	Driver   string         `yaml:"driver"` // "memory" or "postgres"
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds Postgres connection settings for the session store.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

// Load reads a YAML configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration defaults used when fields are absent.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			BattingStats: "data/batstats.json",
			BowlingStats: "data/bowlstats.json",
			Rosters:      "data/rosters.json",
		},
		Rules: RulesConfig{
			InitialBudget:   2000,
			MaxSquadSize:    11,
			MinBatters:      4,
			MinBowlers:      4,
			MinWicketkeeper: 1,
			MinAllRounders:  2,
		},
		Retention: RetentionConfig{
			Fee:      150,
			ExactMin: 1,
			ExactMax: 5,
			AnyMax:   8,
		},
		Session: SessionConfig{
			Driver: "memory",
			Database: DatabaseConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctiond",
			ServiceVersion: "0.1.0",
		},
	}
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Session.Driver {
	case "memory", "postgres":
		// valid
	default:
		return fmt.Errorf("unsupported session driver %q: must be \"memory\" or \"postgres\"", c.Session.Driver)
	}
	if c.Rules.InitialBudget <= 0 {
		return fmt.Errorf("initial_budget must be positive, got %d", c.Rules.InitialBudget)
	}
	if c.Rules.MaxSquadSize <= 0 {
		return fmt.Errorf("max_squad_size must be positive, got %d", c.Rules.MaxSquadSize)
	}
	minRoles := c.Rules.MinBatters + c.Rules.MinBowlers + c.Rules.MinWicketkeeper + c.Rules.MinAllRounders
	if minRoles > c.Rules.MaxSquadSize {
		return fmt.Errorf("role minimums (%d) exceed max_squad_size (%d)", minRoles, c.Rules.MaxSquadSize)
	}
	if c.Retention.Fee < 0 {
		return fmt.Errorf("retention fee must not be negative, got %d", c.Retention.Fee)
	}
	if c.Retention.ExactMin < 1 || c.Retention.ExactMax < c.Retention.ExactMin {
		return fmt.Errorf("invalid exact retention bounds [%d, %d]", c.Retention.ExactMin, c.Retention.ExactMax)
	}
	return nil
}
