package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
)

// Config represents the application configuration.
type Config struct {
	Discord        DiscordConfig        `yaml:"discord"`
	Database       DatabaseConfig       `yaml:"database"`
	Server         ServerConfig         `yaml:"server"`
	Telemetry      TelemetryConfig      `yaml:"telemetry"`
	LeaderElection LeaderElectionConfig `yaml:"leader_election"`
	Coordinator    CoordinatorConfig    `yaml:"coordinator"`
	Audit          AuditConfig          `yaml:"audit"`
	Rules          RulesConfig          `yaml:"rules"`
}

// DiscordConfig holds Discord bot settings. The bot is disabled without a token.
type DiscordConfig struct {
	Token   string `yaml:"token" env:"AUCTIOND_DISCORD_TOKEN"`
	GuildID string `yaml:"guild_id" env:"AUCTIOND_DISCORD_GUILD_ID"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"AUCTIOND_DATABASE_HOST"`
	Port     int    `yaml:"port" env:"AUCTIOND_DATABASE_PORT"`
	User     string `yaml:"user" env:"AUCTIOND_DATABASE_USER"`
	Password string `yaml:"password" env:"AUCTIOND_DATABASE_PASSWORD"`
	DBName   string `yaml:"dbname" env:"AUCTIOND_DATABASE_NAME"`
	SSLMode  string `yaml:"sslmode" env:"AUCTIOND_DATABASE_SSLMODE"`
	Path     string `yaml:"path" env:"AUCTIOND_DATABASE_PATH"`
	Driver   string `yaml:"driver" env:"AUCTIOND_DATABASE_DRIVER"` // "postgres", "sqlite" or "memory"
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
	Port            int           `yaml:"port" env:"AUCTIOND_SERVER_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"AUCTIOND_SERVER_SHUTDOWN_TIMEOUT"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" env:"AUCTIOND_TELEMETRY_SERVICE_NAME"`
	ServiceVersion string `yaml:"service_version" env:"AUCTIOND_TELEMETRY_SERVICE_VERSION"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" env:"AUCTIOND_TELEMETRY_OTLP_ENDPOINT"`
	Insecure       bool   `yaml:"insecure" env:"AUCTIOND_TELEMETRY_INSECURE"`
}

// LeaderElectionConfig holds Kubernetes leader election settings.
type LeaderElectionConfig struct {
	Enabled        bool          `yaml:"enabled" env:"AUCTIOND_LEADER_ELECTION_ENABLED"`
	LeaseName      string        `yaml:"lease_name" env:"AUCTIOND_LEADER_ELECTION_LEASE_NAME"`
	LeaseNamespace string        `yaml:"lease_namespace" env:"AUCTIOND_LEADER_ELECTION_LEASE_NAMESPACE"`
	LeaseDuration  time.Duration `yaml:"lease_duration"`
	RenewDeadline  time.Duration `yaml:"renew_deadline"`
	RetryPeriod    time.Duration `yaml:"retry_period"`
}

// CoordinatorConfig tunes the commit loop.
type CoordinatorConfig struct {
	MaxConflictRetries int `yaml:"max_conflict_retries" env:"AUCTIOND_COORDINATOR_MAX_CONFLICT_RETRIES"`
}

// AuditConfig controls the periodic invariant audit.
type AuditConfig struct {
	Interval time.Duration `yaml:"interval" env:"AUCTIOND_AUDIT_INTERVAL"`
}

// CategoryAmounts holds one amount per player category.
type CategoryAmounts struct {
	A int `yaml:"A"`
	B int `yaml:"B"`
	C int `yaml:"C"`
}

// IncrementConfig is the bid step schedule for one category.
type IncrementConfig struct {
	Step      int `yaml:"step"`
	HighStep  int `yaml:"high_step"`
	Threshold int `yaml:"threshold"`
}

// RulesConfig holds the auction rule constants.
type RulesConfig struct {
	Purse         int                        `yaml:"purse" env:"AUCTIOND_RULES_PURSE"`
	BasePrices    CategoryAmounts            `yaml:"base_prices"`
	CombinedCap   int                        `yaml:"combined_cap" env:"AUCTIOND_RULES_COMBINED_CAP"`
	MinSquadSize  int                        `yaml:"min_squad_size" env:"AUCTIOND_RULES_MIN_SQUAD_SIZE"`
	InterestLimit int                        `yaml:"interest_limit" env:"AUCTIOND_RULES_INTEREST_LIMIT"`
	Increments    map[string]IncrementConfig `yaml:"increments"`
}

// AuctionRules converts the configuration into auction.Rules.
func (r RulesConfig) AuctionRules() auction.Rules {
	rules := auction.Rules{
		Purse: r.Purse,
		BasePrices: map[auction.Category]int{
			auction.CategoryA: r.BasePrices.A,
			auction.CategoryB: r.BasePrices.B,
			auction.CategoryC: r.BasePrices.C,
		},
		CombinedCap:   r.CombinedCap,
		MinSquadSize:  r.MinSquadSize,
		InterestLimit: r.InterestLimit,
		Increments:    make(map[auction.Category]auction.Increment, len(r.Increments)),
	}
	for cat, inc := range r.Increments {
		rules.Increments[auction.Category(cat)] = auction.Increment{
			Step:      inc.Step,
			HighStep:  inc.HighStep,
			Threshold: inc.Threshold,
		}
	}
	return rules
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	rules := auction.DefaultRules()
	increments := make(map[string]IncrementConfig, len(rules.Increments))
	for cat, inc := range rules.Increments {
		increments[string(cat)] = IncrementConfig{Step: inc.Step, HighStep: inc.HighStep, Threshold: inc.Threshold}
	}

	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			Path:    "auctiond.db",
			Driver:  "postgres",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctiond",
			ServiceVersion: "0.1.0",
		},
		LeaderElection: LeaderElectionConfig{
			Enabled:        false,
			LeaseName:      "auctiond-leader",
			LeaseNamespace: "default",
			LeaseDuration:  15 * time.Second,
			RenewDeadline:  10 * time.Second,
			RetryPeriod:    2 * time.Second,
		},
		Coordinator: CoordinatorConfig{MaxConflictRetries: 5},
		Audit:       AuditConfig{Interval: time.Minute},
		Rules: RulesConfig{
			Purse: rules.Purse,
			BasePrices: CategoryAmounts{
				A: rules.BasePrices[auction.CategoryA],
				B: rules.BasePrices[auction.CategoryB],
				C: rules.BasePrices[auction.CategoryC],
			},
			CombinedCap:   rules.CombinedCap,
			MinSquadSize:  rules.MinSquadSize,
			InterestLimit: rules.InterestLimit,
			Increments:    increments,
		},
	}
}

// Load reads a YAML configuration file from the given path, then applies
// AUCTIOND_* environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite", "memory":
		// valid
	default:
		return fmt.Errorf("unsupported database driver %q: must be \"postgres\", \"sqlite\" or \"memory\"", c.Database.Driver)
	}
	if c.Coordinator.MaxConflictRetries < 0 {
		return errors.New("coordinator.max_conflict_retries must not be negative")
	}
	if c.Audit.Interval <= 0 {
		return errors.New("audit.interval must be positive")
	}
	return c.Rules.validate()
}

func (r RulesConfig) validate() error {
	for name, v := range map[string]int{
		"purse":          r.Purse,
		"combined_cap":   r.CombinedCap,
		"min_squad_size": r.MinSquadSize,
		"interest_limit": r.InterestLimit,
		"base_prices.A":  r.BasePrices.A,
		"base_prices.B":  r.BasePrices.B,
		"base_prices.C":  r.BasePrices.C,
	} {
		if v <= 0 {
			return fmt.Errorf("rules.%s must be positive, got %d", name, v)
		}
	}
	if r.BasePrices.A < r.BasePrices.B || r.BasePrices.B < r.BasePrices.C {
		return fmt.Errorf("rules.base_prices must be ordered A >= B >= C, got %d/%d/%d",
			r.BasePrices.A, r.BasePrices.B, r.BasePrices.C)
	}
	for _, cat := range auction.Categories {
		inc, ok := r.Increments[string(cat)]
		if !ok {
			return fmt.Errorf("rules.increments.%s is missing", cat)
		}
		if inc.Step <= 0 || inc.HighStep <= 0 || inc.Threshold <= 0 {
			return fmt.Errorf("rules.increments.%s must be positive", cat)
		}
	}
	return nil
}
