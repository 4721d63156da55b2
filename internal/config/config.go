package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/EmpoweredVote/EV-Ridings/internal/tally"
)

var (
	ErrEmptyDataRoot = errors.New("data root is empty")
	ErrNoYears       = errors.New("no election years configured")
	ErrBadWorkers    = errors.New("workers must be positive")
)

// Config holds settings shared by the pipeline commands and the API server.
type Config struct {
	// DataRoot contains election_boundaries_19-25/ and election_data_19-25/.
	DataRoot string              `yaml:"data_root"`
	Years    []string            `yaml:"years"`
	Electors tally.ElectorPolicy `yaml:"elector_policy"`
	Workers  int                 `yaml:"workers"`

	DatabaseURL    string   `yaml:"database_url"`
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() Config {
	return Config{
		DataRoot: ".",
		Years:    []string{"2019", "2021", "2025"},
		Electors: tally.ElectorsFirst,
		Workers:  4,
		Port:     "5050",
		AllowedOrigins: []string{
			"http://localhost:5173",
			"https://empoweredvote.github.io",
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (or
// RIDINGS_CONFIG when path is empty), then environment variables.
// .env.local is loaded first if present.
//
// Environment variables:
//   - RIDINGS_DATA_ROOT
//   - RIDINGS_YEARS: comma separated, e.g. "2021,2025"
//   - RIDINGS_ELECTOR_POLICY: "first" or "sum"
//   - RIDINGS_WORKERS
//   - DATABASE_URL
//   - PORT
//   - RIDINGS_ALLOWED_ORIGINS: comma separated
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env.local")

	cfg := Default()
	if path == "" {
		path = os.Getenv("RIDINGS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("RIDINGS_DATA_ROOT")); v != "" {
		c.DataRoot = v
	}
	if v := os.Getenv("RIDINGS_YEARS"); v != "" {
		c.Years = splitList(v)
	}
	if v := os.Getenv("RIDINGS_ELECTOR_POLICY"); v != "" {
		c.Electors = tally.ElectorPolicy(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv("RIDINGS_WORKERS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("RIDINGS_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("RIDINGS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	return nil
}

// Validate checks the settings every command depends on. DatabaseURL is
// optional; without it results are only written to disk.
func (c Config) Validate() error {
	if c.DataRoot == "" {
		return ErrEmptyDataRoot
	}
	if len(c.Years) == 0 {
		return ErrNoYears
	}
	if _, err := tally.ParseElectorPolicy(string(c.Electors)); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return ErrBadWorkers
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
