package evcs

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DEFAULT_COVERAGE_DIST = 20.0
	DEFAULT_MAX_STATIONS  = 10
	DEFAULT_FIXED_COST    = 1000.0
	DEFAULT_VARIABLE_COST = 2.0
)

// Params are the scalar inputs that shape the model. FixedCost and
// VariableCost must already be in the same currency unit.
type Params struct {
	CoverageDistance float64 `yaml:"coverage_distance" json:"coverage_distance"`
	MaxStations      int     `yaml:"max_stations" json:"max_stations"`
	FixedCost        float64 `yaml:"fixed_cost" json:"fixed_cost"`
	VariableCost     float64 `yaml:"variable_cost" json:"variable_cost"`
}

func DefaultParams() Params {
	return Params{
		CoverageDistance: DEFAULT_COVERAGE_DIST,
		MaxStations:      DEFAULT_MAX_STATIONS,
		FixedCost:        DEFAULT_FIXED_COST,
		VariableCost:     DEFAULT_VARIABLE_COST,
	}
}

func (p Params) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"coverage_distance", p.CoverageDistance},
		{"max_stations", float64(p.MaxStations)},
		{"fixed_cost", p.FixedCost},
		{"variable_cost", p.VariableCost},
	}
	for _, c := range checks {
		if c.v < 0 || math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return &InvalidParamError{Name: c.name, Value: c.v}
		}
	}
	return nil
}

// SolverOptions never change the model, only how it is solved.
type SolverOptions struct {
	Backend   string        `yaml:"backend"`
	TimeLimit time.Duration `yaml:"time_limit"`
	MaxNodes  int           `yaml:"max_nodes"`
	Tolerance float64       `yaml:"tolerance"`
	LogFile   string        `yaml:"log_file"`
}

func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		Backend:   BACKEND_BNB,
		MaxNodes:  100000,
		Tolerance: DEFAULT_TOLERANCE,
		LogFile:   "evcs_gurobi.log",
	}
}

type Config struct {
	Params   Params        `yaml:"params"`
	Solver   SolverOptions `yaml:"solver"`
	RedisURL string        `yaml:"redis_url"`
	LogLevel int           `yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{Params: DefaultParams(), Solver: DefaultSolverOptions(), LogLevel: LOG_INFO}
}

// LoadConfig reads a YAML config on top of the defaults. An empty path
// yields the defaults. Environment overrides are applied afterwards.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Params.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from EVCS_* variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"EVCS_COVERAGE_DIST", &c.Params.CoverageDistance},
		{"EVCS_FIXED_COST", &c.Params.FixedCost},
		{"EVCS_VARIABLE_COST", &c.Params.VariableCost},
		{"EVCS_TOLERANCE", &c.Solver.Tolerance},
	}
	for _, f := range floats {
		if v := getenv(f.key); v != "" {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = x
		}
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"EVCS_MAX_STATIONS", &c.Params.MaxStations},
		{"EVCS_MAX_NODES", &c.Solver.MaxNodes},
		{"EVCS_LOG_LEVEL", &c.LogLevel},
	}
	for _, f := range ints {
		if v := getenv(f.key); v != "" {
			x, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = x
		}
	}
	if v := getenv("EVCS_TIME_LIMIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("EVCS_TIME_LIMIT: %w", err)
		}
		c.Solver.TimeLimit = d
	}
	if v := getenv("EVCS_BACKEND"); v != "" {
		c.Solver.Backend = strings.ToUpper(v)
	}
	if v := getenv("EVCS_REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	return nil
}
