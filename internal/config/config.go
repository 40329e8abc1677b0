// Package config defines the simulation configuration and its loading
// boundary: YAML files, environment overrides, and normalization of
// legacy config shapes. The core packages consume a validated Config
// and never read global or environment state themselves.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/rafique1990/flight-delay-simulator/internal/delay"
	"github.com/rafique1990/flight-delay-simulator/internal/errs"
)

// Storage backend identifiers.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
)

// Config holds everything one simulation invocation needs. It is
// constructed once per invocation and never mutated during execution.
type Config struct {
	// Mode selects deterministic or monte_carlo delay generation.
	Mode string `yaml:"mode" env:"SIM_MODE"`

	// NRuns is the number of Monte Carlo passes. Ignored (effectively 1)
	// in deterministic mode.
	NRuns int `yaml:"n_runs" env:"SIM_N_RUNS"`

	// MinTurnaround is the minimum ground time in minutes between an
	// aircraft's arrival and its next departure.
	MinTurnaround int `yaml:"min_turnaround" env:"SIM_MIN_TURNAROUND"`

	// AircraftID restricts the simulation to a single rotation when set.
	AircraftID string `yaml:"aircraft_id" env:"SIM_AIRCRAFT_ID"`

	DepartureDelay delay.Distribution `yaml:"departure_delay"`
	InflightDelay  delay.Distribution `yaml:"inflight_delay"`

	// I/O routing.
	InputSchedule    string `yaml:"input_schedule" env:"SIM_INPUT_SCHEDULE"`
	OutputDir        string `yaml:"output_dir" env:"SIM_OUTPUT_DIR"`
	CombinedOutput   string `yaml:"combined_output"`
	AggregatedOutput string `yaml:"aggregated_output"`

	// Arrival-delay histogram report.
	Plot bool `yaml:"plot"`
	Bins int  `yaml:"bins"`

	// StorageBackend selects where inputs are read from and results are
	// written to. Injected here explicitly; the core never consults the
	// environment for it.
	StorageBackend string `yaml:"storage_backend" env:"STORAGE_BACKEND"`

	// DataDir is the root the local backend resolves relative paths
	// against.
	DataDir string `yaml:"data_dir" env:"LOCAL_DATA_DIR"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Mode:             string(delay.ModeDeterministic),
		NRuns:            3,
		MinTurnaround:    45,
		DepartureDelay:   delay.Distribution{Mean: 10, Std: 3},
		InflightDelay:    delay.Distribution{Mean: 5, Std: 2},
		InputSchedule:    "input/schedule.csv",
		OutputDir:        "results",
		CombinedOutput:   "modified_input_with_ActualTimeOfArrival.csv",
		AggregatedOutput: "aggregated.csv",
		Plot:             true,
		Bins:             20,
		StorageBackend:   BackendLocal,
		DataDir:          "data",
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// legacyDelays mirrors the nested `delays:` shape older config files
// use. It is folded into the flat departure_delay/inflight_delay keys
// here at the loading boundary.
type legacyDelays struct {
	Delays struct {
		Departure *delay.Distribution `yaml:"departure"`
		Inflight  *delay.Distribution `yaml:"inflight"`
	} `yaml:"delays"`
}

// FromYAML parses a YAML document on top of the defaults. Both the flat
// departure_delay/inflight_delay keys and the legacy nested delays
// shape are accepted; the flat keys win when both are present.
func FromYAML(data []byte) (Config, error) {
	var legacy legacyDelays
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return Config{}, fmt.Errorf("%w: parsing config: %v", errs.ErrConfiguration, err)
	}

	cfg := Default()
	if legacy.Delays.Departure != nil {
		cfg.DepartureDelay = *legacy.Delays.Departure
	}
	if legacy.Delays.Inflight != nil {
		cfg.InflightDelay = *legacy.Delays.Inflight
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parsing config: %v", errs.ErrConfiguration, err)
	}
	return cfg, nil
}

// LoadFile reads a YAML config file, applies it on top of the defaults,
// then applies environment overrides. An empty path yields defaults
// plus environment.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: reading config %s: %v", errs.ErrConfiguration, path, err)
		}
		if cfg, err = FromYAML(data); err != nil {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %v", errs.ErrConfiguration, err)
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks every parameter the core consumes. It runs before any
// simulation work starts.
func (c Config) Validate() error {
	if _, err := delay.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.NRuns < 1 {
		return fmt.Errorf("%w: n_runs must be >= 1, got %d", errs.ErrConfiguration, c.NRuns)
	}
	if c.MinTurnaround < 0 {
		return fmt.Errorf("%w: min_turnaround must be >= 0, got %d", errs.ErrConfiguration, c.MinTurnaround)
	}
	if err := c.DepartureDelay.Validate(); err != nil {
		return fmt.Errorf("departure_delay: %w", err)
	}
	if err := c.InflightDelay.Validate(); err != nil {
		return fmt.Errorf("inflight_delay: %w", err)
	}
	if c.InputSchedule == "" {
		return fmt.Errorf("%w: input_schedule must be set", errs.ErrConfiguration)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir must be set", errs.ErrConfiguration)
	}
	if c.Plot && c.Bins < 1 {
		return fmt.Errorf("%w: bins must be >= 1 when plot is enabled, got %d", errs.ErrConfiguration, c.Bins)
	}
	switch c.StorageBackend {
	case BackendLocal, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown storage backend %q (supported: %s, %s)",
			errs.ErrConfiguration, c.StorageBackend, BackendLocal, BackendMemory)
	}
	return nil
}

// DelayMode returns the parsed simulation mode. Call Validate first.
func (c Config) DelayMode() delay.Mode {
	m, _ := delay.ParseMode(c.Mode)
	return m
}

// RunCount returns the number of passes the orchestrator executes: 1 in
// deterministic mode, NRuns in Monte Carlo mode.
func (c Config) RunCount() int {
	if c.DelayMode() == delay.ModeDeterministic {
		return 1
	}
	return c.NRuns
}
