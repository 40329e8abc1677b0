// Package delay models the stochastic delay assumptions of a simulation
// and generates raw per-leg delay magnitudes from them.
package delay

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rafique1990/flight-delay-simulator/internal/errs"
)

// SeedOffset is added to a run id to form that run's random seed. Each
// run's stream is fully determined by its id, making runs reproducible
// in isolation and mutually independent.
const SeedOffset = 42

// ---------------------------------------------------------------------------
// Distribution
// ---------------------------------------------------------------------------

// Distribution describes a univariate normal delay model for one delay
// phase (departure or in-flight). Units are minutes.
type Distribution struct {
	Mean float64 `yaml:"mean" json:"mean"`
	Std  float64 `yaml:"std" json:"std"`
}

// Validate checks the distribution parameters.
func (d Distribution) Validate() error {
	if d.Mean < 0 {
		return fmt.Errorf("%w: delay mean must be >= 0, got %v", errs.ErrConfiguration, d.Mean)
	}
	if d.Std < 0 {
		return fmt.Errorf("%w: delay std must be >= 0, got %v", errs.ErrConfiguration, d.Std)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Simulation Mode
// ---------------------------------------------------------------------------

// Mode selects how raw delays are generated.
type Mode string

const (
	// ModeDeterministic always yields the distribution mean.
	ModeDeterministic Mode = "deterministic"

	// ModeMonteCarlo draws from Normal(mean, std), clamped at zero.
	ModeMonteCarlo Mode = "monte_carlo"
)

// SupportedModes lists the known simulation modes.
func SupportedModes() []Mode {
	return []Mode{ModeDeterministic, ModeMonteCarlo}
}

// ParseMode parses a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDeterministic:
		return ModeDeterministic, nil
	case ModeMonteCarlo:
		return ModeMonteCarlo, nil
	default:
		return "", fmt.Errorf("%w: unknown simulation mode %q (supported: %v)",
			errs.ErrConfiguration, s, SupportedModes())
	}
}

// ---------------------------------------------------------------------------
// Generator Strategies
// ---------------------------------------------------------------------------

// Generator produces raw delay magnitudes for one simulation run. A
// Generator owns its random stream and is not safe for concurrent use;
// each run constructs its own via NewGenerator.
type Generator interface {
	// DepartureDelays returns count delay magnitudes for the departure
	// phase. count must be >= 1. All values are >= 0.
	DepartureDelays(dist Distribution, count int) []float64

	// InflightDelays returns count delay magnitudes for the in-flight
	// phase. count must be >= 1. All values are >= 0.
	InflightDelays(dist Distribution, count int) []float64
}

// NewGenerator creates the generator for the given mode. Monte Carlo
// generators are seeded from the run id so that a fixed id reproduces
// the same delay sequence.
func NewGenerator(mode Mode, runID int) (Generator, error) {
	switch mode {
	case ModeDeterministic:
		return deterministicGenerator{}, nil
	case ModeMonteCarlo:
		return &monteCarloGenerator{
			src: rand.NewSource(uint64(runID + SeedOffset)),
		}, nil
	default:
		_, err := ParseMode(string(mode))
		return nil, err
	}
}

// deterministicGenerator repeats the distribution mean. No randomness,
// no state.
type deterministicGenerator struct{}

func (deterministicGenerator) DepartureDelays(dist Distribution, count int) []float64 {
	return repeatMean(dist, count)
}

func (deterministicGenerator) InflightDelays(dist Distribution, count int) []float64 {
	return repeatMean(dist, count)
}

func repeatMean(dist Distribution, count int) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = dist.Mean
	}
	return out
}

// monteCarloGenerator samples Normal(mean, std) and clamps each sample
// at zero; early arrivals are not modeled. Both phases draw from the
// same stream, so a batch of count is statistically identical to count
// single draws.
type monteCarloGenerator struct {
	src rand.Source
}

func (g *monteCarloGenerator) DepartureDelays(dist Distribution, count int) []float64 {
	return g.sample(dist, count)
}

func (g *monteCarloGenerator) InflightDelays(dist Distribution, count int) []float64 {
	return g.sample(dist, count)
}

func (g *monteCarloGenerator) sample(dist Distribution, count int) []float64 {
	normal := distuv.Normal{Mu: dist.Mean, Sigma: dist.Std, Src: g.src}
	out := make([]float64, count)
	for i := range out {
		out[i] = max(0, normal.Rand())
	}
	return out
}
