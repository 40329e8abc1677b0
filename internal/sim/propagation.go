// Package sim contains the delay-propagation engine and the multi-run
// simulation orchestrator: computing per-leg actual departure/arrival
// times under cascading delays, running independent passes in parallel,
// and aggregating statistics across runs.
package sim

import (
	"fmt"
	"math"

	"github.com/rafique1990/flight-delay-simulator/internal/schedule"
	"github.com/rafique1990/flight-delay-simulator/pkg/models"
)

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// LegResult is one retained leg's outcome in one simulation run. All
// numeric outputs are rounded to two decimal places.
type LegResult struct {
	models.Leg

	RunID int

	// Raw delay magnitudes drawn from the generator.
	GeneratedDepartureDelay float64
	GeneratedInflightDelay  float64

	// DepartureDelay is the actual departure delay including propagation
	// from upstream legs: ATD - STD.
	DepartureDelay float64

	// InflightDelay is the delay added while airborne.
	InflightDelay float64

	// ArrivalDelay is the cumulative delay at arrival: ATA - STA.
	ArrivalDelay float64

	// ActualTimeOfArrival is STA + ArrivalDelay, in minutes from the
	// schedule's reference epoch.
	ActualTimeOfArrival float64
}

// ---------------------------------------------------------------------------
// Propagation Engine
// ---------------------------------------------------------------------------

// Engine turns aircraft rotations plus generated raw delays into actual
// departure and arrival times. It is pure computation: no I/O, no
// randomness, safe for concurrent use.
type Engine struct {
	// MinTurnaround is the minimum ground time in minutes between an
	// aircraft's simulated arrival and its next departure.
	MinTurnaround float64
}

// Propagate walks each rotation in STD order carrying the previous
// simulated arrival time, and computes per-leg actual times:
//
//	ATD = max(STD, prevATA + minTurnaround) + departureDelay
//	ATA = ATD + Blocktime + inflightDelay
//
// prevATA starts at zero for each rotation, so the first leg of a
// rotation sees no upstream propagation. departure and inflight must
// each hold one value per leg, in rotation iteration order.
func (e Engine) Propagate(rotations []schedule.Rotation, departure, inflight []float64) ([]LegResult, error) {
	total := 0
	for _, rot := range rotations {
		total += len(rot.Legs)
	}
	if len(departure) != total || len(inflight) != total {
		return nil, fmt.Errorf("propagation: %d legs but %d departure / %d inflight delays",
			total, len(departure), len(inflight))
	}

	results := make([]LegResult, 0, total)
	i := 0
	for _, rot := range rotations {
		prevATA := 0.0
		for _, leg := range rot.Legs {
			depDelay := departure[i]
			infDelay := inflight[i]
			i++

			atd := math.Max(float64(leg.STD), prevATA+e.MinTurnaround) + depDelay
			ata := atd + float64(leg.Blocktime) + infDelay
			prevATA = ata

			results = append(results, LegResult{
				Leg:                     leg,
				GeneratedDepartureDelay: round2(depDelay),
				GeneratedInflightDelay:  round2(infDelay),
				DepartureDelay:          round2(atd - float64(leg.STD)),
				InflightDelay:           round2(infDelay),
				ArrivalDelay:            round2(ata - float64(leg.STA)),
				ActualTimeOfArrival:     round2(ata),
			})
		}
	}
	return results, nil
}

// round2 rounds to two decimal places. The propagation chain itself
// carries unrounded values; only stored outputs are rounded.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
