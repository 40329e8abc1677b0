package benchmarks

import (
	"fmt"
	"testing"

	"github.com/rafique1990/flight-delay-simulator/internal/delay"
	"github.com/rafique1990/flight-delay-simulator/internal/schedule"
	"github.com/rafique1990/flight-delay-simulator/internal/sim"
	"github.com/rafique1990/flight-delay-simulator/pkg/models"
)

// syntheticRotations builds nAircraft rotations of legsPerAircraft legs
// each, with realistic block times and turnaround buffers.
func syntheticRotations(nAircraft, legsPerAircraft int) []schedule.Rotation {
	rotations := make([]schedule.Rotation, nAircraft)
	for a := 0; a < nAircraft; a++ {
		legs := make([]models.Leg, legsPerAircraft)
		std := 360
		for i := range legs {
			block := 90 + (i%4)*30
			legs[i] = models.Leg{
				LegID:       fmt.Sprintf("L%d-%d", a, i),
				Origin:      fmt.Sprintf("AP%d", i%7),
				Destination: fmt.Sprintf("AP%d", (i+1)%7),
				AircraftID:  fmt.Sprintf("AC%03d", a),
				STD:         std,
				STA:         std + block,
				Blocktime:   block,
			}
			std += block + 50
		}
		rotations[a] = schedule.Rotation{AircraftID: legs[0].AircraftID, Legs: legs}
	}
	return rotations
}

func countLegs(rotations []schedule.Rotation) int {
	n := 0
	for _, r := range rotations {
		n += len(r.Legs)
	}
	return n
}

func BenchmarkPropagate(b *testing.B) {
	for _, size := range []struct{ aircraft, legs int }{
		{10, 8},
		{100, 8},
		{500, 12},
	} {
		b.Run(fmt.Sprintf("%daircraft_%dlegs", size.aircraft, size.legs), func(b *testing.B) {
			rotations := syntheticRotations(size.aircraft, size.legs)
			n := countLegs(rotations)
			gen, err := delay.NewGenerator(delay.ModeMonteCarlo, 1)
			if err != nil {
				b.Fatal(err)
			}
			dist := delay.Distribution{Mean: 10, Std: 3}
			departure := gen.DepartureDelays(dist, n)
			inflight := gen.InflightDelays(dist, n)
			engine := sim.Engine{MinTurnaround: 45}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := engine.Propagate(rotations, departure, inflight); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDelayGeneration(b *testing.B) {
	dist := delay.Distribution{Mean: 10, Std: 3}
	for _, mode := range delay.SupportedModes() {
		b.Run(string(mode), func(b *testing.B) {
			gen, err := delay.NewGenerator(mode, 1)
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				gen.DepartureDelays(dist, 1000)
			}
		})
	}
}

func BenchmarkAggregate(b *testing.B) {
	rotations := syntheticRotations(50, 8)
	n := countLegs(rotations)
	engine := sim.Engine{MinTurnaround: 45}
	dist := delay.Distribution{Mean: 10, Std: 3}

	var results []sim.LegResult
	for run := 1; run <= 20; run++ {
		gen, err := delay.NewGenerator(delay.ModeMonteCarlo, run)
		if err != nil {
			b.Fatal(err)
		}
		rows, err := engine.Propagate(rotations, gen.DepartureDelays(dist, n), gen.InflightDelays(dist, n))
		if err != nil {
			b.Fatal(err)
		}
		for i := range rows {
			rows[i].RunID = run
		}
		results = append(results, rows...)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sim.Aggregate(results)
	}
}

func BenchmarkRotationGrouping(b *testing.B) {
	rotations := syntheticRotations(200, 10)
	var legs []models.Leg
	for _, r := range rotations {
		legs = append(legs, r.Legs...)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		schedule.Rotations(legs)
	}
}
