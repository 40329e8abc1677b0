package sim

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AggregateRow summarizes one (LegId, AircraftId) pair across all runs.
type AggregateRow struct {
	LegID      string
	AircraftID string

	// AvgArrivalDelay is the mean of (ActualTimeOfArrival - STA).
	AvgArrivalDelay float64

	// StdArrivalDelay is the sample standard deviation (divisor n-1) of
	// (ActualTimeOfArrival - STA). NaN when the pair has a single run.
	StdArrivalDelay float64

	MinArrival float64
	MaxArrival float64

	// P95Arrival is the 95th percentile of ActualTimeOfArrival with
	// linear interpolation between order statistics.
	P95Arrival float64

	Runs int
}

// Aggregate groups combined results by (LegId, AircraftId) and computes
// arrival statistics across runs. Output is sorted by (AircraftId,
// LegId) for deterministic presentation.
func Aggregate(results []LegResult) []AggregateRow {
	type key struct{ legID, aircraftID string }
	type group struct {
		delays   []float64 // ActualTimeOfArrival - STA
		arrivals []float64 // ActualTimeOfArrival
	}

	groups := make(map[key]*group)
	for _, r := range results {
		k := key{r.LegID, r.AircraftID}
		g := groups[k]
		if g == nil {
			g = &group{}
			groups[k] = g
		}
		g.delays = append(g.delays, r.ActualTimeOfArrival-float64(r.STA))
		g.arrivals = append(g.arrivals, r.ActualTimeOfArrival)
	}

	rows := make([]AggregateRow, 0, len(groups))
	for k, g := range groups {
		rows = append(rows, AggregateRow{
			LegID:           k.legID,
			AircraftID:      k.aircraftID,
			AvgArrivalDelay: stat.Mean(g.delays, nil),
			StdArrivalDelay: stat.StdDev(g.delays, nil),
			MinArrival:      floats.Min(g.arrivals),
			MaxArrival:      floats.Max(g.arrivals),
			P95Arrival:      percentile(g.arrivals, 0.95),
			Runs:            len(g.delays),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AircraftID != rows[j].AircraftID {
			return rows[i].AircraftID < rows[j].AircraftID
		}
		return rows[i].LegID < rows[j].LegID
	})
	return rows
}

// percentile interpolates linearly between order statistics at rank
// p*(n-1). gonum's quantile kinds interpolate the empirical CDF
// instead, which disagrees with this rule for small n, so the rank
// arithmetic lives here.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
