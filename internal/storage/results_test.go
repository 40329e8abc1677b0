package storage

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafique1990/flight-delay-simulator/internal/errs"
	"github.com/rafique1990/flight-delay-simulator/internal/sim"
	"github.com/rafique1990/flight-delay-simulator/pkg/models"
)

func combinedFixture() sim.CombinedTable {
	return sim.CombinedTable{
		Columns: []string{"LegId", "Origin", "Destination", "AircraftId", "STD", "STA", "Blocktime", "Carrier"},
		Rows: []sim.LegResult{
			{
				Leg: models.Leg{
					LegID: "L1", Origin: "FRA", Destination: "LHR", AircraftID: "AC1",
					STD: 600, STA: 700, Blocktime: 100,
					Extra: map[string]string{"Carrier": "XQ"},
				},
				RunID:               1,
				DepartureDelay:      10,
				InflightDelay:       5,
				ArrivalDelay:        15,
				ActualTimeOfArrival: 715,
			},
			{
				Leg: models.Leg{
					LegID: "L2", Origin: "LHR", Destination: "FRA", AircraftID: "AC1",
					STD: 750, STA: 850, Blocktime: 100,
					Extra: map[string]string{"Carrier": "XQ"},
				},
				RunID:               1,
				DepartureDelay:      20.5,
				InflightDelay:       5,
				ArrivalDelay:        25.5,
				ActualTimeOfArrival: 875.5,
			},
		},
	}
}

func TestSaveCombinedPreservesColumnOrder(t *testing.T) {
	mem := NewMemory()
	repo := NewCSVResultRepository(mem)

	p, err := repo.SaveCombined(combinedFixture(), "results/combined.csv")
	require.NoError(t, err)
	assert.Equal(t, "mem://results/combined.csv", p)

	data, ok := mem.ReadFile("results/combined.csv")
	require.True(t, ok)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t,
		"LegId,Origin,Destination,AircraftId,STD,STA,Blocktime,Carrier,RunId,DepartureDelay,InflightDelay,ArrivalDelay,ActualTimeOfArrival",
		lines[0])
	assert.Equal(t, "L1,FRA,LHR,AC1,600,700,100,XQ,1,10,5,15,715", lines[1])
	assert.Equal(t, "L2,LHR,FRA,AC1,750,850,100,XQ,1,20.5,5,25.5,875.5", lines[2])
}

func TestSaveCombinedRefusesEmptyTable(t *testing.T) {
	repo := NewCSVResultRepository(NewMemory())

	_, err := repo.SaveCombined(sim.CombinedTable{Columns: []string{"LegId"}}, "results/combined.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDataSource)
}

func TestSaveAggregated(t *testing.T) {
	mem := NewMemory()
	repo := NewCSVResultRepository(mem)

	rows := []sim.AggregateRow{
		{
			LegID: "L1", AircraftID: "AC1",
			AvgArrivalDelay: 15, StdArrivalDelay: math.NaN(),
			MinArrival: 715, MaxArrival: 715, P95Arrival: 715, Runs: 1,
		},
		{
			LegID: "L2", AircraftID: "AC1",
			AvgArrivalDelay: 25.25, StdArrivalDelay: 3.5,
			MinArrival: 870, MaxArrival: 880, P95Arrival: 879.5, Runs: 2,
		},
	}

	_, err := repo.SaveAggregated(rows, "results/aggregated.csv")
	require.NoError(t, err)

	data, ok := mem.ReadFile("results/aggregated.csv")
	require.True(t, ok)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "LegId,AircraftId,AvgArrivalDelay,StdArrivalDelay,MinArrival,MaxArrival,P95Arrival", lines[0])
	assert.Equal(t, "L1,AC1,15,NaN,715,715,715", lines[1])
	assert.Equal(t, "L2,AC1,25.25,3.5,870,880,879.5", lines[2])
}

func TestSaveAggregatedRefusesEmpty(t *testing.T) {
	repo := NewCSVResultRepository(NewMemory())
	_, err := repo.SaveAggregated(nil, "results/aggregated.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDataSource)
}

func TestEnsureOutputDirLocal(t *testing.T) {
	repo := NewCSVResultRepository(NewLocalDisk(t.TempDir()))
	assert.NoError(t, repo.EnsureOutputDir("results"))
}

func TestLegValuePassthrough(t *testing.T) {
	row := sim.LegResult{Leg: models.Leg{
		LegID: "L1", STD: 600,
		Extra: map[string]string{"Remark": "charter"},
	}}

	assert.Equal(t, "L1", legValue(row, "LegId"))
	assert.Equal(t, "600", legValue(row, "STD"))
	assert.Equal(t, "charter", legValue(row, "Remark"))
	assert.Equal(t, "", legValue(row, "Unknown"))
}
