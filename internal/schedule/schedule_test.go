package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rafique1990/flight-delay-simulator/internal/errs"
	"github.com/rafique1990/flight-delay-simulator/internal/schedule"
	"github.com/rafique1990/flight-delay-simulator/internal/storage"
	"github.com/rafique1990/flight-delay-simulator/pkg/models"
)

const sampleCSV = `LegId,Origin,Destination,AircraftId,STD,STA,Blocktime,Carrier
L1,FRA,LHR,AC1,600,700,100,XQ
L2,LHR,FRA,AC1,750,850,100,XQ
L3,FRA,MUC,AC2,500,560,60,XQ
`

func loadTable(t *testing.T, csv string) schedule.Table {
	t.Helper()
	mem := storage.NewMemory()
	mem.WriteFile("schedule.csv", []byte(csv))

	tbl, err := schedule.NewCSVRepository(mem).Load("schedule.csv")
	require.NoError(t, err)
	return tbl
}

// ---------------------------------------------------------------------------
// Loading & parsing
// ---------------------------------------------------------------------------

func TestLoadParsesLegsAndColumns(t *testing.T) {
	tbl := loadTable(t, sampleCSV)

	assert.Equal(t, []string{"LegId", "Origin", "Destination", "AircraftId", "STD", "STA", "Blocktime", "Carrier"}, tbl.Columns)
	require.Len(t, tbl.Legs, 3)

	first := tbl.Legs[0]
	assert.Equal(t, "L1", first.LegID)
	assert.Equal(t, "FRA", first.Origin)
	assert.Equal(t, "LHR", first.Destination)
	assert.Equal(t, "AC1", first.AircraftID)
	assert.Equal(t, 600, first.STD)
	assert.Equal(t, 700, first.STA)
	assert.Equal(t, 100, first.Blocktime)
	assert.Equal(t, "XQ", first.Extra["Carrier"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := schedule.NewCSVRepository(storage.NewMemory()).Load("nope.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDataSource)
}

func TestLoadRejectsBadInput(t *testing.T) {
	for _, tc := range []struct {
		name string
		csv  string
		msg  string
	}{
		{"empty file", "", "empty input"},
		{"header only", "LegId,Origin,Destination,AircraftId,STD,STA,Blocktime\n", "no schedule rows"},
		{
			"missing column",
			"LegId,Origin,Destination,AircraftId,STD,STA\nL1,FRA,LHR,AC1,600,700\n",
			`missing required column "Blocktime"`,
		},
		{
			"non-numeric STD",
			"LegId,Origin,Destination,AircraftId,STD,STA,Blocktime\nL1,FRA,LHR,AC1,ten,700,100\n",
			"invalid minute offset",
		},
		{
			"bad row on later line",
			"LegId,Origin,Destination,AircraftId,STD,STA,Blocktime\nL1,FRA,LHR,AC1,600,700,100\nL2,LHR,FRA,AC1,750,850,oops\n",
			"line 3",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mem := storage.NewMemory()
			mem.WriteFile("s.csv", []byte(tc.csv))

			_, err := schedule.NewCSVRepository(mem).Load("s.csv")
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrDataSource)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestLoadAllowsOvernightOffsets(t *testing.T) {
	tbl := loadTable(t, "LegId,Origin,Destination,AircraftId,STD,STA,Blocktime\nL1,FRA,JFK,AC1,1380,1860,480\n")
	assert.Equal(t, 1860, tbl.Legs[0].STA)
}

func TestTableCloneIsIndependent(t *testing.T) {
	tbl := loadTable(t, sampleCSV)
	clone := tbl.Clone()

	clone.Legs[0].LegID = "mutated"
	clone.Legs[0].Extra["Carrier"] = "ZZ"
	clone.Columns[0] = "mutated"

	assert.Equal(t, "L1", tbl.Legs[0].LegID)
	assert.Equal(t, "XQ", tbl.Legs[0].Extra["Carrier"])
	assert.Equal(t, "LegId", tbl.Columns[0])
}

// ---------------------------------------------------------------------------
// Eligibility
// ---------------------------------------------------------------------------

func TestEligibleDropsNonOperatingLegs(t *testing.T) {
	legs := []models.Leg{
		{LegID: "L1", Origin: "FRA", Destination: "LHR", AircraftID: "AC1"},
		{LegID: "G1", Origin: "FRA", Destination: "FRA", AircraftID: "AC1"},
		{LegID: "L2", Origin: "LHR", Destination: "FRA", AircraftID: "AC2"},
	}

	got := schedule.Eligible(legs, "")
	require.Len(t, got, 2)
	assert.Equal(t, "L1", got[0].LegID)
	assert.Equal(t, "L2", got[1].LegID)
}

func TestEligibleAircraftFilter(t *testing.T) {
	legs := []models.Leg{
		{LegID: "L1", Origin: "FRA", Destination: "LHR", AircraftID: "AC1"},
		{LegID: "L2", Origin: "LHR", Destination: "FRA", AircraftID: "AC2"},
	}

	got := schedule.Eligible(legs, "AC2")
	require.Len(t, got, 1)
	assert.Equal(t, "L2", got[0].LegID)

	assert.Empty(t, schedule.Eligible(legs, "AC9"))
}

// ---------------------------------------------------------------------------
// Rotations
// ---------------------------------------------------------------------------

func TestRotationsGroupAndSort(t *testing.T) {
	legs := []models.Leg{
		{LegID: "B2", Origin: "B", Destination: "C", AircraftID: "ACB", STD: 900},
		{LegID: "A1", Origin: "A", Destination: "B", AircraftID: "ACA", STD: 600},
		{LegID: "B1", Origin: "A", Destination: "B", AircraftID: "ACB", STD: 500},
		{LegID: "A2", Origin: "B", Destination: "A", AircraftID: "ACA", STD: 800},
	}

	rots := schedule.Rotations(legs)
	require.Len(t, rots, 2)

	assert.Equal(t, "ACA", rots[0].AircraftID)
	assert.Equal(t, []string{"A1", "A2"}, legIDs(rots[0].Legs))
	assert.Equal(t, "ACB", rots[1].AircraftID)
	assert.Equal(t, []string{"B1", "B2"}, legIDs(rots[1].Legs))
}

func TestRotationsStableForEqualSTD(t *testing.T) {
	legs := []models.Leg{
		{LegID: "first", AircraftID: "AC1", STD: 600},
		{LegID: "second", AircraftID: "AC1", STD: 600},
	}

	rots := schedule.Rotations(legs)
	require.Len(t, rots, 1)
	assert.Equal(t, []string{"first", "second"}, legIDs(rots[0].Legs))
}

func TestRotationsOrderedBySTD(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(t, "n")
		legs := make([]models.Leg, n)
		for i := range legs {
			legs[i] = models.Leg{
				LegID:      rapid.StringMatching(`L[0-9]{1,3}`).Draw(t, "leg"),
				AircraftID: rapid.SampledFrom([]string{"AC1", "AC2", "AC3"}).Draw(t, "ac"),
				STD:        rapid.IntRange(0, 2000).Draw(t, "std"),
			}
		}

		total := 0
		for _, rot := range schedule.Rotations(legs) {
			total += len(rot.Legs)
			for i := 1; i < len(rot.Legs); i++ {
				if rot.Legs[i-1].STD > rot.Legs[i].STD {
					t.Fatalf("rotation %s not sorted by STD", rot.AircraftID)
				}
				if rot.Legs[i].AircraftID != rot.AircraftID {
					t.Fatalf("leg grouped under wrong aircraft")
				}
			}
		}
		if total != n {
			t.Fatalf("rotations lost legs: %d != %d", total, n)
		}
	})
}

func legIDs(legs []models.Leg) []string {
	ids := make([]string, len(legs))
	for i, l := range legs {
		ids[i] = l.LegID
	}
	return ids
}
