// Package schedule loads flight schedules from tabular sources and
// prepares them for delay propagation: filtering out non-operating
// legs, applying the optional aircraft filter, and grouping legs into
// aircraft rotations ordered by scheduled departure.
package schedule

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/rafique1990/flight-delay-simulator/internal/errs"
	"github.com/rafique1990/flight-delay-simulator/pkg/models"
)

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

// Table is a loaded schedule: the legs plus the source header order,
// preserved so that passthrough columns survive into the output.
type Table struct {
	Columns []string
	Legs    []models.Leg
}

// Clone returns a deep copy of the table. Each simulation run works on
// its own copy so no mutable state crosses worker boundaries.
func (t Table) Clone() Table {
	c := Table{
		Columns: append([]string(nil), t.Columns...),
		Legs:    make([]models.Leg, len(t.Legs)),
	}
	for i, l := range t.Legs {
		c.Legs[i] = l.Clone()
	}
	return c
}

// ---------------------------------------------------------------------------
// CSV Repository
// ---------------------------------------------------------------------------

// Source opens named inputs for reading. Implemented by the storage
// backends.
type Source interface {
	Open(name string) (io.ReadCloser, error)
}

// CSVRepository loads schedules from CSV files through a Source.
type CSVRepository struct {
	src Source
}

// NewCSVRepository creates a schedule repository backed by src.
func NewCSVRepository(src Source) *CSVRepository {
	return &CSVRepository{src: src}
}

// Load reads and parses the schedule at name. It fails with a data
// source error when the input is missing, unreadable, malformed, lacks
// a required column, or contains no legs.
func (r *CSVRepository) Load(name string) (Table, error) {
	rc, err := r.src.Open(name)
	if err != nil {
		return Table{}, fmt.Errorf("%w: opening schedule %s: %v", errs.ErrDataSource, name, err)
	}
	defer rc.Close()

	t, err := parseCSV(rc)
	if err != nil {
		return Table{}, fmt.Errorf("%w: schedule %s: %v", errs.ErrDataSource, name, err)
	}
	return t, nil
}

func parseCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return Table{}, fmt.Errorf("empty input")
	}
	if err != nil {
		return Table{}, fmt.Errorf("reading header: %v", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, c := range header {
		colIdx[c] = i
	}
	for _, req := range models.RequiredColumns() {
		if _, ok := colIdx[req]; !ok {
			return Table{}, fmt.Errorf("missing required column %q", req)
		}
	}

	t := Table{Columns: append([]string(nil), header...)}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return Table{}, fmt.Errorf("line %d: %v", line, err)
		}

		leg, err := parseLeg(header, colIdx, rec)
		if err != nil {
			return Table{}, fmt.Errorf("line %d: %v", line, err)
		}
		t.Legs = append(t.Legs, leg)
	}

	if len(t.Legs) == 0 {
		return Table{}, fmt.Errorf("no schedule rows")
	}
	return t, nil
}

func parseLeg(header []string, colIdx map[string]int, rec []string) (models.Leg, error) {
	std, err := parseMinutes(rec[colIdx[models.ColSTD]], models.ColSTD)
	if err != nil {
		return models.Leg{}, err
	}
	sta, err := parseMinutes(rec[colIdx[models.ColSTA]], models.ColSTA)
	if err != nil {
		return models.Leg{}, err
	}
	block, err := parseMinutes(rec[colIdx[models.ColBlocktime]], models.ColBlocktime)
	if err != nil {
		return models.Leg{}, err
	}

	leg := models.Leg{
		LegID:       rec[colIdx[models.ColLegID]],
		Origin:      rec[colIdx[models.ColOrigin]],
		Destination: rec[colIdx[models.ColDestination]],
		AircraftID:  rec[colIdx[models.ColAircraftID]],
		STD:         std,
		STA:         sta,
		Blocktime:   block,
	}

	required := make(map[string]bool, 7)
	for _, c := range models.RequiredColumns() {
		required[c] = true
	}
	for i, c := range header {
		if required[c] || i >= len(rec) {
			continue
		}
		if leg.Extra == nil {
			leg.Extra = make(map[string]string)
		}
		leg.Extra[c] = rec[i]
	}
	return leg, nil
}

// parseMinutes accepts integer minute offsets. Offsets are not wrapped
// to 24h, so values over 1440 are valid for overnight schedules.
func parseMinutes(s, col string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid minute offset %q", col, s)
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Filtering & Rotations
// ---------------------------------------------------------------------------

// Eligible returns the legs retained for propagation: operating legs
// (Origin != Destination), restricted to aircraftID when it is
// non-empty. The result preserves input order.
func Eligible(legs []models.Leg, aircraftID string) []models.Leg {
	out := make([]models.Leg, 0, len(legs))
	for _, l := range legs {
		if !l.Operating() {
			continue
		}
		if aircraftID != "" && l.AircraftID != aircraftID {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Rotation is the ordered sequence of legs flown by one aircraft,
// sorted by scheduled departure.
type Rotation struct {
	AircraftID string
	Legs       []models.Leg
}

// Rotations groups legs by aircraft and sorts each group by STD.
// Aircraft appear in lexicographic order for deterministic output.
// Within a rotation, legs with equal STD keep their input order.
func Rotations(legs []models.Leg) []Rotation {
	byAircraft := make(map[string][]models.Leg)
	var order []string
	for _, l := range legs {
		if _, seen := byAircraft[l.AircraftID]; !seen {
			order = append(order, l.AircraftID)
		}
		byAircraft[l.AircraftID] = append(byAircraft[l.AircraftID], l)
	}
	sort.Strings(order)

	rotations := make([]Rotation, 0, len(order))
	for _, id := range order {
		group := byAircraft[id]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].STD < group[j].STD
		})
		rotations = append(rotations, Rotation{AircraftID: id, Legs: group})
	}
	return rotations
}
