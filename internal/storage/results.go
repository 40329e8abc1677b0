package storage

import (
	"encoding/csv"
	"fmt"
	"math"
	"strconv"

	"github.com/rafique1990/flight-delay-simulator/internal/errs"
	"github.com/rafique1990/flight-delay-simulator/internal/sim"
)

// Combined-table columns appended to the input columns.
var resultColumns = []string{"RunId", "DepartureDelay", "InflightDelay", "ArrivalDelay", "ActualTimeOfArrival"}

// Aggregated-table header.
var aggregateColumns = []string{"LegId", "AircraftId", "AvgArrivalDelay", "StdArrivalDelay", "MinArrival", "MaxArrival", "P95Arrival"}

// CSVResultRepository persists simulation outputs as CSV files on a
// Backend. It implements sim.ResultRepository.
type CSVResultRepository struct {
	backend Backend
}

// NewCSVResultRepository creates a result repository on backend.
func NewCSVResultRepository(backend Backend) *CSVResultRepository {
	return &CSVResultRepository{backend: backend}
}

// EnsureOutputDir creates the output directory before any worker runs.
func (r *CSVResultRepository) EnsureOutputDir(dir string) error {
	if err := r.backend.MkdirAll(dir); err != nil {
		return fmt.Errorf("%w: creating output dir %s: %v", errs.ErrDataSource, dir, err)
	}
	return nil
}

// SaveCombined writes the combined results table: the input columns in
// their original order followed by the per-run result columns.
func (r *CSVResultRepository) SaveCombined(table sim.CombinedTable, name string) (string, error) {
	if len(table.Rows) == 0 {
		return "", fmt.Errorf("%w: refusing to write empty combined table to %s", errs.ErrDataSource, name)
	}

	header := append(append([]string(nil), table.Columns...), resultColumns...)
	records := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := make([]string, 0, len(header))
		for _, col := range table.Columns {
			rec = append(rec, legValue(row, col))
		}
		rec = append(rec,
			strconv.Itoa(row.RunID),
			formatFloat(row.DepartureDelay),
			formatFloat(row.InflightDelay),
			formatFloat(row.ArrivalDelay),
			formatFloat(row.ActualTimeOfArrival),
		)
		records = append(records, rec)
	}
	return r.writeCSV(name, header, records)
}

// SaveAggregated writes the per-leg aggregate statistics.
func (r *CSVResultRepository) SaveAggregated(rows []sim.AggregateRow, name string) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: refusing to write empty aggregated table to %s", errs.ErrDataSource, name)
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.LegID,
			row.AircraftID,
			formatFloat(row.AvgArrivalDelay),
			formatFloat(row.StdArrivalDelay),
			formatFloat(row.MinArrival),
			formatFloat(row.MaxArrival),
			formatFloat(row.P95Arrival),
		})
	}
	return r.writeCSV(name, aggregateColumns, records)
}

func (r *CSVResultRepository) writeCSV(name string, header []string, records [][]string) (string, error) {
	wc, err := r.backend.Create(name)
	if err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", errs.ErrDataSource, name, err)
	}

	cw := csv.NewWriter(wc)
	if err := cw.Write(header); err != nil {
		wc.Close()
		return "", fmt.Errorf("%w: writing %s: %v", errs.ErrDataSource, name, err)
	}
	if err := cw.WriteAll(records); err != nil {
		wc.Close()
		return "", fmt.Errorf("%w: writing %s: %v", errs.ErrDataSource, name, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("%w: closing %s: %v", errs.ErrDataSource, name, err)
	}
	return r.backend.Path(name), nil
}

// legValue renders one input column of a combined row: the canonical
// schedule fields from the parsed leg, anything else from the
// passthrough columns.
func legValue(row sim.LegResult, col string) string {
	switch col {
	case "LegId":
		return row.LegID
	case "Origin":
		return row.Origin
	case "Destination":
		return row.Destination
	case "AircraftId":
		return row.AircraftID
	case "STD":
		return strconv.Itoa(row.STD)
	case "STA":
		return strconv.Itoa(row.STA)
	case "Blocktime":
		return strconv.Itoa(row.Blocktime)
	default:
		return row.Extra[col]
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
