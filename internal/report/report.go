// Package report renders arrival-delay distribution reports. Reports
// are a best-effort collaborator: callers log failures and move on.
package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"strconv"

	"github.com/rafique1990/flight-delay-simulator/internal/storage"
)

// Bin is one histogram bucket over [Lo, Hi).
type Bin struct {
	Lo    float64
	Hi    float64
	Count int
}

// Histogram buckets values into equal-width bins spanning
// [min, max]. The last bin is closed on both ends so the maximum is
// counted. A single distinct value collapses to one bin.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins < 1 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lo: lo + float64(i)*width, Hi: lo + float64(i+1)*width}
	}
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// CSVReporter writes histogram reports as CSV files on a storage
// backend.
type CSVReporter struct {
	backend storage.Backend
}

// NewCSVReporter creates a reporter on backend.
func NewCSVReporter(backend storage.Backend) *CSVReporter {
	return &CSVReporter{backend: backend}
}

// WriteArrivalDelayHistogram bins the arrival delays and writes the
// histogram to name, returning the final path.
func (r *CSVReporter) WriteArrivalDelayHistogram(delays []float64, bins int, name string) (string, error) {
	hist := Histogram(delays, bins)
	if len(hist) == 0 {
		return "", fmt.Errorf("no arrival delays to plot")
	}

	wc, err := r.backend.Create(name)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", name, err)
	}

	cw := csv.NewWriter(wc)
	if err := cw.Write([]string{"BinStart", "BinEnd", "Count"}); err != nil {
		wc.Close()
		return "", err
	}
	for _, b := range hist {
		rec := []string{
			strconv.FormatFloat(b.Lo, 'f', -1, 64),
			strconv.FormatFloat(b.Hi, 'f', -1, 64),
			strconv.Itoa(b.Count),
		}
		if err := cw.Write(rec); err != nil {
			wc.Close()
			return "", err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}
	return r.backend.Path(name), nil
}
