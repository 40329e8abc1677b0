package sim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rafique1990/flight-delay-simulator/internal/config"
	"github.com/rafique1990/flight-delay-simulator/internal/delay"
	"github.com/rafique1990/flight-delay-simulator/internal/errs"
	"github.com/rafique1990/flight-delay-simulator/internal/metrics"
	"github.com/rafique1990/flight-delay-simulator/internal/schedule"
)

// ---------------------------------------------------------------------------
// Collaborator Interfaces
// ---------------------------------------------------------------------------

// ScheduleRepository loads the schedule table. Each worker calls it
// once so that no large in-memory state is shared across runs.
type ScheduleRepository interface {
	Load(source string) (schedule.Table, error)
}

// ResultRepository persists the combined and aggregated tables.
type ResultRepository interface {
	// EnsureOutputDir creates the output directory. Called once, before
	// any worker runs.
	EnsureOutputDir(dir string) error

	// SaveCombined writes the combined per-run results and returns the
	// final path.
	SaveCombined(table CombinedTable, name string) (string, error)

	// SaveAggregated writes the per-leg aggregate statistics and returns
	// the final path.
	SaveAggregated(rows []AggregateRow, name string) (string, error)
}

// Reporter renders the arrival-delay distribution report. Reporter
// failures are logged but never fail the simulation.
type Reporter interface {
	WriteArrivalDelayHistogram(delays []float64, bins int, name string) (string, error)
}

// CombinedTable is every retained leg crossed with every run, plus the
// input header order needed to reproduce passthrough columns.
type CombinedTable struct {
	Columns []string
	Rows    []LegResult
}

// ---------------------------------------------------------------------------
// Run Error
// ---------------------------------------------------------------------------

// RunError reports the failure of a single simulation run. It aborts
// the whole orchestration; no partial output is persisted.
type RunError struct {
	RunID int
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%v: run %d: %v", errs.ErrSimulation, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Is matches RunError against the simulation sentinel.
func (e *RunError) Is(target error) bool { return target == errs.ErrSimulation }

// ---------------------------------------------------------------------------
// Orchestrator
// ---------------------------------------------------------------------------

// Outcome is the result of a successful orchestration.
type Outcome struct {
	Combined   CombinedTable
	Aggregated []AggregateRow

	CombinedPath   string
	AggregatedPath string
	ReportPath     string
}

// Orchestrator executes the configured number of independent simulation
// passes in parallel and persists the collected results.
type Orchestrator struct {
	cfg      config.Config
	schedule ScheduleRepository
	results  ResultRepository
	reporter Reporter // optional
}

// NewOrchestrator wires an orchestrator from its collaborators.
// reporter may be nil to disable the histogram report.
func NewOrchestrator(cfg config.Config, schedules ScheduleRepository, results ResultRepository, reporter Reporter) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		schedule: schedules,
		results:  results,
		reporter: reporter,
	}
}

// Run validates the configuration and input, executes all passes, and
// persists the combined and aggregated tables. Any single run's failure
// aborts the whole batch: outstanding runs are joined before the error
// propagates, and nothing is written.
func (o *Orchestrator) Run(ctx context.Context) (*Outcome, error) {
	metrics.SimulationsTotal.Inc()
	out, err := o.run(ctx)
	if err != nil {
		metrics.SimulationErrors.Inc()
	}
	return out, err
}

func (o *Orchestrator) run(ctx context.Context) (*Outcome, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	// The schedule is loaded exactly once; every worker gets its own
	// clone. This also surfaces data-source problems before any worker
	// launches.
	table, err := o.schedule.Load(o.cfg.InputSchedule)
	if err != nil {
		return nil, err
	}
	if len(schedule.Eligible(table.Legs, o.cfg.AircraftID)) == 0 {
		return nil, fmt.Errorf("%w: no operating legs in %s after filtering (aircraft_id=%q)",
			errs.ErrDataSource, o.cfg.InputSchedule, o.cfg.AircraftID)
	}

	if err := o.results.EnsureOutputDir(o.cfg.OutputDir); err != nil {
		return nil, err
	}

	nRuns := o.cfg.RunCount()
	parallelism := min(nRuns, runtime.GOMAXPROCS(0))
	log.Printf("Starting simulation: mode=%s runs=%d parallelism=%d min_turnaround=%d",
		o.cfg.Mode, nRuns, parallelism, o.cfg.MinTurnaround)

	perRun := make([][]LegResult, nRuns)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := 0; i < nRuns; i++ {
		runID := i + 1
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := o.simulateRun(runID, table)
			if err != nil {
				metrics.RunFailures.Inc()
				return &RunError{RunID: runID, Err: err}
			}
			perRun[runID-1] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	combined := CombinedTable{Columns: table.Columns}
	for _, rows := range perRun {
		combined.Rows = append(combined.Rows, rows...)
	}
	sortCombined(combined.Rows)

	aggregated := Aggregate(combined.Rows)

	outcome := &Outcome{Combined: combined, Aggregated: aggregated}
	if outcome.CombinedPath, err = o.results.SaveCombined(combined, path.Join(o.cfg.OutputDir, o.cfg.CombinedOutput)); err != nil {
		return nil, err
	}
	if outcome.AggregatedPath, err = o.results.SaveAggregated(aggregated, path.Join(o.cfg.OutputDir, o.cfg.AggregatedOutput)); err != nil {
		return nil, err
	}
	log.Printf("Simulation complete: %d combined rows, %d aggregated rows", len(combined.Rows), len(aggregated))

	o.writeReport(outcome)
	return outcome, nil
}

// simulateRun performs one full pass on a private clone of the loaded
// schedule: filter, generate raw delays, and propagate. Runs share no
// mutable state; the random stream is owned by this run and seeded from
// runID.
func (o *Orchestrator) simulateRun(runID int, table schedule.Table) ([]LegResult, error) {
	start := time.Now()
	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	t := table.Clone()
	eligible := schedule.Eligible(t.Legs, o.cfg.AircraftID)
	rotations := schedule.Rotations(eligible)

	gen, err := delay.NewGenerator(o.cfg.DelayMode(), runID)
	if err != nil {
		return nil, err
	}
	departure := gen.DepartureDelays(o.cfg.DepartureDelay, len(eligible))
	inflight := gen.InflightDelays(o.cfg.InflightDelay, len(eligible))

	engine := Engine{MinTurnaround: float64(o.cfg.MinTurnaround)}
	rows, err := engine.Propagate(rotations, departure, inflight)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].RunID = runID
	}

	metrics.RunsTotal.Inc()
	metrics.LegsSimulated.Add(int64(len(rows)))
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	return rows, nil
}

// writeReport renders the arrival-delay histogram. Report failures are
// reported but must never fail the primary simulation result.
func (o *Orchestrator) writeReport(outcome *Outcome) {
	if o.reporter == nil || !o.cfg.Plot {
		return
	}
	delays := make([]float64, len(outcome.Combined.Rows))
	for i, r := range outcome.Combined.Rows {
		delays[i] = r.ArrivalDelay
	}
	name := path.Join(o.cfg.OutputDir, "arrival_delay_histogram.csv")
	p, err := o.reporter.WriteArrivalDelayHistogram(delays, o.cfg.Bins, name)
	if err != nil {
		log.Printf("Histogram report failed (non-fatal): %v", err)
		return
	}
	outcome.ReportPath = p
}

// sortCombined restores output determinism regardless of run completion
// order.
func sortCombined(rows []LegResult) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.AircraftID != b.AircraftID {
			return a.AircraftID < b.AircraftID
		}
		if a.LegID != b.LegID {
			return a.LegID < b.LegID
		}
		return a.RunID < b.RunID
	})
}

// FirstFailedRun extracts the failing run id from an orchestration
// error, if the error originated inside a run.
func FirstFailedRun(err error) (int, bool) {
	var re *RunError
	if errors.As(err, &re) {
		return re.RunID, true
	}
	return 0, false
}
