package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rafique1990/flight-delay-simulator/internal/config"
	"github.com/rafique1990/flight-delay-simulator/internal/errs"
	"github.com/rafique1990/flight-delay-simulator/internal/metrics"
	"github.com/rafique1990/flight-delay-simulator/internal/report"
	"github.com/rafique1990/flight-delay-simulator/internal/schedule"
	"github.com/rafique1990/flight-delay-simulator/internal/sim"
	"github.com/rafique1990/flight-delay-simulator/internal/storage"
)

const uploadDir = "api/uploads"

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

type cliFlags struct {
	configPath string
	mode       string
	input      string
	runs       int
	output     string
	aircraft   string
	serve      bool
	addr       string
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "YAML config path")
	flag.StringVar(&f.mode, "mode", "", "Override simulation mode: deterministic or monte_carlo")
	flag.StringVar(&f.input, "input", "", "Override input schedule CSV")
	flag.IntVar(&f.runs, "runs", 0, "Override number of Monte Carlo runs")
	flag.StringVar(&f.output, "output", "", "Override output directory")
	flag.StringVar(&f.aircraft, "aircraft", "", "Restrict simulation to a single aircraft id")
	flag.BoolVar(&f.serve, "serve", false, "Run the HTTP API instead of a one-shot simulation")
	flag.StringVar(&f.addr, "addr", ":8080", "HTTP listen address (with -serve)")
	flag.Parse()
	return f
}

func (f cliFlags) apply(cfg config.Config) config.Config {
	if f.mode != "" {
		cfg.Mode = f.mode
	}
	if f.input != "" {
		cfg.InputSchedule = f.input
	}
	if f.runs > 0 {
		cfg.NRuns = f.runs
	}
	if f.output != "" {
		cfg.OutputDir = f.output
	}
	if f.aircraft != "" {
		cfg.AircraftID = f.aircraft
	}
	return cfg
}

// ---------------------------------------------------------------------------
// Application
// ---------------------------------------------------------------------------

// App wires the simulator's components behind the CLI and HTTP API.
type App struct {
	cfg       config.Config
	backend   storage.Backend
	schedules *schedule.CSVRepository
	results   *storage.CSVResultRepository
	reporter  *report.CSVReporter
	server    *http.Server

	startTime time.Time
}

// NewApp builds the application for the given configuration.
func NewApp(cfg config.Config) (*App, error) {
	backend, err := storage.New(cfg.StorageBackend, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:       cfg,
		backend:   backend,
		schedules: schedule.NewCSVRepository(backend),
		results:   storage.NewCSVResultRepository(backend),
		reporter:  report.NewCSVReporter(backend),
		startTime: time.Now(),
	}, nil
}

// Simulate runs one full orchestration with the given configuration.
func (a *App) Simulate(ctx context.Context, cfg config.Config) (*sim.Outcome, error) {
	orch := sim.NewOrchestrator(cfg, a.schedules, a.results, a.reporter)
	return orch.Run(ctx)
}

// RunOnce executes a single simulation and reports the result paths.
func (a *App) RunOnce(ctx context.Context) error {
	log.Printf("Running simulation: mode=%s runs=%d", a.cfg.Mode, a.cfg.RunCount())

	outcome, err := a.Simulate(ctx, a.cfg)
	if err != nil {
		if runID, ok := sim.FirstFailedRun(err); ok {
			return fmt.Errorf("run %d failed: %w", runID, err)
		}
		return err
	}

	log.Printf("Combined results: %s", outcome.CombinedPath)
	log.Printf("Aggregated results: %s", outcome.AggregatedPath)
	if outcome.ReportPath != "" {
		log.Printf("Histogram report: %s", outcome.ReportPath)
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP Server
// ---------------------------------------------------------------------------

// Serve runs the HTTP API until ctx is cancelled.
func (a *App) Serve(ctx context.Context, addr string) error {
	r := chi.NewRouter()
	r.Use(a.metricsMiddleware)

	r.Get("/health", a.handleHealth)
	r.Get("/metrics", a.handleMetrics)
	r.Get("/api/v1/config", a.handleDefaultConfig)
	r.Post("/api/v1/simulate", a.handleSimulate)

	a.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}

func (a *App) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPRequests.Inc()
		next.ServeHTTP(w, r)
		metrics.HTTPLatency.Observe(time.Since(start).Seconds())
	})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"backend": a.cfg.StorageBackend,
		"uptime":  time.Since(a.startTime).String(),
	})
}

func (a *App) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Write([]byte(metrics.Default().Export()))
}

// handleDefaultConfig returns the default configuration template so
// clients know the expected shape.
func (a *App) handleDefaultConfig(w http.ResponseWriter, r *http.Request) {
	cfg := config.Default()
	respondJSON(w, http.StatusOK, map[string]any{
		"mode":            cfg.Mode,
		"n_runs":          cfg.NRuns,
		"min_turnaround":  cfg.MinTurnaround,
		"departure_delay": cfg.DepartureDelay,
		"inflight_delay":  cfg.InflightDelay,
		"plot":            cfg.Plot,
		"bins":            cfg.Bins,
	})
}

// handleSimulate accepts a multipart upload with a mandatory schedule
// CSV, an optional YAML config, and optional form overrides, then runs
// the simulation synchronously.
func (a *App) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("parsing multipart form: %w", err))
		return
	}

	cfg := a.cfg
	if file, header, err := r.FormFile("config_file"); err == nil {
		data, readErr := io.ReadAll(file)
		file.Close()
		if readErr != nil {
			respondError(w, http.StatusBadRequest, fmt.Errorf("reading %s: %w", header.Filename, readErr))
			return
		}
		if cfg, err = config.FromYAML(data); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		cfg.StorageBackend = a.cfg.StorageBackend
		cfg.DataDir = a.cfg.DataDir
	}

	if err := applyFormOverrides(&cfg, r); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	csvFile, csvHeader, err := r.FormFile("csv_file")
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("csv_file is required: %w", err))
		return
	}
	defer csvFile.Close()

	uploadName := path.Join(uploadDir, uuid.NewString()+"_"+path.Base(csvHeader.Filename))
	if err := a.saveUpload(uploadName, csvFile); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	cfg.InputSchedule = uploadName

	outcome, err := a.Simulate(r.Context(), cfg)
	if err != nil {
		respondError(w, statusForError(err), err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":                 "Simulation completed successfully",
		"combined_results_path":   outcome.CombinedPath,
		"aggregated_results_path": outcome.AggregatedPath,
		"histogram_report_path":   outcome.ReportPath,
		"storage_backend":         cfg.StorageBackend,
		"runs":                    cfg.RunCount(),
		"combined_rows":           len(outcome.Combined.Rows),
		"aggregated_rows":         len(outcome.Aggregated),
	})
}

func applyFormOverrides(cfg *config.Config, r *http.Request) error {
	if v := r.FormValue("mode"); v != "" {
		cfg.Mode = v
	}
	if v := r.FormValue("n_runs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: invalid n_runs %q", errs.ErrConfiguration, v)
		}
		cfg.NRuns = n
	}
	if v := r.FormValue("min_turnaround"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: invalid min_turnaround %q", errs.ErrConfiguration, v)
		}
		cfg.MinTurnaround = n
	}
	if v := r.FormValue("aircraft_id"); v != "" {
		cfg.AircraftID = v
	}
	if v := r.FormValue("plot"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: invalid plot %q", errs.ErrConfiguration, v)
		}
		cfg.Plot = b
	}
	return nil
}

func (a *App) saveUpload(name string, src io.Reader) error {
	dst, err := a.backend.Create(name)
	if err != nil {
		return fmt.Errorf("storing upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("storing upload: %w", err)
	}
	return dst.Close()
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errs.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrDataSource):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	flags := parseFlags()

	cfg, err := config.LoadFile(flags.configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg = flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.serve {
		if err := app.Serve(ctx, flags.addr); err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	if err := app.RunOnce(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}
}
