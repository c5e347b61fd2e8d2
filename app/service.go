// Package app wires configuration, sources, the engine and its outputs.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kilianp07/taxico2/api/emissions"
	"github.com/kilianp07/taxico2/config"
	"github.com/kilianp07/taxico2/core/engine"
	coremetrics "github.com/kilianp07/taxico2/core/metrics"
	"github.com/kilianp07/taxico2/core/monitoring"
	coresource "github.com/kilianp07/taxico2/core/source"
	"github.com/kilianp07/taxico2/core/store"
	"github.com/kilianp07/taxico2/infra/kpi"
	"github.com/kilianp07/taxico2/infra/logger"
	"github.com/kilianp07/taxico2/infra/metrics"
	"github.com/kilianp07/taxico2/infra/mqtt"
	infrasource "github.com/kilianp07/taxico2/infra/source"
	"github.com/kilianp07/taxico2/pkg/export"
)

// Service runs the pipeline described by a configuration.
type Service struct {
	cfg      *config.Config
	engine   *engine.Engine
	reporter coremetrics.Reporter
	store    store.Store
	latest   *emissions.LatestReport
	log      logger.Logger
	stdout   io.Writer
}

// New creates a Service from the configuration. Reporters and the pivot
// store are opened here and released by Close.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	reporter, err := coremetrics.NewReporter(cfg.Metrics.Reporters)
	if err != nil {
		return nil, fmt.Errorf("reporters: %w", err)
	}
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewReportPublisher(cfg.MQTT)
		if err != nil {
			closeReporter(reporter)
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		reporter = coremetrics.NewMultiReporter(reporter, pub)
	}

	eng, err := engine.New(cfg.Engine, FactorSource(cfg.Input.Factors), reporter, logger.New("engine"))
	if err != nil {
		closeReporter(reporter)
		return nil, err
	}

	svc := &Service{
		cfg:      cfg,
		engine:   eng,
		reporter: reporter,
		latest:   &emissions.LatestReport{},
		log:      logg,
		stdout:   os.Stdout,
	}
	if cfg.Store.SQLitePath != "" {
		st, err := OpenStore(cfg.Store)
		if err != nil {
			closeReporter(reporter)
			return nil, err
		}
		svc.store = st
		eng.SetStore(st)
	}
	return svc, nil
}

// FactorSource returns the configured factor table: inline rates when
// present, otherwise the CSV file at Path.
func FactorSource(cfg config.FactorsConfig) coresource.FactorSource {
	if len(cfg.Rates) > 0 {
		return coresource.StaticFactors(cfg.StaticFactors())
	}
	return infrasource.CSVFactors{Path: cfg.Path}
}

// OpenStore opens the SQLite pivot store.
func OpenStore(cfg config.StoreConfig) (*kpi.SQLiteStore, error) {
	if cfg.SQLitePath == "" {
		return nil, errors.New("store.sqlite_path is not configured")
	}
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	st, err := kpi.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// SetOutput redirects the summary printed after each run.
func (s *Service) SetOutput(w io.Writer) { s.stdout = w }

// Latest returns the holder of the last successful report.
func (s *Service) Latest() *emissions.LatestReport { return s.latest }

// RunOnce opens the configured trip sources, runs the engine over them and
// writes every configured output. Fatal errors are reported to monitoring.
func (s *Service) RunOnce(ctx context.Context) (*engine.Report, error) {
	src, err := s.openSources()
	if err != nil {
		monitoring.CaptureRun(err, "", "open_sources")
		return nil, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			s.log.Warnf("close sources: %v", err)
		}
	}()

	rep, err := s.engine.Run(ctx, src)
	if err != nil {
		monitoring.CaptureRun(err, "", "run")
		return nil, fmt.Errorf("run: %w", err)
	}
	s.latest.Set(rep)

	if err := s.WriteOutputs(rep); err != nil {
		monitoring.CaptureRun(err, rep.RunID, "write_outputs")
		return rep, err
	}
	return rep, nil
}

func (s *Service) openSources() (*coresource.MultiSource, error) {
	srcs := make([]coresource.TripSource, 0, len(s.cfg.Input.Trips))
	for i, m := range s.cfg.Input.Trips {
		src, err := coresource.NewTripSource(m)
		if err != nil {
			_ = coresource.Concat(srcs...).Close()
			return nil, fmt.Errorf("input.trips[%d] (%s): %w", i, m.Type, err)
		}
		srcs = append(srcs, src)
	}
	return coresource.Concat(srcs...), nil
}

// WriteOutputs prints the summary and writes the configured files.
func (s *Service) WriteOutputs(rep *engine.Report) error {
	out := s.cfg.Output
	switch out.Format {
	case "json":
		if err := export.WriteReportJSON(s.stdout, rep); err != nil {
			return fmt.Errorf("print report: %w", err)
		}
	case "text":
		if err := export.WriteText(s.stdout, rep); err != nil {
			return fmt.Errorf("print report: %w", err)
		}
	}

	files := []struct {
		path  string
		write func(io.Writer) error
	}{
		{out.ReportJSON, func(w io.Writer) error { return export.WriteReportJSON(w, rep) }},
		{out.ExtremesCSV, func(w io.Writer) error { return export.WriteExtremesCSV(w, rep.Extremes()) }},
		{out.SeriesCSV, func(w io.Writer) error { return export.WriteSeriesCSV(w, rep.Series()) }},
		{out.ChartHTML, func(w io.Writer) error { return export.WriteChartHTML(w, rep.Series()) }},
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		if err := writeFile(f.path, f.write); err != nil {
			return err
		}
		s.log.Infof("wrote %s", f.path)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Serve runs once, then serves the API until the context is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	if _, err := s.RunOnce(ctx); err != nil {
		return err
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	var daily emissions.DailyQuerier
	if s.store != nil {
		daily = s.store
	}
	h := emissions.NewRouter(emissions.NewHandler(s.latest, daily), emissions.RouterOptions{
		AllowedOrigins: s.cfg.API.AllowedOrigins,
	})
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api server shutdown: %v", err)
		}
	}()
	s.log.Infof("serving API on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Close releases the reporters and the store.
func (s *Service) Close() error {
	err := closeReporter(s.reporter)
	if s.store != nil {
		if serr := s.store.Close(); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

func closeReporter(r coremetrics.Reporter) error {
	if c, ok := r.(coremetrics.Closer); ok {
		return c.Close()
	}
	return nil
}
