// Package app assembles a runnable simulation from the configuration.
package app

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/evfleet/taxisim/config"
	"github.com/evfleet/taxisim/core/facility"
	"github.com/evfleet/taxisim/core/fleet"
	"github.com/evfleet/taxisim/core/report"
	"github.com/evfleet/taxisim/core/scenario"
	"github.com/evfleet/taxisim/core/sim"
	corestats "github.com/evfleet/taxisim/core/stats"
	"github.com/evfleet/taxisim/core/vehicle"
	"github.com/evfleet/taxisim/infra/loader"
	"github.com/evfleet/taxisim/infra/logger"
	"github.com/evfleet/taxisim/infra/routing"
	"github.com/evfleet/taxisim/infra/stats"
	"github.com/evfleet/taxisim/pkg/export"
)

// Service holds a fully wired simulation run.
type Service struct {
	Scenario *scenario.Scenario
	sink     corestats.Sink
	memory   *stats.MemorySink
	log      logger.Logger
}

// New builds the simulation from the configuration: sinks, router,
// facilities, fleet and the initial event queue.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("app")

	// The memory sink always runs; the final report is built from it.
	memory := stats.NewMemorySink()
	sinks := []corestats.Sink{memory}
	if cfg.Output.SQLitePath != "" {
		sqlite, err := stats.NewSQLiteSink(cfg.Output.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite sink: %w", err)
		}
		logg.Infof("writing results to %s (run %s)", cfg.Output.SQLitePath, sqlite.RunID())
		sinks = append(sinks, sqlite)
	}
	if cfg.Output.Influx.URL != "" {
		in := cfg.Output.Influx
		sinks = append(sinks, stats.NewInfluxSinkWithFallback(
			in.URL, in.Token, in.Org, in.Bucket, cfg.Output.EpochTime()))
	}
	var sink corestats.Sink = memory
	if len(sinks) > 1 {
		sink = stats.NewMultiSink(sinks...)
	}

	sched := sim.NewScheduler()
	router := routing.NewCrowFlightRouter(cfg.Routing.MeanSpeedKmh, cfg.Routing.DetourFactor)
	dir := facility.NewDirectory()

	if err := loader.LoadRanks(cfg.Input.RankFile, dir, sink); err != nil {
		return nil, fmt.Errorf("load ranks: %w", err)
	}
	if err := loader.LoadStations(cfg.Input.StationFile, dir, cfg.Fleet.ChargingParams(), cfg.Fleet.PlugIn(), sched, sink); err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}
	logg.Infof("facilities loaded: %d ranks, %d charging stations", len(dir.Ranks()), len(dir.Stations()))

	agency := fleet.NewAgency(sink, logger.New("agency"))
	env := vehicle.Env{
		Sched:      sched,
		Facilities: dir,
		Router:     router,
		Sink:       sink,
		Log:        logger.New("fleet"),
		Rand:       rand.New(rand.NewSource(cfg.Routing.Seed)),
	}
	if err := loader.LoadFleet(cfg.Input.FleetFile, agency, env, cfg.Fleet.VehicleParams(), cfg.Fleet.ElectricParams()); err != nil {
		return nil, fmt.Errorf("load fleet: %w", err)
	}
	logg.Infof("fleet loaded: %d vehicles", len(agency.Fleet()))

	controller := fleet.NewController(agency, sink, logger.New("controller"))
	sc := scenario.New(sched, agency, controller, dir, sink, logger.New("scenario"))

	demands, err := loader.LoadDemand(cfg.Input.DemandFile)
	if err != nil {
		return nil, fmt.Errorf("load demand: %w", err)
	}
	for _, d := range demands {
		sc.AddDemand(d)
	}
	if cfg.Input.TargetFile != "" {
		targets, err := loader.LoadTargets(cfg.Input.TargetFile)
		if err != nil {
			return nil, fmt.Errorf("load targets: %w", err)
		}
		for _, t := range targets {
			sc.AddTargetEvent(t)
		}
	}

	return &Service{Scenario: sc, sink: sink, memory: memory, log: logg}, nil
}

// ExportRides writes the served and denied rides as CSV into dir.
func (s *Service) ExportRides(dir string) error {
	served, err := os.Create(filepath.Join(dir, "served_rides.csv"))
	if err != nil {
		return err
	}
	defer func() { _ = served.Close() }()
	if err := export.WriteServedCSV(served, s.memory.Served); err != nil {
		return fmt.Errorf("export served rides: %w", err)
	}

	denied, err := os.Create(filepath.Join(dir, "denied_rides.csv"))
	if err != nil {
		return err
	}
	defer func() { _ = denied.Close() }()
	if err := export.WriteDeniedCSV(denied, s.memory.Denied); err != nil {
		return fmt.Errorf("export denied rides: %w", err)
	}
	return nil
}

// Report builds the end-of-run summary from the collected records.
func (s *Service) Report() report.Summary {
	return report.Build(s.memory.Trackpoints, s.memory.Energy, s.memory.Served, s.memory.Denied)
}

// PrintReport writes the summary to stdout.
func (s *Service) PrintReport() error {
	return s.Report().Write(os.Stdout)
}

// Close releases the sinks.
func (s *Service) Close() error {
	return s.sink.Close()
}
