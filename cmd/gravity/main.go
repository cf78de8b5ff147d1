// Command gravity runs the gravitational N-body simulator: it seeds
// an engine from a CSV file or the built-in solar-system catalogue,
// drives it on a background controller loop, optionally serves a
// telemetry feed, and exits once the configured duration (if any) has
// been simulated.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandeepkv93/gravity/internal/catalogue"
	"github.com/sandeepkv93/gravity/internal/config"
	"github.com/sandeepkv93/gravity/internal/controller"
	"github.com/sandeepkv93/gravity/internal/engine"
	"github.com/sandeepkv93/gravity/internal/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args)
	if err != nil {
		log.Printf("gravity: %v", err)
		return 2
	}

	eng := engine.New(cfg.TimeDelta, cfg.Method, cfg.ReportEveryIterations, cfg.MaxIterations)
	eng.SetWorkers(cfg.Workers)
	eng.SetReportCentre(cfg.ReportCentre)

	if err := seed(eng, cfg); err != nil {
		log.Printf("gravity: %v", err)
		return 1
	}

	if cfg.OutputFile != "" {
		out, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("gravity: opening output file: %v", err)
			return 1
		}
		defer out.Close()
		eng.SetOutput(out)
	}

	var telem *telemetry.Server
	if cfg.TelemetryAddr != "" {
		telem = telemetry.NewServer()
		if err := telem.Start(cfg.TelemetryAddr); err != nil {
			log.Printf("gravity: starting telemetry server: %v", err)
			return 1
		}
		defer telem.Stop()
	}

	ctl := controller.New(eng, cfg.AutoStart)
	if telem != nil {
		ctl.OnRefresh(func(e *engine.Engine) {
			telem.Publish(snapshotOf(e))
			ctl.AckRefresh()
		})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := ctl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("gravity: %v", err)
		return 1
	}
	return 0
}

// seed registers the initial bodies: from --input if given, otherwise
// the built-in solar system. A CSV row epoch mismatch is logged and
// treated as non-fatal; any other load error aborts the run.
func seed(eng *engine.Engine, cfg *config.Config) error {
	if cfg.InputFile == "" {
		catalogue.SolarSystem(eng)
		return nil
	}

	f, err := os.Open(cfg.InputFile)
	if err != nil {
		return err
	}
	defer f.Close()

	err = eng.LoadFromCSV(f)
	var epochErr *engine.EpochInconsistencyError
	if errors.As(err, &epochErr) {
		log.Printf("gravity: %v", epochErr)
		return nil
	}
	return err
}

func snapshotOf(e *engine.Engine) telemetry.Snapshot {
	bodies := e.Bodies()
	stats := e.Statistics()
	com := stats.CenterOfMass
	mom := stats.NetMomentum
	snap := telemetry.Snapshot{
		Iteration:   e.CurrentIteration(),
		EpochMillis: e.CurrentEpochMillis(),
		Bodies:      make([]telemetry.BodySnapshot, len(bodies)),
		Statistics: telemetry.Statistics{
			BodyCount:       stats.BodyCount,
			TotalMass:       stats.TotalMass,
			KineticEnergy:   stats.KineticEnergy,
			PotentialEnergy: stats.PotentialEnergy,
			TotalEnergy:     stats.TotalEnergy,
			MinDistance:     stats.MinDistance,
			MaxDistance:     stats.MaxDistance,
			AverageDistance: stats.AverageDistance,
			CenterOfMassX:   com.X,
			CenterOfMassY:   com.Y,
			CenterOfMassZ:   com.Z,
			NetMomentumX:    mom.X,
			NetMomentumY:    mom.Y,
			NetMomentumZ:    mom.Z,
		},
	}
	for i, b := range bodies {
		loc := b.Location.Value()
		vel := b.Velocity.Value()
		snap.Bodies[i] = telemetry.BodySnapshot{
			Label:       b.Label,
			Mass:        b.Mass,
			Radius:      b.Radius,
			Temperature: b.Temperature,
			X:           loc.X,
			Y:           loc.Y,
			Z:           loc.Z,
			VX:          vel.X,
			VY:          vel.Y,
			VZ:          vel.Z,
		}
	}
	return snap
}
