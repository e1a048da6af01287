package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/citygrid/citygrid/config"
	"github.com/citygrid/citygrid/logging"
	"github.com/citygrid/citygrid/sim"
	"github.com/citygrid/citygrid/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	mapName := flag.String("map", "empty", "Starting map: empty or telaviv")
	loadPath := flag.String("load", "", "Load a save file before running")
	savePath := flag.String("save", "", "Write a save file after the run")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Uint64("seed", 0, "World seed (0 = use config)")
	ticks := flag.Int("ticks", 1440, "Number of ticks to simulate")
	stepsPerFlush := flag.Int("steps-per-flush", 100, "Ticks between telemetry flushes")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.World.Seed = int64(*seed)
	}

	logging.SetWriter(os.Stdout)

	if err := run(cfg, *mapName, *loadPath, *savePath, *outputDir, *ticks, *stepsPerFlush); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, mapName, loadPath, savePath, outputDir string, ticks, stepsPerFlush int) error {
	world, err := newWorld(cfg, mapName)
	if err != nil {
		return err
	}
	defer world.Close()

	if loadPath != "" {
		f, err := os.Open(loadPath)
		if err != nil {
			return fmt.Errorf("opening save: %w", err)
		}
		err = world.Load(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("loading save: %w", err)
		}
		logging.Logf("loaded %s at tick %d", loadPath, world.Clock.Tick)
	}

	out, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		return err
	}

	if stepsPerFlush < 1 {
		stepsPerFlush = 1
	}

	start := time.Now()
	for done := 0; done < ticks; {
		step := stepsPerFlush
		if remaining := ticks - done; remaining < step {
			step = remaining
		}
		world.TickN(step)
		done += step

		latest := world.Telemetry.Latest()
		if err := out.WriteTelemetry(latest); err != nil {
			return err
		}
		if err := out.WritePerf(world.Perf.Collector.Stats(), latest.WindowEndTick); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	s := world.Telemetry.Latest()
	logging.Logf("ran %d ticks in %v (%.0f ticks/s): pop=%d/%d/%d treasury=%.0f",
		ticks, elapsed.Round(time.Millisecond),
		float64(ticks)/elapsed.Seconds(),
		s.RealCitizens, s.CompressedCitizens, s.VirtualCitizens, s.Treasury)

	if savePath != "" {
		f, err := os.Create(savePath)
		if err != nil {
			return fmt.Errorf("creating save: %w", err)
		}
		err = world.Save(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing save: %w", err)
		}
		logging.Logf("saved %s at tick %d", savePath, world.Clock.Tick)
	}
	return nil
}

func newWorld(cfg *config.Config, mapName string) (*sim.World, error) {
	switch mapName {
	case "", "empty":
		return sim.NewEmptyWorld(cfg)
	case "telaviv":
		return sim.NewTelAviv(cfg)
	default:
		return nil, fmt.Errorf("unknown map %q", mapName)
	}
}
