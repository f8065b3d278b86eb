package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/tokamak-sim/internal/engine"
	"github.com/talgya/tokamak-sim/internal/persistence"
	"github.com/talgya/tokamak-sim/internal/physics"
	"github.com/talgya/tokamak-sim/internal/plant"
)

var (
	sweepPlant   plantFlags
	sweepParam   string
	sweepFrom    float64
	sweepTo      float64
	sweepSteps   int
	sweepWorkers int
	sweepSave    bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Scan one driving input and tabulate the plant response",
	Long: `sweep runs independent calculations across a range of one driving input
(fuel, field or power) while holding the others at their defaults.`,
	RunE: runSweep,
}

func init() {
	sweepPlant.register(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "fuel", "Input to scan: fuel, field or power")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0, "First value (default: low end of the parameter's slider)")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 0, "Last value (default: high end of the parameter's slider)")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 11, "Number of points (at least 1)")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", runtime.NumCPU(), "Parallel calculations")
	sweepCmd.Flags().BoolVar(&sweepSave, "save", false, "Store every point in the run history")
}

type sweepPoint struct {
	Value  float64
	Inputs engine.Inputs
	Result engine.Result
}

// sweepRange is the full slider span of a sweep parameter.
func sweepRange(param string) (from, to float64, err error) {
	switch param {
	case "fuel":
		return 0, 1, nil
	case "field":
		return physics.FieldMin, physics.FieldMax, nil
	case "power":
		return physics.PowerMin, physics.PowerMax, nil
	}
	return 0, 0, fmt.Errorf("unknown sweep parameter %q (valid: fuel, field, power)", param)
}

// sweepValues returns steps evenly spaced values from..to inclusive.
func sweepValues(from, to float64, steps int) ([]float64, error) {
	if steps < 1 {
		return nil, fmt.Errorf("steps must be at least 1, got %d", steps)
	}
	if steps == 1 {
		return []float64{from}, nil
	}
	out := make([]float64, steps)
	for i := range out {
		out[i] = from + (to-from)*float64(i)/float64(steps-1)
	}
	return out, nil
}

// sweep evaluates every value on its own simulation. Results keep the order
// of values.
func sweep(ctx context.Context, flags *plantFlags, param string, values []float64, workers int) ([]sweepPoint, error) {
	switch param {
	case "fuel", "field", "power":
	default:
		return nil, fmt.Errorf("unknown sweep parameter %q (valid: fuel, field, power)", param)
	}

	points := make([]sweepPoint, len(values))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))

	for i, v := range values {
		g.Go(func() error {
			sim, sliders, err := flags.simulation()
			if err != nil {
				return err
			}

			field, power, fuel := cfg.Defaults.Field, cfg.Defaults.Power, cfg.Defaults.Fuel
			switch param {
			case "fuel":
				fuel = v
			case "field":
				field = v
			case "power":
				power = v
			}

			drive := engine.ProxiesFor(sim.Config, field, power, fuel)
			res, err := sim.Calculate(gctx, sliders, drive)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", param, v, err)
			}
			points[i] = sweepPoint{Value: v, Inputs: res.Inputs, Result: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	from, to, err := sweepRange(sweepParam)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("from") {
		from = sweepFrom
	}
	if cmd.Flags().Changed("to") {
		to = sweepTo
	}

	values, err := sweepValues(from, to, sweepSteps)
	if err != nil {
		return err
	}

	points, err := sweep(cmd.Context(), &sweepPlant, sweepParam, values, sweepWorkers)
	if err != nil {
		return err
	}
	slog.Debug("sweep finished", "param", sweepParam, "points", len(points), "workers", sweepWorkers)

	if sweepSave {
		if err := savePoints(points); err != nil {
			return err
		}
	}

	fmt.Println(renderSweep(sweepParam, points))
	return nil
}

func savePoints(points []sweepPoint) error {
	if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	runs := make([]persistence.Run, 0, len(points))
	for _, p := range points {
		pt := sweepPlant.plantType
		if pt == "" {
			pt = cfg.Defaults.PlantType
		}
		run, err := persistence.NewRun("sweep:"+sweepParam, plant.Type(pt), p.Inputs, p.Result)
		if err != nil {
			return err
		}
		runs = append(runs, run)
	}
	return db.SaveRuns(runs)
}
