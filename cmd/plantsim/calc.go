package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/tokamak-sim/internal/engine"
	"github.com/talgya/tokamak-sim/internal/plant"
)

// plantFlags are the configuration selectors shared by calc and sweep.
type plantFlags struct {
	plantType   string
	confinement string
	betaLimit   string
	elongation  string
	sliders     string
}

func (f *plantFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.plantType, "plant", "", "Plant type (ITER_R=8m or ITER_R=6m; default from config)")
	cmd.Flags().StringVar(&f.confinement, "confinement", plant.ValueStandard, "Confinement: Standard or Double")
	cmd.Flags().StringVar(&f.betaLimit, "beta", plant.ValueStandard, "Beta limit: Standard or Double")
	cmd.Flags().StringVar(&f.elongation, "elongation", plant.ValueStandard, "Elongation: Standard or \"50% Increase\"")
	cmd.Flags().StringVar(&f.sliders, "sliders", "", "Magnet sliders outer,inner,top_inner,top_outer (default: plant shape)")
}

// simulation builds a session configured by the flags and returns it with
// the magnet sliders to calculate with.
func (f *plantFlags) simulation() (*engine.Simulation, plant.Sliders, error) {
	sim := engine.NewSimulation()
	sim.MaxIteration = cfg.Engine.MaxIteration
	sliders := cfg.Defaults.Sliders

	pt := f.plantType
	if pt == "" {
		pt = cfg.Defaults.PlantType
	}
	reset, err := sim.ApplyConfiguration(plant.OptionPlantType, pt)
	if err != nil {
		return nil, plant.Sliders{}, err
	}
	if reset.SliderReset {
		sliders = *reset.Sliders
	}

	for _, sel := range []struct {
		opt plant.Option
		val string
	}{
		{plant.OptionConfinement, f.confinement},
		{plant.OptionBetaLimit, f.betaLimit},
		{plant.OptionElongation, f.elongation},
	} {
		if _, err := sim.ApplyConfiguration(sel.opt, sel.val); err != nil {
			return nil, plant.Sliders{}, err
		}
	}

	if f.sliders != "" {
		sliders, err = parseSliders(f.sliders)
		if err != nil {
			return nil, plant.Sliders{}, err
		}
	}
	return sim, sliders, nil
}

// parseSliders reads "outer,inner,top_inner,top_outer".
func parseSliders(s string) (plant.Sliders, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return plant.Sliders{}, fmt.Errorf("sliders: want 4 comma-separated values, got %d", len(parts))
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return plant.Sliders{}, fmt.Errorf("sliders: %w", err)
		}
		v[i] = n
	}
	return plant.Sliders{Outer: v[0], Inner: v[1], TopInner: v[2], TopOuter: v[3]}, nil
}

var (
	calcPlant  plantFlags
	calcField  float64
	calcPower  float64
	calcFuel   float64
	calcJSON   bool
	calcRecord bool
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Run one calculation and print the plant output",
	RunE:  runCalc,
}

func init() {
	calcPlant.register(calcCmd)
	calcCmd.Flags().Float64Var(&calcField, "field", -1, "Magnetic field in T (default from config)")
	calcCmd.Flags().Float64Var(&calcPower, "power", -1, "Auxiliary heating in MW (default from config)")
	calcCmd.Flags().Float64Var(&calcFuel, "fuel", -1, "Fuel slider as a fraction 0..1 (default from config)")
	calcCmd.Flags().BoolVar(&calcJSON, "json", false, "Print the result record as JSON")
	calcCmd.Flags().BoolVar(&calcRecord, "record", false, "Print the flat record with the dashboard keys (with --json)")
}

func orDefault(v, def float64) float64 {
	if v < 0 {
		return def
	}
	return v
}

func runCalc(cmd *cobra.Command, args []string) error {
	sim, sliders, err := calcPlant.simulation()
	if err != nil {
		return err
	}

	drive := engine.ProxiesFor(sim.Config,
		orDefault(calcField, cfg.Defaults.Field),
		orDefault(calcPower, cfg.Defaults.Power),
		orDefault(calcFuel, cfg.Defaults.Fuel),
	)
	res, err := sim.Calculate(cmd.Context(), sliders, drive)
	if err != nil {
		return err
	}

	if calcJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if calcRecord {
			return enc.Encode(res.Record())
		}
		return enc.Encode(res)
	}
	fmt.Println(renderResult(sim.Config.Plant, res))
	return nil
}
