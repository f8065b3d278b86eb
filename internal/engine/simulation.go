// Simulation ties configuration, impurities, geometry, the reference solve and
// the time evolution together for one session.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/tokamak-sim/internal/geometry"
	"github.com/talgya/tokamak-sim/internal/impurity"
	"github.com/talgya/tokamak-sim/internal/plant"
)

// Simulation is one logical session of the plant model. It is not safe for
// concurrent use; callers serialize access per session.
type Simulation struct {
	Config plant.Configuration

	// MaxIteration is the last integration step index (default 300).
	MaxIteration int

	// OnStep, if set, observes every integration step of a Calculate call.
	OnStep func(s State)

	impurities impurity.Composition
	mix        impurity.Mix

	last    Result
	hasLast bool
	calls   uint64
}

// NewSimulation creates a session with the default configuration and
// impurity mix.
func NewSimulation() *Simulation {
	comp := impurity.Default()
	mix, err := impurity.Resolve(comp)
	if err != nil {
		panic(fmt.Sprintf("default impurity mix invalid: %v", err))
	}
	return &Simulation{
		Config:       plant.Default(),
		MaxIteration: DefaultMaxIteration,
		impurities:   comp,
		mix:          mix,
	}
}

// Impurities returns the stored impurity fractions.
func (s *Simulation) Impurities() impurity.Composition {
	return s.impurities
}

// Mix returns the resolved impurity mix.
func (s *Simulation) Mix() impurity.Mix {
	return s.mix
}

// Last returns the most recent successful result.
func (s *Simulation) Last() (Result, bool) {
	return s.last, s.hasLast
}

// Calls returns the number of successful calculations.
func (s *Simulation) Calls() uint64 {
	return s.calls
}

// ApplyConfiguration changes one configuration selector. The returned Reset
// carries the slider positions to use for the next Calculate when the plant
// type switched.
func (s *Simulation) ApplyConfiguration(option plant.Option, value string) (plant.Reset, error) {
	reset, err := s.Config.Apply(option, value)
	if err != nil {
		return plant.Reset{}, fmt.Errorf("apply configuration: %w", err)
	}
	if reset.SliderReset {
		slog.Info("magnet sliders reset to plant shape",
			"plant", string(s.Config.Plant),
			"outer", reset.Sliders.Outer,
			"inner", reset.Sliders.Inner,
			"top_inner", reset.Sliders.TopInner,
			"top_outer", reset.Sliders.TopOuter,
		)
	}
	return reset, nil
}

// SetImpurities replaces the impurity fractions. On error the previous mix
// stays in effect.
func (s *Simulation) SetImpurities(c impurity.Composition) error {
	mix, err := impurity.Resolve(c)
	if err != nil {
		return fmt.Errorf("set impurities: %w", err)
	}
	s.impurities = c
	s.mix = mix
	slog.Debug("impurities updated", "zeff", mix.Zeff, "n_dt", mix.Fuel)
	return nil
}

// SetAdvancedLimits overrides field max, q95 and the elongation cap.
func (s *Simulation) SetAdvancedLimits(l plant.Limits) error {
	if err := s.Config.SetAdvancedLimits(l); err != nil {
		return fmt.Errorf("set advanced limits: %w", err)
	}
	return nil
}

// Calculate resolves the geometry, solves the reference state and runs the
// full time evolution. The result is published as Last only if every stage
// succeeds and every field is finite.
func (s *Simulation) Calculate(ctx context.Context, sliders plant.Sliders, drive DrivingInputs) (Result, error) {
	in, err := drive.Resolve(s.Config)
	if err != nil {
		return Result{}, fmt.Errorf("calculate: %w", err)
	}

	shape, err := geometry.Resolve(sliders, s.Config)
	if err != nil {
		return Result{}, fmt.Errorf("calculate: %w", err)
	}

	ref, err := SolveReference(s.Config, s.mix, shape, in)
	if err != nil {
		return Result{}, fmt.Errorf("calculate: %w", err)
	}

	it := NewIntegrator(ref, in)
	it.MaxIteration = s.MaxIteration
	it.OnStep = s.OnStep
	final, err := it.Run(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("calculate: %w", err)
	}

	res := Project(ref, final, s.Config, sliders)
	res.Inputs = in
	if err := res.Validate(); err != nil {
		return Result{}, fmt.Errorf("calculate: %w", err)
	}

	s.last = res
	s.hasLast = true
	s.calls++

	slog.Debug("calculation complete",
		"plant", string(s.Config.Plant),
		"pfus_mw", res.Fusion,
		"p_e_mw", res.ElecNet,
		"n_gw", res.Greenwald,
		"fdiv", res.Divertor,
	)
	return res, nil
}
