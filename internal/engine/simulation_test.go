package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tokamak-sim/internal/impurity"
	"github.com/talgya/tokamak-sim/internal/plant"
)

const rel = 1e-7

var largeShape = plant.Sliders{Outer: 38, Inner: 36, TopInner: 35, TopOuter: 23}

func defaultDrive(cfg plant.Configuration) DrivingInputs {
	return ProxiesFor(cfg, 5.3, 50, 0.1)
}

func TestCalculateDefaultScenario(t *testing.T) {
	sim := NewSimulation()
	res, err := sim.Calculate(context.Background(), largeShape, defaultDrive(sim.Config))
	require.NoError(t, err)

	assert.InEpsilon(t, 5.3, res.Field, rel)
	assert.InEpsilon(t, 49.51, res.AuxPower, rel)
	assert.InEpsilon(t, 111.96451834825548, res.Fusion, rel)
	assert.InEpsilon(t, 0.11196451834825548, res.FusionGW, rel)
	assert.InEpsilon(t, -205.63291730602356, res.ElecNet, rel)
	assert.InEpsilon(t, 241.51245614035088, res.ElecIn, rel)
	assert.InEpsilon(t, 11.472494035727902, res.Current, rel)
	assert.InEpsilon(t, 1.1898347646759118, res.Temperature, rel)
	assert.InEpsilon(t, 2.796420322570152, res.ConfTime, rel)
	assert.InEpsilon(t, 1.0, res.H98, rel)
	assert.InEpsilon(t, 1.5578746315839953, res.H89, rel)
	assert.InEpsilon(t, 0.4803791644297848, res.Greenwald, rel)
	assert.InEpsilon(t, 0.39552689376340255, res.BetaRatio, rel)
	assert.InEpsilon(t, 0.009842926507057348, res.Beta, rel)
	assert.InEpsilon(t, 0.10164496343169885, res.WallLoad, rel)
	assert.InEpsilon(t, 3.6678975018483686, res.Brem, rel)
	assert.InEpsilon(t, 68.1077737605888, res.Transport, rel)
	assert.InEpsilon(t, 0.31467211235012504, res.Density, rel)
	assert.InEpsilon(t, 1214.439860071382, res.Vol, rel)
	assert.InEpsilon(t, 1.664455, res.Zeff, rel)
	assert.InEpsilon(t, 0.7253578, res.FuelFraction, rel)
	assert.InEpsilon(t, 3.0, res.SafetyFactor, rel)

	assert.InDelta(t, 8.1215, res.Ro, 1e-9)
	assert.InDelta(t, 2.174571820312501, res.A, 1e-9)
	assert.InDelta(t, 1.602, res.K, 1e-9)
	assert.InDelta(t, 0.27, res.D, 1e-9)
	assert.Equal(t, 1.0, res.Divertor)
	assert.Equal(t, 0, res.ColorIndex)
	assert.Equal(t, largeShape, res.Sliders)
	assert.InDelta(t, 5.3, res.Inputs.Field, 1e-9)
	assert.InDelta(t, 49.51, res.Inputs.Power, 1e-9)
	assert.InDelta(t, 0.0445, res.Inputs.FuelFactor, 1e-12)

	assert.InDelta(t, 8.0, res.R0, 1e-12)
	assert.InDelta(t, 3.0, res.A0, 1e-12)
	assert.InDelta(t, 1.8, res.K0, 1e-12)

	last, ok := sim.Last()
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(res, last))
	assert.EqualValues(t, 1, sim.Calls())
}

func TestCalculateIsDeterministic(t *testing.T) {
	a := NewSimulation()
	b := NewSimulation()
	ra, err := a.Calculate(context.Background(), largeShape, defaultDrive(a.Config))
	require.NoError(t, err)
	rb, err := b.Calculate(context.Background(), largeShape, defaultDrive(b.Config))
	require.NoError(t, err)
	if diff := cmp.Diff(ra, rb); diff != "" {
		t.Fatalf("results differ (-a +b):\n%s", diff)
	}

	// Reinitialized every call: repeating on the same session gives the same record.
	again, err := a.Calculate(context.Background(), largeShape, defaultDrive(a.Config))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(ra, again))
}

func TestCalculateCompactPlant(t *testing.T) {
	sim := NewSimulation()
	reset, err := sim.ApplyConfiguration(plant.OptionPlantType, string(plant.TypeCompact))
	require.NoError(t, err)
	require.True(t, reset.SliderReset)
	require.NotNil(t, reset.Sliders)
	assert.Equal(t, plant.Sliders{Outer: 20, Inner: 20, TopInner: 31, TopOuter: 17}, *reset.Sliders)

	res, err := sim.Calculate(context.Background(), *reset.Sliders, defaultDrive(sim.Config))
	require.NoError(t, err)
	assert.InEpsilon(t, 87.06029727503837, res.Fusion, rel)
	assert.InEpsilon(t, -213.61358814994085, res.ElecNet, rel)
	assert.InEpsilon(t, 0.2663944833550817, res.Greenwald, rel)
	assert.InEpsilon(t, 835.8323331214292, res.Vol, rel)
	assert.InDelta(t, 6.2, res.Ro, 1e-9)
	assert.InDelta(t, 2.002, res.A, 1e-9)
	assert.InDelta(t, 1.704, res.K, 1e-9)
	assert.InDelta(t, 0.315, res.D, 1e-9)

	again, err := sim.ApplyConfiguration(plant.OptionPlantType, string(plant.TypeCompact))
	require.NoError(t, err)
	assert.False(t, again.SliderReset, "same plant type twice must not reset")
}

func TestCalculateSelectors(t *testing.T) {
	tests := []struct {
		name    string
		apply   map[plant.Option]string
		fuel    float64
		fusion  float64
		elecNet float64
		color   int
	}{
		{
			name:    "double confinement",
			apply:   map[plant.Option]string{plant.OptionConfinement: plant.ValueDouble},
			fuel:    0.1,
			fusion:  547.2317108594019,
			elecNet: -66.14956697858796,
			color:   0,
		},
		{
			name: "double confinement and beta at high fuel",
			apply: map[plant.Option]string{
				plant.OptionConfinement: plant.ValueDouble,
				plant.OptionBetaLimit:   plant.ValueDouble,
			},
			fuel:    0.4,
			fusion:  2520.278115736706,
			elecNet: 566.1221218570936,
			color:   11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulation()
			for opt, v := range tt.apply {
				_, err := sim.ApplyConfiguration(opt, v)
				require.NoError(t, err)
			}
			res, err := sim.Calculate(context.Background(), largeShape, ProxiesFor(sim.Config, 5.3, 50, tt.fuel))
			require.NoError(t, err)
			assert.InEpsilon(t, tt.fusion, res.Fusion, rel)
			assert.InEpsilon(t, tt.elecNet, res.ElecNet, rel)
			assert.Equal(t, tt.color, res.ColorIndex)
		})
	}
}

func TestCalculateAdvancedLimits(t *testing.T) {
	sim := NewSimulation()
	require.NoError(t, sim.SetAdvancedLimits(plant.Limits{FieldMax: 8, SafetyFactor: 3.5, ElongationMax: 2.0}))

	res, err := sim.Calculate(context.Background(), largeShape, DrivingInputs{FieldProxy: 68.8, PowerProxy: 39.2, FuelProxy: 8})
	require.NoError(t, err)
	assert.InEpsilon(t, 7.02, res.Field, rel)
	assert.InEpsilon(t, 1.7525, res.K, rel)
	assert.InEpsilon(t, 292.8765482766575, res.Fusion, rel)
	assert.InEpsilon(t, -177.83427358454958, res.ElecNet, rel)
	assert.InEpsilon(t, 3.5, res.SafetyFactor, rel)
	assert.InEpsilon(t, 2.0, res.K0, rel)
}

func TestGreenwaldRatioRisesWithFuel(t *testing.T) {
	sim := NewSimulation()
	prev := -1.0
	for _, fuel := range []float64{0, 0.05, 0.1, 0.2, 0.4, 0.8, 1.0} {
		res, err := sim.Calculate(context.Background(), largeShape, ProxiesFor(sim.Config, 5.3, 50, fuel))
		require.NoError(t, err)
		assert.Greater(t, res.Greenwald, prev, "fuel %.2f", fuel)
		prev = res.Greenwald
	}
	assert.Greater(t, prev, 1.0, "full fuel crosses the density limit")
}

func TestCalculateSingleStep(t *testing.T) {
	sim := NewSimulation()
	sim.MaxIteration = 0
	res, err := sim.Calculate(context.Background(), largeShape, defaultDrive(sim.Config))
	require.NoError(t, err)
	assert.InEpsilon(t, 6.810820287408053, res.Fusion, rel)
	assert.InEpsilon(t, 0.11138462603094947, res.Density, rel)
}

func TestCalculateObservesEveryStep(t *testing.T) {
	sim := NewSimulation()
	var steps []int
	sim.OnStep = func(s State) { steps = append(steps, s.Step) }

	_, err := sim.Calculate(context.Background(), largeShape, defaultDrive(sim.Config))
	require.NoError(t, err)
	require.Len(t, steps, DefaultMaxIteration+2)
	assert.Equal(t, -1, steps[0])
	assert.Equal(t, DefaultMaxIteration, steps[len(steps)-1])
}

func TestCalculateFailureKeepsLastResult(t *testing.T) {
	sim := NewSimulation()
	good, err := sim.Calculate(context.Background(), largeShape, defaultDrive(sim.Config))
	require.NoError(t, err)

	_, err = sim.Calculate(context.Background(), largeShape, DrivingInputs{FieldProxy: 81})
	require.ErrorIs(t, err, ErrInputRange)

	_, err = sim.Calculate(context.Background(), plant.Sliders{Outer: 41}, defaultDrive(sim.Config))
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sim.Calculate(ctx, largeShape, defaultDrive(sim.Config))
	require.ErrorIs(t, err, context.Canceled)

	last, ok := sim.Last()
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(good, last))
	assert.EqualValues(t, 1, sim.Calls())
}

func TestCalculateRejectsOutOfRangeDrive(t *testing.T) {
	sim := NewSimulation()
	for _, d := range []DrivingInputs{
		{FieldProxy: -1, PowerProxy: 10, FuelProxy: 10},
		{FieldProxy: 10, PowerProxy: 80.5, FuelProxy: 10},
		{FieldProxy: 10, PowerProxy: 10, FuelProxy: 100},
	} {
		_, err := sim.Calculate(context.Background(), largeShape, d)
		var ne *NumericError
		require.True(t, errors.As(err, &ne), "drive %+v", d)
		assert.ErrorIs(t, err, ErrInputRange)
	}
	_, ok := sim.Last()
	assert.False(t, ok)
}

func TestSetImpuritiesRejectsAndKeepsMix(t *testing.T) {
	sim := NewSimulation()
	before := sim.Mix()

	err := sim.SetImpurities(impurity.Composition{He: 0.6, O: 0.001, C: 0.01, Fe: 0.0001})
	require.ErrorIs(t, err, impurity.ErrNegativeFuel)
	assert.Equal(t, before, sim.Mix())
	assert.Equal(t, impurity.Default(), sim.Impurities())

	comp := impurity.Default()
	comp.He = 0.05
	require.NoError(t, sim.SetImpurities(comp))
	assert.Greater(t, sim.Mix().Fuel, before.Fuel)

	res, err := sim.Calculate(context.Background(), largeShape, defaultDrive(sim.Config))
	require.NoError(t, err)
	assert.InEpsilon(t, sim.Mix().Zeff, res.Zeff, rel)
}

func TestApplyConfigurationRejectsUnknown(t *testing.T) {
	sim := NewSimulation()
	before := sim.Config

	_, err := sim.ApplyConfiguration(plant.OptionConfinement, "Triple")
	require.ErrorIs(t, err, plant.ErrUnknownValue)
	_, err = sim.ApplyConfiguration("magnets", plant.ValueStandard)
	require.ErrorIs(t, err, plant.ErrUnknownOption)

	assert.Equal(t, before, sim.Config)
}
