package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tokamak-sim/internal/config"
	"github.com/talgya/tokamak-sim/internal/engine"
	"github.com/talgya/tokamak-sim/internal/plant"
)

func TestParseSliders(t *testing.T) {
	s, err := parseSliders("38, 36,35,23")
	require.NoError(t, err)
	assert.Equal(t, plant.Sliders{Outer: 38, Inner: 36, TopInner: 35, TopOuter: 23}, s)

	_, err = parseSliders("1,2,3")
	assert.Error(t, err)
	_, err = parseSliders("1,2,x,4")
	assert.Error(t, err)
}

func TestSweepValues(t *testing.T) {
	v, err := sweepValues(0, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, v)

	v, err = sweepValues(0.3, 9, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3}, v)

	_, err = sweepValues(0, 1, 0)
	assert.Error(t, err)
}

func TestSweepRangeStaysOnSlider(t *testing.T) {
	pc := plant.Default()
	for _, tt := range []struct {
		param    string
		from, to float64
	}{
		{"fuel", 0, 1},
		{"field", 1, 6},
		{"power", 1, 100},
	} {
		t.Run(tt.param, func(t *testing.T) {
			from, to, err := sweepRange(tt.param)
			require.NoError(t, err)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)

			for _, v := range []float64{from, to} {
				field, power, fuel := 5.3, 50.0, 0.1
				switch tt.param {
				case "fuel":
					fuel = v
				case "field":
					field = v
				case "power":
					power = v
				}
				_, err := engine.ProxiesFor(pc, field, power, fuel).Resolve(pc)
				assert.NoError(t, err, "%s=%g", tt.param, v)
			}
		})
	}

	_, _, err := sweepRange("magnets")
	assert.Error(t, err)
}

func TestSweepKeepsOrder(t *testing.T) {
	cfg = config.DefaultConfig()
	flags := &plantFlags{
		confinement: plant.ValueStandard,
		betaLimit:   plant.ValueStandard,
		elongation:  plant.ValueStandard,
	}

	values := []float64{0.1, 0.2, 0.4, 0.8}
	points, err := sweep(context.Background(), flags, "fuel", values, 3)
	require.NoError(t, err)
	require.Len(t, points, len(values))

	for i, p := range points {
		assert.Equal(t, values[i], p.Value)
		if i > 0 {
			assert.Greater(t, p.Result.Greenwald, points[i-1].Result.Greenwald)
		}
	}
	assert.InEpsilon(t, 111.96451834825548, points[0].Result.Fusion, 1e-7)
	assert.InDelta(t, 0.0445, points[0].Inputs.FuelFactor, 1e-12)

	_, err = sweep(context.Background(), flags, "magnets", values, 1)
	assert.Error(t, err)

	_, err = sweep(context.Background(), flags, "field", []float64{5, 12}, 2)
	assert.Error(t, err, "12 T is off the field slider")
}

func TestPlantFlagsCompactUsesPresetShape(t *testing.T) {
	cfg = config.DefaultConfig()
	flags := &plantFlags{
		plantType:   string(plant.TypeCompact),
		confinement: plant.ValueStandard,
		betaLimit:   plant.ValueStandard,
		elongation:  plant.ValueStandard,
	}
	sim, sliders, err := flags.simulation()
	require.NoError(t, err)
	assert.Equal(t, plant.TypeCompact, sim.Config.Plant)
	assert.Equal(t, plant.Sliders{Outer: 20, Inner: 20, TopInner: 31, TopOuter: 17}, sliders)

	flags.confinement = "Triple"
	_, _, err = flags.simulation()
	assert.ErrorIs(t, err, plant.ErrUnknownValue)
}

func TestRenderResultMentionsPanel(t *testing.T) {
	cfg = config.DefaultConfig()
	flags := &plantFlags{confinement: plant.ValueStandard, betaLimit: plant.ValueStandard, elongation: plant.ValueStandard}
	points, err := sweep(context.Background(), flags, "fuel", []float64{0.1}, 1)
	require.NoError(t, err)

	out := renderResult(plant.TypeLarge, points[0].Result)
	assert.Contains(t, out, "Fusion Power")
	assert.Contains(t, out, "PLASMA LIMITS")

	table := renderSweep("fuel", points)
	assert.Contains(t, table, "-205.6 MW")
	assert.Contains(t, table, "1 points")
}
