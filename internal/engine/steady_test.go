package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tokamak-sim/internal/geometry"
	"github.com/talgya/tokamak-sim/internal/impurity"
	"github.com/talgya/tokamak-sim/internal/plant"
)

func TestDivertorFactor(t *testing.T) {
	assert.Equal(t, 0.0, DivertorFactor(-0.1, 0.05))
	assert.Equal(t, 0.0, DivertorFactor(0, 0.05))
	assert.Equal(t, 1.0, DivertorFactor(0.05, 0.05))
	assert.Equal(t, 1.0, DivertorFactor(2, 0.05))
	assert.InDelta(t, 0.5, DivertorFactor(0.025, 0.05), 1e-12)
}

func TestReferenceDivertorBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		sliders plant.Sliders
		fdiv    float64
	}{
		{"closed gap", plant.Sliders{}, 0},
		{"full divertor", plant.Sliders{Outer: 40, Inner: 40, TopInner: 40, TopOuter: 40}, 1},
		{"partial", plant.Sliders{Outer: 0, Inner: 40, TopInner: 20, TopOuter: 20}, 0.64125},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, _ := referenceFor(t, tt.sliders)
			assert.InDelta(t, tt.fdiv, ref.Divertor, 1e-9)
			assert.InDelta(t, ref.HMult*(ref.Divertor+1), ref.HFactor, 1e-12)
		})
	}
}

func TestReferenceDesignPoint(t *testing.T) {
	ref, _ := referenceFor(t, largeShape)
	assert.InEpsilon(t, 1214.439860071382, ref.Vol, 1e-9)
	assert.InEpsilon(t, ref.CurrentCoeff*ref.DesignField, ref.Current, 1e-12)
	assert.InEpsilon(t, 0.05, ref.GapDiv, 1e-12)
	assert.InEpsilon(t, ref.Fusion-ref.AlphaPower, ref.Neutron, 1e-12)
	// Betao sits above the Troyon limit at the design point.
	assert.InEpsilon(t, -0.09600966260537125, ref.BetaMargin, 1e-9)
	assert.Greater(t, ref.Density0, 0.0)
	assert.Greater(t, ref.Energy0, 0.0)
}

func TestSolveReferenceGuards(t *testing.T) {
	cfg := plant.Default()
	mix, err := impurity.Resolve(impurity.Default())
	require.NoError(t, err)
	shape, err := geometry.Resolve(largeShape, cfg)
	require.NoError(t, err)

	_, err = SolveReference(cfg, mix, shape, Inputs{Field: 5, Power: 0, FuelFactor: 0.1})
	var ne *NumericError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "Pw_in_MW", ne.Quantity)
	assert.ErrorIs(t, err, ErrDegenerate)

	flat := shape
	flat.A = flat.R
	_, err = SolveReference(cfg, mix, flat, Inputs{Field: 5, Power: 10, FuelFactor: 0.1})
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "Ro/a", ne.Quantity)
}

func TestResultValidate(t *testing.T) {
	var r Result
	require.NoError(t, r.Validate())

	r.Brem = math.NaN()
	err := r.Validate()
	var ne *NumericError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "Pbrem_MW", ne.Quantity)
	assert.ErrorIs(t, err, ErrNonFinite)

	r.Brem = 0
	r.Q = math.Inf(1)
	assert.ErrorIs(t, r.Validate(), ErrNonFinite)
}

func TestResultRecord(t *testing.T) {
	r := Result{Fusion: 120, FusionGW: 0.12, ElecNet: -40, ColorIndex: 3, Divertor: 1}
	rec := r.Record()
	assert.Equal(t, 120.0, rec["Pfus_MW"])
	assert.Equal(t, 0.12, rec["Pfus_GW"])
	assert.Equal(t, -40.0, rec["P_e"])
	assert.Equal(t, 3.0, rec["color_index"])
	assert.Equal(t, 1.0, rec["fdiv"])
	assert.Len(t, rec, len(r.fields())+1)
}

func TestDrivingInputsRoundTrip(t *testing.T) {
	cfg := plant.Default()
	in, err := ProxiesFor(cfg, 5.3, 50, 0.1).Resolve(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 5.3, in.Field, 1e-9)
	assert.InDelta(t, 49.51, in.Power, 1e-9)
	assert.InDelta(t, 0.0445, in.FuelFactor, 1e-12)

	in, err = DrivingInputs{}.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1.0, in.Field)
	assert.Equal(t, 1.0, in.Power)
	assert.InDelta(t, 0.005, in.FuelFactor, 1e-15)

	_, err = DrivingInputs{FieldProxy: math.NaN()}.Resolve(cfg)
	assert.ErrorIs(t, err, ErrInputRange)
}

func TestInputsProxiesInvertsResolve(t *testing.T) {
	cfg := plant.Default()
	drive := DrivingInputs{FieldProxy: 68.8, PowerProxy: 39.2, FuelProxy: 8}
	in, err := drive.Resolve(cfg)
	require.NoError(t, err)

	back := in.Proxies(cfg)
	assert.InDelta(t, drive.FieldProxy, back.FieldProxy, 1e-9)
	assert.InDelta(t, drive.PowerProxy, back.PowerProxy, 1e-9)
	assert.InDelta(t, drive.FuelProxy, back.FuelProxy, 1e-9)
}
