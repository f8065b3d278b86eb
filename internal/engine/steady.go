package engine

import (
	"math"

	"github.com/talgya/tokamak-sim/internal/geometry"
	"github.com/talgya/tokamak-sim/internal/impurity"
	"github.com/talgya/tokamak-sim/internal/physics"
	"github.com/talgya/tokamak-sim/internal/plant"
)

// Reference is the zeroth-order design point of the current shape. It
// normalizes the time evolution and seeds its initial conditions.
type Reference struct {
	Shape geometry.Shape
	Mix   impurity.Mix

	DesignField float64 // Bo
	Troyon      float64 // Troy_c
	HMult       float64 // h_mult

	Aspect float64 // Ro/a
	Vol    float64 // m³
	Area   float64 // m²

	CurrentCoeff float64 // I_B, MA per T
	Current      float64 // Ip_MAo
	QStar        float64

	BetaMax    float64 // Troyon limit at design field
	Greenwald  float64 // n20 Greenwald limit
	Beta       float64 // Betao
	BetaMargin float64 // 1 - Betao/BetaMax

	Mass       float64 // M_toto, kg
	MassGrams  float64
	EnergyDens float64 // W_den_MJo, MJ/m³
	Energy     float64 // W_MJo, MJ
	BetaCheck  float64 // Bta_chk

	GapIn    float64 // inboard wall gap
	GapOut   float64 // outboard wall gap
	GapMin   float64
	GapDiv   float64 // gap needed for a full divertor
	Divertor float64 // fdiv

	HFactor  float64 // H_fac
	ConfTime float64 // Conf_to

	Alpha      float64 // F_alpo
	FusionDens float64 // Pfus_d_MWo, MW/m³
	Fusion     float64 // Pfus_MWo
	AlphaPower float64 // Palp_MWo
	Neutron    float64 // PNeut_MWo
	WallLoad   float64 // N_wal_load, MW/m²

	Density0 float64 // n20_o, initial density
	Energy0  float64 // W_MJ_o, initial stored energy
}

// DivertorFactor returns 0 when the smaller wall gap is closed, 1 once it
// reaches the divertor gap, and interpolates linearly in between.
func DivertorFactor(gapMin, gapDiv float64) float64 {
	switch {
	case gapMin <= 0:
		return 0
	case gapMin >= gapDiv:
		return 1
	default:
		return gapMin / gapDiv
	}
}

// SolveReference computes the design-point quantities for shape under cfg.
func SolveReference(cfg plant.Configuration, mix impurity.Mix, shape geometry.Shape, in Inputs) (Reference, error) {
	ref := Reference{
		Shape:       shape,
		Mix:         mix,
		DesignField: physics.DesignField,
		Troyon:      cfg.TroyonCoeff,
		HMult:       cfg.ConfinementMult,
	}
	ro, a, k := shape.R, shape.A, shape.K
	bo := ref.DesignField
	n0, t0 := physics.DesignDensity, physics.DesignTemperature

	ref.Aspect = shape.AspectRatio()
	if !(ref.Aspect > 1) {
		return Reference{}, &NumericError{Quantity: "Ro/a", Value: ref.Aspect, Err: ErrDegenerate}
	}
	if !(cfg.SafetyFactor > 0) {
		return Reference{}, &NumericError{Quantity: "q_edg", Value: cfg.SafetyFactor, Err: ErrDegenerate}
	}
	ref.Vol = shape.Volume()
	ref.Area = shape.Area()

	d := math.Max(shape.D, physics.MinTriangularity)
	shaping := (1 + math.Pow(k, 2)*(1+2*math.Pow(d, 2)-1.2*math.Pow(d, 3))) / 2

	ref.CurrentCoeff = 0.000001 * (1.17 - 0.065/ref.Aspect/math.Pow(1-1/math.Pow(ref.Aspect, 2), 2)) *
		(2 * math.Pi * math.Pow(a, 2)) / (physics.Mu0 * ro * cfg.SafetyFactor) * shaping
	ref.Current = ref.CurrentCoeff * bo
	ref.QStar = 5 * math.Pow(a, 2) * bo / (ro * ref.Current) * shaping

	ref.BetaMax = ref.Troyon * ref.Current / (100 * a * bo)
	ref.Greenwald = 0.27 * ref.Current / math.Pow(a, 2)
	ref.Beta = 0.402 * (1 + mix.Ions) * n0 * t0 / math.Pow(bo, 2)
	ref.BetaMargin = 1 - ref.Beta/ref.BetaMax

	ref.Mass = physics.MassPerN20 * n0 * cfg.Vol0
	ref.MassGrams = ref.Mass / 0.001
	ref.EnergyDens = 0.2403 * (1 + mix.Ions) * n0 * t0
	ref.Energy = ref.EnergyDens * ref.Vol
	ref.BetaCheck = (ref.EnergyDens / 0.000001 / (math.Pow(bo, 2) / (2 * physics.Mu0))) * 2 / 3

	ref.GapIn = ro - a - cfg.RMin
	ref.GapOut = cfg.RMax - (ro + a)
	ref.GapMin = math.Min(ref.GapIn, ref.GapOut)
	ref.GapDiv = 0.05 * math.Pow(cfg.R0/8, 2)
	ref.Divertor = DivertorFactor(ref.GapMin, ref.GapDiv)

	if !(in.Power > 0) {
		return Reference{}, &NumericError{Quantity: "Pw_in_MW", Value: in.Power, Err: ErrDegenerate}
	}
	ref.HFactor = ref.HMult * (ref.Divertor + 1.0)
	ref.ConfTime = ref.HFactor * 0.048 *
		math.Pow(ref.Current, 0.85) *
		math.Pow(ro, 1.2) *
		math.Pow(a, 0.3) *
		math.Pow(n0, 0.1) *
		math.Pow(bo, 0.2) *
		math.Pow(2.5*k/in.Power, 0.5)

	ref.Alpha = AlphaMultiplier(t0, physics.CriticalTemperature)
	ref.FusionDens = 0.8 * physics.ProfileFactor * math.Pow(mix.Fuel, 2) * math.Pow(n0, 2) * ref.Alpha
	ref.Fusion = ref.FusionDens * ref.Vol
	ref.AlphaPower = ref.Fusion * physics.AlphaEnergy / physics.FusionEnergy
	ref.Neutron = ref.Fusion - ref.AlphaPower
	ref.WallLoad = ref.Neutron / ref.Area

	ref.Density0 = n0 * physics.InitialFraction
	ref.Energy0 = ref.Energy * physics.InitialFraction * physics.InitialFraction
	return ref, nil
}
