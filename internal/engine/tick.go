// Package engine provides the plasma model: the steady-state reference solve,
// the fixed-step time evolution of density and stored energy, and the
// projection of the final step into the result record.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/tokamak-sim/internal/physics"
)

// Integration defaults.
const (
	DefaultMaxIteration = 300 // steps run 0..MaxIteration inclusive
	DefaultDt           = 1.0 // s

	// ClampFraction is the share of the initial value below which density
	// and energy are reset to it.
	ClampFraction = 0.001
)

// State is the evolving plasma at one step. The rates DnDt and DwDt feed
// the next step.
type State struct {
	Step int `json:"step"`

	Field      float64 `json:"B_in"`
	AuxPower   float64 `json:"P_in_MW"`
	FuelInflow float64 `json:"mdot_in"`

	Density    float64 `json:"n20_"`
	NewDensity float64 `json:"n_new"`
	Energy     float64 `json:"W_MJ"`
	NewEnergy  float64 `json:"W_new"`

	Temperature float64 `json:"T10_"`
	TempMK      float64 `json:"T_c_mil"` // million kelvin
	Current     float64 `json:"Ip_MA"`
	Alpha       float64 `json:"F_alp"`

	FusionDens float64 `json:"Pfus_MW_m3"`
	Fusion     float64 `json:"Pfus_MW"`
	AlphaPower float64 `json:"Palp_MW"`
	Neutron    float64 `json:"PNeut_MW"`
	Gain       float64 `json:"Pgain_MW"` // heating into the plasma
	Brem       float64 `json:"Pbrem_MW"`
	Transport  float64 `json:"Ptrans_MW"`

	Tau89    float64 `json:"tau_89"`
	Tau98    float64 `json:"tau_98"`
	ConfTime float64 `json:"Conf_t"`
	H98      float64 `json:"H98y2"`
	H89      float64 `json:"H89P"`

	Loss      float64 `json:"Plos_MW"`
	DwDt      float64 `json:"dW_MW_dt"`
	InRate    float64 `json:"n20_in_rat"`
	LossRate  float64 `json:"n20_los_rat"`
	DnDt      float64 `json:"dn20_dt"`
	MassGrams float64 `json:"Mtot_Gr"`

	GreenwaldRatio float64 `json:"n20_n20_gw"`
	BetaRatio      float64 `json:"n20_n20_bet"`
	Beta           float64 `json:"Bet"`
	WallLoad       float64 `json:"n_wall"`

	ElecIn     float64 `json:"P_e_in"`
	ElecGross  float64 `json:"P_e_gross"`
	ElecNet    float64 `json:"P_e"`
	Q          float64 `json:"G"`
	ColorIndex int     `json:"color_index"`
}

// Integrator advances density and stored energy with explicit Euler steps.
// It always runs the full step count; there is no convergence test.
type Integrator struct {
	Ref Reference
	In  Inputs

	MaxIteration int
	Dt           float64

	// OnStep, if set, observes every step including the initial state (-1).
	OnStep func(s State)
}

// NewIntegrator creates an integrator with default step settings.
func NewIntegrator(ref Reference, in Inputs) *Integrator {
	return &Integrator{
		Ref:          ref,
		In:           in,
		MaxIteration: DefaultMaxIteration,
		Dt:           DefaultDt,
	}
}

// Initial returns the state at the start-up point.
func (it *Integrator) Initial() State {
	s := State{Step: -1}
	it.refresh(&s)
	s.Density = it.Ref.Density0
	s.NewDensity = s.Density
	s.Energy = it.Ref.Energy0
	s.NewEnergy = s.Energy
	it.evaluate(&s)
	return s
}

// Step advances prev by one time step using prev's rates of change.
func (it *Integrator) Step(prev State) State {
	s := State{Step: prev.Step + 1}
	it.refresh(&s)

	s.NewDensity = prev.Density + prev.DnDt*it.Dt
	if s.NewDensity <= ClampFraction*it.Ref.Density0 {
		s.Density = it.Ref.Density0
	} else {
		s.Density = s.NewDensity
	}

	s.NewEnergy = prev.Energy + prev.DwDt*it.Dt
	if s.NewEnergy <= ClampFraction*it.Ref.Energy0 {
		s.Energy = it.Ref.Energy0
	} else {
		s.Energy = s.NewEnergy
	}

	it.evaluate(&s)
	return s
}

// Run integrates from the initial state through MaxIteration and returns the
// final step. ctx is only consulted before the loop starts.
func (it *Integrator) Run(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, fmt.Errorf("integrate: %w", err)
	}
	if it.MaxIteration < 0 {
		return State{}, fmt.Errorf("integrate: negative iteration count %d", it.MaxIteration)
	}

	s := it.Initial()
	if it.OnStep != nil {
		it.OnStep(s)
	}
	for itt := 0; itt <= it.MaxIteration; itt++ {
		s = it.Step(s)
		if it.OnStep != nil {
			it.OnStep(s)
		}
	}

	slog.Debug("integration finished",
		"steps", it.MaxIteration+1,
		"n20", s.Density,
		"w_mj", s.Energy,
		"t10", s.Temperature,
		"pfus_mw", s.Fusion,
	)
	return s, nil
}

// refresh loads the instantaneous heating, fueling and field.
func (it *Integrator) refresh(s *State) {
	s.AuxPower = it.In.Power
	s.FuelInflow = it.Ref.Mass * it.In.FuelFactor
	s.Field = it.In.Field
}

// evaluate derives every quantity that follows from density and energy.
func (it *Integrator) evaluate(s *State) {
	ref := &it.Ref
	ro, a, k := ref.Shape.R, ref.Shape.A, ref.Shape.K
	vol := ref.Vol
	ions := 1 + ref.Mix.Ions
	n, b := s.Density, s.Field

	s.Temperature = s.Energy / (0.2403 * ions * n * vol)
	s.TempMK = s.Temperature * 116.05
	s.Current = b * ref.CurrentCoeff
	s.Alpha = AlphaMultiplier(s.Temperature, physics.CriticalTemperature)

	s.FusionDens = 0.8 * physics.ProfileFactor * math.Pow(ref.Mix.Fuel, 2) * math.Pow(n, 2) * s.Alpha
	s.Fusion = s.FusionDens * vol
	s.AlphaPower = s.Fusion * physics.AlphaEnergy / physics.FusionEnergy
	s.Neutron = s.Fusion - s.AlphaPower
	s.Gain = s.AuxPower + s.AlphaPower

	s.Brem = 0.0168 * n * n * ref.Mix.Zeff * vol * math.Pow(s.Temperature, 0.5)
	s.Transport = math.Max(s.Gain-s.Brem, 0.5*s.Gain)

	s.Tau89 = 0.048 * math.Pow(s.Current, 0.85) *
		math.Pow(ro, 1.2) *
		math.Pow(a, 0.3) *
		math.Pow(n, 0.1) *
		math.Pow(b, 0.2) *
		math.Pow(2.5*k/s.Transport, 0.5)

	s.Tau98 = 0.0562 * math.Pow(s.Current, 0.9) *
		math.Pow(b, 0.15) *
		math.Pow(s.Transport, -0.69) *
		math.Pow(10*n, 0.41) *
		math.Pow(2.5, 0.19) *
		math.Pow(ro, 1.97) *
		math.Pow(ro/a, -0.58) *
		math.Pow(k, 0.78)

	s.ConfTime = ref.HFactor / 2.0 * s.Tau98
	s.H98 = s.ConfTime / s.Tau98
	s.H89 = s.ConfTime / s.Tau89

	s.Loss = s.Energy / s.ConfTime
	s.DwDt = s.Gain - s.Loss

	s.InRate = s.FuelInflow / (0.000000418 * vol)
	s.LossRate = n / (1.0 * s.ConfTime)
	s.DnDt = s.InRate - s.LossRate

	s.MassGrams = n * 0.418 * 0.000001 * vol / 0.001
	s.GreenwaldRatio = n / (0.27 * s.Current / math.Pow(a, 2))
	s.BetaRatio = n / (ref.Troyon * s.Current * b / (40.2 * ions * a * s.Temperature))
	s.Beta = 0.402 * ions * n * s.Temperature / math.Pow(b, 2)

	s.WallLoad = s.Neutron / ref.Area
	s.ElecIn = s.AuxPower*physics.AuxEfficiency + b/ref.DesignField*100
	s.ElecGross = s.Neutron * physics.PlantEfficiency
	s.ElecNet = s.Neutron*physics.PlantEfficiency - s.ElecIn

	if s.AuxPower <= 0 {
		s.Q = 0
	} else {
		s.Q = s.Fusion / s.AuxPower
	}
	s.ColorIndex = ColorIndex(s.ElecNet)
}

// ColorIndex buckets net electric power into 0..20 for the cross-section
// colour scale (50 MW per bucket).
func ColorIndex(netMW float64) int {
	idx := math.Floor(20.0 * netMW / 1000.0)
	return int(math.Max(math.Min(20, idx), 0))
}
