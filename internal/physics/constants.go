// Package physics provides the physical and model constants shared by the
// plant model. Every empirical coefficient used by the solver lives here or
// beside the formula that consumes it.
package physics

import "math"

// Physical constants.
const (
	// Mu0 is the vacuum permeability (H/m).
	Mu0 = 4 * math.Pi * 1e-7

	// ProtonMass is the proton rest mass (kg).
	ProtonMass = 1.6726e-27
)

// Plant efficiencies.
const (
	// AuxEfficiency is the wall-plug multiplier for auxiliary heating:
	// 1 MW in the plasma costs this many MW of electricity.
	AuxEfficiency = 3.0

	// PlantEfficiency converts neutron power into gross electric power.
	// Based on modern coal/gas plants.
	PlantEfficiency = 0.4
)

// Design-point plasma parameters.
const (
	DesignField       = 5.7 // Bo, T
	DesignTemperature = 1.0 // t10o, 10 keV
	DesignDensity     = 1.2 // n20o, 1e20 m^-3

	// InitialFraction scales the design density into the start-up point.
	// Stored energy starts at InitialFraction² of its design value.
	InitialFraction = 0.01

	// MinTriangularity floors d before it enters the current formula.
	MinTriangularity = 0.0
)

// Fuel charge composition (deuterium / tritium / hydrogen).
const (
	DeuteriumFraction = 0.5
	TritiumFraction   = 0.5
	HydrogenFraction  = 1.0 - DeuteriumFraction - TritiumFraction
)

// Profile peaking exponents for temperature and density.
const (
	AlphaT = 1.0
	AlphaN = 0.5
)

var (
	// MassPerCharge is the ion mass carried per unit charge (kg).
	MassPerCharge = ProtonMass * (2*DeuteriumFraction + 3*TritiumFraction + 4*HydrogenFraction)

	// MassPerN20 is MassPerCharge per 1e20 particles.
	MassPerN20 = MassPerCharge / 1e-20

	// ProfileFactor corrects volume-averaged fusion power for peaked profiles.
	ProfileFactor = math.Pow(1+AlphaN, 2) * math.Pow(1+2*AlphaN+3*AlphaT, 2) /
		math.Pow(1+2*AlphaN+2*AlphaT, 3)

	// CriticalTemperature (T10c) separates the alpha-heating regimes.
	CriticalTemperature = ((1 + AlphaN) * (1 + 2*AlphaN + 3*AlphaT)) /
		((1 + AlphaN + AlphaT) * (1 + 2*AlphaN + 2*AlphaT))
)

// Slider ranges for the driving inputs. Each slider has 80 positions.
const (
	FieldMin   = 1.0
	FieldMax   = 6.0
	FieldRange = 80.0

	PowerMin   = 1.0
	PowerMax   = 100.0
	PowerRange = 80.0

	FuelMin   = 0.005
	FuelRange = 80.0
)

// Magnet lever ranges. Sliders span [0, SliderMax]; each lever maps its slider
// linearly between a value at 0 and a value at SliderMax.
const (
	SliderMax = 40

	InnerLeverAt0   = 1.0
	InnerLeverAtMax = 0.1
	OuterLeverAt0   = 1.0
	OuterLeverAtMax = 0.1
	TopLeverAt0     = 0.1
	TopLeverAtMax   = 1.0
)

// Fusion energy split: alpha particles carry 3.5 of the 17.6 MeV.
const (
	AlphaEnergy  = 3.5
	FusionEnergy = 17.6
)
