// Package plant holds the reactor configuration: the plant type preset, the
// confinement/beta/elongation selections, the advanced limits, and the
// geometry constants they imply.
package plant

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/tokamak-sim/internal/physics"
)

// Option names a configuration selector.
type Option string

const (
	OptionPlantType   Option = "plantType"
	OptionConfinement Option = "confinement"
	OptionBetaLimit   Option = "betaLimit"
	OptionElongation  Option = "elongation"
)

// Selector values shared by the confinement, beta limit and elongation options.
const (
	ValueStandard  = "Standard"
	ValueDouble    = "Double"
	ValueIncreased = "50% Increase"
)

var (
	ErrUnknownOption = errors.New("plant: unknown configuration option")
	ErrUnknownValue  = errors.New("plant: unknown configuration value")
	ErrInvalidLimit  = errors.New("plant: advanced limit out of range")
)

// ConfigError identifies the option and value that were rejected.
type ConfigError struct {
	Option Option
	Value  string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s (%s=%q)", e.Err, e.Option, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ParseOption maps an option name onto an Option.
func ParseOption(name string) (Option, error) {
	switch o := Option(name); o {
	case OptionPlantType, OptionConfinement, OptionBetaLimit, OptionElongation:
		return o, nil
	}
	return "", &ConfigError{Option: Option(name), Err: ErrUnknownOption}
}

// Reset reports whether a configuration change moved the magnet sliders.
type Reset struct {
	SliderReset bool     `json:"slider_reset"`
	Sliders     *Sliders `json:"sliders,omitempty"`
}

// Limits are the advanced overrides for field max, q95 and elongation cap.
type Limits struct {
	FieldMax      float64 `json:"Bo_max"`
	SafetyFactor  float64 `json:"q95"`
	ElongationMax float64 `json:"kmax"`
}

// Configuration is the plant state consumed by the geometry resolver and
// the solver. It is a plain value: copy it to snapshot it.
type Configuration struct {
	Plant       Type
	lastApplied Type

	RMax    float64
	RMin    float64
	FuelMax float64

	ConfinementMult float64 // h_mult
	TroyonCoeff     float64 // Troy_c
	ElongationMult  float64

	FieldMax     float64 // Bomax
	SafetyFactor float64 // q_edg
	KMax         float64 // elongation cap
	K0           float64 // k_o

	// Derived by Recompute.
	R0     float64 // R_o
	A0     float64 // a_o
	Vol0   float64 // Vol_o
	ZMax   float64
	KShape float64 // k_x
}

// Default returns the large-plant configuration with every selector at
// Standard.
func Default() Configuration {
	p := presets[TypeLarge]
	c := Configuration{
		Plant:           p.Type,
		lastApplied:     p.Type,
		RMax:            p.RMax,
		RMin:            p.RMin,
		FuelMax:         p.FuelMax,
		ConfinementMult: 1,
		TroyonCoeff:     2.5,
		ElongationMult:  1,
		FieldMax:        physics.FieldMax,
		SafetyFactor:    3.0,
		KMax:            p.Elongation,
		K0:              p.Elongation,
	}
	c.Recompute()
	return c
}

// LastApplied returns the plant type most recently selected.
func (c *Configuration) LastApplied() Type {
	return c.lastApplied
}

// Apply updates one selector. A plant type change resets the magnet sliders
// to that preset's shape when it differs from the last applied plant type;
// repeating the same selection never resets. On error c is unchanged.
func (c *Configuration) Apply(option Option, value string) (Reset, error) {
	next := *c
	var reset Reset

	switch option {
	case OptionPlantType:
		p, ok := presets[Type(value)]
		if !ok {
			return Reset{}, &ConfigError{Option: option, Value: value, Err: ErrUnknownValue}
		}
		next.Plant = p.Type
		next.RMax = p.RMax
		next.RMin = p.RMin
		next.FuelMax = p.FuelMax
		next.K0 = p.Elongation * next.ElongationMult
		next.KMax = next.K0
		if p.Type != c.lastApplied {
			shape := p.Shape
			reset = Reset{SliderReset: true, Sliders: &shape}
		}
		next.lastApplied = p.Type

	case OptionConfinement:
		m, err := standardOrDouble(option, value, 1, 2)
		if err != nil {
			return Reset{}, err
		}
		next.ConfinementMult = m

	case OptionBetaLimit:
		m, err := standardOrDouble(option, value, 2.5, 5.0)
		if err != nil {
			return Reset{}, err
		}
		next.TroyonCoeff = m

	case OptionElongation:
		switch value {
		case ValueStandard:
			next.ElongationMult = 1
		case ValueIncreased:
			next.ElongationMult = 1.5
		default:
			return Reset{}, &ConfigError{Option: option, Value: value, Err: ErrUnknownValue}
		}
		next.K0 = presets[next.Plant].Elongation * next.ElongationMult
		next.KMax = next.K0

	default:
		return Reset{}, &ConfigError{Option: option, Value: value, Err: ErrUnknownOption}
	}

	next.Recompute()
	*c = next

	slog.Debug("configuration applied",
		"option", string(option),
		"value", value,
		"plant", string(c.Plant),
		"k_max", c.KMax,
		"slider_reset", reset.SliderReset,
	)
	return reset, nil
}

func standardOrDouble(option Option, value string, standard, double float64) (float64, error) {
	switch value {
	case ValueStandard:
		return standard, nil
	case ValueDouble:
		return double, nil
	}
	return 0, &ConfigError{Option: option, Value: value, Err: ErrUnknownValue}
}

// SetAdvancedLimits overrides the field max, edge safety factor and
// elongation cap. The elongation cap also becomes k_o. A later plant type or
// elongation change recomputes both from the presets.
func (c *Configuration) SetAdvancedLimits(l Limits) error {
	switch {
	case !finite(l.FieldMax) || l.FieldMax <= physics.FieldMin:
		return fmt.Errorf("%w: Bo_max=%g must exceed %g T", ErrInvalidLimit, l.FieldMax, physics.FieldMin)
	case !finite(l.SafetyFactor) || l.SafetyFactor <= 0:
		return fmt.Errorf("%w: q95=%g must be positive", ErrInvalidLimit, l.SafetyFactor)
	case !finite(l.ElongationMax) || l.ElongationMax <= 1:
		return fmt.Errorf("%w: kmax=%g must exceed 1", ErrInvalidLimit, l.ElongationMax)
	}

	c.FieldMax = l.FieldMax
	c.SafetyFactor = l.SafetyFactor
	c.KMax = l.ElongationMax
	c.K0 = c.KMax
	c.Recompute()
	return nil
}

// Limits returns the current advanced limits.
func (c *Configuration) Limits() Limits {
	return Limits{FieldMax: c.FieldMax, SafetyFactor: c.SafetyFactor, ElongationMax: c.KMax}
}

// Recompute refreshes the reactor-level geometry constants.
func (c *Configuration) Recompute() {
	c.R0 = 0.5 * (c.RMax + c.RMin)
	c.A0 = 0.5 * (c.RMax - c.RMin)
	c.Vol0 = 2 * math.Pi * c.R0 * math.Pi * math.Pow(c.A0, 2) * c.K0
	c.ZMax = c.A0 * c.K0
	c.KShape = 0.4*c.K0 + 0.6
}

// Selections returns the selector values in their display form.
func (c *Configuration) Selections() map[Option]string {
	pick := func(cond bool, a, b string) string {
		if cond {
			return a
		}
		return b
	}
	return map[Option]string{
		OptionPlantType:   string(c.Plant),
		OptionConfinement: pick(c.ConfinementMult == 1, ValueStandard, ValueDouble),
		OptionBetaLimit:   pick(c.TroyonCoeff == 2.5, ValueStandard, ValueDouble),
		OptionElongation:  pick(c.ElongationMult == 1, ValueStandard, ValueIncreased),
	}
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
