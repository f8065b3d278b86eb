package plant

// Type names a reactor size preset.
type Type string

const (
	// TypeLarge is the ITER-class R=8 m machine (default).
	TypeLarge Type = "ITER_R=8m"
	// TypeCompact is the R=6 m machine.
	TypeCompact Type = "ITER_R=6m"
)

// Sliders are the four magnet lever positions a preset resets to.
// The field names follow the coil colours of the cross-section drawing:
// outer=green, inner=red, top/bottom inner=blue, top/bottom outer=yellow.
type Sliders struct {
	Outer    int `json:"outer" yaml:"outer"`
	Inner    int `json:"inner" yaml:"inner"`
	TopInner int `json:"top_inner" yaml:"top_inner"`
	TopOuter int `json:"top_outer" yaml:"top_outer"`
}

// Preset is the fixed geometry of a plant type.
type Preset struct {
	Type       Type
	RMax       float64 // outer wall radius, m
	RMin       float64 // inner wall radius, m
	Elongation float64 // base elongation before the elongation multiplier
	FuelMax    float64 // upper bound of the fuel feed rate factor
	Shape      Sliders // design-point magnet shape
}

var presets = map[Type]Preset{
	TypeLarge: {
		Type:       TypeLarge,
		RMax:       11,
		RMin:       5,
		Elongation: 1.8,
		FuelMax:    0.4,
		Shape:      Sliders{Outer: 38, Inner: 36, TopInner: 35, TopOuter: 23},
	},
	TypeCompact: {
		Type:       TypeCompact,
		RMax:       8.4,
		RMin:       4.0,
		Elongation: 2.1,
		FuelMax:    0.6,
		Shape:      Sliders{Outer: 20, Inner: 20, TopInner: 31, TopOuter: 17},
	},
}

// Lookup returns the preset for t.
func Lookup(t Type) (Preset, bool) {
	p, ok := presets[t]
	return p, ok
}

// Types lists the known plant types in display order.
func Types() []Type {
	return []Type{TypeLarge, TypeCompact}
}
