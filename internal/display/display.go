// Package display derives the dashboard view of a calculation: needle
// gauges, plasma limit bars, the output panel and the cross-section colour.
package display

import (
	"fmt"
	"math"
	"strconv"

	"github.com/talgya/tokamak-sim/internal/engine"
)

// Gauge is a needle gauge with a fixed value range.
type Gauge struct {
	Label string  `json:"label"`
	Unit  string  `json:"unit"`
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`

	// pick extracts the gauge value from a result.
	pick func(r engine.Result) float64
}

// Gauges are the three dashboard gauges in display order.
var Gauges = []Gauge{
	{Label: "Elec. Pow. In", Unit: "MW", Lo: 0, Hi: 500, pick: func(r engine.Result) float64 { return r.ElecIn }},
	{Label: "Fusion Power", Unit: "GW", Lo: 0, Hi: 10, pick: func(r engine.Result) float64 { return r.Fusion / 1000 }},
	{Label: "Net Elec. Pow.", Unit: "MW", Lo: -500, Hi: 1500, pick: func(r engine.Result) float64 { return r.ElecNet }},
}

// Fraction returns where v sits on the gauge, clamped to [0,1].
func (g Gauge) Fraction(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	f := (v - g.Lo) / (g.Hi - g.Lo)
	return math.Max(0, math.Min(1, f))
}

// NeedleAngle is the needle rotation in radians from vertical. The dial
// sweeps 0.9π, centered on vertical.
func (g Gauge) NeedleAngle(v float64) float64 {
	return g.Fraction(v)*0.9*math.Pi - 0.45*math.Pi
}

// Reading is one gauge evaluated against a result.
type Reading struct {
	Gauge
	Value    float64 `json:"value"`
	Fraction float64 `json:"fraction"`
	Text     string  `json:"text"`
}

// Read evaluates every gauge for r.
func Read(r engine.Result) []Reading {
	out := make([]Reading, 0, len(Gauges))
	for _, g := range Gauges {
		v := g.pick(r)
		out = append(out, Reading{
			Gauge:    g,
			Value:    v,
			Fraction: g.Fraction(v),
			Text:     fixed(v, 2) + " " + g.Unit,
		})
	}
	return out
}

// Level is the colour band of a limit bar.
type Level string

const (
	LevelOK      Level = "ok"      // below 90%
	LevelWarning Level = "warning" // 90% up to the limit
	LevelOver    Level = "over"    // at or over the limit
)

// Limit is one plasma limit bar measured against 1.0.
type Limit struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Level   Level   `json:"level"`
}

// Fill returns the bar fill in [0,1].
func (l Limit) Fill() float64 {
	return math.Max(0, math.Min(1, l.Percent/100))
}

func newLimit(label string, v float64) Limit {
	if math.IsNaN(v) {
		v = 0
	}
	l := Limit{Label: label, Value: v, Percent: v * 100}
	switch {
	case l.Percent >= 100:
		l.Level = LevelOver
	case l.Percent >= 90:
		l.Level = LevelWarning
	default:
		l.Level = LevelOK
	}
	return l
}

// Limits returns the density, pressure and boundary bars. The boundary bar
// runs from Diverted (0) to Limited (1).
func Limits(r engine.Result) []Limit {
	return []Limit{
		newLimit("Density", r.Greenwald),
		newLimit("Pressure", r.BetaRatio),
		newLimit("Boundary", 1-r.Divertor),
	}
}

// Row is one labelled value of the output panel.
type Row struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

func row(label string, v float64, decimals int, unit string) Row {
	return Row{Label: label, Value: v, Text: fixed(v, decimals) + unit}
}

// Gain is Pfusion/Paux, zero without auxiliary heating.
func Gain(r engine.Result) float64 {
	if r.AuxPower == 0 {
		return 0
	}
	return r.Fusion / r.AuxPower
}

// NormalizedBeta is β[%]·B·a/Ip in %·T·m/MA, zero without plasma current.
func NormalizedBeta(r engine.Result) float64 {
	if r.Current == 0 {
		return 0
	}
	return r.Beta * 100 * r.Field * r.A / r.Current
}

// TemperatureKeV converts the 10 keV temperature unit to keV.
func TemperatureKeV(r engine.Result) float64 {
	return r.Temperature * 10
}

// Panel returns the output panel as four groups of five rows.
func Panel(r engine.Result) [][]Row {
	return [][]Row{
		{
			row("Magnetic Field", r.Field, 2, " T"),
			row("Plasma Current", r.Current, 2, " MA"),
			row("Safety Factor, q95", r.SafetyFactor, 2, ""),
			row("Zeff", r.Zeff, 2, ""),
			row("DT Fraction", r.FuelFraction*100, 2, " %"),
		},
		{
			row("Fusion Power", r.Fusion, 0, " MW"),
			row("Net Elec. Power", r.ElecNet, 0, " MW"),
			row("Total Aux. Power", r.AuxPower, 1, " MW"),
			row("Bremsstrahlung Rad.", r.Brem, 0, " MW"),
			row("Transport Pow. Loss", r.Transport, 0, " MW"),
		},
		{
			row("Q = Pfusion/Paux", Gain(r), 1, ""),
			row("Wall Load", r.WallLoad, 2, " MW/m²"),
			row("Toroidal Beta", r.Beta*100, 2, " %"),
			row("Temperature", TemperatureKeV(r), 2, " keV"),
			row("Density", r.NewDensity, 2, " (10²⁰ m⁻³)"),
		},
		{
			row("Normalized Beta", NormalizedBeta(r), 2, " %Tm/MA"),
			row("H98y2", r.H98, 2, ""),
			row("Greenwald Limit", r.Greenwald, 2, ""),
			row("Conf. Time", r.ConfTime, 2, " s"),
			row("Plasma Volume", r.Vol, 0, " m³"),
		},
	}
}

// ShapeLabels are the cross-section annotations.
func ShapeLabels(r engine.Result) []string {
	return []string{
		"Ro= " + fixed(r.Ro, 2),
		"Zo= " + fixed(r.Zo, 2),
		"a= " + fixed(r.A, 2),
		"k= " + fixed(r.K, 2),
		"d= " + fixed(r.D, 3),
	}
}

// PaletteSize is the number of plasma colours, one per colour index.
const PaletteSize = 21

// PlasmaColor returns the plasma fill for a colour index as #rrggbb. The
// ramp runs from white at 0 to full red at 20; out-of-range indices clamp.
func PlasmaColor(idx int) string {
	idx = max(0, min(PaletteSize-1, idx))
	sat := float64(idx) / float64(PaletteSize-1)
	gb := int(math.Round(255 * (1 - sat)))
	return fmt.Sprintf("#ff%02x%02x", gb, gb)
}

// Dashboard is everything the front end draws for one result.
type Dashboard struct {
	Gauges []Reading `json:"gauges"`
	Limits []Limit   `json:"limits"`
	Panel  [][]Row   `json:"panel"`
	Shape  []string  `json:"shape"`
	Color  string    `json:"color"`
}

// Build assembles the dashboard for r.
func Build(r engine.Result) Dashboard {
	return Dashboard{
		Gauges: Read(r),
		Limits: Limits(r),
		Panel:  Panel(r),
		Shape:  ShapeLabels(r),
		Color:  PlasmaColor(r.ColorIndex),
	}
}

func fixed(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
