// Package geometry resolves the four magnet lever positions into the plasma
// boundary: major radius, minor radius, elongation and triangularity.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/tokamak-sim/internal/physics"
	"github.com/talgya/tokamak-sim/internal/plant"
)

var (
	ErrSliderRange = errors.New("geometry: slider outside [0,40]")
	ErrDegenerate  = errors.New("geometry: degenerate plasma shape")
)

// DegenerateError names the quantity that collapsed.
type DegenerateError struct {
	Quantity string
	Value    float64
	Err      error
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("%s: %s=%g", e.Err, e.Quantity, e.Value)
}

func (e *DegenerateError) Unwrap() error {
	return e.Err
}

// Levers are the sliders mapped onto their normalized ranges.
type Levers struct {
	Outer    float64 // i1
	Inner    float64 // i2
	TopOuter float64 // i3
	TopInner float64 // i4
}

// Shape is the resolved plasma boundary together with the shaping chain that
// produced the final minor radius.
type Shape struct {
	Levers Levers

	R  float64 // R1, major radius
	A1 float64 // minor radius bounded by the walls
	K  float64 // k1, elongation
	D  float64 // d1, triangularity

	FK     float64 // f_k
	FInOut float64 // f_i1pi2
	FA     float64 // fa
	F      float64 // f
	A2     float64 // a1·f
	A      float64 // a3, final minor radius
}

// MapLevers converts slider positions into lever values.
func MapLevers(s plant.Sliders) (Levers, error) {
	for _, v := range []struct {
		name string
		pos  int
	}{
		{"outer", s.Outer}, {"inner", s.Inner}, {"top_inner", s.TopInner}, {"top_outer", s.TopOuter},
	} {
		if v.pos < 0 || v.pos > physics.SliderMax {
			return Levers{}, fmt.Errorf("%w: %s=%d", ErrSliderRange, v.name, v.pos)
		}
	}

	return Levers{
		Outer:    lever(physics.OuterLeverAt0, physics.OuterLeverAtMax, s.Outer),
		Inner:    lever(physics.InnerLeverAt0, physics.InnerLeverAtMax, s.Inner),
		TopOuter: lever(physics.TopLeverAt0, physics.TopLeverAtMax, s.TopOuter),
		TopInner: lever(physics.TopLeverAt0, physics.TopLeverAtMax, s.TopInner),
	}, nil
}

func lever(at0, atMax float64, pos int) float64 {
	return ((atMax-at0)/float64(physics.SliderMax))*float64(pos) + at0
}

// Resolve computes the plasma shape for the given sliders and configuration.
func Resolve(s plant.Sliders, cfg plant.Configuration) (Shape, error) {
	lv, err := MapLevers(s)
	if err != nil {
		return Shape{}, err
	}

	denom := cfg.KMax - cfg.KShape
	if denom == 0 {
		return Shape{}, &DegenerateError{Quantity: "kMax-k_x", Value: denom, Err: ErrDegenerate}
	}

	sh := Shape{Levers: lv}
	sh.R = cfg.R0 + (lv.Inner-lv.Outer)*cfg.A0*0.9
	sh.A1 = math.Min(cfg.RMax-sh.R, sh.R-cfg.RMin)
	sh.K = 1 + 0.5*(lv.TopOuter+lv.TopInner)*(cfg.KMax-1)
	sh.D = lv.TopInner - lv.TopOuter

	// Low elongation pulls the boundary in so it stays inside the coils.
	const faMax = 0.5
	sh.FK = (sh.K - cfg.KShape) / denom
	sh.FInOut = 0.5 * (lv.Outer + lv.Inner)
	sh.FA = faMax - faMax*sh.FInOut
	sh.F = 1 - sh.FK*sh.FA
	sh.A2 = sh.A1 * sh.F
	if sh.FK < 0 {
		sh.A = sh.A1
	} else {
		sh.A = sh.A2
	}

	if !(sh.A > 0) {
		return Shape{}, &DegenerateError{Quantity: "a3", Value: sh.A, Err: ErrDegenerate}
	}
	return sh, nil
}

// AspectRatio returns R/a.
func (s Shape) AspectRatio() float64 {
	return s.R / s.A
}

// Volume returns the plasma volume 2πR·πa²k (m³).
func (s Shape) Volume() float64 {
	return 2 * math.Pi * s.R * math.Pi * math.Pow(s.A, 2) * s.K
}

// Area returns the plasma surface area 4π²Ra√k (m²).
func (s Shape) Area() float64 {
	return 4 * math.Pow(math.Pi, 2) * s.R * s.A * math.Sqrt(s.K)
}
