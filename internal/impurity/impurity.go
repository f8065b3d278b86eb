// Package impurity turns impurity fractions into the effective charge and the
// deuterium-tritium fuel fraction.
package impurity

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNonPositive  = errors.New("impurity: fraction must be positive")
	ErrOutOfRange   = errors.New("impurity: fraction outside [0,1)")
	ErrNegativeFuel = errors.New("impurity: DT fuel fraction is negative")
)

// DomainError names the fraction that failed validation.
type DomainError struct {
	Quantity string
	Value    float64
	Err      error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s=%g", e.Err, e.Quantity, e.Value)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Composition holds impurity densities as fractions of the electron density.
type Composition struct {
	He float64 `json:"He" yaml:"he"`
	O  float64 `json:"O" yaml:"o"`
	C  float64 `json:"C" yaml:"c"`
	Fe float64 `json:"Fe" yaml:"fe"`
	Be float64 `json:"Be" yaml:"be"`
	Ar float64 `json:"Ar" yaml:"ar"`
}

// Default returns the reference mix: helium ash plus oxygen, carbon and iron.
func Default() Composition {
	return Composition{He: 0.1, O: 0.001, C: 0.01048, Fe: 0.0001447}
}

// Percent returns the composition in percent, as edited by hand.
func (c Composition) Percent() Composition {
	return c.scale(100)
}

// FromPercent converts a percent composition back to fractions.
func FromPercent(p Composition) Composition {
	return p.scale(0.01)
}

func (c Composition) scale(f float64) Composition {
	return Composition{He: c.He * f, O: c.O * f, C: c.C * f, Fe: c.Fe * f, Be: c.Be * f, Ar: c.Ar * f}
}

// Mix is the resolved composition the solver consumes.
type Mix struct {
	Composition

	Carbon float64 `json:"nC_ne"`  // quantized C
	Iron   float64 `json:"nFe_ne"` // quantized Fe
	Fuel   float64 `json:"nDT_ne"`
	Ions   float64 `json:"nI_ne"`
	Zeff   float64 `json:"Zeff"`
}

// Quantize4 rounds x to four significant figures. x must be positive and
// finite. Quantize4 is idempotent.
func Quantize4(x float64) (float64, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
		return 0, &DomainError{Quantity: "x", Value: x, Err: ErrNonPositive}
	}
	scale := math.Pow(10, math.Floor(math.Log10(x))+1-4)
	return math.Round(x/scale) * scale, nil
}

// Resolve validates c and derives Zeff, the ion fraction and the DT fraction.
// Carbon and iron are quantized to four significant figures first.
func Resolve(c Composition) (Mix, error) {
	fields := []struct {
		name string
		v    float64
	}{
		{"He", c.He}, {"O", c.O}, {"C", c.C}, {"Fe", c.Fe}, {"Be", c.Be}, {"Ar", c.Ar},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || f.v < 0 || f.v >= 1 {
			return Mix{}, &DomainError{Quantity: f.name, Value: f.v, Err: ErrOutOfRange}
		}
	}

	carbon, err := Quantize4(c.C)
	if err != nil {
		return Mix{}, &DomainError{Quantity: "C", Value: c.C, Err: ErrNonPositive}
	}
	iron, err := Quantize4(c.Fe)
	if err != nil {
		return Mix{}, &DomainError{Quantity: "Fe", Value: c.Fe, Err: ErrNonPositive}
	}

	fuel := 1.0 - 2*c.He - 4*c.Be - 6*carbon - 8*c.O - 18*c.Ar - 26*iron
	if fuel < 0 {
		return Mix{}, &DomainError{Quantity: "nDT_ne", Value: fuel, Err: ErrNegativeFuel}
	}

	return Mix{
		Composition: c,
		Carbon:      carbon,
		Iron:        iron,
		Fuel:        fuel,
		Ions:        c.He + c.Be + carbon + c.O + c.Ar + iron + fuel,
		Zeff:        1 + 2*c.He + 4*3*c.Be + 6*5*carbon + 8*7*c.O + 18*17*c.Ar + 26*25*iron,
	}, nil
}
