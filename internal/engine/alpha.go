package engine

import "math"

// AlphaRegime is the temperature band that selects the alpha-heating law.
type AlphaRegime uint8

const (
	RegimeCubic     AlphaRegime = iota // T < Tc
	RegimeQuadratic                    // Tc ≤ T < 2Tc
	RegimeScaled                       // 2Tc ≤ T < 3Tc
	RegimeCeiling                      // T ≥ 3Tc
)

func (r AlphaRegime) String() string {
	switch r {
	case RegimeCubic:
		return "cubic"
	case RegimeQuadratic:
		return "quadratic"
	case RegimeScaled:
		return "scaled"
	case RegimeCeiling:
		return "ceiling"
	}
	return "unknown"
}

// ClassifyAlpha returns the regime for temperature t against the critical
// temperature tc (both in 10 keV).
func ClassifyAlpha(t, tc float64) AlphaRegime {
	switch {
	case t < tc:
		return RegimeCubic
	case t < 2*tc:
		return RegimeQuadratic
	case t < 3*tc:
		return RegimeScaled
	default:
		return RegimeCeiling
	}
}

// AlphaMultiplier is the fusion reactivity multiplier at temperature t.
// The scaled law meets the ceiling at exactly 3Tc.
func AlphaMultiplier(t, tc float64) float64 {
	switch ClassifyAlpha(t, tc) {
	case RegimeCubic:
		return math.Pow(t/tc, 3)
	case RegimeQuadratic:
		return math.Pow(t/tc, 2)
	case RegimeScaled:
		return 4 * math.Pow(t/(2*tc), 1.5)
	default:
		return 4 * math.Pow(1.5, 1.5)
	}
}
