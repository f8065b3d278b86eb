package engine

import (
	"math"

	"github.com/talgya/tokamak-sim/internal/physics"
	"github.com/talgya/tokamak-sim/internal/plant"
)

const drivingPositions = 80.0

// DrivingInputs are the field, heating power and fuel slider positions,
// each in [0,80].
type DrivingInputs struct {
	FieldProxy float64 `json:"boS"`
	PowerProxy float64 `json:"pwS"`
	FuelProxy  float64 `json:"mdS"`
}

// Inputs are the physical values behind the driving sliders.
type Inputs struct {
	Field      float64 `json:"B_in"`       // T
	Power      float64 `json:"Pw_in_MW"`   // auxiliary heating, MW
	FuelFactor float64 `json:"mdot_V_fac"` // fuel feed as a fraction of the plasma mass per second
}

// ProxiesFor converts physical inputs into slider positions the way the
// input panel does: power and fuel use fixed slider scales, the field scale
// follows the configured field max.
func ProxiesFor(cfg plant.Configuration, field, power, fuel float64) DrivingInputs {
	return DrivingInputs{
		FieldProxy: (field - physics.FieldMin) * physics.FieldRange / (cfg.FieldMax - physics.FieldMin),
		PowerProxy: (power - physics.PowerMin) * physics.PowerRange / physics.PowerMax,
		FuelProxy:  fuel * physics.FuelRange,
	}
}

// Proxies is the inverse of DrivingInputs.Resolve under cfg.
func (in Inputs) Proxies(cfg plant.Configuration) DrivingInputs {
	return DrivingInputs{
		FieldProxy: (in.Field - physics.FieldMin) * physics.FieldRange / (cfg.FieldMax - physics.FieldMin),
		PowerProxy: (in.Power - physics.PowerMin) * physics.PowerRange / (physics.PowerMax - physics.PowerMin),
		FuelProxy:  (in.FuelFactor - physics.FuelMin) * physics.FuelRange / (cfg.FuelMax - physics.FuelMin),
	}
}

// Resolve maps the slider positions onto physical inputs.
func (d DrivingInputs) Resolve(cfg plant.Configuration) (Inputs, error) {
	for _, v := range []struct {
		name string
		pos  float64
	}{
		{"boS", d.FieldProxy}, {"pwS", d.PowerProxy}, {"mdS", d.FuelProxy},
	} {
		if math.IsNaN(v.pos) || v.pos < 0 || v.pos > drivingPositions {
			return Inputs{}, &NumericError{Quantity: v.name, Value: v.pos, Err: ErrInputRange}
		}
	}

	return Inputs{
		Field:      physics.FieldMin + ((cfg.FieldMax - physics.FieldMin) * d.FieldProxy / physics.FieldRange),
		Power:      physics.PowerMin + (physics.PowerMax-physics.PowerMin)*d.PowerProxy/physics.PowerRange,
		FuelFactor: physics.FuelMin + (cfg.FuelMax-physics.FuelMin)*d.FuelProxy/physics.FuelRange,
	}, nil
}
