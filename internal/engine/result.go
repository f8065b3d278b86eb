package engine

import (
	"math"

	"github.com/talgya/tokamak-sim/internal/plant"
)

// Result is the externally consumed record of one calculation. JSON keys
// follow the record names the dashboard reads.
type Result struct {
	Field        float64 `json:"B_in"`
	Current      float64 `json:"Ip_MA"`
	Fusion       float64 `json:"Pfus_MW"`
	FusionGW     float64 `json:"Pfus_GW"`
	ElecNet      float64 `json:"P_e"`
	AuxPower     float64 `json:"P_in_MW"`
	ConfTime     float64 `json:"Conf_t"`
	Temperature  float64 `json:"T10_"`
	WallLoad     float64 `json:"n_wall"`
	Beta         float64 `json:"Bet"`
	Greenwald    float64 `json:"n20_n20_gw"`
	BetaRatio    float64 `json:"n20_n20_bet"`
	H98          float64 `json:"H98y2"`
	H89          float64 `json:"H89P"`
	SafetyFactor float64 `json:"q_edg"`
	Zeff         float64 `json:"Zeff"`
	Density      float64 `json:"n20_"`
	NewDensity   float64 `json:"n_new"`
	FuelFraction float64 `json:"nDT_ne"`
	Brem         float64 `json:"Pbrem_MW"`
	Transport    float64 `json:"Ptrans_MW"`
	Vol          float64 `json:"Vol"`
	ElecIn       float64 `json:"P_e_in"`
	Q            float64 `json:"G"`

	// Reactor envelope.
	R0 float64 `json:"R_o"`
	Z0 float64 `json:"Z_o"`
	A0 float64 `json:"a_o"`
	K0 float64 `json:"k_o"`

	// Plasma boundary.
	Ro       float64 `json:"Ro"`
	Zo       float64 `json:"Zo"`
	A        float64 `json:"a"`
	K        float64 `json:"k"`
	D        float64 `json:"d"`
	Divertor float64 `json:"fdiv"`

	ColorIndex int           `json:"color_index"`
	Sliders    plant.Sliders `json:"sliders"`
	Inputs     Inputs        `json:"inputs"` // physical values the driving sliders resolved to
}

// Project packages the final integration step and the geometry into a
// Result. Field values are copied; only unit conversions happen here.
func Project(ref Reference, s State, cfg plant.Configuration, sliders plant.Sliders) Result {
	return Result{
		Field:        s.Field,
		Current:      s.Current,
		Fusion:       s.Fusion,
		FusionGW:     s.Fusion * 0.001,
		ElecNet:      s.ElecNet,
		AuxPower:     s.AuxPower,
		ConfTime:     s.ConfTime,
		Temperature:  s.Temperature,
		WallLoad:     s.WallLoad,
		Beta:         s.Beta,
		Greenwald:    s.GreenwaldRatio,
		BetaRatio:    s.BetaRatio,
		H98:          s.H98,
		H89:          s.H89,
		SafetyFactor: cfg.SafetyFactor,
		Zeff:         ref.Mix.Zeff,
		Density:      s.Density,
		NewDensity:   s.NewDensity,
		FuelFraction: ref.Mix.Fuel,
		Brem:         s.Brem,
		Transport:    s.Transport,
		Vol:          ref.Vol,
		ElecIn:       s.ElecIn,
		Q:            s.Q,

		R0: cfg.R0,
		A0: cfg.A0,
		K0: cfg.K0,

		Ro:       ref.Shape.R,
		A:        ref.Shape.A,
		K:        ref.Shape.K,
		D:        ref.Shape.D,
		Divertor: ref.Divertor,

		ColorIndex: s.ColorIndex,
		Sliders:    sliders,
	}
}

type field struct {
	name string
	v    float64
}

func (r Result) fields() []field {
	return []field{
		{"B_in", r.Field}, {"Ip_MA", r.Current}, {"Pfus_MW", r.Fusion}, {"Pfus_GW", r.FusionGW},
		{"P_e", r.ElecNet}, {"P_in_MW", r.AuxPower}, {"Conf_t", r.ConfTime}, {"T10_", r.Temperature},
		{"n_wall", r.WallLoad}, {"Bet", r.Beta}, {"n20_n20_gw", r.Greenwald}, {"n20_n20_bet", r.BetaRatio},
		{"H98y2", r.H98}, {"H89P", r.H89}, {"q_edg", r.SafetyFactor}, {"Zeff", r.Zeff},
		{"n20_", r.Density}, {"n_new", r.NewDensity}, {"nDT_ne", r.FuelFraction},
		{"Pbrem_MW", r.Brem}, {"Ptrans_MW", r.Transport}, {"Vol", r.Vol}, {"P_e_in", r.ElecIn}, {"G", r.Q},
		{"R_o", r.R0}, {"Z_o", r.Z0}, {"a_o", r.A0}, {"k_o", r.K0},
		{"Ro", r.Ro}, {"Zo", r.Zo}, {"a", r.A}, {"k", r.K}, {"d", r.D}, {"fdiv", r.Divertor},
	}
}

// Record returns the result as a flat name → value map.
func (r Result) Record() map[string]float64 {
	fs := r.fields()
	m := make(map[string]float64, len(fs)+1)
	for _, f := range fs {
		m[f.name] = f.v
	}
	m["color_index"] = float64(r.ColorIndex)
	return m
}

// Validate rejects a record holding NaN or Inf.
func (r Result) Validate() error {
	for _, f := range r.fields() {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &NumericError{Quantity: f.name, Value: f.v, Err: ErrNonFinite}
		}
	}
	return nil
}
