package standard

import (
	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/module"
)

// ThermalTimeLinear accumulates thermal time in degree-days, assuming the
// model time unit is one hour. Nothing accumulates before sowing or while
// the temperature is at or below the base temperature.
var ThermalTimeLinear = &module.Creator{
	Name:              "thermal_time_linear",
	Kind:              module.Differential,
	Inputs:            []string{"time", "temp", "sowing_time", "tbase"},
	Outputs:           []string{"TTc"},
	RequiresFixedStep: true,
	New: func(in, out dynamo.Table) (module.Module, error) {
		return NewThermalTime(in, out, 1.0/24.0)
	},
}

// ThermalTime is the linear thermal time model shared by libraries that
// differ only in their time unit.
type ThermalTime struct {
	time, temp, sowingTime, tbase *float64
	rate                          *float64
	perUnit                       float64
}

// NewThermalTime binds a thermal time module whose rate is scaled by
// perUnit, the length of one model time unit in days.
func NewThermalTime(in, out dynamo.Table, perUnit float64) (*ThermalTime, error) {
	ins, err := in.Refs("time", "temp", "sowing_time", "tbase")
	if err != nil {
		return nil, err
	}
	rate, err := out.Ref("TTc")
	if err != nil {
		return nil, err
	}
	return &ThermalTime{
		time:       ins[0],
		temp:       ins[1],
		sowingTime: ins[2],
		tbase:      ins[3],
		rate:       rate,
		perUnit:    perUnit,
	}, nil
}

func (m *ThermalTime) Run() error {
	if *m.time < *m.sowingTime || *m.temp <= *m.tbase {
		return nil
	}
	*m.rate = (*m.temp - *m.tbase) * m.perUnit
	return nil
}

// ExponentialGrowth grows biomass at a constant relative rate.
var ExponentialGrowth = &module.Creator{
	Name:    "exponential_growth",
	Kind:    module.Differential,
	Inputs:  []string{"biomass", "growth_rate"},
	Outputs: []string{"biomass"},
	New: func(in, out dynamo.Table) (module.Module, error) {
		ins, err := in.Refs("biomass", "growth_rate")
		if err != nil {
			return nil, err
		}
		rate, err := out.Ref("biomass")
		if err != nil {
			return nil, err
		}
		biomass, growthRate := ins[0], ins[1]
		return module.ModuleFunc(func() error {
			*rate = *growthRate * *biomass
			return nil
		}), nil
	},
}
