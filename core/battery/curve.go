package battery

import (
	"math"

	"github.com/evfleet/taxisim/core/sim"
)

// UI-curve charging model. Below an inflection state of charge the full
// connector power is delivered; above it the delivered power decays
// exponentially toward a near-full trickle power. The inflection point and
// the trickle current are linear in the connector power, with empirically
// fitted coefficients.

// StepEnergy returns the energy in J delivered to the battery during one
// timestep at the given maximum power in W. The returned energy is the
// gross amount fed to Battery.Charge; it is truncated so the battery lands
// exactly at capacity when nearly full.
func StepEnergy(step sim.Time, pMax float64, b *Battery) float64 {
	soc := b.SOC() / 100
	iLS := 0.006/1000*pMax + 0.008
	s := -0.008/1000*pMax + 0.83

	var energy float64
	if soc < s {
		energy = pMax * float64(step) / 1000
	} else {
		pLS := b.uCellLS / b.uCellN * iLS * JToKWh(b.capacityJ) * 1000
		kL := (1 - s) / math.Log(pMax/pLS)
		p := pMax * math.Exp((s-soc)/kL)
		energy = p * float64(step) / 1000
	}
	if b.energyJ+energy*b.eta > b.capacityJ {
		energy = (b.capacityJ - b.energyJ) / b.eta
	}
	return energy
}

// ChargeSteps simulates charging for the given duration as a sequence of
// fixed-size timesteps plus one final remainder step. For every substep
// the callback receives the timestep length and the delivered energy; the
// callback is responsible for applying the energy to the battery (and may
// stop the session early by returning false). The total delivered energy
// is returned.
func ChargeSteps(duration, step sim.Time, pMax float64, b *Battery, fn func(step sim.Time, energy float64) bool) float64 {
	if step <= 0 || duration <= 0 {
		return 0
	}
	var total float64
	n := duration / step
	r := duration - n*step
	for i := sim.Time(0); i < n; i++ {
		e := StepEnergy(step, pMax, b)
		total += e
		if !fn(step, e) {
			return total
		}
	}
	if r != 0 {
		e := StepEnergy(r, pMax, b)
		total += e
		fn(r, e)
	}
	return total
}
