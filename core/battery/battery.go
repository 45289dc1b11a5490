// Package battery models the traction battery of an electric taxi:
// distance-based discharge and a UI-curve charging model stepped over
// fixed intervals.
package battery

import "fmt"

// Battery tracks the energy content of a vehicle battery in joules.
// Invariant: 0 <= Energy() <= Capacity().
type Battery struct {
	capacityJ float64 // max energy content in J
	energyJ   float64 // current energy content in J
	uCellN    float64 // nominal cell voltage in V
	uCellLS   float64 // end-of-charge cell voltage in V
	eta       float64 // charging efficiency
}

// New returns a fully charged battery. Capacity is given in kWh.
func New(capacityKWh, uCellN, uCellLS, eta float64) *Battery {
	c := KWhToJ(capacityKWh)
	return &Battery{capacityJ: c, energyJ: c, uCellN: uCellN, uCellLS: uCellLS, eta: eta}
}

// NewWithSOC returns a battery at the given state of charge in percent.
func NewWithSOC(capacityKWh, uCellN, uCellLS, eta, soc float64) *Battery {
	b := New(capacityKWh, uCellN, uCellLS, eta)
	switch {
	case soc >= 100:
		b.energyJ = b.capacityJ
	case soc <= 0:
		b.energyJ = 0
	default:
		b.energyJ = soc * b.capacityJ / 100
	}
	return b
}

// SOC is the state of charge in percent.
func (b *Battery) SOC() float64 { return b.energyJ / b.capacityJ * 100 }

// Energy is the current energy content in J.
func (b *Battery) Energy() float64 { return b.energyJ }

// Capacity is the maximum energy content in J.
func (b *Battery) Capacity() float64 { return b.capacityJ }

// Efficiency is the charging efficiency applied by Charge.
func (b *Battery) Efficiency() float64 { return b.eta }

// CellVoltages returns the nominal and end-of-charge cell voltages.
func (b *Battery) CellVoltages() (nominal, endOfCharge float64) {
	return b.uCellN, b.uCellLS
}

// Discharge removes energy from the battery, clamped at empty. Negative
// energies are a programming defect.
func (b *Battery) Discharge(joule float64) {
	if joule < 0 {
		panic(fmt.Sprintf("battery: negative discharge %f J", joule))
	}
	b.energyJ -= joule
	if b.energyJ < 0 {
		b.energyJ = 0
	}
}

// Charge adds energy to the battery, applying the charging efficiency and
// clamping at capacity.
func (b *Battery) Charge(joule float64) {
	b.energyJ += joule * b.eta
	if b.energyJ > b.capacityJ {
		b.energyJ = b.capacityJ
	}
}
