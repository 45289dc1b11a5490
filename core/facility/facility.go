// Package facility models the constrained infrastructure taxis compete
// for: ranks with a finite FIFO queue and charging stations with a fixed
// set of connector-typed charging points plus a waiting queue. The
// Directory indexes all facilities and answers the geographic and
// criteria-based searches the vehicle agents run.
package facility

import (
	"github.com/evfleet/taxisim/core/battery"
	"github.com/evfleet/taxisim/core/charging"
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/sim"
)

// Vehicle is what a taxi rank needs to know about a taxi.
type Vehicle interface {
	ID() string
	Position() geo.Position
}

// ElectricVehicle is what a charging station needs to know about an
// electric taxi. RetryChargingLogin is invoked when a slot the vehicle
// was waiting for frees up; NextAction when its charging session ends.
type ElectricVehicle interface {
	Vehicle
	ChargingInterface() *charging.Interface
	Battery() *battery.Battery
	SOC() float64
	MinChargingDuration() sim.Time
	StopChargeMaxSOC() float64
	ApplyCharge(t sim.Time, energyJ float64)
	NextAction(t sim.Time)
	RetryChargingLogin(t sim.Time)
}

// Facility is a physically located element with a finite capacity.
type Facility interface {
	ID() string
	Position() geo.Position
	Capacity() int
	HasSpace() bool
	RemainingSpace() int
}
