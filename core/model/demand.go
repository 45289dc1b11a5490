// Package model holds the plain data types shared across the simulation:
// customer demand and the fleet-controller events seeded by the loaders.
package model

import (
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/sim"
)

// Demand is one customer ride request. It doubles as the scheduler event
// that triggers dispatching at its scheduled time.
type Demand struct {
	TrackID  int
	Time     sim.Time
	Pickup   geo.Position
	Dropoff  geo.Position
	Distance float64  // original trip distance in meters
	Duration sim.Time // original trip duration
}

// ScheduledAt implements sim.Event.
func (d *Demand) ScheduledAt() sim.Time { return d.Time }

// TargetCountEvent instructs the fleet controller to adopt a new target
// active-vehicle count.
type TargetCountEvent struct {
	At    sim.Time
	Count int
}

// ScheduledAt implements sim.Event.
func (e *TargetCountEvent) ScheduledAt() sim.Time { return e.At }

// FleetControlEvent asks the fleet controller to re-evaluate the active
// count. Vehicles emit one when they complete a log-off.
type FleetControlEvent struct {
	At sim.Time
}

// ScheduledAt implements sim.Event.
func (e *FleetControlEvent) ScheduledAt() sim.Time { return e.At }
