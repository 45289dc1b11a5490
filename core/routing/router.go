// Package routing defines the road-network oracle the simulation core
// consults for drivable routes. The core treats any returned error as "no
// route" and maps it into a soft denial; it never retries on its own.
package routing

import (
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/sim"
)

// Waypoint is one point of a routed leg. Offset is the arrival time
// relative to the start of the leg.
type Waypoint struct {
	Pos    geo.Position
	Offset sim.Time
}

// Route is a drivable connection between two positions.
type Route struct {
	// Distance is the routed distance in meters.
	Distance float64
	// Waypoints are ordered by ascending offset and end at the target.
	Waypoints []Waypoint
}

// Duration is the offset of the final waypoint.
func (r Route) Duration() sim.Time {
	if len(r.Waypoints) == 0 {
		return 0
	}
	return r.Waypoints[len(r.Waypoints)-1].Offset
}

// Router computes routes between positions. Implementations may be backed
// by a real road network or by a synthetic model.
type Router interface {
	Route(from, to geo.Position) (Route, error)
}
