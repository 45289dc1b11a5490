// Package routing provides the router implementations used by the
// simulation. The crow-flight router is the default: it estimates
// routes from the great-circle distance scaled by a detour factor and
// interpolates waypoints at a constant mean speed.
package routing

import (
	"math"

	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/routing"
	"github.com/evfleet/taxisim/core/sim"
)

// CrowFlightRouter estimates routes without a road network. The detour
// factor compensates for the difference between the straight line and
// the street route, the mean speed turns distance into travel time.
type CrowFlightRouter struct {
	MeanSpeedKmh float64
	DetourFactor float64
	// WaypointStep is the spacing between interpolated waypoints.
	// Defaults to one minute of travel.
	WaypointStep sim.Time
}

var _ routing.Router = (*CrowFlightRouter)(nil)

func NewCrowFlightRouter(meanSpeedKmh, detourFactor float64) *CrowFlightRouter {
	return &CrowFlightRouter{
		MeanSpeedKmh: meanSpeedKmh,
		DetourFactor: detourFactor,
		WaypointStep: sim.Minute,
	}
}

// Route never fails: any pair of positions is connected by definition.
// The first waypoint is the start position at offset zero, the last one
// the destination at the full travel time.
func (r *CrowFlightRouter) Route(from, to geo.Position) (routing.Route, error) {
	distance := from.DistanceTo(to) * r.DetourFactor
	speed := r.MeanSpeedKmh / 3.6 // m/s
	duration := sim.Time(math.Round(distance / speed * 1000))

	step := r.WaypointStep
	if step <= 0 {
		step = sim.Minute
	}

	wps := []routing.Waypoint{{Pos: from, Offset: 0}}
	for at := step; at < duration; at += step {
		f := float64(at) / float64(duration)
		wps = append(wps, routing.Waypoint{
			Pos:    interpolate(from, to, f),
			Offset: at,
		})
	}
	wps = append(wps, routing.Waypoint{Pos: to, Offset: duration})

	return routing.Route{Distance: distance, Waypoints: wps}, nil
}

// interpolate places a point at fraction f of the straight line between
// a and b. Linear interpolation in lat/lon is accurate enough at city
// scale. Intermediate points inherit the destination's area so that
// area-based demand weights settle as a vehicle approaches it.
func interpolate(a, b geo.Position, f float64) geo.Position {
	return geo.Position{
		Lat:  a.Lat + (b.Lat-a.Lat)*f,
		Lon:  a.Lon + (b.Lon-a.Lon)*f,
		Area: b.Area,
	}
}
