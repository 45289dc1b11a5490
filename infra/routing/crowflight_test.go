package routing

import (
	"math"
	"testing"

	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/sim"
)

func TestRouteEndpoints(t *testing.T) {
	r := NewCrowFlightRouter(30, 1.3)
	from := geo.NewPosition(48.10, 11.5)
	to := geo.Position{Lat: 48.14, Lon: 11.55, Area: 4}

	route, err := r.Route(from, to)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if len(route.Waypoints) < 2 {
		t.Fatalf("got %d waypoints, want at least start and end", len(route.Waypoints))
	}
	first := route.Waypoints[0]
	if !first.Pos.SamePoint(from) || first.Offset != 0 {
		t.Fatalf("first waypoint = %+v, want the start at offset 0", first)
	}
	last := route.Waypoints[len(route.Waypoints)-1]
	if !last.Pos.SamePoint(to) || last.Offset != route.Duration() {
		t.Fatalf("last waypoint = %+v, want the destination at full duration", last)
	}
}

func TestRouteDistanceAndDuration(t *testing.T) {
	r := NewCrowFlightRouter(30, 1.3)
	from := geo.NewPosition(48.10, 11.5)
	to := geo.NewPosition(48.14, 11.5)

	route, _ := r.Route(from, to)
	want := from.DistanceTo(to) * 1.3
	if math.Abs(route.Distance-want) > 1e-9 {
		t.Fatalf("distance = %v, want crow flight times detour %v", route.Distance, want)
	}
	// 30 km/h over the scaled distance.
	wantMS := sim.Time(math.Round(want / (30 / 3.6) * 1000))
	if route.Duration() != wantMS {
		t.Fatalf("duration = %d ms, want %d", route.Duration(), wantMS)
	}
}

func TestRouteWaypointsAscendAtStep(t *testing.T) {
	r := NewCrowFlightRouter(30, 1.0)
	route, _ := r.Route(geo.NewPosition(48.10, 11.5), geo.NewPosition(48.16, 11.5))

	if route.Duration() < 5*sim.Minute {
		t.Fatalf("route too short for the interpolation check: %d ms", route.Duration())
	}
	for i := 1; i < len(route.Waypoints); i++ {
		prev, cur := route.Waypoints[i-1], route.Waypoints[i]
		if cur.Offset <= prev.Offset {
			t.Fatalf("offsets not strictly ascending at %d: %d after %d", i, cur.Offset, prev.Offset)
		}
		if i < len(route.Waypoints)-1 && cur.Offset != sim.Time(i)*sim.Minute {
			t.Fatalf("waypoint %d at %d ms, want one per minute", i, cur.Offset)
		}
	}
}

func TestRouteInterpolatedPointsInheritTargetArea(t *testing.T) {
	r := NewCrowFlightRouter(30, 1.0)
	to := geo.Position{Lat: 48.16, Lon: 11.5, Area: 9}
	route, _ := r.Route(geo.NewPosition(48.10, 11.5), to)

	for _, wp := range route.Waypoints[1:] {
		if wp.Pos.Area != 9 {
			t.Fatalf("waypoint area = %d, want the destination area", wp.Pos.Area)
		}
	}
}

func TestRouteZeroDistance(t *testing.T) {
	r := NewCrowFlightRouter(30, 1.3)
	p := geo.NewPosition(48.10, 11.5)
	route, err := r.Route(p, p)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if route.Distance != 0 || route.Duration() != 0 {
		t.Fatalf("zero-length route = %v m / %d ms, want 0/0", route.Distance, route.Duration())
	}
}
