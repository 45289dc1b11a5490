package vehicle

import (
	"fmt"

	"github.com/evfleet/taxisim/core/facility"
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/model"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
)

// Conventional is a combustion-engine taxi. Its availability depends only
// on its status.
type Conventional struct {
	taxi
}

// NewConventional builds a logged-off conventional taxi at its home
// position.
func NewConventional(id string, home geo.Position, env Env, par Params) *Conventional {
	c := &Conventional{taxi: newTaxi(id, home, env, par)}
	c.asVehicle = c
	return c
}

// IsFree reports whether the taxi can accept customer requests.
func (c *Conventional) IsFree() bool {
	return c.status == AtRank || c.status == OnWayToRank
}

// IsBusy reports whether the taxi is bound to an ongoing task.
func (c *Conventional) IsBusy() bool {
	return c.status == Occupied || c.status == OnWayToCustomer || c.status == OnWayBackHome
}

func (c *Conventional) setPosition(pos geo.Position, t sim.Time) {
	d := c.moveTo(pos)
	c.recordTrackpoint(t, d, 0)
}

// LogOn starts a new shift and sends the taxi to a weighted-random rank.
// It fails when the taxi is not logged off or its rest was too short.
func (c *Conventional) LogOn(t sim.Time) bool {
	if c.status != LoggedOff {
		c.env.Log.Warnf("car %s: log on refused, already logged on", c.id)
		return false
	}
	if c.lastLogoff != -1 && t-c.lastLogoff <= c.par.MinInactive {
		return false
	}
	rank := c.env.Facilities.RandomRank(t, c.env.Rand)
	if rank == nil {
		c.env.Log.Errorf("car %s: no taxi rank to log on to", c.id)
		return false
	}
	c.lastLogin = t
	c.logOffTriggered = false
	c.shift++
	c.startRideToRank(rank, t)
	return true
}

// TriggerLogOff vacates the current task and sends the taxi home. The
// active shift must have lasted at least the minimum active duration.
func (c *Conventional) TriggerLogOff(t sim.Time) bool {
	if t-c.lastLogin <= c.par.MinActive {
		return false
	}
	if !c.IsFree() || c.status == LoggedOff {
		c.env.Log.Warnf("car %s: log off refused, busy or already logged off", c.id)
		return false
	}
	if !c.quitCurrentTask(t) {
		return false
	}
	c.startRideHome(t)
	c.logOffTriggered = true
	return true
}

func (c *Conventional) logOff(t sim.Time) {
	c.logOffTriggered = false
	c.status = LoggedOff
	c.setPosition(c.pos, t)
	c.lastLogoff = t
	c.env.Sched.Schedule(&model.FleetControlEvent{At: t})
}

// TryToPlaceAssignment offers the demand to the taxi. On acceptance the
// taxi commits to the ride; otherwise a denial is recorded and nothing
// changes.
func (c *Conventional) TryToPlaceAssignment(d *model.Demand) bool {
	if !c.isPossibleToServe(d) {
		return false
	}
	c.placeAssignment(d)
	return true
}

func (c *Conventional) isPossibleToServe(d *model.Demand) bool {
	if !c.IsFree() {
		c.deny(d, stats.DeniedBusy)
		return false
	}
	if _, err := c.env.Router.Route(d.Pickup, d.Dropoff); err != nil {
		c.deny(d, stats.DeniedNoRoute)
		return false
	}
	return true
}

func (c *Conventional) deny(d *model.Demand, reason stats.DenialReason) {
	c.env.Sink.RecordDeniedRide(stats.DeniedRide{
		Time: d.Time, TrackID: d.TrackID, VehicleID: c.id,
		Reason: reason, TripM: d.Distance, ToCustomerM: -1,
	})
}

func (c *Conventional) placeAssignment(d *model.Demand) {
	c.setCustomerRide(d)
	if !c.quitCurrentTask(d.Time) {
		panic(fmt.Sprintf("car %s: accepted assignment but could not vacate previous task", c.id))
	}
	if c.pos.SamePoint(d.Pickup) {
		c.startCustomerRide(d.Time)
	} else {
		c.startRideToCustomer()
	}
}

func (c *Conventional) quitCurrentTask(t sim.Time) bool {
	switch c.status {
	case AtRank:
		return c.logOutAtRank(t)
	case OnWayToRank:
		return c.abortRide(t)
	default:
		return false
	}
}

func (c *Conventional) abortRide(t sim.Time) bool {
	c.clearRide()
	c.setPosition(c.pos, t)
	return true
}

// UpdatePosition consumes the next buffered waypoint. When the route is
// finished the next action is chosen from the current status.
func (c *Conventional) UpdatePosition() {
	wp := c.popWaypoint()
	c.setPosition(wp.pos, wp.at)
	if len(c.route) > 0 {
		c.scheduleLocationUpdate(c, c.route[0].at)
		return
	}
	c.NextAction(wp.at)
}

// NextAction dispatches on the status at the end of a route.
func (c *Conventional) NextAction(t sim.Time) {
	switch c.status {
	case OnWayToCustomer:
		c.setPosition(c.ride.Pickup, t)
		c.startCustomerRide(t)
	case Occupied:
		c.ride = nil
		if c.MaxActiveExceeded(t) {
			c.status = OnWayToRank
			c.TriggerLogOff(t)
		} else {
			c.startRideToNextRank(t)
		}
	case OnWayToRank:
		if c.MaxActiveExceeded(t) {
			c.TriggerLogOff(t)
		} else {
			c.logInAtRank(t)
		}
	case OnWayBackHome:
		c.logOff(t)
	default:
		panic(fmt.Sprintf("car %s: invalid status %s at route end", c.id, c.status))
	}
}

func (c *Conventional) startRideToRank(rank *facility.TaxiRank, t sim.Time) {
	c.targetFacility = rank.ID()
	c.trackID = c.newTrackID()
	c.status = OnWayToRank
	r, err := c.env.Router.Route(c.pos, rank.Position())
	if err != nil {
		c.env.Log.Errorf("car %s: no route to rank %s: %v", c.id, rank.ID(), err)
		return
	}
	c.setRoute(r, t)
	c.UpdatePosition()
}

func (c *Conventional) startRideToNextRank(t sim.Time) {
	rank := c.env.Facilities.BestRank(t, c.targetFacility)
	if rank == nil {
		c.env.Log.Errorf("car %s: no taxi rank available", c.id)
		return
	}
	c.startRideToRank(rank, t)
}

func (c *Conventional) startRideToCustomer() {
	c.trackID = c.newTrackID()
	c.status = OnWayToCustomer
	r, err := c.env.Router.Route(c.pos, c.ride.Pickup)
	if err != nil {
		c.env.Log.Errorf("car %s: no route to customer %d: %v", c.id, c.ride.TrackID, err)
		return
	}
	c.setRoute(r, c.ride.Time)
	c.UpdatePosition()
}

func (c *Conventional) startCustomerRide(t sim.Time) {
	d := c.ride
	c.trackID = d.TrackID
	c.status = Occupied
	c.route = append(c.route,
		waypointAt{pos: d.Pickup, at: t},
		waypointAt{pos: d.Dropoff, at: t + d.Duration},
	)
	c.UpdatePosition()
}

func (c *Conventional) startRideHome(t sim.Time) {
	c.trackID = c.newTrackID()
	c.status = OnWayBackHome
	r, err := c.env.Router.Route(c.pos, c.home)
	if err != nil {
		c.env.Log.Errorf("car %s: no route home: %v", c.id, err)
		return
	}
	c.setRoute(r, t)
	c.UpdatePosition()
}

func (c *Conventional) logInAtRank(t sim.Time) bool {
	rank := c.env.Facilities.Rank(c.targetFacility)
	c.setPosition(rank.Position(), t)
	if !rank.CheckIn(c, t) {
		c.startRideToNextRank(t)
		return false
	}
	c.trackID = c.newTrackID()
	c.setConnected(rank)
	c.status = AtRank
	c.setPosition(rank.Position(), t)
	return true
}

func (c *Conventional) logOutAtRank(t sim.Time) bool {
	rank, ok := c.connected.(*facility.TaxiRank)
	if !ok || !rank.CheckOut(c, t) {
		return false
	}
	c.setPosition(rank.Position(), t)
	c.setConnected(nil)
	return true
}

// ChargingSOC is always 0 for a conventional taxi.
func (c *Conventional) ChargingSOC() float64 { return 0 }
