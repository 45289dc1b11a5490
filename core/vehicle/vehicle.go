// Package vehicle implements the per-taxi agent state machines. Two
// variants exist: Conventional taxis, whose availability only depends on
// their status, and Electric taxis, which additionally manage a battery,
// charging-station visits and range-constrained feasibility checks. Both
// drive themselves through their statuses by scheduling location updates
// on the global scheduler.
package vehicle

import (
	"math/rand"

	"github.com/evfleet/taxisim/core/facility"
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/logger"
	"github.com/evfleet/taxisim/core/model"
	"github.com/evfleet/taxisim/core/routing"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
)

// Status is the state of a taxi's behavior machine.
type Status int

const (
	LoggedOff Status = iota
	AtRank
	OnWayToRank
	OnWayToCustomer
	Occupied
	OnWayBackHome
	// electric only
	OnWayToChargingPoint
	AtChargingPoint
	WaitForCharging
)

var statusNames = [...]string{
	"logged_off", "at_rank", "on_way_to_rank", "on_way_to_customer",
	"occupied", "on_way_back_home", "on_way_to_charging_point",
	"at_charging_point", "wait_for_charging",
}

func (s Status) String() string {
	if s < LoggedOff || s > WaitForCharging {
		return "unknown"
	}
	return statusNames[s]
}

// Agent is the fleet-facing surface of both taxi variants.
type Agent interface {
	ID() string
	Position() geo.Position
	Home() geo.Position
	Status() Status
	IsFree() bool
	IsBusy() bool
	IsLoggedOff() bool
	LastLogin() sim.Time
	LastLogoff() sim.Time
	MaxActiveExceeded(t sim.Time) bool
	LogOn(t sim.Time) bool
	TriggerLogOff(t sim.Time) bool
	TryToPlaceAssignment(d *model.Demand) bool
	UpdatePosition()
	NextAction(t sim.Time)
	// RankPosition is the agent's queue index while waiting at a rank,
	// 0 otherwise. ChargingSOC is the state of charge while connected to
	// a charging station, 0 otherwise. Both feed the dispatch ordering.
	RankPosition() int
	ChargingSOC() float64
}

var (
	_ Agent                   = (*Conventional)(nil)
	_ Agent                   = (*Electric)(nil)
	_ facility.Vehicle        = (*Conventional)(nil)
	_ facility.ElectricVehicle = (*Electric)(nil)
)

// LocationUpdate moves a taxi to the next waypoint of its buffered route.
type LocationUpdate struct {
	At  sim.Time
	Car Agent
}

func (e *LocationUpdate) ScheduledAt() sim.Time { return e.At }

// Env bundles the collaborators a taxi needs. One Env is shared by the
// whole fleet.
type Env struct {
	Sched      *sim.Scheduler
	Facilities *facility.Directory
	Router     routing.Router
	Sink       stats.Sink
	Log        logger.Logger
	Rand       *rand.Rand
}

// Params are the shift-time limits shared by both variants.
type Params struct {
	MinActive   sim.Time // minimum active time before a log-off is allowed
	MaxActive   sim.Time // active time after which the taxi heads home
	MinInactive sim.Time // minimum rest before the next log-on
}

type waypointAt struct {
	pos geo.Position
	at  sim.Time
}

// taxi carries the state shared by both variants. The variant types embed
// it and implement the status-dependent flows themselves.
type taxi struct {
	env Env
	par Params

	id     string
	home   geo.Position
	pos    geo.Position
	status Status

	route     []waypointAt
	ride      *model.Demand
	nextEvent *LocationUpdate

	connected      facility.Facility
	targetFacility string

	shift        int
	trackCounter int
	trackID      int

	lastLogin       sim.Time
	lastLogoff      sim.Time
	logOffTriggered bool

	// asVehicle is the value facilities identify this taxi by, set by the
	// variant constructors to the outer type so queue lookups compare
	// equal.
	asVehicle facility.Vehicle
}

func newTaxi(id string, home geo.Position, env Env, par Params) taxi {
	return taxi{
		env:        env,
		par:        par,
		id:         id,
		home:       home,
		pos:        home,
		status:     LoggedOff,
		lastLogin:  -1,
		lastLogoff: -1,
	}
}

func (x *taxi) ID() string             { return x.id }
func (x *taxi) Position() geo.Position { return x.pos }
func (x *taxi) Home() geo.Position     { return x.home }
func (x *taxi) Status() Status         { return x.status }
func (x *taxi) LastLogin() sim.Time    { return x.lastLogin }
func (x *taxi) LastLogoff() sim.Time   { return x.lastLogoff }
func (x *taxi) IsLoggedOff() bool      { return x.status == LoggedOff }
func (x *taxi) Shift() int             { return x.shift }

// MaxActiveExceeded reports whether the current shift ran past its
// maximum duration.
func (x *taxi) MaxActiveExceeded(t sim.Time) bool {
	return t-x.lastLogin > x.par.MaxActive
}

// RankPosition is the queue index while the taxi waits at a rank, 0
// otherwise.
func (x *taxi) RankPosition() int {
	if r, ok := x.connected.(*facility.TaxiRank); ok && x.status == AtRank {
		if p := r.QueuePosition(x.asVehicle); p >= 0 {
			return p
		}
	}
	return 0
}

func (x *taxi) connectedFacilityID() string {
	if x.connected == nil {
		return ""
	}
	return x.connected.ID()
}

func (x *taxi) setConnected(f facility.Facility) {
	x.targetFacility = ""
	x.connected = f
}

func (x *taxi) newTrackID() int {
	x.trackCounter++
	return x.trackCounter
}

// moveTo updates the position, returning the distance driven since the
// previous trackpoint. The final hop of a customer ride reports the
// demand's recorded trip distance instead of the last waypoint gap.
func (x *taxi) moveTo(pos geo.Position) float64 {
	var distance float64
	if x.status == Occupied && len(x.route) == 0 && x.ride != nil {
		distance = x.ride.Distance
	} else {
		distance = x.pos.DistanceTo(pos)
	}
	if pos.Area == 0 {
		// customer and interpolated positions carry no area
		pos.Area = x.pos.Area
	}
	x.pos = pos
	return distance
}

func (x *taxi) recordTrackpoint(t sim.Time, distance, soc float64) {
	x.env.Sink.RecordTrackpoint(stats.Trackpoint{
		Time:       t,
		VehicleID:  x.id,
		Shift:      x.shift,
		Track:      x.trackID,
		Pos:        x.pos,
		Status:     x.status.String(),
		DistanceM:  distance,
		SOC:        soc,
		FacilityID: x.connectedFacilityID(),
	})
}

// setRoute fills the route buffer with absolute arrival times. The buffer
// must be empty; an in-progress ride has to be aborted first.
func (x *taxi) setRoute(r routing.Route, start sim.Time) {
	if len(x.route) > 0 {
		x.env.Log.Errorf("car %s: cannot set a new route while one is in progress", x.id)
		return
	}
	for _, wp := range r.Waypoints {
		x.route = append(x.route, waypointAt{pos: wp.Pos, at: start + wp.Offset})
	}
}

// popWaypoint consumes the next buffered waypoint.
func (x *taxi) popWaypoint() waypointAt {
	wp := x.route[0]
	x.route = x.route[1:]
	return wp
}

func (x *taxi) scheduleLocationUpdate(self Agent, at sim.Time) {
	ev := &LocationUpdate{At: at, Car: self}
	x.nextEvent = ev
	x.env.Sched.Schedule(ev)
}

// clearRide drops the pending location update, the route buffer and the
// target facility. The caller logs the trackpoint for the abort position.
func (x *taxi) clearRide() {
	if x.nextEvent != nil {
		x.env.Sched.Cancel(x.nextEvent)
		x.nextEvent = nil
	}
	x.targetFacility = ""
	x.route = x.route[:0]
}

func (x *taxi) setCustomerRide(d *model.Demand) {
	if x.ride != nil {
		panic("vehicle: overwriting an active customer ride")
	}
	x.ride = d
}
