package vehicle

import (
	"fmt"

	"github.com/evfleet/taxisim/core/battery"
	"github.com/evfleet/taxisim/core/charging"
	"github.com/evfleet/taxisim/core/facility"
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/model"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
)

// ElectricParams are the range and charging thresholds of an electric
// taxi.
type ElectricParams struct {
	// RemainingRangeMinM is the safety margin subtracted from the
	// drivable range; the net range never runs below it.
	RemainingRangeMinM float64
	// RemainingRangeRechargeM is the range below which the taxi starts
	// looking for a charging station.
	RemainingRangeRechargeM float64
	// StopChargeMinSOC is the charge level from which an ongoing session
	// may be cut short for a customer request.
	StopChargeMinSOC float64
	// StopChargeMaxSOC ends a charging session.
	StopChargeMaxSOC float64
	// MinChargingDuration is the shortest allowed session.
	MinChargingDuration sim.Time
	// BestConnectorDetourM is the extra distance the taxi accepts to
	// reach a stronger connector.
	BestConnectorDetourM float64
	// CurveStep is the timestep of the home trickle-charge integration.
	// Defaults to one minute when zero.
	CurveStep sim.Time
}

// Electric is a battery-electric taxi. On top of the conventional
// behavior it watches its remaining range, visits charging stations and
// denies rides it cannot finish with a charging possibility in reach.
type Electric struct {
	taxi

	bat  *battery.Battery
	ci   *charging.Interface
	ep   ElectricParams
	cons float64 // mean consumption in J/m
}

// NewElectric builds a logged-off electric taxi at its home position.
// Consumption is given in kWh/100km as in fleet definitions.
func NewElectric(id string, home geo.Position, bat *battery.Battery, ci *charging.Interface, consumptionKWhPer100km float64, env Env, par Params, ep ElectricParams) *Electric {
	e := &Electric{
		taxi: newTaxi(id, home, env, par),
		bat:  bat,
		ci:   ci,
		ep:   ep,
		cons: battery.ConsumptionToJPerM(consumptionKWhPer100km),
	}
	e.asVehicle = e
	return e
}

func (e *Electric) Battery() *battery.Battery               { return e.bat }
func (e *Electric) ChargingInterface() *charging.Interface  { return e.ci }
func (e *Electric) SOC() float64                            { return e.bat.SOC() }
func (e *Electric) MinChargingDuration() sim.Time           { return e.ep.MinChargingDuration }
func (e *Electric) StopChargeMaxSOC() float64               { return e.ep.StopChargeMaxSOC }

// IsBusy reports whether the taxi is bound to an ongoing task. Charging
// detours count as busy except for the stationary charging states.
func (e *Electric) IsBusy() bool {
	switch e.status {
	case Occupied, OnWayToCustomer, OnWayBackHome, OnWayToChargingPoint, WaitForCharging:
		return true
	}
	return false
}

// IsFree reports whether the taxi can accept customer requests. A taxi
// charging at a station is free; the feasibility check decides whether
// the session may be interrupted.
func (e *Electric) IsFree() bool {
	return !e.IsBusy() && e.status != LoggedOff
}

// ChargingSOC is the state of charge while connected to a charging
// station, 0 otherwise.
func (e *Electric) ChargingSOC() float64 {
	if _, ok := e.connected.(*facility.ChargingStation); ok {
		return e.SOC()
	}
	return 0
}

// remainingRangeNet is the drivable range minus the safety margin, in m.
func (e *Electric) remainingRangeNet() float64 {
	r := e.bat.Energy()/e.cons - e.ep.RemainingRangeMinM
	if r < 0 {
		return 0
	}
	return r
}

// remainingRangeBrutto is the drivable range without safety margin, in m.
func (e *Electric) remainingRangeBrutto() float64 {
	return e.bat.Energy() / e.cons
}

func (e *Electric) canDrive(distanceM float64) bool {
	return e.remainingRangeNet()-distanceM > 0
}

// shouldRecharge reports whether the range dropped below the recharge
// trigger.
func (e *Electric) shouldRecharge() bool {
	return e.remainingRangeBrutto() < e.ep.RemainingRangeRechargeM
}

func (e *Electric) setPosition(pos geo.Position, t sim.Time) {
	d := e.moveTo(pos)
	if d > 0 {
		e.bat.Discharge(e.cons * d)
	}
	e.recordTrackpoint(t, d, e.SOC())
}

// LogOn starts a new shift. The rest period is spent trickle-charging at
// home on the weakest connector before the taxi heads to a rank.
func (e *Electric) LogOn(t sim.Time) bool {
	if e.status != LoggedOff {
		e.env.Log.Warnf("car %s: log on refused, already logged on", e.id)
		return false
	}
	if e.lastLogoff != -1 && t-e.lastLogoff <= e.par.MinInactive {
		return false
	}
	rank := e.env.Facilities.RandomRank(t, e.env.Rand)
	if rank == nil {
		e.env.Log.Errorf("car %s: no taxi rank to log on to", e.id)
		return false
	}
	e.logOffTriggered = false
	if e.lastLogoff != -1 {
		e.chargeAtHome(t - e.lastLogoff)
	}
	e.lastLogin = t
	e.shift++
	e.startRideToRank(rank, t)
	return true
}

// chargeAtHome charges the battery for the inactive interval on the
// lowest-power connector of the taxi's interface. Home charging needs no
// scheduler events; it is applied in one go at log-on.
func (e *Electric) chargeAtHome(duration sim.Time) {
	conn, ok := e.ci.HomeConnector()
	if !ok {
		return
	}
	step := e.ep.CurveStep
	if step <= 0 {
		step = sim.Minute
	}
	battery.ChargeSteps(duration, step, conn.PMax, e.bat, func(step sim.Time, energy float64) bool {
		e.bat.Charge(energy)
		return e.SOC() < 100
	})
}

// TriggerLogOff vacates the current task and sends the taxi home. Taxis
// at a station additionally need enough range to actually reach home
// before their session is cut.
func (e *Electric) TriggerLogOff(t sim.Time) bool {
	if t-e.lastLogin <= e.par.MinActive {
		return false
	}
	switch e.status {
	case AtRank, OnWayToRank:
		// marked before vacating so a charge posted while checking out
		// does not re-trigger the log-off
		e.logOffTriggered = true
		if e.quitCurrentTask(t) {
			e.startRideHome(t)
			return true
		}
		e.logOffTriggered = false
	case AtChargingPoint, WaitForCharging:
		e.logOffTriggered = true
		if e.canDriveHome() && e.quitCurrentTask(t) {
			e.startRideHome(t)
			return true
		}
		e.logOffTriggered = false
	}
	return false
}

func (e *Electric) logOff(t sim.Time) {
	e.logOffTriggered = false
	e.status = LoggedOff
	e.setPosition(e.pos, t)
	e.lastLogoff = t
	e.env.Sched.Schedule(&model.FleetControlEvent{At: t})
}

func (e *Electric) canDriveHome() bool {
	if e.pos.DistanceTo(e.home) >= e.remainingRangeBrutto() {
		return false
	}
	r, err := e.env.Router.Route(e.pos, e.home)
	if err != nil {
		return false
	}
	return r.Distance < e.remainingRangeBrutto()
}

// TryToPlaceAssignment offers the demand to the taxi. On acceptance the
// taxi commits; on denial a reason is recorded and nothing changes.
func (e *Electric) TryToPlaceAssignment(d *model.Demand) bool {
	if !e.isPossibleToServe(d) {
		return false
	}
	e.placeAssignment(d)
	return true
}

// isPossibleToServe runs the range-aware feasibility chain. Every failure
// records a distinct denial reason and short-circuits.
func (e *Electric) isPossibleToServe(d *model.Demand) bool {
	if !e.IsFree() || e.MaxActiveExceeded(d.Time) {
		e.deny(d, stats.DeniedBusy, -1)
		return false
	}
	if e.status == AtChargingPoint {
		station, _ := e.connected.(*facility.ChargingStation)
		if station == nil || !station.MayTerminateCharging(e, d.Time) || e.SOC() < e.ep.StopChargeMinSOC {
			e.deny(d, stats.DeniedCharging, -1)
			return false
		}
	}
	if e.remainingRangeNet() == 0 {
		e.deny(d, stats.DeniedLowSOC, -1)
		return false
	}
	distance := d.Distance
	if !e.canDrive(distance) {
		e.deny(d, stats.DeniedLowSOC, -1)
		return false
	}
	if _, err := e.env.Router.Route(d.Pickup, d.Dropoff); err != nil {
		e.deny(d, stats.DeniedNoRoute, -1)
		return false
	}
	approach, err := e.env.Router.Route(e.pos, d.Pickup)
	if err != nil {
		e.deny(d, stats.DeniedNoRoute, -1)
		return false
	}
	distance += approach.Distance
	if !e.canDrive(distance) {
		e.deny(d, stats.DeniedLowSOC, approach.Distance)
		return false
	}
	station := e.env.Facilities.ClosestFreeStation(e.ci, d.Dropoff, e.targetFacility)
	if station == nil {
		e.deny(d, stats.DeniedNoStation, approach.Distance)
		return false
	}
	toStation, err := e.env.Router.Route(d.Dropoff, station.Position())
	if err != nil {
		e.deny(d, stats.DeniedNoRoute, approach.Distance)
		return false
	}
	distance += toStation.Distance
	if !e.canDrive(distance) {
		e.deny(d, stats.DeniedNoStation, approach.Distance)
		return false
	}
	return true
}

func (e *Electric) deny(d *model.Demand, reason stats.DenialReason, toCustomerM float64) {
	e.env.Sink.RecordDeniedRide(stats.DeniedRide{
		Time: d.Time, TrackID: d.TrackID, VehicleID: e.id,
		Reason: reason, TripM: d.Distance, ToCustomerM: toCustomerM,
	})
}

func (e *Electric) placeAssignment(d *model.Demand) {
	e.setCustomerRide(d)
	if !e.quitCurrentTask(d.Time) {
		panic(fmt.Sprintf("car %s: accepted assignment but could not vacate previous task", e.id))
	}
	if e.pos.SamePoint(d.Pickup) {
		e.startCustomerRide(d.Time)
	} else {
		e.startRideToCustomer()
	}
}

func (e *Electric) quitCurrentTask(t sim.Time) bool {
	switch e.status {
	case AtRank:
		return e.logOutAtRank(t)
	case OnWayToRank:
		return e.abortRide(t)
	case AtChargingPoint:
		return e.logOutAtChargingPoint(t)
	case WaitForCharging:
		return e.abortWaitingForCharging(t)
	default:
		return false
	}
}

func (e *Electric) abortRide(t sim.Time) bool {
	e.clearRide()
	e.setPosition(e.pos, t)
	return true
}

// UpdatePosition consumes the next buffered waypoint. While on the way to
// a rank the remaining range is re-evaluated at every waypoint; dropping
// below the recharge trigger redirects the taxi to a charging station.
func (e *Electric) UpdatePosition() {
	wp := e.popWaypoint()
	e.setPosition(wp.pos, wp.at)
	if e.status == OnWayToRank && e.shouldRecharge() {
		e.abortRide(wp.at)
		station := e.findNextChargingStation()
		if station == nil {
			e.env.Log.Errorf("car %s: range low and no charging station in reach", e.id)
			return
		}
		e.trackID = e.newTrackID()
		e.status = OnWayToChargingPoint
		e.targetFacility = station.ID()
		r, err := e.env.Router.Route(e.pos, station.Position())
		if err != nil {
			e.env.Log.Errorf("car %s: no route to station %s: %v", e.id, station.ID(), err)
			return
		}
		e.setRoute(r, wp.at)
	}
	if len(e.route) > 0 {
		e.scheduleLocationUpdate(e, e.route[0].at)
		return
	}
	e.NextAction(wp.at)
}

// NextAction dispatches on the status at the end of a route.
func (e *Electric) NextAction(t sim.Time) {
	switch e.status {
	case OnWayToCustomer:
		e.setPosition(e.ride.Pickup, t)
		e.startCustomerRide(t)
	case Occupied:
		e.ride = nil
		switch {
		case e.MaxActiveExceeded(t):
			e.status = OnWayToRank
			e.TriggerLogOff(t)
		case e.shouldRecharge():
			e.startRideToNextChargingStation(t)
		default:
			e.startRideToNextRank(t)
		}
	case OnWayToRank:
		if e.MaxActiveExceeded(t) {
			e.TriggerLogOff(t)
		} else {
			e.logInAtRank(t)
		}
	case OnWayToChargingPoint:
		e.logInAtChargingPoint(t)
	case AtChargingPoint:
		if e.MaxActiveExceeded(t) {
			e.TriggerLogOff(t)
		} else if e.logOutAtChargingPoint(t) {
			e.startRideToNextRank(t)
		}
	case OnWayBackHome:
		e.logOff(t)
	default:
		panic(fmt.Sprintf("car %s: invalid status %s at route end", e.id, e.status))
	}
}

// ApplyCharge adds charged energy to the battery and logs a trackpoint.
// Sessions running past the maximum active time trigger the log-off.
func (e *Electric) ApplyCharge(t sim.Time, energyJ float64) {
	e.bat.Charge(energyJ)
	if !e.logOffTriggered && e.MaxActiveExceeded(t) {
		e.TriggerLogOff(t)
	}
	e.recordTrackpoint(t, 0, e.SOC())
}

// RetryChargingLogin is called by a station when the slot the taxi was
// waiting for freed up.
func (e *Electric) RetryChargingLogin(t sim.Time) {
	e.logInAtChargingPoint(t)
}

func (e *Electric) startRideToRank(rank *facility.TaxiRank, t sim.Time) {
	e.targetFacility = rank.ID()
	e.trackID = e.newTrackID()
	e.status = OnWayToRank
	r, err := e.env.Router.Route(e.pos, rank.Position())
	if err != nil {
		e.env.Log.Errorf("car %s: no route to rank %s: %v", e.id, rank.ID(), err)
		return
	}
	e.setRoute(r, t)
	e.UpdatePosition()
}

// startRideToNextRank falls back to a charging detour when the best rank
// is out of drivable range.
func (e *Electric) startRideToNextRank(t sim.Time) {
	rank := e.env.Facilities.BestRank(t, e.targetFacility)
	if rank == nil {
		e.env.Log.Errorf("car %s: no taxi rank available", e.id)
		return
	}
	r, err := e.env.Router.Route(e.pos, rank.Position())
	if err != nil || !e.canDrive(r.Distance) {
		e.startRideToNextChargingStation(t)
		return
	}
	e.targetFacility = rank.ID()
	e.trackID = e.newTrackID()
	e.status = OnWayToRank
	e.setRoute(r, t)
	e.UpdatePosition()
}

func (e *Electric) startRideToCustomer() {
	e.trackID = e.newTrackID()
	e.status = OnWayToCustomer
	r, err := e.env.Router.Route(e.pos, e.ride.Pickup)
	if err != nil {
		e.env.Log.Errorf("car %s: no route to customer %d: %v", e.id, e.ride.TrackID, err)
		return
	}
	e.setRoute(r, e.ride.Time)
	e.UpdatePosition()
}

func (e *Electric) startCustomerRide(t sim.Time) {
	d := e.ride
	e.trackID = d.TrackID
	e.status = Occupied
	e.route = append(e.route,
		waypointAt{pos: d.Pickup, at: t},
		waypointAt{pos: d.Dropoff, at: t + d.Duration},
	)
	e.UpdatePosition()
}

// startRideHome falls back to a charging detour when home is out of
// range.
func (e *Electric) startRideHome(t sim.Time) {
	if !e.canDriveHome() {
		e.startRideToNextChargingStation(t)
		return
	}
	e.trackID = e.newTrackID()
	e.status = OnWayBackHome
	r, err := e.env.Router.Route(e.pos, e.home)
	if err != nil {
		e.env.Log.Errorf("car %s: no route home: %v", e.id, err)
		return
	}
	e.setRoute(r, t)
	e.UpdatePosition()
}

func (e *Electric) startRideToNextChargingStation(t sim.Time) {
	station := e.findNextChargingStation()
	if station == nil {
		e.env.Log.Errorf("car %s: no charging station in remaining range", e.id)
		return
	}
	e.startRideToChargingStation(station, t)
}

func (e *Electric) startRideToChargingStation(station *facility.ChargingStation, t sim.Time) {
	e.targetFacility = station.ID()
	e.trackID = e.newTrackID()
	e.status = OnWayToChargingPoint
	r, err := e.env.Router.Route(e.pos, station.Position())
	if err != nil {
		e.env.Log.Errorf("car %s: no route to station %s: %v", e.id, station.ID(), err)
		return
	}
	e.setRoute(r, t)
	e.UpdatePosition()
}

// findNextChargingStation picks a charging target in four steps: a
// stronger connector within a small detour when range allows, then any
// free compatible station in net range, then the closest compatible one
// accepting a queue, and as a last resort the same search with the
// brutto range.
func (e *Electric) findNextChargingStation() *facility.ChargingStation {
	d := e.env.Facilities
	remaining := e.remainingRangeNet()
	var station *facility.ChargingStation
	if remaining-e.ep.BestConnectorDetourM > 0 && e.targetFacility == "" {
		station = d.BestStationInRange(e.ci, e.pos, e.ep.BestConnectorDetourM, e.targetFacility)
	}
	if station == nil {
		station = d.FreeStationInRange(e.ci, e.pos, remaining, e.env.Router, e.targetFacility)
	}
	if station == nil {
		station = d.ClosestStationInRange(e.ci, e.pos, remaining, e.env.Router, e.targetFacility)
	}
	if station == nil {
		station = d.ClosestStationInRange(e.ci, e.pos, e.remainingRangeBrutto(), e.env.Router, e.targetFacility)
	}
	return station
}

func (e *Electric) logInAtRank(t sim.Time) bool {
	rank := e.env.Facilities.Rank(e.targetFacility)
	e.setPosition(rank.Position(), t)
	if !rank.CheckIn(e, t) {
		e.startRideToNextRank(t)
		return false
	}
	e.trackID = e.newTrackID()
	e.status = AtRank
	e.setConnected(rank)
	e.setPosition(rank.Position(), t)
	return true
}

func (e *Electric) logOutAtRank(t sim.Time) bool {
	rank, ok := e.connected.(*facility.TaxiRank)
	if !ok || !rank.CheckOut(e, t) {
		return false
	}
	e.setPosition(rank.Position(), t)
	e.setConnected(nil)
	return true
}

// logInAtChargingPoint runs the station admission flow. A denied check-in
// first tries another free station in range and only then joins the wait
// queue.
func (e *Electric) logInAtChargingPoint(t sim.Time) {
	station := e.env.Facilities.Station(e.targetFacility)
	if station == nil {
		panic(fmt.Sprintf("car %s: charging target %q is not a station", e.id, e.targetFacility))
	}
	e.setPosition(station.Position(), t)
	if station.CheckIn(e, t) {
		e.trackID = e.newTrackID()
		e.setConnected(station)
		e.status = AtChargingPoint
		e.setPosition(station.Position(), t)
		return
	}
	if other := e.env.Facilities.FreeStationInRange(e.ci, e.pos, e.remainingRangeNet(), e.env.Router, e.targetFacility); other != nil {
		e.startRideToChargingStation(other, t)
		return
	}
	e.trackID = e.newTrackID()
	station.LoginToQueue(e, t)
	e.connected = station
	e.targetFacility = station.ID()
	e.status = WaitForCharging
	e.setPosition(station.Position(), t)
}

func (e *Electric) logOutAtChargingPoint(t sim.Time) bool {
	station, ok := e.connected.(*facility.ChargingStation)
	if !ok || !station.CheckOut(e, t) {
		return false
	}
	e.setConnected(nil)
	return true
}

func (e *Electric) abortWaitingForCharging(t sim.Time) bool {
	station, ok := e.connected.(*facility.ChargingStation)
	if !ok || !station.AbortWaiting(e, t) {
		return false
	}
	e.setConnected(nil)
	return true
}
