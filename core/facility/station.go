package facility

import (
	"fmt"

	"github.com/evfleet/taxisim/core/battery"
	"github.com/evfleet/taxisim/core/charging"
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
)

// ChargingParams are the session parameters shared by every charging
// point: how often a connected car's charge is re-posted and the numeric
// step of the charging-curve integration.
type ChargingParams struct {
	UpdateInterval sim.Time
	CurveStep      sim.Time
}

// ChargeUpdate advances a charging session. Posted is the time the
// session is already accounted up to; the gap between Posted and At is
// charged when the event fires.
type ChargeUpdate struct {
	At     sim.Time
	Posted sim.Time
	Point  *ChargingPoint
}

func (e *ChargeUpdate) ScheduledAt() sim.Time { return e.At }

// ChargingPoint is one plug position of a station. At most one car is
// connected at a time.
type ChargingPoint struct {
	station *ChargingStation
	ci      *charging.Interface
	params  ChargingParams
	sched   *sim.Scheduler
	sink    stats.Sink

	connected      ElectricVehicle
	connectedSince sim.Time
	connector      charging.Connector
	next           *ChargeUpdate
}

// NewChargingPoint builds a point offering the given connectors. The
// point is wired to its station by NewChargingStation.
func NewChargingPoint(ci *charging.Interface, params ChargingParams, sched *sim.Scheduler, sink stats.Sink) *ChargingPoint {
	if sink == nil {
		sink = stats.NopSink{}
	}
	return &ChargingPoint{ci: ci, params: params, sched: sched, sink: sink}
}

// Available reports whether no car is connected.
func (p *ChargingPoint) Available() bool { return p.connected == nil }

// CompatibleWith reports whether the point offers a connector type the
// given interface also has.
func (p *ChargingPoint) CompatibleWith(ci *charging.Interface) bool {
	return p.ci.CompatibleWith(ci)
}

// BestConnector returns the highest-power connector the point and the
// given interface support together.
func (p *ChargingPoint) BestConnector(ci *charging.Interface) (charging.Connector, bool) {
	return p.ci.BestCommon(ci)
}

// ConnectedSince returns the session start time, or -1 when idle.
func (p *ChargingPoint) ConnectedSince() sim.Time {
	if p.connected == nil {
		return -1
	}
	return p.connectedSince
}

// Connect plugs the car in and schedules the first charge update one
// update interval after the plug-in delay of the session connector.
func (p *ChargingPoint) Connect(car ElectricVehicle, t sim.Time) bool {
	if p.connected != nil || !p.CompatibleWith(car.ChargingInterface()) {
		return false
	}
	conn, ok := p.BestConnector(car.ChargingInterface())
	if !ok {
		return false
	}
	p.connected = car
	p.connectedSince = t
	p.connector = conn
	p.next = &ChargeUpdate{At: t + p.params.UpdateInterval + conn.PlugIn, Posted: t + conn.PlugIn, Point: p}
	p.sched.Schedule(p.next)
	p.sink.RecordEnergy(stats.EnergyEvent{
		Time: t, VehicleID: car.ID(), StationID: p.station.ID(),
		Connector: conn.Type.String(), PMaxW: conn.PMax, SOC: car.SOC(),
	})
	return true
}

// MayDisconnect reports whether the minimum charging duration of the
// connected car has elapsed. False when no car is connected.
func (p *ChargingPoint) MayDisconnect(t sim.Time) bool {
	if p.connected == nil {
		return false
	}
	return t-p.connectedSince > p.connected.MinChargingDuration()
}

// Disconnect unplugs the car. Energy accrued between the last posted
// update and now is charged first so no interval is lost; the pending
// update event is cancelled.
func (p *ChargingPoint) Disconnect(t sim.Time) bool {
	if p.connected == nil || !p.MayDisconnect(t) {
		return false
	}
	if p.next != nil {
		if p.next.Posted < t {
			p.chargeInterval(p.next.Posted, t, p.connected)
		}
		p.sched.Cancel(p.next)
		p.next = nil
	}
	p.connected = nil
	p.connectedSince = -1
	return true
}

// UpdateCharge is called by the driver when a ChargeUpdate fires. It
// charges the elapsed interval, then either schedules the next update or,
// once the car reached its stop-charge SOC, hands control back to the car.
func (p *ChargingPoint) UpdateCharge(ev *ChargeUpdate, now sim.Time) {
	if p.connected == nil || p.next != ev {
		return
	}
	car := p.connected
	// cleared before charging: a log-off triggered by an applied charge
	// disconnects mid-interval, and the partial interval must not be
	// charged a second time on the way out
	p.next = nil
	p.chargeInterval(ev.Posted, ev.At, car)
	if p.connected != car {
		return
	}
	// A full battery alone does not end the session; the minimum
	// charging duration must have elapsed too.
	if car.SOC() < car.StopChargeMaxSOC() || !p.MayDisconnect(now) {
		p.next = &ChargeUpdate{At: ev.At + p.params.UpdateInterval, Posted: ev.At, Point: p}
		p.sched.Schedule(p.next)
		return
	}
	car.NextAction(now)
}

func (p *ChargingPoint) chargeInterval(from, to sim.Time, car ElectricVehicle) {
	b := car.Battery()
	at := from
	battery.ChargeSteps(to-from, p.params.CurveStep, p.connector.PMax, b, func(step sim.Time, energy float64) bool {
		if p.connected != car {
			return false
		}
		at += step
		car.ApplyCharge(at, energy)
		p.sink.RecordEnergy(stats.EnergyEvent{
			Time: at, VehicleID: car.ID(), StationID: p.station.ID(),
			PowerW: energy / step.Seconds(), EnergyJ: energy,
			Connector: p.connector.Type.String(), PMaxW: p.connector.PMax,
			SOC: car.SOC(),
		})
		return p.connected == car
	})
}

// ChargingStation is a set of charging points plus a FIFO queue of
// vehicles waiting for a compatible point to free up.
type ChargingStation struct {
	id     string
	pos    geo.Position
	points []*ChargingPoint
	queue  []ElectricVehicle
	active map[string]*ChargingPoint
	sink   stats.Sink
}

// NewChargingStation builds a station from at least one charging point.
func NewChargingStation(id string, pos geo.Position, points []*ChargingPoint, sink stats.Sink) (*ChargingStation, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("charging station %s: needs at least one charging point", id)
	}
	if sink == nil {
		sink = stats.NopSink{}
	}
	s := &ChargingStation{
		id:     id,
		pos:    pos,
		points: points,
		active: make(map[string]*ChargingPoint, len(points)),
		sink:   sink,
	}
	for _, p := range points {
		p.station = s
	}
	return s, nil
}

func (s *ChargingStation) ID() string             { return s.id }
func (s *ChargingStation) Position() geo.Position { return s.pos }
func (s *ChargingStation) Capacity() int          { return len(s.points) }
func (s *ChargingStation) HasSpace() bool         { return len(s.active) < len(s.points) }
func (s *ChargingStation) RemainingSpace() int    { return len(s.points) - len(s.active) }
func (s *ChargingStation) QueueSize() int         { return len(s.queue) }

// Compatible reports whether any point shares a connector type with the
// given interface, occupied or not.
func (s *ChargingStation) Compatible(ci *charging.Interface) bool {
	for _, p := range s.points {
		if p.CompatibleWith(ci) {
			return true
		}
	}
	return false
}

// HasFreePoints reports whether a currently available compatible point
// exists.
func (s *ChargingStation) HasFreePoints(ci *charging.Interface) bool {
	for _, p := range s.points {
		if p.Available() && p.CompatibleWith(ci) {
			return true
		}
	}
	return false
}

// BestConnector returns the strongest connector an available compatible
// point offers to the given interface.
func (s *ChargingStation) BestConnector(ci *charging.Interface) (charging.Connector, bool) {
	var best charging.Connector
	found := false
	for _, p := range s.points {
		if !p.Available() {
			continue
		}
		if c, ok := p.BestConnector(ci); ok && (!found || c.PMax > best.PMax) {
			best = c
			found = true
		}
	}
	return best, found
}

// CheckIn connects the car to the available compatible point offering the
// highest common power. It fails when every compatible point is occupied;
// the caller decides whether to queue or redirect.
func (s *ChargingStation) CheckIn(car ElectricVehicle, t sim.Time) bool {
	var best *ChargingPoint
	var bestPower float64
	for _, p := range s.points {
		if !p.Available() {
			continue
		}
		c, ok := p.BestConnector(car.ChargingInterface())
		if !ok {
			continue
		}
		if best == nil || c.PMax > bestPower {
			best, bestPower = p, c.PMax
		}
	}
	if best == nil || !best.Connect(car, t) {
		s.sink.RecordFacilityEvent(stats.FacilityEvent{
			Time: t, VehicleID: car.ID(), FacilityID: s.id,
			Action: stats.ActionCheckInDenied, Connected: len(s.active), Waiting: len(s.queue),
		})
		return false
	}
	s.active[car.ID()] = best
	s.sink.RecordFacilityEvent(stats.FacilityEvent{
		Time: t, VehicleID: car.ID(), FacilityID: s.id,
		Action: stats.ActionCheckIn, Connected: len(s.active), Waiting: len(s.queue),
	})
	return true
}

// CheckOut disconnects the car. On success, the longest-waiting queued
// vehicle is popped and told to retry its login at the freed point.
func (s *ChargingStation) CheckOut(car ElectricVehicle, t sim.Time) bool {
	p, ok := s.active[car.ID()]
	if !ok || !p.Disconnect(t) {
		return false
	}
	delete(s.active, car.ID())
	s.sink.RecordFacilityEvent(stats.FacilityEvent{
		Time: t, VehicleID: car.ID(), FacilityID: s.id,
		Action: stats.ActionCheckOut, Connected: len(s.active), Waiting: len(s.queue),
	})
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		next.RetryChargingLogin(t)
	}
	return true
}

// LoginToQueue appends the car to the waiting queue.
func (s *ChargingStation) LoginToQueue(car ElectricVehicle, t sim.Time) bool {
	s.queue = append(s.queue, car)
	s.sink.RecordFacilityEvent(stats.FacilityEvent{
		Time: t, VehicleID: car.ID(), FacilityID: s.id,
		Action: stats.ActionCheckInToQueue, Connected: len(s.active), Waiting: len(s.queue),
	})
	return true
}

// AbortWaiting removes the car from the waiting queue.
func (s *ChargingStation) AbortWaiting(car ElectricVehicle, t sim.Time) bool {
	for i, q := range s.queue {
		if q == car {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			s.sink.RecordFacilityEvent(stats.FacilityEvent{
				Time: t, VehicleID: car.ID(), FacilityID: s.id,
				Action: stats.ActionAbortWaiting, Connected: len(s.active), Waiting: len(s.queue),
			})
			return true
		}
	}
	return false
}

// MayTerminateCharging exposes the minimum-duration gate of the point the
// car is connected to.
func (s *ChargingStation) MayTerminateCharging(car ElectricVehicle, t sim.Time) bool {
	p, ok := s.active[car.ID()]
	if !ok {
		return false
	}
	return p.MayDisconnect(t)
}
