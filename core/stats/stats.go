// Package stats defines the simulation output records and the sink
// contract they are written through. Concrete sinks (memory, sqlite,
// influx) live under infra/stats.
package stats

import (
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/sim"
)

// FacilityAction tags a facility event record.
type FacilityAction string

const (
	ActionCheckIn        FacilityAction = "CHECKIN"
	ActionCheckOut       FacilityAction = "CHECKOUT"
	ActionCheckInDenied  FacilityAction = "CHECKIN_DENIED"
	ActionCheckInToQueue FacilityAction = "CHECK_IN_TO_QUEUE"
	ActionAbortWaiting   FacilityAction = "ABORT_WAITING"
)

// DenialReason explains why a customer request could not be served by a
// specific vehicle, or by the fleet as a whole.
type DenialReason string

const (
	DeniedBusy      DenialReason = "BUSY"
	DeniedCharging  DenialReason = "CHARGING"
	DeniedLowSOC    DenialReason = "SOC_TOO_LOW"
	DeniedNoRoute   DenialReason = "NO_ROUTE_FOUND"
	DeniedNoStation DenialReason = "NO_REACHABLE_CHARGING_STATION_FOUND"
	DeniedNoFreeCar DenialReason = "NO_FREE_CAR_FOUND"
)

// ControllerScope distinguishes the fleet controller's target curve from
// the counts it actually achieved.
type ControllerScope string

const (
	ScopeTarget ControllerScope = "TARGET"
	ScopeActual ControllerScope = "ACTUAL"
)

// Trackpoint records a vehicle position sample together with its status
// and, for electric vehicles, battery state. Shift counts log-ons, Track
// counts route legs within a shift, DistanceM is the distance driven
// since the previous trackpoint. FacilityID is set while the vehicle is
// connected to a rank or station.
type Trackpoint struct {
	Time       sim.Time
	VehicleID  string
	Shift      int
	Track      int
	Pos        geo.Position
	Status     string
	DistanceM  float64
	SOC        float64
	EnergyJ    float64
	FacilityID string
}

// FacilityEvent records a vehicle interacting with a rank or charging
// station, together with the facility's occupancy after the action.
type FacilityEvent struct {
	Time       sim.Time
	VehicleID  string
	FacilityID string
	Action     FacilityAction
	Connected  int
	Waiting    int
}

// EnergyEvent records energy transferred into a battery during one
// charging step. StationID is empty for home charging.
type EnergyEvent struct {
	Time      sim.Time
	VehicleID string
	StationID string
	PowerW    float64
	EnergyJ   float64
	Connector string
	PMaxW     float64
	SOC       float64
}

// DeniedRide records a customer request a vehicle (or the whole fleet)
// could not serve. VehicleID is empty when no vehicle was tried.
// ToCustomerM carries the routed approach distance when it was computed
// before the check failed, -1 otherwise.
type DeniedRide struct {
	Time        sim.Time
	TrackID     int
	VehicleID   string
	Reason      DenialReason
	TripM       float64
	ToCustomerM float64
}

// ControllerRecord samples the fleet controller, either its configured
// target or the active-vehicle count it reached.
type ControllerRecord struct {
	Time  sim.Time
	Scope ControllerScope
	Count int
}

// ServedRide records a demand event a vehicle accepted. PickupM is the
// straight-line distance between the vehicle and the pickup at assignment
// time.
type ServedRide struct {
	Time      sim.Time
	TrackID   int
	VehicleID string
	PickupM   float64
	TripM     float64
}

// Sink receives simulation records. Implementations must tolerate being
// called from the single simulation goroutine only; none of the methods
// may block on the simulation clock.
type Sink interface {
	RecordTrackpoint(tp Trackpoint)
	RecordFacilityEvent(ev FacilityEvent)
	RecordEnergy(ev EnergyEvent)
	RecordDeniedRide(dr DeniedRide)
	RecordServedRide(sr ServedRide)
	RecordController(cr ControllerRecord)
	Flush() error
	Close() error
}

// NopSink discards every record. It keeps call sites free of nil checks.
type NopSink struct{}

func (NopSink) RecordTrackpoint(Trackpoint)       {}
func (NopSink) RecordFacilityEvent(FacilityEvent) {}
func (NopSink) RecordEnergy(EnergyEvent)          {}
func (NopSink) RecordDeniedRide(DeniedRide)       {}
func (NopSink) RecordServedRide(ServedRide)       {}
func (NopSink) RecordController(ControllerRecord) {}
func (NopSink) Flush() error                      { return nil }
func (NopSink) Close() error                      { return nil }
