// Package fleet holds the taxi fleet and the two components acting on it
// as a whole: the Agency matching customer demand to vehicles and the
// Controller regulating the active fleet size.
package fleet

import (
	"github.com/evfleet/taxisim/core/logger"
	"github.com/evfleet/taxisim/core/model"
	"github.com/evfleet/taxisim/core/policy"
	"github.com/evfleet/taxisim/core/stats"
	"github.com/evfleet/taxisim/core/vehicle"
)

// Agency owns the fleet and assigns customer requests. Vehicles are
// offered a ride in dispatch order until one accepts.
type Agency struct {
	fleet []vehicle.Agent
	sink  stats.Sink
	log   logger.Logger
}

// NewAgency builds an empty agency. Pass nil to discard statistics.
func NewAgency(sink stats.Sink, log logger.Logger) *Agency {
	if sink == nil {
		sink = stats.NopSink{}
	}
	return &Agency{sink: sink, log: log}
}

// Add registers a vehicle with the fleet.
func (a *Agency) Add(v vehicle.Agent) { a.fleet = append(a.fleet, v) }

// Fleet returns the full fleet in registration order.
func (a *Agency) Fleet() []vehicle.Agent { return a.fleet }

// Free returns the vehicles currently able to accept a request.
func (a *Agency) Free() []vehicle.Agent { return a.filter(vehicle.Agent.IsFree) }

// Busy returns the vehicles bound to an ongoing task.
func (a *Agency) Busy() []vehicle.Agent { return a.filter(vehicle.Agent.IsBusy) }

// Inactive returns the logged-off vehicles.
func (a *Agency) Inactive() []vehicle.Agent { return a.filter(vehicle.Agent.IsLoggedOff) }

// Active returns the vehicles on shift. A vehicle already heading home
// does not count as active anymore.
func (a *Agency) Active() []vehicle.Agent {
	return a.filter(func(v vehicle.Agent) bool {
		return !v.IsLoggedOff() && v.Status() != vehicle.OnWayBackHome
	})
}

func (a *Agency) filter(keep func(vehicle.Agent) bool) []vehicle.Agent {
	var out []vehicle.Agent
	for _, v := range a.fleet {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// nextCarChain orders candidate vehicles for a pickup position: closest
// first, then by rank-queue position, then preferring the fullest battery
// among those sitting at a charging station.
func nextCarChain(d *model.Demand) policy.Chain[vehicle.Agent] {
	return policy.Chain[vehicle.Agent]{
		policy.Asc(func(v vehicle.Agent) float64 { return v.Position().DistanceTo(d.Pickup) }),
		policy.Asc(func(v vehicle.Agent) float64 { return float64(v.RankPosition()) }),
		policy.Desc(vehicle.Agent.ChargingSOC),
	}
}

// TryToPlaceCustomerRequest offers the demand to every free vehicle in
// dispatch order until one accepts. When the set is exhausted a fleet-wide
// denial is recorded.
func (a *Agency) TryToPlaceCustomerRequest(d *model.Demand) bool {
	free := a.Free()
	nextCarChain(d).Sort(free)
	for _, v := range free {
		pickupM := v.Position().DistanceTo(d.Pickup)
		if !v.TryToPlaceAssignment(d) {
			continue
		}
		a.sink.RecordServedRide(stats.ServedRide{
			Time: d.Time, TrackID: d.TrackID, VehicleID: v.ID(),
			PickupM: pickupM, TripM: d.Distance,
		})
		return true
	}
	a.log.Debugf("demand %d: no free car found", d.TrackID)
	a.sink.RecordDeniedRide(stats.DeniedRide{
		Time: d.Time, TrackID: d.TrackID,
		Reason: stats.DeniedNoFreeCar, TripM: d.Distance, ToCustomerM: -1,
	})
	return false
}
