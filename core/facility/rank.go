package facility

import (
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
)

// DemandFigures holds a rank's average hourly customer demand for the
// four six-hour periods of the day.
type DemandFigures struct {
	From21To03 float64
	From03To09 float64
	From09To15 float64
	From15To21 float64
}

// At returns the figure for the period containing the given hour of day.
func (d DemandFigures) At(hour int) float64 {
	switch {
	case hour < 3:
		return d.From21To03
	case hour < 9:
		return d.From03To09
	case hour < 15:
		return d.From09To15
	case hour < 21:
		return d.From15To21
	default:
		return d.From21To03
	}
}

// TaxiRank is a FIFO queue of waiting taxis with finite capacity.
type TaxiRank struct {
	id          string
	pos         geo.Position
	capacity    int
	address     string
	description string
	demand      DemandFigures

	queue []Vehicle
	dir   *Directory
	sink  stats.Sink
}

// NewTaxiRank builds a rank. Address and description may be empty. The
// sink receives check-in/check-out records; pass nil to discard them.
func NewTaxiRank(id string, pos geo.Position, capacity int, address, description string, demand DemandFigures, sink stats.Sink) *TaxiRank {
	if sink == nil {
		sink = stats.NopSink{}
	}
	return &TaxiRank{
		id:          id,
		pos:         pos,
		capacity:    capacity,
		address:     address,
		description: description,
		demand:      demand,
		sink:        sink,
	}
}

func (r *TaxiRank) ID() string            { return r.id }
func (r *TaxiRank) Position() geo.Position { return r.pos }
func (r *TaxiRank) Capacity() int         { return r.capacity }
func (r *TaxiRank) Address() string       { return r.address }
func (r *TaxiRank) Description() string   { return r.description }

func (r *TaxiRank) HasSpace() bool      { return len(r.queue) < r.capacity }
func (r *TaxiRank) RemainingSpace() int { return r.capacity - len(r.queue) }
func (r *TaxiRank) QueueSize() int      { return len(r.queue) }

// QueuePosition returns the vehicle's index in the queue, or -1 if it is
// not queued here.
func (r *TaxiRank) QueuePosition(v Vehicle) int {
	for i, q := range r.queue {
		if q == v {
			return i
		}
	}
	return -1
}

// Demand returns the expected hourly customer demand at the given time.
func (r *TaxiRank) Demand(t sim.Time) float64 {
	return r.demand.At(t.HourOfDay())
}

// DemandWeight relates the rank's expected demand to the supply of taxis
// already waiting at ranks in the same area.
func (r *TaxiRank) DemandWeight(t sim.Time) float64 {
	waiting := 0
	if r.dir != nil {
		waiting = r.dir.CarsAtRanksInArea(r.pos.Area)
	}
	return r.Demand(t) / float64(waiting+1)
}

// CheckIn appends the vehicle to the queue tail. It fails when the rank
// is full.
func (r *TaxiRank) CheckIn(v Vehicle, t sim.Time) bool {
	if !r.HasSpace() {
		r.sink.RecordFacilityEvent(stats.FacilityEvent{
			Time: t, VehicleID: v.ID(), FacilityID: r.id,
			Action: stats.ActionCheckInDenied, Connected: len(r.queue),
		})
		return false
	}
	r.queue = append(r.queue, v)
	r.sink.RecordFacilityEvent(stats.FacilityEvent{
		Time: t, VehicleID: v.ID(), FacilityID: r.id,
		Action: stats.ActionCheckIn, Connected: len(r.queue),
	})
	return true
}

// CheckOut removes the vehicle from anywhere in the queue.
func (r *TaxiRank) CheckOut(v Vehicle, t sim.Time) bool {
	for i, q := range r.queue {
		if q == v {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			r.sink.RecordFacilityEvent(stats.FacilityEvent{
				Time: t, VehicleID: v.ID(), FacilityID: r.id,
				Action: stats.ActionCheckOut, Connected: len(r.queue),
			})
			return true
		}
	}
	return false
}
