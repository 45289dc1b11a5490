// Package scenario owns the event loop that drives a simulation run.
// All simulation state is advanced strictly sequentially: events are
// popped from the scheduler one at a time and handled to completion
// before the next one is looked at.
package scenario

import (
	"context"

	"github.com/evfleet/taxisim/core/facility"
	"github.com/evfleet/taxisim/core/fleet"
	"github.com/evfleet/taxisim/core/logger"
	"github.com/evfleet/taxisim/core/model"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
	"github.com/evfleet/taxisim/core/vehicle"
)

// Scenario wires the scheduler, fleet and facilities together and runs
// the event loop until the queue is drained or the context is cancelled.
type Scenario struct {
	sched      *sim.Scheduler
	agency     *fleet.Agency
	controller *fleet.Controller
	facilities *facility.Directory
	sink       stats.Sink
	log        logger.Logger

	demandTotal int
	unserved    []*model.Demand
	now         sim.Time
}

func New(sched *sim.Scheduler, agency *fleet.Agency, controller *fleet.Controller, facilities *facility.Directory, sink stats.Sink, log logger.Logger) *Scenario {
	if sink == nil {
		sink = stats.NopSink{}
	}
	return &Scenario{
		sched:      sched,
		agency:     agency,
		controller: controller,
		facilities: facilities,
		sink:       sink,
		log:        log,
	}
}

func (s *Scenario) Agency() *fleet.Agency           { return s.agency }
func (s *Scenario) Controller() *fleet.Controller   { return s.controller }
func (s *Scenario) Facilities() *facility.Directory { return s.facilities }
func (s *Scenario) Scheduler() *sim.Scheduler       { return s.sched }

// Now reports the time of the last handled event.
func (s *Scenario) Now() sim.Time { return s.now }

// Unserved returns the customer requests no vehicle could serve.
func (s *Scenario) Unserved() []*model.Demand { return s.unserved }

// AddDemand seeds a customer request into the event queue.
func (s *Scenario) AddDemand(d *model.Demand) {
	s.demandTotal++
	s.sched.Schedule(d)
}

// AddTargetEvent seeds a fleet target change into the event queue.
func (s *Scenario) AddTargetEvent(ev *model.TargetCountEvent) {
	s.sched.Schedule(ev)
}

// Run drains the event queue. It returns the context error if the run
// was cancelled, nil when the queue emptied naturally. The sink is
// flushed in either case.
func (s *Scenario) Run(ctx context.Context) error {
	s.log.Infof("starting run: %d events queued, %d customer requests", s.sched.Len(), s.demandTotal)

	handled := 0
	for {
		select {
		case <-ctx.Done():
			s.log.Warnf("run cancelled after %d events at t=%d", handled, s.now)
			if err := s.sink.Flush(); err != nil {
				s.log.Errorf("flush results: %v", err)
			}
			return ctx.Err()
		default:
		}

		ev, ok := s.sched.Pop()
		if !ok {
			break
		}
		s.now = ev.ScheduledAt()
		s.handle(ev)
		handled++
	}

	s.log.Infof("run finished: %d events handled, %d of %d requests unserved",
		handled, len(s.unserved), s.demandTotal)
	if err := s.sink.Flush(); err != nil {
		s.log.Errorf("flush results: %v", err)
		return err
	}
	return nil
}

func (s *Scenario) handle(ev sim.Event) {
	switch e := ev.(type) {
	case *vehicle.LocationUpdate:
		e.Car.UpdatePosition()
	case *facility.ChargeUpdate:
		e.Point.UpdateCharge(e, e.At)
	case *model.Demand:
		if !s.agency.TryToPlaceCustomerRequest(e) {
			s.unserved = append(s.unserved, e)
		}
	case *model.TargetCountEvent:
		if err := s.controller.SetTarget(e.Count, e.At); err != nil {
			s.log.Errorf("set fleet target at t=%d: %v", e.At, err)
		}
	case *model.FleetControlEvent:
		s.controller.Rebalance(e.At)
	default:
		s.log.Errorf("unhandled event type %T at t=%d", ev, ev.ScheduledAt())
	}
}
