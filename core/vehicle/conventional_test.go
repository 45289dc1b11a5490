package vehicle

import (
	"math/rand"
	"testing"

	"github.com/evfleet/taxisim/core/facility"
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/model"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
	infralogger "github.com/evfleet/taxisim/infra/logger"
	infrarouting "github.com/evfleet/taxisim/infra/routing"
	infrastats "github.com/evfleet/taxisim/infra/stats"
)

type fixture struct {
	sched *sim.Scheduler
	dir   *facility.Directory
	sink  *infrastats.MemorySink
	env   Env
}

func newFixture() *fixture {
	f := &fixture{
		sched: sim.NewScheduler(),
		dir:   facility.NewDirectory(),
		sink:  infrastats.NewMemorySink(),
	}
	f.env = Env{
		Sched:      f.sched,
		Facilities: f.dir,
		Router:     infrarouting.NewCrowFlightRouter(30, 1.0),
		Sink:       f.sink,
		Log:        infralogger.NopLogger{},
		Rand:       rand.New(rand.NewSource(1)),
	}
	return f
}

func (f *fixture) addRank(id string, lat float64, capacity int) *facility.TaxiRank {
	r := facility.NewTaxiRank(id, geo.NewPosition(lat, 11.5), capacity, "", "", facility.DemandFigures{}, f.sink)
	f.dir.AddRank(r)
	return r
}

// drain runs the scheduler to completion, driving vehicles and charging
// points and discarding fleet-control pings.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	for i := 0; ; i++ {
		if i > 100000 {
			t.Fatal("scheduler did not drain")
		}
		ev, ok := f.sched.Pop()
		if !ok {
			return
		}
		switch e := ev.(type) {
		case *LocationUpdate:
			e.Car.UpdatePosition()
		case *facility.ChargeUpdate:
			e.Point.UpdateCharge(e, e.At)
		case *model.FleetControlEvent:
		default:
			t.Fatalf("unexpected event %T", ev)
		}
	}
}

func testShiftParams() Params {
	return Params{MinActive: sim.Hour, MaxActive: 9 * sim.Hour, MinInactive: 8 * sim.Hour}
}

func TestConventionalLogOnDrivesToRank(t *testing.T) {
	f := newFixture()
	rank := f.addRank("R1", 48.11, 5)
	c := NewConventional("taxi1", geo.NewPosition(48.10, 11.5), f.env, testShiftParams())

	if !c.LogOn(0) {
		t.Fatal("log on failed")
	}
	if c.Status() != OnWayToRank {
		t.Fatalf("status = %s, want on_way_to_rank", c.Status())
	}
	f.drain(t)
	if c.Status() != AtRank {
		t.Fatalf("status = %s, want at_rank", c.Status())
	}
	if !c.IsFree() || c.IsBusy() {
		t.Fatal("taxi at rank should be free")
	}
	if rank.QueueSize() != 1 {
		t.Fatalf("rank queue = %d, want 1", rank.QueueSize())
	}
	if c.Shift() != 1 {
		t.Fatalf("shift = %d, want 1", c.Shift())
	}
}

func TestConventionalLogOnRestGate(t *testing.T) {
	f := newFixture()
	f.addRank("R1", 48.11, 5)
	c := NewConventional("taxi1", geo.NewPosition(48.10, 11.5), f.env, testShiftParams())
	c.lastLogoff = 10 * sim.Hour

	// The rest must strictly exceed the minimum inactive duration.
	if c.LogOn(18 * sim.Hour) {
		t.Fatal("log on at the rest boundary succeeded")
	}
	if !c.LogOn(18*sim.Hour + 1) {
		t.Fatal("log on after the rest period failed")
	}
	if c.LogOn(19 * sim.Hour) {
		t.Fatal("log on while already on shift succeeded")
	}
}

func TestConventionalDeniesWhileLoggedOff(t *testing.T) {
	f := newFixture()
	f.addRank("R1", 48.11, 5)
	c := NewConventional("taxi1", geo.NewPosition(48.10, 11.5), f.env, testShiftParams())

	d := &model.Demand{TrackID: 7, Time: sim.Hour, Pickup: geo.NewPosition(48.12, 11.5), Dropoff: geo.NewPosition(48.13, 11.5), Distance: 2000, Duration: 10 * sim.Minute}
	if c.TryToPlaceAssignment(d) {
		t.Fatal("logged-off taxi accepted a ride")
	}
	if len(f.sink.Denied) != 1 {
		t.Fatalf("got %d denials, want 1", len(f.sink.Denied))
	}
	dr := f.sink.Denied[0]
	if dr.Reason != stats.DeniedBusy || dr.VehicleID != "taxi1" || dr.TrackID != 7 {
		t.Fatalf("unexpected denial record %+v", dr)
	}
}

func TestConventionalServesRideAndReturnsToRank(t *testing.T) {
	f := newFixture()
	rank := f.addRank("R1", 48.11, 5)
	c := NewConventional("taxi1", geo.NewPosition(48.10, 11.5), f.env, testShiftParams())
	c.LogOn(0)
	f.drain(t)

	d := &model.Demand{TrackID: 7, Time: 10 * sim.Minute, Pickup: geo.NewPosition(48.12, 11.5), Dropoff: geo.NewPosition(48.13, 11.5), Distance: 2000, Duration: 10 * sim.Minute}
	if !c.TryToPlaceAssignment(d) {
		t.Fatal("free taxi denied the ride")
	}
	if c.Status() != OnWayToCustomer {
		t.Fatalf("status = %s, want on_way_to_customer", c.Status())
	}
	// The assignment vacated the rank slot immediately.
	if rank.QueueSize() != 0 {
		t.Fatalf("rank queue = %d, want 0", rank.QueueSize())
	}

	f.drain(t)
	if c.Status() != AtRank {
		t.Fatalf("status = %s, want at_rank after the ride", c.Status())
	}
	if c.ride != nil {
		t.Fatal("ride still attached after completion")
	}
	// The customer leg reports the demand's recorded distance.
	found := false
	for _, tp := range f.sink.Trackpoints {
		if tp.Status == "occupied" && tp.DistanceM == 2000 {
			found = true
		}
	}
	if !found {
		t.Fatal("no occupied trackpoint with the demand distance")
	}
}

func TestConventionalLogOffCycle(t *testing.T) {
	f := newFixture()
	f.addRank("R1", 48.11, 5)
	c := NewConventional("taxi1", geo.NewPosition(48.10, 11.5), f.env, testShiftParams())
	c.LogOn(0)
	f.drain(t)

	// The shift is shorter than the minimum active duration.
	if c.TriggerLogOff(30 * sim.Minute) {
		t.Fatal("log off before the minimum active duration succeeded")
	}
	if !c.TriggerLogOff(2 * sim.Hour) {
		t.Fatal("log off after the minimum active duration failed")
	}
	if c.Status() != OnWayBackHome {
		t.Fatalf("status = %s, want on_way_back_home", c.Status())
	}
	f.drain(t)
	if c.Status() != LoggedOff {
		t.Fatalf("status = %s, want logged_off", c.Status())
	}
	if !c.Position().SamePoint(c.Home()) {
		t.Fatal("taxi did not end up at home")
	}
	if c.LastLogoff() < 2*sim.Hour {
		t.Fatalf("last logoff = %d, want at least 2 h", c.LastLogoff())
	}
}

func TestConventionalBusyDeniesFurtherRides(t *testing.T) {
	f := newFixture()
	f.addRank("R1", 48.11, 5)
	c := NewConventional("taxi1", geo.NewPosition(48.10, 11.5), f.env, testShiftParams())
	c.LogOn(0)
	f.drain(t)

	first := &model.Demand{TrackID: 1, Time: 10 * sim.Minute, Pickup: geo.NewPosition(48.12, 11.5), Dropoff: geo.NewPosition(48.13, 11.5), Distance: 2000, Duration: 10 * sim.Minute}
	if !c.TryToPlaceAssignment(first) {
		t.Fatal("first ride denied")
	}
	second := &model.Demand{TrackID: 2, Time: 11 * sim.Minute, Pickup: geo.NewPosition(48.12, 11.5), Dropoff: geo.NewPosition(48.13, 11.5), Distance: 2000, Duration: 10 * sim.Minute}
	if c.TryToPlaceAssignment(second) {
		t.Fatal("busy taxi accepted a second ride")
	}
	if got := f.sink.Denied[len(f.sink.Denied)-1].Reason; got != stats.DeniedBusy {
		t.Fatalf("denial reason = %s, want BUSY", got)
	}
}
