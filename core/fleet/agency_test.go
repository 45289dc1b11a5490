package fleet

import (
	"math/rand"
	"testing"

	"github.com/evfleet/taxisim/core/battery"
	"github.com/evfleet/taxisim/core/charging"
	"github.com/evfleet/taxisim/core/facility"
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/model"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
	"github.com/evfleet/taxisim/core/vehicle"
	infralogger "github.com/evfleet/taxisim/infra/logger"
	infrarouting "github.com/evfleet/taxisim/infra/routing"
	infrastats "github.com/evfleet/taxisim/infra/stats"
)

type fleetFixture struct {
	sched  *sim.Scheduler
	dir    *facility.Directory
	sink   *infrastats.MemorySink
	env    vehicle.Env
	agency *Agency
}

func newFleetFixture() *fleetFixture {
	f := &fleetFixture{
		sched: sim.NewScheduler(),
		dir:   facility.NewDirectory(),
		sink:  infrastats.NewMemorySink(),
	}
	f.env = vehicle.Env{
		Sched:      f.sched,
		Facilities: f.dir,
		Router:     infrarouting.NewCrowFlightRouter(30, 1.0),
		Sink:       f.sink,
		Log:        infralogger.NopLogger{},
		Rand:       rand.New(rand.NewSource(1)),
	}
	f.agency = NewAgency(f.sink, infralogger.NopLogger{})
	return f
}

func (f *fleetFixture) addRank(id string, lat float64, capacity int) *facility.TaxiRank {
	r := facility.NewTaxiRank(id, geo.NewPosition(lat, 11.5), capacity, "", "", facility.DemandFigures{}, f.sink)
	f.dir.AddRank(r)
	return r
}

func (f *fleetFixture) addConventional(id string, homeLat float64) *vehicle.Conventional {
	par := vehicle.Params{MinActive: sim.Hour, MaxActive: 9 * sim.Hour, MinInactive: 8 * sim.Hour}
	c := vehicle.NewConventional(id, geo.NewPosition(homeLat, 11.5), f.env, par)
	f.agency.Add(c)
	return c
}

func (f *fleetFixture) drain(t *testing.T) {
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
		case *vehicle.LocationUpdate:
			e.Car.UpdatePosition()
		case *facility.ChargeUpdate:
			e.Point.UpdateCharge(e, e.At)
		case *model.FleetControlEvent:
		default:
			t.Fatalf("unexpected event %T", ev)
		}
	}
}

func testDemand(trackID int, at sim.Time) *model.Demand {
	return &model.Demand{
		TrackID: trackID, Time: at,
		Pickup:  geo.NewPosition(48.12, 11.5),
		Dropoff: geo.NewPosition(48.13, 11.5),
		Distance: 2000, Duration: 10 * sim.Minute,
	}
}

func TestAgencyFilters(t *testing.T) {
	f := newFleetFixture()
	f.addRank("R1", 48.11, 5)
	a := f.addConventional("a", 48.10)
	b := f.addConventional("b", 48.10)

	if got := len(f.agency.Inactive()); got != 2 {
		t.Fatalf("inactive = %d, want 2", got)
	}
	a.LogOn(0)
	f.drain(t)
	if got := len(f.agency.Free()); got != 1 {
		t.Fatalf("free = %d, want 1", got)
	}
	if got := len(f.agency.Active()); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}
	if f.agency.Inactive()[0] != vehicle.Agent(b) {
		t.Fatal("wrong vehicle reported inactive")
	}
}

func TestAgencyDispatchesByQueuePosition(t *testing.T) {
	f := newFleetFixture()
	f.addRank("R1", 48.11, 5)
	first := f.addConventional("first", 48.10)
	second := f.addConventional("second", 48.30)
	first.LogOn(0)
	second.LogOn(0)
	f.drain(t)

	// Both wait at the same rank; the head of the queue is dispatched.
	if !f.agency.TryToPlaceCustomerRequest(testDemand(1, sim.Hour)) {
		t.Fatal("request was not placed")
	}
	if len(f.sink.Served) != 1 {
		t.Fatalf("served = %d, want 1", len(f.sink.Served))
	}
	sr := f.sink.Served[0]
	if sr.VehicleID != "first" {
		t.Fatalf("served by %q, want the queue head", sr.VehicleID)
	}
	// The pickup distance is measured from the rank, before the vehicle
	// moves toward the customer.
	if sr.PickupM < 1000 || sr.PickupM > 1300 {
		t.Fatalf("pickup distance = %v, want roughly 1.1 km", sr.PickupM)
	}
	if !second.IsFree() {
		t.Fatal("queue tail should still be free")
	}
}

func TestAgencyFallsThroughToNextCandidate(t *testing.T) {
	f := newFleetFixture()
	f.addRank("R1", 48.11, 5)
	ep := vehicle.ElectricParams{
		RemainingRangeMinM:      1000,
		RemainingRangeRechargeM: 0, // never divert during this test
		StopChargeMinSOC:        70,
		StopChargeMaxSOC:        100,
		MinChargingDuration:     20 * sim.Minute,
		BestConnectorDetourM:    4000,
		CurveStep:               sim.Minute,
	}
	par := vehicle.Params{MinActive: sim.Hour, MaxActive: 9 * sim.Hour, MinInactive: 8 * sim.Hour}
	drained := vehicle.NewElectric("empty", geo.NewPosition(48.10, 11.5),
		battery.NewWithSOC(40, 3.6, 4.2, 0.9, 0.4),
		charging.NewInterface(charging.Connector{Type: charging.Type2, PMax: 22000}),
		20, f.env, par, ep)
	f.agency.Add(drained)
	backup := f.addConventional("backup", 48.10)

	drained.LogOn(0)
	backup.LogOn(0)
	f.drain(t)

	if !f.agency.TryToPlaceCustomerRequest(testDemand(1, sim.Hour)) {
		t.Fatal("request was not placed")
	}
	if f.sink.Served[0].VehicleID != "backup" {
		t.Fatalf("served by %q, want the conventional backup", f.sink.Served[0].VehicleID)
	}
	// The empty taxi left a denial behind before the fallback.
	if len(f.sink.Denied) != 1 || f.sink.Denied[0].VehicleID != "empty" {
		t.Fatalf("denials = %+v, want one by the empty taxi", f.sink.Denied)
	}
	if f.sink.Denied[0].Reason != stats.DeniedLowSOC {
		t.Fatalf("denial reason = %s, want SOC_TOO_LOW", f.sink.Denied[0].Reason)
	}
}

func TestAgencyRecordsFleetWideDenial(t *testing.T) {
	f := newFleetFixture()
	f.addRank("R1", 48.11, 5)
	f.addConventional("a", 48.10) // stays logged off

	if f.agency.TryToPlaceCustomerRequest(testDemand(9, sim.Hour)) {
		t.Fatal("request was placed without a free car")
	}
	if len(f.sink.Denied) != 1 {
		t.Fatalf("denials = %d, want 1", len(f.sink.Denied))
	}
	dr := f.sink.Denied[0]
	if dr.Reason != stats.DeniedNoFreeCar {
		t.Fatalf("reason = %s, want NO_FREE_CAR_FOUND", dr.Reason)
	}
	if dr.VehicleID != "" {
		t.Fatalf("vehicle id = %q, want empty for a fleet-wide denial", dr.VehicleID)
	}
	if dr.TrackID != 9 {
		t.Fatalf("track id = %d, want 9", dr.TrackID)
	}
}
