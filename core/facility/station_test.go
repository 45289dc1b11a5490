package facility

import (
	"math"
	"testing"

	"github.com/evfleet/taxisim/core/battery"
	"github.com/evfleet/taxisim/core/charging"
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/sim"
)

// stubEV is a minimal electric taxi for station tests.
type stubEV struct {
	id        string
	pos       geo.Position
	ci        *charging.Interface
	bat       *battery.Battery
	minCharge sim.Time
	maxSOC    float64

	nextActions []sim.Time
	retries     []sim.Time
}

func (e *stubEV) ID() string                             { return e.id }
func (e *stubEV) Position() geo.Position                 { return e.pos }
func (e *stubEV) ChargingInterface() *charging.Interface { return e.ci }
func (e *stubEV) Battery() *battery.Battery              { return e.bat }
func (e *stubEV) SOC() float64                           { return e.bat.SOC() }
func (e *stubEV) MinChargingDuration() sim.Time          { return e.minCharge }
func (e *stubEV) StopChargeMaxSOC() float64              { return e.maxSOC }
func (e *stubEV) ApplyCharge(t sim.Time, energyJ float64) { e.bat.Charge(energyJ) }
func (e *stubEV) NextAction(t sim.Time)                  { e.nextActions = append(e.nextActions, t) }
func (e *stubEV) RetryChargingLogin(t sim.Time)          { e.retries = append(e.retries, t) }

var _ ElectricVehicle = (*stubEV)(nil)

func testParams() ChargingParams {
	return ChargingParams{UpdateInterval: sim.Minute, CurveStep: sim.Minute}
}

func newStubEV(id string, soc float64, types ...charging.ConnectorType) *stubEV {
	conns := make([]charging.Connector, len(types))
	for i, ct := range types {
		conns[i] = charging.Connector{Type: ct, PMax: 100000}
	}
	return &stubEV{
		id:        id,
		ci:        charging.NewInterface(conns...),
		bat:       battery.NewWithSOC(40, 3.6, 4.2, 0.9, soc),
		minCharge: 20 * sim.Minute,
		maxSOC:    100,
	}
}

func newTestStation(t *testing.T, id string, sched *sim.Scheduler, pointConns ...charging.Connector) *ChargingStation {
	t.Helper()
	points := make([]*ChargingPoint, len(pointConns))
	for i, c := range pointConns {
		points[i] = NewChargingPoint(charging.NewInterface(c), testParams(), sched, nil)
	}
	s, err := NewChargingStation(id, geo.NewPosition(48.1, 11.5), points, nil)
	if err != nil {
		t.Fatalf("new station: %v", err)
	}
	return s
}

func TestNewChargingStationNeedsPoints(t *testing.T) {
	if _, err := NewChargingStation("S1", geo.Position{}, nil, nil); err == nil {
		t.Fatal("expected error for station without points")
	}
}

func TestStationCheckInPicksStrongestPoint(t *testing.T) {
	sched := sim.NewScheduler()
	s := newTestStation(t, "S1", sched,
		charging.Connector{Type: charging.Type2, PMax: 22000},
		charging.Connector{Type: charging.CCS, PMax: 50000},
	)
	car := newStubEV("ev1", 50, charging.Type2, charging.CCS)

	if !s.CheckIn(car, 0) {
		t.Fatal("check-in failed")
	}
	if s.active[car.ID()] != s.points[1] {
		t.Fatal("car connected to the weaker point")
	}
	// Only the Type2 point is still free.
	best, ok := s.BestConnector(car.ci)
	if !ok || best.Type != charging.Type2 {
		t.Fatalf("free best connector = %v, want TYP2", best.Type)
	}
}

func TestStationCheckInFailsWhenOccupied(t *testing.T) {
	sched := sim.NewScheduler()
	s := newTestStation(t, "S1", sched, charging.Connector{Type: charging.Type2, PMax: 22000})
	a := newStubEV("a", 50, charging.Type2)
	b := newStubEV("b", 50, charging.Type2)

	if !s.CheckIn(a, 0) {
		t.Fatal("first check-in failed")
	}
	if s.CheckIn(b, 0) {
		t.Fatal("check-in at occupied station succeeded")
	}
	if s.HasFreePoints(b.ci) {
		t.Fatal("occupied station reports free points")
	}
}

func TestConnectSchedulesFirstUpdateAfterPlugIn(t *testing.T) {
	sched := sim.NewScheduler()
	plugIn := 3 * sim.Minute
	s := newTestStation(t, "S1", sched,
		charging.Connector{Type: charging.Type2, PMax: 22000, PlugIn: plugIn},
	)
	car := newStubEV("ev1", 50, charging.Type2)
	if !s.CheckIn(car, 10*sim.Minute) {
		t.Fatal("check-in failed")
	}

	ev, ok := sched.Pop()
	if !ok {
		t.Fatal("no charge update scheduled")
	}
	cu, ok := ev.(*ChargeUpdate)
	if !ok {
		t.Fatalf("scheduled event is %T, want *ChargeUpdate", ev)
	}
	if cu.At != 10*sim.Minute+sim.Minute+plugIn {
		t.Fatalf("first update at %d, want %d", cu.At, 10*sim.Minute+sim.Minute+plugIn)
	}
	if cu.Posted != 10*sim.Minute+plugIn {
		t.Fatalf("posted = %d, want %d", cu.Posted, 10*sim.Minute+plugIn)
	}
}

func TestUpdateChargeDeliversIntervalEnergy(t *testing.T) {
	sched := sim.NewScheduler()
	rec := &recordingSink{}
	p := NewChargingPoint(charging.NewInterface(charging.Connector{Type: charging.Type2, PMax: 22000}), testParams(), sched, rec)
	s, err := NewChargingStation("S1", geo.NewPosition(48.1, 11.5), []*ChargingPoint{p}, rec)
	if err != nil {
		t.Fatalf("new station: %v", err)
	}
	car := newStubEV("ev1", 50, charging.Type2)
	before := car.bat.Energy()
	if !s.CheckIn(car, 0) {
		t.Fatal("check-in failed")
	}

	ev, _ := sched.Pop()
	cu := ev.(*ChargeUpdate)
	cu.Point.UpdateCharge(cu, cu.At)

	// One minute at 22 kW, well below the charging-curve inflection.
	want := 22000 * 60.0 * car.bat.Efficiency()
	if got := car.bat.Energy() - before; math.Abs(got-want) > 1e-6 {
		t.Fatalf("delivered %v J, want %v", got, want)
	}
	// Plug-in marker plus one charged step.
	if len(rec.energy) != 2 {
		t.Fatalf("got %d energy events, want 2", len(rec.energy))
	}
	if rec.energy[0].PowerW != 0 {
		t.Fatalf("plug-in event power = %v, want 0", rec.energy[0].PowerW)
	}
	if rec.energy[1].EnergyJ != 22000*60 {
		t.Fatalf("step energy = %v, want %v", rec.energy[1].EnergyJ, 22000*60.0)
	}
	// The session continues: a follow-up update is pending.
	if _, ok := sched.Pop(); !ok {
		t.Fatal("no follow-up update scheduled")
	}
}

func TestCheckOutGatedByMinimumChargingDuration(t *testing.T) {
	sched := sim.NewScheduler()
	s := newTestStation(t, "S1", sched, charging.Connector{Type: charging.Type2, PMax: 22000})
	car := newStubEV("ev1", 50, charging.Type2)
	s.CheckIn(car, 0)

	if s.MayTerminateCharging(car, 10*sim.Minute) {
		t.Fatal("termination allowed before minimum duration")
	}
	if s.CheckOut(car, 10*sim.Minute) {
		t.Fatal("check-out before minimum duration succeeded")
	}
	if !s.CheckOut(car, 21*sim.Minute) {
		t.Fatal("check-out after minimum duration failed")
	}
	if !s.HasFreePoints(car.ci) {
		t.Fatal("point still occupied after check-out")
	}
}

func TestCheckOutPopsWaitingQueueHead(t *testing.T) {
	sched := sim.NewScheduler()
	s := newTestStation(t, "S1", sched, charging.Connector{Type: charging.Type2, PMax: 22000})
	occupant := newStubEV("occupant", 50, charging.Type2)
	first := newStubEV("first", 40, charging.Type2)
	second := newStubEV("second", 30, charging.Type2)

	s.CheckIn(occupant, 0)
	s.LoginToQueue(first, 1*sim.Minute)
	s.LoginToQueue(second, 2*sim.Minute)

	if !s.CheckOut(occupant, 30*sim.Minute) {
		t.Fatal("check-out failed")
	}
	if len(first.retries) != 1 || first.retries[0] != 30*sim.Minute {
		t.Fatalf("head retries = %v, want one at 30 min", first.retries)
	}
	if len(second.retries) != 0 {
		t.Fatal("second waiter was woken out of turn")
	}
	if s.QueueSize() != 1 {
		t.Fatalf("queue size = %d, want 1", s.QueueSize())
	}
}

func TestAbortWaitingRemovesFromQueue(t *testing.T) {
	sched := sim.NewScheduler()
	s := newTestStation(t, "S1", sched, charging.Connector{Type: charging.Type2, PMax: 22000})
	a := newStubEV("a", 50, charging.Type2)
	b := newStubEV("b", 50, charging.Type2)
	s.LoginToQueue(a, 0)
	s.LoginToQueue(b, 0)

	if !s.AbortWaiting(a, 1) {
		t.Fatal("abort of queued vehicle failed")
	}
	if s.AbortWaiting(a, 1) {
		t.Fatal("second abort of same vehicle succeeded")
	}
	if s.QueueSize() != 1 {
		t.Fatalf("queue size = %d, want 1", s.QueueSize())
	}
}

func TestFullBatteryWaitsForMinimumDuration(t *testing.T) {
	sched := sim.NewScheduler()
	s := newTestStation(t, "S1", sched, charging.Connector{Type: charging.Type2, PMax: 22000})
	car := newStubEV("ev1", 100, charging.Type2)
	s.CheckIn(car, 0)

	var handed sim.Time = -1
	for {
		ev, ok := sched.Pop()
		if !ok {
			break
		}
		cu := ev.(*ChargeUpdate)
		cu.Point.UpdateCharge(cu, cu.At)
		if len(car.nextActions) > 0 {
			handed = car.nextActions[0]
			break
		}
	}
	// Control goes back to the car on the first update past the
	// twenty-minute minimum, not when the battery tops out.
	if handed != 21*sim.Minute {
		t.Fatalf("handed back at %d, want %d", handed, 21*sim.Minute)
	}
}

func TestDisconnectChargesPartialInterval(t *testing.T) {
	sched := sim.NewScheduler()
	s := newTestStation(t, "S1", sched, charging.Connector{Type: charging.Type2, PMax: 22000})
	car := newStubEV("ev1", 50, charging.Type2)
	car.minCharge = 0
	before := car.bat.Energy()
	s.CheckIn(car, 0)

	// Check out mid-interval: the thirty seconds since the last posted
	// update must still be charged.
	if !s.CheckOut(car, 30*sim.Second) {
		t.Fatal("check-out failed")
	}
	want := 22000 * 30.0 * car.bat.Efficiency()
	if got := car.bat.Energy() - before; math.Abs(got-want) > 1e-6 {
		t.Fatalf("delivered %v J, want %v", got, want)
	}
	// The pending update was cancelled with the session.
	if _, ok := sched.Pop(); ok {
		t.Fatal("stale charge update left in the scheduler")
	}
}
