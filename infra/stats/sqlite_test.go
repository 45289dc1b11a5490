package stats

import (
	"path/filepath"
	"testing"

	corestats "github.com/evfleet/taxisim/core/stats"
	"github.com/evfleet/taxisim/core/sim"
)

func newTestSink(t *testing.T) *SQLiteSink {
	t.Helper()
	s, err := NewSQLiteSink(filepath.Join(t.TempDir(), "run.db"))
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func (s *SQLiteSink) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE run_id = ?", s.runID).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestSQLiteSinkPersistsOnFlush(t *testing.T) {
	s := newTestSink(t)
	s.RecordTrackpoint(corestats.Trackpoint{Time: sim.Minute, VehicleID: "taxi1", Status: "at_rank", SOC: 80})
	s.RecordFacilityEvent(corestats.FacilityEvent{Time: sim.Minute, VehicleID: "taxi1", FacilityID: "R1", Action: corestats.ActionCheckIn})
	s.RecordEnergy(corestats.EnergyEvent{Time: sim.Minute, VehicleID: "taxi1", StationID: "S1", EnergyJ: 1000})
	s.RecordDeniedRide(corestats.DeniedRide{Time: sim.Minute, TrackID: 1, Reason: corestats.DeniedBusy})
	s.RecordServedRide(corestats.ServedRide{Time: sim.Minute, TrackID: 2, VehicleID: "taxi1"})
	s.RecordController(corestats.ControllerRecord{Time: sim.Minute, Scope: corestats.ScopeTarget, Count: 10})

	// Records sit in the buffer until the flush.
	if got := s.countRows(t, "trackpoints"); got != 0 {
		t.Fatalf("trackpoints before flush = %d, want 0", got)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	for _, table := range []string{"trackpoints", "facility_events", "energy_events", "denied_rides", "served_rides", "controller"} {
		if got := s.countRows(t, table); got != 1 {
			t.Fatalf("%s = %d rows, want 1", table, got)
		}
	}
	// A second flush with an empty buffer writes nothing new.
	if err := s.Flush(); err != nil {
		t.Fatalf("empty flush: %v", err)
	}
	if got := s.countRows(t, "trackpoints"); got != 1 {
		t.Fatalf("trackpoints after empty flush = %d, want 1", got)
	}
}

func TestSQLiteSinkAutoFlushesFullBuffer(t *testing.T) {
	s := newTestSink(t)
	for i := 0; i < sqliteBatchSize; i++ {
		s.RecordTrackpoint(corestats.Trackpoint{Time: sim.Time(i), VehicleID: "taxi1"})
	}
	if got := s.countRows(t, "trackpoints"); got != sqliteBatchSize {
		t.Fatalf("trackpoints = %d, want the full batch %d", got, sqliteBatchSize)
	}
	if s.buf.size() != 0 {
		t.Fatalf("buffer size = %d after auto flush, want 0", s.buf.size())
	}
}

func TestSQLiteSinkSeparatesRuns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.db")
	first, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("open first: %v", err)
	}
	first.RecordServedRide(corestats.ServedRide{TrackID: 1})
	if err := first.Close(); err != nil {
		t.Fatalf("close first: %v", err)
	}

	second, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	defer func() { _ = second.Close() }()
	second.RecordServedRide(corestats.ServedRide{TrackID: 2})
	if err := second.Flush(); err != nil {
		t.Fatalf("flush second: %v", err)
	}

	if first.RunID() == second.RunID() {
		t.Fatal("both sinks share a run id")
	}
	// Only the second run's row carries the second run id.
	if got := second.countRows(t, "served_rides"); got != 1 {
		t.Fatalf("served rides for second run = %d, want 1", got)
	}
	var total int
	if err := second.db.QueryRow("SELECT COUNT(*) FROM served_rides").Scan(&total); err != nil {
		t.Fatalf("count all: %v", err)
	}
	if total != 2 {
		t.Fatalf("served rides in file = %d, want 2", total)
	}
}

func TestMemorySinkCollects(t *testing.T) {
	m := NewMemorySink()
	m.RecordTrackpoint(corestats.Trackpoint{VehicleID: "a"})
	m.RecordDeniedRide(corestats.DeniedRide{TrackID: 1})
	m.RecordServedRide(corestats.ServedRide{TrackID: 2})

	if len(m.Trackpoints) != 1 || len(m.Denied) != 1 || len(m.Served) != 1 {
		t.Fatalf("unexpected counts %d/%d/%d", len(m.Trackpoints), len(m.Denied), len(m.Served))
	}
	if m.size() != 3 {
		t.Fatalf("size = %d, want 3", m.size())
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a := NewMemorySink()
	b := NewMemorySink()
	m := NewMultiSink(a, b)

	m.RecordServedRide(corestats.ServedRide{TrackID: 1})
	m.RecordController(corestats.ControllerRecord{Scope: corestats.ScopeActual, Count: 5})

	for _, sink := range []*MemorySink{a, b} {
		if len(sink.Served) != 1 || len(sink.Controller) != 1 {
			t.Fatalf("sink got %d/%d records, want 1/1", len(sink.Served), len(sink.Controller))
		}
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
