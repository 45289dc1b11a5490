package stats

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	corestats "github.com/evfleet/taxisim/core/stats"
)

// Records are buffered and written in one transaction per flush to keep
// the sink off the simulation's hot path.
const sqliteBatchSize = 5000

// SQLiteSink persists run records in a SQLite database. Every run gets
// a fresh run id so several runs can share one file.
type SQLiteSink struct {
	db    *sql.DB
	runID string
	buf   *MemorySink
}

var _ corestats.Sink = (*SQLiteSink)(nil)

// NewSQLiteSink opens or creates the database and ensures schema.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `
CREATE TABLE IF NOT EXISTS trackpoints (
    run_id TEXT, time INTEGER, vehicle_id TEXT, shift INTEGER, track INTEGER,
    lat REAL, lon REAL, area INTEGER, status TEXT,
    distance_m REAL, soc REAL, energy_j REAL, facility_id TEXT
);
CREATE TABLE IF NOT EXISTS facility_events (
    run_id TEXT, time INTEGER, vehicle_id TEXT, facility_id TEXT,
    action TEXT, connected INTEGER, waiting INTEGER
);
CREATE TABLE IF NOT EXISTS energy_events (
    run_id TEXT, time INTEGER, vehicle_id TEXT, station_id TEXT,
    power_w REAL, energy_j REAL, connector TEXT, pmax_w REAL, soc REAL
);
CREATE TABLE IF NOT EXISTS denied_rides (
    run_id TEXT, time INTEGER, track_id INTEGER, vehicle_id TEXT,
    reason TEXT, trip_m REAL, to_customer_m REAL
);
CREATE TABLE IF NOT EXISTS served_rides (
    run_id TEXT, time INTEGER, track_id INTEGER, vehicle_id TEXT,
    pickup_m REAL, trip_m REAL
);
CREATE TABLE IF NOT EXISTS controller (
    run_id TEXT, time INTEGER, scope TEXT, count INTEGER
);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteSink{
		db:    db,
		runID: uuid.NewString(),
		buf:   NewMemorySink(),
	}, nil
}

// RunID identifies the rows written by this sink instance.
func (s *SQLiteSink) RunID() string { return s.runID }

func (s *SQLiteSink) RecordTrackpoint(tp corestats.Trackpoint) {
	s.buf.RecordTrackpoint(tp)
	s.flushIfFull()
}

func (s *SQLiteSink) RecordFacilityEvent(ev corestats.FacilityEvent) {
	s.buf.RecordFacilityEvent(ev)
	s.flushIfFull()
}

func (s *SQLiteSink) RecordEnergy(ev corestats.EnergyEvent) {
	s.buf.RecordEnergy(ev)
	s.flushIfFull()
}

func (s *SQLiteSink) RecordDeniedRide(dr corestats.DeniedRide) {
	s.buf.RecordDeniedRide(dr)
	s.flushIfFull()
}

func (s *SQLiteSink) RecordServedRide(sr corestats.ServedRide) {
	s.buf.RecordServedRide(sr)
	s.flushIfFull()
}

func (s *SQLiteSink) RecordController(cr corestats.ControllerRecord) {
	s.buf.RecordController(cr)
	s.flushIfFull()
}

func (s *SQLiteSink) flushIfFull() {
	if s.buf.size() >= sqliteBatchSize {
		// Mid-run flush errors surface on the final Flush.
		_ = s.Flush()
	}
}

func (m *MemorySink) size() int {
	return len(m.Trackpoints) + len(m.Facilities) + len(m.Energy) +
		len(m.Denied) + len(m.Served) + len(m.Controller)
}

// Flush writes all buffered records in a single transaction.
func (s *SQLiteSink) Flush() error {
	b := s.buf
	if b.size() == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, tp := range b.Trackpoints {
		if _, err := tx.Exec(`INSERT INTO trackpoints VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			s.runID, int64(tp.Time), tp.VehicleID, tp.Shift, tp.Track,
			tp.Pos.Lat, tp.Pos.Lon, tp.Pos.Area, tp.Status,
			tp.DistanceM, tp.SOC, tp.EnergyJ, tp.FacilityID); err != nil {
			return fmt.Errorf("insert trackpoint: %w", err)
		}
	}
	for _, ev := range b.Facilities {
		if _, err := tx.Exec(`INSERT INTO facility_events VALUES (?,?,?,?,?,?,?)`,
			s.runID, int64(ev.Time), ev.VehicleID, ev.FacilityID,
			string(ev.Action), ev.Connected, ev.Waiting); err != nil {
			return fmt.Errorf("insert facility event: %w", err)
		}
	}
	for _, ev := range b.Energy {
		if _, err := tx.Exec(`INSERT INTO energy_events VALUES (?,?,?,?,?,?,?,?,?)`,
			s.runID, int64(ev.Time), ev.VehicleID, ev.StationID,
			ev.PowerW, ev.EnergyJ, ev.Connector, ev.PMaxW, ev.SOC); err != nil {
			return fmt.Errorf("insert energy event: %w", err)
		}
	}
	for _, dr := range b.Denied {
		if _, err := tx.Exec(`INSERT INTO denied_rides VALUES (?,?,?,?,?,?,?)`,
			s.runID, int64(dr.Time), dr.TrackID, dr.VehicleID,
			string(dr.Reason), dr.TripM, dr.ToCustomerM); err != nil {
			return fmt.Errorf("insert denied ride: %w", err)
		}
	}
	for _, sr := range b.Served {
		if _, err := tx.Exec(`INSERT INTO served_rides VALUES (?,?,?,?,?,?)`,
			s.runID, int64(sr.Time), sr.TrackID, sr.VehicleID,
			sr.PickupM, sr.TripM); err != nil {
			return fmt.Errorf("insert served ride: %w", err)
		}
	}
	for _, cr := range b.Controller {
		if _, err := tx.Exec(`INSERT INTO controller VALUES (?,?,?,?)`,
			s.runID, int64(cr.Time), string(cr.Scope), cr.Count); err != nil {
			return fmt.Errorf("insert controller record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.buf = NewMemorySink()
	return nil
}

// Close flushes pending records and closes the database.
func (s *SQLiteSink) Close() error {
	flushErr := s.Flush()
	if err := s.db.Close(); err != nil {
		return err
	}
	return flushErr
}
