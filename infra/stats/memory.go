// Package stats provides the concrete result sinks: an in-memory sink
// for tests and reports, a SQLite sink for persistent runs, an InfluxDB
// sink for dashboards and a fan-out combining them.
package stats

import (
	corestats "github.com/evfleet/taxisim/core/stats"
)

// MemorySink keeps every record in memory. It backs the end-of-run
// report and the test suite.
type MemorySink struct {
	Trackpoints []corestats.Trackpoint
	Facilities  []corestats.FacilityEvent
	Energy      []corestats.EnergyEvent
	Denied      []corestats.DeniedRide
	Served      []corestats.ServedRide
	Controller  []corestats.ControllerRecord
}

var _ corestats.Sink = (*MemorySink)(nil)

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (m *MemorySink) RecordTrackpoint(tp corestats.Trackpoint) {
	m.Trackpoints = append(m.Trackpoints, tp)
}

func (m *MemorySink) RecordFacilityEvent(ev corestats.FacilityEvent) {
	m.Facilities = append(m.Facilities, ev)
}

func (m *MemorySink) RecordEnergy(ev corestats.EnergyEvent) {
	m.Energy = append(m.Energy, ev)
}

func (m *MemorySink) RecordDeniedRide(dr corestats.DeniedRide) {
	m.Denied = append(m.Denied, dr)
}

func (m *MemorySink) RecordServedRide(sr corestats.ServedRide) {
	m.Served = append(m.Served, sr)
}

func (m *MemorySink) RecordController(cr corestats.ControllerRecord) {
	m.Controller = append(m.Controller, cr)
}

func (m *MemorySink) Flush() error { return nil }
func (m *MemorySink) Close() error { return nil }
