package stats

import (
	"errors"

	corestats "github.com/evfleet/taxisim/core/stats"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []corestats.Sink
}

var _ corestats.Sink = (*MultiSink)(nil)

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...corestats.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordTrackpoint(tp corestats.Trackpoint) {
	for _, s := range m.Sinks {
		s.RecordTrackpoint(tp)
	}
}

func (m *MultiSink) RecordFacilityEvent(ev corestats.FacilityEvent) {
	for _, s := range m.Sinks {
		s.RecordFacilityEvent(ev)
	}
}

func (m *MultiSink) RecordEnergy(ev corestats.EnergyEvent) {
	for _, s := range m.Sinks {
		s.RecordEnergy(ev)
	}
}

func (m *MultiSink) RecordDeniedRide(dr corestats.DeniedRide) {
	for _, s := range m.Sinks {
		s.RecordDeniedRide(dr)
	}
}

func (m *MultiSink) RecordServedRide(sr corestats.ServedRide) {
	for _, s := range m.Sinks {
		s.RecordServedRide(sr)
	}
}

func (m *MultiSink) RecordController(cr corestats.ControllerRecord) {
	for _, s := range m.Sinks {
		s.RecordController(cr)
	}
}

// Flush flushes every sink and joins the errors.
func (m *MultiSink) Flush() error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins the errors.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
