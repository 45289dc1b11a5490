package sim

// Time is a simulation timestamp in milliseconds since scenario start.
type Time int64

// Common durations expressed in simulation milliseconds.
const (
	Second Time = 1000
	Minute Time = 60 * Second
	Hour   Time = 60 * Minute
	Day    Time = 24 * Hour
)

// HourOfDay returns the hour of day [0,24) the timestamp falls into. Day 0
// starts at midnight.
func (t Time) HourOfDay() int {
	h := int(t/Hour) % 24
	if h < 0 {
		h += 24
	}
	return h
}

// Seconds returns the timestamp as fractional seconds.
func (t Time) Seconds() float64 { return float64(t) / 1000 }
