package config

import (
	"fmt"
	"time"
)

// OutputConfig selects the result sinks. Several sinks may be active at
// once; records are fanned out to all of them.
type OutputConfig struct {
	// SQLitePath enables the SQLite sink when set.
	SQLitePath string `json:"sqlite_path"`
	// Influx enables the InfluxDB sink when its URL is set.
	Influx InfluxConfig `json:"influx"`
	// RidesDir enables a CSV export of served and denied rides into
	// the given directory after the run.
	RidesDir string `json:"rides_dir"`
	// Epoch anchors simulation time zero on the wall clock,
	// RFC 3339. Defaults to the start of the current day in UTC.
	Epoch string `json:"epoch"`
}

// InfluxConfig carries the InfluxDB connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

func (c *OutputConfig) SetDefaults() {
	if c.Epoch == "" {
		c.Epoch = time.Now().UTC().Truncate(24 * time.Hour).Format(time.RFC3339)
	}
}

func (c OutputConfig) Validate() error {
	if _, err := time.Parse(time.RFC3339, c.Epoch); err != nil {
		return fmt.Errorf("output.epoch: %w", err)
	}
	if c.Influx.URL != "" {
		if c.Influx.Org == "" || c.Influx.Bucket == "" {
			return fmt.Errorf("output.influx needs org and bucket")
		}
	}
	return nil
}

// EpochTime returns the parsed epoch. Validate must have accepted the
// config first.
func (c OutputConfig) EpochTime() time.Time {
	t, _ := time.Parse(time.RFC3339, c.Epoch)
	return t
}
