package config

import "fmt"

// RoutingConfig tunes the crow-flight router.
type RoutingConfig struct {
	// MeanSpeedKmh turns route distance into travel time.
	MeanSpeedKmh float64 `json:"mean_speed_kmh"`
	// DetourFactor scales the straight-line distance to an estimated
	// street distance.
	DetourFactor float64 `json:"detour_factor"`
	// Seed feeds the deterministic random source used for rank picks.
	Seed int64 `json:"seed"`
}

func (c *RoutingConfig) SetDefaults() {
	if c.MeanSpeedKmh == 0 {
		c.MeanSpeedKmh = 30
	}
	if c.DetourFactor == 0 {
		c.DetourFactor = 1.3
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
}

func (c RoutingConfig) Validate() error {
	if c.MeanSpeedKmh <= 0 {
		return fmt.Errorf("routing.mean_speed_kmh must be positive")
	}
	if c.DetourFactor < 1 {
		return fmt.Errorf("routing.detour_factor below 1")
	}
	return nil
}
