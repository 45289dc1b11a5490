package config

import (
	"fmt"

	"github.com/evfleet/taxisim/core/facility"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/vehicle"
)

// FleetConfig carries the operational parameters shared by the fleet.
// Durations are in ms, distances in m, charge levels in percent.
type FleetConfig struct {
	// MinActiveMs is the shortest shift before a log-off is allowed.
	MinActiveMs int64 `json:"min_active_ms"`
	// MaxActiveMs is the shift length after which a taxi heads home.
	MaxActiveMs int64 `json:"max_active_ms"`
	// MinInactiveMs is the shortest rest between shifts.
	MinInactiveMs int64 `json:"min_inactive_ms"`

	// RemainingRangeMinM is the range safety margin.
	RemainingRangeMinM float64 `json:"remaining_range_min_m"`
	// RemainingRangeRechargeM is the range below which an electric taxi
	// looks for a charging station.
	RemainingRangeRechargeM float64 `json:"remaining_range_recharge_m"`
	// StopChargeMinSOC allows cutting a charging session short for a
	// customer once reached.
	StopChargeMinSOC float64 `json:"stop_charge_min_soc"`
	// StopChargeMaxSOC ends a charging session.
	StopChargeMaxSOC float64 `json:"stop_charge_max_soc"`
	// MinChargingMs is the shortest allowed charging session.
	MinChargingMs int64 `json:"min_charging_ms"`
	// BestConnectorDetourM is the acceptable detour for a faster
	// charging point.
	BestConnectorDetourM float64 `json:"best_connector_detour_m"`

	// ChargeUpdateIntervalMs is the interval between charge updates.
	ChargeUpdateIntervalMs int64 `json:"charge_update_interval_ms"`
	// ChargeCurveStepMs is the resolution of the charge curve integration.
	ChargeCurveStepMs int64 `json:"charge_curve_step_ms"`
	// PlugInMs is the plug-in overhead at a station-side connector.
	PlugInMs int64 `json:"plug_in_ms"`
}

func (c *FleetConfig) SetDefaults() {
	if c.MinActiveMs == 0 {
		c.MinActiveMs = int64(4 * sim.Hour)
	}
	if c.MaxActiveMs == 0 {
		c.MaxActiveMs = int64(9 * sim.Hour)
	}
	if c.MinInactiveMs == 0 {
		c.MinInactiveMs = int64(8 * sim.Hour)
	}
	if c.RemainingRangeMinM == 0 {
		c.RemainingRangeMinM = 15000
	}
	if c.RemainingRangeRechargeM == 0 {
		c.RemainingRangeRechargeM = 30000
	}
	if c.StopChargeMinSOC == 0 {
		c.StopChargeMinSOC = 70
	}
	if c.StopChargeMaxSOC == 0 {
		c.StopChargeMaxSOC = 100
	}
	if c.MinChargingMs == 0 {
		c.MinChargingMs = int64(20 * sim.Minute)
	}
	if c.BestConnectorDetourM == 0 {
		c.BestConnectorDetourM = 4000
	}
	if c.ChargeUpdateIntervalMs == 0 {
		c.ChargeUpdateIntervalMs = int64(sim.Minute)
	}
	if c.ChargeCurveStepMs == 0 {
		c.ChargeCurveStepMs = int64(sim.Minute)
	}
	if c.PlugInMs == 0 {
		c.PlugInMs = int64(3 * sim.Minute)
	}
}

func (c FleetConfig) Validate() error {
	if c.MinActiveMs > c.MaxActiveMs {
		return fmt.Errorf("fleet.min_active_ms exceeds fleet.max_active_ms")
	}
	if c.RemainingRangeRechargeM < c.RemainingRangeMinM {
		return fmt.Errorf("fleet.remaining_range_recharge_m below fleet.remaining_range_min_m")
	}
	if c.StopChargeMinSOC > c.StopChargeMaxSOC {
		return fmt.Errorf("fleet.stop_charge_min_soc exceeds fleet.stop_charge_max_soc")
	}
	if c.StopChargeMaxSOC > 100 {
		return fmt.Errorf("fleet.stop_charge_max_soc above 100")
	}
	if c.ChargeUpdateIntervalMs <= 0 || c.ChargeCurveStepMs <= 0 {
		return fmt.Errorf("charge intervals must be positive")
	}
	return nil
}

// VehicleParams converts the shift-time settings.
func (c FleetConfig) VehicleParams() vehicle.Params {
	return vehicle.Params{
		MinActive:   sim.Time(c.MinActiveMs),
		MaxActive:   sim.Time(c.MaxActiveMs),
		MinInactive: sim.Time(c.MinInactiveMs),
	}
}

// ElectricParams converts the electric-vehicle settings.
func (c FleetConfig) ElectricParams() vehicle.ElectricParams {
	return vehicle.ElectricParams{
		RemainingRangeMinM:      c.RemainingRangeMinM,
		RemainingRangeRechargeM: c.RemainingRangeRechargeM,
		StopChargeMinSOC:        c.StopChargeMinSOC,
		StopChargeMaxSOC:        c.StopChargeMaxSOC,
		MinChargingDuration:     sim.Time(c.MinChargingMs),
		BestConnectorDetourM:    c.BestConnectorDetourM,
		CurveStep:               sim.Time(c.ChargeCurveStepMs),
	}
}

// ChargingParams converts the charging-point settings.
func (c FleetConfig) ChargingParams() facility.ChargingParams {
	return facility.ChargingParams{
		UpdateInterval: sim.Time(c.ChargeUpdateIntervalMs),
		CurveStep:      sim.Time(c.ChargeCurveStepMs),
	}
}

// PlugIn returns the connector plug-in overhead.
func (c FleetConfig) PlugIn() sim.Time { return sim.Time(c.PlugInMs) }
