package loader

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/evfleet/taxisim/core/battery"
	"github.com/evfleet/taxisim/core/charging"
	"github.com/evfleet/taxisim/core/fleet"
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/vehicle"
)

const (
	vehicleTypeICE = "ICE"
	vehicleTypeBEV = "BEV"
)

// fleetRow binds one vehicle. The battery and connector columns are
// only read for BEV rows.
type fleetRow struct {
	ID   string  `csv:"id"`
	Type string  `csv:"type"`
	Lat  float64 `csv:"home_lat"`
	Lon  float64 `csv:"home_lon"`
	// ConsumptionKWh100 is the mean consumption in kWh/100km.
	ConsumptionKWh100 float64 `csv:"consumption_kwh_100km"`
	BatteryKWh        float64 `csv:"battery_kwh"`
	UCellN            float64 `csv:"u_cell_n"`
	UCellLS           float64 `csv:"u_cell_ls"`
	Eta               float64 `csv:"eta"`
	Connectors        string  `csv:"connectors"`
}

// LoadFleet reads the vehicle fleet from path and adds every vehicle to
// the agency. env and par apply to all vehicles, ep to the electric
// ones.
func LoadFleet(path string, agency *fleet.Agency, env vehicle.Env, par vehicle.Params, ep vehicle.ElectricParams) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var rows []fleetRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return fmt.Errorf("parse fleet file %s: %w", path, err)
	}

	for _, r := range rows {
		home := geo.Position{Lat: r.Lat, Lon: r.Lon}
		switch r.Type {
		case vehicleTypeICE:
			agency.Add(vehicle.NewConventional(r.ID, home, env, par))
		case vehicleTypeBEV:
			connectors, err := parseConnectors(r.Connectors, 0)
			if err != nil {
				return fmt.Errorf("vehicle %s: %w", r.ID, err)
			}
			bat := battery.New(r.BatteryKWh, r.UCellN, r.UCellLS, r.Eta)
			agency.Add(vehicle.NewElectric(
				r.ID, home, bat,
				charging.NewInterface(connectors...),
				r.ConsumptionKWh100,
				env, par, ep,
			))
		default:
			return fmt.Errorf("vehicle %s: unknown type %q", r.ID, r.Type)
		}
	}
	return nil
}
