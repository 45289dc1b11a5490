package loader

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/evfleet/taxisim/core/charging"
	"github.com/evfleet/taxisim/core/facility"
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
)

// rankRow binds one taxi rank. The four demand columns are the mean
// hourly request counts per six-hour window.
type rankRow struct {
	ID          string  `csv:"id"`
	Lat         float64 `csv:"lat"`
	Lon         float64 `csv:"lon"`
	Area        int     `csv:"area"`
	Capacity    int     `csv:"capacity"`
	Address     string  `csv:"address"`
	Description string  `csv:"description"`
	Demand2103  float64 `csv:"demand_21_03"`
	Demand0309  float64 `csv:"demand_03_09"`
	Demand0915  float64 `csv:"demand_09_15"`
	Demand1521  float64 `csv:"demand_15_21"`
}

// stationRow binds one charging point. A station with several points
// spans several rows sharing the station id; position is taken from the
// first row.
type stationRow struct {
	StationID  string  `csv:"station_id"`
	Lat        float64 `csv:"lat"`
	Lon        float64 `csv:"lon"`
	Area       int     `csv:"area"`
	Connectors string  `csv:"connectors"`
}

// parseConnectors reads a connector list like "TYP2:22000|CCS:50000"
// (type:max power in W).
func parseConnectors(s string, plugIn sim.Time) ([]charging.Connector, error) {
	parts := strings.Split(s, "|")
	connectors := make([]charging.Connector, 0, len(parts))
	for _, part := range parts {
		typeName, powerStr, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("connector %q: want type:power", part)
		}
		ct, err := charging.ParseConnectorType(typeName)
		if err != nil {
			return nil, err
		}
		pmax, err := strconv.ParseFloat(powerStr, 64)
		if err != nil {
			return nil, fmt.Errorf("connector %q: bad power: %w", part, err)
		}
		connectors = append(connectors, charging.Connector{Type: ct, PMax: pmax, PlugIn: plugIn})
	}
	return connectors, nil
}

// LoadRanks reads the taxi ranks from path and registers them in dir.
func LoadRanks(path string, dir *facility.Directory, sink stats.Sink) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var rows []rankRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return fmt.Errorf("parse rank file %s: %w", path, err)
	}
	for _, r := range rows {
		dir.AddRank(facility.NewTaxiRank(
			r.ID,
			geo.Position{Lat: r.Lat, Lon: r.Lon, Area: r.Area},
			r.Capacity,
			r.Address,
			r.Description,
			facility.DemandFigures{
				From21To03: r.Demand2103,
				From03To09: r.Demand0309,
				From09To15: r.Demand0915,
				From15To21: r.Demand1521,
			},
			sink,
		))
	}
	return nil
}

// LoadStations reads the charging stations from path and registers them
// in dir. plugIn is the fixed plug-in overhead applied to every
// station-side connector.
func LoadStations(path string, dir *facility.Directory, params facility.ChargingParams, plugIn sim.Time, sched *sim.Scheduler, sink stats.Sink) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var rows []stationRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return fmt.Errorf("parse station file %s: %w", path, err)
	}

	// Group rows into stations, keeping file order.
	type stationDef struct {
		pos    geo.Position
		points []*facility.ChargingPoint
	}
	order := make([]string, 0)
	byID := make(map[string]*stationDef)
	for _, r := range rows {
		connectors, err := parseConnectors(r.Connectors, plugIn)
		if err != nil {
			return fmt.Errorf("station %s: %w", r.StationID, err)
		}
		point := facility.NewChargingPoint(charging.NewInterface(connectors...), params, sched, sink)
		def, ok := byID[r.StationID]
		if !ok {
			def = &stationDef{pos: geo.Position{Lat: r.Lat, Lon: r.Lon, Area: r.Area}}
			byID[r.StationID] = def
			order = append(order, r.StationID)
		}
		def.points = append(def.points, point)
	}

	for _, id := range order {
		def := byID[id]
		station, err := facility.NewChargingStation(id, def.pos, def.points, sink)
		if err != nil {
			return fmt.Errorf("station %s: %w", id, err)
		}
		dir.AddStation(station)
	}
	return nil
}
