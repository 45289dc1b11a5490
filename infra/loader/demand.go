// Package loader reads the scenario input files. All inputs are CSV;
// rows are bound to their structs via gocsv tags.
package loader

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/model"
	"github.com/evfleet/taxisim/core/sim"
)

// demandRow binds one customer request. Day, hour and minute are
// 1-based, distance is in m, duration in s.
type demandRow struct {
	Day      int     `csv:"day"`
	Hour     int     `csv:"hour"`
	Minute   int     `csv:"minute"`
	TrackID  int     `csv:"track_id"`
	StartX   float64 `csv:"start_x"`
	StartY   float64 `csv:"start_y"`
	StopX    float64 `csv:"stop_x"`
	StopY    float64 `csv:"stop_y"`
	Distance float64 `csv:"distance"`
	Duration int64   `csv:"duration"`
}

func (r demandRow) at() sim.Time {
	return sim.Time(r.Day-1)*sim.Day + sim.Time(r.Hour-1)*sim.Hour + sim.Time(r.Minute-1)*sim.Minute
}

// LoadDemand reads the customer requests from path.
func LoadDemand(path string) ([]*model.Demand, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var rows []demandRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("parse demand file %s: %w", path, err)
	}

	demands := make([]*model.Demand, 0, len(rows))
	for _, r := range rows {
		demands = append(demands, &model.Demand{
			TrackID:  r.TrackID,
			Time:     r.at(),
			Pickup:   geo.Position{Lat: r.StartY, Lon: r.StartX},
			Dropoff:  geo.Position{Lat: r.StopY, Lon: r.StopX},
			Distance: r.Distance,
			Duration: sim.Time(r.Duration) * sim.Second,
		})
	}
	return demands, nil
}
