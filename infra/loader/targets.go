package loader

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/evfleet/taxisim/core/model"
	"github.com/evfleet/taxisim/core/sim"
)

// targetRow binds one fleet-size target. The file is semicolon
// delimited; day and hour are 1-based.
type targetRow struct {
	Day  int `csv:"day"`
	Hour int `csv:"hour"`
	N    int `csv:"n"`
}

// LoadTargets reads the fleet-size schedule from path.
func LoadTargets(path string) ([]*model.TargetCountEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.Comma = ';'
	var rows []targetRow
	if err := gocsv.UnmarshalCSV(r, &rows); err != nil {
		return nil, fmt.Errorf("parse target file %s: %w", path, err)
	}

	events := make([]*model.TargetCountEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, &model.TargetCountEvent{
			At:    sim.Time(row.Day-1)*sim.Day + sim.Time(row.Hour-1)*sim.Hour,
			Count: row.N,
		})
	}
	return events, nil
}
