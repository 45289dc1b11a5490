// Package export writes ride records to external formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/evfleet/taxisim/core/stats"
)

// WriteJSON writes the served and denied rides to w as one JSON object.
func WriteJSON(w io.Writer, served []stats.ServedRide, denied []stats.DeniedRide) error {
	enc := json.NewEncoder(w)
	return enc.Encode(struct {
		Served []stats.ServedRide `json:"served"`
		Denied []stats.DeniedRide `json:"denied"`
	}{Served: served, Denied: denied})
}

// WriteServedCSV writes the served rides to w.
func WriteServedCSV(w io.Writer, served []stats.ServedRide) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_ms", "track_id", "vehicle_id", "pickup_m", "trip_m"}); err != nil {
		return err
	}
	for _, r := range served {
		rec := []string{
			strconv.FormatInt(int64(r.Time), 10),
			strconv.Itoa(r.TrackID),
			r.VehicleID,
			strconv.FormatFloat(r.PickupM, 'f', -1, 64),
			strconv.FormatFloat(r.TripM, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDeniedCSV writes the denied rides to w.
func WriteDeniedCSV(w io.Writer, denied []stats.DeniedRide) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_ms", "track_id", "vehicle_id", "reason", "trip_m", "to_customer_m"}); err != nil {
		return err
	}
	for _, r := range denied {
		rec := []string{
			strconv.FormatInt(int64(r.Time), 10),
			strconv.Itoa(r.TrackID),
			r.VehicleID,
			string(r.Reason),
			strconv.FormatFloat(r.TripM, 'f', -1, 64),
			strconv.FormatFloat(r.ToCustomerM, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
