package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
)

func TestWriteJSONRoundTrip(t *testing.T) {
	served := []stats.ServedRide{
		{Time: 2 * sim.Hour, TrackID: 1, VehicleID: "taxi1", PickupM: 250, TripM: 3100},
	}
	denied := []stats.DeniedRide{
		{Time: 3 * sim.Hour, TrackID: 2, VehicleID: "ev1", Reason: stats.DeniedLowSOC, TripM: 9000, ToCustomerM: 400},
	}

	var buf bytes.Buffer
	assert.NoError(t, WriteJSON(&buf, served, denied))

	var got struct {
		Served []stats.ServedRide `json:"served"`
		Denied []stats.DeniedRide `json:"denied"`
	}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, served, got.Served)
	assert.Equal(t, denied, got.Denied)
}

func TestWriteJSONEmptySlices(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, WriteJSON(&buf, nil, nil))
	assert.Contains(t, buf.String(), `"served"`)
	assert.Contains(t, buf.String(), `"denied"`)
}

func TestWriteServedCSV(t *testing.T) {
	served := []stats.ServedRide{
		{Time: sim.Minute, TrackID: 7, VehicleID: "taxi1", PickupM: 120.5, TripM: 2000},
		{Time: 2 * sim.Minute, TrackID: 8, VehicleID: "taxi2", PickupM: 0, TripM: 1500},
	}

	var buf bytes.Buffer
	assert.NoError(t, WriteServedCSV(&buf, served))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "time_ms,track_id,vehicle_id,pickup_m,trip_m", lines[0])
	assert.Equal(t, "60000,7,taxi1,120.5,2000", lines[1])
	assert.Equal(t, "120000,8,taxi2,0,1500", lines[2])
}

func TestWriteDeniedCSV(t *testing.T) {
	denied := []stats.DeniedRide{
		{Time: sim.Hour, TrackID: 3, VehicleID: "", Reason: stats.DeniedNoFreeCar, TripM: 4200, ToCustomerM: 0},
	}

	var buf bytes.Buffer
	assert.NoError(t, WriteDeniedCSV(&buf, denied))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "time_ms,track_id,vehicle_id,reason,trip_m,to_customer_m", lines[0])
	assert.Equal(t, "3600000,3,,NO_FREE_CAR_FOUND,4200,0", lines[1])
}
