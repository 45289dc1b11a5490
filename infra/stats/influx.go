package stats

import (
	"context"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	corestats "github.com/evfleet/taxisim/core/stats"
	"github.com/evfleet/taxisim/infra/logger"
)

// InfluxSink streams run records to an InfluxDB instance using the
// official client. Simulation times are mapped onto wall-clock
// timestamps relative to the run's epoch so dashboards can plot them.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	epoch    time.Time
	log      logger.Logger
}

var _ corestats.Sink = (*InfluxSink)(nil)

// NewInfluxSink creates a sink for the given InfluxDB endpoint. epoch
// anchors simulation time zero.
func NewInfluxSink(url, token, org, bucket string, epoch time.Time) *InfluxSink {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		epoch:    epoch,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing dashboard never
// blocks a run.
func NewInfluxSinkWithFallback(url, token, org, bucket string, epoch time.Time) corestats.Sink {
	sink := NewInfluxSink(url, token, org, bucket, epoch)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return corestats.NopSink{}
	}
	return sink
}

func (s *InfluxSink) at(t int64) time.Time {
	return s.epoch.Add(time.Duration(t) * time.Millisecond)
}

func (s *InfluxSink) write(p *write.Point) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		s.log.Errorf("influx write: %v", err)
	}
}

func (s *InfluxSink) RecordTrackpoint(tp corestats.Trackpoint) {
	p := write.NewPointWithMeasurement("trackpoint").
		AddTag("vehicle_id", tp.VehicleID).
		AddTag("status", tp.Status).
		AddField("lat", tp.Pos.Lat).
		AddField("lon", tp.Pos.Lon).
		AddField("shift", tp.Shift).
		AddField("track", tp.Track).
		AddField("distance_m", tp.DistanceM).
		AddField("soc", tp.SOC).
		AddField("energy_j", tp.EnergyJ).
		SetTime(s.at(int64(tp.Time)))
	if tp.FacilityID != "" {
		p.AddTag("facility_id", tp.FacilityID)
	}
	s.write(p)
}

func (s *InfluxSink) RecordFacilityEvent(ev corestats.FacilityEvent) {
	s.write(write.NewPointWithMeasurement("facility_event").
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("facility_id", ev.FacilityID).
		AddTag("action", string(ev.Action)).
		AddField("connected", ev.Connected).
		AddField("waiting", ev.Waiting).
		SetTime(s.at(int64(ev.Time))))
}

func (s *InfluxSink) RecordEnergy(ev corestats.EnergyEvent) {
	s.write(write.NewPointWithMeasurement("charge_step").
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("station_id", ev.StationID).
		AddTag("connector", ev.Connector).
		AddField("power_w", ev.PowerW).
		AddField("energy_j", ev.EnergyJ).
		AddField("pmax_w", ev.PMaxW).
		AddField("soc", ev.SOC).
		SetTime(s.at(int64(ev.Time))))
}

func (s *InfluxSink) RecordDeniedRide(dr corestats.DeniedRide) {
	s.write(write.NewPointWithMeasurement("denied_ride").
		AddTag("vehicle_id", dr.VehicleID).
		AddTag("reason", string(dr.Reason)).
		AddTag("track_id", strconv.Itoa(dr.TrackID)).
		AddField("trip_m", dr.TripM).
		AddField("to_customer_m", dr.ToCustomerM).
		SetTime(s.at(int64(dr.Time))))
}

func (s *InfluxSink) RecordServedRide(sr corestats.ServedRide) {
	s.write(write.NewPointWithMeasurement("served_ride").
		AddTag("vehicle_id", sr.VehicleID).
		AddTag("track_id", strconv.Itoa(sr.TrackID)).
		AddField("pickup_m", sr.PickupM).
		AddField("trip_m", sr.TripM).
		SetTime(s.at(int64(sr.Time))))
}

func (s *InfluxSink) RecordController(cr corestats.ControllerRecord) {
	s.write(write.NewPointWithMeasurement("fleet_control").
		AddTag("scope", string(cr.Scope)).
		AddField("count", cr.Count).
		SetTime(s.at(int64(cr.Time))))
}

func (s *InfluxSink) Flush() error { return nil }

func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
