// Package report condenses the raw records of a finished run into a
// human-readable summary.
package report

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/evfleet/taxisim/core/battery"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
)

// Summary aggregates a complete simulation run.
type Summary struct {
	Start sim.Time
	End   sim.Time

	Served       int
	Denied       int
	DeniedByWhy  map[stats.DenialReason]int
	MeanPickupM  float64
	MeanTripM    float64
	TotalTripM   float64
	ChargedKWh   float64
	MeanPowerKW  float64
	FinalSOCMean float64
	FinalSOCMin  float64
	FinalSOCP10  float64
}

// Build computes a Summary from the raw run records. Slices may be
// empty; the respective figures stay zero.
func Build(tracks []stats.Trackpoint, energy []stats.EnergyEvent, served []stats.ServedRide, denied []stats.DeniedRide) Summary {
	s := Summary{
		Served:      len(served),
		Denied:      len(denied),
		DeniedByWhy: make(map[stats.DenialReason]int),
	}
	for _, d := range denied {
		s.DeniedByWhy[d.Reason]++
	}

	if len(served) > 0 {
		pickup := make([]float64, len(served))
		trip := make([]float64, len(served))
		for i, r := range served {
			pickup[i] = r.PickupM
			trip[i] = r.TripM
			s.TotalTripM += r.TripM
		}
		s.MeanPickupM = stat.Mean(pickup, nil)
		s.MeanTripM = stat.Mean(trip, nil)
	}

	if len(energy) > 0 {
		power := make([]float64, 0, len(energy))
		for _, e := range energy {
			s.ChargedKWh += battery.JToKWh(e.EnergyJ)
			if e.PowerW > 0 {
				power = append(power, e.PowerW/1000)
			}
		}
		if len(power) > 0 {
			s.MeanPowerKW = stat.Mean(power, nil)
		}
	}

	if len(tracks) > 0 {
		s.Start = tracks[0].Time
		s.End = tracks[len(tracks)-1].Time
		s.FinalSOCMean, s.FinalSOCMin, s.FinalSOCP10 = finalSOC(tracks)
	}
	return s
}

// finalSOC reduces the trackpoints to the last known SOC per electric
// vehicle and reports mean, minimum and 10th percentile.
func finalSOC(tracks []stats.Trackpoint) (mean, min, p10 float64) {
	last := make(map[string]float64)
	for _, tp := range tracks {
		if tp.SOC > 0 {
			last[tp.VehicleID] = tp.SOC
		}
	}
	if len(last) == 0 {
		return 0, 0, 0
	}
	socs := make([]float64, 0, len(last))
	for _, v := range last {
		socs = append(socs, v)
	}
	sort.Float64s(socs)
	mean = stat.Mean(socs, nil)
	min = socs[0]
	p10 = stat.Quantile(0.1, stat.Empirical, socs, nil)
	return mean, min, p10
}

// Write renders the summary as plain text.
func (s Summary) Write(w io.Writer) error {
	lines := []string{
		fmt.Sprintf("simulated span: %.1f h", float64(s.End-s.Start)/float64(sim.Hour)),
		fmt.Sprintf("rides served:   %d", s.Served),
		fmt.Sprintf("rides denied:   %d", s.Denied),
	}
	reasons := make([]stats.DenialReason, 0, len(s.DeniedByWhy))
	for r := range s.DeniedByWhy {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, r := range reasons {
		lines = append(lines, fmt.Sprintf("  %-40s %d", r, s.DeniedByWhy[r]))
	}
	lines = append(lines,
		fmt.Sprintf("mean pickup leg: %.0f m", s.MeanPickupM),
		fmt.Sprintf("mean trip:       %.0f m", s.MeanTripM),
		fmt.Sprintf("fleet distance:  %.1f km (customer legs)", s.TotalTripM/1000),
		fmt.Sprintf("energy charged:  %.1f kWh (mean %.1f kW)", s.ChargedKWh, s.MeanPowerKW),
	)
	if s.FinalSOCMean > 0 {
		lines = append(lines, fmt.Sprintf("final SOC: mean %.1f%%, min %.1f%%, p10 %.1f%%",
			s.FinalSOCMean, s.FinalSOCMin, s.FinalSOCP10))
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
