package facility

import (
	"math/rand"

	"github.com/evfleet/taxisim/core/charging"
	"github.com/evfleet/taxisim/core/geo"
	"github.com/evfleet/taxisim/core/policy"
	"github.com/evfleet/taxisim/core/routing"
	"github.com/evfleet/taxisim/core/sim"
)

// exactShortlist bounds the number of candidates whose routed distance is
// computed during in-range searches.
const exactShortlist = 3

// rankCandidates bounds the shortlist the random-rank pick draws from.
const rankCandidates = 20

// Directory indexes every facility of a scenario and answers the
// geographic and criteria-based searches vehicles run. It owns all
// facilities; vehicles hold non-owning references only. Registration
// order is preserved so search tie-breaks stay reproducible across runs.
type Directory struct {
	ranks    []*TaxiRank
	stations []*ChargingStation
	rankByID map[string]*TaxiRank
	stnByID  map[string]*ChargingStation
}

func NewDirectory() *Directory {
	return &Directory{
		rankByID: make(map[string]*TaxiRank),
		stnByID:  make(map[string]*ChargingStation),
	}
}

// AddRank registers a rank and wires it to this directory for the
// area-supply part of its demand weight.
func (d *Directory) AddRank(r *TaxiRank) {
	r.dir = d
	d.ranks = append(d.ranks, r)
	d.rankByID[r.id] = r
}

func (d *Directory) AddStation(s *ChargingStation) {
	d.stations = append(d.stations, s)
	d.stnByID[s.id] = s
}

func (d *Directory) Rank(id string) *TaxiRank           { return d.rankByID[id] }
func (d *Directory) Station(id string) *ChargingStation { return d.stnByID[id] }

// Ranks returns all registered taxi ranks in registration order.
func (d *Directory) Ranks() []*TaxiRank {
	out := make([]*TaxiRank, len(d.ranks))
	copy(out, d.ranks)
	return out
}

// Stations returns all registered charging stations in registration order.
func (d *Directory) Stations() []*ChargingStation {
	out := make([]*ChargingStation, len(d.stations))
	copy(out, d.stations)
	return out
}

// CarsAtRanksInArea counts the taxis queued at ranks in the given area.
func (d *Directory) CarsAtRanksInArea(area int) int {
	n := 0
	for _, r := range d.ranks {
		if r.pos.Area == area {
			n += r.QueueSize()
		}
	}
	return n
}

// compatibleStations filters stations by connector compatibility,
// skipping the excluded facility ("" excludes nothing).
func (d *Directory) compatibleStations(ci *charging.Interface, excluded string) []*ChargingStation {
	out := make([]*ChargingStation, 0, len(d.stations))
	for _, s := range d.stations {
		if s.id == excluded {
			continue
		}
		if s.Compatible(ci) {
			out = append(out, s)
		}
	}
	return out
}

func coarseChain(pos geo.Position) policy.Chain[*ChargingStation] {
	return policy.Chain[*ChargingStation]{
		policy.Asc(func(s *ChargingStation) float64 { return s.pos.DistanceTo(pos) }),
	}
}

// ClosestStationWithoutQueue returns the coarsely closest compatible
// station with an empty waiting queue, or nil.
func (d *Directory) ClosestStationWithoutQueue(ci *charging.Interface, pos geo.Position, excluded string) *ChargingStation {
	var candidates []*ChargingStation
	for _, s := range d.compatibleStations(ci, excluded) {
		if s.QueueSize() == 0 {
			candidates = append(candidates, s)
		}
	}
	best, _ := coarseChain(pos).Best(candidates)
	return best
}

// ClosestFreeStation returns the coarsely closest compatible station with
// an available point, or nil.
func (d *Directory) ClosestFreeStation(ci *charging.Interface, pos geo.Position, excluded string) *ChargingStation {
	var candidates []*ChargingStation
	for _, s := range d.compatibleStations(ci, excluded) {
		if s.HasFreePoints(ci) {
			candidates = append(candidates, s)
		}
	}
	best, _ := coarseChain(pos).Best(candidates)
	return best
}

type routedStation struct {
	station *ChargingStation
	exactM  float64
}

// exactPick routes to the coarsely closest candidates, drops those whose
// routed distance exceeds rangeM, and picks the minimum by waiting-queue
// size, then routed distance. Route failures drop the candidate.
func exactPick(candidates []*ChargingStation, pos geo.Position, rangeM float64, router routing.Router) *ChargingStation {
	shortlist := coarseChain(pos).Top(candidates, exactShortlist)
	routed := make([]routedStation, 0, len(shortlist))
	for _, s := range shortlist {
		route, err := router.Route(pos, s.pos)
		if err != nil || route.Distance > rangeM {
			continue
		}
		routed = append(routed, routedStation{station: s, exactM: route.Distance})
	}
	chain := policy.Chain[routedStation]{
		policy.Asc(func(r routedStation) float64 { return float64(r.station.QueueSize()) }),
		policy.Asc(func(r routedStation) float64 { return r.exactM }),
	}
	best, ok := chain.Best(routed)
	if !ok {
		return nil
	}
	return best.station
}

// FreeStationInRange searches compatible stations with a free point
// within the given coarse radius, then confirms a shortlist by routed
// distance. Returns nil when nothing qualifies.
func (d *Directory) FreeStationInRange(ci *charging.Interface, pos geo.Position, rangeM float64, router routing.Router, excluded string) *ChargingStation {
	var candidates []*ChargingStation
	for _, s := range d.compatibleStations(ci, excluded) {
		if s.HasFreePoints(ci) && s.pos.DistanceTo(pos) <= rangeM {
			candidates = append(candidates, s)
		}
	}
	return exactPick(candidates, pos, rangeM, router)
}

// ClosestStationInRange is FreeStationInRange without the free-point
// requirement: occupied stations qualify, the vehicle may have to queue.
func (d *Directory) ClosestStationInRange(ci *charging.Interface, pos geo.Position, rangeM float64, router routing.Router, excluded string) *ChargingStation {
	var candidates []*ChargingStation
	for _, s := range d.compatibleStations(ci, excluded) {
		if s.pos.DistanceTo(pos) <= rangeM {
			candidates = append(candidates, s)
		}
	}
	return exactPick(candidates, pos, rangeM, router)
}

// BestStationInRange returns the station with the strongest free
// compatible connector within the coarse radius, or nil.
func (d *Directory) BestStationInRange(ci *charging.Interface, pos geo.Position, rangeM float64, excluded string) *ChargingStation {
	var best *ChargingStation
	var bestPower float64
	for _, s := range d.compatibleStations(ci, excluded) {
		if !s.HasFreePoints(ci) || s.pos.DistanceTo(pos) > rangeM {
			continue
		}
		c, ok := s.BestConnector(ci)
		if !ok {
			continue
		}
		if best == nil || c.PMax > bestPower {
			best, bestPower = s, c.PMax
		}
	}
	return best
}

func nextRankChain(t sim.Time) policy.Chain[*TaxiRank] {
	return policy.Chain[*TaxiRank]{
		policy.Desc(func(r *TaxiRank) float64 {
			if r.HasSpace() {
				return 1
			}
			return 0
		}),
		policy.Desc(func(r *TaxiRank) float64 { return r.DemandWeight(t) }),
		policy.Desc(func(r *TaxiRank) float64 { return float64(r.RemainingSpace()) }),
	}
}

// BestRank returns the top rank of the next-rank chain, skipping the
// excluded facility. Returns nil when no rank is registered.
func (d *Directory) BestRank(t sim.Time, excluded string) *TaxiRank {
	var candidates []*TaxiRank
	for _, r := range d.ranks {
		if r.id == excluded {
			continue
		}
		candidates = append(candidates, r)
	}
	best, _ := nextRankChain(t).Best(candidates)
	return best
}

// RandomRank sorts all ranks by the next-rank chain and picks uniformly
// among the best candidates. Returns nil when no rank is registered.
func (d *Directory) RandomRank(t sim.Time, rnd *rand.Rand) *TaxiRank {
	top := nextRankChain(t).Top(d.Ranks(), rankCandidates)
	if len(top) == 0 {
		return nil
	}
	return top[rnd.Intn(len(top))]
}
