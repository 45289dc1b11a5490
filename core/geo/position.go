package geo

import "math"

const earthRadiusM = 6371000

// Position is a geographic point used by every physical element of the
// simulation. Area is an optional coarse zone id (0 when unknown) used for
// rank demand weighting.
type Position struct {
	Lat  float64
	Lon  float64
	Area int
}

// NewPosition returns a position without an area id.
func NewPosition(lat, lon float64) Position {
	return Position{Lat: lat, Lon: lon}
}

// DistanceTo returns the great-circle distance to p in meters using the
// haversine formula.
func (a Position) DistanceTo(p Position) float64 {
	sinLat := math.Sin(rad(p.Lat-a.Lat) / 2)
	sinLon := math.Sin(rad(p.Lon-a.Lon) / 2)
	x := sinLat*sinLat + sinLon*sinLon*math.Cos(rad(a.Lat))*math.Cos(rad(p.Lat))
	return earthRadiusM * 2 * math.Asin(math.Sqrt(x))
}

// SamePoint reports whether both positions have identical coordinates,
// ignoring the area id.
func (a Position) SamePoint(p Position) bool {
	return a.Lat == p.Lat && a.Lon == p.Lon
}

// CoarseLat is the latitude rounded to four decimals.
func (a Position) CoarseLat() float64 { return math.Round(a.Lat*10000) / 10000 }

// CoarseLon is the longitude rounded to four decimals.
func (a Position) CoarseLon() float64 { return math.Round(a.Lon*10000) / 10000 }

func rad(deg float64) float64 { return deg * math.Pi / 180 }
