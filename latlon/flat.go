package latlon

import "math"

// KmPerDegree is the flat-Earth length of one degree of latitude.
const KmPerDegree = 111.0

// LatLonFlat is a local flat-Earth approximation: one degree of latitude is
// KmPerDegree, one degree of longitude is KmPerDegree*cos(lat). Distances
// are in meters, bearings in degrees.
type LatLonFlat struct{}

func (LatLonFlat) delta(from, to LatLon) (float64, float64) {
	x := to.Lon - from.Lon
	y := to.Lat - from.Lat

	if x > 180 {
		x -= 360
	} else if x < -180 {
		x += 360
	}

	x *= KmPerDegree * 1000.0 * math.Cos(toRadians(from.Lat))
	y *= KmPerDegree * 1000.0

	return x, y
}

func (f LatLonFlat) DistanceTo(from, to LatLon) float64 {
	x, y := f.delta(from, to)
	return math.Sqrt(x*x + y*y)
}

func (f LatLonFlat) BearingTo(from, to LatLon) float64 {
	x, y := f.delta(from, to)
	return Wrap360(toDegrees(math.Atan2(x, y)))
}

func (f LatLonFlat) DistanceAndBearingTo(from, to LatLon) (float64, float64) {
	x, y := f.delta(from, to)
	return math.Sqrt(x*x + y*y), Wrap360(toDegrees(math.Atan2(x, y)))
}

// Destination moves `distance` meters along `bearing`. Longitude is not
// wrapped so that a displacement segment never jumps across the
// antimeridian; use Normalize for display.
func (LatLonFlat) Destination(from LatLon, bearing float64, distance float64) LatLon {
	θ := toRadians(bearing)
	km := distance / 1000.0

	dLat := km * math.Cos(θ) / KmPerDegree
	dLon := km * math.Sin(θ) / (KmPerDegree * math.Cos(toRadians(from.Lat)))

	return LatLon{Lat: from.Lat + dLat, Lon: from.Lon + dLon}
}

// Normalize wraps the longitude into [-180,180).
func (p LatLon) Normalize() LatLon {
	lon := Wrap360(p.Lon + 180.0)
	return LatLon{Lat: p.Lat, Lon: lon - 180.0}
}
