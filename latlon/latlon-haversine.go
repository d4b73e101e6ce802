package latlon

import "math"

// LatLonHaversine works on the great circle of a spherical Earth of radius
// R. It is used for display distances, never for the tick integration.
type LatLonHaversine struct{}

// centralAngle returns the angle between two points and the initial
// bearing from the first one, both in radians.
func centralAngle(from, to LatLon) (float64, float64) {
	φ1, φ2 := toRadians(from.Lat), toRadians(to.Lat)
	Δφ := φ2 - φ1
	Δλ := toRadians(Wrap180(to.Lon - from.Lon))

	sinΔφ, sinΔλ := math.Sin(Δφ/2), math.Sin(Δλ/2)
	a := sinΔφ*sinΔφ + math.Cos(φ1)*math.Cos(φ2)*sinΔλ*sinΔλ
	δ := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	θ := math.Atan2(math.Sin(Δλ)*math.Cos(φ2), math.Cos(φ1)*math.Sin(φ2)-math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ))

	return δ, θ
}

func (LatLonHaversine) DistanceTo(from, to LatLon) float64 {
	δ, _ := centralAngle(from, to)
	return R * δ
}

// BearingTo is the initial great circle bearing.
func (LatLonHaversine) BearingTo(from, to LatLon) float64 {
	_, θ := centralAngle(from, to)
	return Wrap360(toDegrees(θ))
}

func (LatLonHaversine) DistanceAndBearingTo(from, to LatLon) (float64, float64) {
	δ, θ := centralAngle(from, to)
	return R * δ, Wrap360(toDegrees(θ))
}

func (LatLonHaversine) Destination(from LatLon, bearing float64, distance float64) LatLon {
	φ1 := toRadians(from.Lat)
	λ1 := toRadians(from.Lon)
	θ := toRadians(bearing)
	δ := distance / R

	φ2 := math.Asin(math.Sin(φ1)*math.Cos(δ) + math.Cos(φ1)*math.Sin(δ)*math.Cos(θ))
	λ2 := λ1 + math.Atan2(math.Sin(θ)*math.Sin(δ)*math.Cos(φ1), math.Cos(δ)-math.Sin(φ1)*math.Sin(φ2))

	return LatLon{Lat: toDegrees(φ2), Lon: toDegrees(λ2)}.Normalize()
}
